// Package speech turns a finished transcript into the token stream and
// delivery metrics the rest of the coaching pipeline works from.
//
// Extract is a pure function: it tokenizes the transcript, splits it into
// sentences, finds filler and hedge phrases, and derives pace metrics from the
// recording duration. Nothing is rounded here; presentation layers may round.
package speech
