package api

import (
	"errors"
	"net/http"

	"github.com/MrWong99/speechcoach/internal/attempt"
	"github.com/MrWong99/speechcoach/internal/coach"
	"github.com/MrWong99/speechcoach/internal/persona"
	"github.com/MrWong99/speechcoach/internal/resilience"
	"github.com/MrWong99/speechcoach/internal/speech"
)

// Error kinds reported in the "kind" field of error responses.
const (
	KindInvalidDuration     = "InvalidDuration"
	KindInvalidRequest      = "InvalidRequest"
	KindUnknownPersonaID    = "UnknownPersonaId"
	KindAttemptNotFound     = "AttemptNotFound"
	KindPersonaMismatch     = "PersonaMismatch"
	KindAttemptExpired      = "AttemptExpired"
	KindNotConfirmable      = "NotConfirmable"
	KindCollaboratorTimeout = "CollaboratorTimeout"
	KindCollaboratorError   = "CollaboratorError"
	KindNotFound            = "NotFound"
	KindInternal            = "Internal"
)

var errorKinds = []struct {
	err    error
	kind   string
	status int
}{
	{speech.ErrInvalidDuration, KindInvalidDuration, http.StatusBadRequest},
	{coach.ErrInvalidRequest, KindInvalidRequest, http.StatusBadRequest},
	{persona.ErrUnknownPersona, KindUnknownPersonaID, http.StatusBadRequest},
	{attempt.ErrNotFound, KindAttemptNotFound, http.StatusNotFound},
	{attempt.ErrPersonaMismatch, KindPersonaMismatch, http.StatusConflict},
	{attempt.ErrExpired, KindAttemptExpired, http.StatusGone},
	{attempt.ErrNotConfirmable, KindNotConfirmable, http.StatusConflict},
	{resilience.ErrCollaboratorTimeout, KindCollaboratorTimeout, http.StatusGatewayTimeout},
	{resilience.ErrCollaboratorError, KindCollaboratorError, http.StatusBadGateway},
}

// classify maps an engine error to its kind and HTTP status.
func classify(err error) (kind string, status int) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind, k.status
		}
	}
	return KindInternal, http.StatusInternalServerError
}
