package persona

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
)

// ErrUnknownPersona is returned when an id is not in the registry.
var ErrUnknownPersona = errors.New("persona: unknown persona id")

// suggestThreshold is the minimum Jaro-Winkler similarity for a "did you
// mean" hint.
const suggestThreshold = 0.8

// Registry is an immutable, ordered set of personas. Safe for concurrent use.
type Registry struct {
	ordered []Persona
	byID    map[string]Persona
}

// NewRegistry validates personas and builds a Registry. Ids must be unique and
// at least one persona is required.
func NewRegistry(personas []Persona) (*Registry, error) {
	if len(personas) == 0 {
		return nil, errors.New("persona: registry needs at least one persona")
	}
	r := &Registry{
		ordered: make([]Persona, 0, len(personas)),
		byID:    make(map[string]Persona, len(personas)),
	}
	var errs []error
	for _, p := range personas {
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := r.byID[p.ID]; dup {
			errs = append(errs, fmt.Errorf("persona %q: duplicate id", p.ID))
			continue
		}
		r.byID[p.ID] = p
		r.ordered = append(r.ordered, p)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("persona: invalid registry: %w", err)
	}
	return r, nil
}

// Get returns the persona with the given id. Unknown ids yield an error
// wrapping ErrUnknownPersona, with a suggestion when one id is close.
func (r *Registry) Get(id string) (Persona, error) {
	if p, ok := r.byID[id]; ok {
		return p, nil
	}
	if s := r.suggest(id); s != "" {
		return Persona{}, fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownPersona, id, s)
	}
	return Persona{}, fmt.Errorf("%w %q", ErrUnknownPersona, id)
}

// List returns all personas in registration order. The slice is a copy.
func (r *Registry) List() []Persona {
	out := make([]Persona, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len returns the number of personas.
func (r *Registry) Len() int { return len(r.ordered) }

func (r *Registry) suggest(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return ""
	}
	best, bestScore := "", 0.0
	for _, p := range r.ordered {
		for _, candidate := range []string{p.ID, p.Name} {
			score := matchr.JaroWinkler(id, strings.ToLower(candidate), false)
			if score > bestScore {
				best, bestScore = p.ID, score
			}
		}
	}
	if bestScore < suggestThreshold {
		return ""
	}
	return best
}
