package feature

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Registration is one provider registered for one feature kind. It lives
// until Dispose is called.
type Registration struct {
	ID                string
	Kind              Kind
	Selector          Selector
	Provider          any
	TriggerCharacters []string

	seq      uint64
	registry *Registry
	disposed atomic.Bool
}

// RegisterOption configures a Registration.
type RegisterOption func(*Registration)

// WithTriggerCharacters sets the characters that trigger completion,
// signature help or on-type formatting for this provider.
func WithTriggerCharacters(chars ...string) RegisterOption {
	return func(r *Registration) {
		r.TriggerCharacters = append([]string(nil), chars...)
	}
}

// WithRegistrationID overrides the generated registration id.
func WithRegistrationID(id string) RegisterOption {
	return func(r *Registration) {
		if id != "" {
			r.ID = id
		}
	}
}

// Sequence returns the registration order number. Later registrations have
// larger numbers.
func (r *Registration) Sequence() uint64 {
	return r.seq
}

// Disposed reports whether Dispose has been called.
func (r *Registration) Disposed() bool {
	return r.disposed.Load()
}

// Dispose removes the registration from its registry. Calling it more than
// once is a no-op.
func (r *Registration) Dispose() {
	if r == nil || r.disposed.Swap(true) {
		return
	}
	if r.registry != nil {
		r.registry.remove(r)
	}
}

// acceptsTrigger reports whether the provider declared ch as a trigger.
func (r *Registration) acceptsTrigger(ch string) bool {
	return slices.Contains(r.TriggerCharacters, ch)
}

// Registry holds one ordered provider list per feature kind.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries [kindCount][]*Registration
	seq     uint64

	generation atomic.Uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends provider to the list of kind.
func (r *Registry) Register(kind Kind, sel Selector, provider any, opts ...RegisterOption) (*Registration, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, int(kind))
	}
	if provider == nil {
		return nil, ErrNilProvider
	}
	if sel.IsZero() {
		return nil, ErrInvalidSelector
	}
	if !Supports(kind, provider) {
		return nil, fmt.Errorf("%w: %T cannot serve %s", ErrUnsupportedCapability, provider, kind)
	}

	reg := &Registration{
		ID:       uuid.NewString(),
		Kind:     kind,
		Selector: sel,
		Provider: provider,
		registry: r,
	}
	for _, opt := range opts {
		opt(reg)
	}

	r.mu.Lock()
	r.seq++
	reg.seq = r.seq
	r.entries[kind] = append(r.entries[kind], reg)
	r.mu.Unlock()

	r.generation.Add(1)
	return reg, nil
}

// remove deletes reg from its list.
func (r *Registry) remove(reg *Registration) {
	r.mu.Lock()
	list := r.entries[reg.Kind]
	for i, entry := range list {
		if entry == reg {
			// Copy so snapshots handed out earlier stay intact.
			r.entries[reg.Kind] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.generation.Add(1)
}

// snapshot returns the current list of kind. The returned slice must not be
// modified.
func (r *Registry) snapshot(kind Kind) []*Registration {
	if !kind.Valid() {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[kind]
}

// List returns the registrations of kind whose selector matches doc, in
// registration order.
func (r *Registry) List(kind Kind, doc Document) []*Registration {
	var out []*Registration
	for _, c := range r.matching(kind, doc) {
		out = append(out, c.reg)
	}
	return out
}

// All returns every registration of kind, in registration order, without
// selector filtering.
func (r *Registry) All(kind Kind) []*Registration {
	return slices.Clone(r.snapshot(kind))
}

// Len returns the number of registrations of kind.
func (r *Registry) Len(kind Kind) int {
	return len(r.snapshot(kind))
}

// Generation changes whenever a registration is added or removed.
func (r *Registry) Generation() uint64 {
	return r.generation.Load()
}

// candidate is a matching registration with its selector score.
type candidate struct {
	reg   *Registration
	score int
}

// matching returns the candidates of kind for doc in registration order.
func (r *Registry) matching(kind Kind, doc Document) []candidate {
	var out []candidate
	for _, reg := range r.snapshot(kind) {
		if score := Score(reg.Selector, doc); score > ScoreNone {
			out = append(out, candidate{reg: reg, score: score})
		}
	}
	return out
}

// reverseOrder returns cands most recently registered first.
func reverseOrder(cands []candidate) []candidate {
	out := slices.Clone(cands)
	slices.Reverse(out)
	return out
}

// scoreThenRegistration orders by score, highest first, keeping
// registration order among equal scores.
func scoreThenRegistration(cands []candidate) []candidate {
	out := slices.Clone(cands)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	return out
}

// scoreThenRecent orders by score, highest first, most recently registered
// first among equal scores.
func scoreThenRecent(cands []candidate) []candidate {
	out := slices.Clone(cands)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].reg.seq > out[j].reg.seq
	})
	return out
}
