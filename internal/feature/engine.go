package feature

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Engine answers feature queries by aggregating registered providers.
//
// Engine is safe for concurrent use.
type Engine struct {
	registry *Registry
	commands *CommandTable
	logger   *slog.Logger

	providerTimeout time.Duration
	maxConcurrency  int
	cache           *CompletionCache
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry uses an existing registry.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithCommandTable uses an existing command table.
func WithCommandTable(t *CommandTable) Option {
	return func(e *Engine) {
		if t != nil {
			e.commands = t
		}
	}
}

// WithLogger sets the logger used for dropped provider faults.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithProviderTimeout bounds every single provider invocation. Zero means
// no bound beyond the query context.
func WithProviderTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.providerTimeout = d
	}
}

// WithMaxConcurrency limits how many providers of one query run at once.
// Zero or negative means unlimited.
func WithMaxConcurrency(n int) Option {
	return func(e *Engine) {
		e.maxConcurrency = n
	}
}

// WithCompletionCache enables caching of complete completion results.
func WithCompletionCache(c *CompletionCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// NewEngine creates an engine with an empty registry and command table.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		registry: NewRegistry(),
		commands: NewCommandTable(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the provider registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Commands returns the command table.
func (e *Engine) Commands() *CommandTable {
	return e.commands
}

// Has reports whether any provider of kind matches doc.
func (e *Engine) Has(kind Kind, doc Document) bool {
	if kind == KindWorkspaceSymbol {
		return e.registry.Len(kind) > 0
	}
	return len(e.registry.matching(kind, doc)) > 0
}

// Require returns ErrNoProvider when no provider of kind matches doc.
func (e *Engine) Require(kind Kind, doc Document) error {
	if !e.Has(kind, doc) {
		return fmt.Errorf("%w: %s", ErrNoProvider, kind)
	}
	return nil
}

// outcome is the result of one provider invocation.
type outcome[T any] struct {
	reg   *Registration
	score int
	value T
	err   error
}

// invoke runs one provider call with panic recovery and the provider
// timeout. A provider that ignores its context does not hold up the caller:
// invoke returns once the context is done and leaves the call behind.
func invoke[T any](ctx context.Context, e *Engine, reg *Registration, call func(context.Context) (T, error)) (T, error) {
	var zero T
	if e.providerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.providerTimeout)
		defer cancel()
	}

	done := make(chan outcome[T], 1)
	go func() {
		var o outcome[T]
		defer func() {
			if r := recover(); r != nil {
				o = outcome[T]{err: fmt.Errorf("%w: %v", ErrProviderPanic, r)}
			}
			done <- o
		}()
		o.value, o.err = call(ctx)
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return zero, &ProviderError{Kind: reg.Kind, RegistrationID: reg.ID, Err: o.err}
		}
		return o.value, nil
	case <-ctx.Done():
		return zero, &ProviderError{Kind: reg.Kind, RegistrationID: reg.ID, Err: ctx.Err()}
	}
}

// invokeAll runs call for every candidate concurrently and returns the
// outcomes in candidate order. When ctx is done before every provider has
// answered, it returns ErrCancelled and no outcomes.
func invokeAll[T any](ctx context.Context, e *Engine, cands []candidate, call func(context.Context, *Registration) (T, error)) ([]outcome[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	if len(cands) == 0 {
		return nil, nil
	}

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]outcome[T], len(cands))
	var g errgroup.Group
	if e.maxConcurrency > 0 {
		g.SetLimit(e.maxConcurrency)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i, c := range cands {
			g.Go(func() error {
				v, err := invoke(callCtx, e, c.reg, func(ctx context.Context) (T, error) {
					return call(ctx, c.reg)
				})
				results[i] = outcome[T]{reg: c.reg, score: c.score, value: v, err: err}
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, cancelled(ctx.Err())
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	return results, nil
}

// firstOf runs call on cands one at a time, in order, stopping at the first
// candidate for which accept returns true or which fails. A failure is
// returned as is. Context errors surface as ErrCancelled.
func firstOf[T any](ctx context.Context, e *Engine, cands []candidate, call func(context.Context, *Registration) (T, error), accept func(T) bool) (T, *Registration, error) {
	var zero T
	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			return zero, nil, cancelled(err)
		}
		v, err := invoke(ctx, e, c.reg, func(ctx context.Context) (T, error) {
			return call(ctx, c.reg)
		})
		if cerr := ctx.Err(); cerr != nil {
			return zero, nil, cancelled(cerr)
		}
		if err != nil {
			return zero, c.reg, err
		}
		if accept(v) {
			return v, c.reg, nil
		}
	}
	return zero, nil, nil
}

// dropped logs a provider fault that is contained rather than returned.
func (e *Engine) dropped(err error) {
	var perr *ProviderError
	if errors.As(err, &perr) {
		e.logger.Warn("provider failed",
			"kind", perr.Kind.String(),
			"registration", perr.RegistrationID,
			"error", perr.Err)
		return
	}
	e.logger.Warn("provider failed", "error", err)
}

// register is the shared body of the typed Register*Provider helpers. It
// returns nil for a nil provider or a zero selector; Dispose on nil is safe.
func (e *Engine) register(kind Kind, sel Selector, provider any, opts []RegisterOption) *Registration {
	reg, err := e.registry.Register(kind, sel, provider, opts...)
	if err != nil {
		e.logger.Error("registration rejected", "kind", kind.String(), "selector", sel.String(), "error", err)
		return nil
	}
	e.logger.Debug("provider registered", "kind", kind.String(), "selector", sel.String(), "registration", reg.ID)
	return reg
}

// RegisterDocumentSymbolProvider registers p for document symbols.
func (e *Engine) RegisterDocumentSymbolProvider(sel Selector, p DocumentSymbolProvider, opts ...RegisterOption) *Registration {
	return e.register(KindDocumentSymbol, sel, p, opts)
}

// RegisterCodeLensProvider registers p for code lenses.
func (e *Engine) RegisterCodeLensProvider(sel Selector, p CodeLensProvider, opts ...RegisterOption) *Registration {
	return e.register(KindCodeLens, sel, p, opts)
}

// RegisterDefinitionProvider registers p for go-to-definition.
func (e *Engine) RegisterDefinitionProvider(sel Selector, p DefinitionProvider, opts ...RegisterOption) *Registration {
	return e.register(KindDefinition, sel, p, opts)
}

// RegisterHoverProvider registers p for hovers.
func (e *Engine) RegisterHoverProvider(sel Selector, p HoverProvider, opts ...RegisterOption) *Registration {
	return e.register(KindHover, sel, p, opts)
}

// RegisterDocumentHighlightProvider registers p for occurrence highlights.
func (e *Engine) RegisterDocumentHighlightProvider(sel Selector, p DocumentHighlightProvider, opts ...RegisterOption) *Registration {
	return e.register(KindDocumentHighlight, sel, p, opts)
}

// RegisterReferenceProvider registers p for find-references.
func (e *Engine) RegisterReferenceProvider(sel Selector, p ReferenceProvider, opts ...RegisterOption) *Registration {
	return e.register(KindReferences, sel, p, opts)
}

// RegisterCodeActionProvider registers p for code actions and quick fixes.
func (e *Engine) RegisterCodeActionProvider(sel Selector, p CodeActionProvider, opts ...RegisterOption) *Registration {
	return e.register(KindCodeAction, sel, p, opts)
}

// RegisterWorkspaceSymbolProvider registers p for workspace symbol search.
// The selector is kept for bookkeeping; workspace queries ignore it.
func (e *Engine) RegisterWorkspaceSymbolProvider(p WorkspaceSymbolProvider, opts ...RegisterOption) *Registration {
	return e.register(KindWorkspaceSymbol, AnyDocument(), p, opts)
}

// RegisterRenameProvider registers p for rename.
func (e *Engine) RegisterRenameProvider(sel Selector, p RenameProvider, opts ...RegisterOption) *Registration {
	return e.register(KindRename, sel, p, opts)
}

// RegisterSignatureHelpProvider registers p for signature help.
func (e *Engine) RegisterSignatureHelpProvider(sel Selector, p SignatureHelpProvider, triggerChars []string, opts ...RegisterOption) *Registration {
	return e.register(KindSignatureHelp, sel, p, append([]RegisterOption{WithTriggerCharacters(triggerChars...)}, opts...))
}

// RegisterCompletionProvider registers p for completion.
func (e *Engine) RegisterCompletionProvider(sel Selector, p CompletionProvider, triggerChars []string, opts ...RegisterOption) *Registration {
	return e.register(KindCompletion, sel, p, append([]RegisterOption{WithTriggerCharacters(triggerChars...)}, opts...))
}

// RegisterDocumentFormattingProvider registers p for whole-document formatting.
func (e *Engine) RegisterDocumentFormattingProvider(sel Selector, p DocumentFormattingProvider, opts ...RegisterOption) *Registration {
	return e.register(KindDocumentFormatting, sel, p, opts)
}

// RegisterRangeFormattingProvider registers p for range formatting.
func (e *Engine) RegisterRangeFormattingProvider(sel Selector, p RangeFormattingProvider, opts ...RegisterOption) *Registration {
	return e.register(KindRangeFormatting, sel, p, opts)
}

// RegisterOnTypeFormattingProvider registers p for on-type formatting.
func (e *Engine) RegisterOnTypeFormattingProvider(sel Selector, p OnTypeFormattingProvider, triggerChars []string, opts ...RegisterOption) *Registration {
	return e.register(KindOnTypeFormatting, sel, p, append([]RegisterOption{WithTriggerCharacters(triggerChars...)}, opts...))
}
