package lsp

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/dshills/featurehost/internal/feature"
)

// Provider serves feature requests from a language server. Positions are
// converted between rune and UTF-16 columns for the requested document, and
// every document is synced before a request that names it.
type Provider struct {
	name   string
	client *Client
}

// NewProvider creates a provider for an initialized client.
func NewProvider(name string, client *Client) *Provider {
	return &Provider{name: name, client: client}
}

// Name returns the server name used in registration ids.
func (p *Provider) Name() string {
	return p.name
}

// Registrations are the engine entries created by Register.
type Registrations struct {
	Providers []*feature.Registration
	Commands  []*feature.CommandRegistration
}

// Dispose removes every entry.
func (r *Registrations) Dispose() {
	if r == nil {
		return
	}
	for _, reg := range r.Providers {
		reg.Dispose()
	}
	for _, reg := range r.Commands {
		reg.Dispose()
	}
}

// Register adds the provider to engine for every kind the server
// advertised, restricted to only when it is non-empty, and enters the
// server's commands in the engine's command table.
func (p *Provider) Register(engine *feature.Engine, sel feature.Selector, only ...feature.Kind) (*Registrations, error) {
	caps := p.client.Capabilities()
	regs := &Registrations{}

	for _, kind := range caps.Kinds() {
		if len(only) > 0 && !slices.Contains(only, kind) {
			continue
		}
		opts := []feature.RegisterOption{
			feature.WithRegistrationID(p.name + "/" + kind.String()),
		}
		if triggers := caps.Triggers(kind); len(triggers) > 0 {
			opts = append(opts, feature.WithTriggerCharacters(triggers...))
		}
		reg, err := engine.Registry().Register(kind, sel, p.forKind(kind, caps), opts...)
		if err != nil {
			regs.Dispose()
			return nil, err
		}
		regs.Providers = append(regs.Providers, reg)
	}

	for _, id := range caps.Commands {
		regs.Commands = append(regs.Commands, engine.Commands().Register(id, id,
			func(ctx context.Context, args ...any) (any, error) {
				return p.client.ExecuteCommand(ctx, id, args...)
			}))
	}
	return regs, nil
}

// forKind returns the value registered for kind. Optional resolve and
// prepare steps are only visible when the server advertised them.
func (p *Provider) forKind(kind feature.Kind, caps Capabilities) any {
	switch {
	case kind == feature.KindCodeLens && !caps.ResolveCodeLens:
		return codeLensOnly{p}
	case kind == feature.KindCompletion && !caps.ResolveCompletion:
		return completionOnly{p}
	case kind == feature.KindRename && !caps.PrepareRename:
		return renameOnly{p}
	}
	return p
}

type codeLensOnly struct{ p *Provider }

func (c codeLensOnly) ProvideCodeLenses(ctx context.Context, doc feature.Document) ([]feature.CodeLens, error) {
	return c.p.ProvideCodeLenses(ctx, doc)
}

type completionOnly struct{ p *Provider }

func (c completionOnly) ProvideCompletionItems(ctx context.Context, doc feature.Document, pos feature.Position, cc feature.CompletionContext) (*feature.CompletionList, error) {
	return c.p.ProvideCompletionItems(ctx, doc, pos, cc)
}

type renameOnly struct{ p *Provider }

func (r renameOnly) ProvideRenameEdits(ctx context.Context, doc feature.Document, pos feature.Position, newName string) (*feature.WorkspaceEdit, error) {
	return r.p.ProvideRenameEdits(ctx, doc, pos, newName)
}

// request syncs doc, when given, and sends method.
func (p *Provider) request(ctx context.Context, doc feature.Document, method string, params any) (json.RawMessage, error) {
	if doc != nil {
		if err := p.client.Sync(ctx, doc); err != nil {
			return nil, err
		}
	}
	raw, err := p.client.Request(ctx, method, params)
	if err != nil && IsCancelled(err) {
		p.client.logger.Debug("request cancelled by server", "server", p.name, "method", method)
	}
	return raw, err
}

type textDocumentIdentifier struct {
	URI string `json:"uri"`
}

type positionParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position     feature.Position       `json:"position"`
}

func (p *Provider) positionParams(doc feature.Document, pos feature.Position) positionParams {
	return positionParams{
		TextDocument: textDocumentIdentifier{URI: doc.URI()},
		Position:     columns{doc}.toWire(pos),
	}
}

func documentParams(doc feature.Document) map[string]any {
	return map[string]any{"textDocument": textDocumentIdentifier{URI: doc.URI()}}
}

// ProvideDocumentSymbols implements feature.DocumentSymbolProvider.
func (p *Provider) ProvideDocumentSymbols(ctx context.Context, doc feature.Document) ([]feature.DocumentSymbol, error) {
	raw, err := p.request(ctx, doc, "textDocument/documentSymbol", documentParams(doc))
	if err != nil {
		return nil, err
	}
	symbols, err := feature.DecodeDocumentSymbols(raw)
	if err != nil {
		return nil, err
	}
	return columns{doc}.symbols(symbols), nil
}

// ProvideCodeLenses implements feature.CodeLensProvider.
func (p *Provider) ProvideCodeLenses(ctx context.Context, doc feature.Document) ([]feature.CodeLens, error) {
	raw, err := p.request(ctx, doc, "textDocument/codeLens", documentParams(doc))
	if err != nil {
		return nil, err
	}
	lenses, err := feature.DecodeCodeLenses(raw)
	if err != nil {
		return nil, err
	}
	col := columns{doc}
	for i := range lenses {
		lenses[i].Range = col.rangeFromWire(lenses[i].Range)
		// Resolve has no document, so the lens keeps its wire range in data.
		lenses[i].Data = lensData{Range: col.rangeToWire(lenses[i].Range), Data: lenses[i].Data}
	}
	return lenses, nil
}

// lensData carries what codeLens/resolve needs back to the server.
type lensData struct {
	Range feature.Range `json:"range"`
	Data  any           `json:"data,omitempty"`
}

// ResolveCodeLens implements feature.CodeLensResolver.
func (p *Provider) ResolveCodeLens(ctx context.Context, lens feature.CodeLens) (feature.CodeLens, error) {
	wire := lens
	if d, ok := lens.Data.(lensData); ok {
		wire.Range = d.Range
		wire.Data = d.Data
	}
	raw, err := p.request(ctx, nil, "codeLens/resolve", wire)
	if err != nil {
		return lens, err
	}
	resolved, err := feature.DecodeCodeLens(raw)
	if err != nil {
		return lens, err
	}
	lens.Command = resolved.Command
	return lens, nil
}

// ProvideDefinition implements feature.DefinitionProvider.
func (p *Provider) ProvideDefinition(ctx context.Context, doc feature.Document, pos feature.Position) ([]feature.Location, error) {
	raw, err := p.request(ctx, doc, "textDocument/definition", p.positionParams(doc, pos))
	if err != nil {
		return nil, err
	}
	locs, err := feature.DecodeLocations(raw)
	return columns{doc}.locations(locs), err
}

// ProvideHover implements feature.HoverProvider.
func (p *Provider) ProvideHover(ctx context.Context, doc feature.Document, pos feature.Position) (*feature.Hover, error) {
	raw, err := p.request(ctx, doc, "textDocument/hover", p.positionParams(doc, pos))
	if err != nil {
		return nil, err
	}
	hover, err := feature.DecodeHover(raw)
	if err != nil || hover == nil || hover.Range == nil {
		return hover, err
	}
	rng := columns{doc}.rangeFromWire(*hover.Range)
	hover.Range = &rng
	return hover, nil
}

// ProvideDocumentHighlights implements feature.DocumentHighlightProvider.
func (p *Provider) ProvideDocumentHighlights(ctx context.Context, doc feature.Document, pos feature.Position) ([]feature.DocumentHighlight, error) {
	raw, err := p.request(ctx, doc, "textDocument/documentHighlight", p.positionParams(doc, pos))
	if err != nil {
		return nil, err
	}
	highlights, err := feature.DecodeHighlights(raw)
	if err != nil {
		return nil, err
	}
	col := columns{doc}
	for i := range highlights {
		highlights[i].Range = col.rangeFromWire(highlights[i].Range)
	}
	return highlights, nil
}

// ProvideReferences implements feature.ReferenceProvider.
func (p *Provider) ProvideReferences(ctx context.Context, doc feature.Document, pos feature.Position, rc feature.ReferenceContext) ([]feature.Location, error) {
	params := struct {
		positionParams
		Context feature.ReferenceContext `json:"context"`
	}{p.positionParams(doc, pos), rc}

	raw, err := p.request(ctx, doc, "textDocument/references", params)
	if err != nil {
		return nil, err
	}
	locs, err := feature.DecodeLocations(raw)
	return columns{doc}.locations(locs), err
}

// ProvideCodeActions implements feature.CodeActionProvider.
func (p *Provider) ProvideCodeActions(ctx context.Context, doc feature.Document, rng feature.Range, cc feature.CodeActionContext) ([]feature.CodeAction, error) {
	col := columns{doc}
	wireContext := cc
	wireContext.Diagnostics = col.diagnostics(cc.Diagnostics)
	if wireContext.Diagnostics == nil {
		wireContext.Diagnostics = []feature.Diagnostic{}
	}

	raw, err := p.request(ctx, doc, "textDocument/codeAction", map[string]any{
		"textDocument": textDocumentIdentifier{URI: doc.URI()},
		"range":        col.rangeToWire(rng),
		"context":      wireContext,
	})
	if err != nil {
		return nil, err
	}
	actions, err := feature.DecodeCodeActions(raw)
	if err != nil {
		return nil, err
	}
	for i := range actions {
		actions[i].Edit = col.workspaceEdit(actions[i].Edit)
	}
	return actions, nil
}

// ProvideWorkspaceSymbols implements feature.WorkspaceSymbolProvider.
func (p *Provider) ProvideWorkspaceSymbols(ctx context.Context, query string) ([]feature.SymbolInformation, error) {
	raw, err := p.request(ctx, nil, "workspace/symbol", map[string]any{"query": query})
	if err != nil {
		return nil, err
	}
	return feature.DecodeWorkspaceSymbols(raw)
}

// ProvideRenameEdits implements feature.RenameProvider.
func (p *Provider) ProvideRenameEdits(ctx context.Context, doc feature.Document, pos feature.Position, newName string) (*feature.WorkspaceEdit, error) {
	params := struct {
		positionParams
		NewName string `json:"newName"`
	}{p.positionParams(doc, pos), newName}

	raw, err := p.request(ctx, doc, "textDocument/rename", params)
	if err != nil {
		return nil, err
	}
	edit, err := feature.DecodeWorkspaceEdit(raw)
	if err != nil {
		return nil, err
	}
	return columns{doc}.workspaceEdit(edit), nil
}

// PrepareRename implements feature.RenamePreparer.
func (p *Provider) PrepareRename(ctx context.Context, doc feature.Document, pos feature.Position) (*feature.PrepareRenameResult, error) {
	raw, err := p.request(ctx, doc, "textDocument/prepareRename", p.positionParams(doc, pos))
	if err != nil {
		return nil, err
	}
	res, err := feature.DecodePrepareRename(raw)
	if err != nil || res == nil {
		return nil, err
	}
	res.Range = columns{doc}.rangeFromWire(res.Range)
	return res, nil
}

// ProvideSignatureHelp implements feature.SignatureHelpProvider.
func (p *Provider) ProvideSignatureHelp(ctx context.Context, doc feature.Document, pos feature.Position, sc feature.SignatureHelpContext) (*feature.SignatureHelp, error) {
	params := struct {
		positionParams
		Context feature.SignatureHelpContext `json:"context"`
	}{p.positionParams(doc, pos), sc}

	raw, err := p.request(ctx, doc, "textDocument/signatureHelp", params)
	if err != nil {
		return nil, err
	}
	return feature.DecodeSignatureHelp(raw)
}

// ProvideCompletionItems implements feature.CompletionProvider.
func (p *Provider) ProvideCompletionItems(ctx context.Context, doc feature.Document, pos feature.Position, cc feature.CompletionContext) (*feature.CompletionList, error) {
	params := struct {
		positionParams
		Context feature.CompletionContext `json:"context"`
	}{p.positionParams(doc, pos), cc}

	raw, err := p.request(ctx, doc, "textDocument/completion", params)
	if err != nil {
		return nil, err
	}
	list, err := feature.DecodeCompletion(raw)
	if err != nil || list == nil {
		return nil, err
	}
	col := columns{doc}
	for i := range list.Items {
		if te := list.Items[i].TextEdit; te != nil {
			edit := feature.TextEdit{Range: col.rangeFromWire(te.Range), NewText: te.NewText}
			list.Items[i].TextEdit = &edit
		}
	}
	return list, nil
}

// ResolveCompletionItem implements feature.CompletionItemResolver. The
// item's text edit is kept as it was.
func (p *Provider) ResolveCompletionItem(ctx context.Context, item feature.CompletionItem) (feature.CompletionItem, error) {
	wire := item
	wire.TextEdit = nil
	raw, err := p.request(ctx, nil, "completionItem/resolve", wire)
	if err != nil {
		return item, err
	}
	resolved, err := feature.DecodeCompletionItem(raw)
	if err != nil {
		return item, err
	}
	resolved.TextEdit = item.TextEdit
	return resolved, nil
}

// ProvideDocumentFormattingEdits implements feature.DocumentFormattingProvider.
func (p *Provider) ProvideDocumentFormattingEdits(ctx context.Context, doc feature.Document, opts feature.FormattingOptions) ([]feature.TextEdit, error) {
	raw, err := p.request(ctx, doc, "textDocument/formatting", map[string]any{
		"textDocument": textDocumentIdentifier{URI: doc.URI()},
		"options":      opts,
	})
	return p.edits(doc, raw, err)
}

// ProvideDocumentRangeFormattingEdits implements feature.RangeFormattingProvider.
func (p *Provider) ProvideDocumentRangeFormattingEdits(ctx context.Context, doc feature.Document, rng feature.Range, opts feature.FormattingOptions) ([]feature.TextEdit, error) {
	raw, err := p.request(ctx, doc, "textDocument/rangeFormatting", map[string]any{
		"textDocument": textDocumentIdentifier{URI: doc.URI()},
		"range":        columns{doc}.rangeToWire(rng),
		"options":      opts,
	})
	return p.edits(doc, raw, err)
}

// ProvideOnTypeFormattingEdits implements feature.OnTypeFormattingProvider.
func (p *Provider) ProvideOnTypeFormattingEdits(ctx context.Context, doc feature.Document, pos feature.Position, ch string, opts feature.FormattingOptions) ([]feature.TextEdit, error) {
	raw, err := p.request(ctx, doc, "textDocument/onTypeFormatting", map[string]any{
		"textDocument": textDocumentIdentifier{URI: doc.URI()},
		"position":     columns{doc}.toWire(pos),
		"ch":           ch,
		"options":      opts,
	})
	return p.edits(doc, raw, err)
}

func (p *Provider) edits(doc feature.Document, raw json.RawMessage, err error) ([]feature.TextEdit, error) {
	if err != nil {
		return nil, err
	}
	edits, err := feature.DecodeTextEdits(raw)
	if err != nil {
		return nil, err
	}
	return columns{doc}.edits(edits), nil
}

var (
	_ feature.DocumentSymbolProvider     = (*Provider)(nil)
	_ feature.CodeLensResolver           = (*Provider)(nil)
	_ feature.RenamePreparer             = (*Provider)(nil)
	_ feature.CompletionItemResolver     = (*Provider)(nil)
	_ feature.DocumentFormattingProvider = (*Provider)(nil)
	_ feature.RangeFormattingProvider    = (*Provider)(nil)
	_ feature.OnTypeFormattingProvider   = (*Provider)(nil)
	_ feature.WorkspaceSymbolProvider    = (*Provider)(nil)
	_ feature.CodeActionProvider         = (*Provider)(nil)
	_ feature.SignatureHelpProvider      = (*Provider)(nil)

	_ feature.CodeLensProvider   = codeLensOnly{}
	_ feature.CompletionProvider = completionOnly{}
	_ feature.RenameProvider     = renameOnly{}
)
