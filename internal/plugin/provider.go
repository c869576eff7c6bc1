package plugin

import (
	"context"

	"github.com/dshills/featurehost/internal/feature"
)

// providerFunctions names the script function serving each kind.
var providerFunctions = map[feature.Kind]string{
	feature.KindDocumentSymbol:     "provide_document_symbols",
	feature.KindCodeLens:           "provide_code_lenses",
	feature.KindDefinition:         "provide_definition",
	feature.KindHover:              "provide_hover",
	feature.KindDocumentHighlight:  "provide_document_highlights",
	feature.KindReferences:         "provide_references",
	feature.KindCodeAction:         "provide_code_actions",
	feature.KindWorkspaceSymbol:    "provide_workspace_symbols",
	feature.KindRename:             "provide_rename_edits",
	feature.KindSignatureHelp:      "provide_signature_help",
	feature.KindCompletion:         "provide_completion_items",
	feature.KindDocumentFormatting: "provide_document_formatting_edits",
	feature.KindRangeFormatting:    "provide_document_range_formatting_edits",
	feature.KindOnTypeFormatting:   "provide_on_type_formatting_edits",
}

// Optional script functions.
const (
	resolveCodeLensFunction       = "resolve_code_lens"
	resolveCompletionItemFunction = "resolve_completion_item"
	prepareRenameFunction         = "prepare_rename"
)

// ProviderFunction returns the script function that serves kind.
func ProviderFunction(kind feature.Kind) string {
	return providerFunctions[kind]
}

// provide calls a script function and normalizes what it returns.
func provide[T any](ctx context.Context, h *Host, fn string, decode func([]byte) (T, error), args ...any) (T, error) {
	var zero T
	result, err := h.call(ctx, fn, args...)
	if err != nil {
		return zero, err
	}
	raw, err := feature.FromValue(result)
	if err != nil {
		return zero, err
	}
	return decode(raw)
}

// ProvideDocumentSymbols implements feature.DocumentSymbolProvider.
func (h *Host) ProvideDocumentSymbols(ctx context.Context, doc feature.Document) ([]feature.DocumentSymbol, error) {
	return provide(ctx, h, providerFunctions[feature.KindDocumentSymbol], feature.DecodeDocumentSymbols, documentValue{doc})
}

// ProvideCodeLenses implements feature.CodeLensProvider.
func (h *Host) ProvideCodeLenses(ctx context.Context, doc feature.Document) ([]feature.CodeLens, error) {
	return provide(ctx, h, providerFunctions[feature.KindCodeLens], feature.DecodeCodeLenses, documentValue{doc})
}

// ResolveCodeLens implements feature.CodeLensResolver. Without a
// resolve_code_lens function the lens is returned unchanged.
func (h *Host) ResolveCodeLens(ctx context.Context, lens feature.CodeLens) (feature.CodeLens, error) {
	if !h.has(resolveCodeLensFunction) {
		return lens, nil
	}
	return provide(ctx, h, resolveCodeLensFunction, feature.DecodeCodeLens, lens)
}

// ProvideDefinition implements feature.DefinitionProvider.
func (h *Host) ProvideDefinition(ctx context.Context, doc feature.Document, pos feature.Position) ([]feature.Location, error) {
	return provide(ctx, h, providerFunctions[feature.KindDefinition], feature.DecodeLocations, documentValue{doc}, pos)
}

// ProvideHover implements feature.HoverProvider.
func (h *Host) ProvideHover(ctx context.Context, doc feature.Document, pos feature.Position) (*feature.Hover, error) {
	return provide(ctx, h, providerFunctions[feature.KindHover], feature.DecodeHover, documentValue{doc}, pos)
}

// ProvideDocumentHighlights implements feature.DocumentHighlightProvider.
func (h *Host) ProvideDocumentHighlights(ctx context.Context, doc feature.Document, pos feature.Position) ([]feature.DocumentHighlight, error) {
	return provide(ctx, h, providerFunctions[feature.KindDocumentHighlight], feature.DecodeHighlights, documentValue{doc}, pos)
}

// ProvideReferences implements feature.ReferenceProvider.
func (h *Host) ProvideReferences(ctx context.Context, doc feature.Document, pos feature.Position, rc feature.ReferenceContext) ([]feature.Location, error) {
	return provide(ctx, h, providerFunctions[feature.KindReferences], feature.DecodeLocations, documentValue{doc}, pos, rc)
}

// ProvideCodeActions implements feature.CodeActionProvider.
func (h *Host) ProvideCodeActions(ctx context.Context, doc feature.Document, rng feature.Range, cc feature.CodeActionContext) ([]feature.CodeAction, error) {
	return provide(ctx, h, providerFunctions[feature.KindCodeAction], feature.DecodeCodeActions, documentValue{doc}, rng, cc)
}

// ProvideWorkspaceSymbols implements feature.WorkspaceSymbolProvider.
func (h *Host) ProvideWorkspaceSymbols(ctx context.Context, query string) ([]feature.SymbolInformation, error) {
	return provide(ctx, h, providerFunctions[feature.KindWorkspaceSymbol], feature.DecodeWorkspaceSymbols, query)
}

// ProvideRenameEdits implements feature.RenameProvider.
func (h *Host) ProvideRenameEdits(ctx context.Context, doc feature.Document, pos feature.Position, newName string) (*feature.WorkspaceEdit, error) {
	return provide(ctx, h, providerFunctions[feature.KindRename], feature.DecodeWorkspaceEdit, documentValue{doc}, pos, newName)
}

// PrepareRename implements feature.RenamePreparer. Without a
// prepare_rename function there is nothing to report.
func (h *Host) PrepareRename(ctx context.Context, doc feature.Document, pos feature.Position) (*feature.PrepareRenameResult, error) {
	if !h.has(prepareRenameFunction) {
		return nil, nil
	}
	return provide(ctx, h, prepareRenameFunction, feature.DecodePrepareRename, documentValue{doc}, pos)
}

// ProvideSignatureHelp implements feature.SignatureHelpProvider.
func (h *Host) ProvideSignatureHelp(ctx context.Context, doc feature.Document, pos feature.Position, sc feature.SignatureHelpContext) (*feature.SignatureHelp, error) {
	return provide(ctx, h, providerFunctions[feature.KindSignatureHelp], feature.DecodeSignatureHelp, documentValue{doc}, pos, sc)
}

// ProvideCompletionItems implements feature.CompletionProvider.
func (h *Host) ProvideCompletionItems(ctx context.Context, doc feature.Document, pos feature.Position, cc feature.CompletionContext) (*feature.CompletionList, error) {
	return provide(ctx, h, providerFunctions[feature.KindCompletion], feature.DecodeCompletion, documentValue{doc}, pos, cc)
}

// ResolveCompletionItem implements feature.CompletionItemResolver.
func (h *Host) ResolveCompletionItem(ctx context.Context, item feature.CompletionItem) (feature.CompletionItem, error) {
	if !h.has(resolveCompletionItemFunction) {
		return item, nil
	}
	return provide(ctx, h, resolveCompletionItemFunction, feature.DecodeCompletionItem, item)
}

// ProvideDocumentFormattingEdits implements feature.DocumentFormattingProvider.
func (h *Host) ProvideDocumentFormattingEdits(ctx context.Context, doc feature.Document, opts feature.FormattingOptions) ([]feature.TextEdit, error) {
	return provide(ctx, h, providerFunctions[feature.KindDocumentFormatting], feature.DecodeTextEdits, documentValue{doc}, opts)
}

// ProvideDocumentRangeFormattingEdits implements feature.RangeFormattingProvider.
func (h *Host) ProvideDocumentRangeFormattingEdits(ctx context.Context, doc feature.Document, rng feature.Range, opts feature.FormattingOptions) ([]feature.TextEdit, error) {
	return provide(ctx, h, providerFunctions[feature.KindRangeFormatting], feature.DecodeTextEdits, documentValue{doc}, rng, opts)
}

// ProvideOnTypeFormattingEdits implements feature.OnTypeFormattingProvider.
func (h *Host) ProvideOnTypeFormattingEdits(ctx context.Context, doc feature.Document, pos feature.Position, ch string, opts feature.FormattingOptions) ([]feature.TextEdit, error) {
	return provide(ctx, h, providerFunctions[feature.KindOnTypeFormatting], feature.DecodeTextEdits, documentValue{doc}, pos, ch, opts)
}

var (
	_ feature.DocumentSymbolProvider     = (*Host)(nil)
	_ feature.CodeLensResolver           = (*Host)(nil)
	_ feature.RenamePreparer             = (*Host)(nil)
	_ feature.CompletionItemResolver     = (*Host)(nil)
	_ feature.OnTypeFormattingProvider   = (*Host)(nil)
	_ feature.RangeFormattingProvider    = (*Host)(nil)
	_ feature.DocumentFormattingProvider = (*Host)(nil)
)
