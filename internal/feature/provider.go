package feature

import "context"

// Providers are plain values implementing one or more of the capability
// interfaces below. Not implementing an interface means "does not support
// this query", which is different from returning no results. All positions
// and ranges a provider sees or returns are 0-based.

// DocumentSymbolProvider lists the symbols of a document.
type DocumentSymbolProvider interface {
	ProvideDocumentSymbols(ctx context.Context, doc Document) ([]DocumentSymbol, error)
}

// CodeLensProvider lists code lenses of a document.
type CodeLensProvider interface {
	ProvideCodeLenses(ctx context.Context, doc Document) ([]CodeLens, error)
}

// CodeLensResolver fills in the command of an unresolved lens.
type CodeLensResolver interface {
	ResolveCodeLens(ctx context.Context, lens CodeLens) (CodeLens, error)
}

// DefinitionProvider finds where the symbol at a position is defined.
type DefinitionProvider interface {
	ProvideDefinition(ctx context.Context, doc Document, pos Position) ([]Location, error)
}

// HoverProvider describes the symbol at a position.
type HoverProvider interface {
	ProvideHover(ctx context.Context, doc Document, pos Position) (*Hover, error)
}

// DocumentHighlightProvider finds occurrences of the symbol at a position.
type DocumentHighlightProvider interface {
	ProvideDocumentHighlights(ctx context.Context, doc Document, pos Position) ([]DocumentHighlight, error)
}

// ReferenceProvider finds references to the symbol at a position.
type ReferenceProvider interface {
	ProvideReferences(ctx context.Context, doc Document, pos Position, rc ReferenceContext) ([]Location, error)
}

// CodeActionProvider offers quick fixes and refactorings for a range.
type CodeActionProvider interface {
	ProvideCodeActions(ctx context.Context, doc Document, rng Range, cc CodeActionContext) ([]CodeAction, error)
}

// WorkspaceSymbolProvider searches symbols across the workspace.
type WorkspaceSymbolProvider interface {
	ProvideWorkspaceSymbols(ctx context.Context, query string) ([]SymbolInformation, error)
}

// RenameProvider computes the edits renaming the symbol at a position.
type RenameProvider interface {
	ProvideRenameEdits(ctx context.Context, doc Document, pos Position, newName string) (*WorkspaceEdit, error)
}

// RenamePreparer validates a rename location before the user types a name.
type RenamePreparer interface {
	PrepareRename(ctx context.Context, doc Document, pos Position) (*PrepareRenameResult, error)
}

// SignatureHelpProvider describes the call signature at a position.
type SignatureHelpProvider interface {
	ProvideSignatureHelp(ctx context.Context, doc Document, pos Position, sc SignatureHelpContext) (*SignatureHelp, error)
}

// CompletionProvider proposes completions at a position.
type CompletionProvider interface {
	ProvideCompletionItems(ctx context.Context, doc Document, pos Position, cc CompletionContext) (*CompletionList, error)
}

// CompletionItemResolver fills in expensive details of a completion item.
type CompletionItemResolver interface {
	ResolveCompletionItem(ctx context.Context, item CompletionItem) (CompletionItem, error)
}

// DocumentFormattingProvider formats a whole document.
type DocumentFormattingProvider interface {
	ProvideDocumentFormattingEdits(ctx context.Context, doc Document, opts FormattingOptions) ([]TextEdit, error)
}

// RangeFormattingProvider formats a range of a document.
type RangeFormattingProvider interface {
	ProvideDocumentRangeFormattingEdits(ctx context.Context, doc Document, rng Range, opts FormattingOptions) ([]TextEdit, error)
}

// OnTypeFormattingProvider formats after a trigger character was typed.
type OnTypeFormattingProvider interface {
	ProvideOnTypeFormattingEdits(ctx context.Context, doc Document, pos Position, ch string, opts FormattingOptions) ([]TextEdit, error)
}

// Function adapters, in the spirit of http.HandlerFunc.

// DocumentSymbolFunc adapts a function to DocumentSymbolProvider.
type DocumentSymbolFunc func(ctx context.Context, doc Document) ([]DocumentSymbol, error)

// ProvideDocumentSymbols calls f.
func (f DocumentSymbolFunc) ProvideDocumentSymbols(ctx context.Context, doc Document) ([]DocumentSymbol, error) {
	return f(ctx, doc)
}

// CodeLensFunc adapts a function to CodeLensProvider.
type CodeLensFunc func(ctx context.Context, doc Document) ([]CodeLens, error)

// ProvideCodeLenses calls f.
func (f CodeLensFunc) ProvideCodeLenses(ctx context.Context, doc Document) ([]CodeLens, error) {
	return f(ctx, doc)
}

// DefinitionFunc adapts a function to DefinitionProvider.
type DefinitionFunc func(ctx context.Context, doc Document, pos Position) ([]Location, error)

// ProvideDefinition calls f.
func (f DefinitionFunc) ProvideDefinition(ctx context.Context, doc Document, pos Position) ([]Location, error) {
	return f(ctx, doc, pos)
}

// HoverFunc adapts a function to HoverProvider.
type HoverFunc func(ctx context.Context, doc Document, pos Position) (*Hover, error)

// ProvideHover calls f.
func (f HoverFunc) ProvideHover(ctx context.Context, doc Document, pos Position) (*Hover, error) {
	return f(ctx, doc, pos)
}

// DocumentHighlightFunc adapts a function to DocumentHighlightProvider.
type DocumentHighlightFunc func(ctx context.Context, doc Document, pos Position) ([]DocumentHighlight, error)

// ProvideDocumentHighlights calls f.
func (f DocumentHighlightFunc) ProvideDocumentHighlights(ctx context.Context, doc Document, pos Position) ([]DocumentHighlight, error) {
	return f(ctx, doc, pos)
}

// ReferenceFunc adapts a function to ReferenceProvider.
type ReferenceFunc func(ctx context.Context, doc Document, pos Position, rc ReferenceContext) ([]Location, error)

// ProvideReferences calls f.
func (f ReferenceFunc) ProvideReferences(ctx context.Context, doc Document, pos Position, rc ReferenceContext) ([]Location, error) {
	return f(ctx, doc, pos, rc)
}

// CodeActionFunc adapts a function to CodeActionProvider.
type CodeActionFunc func(ctx context.Context, doc Document, rng Range, cc CodeActionContext) ([]CodeAction, error)

// ProvideCodeActions calls f.
func (f CodeActionFunc) ProvideCodeActions(ctx context.Context, doc Document, rng Range, cc CodeActionContext) ([]CodeAction, error) {
	return f(ctx, doc, rng, cc)
}

// WorkspaceSymbolFunc adapts a function to WorkspaceSymbolProvider.
type WorkspaceSymbolFunc func(ctx context.Context, query string) ([]SymbolInformation, error)

// ProvideWorkspaceSymbols calls f.
func (f WorkspaceSymbolFunc) ProvideWorkspaceSymbols(ctx context.Context, query string) ([]SymbolInformation, error) {
	return f(ctx, query)
}

// RenameFunc adapts a function to RenameProvider.
type RenameFunc func(ctx context.Context, doc Document, pos Position, newName string) (*WorkspaceEdit, error)

// ProvideRenameEdits calls f.
func (f RenameFunc) ProvideRenameEdits(ctx context.Context, doc Document, pos Position, newName string) (*WorkspaceEdit, error) {
	return f(ctx, doc, pos, newName)
}

// SignatureHelpFunc adapts a function to SignatureHelpProvider.
type SignatureHelpFunc func(ctx context.Context, doc Document, pos Position, sc SignatureHelpContext) (*SignatureHelp, error)

// ProvideSignatureHelp calls f.
func (f SignatureHelpFunc) ProvideSignatureHelp(ctx context.Context, doc Document, pos Position, sc SignatureHelpContext) (*SignatureHelp, error) {
	return f(ctx, doc, pos, sc)
}

// CompletionFunc adapts a function to CompletionProvider.
type CompletionFunc func(ctx context.Context, doc Document, pos Position, cc CompletionContext) (*CompletionList, error)

// ProvideCompletionItems calls f.
func (f CompletionFunc) ProvideCompletionItems(ctx context.Context, doc Document, pos Position, cc CompletionContext) (*CompletionList, error) {
	return f(ctx, doc, pos, cc)
}

// DocumentFormattingFunc adapts a function to DocumentFormattingProvider.
type DocumentFormattingFunc func(ctx context.Context, doc Document, opts FormattingOptions) ([]TextEdit, error)

// ProvideDocumentFormattingEdits calls f.
func (f DocumentFormattingFunc) ProvideDocumentFormattingEdits(ctx context.Context, doc Document, opts FormattingOptions) ([]TextEdit, error) {
	return f(ctx, doc, opts)
}

// RangeFormattingFunc adapts a function to RangeFormattingProvider.
type RangeFormattingFunc func(ctx context.Context, doc Document, rng Range, opts FormattingOptions) ([]TextEdit, error)

// ProvideDocumentRangeFormattingEdits calls f.
func (f RangeFormattingFunc) ProvideDocumentRangeFormattingEdits(ctx context.Context, doc Document, rng Range, opts FormattingOptions) ([]TextEdit, error) {
	return f(ctx, doc, rng, opts)
}

// OnTypeFormattingFunc adapts a function to OnTypeFormattingProvider.
type OnTypeFormattingFunc func(ctx context.Context, doc Document, pos Position, ch string, opts FormattingOptions) ([]TextEdit, error)

// ProvideOnTypeFormattingEdits calls f.
func (f OnTypeFormattingFunc) ProvideOnTypeFormattingEdits(ctx context.Context, doc Document, pos Position, ch string, opts FormattingOptions) ([]TextEdit, error) {
	return f(ctx, doc, pos, ch, opts)
}
