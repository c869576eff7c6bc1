package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/featurehost/internal/feature"
)

// query is one request to the engine, from the command line or one line
// of standard input.
type query struct {
	Feature  string           `json:"feature"`
	File     string           `json:"file"`
	Language string           `json:"language,omitempty"`
	Pos      feature.Position `json:"position"`
	End      feature.Position `json:"end"`
	NewName  string           `json:"newName,omitempty"`
	Trigger  string           `json:"trigger,omitempty"`
	Query    string           `json:"query,omitempty"`
}

// rng returns the range from Pos to End, or the empty range at Pos when
// End is unset.
func (q query) rng() feature.Range {
	if q.End.Line == 0 {
		return feature.Range{Start: q.Pos, End: q.Pos}
	}
	return feature.Range{Start: q.Pos, End: q.End}
}

// run sends q to engine and returns the aggregated answer.
func (q query) run(ctx context.Context, engine *feature.Engine, doc feature.Document) (any, error) {
	kind, err := feature.ParseKind(q.Feature)
	if err != nil {
		return nil, err
	}

	opts := feature.DefaultFormattingOptions()
	switch kind {
	case feature.KindDocumentSymbol:
		return engine.DocumentSymbols(ctx, doc)
	case feature.KindCodeLens:
		lenses, err := engine.CodeLenses(ctx, doc)
		if err != nil {
			return nil, err
		}
		for i, lens := range lenses {
			if lenses[i], err = engine.ResolveCodeLens(ctx, lens); err != nil {
				return nil, err
			}
		}
		return lenses, nil
	case feature.KindDefinition:
		return engine.Definition(ctx, doc, q.Pos)
	case feature.KindHover:
		return engine.Hover(ctx, doc, q.Pos)
	case feature.KindDocumentHighlight:
		return engine.DocumentHighlights(ctx, doc, q.Pos)
	case feature.KindReferences:
		return engine.References(ctx, doc, q.Pos, feature.ReferenceContext{IncludeDeclaration: true})
	case feature.KindCodeAction:
		return engine.CodeActions(ctx, doc, q.rng(), feature.CodeActionContext{})
	case feature.KindWorkspaceSymbol:
		return engine.WorkspaceSymbols(ctx, q.Query)
	case feature.KindRename:
		return engine.Rename(ctx, doc, q.Pos, q.NewName)
	case feature.KindSignatureHelp:
		sc := feature.SignatureHelpContext{TriggerKind: feature.SignatureHelpInvoked}
		if q.Trigger != "" {
			sc = feature.SignatureHelpContext{TriggerKind: feature.SignatureHelpTriggerCharacter, TriggerCharacter: q.Trigger}
		}
		return engine.SignatureHelp(ctx, doc, q.Pos, sc)
	case feature.KindCompletion:
		cc := feature.CompletionContext{TriggerKind: feature.CompletionInvoked}
		if q.Trigger != "" {
			cc = feature.CompletionContext{TriggerKind: feature.CompletionTriggerCharacter, TriggerCharacter: q.Trigger}
		}
		return engine.Completion(ctx, doc, q.Pos, cc)
	case feature.KindDocumentFormatting:
		return engine.FormatDocument(ctx, doc, opts)
	case feature.KindRangeFormatting:
		return engine.FormatRange(ctx, doc, q.rng(), opts)
	case feature.KindOnTypeFormatting:
		if q.Trigger == "" {
			return nil, fmt.Errorf("%s needs -trigger", kind)
		}
		return engine.FormatOnType(ctx, doc, q.Pos, q.Trigger, opts)
	}
	return nil, fmt.Errorf("unsupported feature %s", kind)
}

// extLanguages maps file extensions to language ids.
var extLanguages = map[string]string{
	".go":   "go",
	".lua":  "lua",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".rs":   "rust",
	".c":    "c",
	".h":    "c",
	".md":   "markdown",
	".json": "json",
	".toml": "toml",
	".yaml": "yaml",
	".yml":  "yaml",
	".txt":  "plaintext",
}

// languageFor guesses the language id of path from its extension.
func languageFor(path string) string {
	if lang, ok := extLanguages[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return "plaintext"
}

// fileURI returns the file URI of an absolute path.
func fileURI(path string) string {
	return "file://" + filepath.ToSlash(path)
}
