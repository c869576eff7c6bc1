package feature

import (
	"fmt"
	"strings"
)

// Kind identifies a language feature. The set is closed.
type Kind int

// Feature kinds.
const (
	KindDocumentSymbol Kind = iota + 1
	KindCodeLens
	KindDefinition
	KindHover
	KindDocumentHighlight
	KindReferences
	KindCodeAction
	KindWorkspaceSymbol
	KindRename
	KindSignatureHelp
	KindCompletion
	KindDocumentFormatting
	KindRangeFormatting
	KindOnTypeFormatting

	kindCount = iota + 1
)

var kindNames = [...]string{
	KindDocumentSymbol:     "documentSymbol",
	KindCodeLens:           "codeLens",
	KindDefinition:         "definition",
	KindHover:              "hover",
	KindDocumentHighlight:  "documentHighlight",
	KindReferences:         "references",
	KindCodeAction:         "codeAction",
	KindWorkspaceSymbol:    "workspaceSymbol",
	KindRename:             "rename",
	KindSignatureHelp:      "signatureHelp",
	KindCompletion:         "completion",
	KindDocumentFormatting: "formatting",
	KindRangeFormatting:    "rangeFormatting",
	KindOnTypeFormatting:   "onTypeFormatting",
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k >= KindDocumentSymbol && k < Kind(kindCount)
}

// String returns the camelCase feature name.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Kinds returns every feature kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount-1)
	for k := KindDocumentSymbol; k < Kind(kindCount); k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// ParseKind parses a feature name. Matching ignores case, '-' and '_', so
// "document_symbol", "documentSymbol" and "document-symbol" are equivalent.
func ParseKind(s string) (Kind, error) {
	norm := normalizeKindName(s)
	for k := KindDocumentSymbol; k < Kind(kindCount); k++ {
		if normalizeKindName(kindNames[k]) == norm {
			return k, nil
		}
	}
	switch norm {
	case "symbols":
		return KindDocumentSymbol, nil
	case "documentformatting":
		return KindDocumentFormatting, nil
	case "highlights", "occurrences":
		return KindDocumentHighlight, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

func normalizeKindName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "")
	return strings.ReplaceAll(s, "-", "")
}

// Supports reports whether provider implements the capability interface
// required by kind.
func Supports(kind Kind, provider any) bool {
	switch kind {
	case KindDocumentSymbol:
		_, ok := provider.(DocumentSymbolProvider)
		return ok
	case KindCodeLens:
		_, ok := provider.(CodeLensProvider)
		return ok
	case KindDefinition:
		_, ok := provider.(DefinitionProvider)
		return ok
	case KindHover:
		_, ok := provider.(HoverProvider)
		return ok
	case KindDocumentHighlight:
		_, ok := provider.(DocumentHighlightProvider)
		return ok
	case KindReferences:
		_, ok := provider.(ReferenceProvider)
		return ok
	case KindCodeAction:
		_, ok := provider.(CodeActionProvider)
		return ok
	case KindWorkspaceSymbol:
		_, ok := provider.(WorkspaceSymbolProvider)
		return ok
	case KindRename:
		_, ok := provider.(RenameProvider)
		return ok
	case KindSignatureHelp:
		_, ok := provider.(SignatureHelpProvider)
		return ok
	case KindCompletion:
		_, ok := provider.(CompletionProvider)
		return ok
	case KindDocumentFormatting:
		_, ok := provider.(DocumentFormattingProvider)
		return ok
	case KindRangeFormatting:
		_, ok := provider.(RangeFormattingProvider)
		return ok
	case KindOnTypeFormatting:
		_, ok := provider.(OnTypeFormattingProvider)
		return ok
	}
	return false
}
