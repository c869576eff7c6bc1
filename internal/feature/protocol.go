package feature

// Position is a line/character pair. Engine queries use 1-based positions;
// providers see 0-based positions.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Before reports whether p sorts strictly before other.
func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Character < other.Character
}

// Range is a start/end pair of positions with Start <= End.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// NewRange returns the range spanning a and b in document order.
func NewRange(a, b Position) Range {
	if b.Before(a) {
		a, b = b, a
	}
	return Range{Start: a, End: b}
}

// IsEmpty reports whether the range covers no characters.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// Contains reports whether pos lies within the range, bounds included.
func (r Range) Contains(pos Position) bool {
	return !pos.Before(r.Start) && !r.End.Before(pos)
}

// Location is a range inside a document identified by URI.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// Command references an entry of the CommandTable.
type Command struct {
	Title     string `json:"title"`
	ID        string `json:"command"`
	Arguments []any  `json:"arguments,omitempty"`
}

// TextEdit replaces the text in Range with NewText.
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// WorkspaceEdit groups text edits by document URI.
type WorkspaceEdit struct {
	Changes map[string][]TextEdit `json:"changes,omitempty"`
}

// IsEmpty reports whether the edit changes nothing.
func (w *WorkspaceEdit) IsEmpty() bool {
	if w == nil {
		return true
	}
	for _, edits := range w.Changes {
		if len(edits) > 0 {
			return false
		}
	}
	return true
}

// MarkupKind describes how MarkupContent should be rendered.
type MarkupKind string

// Markup kinds.
const (
	PlainText MarkupKind = "plaintext"
	Markdown  MarkupKind = "markdown"
)

// MarkupContent is a piece of rendered documentation.
type MarkupContent struct {
	Kind  MarkupKind `json:"kind"`
	Value string     `json:"value"`
}

// Hover is the hover information for a position.
type Hover struct {
	Contents []MarkupContent `json:"contents"`
	Range    *Range          `json:"range,omitempty"`
}

// SymbolKind classifies a symbol.
type SymbolKind int

// Symbol kinds (LSP numbering).
const (
	SymbolKindFile          SymbolKind = 1
	SymbolKindModule        SymbolKind = 2
	SymbolKindNamespace     SymbolKind = 3
	SymbolKindPackage       SymbolKind = 4
	SymbolKindClass         SymbolKind = 5
	SymbolKindMethod        SymbolKind = 6
	SymbolKindProperty      SymbolKind = 7
	SymbolKindField         SymbolKind = 8
	SymbolKindConstructor   SymbolKind = 9
	SymbolKindEnum          SymbolKind = 10
	SymbolKindInterface     SymbolKind = 11
	SymbolKindFunction      SymbolKind = 12
	SymbolKindVariable      SymbolKind = 13
	SymbolKindConstant      SymbolKind = 14
	SymbolKindString        SymbolKind = 15
	SymbolKindNumber        SymbolKind = 16
	SymbolKindBoolean       SymbolKind = 17
	SymbolKindArray         SymbolKind = 18
	SymbolKindObject        SymbolKind = 19
	SymbolKindKey           SymbolKind = 20
	SymbolKindNull          SymbolKind = 21
	SymbolKindEnumMember    SymbolKind = 22
	SymbolKindStruct        SymbolKind = 23
	SymbolKindEvent         SymbolKind = 24
	SymbolKindOperator      SymbolKind = 25
	SymbolKindTypeParameter SymbolKind = 26
)

// DocumentSymbol is a symbol of a single document, possibly nested.
type DocumentSymbol struct {
	Name           string           `json:"name"`
	Detail         string           `json:"detail,omitempty"`
	Kind           SymbolKind       `json:"kind"`
	Range          Range            `json:"range"`
	SelectionRange Range            `json:"selectionRange"`
	Children       []DocumentSymbol `json:"children,omitempty"`
}

// SymbolInformation is a workspace symbol.
type SymbolInformation struct {
	Name          string     `json:"name"`
	Kind          SymbolKind `json:"kind"`
	ContainerName string     `json:"containerName,omitempty"`
	Location      Location   `json:"location"`
}

// CodeLens is a command shown inline with source text. A lens without a
// command is unresolved; see Engine.ResolveCodeLens.
type CodeLens struct {
	Range   Range    `json:"range"`
	Command *Command `json:"command,omitempty"`
	Data    any      `json:"data,omitempty"`

	source *Registration
}

// IsResolved reports whether the lens already carries a command.
func (l CodeLens) IsResolved() bool {
	return l.Command != nil
}

// DiagnosticSeverity ranks diagnostics.
type DiagnosticSeverity int

// Diagnostic severities.
const (
	SeverityError       DiagnosticSeverity = 1
	SeverityWarning     DiagnosticSeverity = 2
	SeverityInformation DiagnosticSeverity = 3
	SeverityHint        DiagnosticSeverity = 4
)

// Diagnostic is a problem reported for a range of a document.
type Diagnostic struct {
	Range    Range              `json:"range"`
	Severity DiagnosticSeverity `json:"severity,omitempty"`
	Code     string             `json:"code,omitempty"`
	Source   string             `json:"source,omitempty"`
	Message  string             `json:"message"`
}

// CodeActionKind is a dotted hierarchical action kind.
type CodeActionKind string

// Code action kinds.
const (
	CodeActionEmpty                 CodeActionKind = ""
	CodeActionQuickFix              CodeActionKind = "quickfix"
	CodeActionRefactor              CodeActionKind = "refactor"
	CodeActionRefactorExtract       CodeActionKind = "refactor.extract"
	CodeActionRefactorInline        CodeActionKind = "refactor.inline"
	CodeActionRefactorRewrite       CodeActionKind = "refactor.rewrite"
	CodeActionSource                CodeActionKind = "source"
	CodeActionSourceOrganizeImports CodeActionKind = "source.organizeImports"
)

// Contains reports whether other equals k or is nested below it.
func (k CodeActionKind) Contains(other CodeActionKind) bool {
	if k == CodeActionEmpty {
		return true
	}
	if k == other {
		return true
	}
	return len(other) > len(k) && other[:len(k)] == k && other[len(k)] == '.'
}

// CodeActionContext carries the diagnostics and kind filter of a request.
type CodeActionContext struct {
	Diagnostics []Diagnostic     `json:"diagnostics"`
	Only        []CodeActionKind `json:"only,omitempty"`
}

// CodeAction is a quick fix or refactoring.
type CodeAction struct {
	Title       string         `json:"title"`
	Kind        CodeActionKind `json:"kind,omitempty"`
	Diagnostics []Diagnostic   `json:"diagnostics,omitempty"`
	IsPreferred bool           `json:"isPreferred,omitempty"`
	Edit        *WorkspaceEdit `json:"edit,omitempty"`
	Command     *Command       `json:"command,omitempty"`
}

// DocumentHighlightKind classifies an occurrence.
type DocumentHighlightKind int

// Highlight kinds.
const (
	HighlightText  DocumentHighlightKind = 1
	HighlightRead  DocumentHighlightKind = 2
	HighlightWrite DocumentHighlightKind = 3
)

// DocumentHighlight is an occurrence of the symbol under the cursor.
type DocumentHighlight struct {
	Range Range                 `json:"range"`
	Kind  DocumentHighlightKind `json:"kind,omitempty"`
}

// ReferenceContext controls a references query.
type ReferenceContext struct {
	IncludeDeclaration bool `json:"includeDeclaration"`
}

// PrepareRenameResult is the renameable range at a position.
type PrepareRenameResult struct {
	Range       Range  `json:"range"`
	Placeholder string `json:"placeholder,omitempty"`
}

// CompletionItemKind classifies a completion item.
type CompletionItemKind int

// Completion item kinds (LSP numbering, subset).
const (
	CompletionKindText      CompletionItemKind = 1
	CompletionKindMethod    CompletionItemKind = 2
	CompletionKindFunction  CompletionItemKind = 3
	CompletionKindField     CompletionItemKind = 5
	CompletionKindVariable  CompletionItemKind = 6
	CompletionKindClass     CompletionItemKind = 7
	CompletionKindInterface CompletionItemKind = 8
	CompletionKindModule    CompletionItemKind = 9
	CompletionKindProperty  CompletionItemKind = 10
	CompletionKindKeyword   CompletionItemKind = 14
	CompletionKindSnippet   CompletionItemKind = 15
	CompletionKindConstant  CompletionItemKind = 21
	CompletionKindStruct    CompletionItemKind = 22
)

// CompletionItem is a single completion proposal.
type CompletionItem struct {
	Label         string             `json:"label"`
	Kind          CompletionItemKind `json:"kind,omitempty"`
	Detail        string             `json:"detail,omitempty"`
	Documentation string             `json:"documentation,omitempty"`
	InsertText    string             `json:"insertText,omitempty"`
	FilterText    string             `json:"filterText,omitempty"`
	SortText      string             `json:"sortText,omitempty"`
	TextEdit      *TextEdit          `json:"textEdit,omitempty"`
	Command       *Command           `json:"command,omitempty"`
	Data          any                `json:"data,omitempty"`

	source *Registration
}

// CompletionList is what one provider returns for a completion request.
type CompletionList struct {
	Items      []CompletionItem `json:"items"`
	Incomplete bool             `json:"isIncomplete"`
}

// CompletionTriggerKind says how completion was requested.
type CompletionTriggerKind int

// Completion trigger kinds.
const (
	CompletionInvoked                         CompletionTriggerKind = 1
	CompletionTriggerCharacter                CompletionTriggerKind = 2
	CompletionTriggerForIncompleteCompletions CompletionTriggerKind = 3
)

// CompletionContext describes the completion request.
type CompletionContext struct {
	TriggerKind      CompletionTriggerKind `json:"triggerKind"`
	TriggerCharacter string                `json:"triggerCharacter,omitempty"`
}

// CompletionGroup is the contribution of one provider to a completion result.
type CompletionGroup struct {
	RegistrationID string           `json:"registration"`
	Score          int              `json:"score"`
	Items          []CompletionItem `json:"items"`
	Incomplete     bool             `json:"isIncomplete"`
}

// CompletionResult is the aggregated completion answer: one group per
// contributing provider, most specific first.
type CompletionResult struct {
	Groups []CompletionGroup `json:"groups"`
}

// Items returns every item of every group in group order.
func (r *CompletionResult) Items() []CompletionItem {
	if r == nil {
		return nil
	}
	var items []CompletionItem
	for _, g := range r.Groups {
		items = append(items, g.Items...)
	}
	return items
}

// Incomplete reports whether any group asked to be re-queried on typing.
func (r *CompletionResult) Incomplete() bool {
	if r == nil {
		return false
	}
	for _, g := range r.Groups {
		if g.Incomplete {
			return true
		}
	}
	return false
}

// SignatureHelpTriggerKind says how signature help was requested.
type SignatureHelpTriggerKind int

// Signature help trigger kinds.
const (
	SignatureHelpInvoked          SignatureHelpTriggerKind = 1
	SignatureHelpTriggerCharacter SignatureHelpTriggerKind = 2
	SignatureHelpContentChange    SignatureHelpTriggerKind = 3
)

// SignatureHelpContext describes the signature help request.
type SignatureHelpContext struct {
	TriggerKind      SignatureHelpTriggerKind `json:"triggerKind"`
	TriggerCharacter string                   `json:"triggerCharacter,omitempty"`
	IsRetrigger      bool                     `json:"isRetrigger"`
}

// ParameterInformation describes one parameter of a signature.
type ParameterInformation struct {
	Label         string `json:"label"`
	Documentation string `json:"documentation,omitempty"`
}

// SignatureInformation describes one callable signature.
type SignatureInformation struct {
	Label         string                 `json:"label"`
	Documentation string                 `json:"documentation,omitempty"`
	Parameters    []ParameterInformation `json:"parameters,omitempty"`
}

// SignatureHelp is the signature help at a position.
type SignatureHelp struct {
	Signatures      []SignatureInformation `json:"signatures"`
	ActiveSignature int                    `json:"activeSignature"`
	ActiveParameter int                    `json:"activeParameter"`
}

// FormattingOptions controls formatting providers.
type FormattingOptions struct {
	TabSize      int  `json:"tabSize"`
	InsertSpaces bool `json:"insertSpaces"`
}

// DefaultFormattingOptions returns four-space-tab options.
func DefaultFormattingOptions() FormattingOptions {
	return FormattingOptions{TabSize: 4, InsertSpaces: false}
}
