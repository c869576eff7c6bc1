package feature

import (
	"unicode"
	"unicode/utf8"
)

// ToInternal converts a 1-based position to the 0-based form providers use.
// Components below 1 clamp to 0.
func ToInternal(pos Position) Position {
	return Position{
		Line:      max(pos.Line-1, 0),
		Character: max(pos.Character-1, 0),
	}
}

// ToExternal converts a 0-based provider position to the 1-based form
// returned by the engine.
func ToExternal(pos Position) Position {
	return Position{
		Line:      max(pos.Line, 0) + 1,
		Character: max(pos.Character, 0) + 1,
	}
}

// RangeToInternal converts a 1-based range to 0-based.
func RangeToInternal(r Range) Range {
	return NewRange(ToInternal(r.Start), ToInternal(r.End))
}

// RangeToExternal converts a 0-based range to 1-based.
func RangeToExternal(r Range) Range {
	return NewRange(ToExternal(r.Start), ToExternal(r.End))
}

// ClampPosition limits a 0-based position to the bounds of doc.
func ClampPosition(doc Document, pos Position) Position {
	lines := doc.LineCount()
	if lines <= 0 {
		return Position{}
	}
	if pos.Line < 0 {
		return Position{}
	}
	if pos.Line >= lines {
		last := lines - 1
		return Position{Line: last, Character: utf8.RuneCountInString(doc.LineAt(last))}
	}
	width := utf8.RuneCountInString(doc.LineAt(pos.Line))
	return Position{Line: pos.Line, Character: min(max(pos.Character, 0), width)}
}

// WordRangeAt returns the 0-based range of the word touching pos. A cursor
// right after the last character of a word still selects that word.
func WordRangeAt(doc Document, pos Position) (Range, bool) {
	pos = ClampPosition(doc, pos)
	runes := []rune(doc.LineAt(pos.Line))

	start := pos.Character
	if start >= len(runes) || !isWordChar(runes[start]) {
		if start == 0 || !isWordChar(runes[start-1]) {
			return Range{}, false
		}
		start--
	}

	end := start
	for start > 0 && isWordChar(runes[start-1]) {
		start--
	}
	for end < len(runes) && isWordChar(runes[end]) {
		end++
	}

	return Range{
		Start: Position{Line: pos.Line, Character: start},
		End:   Position{Line: pos.Line, Character: end},
	}, true
}

// WordAt returns the text of the word touching pos, or "".
func WordAt(doc Document, pos Position) string {
	r, ok := WordRangeAt(doc, pos)
	if !ok {
		return ""
	}
	runes := []rune(doc.LineAt(r.Start.Line))
	return string(runes[r.Start.Character:r.End.Character])
}

// isWordChar returns true if the rune is a word character.
func isWordChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// ByteOffsetToPosition converts a byte offset in content to a 0-based
// position. Offsets past the end clamp to the end of the content.
func ByteOffsetToPosition(content string, offset int) Position {
	if offset <= 0 {
		return Position{}
	}
	if offset > len(content) {
		offset = len(content)
	}

	line, lineStart := 0, 0
	for i := 0; i < offset; i++ {
		if content[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	return Position{Line: line, Character: utf8.RuneCountInString(content[lineStart:offset])}
}

// --- result conversion to external coordinates ---

func externalLocations(locs []Location) []Location {
	if len(locs) == 0 {
		return nil
	}
	out := make([]Location, len(locs))
	for i, loc := range locs {
		out[i] = Location{URI: loc.URI, Range: RangeToExternal(loc.Range)}
	}
	return out
}

func externalSymbol(sym DocumentSymbol) DocumentSymbol {
	out := sym
	out.Range = RangeToExternal(sym.Range)
	out.SelectionRange = RangeToExternal(sym.SelectionRange)
	if len(sym.Children) > 0 {
		out.Children = make([]DocumentSymbol, len(sym.Children))
		for i, child := range sym.Children {
			out.Children[i] = externalSymbol(child)
		}
	}
	return out
}

func externalTextEdits(edits []TextEdit) []TextEdit {
	if len(edits) == 0 {
		return nil
	}
	out := make([]TextEdit, len(edits))
	for i, e := range edits {
		out[i] = TextEdit{Range: RangeToExternal(e.Range), NewText: e.NewText}
	}
	return out
}

func externalWorkspaceEdit(edit *WorkspaceEdit) *WorkspaceEdit {
	if edit == nil {
		return nil
	}
	out := &WorkspaceEdit{Changes: make(map[string][]TextEdit, len(edit.Changes))}
	for uri, edits := range edit.Changes {
		out.Changes[uri] = externalTextEdits(edits)
	}
	return out
}

func convertDiagnostics(diags []Diagnostic, conv func(Range) Range) []Diagnostic {
	if len(diags) == 0 {
		return nil
	}
	out := make([]Diagnostic, len(diags))
	for i, d := range diags {
		out[i] = d
		out[i].Range = conv(d.Range)
	}
	return out
}

func externalCodeAction(action CodeAction) CodeAction {
	out := action
	out.Diagnostics = convertDiagnostics(action.Diagnostics, RangeToExternal)
	out.Edit = externalWorkspaceEdit(action.Edit)
	return out
}

func externalCompletionItem(item CompletionItem) CompletionItem {
	out := item
	if item.TextEdit != nil {
		out.TextEdit = &TextEdit{Range: RangeToExternal(item.TextEdit.Range), NewText: item.TextEdit.NewText}
	}
	return out
}

func internalCompletionItem(item CompletionItem) CompletionItem {
	out := item
	if item.TextEdit != nil {
		out.TextEdit = &TextEdit{Range: RangeToInternal(item.TextEdit.Range), NewText: item.TextEdit.NewText}
	}
	return out
}
