package lsp

import "github.com/dshills/featurehost/internal/feature"

// Language servers count characters in UTF-16 code units while documents
// count runes. columns converts between the two for one document.
type columns struct {
	doc feature.Document
}

// toWire converts a rune position in the document to a UTF-16 position.
func (c columns) toWire(pos feature.Position) feature.Position {
	return feature.Position{
		Line:      pos.Line,
		Character: runeToUTF16Offset(c.doc.LineAt(pos.Line), pos.Character),
	}
}

// fromWire converts a UTF-16 position in the document to a rune position.
func (c columns) fromWire(pos feature.Position) feature.Position {
	return feature.Position{
		Line:      pos.Line,
		Character: utf16ToRuneOffset(c.doc.LineAt(pos.Line), pos.Character),
	}
}

func (c columns) rangeToWire(r feature.Range) feature.Range {
	return feature.Range{Start: c.toWire(r.Start), End: c.toWire(r.End)}
}

func (c columns) rangeFromWire(r feature.Range) feature.Range {
	return feature.Range{Start: c.fromWire(r.Start), End: c.fromWire(r.End)}
}

// owns reports whether uri names the converted document.
func (c columns) owns(uri string) bool {
	return c.doc != nil && uri == c.doc.URI()
}

func (c columns) locations(locs []feature.Location) []feature.Location {
	for i := range locs {
		if c.owns(locs[i].URI) {
			locs[i].Range = c.rangeFromWire(locs[i].Range)
		}
	}
	return locs
}

func (c columns) edits(edits []feature.TextEdit) []feature.TextEdit {
	for i := range edits {
		edits[i].Range = c.rangeFromWire(edits[i].Range)
	}
	return edits
}

func (c columns) workspaceEdit(edit *feature.WorkspaceEdit) *feature.WorkspaceEdit {
	if edit == nil {
		return nil
	}
	for uri, edits := range edit.Changes {
		if c.owns(uri) {
			edit.Changes[uri] = c.edits(edits)
		}
	}
	return edit
}

func (c columns) symbols(symbols []feature.DocumentSymbol) []feature.DocumentSymbol {
	for i := range symbols {
		symbols[i].Range = c.rangeFromWire(symbols[i].Range)
		symbols[i].SelectionRange = c.rangeFromWire(symbols[i].SelectionRange)
		symbols[i].Children = c.symbols(symbols[i].Children)
	}
	return symbols
}

func (c columns) diagnostics(diags []feature.Diagnostic) []feature.Diagnostic {
	out := make([]feature.Diagnostic, len(diags))
	for i, d := range diags {
		d.Range = c.rangeToWire(d.Range)
		out[i] = d
	}
	return out
}

// runeToUTF16Offset converts a rune offset to UTF-16 offset within a string.
// Offsets past the end map to the end.
func runeToUTF16Offset(s string, runeOff int) int {
	if runeOff <= 0 {
		return 0
	}

	runeCount := 0
	utf16Off := 0
	for _, r := range s {
		if runeCount >= runeOff {
			return utf16Off
		}
		if r >= 0x10000 {
			utf16Off += 2
		} else {
			utf16Off++
		}
		runeCount++
	}
	return utf16Off
}

// utf16ToRuneOffset converts a UTF-16 offset to rune offset within a string.
// An offset inside a surrogate pair maps to the rune after it.
func utf16ToRuneOffset(s string, utf16Off int) int {
	if utf16Off <= 0 {
		return 0
	}

	utf16Count := 0
	runeOff := 0
	for _, r := range s {
		if utf16Count >= utf16Off {
			break
		}
		if r >= 0x10000 {
			utf16Count += 2
		} else {
			utf16Count++
		}
		runeOff++
	}
	return runeOff
}
