package feature

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// The Decode functions turn the loosely shaped results of out-of-process
// providers into canonical values. Each accepts JSON and tolerates the
// shapes a provider may legitimately answer with: null, a single value or
// an array of values, and for some kinds alternative encodings. Positions
// are kept as the provider sent them (0-based).

// ErrMalformedResult is returned when a provider result has an
// unrecognized shape.
var ErrMalformedResult = errors.New("malformed provider result")

// FromValue encodes a dynamic value, such as one converted from a script,
// for use with the Decode functions.
func FromValue(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResult, err)
	}
	return raw, nil
}

func parse(raw []byte) (gjson.Result, error) {
	if len(raw) == 0 {
		return gjson.Result{}, nil
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("%w: invalid JSON", ErrMalformedResult)
	}
	return gjson.ParseBytes(raw), nil
}

// elements returns the values of a result that may be null, one value or
// an array. An empty object counts as nothing, which is how an empty
// script table encodes.
func elements(r gjson.Result) []gjson.Result {
	switch {
	case !r.Exists() || r.Type == gjson.Null:
		return nil
	case r.IsArray():
		return r.Array()
	case r.IsObject() && len(r.Map()) == 0:
		return nil
	default:
		return []gjson.Result{r}
	}
}

func isNothing(r gjson.Result) bool {
	return len(elements(r)) == 0
}

func decode(r gjson.Result, v any) error {
	if err := json.Unmarshal([]byte(r.Raw), v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResult, err)
	}
	return nil
}

// UnmarshalJSON accepts both string and numeric diagnostic codes.
func (d *Diagnostic) UnmarshalJSON(data []byte) error {
	type plain Diagnostic
	var w struct {
		plain
		Code json.RawMessage `json:"code,omitempty"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*d = Diagnostic(w.plain)
	d.Code = ""
	if len(w.Code) > 0 {
		code := gjson.ParseBytes(w.Code)
		if code.Type != gjson.Null {
			d.Code = code.String()
		}
	}
	return nil
}

// DecodeLocations accepts a Location, a LocationLink or an array of
// either. A link resolves to its target selection range.
func DecodeLocations(raw []byte) ([]Location, error) {
	r, err := parse(raw)
	if err != nil {
		return nil, err
	}
	var out []Location
	for _, el := range elements(r) {
		if target := el.Get("targetUri"); target.Exists() {
			rng := el.Get("targetSelectionRange")
			if !rng.Exists() {
				rng = el.Get("targetRange")
			}
			var loc Location
			loc.URI = target.String()
			if err := decode(rng, &loc.Range); err != nil {
				return nil, err
			}
			out = append(out, loc)
			continue
		}
		var loc Location
		if err := decode(el, &loc); err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, nil
}

// DecodeHover accepts a Hover object, or bare hover contents. Contents may
// be a string, a MarkupContent, a {language, value} marked string or an
// array of those.
func DecodeHover(raw []byte) (*Hover, error) {
	r, err := parse(raw)
	if err != nil {
		return nil, err
	}
	if isNothing(r) {
		return nil, nil
	}

	contents := r
	var h Hover
	if r.IsObject() && r.Get("contents").Exists() {
		contents = r.Get("contents")
		if rng := r.Get("range"); rng.Exists() && rng.Type != gjson.Null {
			var hr Range
			if err := decode(rng, &hr); err != nil {
				return nil, err
			}
			h.Range = &hr
		}
	}
	for _, el := range elements(contents) {
		mc, ok := markup(el)
		if !ok {
			return nil, fmt.Errorf("%w: hover contents %s", ErrMalformedResult, el.Raw)
		}
		if mc.Value != "" {
			h.Contents = append(h.Contents, mc)
		}
	}
	if len(h.Contents) == 0 {
		return nil, nil
	}
	return &h, nil
}

// markup converts one of the documentation encodings to MarkupContent.
func markup(r gjson.Result) (MarkupContent, bool) {
	switch {
	case r.Type == gjson.String:
		return MarkupContent{Kind: Markdown, Value: r.String()}, true
	case r.IsObject() && r.Get("language").Exists():
		value := "```" + r.Get("language").String() + "\n" + r.Get("value").String() + "\n```"
		return MarkupContent{Kind: Markdown, Value: value}, true
	case r.IsObject() && r.Get("value").Exists():
		kind := MarkupKind(r.Get("kind").String())
		if kind != Markdown {
			kind = PlainText
		}
		return MarkupContent{Kind: kind, Value: r.Get("value").String()}, true
	}
	return MarkupContent{}, false
}

// documentation flattens documentation that may be a string or markup.
func documentation(r gjson.Result) string {
	if mc, ok := markup(r); ok {
		return mc.Value
	}
	return ""
}

// DecodeCompletion accepts a CompletionList or a bare array of items. A
// bare array is a complete list.
func DecodeCompletion(raw []byte) (*CompletionList, error) {
	r, err := parse(raw)
	if err != nil {
		return nil, err
	}
	if !r.Exists() || r.Type == gjson.Null {
		return nil, nil
	}

	list := &CompletionList{}
	items := r
	if r.IsObject() && r.Get("items").Exists() {
		items = r.Get("items")
		list.Incomplete = r.Get("isIncomplete").Bool() || r.Get("incomplete").Bool()
	}
	for _, el := range elements(items) {
		item, err := decodeCompletionItem(el)
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
	}
	return list, nil
}

// DecodeCompletionItem decodes a single resolved completion item.
func DecodeCompletionItem(raw []byte) (CompletionItem, error) {
	r, err := parse(raw)
	if err != nil {
		return CompletionItem{}, err
	}
	if !r.IsObject() {
		return CompletionItem{}, fmt.Errorf("%w: completion item %s", ErrMalformedResult, r.Raw)
	}
	return decodeCompletionItem(r)
}

func decodeCompletionItem(r gjson.Result) (CompletionItem, error) {
	if r.Type == gjson.String {
		return CompletionItem{Label: r.String()}, nil
	}
	var item CompletionItem
	item.Label = r.Get("label").String()
	item.Kind = CompletionItemKind(r.Get("kind").Int())
	item.Detail = r.Get("detail").String()
	item.Documentation = documentation(r.Get("documentation"))
	item.InsertText = r.Get("insertText").String()
	item.FilterText = r.Get("filterText").String()
	item.SortText = r.Get("sortText").String()
	if data := r.Get("data"); data.Exists() {
		item.Data = data.Value()
	}
	if te := r.Get("textEdit"); te.IsObject() {
		rng := te.Get("range")
		if !rng.Exists() {
			rng = te.Get("insert")
		}
		var edit TextEdit
		edit.NewText = te.Get("newText").String()
		if err := decode(rng, &edit.Range); err != nil {
			return CompletionItem{}, err
		}
		item.TextEdit = &edit
	}
	if cmd := r.Get("command"); cmd.IsObject() {
		var c Command
		if err := decode(cmd, &c); err != nil {
			return CompletionItem{}, err
		}
		item.Command = &c
	}
	if item.Label == "" {
		return CompletionItem{}, fmt.Errorf("%w: completion item without label", ErrMalformedResult)
	}
	return item, nil
}

// DecodeDocumentSymbols accepts DocumentSymbols or SymbolInformation
// values. SymbolInformation becomes a flat DocumentSymbol whose ranges are
// its location range.
func DecodeDocumentSymbols(raw []byte) ([]DocumentSymbol, error) {
	r, err := parse(raw)
	if err != nil {
		return nil, err
	}
	var out []DocumentSymbol
	for _, el := range elements(r) {
		if el.Get("location").Exists() {
			var si SymbolInformation
			if err := decode(el, &si); err != nil {
				return nil, err
			}
			out = append(out, DocumentSymbol{
				Name:           si.Name,
				Detail:         si.ContainerName,
				Kind:           si.Kind,
				Range:          si.Location.Range,
				SelectionRange: si.Location.Range,
			})
			continue
		}
		var sym DocumentSymbol
		if err := decode(el, &sym); err != nil {
			return nil, err
		}
		if !el.Get("selectionRange").Exists() {
			sym.SelectionRange = sym.Range
		}
		out = append(out, sym)
	}
	return out, nil
}

// DecodeWorkspaceSymbols accepts SymbolInformation values.
func DecodeWorkspaceSymbols(raw []byte) ([]SymbolInformation, error) {
	r, err := parse(raw)
	if err != nil {
		return nil, err
	}
	var out []SymbolInformation
	for _, el := range elements(r) {
		var si SymbolInformation
		if err := decode(el, &si); err != nil {
			return nil, err
		}
		out = append(out, si)
	}
	return out, nil
}

// DecodeHighlights accepts DocumentHighlight values.
func DecodeHighlights(raw []byte) ([]DocumentHighlight, error) {
	r, err := parse(raw)
	if err != nil {
		return nil, err
	}
	var out []DocumentHighlight
	for _, el := range elements(r) {
		var h DocumentHighlight
		if err := decode(el, &h); err != nil {
			return nil, err
		}
		if h.Kind == 0 {
			h.Kind = HighlightText
		}
		out = append(out, h)
	}
	return out, nil
}

// DecodeTextEdits accepts TextEdit values.
func DecodeTextEdits(raw []byte) ([]TextEdit, error) {
	r, err := parse(raw)
	if err != nil {
		return nil, err
	}
	var out []TextEdit
	for _, el := range elements(r) {
		var te TextEdit
		if err := decode(el, &te); err != nil {
			return nil, err
		}
		out = append(out, te)
	}
	return out, nil
}

// DecodeCodeActions accepts CodeAction and bare Command values. A command
// becomes an action carrying only that command.
func DecodeCodeActions(raw []byte) ([]CodeAction, error) {
	r, err := parse(raw)
	if err != nil {
		return nil, err
	}
	var out []CodeAction
	for _, el := range elements(r) {
		if el.Get("command").Type == gjson.String {
			var cmd Command
			if err := decode(el, &cmd); err != nil {
				return nil, err
			}
			out = append(out, CodeAction{Title: cmd.Title, Command: &cmd})
			continue
		}
		var action CodeAction
		if err := decode(el, &action); err != nil {
			return nil, err
		}
		if edit := el.Get("edit"); edit.IsObject() {
			if action.Edit, err = decodeWorkspaceEdit(edit); err != nil {
				return nil, err
			}
		}
		out = append(out, action)
	}
	return out, nil
}

// DecodeCodeLenses accepts CodeLens values.
func DecodeCodeLenses(raw []byte) ([]CodeLens, error) {
	r, err := parse(raw)
	if err != nil {
		return nil, err
	}
	var out []CodeLens
	for _, el := range elements(r) {
		var lens CodeLens
		if err := decode(el, &lens); err != nil {
			return nil, err
		}
		out = append(out, lens)
	}
	return out, nil
}

// DecodeCodeLens decodes a single resolved lens.
func DecodeCodeLens(raw []byte) (CodeLens, error) {
	lenses, err := DecodeCodeLenses(raw)
	if err != nil {
		return CodeLens{}, err
	}
	if len(lenses) != 1 {
		return CodeLens{}, fmt.Errorf("%w: expected one code lens, got %d", ErrMalformedResult, len(lenses))
	}
	return lenses[0], nil
}

// DecodeWorkspaceEdit accepts an edit with "changes", "documentChanges" or
// both. File create, rename and delete operations are ignored.
func DecodeWorkspaceEdit(raw []byte) (*WorkspaceEdit, error) {
	r, err := parse(raw)
	if err != nil {
		return nil, err
	}
	if !r.IsObject() {
		if isNothing(r) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: workspace edit %s", ErrMalformedResult, r.Raw)
	}
	return decodeWorkspaceEdit(r)
}

func decodeWorkspaceEdit(r gjson.Result) (*WorkspaceEdit, error) {
	edit := &WorkspaceEdit{Changes: make(map[string][]TextEdit)}
	var ferr error
	r.Get("changes").ForEach(func(uri, edits gjson.Result) bool {
		var tes []TextEdit
		if ferr = decode(edits, &tes); ferr != nil {
			return false
		}
		edit.Changes[uri.String()] = append(edit.Changes[uri.String()], tes...)
		return true
	})
	if ferr != nil {
		return nil, ferr
	}
	for _, dc := range r.Get("documentChanges").Array() {
		if dc.Get("kind").Exists() {
			continue
		}
		uri := dc.Get("textDocument.uri").String()
		var tes []TextEdit
		if err := decode(dc.Get("edits"), &tes); err != nil {
			return nil, err
		}
		edit.Changes[uri] = append(edit.Changes[uri], tes...)
	}
	return edit, nil
}

// DecodeSignatureHelp accepts a SignatureHelp object. Parameter labels
// given as [start, end] offsets into the signature label are resolved to
// the substring.
func DecodeSignatureHelp(raw []byte) (*SignatureHelp, error) {
	r, err := parse(raw)
	if err != nil {
		return nil, err
	}
	if isNothing(r) {
		return nil, nil
	}
	if !r.IsObject() {
		return nil, fmt.Errorf("%w: signature help %s", ErrMalformedResult, r.Raw)
	}

	help := &SignatureHelp{
		ActiveSignature: int(r.Get("activeSignature").Int()),
		ActiveParameter: int(r.Get("activeParameter").Int()),
	}
	for _, s := range r.Get("signatures").Array() {
		sig := SignatureInformation{
			Label:         s.Get("label").String(),
			Documentation: documentation(s.Get("documentation")),
		}
		for _, p := range s.Get("parameters").Array() {
			label := p.Get("label")
			param := ParameterInformation{Documentation: documentation(p.Get("documentation"))}
			if label.IsArray() {
				param.Label = substring(sig.Label, label.Get("0").Int(), label.Get("1").Int())
			} else {
				param.Label = label.String()
			}
			sig.Parameters = append(sig.Parameters, param)
		}
		help.Signatures = append(help.Signatures, sig)
	}
	if len(help.Signatures) == 0 {
		return nil, nil
	}
	return help, nil
}

func substring(s string, start, end int64) string {
	runes := []rune(s)
	if start < 0 || end > int64(len(runes)) || start > end {
		return ""
	}
	return string(runes[start:end])
}

// DecodePrepareRename accepts a bare Range or a {range, placeholder}
// object. A {defaultBehavior} answer or null decodes to nil.
func DecodePrepareRename(raw []byte) (*PrepareRenameResult, error) {
	r, err := parse(raw)
	if err != nil {
		return nil, err
	}
	switch {
	case isNothing(r), r.Get("defaultBehavior").Exists():
		return nil, nil
	case r.Get("range").Exists():
		var res PrepareRenameResult
		if err := decode(r, &res); err != nil {
			return nil, err
		}
		return &res, nil
	case r.Get("start").Exists():
		var res PrepareRenameResult
		if err := decode(r, &res.Range); err != nil {
			return nil, err
		}
		return &res, nil
	}
	return nil, fmt.Errorf("%w: prepare rename %s", ErrMalformedResult, r.Raw)
}
