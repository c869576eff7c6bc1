package feature

import "context"

// FormatDocument returns the edits of the most specific document formatter
// for doc. Among equal scores the earliest registration is used. A
// formatter failure fails the call.
func (e *Engine) FormatDocument(ctx context.Context, doc Document, opts FormattingOptions) ([]TextEdit, error) {
	cands := scoreThenRegistration(e.registry.matching(KindDocumentFormatting, doc))
	return e.formatWith(ctx, cands, func(ctx context.Context, reg *Registration) ([]TextEdit, error) {
		return reg.Provider.(DocumentFormattingProvider).ProvideDocumentFormattingEdits(ctx, doc, opts)
	})
}

// FormatRange returns formatting edits for rng (1-based). A matching range
// formatter is preferred; when there is none the most specific document
// formatter formats the whole document instead.
func (e *Engine) FormatRange(ctx context.Context, doc Document, rng Range, opts FormattingOptions) ([]TextEdit, error) {
	in := RangeToInternal(rng)
	in = Range{Start: ClampPosition(doc, in.Start), End: ClampPosition(doc, in.End)}

	if cands := scoreThenRegistration(e.registry.matching(KindRangeFormatting, doc)); len(cands) > 0 {
		return e.formatWith(ctx, cands, func(ctx context.Context, reg *Registration) ([]TextEdit, error) {
			return reg.Provider.(RangeFormattingProvider).ProvideDocumentRangeFormattingEdits(ctx, doc, in, opts)
		})
	}
	return e.FormatDocument(ctx, doc, opts)
}

// FormatOnType returns the edits of the most specific on-type formatter
// that declared ch as a trigger character, for the character just typed
// before pos (1-based).
func (e *Engine) FormatOnType(ctx context.Context, doc Document, pos Position, ch string, opts FormattingOptions) ([]TextEdit, error) {
	in := ClampPosition(doc, ToInternal(pos))

	var cands []candidate
	for _, c := range scoreThenRegistration(e.registry.matching(KindOnTypeFormatting, doc)) {
		if c.reg.acceptsTrigger(ch) {
			cands = append(cands, c)
		}
	}
	return e.formatWith(ctx, cands, func(ctx context.Context, reg *Registration) ([]TextEdit, error) {
		return reg.Provider.(OnTypeFormattingProvider).ProvideOnTypeFormattingEdits(ctx, doc, in, ch, opts)
	})
}

// formatWith asks the first candidate only.
func (e *Engine) formatWith(ctx context.Context, cands []candidate, call func(context.Context, *Registration) ([]TextEdit, error)) ([]TextEdit, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	if len(cands) == 0 {
		return nil, nil
	}
	edits, _, err := firstOf(ctx, e, cands[:1], call, func([]TextEdit) bool { return true })
	if err != nil {
		return nil, err
	}
	return externalTextEdits(edits), nil
}
