package feature

import "context"

// Definition returns the definition locations at pos (1-based), most
// recently registered provider first. Failing providers contribute nothing.
func (e *Engine) Definition(ctx context.Context, doc Document, pos Position) ([]Location, error) {
	in := ClampPosition(doc, ToInternal(pos))
	cands := reverseOrder(e.registry.matching(KindDefinition, doc))
	outs, err := invokeAll(ctx, e, cands, func(ctx context.Context, reg *Registration) ([]Location, error) {
		return reg.Provider.(DefinitionProvider).ProvideDefinition(ctx, doc, in)
	})
	if err != nil {
		return nil, err
	}
	return e.concatLocations(outs), nil
}

// References returns reference locations at pos (1-based), most recently
// registered provider first. Failing providers contribute nothing.
func (e *Engine) References(ctx context.Context, doc Document, pos Position, rc ReferenceContext) ([]Location, error) {
	in := ClampPosition(doc, ToInternal(pos))
	cands := reverseOrder(e.registry.matching(KindReferences, doc))
	outs, err := invokeAll(ctx, e, cands, func(ctx context.Context, reg *Registration) ([]Location, error) {
		return reg.Provider.(ReferenceProvider).ProvideReferences(ctx, doc, in, rc)
	})
	if err != nil {
		return nil, err
	}
	return e.concatLocations(outs), nil
}

func (e *Engine) concatLocations(outs []outcome[[]Location]) []Location {
	var result []Location
	for _, o := range outs {
		if o.err != nil {
			e.dropped(o.err)
			continue
		}
		result = append(result, externalLocations(o.value)...)
	}
	return result
}

// Hover returns the hovers at pos (1-based), most recently registered
// provider first. A hover without a range gets the range of the word at
// pos, or an empty range at pos when there is no word.
func (e *Engine) Hover(ctx context.Context, doc Document, pos Position) ([]Hover, error) {
	in := ClampPosition(doc, ToInternal(pos))
	cands := reverseOrder(e.registry.matching(KindHover, doc))
	outs, err := invokeAll(ctx, e, cands, func(ctx context.Context, reg *Registration) (*Hover, error) {
		return reg.Provider.(HoverProvider).ProvideHover(ctx, doc, in)
	})
	if err != nil {
		return nil, err
	}

	var result []Hover
	for _, o := range outs {
		if o.err != nil {
			e.dropped(o.err)
			continue
		}
		if o.value == nil {
			continue
		}
		rng, ok := WordRangeAt(doc, in)
		if !ok {
			rng = Range{Start: in, End: in}
		}
		if o.value.Range != nil {
			rng = *o.value.Range
		}
		ext := RangeToExternal(rng)
		result = append(result, Hover{
			Contents: append([]MarkupContent(nil), o.value.Contents...),
			Range:    &ext,
		})
	}
	return result, nil
}

// DocumentHighlights returns the highlights of the first provider that
// answers with a non-empty result. Providers are tried by selector score,
// highest first, then in registration order; empty answers and failures
// fall through to the next provider.
func (e *Engine) DocumentHighlights(ctx context.Context, doc Document, pos Position) ([]DocumentHighlight, error) {
	in := ClampPosition(doc, ToInternal(pos))
	cands := scoreThenRegistration(e.registry.matching(KindDocumentHighlight, doc))
	outs, err := invokeAll(ctx, e, cands, func(ctx context.Context, reg *Registration) ([]DocumentHighlight, error) {
		return reg.Provider.(DocumentHighlightProvider).ProvideDocumentHighlights(ctx, doc, in)
	})
	if err != nil {
		return nil, err
	}

	for _, o := range outs {
		if o.err != nil {
			e.dropped(o.err)
			continue
		}
		if len(o.value) == 0 {
			continue
		}
		result := make([]DocumentHighlight, len(o.value))
		for i, h := range o.value {
			result[i] = DocumentHighlight{Range: RangeToExternal(h.Range), Kind: h.Kind}
		}
		return result, nil
	}
	return nil, nil
}
