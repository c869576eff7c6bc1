package feature

import "context"

// CodeLenses concatenates the lenses of every matching provider in
// registration order. Lenses that come with a command have it normalized
// against the command table; the others can be completed with
// ResolveCodeLens.
func (e *Engine) CodeLenses(ctx context.Context, doc Document) ([]CodeLens, error) {
	cands := e.registry.matching(KindCodeLens, doc)
	outs, err := invokeAll(ctx, e, cands, func(ctx context.Context, reg *Registration) ([]CodeLens, error) {
		return reg.Provider.(CodeLensProvider).ProvideCodeLenses(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	var result []CodeLens
	for _, o := range outs {
		if o.err != nil {
			e.dropped(o.err)
			continue
		}
		for _, lens := range o.value {
			out := CodeLens{
				Range:   RangeToExternal(lens.Range),
				Command: e.commands.Normalize(lens.Command),
				Data:    lens.Data,
				source:  o.reg,
			}
			result = append(result, out)
		}
	}
	return result, nil
}

// ResolveCodeLens fills in the command of a lens returned by CodeLenses. A
// lens that already has a command is returned unchanged and its provider
// is not called again. A resolver that yields no command produces the
// missing-command placeholder. A failing resolver leaves the lens as is.
func (e *Engine) ResolveCodeLens(ctx context.Context, lens CodeLens) (CodeLens, error) {
	if lens.IsResolved() {
		return lens, nil
	}
	if err := ctx.Err(); err != nil {
		return lens, cancelled(err)
	}

	reg := lens.source
	if reg == nil || reg.Disposed() {
		return lens, nil
	}
	resolver, ok := reg.Provider.(CodeLensResolver)
	if !ok {
		return lens, nil
	}

	in := lens
	in.Range = RangeToInternal(lens.Range)
	resolved, err := invoke(ctx, e, reg, func(ctx context.Context) (CodeLens, error) {
		return resolver.ResolveCodeLens(ctx, in)
	})
	if cerr := ctx.Err(); cerr != nil {
		return lens, cancelled(cerr)
	}
	if err != nil {
		e.dropped(err)
		return lens, nil
	}

	out := lens
	if resolved.Data != nil {
		out.Data = resolved.Data
	}
	if resolved.Command == nil {
		out.Command = missingCommand()
	} else {
		out.Command = e.commands.Normalize(resolved.Command)
	}
	return out, nil
}
