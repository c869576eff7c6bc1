package feature

import "context"

// CodeActions returns the code actions for rng (1-based) from every matching
// provider in registration order. When cc.Only is set, actions whose kind is
// not below one of the requested kinds are filtered out. Commands are
// normalized against the command table.
func (e *Engine) CodeActions(ctx context.Context, doc Document, rng Range, cc CodeActionContext) ([]CodeAction, error) {
	in := RangeToInternal(rng)
	in = Range{Start: ClampPosition(doc, in.Start), End: ClampPosition(doc, in.End)}
	icc := CodeActionContext{
		Diagnostics: convertDiagnostics(cc.Diagnostics, RangeToInternal),
		Only:        cc.Only,
	}

	cands := e.registry.matching(KindCodeAction, doc)
	outs, err := invokeAll(ctx, e, cands, func(ctx context.Context, reg *Registration) ([]CodeAction, error) {
		return reg.Provider.(CodeActionProvider).ProvideCodeActions(ctx, doc, in, icc)
	})
	if err != nil {
		return nil, err
	}

	var result []CodeAction
	for _, o := range outs {
		if o.err != nil {
			e.dropped(o.err)
			continue
		}
		for _, action := range o.value {
			if !kindRequested(cc.Only, action.Kind) {
				continue
			}
			out := externalCodeAction(action)
			out.Command = e.commands.Normalize(action.Command)
			result = append(result, out)
		}
	}
	return result, nil
}

// QuickFixes returns the code actions of kind "quickfix" for rng (1-based).
func (e *Engine) QuickFixes(ctx context.Context, doc Document, rng Range, diagnostics []Diagnostic) ([]CodeAction, error) {
	return e.CodeActions(ctx, doc, rng, CodeActionContext{
		Diagnostics: diagnostics,
		Only:        []CodeActionKind{CodeActionQuickFix},
	})
}

// ExecuteCommand runs a command from the command table.
func (e *Engine) ExecuteCommand(ctx context.Context, cmd Command) (any, error) {
	return e.commands.Execute(ctx, cmd.ID, cmd.Arguments...)
}

func kindRequested(only []CodeActionKind, kind CodeActionKind) bool {
	if len(only) == 0 {
		return true
	}
	for _, k := range only {
		if k.Contains(kind) {
			return true
		}
	}
	return false
}
