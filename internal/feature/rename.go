package feature

import (
	"context"
	"strings"
)

// Rename asks rename providers, most recently registered first and one at a
// time, for the edits renaming the symbol at pos (1-based). The first
// non-empty edit wins and later providers are not called. A provider that
// returns nothing passes the turn to the next one. A provider failure is the
// answer when it is reached, i.e. when every provider tried before it
// returned nothing; it is returned as a *ProviderError.
func (e *Engine) Rename(ctx context.Context, doc Document, pos Position, newName string) (*WorkspaceEdit, error) {
	if strings.TrimSpace(newName) == "" {
		return nil, ErrEmptyName
	}
	in := ClampPosition(doc, ToInternal(pos))
	cands := reverseOrder(e.registry.matching(KindRename, doc))
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	edit, _, err := firstOf(ctx, e, cands,
		func(ctx context.Context, reg *Registration) (*WorkspaceEdit, error) {
			return reg.Provider.(RenameProvider).ProvideRenameEdits(ctx, doc, in, newName)
		},
		func(w *WorkspaceEdit) bool { return !w.IsEmpty() },
	)
	if err != nil {
		return nil, err
	}
	return externalWorkspaceEdit(edit), nil
}

// PrepareRename asks the first rename provider, in rename order, that can
// validate locations. It returns nil when none can or when that provider
// has nothing to rename at pos.
func (e *Engine) PrepareRename(ctx context.Context, doc Document, pos Position) (*PrepareRenameResult, error) {
	in := ClampPosition(doc, ToInternal(pos))

	var cands []candidate
	for _, c := range reverseOrder(e.registry.matching(KindRename, doc)) {
		if _, ok := c.reg.Provider.(RenamePreparer); ok {
			cands = append(cands, c)
		}
	}
	if len(cands) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(err)
		}
		return nil, nil
	}

	res, _, err := firstOf(ctx, e, cands[:1],
		func(ctx context.Context, reg *Registration) (*PrepareRenameResult, error) {
			return reg.Provider.(RenamePreparer).PrepareRename(ctx, doc, in)
		},
		func(*PrepareRenameResult) bool { return true },
	)
	if err != nil || res == nil {
		return nil, err
	}
	return &PrepareRenameResult{Range: RangeToExternal(res.Range), Placeholder: res.Placeholder}, nil
}
