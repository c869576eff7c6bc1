package feature

import (
	"context"
	"slices"
)

// Completion queries every matching completion provider and returns one
// group per provider that proposed something. Groups are ordered by
// selector score, highest first, and most recently registered first among
// equal scores. When the request was triggered by a character only
// providers declaring that character are asked. Failing providers
// contribute no group.
func (e *Engine) Completion(ctx context.Context, doc Document, pos Position, cc CompletionContext) (*CompletionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	in := ClampPosition(doc, ToInternal(pos))

	key := completionKey{
		uri:        doc.URI(),
		version:    doc.Version(),
		pos:        in,
		trigger:    cc.TriggerKind,
		char:       cc.TriggerCharacter,
		generation: e.registry.Generation(),
	}
	if cc.TriggerKind != CompletionTriggerForIncompleteCompletions {
		if res, ok := e.cache.get(key); ok {
			return res, nil
		}
	}

	var cands []candidate
	for _, c := range scoreThenRecent(e.registry.matching(KindCompletion, doc)) {
		if cc.TriggerKind == CompletionTriggerCharacter && !c.reg.acceptsTrigger(cc.TriggerCharacter) {
			continue
		}
		cands = append(cands, c)
	}

	outs, err := invokeAll(ctx, e, cands, func(ctx context.Context, reg *Registration) (*CompletionList, error) {
		return reg.Provider.(CompletionProvider).ProvideCompletionItems(ctx, doc, in, cc)
	})
	if err != nil {
		return nil, err
	}

	res := &CompletionResult{}
	faulted := false
	for _, o := range outs {
		if o.err != nil {
			e.dropped(o.err)
			faulted = true
			continue
		}
		if o.value == nil || (len(o.value.Items) == 0 && !o.value.Incomplete) {
			continue
		}
		group := CompletionGroup{
			RegistrationID: o.reg.ID,
			Score:          o.score,
			Incomplete:     o.value.Incomplete,
			Items:          make([]CompletionItem, len(o.value.Items)),
		}
		for i, item := range o.value.Items {
			out := externalCompletionItem(item)
			out.Command = e.commands.Normalize(item.Command)
			out.source = o.reg
			group.Items[i] = out
		}
		res.Groups = append(res.Groups, group)
	}

	// A faulted provider may answer next time.
	if !faulted && !res.Incomplete() {
		e.cache.set(key, res)
	}
	return res, nil
}

// ResolveCompletionItem fills in the details of an item returned by
// Completion using the provider that proposed it. Items whose provider
// cannot resolve, or has been disposed, are returned unchanged, as are
// items whose resolver fails.
func (e *Engine) ResolveCompletionItem(ctx context.Context, item CompletionItem) (CompletionItem, error) {
	if err := ctx.Err(); err != nil {
		return item, cancelled(err)
	}
	reg := item.source
	if reg == nil || reg.Disposed() {
		return item, nil
	}
	resolver, ok := reg.Provider.(CompletionItemResolver)
	if !ok {
		return item, nil
	}

	resolved, err := invoke(ctx, e, reg, func(ctx context.Context) (CompletionItem, error) {
		return resolver.ResolveCompletionItem(ctx, internalCompletionItem(item))
	})
	if cerr := ctx.Err(); cerr != nil {
		return item, cancelled(cerr)
	}
	if err != nil {
		e.dropped(err)
		return item, nil
	}

	out := externalCompletionItem(resolved)
	out.Command = e.commands.Normalize(resolved.Command)
	out.source = reg
	return out, nil
}

// cloneCompletionResult copies the groups and item slices of r so cached
// results cannot be modified through a returned value.
func cloneCompletionResult(r *CompletionResult) *CompletionResult {
	out := &CompletionResult{Groups: make([]CompletionGroup, len(r.Groups))}
	for i, g := range r.Groups {
		g.Items = slices.Clone(g.Items)
		out.Groups[i] = g
	}
	return out
}
