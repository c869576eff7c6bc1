package feature

import (
	"context"
	"slices"
)

// SignatureHelp asks the single most specific matching provider for the
// signature at pos (1-based). Among providers with equal selector scores
// the most recently registered wins. When the request was triggered by a
// character only providers declaring that character are considered. A
// provider failure is returned as a *ProviderError.
func (e *Engine) SignatureHelp(ctx context.Context, doc Document, pos Position, sc SignatureHelpContext) (*SignatureHelp, error) {
	in := ClampPosition(doc, ToInternal(pos))

	var cands []candidate
	for _, c := range scoreThenRecent(e.registry.matching(KindSignatureHelp, doc)) {
		if sc.TriggerKind == SignatureHelpTriggerCharacter && !c.reg.acceptsTrigger(sc.TriggerCharacter) {
			continue
		}
		cands = append(cands, c)
	}
	if len(cands) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(err)
		}
		return nil, nil
	}

	help, _, err := firstOf(ctx, e, cands[:1],
		func(ctx context.Context, reg *Registration) (*SignatureHelp, error) {
			return reg.Provider.(SignatureHelpProvider).ProvideSignatureHelp(ctx, doc, in, sc)
		},
		func(*SignatureHelp) bool { return true },
	)
	if err != nil {
		return nil, err
	}
	return help, nil
}

// SignatureHelpTriggerCharacters returns the union of the trigger
// characters of the signature help providers matching doc.
func (e *Engine) SignatureHelpTriggerCharacters(doc Document) []string {
	return e.triggerCharacters(KindSignatureHelp, doc)
}

// CompletionTriggerCharacters returns the union of the trigger characters
// of the completion providers matching doc.
func (e *Engine) CompletionTriggerCharacters(doc Document) []string {
	return e.triggerCharacters(KindCompletion, doc)
}

// OnTypeFormattingTriggerCharacters returns the union of the trigger
// characters of the on-type formatting providers matching doc.
func (e *Engine) OnTypeFormattingTriggerCharacters(doc Document) []string {
	return e.triggerCharacters(KindOnTypeFormatting, doc)
}

func (e *Engine) triggerCharacters(kind Kind, doc Document) []string {
	var chars []string
	for _, c := range e.registry.matching(kind, doc) {
		for _, ch := range c.reg.TriggerCharacters {
			if !slices.Contains(chars, ch) {
				chars = append(chars, ch)
			}
		}
	}
	slices.Sort(chars)
	return chars
}
