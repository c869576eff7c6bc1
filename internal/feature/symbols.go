package feature

import "context"

// DocumentSymbols concatenates the symbols of every matching provider in
// registration order. Failing providers contribute nothing.
func (e *Engine) DocumentSymbols(ctx context.Context, doc Document) ([]DocumentSymbol, error) {
	cands := e.registry.matching(KindDocumentSymbol, doc)
	outs, err := invokeAll(ctx, e, cands, func(ctx context.Context, reg *Registration) ([]DocumentSymbol, error) {
		return reg.Provider.(DocumentSymbolProvider).ProvideDocumentSymbols(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	var result []DocumentSymbol
	for _, o := range outs {
		if o.err != nil {
			e.dropped(o.err)
			continue
		}
		for _, sym := range o.value {
			result = append(result, externalSymbol(sym))
		}
	}
	return result, nil
}

// WorkspaceSymbols concatenates the answers of every workspace symbol
// provider in registration order. Selectors are not consulted. Failing
// providers contribute nothing.
func (e *Engine) WorkspaceSymbols(ctx context.Context, query string) ([]SymbolInformation, error) {
	var cands []candidate
	for _, reg := range e.registry.snapshot(KindWorkspaceSymbol) {
		cands = append(cands, candidate{reg: reg, score: ScoreWildcard})
	}
	outs, err := invokeAll(ctx, e, cands, func(ctx context.Context, reg *Registration) ([]SymbolInformation, error) {
		return reg.Provider.(WorkspaceSymbolProvider).ProvideWorkspaceSymbols(ctx, query)
	})
	if err != nil {
		return nil, err
	}

	var result []SymbolInformation
	for _, o := range outs {
		if o.err != nil {
			e.dropped(o.err)
			continue
		}
		for _, sym := range o.value {
			sym.Location.Range = RangeToExternal(sym.Location.Range)
			result = append(result, sym)
		}
	}
	return result, nil
}
