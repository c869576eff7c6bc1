// Package feature provides the language-feature provider registry and the
// aggregation engine that answers editor queries from many providers at once.
//
// Providers are independently registered, untrusted contributors of answers
// (symbols, definitions, hovers, completions, formatting edits, ...) for the
// documents their Selector matches. The Engine runs every matching provider
// for a query, contains their failures, merges the results under the merge
// policy of that feature and returns one normalized answer.
//
// # Architecture
//
//   - Selector: decides whether a provider applies to a document and how
//     specific that match is (Score).
//   - Registry: one ordered list of registrations per feature Kind. Register
//     appends, Registration.Dispose removes.
//   - Engine: query API. Providers are invoked concurrently against the same
//     immutable Document; merge order depends only on registration order and
//     selector score, never on completion timing.
//   - Normalizers: convert dynamic provider output (JSON from remote servers,
//     tables from Lua plugins) into the canonical types of this package.
//
// # Coordinates
//
// Positions passed to and returned from Engine queries are 1-based. Providers
// always see and produce 0-based positions. Columns count characters (runes)
// within a line.
//
// # Quick Start
//
//	eng := feature.NewEngine(feature.WithLogger(logger))
//
//	reg := eng.RegisterHoverProvider(feature.LanguageSelector("go"), myHover)
//	defer reg.Dispose()
//
//	doc := feature.NewTextDocument("file:///src/main.go", "go", 1, content)
//	hovers, err := eng.Hover(ctx, doc, feature.Position{Line: 3, Character: 7})
//
// # Failure Isolation
//
// A provider that returns an error, panics or exceeds the provider timeout
// contributes nothing. Rename, signature help and the formatting features are
// the exceptions: there a provider fault is the answer and is returned to the
// caller as a *ProviderError.
//
// # Thread Safety
//
// Registry, CommandTable and Engine are safe for concurrent use. Registering
// or disposing while queries are in flight is allowed; each query works on a
// snapshot taken when it starts.
package feature
