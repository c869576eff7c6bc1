// Package lsp turns external language servers into feature providers.
//
// A Server starts a language server process and speaks JSON-RPC 2.0 with
// it over stdio through a Client. After the initialize handshake a
// Provider registers the server with a feature.Engine for every kind the
// server advertised, so its answers are aggregated with those of every
// other provider. Commands listed in executeCommandProvider are entered in
// the engine's command table.
//
// # Architecture
//
//   - Client: JSON-RPC connection, handshake and document sync
//   - Provider: feature provider interfaces on top of a Client
//   - Server: one language server process
//   - Manager: the configured servers of one engine
//
// # Documents
//
// Before a request that names a document the Client sends didOpen the
// first time it sees the URI and didChange with the full text whenever
// the version moved. Columns are converted between runes and UTF-16 code
// units for that document.
//
// # Example
//
//	m := lsp.NewManager(engine, logger)
//	err := m.Start(ctx, lsp.ServerConfig{
//	    Name:     "gopls",
//	    Command:  "gopls",
//	    Selector: feature.LanguageSelector("go"),
//	})
//	defer m.Close(ctx)
package lsp
