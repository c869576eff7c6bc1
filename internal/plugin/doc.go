// Package plugin hosts Lua plugins that provide language features.
//
// A plugin is a Lua script whose global functions serve feature requests.
// Each plugin is registered with a feature.Engine once per kind it serves,
// under the selector from its manifest, so its results are aggregated with
// every other provider's.
//
// # Plugin Structure
//
// Plugins can be either single-file or directory-based:
//
// Single-file plugin:
//
//	~/.config/featurehost/plugins/words.lua
//
// Directory plugin:
//
//	~/.config/featurehost/plugins/go-snippets/
//	├── plugin.json      # Manifest (optional)
//	└── init.lua         # Entry point
//
// # Manifest
//
//	{
//	  "name": "go-snippets",
//	  "version": "1.0.0",
//	  "main": "init.lua",
//	  "selector": {"language": "go"},
//	  "features": ["completion", "hover"],
//	  "triggerCharacters": {"completion": ["."]},
//	  "config": {"prefix": "snip"}
//	}
//
// Without a manifest the plugin applies to every document and serves every
// kind whose function it defines.
//
// # Provider Functions
//
//	provide_document_symbols(doc)
//	provide_code_lenses(doc)                 resolve_code_lens(lens)
//	provide_definition(doc, pos)
//	provide_hover(doc, pos)
//	provide_document_highlights(doc, pos)
//	provide_references(doc, pos, context)
//	provide_code_actions(doc, range, context)
//	provide_workspace_symbols(query)
//	provide_rename_edits(doc, pos, new_name) prepare_rename(doc, pos)
//	provide_signature_help(doc, pos, context)
//	provide_completion_items(doc, pos, ctx)  resolve_completion_item(item)
//	provide_document_formatting_edits(doc, options)
//	provide_document_range_formatting_edits(doc, range, options)
//	provide_on_type_formatting_edits(doc, pos, ch, options)
//
// Results are plain tables shaped like the feature types, with zero-based
// lines and characters. A function may return nil for "nothing here".
// setup(config) and teardown() are called on load and unload when defined.
//
// # Host Module
//
// The featurehost table offers position, range, location, log and
// register_command(id, title, fn).
//
// # Hot Reload
//
// Manager.Watch watches the plugin paths and reloads a plugin when one of
// its .lua or .json files changes.
package plugin
