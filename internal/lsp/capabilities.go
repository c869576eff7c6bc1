package lsp

import (
	"slices"

	"github.com/tidwall/gjson"

	"github.com/dshills/featurehost/internal/feature"
)

// Capabilities is what a server advertised in its initialize result,
// reduced to what featurehost can use.
type Capabilities struct {
	kinds map[feature.Kind]bool

	// ResolveCodeLens is set when codeLensProvider.resolveProvider is true.
	ResolveCodeLens bool
	// ResolveCompletion is set when completionProvider.resolveProvider is true.
	ResolveCompletion bool
	// PrepareRename is set when renameProvider.prepareProvider is true.
	PrepareRename bool

	CompletionTriggers   []string
	SignatureTriggers    []string
	OnTypeFormatTriggers []string
	Commands             []string

	// NoSync is set when the server does not want document contents.
	NoSync bool

	ServerName    string
	ServerVersion string
}

// capabilityPaths maps each kind to its ServerCapabilities field.
var capabilityPaths = map[feature.Kind]string{
	feature.KindDocumentSymbol:     "documentSymbolProvider",
	feature.KindCodeLens:           "codeLensProvider",
	feature.KindDefinition:         "definitionProvider",
	feature.KindHover:              "hoverProvider",
	feature.KindDocumentHighlight:  "documentHighlightProvider",
	feature.KindReferences:         "referencesProvider",
	feature.KindCodeAction:         "codeActionProvider",
	feature.KindWorkspaceSymbol:    "workspaceSymbolProvider",
	feature.KindRename:             "renameProvider",
	feature.KindSignatureHelp:      "signatureHelpProvider",
	feature.KindCompletion:         "completionProvider",
	feature.KindDocumentFormatting: "documentFormattingProvider",
	feature.KindRangeFormatting:    "documentRangeFormattingProvider",
	feature.KindOnTypeFormatting:   "documentOnTypeFormattingProvider",
}

// ParseCapabilities reads the capabilities object of an initialize result.
// A capability is advertised when its field is true or an options object.
func ParseCapabilities(result []byte) Capabilities {
	root := gjson.ParseBytes(result)
	caps := root.Get("capabilities")

	c := Capabilities{
		kinds:         make(map[feature.Kind]bool),
		ServerName:    root.Get("serverInfo.name").String(),
		ServerVersion: root.Get("serverInfo.version").String(),
	}
	for kind, path := range capabilityPaths {
		if advertised(caps.Get(path)) {
			c.kinds[kind] = true
		}
	}

	c.ResolveCodeLens = caps.Get("codeLensProvider.resolveProvider").Bool()
	c.ResolveCompletion = caps.Get("completionProvider.resolveProvider").Bool()
	c.PrepareRename = caps.Get("renameProvider.prepareProvider").Bool()

	c.CompletionTriggers = stringList(caps.Get("completionProvider.triggerCharacters"))
	c.SignatureTriggers = append(
		stringList(caps.Get("signatureHelpProvider.triggerCharacters")),
		stringList(caps.Get("signatureHelpProvider.retriggerCharacters"))...,
	)
	c.SignatureTriggers = uniq(c.SignatureTriggers)

	onType := caps.Get("documentOnTypeFormattingProvider")
	if first := onType.Get("firstTriggerCharacter").String(); first != "" {
		c.OnTypeFormatTriggers = append(c.OnTypeFormatTriggers, first)
	}
	c.OnTypeFormatTriggers = uniq(append(c.OnTypeFormatTriggers, stringList(onType.Get("moreTriggerCharacter"))...))

	c.Commands = stringList(caps.Get("executeCommandProvider.commands"))

	// textDocumentSync is a TextDocumentSyncKind or an options object.
	sync := caps.Get("textDocumentSync")
	switch {
	case sync.IsObject():
		c.NoSync = !sync.Get("openClose").Bool() && sync.Get("change").Int() == 0
	case sync.Exists():
		c.NoSync = sync.Int() == 0
	}
	return c
}

func advertised(r gjson.Result) bool {
	switch {
	case !r.Exists():
		return false
	case r.IsObject():
		return true
	default:
		return r.Bool()
	}
}

func stringList(r gjson.Result) []string {
	var out []string
	for _, el := range r.Array() {
		if s := el.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func uniq(list []string) []string {
	var out []string
	for _, s := range list {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// Supports reports whether the server advertised kind.
func (c Capabilities) Supports(kind feature.Kind) bool {
	return c.kinds[kind]
}

// Kinds returns the advertised kinds in feature.Kinds order.
func (c Capabilities) Kinds() []feature.Kind {
	var kinds []feature.Kind
	for _, k := range feature.Kinds() {
		if c.kinds[k] {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Triggers returns the trigger characters the server declared for kind.
func (c Capabilities) Triggers(kind feature.Kind) []string {
	switch kind {
	case feature.KindCompletion:
		return c.CompletionTriggers
	case feature.KindSignatureHelp:
		return c.SignatureTriggers
	case feature.KindOnTypeFormatting:
		return c.OnTypeFormatTriggers
	default:
		return nil
	}
}
