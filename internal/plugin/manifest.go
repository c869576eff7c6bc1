package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/dshills/featurehost/internal/feature"
)

// ManifestFile is the manifest name inside a plugin directory.
const ManifestFile = "plugin.json"

// Manifest describes a plugin.
type Manifest struct {
	Name        string `json:"name"`        // Unique identifier (e.g., "go-snippets")
	Version     string `json:"version"`     // Semver (e.g., "1.2.0")
	DisplayName string `json:"displayName"` // Human-readable name
	Description string `json:"description"` // Short description

	// Main is the Lua entry file relative to the plugin directory.
	Main string `json:"main"`

	// Selector chooses the documents the plugin's providers apply to.
	Selector feature.Selector `json:"selector"`

	// Features lists the feature kinds to register. Empty means every kind
	// whose provider function the script defines.
	Features []string `json:"features"`

	// TriggerCharacters maps completion, signatureHelp and
	// onTypeFormatting to their trigger characters.
	TriggerCharacters map[string][]string `json:"triggerCharacters"`

	// Config is passed to the script's setup function.
	Config map[string]any `json:"config"`

	path string
}

// Validation errors.
var (
	ErrMissingName     = errors.New("manifest: name is required")
	ErrInvalidName     = errors.New("manifest: name must be lowercase alphanumeric with hyphens")
	ErrInvalidVersion  = errors.New("manifest: version must be valid semver")
	ErrInvalidMain     = errors.New("manifest: main must be a .lua file")
	ErrInvalidFeature  = errors.New("manifest: invalid feature")
	ErrInvalidTrigger  = errors.New("manifest: trigger characters only apply to completion, signatureHelp and onTypeFormatting")
	ErrInvalidSelector = errors.New("manifest: selector must set scheme, language or pattern")
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$|^[a-z]$`)

var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// triggerKinds are the kinds that take trigger characters.
var triggerKinds = map[feature.Kind]bool{
	feature.KindCompletion:       true,
	feature.KindSignatureHelp:    true,
	feature.KindOnTypeFormatting: true,
}

// LoadManifest loads and validates a plugin manifest from a file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	m.path = filepath.Dir(path)
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifestFromDir loads plugin.json from a plugin directory.
func LoadManifestFromDir(dir string) (*Manifest, error) {
	return LoadManifest(filepath.Join(dir, ManifestFile))
}

// NewManifestMinimal creates the manifest of a plugin without plugin.json.
// It applies to every document and registers every defined provider.
func NewManifestMinimal(name, dir string) *Manifest {
	m := &Manifest{Name: name, path: dir}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Main == "" {
		m.Main = "init.lua"
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}
	if m.Selector.IsZero() {
		m.Selector = feature.AnyDocument()
	}
}

// Validate checks that the manifest is valid.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %s", ErrInvalidName, m.Name)
	}
	if !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}
	if filepath.Ext(m.Main) != ".lua" {
		return fmt.Errorf("%w: %s", ErrInvalidMain, m.Main)
	}
	if m.Selector.IsZero() {
		return ErrInvalidSelector
	}
	if _, err := m.Kinds(); err != nil {
		return err
	}
	for name := range m.TriggerCharacters {
		k, err := feature.ParseKind(name)
		if err != nil || !triggerKinds[k] {
			return fmt.Errorf("%w: %s", ErrInvalidTrigger, name)
		}
	}
	return nil
}

// Kinds parses Features.
func (m *Manifest) Kinds() ([]feature.Kind, error) {
	kinds := make([]feature.Kind, 0, len(m.Features))
	for _, name := range m.Features {
		k, err := feature.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidFeature, name)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Triggers returns the trigger characters declared for kind.
func (m *Manifest) Triggers(kind feature.Kind) []string {
	var chars []string
	for name, list := range m.TriggerCharacters {
		if k, err := feature.ParseKind(name); err == nil && k == kind {
			chars = append(chars, list...)
		}
	}
	sort.Strings(chars)
	return chars
}

// Path returns the plugin directory.
func (m *Manifest) Path() string {
	return m.path
}

// MainPath returns the full path to the main Lua file.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.path, m.Main)
}

// String returns a string representation of the manifest.
func (m *Manifest) String() string {
	display := m.DisplayName
	if display == "" {
		display = m.Name
	}
	return fmt.Sprintf("%s v%s", display, m.Version)
}
