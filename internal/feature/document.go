package feature

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// Document is the read-only view of a text buffer that providers work on.
// The host owns the buffer; the engine never stores a Document beyond a
// single query.
type Document interface {
	// URI identifies the document (e.g. "file:///src/main.go").
	URI() string
	// LanguageID is the language tag used by selectors (e.g. "go").
	LanguageID() string
	// Version increases every time the content changes.
	Version() int
	// LineCount returns the number of lines, at least 1.
	LineCount() int
	// LineAt returns line n (0-based) without its terminator, or "" when n
	// is out of range.
	LineAt(n int) string
}

// TextDocument is an immutable in-memory Document.
type TextDocument struct {
	uri        string
	languageID string
	version    int
	lines      []string
}

// NewTextDocument creates a document snapshot from content. Both "\n" and
// "\r\n" terminate lines.
func NewTextDocument(uri, languageID string, version int, content string) *TextDocument {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return &TextDocument{
		uri:        uri,
		languageID: languageID,
		version:    version,
		lines:      lines,
	}
}

// URI implements Document.
func (d *TextDocument) URI() string { return d.uri }

// LanguageID implements Document.
func (d *TextDocument) LanguageID() string { return d.languageID }

// Version implements Document.
func (d *TextDocument) Version() int { return d.version }

// LineCount implements Document.
func (d *TextDocument) LineCount() int { return len(d.lines) }

// LineAt implements Document.
func (d *TextDocument) LineAt(n int) string {
	if n < 0 || n >= len(d.lines) {
		return ""
	}
	return d.lines[n]
}

// Text returns the full content joined with "\n".
func (d *TextDocument) Text() string {
	return strings.Join(d.lines, "\n")
}

// WithContent returns a new snapshot of the same document.
func (d *TextDocument) WithContent(version int, content string) *TextDocument {
	return NewTextDocument(d.uri, d.languageID, version, content)
}

// DocumentText joins the lines of any Document with "\n".
func DocumentText(doc Document) string {
	if td, ok := doc.(*TextDocument); ok {
		return td.Text()
	}
	n := doc.LineCount()
	lines := make([]string, n)
	for i := 0; i < n; i++ {
		lines[i] = doc.LineAt(i)
	}
	return strings.Join(lines, "\n")
}

// FilePathToURI converts a file path to a file:// URI.
func FilePathToURI(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	// Convert Windows backslashes to forward slashes
	absPath = filepath.ToSlash(absPath)

	// Windows paths need an extra slash: file:///C:/path
	if runtime.GOOS == "windows" && len(absPath) > 0 && absPath[0] != '/' {
		absPath = "/" + absPath
	}

	u := url.URL{Scheme: "file", Path: absPath}
	return u.String()
}

// splitURI returns the scheme and the path component of a document URI.
// Opaque URIs such as "untitled:Untitled-1" yield their opaque part.
func splitURI(uri string) (scheme, path string) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		return "", uri
	}
	if u.Opaque != "" {
		return u.Scheme, u.Opaque
	}
	return u.Scheme, u.Path
}
