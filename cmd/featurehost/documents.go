package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dshills/featurehost/internal/feature"
)

// documents keeps the open documents so that re-reading an unchanged file
// keeps its version and a changed file gets the next one.
type documents struct {
	mu    sync.Mutex
	byURI map[string]openDocument
}

type openDocument struct {
	doc *feature.TextDocument
	raw string
}

func newDocuments() *documents {
	return &documents{byURI: make(map[string]openDocument)}
}

// open reads path and returns its current document.
func (d *documents) open(path, language string) (feature.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	if language == "" {
		language = languageFor(abs)
	}
	raw := string(content)

	d.mu.Lock()
	defer d.mu.Unlock()

	uri := fileURI(abs)
	prev, ok := d.byURI[uri]
	if ok && prev.raw == raw && prev.doc.LanguageID() == language {
		return prev.doc, nil
	}
	version := 1
	if ok {
		version = prev.doc.Version() + 1
	}
	doc := feature.NewTextDocument(uri, language, version, raw)
	d.byURI[uri] = openDocument{doc: doc, raw: raw}
	return doc, nil
}
