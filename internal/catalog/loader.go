package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPath is used when no data path is configured.
const DefaultPath = "data/products.json"

// Loader reads the product catalog from a JSON file. The file is re-read on every call.
type Loader struct {
	path string
}

// NewLoader constructs a loader for the given path, falling back to DefaultPath.
func NewLoader(path string) *Loader {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}
	return &Loader{path: filepath.Clean(path)}
}

// Path reports the file the loader reads from.
func (l *Loader) Path() string {
	if l == nil {
		return DefaultPath
	}
	return l.path
}

// Load returns the catalog, or an empty slice when the file is missing or malformed.
func (l *Loader) Load() []Product {
	products, err := l.LoadErr()
	if err != nil {
		return []Product{}
	}
	return products
}

// LoadErr returns the catalog together with the reason it could not be read.
func (l *Loader) LoadErr() ([]Product, error) {
	if l == nil {
		return nil, errors.New("catalog loader is nil")
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Decode(data)
}

// Decode parses a JSON array of product objects. Array elements that are not objects are skipped.
func Decode(data []byte) ([]Product, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var raw []json.RawMessage
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if raw == nil {
		return nil, errors.New("decode catalog: expected a JSON array")
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode catalog: unexpected data after JSON array")
	}

	products := make([]Product, 0, len(raw))
	for _, item := range raw {
		itemDecoder := json.NewDecoder(bytes.NewReader(item))
		itemDecoder.UseNumber()
		var product Product
		if err := itemDecoder.Decode(&product); err != nil || product == nil {
			continue
		}
		products = append(products, product)
	}
	return products, nil
}
