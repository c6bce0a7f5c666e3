package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned when no loader is registered for a file
// extension.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Loader is the interface for a format-specific document loader.
type Loader interface {
	// Decode parses src, whose origin is named by filename for diagnostics.
	Decode(ctx context.Context, filename string, src []byte) (*Document, error)
}

// JSONLoader decodes JSON documents.
type JSONLoader struct{}

// Decode implements Loader.
func (JSONLoader) Decode(ctx context.Context, filename string, src []byte) (*Document, error) {
	ctxlog.FromContext(ctx).Debug("Decoding JSON document.", "file", filename, "bytes", len(src))
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(src))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode JSON document %s: %w", filename, err)
	}
	return &doc, nil
}

// YAMLLoader decodes YAML documents.
type YAMLLoader struct{}

// Decode implements Loader.
func (YAMLLoader) Decode(ctx context.Context, filename string, src []byte) (*Document, error) {
	ctxlog.FromContext(ctx).Debug("Decoding YAML document.", "file", filename, "bytes", len(src))
	var doc Document
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode YAML document %s: %w", filename, err)
	}
	return &doc, nil
}

// Registry maps file extensions (with the leading dot, lower case) to loaders.
type Registry map[string]Loader

// NewRegistry returns a registry with the JSON and YAML loaders installed.
// Further formats are added with Register.
func NewRegistry() Registry {
	return Registry{
		".json": JSONLoader{},
		".yaml": YAMLLoader{},
		".yml":  YAMLLoader{},
	}
}

// Register installs l for ext, replacing any previous loader.
func (r Registry) Register(ext string, l Loader) {
	r[strings.ToLower(ext)] = l
}

// Extensions returns the registered extensions in sorted order.
func (r Registry) Extensions() []string {
	exts := make([]string, 0, len(r))
	for ext := range r {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// LoadFile reads path and decodes it with the loader registered for its
// extension.
func (r Registry) LoadFile(ctx context.Context, path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	loader, ok := r[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q (%s)", ErrUnsupportedFormat, ext, path)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}
	return loader.Decode(ctx, path, src)
}
