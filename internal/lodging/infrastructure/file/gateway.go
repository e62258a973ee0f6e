package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lodging "lodging-ledger/internal/lodging/domain"
)

var _ lodging.Gateway = (*Gateway)(nil)

// Gateway stores the document as one JSON file.
type Gateway struct {
	path string
	mu   sync.Mutex
}

// NewGateway constructs a gateway writing to path.
func NewGateway(path string) (*Gateway, error) {
	if path == "" {
		return nil, errors.New("file gateway: empty path")
	}
	return &Gateway{path: path}, nil
}

// Path returns the data file path.
func (g *Gateway) Path() string { return g.path }

// Load reads the document. A missing or empty file yields the empty
// default document. An unreadable file is moved aside to <path>.corrupt.
func (g *Gateway) Load(ctx context.Context) (*lodging.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	data, err := os.ReadFile(g.path)
	if errors.Is(err, os.ErrNotExist) {
		return lodging.NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("file gateway: read %s: %w", g.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return lodging.NewDocument(), nil
	}

	doc := lodging.NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		backupPath := g.path + ".corrupt"
		_ = os.Rename(g.path, backupPath)
		return nil, fmt.Errorf("file gateway: corrupt JSON in %s (backed up to %s): %w", g.path, backupPath, err)
	}
	return doc, nil
}

// Save writes the document atomically through a temp file and rename.
func (g *Gateway) Save(ctx context.Context, doc *lodging.Document) error {
	if doc == nil {
		return lodging.ErrNilDocument
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("file gateway: marshal: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if dir := filepath.Dir(g.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("file gateway: create directory: %w", err)
		}
	}
	tmpPath := g.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("file gateway: write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, g.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("file gateway: rename temp file: %w", err)
	}
	return nil
}
