package memory

import (
	"context"
	"sync"

	lodging "lodging-ledger/internal/lodging/domain"
)

var _ lodging.Gateway = (*Gateway)(nil)

// Gateway keeps the document in memory.
type Gateway struct {
	mu    sync.RWMutex
	doc   *lodging.Document
	saves int
}

// NewGateway constructs a gateway, optionally seeded with doc.
func NewGateway(seed *lodging.Document) *Gateway {
	return &Gateway{doc: seed.Clone()}
}

// Load returns a detached copy of the stored document.
func (g *Gateway) Load(ctx context.Context) (*lodging.Document, error) {
	_ = ctx
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.doc == nil {
		return lodging.NewDocument(), nil
	}
	return g.doc.Clone(), nil
}

// Save stores a detached copy of doc.
func (g *Gateway) Save(ctx context.Context, doc *lodging.Document) error {
	_ = ctx
	if doc == nil {
		return lodging.ErrNilDocument
	}
	copy := doc.Clone()
	if copy.Months == nil {
		copy.Months = lodging.Ledger{}
	}
	g.mu.Lock()
	g.doc = copy
	g.saves++
	g.mu.Unlock()
	return nil
}

// Saves reports how many times Save succeeded.
func (g *Gateway) Saves() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.saves
}
