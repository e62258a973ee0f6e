package lodging

import "context"

// Gateway loads and saves the whole document.
//
// Load returns NewDocument when nothing was saved yet. Save replaces the
// persisted document.
type Gateway interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}
