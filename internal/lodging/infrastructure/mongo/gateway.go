package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	lodging "lodging-ledger/internal/lodging/domain"
)

const (
	defaultCollection = "lodging_documents"
	documentID        = "ledger"
)

var _ lodging.Gateway = (*Gateway)(nil)

// Gateway stores the whole document as a single MongoDB document, so a
// save is one atomic replace.
type Gateway struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        func() time.Time
}

// GatewayOption configures the gateway.
type GatewayOption func(*gatewayConfig)

type gatewayConfig struct {
	collection string
}

// WithCollection overrides the collection name.
func WithCollection(name string) GatewayOption {
	return func(c *gatewayConfig) {
		if name != "" {
			c.collection = name
		}
	}
}

// Open connects to uri and pings the server.
func Open(ctx context.Context, uri, database string, opts ...GatewayOption) (*Gateway, error) {
	if uri == "" {
		return nil, errors.New("mongo gateway: empty uri")
	}
	if database == "" {
		return nil, errors.New("mongo gateway: empty database")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo gateway: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo gateway: ping: %w", err)
	}
	return NewGateway(client, database, opts...), nil
}

// NewGateway wraps a connected client.
func NewGateway(client *mongo.Client, database string, opts ...GatewayOption) *Gateway {
	cfg := gatewayConfig{collection: defaultCollection}
	for _, opt := range opts {
		opt(&cfg)
	}
	gw := &Gateway{client: client, now: time.Now}
	if client != nil {
		gw.collection = client.Database(database).Collection(cfg.collection)
	}
	return gw
}

// Close disconnects the client.
func (g *Gateway) Close(ctx context.Context) error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Disconnect(ctx)
}

// Load reads the stored document.
func (g *Gateway) Load(ctx context.Context) (*lodging.Document, error) {
	if g == nil || g.collection == nil {
		return nil, errors.New("mongo gateway: nil collection")
	}
	var m documentModel
	err := g.collection.FindOne(ctx, bson.M{"_id": documentID}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return lodging.NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo gateway: load: %w", err)
	}
	doc, err := fromDocumentModel(&m)
	if err != nil {
		return nil, fmt.Errorf("mongo gateway: decode: %w", err)
	}
	return doc, nil
}

// Save upserts the stored document.
func (g *Gateway) Save(ctx context.Context, doc *lodging.Document) error {
	if g == nil || g.collection == nil {
		return errors.New("mongo gateway: nil collection")
	}
	if doc == nil {
		return lodging.ErrNilDocument
	}
	m := toDocumentModel(documentID, doc, g.now())
	_, err := g.collection.ReplaceOne(ctx, bson.M{"_id": documentID}, m, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo gateway: save: %w", err)
	}
	return nil
}
