package infrastructure

import (
	"context"
	"fmt"
	"time"

	"lodging-ledger/internal/config"
	lodging "lodging-ledger/internal/lodging/domain"
	"lodging-ledger/internal/lodging/infrastructure/file"
	"lodging-ledger/internal/lodging/infrastructure/memory"
	"lodging-ledger/internal/lodging/infrastructure/mongo"
	"lodging-ledger/internal/lodging/infrastructure/postgres"
	"lodging-ledger/internal/lodging/infrastructure/sqlite"
	"lodging-ledger/internal/observability/metrics"
)

// CloseFunc releases the resources held by an opened gateway.
type CloseFunc func(ctx context.Context) error

func noopClose(context.Context) error { return nil }

// Handle is an opened gateway with its backend name and, for the postgres
// backend, the pgx-backed gateway so callers can share its pool.
type Handle struct {
	Gateway  lodging.Gateway
	Backend  string
	Postgres *postgres.Gateway
	Close    CloseFunc
}

// Open selects the gateway named by cfg.Backend, migrates its schema and
// wraps it with metrics.
func Open(ctx context.Context, cfg config.StorageConfig) (*Handle, error) {
	var (
		gw      lodging.Gateway
		closeFn CloseFunc = noopClose
		pg      *postgres.Gateway
	)
	switch cfg.Backend {
	case config.BackendMemory:
		gw = memory.NewGateway(nil)
	case config.BackendFile:
		fg, err := file.NewGateway(cfg.DataFile)
		if err != nil {
			return nil, err
		}
		gw = fg
	case config.BackendSQLite:
		sg, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		gw = sg
		closeFn = func(context.Context) error { return sg.Close() }
	case config.BackendPostgres:
		var opts []postgres.GatewayOption
		if cfg.PostgresTablePrefix != "" {
			opts = append(opts, postgres.WithTablePrefix(cfg.PostgresTablePrefix))
		}
		var err error
		pg, err = postgres.Open(ctx, cfg.PostgresDSN, opts...)
		if err != nil {
			return nil, err
		}
		gw = pg
		closeFn = func(context.Context) error { return pg.Close() }
	case config.BackendMongo:
		mg, err := mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		gw = mg
		closeFn = mg.Close
	default:
		return nil, fmt.Errorf("infrastructure: unknown storage backend %q", cfg.Backend)
	}
	return &Handle{
		Gateway:  NewInstrumentedGateway(cfg.Backend, gw),
		Backend:  cfg.Backend,
		Postgres: pg,
		Close:    closeFn,
	}, nil
}

// InstrumentedGateway times every Load and Save of the wrapped gateway and
// rejects stored documents that fail validation, whatever the backend.
type InstrumentedGateway struct {
	backend string
	next    lodging.Gateway
}

var _ lodging.Gateway = (*InstrumentedGateway)(nil)

// NewInstrumentedGateway wraps next.
func NewInstrumentedGateway(backend string, next lodging.Gateway) *InstrumentedGateway {
	return &InstrumentedGateway{backend: backend, next: next}
}

func (g *InstrumentedGateway) Load(ctx context.Context) (doc *lodging.Document, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveGateway(g.backend, "load", resultOf(err), time.Since(start))
	}()
	doc, err = g.next.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("infrastructure: stored document: %w", err)
	}
	return doc, nil
}

func (g *InstrumentedGateway) Save(ctx context.Context, doc *lodging.Document) (err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveGateway(g.backend, "save", resultOf(err), time.Since(start))
	}()
	return g.next.Save(ctx, doc)
}

func resultOf(err error) string {
	if err != nil {
		return metrics.ResultError
	}
	return metrics.ResultSuccess
}
