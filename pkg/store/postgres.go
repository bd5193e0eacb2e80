package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chriamue/didcomm-mediator/internal/logger"
	"github.com/chriamue/didcomm-mediator/internal/mediatorerr"
	"github.com/chriamue/didcomm-mediator/pkg/message"
)

// PostgresConfig configures the optional persisted-store backend.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

var _ Store = (*PersistedStore)(nil)

// PersistedStore wraps a MemoryStore, the authoritative in-memory view,
// with a best-effort Postgres mirror: every mutation that succeeds
// in-memory is also applied to Postgres, but a Postgres failure is only
// logged (KindStoreFailure) and never fails the caller, per the store
// failure propagation policy.
type PersistedStore struct {
	*MemoryStore
	pool *pgxpool.Pool
	log  logger.Logger
}

// NewPersistedStore opens the connection pool, ensures the backing table
// exists, and returns a Store that mirrors every mutation to it.
func NewPersistedStore(ctx context.Context, cfg PostgresConfig, shardCount int, log logger.Logger) (*PersistedStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS mediator_connections (
	did TEXT PRIMARY KEY,
	endpoint_internal BOOLEAN NOT NULL DEFAULT true,
	endpoint_http TEXT NOT NULL DEFAULT '',
	messages JSONB NOT NULL DEFAULT '[]'
)`
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &PersistedStore{
		MemoryStore: NewMemoryStore(shardCount),
		pool:        pool,
		log:         log,
	}, nil
}

func (p *PersistedStore) InsertMessage(ctx context.Context, m message.Message) error {
	if err := p.MemoryStore.InsertMessage(ctx, m); err != nil {
		return err
	}
	for _, did := range m.To {
		p.mirror(ctx, did)
	}
	return nil
}

func (p *PersistedStore) InsertMessageFor(ctx context.Context, did string, m message.Message) error {
	if err := p.MemoryStore.InsertMessageFor(ctx, did, m); err != nil {
		return err
	}
	p.mirror(ctx, did)
	return nil
}

func (p *PersistedStore) GetNext(ctx context.Context, did string) (message.Message, bool, error) {
	m, ok, err := p.MemoryStore.GetNext(ctx, did)
	if err == nil && ok {
		p.mirror(ctx, did)
	}
	return m, ok, err
}

func (p *PersistedStore) GetMessages(ctx context.Context, did string, n int) ([]message.Message, bool, error) {
	msgs, known, err := p.MemoryStore.GetMessages(ctx, did, n)
	if err == nil && known {
		p.mirror(ctx, did)
	}
	return msgs, known, err
}

// mirror pushes the current in-memory Connection snapshot for did to
// Postgres. Failures are logged as KindStoreFailure and swallowed: the
// in-memory store remains the source of truth for the live request.
func (p *PersistedStore) mirror(ctx context.Context, did string) {
	conn, ok, err := p.MemoryStore.Get(ctx, did)
	if err != nil || !ok {
		return
	}
	payload, err := json.Marshal(conn.Messages)
	if err != nil {
		p.log.Warn("marshal connection for persistence", logger.String("did", did), logger.Error(err))
		return
	}

	const upsert = `
INSERT INTO mediator_connections (did, endpoint_internal, endpoint_http, messages)
VALUES ($1, $2, $3, $4)
ON CONFLICT (did) DO UPDATE SET
	endpoint_internal = EXCLUDED.endpoint_internal,
	endpoint_http = EXCLUDED.endpoint_http,
	messages = EXCLUDED.messages`
	if _, err := p.pool.Exec(ctx, upsert, conn.DID, conn.Endpoint.Internal, conn.Endpoint.Http, payload); err != nil {
		werr := mediatorerr.Wrap(mediatorerr.KindStoreFailure, "mirror connection to postgres", err)
		p.log.Warn("persisted store mirror failed", logger.String("did", did), logger.Error(werr))
	}
}

// Restore reloads every Connection from Postgres into the in-memory
// store, intended for startup recovery.
func (p *PersistedStore) Restore(ctx context.Context) error {
	rows, err := p.pool.Query(ctx, `SELECT did, endpoint_internal, endpoint_http, messages FROM mediator_connections`)
	if err != nil {
		return fmt.Errorf("query connections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var did, endpointHTTP string
		var internal bool
		var raw []byte
		if err := rows.Scan(&did, &internal, &endpointHTTP, &raw); err != nil {
			return fmt.Errorf("scan connection: %w", err)
		}
		var msgs []message.Message
		if err := json.Unmarshal(raw, &msgs); err != nil {
			return fmt.Errorf("unmarshal messages for %s: %w", did, err)
		}
		sh := p.MemoryStore.shardFor(did)
		sh.mu.Lock()
		sh.conns[did] = &Connection{DID: did, Endpoint: Endpoint{Internal: internal, Http: endpointHTTP}, Messages: msgs}
		sh.mu.Unlock()
	}
	if err := rows.Err(); err != nil && err != pgx.ErrNoRows {
		return fmt.Errorf("iterate connections: %w", err)
	}
	return nil
}

// Close releases the Postgres connection pool.
func (p *PersistedStore) Close() {
	p.pool.Close()
}
