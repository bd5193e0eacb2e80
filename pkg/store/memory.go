package store

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/chriamue/didcomm-mediator/internal/metrics"
	"github.com/chriamue/didcomm-mediator/pkg/message"
)

// shard guards a subset of the DID keyspace behind its own RWMutex, so one
// busy DID's critical section never blocks operations on another DID
// hashed to a different shard.
type shard struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore is the in-memory, authoritative Store implementation. It is
// always present; a persisted backend (see PersistedStore) may sit in
// front of it but never replaces it as the source of truth.
type MemoryStore struct {
	shards []*shard
}

// NewMemoryStore builds a MemoryStore sharded across shardCount locks.
// shardCount <= 0 defaults to 32.
func NewMemoryStore(shardCount int) *MemoryStore {
	if shardCount <= 0 {
		shardCount = 32
	}
	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = &shard{conns: make(map[string]*Connection)}
	}
	return &MemoryStore{shards: shards}
}

func (s *MemoryStore) shardFor(did string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(did))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

func (s *MemoryStore) InsertMessage(ctx context.Context, m message.Message) error {
	for _, did := range m.To {
		if err := s.InsertMessageFor(ctx, did, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) InsertMessageFor(_ context.Context, did string, m message.Message) error {
	sh := s.shardFor(did)
	sh.mu.Lock()
	conn, ok := sh.conns[did]
	if !ok {
		conn = &Connection{DID: did, Endpoint: Endpoint{Internal: true}}
		sh.conns[did] = conn
	}
	conn.Messages = append(conn.Messages, m)
	depth := len(conn.Messages)
	sh.mu.Unlock()

	metrics.StoreDepth.Observe(float64(depth))
	return nil
}

func (s *MemoryStore) GetNext(_ context.Context, did string) (message.Message, bool, error) {
	sh := s.shardFor(did)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	conn, ok := sh.conns[did]
	if !ok || len(conn.Messages) == 0 {
		return message.Message{}, false, nil
	}
	m := conn.Messages[0]
	conn.Messages = conn.Messages[1:]
	return m, true, nil
}

func (s *MemoryStore) GetMessages(_ context.Context, did string, n int) ([]message.Message, bool, error) {
	sh := s.shardFor(did)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	conn, ok := sh.conns[did]
	if !ok {
		return nil, false, nil
	}
	if n > len(conn.Messages) {
		n = len(conn.Messages)
	}
	out := make([]message.Message, n)
	copy(out, conn.Messages[:n])
	conn.Messages = conn.Messages[n:]
	return out, true, nil
}

func (s *MemoryStore) Get(_ context.Context, did string) (Connection, bool, error) {
	sh := s.shardFor(did)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	conn, ok := sh.conns[did]
	if !ok {
		return Connection{}, false, nil
	}
	msgs := make([]message.Message, len(conn.Messages))
	copy(msgs, conn.Messages)
	return Connection{DID: conn.DID, Endpoint: conn.Endpoint, Messages: msgs}, true, nil
}
