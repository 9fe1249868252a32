// Package store is the capability that persists CertificateRecords,
// maintains the "all certificates" index, and publishes lifecycle events.
// It is the only component that talks to redis; every other package
// depends on this one, never on the redis client directly.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cert-agent/cert-agent/agenterrors"
	"github.com/cert-agent/cert-agent/core"
)

const (
	// recordTTL is the safety-net TTL applied to every cert:<id> blob. It
	// is refreshed on every status update; records that go a full year
	// without a renewal or a status flip silently disappear.
	recordTTL = 365 * 24 * time.Hour

	allIndexKey  = "certs:all"
	eventChannel = "cert_events"
)

func recordKey(id string) string {
	return "cert:" + id
}

// Store wraps a redis client with the five operations spec.md assigns to
// the store capability. It holds no other state; connections are taken
// from the client's built-in pool per call, matching the spec's "short-
// lived connection from a pool" model.
type Store struct {
	rdb *redis.Client
	log zerolog.Logger
}

// Config describes how to reach the redis backend.
type Config struct {
	URL            string
	MaxConnections int
}

// New builds a Store from a redis connection URL (e.g.
// redis://localhost:6379) and a pool size.
func New(cfg Config, log zerolog.Logger) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, agenterrors.InvalidRequestError("invalid redis url: %s", err)
	}
	if cfg.MaxConnections > 0 {
		opts.PoolSize = cfg.MaxConnections
	}
	return &Store{rdb: redis.NewClient(opts), log: log.With().Str("component", "store").Logger()}, nil
}

// NewFromClient wraps an already-constructed redis client. Used by tests
// to point the store at a miniredis instance.
func NewFromClient(rdb *redis.Client, log zerolog.Logger) *Store {
	return &Store{rdb: rdb, log: log.With().Str("component", "store").Logger()}
}

// Put serializes record and writes it under cert:<id>, adding id to the
// certs:all index. The blob carries the one-year safety-net TTL.
func (s *Store) Put(ctx context.Context, record *core.CertificateRecord) error {
	blob, err := json.Marshal(record)
	if err != nil {
		return agenterrors.SerializationError("encoding certificate record %s: %s", record.ID, err)
	}
	if err := s.rdb.Set(ctx, recordKey(record.ID), blob, recordTTL).Err(); err != nil {
		return agenterrors.StoreError("writing certificate record %s: %s", record.ID, err)
	}
	if err := s.rdb.SAdd(ctx, allIndexKey, record.ID).Err(); err != nil {
		return agenterrors.StoreError("indexing certificate record %s: %s", record.ID, err)
	}
	return nil
}

// Get returns the record for id, or a NotFound AgentError if absent.
func (s *Store) Get(ctx context.Context, id string) (*core.CertificateRecord, error) {
	blob, err := s.rdb.Get(ctx, recordKey(id)).Bytes()
	if err == redis.Nil {
		return nil, agenterrors.NotFoundError("certificate %s not found", id)
	}
	if err != nil {
		return nil, agenterrors.StoreError("reading certificate record %s: %s", id, err)
	}
	var record core.CertificateRecord
	if err := json.Unmarshal(blob, &record); err != nil {
		return nil, agenterrors.SerializationError("decoding certificate record %s: %s", id, err)
	}
	return &record, nil
}

// UpdateStatus loads the record, flips its status, and writes it back,
// refreshing the TTL. A missing id is a silent no-op: this keeps Revoke
// idempotent, per spec.
func (s *Store) UpdateStatus(ctx context.Context, id string, newStatus core.Status) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		if agenterrors.Is(err, agenterrors.NotFound) {
			return nil
		}
		return err
	}
	record.Status = newStatus
	return s.Put(ctx, record)
}

// List enumerates certs:all, fetching and optionally filtering by status.
// Order is unspecified.
func (s *Store) List(ctx context.Context, status *core.Status) ([]*core.CertificateRecord, error) {
	ids, err := s.rdb.SMembers(ctx, allIndexKey).Result()
	if err != nil {
		return nil, agenterrors.StoreError("listing certificate index: %s", err)
	}
	records := make([]*core.CertificateRecord, 0, len(ids))
	for _, id := range ids {
		record, err := s.Get(ctx, id)
		if err != nil {
			if agenterrors.Is(err, agenterrors.NotFound) {
				// Indexed but TTL-expired or otherwise vanished; skip rather
				// than fail the whole listing.
				continue
			}
			return nil, err
		}
		if status != nil && record.Status != *status {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// Delete removes a record from both the primary key and the index. It is
// used by cleanup, which is the only caller allowed to make a record
// disappear before its TTL.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, recordKey(id)).Err(); err != nil {
		return agenterrors.StoreError("deleting certificate record %s: %s", id, err)
	}
	if err := s.rdb.SRem(ctx, allIndexKey, id).Err(); err != nil {
		return agenterrors.StoreError("removing %s from certificate index: %s", id, err)
	}
	return nil
}

// Publish sends a fire-and-forget "<event>:<data>" message to cert_events.
// Delivery failure is logged at warn and never returned to the caller.
func (s *Store) Publish(ctx context.Context, event, data string) {
	payload := fmt.Sprintf("%s:%s", event, data)
	if err := s.rdb.Publish(ctx, eventChannel, payload).Err(); err != nil {
		s.log.Warn().Err(err).Str("event", event).Msg("failed to publish cert event")
	}
}

// Subscribe returns a live feed of cert_events messages. Callers are
// responsible for closing the returned PubSub.
func (s *Store) Subscribe(ctx context.Context) *redis.PubSub {
	return s.rdb.Subscribe(ctx, eventChannel)
}

// Close releases the underlying redis client's connections.
func (s *Store) Close() error {
	return s.rdb.Close()
}
