package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cert-agent/cert-agent/agenterrors"
	"github.com/cert-agent/cert-agent/core"
	"github.com/cert-agent/cert-agent/store"
)

func newTestLifecycle(t *testing.T) (*Lifecycle, *store.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	st := store.NewFromClient(rdb, zerolog.Nop())
	return New(st), st
}

func TestStatusReturnsRecord(t *testing.T) {
	l, st := newTestLifecycle(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, &core.CertificateRecord{ID: "a", Status: core.StatusActive}))

	record, err := l.Status(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, core.StatusActive, record.Status)
}

func TestStatusNotFound(t *testing.T) {
	l, _ := newTestLifecycle(t)
	_, err := l.Status(context.Background(), "missing")
	require.True(t, agenterrors.Is(err, agenterrors.NotFound))
}

func TestExpiringWithinUsesStrictLowerBound(t *testing.T) {
	l, st := newTestLifecycle(t)
	ctx := context.Background()
	now := time.Now().Unix()

	// Expires in exactly 5 days: within a 7-day threshold.
	require.NoError(t, st.Put(ctx, &core.CertificateRecord{ID: "soon", Status: core.StatusActive, ExpiresAt: now + 5*86400}))
	// Expires in 30 days: outside a 7-day threshold.
	require.NoError(t, st.Put(ctx, &core.CertificateRecord{ID: "later", Status: core.StatusActive, ExpiresAt: now + 30*86400}))
	// Already expired: excluded even though "within" 7 days arithmetically.
	require.NoError(t, st.Put(ctx, &core.CertificateRecord{ID: "already-expired", Status: core.StatusActive, ExpiresAt: now - 60}))
	// Revoked but otherwise expiring soon: excluded, only active certs renew.
	require.NoError(t, st.Put(ctx, &core.CertificateRecord{ID: "revoked-soon", Status: core.StatusRevoked, ExpiresAt: now + 5*86400}))

	expiring, err := l.ExpiringWithin(ctx, now, 7)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	require.Equal(t, "soon", expiring[0].ID)
}

func TestListAll(t *testing.T) {
	l, st := newTestLifecycle(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, &core.CertificateRecord{ID: "a", Status: core.StatusActive}))
	require.NoError(t, st.Put(ctx, &core.CertificateRecord{ID: "b", Status: core.StatusRevoked}))

	all, err := l.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
}
