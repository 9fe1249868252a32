// Package lifecycle answers read-only questions about issued certificates:
// their current status, the full inventory, and which ones are closing in
// on expiry. It holds no state of its own; it is a thin query layer over
// store, kept separate so the RPC facade's read path never has to know
// about redis directly.
package lifecycle

import (
	"context"

	"github.com/cert-agent/cert-agent/core"
	"github.com/cert-agent/cert-agent/store"
)

// Lifecycle answers status and inventory queries against a Store.
type Lifecycle struct {
	st *store.Store
}

// New builds a Lifecycle backed by st.
func New(st *store.Store) *Lifecycle {
	return &Lifecycle{st: st}
}

// Status returns the current record for id.
func (l *Lifecycle) Status(ctx context.Context, id string) (*core.CertificateRecord, error) {
	return l.st.Get(ctx, id)
}

// List returns every record, optionally filtered to a single status.
func (l *Lifecycle) List(ctx context.Context, status *core.Status) ([]*core.CertificateRecord, error) {
	return l.st.List(ctx, status)
}

// ExpiringWithin returns every active record that expires strictly within
// thresholdDays of now, matching CertificateRecord.ExpiresWithin.
func (l *Lifecycle) ExpiringWithin(ctx context.Context, now int64, thresholdDays int) ([]*core.CertificateRecord, error) {
	active := core.StatusActive
	all, err := l.st.List(ctx, &active)
	if err != nil {
		return nil, err
	}
	expiring := make([]*core.CertificateRecord, 0, len(all))
	for _, record := range all {
		if record.ExpiresWithin(now, thresholdDays) {
			expiring = append(expiring, record)
		}
	}
	return expiring, nil
}
