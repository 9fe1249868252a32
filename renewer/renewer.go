// Package renewer runs the background renewal loop: on a strict tick, it
// finds every active certificate expiring soon and renews it, bounding how
// many renewals run at once. It also offers a health-summary sweep and a
// cleanup sweep for expired records; the loop does not call either, they
// run only when a caller invokes them. Grounded on the tokio-interval-plus-semaphore
// fan-out in the original watcher, restructured around x/sync/semaphore
// and a plain time.Ticker, in the idiom of Boulder's periodic-job binaries
// under cmd/.
package renewer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/cert-agent/cert-agent/core"
	"github.com/cert-agent/cert-agent/issuer"
	"github.com/cert-agent/cert-agent/lifecycle"
	"github.com/cert-agent/cert-agent/store"
)

// Config controls the renewal loop's cadence and concurrency.
type Config struct {
	// CheckInterval is how often the loop looks for expiring certificates.
	CheckInterval time.Duration

	// RenewalThresholdDays is how far ahead of expiry a certificate is
	// considered due for renewal.
	RenewalThresholdDays int

	// MaxConcurrentRenewals bounds how many renewals run at once per tick.
	MaxConcurrentRenewals int64

	// CleanupAfterDays is a retention period for expired records (default
	// 30). Neither Run nor CleanupExpired reads it: CleanupExpired takes its
	// retention as the daysOld argument.
	CleanupAfterDays int
}

func (c Config) threshold() int {
	if c.RenewalThresholdDays == 0 {
		return 30
	}
	return c.RenewalThresholdDays
}

func (c Config) concurrency() int64 {
	if c.MaxConcurrentRenewals == 0 {
		return 10
	}
	return c.MaxConcurrentRenewals
}

func (c Config) cleanupAfter() int {
	if c.CleanupAfterDays == 0 {
		return 30
	}
	return c.CleanupAfterDays
}

// Metrics is the set of prometheus collectors the renewer reports through.
// Callers register these once at process startup alongside every other
// component's metrics.
type Metrics struct {
	RenewalsTotal *prometheus.CounterVec
	TickDuration  prometheus.Histogram
}

// NewMetrics builds a Metrics with the counters the renewer updates.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RenewalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cert_agent_renewals_total",
			Help: "Count of automatic renewal attempts by outcome.",
		}, []string{"outcome"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "cert_agent_renewal_tick_seconds",
			Help: "Wall time spent processing one renewal tick.",
		}),
	}
	reg.MustRegister(m.RenewalsTotal, m.TickDuration)
	return m
}

// Renewer owns the background renewal loop and the on-demand health-check
// and cleanup sweeps.
type Renewer struct {
	cfg     Config
	issuer  *issuer.Issuer
	life    *lifecycle.Lifecycle
	st      *store.Store
	metrics *Metrics
	log     zerolog.Logger
}

// New builds a Renewer. metrics may be nil, in which case renewal counts
// are logged but not exported.
func New(cfg Config, iss *issuer.Issuer, life *lifecycle.Lifecycle, st *store.Store, metrics *Metrics, log zerolog.Logger) *Renewer {
	return &Renewer{
		cfg:     cfg,
		issuer:  iss,
		life:    life,
		st:      st,
		metrics: metrics,
		log:     log.With().Str("component", "renewer").Logger(),
	}
}

// Run blocks, ticking strictly every cfg.CheckInterval until ctx is
// canceled. Each tick fully joins before the next one is allowed to start;
// a slow tick delays the next one rather than overlapping it, so there is
// no catch-up behavior for missed ticks.
func (r *Renewer) Run(ctx context.Context) {
	r.log.Info().Dur("interval", r.cfg.CheckInterval).Msg("starting renewal loop")

	ticker := time.NewTicker(r.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("renewal loop stopping")
			return
		case <-ticker.C:
			start := time.Now()
			if err := r.tick(ctx); err != nil {
				r.log.Error().Err(err).Msg("renewal tick failed")
			}
			if r.metrics != nil {
				r.metrics.TickDuration.Observe(time.Since(start).Seconds())
			}
		}
	}
}

// tick finds every certificate expiring within the configured threshold
// and renews each one, bounded by MaxConcurrentRenewals in flight at a
// time. It joins all renewals before returning: this is the "Collecting"
// phase, and nothing about the next tick begins until it's done.
func (r *Renewer) tick(ctx context.Context) error {
	expiring, err := r.life.ExpiringWithin(ctx, time.Now().Unix(), r.cfg.threshold())
	if err != nil {
		return err
	}
	if len(expiring) == 0 {
		r.log.Debug().Msg("no certificates need renewal")
		return nil
	}
	r.log.Info().Int("count", len(expiring)).Msg("found certificates that need renewal")

	sem := semaphore.NewWeighted(r.cfg.concurrency())
	results := make(chan bool, len(expiring))

	for _, record := range expiring {
		record := record
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context canceled; stop launching new renewals but still
			// drain what's already in flight below.
			results <- false
			continue
		}
		go func() {
			defer sem.Release(1)
			results <- r.renewOne(ctx, record)
		}()
	}

	succeeded, failed := 0, 0
	for range expiring {
		if <-results {
			succeeded++
		} else {
			failed++
		}
	}
	r.log.Info().Int("succeeded", succeeded).Int("failed", failed).Msg("certificate renewal batch completed")
	return nil
}

func (r *Renewer) renewOne(ctx context.Context, record *core.CertificateRecord) bool {
	r.log.Info().Str("id", record.ID).Msg("renewing certificate")

	result, err := r.issuer.Renew(ctx, record.ID, 0)
	if err != nil {
		r.log.Error().Err(err).Str("id", record.ID).Msg("failed to renew certificate")
		r.st.Publish(ctx, "renewal_failed", fmt.Sprintf("%s:%s", record.ID, err))
		r.count("failed")
		return false
	}

	// Issuer.Renew already revoked the predecessor and published "revoked";
	// the renewer only adds the auto_renewed event on top of that.
	r.st.Publish(ctx, "auto_renewed", result.ID)
	r.count("succeeded")
	return true
}

func (r *Renewer) count(outcome string) {
	if r.metrics != nil {
		r.metrics.RenewalsTotal.WithLabelValues(outcome).Inc()
	}
}

// CheckHealth tallies certificates by status and publishes a summary
// event. It is exposed separately from the renewal tick so callers can run
// it on a different cadence, or on demand.
func (r *Renewer) CheckHealth(ctx context.Context) error {
	all, err := r.life.List(ctx, nil)
	if err != nil {
		return err
	}

	var active, expired, revoked int
	for _, record := range all {
		switch record.Status {
		case core.StatusActive:
			active++
		case core.StatusExpired:
			expired++
		case core.StatusRevoked:
			revoked++
		}
	}

	r.log.Info().Int("active", active).Int("expired", expired).Int("revoked", revoked).Msg("certificate health check")
	r.st.Publish(ctx, "health_check", fmt.Sprintf("active:%d,expired:%d,revoked:%d", active, expired, revoked))
	return nil
}

// CleanupExpired removes the record and leaf files for every expired
// certificate whose expiry is older than daysOld. Unlike revoke, cleanup
// is destructive: once a record is old enough to be swept, its files have
// no remaining audit value and are deleted along with it.
func (r *Renewer) CleanupExpired(ctx context.Context, daysOld int) error {
	cutoff := time.Now().Unix() - int64(daysOld)*86400
	expired := core.StatusExpired
	candidates, err := r.life.List(ctx, &expired)
	if err != nil {
		return err
	}

	cleaned := 0
	for _, record := range candidates {
		if record.ExpiresAt >= cutoff {
			continue
		}
		if err := r.st.Delete(ctx, record.ID); err != nil {
			r.log.Warn().Err(err).Str("id", record.ID).Msg("failed to delete expired certificate")
			continue
		}
		if err := os.Remove(r.issuer.LeafCertPath(record.ID)); err != nil && !os.IsNotExist(err) {
			r.log.Warn().Err(err).Str("id", record.ID).Msg("failed to delete leaf certificate file for expired certificate")
		}
		if err := os.Remove(r.issuer.LeafKeyPath(record.ID)); err != nil && !os.IsNotExist(err) {
			r.log.Warn().Err(err).Str("id", record.ID).Msg("failed to delete leaf key file for expired certificate")
		}
		cleaned++
		r.log.Info().Str("id", record.ID).Msg("cleaned up expired certificate")
	}

	if cleaned > 0 {
		r.st.Publish(ctx, "cleanup", fmt.Sprintf("removed:%d", cleaned))
	}
	return nil
}
