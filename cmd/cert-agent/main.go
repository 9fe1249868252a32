// Command cert-agent runs the certificate lifecycle engine: the gRPC
// facade and the background renewal loop, both backed by a single redis
// store and a single CA keystore. It also exposes a ceremony subcommand
// for bootstrapping a CA standalone, the way Boulder's ceremony tool
// operates independently of the long-running services.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cert-agent/cert-agent/cakeystore"
	"github.com/cert-agent/cert-agent/config"
	"github.com/cert-agent/cert-agent/issuer"
	"github.com/cert-agent/cert-agent/lifecycle"
	"github.com/cert-agent/cert-agent/renewer"
	"github.com/cert-agent/cert-agent/rpcapi"
	"github.com/cert-agent/cert-agent/store"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "cert-agent",
		Short: "mTLS certificate lifecycle engine",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(serveCmd(), ceremonyCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the gRPC server and renewal loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-address", ":9090", "address to serve Prometheus metrics on")
	return cmd
}

func runServe(metricsAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := newLogger(cfg.Log.Level)
	log.Info().Str("config", configPath).Msg("starting cert-agent")

	ks, err := cakeystore.Load(cakeystore.Config{
		Dir:          cfg.Certificate.CADir,
		CommonName:   cfg.Certificate.CACommonName,
		Organization: cfg.Certificate.CAOrganization,
		Country:      cfg.Certificate.CACountry,
		KeyBits:      cfg.Certificate.KeySize,
	}, log)
	if err != nil {
		return fmt.Errorf("loading CA: %w", err)
	}

	st, err := store.New(store.Config{URL: cfg.Redis.URL, MaxConnections: cfg.Redis.MaxConnections}, log)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer st.Close()

	iss := issuer.New(issuer.Config{
		Dir:                 cfg.Certificate.StoragePath,
		DefaultValidityDays: cfg.Certificate.DefaultValidityDays,
	}, ks, st, log)
	life := lifecycle.New(st)

	metrics := renewer.NewMetrics(prometheus.DefaultRegisterer)
	renew := renewer.New(renewer.Config{
		CheckInterval:         time.Duration(cfg.Watcher.CheckIntervalSeconds) * time.Second,
		RenewalThresholdDays:  cfg.Watcher.RenewalThresholdDays,
		MaxConcurrentRenewals: int64(cfg.Watcher.MaxConcurrentRenewals),
		CleanupAfterDays:      cfg.Watcher.CleanupAfterDays,
	}, iss, life, st, metrics, log)

	var tlsCfg rpcapi.TLSConfig
	if cfg.GRPC.TLS.Enabled {
		serverCert, err := os.ReadFile(cfg.GRPC.TLS.ServerCertFile)
		if err != nil {
			return fmt.Errorf("reading TLS server cert: %w", err)
		}
		serverKey, err := os.ReadFile(cfg.GRPC.TLS.ServerKeyFile)
		if err != nil {
			return fmt.Errorf("reading TLS server key: %w", err)
		}
		var clientCA []byte
		if cfg.GRPC.TLS.ClientCACertFile != "" {
			clientCA, err = os.ReadFile(cfg.GRPC.TLS.ClientCACertFile)
			if err != nil {
				return fmt.Errorf("reading TLS client CA cert: %w", err)
			}
		}
		tlsCfg = rpcapi.TLSConfig{
			Enabled:           true,
			ServerCertPEM:     serverCert,
			ServerKeyPEM:      serverKey,
			ClientCACertPEM:   clientCA,
			RequireClientCert: cfg.GRPC.TLS.RequireClientCert,
		}
	}

	rpcServer := rpcapi.New(rpcapi.Config{BindAddress: cfg.GRPC.BindAddress, TLS: tlsCfg}, iss, life, st, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Error().Err(err).Msg("metrics server exited")
		}
	}()

	go renew.Run(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- rpcServer.Serve(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
		return nil
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(lvl).With().Timestamp().Logger()
}
