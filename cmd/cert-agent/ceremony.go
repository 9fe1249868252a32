package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cert-agent/cert-agent/cakeystore"
	"github.com/cert-agent/cert-agent/config"
)

// ceremonyCmd bootstraps or inspects a CA standalone, without starting any
// of the long-running services. This is the agent's analogue of Boulder's
// ceremony tool: an operator runs it once, out of band, before pointing
// serve at the resulting directory.
func ceremonyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ceremony",
		Short: "bootstrap or inspect the CA's key material",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			log := zerolog.New(zerolog.ConsoleWriter{Out: cmd.OutOrStdout()}).With().Timestamp().Logger()

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

			cert := ks.CACertificate()
			fmt.Fprintf(cmd.OutOrStdout(), "subject:     %s\n", cert.Subject)
			fmt.Fprintf(cmd.OutOrStdout(), "serial:      %s\n", cert.SerialNumber)
			fmt.Fprintf(cmd.OutOrStdout(), "not before:  %s\n", cert.NotBefore)
			fmt.Fprintf(cmd.OutOrStdout(), "not after:   %s\n", cert.NotAfter)
			fmt.Fprintf(cmd.OutOrStdout(), "key bits:    %d\n", ks.KeyBits())
			return nil
		},
	}
}
