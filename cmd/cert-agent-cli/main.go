// Command cert-agent-cli is a thin gRPC client for exercising a running
// cert-agent server by hand: issue, status, list and revoke subcommands,
// in the tradition of cert-manager's cmctl as a human-facing front end to
// an API that workloads otherwise call directly.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cert-agent/cert-agent/certagentpb"
)

var serverAddr string

func main() {
	root := &cobra.Command{
		Use:   "cert-agent-cli",
		Short: "command-line client for cert-agent",
	}
	root.PersistentFlags().StringVar(&serverAddr, "server", "localhost:50051", "cert-agent gRPC address")

	root.AddCommand(issueCmd(), statusCmd(), listCmd(), revokeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dial() (certagentpb.CertAgentClient, func(), error) {
	conn, err := grpc.NewClient(serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("dialing %s: %w", serverAddr, err)
	}
	return certagentpb.NewCertAgentClient(conn), func() { conn.Close() }, nil
}

func callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func issueCmd() *cobra.Command {
	var commonName string
	var dnsNames []string
	var validityDays int
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "issue a new certificate",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, closeFn, err := dial()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := callCtx()
			defer cancel()

			resp, err := client.IssueCertificate(ctx, &certagentpb.IssueCertificateRequest{
				CommonName:   commonName,
				DnsNames:     dnsNames,
				ValidityDays: int32(validityDays),
			})
			if err != nil {
				return fmt.Errorf("issuing certificate: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "id:      %s\n", resp.CertificateId)
			fmt.Fprintf(cmd.OutOrStdout(), "status:  %s\n", resp.Status)
			fmt.Fprintf(cmd.OutOrStdout(), "expires: %s\n", time.Unix(resp.ExpiresAt, 0).UTC().Format(time.RFC3339))
			fmt.Fprintln(cmd.OutOrStdout(), resp.CertificatePem)
			return nil
		},
	}
	cmd.Flags().StringVar(&commonName, "common-name", "", "subject common name")
	cmd.Flags().StringSliceVar(&dnsNames, "dns-name", nil, "subject alternative DNS name (repeatable)")
	cmd.Flags().IntVar(&validityDays, "validity-days", 0, "validity period in days (0 uses the server default)")
	cmd.MarkFlagRequired("common-name")
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <certificate-id>",
		Short: "show a certificate's current record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, closeFn, err := dial()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := callCtx()
			defer cancel()

			resp, err := client.GetCertificateStatus(ctx, &certagentpb.GetCertificateStatusRequest{CertificateId: args[0]})
			if err != nil {
				return fmt.Errorf("getting certificate status: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "id:      %s\n", resp.CertificateId)
			fmt.Fprintf(cmd.OutOrStdout(), "cn:      %s\n", resp.CommonName)
			fmt.Fprintf(cmd.OutOrStdout(), "dns:     %s\n", strings.Join(resp.DnsNames, ", "))
			fmt.Fprintf(cmd.OutOrStdout(), "status:  %s\n", resp.Status)
			fmt.Fprintf(cmd.OutOrStdout(), "expires: %s\n", time.Unix(resp.ExpiresAt, 0).UTC().Format(time.RFC3339))
			return nil
		},
	}
	return cmd
}

func listCmd() *cobra.Command {
	var statusFilter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list certificates",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, closeFn, err := dial()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := callCtx()
			defer cancel()

			resp, err := client.ListCertificates(ctx, &certagentpb.ListCertificatesRequest{StatusFilter: statusFilter})
			if err != nil {
				return fmt.Errorf("listing certificates: %w", err)
			}

			for _, cert := range resp.Certificates {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-12s  %s\n", cert.CertificateId, cert.Status, cert.CommonName)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&statusFilter, "status", "", "filter by status (pending, active, expired, revoked)")
	return cmd
}

func revokeCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "revoke <certificate-id>",
		Short: "revoke a certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, closeFn, err := dial()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := callCtx()
			defer cancel()

			resp, err := client.RevokeCertificate(ctx, &certagentpb.RevokeCertificateRequest{CertificateId: args[0], Reason: reason})
			if err != nil {
				return fmt.Errorf("revoking certificate: %w", err)
			}
			if !resp.Success {
				return fmt.Errorf("revoke failed: %s", resp.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "optional reason recorded in the revocation event")
	return cmd
}
