package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iland112/icao-pkd-core/pkg/pkdcert"
	"github.com/iland112/icao-pkd-core/pkg/pkdcrl"
	"github.com/iland112/icao-pkd-core/pkg/pkdprovider/memory"
)

func newCrlCheckCommand(pkdHome *string) *cobra.Command {
	var country string
	cmd := &cobra.Command{
		Use:   "crl-check <cert-file>",
		Short: "Check a certificate's revocation status against a per-country CRL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if country == "" {
				return &usageError{reason: "--country is required"}
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cert, err := pkdcert.ParseAuto(args[0], data)
			if err != nil {
				return err
			}

			provider := memory.New()
			if err := provider.LoadCrlDir(resolvePkdHome(*pkdHome)); err != nil {
				log.WithError(err).Warn("failed to load CRL directory")
			}

			result := pkdcrl.Check(cert, country, provider)
			fmt.Printf("Status: %s\n", result.Status)
			if result.Status == pkdcrl.StatusRevoked {
				fmt.Printf("Reason: %s\n", result.RevocationReason)
			}
			if !result.ThisUpdate.IsZero() {
				fmt.Printf("This Update: %s\n", result.ThisUpdate.Format("2006-01-02T15:04:05Z"))
				fmt.Printf("Next Update: %s\n", result.NextUpdate.Format("2006-01-02T15:04:05Z"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&country, "country", "", "ISO 3166-1 alpha-2/3 country code")
	return cmd
}
