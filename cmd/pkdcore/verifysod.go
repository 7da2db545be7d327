package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iland112/icao-pkd-core/pkg/pkdprovider/memory"
	"github.com/iland112/icao-pkd-core/pkg/pkdverify"
)

func newVerifySodCommand(pkdHome *string) *cobra.Command {
	var country string
	var dgFiles []string
	cmd := &cobra.Command{
		Use:   "verify-sod <sod-file>",
		Short: "Run the 8-step passive authentication sequence against a passport SOD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if country == "" {
				return &usageError{reason: "--country is required"}
			}
			sodDER, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			dataGroups, err := loadDataGroups(dgFiles)
			if err != nil {
				return err
			}

			home := resolvePkdHome(*pkdHome)
			cscaProvider := memory.New()
			if err := cscaProvider.LoadCscaDir(home); err != nil {
				log.WithError(err).Warn("failed to load CSCA directory")
			}
			crlProvider := memory.New()
			if err := crlProvider.LoadCrlDir(home); err != nil {
				log.WithError(err).Warn("failed to load CRL directory")
			}

			report := pkdverify.VerifySOD(sodDER, dataGroups, country, cscaProvider, crlProvider, nil, log.WithField("command", "verify-sod"))

			fmt.Printf("Verification ID: %s\n", report.VerificationID)
			fmt.Printf("Overall status:  %s\n", report.OverallStatus)
			fmt.Printf("Leaf:            %s\n", report.LeafIdentity)
			fmt.Printf("Duration:        %s\n", report.Duration)
			for _, step := range report.Steps {
				fmt.Printf("  [%-8s] %-22s %s\n", step.Status, step.Name, step.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&country, "country", "", "ISO 3166-1 alpha-2/3 issuing country code")
	cmd.Flags().StringArrayVar(&dgFiles, "dg", nil, "path to a Data Group file named DG<n>.bin, repeatable")
	return cmd
}

func loadDataGroups(paths []string) (map[int][]byte, error) {
	out := make(map[int][]byte, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		n, err := dataGroupNumberFromPath(path)
		if err != nil {
			return nil, err
		}
		out[n] = data
	}
	return out, nil
}

func dataGroupNumberFromPath(path string) (int, error) {
	base := filepath.Base(path)
	var n int
	if _, err := fmt.Sscanf(base, "DG%d", &n); err != nil {
		return 0, fmt.Errorf("cannot infer data group number from filename %q (expected DG<n>...)", base)
	}
	return n, nil
}
