package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iland112/icao-pkd-core/pkg/pkdcert"
	"github.com/iland112/icao-pkd-core/pkg/pkdchain"
	"github.com/iland112/icao-pkd-core/pkg/pkdprovider/memory"
)

func newChainBuildCommand(pkdHome *string) *cobra.Command {
	var maxDepth int
	cmd := &cobra.Command{
		Use:   "chain-build <leaf-cert-file>",
		Short: "Build a trust chain from a leaf certificate up to a root CSCA",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			leaf, err := pkdcert.ParseAuto(args[0], data)
			if err != nil {
				return err
			}

			provider := memory.New()
			if err := provider.LoadCscaDir(resolvePkdHome(*pkdHome)); err != nil {
				log.WithError(err).Warn("failed to load CSCA directory")
			}

			result := pkdchain.Build(leaf, provider, maxDepth)
			if !result.Valid {
				fmt.Printf("Chain: INVALID (%s)\n", result.FailureReason)
				return nil
			}

			fmt.Printf("Chain: VALID\n")
			fmt.Printf("Path:  %s\n", result.PathString)
			fmt.Printf("Root:  %s\n", result.RootFingerprint)
			if result.DscExpired {
				fmt.Println("Note:  leaf certificate is expired (informational)")
			}
			if result.CscaExpired {
				fmt.Println("Note:  a non-leaf certificate in the chain is expired (informational)")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxDepth, "max-depth", 10, "maximum chain depth")
	return cmd
}
