// Command pkdcore is a demonstration CLI over the PKD certificate
// validation core: format detection, certificate/CMS inspection,
// trust-chain building, CRL checking, and SOD passive-authentication
// verification, all backed by an in-memory provider loaded from a
// directory of PEM/DER files. Subcommand-per-verb dispatch,
// --pkd-home/PKD_HOME precedence, and staged exit codes are built on
// cobra.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const exitUsage = 2
const exitOperational = 1

var log = logrus.New()

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			os.Exit(exitUsage)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitOperational)
	}
}

// usageError marks an error as a CLI usage mistake (exit code 2) rather
// than an operational failure (exit code 1).
type usageError struct{ reason string }

func (e *usageError) Error() string { return e.reason }

func newRootCommand() *cobra.Command {
	var pkdHome string
	var logLevel string

	cmd := &cobra.Command{
		Use:           "pkdcore",
		Short:         "ICAO 9303 PKD certificate validation core",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return &usageError{reason: "invalid --log-level: " + logLevel}
			}
			log.SetLevel(level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&pkdHome, "pkd-home", "", "PKD data directory (default: $PKD_HOME or ./pkd-data)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	cmd.AddCommand(
		newDetectFormatCommand(),
		newParseCertCommand(),
		newChainBuildCommand(&pkdHome),
		newCrlCheckCommand(&pkdHome),
		newMasterlistInspectCommand(),
		newDeviationlistInspectCommand(),
		newVerifySodCommand(&pkdHome),
	)
	return cmd
}

// resolvePkdHome implements --pkd-home flag > PKD_HOME env > "./pkd-data".
func resolvePkdHome(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envVal := os.Getenv("PKD_HOME"); envVal != "" {
		return envVal
	}
	return "./pkd-data"
}
