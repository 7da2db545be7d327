package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iland112/icao-pkd-core/pkg/pkdcms"
)

func newMasterlistInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "masterlist-inspect <file>",
		Short: "Parse a CMS-wrapped Master List and print its embedded CSCAs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			env, err := pkdcms.ParseMasterList(data)
			if err != nil {
				return err
			}
			fmt.Printf("Signer:             %s\n", env.SignerCertificate.SubjectString)
			fmt.Printf("Signature verified: %t\n", env.SignatureVerified)
			fmt.Printf("Embedded CSCAs:     %d\n", len(env.CSCAs))
			for _, c := range env.CSCAs {
				fmt.Printf("  - %s (%s)\n", c.SubjectString, c.Fingerprint)
			}
			return nil
		},
	}
}

func newDeviationlistInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deviationlist-inspect <file>",
		Short: "Parse a CMS-wrapped Deviation List and print its entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			env, err := pkdcms.ParseDeviationList(data)
			if err != nil {
				return err
			}
			fmt.Printf("Signer:             %s\n", env.SignerCertificate.SubjectString)
			fmt.Printf("Signature verified: %t\n", env.SignatureVerified)
			fmt.Printf("Entries:            %d\n", len(env.Entries))
			for _, e := range env.Entries {
				fmt.Printf("  - issuer=%s serial=%s category=%s (%s)\n", e.TargetIssuerDn, e.TargetSerialHex, e.DefectCategory, e.Description)
			}
			return nil
		},
	}
}
