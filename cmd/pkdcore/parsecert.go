package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iland112/icao-pkd-core/pkg/pkdcert"
)

func newParseCertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse-cert <file>",
		Short: "Parse a PEM or DER certificate and print its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cert, err := pkdcert.ParseAuto(args[0], data)
			if err != nil {
				return err
			}
			printCert(cert)
			return nil
		},
	}
}

func printCert(cert pkdcert.Certificate) {
	fmt.Printf("Subject:          %s\n", cert.SubjectString)
	fmt.Printf("Issuer:           %s\n", cert.IssuerString)
	fmt.Printf("Serial:           %s\n", cert.SerialNumberHex)
	fmt.Printf("Not Before:       %s\n", cert.NotBefore.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("Not After:        %s\n", cert.NotAfter.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("Classification:   %s\n", cert.Classification)
	fmt.Printf("Country:          %s\n", cert.CountryCode)
	fmt.Printf("Self-signed:      %t\n", cert.SelfSigned)
	fmt.Printf("Public key:       %s, %d bits\n", cert.PublicKeyAlgorithm, cert.KeySizeBits)
	fmt.Printf("Signature:        %s\n", cert.SignatureAlgorithmName)
	fmt.Printf("Fingerprint:      %s\n", cert.Fingerprint)
}
