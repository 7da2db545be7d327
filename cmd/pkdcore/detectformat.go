package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iland112/icao-pkd-core/pkg/pkdformat"
)

func newDetectFormatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect-format <file>",
		Short: "Classify a file's container format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			format := pkdformat.DetectFormat(filepath.Base(path), data)
			fmt.Println(format)
			return nil
		},
	}
}
