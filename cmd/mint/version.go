package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const buildVersion = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the mint version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mint version %s\n", buildVersion)
	},
}
