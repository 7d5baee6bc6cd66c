// Command mint builds Intel HEX or Motorola S-record memory images from
// one or more TOML layout files, resolving field values against a
// version-stacked external data source.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
