// flacdump is a command-line driver for the flac decoder: decoding,
// metadata inspection, seeking, and WAV export.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coreflac/flac/internal/tracelog"
)

var verbose bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "flacdump: %+v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "flacdump FILE",
	Short: "Decode, inspect, and seek FLAC streams",
	Args:  cobra.ExactArgs(1),
	// A bare `flacdump FILE` aliases to `decode FILE`.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDecode(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug tracing")
	cobra.OnInitialize(func() {
		if verbose {
			tracelog.EnableStderrDebug()
		}
	})

	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(seekCmd)
	rootCmd.AddCommand(exportCmd)
}
