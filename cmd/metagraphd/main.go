package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.3.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "metagraphd",
		Short:   "metagraphd - co-occurrence graph layout server",
		Long:    "Serves interactive force-directed layouts of entity co-occurrence graphs\nover websocket sessions, plus offline layout tooling.",
		Version: version,
	}
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newLayoutCommand())
	rootCmd.AddCommand(newGenDataCommand())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
