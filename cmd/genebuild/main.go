// Package main provides the genebuild command-line tool.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "genebuild",
		Short: "Merge two gene annotation sources into a single gene set",
		Long: `genebuild clusters transcripts from two independent annotation sources
into genes, absorbs pseudogenes into overlapping coding genes, removes
redundant transcript pairs between the sources, and writes the merged
gene set to a DuckDB database.`,
		Version:           fmt.Sprintf("%s (%s) built %s", version, commit, date),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return initConfig() },
		SilenceUsage:      true,
	}

	root.AddCommand(newBuildCmd())
	root.AddCommand(newConfigCmd())

	return root
}

func initConfig() error {
	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetConfigFile(filepath.Join(home, ".genebuild.yaml"))
	}
	viper.SetEnvPrefix("GENEBUILD")
	viper.AutomaticEnv()

	viper.SetDefault("biotypes.coding", []string{"protein_coding"})
	viper.SetDefault("biotypes.processed", []string{"processed_transcript"})
	viper.SetDefault("biotypes.pseudo", []string{"pseudogene", "processed_pseudogene", "unprocessed_pseudogene"})
	viper.SetDefault("biotypes.secondary_suffix", "_curated")

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults apply.
		if _, ok := err.(*os.PathError); ok {
			return nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}
