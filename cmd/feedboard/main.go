// Package main is the entry point for the feedboard CLI.
//
// Running feedboard without a subcommand opens the reader. The other
// subcommands work on the data file directly and never touch the network.
//
// Usage:
//
//	feedboard                               # Open the reader
//	feedboard -c config.yaml                # Open the reader with a config file
//	feedboard add https://go.dev/blog/feed.atom --category Go
//	feedboard list                          # List subscriptions
//	feedboard category rename Go Golang     # Manage categories
//	feedboard validate -c config.yaml       # Validate configuration
//	feedboard version                       # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd opens the reader when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "feedboard",
	Short: "A terminal RSS and Atom reader",
	Long: `feedboard is a terminal RSS and Atom reader.

It keeps your subscriptions fresh in the background, spacing requests to
each host and backing off from hosts that time out or rate limit, and
shows the newest items from every feed on one dashboard.

Quick start:
  1. Run: feedboard add https://go.dev/blog/feed.atom
  2. Run: feedboard
  3. tab switches views, enter opens an item, q quits

Example config:
  refresh_interval: 30m
  domain_delay: 2s
  theme: dark
  feeds:
    - url: https://go.dev/blog/feed.atom
      category: Go`,
	SilenceUsage: true,
	RunE:         runRead,
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this feedboard binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "feedboard %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file (optional)")
	rootCmd.Flags().Bool("quiet", false, "discard the log instead of writing the log file")

	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
