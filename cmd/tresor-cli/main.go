package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

var (
	flagStoragePath string
	flagServerURL   string
	flagModel       string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tresor-cli",
	Short: "Tresor CLI - terminal chat client for the Tresor backend",
	Long: `tresor-cli is a line-oriented chat client for the Tresor backend.

It keeps threads, messages and credentials in the same storage the
server uses, and streams AI replies through the backend relay.

Examples:
  tresor-cli register --name Ada --email ada@example.com
  tresor-cli login --email ada@example.com
  tresor-cli chat`,
	Version: version,
}

func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(chatCmd)

	rootCmd.PersistentFlags().StringVar(&flagStoragePath, "storage-path", "tresor-data.json", "Path of the chat state file")
	rootCmd.PersistentFlags().StringVar(&flagServerURL, "server", "http://localhost:5000", "Base URL of the backend relay")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "llama-3.3-70b-versatile", "Default completion model")
}
