package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	configDir string
	verbose   bool

	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "wordflux",
	Short: "Chat-operated Kanban command core",
	Long: `wordflux executes chat commands against a Kanban board: create,
move, update, tag, list, search, due dates, undo, and gated bulk tidy.
Run "wordflux serve" to expose the HTTP chat endpoint.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the wordflux version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wordflux %s\n", Version)
	},
}

func main() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer rootCancel()

	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Directory containing config.yaml (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.ExecuteContext(rootCtx); err != nil {
		os.Exit(1)
	}
}
