package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JoshuaRamirez/ACS-sub017/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "acsd",
	Short: "Multi-tenant access control service",
	Long: `acsd runs a multi-tenant access control service. The serve command starts
the front router, which spawns one isolated worker process per tenant; each
worker owns its tenant's user/group/role graph and answers permission checks.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().String("server-addr", "", "Router bind address (env: SERVER_ADDR)")
	rootCmd.PersistentFlags().String("data-dir", "", "Per-tenant database directory (env: ACS_DATA_DIR)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: DEBUG)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
