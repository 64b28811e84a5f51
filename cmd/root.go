package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kennel-portal/config"
	"kennel-portal/observability"
)

var (
	configPath string
	appCfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "kennel-portal",
	Short: "Buyer portal backend with a tool-calling assistant",
	Long: `kennel-portal serves the buyer portal API for a small dog-breeding program.
It exposes puppy listings, caller-scoped application and message views, and an
assistant endpoint that can look up puppies, check applications, message the
breeder and hand out the deposit payment link.

Completion service settings come from OPENAI_BASE_URL, OPENAI_API_KEY and OPENAI_MODEL.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.InitConfig(configPath)
		if err != nil {
			return err
		}
		observability.InitLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
		appCfg = cfg
		return nil
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config/config.toml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
