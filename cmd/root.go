package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wislaw/lexchat/pkg/config"
	"github.com/wislaw/lexchat/pkg/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "lexchat",
	Short: "Terminal client for the Wisconsin legal research backend",
	Long: `lexchat streams answers from a legal RAG backend, tracks the
conversation with source citations, and auto-saves completed sessions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := logger.Init(); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		defer logger.Close()

		if viper.GetBool("no-autosave") {
			cfg.AutoSave.Enabled = false
		}

		app, err := newApp(cfg)
		if err != nil {
			return err
		}

		if prompt := viper.GetString("prompt"); prompt != "" {
			return app.runOnce(prompt)
		}
		return app.runInteractive()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is .lexchat/settings.yaml)")

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().String("backend", "", "backend base URL")
	viper.BindPFlag("backend.url", rootCmd.PersistentFlags().Lookup("backend"))

	rootCmd.Flags().StringP("prompt", "p", "", "ask a single question and exit")
	viper.BindPFlag("prompt", rootCmd.Flags().Lookup("prompt"))

	rootCmd.Flags().Bool("no-autosave", false, "disable session auto-save")
	viper.BindPFlag("no-autosave", rootCmd.Flags().Lookup("no-autosave"))

	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(documentsCmd)
}
