package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wislaw/lexchat/pkg/config"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Backend.Timeout)
		defer cancel()

		summaries, err := a.store.List(ctx)
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Println("No saved sessions.")
			return nil
		}
		for _, s := range summaries {
			fmt.Printf("%-30s %-50s %d exchanges\n", s.ChatName, s.Filename, s.ExchangeCount)
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <filename>",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Backend.Timeout)
		defer cancel()

		if err := a.store.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("Deleted", args[0])
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <filename>",
	Short: "Print a saved session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Backend.Timeout)
		defer cancel()

		saved, err := a.store.Load(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(headerStyle.Render(saved.ChatName))
		for _, ex := range saved.Exchanges {
			fmt.Println(promptStyle.Render("> ") + ex.Question)
			fmt.Println(ex.Answer)
			a.printSources(ex.Sources)
			fmt.Println()
		}
		return nil
	},
}

// loadApp builds an app for subcommands that bypass the root Run.
func loadApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return newApp(cfg)
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
}
