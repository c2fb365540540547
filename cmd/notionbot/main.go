package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/notionbot/internal/app"
	"github.com/MrSnakeDoc/notionbot/internal/config"
	"github.com/MrSnakeDoc/notionbot/internal/logger"
	"github.com/MrSnakeDoc/notionbot/internal/version"
)

var registerTimeout time.Duration

var rootCmd = &cobra.Command{
	Use:   "notionbot",
	Short: "Discord bot serving /events and /docs from Notion",
	Long: `notionbot answers the /events and /docs slash commands in one Discord guild
with records read from two Notion databases.

Configuration is read from NOTIONBOT_* environment variables.
Run without a subcommand to serve.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to Discord and answer commands until interrupted",
	RunE:  runServe,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register the slash commands in the configured guild and exit",
	RunE:  runRegister,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

func init() {
	registerCmd.Flags().DurationVar(&registerTimeout, "timeout", 30*time.Second, "How long to wait for the gateway to become ready")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	defer func() { _ = loggerClient.Sync() }()

	a, err := app.New(cmd.Context(), cfg, loggerClient)
	if err != nil {
		return fmt.Errorf("❌ notionbot failed to start: %w", err)
	}
	return a.Run(cmd.Context())
}

func runRegister(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	cfg.RedisAddr = "" // usage statistics are not needed to register
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	defer func() { _ = loggerClient.Sync() }()

	a, err := app.New(cmd.Context(), cfg, loggerClient)
	if err != nil {
		return err
	}
	if err := a.Register(cmd.Context(), registerTimeout); err != nil {
		return fmt.Errorf("❌ command registration failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ commands registered in guild %s\n", cfg.GuildID)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
