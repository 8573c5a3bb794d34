package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/stellarlinkco/avaclaw/internal/config"
	"github.com/stellarlinkco/avaclaw/internal/gateway"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "avaclaw",
	Short: "avaclaw - iMessage AI relay",
	RunE:  runDaemon,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the default config file",
	RunE:  runInit,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show config and connection settings",
	RunE:  runStatus,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("avaclaw", version)
	},
}

var debugFlag bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.AddCommand(initCmd, statusCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if debugFlag {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w (run 'avaclaw init' and edit %s)", err, config.ConfigPath())
	}

	log := newLogger()
	return gateway.New(cfg, log).Run(context.Background())
}

func runInit(cmd *cobra.Command, args []string) error {
	cfgPath := config.ConfigPath()
	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Config already exists: %s\n", cfgPath)
		return nil
	}

	if err := config.SaveConfig(config.DefaultConfig()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Printf("Created config: %s\n", cfgPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set bridge.url and bridge.password for your BlueBubbles server")
	fmt.Println("  2. Set openai.apiKey or export OPENAI_API_KEY")
	fmt.Println("  3. Run 'avaclaw' to start the relay")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Bridge: %s\n", cfg.Bridge.URL)
	fmt.Printf("Trigger: %s\n", cfg.Trigger.Word)
	fmt.Printf("OpenAI model: %s (images: %s)\n", cfg.OpenAI.Model, cfg.OpenAI.ImageModel)
	fmt.Printf("Ollama: %s (%s)\n", cfg.Ollama.URL, cfg.Ollama.Model)

	key := cfg.OpenAI.APIKey
	switch {
	case len(key) > 8:
		fmt.Printf("API Key: %s...%s\n", key[:4], key[len(key)-4:])
	case key != "":
		fmt.Println("API Key: set")
	default:
		fmt.Println("API Key: not set")
	}
	return nil
}
