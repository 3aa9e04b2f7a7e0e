package commands

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"prompt2web_server/config"
	"prompt2web_server/internal/ai"
)

var configDir string

// RootCmd is the root command. Without a subcommand it serves the HTTP API.
var RootCmd = &cobra.Command{
	Use:   "prompt2web",
	Short: "Prompt2Web - turn a natural-language prompt into a previewable website",
	Long: `Prompt2Web analyzes a prompt, plans the build and synthesizes a multi-file
website with hosted language models, then composes it into a single previewable page.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directory containing config.yaml")
}

// loadEnv reads .env before viper so its values are visible as environment variables.
func loadEnv() {
	err := godotenv.Load()
	if err != nil {
		// It's common for .env to not exist (e.g., in production).
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("error loading .env file", "error", err)
		} else {
			slog.Info(".env file not found, relying on system environment variables")
		}
		return
	}
	slog.Info("loaded environment variables from .env file")
}

// bootstrap loads the environment and configuration and installs the process logger.
func bootstrap() (config.Config, *slog.Logger, error) {
	loadEnv()

	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return config.Config{}, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// newGenerator wires both model providers behind one gateway.
func newGenerator(cfg config.Config, logger *slog.Logger) *ai.Generator {
	gateway := ai.NewClient(map[ai.Provider]ai.ProviderConfig{
		ai.ProviderOpenRouter: {
			APIKey:  cfg.OpenRouterAPIKey,
			BaseURL: cfg.OpenRouterBaseURL,
			Headers: map[string]string{
				"HTTP-Referer": cfg.HTTPReferer,
				"X-Title":      cfg.AppTitle,
			},
			Defaults: ai.CallOptions{Temperature: 0.7, MaxTokens: 16000},
			Timeout:  5 * time.Minute,
		},
		ai.ProviderGroq: {
			APIKey:   cfg.GroqAPIKey,
			BaseURL:  cfg.GroqBaseURL,
			Defaults: ai.CallOptions{Temperature: 0.7, MaxTokens: 8000},
			Timeout:  2 * time.Minute,
		},
	})

	return ai.NewGenerator(gateway, ai.Models{
		Analysis:  cfg.AnalysisModel,
		Plan:      cfg.PlanModel,
		Synthesis: cfg.SynthesisModel,
		Enhance:   cfg.EnhanceModel,
	}, logger)
}
