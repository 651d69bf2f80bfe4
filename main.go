package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"trustmed/core"
	"trustmed/factories"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const defaultSettingsPath = "settings.yaml"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "trustmed",
		Short:        "TrustMedAI conversation engine",
		Long:         "TrustMedAI answers educational questions about a disease, by text or voice, through a browser bridge or a terminal chat.",
		SilenceUsage: true,
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newSpeakCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "trustmed %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

// loadSettings reads .env files, then the settings file, then applies
// environment overrides. A missing settings file at the default path is not
// an error.
func loadSettings(configPath string, explicit bool) (factories.Settings, error) {
	for _, envFile := range []string{".env.local", ".env"} {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			core.GetLogger().Warn("failed to load env file", "file", envFile, "error", err)
		}
	}

	settings, err := factories.LoadSettings(configPath)
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return settings, err
		}
		settings = factories.DefaultSettings()
	}
	if err := settings.ApplyEnv(); err != nil {
		return settings, err
	}
	return settings, nil
}

// setupLogger installs the process-wide logger at the configured level.
func setupLogger(settings factories.Settings, w io.Writer) *core.Logger {
	logger := core.NewConsoleLogger(w, settings.LogLevel())
	core.SetLogger(logger)
	return logger
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
