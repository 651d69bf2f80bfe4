package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"trustmed/core"
	"trustmed/runner"
	"trustmed/services/local"
	"trustmed/tui"
)

func newChatCmd() *cobra.Command {
	var (
		configPath string
		mute       bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat in the terminal",
		Long:  "Runs one conversation in a terminal UI. Answers are spoken through a local player (ffplay by default).",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}

			// The terminal belongs to the renderer; logs go to a file or nowhere.
			logger := core.Discard()
			if settings.Log.Dir != "" {
				if err := os.MkdirAll(settings.Log.Dir, 0o755); err != nil {
					return err
				}
				f, err := os.OpenFile(filepath.Join(settings.Log.Dir, "chat.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				logger = setupLogger(settings, f)
			}

			command := settings.Player.Command
			if mute {
				command = []string{"true"}
			}
			player, err := local.NewPlayer(command, logger)
			if err != nil {
				return err
			}
			if !player.Available() {
				fmt.Fprintf(cmd.ErrOrStderr(), "audio player %q not found; answers will not be spoken\n", playerName(command))
			}

			r, err := runner.New(settings, logger)
			if err != nil {
				player.Close()
				return err
			}
			defer r.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			title := "TrustMedAI · " + settings.Conversation.Disease
			return tui.Run(ctx, title, func(out core.EventSink) *runner.Session {
				return r.NewSession(runner.Devices{Output: player}, out)
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultSettingsPath, "path to settings file (.yaml or .json)")
	cmd.Flags().BoolVar(&mute, "mute", false, "do not play synthesized audio")
	return cmd
}

func playerName(command []string) string {
	if len(command) == 0 {
		return local.DefaultCommand[0]
	}
	return command[0]
}
