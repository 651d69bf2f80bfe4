package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"trustmed/utils/text"
)

func newSpeakCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "speak [file]",
		Short: "Print what would be spoken for an answer",
		Long:  "Reads an answer from a file (or stdin) and prints its spoken summary and full variants.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			data, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("speak: read answer: %w", err)
			}
			return runSpeak(cmd.OutOrStdout(), string(data), mode)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "summary or full (default: print both)")
	return cmd
}

func runSpeak(out io.Writer, answer, mode string) error {
	if strings.TrimSpace(answer) == "" {
		return fmt.Errorf("speak: empty answer")
	}
	if mode == "" {
		fmt.Fprintf(out, "summary: %s\n", text.SummarizeForSpeech(answer))
		fmt.Fprintf(out, "full: %s\n", text.CleanForFullSpeech(answer))
		return nil
	}
	m, err := text.ParseSpeechMode(mode)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, text.Spoken(m, answer).Text)
	return nil
}
