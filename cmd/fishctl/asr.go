package main

import (
	"fmt"
	"os"

	"github.com/lukasbauer/fishaudio/asr"
	"github.com/lukasbauer/fishaudio/internal/costs"
	"github.com/lukasbauer/fishaudio/internal/eventlog"
	"github.com/spf13/cobra"
)

func newASRCmd(c *cli) *cobra.Command {
	var (
		language  string
		noTimings bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "asr <audio-file>",
		Short: "Transcribe an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audio, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			data := map[string]any{"audio_bytes": len(audio), "language": language}

			result, err := c.app.Client().ASR.Transcribe(cmd.Context(), asr.Request{
				Audio:            audio,
				Language:         language,
				IgnoreTimestamps: noTimings,
			})
			if err != nil {
				return c.fail(err, data)
			}

			data["duration_s"] = result.Duration
			data["cost_millicents"] = c.app.Rates().Calculate(costs.Usage{TranscriptionSeconds: result.Duration}).TotalMillicents
			c.record(eventlog.EventTranscription, data)

			if asJSON {
				return printJSON(cmd.OutOrStdout(), result)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), result.Text)
			return err
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "language hint, e.g. en")
	cmd.Flags().BoolVar(&noTimings, "no-timestamps", false, "skip segment timings")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}
