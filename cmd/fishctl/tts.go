package main

import (
	"bufio"
	"fmt"
	"iter"
	"strings"
	"sync/atomic"

	"github.com/lukasbauer/fishaudio/internal/costs"
	"github.com/lukasbauer/fishaudio/internal/eventlog"
	"github.com/lukasbauer/fishaudio/tts"
	"github.com/spf13/cobra"
)

type synthesisFlags struct {
	format      string
	output      string
	backend     string
	referenceID string
	latency     string
}

func (f *synthesisFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "format", "f", "mp3", "audio format: mp3|wav|pcm|opus")
	cmd.Flags().StringVarP(&f.output, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().StringVar(&f.backend, "backend", "", "synthesis backend, overrides config")
	cmd.Flags().StringVar(&f.referenceID, "voice", "", "reference voice model id, overrides config")
	cmd.Flags().StringVar(&f.latency, "latency", "", "latency mode: normal|balanced")
}

func (f *synthesisFlags) request(c *cli, text string) tts.Request {
	req := c.app.SynthesisRequest(text, tts.Format(f.format))
	if f.backend != "" {
		req.Backend = f.backend
	}
	if f.referenceID != "" {
		req.ReferenceID = f.referenceID
	}
	if f.latency != "" {
		req.Latency = tts.Latency(f.latency)
	}
	return req
}

func newTTSCmd(c *cli) *cobra.Command {
	var flags synthesisFlags

	cmd := &cobra.Command{
		Use:   "tts <text>",
		Short: "Synthesize text and stream the audio",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := flags.request(c, strings.Join(args, " "))
			data := map[string]any{"format": string(req.Format), "chars": len(req.Text)}

			stream, err := c.app.Client().TTS.SynthesizeStream(cmd.Context(), req)
			if err != nil {
				return c.fail(err, data)
			}
			defer stream.Close()

			out, err := openOutput(cmd, flags.output)
			if err != nil {
				return err
			}
			defer out.Close()

			n, err := stream.WriteTo(out)
			if err != nil {
				return c.fail(err, data)
			}

			data["bytes"] = n
			data["cost_millicents"] = c.app.Rates().Calculate(costs.TextUsage(req.Text)).TotalMillicents
			c.record(eventlog.EventSynthesis, data)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newLiveCmd(c *cli) *cobra.Command {
	var flags synthesisFlags

	cmd := &cobra.Command{
		Use:   "live [text...]",
		Short: "Synthesize over a live session, one fragment per argument or stdin line",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := flags.request(c, "")
			data := map[string]any{"format": string(req.Format)}

			out, err := openOutput(cmd, flags.output)
			if err != nil {
				return err
			}
			defer out.Close()

			// Counted on the producer goroutine.
			var sent atomic.Int64
			texts := func(yield func(string) bool) {
				for text := range fragments(cmd, args) {
					sent.Add(int64(len(text)))
					if !yield(text) {
						return
					}
				}
			}

			var written, chunks int
			for chunk, err := range c.app.Client().Live.Synthesize(cmd.Context(), req, texts) {
				if err != nil {
					return c.fail(err, data)
				}
				n, err := out.Write(chunk)
				if err != nil {
					return fmt.Errorf("failed to write audio: %w", err)
				}
				written += n
				chunks++
			}

			data["bytes"] = written
			data["chunks"] = chunks
			data["cost_millicents"] = c.app.Rates().Calculate(costs.Usage{SynthesisBytes: int(sent.Load())}).TotalMillicents
			c.record(eventlog.EventLiveSession, data)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// fragments yields args, or stdin lines when there are none.
func fragments(cmd *cobra.Command, args []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if len(args) > 0 {
			for _, a := range args {
				if !yield(a + " ") {
					return
				}
			}
			return
		}

		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			if !yield(scanner.Text() + "\n") {
				return
			}
		}
	}
}
