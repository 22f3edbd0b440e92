package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/lukasbauer/fishaudio/internal/app"
	"github.com/lukasbauer/fishaudio/internal/eventlog"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cli holds the state shared by every command of one invocation.
type cli struct {
	configPath string
	requestID  string
	app        *app.App
}

// newRootCmd builds the command tree. The caller runs c.teardown after
// Execute.
func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{}

	root := &cobra.Command{
		Use:           "fishctl",
		Short:         "Command-line client for the Fish Audio speech service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", os.Getenv("FISHCTL_CONFIG"), "YAML config file")

	root.AddCommand(
		newTTSCmd(c),
		newLiveCmd(c),
		newASRCmd(c),
		newModelsCmd(c),
		newWalletCmd(c),
	)

	return root, c
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := app.LoadConfig(c.configPath)
	if err != nil {
		return err
	}

	logger, err := app.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return err
	}

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		})
		if err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
	}

	c.requestID = uuid.NewString()
	logger = logger.With(zap.String("request_id", c.requestID), zap.String("command", cmd.CommandPath()))

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	c.app = a

	return nil
}

func (c *cli) teardown() error {
	if c.app == nil {
		return nil
	}
	_ = c.app.Logger().Sync()
	err := c.app.Close()
	c.app = nil
	return err
}

// record writes a usage event and waits for it so the process does not exit
// before the row lands.
func (c *cli) record(eventType eventlog.EventType, data map[string]any) {
	<-c.app.EventLog().LogAsync(c.requestID, eventType, data)
}

// fail records a failed call and returns err unchanged.
func (c *cli) fail(err error, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	data["error"] = err.Error()
	c.record(eventlog.EventCallFailed, data)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// openOutput returns stdout for "" or "-".
func openOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{cmd.OutOrStdout()}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
