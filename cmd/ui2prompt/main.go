package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ui-screenshot-to-prompt/internal/httpclient"
	"ui-screenshot-to-prompt/internal/logging"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	logLevel string
	logger   *slog.Logger
}

func newRootCmd() *cobra.Command {
	ro := &rootOptions{}

	root := &cobra.Command{
		Use:   "ui2prompt",
		Short: "Turn UI screenshots into detailed design prompts",
		Long: `ui2prompt splits a UI screenshot into regions, describes each one with a
vision model and assembles the answers into a single prompt. When Bedrock,
Anthropic or OpenRouter credentials are configured the prompt is elevated
through a second model.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ro.logger, _ = logging.New(logging.Options{Level: ro.logLevel, Stdout: cmd.ErrOrStderr()})
		},
	}
	root.PersistentFlags().StringVar(&ro.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(newProcessCmd(ro), newRegionsCmd(ro))
	return root
}

// readInput loads a screenshot from a local path or an http(s) URL.
func readInput(ctx context.Context, client *http.Client, src string, maxBytes int64) ([]byte, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		data, _, err := httpclient.Download(ctx, client, src, maxBytes)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", src, err)
		}
		return data, nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("read %s: %w", src, httpclient.ErrTooLarge)
	}
	return data, nil
}
