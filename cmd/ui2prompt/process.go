package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ui-screenshot-to-prompt/internal/app"
	"ui-screenshot-to-prompt/internal/config"
	"ui-screenshot-to-prompt/internal/detect"
	"ui-screenshot-to-prompt/internal/pipeline"
	"ui-screenshot-to-prompt/internal/prompt"
)

type processOptions struct {
	method    string
	size      string
	noElevate bool
	json      bool
}

func newProcessCmd(ro *rootOptions) *cobra.Command {
	po := &processOptions{}

	cmd := &cobra.Command{
		Use:   "process <file|url>",
		Short: "Generate a prompt for a screenshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, ro, po, args[0])
		},
	}
	cmd.Flags().StringVar(&po.method, "method", "", "Detection method: basic or advanced (default from DETECTION_METHOD)")
	cmd.Flags().StringVar(&po.size, "size", "", "Prompt size: concise or extensive (default from PROMPT_SIZE)")
	cmd.Flags().BoolVar(&po.noElevate, "no-elevate", false, "Skip the super prompt model")
	cmd.Flags().BoolVar(&po.json, "json", false, "Print the full result as JSON")
	return cmd
}

// overrides applies the command line flags on top of the configured defaults.
func (po *processOptions) overrides(defaults pipeline.Options) (pipeline.Options, error) {
	opts := defaults
	if po.method != "" {
		m, err := detect.ParseMethod(po.method)
		if err != nil {
			return pipeline.Options{}, err
		}
		opts.Method = m
	}
	if po.size != "" {
		s, err := prompt.ParseSize(po.size)
		if err != nil {
			return pipeline.Options{}, err
		}
		opts.Size = s
	}
	if po.noElevate {
		opts.Elevate = false
	}
	return opts, nil
}

func runProcess(cmd *cobra.Command, ro *rootOptions, po *processOptions, src string) error {
	if _, err := po.overrides(pipeline.Options{}); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	opts, err := po.overrides(app.Defaults(cfg))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	httpClient := app.HTTPClient(cfg)
	data, err := readInput(ctx, httpClient, src, cfg.MaxUploadBytes)
	if err != nil {
		return err
	}

	processor, err := app.NewProcessor(ctx, cfg, httpClient, ro.logger)
	if err != nil {
		return err
	}

	res, err := processor.Process(ctx, data, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if po.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err = fmt.Fprintln(out, res.FinalAnalysis)
	return err
}
