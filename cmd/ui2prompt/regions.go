package main

import (
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ui-screenshot-to-prompt/internal/detect"
	"ui-screenshot-to-prompt/internal/pipeline"
	"ui-screenshot-to-prompt/internal/prompt"
)

type regionsOptions struct {
	method string
	out    string
	maxDim int
}

func newRegionsCmd(ro *rootOptions) *cobra.Command {
	opts := &regionsOptions{}

	cmd := &cobra.Command{
		Use:   "regions <file>",
		Short: "Detect regions and write a labeled overlay image",
		Long: `Runs region detection only. No model is called and no credentials are needed.
The overlay is written as PNG and the region table is printed to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegions(cmd, ro, opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.method, "method", string(detect.MethodBasic), "Detection method: basic or advanced")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "overlay.png", "Output path for the labeled image")
	cmd.Flags().IntVar(&opts.maxDim, "max-dim", 2048, "Downscale screenshots larger than this before detection")
	return cmd
}

func runRegions(cmd *cobra.Command, ro *rootOptions, opts *regionsOptions, src string) error {
	method, err := detect.ParseMethod(opts.method)
	if err != nil {
		return err
	}

	data, err := readInput(cmd.Context(), http.DefaultClient, src, 0)
	if err != nil {
		return err
	}

	vis, err := pipeline.Visualize(data, method, opts.maxDim)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.out, vis.LabeledImage, 0o644); err != nil {
		return fmt.Errorf("write overlay: %w", err)
	}
	if ro.logger != nil {
		ro.logger.Info("overlay written", "path", opts.out, "regions", len(vis.Regions))
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPOSITION\tX\tY\tWIDTH\tHEIGHT")
	for _, r := range vis.Regions {
		fmt.Fprintf(tw, "%s %d\t%s\t%d\t%d\t%d\t%d\n", prompt.Title(vis.DetectionTerm), r.Index, r.Position, r.Bounds.X, r.Bounds.Y, r.Bounds.Width, r.Bounds.Height)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "overlay: %s\n", opts.out)
	return err
}
