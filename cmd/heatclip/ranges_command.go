package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"heatclip/internal/browser"
	"heatclip/internal/clipstore"
	"heatclip/internal/dataset"
	"heatclip/internal/preflight"
)

func newRangesCommand(ctx *commandContext) *cobra.Command {
	var fraction float64
	var length int

	cmd := &cobra.Command{
		Use:   "ranges <link>",
		Short: "Show the clip ranges a video page would produce without downloading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, sess, err := ctx.openSession(cmd, false)
			if err != nil {
				return err
			}
			defer sess.Close()

			cfg := sess.cfg
			if cmd.Flags().Changed("fraction") {
				cfg.Heatmap.PeakFraction = fraction
			}
			if cmd.Flags().Changed("length") {
				cfg.Heatmap.SearchLengthSeconds = length
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if chrome := preflight.CheckChrome(cfg.Heatmap.ChromePath); !chrome.Passed {
				return fmt.Errorf("%s: %s", chrome.Name, chrome.Detail)
			}

			pages, err := browser.Open(runCtx, browser.Options{
				ExecPath:    cfg.Heatmap.ChromePath,
				Headless:    cfg.Heatmap.Headless,
				Settle:      seconds(cfg.Heatmap.SettleSeconds),
				PageTimeout: seconds(cfg.Heatmap.PageTimeoutSeconds),
				Logger:      sess.logger,
			})
			if err != nil {
				return err
			}
			defer pages.Close()

			pipeline, err := dataset.New(cfg, dataset.Dependencies{Store: sess.store, Pages: pages}, sess.logger)
			if err != nil {
				return err
			}
			video, err := pipeline.Inspect(runCtx, args[0])
			if err != nil {
				return err
			}
			printVideo(cmd, video)
			return nil
		},
	}

	cmd.Flags().Float64Var(&fraction, "fraction", 0, "Override heatmap.peak_fraction")
	cmd.Flags().IntVar(&length, "length", 0, "Override heatmap.search_length_seconds")
	return cmd
}

func printVideo(cmd *cobra.Command, video dataset.Video) {
	out := cmd.OutOrStdout()
	analysis := video.Analysis
	fmt.Fprintf(out, "Title:    %s\n", video.Title)
	fmt.Fprintf(out, "Episode:  %s\n", video.Episode)
	if analysis.NoSignal {
		fmt.Fprintln(out, "No heatmap found on the page")
		return
	}
	fmt.Fprintf(out, "Duration: %ds\n", analysis.Duration)
	fmt.Fprintf(out, "Peaks:    %d kept of %d curve points, %d ranges inside the video\n",
		len(analysis.Peaks), analysis.Points, len(analysis.Ranges))
	if len(analysis.Ranges) == 0 {
		return
	}

	rows := make([][]string, 0, len(analysis.Ranges))
	for i, r := range analysis.Ranges {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			r.StartCode(),
			r.EndCode(),
			clipstore.Key(video.Episode, r.StartCode(), r.EndCode()),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Start", "End", "Key"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	))
}
