package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"heatclip/internal/clipstore"
	"heatclip/internal/dataset"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "report [series]",
		Short: "Show dataset progress, violent share and accuracy",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, sess, err := ctx.openSession(cmd, false)
			if err != nil {
				return err
			}
			defer sess.Close()

			pipeline, err := dataset.New(sess.cfg, dataset.Dependencies{Store: sess.store}, sess.logger)
			if err != nil {
				return err
			}

			var names []string
			if len(args) == 1 {
				names = []string{storedSeriesName(ctx, args[0])}
			} else {
				summaries, err := sess.store.Series(runCtx)
				if err != nil {
					return err
				}
				for _, s := range summaries {
					names = append(names, s.Name)
				}
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No clips collected yet")
				return nil
			}

			rows := make([][]string, 0, len(names)+1)
			for _, name := range names {
				stats, err := pipeline.Report(runCtx, name)
				if err != nil {
					return err
				}
				rows = append(rows, statsRow(name, stats))
			}
			if len(names) > 1 {
				total, err := pipeline.Report(runCtx, "")
				if err != nil {
					return err
				}
				rows = append(rows, statsRow("Total", total))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(statsHeaders, rows, statsAligns))
			return nil
		},
	}
}

var (
	statsHeaders = []string{"Series", "Clips", "Audio", "Transcribed", "Classified", "Violent", "Violent %", "Labeled", "Accuracy"}
	statsAligns  = []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight}
)

func statsRow(name string, stats clipstore.Stats) []string {
	return []string{
		name,
		strconv.Itoa(stats.Total),
		strconv.Itoa(stats.WithAudio),
		strconv.Itoa(stats.Transcribed),
		strconv.Itoa(stats.Classified),
		strconv.Itoa(stats.Violent),
		percent(stats.ViolentPercent()),
		strconv.Itoa(stats.Labeled),
		percent(stats.Accuracy()),
	}
}

func renderStats(stats clipstore.Stats) string {
	row := statsRow("", stats)[1:]
	return renderTable(statsHeaders[1:], [][]string{row}, statsAligns[1:])
}

func percent(value float64, ok bool) string {
	if !ok {
		return "-"
	}
	return strconv.FormatFloat(value, 'f', 1, 64) + "%"
}

func newClipsCommand(ctx *commandContext) *cobra.Command {
	var (
		series        string
		unlabeled     bool
		violent       bool
		disagreements bool
		limit         int
		showText      bool
	)

	cmd := &cobra.Command{
		Use:   "clips",
		Short: "List stored clips",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, sess, err := ctx.openSession(cmd, false)
			if err != nil {
				return err
			}
			defer sess.Close()

			filter := clipstore.Filter{
				NeedsLabel:        unlabeled,
				OnlyViolent:       violent,
				OnlyDisagreements: disagreements,
				Limit:             limit,
			}
			if series != "" {
				filter.Series = storedSeriesName(ctx, series)
			}
			clips, err := sess.store.List(runCtx, filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(clips) == 0 {
				fmt.Fprintln(out, "No clips match")
				return nil
			}

			if showText {
				for _, clip := range clips {
					fmt.Fprintf(out, "== %s %s (prediction %s, label %s)\n%s\n\n",
						clip.Series, clip.Key, binaryValue(clip.Prediction), binaryValue(clip.Label), clip.Transcript)
				}
				return nil
			}

			rows := make([][]string, 0, len(clips))
			for _, clip := range clips {
				rows = append(rows, []string{
					clip.Series,
					clip.Key,
					audioSize(clip.AudioPath),
					yesNo(clip.HasTranscript()),
					binaryValue(clip.Prediction),
					binaryValue(clip.Label),
					humanize.Time(clip.UpdatedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Series", "Key", "Audio", "Transcript", "Prediction", "Label", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%s clips\n", humanize.Comma(int64(len(clips))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&series, "series", "s", "", "Only list clips of this series")
	cmd.Flags().BoolVar(&unlabeled, "unlabeled", false, "Only transcribed clips without a manual label")
	cmd.Flags().BoolVar(&violent, "violent", false, "Only clips predicted violent")
	cmd.Flags().BoolVar(&disagreements, "disagreements", false, "Only clips whose label differs from the prediction")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of clips to list")
	cmd.Flags().BoolVar(&showText, "text", false, "Print transcripts instead of a table")
	return cmd
}

// storedSeriesName returns the configured spelling of name, which is what the
// store holds, falling back to name itself.
func storedSeriesName(ctx *commandContext, name string) string {
	name = strings.TrimSpace(name)
	if cfg := ctx.configValue(); cfg != nil {
		if series, ok := cfg.FindSeries(name); ok {
			return series.Name
		}
	}
	return name
}

func binaryValue(value *int) string {
	if value == nil {
		return "-"
	}
	return strconv.Itoa(*value)
}

func audioSize(path string) string {
	if path == "" {
		return "-"
	}
	info, err := os.Stat(path)
	if err != nil {
		return "missing"
	}
	return humanize.Bytes(uint64(info.Size()))
}
