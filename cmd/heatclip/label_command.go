package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"heatclip/internal/clipstore"
)

func newLabelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "label <series> <key> <0|1|clear>",
		Short: "Record the manual violence label of a clip",
		Long: "Record the ground truth for one clip: 1 when the clip depicts violence toward women, " +
			"0 when it does not, or clear to remove the label.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			label, err := parseLabel(args[2])
			if err != nil {
				return err
			}
			key := strings.TrimSpace(args[1])
			if _, err := clipstore.ParseKey(key); err != nil {
				return err
			}

			runCtx, sess, err := ctx.openSession(cmd, false)
			if err != nil {
				return err
			}
			defer sess.Close()

			series := storedSeriesName(ctx, args[0])
			if err := sess.store.SetLabel(runCtx, series, key, label); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Labeled %s %s as %s\n", series, key, binaryValue(label))
			return nil
		},
	}
}

func parseLabel(value string) (*int, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "0", "no", "false":
		v := 0
		return &v, nil
	case "1", "yes", "true":
		v := 1
		return &v, nil
	case "clear", "-", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("label %q: want 0, 1 or clear", value)
	}
}
