package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jo-hoe/fxshelf/internal/query"
	"github.com/jo-hoe/fxshelf/internal/ui"
)

var tagsSelected []string

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Show the most used tags",
	Args:  cobra.NoArgs,
	RunE:  runTags,
}

func init() {
	tagsCmd.Flags().StringSliceVarP(&tagsSelected, "selected", "s", nil, "highlight these tags")
}

func runTags(cmd *cobra.Command, args []string) error {
	chips, err := coreService.Tags(getContext(cmd), tagsSelected)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatError("Failed to load tags"))
		return err
	}
	out := cmd.OutOrStdout()
	if len(chips) == 0 {
		fmt.Fprintln(out, ui.FormatWarning("No tags yet"))
		return nil
	}
	fmt.Fprintln(out, ui.FormatTitle("Popular tags"))
	fmt.Fprintln(out, formatTagChips(chips))
	return nil
}

func formatTagChips(chips []query.TagChip) string {
	uiChips := make([]ui.Chip, 0, len(chips))
	for _, c := range chips {
		uiChips = append(uiChips, ui.Chip{Tag: c.Tag, Count: c.Count, Selected: c.Selected})
	}
	return ui.FormatChips(uiChips)
}
