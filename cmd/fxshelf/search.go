package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jo-hoe/fxshelf/internal/ui"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search saved images by text and #tags",
	Long: `Search saved images.

Words starting with # select tags (all of them must match); the remaining
text must appear in the prompt, seed or title, ignoring case.

Examples:
  fxshelf search sunset
  fxshelf search "#portrait #film golden hour"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	ws, err := coreService.WorkingSet(getContext(cmd))
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatError("Failed to load images"))
		return err
	}
	ws.Search(text)

	out := cmd.OutOrStdout()
	if len(ws.Filtered) == 0 {
		fmt.Fprintln(out, ui.FormatWarning("No images match: "+text))
		return nil
	}
	printImages(out, "Search: "+text, ws.Filtered)
	if chips := ws.Chips(); len(chips) > 0 {
		fmt.Fprintln(out, formatTagChips(chips))
	}
	return nil
}
