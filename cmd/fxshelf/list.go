package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jo-hoe/fxshelf/internal/backend/database"
	"github.com/jo-hoe/fxshelf/internal/ui"
)

var listTags []string

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List saved images, newest first",
	Aliases: []string{"ls"},
	Long: `List saved images in a table, newest first.

Selecting several tags shows only images carrying all of them.

Examples:
  fxshelf list
  fxshelf list --tag portrait --tag film`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringSliceVarP(&listTags, "tag", "t", nil, "only show images with this tag (repeatable)")
}

func runList(cmd *cobra.Command, args []string) error {
	ws, err := coreService.WorkingSet(getContext(cmd))
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatError("Failed to load images"))
		return err
	}
	ws.SelectTags(listTags)

	out := cmd.OutOrStdout()
	if len(ws.Filtered) == 0 {
		if len(ws.SelectedTags) > 0 {
			fmt.Fprintln(out, ui.FormatWarning("No images found with tags: "+strings.Join(ws.SelectedTags, ", ")))
		} else {
			fmt.Fprintln(out, ui.FormatWarning("No saved images yet"))
		}
		return nil
	}

	title := "Images"
	if len(ws.SelectedTags) > 0 {
		title = fmt.Sprintf("Images (tags: %s)", strings.Join(ws.SelectedTags, ", "))
	}
	printImages(out, title, ws.Filtered)
	return nil
}

func printImages(out io.Writer, title string, images []*database.ImageRecord) {
	fmt.Fprintln(out, ui.FormatTitle(title))

	t := ui.NewTable("ID", "Saved", "Title", "Seed", "Tags")
	for _, img := range images {
		t.Row(
			img.ID,
			img.Timestamp,
			ui.Truncate(img.Title, 40),
			ui.Truncate(img.Seed, 12),
			ui.Truncate(strings.Join(img.Tags, ", "), 30),
		)
	}
	fmt.Fprintln(out, t.Render())
	fmt.Fprintln(out, ui.FormatMuted(fmt.Sprintf("%d image(s)", len(images))))
}
