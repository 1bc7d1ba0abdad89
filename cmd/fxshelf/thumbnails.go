package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jo-hoe/fxshelf/internal/core"
	"github.com/jo-hoe/fxshelf/internal/ui"
)

var thumbnailsCmd = &cobra.Command{
	Use:   "thumbnails",
	Short: "Generate missing thumbnails",
	Long: `Download the image of every record saved without a thumbnail and store a
generated one. Records whose image cannot be fetched are reported and kept as is.`,
	Args: cobra.NoArgs,
	RunE: runThumbnails,
}

func runThumbnails(cmd *cobra.Command, args []string) error {
	report, err := coreService.RefreshThumbnails(getContext(cmd))
	if errors.Is(err, core.ErrThumbnailsDisabled) {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatWarning("Thumbnail generation is disabled in the configuration"))
		return err
	}
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatError("Error refreshing thumbnails"))
		return err
	}

	out := cmd.OutOrStdout()
	if report.Checked == 0 {
		fmt.Fprintln(out, ui.FormatInfo("Every image already has a thumbnail"))
		return nil
	}
	fmt.Fprintln(out, ui.FormatSuccess(fmt.Sprintf("Refreshed %d of %d thumbnail(s)", report.Refreshed, report.Checked)))
	for _, e := range report.Errors {
		fmt.Fprintln(out, ui.FormatWarning(e))
	}
	return nil
}
