package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jo-hoe/fxshelf/internal/core"
	"github.com/jo-hoe/fxshelf/internal/ui"
)

var (
	addURL          string
	addPrompt       string
	addSeed         string
	addImageURL     string
	addThumbnailURL string
	addScrapeError  string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Save an image from an ImageFX page",
	Long: `Save an image the same way the browser scraper does: the page url must be
an ImageFX page that is not saved yet, and prompt and seed are required.

Example:
  fxshelf add --url https://labs.google/fx/tools/image-fx/abc123 \
    --prompt "a lighthouse in fog" --seed 421337 \
    --image-url https://example.com/lighthouse.png`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addURL, "url", "", "source page url (required)")
	addCmd.Flags().StringVarP(&addPrompt, "prompt", "p", "", "image prompt")
	addCmd.Flags().StringVarP(&addSeed, "seed", "s", "", "image seed")
	addCmd.Flags().StringVar(&addImageURL, "image-url", "", "full size image url or data url")
	addCmd.Flags().StringVar(&addThumbnailURL, "thumbnail-url", "", "thumbnail url or data url")
	addCmd.Flags().StringVar(&addScrapeError, "scrape-error", "", "warning reported by the scraper")
	_ = addCmd.MarkFlagRequired("url")
}

func runAdd(cmd *cobra.Command, args []string) error {
	result, err := coreService.Ingest(getContext(cmd), addURL, core.ScrapeResult{
		Status:       "ok",
		Prompt:       addPrompt,
		Seed:         addSeed,
		ImageURL:     addImageURL,
		ThumbnailURL: addThumbnailURL,
		Error:        addScrapeError,
	})

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.FormatNotification(result.Message(), result.IsError()))
	for _, w := range result.Warnings {
		fmt.Fprintln(out, ui.FormatWarning(w))
	}
	if result.Record != nil {
		fmt.Fprintln(out, ui.FormatInfo("Saved as "+result.Record.ID+": "+result.Record.Title))
	}
	if result.Outcome == core.OutcomeDuplicate {
		// already saved is informational, not a failure
		return nil
	}
	return err
}
