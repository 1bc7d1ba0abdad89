package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jo-hoe/fxshelf/internal/core"
	"github.com/jo-hoe/fxshelf/internal/ui"
)

var (
	editTitle    string
	editPrompt   string
	editComments string
	editTags     []string
	editAddTags  []string
	editDropTags []string
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit title, prompt, comments or tags of a saved image",
	Long: `Edit a saved image. Fields without a flag keep their current value.

Examples:
  fxshelf edit 1718000000000 --title "Lighthouse" --tags coast,fog
  fxshelf edit 1718000000000 --add-tag night --remove-tag fog`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVar(&editTitle, "title", "", "new title")
	editCmd.Flags().StringVar(&editPrompt, "prompt", "", "new prompt")
	editCmd.Flags().StringVar(&editComments, "comments", "", "new comments")
	editCmd.Flags().StringSliceVar(&editTags, "tags", nil, "replace all tags")
	editCmd.Flags().StringSliceVar(&editAddTags, "add-tag", nil, "add a tag (repeatable)")
	editCmd.Flags().StringSliceVar(&editDropTags, "remove-tag", nil, "remove a tag (repeatable)")
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)
	id := args[0]

	existing, err := coreService.Image(ctx, id)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatError("Image not found: "+id))
		return err
	}

	req := core.EditRequest{
		Title:    existing.Title,
		Prompt:   existing.Prompt,
		Comments: existing.Comments,
		Tags:     existing.Tags,
	}
	flags := cmd.Flags()
	if flags.Changed("title") {
		req.Title = editTitle
	}
	if flags.Changed("prompt") {
		req.Prompt = editPrompt
	}
	if flags.Changed("comments") {
		req.Comments = editComments
	}
	if flags.Changed("tags") {
		req.Tags = editTags
	}
	req.Tags = applyTagChanges(req.Tags, editAddTags, editDropTags)

	updated, err := coreService.Edit(ctx, id, req)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatError(err.Error()))
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.FormatSuccess("Image updated successfully!"))
	if len(updated.Tags) > 0 {
		fmt.Fprintln(out, ui.FormatMuted("Tags: "+strings.Join(updated.Tags, ", ")))
	}
	return nil
}

// applyTagChanges adds missing tags and drops removed ones, keeping order.
func applyTagChanges(tags, add, remove []string) []string {
	drop := map[string]bool{}
	for _, t := range remove {
		drop[strings.TrimSpace(t)] = true
	}
	seen := map[string]bool{}
	var out []string
	for _, t := range append(append([]string{}, tags...), add...) {
		t = strings.TrimSpace(t)
		if t == "" || drop[t] || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
