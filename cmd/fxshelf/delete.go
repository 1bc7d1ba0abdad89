package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jo-hoe/fxshelf/internal/ui"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <id>...",
	Short:   "Delete saved images",
	Aliases: []string{"rm"},
	Args:    cobra.MinimumNArgs(1),
	RunE:    runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)
	for _, id := range args {
		if err := coreService.DeleteImage(ctx, id); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatError("Error deleting image "+id))
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.FormatSuccess("Image deleted successfully: "+id))
	}
	return nil
}
