package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jo-hoe/fxshelf/internal/ui"
)

var clearConfirmed bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every saved image",
	Long: `Delete every saved image in one step. Export first if you may want them back.

Example:
  fxshelf export -o backup.json && fxshelf clear --yes`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearConfirmed, "yes", "y", false, "confirm deleting all images")
}

func runClear(cmd *cobra.Command, args []string) error {
	if !clearConfirmed {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatWarning("Refusing to delete all images without --yes"))
		return errors.New("clear not confirmed")
	}
	if err := coreService.ClearImages(getContext(cmd)); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatError("Error clearing images"))
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.FormatSuccess("All images deleted"))
	return nil
}
