package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jo-hoe/fxshelf/internal/ui"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one saved image as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	image, err := coreService.Image(getContext(cmd), args[0])
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatError("Image not found: "+args[0]))
		return err
	}
	data, err := json.MarshalIndent(image, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
