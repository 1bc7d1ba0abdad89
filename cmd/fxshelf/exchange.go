package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jo-hoe/fxshelf/internal/core"
	"github.com/jo-hoe/fxshelf/internal/ui"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all images to a JSON file",
	Long: `Export all saved images as a JSON array.

Without --output the file is named imagefx-export-YYYY-MM-DD.json in the
current directory; use "-" to write to stdout.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import images from an exported JSON file",
	Long: `Import images from a JSON array. Images whose id or page url is already
saved are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file, - for stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	var buf bytes.Buffer
	name, err := coreService.Export(getContext(cmd), &buf)
	if errors.Is(err, core.ErrNothingToExport) {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatWarning("No images to export"))
		return err
	}
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatError("Error exporting data"))
		return err
	}

	if exportOutput == "-" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	path := exportOutput
	if path == "" {
		path = name
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatError("Error exporting data"))
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.FormatSuccess("Exported to "+path))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatError("Error importing data"))
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	report, err := coreService.Import(getContext(cmd), f)
	if errors.Is(err, core.ErrInvalidImport) {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatError("Invalid import file format"))
		return err
	}
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatError("Error processing import file"))
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.FormatSuccess(fmt.Sprintf("Imported %d image(s)", report.Added)))
	if report.Skipped > 0 {
		fmt.Fprintln(out, ui.FormatInfo(fmt.Sprintf("Skipped %d already saved image(s)", report.Skipped)))
	}
	for _, e := range report.Errors {
		fmt.Fprintln(out, ui.FormatWarning(e))
	}
	return nil
}
