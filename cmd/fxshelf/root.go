package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jo-hoe/fxshelf/internal/core"
	"github.com/jo-hoe/fxshelf/internal/ui"
)

var (
	configPath   string
	databasePath string
	verbose      bool

	appConfig   *core.ServiceConfig
	coreService *core.CoreService
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fxshelf",
	Short: "Browse, tag and search saved ImageFX records",
	Long: ui.FormatTitle("fxshelf") + " - saved ImageFX images\n\n" +
		"Manage the records stored by the fxshelf server directly: list, search,\n" +
		"edit and tag them, or move them between stores with export and import.",
	SilenceUsage:       true,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: closeApp,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $CONFIG_PATH or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&databasePath, "db", "", "override the database connection string")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(thumbnailsCmd)
}

// initializeApp loads the configuration and opens the store
func initializeApp(cmd *cobra.Command, args []string) error {
	// Skip initialization for commands that never touch the store
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	config, err := loadConfig()
	if err != nil {
		return err
	}
	if databasePath != "" {
		config.Database.ConnectionString = databasePath
	}
	appConfig = config

	level, _ := core.ParseLogLevel(config.LogLevel)
	if verbose {
		level = slog.LevelDebug
	} else if level < slog.LevelWarn {
		// keep command output readable
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	// a failed command skips PersistentPostRunE
	_ = closeApp(cmd, args)

	svc, err := core.NewCoreService(getContext(cmd), config)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatError("Failed to open the image store"))
		return err
	}
	coreService = svc
	return nil
}

func closeApp(cmd *cobra.Command, args []string) error {
	if coreService == nil {
		return nil
	}
	err := coreService.Close()
	coreService = nil
	return err
}

// loadConfig reads the explicit or environment config file. Without either, a
// missing ./config.yaml falls back to the defaults.
func loadConfig() (*core.ServiceConfig, error) {
	path := configPath
	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if !explicit {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(cwd, "config.yaml")
	}

	config, err := core.LoadConfig(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return core.DefaultConfig(), nil
	}
	return config, err
}

// execute runs the root command and then restores every flag to its default, so
// values parsed for one run never leak into the next run in the same process.
func execute() error {
	defer resetFlags(rootCmd)
	return rootCmd.Execute()
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// getContext returns a context for operations
func getContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
