package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"frameforge/internal/app"
	"frameforge/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "AddFrame", "GenerateImage").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation, app.Options{
		Console:  os.Stderr,
		EnvFiles: []string{".env", defaults["env_file"]},
	})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("failed to get defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:   "frameforge",
	Short: "Storyboard authoring",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Println("Run `frameforge db migrate` to create the database.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Base Dir:       %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:        %s (%s)\n", cfg.LogDir, cfg.LogLevel)
		fmt.Printf("Database:       %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Blob Store:     %s encrypt=%v cache=%q\n", cfg.BlobStore.Type, cfg.BlobStore.Encrypt, cfg.BlobStore.CacheTTL)
		fmt.Printf("Image Provider: %s\n", cfg.Gateway.ImageProvider)
		fmt.Printf("Default Model:  %s %s\n", cfg.Gateway.DefaultModel, cfg.Gateway.DefaultAspectRatio)
		fmt.Printf("Concurrency:    %d\n", cfg.Gateway.Concurrency)
		fmt.Printf("Edit Debounce:  %s\n", cfg.Editing.Debounce)
		return nil
	},
}

var configPassphraseCmd = &cobra.Command{
	Use:   "passphrase",
	Short: "Create or change the image encryption passphrase",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		var oldPassphrase string
		if _, err := os.Stat(cfg.Encryption.PrivateKeyPath); err == nil {
			if oldPassphrase, err = app.ReadPassphrase("Current passphrase: "); err != nil {
				return err
			}
		}
		newPassphrase, err := app.ReadPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		if newPassphrase == "" {
			return errors.New("passphrase must not be empty")
		}

		created, err := app.SetPassphrase(cfg.Encryption, oldPassphrase, newPassphrase)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("Key pair created at %s\n", cfg.Encryption.PublicKeyPath)
		} else {
			fmt.Println("Passphrase changed.")
		}
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		path, err := app.MigrateDatabase(cfg.Database)
		if err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		fmt.Printf("Database is up to date: %s\n", path)
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the database schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		st, err := app.DatabaseStatus(cfg.Database)
		if err != nil {
			return err
		}
		state := "up to date"
		switch {
		case st.Dirty:
			state = "dirty"
		case st.Current < st.Latest:
			state = "run `frameforge db migrate`"
		}
		fmt.Printf("Schema version %d of %d (%s)\n", st.Current, st.Latest, state)
		return nil
	},
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Copy the database to DEST",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("BackupDatabase")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.BackupDatabase(args[0]); err != nil {
			return a.Fail(err)
		}
		fmt.Printf("Database copied to %s\n", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configPassphraseCmd)

	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbBackupCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(frameCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(imageCmd)
	rootCmd.AddCommand(optionsCmd)
}
