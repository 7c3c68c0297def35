// Package service implements the crudapp command line: the web server and
// the database maintenance commands.
package service

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"crudapp/app/media"
	"crudapp/app/repositories/sqlstore"
	"crudapp/config"
	"crudapp/logging"
)

// Version is set at build time with -ldflags "-X crudapp/service.Version=...".
var Version = "dev"

// cli carries state shared by all commands once the root pre-run has loaded it.
type cli struct {
	configPath string
	cfg        config.Config
	log        *zap.Logger
}

// Execute runs the root command against os.Args and returns the exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// NewRootCommand builds the crudapp command tree.
func NewRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "crudapp",
		Short: "Persons and blog CRUD web application",
		Long: `crudapp serves server-rendered pages for managing persons and a blog
with comments and image uploads.

Storage is Badger by default; set storage.driver to "sqlite" to use SQLite.
Settings come from an optional YAML file, then the environment (and .env).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.log = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		c.serveCommand(),
		c.migrateCommand(),
		c.backupCommand(),
		c.restoreCommand(),
		c.cleanCommand(),
		versionCommand(),
	)
	return root
}

func (c *cli) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return RunServer(ctx, c.cfg, c.log)
		},
	}
}

func (c *cli) migrateCommand() *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQLite schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if c.cfg.Storage.Driver != config.DriverSQLite {
				fmt.Fprintf(out, "Storage driver %q has no schema migrations\n", c.cfg.Storage.Driver)
				return nil
			}

			db, err := sqlstore.Open(c.cfg.Storage.SQLitePath, c.log)
			if err != nil {
				return err
			}
			defer db.Close()

			if status {
				migrations, err := db.Status(cmd.Context())
				if err != nil {
					return err
				}
				for _, m := range migrations {
					if m.Applied {
						fmt.Fprintf(out, "%s  applied  %s\n", m.Version, m.AppliedAt.Format(time.RFC3339))
					} else {
						fmt.Fprintf(out, "%s  pending\n", m.Version)
					}
				}
				return nil
			}

			ran, err := db.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			if len(ran) == 0 {
				fmt.Fprintln(out, "Database schema is up to date")
				return nil
			}
			for _, v := range ran {
				fmt.Fprintf(out, "Applied %s\n", v)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "list migrations and whether they are applied")
	return cmd
}

func (c *cli) backupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a backup of the database to the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), c.cfg, c.log)
			if err != nil {
				return err
			}
			defer store.Close()

			dir := c.cfg.Storage.BackupDir
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create backup directory: %w", err)
			}
			name := fmt.Sprintf("backup_%s_%d.%s", c.cfg.Storage.Driver, time.Now().Unix(), backupExt(c.cfg.Storage.Driver))
			path := filepath.Join(dir, name)

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create backup file: %w", err)
			}
			if err := store.Backup(cmd.Context(), f); err != nil {
				f.Close()
				os.Remove(path)
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write backup file: %w", err)
			}

			c.log.Info("database backed up", zap.String("file", path))
			fmt.Fprintf(cmd.OutOrStdout(), "Database backed up successfully to %s\n", path)
			return nil
		},
	}
}

func (c *cli) restoreCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace the database contents with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backupFile := args[0]
			fi, err := os.Stat(backupFile)
			if err != nil {
				return fmt.Errorf("backup file %s: %w", backupFile, err)
			}
			if fi.Size() == 0 {
				return fmt.Errorf("backup file is empty: %s", backupFile)
			}

			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Existing data will be replaced. Continue?") {
				fmt.Fprintln(cmd.OutOrStdout(), "Operation cancelled")
				return nil
			}

			f, err := os.Open(backupFile)
			if err != nil {
				return fmt.Errorf("failed to open backup file: %w", err)
			}
			defer f.Close()

			store, err := openStore(cmd.Context(), c.cfg, c.log)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Restore(cmd.Context(), f); err != nil {
				return err
			}
			c.log.Info("database restored", zap.String("file", backupFile))
			fmt.Fprintln(cmd.OutOrStdout(), "Database restored successfully")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (c *cli) cleanCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete all records and uploaded images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Are you sure you want to clean the database? This cannot be undone.") {
				fmt.Fprintln(cmd.OutOrStdout(), "Operation cancelled")
				return nil
			}

			store, err := openStore(cmd.Context(), c.cfg, c.log)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			images := filepath.Join(c.cfg.Media.Root, media.BlogImagesDir)
			if err := os.RemoveAll(images); err != nil {
				return fmt.Errorf("failed to remove uploaded images: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database cleaned successfully")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "crudapp %s\n", Version)
			return nil
		},
	}
}

