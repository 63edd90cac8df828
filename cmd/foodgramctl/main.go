package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/app"
	"github.com/pageza/foodgram/backend/internal/importer"
	"github.com/pageza/foodgram/backend/internal/service"
)

var rootCmd = &cobra.Command{
	Use:           "foodgramctl",
	Short:         "Maintenance commands for the foodgram backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(migrateCmd, loadIngredientsCmd, loadTagsCmd, removeDuplicatesCmd, purgeTokensCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withDB loads the configuration and opens a migrated database.
func withDB(ctx context.Context, fn func(*config.Config, *gorm.DB) error) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	db, err := app.OpenDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	return fn(cfg, db)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(*config.Config, *gorm.DB) error {
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		})
	},
}

var loadIngredientsCmd = &cobra.Command{
	Use:   "load-ingredients",
	Short: "Load ingredients from a name,m_unit CSV file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return loadCSV(cmd, func(im *importer.Importer, f *os.File) (importer.Result, error) {
			return im.LoadIngredients(cmd.Context(), f)
		}, "ingredients")
	},
}

var loadTagsCmd = &cobra.Command{
	Use:   "load-tags",
	Short: "Load tags from a name,slug CSV file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return loadCSV(cmd, func(im *importer.Importer, f *os.File) (importer.Result, error) {
			return im.LoadTags(cmd.Context(), f)
		}, "tags")
	},
}

func loadCSV(cmd *cobra.Command, load func(*importer.Importer, *os.File) (importer.Result, error), noun string) error {
	path, _ := cmd.Flags().GetString("file")
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return withDB(cmd.Context(), func(_ *config.Config, db *gorm.DB) error {
		res, err := load(importer.New(db), f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "loaded %d %s, skipped %d duplicates\n", res.Loaded, noun, res.Skipped)
		return nil
	})
}

var removeDuplicatesCmd = &cobra.Command{
	Use:   "remove-duplicate-ingredients",
	Short: "Delete ingredients that repeat a (name, unit) pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(_ *config.Config, db *gorm.DB) error {
			res, err := importer.New(db).RemoveDuplicateIngredients(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "removed %d duplicate ingredients\n", res.Removed)
			fmt.Fprintf(out, "%d unique ingredients remain\n", res.Remaining)
			return nil
		})
	},
}

var purgeTokensCmd = &cobra.Command{
	Use:   "purge-tokens",
	Short: "Delete revocation records of expired tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(cfg *config.Config, db *gorm.DB) error {
			auth := service.NewAuthService(db, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
			n, err := auth.PurgeExpiredRevocations(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d revoked tokens\n", n)
			return nil
		})
	},
}

func init() {
	loadIngredientsCmd.Flags().String("file", "data/ingredients.csv", "path to the ingredients CSV")
	loadTagsCmd.Flags().String("file", "data/tags.csv", "path to the tags CSV")
}
