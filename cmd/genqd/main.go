package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/casbin/casbin/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/genq/internal/censor"
	"github.com/matthewbaird/genq/internal/dataset"
	"github.com/matthewbaird/genq/internal/engine"
	"github.com/matthewbaird/genq/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "genqd",
		Short:        "Query engine demo server over the geography dataset",
		SilenceUsage: true,
		RunE:         run,
	}
	cmd.Flags().Int("port", 8080, "HTTP listen port")
	cmd.Flags().String("db", "file:genq.db?_pragma=foreign_keys(1)", "SQLite DSN")
	cmd.Flags().Int("default-limit", engine.DefaultLimit, "rows returned when no c:limit is given")
	cmd.Flags().Int("max-limit", engine.DefaultMax, "highest accepted c:limit value")
	cmd.Flags().String("authz-model", "", "casbin model file; enables per-user permission checks")
	cmd.Flags().String("authz-policy", "", "casbin policy file")

	viper.SetEnvPrefix("GENQ")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		log.Fatal(err)
	}
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("sqlite", viper.GetString("db"))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := dataset.Seed(ctx, db); err != nil {
		return err
	}
	registry := dataset.Registry()
	store, err := dataset.Load(ctx, db, registry)
	if err != nil {
		return err
	}
	log.Printf("loaded %d entity types", len(registry.EntityNames()))

	opts := engine.Options{
		DefaultLimit: viper.GetInt("default-limit"),
		MaxLimit:     viper.GetInt("max-limit"),
	}
	if model := viper.GetString("authz-model"); model != "" {
		enforcer, err := casbin.NewEnforcer(model, viper.GetString("authz-policy"))
		if err != nil {
			return fmt.Errorf("loading authorization policy: %w", err)
		}
		opts.UsePermissions = true
		opts.Checker = censor.NewEnforcerChecker(enforcer)
	}

	eng, err := engine.New(registry, store, opts)
	if err != nil {
		return err
	}

	return server.Run(ctx, server.Config{
		Port:   viper.GetInt("port"),
		Engine: eng,
	})
}
