package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"portal/internal/app"
	"portal/internal/db"
)

var (
	// global flags
	dbURL    string
	logLevel string

	log logrus.FieldLogger = logrus.StandardLogger()
)

var rootCmd = &cobra.Command{
	Use:   "portalctl",
	Short: "Administration tool for the village portal",
	Long: `portalctl manages the village portal database: it applies the schema,
creates admin accounts and loads demo data.

Connection settings come from the same environment (and .env file) the
server reads; --db overrides DATABASE_URL.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}
		if dbURL == "" {
			dbURL = cfg.DatabaseURL
		}
		if logLevel == "" {
			logLevel = cfg.LogLevel
		}
		log = app.NewLogger("portalctl", logLevel)
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database connection URL (defaults to DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (defaults to LOG_LEVEL)")
}

// openDB connects and brings the schema up to date; every command needs both.
func openDB(ctx context.Context) (*sql.DB, error) {
	d, err := db.Open(ctx, dbURL, db.Options{}, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, d); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}
