package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aurigaai/auriga-setup-agent-go/log"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/cmd/util"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/config"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/db/migrate"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs the journal database migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startMigration(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&config.MigrationSourceURL,
		"migration-source-url",
		"m",
		"",
		"url to migration files (default: embedded migrations)")

	return cmd
}

func startMigration(ctx context.Context) error {
	if _, err := util.SetupLogger(); err != nil {
		return err
	}
	if config.DB == "" {
		return fmt.Errorf("--db is required")
	}
	if err := util.WaitForRequiredServices(ctx); err != nil {
		return err
	}
	dbURL := prepareURLForDB(config.DB)
	var err error
	if config.MigrationSourceURL == "" {
		log.Info("Using embedded migrations")
		err = migrate.MigrateDb(dbURL)
	} else {
		log.Info("Using migrations files at", log.String("source", config.MigrationSourceURL))
		err = migrate.MigrateFromSource(config.MigrationSourceURL, dbURL)
	}
	if err != nil {
		return err
	}
	log.Info("Database is up to date")
	return nil
}

func prepareURLForDB(url string) string {
	options := "sslmode=disable"
	if strings.Contains(url, "sslmode=") {
		return url
	}
	if strings.Contains(url, "?") {
		return fmt.Sprintf("%s&%s", url, options)
	}
	return fmt.Sprintf("%s?%s", url, options)
}
