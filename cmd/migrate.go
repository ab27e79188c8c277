package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cinelist/cineapi/internal/config"
	"github.com/cinelist/cineapi/internal/db"
	"github.com/cinelist/cineapi/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, errLoad := config.Load(cfgFile)
		if errLoad != nil {
			return errLoad
		}
		logging.Setup(cfg.Log)

		conn, errOpen := db.Open(cfg.Database.DSN)
		if errOpen != nil {
			return errOpen
		}
		if errMigrate := db.Migrate(conn); errMigrate != nil {
			return errMigrate
		}
		log.Info("migrate: schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
