package cmd

import (
	"context"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cinelist/cineapi/internal/cache"
	"github.com/cinelist/cineapi/internal/catalog"
	"github.com/cinelist/cineapi/internal/config"
	"github.com/cinelist/cineapi/internal/db"
	"github.com/cinelist/cineapi/internal/keys"
	"github.com/cinelist/cineapi/internal/logging"
	"github.com/cinelist/cineapi/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, errLoad := config.Load(cfgFile)
		if errLoad != nil {
			return errLoad
		}
		logging.Setup(cfg.Log)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		conn, errOpen := db.Open(cfg.Database.DSN)
		if errOpen != nil {
			return errOpen
		}
		if errMigrate := db.Migrate(conn); errMigrate != nil {
			return errMigrate
		}

		cacheStore := cache.New(ctx, cfg.Redis.URL, cfg.CacheTTL())
		defer func() {
			if errClose := cacheStore.Close(); errClose != nil {
				log.WithError(errClose).Warn("serve: close cache")
			}
		}()

		keySvc := keys.NewService(conn)
		catalogSvc := catalog.NewService(conn, nil)

		router := server.NewRouter(cfg, keySvc, catalogSvc, cacheStore)
		return server.New(cfg.Server.Addr, router).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
