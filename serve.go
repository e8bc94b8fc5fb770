package main

import (
	"context"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cppla/blogapi/routes"
	"github.com/cppla/blogapi/services"
	"github.com/cppla/blogapi/utils"
)

func newServeCommand() *cobra.Command {
	flags := configFlags()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), flags[configFlag].GetString())
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

func serve(ctx context.Context, configPath string) error {
	rt, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer rt.close()

	rc, err := utils.NewRedis(ctx, rt.cfg.Redis)
	if err != nil {
		// Redis only backs the list cache and the token blacklist; both degrade.
		rt.log.Warn("redis unavailable, continuing without it", zap.Error(err))
		rc = nil
	}
	if rc != nil {
		defer rc.Close()
	}

	svc := rt.service(services.Options{
		Tokens:    utils.NewTokenIssuer(rt.cfg.Auth.JWTSecret, rt.cfg.Auth.AccessTokenTTL()),
		Blacklist: utils.NewTokenBlacklist(rc),
	})
	if err := seed(ctx, rt, svc); err != nil {
		return err
	}

	cache := utils.NewCache(rc, time.Duration(rt.cfg.Redis.CacheTTLMinutes)*time.Minute, rt.log)
	r := routes.SetupRouter(rt.cfg, svc, cache, rt.log)

	rt.log.Info("starting server", zap.String("port", rt.cfg.App.Port), zap.String("db_driver", rt.cfg.Database.Driver))
	return utils.GraceServer(":"+rt.cfg.App.Port, r, rt.log)
}
