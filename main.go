package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/services"
	"github.com/cppla/blogapi/utils"
)

const configFlag = "config"

func configFlags() map[string]cobraflags.Flag {
	return map[string]cobraflags.Flag{
		configFlag: &cobraflags.StringFlag{
			Name:  configFlag,
			Value: "",
			Usage: "Path to a config file (yaml, json or toml). Defaults to ./config.yaml when present",
		},
	}
}

func main() {
	root := &cobra.Command{
		Use:           "blogapi",
		Short:         "Blog content API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newInitDBCommand())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what both commands need before doing their actual work.
type env struct {
	cfg *config.AppConfig
	log *zap.Logger
	db  *gorm.DB
}

func bootstrap(configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := utils.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := config.OpenDatabase(cfg.Database, cfg.Log.Level, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	if err := config.Migrate(db); err != nil {
		_ = log.Sync()
		return nil, err
	}
	return &env{cfg: cfg, log: log, db: db}, nil
}

func (e *env) close() {
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = e.log.Sync()
}

func (e *env) service(opts services.Options) *services.Service {
	opts.Hasher = utils.BcryptHasher{Cost: e.cfg.Auth.BcryptCost}
	opts.Pagination = e.cfg.Pagination
	opts.Logger = e.log
	return services.New(services.NewStore(e.db, e.log), opts)
}

func seed(ctx context.Context, e *env, svc *services.Service) error {
	if err := svc.Seed(ctx, e.cfg.Admin); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}
