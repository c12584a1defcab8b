// tabula serves a relational database over a small JSON HTTP API.
//
// Configuration comes from a YAML file (--config, default tabula.yaml if
// present), TABULA_* variables for the server, and DB_* variables for the
// database connection.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/koustreak/tabula/internal/config"
	"github.com/koustreak/tabula/internal/database"
	_ "github.com/koustreak/tabula/internal/database/mysql"
	_ "github.com/koustreak/tabula/internal/database/postgres"
	_ "github.com/koustreak/tabula/internal/database/sqlite"
	"github.com/koustreak/tabula/internal/filestore"
	"github.com/koustreak/tabula/internal/filestore/minio"
	"github.com/koustreak/tabula/internal/logger"
	"github.com/koustreak/tabula/internal/server"
)

const defaultConfigPath = "tabula.yaml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, addr, logLevel string

	flagSet := pflag.NewFlagSet("tabula", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", defaultConfigPath, "path to YAML config file")
	flagSet.StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn or error; overrides logging.level")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	source := configPath
	cfg, err := config.Load(configPath)
	if err != nil && config.Optional(err) && !flagSet.Changed("config") {
		source = "defaults and environment"
		cfg, err = config.Load("")
	}
	if err != nil {
		return err
	}
	if flagSet.Changed("addr") {
		cfg.Server.Addr = addr
	}
	if flagSet.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(cfg.LoggerConfig())
	log.Debugf("configuration loaded from %s", source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := database.New(database.WithLogger(log))
	if err := pool.Init(ctx, cfg.Database); err != nil {
		return fmt.Errorf("init database: %w", err)
	}

	var files filestore.Store
	if cfg.Downloads.Enabled() {
		d, err := minio.New(ctx, &cfg.Downloads)
		if err != nil {
			_ = pool.Close(context.Background())
			return fmt.Errorf("init download store: %w", err)
		}
		files = d
		log.Infof("downloads served from bucket %s", cfg.Downloads.Bucket)
	}

	srv, err := server.New(server.Deps{
		Config: cfg.Server,
		Logger: log,
		Store:  pool,
		Files:  files,
	})
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		_ = pool.Close(context.Background())
		return err
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Close(shutdownCtx); err != nil {
		log.ErrorWith("http shutdown", err, nil)
	}
	if files != nil {
		_ = files.Close()
	}
	if err := pool.Close(shutdownCtx); err != nil {
		log.ErrorWith("database shutdown", err, nil)
	}
	log.Info("stopped")
	return nil
}
