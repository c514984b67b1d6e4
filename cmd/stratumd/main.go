// Command stratumd runs a stratum storage engine behind a TCP listener.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/urfave/cli/v3"

	"stratum/internal/config"
	"stratum/internal/engine"
	"stratum/internal/server"
)

func main() {
	cmd := &cli.Command{
		Name:  "stratumd",
		Usage: "run a stratum key-value store server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to a TOML configuration file"},
			&cli.StringFlag{Name: "data-dir", Usage: "override engine.data_dir"},
			&cli.StringFlag{Name: "listen-addr", Usage: "override server.listen_addr"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("stratumd exited")
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if v := cmd.String("data-dir"); v != "" {
		cfg.Engine.DataDir = v
	}
	if v := cmd.String("listen-addr"); v != "" {
		cfg.Server.ListenAddr = v
	}

	log.Info().
		Str("data_dir", cfg.Engine.DataDir).
		Int("sparse_stride", cfg.Engine.SparseStride).
		Int64("memtable_capacity", cfg.Engine.MemtableCapacity).
		Msg("opening engine")

	eng, err := engine.Open(engine.Config{
		DataDir:          cfg.Engine.DataDir,
		SparseStride:     cfg.Engine.SparseStride,
		MemtableCapacity: cfg.Engine.MemtableCapacity,
		CreateIfMissing:  cfg.Engine.CreateIfMissing,
	})
	if err != nil {
		return err
	}

	controller := engine.NewController(eng, func(err error) {
		log.Error().Err(err).Msg("background flush failed")
	})

	var compactor *engine.Compactor
	if cfg.Server.CompactionInterval != "" {
		interval, err := time.ParseDuration(cfg.Server.CompactionInterval)
		if err != nil {
			return err
		}
		compactor = engine.NewCompactor(interval, controller.Compact, func(err error) {
			log.Error().Err(err).Msg("background compaction failed")
		})
		compactor.Start()
	}

	srv := server.NewServer(cfg.Server.ListenAddr, controller)
	if err := srv.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
	if compactor != nil {
		compactor.Stop()
	}
	if err := srv.Stop(); err != nil {
		log.Error().Err(err).Msg("shutdown error")
		return err
	}
	log.Info().Msg("shutdown complete")
	return nil
}
