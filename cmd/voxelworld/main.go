package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"

	"voxelworld/internal/config"
	"voxelworld/internal/engine"
	"voxelworld/internal/persistence"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xlab/closer"
)

func main() {
	var (
		configPath  = flag.String("config", "", "YAML config file (defaults to $"+config.EnvConfigPath+")")
		seed        = flag.Int64("seed", 0, "world seed, overrides the config when non-zero")
		frames      = flag.Int("frames", 600, "frames to simulate")
		speed       = flag.Float64("speed", 12, "flight speed in blocks per second")
		savePath    = flag.String("save", "", "write a snapshot here on exit")
		loadPath    = flag.String("load", "", "restore this snapshot before flying")
		editLogDir  = flag.String("editlog", "", "BadgerDB directory for the voxel edit journal")
		metricsAddr = flag.String("metrics-addr", "", "serve Prometheus metrics on this address")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *savePath == "" {
		*savePath = cfg.Persistence.SnapshotPath
	}
	if *editLogDir == "" {
		*editLogDir = cfg.Persistence.EditLogDir
	}

	opts := engine.Options{Config: cfg, Logger: log, Registerer: prometheus.DefaultRegisterer}
	var journal *persistence.BadgerEditLog
	if *editLogDir != "" {
		journal, err = persistence.OpenEditLog(*editLogDir)
		if err != nil {
			log.Error("open edit log", "dir", *editLogDir, "error", err)
			os.Exit(1)
		}
		opts.EditLog = journal
	}

	eng, err := engine.New(opts)
	if err != nil {
		log.Error("create engine", "error", err)
		os.Exit(1)
	}

	if *loadPath != "" {
		snap, err := persistence.ReadFile(*loadPath)
		if err == nil {
			err = eng.Restore(snap)
		}
		if err != nil {
			log.Error("restore snapshot", "path", *loadPath, "error", err)
			os.Exit(1)
		}
	}

	if *metricsAddr != "" {
		go func() {
			log.Info("serving metrics", "addr", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, promhttp.Handler()); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	closer.Bind(func() {
		cancel()
		<-done
		if *savePath != "" {
			if err := persistence.WriteFile(*savePath, eng.Snapshot()); err != nil {
				log.Error("save snapshot", "path", *savePath, "error", err)
			} else {
				log.Info("snapshot saved", "path", *savePath, "columns", eng.Store().Len())
			}
		}
		if err := eng.Close(); err != nil {
			log.Error("close engine", "error", err)
		}
		if journal != nil {
			if err := journal.Close(); err != nil {
				log.Error("close edit log", "error", err)
			}
		}
	})

	go func() {
		err := fly(ctx, eng, flightPlan{Frames: *frames, Speed: float32(*speed), Dt: 1.0 / 60, DigEvery: 30}, log)
		close(done)
		if err != nil {
			log.Error("flight aborted", "error", err)
			closer.Exit(closer.ExitCodeErr)
			return
		}
		closer.Close()
	}()
	closer.Hold()
}
