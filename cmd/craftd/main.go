package main

import (
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	_ "go.uber.org/automaxprocs"

	craftd "github.com/craftd/craftd"
	"github.com/craftd/craftd/internal/config"
	"github.com/craftd/craftd/internal/server"
)

type CLI struct {
	Host string `arg:"" optional:"" help:"Bind address (default 0.0.0.0)."`
	Port int    `arg:"" optional:"" help:"TCP port (default 4080)."`

	Config  string           `help:"Config file path." type:"path"`
	DB      string           `help:"Block database path override."`
	Metrics string           `help:"Prometheus listen address override."`
	Debug   bool             `help:"Enable debug logging."`
	Version kong.VersionFlag `help:"Print version."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("craftd"),
		kong.Description("Authoritative multiplayer server for the Craft voxel world."),
		kong.UsageOnError(),
		kong.Vars{"version": craftd.Version()},
	)

	var cfg *config.Config
	var err error
	if cli.Config != "" {
		cfg, err = config.LoadFrom(cli.Config)
	} else {
		cfg, err = config.Load()
	}
	ctx.FatalIfErrorf(err)

	if cli.Host != "" {
		cfg.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		cfg.Server.Port = cli.Port
	}
	if cli.DB != "" {
		cfg.Store.Path = cli.DB
	}
	if cli.Metrics != "" {
		cfg.Metrics.Addr = cli.Metrics
	}
	if cli.Debug {
		cfg.Log.Level = "debug"
	}

	log := newLogger(cfg.Log)

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("server init failed")
	}

	if cfg.Metrics.Addr != "" {
		go server.ServeMetrics(cfg.Metrics.Addr, log)
	}

	if err := srv.Listen(); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var out io.Writer = os.Stderr
	if cfg.Format == "pretty" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
