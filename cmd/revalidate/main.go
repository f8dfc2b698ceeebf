package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/always-cache/revalidate"
	"github.com/always-cache/revalidate/body"
	"github.com/always-cache/revalidate/config"
	"github.com/always-cache/revalidate/transport"
)

var (
	// CLI flags
	urlFlag            string
	policyFlag         string
	fallbackFlag       string
	providerFlag       string
	dbFilenameFlag     string
	redisAddrFlag      string
	configFilenameFlag string
	selectFlag         string
	timeoutFlag        time.Duration
	refreshFlag        bool
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&urlFlag, "url", "", "URL to fetch")
	flag.StringVar(&policyFlag, "policy", "", "Policy: default, reload, cache-only or cache-then-fetch")
	flag.StringVar(&fallbackFlag, "fallback", "", "Text delivered on a cache miss (cache-then-fetch only)")
	flag.StringVar(&providerFlag, "provider", "", "Cache provider: sqlite, memory or redis")
	flag.StringVar(&dbFilenameFlag, "db", "", "Cache DB file name (use 'memory' for in-memory db)")
	flag.StringVar(&redisAddrFlag, "redis", "", "Redis address for the redis provider")
	flag.StringVar(&configFilenameFlag, "config", "", "YAML config file")
	flag.StringVar(&selectFlag, "select", "", "GJSON path selecting part of structured bodies")
	flag.DurationVar(&timeoutFlag, "timeout", 0, "Timeout for a single request")
	flag.BoolVar(&refreshFlag, "refresh", false, "Reload all stored responses and exit")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stderr)")

	if version == "" {
		version = "DEV"
	}
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of revalidate %s:\n", version)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	setupLogging()

	cfg, err := config.Load(configFilenameFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load config")
	}
	if err := applyFlags(&cfg); err != nil {
		log.Fatal().Err(err).Msg("Invalid flags")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := cfg.OpenCache(ctx, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Provider).Msg("Could not open cache")
	}
	defer store.Close()

	fetcher, err := transport.NewHTTPFetcher(cfg.FetcherConfig(store, &log.Logger))
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create fetcher")
	}

	if refreshFlag {
		stats, err := fetcher.RefreshAll(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Refresh interrupted")
		}
		log.Info().Int("refreshed", stats.Refreshed).Int("purged", stats.Purged).Msg("Refresh done")
		return
	}

	if urlFlag == "" {
		log.Fatal().Msg("Please specify url")
	}
	client, err := revalidate.CreateClient(revalidate.Config{Fetcher: fetcher, Logger: &log.Logger})
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create client")
	}

	fallback := body.Absent()
	if fallbackFlag != "" {
		fallback = body.Text(fallbackFlag)
	}

	out := printer{w: os.Stdout, selector: selectFlag}
	failed := false
	n := 0
	for result := range client.Stream(ctx, urlFlag, cfg.Policy, fallback) {
		n++
		if err := out.print(n, result); err != nil {
			log.Error().Err(err).Msg("Could not print result")
		}
		failed = failed || !result.OK()
	}
	if failed {
		store.Close()
		os.Exit(1)
	}
}

func setupLogging() {
	// set log level
	logLevel := zerolog.InfoLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stderr, results go to stdout
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stderr})
	if logFilenameFlag != "" {
		logOutputs = append(logOutputs, &lumberjack.Logger{
			Filename:   logFilenameFlag,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		})
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Timestamp().Str("version", version).Logger()
}

// applyFlags overrides the config with the flags given on the command line.
func applyFlags(cfg *config.Config) error {
	var err error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "policy":
			if p, perr := revalidate.ParsePolicy(policyFlag); perr != nil {
				err = perr
			} else {
				cfg.Policy = p
			}
		case "provider":
			cfg.Provider = providerFlag
		case "db":
			cfg.DB = dbFilenameFlag
		case "redis":
			cfg.Redis.Addr = redisAddrFlag
		case "timeout":
			cfg.Timeout = timeoutFlag
		}
	})
	if err != nil {
		return err
	}
	return cfg.Validate()
}
