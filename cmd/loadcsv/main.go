// Command loadcsv rewrites the resale-flat column store from a CSV file
// and inserts every row into the index trees (see schema.Dataset.Build).
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/resaleidx/resaleidx/internal/config"
	"github.com/resaleidx/resaleidx/internal/metrics"
	"github.com/resaleidx/resaleidx/internal/obslog"
	"github.com/resaleidx/resaleidx/pkg/schema"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		csvPath    = flag.String("csv", "", "path to the resale-flat CSV file to load")
	)
	flag.Parse()

	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "loadcsv: -csv is required")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loadcsv: %v\n", err)
		os.Exit(1)
	}

	log := obslog.New(obslog.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty}).Component("loadcsv")

	m := metrics.New()
	if cfg.Metrics.Enabled {
		go func() {
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("serving metrics")
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Addr, nil); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	start := time.Now()
	rows, err := schema.LoadCSV(*csvPath, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to parse csv")
		os.Exit(1)
	}

	ds, err := schema.Open(cfg.DataDir, cfg.IndexDir, cfg.Pager.CacheBlocks, m.ForPager(), log)
	if err != nil {
		log.Error().Err(err).Msg("failed to open dataset")
		os.Exit(1)
	}
	defer ds.Close()

	if err := ds.Build(rows); err != nil {
		log.Error().Err(err).Msg("failed to build dataset")
		os.Exit(1)
	}
	m.ObserveRowsIndexed(len(rows))

	log.Info().
		Int("rows", len(rows)).
		Dur("elapsed", time.Since(start)).
		Msg("load complete")
}
