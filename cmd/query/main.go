// Command query is an interactive REPL over the resale-flat dataset.
// Each line is a comma-separated list of filter clauses, ANDed together,
// e.g.:
//
//	town = ANG MO KIO, resale_price range [300000,500000)
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/resaleidx/resaleidx/internal/config"
	"github.com/resaleidx/resaleidx/internal/indexmgr"
	"github.com/resaleidx/resaleidx/internal/interval"
	"github.com/resaleidx/resaleidx/internal/metrics"
	"github.com/resaleidx/resaleidx/internal/obslog"
	"github.com/resaleidx/resaleidx/internal/querylang"
	"github.com/resaleidx/resaleidx/pkg/schema"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	oneShot := flag.String("c", "", "run one query and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query: %v\n", err)
		os.Exit(1)
	}

	log := obslog.New(obslog.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty}).Component("query")
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

	ds, err := schema.Open(cfg.DataDir, cfg.IndexDir, cfg.Pager.CacheBlocks, m.ForPager(), log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query: open dataset: %v\n", err)
		os.Exit(1)
	}
	defer ds.Close()

	fmt.Printf("resaleidx query: %d rows indexed\n", ds.RowCount())
	fmt.Println("type \\help for help")

	if strings.TrimSpace(*oneShot) != "" {
		runQuery(ds, m, *oneShot)
		return
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "resaleidx> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "query: readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			fmt.Println("^C")
			continue
		}
		if err != nil {
			fmt.Println()
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isMetaCommand(line) {
			handleMetaCommand(line, ds)
			if line == "\\q" || line == "quit" || line == "exit" {
				return
			}
			continue
		}
		runQuery(ds, m, line)
	}
}

func isMetaCommand(line string) bool {
	return strings.HasPrefix(line, "\\") || line == "quit" || line == "exit"
}

func handleMetaCommand(line string, ds *schema.Dataset) {
	switch line {
	case "\\q", "quit", "exit":
		return
	case "\\help":
		fmt.Println(`meta commands:
  \q | quit | exit     quit
  \count                print the number of indexed rows
  \help                 show help

query:
  comma-separated filter clauses, ANDed together:
    <column> = <value>
    <column> < <value> | <column> <= <value>
    <column> > <value> | <column> >= <value>
    <column> range [lo,hi] | [lo,hi) | (lo,hi] | (lo,hi)

  columns: month, town, flat_type, block, street_name, storey_range,
  flat_model, floor_area_sqm, lease_commence_date, resale_price`)
	case "\\count":
		fmt.Println(ds.RowCount())
	default:
		fmt.Printf("unknown command: %s\n", line)
	}
}

func runQuery(ds *schema.Dataset, m *metrics.Metrics, line string) {
	filters, err := parseFilters(ds, line)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	start := time.Now()
	ids, err := ds.Search(filters...)
	m.ObserveQuery(start, len(ids))
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	fmt.Printf("(%d matching rows, %s)\n", len(ids), time.Since(start))
	if len(ids) == 0 {
		return
	}
	if len(ids) > 20 {
		ids = ids[:20]
	}
	rows, err := ds.Fetch(ids)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	printRows(rows)
}

func parseFilters(ds *schema.Dataset, line string) ([]indexmgr.Filter, error) {
	var clauses []string
	depth, start := 0, 0
	for i, r := range line {
		switch r {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
		case ',':
			if depth == 0 {
				clauses, start = append(clauses, line[start:i]), i+1
			}
		}
	}
	clauses = append(clauses, line[start:])
	filters := make([]indexmgr.Filter, 0, len(clauses))
	for _, clause := range clauses {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		f, err := buildFilter(ds, clause)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

func buildFilter(ds *schema.Dataset, clause string) (indexmgr.Filter, error) {
	column, op, rest, err := querylang.ParseClause(clause)
	if err != nil {
		return nil, err
	}

	switch column {
	case "month", "town", "flat_type", "block", "street_name", "storey_range", "flat_model":
		iv, err := querylang.StringInterval(op, rest)
		if err != nil {
			return nil, err
		}
		switch column {
		case "month":
			return ds.Index.MonthFilter([]interval.Interval[string]{iv}), nil
		case "town":
			return ds.Index.TownFilter([]interval.Interval[string]{iv}), nil
		case "flat_type":
			return ds.Index.FlatTypeFilter([]interval.Interval[string]{iv}), nil
		case "block":
			return ds.Index.BlockFilter([]interval.Interval[string]{iv}), nil
		case "street_name":
			return ds.Index.StreetNameFilter([]interval.Interval[string]{iv}), nil
		case "storey_range":
			return ds.Index.StoreyRangeFilter([]interval.Interval[string]{iv}), nil
		default:
			return ds.Index.FlatModelFilter([]interval.Interval[string]{iv}), nil
		}
	case "floor_area_sqm", "resale_price":
		iv, err := querylang.Float64Interval(op, rest)
		if err != nil {
			return nil, err
		}
		if column == "floor_area_sqm" {
			return ds.Index.FloorAreaSqmFilter([]interval.Interval[float64]{iv}), nil
		}
		return ds.Index.ResalePriceFilter([]interval.Interval[float64]{iv}), nil
	case "lease_commence_date":
		iv, err := querylang.Int32Interval(op, rest)
		if err != nil {
			return nil, err
		}
		return ds.Index.LeaseCommenceDateFilter([]interval.Interval[int32]{iv}), nil
	default:
		return nil, fmt.Errorf("unknown column %q", column)
	}
}

func printRows(rows []schema.Row) {
	fmt.Println("month | town | flat_type | block | street_name | storey_range | floor_area_sqm | flat_model | lease_commence_date | resale_price")
	for _, r := range rows {
		fmt.Printf("%s | %s | %s | %s | %s | %s | %.1f | %s | %d | %.2f\n",
			r.Month, r.Town, r.FlatType, r.Block, r.StreetName, r.StoreyRange,
			r.FloorAreaSqm, r.FlatModel, r.LeaseCommenceDate, r.ResalePrice)
	}
}
