// Command mlbedge is the daily-run/backfill/backtest CLI for the edge
// detection pipeline, per spec.md §6. Subcommand dispatch follows the
// flag+switch idiom (no sibling service in this codebase pulls in a CLI
// framework; see DESIGN.md).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fortuna/mlbedge/internal/config"
	"github.com/fortuna/mlbedge/internal/healthserver"
	"github.com/fortuna/mlbedge/internal/orchestrator"
	"github.com/fortuna/mlbedge/internal/pipeline"
	"github.com/fortuna/mlbedge/internal/store"
)

// exit codes per spec.md §6: 0 success, 1 hard error, 2 partial success
// with risk flags raised during the run.
const (
	exitOK      = 0
	exitError   = 1
	exitPartial = 2
)

// exitCodeForError maps a stage error to spec.md §6/§7's exit code: a
// *pipeline.FatalError (Invariant or Schema) is always 1; anything else
// that still reached this call site already degraded through one date or
// market and carries its own risk flags, so it's a 2, not a 1.
func exitCodeForError(err error) int {
	if err == nil {
		return exitOK
	}
	var fatal *pipeline.FatalError
	if errors.As(err, &fatal) {
		return exitError
	}
	return exitPartial
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return exitError
	}

	cmd, rest := args[0], args[1:]
	cfg := config.Load()

	switch cmd {
	case "init":
		return cmdInit(cfg)
	case "migrate":
		return cmdMigrate(cfg)
	case "daily":
		return cmdDaily(cfg, rest)
	case "refresh-odds":
		return cmdRefreshOdds(cfg, rest)
	case "fetch-lineups":
		return cmdFetchLineups(cfg, rest)
	case "build-features":
		return cmdBuildFeatures(cfg, rest)
	case "score":
		return cmdScore(cfg, rest)
	case "rescore-on-lineup":
		return cmdRescoreOnLineup(cfg, rest)
	case "grade":
		return cmdGrade(cfg, rest)
	case "backfill":
		return cmdBackfill(cfg, rest)
	case "backtest":
		return cmdBacktest(cfg, rest)
	case "status":
		return cmdStatus(cfg)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		printUsage()
		return exitError
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `mlbedge <command> [flags]

Commands:
  init                                             create schema + seed reference data
  migrate                                          run pending migrations only
  daily --date D [--send-alerts]                   run fetch -> build -> score -> grade -> alert
  refresh-odds --date D                            re-fetch market odds only
  fetch-lineups --date D                           re-fetch lineups only
  build-features --date D                          rebuild feature snapshots
  score --date D [--market M | --all-markets] [--send-alerts]
  rescore-on-lineup --date D [--send-alerts]
  grade --date D                                   extract outcomes, settle bets, capture CLV
  backfill --start-date S --end-date E [--build-features] [--score] [--all-markets] [--grade] [--no-bulk] [--workers N]
  backtest --market M --start-date S --end-date E [--signals BET,LEAN]
  status                                           print last run per run_type`)
}

func openStore(cfg config.Config) (*store.Store, error) {
	if cfg.UsesEmbeddedStore() {
		return store.OpenSQLite(cfg.SQLitePath)
	}
	return store.OpenPostgres(cfg.PostgresDSN)
}

func cmdInit(cfg config.Config) int {
	st, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		return exitError
	}
	defer st.DB.Close()

	ctx := context.Background()
	if err := st.RunMigrations(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "run migrations: %v\n", err)
		return exitError
	}
	if err := st.SeedReferenceData(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "seed reference data: %v\n", err)
		return exitError
	}
	fmt.Println("✓ schema migrated and reference data seeded")
	return exitOK
}

func cmdMigrate(cfg config.Config) int {
	st, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		return exitError
	}
	defer st.DB.Close()

	if err := st.RunMigrations(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "run migrations: %v\n", err)
		return exitError
	}
	fmt.Println("✓ migrations applied")
	return exitOK
}

// newOrchestrator opens the store and builds an Orchestrator, starting the
// health endpoint for long-running invocations (daily, backfill) per
// SPEC_FULL.md §4.8.
func newOrchestrator(cfg config.Config, withHealth bool) (*orchestrator.Orchestrator, *store.Store, *healthserver.Server, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	o, err := orchestrator.New(st, cfg)
	if err != nil {
		st.DB.Close()
		return nil, nil, nil, fmt.Errorf("build orchestrator: %w", err)
	}

	var health *healthserver.Server
	if withHealth && cfg.HealthPort > 0 {
		health = healthserver.New(fmt.Sprintf(":%d", cfg.HealthPort), st)
		health.Start()
		o.Health = health
	}
	return o, st, health, nil
}

func shutdown(o *orchestrator.Orchestrator, st *store.Store, health *healthserver.Server) {
	if health != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = health.Shutdown(ctx)
	}
	if o != nil {
		_ = o.Cache.Close()
	}
	if st != nil {
		st.DB.Close()
	}
}

// watchSignals cancels ctx on SIGINT/SIGTERM so a long backfill can exit
// cleanly mid-chunk rather than being killed outright.
func watchSignals() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

func cmdDaily(cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("daily", flag.ExitOnError)
	date := fs.String("date", "", "game date (YYYY-MM-DD)")
	sendAlerts := fs.Bool("send-alerts", false, "post alert webhooks for BET/LEAN selections")
	fs.Parse(args)
	if *date == "" {
		fmt.Fprintln(os.Stderr, "daily: --date is required")
		return exitError
	}

	o, st, health, err := newOrchestrator(cfg, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	defer shutdown(o, st, health)

	ctx, cancel := watchSignals()
	defer cancel()

	if err := o.RunDaily(ctx, *date, *sendAlerts); err != nil {
		fmt.Fprintf(os.Stderr, "daily run failed: %v\n", err)
		return exitError
	}
	return exitOK
}

func cmdRefreshOdds(cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("refresh-odds", flag.ExitOnError)
	date := fs.String("date", "", "game date (YYYY-MM-DD)")
	fs.Parse(args)
	if *date == "" {
		fmt.Fprintln(os.Stderr, "refresh-odds: --date is required")
		return exitError
	}

	o, st, health, err := newOrchestrator(cfg, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	defer shutdown(o, st, health)

	result, err := o.FetchAndPersist(context.Background(), *date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "refresh-odds failed: %v\n", err)
		return exitError
	}
	fmt.Printf("✓ odds refreshed: %d rows\n", result.OddsRows)
	return exitOK
}

func cmdFetchLineups(cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("fetch-lineups", flag.ExitOnError)
	date := fs.String("date", "", "game date (YYYY-MM-DD)")
	fs.Parse(args)
	if *date == "" {
		fmt.Fprintln(os.Stderr, "fetch-lineups: --date is required")
		return exitError
	}

	o, st, health, err := newOrchestrator(cfg, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	defer shutdown(o, st, health)

	result, err := o.FetchAndPersist(context.Background(), *date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch-lineups failed: %v\n", err)
		return exitError
	}
	fmt.Printf("✓ lineups fetched: %d snapshots\n", result.Lineups)
	return exitOK
}

func cmdBuildFeatures(cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("build-features", flag.ExitOnError)
	date := fs.String("date", "", "game date (YYYY-MM-DD)")
	fs.Parse(args)
	if *date == "" {
		fmt.Fprintln(os.Stderr, "build-features: --date is required")
		return exitError
	}

	o, st, health, err := newOrchestrator(cfg, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	defer shutdown(o, st, health)

	result, err := o.BuildFeatures(context.Background(), *date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build-features failed: %v\n", err)
		return exitError
	}
	fmt.Printf("✓ features built: %+v\n", result)
	return exitOK
}

func cmdScore(cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	date := fs.String("date", "", "game date (YYYY-MM-DD)")
	market := fs.String("market", "", "single market code to score")
	allMarkets := fs.Bool("all-markets", false, "score every registered market")
	sendAlerts := fs.Bool("send-alerts", false, "post alert webhooks for BET/LEAN selections")
	fs.Parse(args)
	if *date == "" {
		fmt.Fprintln(os.Stderr, "score: --date is required")
		return exitError
	}
	if *market == "" && !*allMarkets {
		fmt.Fprintln(os.Stderr, "score: one of --market or --all-markets is required")
		return exitError
	}

	o, st, health, err := newOrchestrator(cfg, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	defer shutdown(o, st, health)

	ctx := context.Background()
	if *allMarkets {
		byMarket, failedMarkets, err := o.ScoreAllMarkets(ctx, *date, "cli")
		if err != nil {
			fmt.Fprintf(os.Stderr, "score failed: %v\n", err)
			return exitError
		}
		if *sendAlerts {
			for m, selections := range byMarket {
				o.SendAlertsForMarket(ctx, *date, m, selections)
			}
		}
		fmt.Printf("✓ scored %d markets\n", len(byMarket))
		if len(failedMarkets) > 0 {
			fmt.Fprintf(os.Stderr, "⚠️  %d market(s) failed to score: %s\n", len(failedMarkets), strings.Join(failedMarkets, ","))
			return exitPartial
		}
		return exitOK
	}

	selections, err := o.ScoreMarket(ctx, *date, *market, "cli")
	if err != nil {
		fmt.Fprintf(os.Stderr, "score failed: %v\n", err)
		return exitError
	}
	if *sendAlerts {
		o.SendAlertsForMarket(ctx, *date, *market, selections)
	}
	fmt.Printf("✓ scored %s: %d selections\n", *market, len(selections))
	return exitOK
}

func cmdRescoreOnLineup(cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("rescore-on-lineup", flag.ExitOnError)
	date := fs.String("date", "", "game date (YYYY-MM-DD)")
	sendAlerts := fs.Bool("send-alerts", false, "post alert webhooks for BET/LEAN selections")
	fs.Parse(args)
	if *date == "" {
		fmt.Fprintln(os.Stderr, "rescore-on-lineup: --date is required")
		return exitError
	}

	o, st, health, err := newOrchestrator(cfg, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	defer shutdown(o, st, health)

	if err := o.RescoreOnLineup(context.Background(), *date, *sendAlerts); err != nil {
		fmt.Fprintf(os.Stderr, "rescore-on-lineup failed: %v\n", err)
		return exitError
	}
	fmt.Println("✓ rescore-on-lineup complete")
	return exitOK
}

func cmdGrade(cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("grade", flag.ExitOnError)
	date := fs.String("date", "", "game date (YYYY-MM-DD)")
	fs.Parse(args)
	if *date == "" {
		fmt.Fprintln(os.Stderr, "grade: --date is required")
		return exitError
	}

	o, st, health, err := newOrchestrator(cfg, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	defer shutdown(o, st, health)

	summary, err := o.RunGrade(context.Background(), *date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "grade failed: %v\n", err)
		return exitError
	}
	fmt.Printf("✓ grade complete: %+v\n", summary)
	return exitOK
}

func cmdBackfill(cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("backfill", flag.ExitOnError)
	start := fs.String("start-date", "", "first date (YYYY-MM-DD)")
	end := fs.String("end-date", "", "last date (YYYY-MM-DD)")
	buildFeatures := fs.Bool("build-features", false, "rebuild features for each date")
	score := fs.Bool("score", false, "score each date")
	allMarkets := fs.Bool("all-markets", false, "score every registered market (requires --score)")
	grade := fs.Bool("grade", false, "grade each date")
	noBulk := fs.Bool("no-bulk", false, "skip phase 1 raw ingest, assume already persisted")
	workers := fs.Int("workers", 0, "phase 2 worker count (0 uses BACKFILL_WORKERS)")
	fs.Parse(args)
	if *start == "" || *end == "" {
		fmt.Fprintln(os.Stderr, "backfill: --start-date and --end-date are required")
		return exitError
	}

	o, st, health, err := newOrchestrator(cfg, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	defer shutdown(o, st, health)

	ctx, cancel := watchSignals()
	defer cancel()

	opts := orchestrator.BackfillOptions{
		BuildFeatures: *buildFeatures,
		Score:         *score,
		AllMarkets:    *allMarkets,
		Grade:         *grade,
		NoBulk:        *noBulk,
		Workers:       *workers,
	}
	if err := o.RunBackfill(ctx, *start, *end, opts); err != nil {
		fmt.Fprintf(os.Stderr, "backfill failed: %v\n", err)
		return exitCodeForError(err)
	}
	fmt.Println("✓ backfill complete")
	return exitOK
}

func cmdBacktest(cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	market := fs.String("market", "", "market code to backtest")
	start := fs.String("start-date", "", "first date (YYYY-MM-DD)")
	end := fs.String("end-date", "", "last date (YYYY-MM-DD)")
	signalsCSV := fs.String("signals", "", "comma-separated signal filter (BET,LEAN); empty means all")
	fs.Parse(args)
	if *market == "" || *start == "" || *end == "" {
		fmt.Fprintln(os.Stderr, "backtest: --market, --start-date, and --end-date are required")
		return exitError
	}

	var signals []string
	if *signalsCSV != "" {
		signals = strings.Split(*signalsCSV, ",")
	}

	o, st, health, err := newOrchestrator(cfg, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	defer shutdown(o, st, health)

	summary, err := o.RunBacktest(context.Background(), *market, *start, *end, signals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtest failed: %v\n", err)
		return exitError
	}

	fmt.Print(orchestrator.FormatBacktestCSV(summary.Rows))
	fmt.Fprintf(os.Stderr, "\n✓ %d rows, win rate %.1f%% (pushes excluded), ROI %.1f%%\n",
		len(summary.Rows), summary.WinRatePct, summary.ROIPct)
	for bucket, c := range summary.Calibration {
		fmt.Fprintf(os.Stderr, "  bucket %-8s n=%-5d win rate=%.1f%%\n", bucket, c.Count, c.WinRate)
	}
	return exitOK
}

func cmdStatus(cfg config.Config) int {
	st, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		return exitError
	}
	defer st.DB.Close()

	o, err := orchestrator.New(st, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build orchestrator: %v\n", err)
		return exitError
	}

	rows, err := o.Status(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "status failed: %v\n", err)
		return exitError
	}
	fmt.Print(orchestrator.FormatStatus(rows))
	return exitOK
}
