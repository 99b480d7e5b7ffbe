package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/udisondev/d20combat/internal/config"
	"github.com/udisondev/d20combat/internal/data"
	"github.com/udisondev/d20combat/internal/db"
	"github.com/udisondev/d20combat/internal/game/combat"
	"github.com/udisondev/d20combat/internal/sim"
)

const ConfigPath = "config/combatsim.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("D20_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadSimulator(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, _ := cfg.Level()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))
	slog.Info("config loaded", "seed", cfg.Seed, "runs", cfg.Runs, "workers", cfg.Workers, "journal", cfg.Journal.Driver)

	catalog, err := data.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	strategy, err := combat.ParseDRStrategy(cfg.DRStrategy)
	if err != nil {
		return err
	}

	journal, closeJournal, err := openJournal(ctx, cfg.Journal)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer func() {
		if err := closeJournal.Close(); err != nil {
			slog.Warn("closing journal", "err", err)
		}
	}()

	simCfg := sim.Config{
		Seed:      cfg.Seed,
		Runs:      cfg.Runs,
		Workers:   cfg.Workers,
		MaxRounds: cfg.MaxRounds,
		Strategy:  strategy,
		Journal:   journal,
	}
	for _, t := range cfg.Teams {
		simCfg.Teams = append(simCfg.Teams, sim.Team{Name: t.Name, Members: t.Members})
	}

	rep, err := sim.Run(ctx, catalog, simCfg)
	if err != nil {
		return err
	}
	printReport(os.Stdout, rep)
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openJournal connects the configured journal store; "none" yields nil.
func openJournal(ctx context.Context, cfg config.JournalConfig) (sim.Journal, io.Closer, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		dsn := cfg.Database.DSN()
		if err := db.RunMigrations(ctx, dsn); err != nil {
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		database, err := db.New(ctx, dsn, cfg.Database.MaxConns)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("journal connected", "driver", cfg.Driver, "host", cfg.Database.Host)
		return database, database, nil
	case config.DriverSQLite:
		store, err := db.OpenSQLite(ctx, cfg.SQLite)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("journal opened", "driver", cfg.Driver, "path", cfg.SQLite)
		return store, store, nil
	}
	return nil, nopCloser{}, nil
}

func printReport(w io.Writer, rep sim.Report) {
	fmt.Fprintf(w, "runs:        %d\n", rep.Runs)
	for _, team := range slices.Sorted(maps.Keys(rep.Wins)) {
		fmt.Fprintf(w, "wins %-7s %d (%.1f%%)\n", team+":", rep.Wins[team], 100*float64(rep.Wins[team])/float64(rep.Runs))
	}
	fmt.Fprintf(w, "draws:       %d\n", rep.Draws)
	fmt.Fprintf(w, "mean rounds: %.2f\n", rep.MeanRounds)
	fmt.Fprintf(w, "attacks:     %d (hit %.1f%%, crits %d)\n", rep.Attacks, 100*rep.HitRate(), rep.Crits)
	fmt.Fprintf(w, "damage/hit:  p50 %d  p90 %d  p99 %d  max %d\n", rep.DamageP50, rep.DamageP90, rep.DamageP99, rep.DamageMax)
}
