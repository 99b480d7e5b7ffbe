package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/d20combat/internal/data"
	"github.com/udisondev/d20combat/internal/model"
)

// Report aggregates the results of a batch of encounters.
type Report struct {
	Runs       int
	Wins       map[string]int
	Draws      int
	MeanRounds float64
	Attacks    int
	Hits       int
	Crits      int
	DamageP50  int
	DamageP90  int
	DamageP99  int
	DamageMax  int
	Results    []Result
}

// HitRate returns hits per attack.
func (r Report) HitRate() float64 {
	if r.Attacks == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.Attacks)
}

// Validate checks a batch config.
func (c *Config) Validate() error {
	if c.Runs <= 0 {
		return fmt.Errorf("runs must be positive, got %d", c.Runs)
	}
	if c.MaxRounds <= 0 {
		return fmt.Errorf("max rounds must be positive, got %d", c.MaxRounds)
	}
	if len(c.Teams) < 2 {
		return errors.New("need at least two teams")
	}
	return nil
}

// Run executes cfg.Runs encounters on up to cfg.Workers goroutines. The first
// failing encounter cancels the rest.
func Run(ctx context.Context, c *data.Catalog, cfg Config) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	start := time.Now()

	if cfg.Journal != nil {
		id, err := cfg.Journal.BeginSimulation(ctx, model.SimulationRecord{
			Seed:      cfg.Seed,
			Runs:      cfg.Runs,
			StartedAt: start,
		})
		if err != nil {
			return Report{}, fmt.Errorf("simulation %s: journal: %w", cfg.Seed, err)
		}
		cfg.SimulationID = id
	}

	results := make([]Result, cfg.Runs)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for run := range cfg.Runs {
		g.Go(func() error {
			res, err := RunEncounter(gctx, c, &cfg, run)
			if err != nil {
				return err
			}
			results[run] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("simulation %s: %w", cfg.Seed, err)
	}

	rep := Summarize(results)
	slog.Info("simulation finished",
		"seed", cfg.Seed,
		"simulation", cfg.SimulationID,
		"runs", rep.Runs,
		"draws", rep.Draws,
		"mean_rounds", rep.MeanRounds,
		"elapsed", time.Since(start))
	return rep, nil
}

// Summarize folds encounter results into a report.
func Summarize(results []Result) Report {
	rep := Report{Runs: len(results), Wins: make(map[string]int), Results: results}
	var (
		rounds int
		damage []int
	)
	for _, r := range results {
		if r.Winner == "" {
			rep.Draws++
		} else {
			rep.Wins[r.Winner]++
		}
		rounds += r.Rounds
		rep.Attacks += r.Attacks
		rep.Hits += r.Hits
		rep.Crits += r.Crits
		damage = append(damage, r.Damage...)
	}
	if len(results) > 0 {
		rep.MeanRounds = float64(rounds) / float64(len(results))
	}
	slices.Sort(damage)
	rep.DamageP50 = percentile(damage, 50)
	rep.DamageP90 = percentile(damage, 90)
	rep.DamageP99 = percentile(damage, 99)
	if len(damage) > 0 {
		rep.DamageMax = damage[len(damage)-1]
	}
	return rep
}

// percentile is the nearest-rank percentile of sorted values.
func percentile(sorted []int, p int) int {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100
	return sorted[max(rank, 1)-1]
}
