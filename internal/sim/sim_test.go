package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/d20combat/internal/data"
	"github.com/udisondev/d20combat/internal/game/combat"
	"github.com/udisondev/d20combat/internal/model"
	"github.com/udisondev/d20combat/internal/testutil"
)

func catalog(t *testing.T) *data.Catalog {
	t.Helper()
	c, err := data.DefaultCatalog()
	require.NoError(t, err)
	return c
}

func baseConfig() Config {
	return Config{
		Seed:      "test-seed",
		Runs:      12,
		Workers:   3,
		MaxRounds: 30,
		Teams: []Team{
			{Name: "red", Members: []string{"fighter", "rogue"}},
			{Name: "blue", Members: []string{"barbarian", "orc"}},
		},
	}
}

func TestRun_Deterministic(t *testing.T) {
	c := catalog(t)
	ctx := context.Background()

	cfg := baseConfig()
	first, err := Run(ctx, c, cfg)
	require.NoError(t, err)

	cfg.Workers = 1
	second, err := Run(ctx, c, cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second, "same seed, any worker count")

	cfg.Seed = "other-seed"
	third, err := Run(ctx, c, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, first.Results, third.Results)
}

func TestRun_ReportConsistent(t *testing.T) {
	rep, err := Run(context.Background(), catalog(t), baseConfig())
	require.NoError(t, err)

	assert.Equal(t, 12, rep.Runs)
	wins := rep.Draws
	for _, n := range rep.Wins {
		wins += n
	}
	assert.Equal(t, rep.Runs, wins)
	assert.Positive(t, rep.Attacks)
	assert.LessOrEqual(t, rep.Hits, rep.Attacks)
	assert.LessOrEqual(t, rep.Crits, rep.Hits)
	assert.LessOrEqual(t, rep.DamageP50, rep.DamageP90)
	assert.LessOrEqual(t, rep.DamageP90, rep.DamageP99)
	assert.LessOrEqual(t, rep.DamageP99, rep.DamageMax)
	assert.InDelta(t, 0.5, rep.HitRate(), 0.5)

	for i, r := range rep.Results {
		assert.Equal(t, i, r.Run)
		assert.LessOrEqual(t, r.Rounds, 30)
		if r.Winner != "" {
			assert.Positive(t, r.Survivor[r.Winner])
			for team, n := range r.Survivor {
				if team != r.Winner {
					assert.Zero(t, n)
				}
			}
		}
	}
}

func TestRun_Errors(t *testing.T) {
	c := catalog(t)
	ctx := context.Background()

	cfg := baseConfig()
	cfg.Teams[1].Members = []string{"dragon"}
	_, err := Run(ctx, c, cfg)
	require.ErrorIs(t, err, data.ErrUnknownTemplate)

	cfg = baseConfig()
	cfg.Runs = 0
	_, err = Run(ctx, c, cfg)
	require.Error(t, err)

	cfg = baseConfig()
	cfg.Teams = cfg.Teams[:1]
	_, err = Run(ctx, c, cfg)
	require.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Run(cancelled, c, baseConfig())
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunEncounter_MaxRoundsDraw(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxRounds = 1
	cfg.Teams = []Team{
		{Name: "a", Members: []string{"skeleton"}},
		{Name: "b", Members: []string{"skeleton"}},
	}
	res, err := RunEncounter(context.Background(), catalog(t), &cfg, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rounds)
	assert.LessOrEqual(t, res.Attacks, 2)
}

func TestRunEncounter_ExactStrategy(t *testing.T) {
	cfg := baseConfig()
	cfg.Strategy = combat.DRExact
	cfg.Teams = []Team{
		{Name: "a", Members: []string{"owlbear"}},
		{Name: "b", Members: []string{"cleric"}},
	}
	res, err := RunEncounter(context.Background(), catalog(t), &cfg, 5)
	require.NoError(t, err)
	assert.Positive(t, res.Attacks)
}

func TestHits(t *testing.T) {
	assert.True(t, hits(20, 5, 30), "natural 20 always hits")
	assert.False(t, hits(1, 40, 10), "natural 1 always misses")
	assert.True(t, hits(12, 15, 15))
	assert.False(t, hits(12, 14, 15))
}

func TestSummarize(t *testing.T) {
	rep := Summarize([]Result{
		{Winner: "red", Rounds: 3, Attacks: 6, Hits: 4, Crits: 1, Damage: []int{1, 9, 3, 7}},
		{Winner: "", Rounds: 5, Attacks: 4, Hits: 2, Damage: []int{5, 2}},
		{Winner: "red", Rounds: 4, Attacks: 2, Hits: 0},
	})
	assert.Equal(t, map[string]int{"red": 2}, rep.Wins)
	assert.Equal(t, 1, rep.Draws)
	assert.InDelta(t, 4.0, rep.MeanRounds, 1e-9)
	assert.Equal(t, 12, rep.Attacks)
	assert.Equal(t, 6, rep.Hits)
	assert.Equal(t, 3, rep.DamageP50)
	assert.Equal(t, 9, rep.DamageP90)
	assert.Equal(t, 9, rep.DamageMax)

	empty := Summarize(nil)
	assert.Zero(t, empty.DamageP99)
	assert.Zero(t, empty.HitRate())
}

// memJournal is a concurrency-safe in-memory Journal.
type memJournal struct {
	mu       sync.Mutex
	next     int64
	sims     []model.SimulationRecord
	headers  map[int64]model.EncounterRecord
	turns    map[int64][]model.TurnRecord
	attacks  map[int64][]model.AttackRecord
	finished map[int64]string
}

func newMemJournal() *memJournal {
	return &memJournal{
		headers:  make(map[int64]model.EncounterRecord),
		turns:    make(map[int64][]model.TurnRecord),
		attacks:  make(map[int64][]model.AttackRecord),
		finished: make(map[int64]string),
	}
}

func (m *memJournal) BeginSimulation(_ context.Context, rec model.SimulationRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = int64(len(m.sims) + 1)
	m.sims = append(m.sims, rec)
	return rec.ID, nil
}

func (m *memJournal) BeginEncounter(_ context.Context, rec model.EncounterRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	rec.ID = m.next
	m.headers[m.next] = rec
	return m.next, nil
}

func (m *memJournal) RecordTurnOrder(_ context.Context, id int64, turns []model.TurnRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[id] = turns
	return nil
}

func (m *memJournal) RecordAttack(_ context.Context, id int64, a model.AttackRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attacks[id] = append(m.attacks[id], a)
	return nil
}

func (m *memJournal) FinishEncounter(_ context.Context, id int64, winner string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished[id] = winner
	return nil
}

func TestRun_Journal(t *testing.T) {
	j := newMemJournal()
	cfg := baseConfig()
	cfg.Journal = j

	rep, err := Run(context.Background(), catalog(t), cfg)
	require.NoError(t, err)

	require.Len(t, j.sims, 1)
	assert.Equal(t, "test-seed", j.sims[0].Seed)
	assert.Equal(t, cfg.Runs, j.sims[0].Runs)
	assert.Len(t, j.headers, cfg.Runs)
	assert.Len(t, j.finished, cfg.Runs)
	total := 0
	for id, hdr := range j.headers {
		assert.Equal(t, j.sims[0].ID, hdr.SimulationID)
		assert.Len(t, j.turns[id], 4, "every creature ranked")
		total += len(j.attacks[id])
	}
	assert.Equal(t, rep.Attacks, total)
}

func TestRun_SQLiteJournal(t *testing.T) {
	store := testutil.SetupSQLite(t)
	cfg := baseConfig()
	cfg.Runs = 4
	cfg.Journal = store

	rep, err := Run(context.Background(), catalog(t), cfg)
	require.NoError(t, err)

	total := 0
	for id := int64(1); id <= int64(cfg.Runs); id++ {
		attacks, err := store.ListAttacks(context.Background(), id)
		require.NoError(t, err)
		total += len(attacks)
	}
	assert.Equal(t, rep.Attacks, total)
}

func TestRun_SQLiteJournalSameSeedTwice(t *testing.T) {
	store := testutil.SetupSQLite(t)
	ctx := context.Background()
	cfg := baseConfig()
	cfg.Runs = 3
	cfg.Journal = store

	first, err := Run(ctx, catalog(t), cfg)
	require.NoError(t, err)
	second, err := Run(ctx, catalog(t), cfg)
	require.NoError(t, err, "a second invocation gets its own simulation header")
	assert.Equal(t, first.Results, second.Results)

	for id := int64(1); id <= int64(2*cfg.Runs); id++ {
		rec, err := store.Encounter(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "test-seed", rec.Seed)
		assert.Equal(t, (id-1)/int64(cfg.Runs)+1, rec.SimulationID)
	}
}

func TestRunEncounter_JournalNeedsSimulation(t *testing.T) {
	cfg := baseConfig()
	cfg.Journal = newMemJournal()
	_, err := RunEncounter(context.Background(), catalog(t), &cfg, 0)
	require.ErrorContains(t, err, "without a simulation")
}

// failingJournal rejects every attack record.
type failingJournal struct{ *memJournal }

func (failingJournal) RecordAttack(context.Context, int64, model.AttackRecord) error {
	return testutil.ErrSimulated
}

func TestRun_JournalFailureAborts(t *testing.T) {
	cfg := baseConfig()
	cfg.Journal = failingJournal{newMemJournal()}

	_, err := Run(testutil.Context(t, time.Minute), catalog(t), cfg)
	require.ErrorIs(t, err, testutil.ErrSimulated)
}
