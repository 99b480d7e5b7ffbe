package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/d20combat/internal/db"
	"github.com/udisondev/d20combat/internal/model"
	"github.com/udisondev/d20combat/internal/testutil"
)

// journal is the method set both stores share.
type journal interface {
	BeginSimulation(ctx context.Context, rec model.SimulationRecord) (int64, error)
	BeginEncounter(ctx context.Context, rec model.EncounterRecord) (int64, error)
	RecordTurnOrder(ctx context.Context, encounterID int64, turns []model.TurnRecord) error
	RecordAttack(ctx context.Context, encounterID int64, a model.AttackRecord) error
	FinishEncounter(ctx context.Context, encounterID int64, winner string, rounds int) error
	Encounter(ctx context.Context, encounterID int64) (model.EncounterRecord, error)
	TurnOrder(ctx context.Context, encounterID int64) ([]model.TurnRecord, error)
	ListAttacks(ctx context.Context, encounterID int64) ([]model.AttackRecord, error)
}

var (
	_ journal = (*db.DB)(nil)
	_ journal = (*db.SQLite)(nil)
)

func exerciseJournal(t *testing.T, j journal) {
	t.Helper()
	ctx := testutil.Context(t, 30*time.Second)
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sim, err := j.BeginSimulation(ctx, model.SimulationRecord{Seed: "abc", Runs: 4, StartedAt: started})
	require.NoError(t, err)
	assert.Positive(t, sim)

	id, err := j.BeginEncounter(ctx, model.EncounterRecord{SimulationID: sim, Run: 3, StartedAt: started})
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = j.BeginEncounter(ctx, model.EncounterRecord{SimulationID: sim, Run: 3, StartedAt: started})
	require.Error(t, err, "run is unique within a simulation")

	_, err = j.BeginEncounter(ctx, model.EncounterRecord{SimulationID: sim + 100, Run: 0, StartedAt: started})
	require.Error(t, err, "foreign key to simulations")

	again, err := j.BeginSimulation(ctx, model.SimulationRecord{Seed: "abc", Runs: 4, StartedAt: started})
	require.NoError(t, err, "a seed can be simulated more than once")
	rerun, err := j.BeginEncounter(ctx, model.EncounterRecord{SimulationID: again, Run: 3, StartedAt: started})
	require.NoError(t, err)
	assert.NotEqual(t, id, rerun)

	turns := []model.TurnRecord{
		{Creature: 2, Name: "orc", Index: 0, Initiative: 19},
		{Creature: 1, Name: "fighter", Index: 1, Initiative: 12},
	}
	require.NoError(t, j.RecordTurnOrder(ctx, id, turns))

	attacks := []model.AttackRecord{
		{Round: 1, Attacker: 2, Defender: 1, Natural: 20, AttackRoll: 25, ArmorClass: 16, Hit: true, Critical: true, Damage: 18, Reduced: 0},
		{Round: 1, Attacker: 1, Defender: 2, Natural: 1, AttackRoll: 7, ArmorClass: 13},
		{Round: 2, Attacker: 2, Defender: 1, Natural: 14, AttackRoll: 19, ArmorClass: 16, Hit: true, Damage: 6, Reduced: 3},
	}
	for _, a := range attacks {
		require.NoError(t, j.RecordAttack(ctx, id, a))
	}
	require.NoError(t, j.FinishEncounter(ctx, id, "blue", 2))

	rec, err := j.Encounter(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, sim, rec.SimulationID)
	assert.Equal(t, "abc", rec.Seed)
	assert.Equal(t, 3, rec.Run)
	assert.Equal(t, "blue", rec.Winner)
	assert.Equal(t, 2, rec.Rounds)
	assert.True(t, started.Equal(rec.StartedAt), "started_at %s", rec.StartedAt)

	gotTurns, err := j.TurnOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, turns, gotTurns)

	gotAttacks, err := j.ListAttacks(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, attacks, gotAttacks)

	empty, err := j.ListAttacks(ctx, id+100)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = j.Encounter(ctx, id+100)
	require.ErrorIs(t, err, db.ErrEncounterNotFound)
	require.ErrorIs(t, j.FinishEncounter(ctx, id+100, "red", 1), db.ErrEncounterNotFound)

	require.Error(t, j.RecordAttack(ctx, id+100, attacks[0]), "foreign key to encounters")
}

func TestSQLiteJournal(t *testing.T) {
	exerciseJournal(t, testutil.SetupSQLite(t))
}

func TestSQLiteJournal_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/journal.db"

	store, err := db.OpenSQLite(ctx, path)
	require.NoError(t, err)
	sim, err := store.BeginSimulation(ctx, model.SimulationRecord{Seed: "s", Runs: 1, StartedAt: time.Now()})
	require.NoError(t, err)
	id, err := store.BeginEncounter(ctx, model.EncounterRecord{SimulationID: sim, Run: 0, StartedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = db.OpenSQLite(ctx, path)
	require.NoError(t, err, "migrations are idempotent")
	defer store.Close()

	rec, err := store.Encounter(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "s", rec.Seed)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := db.OpenSQLite(context.Background(), " ")
	require.Error(t, err)
}

func TestPostgresJournal(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	exerciseJournal(t, db.NewFromPool(pool))
}
