package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/d20combat/internal/model"
)

// ErrEncounterNotFound is returned for an unknown encounter id.
var ErrEncounterNotFound = errors.New("encounter not found")

// DB wraps a pgx connection pool for the combat journal.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and returns a DB handle.
func New(ctx context.Context, dsn string, maxConns int32) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// NewFromPool wraps an existing pool.
func NewFromPool(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

// Close closes the database connection pool.
func (d *DB) Close() error {
	d.pool.Close()
	return nil
}

// Pool returns the underlying pgx pool.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

// BeginSimulation inserts the header of one simulator invocation and
// returns its id.
func (d *DB) BeginSimulation(ctx context.Context, rec model.SimulationRecord) (int64, error) {
	var id int64
	err := d.pool.QueryRow(ctx,
		`INSERT INTO simulations (seed, runs, started_at) VALUES ($1, $2, $3) RETURNING id`,
		rec.Seed, rec.Runs, rec.StartedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting simulation %s: %w", rec.Seed, err)
	}
	return id, nil
}

// BeginEncounter inserts the encounter header and returns its id.
func (d *DB) BeginEncounter(ctx context.Context, rec model.EncounterRecord) (int64, error) {
	var id int64
	err := d.pool.QueryRow(ctx,
		`INSERT INTO encounters (simulation_id, run, started_at) VALUES ($1, $2, $3) RETURNING id`,
		rec.SimulationID, rec.Run, rec.StartedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting encounter %d/%d: %w", rec.SimulationID, rec.Run, err)
	}
	return id, nil
}

// RecordTurnOrder stores the ranked turn order in one batch.
func (d *DB) RecordTurnOrder(ctx context.Context, encounterID int64, turns []model.TurnRecord) error {
	batch := &pgx.Batch{}
	for _, t := range turns {
		batch.Queue(
			`INSERT INTO turn_order (encounter_id, turn_index, creature_id, name, initiative)
			 VALUES ($1, $2, $3, $4, $5)`,
			encounterID, t.Index, int64(t.Creature), t.Name, t.Initiative,
		)
	}
	if err := d.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting turn order of encounter %d: %w", encounterID, err)
	}
	return nil
}

// RecordAttack appends one resolved attack.
func (d *DB) RecordAttack(ctx context.Context, encounterID int64, a model.AttackRecord) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO attacks (encounter_id, round, attacker_id, defender_id, natural_roll,
		                      attack_roll, armor_class, hit, critical, damage, reduced)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		encounterID, a.Round, int64(a.Attacker), int64(a.Defender), a.Natural,
		a.AttackRoll, a.ArmorClass, a.Hit, a.Critical, a.Damage, a.Reduced,
	)
	if err != nil {
		return fmt.Errorf("inserting attack of encounter %d: %w", encounterID, err)
	}
	return nil
}

// FinishEncounter stores the outcome.
func (d *DB) FinishEncounter(ctx context.Context, encounterID int64, winner string, rounds int) error {
	tag, err := d.pool.Exec(ctx,
		`UPDATE encounters SET winner = $1, rounds = $2, finished_at = $3 WHERE id = $4`,
		winner, rounds, time.Now().UTC(), encounterID,
	)
	if err != nil {
		return fmt.Errorf("finishing encounter %d: %w", encounterID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finishing encounter %d: %w", encounterID, ErrEncounterNotFound)
	}
	slog.Debug("encounter journaled", "id", encounterID, "winner", winner, "rounds", rounds)
	return nil
}

// Encounter loads the encounter header.
func (d *DB) Encounter(ctx context.Context, encounterID int64) (model.EncounterRecord, error) {
	var rec model.EncounterRecord
	err := d.pool.QueryRow(ctx,
		`SELECT e.id, e.simulation_id, s.seed, e.run, e.started_at, e.winner, e.rounds
		 FROM encounters e JOIN simulations s ON s.id = e.simulation_id
		 WHERE e.id = $1`,
		encounterID,
	).Scan(&rec.ID, &rec.SimulationID, &rec.Seed, &rec.Run, &rec.StartedAt, &rec.Winner, &rec.Rounds)
	if errors.Is(err, pgx.ErrNoRows) {
		return rec, fmt.Errorf("encounter %d: %w", encounterID, ErrEncounterNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("querying encounter %d: %w", encounterID, err)
	}
	return rec, nil
}

// TurnOrder loads the stored turn order by index.
func (d *DB) TurnOrder(ctx context.Context, encounterID int64) ([]model.TurnRecord, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT creature_id, name, turn_index, initiative
		 FROM turn_order WHERE encounter_id = $1 ORDER BY turn_index`, encounterID)
	if err != nil {
		return nil, fmt.Errorf("query turn order: %w", err)
	}
	defer rows.Close()

	var result []model.TurnRecord
	for rows.Next() {
		var (
			t  model.TurnRecord
			id int64
		)
		if err := rows.Scan(&id, &t.Name, &t.Index, &t.Initiative); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Creature = model.CreatureID(id)
		result = append(result, t)
	}
	return result, rows.Err()
}

// ListAttacks loads the attacks of an encounter in insertion order.
func (d *DB) ListAttacks(ctx context.Context, encounterID int64) ([]model.AttackRecord, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT round, attacker_id, defender_id, natural_roll, attack_roll, armor_class,
		        hit, critical, damage, reduced
		 FROM attacks WHERE encounter_id = $1 ORDER BY id`, encounterID)
	if err != nil {
		return nil, fmt.Errorf("query attacks: %w", err)
	}
	defer rows.Close()

	var result []model.AttackRecord
	for rows.Next() {
		var (
			a                  model.AttackRecord
			attacker, defender int64
		)
		if err := rows.Scan(&a.Round, &attacker, &defender, &a.Natural, &a.AttackRoll,
			&a.ArmorClass, &a.Hit, &a.Critical, &a.Damage, &a.Reduced); err != nil {
			return nil, fmt.Errorf("scan attack: %w", err)
		}
		a.Attacker = model.CreatureID(attacker)
		a.Defender = model.CreatureID(defender)
		result = append(result, a)
	}
	return result, rows.Err()
}
