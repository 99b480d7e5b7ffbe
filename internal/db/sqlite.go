package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/udisondev/d20combat/internal/db/migrations"
	"github.com/udisondev/d20combat/internal/model"
)

// SQLite is the file-backed combat journal.
type SQLite struct {
	sqlDB *sql.DB
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// OpenSQLite opens the journal at path and applies the embedded migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer; parallel runs queue on the pool instead of SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrate(ctx, sqlDB, goose.DialectSQLite3, migrations.SQLite, "sqlite"); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &SQLite{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *SQLite) Close() error {
	return s.sqlDB.Close()
}

// BeginSimulation inserts the header of one simulator invocation and
// returns its id.
func (s *SQLite) BeginSimulation(ctx context.Context, rec model.SimulationRecord) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO simulations (seed, runs, started_at) VALUES (?, ?, ?)`,
		rec.Seed, rec.Runs, toMillis(rec.StartedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting simulation %s: %w", rec.Seed, err)
	}
	return res.LastInsertId()
}

// BeginEncounter inserts the encounter header and returns its id.
func (s *SQLite) BeginEncounter(ctx context.Context, rec model.EncounterRecord) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO encounters (simulation_id, run, started_at) VALUES (?, ?, ?)`,
		rec.SimulationID, rec.Run, toMillis(rec.StartedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting encounter %d/%d: %w", rec.SimulationID, rec.Run, err)
	}
	return res.LastInsertId()
}

// RecordTurnOrder stores the ranked turn order in one transaction.
func (s *SQLite) RecordTurnOrder(ctx context.Context, encounterID int64, turns []model.TurnRecord) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin turn order tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range turns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO turn_order (encounter_id, turn_index, creature_id, name, initiative)
			 VALUES (?, ?, ?, ?, ?)`,
			encounterID, t.Index, int64(t.Creature), t.Name, t.Initiative,
		); err != nil {
			return fmt.Errorf("inserting turn order of encounter %d: %w", encounterID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit turn order: %w", err)
	}
	return nil
}

// RecordAttack appends one resolved attack.
func (s *SQLite) RecordAttack(ctx context.Context, encounterID int64, a model.AttackRecord) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO attacks (encounter_id, round, attacker_id, defender_id, natural_roll,
		                      attack_roll, armor_class, hit, critical, damage, reduced)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		encounterID, a.Round, int64(a.Attacker), int64(a.Defender), a.Natural,
		a.AttackRoll, a.ArmorClass, a.Hit, a.Critical, a.Damage, a.Reduced,
	)
	if err != nil {
		return fmt.Errorf("inserting attack of encounter %d: %w", encounterID, err)
	}
	return nil
}

// FinishEncounter stores the outcome.
func (s *SQLite) FinishEncounter(ctx context.Context, encounterID int64, winner string, rounds int) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE encounters SET winner = ?, rounds = ?, finished_at = ? WHERE id = ?`,
		winner, rounds, toMillis(time.Now()), encounterID,
	)
	if err != nil {
		return fmt.Errorf("finishing encounter %d: %w", encounterID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing encounter %d: %w", encounterID, err)
	}
	if n == 0 {
		return fmt.Errorf("finishing encounter %d: %w", encounterID, ErrEncounterNotFound)
	}
	return nil
}

// Encounter loads the encounter header.
func (s *SQLite) Encounter(ctx context.Context, encounterID int64) (model.EncounterRecord, error) {
	var (
		rec     model.EncounterRecord
		started int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT e.id, e.simulation_id, s.seed, e.run, e.started_at, e.winner, e.rounds
		 FROM encounters e JOIN simulations s ON s.id = e.simulation_id
		 WHERE e.id = ?`,
		encounterID,
	).Scan(&rec.ID, &rec.SimulationID, &rec.Seed, &rec.Run, &started, &rec.Winner, &rec.Rounds)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("encounter %d: %w", encounterID, ErrEncounterNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("querying encounter %d: %w", encounterID, err)
	}
	rec.StartedAt = fromMillis(started)
	return rec, nil
}

// TurnOrder loads the stored turn order by index.
func (s *SQLite) TurnOrder(ctx context.Context, encounterID int64) ([]model.TurnRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT creature_id, name, turn_index, initiative
		 FROM turn_order WHERE encounter_id = ? ORDER BY turn_index`, encounterID)
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
func (s *SQLite) ListAttacks(ctx context.Context, encounterID int64) ([]model.AttackRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT round, attacker_id, defender_id, natural_roll, attack_roll, armor_class,
		        hit, critical, damage, reduced
		 FROM attacks WHERE encounter_id = ? ORDER BY id`, encounterID)
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
