// Package sim runs simulated encounters between teams of catalog creatures.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/udisondev/d20combat/internal/data"
	"github.com/udisondev/d20combat/internal/game/combat"
	"github.com/udisondev/d20combat/internal/game/dice"
	"github.com/udisondev/d20combat/internal/game/turn"
	"github.com/udisondev/d20combat/internal/model"
)

// Journal records encounters. Implementations must be safe for concurrent use.
type Journal interface {
	BeginSimulation(ctx context.Context, rec model.SimulationRecord) (int64, error)
	BeginEncounter(ctx context.Context, rec model.EncounterRecord) (int64, error)
	RecordTurnOrder(ctx context.Context, encounterID int64, turns []model.TurnRecord) error
	RecordAttack(ctx context.Context, encounterID int64, a model.AttackRecord) error
	FinishEncounter(ctx context.Context, encounterID int64, winner string, rounds int) error
}

// Team is one side of an encounter: a name and the templates it fields.
type Team struct {
	Name    string
	Members []string
}

// Config describes a batch of encounters.
type Config struct {
	Seed      string
	Runs      int
	Workers   int
	MaxRounds int
	Teams     []Team
	Strategy  combat.DRStrategy
	Journal   Journal // optional

	// SimulationID is the journal header encounters are recorded under.
	// Run sets it; callers of RunEncounter with a Journal must.
	SimulationID int64
}

// Result is the outcome of one encounter. Winner is empty for a draw.
type Result struct {
	Run      int
	Winner   string
	Rounds   int
	Attacks  int
	Hits     int
	Crits    int
	Damage   []int // damage dealt by every hit
	Survivor map[string]int
}

// encounter owns every piece of state of one run.
type encounter struct {
	cfg      *Config
	run      int
	roller   dice.Roller
	roster   *data.Roster
	session  *turn.Session
	resolver *combat.Resolver
	hp       map[model.CreatureID]int
	journal  int64
	result   Result
}

// RunEncounter simulates run number of cfg against catalog c. It uses its own
// random stream derived from the seed and run, so results are reproducible.
func RunEncounter(ctx context.Context, c *data.Catalog, cfg *Config, run int) (Result, error) {
	e := &encounter{
		cfg:    cfg,
		run:    run,
		roller: dice.NewRoller(dice.SeedFor(cfg.Seed, run)),
		roster: data.NewRoster(c),
		hp:     make(map[model.CreatureID]int),
		result: Result{Run: run, Survivor: make(map[string]int)},
	}
	for _, team := range cfg.Teams {
		for _, tpl := range team.Members {
			cr, err := e.roster.Spawn(tpl, team.Name)
			if err != nil {
				return Result{}, fmt.Errorf("run %d: %w", run, err)
			}
			e.hp[cr.ID] = cr.HitPoints
		}
	}
	e.session = turn.NewSession(e.roster, e.roller)
	e.resolver = combat.NewResolver(e.roster, e.roster, e.roller,
		combat.WithPriorityGate(e.session),
		combat.WithDRStrategy(cfg.Strategy),
	)

	if err := e.fight(ctx); err != nil {
		return Result{}, fmt.Errorf("run %d: %w", run, err)
	}
	return e.result, nil
}

func (e *encounter) fight(ctx context.Context) error {
	if _, err := e.session.Enter(e.roster.IDs()); err != nil {
		return err
	}
	defer e.session.Exit()

	if err := e.begin(ctx); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if winner, over := e.outcome(); over {
			e.result.Winner = winner
			break
		}
		if e.session.Round() > e.cfg.MaxRounds {
			break
		}
		if err := e.takeTurn(ctx); err != nil {
			return err
		}
		if _, err := e.session.Advance(); err != nil {
			if errors.Is(err, turn.ErrNoCombatants) {
				break
			}
			return err
		}
	}
	e.result.Rounds = min(e.session.Round(), e.cfg.MaxRounds)
	for _, id := range e.roster.IDs() {
		if e.hp[id] > 0 {
			cr, _ := e.roster.Creature(id)
			e.result.Survivor[cr.Team]++
		}
	}

	slog.Debug("encounter finished", "run", e.run, "winner", e.result.Winner, "rounds", e.result.Rounds)
	if e.cfg.Journal != nil {
		if err := e.cfg.Journal.FinishEncounter(ctx, e.journal, e.result.Winner, e.result.Rounds); err != nil {
			return fmt.Errorf("journal: %w", err)
		}
	}
	return nil
}

func (e *encounter) begin(ctx context.Context) error {
	if e.cfg.Journal == nil {
		return nil
	}
	if e.cfg.SimulationID == 0 {
		return errors.New("journal: encounter without a simulation")
	}
	id, err := e.cfg.Journal.BeginEncounter(ctx, model.EncounterRecord{
		SimulationID: e.cfg.SimulationID,
		Run:          e.run,
		StartedAt:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	e.journal = id

	records := e.session.Records()
	turns := make([]model.TurnRecord, 0, len(records))
	for _, r := range records {
		cr, err := e.roster.Creature(r.Creature)
		if err != nil {
			return err
		}
		turns = append(turns, model.TurnRecord{Creature: r.Creature, Name: cr.Name, Index: r.Index, Initiative: r.Total})
	}
	if err := e.cfg.Journal.RecordTurnOrder(ctx, id, turns); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

// outcome reports the winning team once at most one team has living members.
func (e *encounter) outcome() (string, bool) {
	var alive []string
	for _, team := range e.cfg.Teams {
		for _, id := range e.roster.Team(team.Name) {
			if e.hp[id] > 0 {
				alive = append(alive, team.Name)
				break
			}
		}
	}
	switch len(alive) {
	case 0:
		return "", true
	case 1:
		return alive[0], true
	}
	return "", false
}

// target picks the first living enemy in spawn order.
func (e *encounter) target(attacker *model.Creature) (model.CreatureID, bool) {
	for _, id := range e.roster.IDs() {
		cr, _ := e.roster.Creature(id)
		if cr.Team != attacker.Team && e.hp[id] > 0 {
			return id, true
		}
	}
	return 0, false
}

// takeTurn spends the current creature's standard action on one melee attack.
func (e *encounter) takeTurn(ctx context.Context) error {
	cur, ok := e.session.Current()
	if !ok {
		return turn.ErrNotInCombat
	}
	attacker, err := e.roster.Creature(cur.Creature)
	if err != nil {
		return err
	}
	defender, ok := e.target(attacker)
	if !ok {
		return nil
	}
	if err := e.session.Spend(cur.Creature, turn.ActionStandard); err != nil {
		return err
	}

	res, err := e.resolver.Resolve(combat.AttackContext{
		Attacker: cur.Creature,
		Defender: defender,
		Slot:     model.SlotMainHand,
	})
	if err != nil {
		return err
	}

	rec := e.attack(res)
	rec.Round = e.session.Round()
	e.result.Attacks++
	if rec.Hit {
		e.result.Hits++
		e.result.Damage = append(e.result.Damage, rec.Damage)
		e.hp[defender] -= rec.Damage
		if e.hp[defender] <= 0 {
			if err := e.session.MarkDefeated(defender); err != nil {
				return err
			}
		}
	}
	if rec.Critical {
		e.result.Crits++
	}

	if e.cfg.Journal != nil {
		if err := e.cfg.Journal.RecordAttack(ctx, e.journal, rec); err != nil {
			return fmt.Errorf("journal: %w", err)
		}
	}
	return nil
}

// attack rolls the d20 against a resolved attack. A natural 20 always hits
// and a natural 1 always misses; a hit in the threat range is a critical
// only if a second roll would also hit.
func (e *encounter) attack(res combat.Resolution) model.AttackRecord {
	natural := dice.D20(e.roller)
	rec := model.AttackRecord{
		Attacker:   res.Context.Attacker,
		Defender:   res.Context.Defender,
		Natural:    natural,
		AttackRoll: natural + res.AttackBonus,
		ArmorClass: res.ArmorClass,
	}
	rec.Hit = hits(natural, rec.AttackRoll, res.ArmorClass)
	if !rec.Hit {
		return rec
	}
	if res.Threat.Threatens(natural) {
		confirm := dice.D20(e.roller)
		rec.Critical = hits(confirm, confirm+res.AttackBonus, res.ArmorClass)
	}
	rec.Damage, rec.Reduced = res.DamageDealt(rec.Critical)
	return rec
}

func hits(natural, total, ac int) bool {
	switch natural {
	case 20:
		return true
	case 1:
		return false
	}
	return total >= ac
}
