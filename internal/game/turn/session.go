package turn

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/udisondev/d20combat/internal/game/dice"
	"github.com/udisondev/d20combat/internal/game/modifier"
	"github.com/udisondev/d20combat/internal/model"
)

var (
	// ErrNotInCombat is returned by turn operations outside an active cycle.
	ErrNotInCombat = errors.New("not in combat")
	// ErrBudgetExhausted means the creature has no action of that kind left.
	ErrBudgetExhausted = errors.New("budget exhausted")
	// ErrUnknownCreature means the creature is not part of the session.
	ErrUnknownCreature = errors.New("creature not in combat")
	// ErrNoCombatants is returned by Enter without creatures and by Advance
	// once every creature is defeated.
	ErrNoCombatants = errors.New("no combatants")
)

// State is the phase of a combat session.
type State uint8

const (
	StateIdle State = iota
	StateGather
	StateRoll
	StateRank
	StateActive
)

var stateNames = [...]string{"idle", "gather", "roll", "rank", "active"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// ActionKind is a per-turn action budget.
type ActionKind uint8

const (
	ActionStandard ActionKind = iota
	ActionMove
	ActionSwift
	actionKinds
)

var actionNames = [...]string{"standard", "move", "swift"}

func (k ActionKind) String() string {
	if int(k) < len(actionNames) {
		return actionNames[k]
	}
	return "unknown"
}

// actionsPerTurn is the budget reset at the start of each turn.
var actionsPerTurn = [actionKinds]int{1, 1, 1}

// Entry is one slot of the turn order.
type Entry struct {
	Creature model.CreatureID
	Index    int
}

// TurnOrder is the immutable ranking of one combat cycle.
type TurnOrder []Entry

// Listener is notified of turn order changes.
type Listener interface {
	TurnOrder(order TurnOrder)
	CurrentTurn(e Entry, round int)
	AttacksOfOpportunityRemaining(id model.CreatureID, n int)
}

// NopListener ignores every notification.
type NopListener struct{}

func (NopListener) TurnOrder(TurnOrder)                                 {}
func (NopListener) CurrentTurn(Entry, int)                              {}
func (NopListener) AttacksOfOpportunityRemaining(model.CreatureID, int) {}

type combatant struct {
	creature *model.Creature
	actions  [actionKinds]int
	aoo      int
	defeated bool
}

// Session is one combat encounter's turn state. Created idle, it holds a
// turn order only between Enter and Exit. Not safe for concurrent use.
type Session struct {
	creatures model.CreatureLookup
	roller    dice.Roller
	listener  Listener

	initiative  []InitiativeProducer
	opportunity []OpportunityProducer

	state      State
	records    []InitiativeRecord
	order      TurnOrder
	combatants map[model.CreatureID]*combatant
	current    int
	round      int
}

// Option configures a Session.
type Option func(*Session)

// WithListener publishes turn notifications to l.
func WithListener(l Listener) Option {
	return func(s *Session) { s.listener = l }
}

// WithInitiativeProducers appends extra initiative rules.
func WithInitiativeProducers(p ...InitiativeProducer) Option {
	return func(s *Session) { s.initiative = append(s.initiative, p...) }
}

// WithOpportunityProducers appends extra attack-of-opportunity rules.
func WithOpportunityProducers(p ...OpportunityProducer) Option {
	return func(s *Session) { s.opportunity = append(s.opportunity, p...) }
}

// NewSession creates an idle session.
func NewSession(creatures model.CreatureLookup, roller dice.Roller, opts ...Option) *Session {
	s := &Session{
		creatures:   creatures,
		roller:      roller,
		listener:    NopListener{},
		initiative:  InitiativeProducers(),
		opportunity: OpportunityProducers(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current phase.
func (s *Session) State() State { return s.state }

// Enter starts a combat cycle for ids: gather initiative bonuses, roll,
// rank, then begin the first turn. Any failure returns the session to idle
// without a turn order.
func (s *Session) Enter(ids []model.CreatureID) (TurnOrder, error) {
	if s.state != StateIdle {
		return nil, fmt.Errorf("enter combat: %w: session is %s", modifier.ErrInvariantViolation, s.state)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("enter combat: %w", ErrNoCombatants)
	}

	order, err := s.enter(ids)
	if err != nil {
		slog.Warn("initiative aborted", "err", err)
		s.reset()
		return nil, fmt.Errorf("enter combat: %w", err)
	}
	return order, nil
}

func (s *Session) enter(ids []model.CreatureID) (TurnOrder, error) {
	s.state = StateGather
	s.combatants = make(map[model.CreatureID]*combatant, len(ids))
	records := make([]InitiativeRecord, 0, len(ids))
	for _, id := range ids {
		if _, dup := s.combatants[id]; dup {
			return nil, fmt.Errorf("%w: creature %d entered twice", modifier.ErrInvariantViolation, id)
		}
		c, err := s.creatures.Creature(id)
		if err != nil {
			return nil, err
		}
		scope := &InitiativeScope{Context: InitiativeContext{Creature: id}, Creature: c}
		bonus, err := modifier.Aggregate(initiativeDomain, modifier.Collect(scope, s.initiative))
		if err != nil {
			return nil, fmt.Errorf("creature %d: %w", id, err)
		}
		s.combatants[id] = &combatant{creature: c}
		records = append(records, InitiativeRecord{Creature: id, Bonus: bonus, Index: -1})
	}

	s.state = StateRoll
	for i := range records {
		records[i].Roll = dice.D20(s.roller)
		records[i].Total = records[i].Roll + records[i].Bonus
	}

	s.state = StateRank
	s.records = Rank(records)
	s.order = make(TurnOrder, len(s.records))
	for i, r := range s.records {
		s.order[i] = Entry{Creature: r.Creature, Index: r.Index}
		slog.Debug("initiative", "creature", r.Creature, "bonus", r.Bonus, "roll", r.Roll, "total", r.Total, "index", r.Index)
	}

	s.state = StateActive
	s.round = 1
	s.current = 0
	for _, e := range s.order {
		c := s.combatants[e.Creature]
		c.actions = actionsPerTurn
		aoo, err := s.opportunities(e.Creature)
		if err != nil {
			return nil, err
		}
		c.aoo = aoo
	}
	s.listener.TurnOrder(s.Order())
	for _, e := range s.order {
		s.listener.AttacksOfOpportunityRemaining(e.Creature, s.combatants[e.Creature].aoo)
	}
	s.listener.CurrentTurn(s.order[0], s.round)

	slog.Info("combat entered", "creatures", len(s.order), "first", s.order[0].Creature)
	return s.Order(), nil
}

// opportunities aggregates the AoO budget of id for the current round.
func (s *Session) opportunities(id model.CreatureID) (int, error) {
	scope := &RoundScope{
		Context:  RoundContext{Creature: id, Round: s.round},
		Creature: s.combatants[id].creature,
	}
	n, err := modifier.Aggregate(opportunityDomain, modifier.Collect(scope, s.opportunity))
	if err != nil {
		return 0, fmt.Errorf("creature %d round %d: %w", id, s.round, err)
	}
	return max(n, 0), nil
}

// Exit discards the turn order and every per-creature turn state.
func (s *Session) Exit() {
	if s.state == StateActive {
		slog.Info("combat exited", "rounds", s.round)
	}
	s.reset()
}

func (s *Session) reset() {
	s.state = StateIdle
	s.records = nil
	s.order = nil
	s.combatants = nil
	s.current = 0
	s.round = 0
}

// Advance ends the current turn and begins the next living creature's,
// starting a new round on wrap.
func (s *Session) Advance() (Entry, error) {
	if s.state != StateActive {
		return Entry{}, ErrNotInCombat
	}
	for range s.order {
		s.current++
		if s.current == len(s.order) {
			s.current = 0
			s.round++
		}
		e := s.order[s.current]
		c := s.combatants[e.Creature]
		if c.defeated {
			continue
		}
		if err := s.beginTurn(e, c); err != nil {
			slog.Error("turn aborted", "creature", e.Creature, "err", err)
			s.reset()
			return Entry{}, err
		}
		return e, nil
	}
	return Entry{}, ErrNoCombatants
}

func (s *Session) beginTurn(e Entry, c *combatant) error {
	aoo, err := s.opportunities(e.Creature)
	if err != nil {
		return err
	}
	c.actions = actionsPerTurn
	c.aoo = aoo
	s.listener.CurrentTurn(e, s.round)
	s.listener.AttacksOfOpportunityRemaining(e.Creature, aoo)
	return nil
}

// Current returns the entry holding the turn.
func (s *Session) Current() (Entry, bool) {
	if s.state != StateActive {
		return Entry{}, false
	}
	return s.order[s.current], true
}

// HasPriority reports whether id is the acting creature.
func (s *Session) HasPriority(id model.CreatureID) bool {
	e, ok := s.Current()
	return ok && e.Creature == id
}

// Round returns the current round, 0 outside combat.
func (s *Session) Round() int { return s.round }

// Order returns a copy of the turn order.
func (s *Session) Order() TurnOrder {
	out := make(TurnOrder, len(s.order))
	copy(out, s.order)
	return out
}

// Records returns a copy of the ranked initiative records.
func (s *Session) Records() []InitiativeRecord {
	out := make([]InitiativeRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Session) combatant(id model.CreatureID) (*combatant, error) {
	if s.state != StateActive {
		return nil, ErrNotInCombat
	}
	c, ok := s.combatants[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCreature, id)
	}
	return c, nil
}

// Spend uses one action of kind. Only the creature holding priority acts.
func (s *Session) Spend(id model.CreatureID, kind ActionKind) error {
	c, err := s.combatant(id)
	if err != nil {
		return err
	}
	if kind >= actionKinds {
		return fmt.Errorf("unknown action kind %d", kind)
	}
	if !s.HasPriority(id) {
		return fmt.Errorf("spend %s: %w: creature %d does not hold priority", kind, modifier.ErrInvariantViolation, id)
	}
	if c.actions[kind] == 0 {
		return fmt.Errorf("spend %s: %w", kind, ErrBudgetExhausted)
	}
	c.actions[kind]--
	return nil
}

// ActionsRemaining returns the unused actions of kind for id.
func (s *Session) ActionsRemaining(id model.CreatureID, kind ActionKind) int {
	c, err := s.combatant(id)
	if err != nil || kind >= actionKinds {
		return 0
	}
	return c.actions[kind]
}

// SpendAttackOfOpportunity uses one attack of opportunity. Allowed off-turn.
func (s *Session) SpendAttackOfOpportunity(id model.CreatureID) error {
	c, err := s.combatant(id)
	if err != nil {
		return err
	}
	if c.defeated {
		return fmt.Errorf("attack of opportunity: %w: creature %d is defeated", modifier.ErrInvariantViolation, id)
	}
	if c.aoo == 0 {
		return fmt.Errorf("attack of opportunity: %w", ErrBudgetExhausted)
	}
	c.aoo--
	s.listener.AttacksOfOpportunityRemaining(id, c.aoo)
	return nil
}

// AttacksOfOpportunityRemaining returns how many attacks of opportunity id
// may still make before its next turn.
func (s *Session) AttacksOfOpportunityRemaining(id model.CreatureID) int {
	c, err := s.combatant(id)
	if err != nil {
		return 0
	}
	return c.aoo
}

// MarkDefeated removes id from future turns. The turn order itself is kept.
func (s *Session) MarkDefeated(id model.CreatureID) error {
	c, err := s.combatant(id)
	if err != nil {
		return err
	}
	c.defeated = true
	c.aoo = 0
	return nil
}

// Defeated reports whether id was marked defeated.
func (s *Session) Defeated(id model.CreatureID) bool {
	c, err := s.combatant(id)
	return err == nil && c.defeated
}
