// Package turn runs combat sessions: initiative, turn order, and the
// per-turn action and attack-of-opportunity budgets gated by it.
package turn

import (
	"github.com/udisondev/d20combat/internal/game/modifier"
	"github.com/udisondev/d20combat/internal/model"
)

// InitiativeContext is the per-creature context of one initiative cycle.
type InitiativeContext struct {
	Creature model.CreatureID
}

// InitiativeScope is what initiative producers inspect.
type InitiativeScope struct {
	Context  InitiativeContext
	Creature *model.Creature
}

// InitiativeModifier is one contribution to a creature's initiative bonus.
type InitiativeModifier = modifier.Modifier[int, InitiativeContext]

// InitiativeProducer emits at most one initiative contribution.
type InitiativeProducer = modifier.Producer[*InitiativeScope, int, InitiativeContext]

// ImprovedInitiativeBonus is granted by the Improved Initiative feat.
const ImprovedInitiativeBonus = 4

var initiativeDomain = modifier.NewDomain("initiative",
	modifier.BonusBase,
	modifier.BonusAttribute,
	modifier.BonusUntyped,
	modifier.BonusCompetence,
	modifier.BonusInsight,
	modifier.BonusLuck,
)

// InitiativeProducers returns the default initiative rules.
func InitiativeProducers() []InitiativeProducer {
	return []InitiativeProducer{
		initiativeBase,
		initiativeDexterity,
		improvedInitiative,
	}
}

func initiativeBase(s *InitiativeScope) (InitiativeModifier, bool) {
	return InitiativeModifier{Value: 0, Source: modifier.SourceBase, Type: modifier.BonusBase, Context: s.Context}, true
}

func initiativeDexterity(s *InitiativeScope) (InitiativeModifier, bool) {
	dex := s.Creature.Modifier(model.Dexterity)
	if dex == 0 {
		return InitiativeModifier{}, false
	}
	return InitiativeModifier{Value: dex, Source: modifier.SourceDexterity, Type: modifier.BonusAttribute, Context: s.Context}, true
}

func improvedInitiative(s *InitiativeScope) (InitiativeModifier, bool) {
	if !s.Creature.HasFeat(model.FeatImprovedInitiative) {
		return InitiativeModifier{}, false
	}
	return InitiativeModifier{Value: ImprovedInitiativeBonus, Source: modifier.SourceFeat, Type: modifier.BonusUntyped, Context: s.Context}, true
}

// InitiativeRecord is one creature's initiative result.
type InitiativeRecord struct {
	Creature model.CreatureID
	Bonus    int
	Roll     int
	Total    int
	Index    int // turn index, -1 until ranked
}

// Rank assigns turn indexes: it repeatedly picks the unranked record with the
// highest total, earlier records winning ties, and returns the records in
// turn order.
func Rank(records []InitiativeRecord) []InitiativeRecord {
	ranked := make([]InitiativeRecord, 0, len(records))
	taken := make([]bool, len(records))
	for idx := range records {
		best := -1
		for i, r := range records {
			if taken[i] {
				continue
			}
			if best < 0 || r.Total > records[best].Total {
				best = i
			}
		}
		taken[best] = true
		r := records[best]
		r.Index = idx
		ranked = append(ranked, r)
	}
	return ranked
}
