package turn

import (
	"github.com/udisondev/d20combat/internal/game/modifier"
	"github.com/udisondev/d20combat/internal/model"
)

// RoundContext is the context of one creature's attack-of-opportunity
// budget for one round.
type RoundContext struct {
	Creature model.CreatureID
	Round    int
}

// RoundScope is what attack-of-opportunity producers inspect.
type RoundScope struct {
	Context  RoundContext
	Creature *model.Creature
}

// OpportunityModifier is one contribution to a round's AoO budget.
type OpportunityModifier = modifier.Modifier[int, RoundContext]

// OpportunityProducer emits at most one AoO budget contribution.
type OpportunityProducer = modifier.Producer[*RoundScope, int, RoundContext]

var opportunityDomain = modifier.NewDomain("attacks_of_opportunity",
	modifier.BonusBase,
	modifier.BonusUntyped,
)

// OpportunityProducers returns the default attack-of-opportunity rules.
func OpportunityProducers() []OpportunityProducer {
	return []OpportunityProducer{
		opportunityBase,
		combatReflexes,
	}
}

func opportunityBase(s *RoundScope) (OpportunityModifier, bool) {
	return OpportunityModifier{Value: 1, Source: modifier.SourceBase, Type: modifier.BonusBase, Context: s.Context}, true
}

// combatReflexes adds the Dexterity modifier, when positive.
func combatReflexes(s *RoundScope) (OpportunityModifier, bool) {
	if !s.Creature.HasFeat(model.FeatCombatReflexes) {
		return OpportunityModifier{}, false
	}
	dex := s.Creature.Modifier(model.Dexterity)
	if dex <= 0 {
		return OpportunityModifier{}, false
	}
	return OpportunityModifier{Value: dex, Source: modifier.SourceFeat, Type: modifier.BonusUntyped, Context: s.Context}, true
}
