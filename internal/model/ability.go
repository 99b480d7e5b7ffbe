package model

// Ability is one of the six ability scores.
type Ability uint8

const (
	Strength Ability = iota
	Dexterity
	Constitution
	Intelligence
	Wisdom
	Charisma
)

var abilityNames = [...]string{"str", "dex", "con", "int", "wis", "cha"}

func (a Ability) String() string {
	if int(a) < len(abilityNames) {
		return abilityNames[a]
	}
	return "unknown"
}

// Attributes holds a creature's ability scores.
type Attributes struct {
	Str int `yaml:"str"`
	Dex int `yaml:"dex"`
	Con int `yaml:"con"`
	Int int `yaml:"int"`
	Wis int `yaml:"wis"`
	Cha int `yaml:"cha"`
}

// Score returns the raw score for an ability.
func (a Attributes) Score(ab Ability) int {
	switch ab {
	case Strength:
		return a.Str
	case Dexterity:
		return a.Dex
	case Constitution:
		return a.Con
	case Intelligence:
		return a.Int
	case Wisdom:
		return a.Wis
	case Charisma:
		return a.Cha
	}
	return 10
}

// Modifier returns the ability modifier for ab.
func (a Attributes) Modifier(ab Ability) int {
	return AbilityModifier(a.Score(ab))
}

// maxScore bounds the precomputed modifier table.
const maxScore = 60

// abilityModifiers[score] = floor((score-10)/2).
var abilityModifiers [maxScore + 1]int

func init() {
	for s := 0; s <= maxScore; s++ {
		d := s - 10
		if d < 0 {
			abilityModifiers[s] = (d - 1) / 2
		} else {
			abilityModifiers[s] = d / 2
		}
	}
}

// AbilityModifier returns the modifier for a score with bounds checking:
// scores outside [0..60] use the boundary value.
func AbilityModifier(score int) int {
	if score < 0 {
		return abilityModifiers[0]
	}
	if score > maxScore {
		return abilityModifiers[maxScore]
	}
	return abilityModifiers[score]
}
