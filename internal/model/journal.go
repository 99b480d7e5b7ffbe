package model

import "time"

// SimulationRecord is the journal header of one batch of encounters.
type SimulationRecord struct {
	ID        int64
	Seed      string
	Runs      int
	StartedAt time.Time
}

// EncounterRecord is the journal header of one simulated encounter. Seed
// is read back from the owning simulation.
type EncounterRecord struct {
	ID           int64
	SimulationID int64
	Seed         string
	Run          int
	StartedAt    time.Time
	Winner       string
	Rounds       int
}

// TurnRecord is one ranked entry of an encounter's turn order.
type TurnRecord struct {
	Creature   CreatureID
	Name       string
	Index      int
	Initiative int
}

// AttackRecord is the journal line of one resolved attack.
type AttackRecord struct {
	Round      int
	Attacker   CreatureID
	Defender   CreatureID
	Natural    int
	AttackRoll int
	ArmorClass int
	Hit        bool
	Critical   bool
	Damage     int
	Reduced    int
}
