package data

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/udisondev/d20combat/internal/model"
)

// ErrUnknownTemplate is returned when spawning a template the catalog lacks.
var ErrUnknownTemplate = errors.New("unknown creature template")

// Roster holds the creature instances of one encounter. It implements
// model.CreatureLookup and model.WeaponLookup. Not safe for concurrent use;
// the catalog behind it is shared read-only.
type Roster struct {
	catalog   *Catalog
	creatures map[model.CreatureID]*model.Creature
	order     []model.CreatureID
	nextID    model.CreatureID
}

// NewRoster creates an empty roster over c.
func NewRoster(c *Catalog) *Roster {
	return &Roster{
		catalog:   c,
		creatures: make(map[model.CreatureID]*model.Creature),
		nextID:    1,
	}
}

// Spawn creates an instance of template on team with a fresh id.
func (r *Roster) Spawn(template, team string) (*model.Creature, error) {
	tpl, ok := r.catalog.Templates[template]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, template)
	}
	c := *tpl
	c.ID = r.nextID
	c.Team = team
	c.Levels = maps.Clone(tpl.Levels)
	c.Weapons = maps.Clone(tpl.Weapons)
	c.DamageReduction = slices.Clone(tpl.DamageReduction)

	r.nextID++
	r.creatures[c.ID] = &c
	r.order = append(r.order, c.ID)
	return &c, nil
}

// Creature implements model.CreatureLookup.
func (r *Roster) Creature(id model.CreatureID) (*model.Creature, error) {
	c, ok := r.creatures[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", model.ErrCreatureNotFound, id)
	}
	return c, nil
}

// Weapon implements model.WeaponLookup.
func (r *Roster) Weapon(id model.WeaponID) (*model.Weapon, error) {
	w, ok := r.catalog.Weapons[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrWeaponNotFound, id)
	}
	return w, nil
}

// IDs returns every spawned id in spawn order.
func (r *Roster) IDs() []model.CreatureID {
	return slices.Clone(r.order)
}

// Team returns the ids spawned on team, in spawn order.
func (r *Roster) Team(team string) []model.CreatureID {
	var ids []model.CreatureID
	for _, id := range r.order {
		if r.creatures[id].Team == team {
			ids = append(ids, id)
		}
	}
	return ids
}
