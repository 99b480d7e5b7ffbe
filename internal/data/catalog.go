package data

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/d20combat/internal/game/dice"
	"github.com/udisondev/d20combat/internal/model"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog holds the weapon and creature templates an encounter draws from.
// Read-only after loading.
type Catalog struct {
	Weapons   map[model.WeaponID]*model.Weapon
	Templates map[string]*model.Creature
}

type catalogDef struct {
	Weapons   []weaponDef   `yaml:"weapons"`
	Creatures []creatureDef `yaml:"creatures"`
}

type weaponDef struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Damage      string   `yaml:"damage"`
	Threat      int      `yaml:"threat"`
	Multiplier  int      `yaml:"multiplier"`
	Types       []string `yaml:"types"`
	Enhancement int      `yaml:"enhancement"`
	Grip        string   `yaml:"grip"`
	Properties  []string `yaml:"properties"`
}

type reductionDef struct {
	Amount int      `yaml:"amount"`
	Source string   `yaml:"source"`
	Types  []string `yaml:"types"`
	Bypass int      `yaml:"bypass"`
}

type creatureDef struct {
	Template     string           `yaml:"template"`
	Name         string           `yaml:"name"`
	Size         string           `yaml:"size"`
	Attributes   model.Attributes `yaml:"attributes"`
	BaseAttack   int              `yaml:"base_attack"`
	HitPoints    int              `yaml:"hit_points"`
	Feats        []string         `yaml:"feats"`
	Markers      []string         `yaml:"markers"`
	Levels       map[string]int   `yaml:"levels"`
	Armor        int              `yaml:"armor"`
	Shield       int              `yaml:"shield"`
	NaturalArmor int              `yaml:"natural_armor"`
	Deflection   int              `yaml:"deflection"`
	Reduction    []reductionDef   `yaml:"damage_reduction"`
	MainHand     string           `yaml:"main_hand"`
	OffHand      string           `yaml:"off_hand"`
}

// DefaultCatalog parses the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		return nil, fmt.Errorf("default catalog: %w", err)
	}
	return c, nil
}

// LoadCatalog reads a catalog file. An empty path selects the embedded one.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	c, err := ParseCatalog(raw)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	slog.Info("loaded catalog", "path", path, "weapons", len(c.Weapons), "creatures", len(c.Templates))
	return c, nil
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var def catalogDef
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	c := &Catalog{
		Weapons:   make(map[model.WeaponID]*model.Weapon, len(def.Weapons)),
		Templates: make(map[string]*model.Creature, len(def.Creatures)),
	}
	for i := range def.Weapons {
		w, err := convertWeapon(&def.Weapons[i])
		if err != nil {
			return nil, err
		}
		if _, dup := c.Weapons[w.ID]; dup {
			return nil, fmt.Errorf("weapon %q defined twice", w.ID)
		}
		c.Weapons[w.ID] = w
	}
	for i := range def.Creatures {
		cr, err := convertCreature(&def.Creatures[i], c.Weapons)
		if err != nil {
			return nil, err
		}
		if _, dup := c.Templates[def.Creatures[i].Template]; dup {
			return nil, fmt.Errorf("creature template %q defined twice", def.Creatures[i].Template)
		}
		c.Templates[def.Creatures[i].Template] = cr
	}
	return c, nil
}

func convertWeapon(def *weaponDef) (*model.Weapon, error) {
	if def.ID == "" {
		return nil, fmt.Errorf("weapon %q: missing id", def.Name)
	}
	damage, err := dice.Parse(def.Damage)
	if err != nil {
		return nil, fmt.Errorf("weapon %q: %w", def.ID, err)
	}
	w := &model.Weapon{
		ID:          model.WeaponID(def.ID),
		Name:        def.Name,
		Damage:      damage,
		ThreatRange: max(def.Threat, 1),
		Multiplier:  def.Multiplier,
		Enhancement: def.Enhancement,
	}
	if w.Name == "" {
		w.Name = def.ID
	}
	if w.Multiplier == 0 {
		w.Multiplier = 2
	}
	if w.Multiplier < 2 || w.Multiplier > 6 {
		return nil, fmt.Errorf("weapon %q: multiplier %d out of 2..6", def.ID, def.Multiplier)
	}
	if w.Grip, err = model.ParseGrip(def.Grip); err != nil {
		return nil, fmt.Errorf("weapon %q: %w", def.ID, err)
	}
	for _, name := range def.Types {
		t, err := model.ParseDamageType(name)
		if err != nil {
			return nil, fmt.Errorf("weapon %q: %w", def.ID, err)
		}
		w.Types |= model.NewDamageTypeSet(t)
	}
	if w.Types == 0 {
		return nil, fmt.Errorf("weapon %q: no damage types", def.ID)
	}
	for _, name := range def.Properties {
		p, err := model.ParseWeaponProperty(name)
		if err != nil {
			return nil, fmt.Errorf("weapon %q: %w", def.ID, err)
		}
		w.Properties |= model.NewPropertySet(p)
	}
	return w, nil
}

func convertCreature(def *creatureDef, weapons map[model.WeaponID]*model.Weapon) (*model.Creature, error) {
	if def.Template == "" {
		return nil, fmt.Errorf("creature %q: missing template", def.Name)
	}
	fail := func(err error) (*model.Creature, error) {
		return nil, fmt.Errorf("creature %q: %w", def.Template, err)
	}

	c := &model.Creature{
		Name:         def.Name,
		Attributes:   def.Attributes,
		BaseAttack:   def.BaseAttack,
		HitPoints:    def.HitPoints,
		ArmorBonus:   def.Armor,
		ShieldBonus:  def.Shield,
		NaturalArmor: def.NaturalArmor,
		Deflection:   def.Deflection,
		Levels:       make(map[model.Class]int, len(def.Levels)),
		Weapons:      make(map[model.Slot]model.WeaponID, 2),
	}
	if c.Name == "" {
		c.Name = def.Template
	}
	if c.HitPoints <= 0 {
		return fail(fmt.Errorf("hit_points must be positive, got %d", def.HitPoints))
	}

	var err error
	if c.Size, err = model.ParseSize(def.Size); err != nil {
		return fail(err)
	}
	for _, name := range def.Feats {
		f, err := model.ParseFeat(name)
		if err != nil {
			return fail(err)
		}
		c.Feats |= model.NewFeatSet(f)
	}
	for _, name := range def.Markers {
		m, err := model.ParseMarker(name)
		if err != nil {
			return fail(err)
		}
		c.Markers = c.Markers.With(m)
	}
	for name, lvl := range def.Levels {
		class, err := model.ParseClass(name)
		if err != nil {
			return fail(err)
		}
		c.Levels[class] = lvl
	}
	for _, rd := range def.Reduction {
		src, err := model.ParseDRSource(rd.Source)
		if err != nil {
			return fail(err)
		}
		r := model.DamageReduction{Amount: rd.Amount, Source: src, BypassTier: rd.Bypass}
		for _, name := range rd.Types {
			t, err := model.ParseDamageType(name)
			if err != nil {
				return fail(err)
			}
			r.Types |= model.NewDamageTypeSet(t)
		}
		if r.Types == 0 {
			r.Types = model.AllDamageTypes
		}
		c.DamageReduction = append(c.DamageReduction, r)
	}

	for slot, id := range map[model.Slot]string{model.SlotMainHand: def.MainHand, model.SlotOffHand: def.OffHand} {
		if id == "" {
			continue
		}
		if _, ok := weapons[model.WeaponID(id)]; !ok {
			return fail(fmt.Errorf("%s: %w: %s", slot, model.ErrWeaponNotFound, id))
		}
		c.Weapons[slot] = model.WeaponID(id)
	}
	if _, ok := c.Weapons[model.SlotMainHand]; !ok {
		return fail(model.ErrNoWeapon)
	}
	return c, nil
}
