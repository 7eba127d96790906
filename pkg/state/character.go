package state

import (
	"fmt"
	"strings"
)

// Stat names the engine knows about. Authors may add arbitrary numeric
// stats beyond these.
const (
	StatHealth            = "health"
	StatEnergy            = "energy"
	StatMotivation        = "motivation"
	StatWeight            = "weight"
	StatHeight            = "height"
	StatFitnessLevel      = "fitness_level"
	StatBodyFat           = "body_fat"
	StatMuscleMass        = "muscle_mass"
	StatDiscipline        = "discipline"
	StatStress            = "stress"
	StatConfidence        = "confidence"
	StatDaysSinceExercise = "days_since_exercise"
	StatSleepHours        = "sleep_hours"
	StatMealsToday        = "meals_today"
)

// percentStats are clamped to [0, 100] when updated.
var percentStats = map[string]bool{
	StatMotivation:   true,
	StatEnergy:       true,
	StatConfidence:   true,
	StatStress:       true,
	"happiness":      true,
	StatBodyFat:      true,
	StatMuscleMass:   true,
	StatDiscipline:   true,
	StatHealth:       true,
	StatFitnessLevel: true,
	"positivity":     true,
	"empathy":        true,
	"expertise":      true,
	"supportiveness": true,
}

// Character is any actor in the story, player or NPC. Numeric stats live in
// Stats; everything else an author attaches lives in Attributes.
type Character struct {
	Name          string             `json:"name"`
	IsPlayer      bool               `json:"is_player"`
	Stats         map[string]float64 `json:"stats"`
	Inventory     []string           `json:"inventory,omitempty"`
	Relationships map[string]float64 `json:"relationships,omitempty"`
	Attributes    map[string]Value   `json:"attributes,omitempty"`

	// Descriptor selection per axis ("body", "energy"), defaulting to
	// "default" when unset.
	Descriptors map[string]string `json:"descriptors,omitempty"`
}

func NewCharacter(name string, isPlayer bool) *Character {
	return &Character{
		Name:          name,
		IsPlayer:      isPlayer,
		Stats:         make(map[string]float64),
		Relationships: make(map[string]float64),
		Attributes:    make(map[string]Value),
		Descriptors:   make(map[string]string),
	}
}

// SetStat stores a numeric stat, clamping percentage-style stats to [0, 100].
func (c *Character) SetStat(name string, value float64) {
	if percentStats[name] {
		value = max(0, min(100, value))
	}
	if c.Stats == nil {
		c.Stats = make(map[string]float64)
	}
	c.Stats[name] = value
}

// Stat returns the stat value and whether it is set.
func (c *Character) Stat(name string) (float64, bool) {
	v, ok := c.Stats[name]
	return v, ok
}

func (c *Character) HasStat(name string) bool {
	_, ok := c.Stats[name]
	if ok {
		return true
	}
	_, ok = c.Attributes[name]
	return ok
}

// Attribute resolves a stat or custom attribute as a Value; absent names
// degrade to None rather than an error.
func (c *Character) Attribute(name string) Value {
	if v, ok := c.Stats[name]; ok {
		return Number(v)
	}
	if v, ok := c.Attributes[name]; ok {
		return v
	}
	return None
}

// SetAttribute stores a custom attribute. Numeric values are routed to the
// stats map so they participate in stat lookup and clamping.
func (c *Character) SetAttribute(name string, v Value) {
	if v.Kind() == KindNumber {
		c.SetStat(name, v.Num())
		return
	}
	if c.Attributes == nil {
		c.Attributes = make(map[string]Value)
	}
	c.Attributes[name] = v
}

// DescriptorFor returns the selected descriptor name for an axis,
// defaulting to "default".
func (c *Character) DescriptorFor(axis string) string {
	if name, ok := c.Descriptors[axis]; ok && name != "" {
		return name
	}
	return "default"
}

func (c *Character) SetDescriptor(axis, name string) {
	if c.Descriptors == nil {
		c.Descriptors = make(map[string]string)
	}
	c.Descriptors[axis] = name
}

// Describe composes a short self-description from the description
// attribute and body measurements, when present.
func (c *Character) Describe() string {
	parts := []string{c.Name}
	if desc := c.Attribute("description"); desc.Kind() == KindString && desc.Str() != "" {
		parts = append(parts, "is "+desc.Str())
	}
	h, hasH := c.Stat(StatHeight)
	w, hasW := c.Stat(StatWeight)
	if hasH && hasW {
		parts = append(parts, fmt.Sprintf("(%.0fcm, %.0fkg)", h, w))
	}
	return strings.Join(parts, " ")
}

// Clone returns a deep copy, independent of the receiver.
func (c *Character) Clone() *Character {
	cp := &Character{
		Name:     c.Name,
		IsPlayer: c.IsPlayer,
	}
	if c.Stats != nil {
		cp.Stats = make(map[string]float64, len(c.Stats))
		for k, v := range c.Stats {
			cp.Stats[k] = v
		}
	}
	if c.Inventory != nil {
		cp.Inventory = append([]string(nil), c.Inventory...)
	}
	if c.Relationships != nil {
		cp.Relationships = make(map[string]float64, len(c.Relationships))
		for k, v := range c.Relationships {
			cp.Relationships[k] = v
		}
	}
	if c.Attributes != nil {
		cp.Attributes = make(map[string]Value, len(c.Attributes))
		for k, v := range c.Attributes {
			cp.Attributes[k] = v
		}
	}
	if c.Descriptors != nil {
		cp.Descriptors = make(map[string]string, len(c.Descriptors))
		for k, v := range c.Descriptors {
			cp.Descriptors[k] = v
		}
	}
	return cp
}

// AliasName strips spaces from a character name, the alternate form
// templates may use to reference NPCs ("Coach Dan" -> "CoachDan").
func AliasName(name string) string {
	return strings.ReplaceAll(name, " ", "")
}
