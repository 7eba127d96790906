package state

// Roster holds the session's characters: one player plus NPCs, in the
// order they were introduced by the story.
type Roster struct {
	Characters []*Character `json:"characters"`
}

func NewRoster(player *Character) *Roster {
	return &Roster{Characters: []*Character{player}}
}

// Player returns the character flagged as the player, or nil.
func (r *Roster) Player() *Character {
	for _, c := range r.Characters {
		if c.IsPlayer {
			return c
		}
	}
	return nil
}

// Add appends an NPC to the roster.
func (r *Roster) Add(c *Character) {
	r.Characters = append(r.Characters, c)
}

// Get looks a character up by exact name, then by space-stripped alias.
func (r *Roster) Get(name string) *Character {
	for _, c := range r.Characters {
		if c.Name == name {
			return c
		}
	}
	for _, c := range r.Characters {
		if AliasName(c.Name) == name {
			return c
		}
	}
	return nil
}

// NPCs returns every non-player character in roster order.
func (r *Roster) NPCs() []*Character {
	var out []*Character
	for _, c := range r.Characters {
		if !c.IsPlayer {
			out = append(out, c)
		}
	}
	return out
}

// Clone deep-copies the roster and every character in it.
func (r *Roster) Clone() *Roster {
	cp := &Roster{Characters: make([]*Character, len(r.Characters))}
	for i, c := range r.Characters {
		cp.Characters[i] = c.Clone()
	}
	return cp
}
