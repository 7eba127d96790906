package state

import (
	"github.com/google/uuid"
)

// TimeOfDay is one of the four day periods the clock cycles through.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Night     TimeOfDay = "night"
)

var timePeriods = []TimeOfDay{Morning, Afternoon, Evening, Night}

// GameState is the mutable per-session state. It is mutated only by action
// callbacks, the interpreter's transition logic, and save/undo restoration;
// the template engine reads it but never writes.
type GameState struct {
	ID              uuid.UUID        `json:"id"`
	Day             int              `json:"day"`
	TimeOfDay       TimeOfDay        `json:"time_of_day"`
	CurrentSceneID  string           `json:"current_scene_id"`
	VisitedScenes   map[string]bool  `json:"visited_scenes"`
	CompletedEvents map[string]bool  `json:"completed_events"`
	Variables       map[string]Value `json:"variables"`
}

func NewGameState(startScene string) *GameState {
	gs := &GameState{
		ID:              uuid.New(),
		Day:             1,
		TimeOfDay:       Morning,
		CurrentSceneID:  startScene,
		VisitedScenes:   make(map[string]bool),
		CompletedEvents: make(map[string]bool),
		Variables:       make(map[string]Value),
	}
	gs.VisitedScenes[startScene] = true
	return gs
}

// MarkVisited records a scene visit. Idempotent.
func (gs *GameState) MarkVisited(sceneID string) {
	if gs.VisitedScenes == nil {
		gs.VisitedScenes = make(map[string]bool)
	}
	gs.VisitedScenes[sceneID] = true
}

func (gs *GameState) HasVisited(sceneID string) bool {
	return gs.VisitedScenes[sceneID]
}

// CompleteEvent marks an event id as done.
func (gs *GameState) CompleteEvent(eventID string) {
	if gs.CompletedEvents == nil {
		gs.CompletedEvents = make(map[string]bool)
	}
	gs.CompletedEvents[eventID] = true
}

func (gs *GameState) IsEventCompleted(eventID string) bool {
	return gs.CompletedEvents[eventID]
}

func (gs *GameState) SetVariable(name string, v Value) {
	if gs.Variables == nil {
		gs.Variables = make(map[string]Value)
	}
	gs.Variables[name] = v
}

// Variable returns the named game variable, None when unset.
func (gs *GameState) Variable(name string) Value {
	if v, ok := gs.Variables[name]; ok {
		return v
	}
	return None
}

// AdvanceTime moves the clock one period forward. Crossing into a new day
// runs the daily stat updates on every character in the roster.
func (gs *GameState) AdvanceTime(roster *Roster) {
	idx := 0
	for i, p := range timePeriods {
		if p == gs.TimeOfDay {
			idx = i
			break
		}
	}
	if idx == len(timePeriods)-1 {
		gs.Day++
		gs.TimeOfDay = timePeriods[0]
		if roster != nil {
			for _, c := range roster.Characters {
				dailyUpdate(c)
			}
		}
		return
	}
	gs.TimeOfDay = timePeriods[idx+1]
}

// dailyUpdate applies the start-of-day stat adjustments: meals reset,
// exercise gap tracking, motivation decay after long gaps, and energy
// shifts from sleep.
func dailyUpdate(c *Character) {
	c.SetStat(StatMealsToday, 0)

	gap, _ := c.Stat(StatDaysSinceExercise)
	c.SetStat(StatDaysSinceExercise, gap+1)

	if gap > 3 {
		if m, ok := c.Stat(StatMotivation); ok {
			c.SetStat(StatMotivation, m-2)
		}
	}

	sleep, hasSleep := c.Stat(StatSleepHours)
	if !hasSleep {
		sleep = 7
	}
	if energy, ok := c.Stat(StatEnergy); ok {
		switch {
		case sleep < 6:
			c.SetStat(StatEnergy, energy-15)
		case sleep > 8:
			c.SetStat(StatEnergy, energy+10)
		}
	}
}

// Clone deep-copies the state.
func (gs *GameState) Clone() *GameState {
	cp := &GameState{
		ID:             gs.ID,
		Day:            gs.Day,
		TimeOfDay:      gs.TimeOfDay,
		CurrentSceneID: gs.CurrentSceneID,
	}
	if gs.VisitedScenes != nil {
		cp.VisitedScenes = make(map[string]bool, len(gs.VisitedScenes))
		for k, v := range gs.VisitedScenes {
			cp.VisitedScenes[k] = v
		}
	}
	if gs.CompletedEvents != nil {
		cp.CompletedEvents = make(map[string]bool, len(gs.CompletedEvents))
		for k, v := range gs.CompletedEvents {
			cp.CompletedEvents[k] = v
		}
	}
	if gs.Variables != nil {
		cp.Variables = make(map[string]Value, len(gs.Variables))
		for k, v := range gs.Variables {
			cp.Variables[k] = v
		}
	}
	return cp
}
