package state

import (
	"encoding/json"
	"testing"
)

func TestValue_Truthy(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"none", None, false},
		{"zero number", Number(0), false},
		{"nonzero number", Number(3.5), true},
		{"negative number", Number(-1), true},
		{"empty string", String(""), false},
		{"string", String("hi"), true},
		{"true", Bool(true), true},
		{"false", Bool(false), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Truthy(); got != tt.want {
				t.Errorf("Truthy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValue_String(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Number(80), "80"},
		{Number(3.5), "3.5"},
		{Bool(true), "True"},
		{Bool(false), "False"},
		{String("str"), "str"},
	}

	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestValue_JSONRoundTrip(t *testing.T) {
	vars := map[string]Value{
		"count":  Number(3),
		"name":   String("Alex"),
		"active": Bool(true),
		"unset":  None,
	}

	data, err := json.Marshal(vars)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var back map[string]Value
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	for k, v := range vars {
		if !back[k].Equal(v) {
			t.Errorf("Variable %q changed across round trip: %v -> %v", k, v, back[k])
		}
	}
}

func TestValue_Equal(t *testing.T) {
	if Number(1).Equal(Bool(true)) {
		t.Error("Cross-kind values should not be equal")
	}
	if !None.Equal(None) {
		t.Error("None should equal None")
	}
	if None.Equal(Number(0)) {
		t.Error("None should not equal zero")
	}
}

func TestCharacter_StatClamping(t *testing.T) {
	c := NewCharacter("Alex", true)

	c.SetStat(StatMotivation, 150)
	if got, _ := c.Stat(StatMotivation); got != 100 {
		t.Errorf("Expected motivation clamped to 100, got %v", got)
	}

	c.SetStat(StatEnergy, -20)
	if got, _ := c.Stat(StatEnergy); got != 0 {
		t.Errorf("Expected energy clamped to 0, got %v", got)
	}

	// Non-percentage stats are not clamped.
	c.SetStat(StatWeight, 180)
	if got, _ := c.Stat(StatWeight); got != 180 {
		t.Errorf("Expected weight unclamped, got %v", got)
	}
}

func TestCharacter_SetAttributeRoutesNumbers(t *testing.T) {
	c := NewCharacter("Alex", true)

	c.SetAttribute(StatConfidence, Number(120))
	if got, ok := c.Stat(StatConfidence); !ok || got != 100 {
		t.Errorf("Expected numeric attribute stored as clamped stat, got %v (set=%v)", got, ok)
	}

	c.SetAttribute("mood", String("upbeat"))
	if got := c.Attribute("mood"); got.Str() != "upbeat" {
		t.Errorf("Expected string attribute kept, got %v", got)
	}

	if got := c.Attribute("missing"); !got.IsNone() {
		t.Errorf("Expected None for missing attribute, got %v", got)
	}
}

func TestCharacter_Describe(t *testing.T) {
	c := NewCharacter("Alex", true)
	c.SetAttribute("description", String("a determined runner"))
	c.SetStat(StatHeight, 170)
	c.SetStat(StatWeight, 70)

	want := "Alex is a determined runner (170cm, 70kg)"
	if got := c.Describe(); got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}

	bare := NewCharacter("Sam", false)
	if got := bare.Describe(); got != "Sam" {
		t.Errorf("Describe() without attributes = %q, want %q", got, "Sam")
	}
}

func TestRoster_GetByAlias(t *testing.T) {
	player := NewCharacter("Alex", true)
	coach := NewCharacter("Coach Sam", false)
	r := NewRoster(player)
	r.Add(coach)

	if got := r.Get("Coach Sam"); got != coach {
		t.Error("Expected exact-name lookup to find the coach")
	}
	if got := r.Get("CoachSam"); got != coach {
		t.Error("Expected alias lookup to find the coach")
	}
	if got := r.Get("Nobody"); got != nil {
		t.Errorf("Expected nil for unknown name, got %v", got)
	}
	if got := r.Player(); got != player {
		t.Error("Expected Player() to return the flagged character")
	}
	if npcs := r.NPCs(); len(npcs) != 1 || npcs[0] != coach {
		t.Errorf("Expected one NPC, got %v", npcs)
	}
}

func TestGameState_AdvanceTime(t *testing.T) {
	gs := NewGameState("start")
	roster := NewRoster(NewCharacter("Alex", true))

	if gs.TimeOfDay != Morning || gs.Day != 1 {
		t.Fatalf("Expected day 1 morning, got day %d %s", gs.Day, gs.TimeOfDay)
	}

	gs.AdvanceTime(roster)
	if gs.TimeOfDay != Afternoon || gs.Day != 1 {
		t.Errorf("Expected afternoon day 1, got %s day %d", gs.TimeOfDay, gs.Day)
	}

	gs.AdvanceTime(roster) // evening
	gs.AdvanceTime(roster) // night
	gs.AdvanceTime(roster) // next morning
	if gs.TimeOfDay != Morning || gs.Day != 2 {
		t.Errorf("Expected morning day 2, got %s day %d", gs.TimeOfDay, gs.Day)
	}
}

func TestGameState_DailyUpdate(t *testing.T) {
	gs := NewGameState("start")
	gs.TimeOfDay = Night

	c := NewCharacter("Alex", true)
	c.SetStat(StatMealsToday, 3)
	c.SetStat(StatDaysSinceExercise, 4)
	c.SetStat(StatMotivation, 50)
	c.SetStat(StatSleepHours, 5)
	c.SetStat(StatEnergy, 60)
	roster := NewRoster(c)

	gs.AdvanceTime(roster)

	if got, _ := c.Stat(StatMealsToday); got != 0 {
		t.Errorf("Expected meals reset to 0, got %v", got)
	}
	if got, _ := c.Stat(StatDaysSinceExercise); got != 5 {
		t.Errorf("Expected exercise gap incremented to 5, got %v", got)
	}
	if got, _ := c.Stat(StatMotivation); got != 48 {
		t.Errorf("Expected motivation decay to 48, got %v", got)
	}
	if got, _ := c.Stat(StatEnergy); got != 45 {
		t.Errorf("Expected short sleep to drop energy to 45, got %v", got)
	}
}

func TestGameState_DailyUpdate_GoodSleep(t *testing.T) {
	gs := NewGameState("start")
	gs.TimeOfDay = Night

	c := NewCharacter("Alex", true)
	c.SetStat(StatSleepHours, 9)
	c.SetStat(StatEnergy, 60)
	roster := NewRoster(c)

	gs.AdvanceTime(roster)

	if got, _ := c.Stat(StatEnergy); got != 70 {
		t.Errorf("Expected long sleep to raise energy to 70, got %v", got)
	}
}

func TestGameState_CloneIsIndependent(t *testing.T) {
	gs := NewGameState("start")
	gs.SetVariable("met_coach", Bool(true))
	gs.MarkVisited("gym")

	cp := gs.Clone()
	cp.SetVariable("met_coach", Bool(false))
	cp.MarkVisited("park")
	cp.Day = 9

	if !gs.Variable("met_coach").AsBool() {
		t.Error("Clone mutation leaked into original variable")
	}
	if gs.HasVisited("park") {
		t.Error("Clone mutation leaked into original visited set")
	}
	if gs.Day != 1 {
		t.Errorf("Clone mutation leaked into original day: %d", gs.Day)
	}
}

func TestCharacter_CloneIsIndependent(t *testing.T) {
	c := NewCharacter("Alex", true)
	c.SetStat(StatHealth, 80)
	c.Inventory = []string{"towel"}

	cp := c.Clone()
	cp.SetStat(StatHealth, 10)
	cp.Inventory[0] = "sword"

	if got, _ := c.Stat(StatHealth); got != 80 {
		t.Errorf("Clone stat mutation leaked: %v", got)
	}
	if c.Inventory[0] != "towel" {
		t.Errorf("Clone inventory mutation leaked: %v", c.Inventory)
	}
}
