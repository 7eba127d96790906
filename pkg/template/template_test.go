package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tadventure/engine/pkg/descriptor"
	"github.com/tadventure/engine/pkg/state"
)

func testContext() *Context {
	player := state.NewCharacter("Alex", true)
	player.SetStat(state.StatHealth, 80)
	player.SetStat(state.StatEnergy, 90)
	player.SetStat(state.StatMotivation, 75)
	player.SetStat(state.StatHeight, 170)
	player.SetStat(state.StatWeight, 70)
	player.SetAttribute("mood", state.String("upbeat"))

	coach := state.NewCharacter("Coach Sam", false)
	coach.SetStat(state.StatEnergy, 40)

	roster := state.NewRoster(player)
	roster.Add(coach)

	gs := state.NewGameState("start")
	gs.SetVariable("met_coach", state.Bool(true))
	gs.CompleteEvent("first_workout")

	return &Context{
		Game:     gs,
		Roster:   roster,
		Registry: descriptor.NewRegistry(),
	}
}

func TestEvalExpr_Basics(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		expr string
		want string
	}{
		{"player.health", "80"},
		{"player.name", "Alex"},
		{"player.stats.energy", "90"},
		{"player.mood", "upbeat"},
		{"game.day", "1"},
		{"game.time_of_day", "morning"},
		{"game.current_scene_id", "start"},
		{"1 + 2 * 3", "7"},
		{"(1 + 2) * 3", "9"},
		{"10 / 4", "2.5"},
		{"'Hello, ' + player.name", "Hello, Alex"},
		{"player.health + 5", "85"},
		{"-player.health", "-80"},
		{"True", "True"},
		{"None", "None"},
		{"CoachSam.energy", "40"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			v, err := EvalExpr(tt.expr, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestEvalExpr_MissingLookupsDegradeToNone(t *testing.T) {
	ctx := testContext()

	v, err := EvalExpr("player.charisma", ctx)
	require.NoError(t, err)
	assert.True(t, v.IsNone())

	// Arithmetic against None stays None instead of failing the render.
	v, err = EvalExpr("player.charisma + 10", ctx)
	require.NoError(t, err)
	assert.True(t, v.IsNone())

	v, err = EvalExpr("nobody", ctx)
	require.NoError(t, err)
	assert.True(t, v.IsNone())
}

func TestEvalExpr_ShortCircuit(t *testing.T) {
	ctx := testContext()

	v, err := EvalExpr("0 or 'fallback'", ctx)
	require.NoError(t, err)
	assert.Equal(t, "fallback", v.String())

	v, err = EvalExpr("'a' and 'b'", ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", v.String())

	// The right side is never evaluated when the left decides: a division
	// by zero there must not surface.
	v, err = EvalExpr("0 and 1 / 0", ctx)
	require.NoError(t, err)
	assert.False(t, v.Truthy())
}

func TestEvalExpr_Comparisons(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		expr string
		want bool
	}{
		{"player.health > 50", true},
		{"player.health >= 80", true},
		{"player.health < 50", false},
		{"player.health == 80", true},
		{"player.health != 80", false},
		{"'abc' < 'abd'", true},
		{"not player.health > 50", false},
		{"player.health > 50 and player.energy > 50", true},
		{"player.health > 90 or player.energy > 50", true},
		// Kind mismatch and None comparisons are quietly false.
		{"player.charisma > 10", false},
		{"player.name > 10", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			v, err := EvalExpr(tt.expr, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Truthy())
		})
	}
}

func TestEvalExpr_DivisionByZero(t *testing.T) {
	_, err := EvalExpr("1 / 0", testContext())
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
}

func TestEvalExpr_Builtins(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		expr string
		want string
	}{
		{"var('met_coach')", "True"},
		{"var('missing', 'fallback')", "fallback"},
		{"var('missing', default='kw')", "kw"},
		{"game.get_variable('met_coach')", "True"},
		{"has_completed('first_workout')", "True"},
		{"has_completed('marathon')", "False"},
		{"game.get_character('Coach Sam').name", "Coach Sam"},
		{"game.get_character('CoachSam').has_stat('energy')", "True"},
		{"player.get_attribute('mood')", "upbeat"},
		{"player.get_attribute('missing', 'calm')", "calm"},
		{"player.has_stat('health')", "True"},
		{"player.has_stat('charisma')", "False"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			v, err := EvalExpr(tt.expr, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestEvalExpr_UnknownFunctionIsFatal(t *testing.T) {
	_, err := EvalExpr("summon_dragon()", testContext())
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, err.Error(), "summon_dragon")
}

func TestEvalCondition_BindsPlayerStats(t *testing.T) {
	ctx := testContext()

	ok, err := EvalCondition("health > 50", ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvalCondition("energy > 95", ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// Bare stat names resolve only in condition contexts.
	v, err := EvalExpr("health", ctx)
	require.NoError(t, err)
	assert.True(t, v.IsNone())
}

func TestRender_Substitution(t *testing.T) {
	ctx := testContext()

	res, err := Render("Health: {{player.health}}. Mood: {{player.mood}}.", ctx)
	require.NoError(t, err)
	assert.Equal(t, "Health: 80. Mood: upbeat.", res.Text)
	assert.Nil(t, res.Goto)
}

func TestRender_NoneRendersEmpty(t *testing.T) {
	res, err := Render("[{{player.charisma}}]", testContext())
	require.NoError(t, err)
	assert.Equal(t, "[]", res.Text)
}

func TestRender_Conditionals(t *testing.T) {
	ctx := testContext()
	tmpl := "{% if player.health > 50 %}You feel strong.{% elif player.health > 20 %}You feel shaky.{% else %}You can barely stand.{% endif %}"

	res, err := Render(tmpl, ctx)
	require.NoError(t, err)
	assert.Equal(t, "You feel strong.", res.Text)

	ctx.Roster.Player().SetStat(state.StatHealth, 30)
	res, err = Render(tmpl, ctx)
	require.NoError(t, err)
	assert.Equal(t, "You feel shaky.", res.Text)

	ctx.Roster.Player().SetStat(state.StatHealth, 10)
	res, err = Render(tmpl, ctx)
	require.NoError(t, err)
	assert.Equal(t, "You can barely stand.", res.Text)
}

func TestRender_BlockConditionsDoNotBindStats(t *testing.T) {
	// Bare stat names are a choice-condition shorthand only; inside a
	// block they degrade to None like any other unknown name.
	res, err := Render("{% if health > 50 %}strong{% else %}weak{% endif %}", testContext())
	require.NoError(t, err)
	assert.Equal(t, "weak", res.Text)

	res, err = Render("{% if player.stats.health > 50 %}strong{% else %}weak{% endif %}", testContext())
	require.NoError(t, err)
	assert.Equal(t, "strong", res.Text)
}

func TestRender_NestedConditionals(t *testing.T) {
	tmpl := "{% if player.health > 50 %}{% if player.energy > 50 %}ready{% else %}rest first{% endif %}{% endif %}"
	res, err := Render(tmpl, testContext())
	require.NoError(t, err)
	assert.Equal(t, "ready", res.Text)
}

func TestRender_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
	}{
		{"unbalanced expr tag", "Hello {{player.health"},
		{"missing endif", "{% if health > 50 %}text"},
		{"unknown statement", "{% loop 3 %}x{% endloop %}"},
		{"dangling endif", "text {% endif %}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Render(tt.tmpl, testContext())
			var rerr *RenderError
			require.ErrorAs(t, err, &rerr)
		})
	}
}

func TestRender_AutoGoto(t *testing.T) {
	tmpl := "The door opens.\n@goto:hallway You step through.\nThis line is never shown."

	res, err := Render(tmpl, testContext())
	require.NoError(t, err)
	require.NotNil(t, res.Goto)
	assert.Equal(t, "hallway", res.Goto.SceneID)
	assert.Equal(t, "You step through.", res.Goto.Text)
	assert.Equal(t, "The door opens.\n", res.Text)
	assert.NotContains(t, res.Text, "never shown")
}

func TestRender_AutoGotoFirstOnTakenBranchWins(t *testing.T) {
	tmpl := "{% if player.health > 50 %}@goto:gym{% else %}@goto:bed{% endif %}\n@goto:fallback"

	res, err := Render(tmpl, testContext())
	require.NoError(t, err)
	require.NotNil(t, res.Goto)
	assert.Equal(t, "gym", res.Goto.SceneID)
}

func TestRender_AutoGotoOnUntakenBranchIgnored(t *testing.T) {
	tmpl := "{% if player.health > 95 %}@goto:gym{% endif %}Still here."

	res, err := Render(tmpl, testContext())
	require.NoError(t, err)
	assert.Nil(t, res.Goto)
	assert.Equal(t, "Still here.", res.Text)
}

func TestRender_Idempotent(t *testing.T) {
	ctx := testContext()
	tmpl := "Day {{game.day}}: {% if player.health > 50 %}strong{% endif %} {{player.energy:.1f}}"

	first, err := Render(tmpl, ctx)
	require.NoError(t, err)
	second, err := Render(tmpl, ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Text, second.Text)
}

func TestRender_FormatSpecs(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		tmpl string
		want string
	}{
		{"{{3.14159:.1f}}", "3.1"},
		{"{{3.14159:.3f}}", "3.142"},
		{"{{7:03d}}", "007"},
		{"{{player.health:d}}", "80"},
		{"{{player.health:.2f}}", "80.00"},
		{"{{player.health:8.2f}}", "   80.00"},
		{"{{player.name:8s}}", "    Alex"},
		// 2.0 rounds through d to a plain integer.
		{"{{2.6:d}}", "3"},
	}

	for _, tt := range tests {
		t.Run(tt.tmpl, func(t *testing.T) {
			res, err := Render(tt.tmpl, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Text)
		})
	}
}

func TestRender_FormatSpecNeedsNumber(t *testing.T) {
	_, err := Render("{{player.name:.1f}}", testContext())
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
}

func TestRender_ColonInExpressionIsNotAFormatSpec(t *testing.T) {
	// String literals may contain colons; only a trailing valid spec is
	// treated as formatting.
	res, err := Render("{{'time: ' + game.time_of_day}}", testContext())
	require.NoError(t, err)
	assert.Equal(t, "time: morning", res.Text)
}

func TestRender_DescriptorTags(t *testing.T) {
	ctx := testContext()

	res, err := Render("{{describe:Alex}}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alex is average weight and appears very energetic. They currently have 75% motivation.", res.Text)

	res, err = Render("{{get_body_desc:Alex}}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "average weight", res.Text)

	res, err = Render("{{get_energy_desc:Alex:simple}}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "energetic", res.Text)

	res, err = Render("{{describe('CoachSam')}}", ctx)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Coach Sam is")
}

func TestRender_DescriptorUnknownCharacterIsFatal(t *testing.T) {
	_, err := Render("{{describe:Nobody}}", testContext())
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
}

func TestRenderInline(t *testing.T) {
	out, err := RenderInline("  Talk to {{CoachSam.name}}  ", testContext())
	require.NoError(t, err)
	assert.Equal(t, "Talk to Coach Sam", out)
}

func TestRender_ListDescriptors(t *testing.T) {
	res, err := Render("{{list_descriptors('body')}}", testContext())
	require.NoError(t, err)
	assert.Equal(t, "default, fitness, simple", res.Text)
}

func TestRender_UnknownFunctionIsFatal(t *testing.T) {
	_, err := Render("{{cast_spell('fireball')}}", testContext())
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)

	// but errors.Is on a wrapped error still finds the render error type
	assert.True(t, errors.As(err, &rerr))
}
