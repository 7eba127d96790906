package template

import (
	"fmt"
	"strings"

	"github.com/tadventure/engine/pkg/descriptor"
	"github.com/tadventure/engine/pkg/state"
)

// RenderError is fatal for the render pass it occurs in: the turn is
// aborted and state rolled back by the caller.
type RenderError struct {
	Msg string
}

func (e *RenderError) Error() string { return "render: " + e.Msg }

func renderErrf(format string, args ...any) *RenderError {
	return &RenderError{Msg: fmt.Sprintf(format, args...)}
}

// Context carries everything an expression may read. The template engine
// never mutates game state through it.
type Context struct {
	Game     *state.GameState
	Roster   *state.Roster
	Registry *descriptor.Registry

	// bindStats additionally exposes the player's stat names as top-level
	// identifiers. Only choice visibility/branch conditions get this.
	bindStats bool
}

// ForCondition returns a copy of the context with player stats bound at
// top level, the form choice conditions are evaluated in.
func (c *Context) ForCondition() *Context {
	cp := *c
	cp.bindStats = true
	return &cp
}

func (c *Context) player() *state.Character {
	if c.Roster == nil {
		return nil
	}
	return c.Roster.Player()
}

// Evaluation operates on `any` carrying one of: state.Value, *state.Character,
// *state.GameState, statsObj, or builtinFn.

type statsObj struct{ char *state.Character }

type builtinFn struct{ name string }

var builtinNames = map[string]bool{
	"var":              true,
	"has_completed":    true,
	"describe":         true,
	"get_body_desc":    true,
	"get_energy_desc":  true,
	"list_descriptors": true,
}

// evalExpr evaluates parsed expression AST against the context.
func evalExpr(n exprNode, ctx *Context) (any, error) {
	switch t := n.(type) {
	case litNode:
		return t.val, nil
	case identNode:
		return resolveIdent(t.name, ctx), nil
	case attrNode:
		target, err := evalExpr(t.target, ctx)
		if err != nil {
			return nil, err
		}
		return resolveAttr(target, t.name), nil
	case callNode:
		return evalCall(t, ctx)
	case unaryNode:
		return evalUnary(t, ctx)
	case binaryNode:
		return evalBinary(t, ctx)
	default:
		return nil, renderErrf("unsupported expression node %T", n)
	}
}

func resolveIdent(name string, ctx *Context) any {
	switch name {
	case "player":
		if p := ctx.player(); p != nil {
			return p
		}
		return state.None
	case "game":
		if ctx.Game != nil {
			return ctx.Game
		}
		return state.None
	}
	if builtinNames[name] {
		return builtinFn{name: name}
	}
	if ctx.Roster != nil {
		if c := ctx.Roster.Get(name); c != nil {
			return c
		}
	}
	if ctx.bindStats {
		if p := ctx.player(); p != nil {
			if v, ok := p.Stat(name); ok {
				return state.Number(v)
			}
		}
	}
	// Data absence is not an error: unknown names degrade to None.
	return state.None
}

// resolveAttr navigates dotted attribute chains. Misses degrade to None.
func resolveAttr(target any, name string) any {
	switch t := target.(type) {
	case *state.Character:
		switch name {
		case "name":
			return state.String(t.Name)
		case "is_player":
			return state.Bool(t.IsPlayer)
		case "stats":
			return statsObj{char: t}
		default:
			return t.Attribute(name)
		}
	case statsObj:
		return t.char.Attribute(name)
	case *state.GameState:
		switch name {
		case "day":
			return state.Number(float64(t.Day))
		case "time_of_day":
			return state.String(string(t.TimeOfDay))
		case "current_scene_id":
			return state.String(t.CurrentSceneID)
		default:
			return t.Variable(name)
		}
	default:
		return state.None
	}
}

func evalCall(call callNode, ctx *Context) (any, error) {
	args, kwargs, err := evalArgs(call, ctx)
	if err != nil {
		return nil, err
	}

	name := qualifiedName(call.target)
	switch name {
	case "var", "game.get_variable":
		return callVar(args, kwargs, ctx)
	case "has_completed":
		if len(args) < 1 || ctx.Game == nil {
			return state.Bool(false), nil
		}
		return state.Bool(ctx.Game.IsEventCompleted(toValue(args[0]).Str())), nil
	case "describe":
		return callDescribe(args, ctx)
	case "get_body_desc":
		return callAxisDesc(descriptor.AxisBody, args, ctx)
	case "get_energy_desc":
		return callAxisDesc(descriptor.AxisEnergy, args, ctx)
	case "list_descriptors":
		axis := ""
		if len(args) > 0 {
			axis = toValue(args[0]).Str()
		}
		if ctx.Registry == nil {
			return state.String(""), nil
		}
		return state.String(strings.Join(ctx.Registry.List(axis), ", ")), nil
	case "game.get_character":
		if len(args) < 1 || ctx.Roster == nil {
			return state.None, nil
		}
		if c := ctx.Roster.Get(toValue(args[0]).Str()); c != nil {
			return c, nil
		}
		return state.None, nil
	case "player.get_attribute":
		return callGetAttribute(ctx.player(), args, kwargs)
	case "player.has_stat":
		p := ctx.player()
		if p == nil || len(args) < 1 {
			return state.Bool(false), nil
		}
		return state.Bool(p.HasStat(toValue(args[0]).Str())), nil
	case "player.describe":
		p := ctx.player()
		if p == nil {
			return state.String(""), nil
		}
		return state.String(p.Describe()), nil
	}

	// Method call on a character reached through an expression, e.g.
	// game.get_character('Dan').has_stat('energy').
	if attr, ok := call.target.(attrNode); ok {
		target, err := evalExpr(attr.target, ctx)
		if err != nil {
			return nil, err
		}
		if c, ok := target.(*state.Character); ok {
			switch attr.name {
			case "get_attribute":
				return callGetAttribute(c, args, kwargs)
			case "has_stat":
				if len(args) < 1 {
					return state.Bool(false), nil
				}
				return state.Bool(c.HasStat(toValue(args[0]).Str())), nil
			case "describe":
				return state.String(c.Describe()), nil
			}
		}
	}

	// Grammar misuse, not data absence: fatal.
	if name == "" {
		return nil, renderErrf("expression is not callable")
	}
	return nil, renderErrf("unknown function %q", name)
}

func evalArgs(call callNode, ctx *Context) ([]any, map[string]any, error) {
	args := make([]any, 0, len(call.args))
	for _, a := range call.args {
		v, err := evalExpr(a, ctx)
		if err != nil {
			return nil, nil, err
		}
		args = append(args, v)
	}
	var kwargs map[string]any
	for name, a := range call.kwargs {
		v, err := evalExpr(a, ctx)
		if err != nil {
			return nil, nil, err
		}
		if kwargs == nil {
			kwargs = make(map[string]any)
		}
		kwargs[name] = v
	}
	return args, kwargs, nil
}

func callVar(args []any, kwargs map[string]any, ctx *Context) (any, error) {
	if len(args) < 1 || ctx.Game == nil {
		return state.None, nil
	}
	v := ctx.Game.Variable(toValue(args[0]).Str())
	if v.IsNone() {
		if def, ok := kwargs["default"]; ok {
			return def, nil
		}
		if len(args) > 1 {
			return args[1], nil
		}
	}
	return v, nil
}

func callGetAttribute(c *state.Character, args []any, kwargs map[string]any) (any, error) {
	if c == nil || len(args) < 1 {
		return state.None, nil
	}
	v := c.Attribute(toValue(args[0]).Str())
	if v.IsNone() {
		if def, ok := kwargs["default"]; ok {
			return def, nil
		}
		if len(args) > 1 {
			return args[1], nil
		}
	}
	return v, nil
}

func callDescribe(args []any, ctx *Context) (any, error) {
	if len(args) < 1 {
		return nil, renderErrf("describe requires a character name")
	}
	if ctx.Registry == nil {
		return nil, renderErrf("no descriptor registry in context")
	}
	c, err := lookupCharacter(args[0], ctx)
	if err != nil {
		return nil, err
	}
	body, energy := "", ""
	if len(args) > 1 {
		body = toValue(args[1]).Str()
	}
	if len(args) > 2 {
		energy = toValue(args[2]).Str()
	}
	out, err := ctx.Registry.Describe(c, body, energy)
	if err != nil {
		return nil, renderErrf("%v", err)
	}
	return state.String(out), nil
}

func callAxisDesc(axis string, args []any, ctx *Context) (any, error) {
	if len(args) < 1 {
		return nil, renderErrf("%s descriptor requires a character name", axis)
	}
	if ctx.Registry == nil {
		return nil, renderErrf("no descriptor registry in context")
	}
	c, err := lookupCharacter(args[0], ctx)
	if err != nil {
		return nil, err
	}
	name := ""
	if len(args) > 1 {
		name = toValue(args[1]).Str()
	}
	if name == "" {
		name = c.DescriptorFor(axis)
	}
	out, err := ctx.Registry.Resolve(axis, name, descriptor.Snapshot(c))
	if err != nil {
		return nil, renderErrf("%v", err)
	}
	return state.String(out), nil
}

// lookupCharacter accepts a character value directly or a name, resolving
// names exactly then by space-stripped alias. Unknown characters are fatal.
func lookupCharacter(arg any, ctx *Context) (*state.Character, error) {
	if c, ok := arg.(*state.Character); ok {
		return c, nil
	}
	name := toValue(arg).Str()
	if ctx.Roster != nil {
		if c := ctx.Roster.Get(name); c != nil {
			return c, nil
		}
	}
	return nil, renderErrf("unknown character %q", name)
}

func evalUnary(n unaryNode, ctx *Context) (any, error) {
	x, err := evalExpr(n.x, ctx)
	if err != nil {
		return nil, err
	}
	v := toValue(x)
	switch n.op {
	case "not":
		return state.Bool(!truthy(x)), nil
	case "-":
		if v.Kind() != state.KindNumber {
			return state.None, nil
		}
		return state.Number(-v.Num()), nil
	}
	return nil, renderErrf("unknown unary operator %q", n.op)
}

func evalBinary(n binaryNode, ctx *Context) (any, error) {
	// and/or short-circuit and yield the deciding operand, Python-style.
	if n.op == "and" || n.op == "or" {
		l, err := evalExpr(n.l, ctx)
		if err != nil {
			return nil, err
		}
		if n.op == "and" {
			if !truthy(l) {
				return l, nil
			}
		} else if truthy(l) {
			return l, nil
		}
		return evalExpr(n.r, ctx)
	}

	l, err := evalExpr(n.l, ctx)
	if err != nil {
		return nil, err
	}
	r, err := evalExpr(n.r, ctx)
	if err != nil {
		return nil, err
	}
	lv, rv := toValue(l), toValue(r)

	switch n.op {
	case "==":
		return state.Bool(lv.Equal(rv)), nil
	case "!=":
		return state.Bool(!lv.Equal(rv)), nil
	case "<", "<=", ">", ">=":
		return compare(n.op, lv, rv), nil
	case "+":
		if lv.Kind() == state.KindString || rv.Kind() == state.KindString {
			return state.String(lv.String() + rv.String()), nil
		}
		if lv.Kind() == state.KindNumber && rv.Kind() == state.KindNumber {
			return state.Number(lv.Num() + rv.Num()), nil
		}
		return state.None, nil
	case "-", "*", "/":
		if lv.Kind() != state.KindNumber || rv.Kind() != state.KindNumber {
			return state.None, nil
		}
		switch n.op {
		case "-":
			return state.Number(lv.Num() - rv.Num()), nil
		case "*":
			return state.Number(lv.Num() * rv.Num()), nil
		default:
			if rv.Num() == 0 {
				return nil, renderErrf("division by zero")
			}
			return state.Number(lv.Num() / rv.Num()), nil
		}
	}
	return nil, renderErrf("unknown operator %q", n.op)
}

// compare orders numbers numerically and strings lexically. Comparisons
// involving None or mismatched kinds are false, so missing data fails
// guards quietly.
func compare(op string, l, r state.Value) state.Value {
	if l.Kind() != r.Kind() {
		return state.Bool(false)
	}
	var cmp int
	switch l.Kind() {
	case state.KindNumber:
		switch {
		case l.Num() < r.Num():
			cmp = -1
		case l.Num() > r.Num():
			cmp = 1
		}
	case state.KindString:
		cmp = strings.Compare(l.Str(), r.Str())
	default:
		return state.Bool(false)
	}
	switch op {
	case "<":
		return state.Bool(cmp < 0)
	case "<=":
		return state.Bool(cmp <= 0)
	case ">":
		return state.Bool(cmp > 0)
	default:
		return state.Bool(cmp >= 0)
	}
}

// toValue collapses an evaluation result to a displayable Value. Characters
// and game objects render by identity name.
func toValue(x any) state.Value {
	switch t := x.(type) {
	case state.Value:
		return t
	case *state.Character:
		return state.String(t.Name)
	case *state.GameState:
		return state.String(t.CurrentSceneID)
	default:
		return state.None
	}
}

func truthy(x any) bool {
	switch x.(type) {
	case *state.Character, *state.GameState:
		return true
	}
	return toValue(x).Truthy()
}

// EvalExpr evaluates expression source to a Value.
func EvalExpr(src string, ctx *Context) (state.Value, error) {
	node, err := parseExpr(src)
	if err != nil {
		return state.None, renderErrf("%v", err)
	}
	out, err := evalExpr(node, ctx)
	if err != nil {
		return state.None, err
	}
	return toValue(out), nil
}

// EvalCondition evaluates a choice visibility or branch-goto condition,
// with player stat names bound at top level.
func EvalCondition(src string, ctx *Context) (bool, error) {
	node, err := parseExpr(src)
	if err != nil {
		return false, renderErrf("%v", err)
	}
	out, err := evalExpr(node, ctx.ForCondition())
	if err != nil {
		return false, err
	}
	return truthy(out), nil
}

// evalBool evaluates a block condition on the plain context. Bare stat
// names stay unbound here; only choice conditions get that shorthand.
func evalBool(src string, ctx *Context) (bool, error) {
	node, err := parseExpr(src)
	if err != nil {
		return false, renderErrf("%v", err)
	}
	out, err := evalExpr(node, ctx)
	if err != nil {
		return false, err
	}
	return truthy(out), nil
}
