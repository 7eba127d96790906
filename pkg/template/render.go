// Package template parses and evaluates {{...}} and {%...%} constructs
// against live game state, and surfaces @goto auto-transition directives.
package template

import (
	"strings"

	"github.com/tadventure/engine/pkg/state"
)

// AutoGoto is an @goto directive reached during rendering. The first one
// on the taken branch path wins; rendering stops there.
type AutoGoto struct {
	SceneID string
	Text    string
}

// Result is the outcome of one render pass.
type Result struct {
	Text string
	Goto *AutoGoto
}

// Render processes raw scene content against the context. Rendering the
// same content with an unchanged context is deterministic.
func Render(raw string, ctx *Context) (*Result, error) {
	nodes, err := parseTemplate(raw)
	if err != nil {
		return nil, err
	}
	r := &renderer{ctx: ctx}
	if err := r.walk(nodes); err != nil {
		return nil, err
	}
	return &Result{Text: r.out.String(), Goto: r.autoGoto}, nil
}

// RenderInline renders template text that cannot carry directives, such as
// choice labels.
func RenderInline(raw string, ctx *Context) (string, error) {
	res, err := Render(raw, ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text), nil
}

// template node tree

type node interface{ node() }

type textNode struct{ text string }

type tagNode struct{ content string }

type condBranch struct {
	cond string
	body []node
}

type condNode struct {
	branches []condBranch
	elseBody []node
}

func (textNode) node() {}
func (tagNode) node()  {}
func (condNode) node() {}

// rawTag is one lexed span: literal text or a {{...}} / {%...%} tag.
type rawTag struct {
	kind    int // 0 literal, 1 expr, 2 stmt
	content string
}

const (
	spanText = iota
	spanExpr
	spanStmt
)

// lexTemplate splits raw content into literal and tag spans. An opener
// without its closer is fatal.
func lexTemplate(raw string) ([]rawTag, error) {
	var spans []rawTag
	for len(raw) > 0 {
		exprIdx := strings.Index(raw, "{{")
		stmtIdx := strings.Index(raw, "{%")
		idx, open, close_ := -1, "", ""
		switch {
		case exprIdx >= 0 && (stmtIdx < 0 || exprIdx < stmtIdx):
			idx, open, close_ = exprIdx, "{{", "}}"
		case stmtIdx >= 0:
			idx, open, close_ = stmtIdx, "{%", "%}"
		}
		if idx < 0 {
			spans = append(spans, rawTag{kind: spanText, content: raw})
			break
		}
		if idx > 0 {
			spans = append(spans, rawTag{kind: spanText, content: raw[:idx]})
		}
		raw = raw[idx+2:]
		end := strings.Index(raw, close_)
		if end < 0 {
			return nil, renderErrf("unbalanced %s tag", open)
		}
		kind := spanExpr
		if open == "{%" {
			kind = spanStmt
		}
		spans = append(spans, rawTag{kind: kind, content: strings.TrimSpace(raw[:end])})
		raw = raw[end+2:]
	}
	return spans, nil
}

// parseTemplate builds the node tree, nesting if/elif/else/endif blocks.
func parseTemplate(raw string) ([]node, error) {
	spans, err := lexTemplate(raw)
	if err != nil {
		return nil, err
	}
	p := &templateParser{spans: spans}
	return p.parseNodes(false)
}

type templateParser struct {
	spans []rawTag
	i     int
}

// parseNodes consumes spans until EOF or, inside a block, until a
// terminating stmt (elif/else/endif) which is left for the caller.
func (p *templateParser) parseNodes(inBlock bool) ([]node, error) {
	var nodes []node
	for p.i < len(p.spans) {
		span := p.spans[p.i]
		switch span.kind {
		case spanText:
			nodes = append(nodes, textNode{text: span.content})
			p.i++
		case spanExpr:
			nodes = append(nodes, tagNode{content: span.content})
			p.i++
		case spanStmt:
			word, rest, _ := strings.Cut(span.content, " ")
			switch word {
			case "if":
				p.i++
				cond, err := p.parseCond(strings.TrimSpace(rest))
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, cond)
			case "elif", "else", "endif":
				if !inBlock {
					return nil, renderErrf("{%% %s %%} without matching if", word)
				}
				return nodes, nil
			default:
				return nil, renderErrf("unknown block statement %q", span.content)
			}
		}
	}
	if inBlock {
		return nil, renderErrf("missing {%% endif %%}")
	}
	return nodes, nil
}

func (p *templateParser) parseCond(firstCond string) (node, error) {
	if firstCond == "" {
		return nil, renderErrf("if block has no condition")
	}
	cond := condNode{}
	current := firstCond
	for {
		body, err := p.parseNodes(true)
		if err != nil {
			return nil, err
		}
		if p.i >= len(p.spans) {
			return nil, renderErrf("missing {%% endif %%}")
		}
		word, rest, _ := strings.Cut(p.spans[p.i].content, " ")
		switch word {
		case "elif":
			cond.branches = append(cond.branches, condBranch{cond: current, body: body})
			current = strings.TrimSpace(rest)
			if current == "" {
				return nil, renderErrf("elif has no condition")
			}
			p.i++
		case "else":
			cond.branches = append(cond.branches, condBranch{cond: current, body: body})
			p.i++
			elseBody, err := p.parseNodes(true)
			if err != nil {
				return nil, err
			}
			if p.i >= len(p.spans) || !strings.HasPrefix(p.spans[p.i].content, "endif") {
				return nil, renderErrf("missing {%% endif %%}")
			}
			p.i++
			cond.elseBody = elseBody
			return cond, nil
		case "endif":
			cond.branches = append(cond.branches, condBranch{cond: current, body: body})
			p.i++
			return cond, nil
		default:
			return nil, renderErrf("unexpected statement %q inside conditional", p.spans[p.i].content)
		}
	}
}

// renderer walks the node tree, writing output until done or an @goto
// directive short-circuits the pass.
type renderer struct {
	ctx      *Context
	out      strings.Builder
	autoGoto *AutoGoto
}

func (r *renderer) walk(nodes []node) error {
	for _, n := range nodes {
		if r.autoGoto != nil {
			return nil
		}
		switch t := n.(type) {
		case textNode:
			if err := r.writeText(t.text); err != nil {
				return err
			}
		case tagNode:
			out, err := renderTag(t.content, r.ctx)
			if err != nil {
				return err
			}
			r.out.WriteString(out)
		case condNode:
			if err := r.walkCond(t); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *renderer) walkCond(c condNode) error {
	for _, br := range c.branches {
		ok, err := evalBool(br.cond, r.ctx)
		if err != nil {
			return err
		}
		if ok {
			return r.walk(br.body)
		}
	}
	return r.walk(c.elseBody)
}

// writeText emits literal text, intercepting @goto directive lines. The
// directive line itself is dropped from output, and everything after it in
// the pass is skipped: the directive signals end-of-scene.
func (r *renderer) writeText(text string) error {
	rest := text
	for rest != "" {
		line := rest
		nl := strings.Index(rest, "\n")
		if nl >= 0 {
			line = rest[:nl]
			rest = rest[nl+1:]
		} else {
			rest = ""
		}
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "@goto:") {
			directive := strings.TrimSpace(strings.TrimPrefix(trimmed, "@goto:"))
			target, txt, _ := strings.Cut(directive, " ")
			if target == "" {
				return renderErrf("@goto directive missing a scene id")
			}
			r.autoGoto = &AutoGoto{SceneID: target, Text: strings.TrimSpace(txt)}
			return nil
		}
		r.out.WriteString(line)
		if nl >= 0 {
			r.out.WriteByte('\n')
		}
	}
	return nil
}

// renderTag evaluates one {{...}} tag: a descriptor form, or an expression
// with an optional format spec.
func renderTag(content string, ctx *Context) (string, error) {
	if strings.HasPrefix(content, "describe:") {
		return renderDescribeTag(strings.TrimPrefix(content, "describe:"), ctx)
	}
	if strings.HasPrefix(content, "get_body_desc:") {
		return renderAxisTag("body", strings.TrimPrefix(content, "get_body_desc:"), ctx)
	}
	if strings.HasPrefix(content, "get_energy_desc:") {
		return renderAxisTag("energy", strings.TrimPrefix(content, "get_energy_desc:"), ctx)
	}

	expr, spec := content, ""
	if idx := strings.LastIndex(content, ":"); idx >= 0 && isFormatSpec(content[idx+1:]) {
		expr, spec = strings.TrimSpace(content[:idx]), content[idx+1:]
	}
	v, err := EvalExpr(expr, ctx)
	if err != nil {
		return "", err
	}
	if spec != "" {
		return applyFormat(v, spec)
	}
	if v.IsNone() {
		return "", nil
	}
	return v.String(), nil
}

func renderDescribeTag(rest string, ctx *Context) (string, error) {
	parts := strings.Split(rest, ":")
	args := make([]any, 0, 3)
	for _, p := range parts {
		args = append(args, state.String(strings.TrimSpace(p)))
	}
	out, err := callDescribe(args, ctx)
	if err != nil {
		return "", err
	}
	return toValue(out).Str(), nil
}

func renderAxisTag(axis, rest string, ctx *Context) (string, error) {
	parts := strings.Split(rest, ":")
	args := make([]any, 0, 2)
	for _, p := range parts {
		args = append(args, state.String(strings.TrimSpace(p)))
	}
	out, err := callAxisDesc(axis, args, ctx)
	if err != nil {
		return "", err
	}
	return toValue(out).Str(), nil
}
