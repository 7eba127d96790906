package template

import (
	"fmt"
	"strconv"
	"unicode"

	"github.com/tadventure/engine/pkg/state"
)

// The expression language embedded in {{...}} tags and conditions. It is
// self-contained: literals, dotted identifier chains, a fixed built-in
// function set, comparisons, boolean and arithmetic operators.
//
// Precedence, loosest first: or, and, not, comparisons, + -, * /, unary.

type tokKind int

const (
	tokEOF tokKind = iota
	tokNumber
	tokString
	tokIdent
	tokOp     // < <= > >= == != + - * / = ( ) , .
	tokKeyword // and or not True False None
)

type token struct {
	kind tokKind
	text string
	pos  int
}

type exprLexer struct {
	src  string
	pos  int
	toks []token
}

func lexExpr(src string) ([]token, error) {
	lx := &exprLexer{src: src}
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			lx.pos++
		case c >= '0' && c <= '9':
			lx.lexNumber()
		case c == '\'' || c == '"':
			if err := lx.lexString(c); err != nil {
				return nil, err
			}
		case isIdentStart(rune(c)):
			lx.lexIdent()
		default:
			if err := lx.lexOp(); err != nil {
				return nil, err
			}
		}
	}
	lx.toks = append(lx.toks, token{kind: tokEOF, pos: len(src)})
	return lx.toks, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (lx *exprLexer) lexNumber() {
	start := lx.pos
	for lx.pos < len(lx.src) && (lx.src[lx.pos] >= '0' && lx.src[lx.pos] <= '9' || lx.src[lx.pos] == '.') {
		lx.pos++
	}
	lx.toks = append(lx.toks, token{kind: tokNumber, text: lx.src[start:lx.pos], pos: start})
}

func (lx *exprLexer) lexString(quote byte) error {
	start := lx.pos
	lx.pos++
	for lx.pos < len(lx.src) && lx.src[lx.pos] != quote {
		lx.pos++
	}
	if lx.pos >= len(lx.src) {
		return fmt.Errorf("unterminated string at offset %d", start)
	}
	lx.toks = append(lx.toks, token{kind: tokString, text: lx.src[start+1 : lx.pos], pos: start})
	lx.pos++
	return nil
}

func (lx *exprLexer) lexIdent() {
	start := lx.pos
	for lx.pos < len(lx.src) && isIdentPart(rune(lx.src[lx.pos])) {
		lx.pos++
	}
	text := lx.src[start:lx.pos]
	switch text {
	case "and", "or", "not", "True", "False", "None":
		lx.toks = append(lx.toks, token{kind: tokKeyword, text: text, pos: start})
	default:
		lx.toks = append(lx.toks, token{kind: tokIdent, text: text, pos: start})
	}
}

func (lx *exprLexer) lexOp() error {
	two := ""
	if lx.pos+1 < len(lx.src) {
		two = lx.src[lx.pos : lx.pos+2]
	}
	switch two {
	case "<=", ">=", "==", "!=":
		lx.toks = append(lx.toks, token{kind: tokOp, text: two, pos: lx.pos})
		lx.pos += 2
		return nil
	}
	c := lx.src[lx.pos]
	switch c {
	case '<', '>', '+', '-', '*', '/', '(', ')', ',', '.', '=':
		lx.toks = append(lx.toks, token{kind: tokOp, text: string(c), pos: lx.pos})
		lx.pos++
		return nil
	}
	return fmt.Errorf("unexpected character %q at offset %d", c, lx.pos)
}

// AST

type exprNode interface{ exprNode() }

type litNode struct{ val state.Value }
type identNode struct{ name string }
type attrNode struct {
	target exprNode
	name   string
}
type callNode struct {
	target exprNode // identNode or attrNode
	args   []exprNode
	kwargs map[string]exprNode
}
type binaryNode struct {
	op   string
	l, r exprNode
}
type unaryNode struct {
	op string
	x  exprNode
}

func (litNode) exprNode()    {}
func (identNode) exprNode()  {}
func (attrNode) exprNode()   {}
func (callNode) exprNode()   {}
func (binaryNode) exprNode() {}
func (unaryNode) exprNode()  {}

type exprParser struct {
	src  string
	toks []token
	i    int
}

// parseExpr compiles expression source into an AST.
func parseExpr(src string) (exprNode, error) {
	toks, err := lexExpr(src)
	if err != nil {
		return nil, err
	}
	p := &exprParser{src: src, toks: toks}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q in expression %q", p.cur().text, src)
	}
	return node, nil
}

func (p *exprParser) cur() token  { return p.toks[p.i] }
func (p *exprParser) next() token { t := p.toks[p.i]; p.i++; return t }

func (p *exprParser) accept(kind tokKind, text string) bool {
	if p.cur().kind == kind && p.cur().text == text {
		p.i++
		return true
	}
	return false
}

func (p *exprParser) parseOr() (exprNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept(tokKeyword, "or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: "or", l: left, r: right}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (exprNode, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.accept(tokKeyword, "and") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: "and", l: left, r: right}
	}
	return left, nil
}

func (p *exprParser) parseNot() (exprNode, error) {
	if p.accept(tokKeyword, "not") {
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: "not", x: x}, nil
	}
	return p.parseComparison()
}

func (p *exprParser) parseComparison() (exprNode, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		op := p.cur().text
		if p.cur().kind != tokOp {
			return left, nil
		}
		switch op {
		case "<", "<=", ">", ">=", "==", "!=":
			p.i++
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = binaryNode{op: op, l: left, r: right}
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseAdditive() (exprNode, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		if p.accept(tokOp, "+") {
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = binaryNode{op: "+", l: left, r: right}
		} else if p.accept(tokOp, "-") {
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = binaryNode{op: "-", l: left, r: right}
		} else {
			return left, nil
		}
	}
}

func (p *exprParser) parseMultiplicative() (exprNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		if p.accept(tokOp, "*") {
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = binaryNode{op: "*", l: left, r: right}
		} else if p.accept(tokOp, "/") {
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = binaryNode{op: "/", l: left, r: right}
		} else {
			return left, nil
		}
	}
}

func (p *exprParser) parseUnary() (exprNode, error) {
	if p.accept(tokOp, "-") {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: "-", x: x}, nil
	}
	return p.parsePostfix()
}

// parsePostfix handles primary expressions plus `.attr` chains and calls.
func (p *exprParser) parsePostfix() (exprNode, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		if p.accept(tokOp, ".") {
			t := p.next()
			if t.kind != tokIdent {
				return nil, fmt.Errorf("expected attribute name after '.' in %q", p.src)
			}
			node = attrNode{target: node, name: t.text}
			continue
		}
		if p.accept(tokOp, "(") {
			call := callNode{target: node}
			if !p.accept(tokOp, ")") {
				for {
					// kw=arg form is a lookahead on ident '='
					if p.cur().kind == tokIdent && p.toks[p.i+1].kind == tokOp && p.toks[p.i+1].text == "=" {
						name := p.next().text
						p.i++ // '='
						arg, err := p.parseOr()
						if err != nil {
							return nil, err
						}
						if call.kwargs == nil {
							call.kwargs = make(map[string]exprNode)
						}
						call.kwargs[name] = arg
					} else {
						arg, err := p.parseOr()
						if err != nil {
							return nil, err
						}
						call.args = append(call.args, arg)
					}
					if p.accept(tokOp, ",") {
						continue
					}
					if p.accept(tokOp, ")") {
						break
					}
					return nil, fmt.Errorf("expected ',' or ')' in call, got %q", p.cur().text)
				}
			}
			node = call
			continue
		}
		return node, nil
	}
}

func (p *exprParser) parsePrimary() (exprNode, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		n, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", t.text)
		}
		return litNode{val: state.Number(n)}, nil
	case tokString:
		return litNode{val: state.String(t.text)}, nil
	case tokIdent:
		return identNode{name: t.text}, nil
	case tokKeyword:
		switch t.text {
		case "True":
			return litNode{val: state.Bool(true)}, nil
		case "False":
			return litNode{val: state.Bool(false)}, nil
		case "None":
			return litNode{val: state.None}, nil
		}
	case tokOp:
		if t.text == "(" {
			node, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if !p.accept(tokOp, ")") {
				return nil, fmt.Errorf("missing ')' in %q", p.src)
			}
			return node, nil
		}
	}
	return nil, fmt.Errorf("unexpected %q in expression %q", t.text, p.src)
}

// qualifiedName flattens an ident/attr chain ("game.get_character") for
// method dispatch; empty when the target is not a plain chain.
func qualifiedName(n exprNode) string {
	switch t := n.(type) {
	case identNode:
		return t.name
	case attrNode:
		base := qualifiedName(t.target)
		if base == "" {
			return ""
		}
		return base + "." + t.name
	default:
		return ""
	}
}
