package condition

import (
	"fmt"
	"slices"
	"strconv"
)

// Expr is a compiled condition.
type Expr struct {
	text string
	root node
	vars []string
}

// String returns the source text.
func (e *Expr) String() string { return e.text }

// Variables returns the identifiers referenced by the expression.
func (e *Expr) Variables() []string { return slices.Clone(e.vars) }

// Eval evaluates the expression. Every referenced variable must be present
// in vars as a number or a bool, and the result must be a bool.
func (e *Expr) Eval(vars map[string]any) (bool, error) {
	v, err := e.root.eval(vars)
	if err != nil {
		return false, fmt.Errorf("condition %q: %w", e.text, err)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q: result is %v, not a boolean", e.text, v)
	}
	return b, nil
}

// Compile parses text and checks every identifier against allowed.
func Compile(text string, allowed []string) (*Expr, error) {
	tokens, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{text: text, tokens: tokens, allowed: allowed}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &SyntaxError{Text: text, Pos: tok.pos, Msg: fmt.Sprintf("unexpected %q", tok.text)}
	}
	return &Expr{text: text, root: root, vars: p.seen}, nil
}

type parser struct {
	text    string
	tokens  []token
	pos     int
	allowed []string
	seen    []string
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return &SyntaxError{Text: p.text, Pos: tok.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = logicalNode{or: true, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = logicalNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.peek().kind == tokNot {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{operand: operand}, nil
	}
	return p.parseCmp()
}

func (p *parser) parseCmp() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokOp {
		return left, nil
	}
	op := p.next().text
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if p.peek().kind == tokOp {
		return nil, p.errorf(p.peek(), "chained comparison is not supported")
	}
	return cmpNode{op: op, left: left, right: right}, nil
}

func (p *parser) parseOperand() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, p.errorf(tok, "invalid number %q", tok.text)
		}
		return literalNode{value: f}, nil
	case tokTrue:
		return literalNode{value: true}, nil
	case tokFalse:
		return literalNode{value: false}, nil
	case tokIdent:
		if !slices.Contains(p.allowed, tok.text) {
			return nil, p.errorf(tok, "unknown variable %q", tok.text)
		}
		if !slices.Contains(p.seen, tok.text) {
			p.seen = append(p.seen, tok.text)
		}
		return identNode{name: tok.text}, nil
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, p.errorf(closing, "expected \")\"")
		}
		return inner, nil
	case tokEOF:
		return nil, p.errorf(tok, "unexpected end of condition")
	}
	return nil, p.errorf(tok, "unexpected %q", tok.text)
}

type node interface {
	eval(vars map[string]any) (any, error)
}

type literalNode struct{ value any }

func (n literalNode) eval(map[string]any) (any, error) { return n.value, nil }

type identNode struct{ name string }

func (n identNode) eval(vars map[string]any) (any, error) {
	v, ok := vars[n.name]
	if !ok {
		return nil, fmt.Errorf("undefined variable %q", n.name)
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int32:
		return float64(t), nil
	}
	return nil, fmt.Errorf("variable %q has unsupported type %T", n.name, v)
}

type notNode struct{ operand node }

func (n notNode) eval(vars map[string]any) (any, error) {
	v, err := n.operand.eval(vars)
	if err != nil {
		return nil, err
	}
	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("not applied to non-boolean %v", v)
	}
	return !b, nil
}

type logicalNode struct {
	or          bool
	left, right node
}

func (n logicalNode) eval(vars map[string]any) (any, error) {
	l, err := evalBool(n.left, vars)
	if err != nil {
		return nil, err
	}
	if n.or && l {
		return true, nil
	}
	if !n.or && !l {
		return false, nil
	}
	return evalBool(n.right, vars)
}

func evalBool(n node, vars map[string]any) (bool, error) {
	v, err := n.eval(vars)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expected boolean operand, got %v", v)
	}
	return b, nil
}

type cmpNode struct {
	op          string
	left, right node
}

func (n cmpNode) eval(vars map[string]any) (any, error) {
	l, err := n.left.eval(vars)
	if err != nil {
		return nil, err
	}
	r, err := n.right.eval(vars)
	if err != nil {
		return nil, err
	}

	switch lv := l.(type) {
	case float64:
		rv, ok := r.(float64)
		if !ok {
			return nil, fmt.Errorf("cannot compare number with %v", r)
		}
		switch n.op {
		case "==":
			return lv == rv, nil
		case "!=":
			return lv != rv, nil
		case "<":
			return lv < rv, nil
		case "<=":
			return lv <= rv, nil
		case ">":
			return lv > rv, nil
		case ">=":
			return lv >= rv, nil
		}
	case bool:
		rv, ok := r.(bool)
		if !ok {
			return nil, fmt.Errorf("cannot compare boolean with %v", r)
		}
		switch n.op {
		case "==":
			return lv == rv, nil
		case "!=":
			return lv != rv, nil
		}
		return nil, fmt.Errorf("operator %s is not defined on booleans", n.op)
	}
	return nil, fmt.Errorf("unsupported operand %v", l)
}
