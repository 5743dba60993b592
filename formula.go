package gridcalc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// tokenType represents the kinds of tokens in formula text
type tokenType int

const (
	tokEOF tokenType = iota
	tokNumber
	tokString
	tokBool
	tokCell
	tokRemoteCell
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
)

// character classification constants. slightly easier to read.
const (
	charQuote    = '"'
	charPercent  = '%'
	charAmper    = '&'
	charLParen   = '('
	charRParen   = ')'
	charAsterisk = '*'
	charPlus     = '+'
	charComma    = ','
	charMinus    = '-'
	charPeriod   = '.'
	charSlash    = '/'
	charLess     = '<'
	charEqual    = '='
	charGreater  = '>'
	charCaret    = '^'
	charExclaim  = '!'
)

type token struct {
	typ  tokenType
	text string  // operator text, identifier, string payload, grid name
	num  float64 // for tokNumber
	boo  bool    // for tokBool
	cell CellID  // for tokCell and tokRemoteCell
}

// scanner splits formula text into tokens
type scanner struct {
	src string
	pos int
}

func (sc *scanner) scan() ([]token, error) {
	var tokens []token
	for {
		tok, err := sc.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.typ == tokEOF {
			return tokens, nil
		}
	}
}

func (sc *scanner) next() (token, error) {
	for sc.pos < len(sc.src) && (sc.src[sc.pos] == ' ' || sc.src[sc.pos] == '\t') {
		sc.pos++
	}
	if sc.pos >= len(sc.src) {
		return token{typ: tokEOF}, nil
	}

	c := sc.src[sc.pos]
	switch {
	case c >= '0' && c <= '9' || c == charPeriod:
		return sc.scanNumber()
	case c == charQuote:
		return sc.scanString()
	case isLetter(c) || c == '_':
		return sc.scanWord()
	}

	sc.pos++
	switch c {
	case charLParen:
		return token{typ: tokLParen}, nil
	case charRParen:
		return token{typ: tokRParen}, nil
	case charComma:
		return token{typ: tokComma}, nil
	case charPlus, charMinus, charAsterisk, charSlash, charCaret, charAmper, charEqual, charPercent:
		return token{typ: tokOp, text: string(c)}, nil
	case charLess:
		if sc.pos < len(sc.src) && sc.src[sc.pos] == charEqual {
			sc.pos++
			return token{typ: tokOp, text: "<="}, nil
		}
		if sc.pos < len(sc.src) && sc.src[sc.pos] == charGreater {
			sc.pos++
			return token{typ: tokOp, text: "<>"}, nil
		}
		return token{typ: tokOp, text: "<"}, nil
	case charGreater:
		if sc.pos < len(sc.src) && sc.src[sc.pos] == charEqual {
			sc.pos++
			return token{typ: tokOp, text: ">="}, nil
		}
		return token{typ: tokOp, text: ">"}, nil
	}
	return token{}, fmt.Errorf("unexpected character %q at position %d", c, sc.pos-1)
}

func (sc *scanner) scanNumber() (token, error) {
	start := sc.pos
	seenDot := false
	for sc.pos < len(sc.src) {
		c := sc.src[sc.pos]
		if c == charPeriod {
			if seenDot {
				break
			}
			seenDot = true
			sc.pos++
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		sc.pos++
	}
	text := sc.src[start:sc.pos]
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, fmt.Errorf("invalid number %q", text)
	}
	return token{typ: tokNumber, num: n}, nil
}

func (sc *scanner) scanString() (token, error) {
	sc.pos++ // opening quote
	start := sc.pos
	for sc.pos < len(sc.src) && sc.src[sc.pos] != charQuote {
		sc.pos++
	}
	if sc.pos >= len(sc.src) {
		return token{}, fmt.Errorf("unterminated string literal")
	}
	text := sc.src[start:sc.pos]
	sc.pos++ // closing quote
	return token{typ: tokString, text: text}, nil
}

// scanWord handles cell references, grid-qualified references, booleans,
// and function names, which all start with a letter
func (sc *scanner) scanWord() (token, error) {
	start := sc.pos
	for sc.pos < len(sc.src) {
		c := sc.src[sc.pos]
		if !isLetter(c) && !(c >= '0' && c <= '9') && c != '_' {
			break
		}
		sc.pos++
	}
	word := sc.src[start:sc.pos]

	// grid-qualified reference: Name!A1
	if sc.pos < len(sc.src) && sc.src[sc.pos] == charExclaim {
		sc.pos++
		refStart := sc.pos
		for sc.pos < len(sc.src) {
			c := sc.src[sc.pos]
			if !isLetter(c) && !(c >= '0' && c <= '9') {
				break
			}
			sc.pos++
		}
		ref := sc.src[refStart:sc.pos]
		if !isCellRef(ref) {
			return token{}, fmt.Errorf("invalid cell reference after grid name %q", word)
		}
		return token{typ: tokRemoteCell, text: word, cell: CellID(ref)}, nil
	}

	switch strings.ToUpper(word) {
	case "TRUE":
		return token{typ: tokBool, boo: true}, nil
	case "FALSE":
		return token{typ: tokBool, boo: false}, nil
	}

	if isCellRef(word) {
		return token{typ: tokCell, cell: CellID(word)}, nil
	}

	return token{typ: tokIdent, text: strings.ToUpper(word)}, nil
}

func isLetter(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z'
}

// isCellRef reports whether the word is uppercase column letters
// followed by a 1-based row number
func isCellRef(word string) bool {
	i := 0
	for i < len(word) && word[i] >= 'A' && word[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(word) {
		return false
	}
	for j := i; j < len(word); j++ {
		if word[j] < '0' || word[j] > '9' {
			return false
		}
	}
	return word[i] != '0'
}

// exprNode is one node of a parsed formula
type exprNode interface {
	eval(g *Grid) (CellValue, error)
	walkRefs(visit func(node exprNode))
}

type numberNode struct{ value float64 }

func (n *numberNode) eval(g *Grid) (CellValue, error) { return Number(n.value), nil }
func (n *numberNode) walkRefs(visit func(exprNode))   { visit(n) }

type stringNode struct{ value string }

func (n *stringNode) eval(g *Grid) (CellValue, error) { return Text(n.value), nil }
func (n *stringNode) walkRefs(visit func(exprNode))   { visit(n) }

type boolNode struct{ value bool }

func (n *boolNode) eval(g *Grid) (CellValue, error) { return Bool(n.value), nil }
func (n *boolNode) walkRefs(visit func(exprNode))   { visit(n) }

type cellRefNode struct {
	id  CellID
	row int
	col int
}

func (n *cellRefNode) eval(g *Grid) (CellValue, error) {
	if !g.store.InRange(n.row, n.col) {
		return Empty(), fmt.Errorf("reference %s is outside the grid", n.id)
	}
	return g.valueForEval(n.row, n.col), nil
}

func (n *cellRefNode) walkRefs(visit func(exprNode)) { visit(n) }

type remoteRefNode struct {
	grid string
	cell CellID
	row  int
	col  int
}

func (n *remoteRefNode) eval(g *Grid) (CellValue, error) {
	if g.ctx == nil {
		return Empty(), fmt.Errorf("no context attached for reference %s!%s", n.grid, n.cell)
	}
	remote := g.ctx.GridByName(n.grid)
	if remote == nil {
		return Empty(), fmt.Errorf("unknown grid %q", n.grid)
	}
	if !remote.store.InRange(n.row, n.col) {
		return Empty(), fmt.Errorf("reference %s!%s is outside the grid", n.grid, n.cell)
	}
	return remote.valueForEval(n.row, n.col), nil
}

func (n *remoteRefNode) walkRefs(visit func(exprNode)) { visit(n) }

type unaryNode struct {
	op      string // "-", "+", "%"
	operand exprNode
}

func (n *unaryNode) eval(g *Grid) (CellValue, error) {
	v, err := n.operand.eval(g)
	if err != nil {
		return Empty(), err
	}
	f, err := toNumber(v)
	if err != nil {
		return Empty(), err
	}
	switch n.op {
	case "-":
		return Number(-f), nil
	case "%":
		return Number(f / 100), nil
	}
	return Number(f), nil
}

func (n *unaryNode) walkRefs(visit func(exprNode)) {
	visit(n)
	n.operand.walkRefs(visit)
}

type binaryNode struct {
	op    string
	left  exprNode
	right exprNode
}

func (n *binaryNode) eval(g *Grid) (CellValue, error) {
	left, err := n.left.eval(g)
	if err != nil {
		return Empty(), err
	}
	right, err := n.right.eval(g)
	if err != nil {
		return Empty(), err
	}

	switch n.op {
	case "&":
		return Text(Format(left) + Format(right)), nil
	case "=", "<>", "<", "<=", ">", ">=":
		return compareValues(n.op, left, right)
	}

	a, err := toNumber(left)
	if err != nil {
		return Empty(), err
	}
	b, err := toNumber(right)
	if err != nil {
		return Empty(), err
	}
	switch n.op {
	case "+":
		return Number(a + b), nil
	case "-":
		return Number(a - b), nil
	case "*":
		return Number(a * b), nil
	case "/":
		// IEEE division: x/0 is infinity, 0/0 is NaN. both are value
		// classifications for the formatter, not faults.
		return Number(a / b), nil
	case "^":
		return Number(math.Pow(a, b)), nil
	}
	return Empty(), fmt.Errorf("unknown operator %q", n.op)
}

func (n *binaryNode) walkRefs(visit func(exprNode)) {
	visit(n)
	n.left.walkRefs(visit)
	n.right.walkRefs(visit)
}

type callNode struct {
	name string
	args []exprNode
}

func (n *callNode) eval(g *Grid) (CellValue, error) {
	fn, ok := builtinFunctions[n.name]
	if !ok {
		return Empty(), fmt.Errorf("unknown function %q", n.name)
	}
	args := make([]CellValue, len(n.args))
	for i, arg := range n.args {
		v, err := arg.eval(g)
		if err != nil {
			return Empty(), err
		}
		args[i] = v
	}
	return fn(args)
}

func (n *callNode) walkRefs(visit func(exprNode)) {
	visit(n)
	for _, arg := range n.args {
		arg.walkRefs(visit)
	}
}

// toNumber coerces a value to float64 for arithmetic. error values
// propagate as faults so formulas reading a faulted cell fault too.
func toNumber(v CellValue) (float64, error) {
	switch v.Kind {
	case KindEmpty:
		return 0, nil
	case KindNumber:
		return v.Number, nil
	case KindBool:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	case KindText:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot use %q as a number", v.Text)
		}
		return n, nil
	case KindError:
		return 0, fmt.Errorf("referenced cell has error: %s", v.Err.Error())
	}
	return 0, fmt.Errorf("cannot use value as a number")
}

func compareValues(op string, left, right CellValue) (CellValue, error) {
	var cmp int
	if left.Kind == KindNumber || right.Kind == KindNumber {
		a, err := toNumber(left)
		if err != nil {
			return Empty(), err
		}
		b, err := toNumber(right)
		if err != nil {
			return Empty(), err
		}
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	} else {
		a, b := Format(left), Format(right)
		cmp = strings.Compare(a, b)
	}

	switch op {
	case "=":
		return Bool(cmp == 0), nil
	case "<>":
		return Bool(cmp != 0), nil
	case "<":
		return Bool(cmp < 0), nil
	case "<=":
		return Bool(cmp <= 0), nil
	case ">":
		return Bool(cmp > 0), nil
	case ">=":
		return Bool(cmp >= 0), nil
	}
	return Empty(), fmt.Errorf("unknown comparison %q", op)
}

// builtinFunctions dispatches function calls by uppercase name
var builtinFunctions = map[string]func(args []CellValue) (CellValue, error){
	"ABS": func(args []CellValue) (CellValue, error) {
		if len(args) != 1 {
			return Empty(), fmt.Errorf("ABS expects 1 argument")
		}
		f, err := toNumber(args[0])
		if err != nil {
			return Empty(), err
		}
		return Number(math.Abs(f)), nil
	},
	"SUM": func(args []CellValue) (CellValue, error) {
		total := 0.0
		for _, a := range args {
			f, err := toNumber(a)
			if err != nil {
				return Empty(), err
			}
			total += f
		}
		return Number(total), nil
	},
	"MIN": func(args []CellValue) (CellValue, error) {
		return foldNumbers(args, "MIN", math.Min)
	},
	"MAX": func(args []CellValue) (CellValue, error) {
		return foldNumbers(args, "MAX", math.Max)
	},
	"IF": func(args []CellValue) (CellValue, error) {
		if len(args) != 3 {
			return Empty(), fmt.Errorf("IF expects 3 arguments")
		}
		cond, err := toNumber(args[0])
		if err != nil {
			return Empty(), err
		}
		if cond != 0 {
			return args[1], nil
		}
		return args[2], nil
	},
	"CONCATENATE": func(args []CellValue) (CellValue, error) {
		var sb strings.Builder
		for _, a := range args {
			sb.WriteString(Format(a))
		}
		return Text(sb.String()), nil
	},
}

func foldNumbers(args []CellValue, name string, fold func(a, b float64) float64) (CellValue, error) {
	if len(args) == 0 {
		return Empty(), fmt.Errorf("%s expects at least 1 argument", name)
	}
	acc, err := toNumber(args[0])
	if err != nil {
		return Empty(), err
	}
	for _, a := range args[1:] {
		f, err := toNumber(a)
		if err != nil {
			return Empty(), err
		}
		acc = fold(acc, f)
	}
	return Number(acc), nil
}

// parser turns a token stream into an expression tree using precedence
// climbing
type parser struct {
	tokens []token
	pos    int
}

// binaryPrecedence returns the binding power of a binary operator, or 0
// if the token is not a binary operator. '^' is right-associative.
func binaryPrecedence(op string) int {
	switch op {
	case "=", "<>", "<", "<=", ">", ">=":
		return 1
	case "&":
		return 2
	case "+", "-":
		return 3
	case "*", "/":
		return 4
	case "^":
		return 5
	}
	return 0
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) parseExpression(minPrec int) (exprNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		if tok.typ != tokOp {
			return left, nil
		}
		// postfix percent binds tighter than any binary operator
		if tok.text == "%" {
			p.advance()
			left = &unaryNode{op: "%", operand: left}
			continue
		}
		prec := binaryPrecedence(tok.text)
		if prec == 0 || prec < minPrec {
			return left, nil
		}
		p.advance()

		nextMin := prec + 1
		if tok.text == "^" {
			nextMin = prec // right-associative
		}
		right, err := p.parseExpression(nextMin)
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: tok.text, left: left, right: right}
	}
}

func (p *parser) parseUnary() (exprNode, error) {
	tok := p.peek()
	if tok.typ == tokOp && (tok.text == "-" || tok.text == "+") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: tok.text, operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (exprNode, error) {
	tok := p.advance()
	switch tok.typ {
	case tokNumber:
		return &numberNode{value: tok.num}, nil

	case tokString:
		return &stringNode{value: tok.text}, nil

	case tokBool:
		return &boolNode{value: tok.boo}, nil

	case tokCell:
		row, col, err := PositionOf(tok.cell)
		if err != nil {
			return nil, err
		}
		return &cellRefNode{id: tok.cell, row: row, col: col}, nil

	case tokRemoteCell:
		row, col, err := PositionOf(tok.cell)
		if err != nil {
			return nil, err
		}
		return &remoteRefNode{grid: tok.text, cell: tok.cell, row: row, col: col}, nil

	case tokIdent:
		if p.peek().typ != tokLParen {
			return nil, fmt.Errorf("unexpected identifier %q", tok.text)
		}
		p.advance() // consume (
		var args []exprNode
		if p.peek().typ == tokRParen {
			p.advance()
			return &callNode{name: tok.text}, nil
		}
		for {
			arg, err := p.parseExpression(1)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			next := p.advance()
			if next.typ == tokRParen {
				return &callNode{name: tok.text, args: args}, nil
			}
			if next.typ != tokComma {
				return nil, fmt.Errorf("expected ',' or ')' in arguments of %s", tok.text)
			}
		}

	case tokLParen:
		inner, err := p.parseExpression(1)
		if err != nil {
			return nil, err
		}
		if closing := p.advance(); closing.typ != tokRParen {
			return nil, fmt.Errorf("expected ')'")
		}
		return inner, nil
	}
	return nil, fmt.Errorf("unexpected token in formula")
}

// compiledFormula is the default Expression implementation. references
// are enumerated once at compile time.
type compiledFormula struct {
	root       exprNode
	localRefs  []CellID
	remoteRefs []RemoteRef
}

func (f *compiledFormula) Eval(g *Grid) (CellValue, error) {
	return f.root.eval(g)
}

func (f *compiledFormula) CellRefs() []CellID {
	return f.localRefs
}

func (f *compiledFormula) RemoteRefs() []RemoteRef {
	return f.remoteRefs
}

// FormulaCompiler is the default Compiler for the engine's formula
// dialect: literals, A1 references, Grid!A1 references, arithmetic,
// concatenation, comparisons, and a small set of functions.
type FormulaCompiler struct{}

// NewFormulaCompiler creates the default compiler
func NewFormulaCompiler() *FormulaCompiler {
	return &FormulaCompiler{}
}

// Compile parses formula text (marker already stripped) into an
// expression
func (c *FormulaCompiler) Compile(text string) (Expression, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty formula")
	}
	sc := &scanner{src: text}
	tokens, err := sc.scan()
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseExpression(1)
	if err != nil {
		return nil, err
	}
	if p.peek().typ != tokEOF {
		return nil, fmt.Errorf("unexpected trailing input in formula")
	}

	formula := &compiledFormula{root: root}
	seenLocal := make(map[CellID]struct{})
	seenRemote := make(map[RemoteRef]struct{})
	root.walkRefs(func(node exprNode) {
		switch n := node.(type) {
		case *cellRefNode:
			if _, ok := seenLocal[n.id]; !ok {
				seenLocal[n.id] = struct{}{}
				formula.localRefs = append(formula.localRefs, n.id)
			}
		case *remoteRefNode:
			ref := RemoteRef{Grid: n.grid, Cell: n.cell}
			if _, ok := seenRemote[ref]; !ok {
				seenRemote[ref] = struct{}{}
				formula.remoteRefs = append(formula.remoteRefs, ref)
			}
		}
	})
	return formula, nil
}
