// Package parser turns script source into an ast.Script.
package parser

import (
	"fmt"
	"strconv"

	"github.com/mfelsche/tremor-runtime/internal/ast"
	"github.com/mfelsche/tremor-runtime/internal/diagnostics"
	"github.com/mfelsche/tremor-runtime/pkg/value"
)

type parserState struct {
	tokens  []token
	pos     int
	lastEnd int
	source  *diagnostics.Source
	meta    *[]ast.NodeMeta
}

// Parse parses a complete script. The error is always a
// *diagnostics.SyntaxError.
func Parse(src string) (*ast.Script, error) {
	source := diagnostics.NewSource(src)
	tokens, err := lex(src, source)
	if err != nil {
		return nil, err
	}
	if err := checkBalance(tokens, source); err != nil {
		return nil, err
	}

	meta := make([]ast.NodeMeta, 0, len(tokens))
	p := &parserState{tokens: tokens, source: source, meta: &meta}

	if p.current().typ == tokenEOF {
		return nil, diagnostics.Syntaxf(diagnostics.CodeEmptyProgram, source.Span(0, len(src)), "script is empty")
	}

	exprs, err := p.parseStatements()
	if err != nil {
		return nil, err
	}

	return &ast.Script{Exprs: exprs, Meta: meta, Source: src}, nil
}

// ParseExpr parses a single expression, used for host supplied snippets.
func ParseExpr(src string) (ast.Expr, *ast.Script, error) {
	script, err := Parse(src)
	if err != nil {
		return nil, nil, err
	}
	if len(script.Exprs) != 1 {
		return nil, nil, diagnostics.Syntaxf(diagnostics.CodeUnexpectedToken, diagnostics.NewSource(src).Span(0, len(src)), "expected a single expression")
	}
	return script.Exprs[0], script, nil
}

func (p *parserState) current() token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

func (p *parserState) peek(offset int) token {
	if p.pos+offset >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

func (p *parserState) advance() token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	p.lastEnd = tok.end
	return tok
}

func (p *parserState) at(types ...tokenType) bool {
	typ := p.current().typ
	for _, candidate := range types {
		if typ == candidate {
			return true
		}
	}
	return false
}

func (p *parserState) expect(typ tokenType, what string) (token, error) {
	if p.current().typ != typ {
		return token{}, p.unexpected(what)
	}
	return p.advance(), nil
}

// expectClosing reports a missing closing delimiter at its opening token.
func (p *parserState) expectClosing(typ tokenType, closing string, open token) error {
	if p.current().typ == typ {
		p.advance()
		return nil
	}
	if p.current().typ == tokenEOF {
		return diagnostics.Syntaxf(diagnostics.CodeUnbalanced, p.source.Span(open.start, open.end),
			"unclosed %q: expected %q before end of input", open.literal, closing)
	}
	return p.unexpected(fmt.Sprintf("%q to close %q at %s", closing, open.literal, p.source.Location(open.start).String()))
}

func (p *parserState) unexpected(what string) error {
	tok := p.current()
	if tok.typ == tokenEOF {
		return diagnostics.Syntaxf(diagnostics.CodeUnexpectedToken, p.source.Span(tok.start, tok.end), "unexpected end of input, expected %s", what)
	}
	return diagnostics.Syntaxf(diagnostics.CodeUnexpectedToken, p.source.Span(tok.start, tok.end), "unexpected %s, expected %s", describe(tok), what)
}

func describe(tok token) string {
	switch tok.typ {
	case tokenIdentifier:
		return fmt.Sprintf("identifier %q", tok.literal)
	case tokenInt, tokenFloat:
		return fmt.Sprintf("number %s", tok.literal)
	case tokenString:
		return "string"
	case tokenExtractor:
		return fmt.Sprintf("extractor %q", tok.literal)
	default:
		return fmt.Sprintf("%q", tok.literal)
	}
}

// node registers a metadata entry spanning from start to the end of the
// last consumed token.
func (p *parserState) node(start int, name string) ast.Node {
	id := ast.NodeID(len(*p.meta))
	*p.meta = append(*p.meta, ast.NodeMeta{Span: p.source.Span(start, p.lastEnd), Name: name})
	return ast.Node{ID: id}
}

func (p *parserState) parseStatements() ([]ast.Expr, error) {
	var exprs []ast.Expr
	for {
		expr, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)

		if p.at(tokenSemicolon) {
			p.advance()
			if p.at(tokenEOF) {
				return exprs, nil
			}
			continue
		}
		if p.at(tokenEOF) {
			return exprs, nil
		}
		return nil, p.unexpected("';'")
	}
}

func (p *parserState) parseStatement() (ast.Expr, error) {
	start := p.current().start
	switch p.current().typ {
	case tokenConst:
		p.advance()
		name, err := p.expect(tokenIdentifier, "constant name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokenAssign, "'='"); err != nil {
			return nil, err
		}
		rhs, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.Const{Node: p.node(start, name.literal), Name: name.literal, Value: rhs}, nil
	case tokenImport, tokenExport:
		typ := p.advance().typ
		names, err := p.parseNameList()
		if err != nil {
			return nil, err
		}
		if typ == tokenImport {
			return &ast.Import{Node: p.node(start, ""), Names: names}, nil
		}
		return &ast.Export{Node: p.node(start, ""), Names: names}, nil
	default:
		return p.parseExprStatement()
	}
}

func (p *parserState) parseNameList() ([]string, error) {
	var names []string
	for {
		name, err := p.expect(tokenIdentifier, "name")
		if err != nil {
			return nil, err
		}
		names = append(names, name.literal)
		if !p.at(tokenComma) {
			return names, nil
		}
		p.advance()
	}
}

// atTerminator reports whether the current token ends an expression
// statement, which makes the operand of emit/drop/return optional.
func (p *parserState) atTerminator() bool {
	return p.at(tokenSemicolon, tokenEOF, tokenEnd, tokenCase, tokenDefault, tokenArrow)
}

func (p *parserState) parseExprStatement() (ast.Expr, error) {
	start := p.current().start
	switch p.current().typ {
	case tokenLet:
		p.advance()
		target, err := p.parseAssignable()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokenAssign, "'='"); err != nil {
			return nil, err
		}
		rhs, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.Let{Node: p.node(start, target.Name), Target: target, Value: rhs}, nil
	case tokenEmit:
		p.advance()
		emit := &ast.Emit{}
		if !p.atTerminator() {
			emitted, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			emit.Value = emitted
		}
		if p.at(tokenArrow) {
			p.advance()
			port, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			emit.Port = port
		}
		emit.Node = p.node(start, "")
		return emit, nil
	case tokenDrop:
		p.advance()
		drop := &ast.Drop{}
		if !p.atTerminator() {
			reason, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			drop.Reason = reason
		}
		drop.Node = p.node(start, "")
		return drop, nil
	case tokenReturn:
		p.advance()
		ret := &ast.Return{}
		if !p.atTerminator() {
			returned, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			ret.Value = returned
		}
		ret.Node = p.node(start, "")
		return ret, nil
	default:
		return p.parseExpression()
	}
}

func (p *parserState) parseAssignable() (*ast.Path, error) {
	if !p.at(tokenEvent, tokenDollar, tokenIdentifier) {
		return nil, p.unexpected("assignment target (event, $ or a variable)")
	}
	expr, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	path, ok := expr.(*ast.Path)
	if !ok || path.Root == ast.RootExpr {
		return nil, p.unexpected("assignment target")
	}
	return path, nil
}

func (p *parserState) parseBody() ([]ast.Expr, error) {
	var body []ast.Expr
	for {
		expr, err := p.parseExprStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, expr)

		if !p.at(tokenSemicolon) {
			return body, nil
		}
		p.advance()
		if p.at(tokenCase, tokenDefault, tokenEnd) {
			return body, nil
		}
	}
}

func (p *parserState) parseExpression() (ast.Expr, error) {
	return p.parseBinary(0)
}

type binaryLevel map[tokenType]ast.BinOp

// binaryLevels lists operators from loosest to tightest binding.
var binaryLevels = []binaryLevel{
	{tokenOr: ast.OpOr},
	{tokenXor: ast.OpXor},
	{tokenAnd: ast.OpAnd},
	{tokenPipe: ast.OpBitOr},
	{tokenCaret: ast.OpBitXor},
	{tokenAmpersand: ast.OpBitAnd},
	{tokenEqual: ast.OpEq, tokenNotEqual: ast.OpNotEq},
	{tokenGreaterEqual: ast.OpGte, tokenGreater: ast.OpGt, tokenLessEqual: ast.OpLte, tokenLess: ast.OpLt},
	{tokenShiftRight: ast.OpShr, tokenShiftRightUnsigned: ast.OpUshr, tokenShiftLeft: ast.OpShl},
	{tokenPlus: ast.OpAdd, tokenMinus: ast.OpSub},
	{tokenStar: ast.OpMul, tokenSlash: ast.OpDiv, tokenPercent: ast.OpMod},
}

func (p *parserState) parseBinary(level int) (ast.Expr, error) {
	if level == len(binaryLevels) {
		return p.parseUnary()
	}

	start := p.current().start
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}

	for {
		op, ok := binaryLevels[level][p.current().typ]
		if !ok {
			return left, nil
		}
		p.advance()
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Node: p.node(start, ""), Op: op, Left: left, Right: right}
	}
}

func (p *parserState) parseUnary() (ast.Expr, error) {
	start := p.current().start
	var op ast.UnaryOp
	switch p.current().typ {
	case tokenNot:
		op = ast.OpNot
	case tokenBang:
		op = ast.OpBang
	case tokenMinus:
		op = ast.OpMinus
	case tokenPlus:
		op = ast.OpPlus
	default:
		return p.parsePostfix()
	}
	p.advance()

	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &ast.Unary{Node: p.node(start, ""), Op: op, Operand: operand}, nil
}

func (p *parserState) parsePostfix() (ast.Expr, error) {
	start := p.current().start
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.at(tokenDot, tokenLBracket) {
		segment, err := p.parseSegment()
		if err != nil {
			return nil, err
		}
		path, ok := expr.(*ast.Path)
		if !ok {
			path = &ast.Path{Root: ast.RootExpr, Base: expr}
		}
		path.Segments = append(path.Segments, segment)
		path.Node = p.node(start, path.Name)
		expr = path
	}
	return expr, nil
}

func (p *parserState) parseSegment() (*ast.Segment, error) {
	open := p.advance()
	start := open.start

	if open.typ == tokenDot {
		name := p.current()
		if name.typ != tokenIdentifier && !isKeyword(name.typ) {
			return nil, p.unexpected("field name after '.'")
		}
		p.advance()
		return &ast.Segment{Node: p.node(start, name.literal), Kind: ast.SegmentField, Field: name.literal}, nil
	}

	index, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	segment := &ast.Segment{Kind: ast.SegmentIndex, Index: index}
	if p.at(tokenColon) {
		p.advance()
		end, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		segment.Kind = ast.SegmentRange
		segment.End = end
	}
	if err := p.expectClosing(tokenRBracket, "]", open); err != nil {
		return nil, err
	}
	// A literal string index is a field access.
	if lit, ok := index.(*ast.Literal); ok && segment.Kind == ast.SegmentIndex {
		if s, ok := lit.Value.(value.String); ok {
			segment.Kind = ast.SegmentField
			segment.Field = string(s)
			segment.Index = nil
		}
	}
	segment.Node = p.node(start, segment.Field)
	return segment, nil
}

func isKeyword(typ tokenType) bool {
	return typ >= tokenLet && typ <= tokenEvent
}

func (p *parserState) parsePrimary() (ast.Expr, error) {
	tok := p.current()
	start := tok.start

	switch tok.typ {
	case tokenInt:
		p.advance()
		parsed, err := strconv.ParseInt(tok.literal, 10, 64)
		if err != nil {
			return nil, diagnostics.Syntaxf(diagnostics.CodeInvalidNumber, p.source.Span(tok.start, tok.end), "invalid integer %q", tok.literal)
		}
		return &ast.Literal{Node: p.node(start, ""), Value: value.Int(parsed)}, nil
	case tokenFloat:
		p.advance()
		parsed, err := strconv.ParseFloat(tok.literal, 64)
		if err != nil {
			return nil, diagnostics.Syntaxf(diagnostics.CodeInvalidNumber, p.source.Span(tok.start, tok.end), "invalid float %q", tok.literal)
		}
		return &ast.Literal{Node: p.node(start, ""), Value: value.Float(parsed)}, nil
	case tokenString:
		p.advance()
		return p.parseString(tok)
	case tokenTrue, tokenFalse:
		p.advance()
		return &ast.Literal{Node: p.node(start, ""), Value: value.Bool(tok.typ == tokenTrue)}, nil
	case tokenNull:
		p.advance()
		return &ast.Literal{Node: p.node(start, ""), Value: value.Null{}}, nil
	case tokenLBracket:
		return p.parseList()
	case tokenLBrace:
		return p.parseRecord()
	case tokenLParen:
		open := p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectClosing(tokenRParen, ")", open); err != nil {
			return nil, err
		}
		return inner, nil
	case tokenEvent:
		p.advance()
		return &ast.Path{Node: p.node(start, "event"), Root: ast.RootEvent}, nil
	case tokenDollar:
		p.advance()
		path := &ast.Path{Root: ast.RootMeta}
		next := p.current()
		if next.start == tok.end && (next.typ == tokenIdentifier || isKeyword(next.typ)) {
			p.advance()
			path.Segments = append(path.Segments, &ast.Segment{
				Node:  p.node(next.start, next.literal),
				Kind:  ast.SegmentField,
				Field: next.literal,
			})
		}
		path.Node = p.node(start, "$")
		return path, nil
	case tokenIdentifier:
		if p.peek(1).typ == tokenColonColon {
			return p.parseInvoke()
		}
		p.advance()
		return &ast.Path{Node: p.node(start, tok.literal), Root: ast.RootLocal, Name: tok.literal}, nil
	case tokenPresent:
		p.advance()
		if !p.at(tokenEvent, tokenDollar, tokenIdentifier) {
			return nil, p.unexpected("path after 'present'")
		}
		expr, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		path, ok := expr.(*ast.Path)
		if !ok || path.Root == ast.RootExpr {
			return nil, p.unexpected("path after 'present'")
		}
		return &ast.Present{Node: p.node(start, ""), Path: path}, nil
	case tokenMatch:
		return p.parseMatch()
	case tokenFor:
		return p.parseComprehension()
	case tokenMerge:
		open := p.advance()
		target, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokenOf, "'of'"); err != nil {
			return nil, err
		}
		source, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectClosing(tokenEnd, "end", open); err != nil {
			return nil, err
		}
		return &ast.Merge{Node: p.node(start, ""), Target: target, Source: source}, nil
	case tokenPatch:
		return p.parsePatch()
	default:
		return nil, p.unexpected("expression")
	}
}

func (p *parserState) parseString(tok token) (ast.Expr, error) {
	start := tok.start
	if len(tok.parts) == 0 {
		return &ast.Literal{Node: p.node(start, ""), Value: value.String("")}, nil
	}
	if len(tok.parts) == 1 && !tok.parts[0].isExpr() {
		return &ast.Literal{Node: p.node(start, ""), Value: value.String(tok.parts[0].text)}, nil
	}

	parts := make([]ast.Expr, 0, len(tok.parts))
	for _, part := range tok.parts {
		if !part.isExpr() {
			sub := &parserState{source: p.source, meta: p.meta, lastEnd: part.start + len(part.text)}
			parts = append(parts, &ast.Literal{Node: sub.node(part.start, ""), Value: value.String(part.text)})
			continue
		}
		sub := &parserState{tokens: part.tokens, source: p.source, meta: p.meta}
		expr, err := sub.parseExpression()
		if err != nil {
			return nil, err
		}
		if !sub.at(tokenEOF) {
			return nil, sub.unexpected("'}' to close interpolation")
		}
		parts = append(parts, expr)
	}
	return &ast.Interpolation{Node: p.node(start, ""), Parts: parts}, nil
}

func (p *parserState) parseList() (ast.Expr, error) {
	open := p.advance()
	list := &ast.List{}
	for !p.at(tokenRBracket) {
		item, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
		if !p.at(tokenComma) {
			break
		}
		p.advance()
	}
	if err := p.expectClosing(tokenRBracket, "]", open); err != nil {
		return nil, err
	}
	list.Node = p.node(open.start, "")
	return list, nil
}

func (p *parserState) parseRecord() (ast.Expr, error) {
	open := p.advance()
	record := &ast.Record{}
	for !p.at(tokenRBrace) {
		fieldStart := p.current().start
		var key ast.Expr
		switch tok := p.current(); {
		case tok.typ == tokenString:
			p.advance()
			parsed, err := p.parseString(tok)
			if err != nil {
				return nil, err
			}
			key = parsed
		case tok.typ == tokenIdentifier || isKeyword(tok.typ):
			p.advance()
			key = &ast.Literal{Node: p.node(tok.start, ""), Value: value.String(tok.literal)}
		default:
			if tok.typ == tokenEOF {
				return nil, p.expectClosing(tokenRBrace, "}", open)
			}
			return nil, p.unexpected("record key")
		}
		if _, err := p.expect(tokenColon, "':'"); err != nil {
			return nil, err
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		record.Fields = append(record.Fields, &ast.RecordField{Node: p.node(fieldStart, ""), Key: key, Value: val})
		if !p.at(tokenComma) {
			break
		}
		p.advance()
	}
	if err := p.expectClosing(tokenRBrace, "}", open); err != nil {
		return nil, err
	}
	record.Node = p.node(open.start, "")
	return record, nil
}

func (p *parserState) parseInvoke() (ast.Expr, error) {
	start := p.current().start
	module := p.advance()
	p.advance()

	name := p.current()
	if name.typ != tokenIdentifier && !isKeyword(name.typ) {
		return nil, p.unexpected("function name")
	}
	p.advance()

	open, err := p.expect(tokenLParen, "'('")
	if err != nil {
		return nil, err
	}
	var args []ast.Expr
	for !p.at(tokenRParen) {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.at(tokenComma) {
			break
		}
		p.advance()
	}
	if err := p.expectClosing(tokenRParen, ")", open); err != nil {
		return nil, err
	}
	qualified := module.literal + "::" + name.literal
	return &ast.Invoke{Node: p.node(start, qualified), Module: module.literal, Name: name.literal, Args: args}, nil
}

func (p *parserState) parseMatch() (ast.Expr, error) {
	open := p.advance()
	target, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenOf, "'of'"); err != nil {
		return nil, err
	}

	match := &ast.Match{Target: target}
	for p.at(tokenCase) {
		clauseStart := p.advance().start
		pattern, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		clause := &ast.Clause{Pattern: pattern}
		if p.at(tokenWhen) {
			p.advance()
			guard, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			clause.Guard = guard
		}
		if _, err := p.expect(tokenArrow, "'=>'"); err != nil {
			return nil, err
		}
		body, err := p.parseBody()
		if err != nil {
			return nil, err
		}
		clause.Body = body
		clause.Node = p.node(clauseStart, "")
		match.Clauses = append(match.Clauses, clause)
	}

	if p.at(tokenDefault) {
		p.advance()
		if _, err := p.expect(tokenArrow, "'=>'"); err != nil {
			return nil, err
		}
		body, err := p.parseBody()
		if err != nil {
			return nil, err
		}
		match.Default = body
		match.HasDefault = true
	}

	if len(match.Clauses) == 0 && !match.HasDefault {
		return nil, p.unexpected("'case' or 'default'")
	}
	if err := p.expectClosing(tokenEnd, "end", open); err != nil {
		return nil, err
	}
	match.Node = p.node(open.start, "")
	return match, nil
}

func (p *parserState) parseComprehension() (ast.Expr, error) {
	open := p.advance()
	target, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenOf, "'of'"); err != nil {
		return nil, err
	}

	comp := &ast.Comprehension{Target: target}
	for p.at(tokenCase) {
		caseStart := p.advance().start
		paren, err := p.expect(tokenLParen, "'('")
		if err != nil {
			return nil, err
		}
		key, err := p.expect(tokenIdentifier, "key name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokenComma, "','"); err != nil {
			return nil, err
		}
		val, err := p.expect(tokenIdentifier, "value name")
		if err != nil {
			return nil, err
		}
		if err := p.expectClosing(tokenRParen, ")", paren); err != nil {
			return nil, err
		}
		c := &ast.ComprehensionCase{KeyName: key.literal, ValueName: val.literal}
		if p.at(tokenWhen) {
			p.advance()
			guard, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			c.Guard = guard
		}
		if _, err := p.expect(tokenArrow, "'=>'"); err != nil {
			return nil, err
		}
		body, err := p.parseBody()
		if err != nil {
			return nil, err
		}
		c.Body = body
		c.Node = p.node(caseStart, "")
		comp.Cases = append(comp.Cases, c)
	}

	if len(comp.Cases) == 0 {
		return nil, p.unexpected("'case'")
	}
	if err := p.expectClosing(tokenEnd, "end", open); err != nil {
		return nil, err
	}
	comp.Node = p.node(open.start, "")
	return comp, nil
}

var patchKinds = map[tokenType]ast.PatchKind{
	tokenInsert:  ast.PatchInsert,
	tokenUpsert:  ast.PatchUpsert,
	tokenUpdate:  ast.PatchUpdate,
	tokenErase:   ast.PatchErase,
	tokenMove:    ast.PatchMove,
	tokenCopy:    ast.PatchCopy,
	tokenMerge:   ast.PatchMerge,
	tokenDefault: ast.PatchDefault,
}

func (p *parserState) parsePatch() (ast.Expr, error) {
	open := p.advance()
	target, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenOf, "'of'"); err != nil {
		return nil, err
	}

	patch := &ast.Patch{Target: target}
	for !p.at(tokenEnd, tokenEOF) {
		op, err := p.parsePatchOp()
		if err != nil {
			return nil, err
		}
		patch.Ops = append(patch.Ops, op)
		if !p.at(tokenSemicolon) {
			break
		}
		p.advance()
	}
	if len(patch.Ops) == 0 && !p.at(tokenEOF) {
		return nil, p.unexpected("patch operation")
	}
	if err := p.expectClosing(tokenEnd, "end", open); err != nil {
		return nil, err
	}
	patch.Node = p.node(open.start, "")
	return patch, nil
}

func (p *parserState) parsePatchOp() (*ast.PatchOp, error) {
	tok := p.current()
	kind, ok := patchKinds[tok.typ]
	if !ok {
		return nil, p.unexpected("patch operation (insert, upsert, update, erase, move, copy, merge, default)")
	}
	p.advance()
	op := &ast.PatchOp{Kind: kind}

	keyless := (kind == ast.PatchMerge || kind == ast.PatchDefault) && p.at(tokenArrow)
	if !keyless {
		key, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		op.Key = key
	}

	if kind != ast.PatchErase {
		if _, err := p.expect(tokenArrow, "'=>'"); err != nil {
			return nil, err
		}
		rhs, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if kind == ast.PatchMove || kind == ast.PatchCopy {
			op.Dest = rhs
		} else {
			op.Value = rhs
		}
	}

	op.Node = p.node(tok.start, kind.String())
	return op, nil
}
