package parser

import (
	"github.com/mfelsche/tremor-runtime/internal/ast"
)

var comparisonOps = map[tokenType]ast.CmpOp{
	tokenEqual:        ast.CmpEq,
	tokenNotEqual:     ast.CmpNotEq,
	tokenLess:         ast.CmpLt,
	tokenLessEqual:    ast.CmpLte,
	tokenGreater:      ast.CmpGt,
	tokenGreaterEqual: ast.CmpGte,
}

func (p *parserState) parsePattern() (ast.Pattern, error) {
	tok := p.current()
	start := tok.start

	switch tok.typ {
	case tokenIdentifier:
		if p.peek(1).typ == tokenAssign {
			p.advance()
			p.advance()
			inner, err := p.parsePattern()
			if err != nil {
				return nil, err
			}
			return &ast.AssignPattern{Node: p.node(start, tok.literal), Name: tok.literal, Pattern: inner}, nil
		}
	case tokenRecordPattern, tokenClosedRecordPattern:
		return p.parseRecordPattern()
	case tokenArrayPattern:
		return p.parseArrayPattern()
	case tokenTilde:
		p.advance()
		ref, err := p.parseExtractorRef()
		if err != nil {
			return nil, err
		}
		return &ast.ExtractorPattern{Node: p.node(start, ref.Kind), Extractor: ref}, nil
	case tokenUnderscore:
		p.advance()
		return &ast.DefaultPattern{Node: p.node(start, "_")}, nil
	}

	op := ast.CmpEq
	if explicit, ok := comparisonOps[tok.typ]; ok {
		op = explicit
		p.advance()
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.ComparisonPattern{Node: p.node(start, ""), Op: op, Expr: expr}, nil
}

func (p *parserState) parseExtractorRef() (*ast.ExtractorRef, error) {
	tok := p.current()
	if tok.typ != tokenExtractor {
		return nil, p.unexpected("extractor literal kind|body|")
	}
	p.advance()
	return &ast.ExtractorRef{Node: p.node(tok.start, tok.literal), Kind: tok.literal, Body: tok.body}, nil
}

func (p *parserState) parseRecordPattern() (ast.Pattern, error) {
	open := p.advance()
	record := &ast.RecordPattern{Closed: open.typ == tokenClosedRecordPattern}

	for !p.at(tokenRBrace, tokenEOF) {
		field, err := p.parseFieldPattern()
		if err != nil {
			return nil, err
		}
		record.Fields = append(record.Fields, field)
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

func (p *parserState) parseFieldName() (string, error) {
	tok := p.current()
	switch {
	case tok.typ == tokenIdentifier || isKeyword(tok.typ):
		p.advance()
		return tok.literal, nil
	case tok.typ == tokenString:
		if len(tok.parts) > 1 || (len(tok.parts) == 1 && tok.parts[0].isExpr()) {
			return "", p.unexpected("plain string field name")
		}
		p.advance()
		if len(tok.parts) == 0 {
			return "", nil
		}
		return tok.parts[0].text, nil
	default:
		return "", p.unexpected("field name")
	}
}

func (p *parserState) parseFieldPattern() (*ast.FieldPattern, error) {
	start := p.current().start

	if next := p.peek(1).typ; p.at(tokenPresent, tokenAbsent) && (next == tokenIdentifier || next == tokenString || isKeyword(next)) {
		kind := ast.FieldPresent
		if p.advance().typ == tokenAbsent {
			kind = ast.FieldAbsent
		}
		name, err := p.parseFieldName()
		if err != nil {
			return nil, err
		}
		return &ast.FieldPattern{Node: p.node(start, name), Kind: kind, Name: name}, nil
	}

	name, err := p.parseFieldName()
	if err != nil {
		return nil, err
	}

	if op, ok := comparisonOps[p.current().typ]; ok {
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.FieldPattern{Node: p.node(start, name), Kind: ast.FieldCompare, Name: name, Op: op, Expr: expr}, nil
	}

	if _, err := p.expect(tokenTildeEqual, "'~=', a comparison operator"); err != nil {
		return nil, err
	}

	switch p.current().typ {
	case tokenExtractor:
		ref, err := p.parseExtractorRef()
		if err != nil {
			return nil, err
		}
		return &ast.FieldPattern{Node: p.node(start, name), Kind: ast.FieldExtract, Name: name, Extractor: ref}, nil
	case tokenRecordPattern, tokenClosedRecordPattern, tokenArrayPattern:
		sub, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		return &ast.FieldPattern{Node: p.node(start, name), Kind: ast.FieldNested, Name: name, Sub: sub}, nil
	default:
		return nil, p.unexpected("extractor, record pattern or array pattern after '~='")
	}
}

func (p *parserState) parseArrayPattern() (ast.Pattern, error) {
	open := p.advance()
	array := &ast.ArrayPattern{}

	for !p.at(tokenRBracket, tokenEOF) {
		if p.at(tokenEllipsis) {
			p.advance()
			array.Open = true
			if p.at(tokenIdentifier) {
				array.Rest = p.advance().literal
			}
			break
		}

		elem, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		array.Elems = append(array.Elems, elem)
		if !p.at(tokenComma) {
			break
		}
		p.advance()
	}

	if err := p.expectClosing(tokenRBracket, "]", open); err != nil {
		return nil, err
	}
	array.Node = p.node(open.start, "")
	return array, nil
}
