package parser

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mfelsche/tremor-runtime/internal/diagnostics"
)

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdentifier
	tokenInt
	tokenFloat
	tokenString
	tokenExtractor

	tokenLet
	tokenConst
	tokenImport
	tokenExport
	tokenMatch
	tokenOf
	tokenCase
	tokenWhen
	tokenDefault
	tokenEnd
	tokenEmit
	tokenDrop
	tokenReturn
	tokenMerge
	tokenPatch
	tokenInsert
	tokenUpsert
	tokenUpdate
	tokenErase
	tokenMove
	tokenCopy
	tokenFor
	tokenPresent
	tokenAbsent
	tokenNot
	tokenAnd
	tokenOr
	tokenXor
	tokenTrue
	tokenFalse
	tokenNull
	tokenEvent

	tokenDollar
	tokenUnderscore
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenPercent
	tokenEqual
	tokenNotEqual
	tokenLess
	tokenLessEqual
	tokenGreater
	tokenGreaterEqual
	tokenShiftLeft
	tokenShiftRight
	tokenShiftRightUnsigned
	tokenAmpersand
	tokenCaret
	tokenPipe
	tokenBang
	tokenAssign
	tokenArrow
	tokenTilde
	tokenTildeEqual
	tokenDot
	tokenEllipsis
	tokenComma
	tokenSemicolon
	tokenColon
	tokenColonColon
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenLBrace
	tokenRBrace
	tokenRecordPattern
	tokenClosedRecordPattern
	tokenArrayPattern
)

var keywords = map[string]tokenType{
	"let":     tokenLet,
	"const":   tokenConst,
	"import":  tokenImport,
	"export":  tokenExport,
	"match":   tokenMatch,
	"of":      tokenOf,
	"case":    tokenCase,
	"when":    tokenWhen,
	"default": tokenDefault,
	"end":     tokenEnd,
	"emit":    tokenEmit,
	"drop":    tokenDrop,
	"return":  tokenReturn,
	"merge":   tokenMerge,
	"patch":   tokenPatch,
	"insert":  tokenInsert,
	"upsert":  tokenUpsert,
	"update":  tokenUpdate,
	"erase":   tokenErase,
	"move":    tokenMove,
	"copy":    tokenCopy,
	"for":     tokenFor,
	"present": tokenPresent,
	"absent":  tokenAbsent,
	"not":     tokenNot,
	"and":     tokenAnd,
	"or":      tokenOr,
	"xor":     tokenXor,
	"true":    tokenTrue,
	"false":   tokenFalse,
	"null":    tokenNull,
	"event":   tokenEvent,
}

// Operators ordered so that longer spellings win.
var operators = []struct {
	text string
	typ  tokenType
}{
	{">>>", tokenShiftRightUnsigned},
	{"...", tokenEllipsis},
	{"%!{", tokenClosedRecordPattern},
	{">>", tokenShiftRight},
	{">=", tokenGreaterEqual},
	{"<<", tokenShiftLeft},
	{"<=", tokenLessEqual},
	{"==", tokenEqual},
	{"=>", tokenArrow},
	{"!=", tokenNotEqual},
	{"~=", tokenTildeEqual},
	{"::", tokenColonColon},
	{"%{", tokenRecordPattern},
	{"%[", tokenArrayPattern},
	{">", tokenGreater},
	{"<", tokenLess},
	{"=", tokenAssign},
	{"!", tokenBang},
	{"~", tokenTilde},
	{":", tokenColon},
	{"%", tokenPercent},
	{".", tokenDot},
	{"+", tokenPlus},
	{"-", tokenMinus},
	{"*", tokenStar},
	{"/", tokenSlash},
	{"&", tokenAmpersand},
	{"^", tokenCaret},
	{"|", tokenPipe},
	{",", tokenComma},
	{";", tokenSemicolon},
	{"(", tokenLParen},
	{")", tokenRParen},
	{"[", tokenLBracket},
	{"]", tokenRBracket},
	{"{", tokenLBrace},
	{"}", tokenRBrace},
	{"$", tokenDollar},
}

type token struct {
	typ     tokenType
	literal string
	// body holds the verbatim body of an extractor literal.
	body  string
	parts []stringPart
	start int
	end   int
}

// stringPart is either literal text or the tokens of a #{...} segment.
type stringPart struct {
	text   string
	tokens []token
	start  int
}

func (p stringPart) isExpr() bool {
	return p.tokens != nil
}

type lexer struct {
	src    string
	pos    int
	source *diagnostics.Source
}

func lex(src string, source *diagnostics.Source) ([]token, error) {
	l := &lexer{src: src, source: source}
	return l.run(false)
}

// run tokenizes until the end of input or, when nested, until the '}' that
// closes an interpolation segment.
func (l *lexer) run(nested bool) ([]token, error) {
	tokens := make([]token, 0, len(l.src[l.pos:])/3+1)
	depth := 0
	start := l.pos

	for {
		if err := l.skipSpaceAndComments(); err != nil {
			return nil, err
		}
		if l.pos >= len(l.src) {
			if nested {
				return nil, l.errorf(diagnostics.CodeUnterminated, start-2, start, "unterminated interpolation")
			}
			return append(tokens, token{typ: tokenEOF, start: l.pos, end: l.pos}), nil
		}

		r, width := utf8.DecodeRuneInString(l.src[l.pos:])

		switch {
		case isIdentifierStart(r):
			tokens = append(tokens, l.lexIdentifier())
			continue
		case r >= '0' && r <= '9':
			tok, err := l.lexNumber()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			continue
		case r == '"':
			tok, err := l.lexString()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			continue
		}

		tok, ok := l.lexOperator()
		if !ok {
			return nil, l.errorf(diagnostics.CodeUnexpectedToken, l.pos, l.pos+width, "unexpected character %q", r)
		}

		if nested {
			switch tok.typ {
			case tokenLBrace, tokenRecordPattern, tokenClosedRecordPattern:
				depth++
			case tokenRBrace:
				if depth == 0 {
					return append(tokens, token{typ: tokenEOF, start: tok.start, end: tok.start}), nil
				}
				depth--
			}
		}

		tokens = append(tokens, tok)

		if tok.typ == tokenTilde || tok.typ == tokenTildeEqual {
			ext, found, err := l.lexExtractor()
			if err != nil {
				return nil, err
			}
			if found {
				tokens = append(tokens, ext)
			}
		}
	}
}

func (l *lexer) skipSpaceAndComments() error {
	for l.pos < len(l.src) {
		r, width := utf8.DecodeRuneInString(l.src[l.pos:])
		switch {
		case unicode.IsSpace(r):
			l.pos += width
		case r == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return nil
		}
	}
	return nil
}

func isIdentifierStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentifierPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (l *lexer) scanIdentifier(from int) int {
	pos := from
	for pos < len(l.src) {
		r, width := utf8.DecodeRuneInString(l.src[pos:])
		if pos == from && !isIdentifierStart(r) {
			return from
		}
		if !isIdentifierPart(r) {
			break
		}
		pos += width
	}
	return pos
}

func (l *lexer) lexIdentifier() token {
	start := l.pos
	l.pos = l.scanIdentifier(start)
	literal := l.src[start:l.pos]

	if typ, ok := keywords[literal]; ok {
		return token{typ: typ, literal: literal, start: start, end: l.pos}
	}
	if literal == "_" {
		return token{typ: tokenUnderscore, literal: literal, start: start, end: l.pos}
	}
	return token{typ: tokenIdentifier, literal: literal, start: start, end: l.pos}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos

	if strings.HasPrefix(l.src[start:], "0x") || strings.HasPrefix(l.src[start:], "0X") {
		l.pos += 2
		digits := l.pos
		for l.pos < len(l.src) && isHexDigit(l.src[l.pos]) {
			l.pos++
		}
		if l.pos == digits {
			return token{}, l.errorf(diagnostics.CodeInvalidNumber, start, l.pos, "invalid hex literal %q", l.src[start:l.pos])
		}
		parsed, err := strconv.ParseInt(l.src[digits:l.pos], 16, 64)
		if err != nil {
			return token{}, l.errorf(diagnostics.CodeInvalidNumber, start, l.pos, "hex literal %q out of range", l.src[start:l.pos])
		}
		return token{typ: tokenInt, literal: strconv.FormatInt(parsed, 10), start: start, end: l.pos}, nil
	}

	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}

	typ := tokenInt
	if l.pos+1 < len(l.src) && l.src[l.pos] == '.' && isDigit(l.src[l.pos+1]) {
		typ = tokenFloat
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}

	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		exp := l.pos + 1
		if exp < len(l.src) && (l.src[exp] == '+' || l.src[exp] == '-') {
			exp++
		}
		if exp >= len(l.src) || !isDigit(l.src[exp]) {
			return token{}, l.errorf(diagnostics.CodeInvalidNumber, start, exp, "invalid exponent in %q", l.src[start:exp])
		}
		typ = tokenFloat
		l.pos = exp
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}

	literal := l.src[start:l.pos]
	if typ == tokenInt {
		if _, err := strconv.ParseInt(literal, 10, 64); err != nil {
			return token{}, l.errorf(diagnostics.CodeInvalidNumber, start, l.pos, "integer %q out of range", literal)
		}
	} else if _, err := strconv.ParseFloat(literal, 64); err != nil {
		return token{}, l.errorf(diagnostics.CodeInvalidNumber, start, l.pos, "invalid number %q", literal)
	}

	return token{typ: typ, literal: literal, start: start, end: l.pos}, nil
}

func (l *lexer) lexOperator() (token, bool) {
	rest := l.src[l.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op.text) {
			tok := token{typ: op.typ, literal: op.text, start: l.pos, end: l.pos + len(op.text)}
			l.pos += len(op.text)
			return tok, true
		}
	}
	return token{}, false
}

// lexExtractor recognises kind|body| right after a tilde. The body is kept
// verbatim except that \| stands for a literal pipe.
func (l *lexer) lexExtractor() (token, bool, error) {
	pos := l.pos
	for pos < len(l.src) && (l.src[pos] == ' ' || l.src[pos] == '\t') {
		pos++
	}
	nameEnd := l.scanIdentifier(pos)
	if nameEnd == pos || nameEnd >= len(l.src) || l.src[nameEnd] != '|' {
		return token{}, false, nil
	}

	start := pos
	kind := l.src[pos:nameEnd]
	var body strings.Builder
	for i := nameEnd + 1; i < len(l.src); i++ {
		ch := l.src[i]
		if ch == '\\' && i+1 < len(l.src) && l.src[i+1] == '|' {
			body.WriteByte('|')
			i++
			continue
		}
		if ch == '|' {
			l.pos = i + 1
			return token{typ: tokenExtractor, literal: kind, body: body.String(), start: start, end: l.pos}, true, nil
		}
		body.WriteByte(ch)
	}

	return token{}, false, l.errorf(diagnostics.CodeUnterminated, start, nameEnd+1, "unterminated extractor %q", kind)
}

func (l *lexer) lexString() (token, error) {
	if strings.HasPrefix(l.src[l.pos:], `"""`) {
		return l.lexHeredoc()
	}

	start := l.pos
	l.pos++
	var parts []stringPart
	var text strings.Builder
	textStart := l.pos

	flush := func() {
		if text.Len() > 0 {
			parts = append(parts, stringPart{text: text.String(), start: textStart})
			text.Reset()
		}
	}

	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		switch {
		case ch == '"':
			l.pos++
			flush()
			return token{typ: tokenString, parts: parts, start: start, end: l.pos}, nil
		case ch == '\n':
			return token{}, l.errorf(diagnostics.CodeUnterminated, start, l.pos, "unterminated string")
		case ch == '\\':
			if err := l.lexEscape(&text); err != nil {
				return token{}, err
			}
		case ch == '#' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '{':
			flush()
			part, err := l.lexInterpolation()
			if err != nil {
				return token{}, err
			}
			parts = append(parts, part)
			textStart = l.pos
		default:
			text.WriteByte(ch)
			l.pos++
		}
	}

	return token{}, l.errorf(diagnostics.CodeUnterminated, start, l.pos, "unterminated string")
}

func (l *lexer) lexEscape(b *strings.Builder) error {
	start := l.pos
	l.pos++
	if l.pos >= len(l.src) {
		return l.errorf(diagnostics.CodeUnterminated, start, l.pos, "unterminated escape sequence")
	}

	escaped := l.src[l.pos]
	l.pos++
	switch escaped {
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case '\\', '"', '#', '/':
		b.WriteByte(escaped)
	case 'u':
		if l.pos+4 > len(l.src) {
			return l.errorf(diagnostics.CodeInvalidEscape, start, len(l.src), "invalid unicode escape")
		}
		code, err := strconv.ParseUint(l.src[l.pos:l.pos+4], 16, 32)
		if err != nil {
			return l.errorf(diagnostics.CodeInvalidEscape, start, l.pos+4, "invalid unicode escape %q", l.src[start:l.pos+4])
		}
		b.WriteRune(rune(code))
		l.pos += 4
	default:
		return l.errorf(diagnostics.CodeInvalidEscape, start, l.pos, "invalid escape sequence \\%c", escaped)
	}
	return nil
}

func (l *lexer) lexInterpolation() (stringPart, error) {
	start := l.pos
	l.pos += 2
	tokens, err := l.run(true)
	if err != nil {
		return stringPart{}, err
	}
	// run stops on the closing brace without consuming it.
	l.pos = tokens[len(tokens)-1].start + 1
	if len(tokens) == 1 {
		return stringPart{}, l.errorf(diagnostics.CodeUnexpectedToken, start, l.pos, "empty interpolation")
	}
	return stringPart{tokens: tokens, start: start}, nil
}

// lexHeredoc reads """...""" strings: escapes are not processed, a newline
// directly after the opening quotes is dropped, interpolation still applies.
func (l *lexer) lexHeredoc() (token, error) {
	start := l.pos
	l.pos += 3
	if l.pos < len(l.src) && l.src[l.pos] == '\n' {
		l.pos++
	}

	var parts []stringPart
	var text strings.Builder
	textStart := l.pos

	for l.pos < len(l.src) {
		if strings.HasPrefix(l.src[l.pos:], `"""`) {
			l.pos += 3
			if text.Len() > 0 {
				parts = append(parts, stringPart{text: text.String(), start: textStart})
			}
			return token{typ: tokenString, parts: parts, start: start, end: l.pos}, nil
		}
		if strings.HasPrefix(l.src[l.pos:], "#{") {
			if text.Len() > 0 {
				parts = append(parts, stringPart{text: text.String(), start: textStart})
				text.Reset()
			}
			part, err := l.lexInterpolation()
			if err != nil {
				return token{}, err
			}
			parts = append(parts, part)
			textStart = l.pos
			continue
		}
		text.WriteByte(l.src[l.pos])
		l.pos++
	}

	return token{}, l.errorf(diagnostics.CodeUnterminated, start, start+3, "unterminated heredoc")
}

func (l *lexer) errorf(code diagnostics.Code, start, end int, format string, args ...any) error {
	return diagnostics.Syntaxf(code, l.source.Span(start, end), format, args...)
}
