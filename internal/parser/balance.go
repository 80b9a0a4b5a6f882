package parser

import (
	"github.com/mfelsche/tremor-runtime/internal/diagnostics"
	"github.com/mfelsche/tremor-runtime/internal/stack"
)

var closerOf = map[tokenType]tokenType{
	tokenLParen:              tokenRParen,
	tokenLBracket:            tokenRBracket,
	tokenArrayPattern:        tokenRBracket,
	tokenLBrace:              tokenRBrace,
	tokenRecordPattern:       tokenRBrace,
	tokenClosedRecordPattern: tokenRBrace,
}

// checkBalance reports the first closing delimiter that does not close the
// innermost open one. Openers still unclosed at the end are left to the
// parser, which knows what construct they started.
func checkBalance(tokens []token, source *diagnostics.Source) error {
	open := stack.New[token](8)
	for _, tok := range tokens {
		if _, opens := closerOf[tok.typ]; opens {
			open.Push(tok)
			continue
		}
		if tok.typ != tokenRParen && tok.typ != tokenRBracket && tok.typ != tokenRBrace {
			continue
		}

		opener, ok := open.Pop()
		if !ok {
			return diagnostics.Syntaxf(diagnostics.CodeUnbalanced, source.Span(tok.start, tok.end),
				"%q closes nothing", tok.literal)
		}
		if closerOf[opener.typ] != tok.typ {
			return diagnostics.Syntaxf(diagnostics.CodeUnbalanced, source.Span(tok.start, tok.end),
				"%q does not close %q at %s", tok.literal, opener.literal, source.Location(opener.start).String())
		}
	}
	return nil
}
