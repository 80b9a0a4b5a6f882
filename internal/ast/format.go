package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

// Format renders a script as canonical source. Parsing the output yields a
// tree that formats to the same text.
func Format(script *Script) string {
	f := &formatter{}
	for _, expr := range script.Exprs {
		f.expr(expr, 0)
		f.b.WriteString(";\n")
	}
	return f.b.String()
}

// FormatExpr renders a single expression.
func FormatExpr(expr Expr) string {
	f := &formatter{}
	f.expr(expr, 0)
	return f.b.String()
}

type formatter struct {
	b strings.Builder
}

func (f *formatter) write(parts ...string) {
	for _, part := range parts {
		f.b.WriteString(part)
	}
}

func (f *formatter) newline(indent int) {
	f.b.WriteByte('\n')
	f.b.WriteString(strings.Repeat("  ", indent))
}

func (f *formatter) body(exprs []Expr, indent int) {
	for i, expr := range exprs {
		if i > 0 {
			f.write(";")
			f.newline(indent)
		}
		f.expr(expr, indent)
	}
}

func (f *formatter) expr(expr Expr, indent int) {
	switch e := expr.(type) {
	case *Literal:
		f.write(FormatValue(e.Value))
	case *Interpolation:
		f.write(`"`)
		for _, part := range e.Parts {
			if lit, ok := part.(*Literal); ok {
				if s, ok := lit.Value.(value.String); ok {
					f.write(escapeString(string(s)))
					continue
				}
			}
			f.write("#{")
			f.expr(part, indent)
			f.write("}")
		}
		f.write(`"`)
	case *Record:
		f.write("{")
		for i, field := range e.Fields {
			if i > 0 {
				f.write(", ")
			}
			f.expr(field.Key, indent)
			f.write(": ")
			f.expr(field.Value, indent)
		}
		f.write("}")
	case *List:
		f.write("[")
		for i, item := range e.Items {
			if i > 0 {
				f.write(", ")
			}
			f.expr(item, indent)
		}
		f.write("]")
	case *Binary:
		f.operand(e.Left, e.Op.Precedence(), false, indent)
		f.write(" ", e.Op.String(), " ")
		f.operand(e.Right, e.Op.Precedence(), true, indent)
	case *Unary:
		f.write(e.Op.String())
		if e.Op == OpNot {
			f.write(" ")
		}
		switch e.Operand.(type) {
		case *Binary, *Unary:
			f.write("(")
			f.expr(e.Operand, indent)
			f.write(")")
		default:
			f.expr(e.Operand, indent)
		}
	case *Path:
		f.path(e, indent)
	case *Present:
		f.write("present ")
		f.path(e.Path, indent)
	case *Invoke:
		f.write(e.Module, "::", e.Name, "(")
		for i, arg := range e.Args {
			if i > 0 {
				f.write(", ")
			}
			f.expr(arg, indent)
		}
		f.write(")")
	case *Match:
		f.write("match ")
		f.expr(e.Target, indent)
		f.write(" of")
		for _, clause := range e.Clauses {
			f.newline(indent + 1)
			f.write("case ")
			f.pattern(clause.Pattern, indent+1)
			if clause.Guard != nil {
				f.write(" when ")
				f.expr(clause.Guard, indent+1)
			}
			f.write(" =>")
			f.newline(indent + 2)
			f.body(clause.Body, indent+2)
		}
		if e.HasDefault {
			f.newline(indent + 1)
			f.write("default =>")
			f.newline(indent + 2)
			f.body(e.Default, indent+2)
		}
		f.newline(indent)
		f.write("end")
	case *Comprehension:
		f.write("for ")
		f.expr(e.Target, indent)
		f.write(" of")
		for _, c := range e.Cases {
			f.newline(indent + 1)
			f.write("case (", c.KeyName, ", ", c.ValueName, ")")
			if c.Guard != nil {
				f.write(" when ")
				f.expr(c.Guard, indent+1)
			}
			f.write(" =>")
			f.newline(indent + 2)
			f.body(c.Body, indent+2)
		}
		f.newline(indent)
		f.write("end")
	case *Merge:
		f.write("merge ")
		f.expr(e.Target, indent)
		f.write(" of ")
		f.expr(e.Source, indent)
		f.write(" end")
	case *Patch:
		f.write("patch ")
		f.expr(e.Target, indent)
		f.write(" of")
		for i, op := range e.Ops {
			if i > 0 {
				f.write(";")
			}
			f.newline(indent + 1)
			f.patchOp(op, indent+1)
		}
		f.newline(indent)
		f.write("end")
	case *Let:
		f.write("let ")
		f.path(e.Target, indent)
		f.write(" = ")
		f.expr(e.Value, indent)
	case *Emit:
		f.write("emit")
		if e.Value != nil {
			f.write(" ")
			f.expr(e.Value, indent)
		}
		if e.Port != nil {
			f.write(" => ")
			f.expr(e.Port, indent)
		}
	case *Drop:
		f.write("drop")
		if e.Reason != nil {
			f.write(" ")
			f.expr(e.Reason, indent)
		}
	case *Return:
		f.write("return")
		if e.Value != nil {
			f.write(" ")
			f.expr(e.Value, indent)
		}
	case *Const:
		f.write("const ", e.Name, " = ")
		f.expr(e.Value, indent)
	case *Import:
		f.write("import ", strings.Join(e.Names, ", "))
	case *Export:
		f.write("export ", strings.Join(e.Names, ", "))
	default:
		f.write(fmt.Sprintf("<%T>", expr))
	}
}

func (f *formatter) operand(expr Expr, parent int, right bool, indent int) {
	inner, ok := expr.(*Binary)
	wrap := ok && (inner.Op.Precedence() < parent || (right && inner.Op.Precedence() == parent))
	if _, isLet := expr.(*Let); isLet {
		wrap = true
	}
	if wrap {
		f.write("(")
		f.expr(expr, indent)
		f.write(")")
		return
	}
	f.expr(expr, indent)
}

func (f *formatter) path(p *Path, indent int) {
	segments := p.Segments
	switch p.Root {
	case RootEvent:
		f.write("event")
	case RootMeta:
		f.write("$")
		if len(segments) > 0 && segments[0].Kind == SegmentField && IsIdentifier(segments[0].Field) {
			f.write(segments[0].Field)
			segments = segments[1:]
		}
	case RootExpr:
		f.write("(")
		f.expr(p.Base, indent)
		f.write(")")
	default:
		f.write(p.Name)
	}

	for _, seg := range segments {
		switch seg.Kind {
		case SegmentField:
			if IsIdentifier(seg.Field) {
				f.write(".", seg.Field)
			} else {
				f.write("[", quote(seg.Field), "]")
			}
		case SegmentIndex:
			f.write("[")
			f.expr(seg.Index, indent)
			f.write("]")
		case SegmentRange:
			f.write("[")
			f.expr(seg.Index, indent)
			f.write(":")
			f.expr(seg.End, indent)
			f.write("]")
		}
	}
}

func (f *formatter) patchOp(op *PatchOp, indent int) {
	f.write(op.Kind.String())
	if op.Key != nil {
		f.write(" ")
		f.expr(op.Key, indent)
	}
	switch op.Kind {
	case PatchErase:
		return
	case PatchMove, PatchCopy:
		f.write(" => ")
		f.expr(op.Dest, indent)
	default:
		f.write(" => ")
		f.expr(op.Value, indent)
	}
}

func (f *formatter) pattern(p Pattern, indent int) {
	switch pat := p.(type) {
	case *RecordPattern:
		if pat.Closed {
			f.write("%!{")
		} else {
			f.write("%{")
		}
		for i, field := range pat.Fields {
			if i > 0 {
				f.write(",")
			}
			f.write(" ")
			f.fieldPattern(field, indent)
		}
		if len(pat.Fields) > 0 {
			f.write(" ")
		}
		f.write("}")
	case *ArrayPattern:
		f.write("%[")
		for i, elem := range pat.Elems {
			if i > 0 {
				f.write(", ")
			}
			f.pattern(elem, indent)
		}
		if pat.Open {
			if len(pat.Elems) > 0 {
				f.write(", ")
			}
			f.write("...", pat.Rest)
		}
		f.write("]")
	case *ExtractorPattern:
		f.write("~ ")
		f.extractor(pat.Extractor)
	case *ComparisonPattern:
		if pat.Op != CmpEq {
			f.write(pat.Op.String(), " ")
		}
		f.expr(pat.Expr, indent)
	case *AssignPattern:
		f.write(pat.Name, " = ")
		f.pattern(pat.Pattern, indent)
	case *DefaultPattern:
		f.write("_")
	}
}

func (f *formatter) fieldPattern(field *FieldPattern, indent int) {
	name := field.Name
	if !IsIdentifier(name) || IsKeyword(name) {
		name = quote(name)
	}
	switch field.Kind {
	case FieldPresent:
		f.write("present ", name)
	case FieldAbsent:
		f.write("absent ", name)
	case FieldCompare:
		f.write(name, " ", field.Op.String(), " ")
		f.expr(field.Expr, indent)
	case FieldExtract:
		f.write(name, " ~= ")
		f.extractor(field.Extractor)
	case FieldNested:
		f.write(name, " ~= ")
		f.pattern(field.Sub, indent)
	}
}

func (f *formatter) extractor(ref *ExtractorRef) {
	f.write(ref.Kind, "|", strings.ReplaceAll(ref.Body, "|", `\|`), "|")
}

// FormatValue renders a value as a script literal.
func FormatValue(v value.Value) string {
	switch current := v.(type) {
	case nil, value.Null:
		return "null"
	case value.Bool:
		return strconv.FormatBool(bool(current))
	case value.Int:
		return strconv.FormatInt(int64(current), 10)
	case value.Float:
		return value.FormatFloat(float64(current))
	case value.String:
		return quote(string(current))
	case value.Array:
		parts := make([]string, len(current))
		for i, item := range current {
			parts[i] = FormatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *value.Object:
		parts := make([]string, 0, current.Len())
		current.Range(func(key string, item value.Value) bool {
			parts = append(parts, quote(key)+": "+FormatValue(item))
			return true
		})
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "null"
	}
}

func quote(s string) string {
	return `"` + escapeString(s) + `"`
}

func escapeString(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '#':
			if i+1 < len(s) && s[i+1] == '{' {
				b.WriteString(`\#`)
			} else {
				b.WriteByte(ch)
			}
		default:
			if ch < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, ch)
			} else {
				b.WriteByte(ch)
			}
		}
	}
	return b.String()
}

// IsIdentifier reports whether s can be written as a bare identifier.
func IsIdentifier(s string) bool {
	if s == "" || s == "_" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

var keywords = map[string]struct{}{
	"let": {}, "const": {}, "import": {}, "export": {}, "match": {}, "of": {},
	"case": {}, "when": {}, "default": {}, "end": {}, "emit": {}, "drop": {},
	"return": {}, "merge": {}, "patch": {}, "insert": {}, "upsert": {},
	"update": {}, "erase": {}, "move": {}, "copy": {}, "for": {}, "present": {},
	"absent": {}, "not": {}, "and": {}, "or": {}, "xor": {}, "true": {},
	"false": {}, "null": {}, "event": {},
}

// IsKeyword reports whether s is reserved by the script grammar.
func IsKeyword(s string) bool {
	_, ok := keywords[s]
	return ok
}
