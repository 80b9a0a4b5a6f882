// Package ast holds the syntax tree of a script.
//
// Every node carries a NodeID into the Script's metadata table where its
// source span lives. Extractor literals carry an index into the Script's
// extractor table, which is filled when the script is compiled.
package ast

import (
	"github.com/mfelsche/tremor-runtime/internal/diagnostics"
	"github.com/mfelsche/tremor-runtime/internal/extractor"
	"github.com/mfelsche/tremor-runtime/pkg/value"
)

type NodeID int

// NodeMeta is the side-table entry of one node.
type NodeMeta struct {
	Span diagnostics.Span
	Name string
}

type Node struct {
	ID NodeID
}

func (n Node) NodeID() NodeID { return n.ID }

// Script is a parsed, and after compilation bound, script.
type Script struct {
	Exprs      []Expr
	Meta       []NodeMeta
	Extractors []*extractor.Extractor
	// Locals is the number of local slots, set by the compiler.
	Locals int
	Source string
}

// Span returns the source span of a node.
func (s *Script) Span(id NodeID) diagnostics.Span {
	if int(id) < 0 || int(id) >= len(s.Meta) {
		return diagnostics.Span{}
	}
	return s.Meta[id].Span
}

// Expr is any expression or statement node.
type Expr interface {
	NodeID() NodeID
	expr()
}

type (
	Literal struct {
		Node
		Value value.Value
	}

	// Interpolation is a string literal containing #{...} segments.
	Interpolation struct {
		Node
		Parts []Expr
	}

	Record struct {
		Node
		Fields []*RecordField
	}

	RecordField struct {
		Node
		Key   Expr
		Value Expr
	}

	List struct {
		Node
		Items []Expr
	}

	Binary struct {
		Node
		Op    BinOp
		Left  Expr
		Right Expr
	}

	Unary struct {
		Node
		Op      UnaryOp
		Operand Expr
	}

	Path struct {
		Node
		Root Root
		// Name and Slot identify a local, const or import root.
		Name string
		Slot int
		// Base is the expression a RootExpr path starts from.
		Base     Expr
		Segments []*Segment
	}

	Present struct {
		Node
		Path *Path
	}

	Invoke struct {
		Node
		Module string
		Name   string
		Args   []Expr
		// Fn is the index into the compiled function table.
		Fn int
	}

	Match struct {
		Node
		Target  Expr
		Clauses []*Clause
		Default []Expr
		// HasDefault distinguishes an absent default from an empty one.
		HasDefault bool
	}

	Clause struct {
		Node
		Pattern Pattern
		Guard   Expr
		Body    []Expr
	}

	Comprehension struct {
		Node
		Target Expr
		Cases  []*ComprehensionCase
	}

	ComprehensionCase struct {
		Node
		KeyName   string
		KeySlot   int
		ValueName string
		ValueSlot int
		Guard     Expr
		Body      []Expr
	}

	Merge struct {
		Node
		Target Expr
		Source Expr
	}

	Patch struct {
		Node
		Target Expr
		Ops    []*PatchOp
	}

	PatchOp struct {
		Node
		Kind PatchKind
		// Key is nil for the keyless forms of merge and default.
		Key   Expr
		Dest  Expr
		Value Expr
	}

	Let struct {
		Node
		Target *Path
		Value  Expr
	}

	Emit struct {
		Node
		// Value is nil when the current event is emitted.
		Value Expr
		Port  Expr
	}

	Drop struct {
		Node
		Reason Expr
	}

	Return struct {
		Node
		Value Expr
	}

	Const struct {
		Node
		Name  string
		Slot  int
		Value Expr
	}

	Import struct {
		Node
		Names []string
	}

	Export struct {
		Node
		Names []string
	}
)

func (*Literal) expr()       {}
func (*Interpolation) expr() {}
func (*Record) expr()        {}
func (*List) expr()          {}
func (*Binary) expr()        {}
func (*Unary) expr()         {}
func (*Path) expr()          {}
func (*Present) expr()       {}
func (*Invoke) expr()        {}
func (*Match) expr()         {}
func (*Comprehension) expr() {}
func (*Merge) expr()         {}
func (*Patch) expr()         {}
func (*Let) expr()           {}
func (*Emit) expr()          {}
func (*Drop) expr()          {}
func (*Return) expr()        {}
func (*Const) expr()         {}
func (*Import) expr()        {}
func (*Export) expr()        {}

// Root is the starting point of a path.
type Root int

const (
	RootEvent Root = iota
	RootMeta
	RootLocal
	RootConst
	RootExpr
)

type SegmentKind int

const (
	SegmentField SegmentKind = iota
	SegmentIndex
	SegmentRange
)

// Segment is one step of a path: .field, [index] or [start:end].
type Segment struct {
	Node
	Kind  SegmentKind
	Field string
	Index Expr
	End   Expr
}

type BinOp int

const (
	OpOr BinOp = iota
	OpXor
	OpAnd
	OpBitOr
	OpBitXor
	OpBitAnd
	OpEq
	OpNotEq
	OpGte
	OpGt
	OpLte
	OpLt
	OpShr
	OpUshr
	OpShl
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
)

var binOpSymbols = [...]string{
	OpOr:     "or",
	OpXor:    "xor",
	OpAnd:    "and",
	OpBitOr:  "|",
	OpBitXor: "^",
	OpBitAnd: "&",
	OpEq:     "==",
	OpNotEq:  "!=",
	OpGte:    ">=",
	OpGt:     ">",
	OpLte:    "<=",
	OpLt:     "<",
	OpShr:    ">>",
	OpUshr:   ">>>",
	OpShl:    "<<",
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpDiv:    "/",
	OpMod:    "%",
}

func (op BinOp) String() string {
	if int(op) < len(binOpSymbols) {
		return binOpSymbols[op]
	}
	return "?"
}

// Precedence orders binary operators from loosest (0) to tightest.
func (op BinOp) Precedence() int {
	switch op {
	case OpOr:
		return 0
	case OpXor:
		return 1
	case OpAnd:
		return 2
	case OpBitOr:
		return 3
	case OpBitXor:
		return 4
	case OpBitAnd:
		return 5
	case OpEq, OpNotEq:
		return 6
	case OpGte, OpGt, OpLte, OpLt:
		return 7
	case OpShr, OpUshr, OpShl:
		return 8
	case OpAdd, OpSub:
		return 9
	default:
		return 10
	}
}

type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpBang
	OpMinus
	OpPlus
)

func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "not"
	case OpBang:
		return "!"
	case OpMinus:
		return "-"
	default:
		return "+"
	}
}

type PatchKind int

const (
	PatchInsert PatchKind = iota
	PatchUpsert
	PatchUpdate
	PatchErase
	PatchMove
	PatchCopy
	PatchMerge
	PatchDefault
)

func (k PatchKind) String() string {
	switch k {
	case PatchInsert:
		return "insert"
	case PatchUpsert:
		return "upsert"
	case PatchUpdate:
		return "update"
	case PatchErase:
		return "erase"
	case PatchMove:
		return "move"
	case PatchCopy:
		return "copy"
	case PatchMerge:
		return "merge"
	default:
		return "default"
	}
}
