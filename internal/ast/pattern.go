package ast

// Pattern is a declarative test against a value, used by match clauses.
type Pattern interface {
	NodeID() NodeID
	pattern()
}

type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNotEq
	CmpLt
	CmpLte
	CmpGt
	CmpGte
)

func (op CmpOp) String() string {
	switch op {
	case CmpEq:
		return "=="
	case CmpNotEq:
		return "!="
	case CmpLt:
		return "<"
	case CmpLte:
		return "<="
	case CmpGt:
		return ">"
	default:
		return ">="
	}
}

// ExtractorRef is an extractor literal kind|body| found in the source.
// ID indexes Script.Extractors once the script is compiled.
type ExtractorRef struct {
	Node
	Kind string
	Body string
	ID   int
}

type FieldKind int

const (
	FieldPresent FieldKind = iota
	FieldAbsent
	FieldCompare
	FieldExtract
	FieldNested
)

// FieldPattern is one predicate of a record pattern.
type FieldPattern struct {
	Node
	Kind      FieldKind
	Name      string
	Op        CmpOp
	Expr      Expr
	Extractor *ExtractorRef
	// Sub is a nested record or array pattern for FieldNested.
	Sub Pattern
}

type (
	RecordPattern struct {
		Node
		Closed bool
		Fields []*FieldPattern
	}

	ArrayPattern struct {
		Node
		Elems []Pattern
		// Open allows elements beyond Elems; Rest, when set, binds them.
		Open     bool
		Rest     string
		RestSlot int
	}

	ExtractorPattern struct {
		Node
		Extractor *ExtractorRef
	}

	ComparisonPattern struct {
		Node
		Op   CmpOp
		Expr Expr
	}

	AssignPattern struct {
		Node
		Name    string
		Slot    int
		Pattern Pattern
	}

	DefaultPattern struct {
		Node
	}
)

func (*RecordPattern) pattern()     {}
func (*ArrayPattern) pattern()      {}
func (*ExtractorPattern) pattern()  {}
func (*ComparisonPattern) pattern() {}
func (*AssignPattern) pattern()     {}
func (*DefaultPattern) pattern()    {}
