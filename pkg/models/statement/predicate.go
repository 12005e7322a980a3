package statement

type PredicateOp int

const (
	OpEqual = PredicateOp(iota)
	OpIn
	OpBetween
	// OpOther covers OR branches, subqueries and functions over a column.
	OpOther
)

type ValueType int

const (
	TypeUnknown = ValueType(iota)
	TypeNumeric
	TypeString
	TypeDate
)

type OperandKind int

const (
	OperandLiteral = OperandKind(iota)
	OperandParam
	OperandNow
)

// Column is a column reference; Table is the qualifier as written,
// which may be an alias.
type Column struct {
	Name  string `json:"name" yaml:"name"`
	Table string `json:"table,omitempty" yaml:"table"`
}

// Operand is one right-hand value of a predicate or an INSERT row.
// Literals keep their source text, Index is the 0-based parameter ordinal.
type Operand struct {
	Kind  OperandKind `json:"kind" yaml:"kind"`
	Text  string      `json:"text,omitempty" yaml:"text"`
	Index int         `json:"index,omitempty" yaml:"index"`
}

func Literal(text string) Operand {
	return Operand{Kind: OperandLiteral, Text: text}
}

func Param(index int) Operand {
	return Operand{Kind: OperandParam, Index: index}
}

func Now() Operand {
	return Operand{Kind: OperandNow}
}

// Predicate is one top-level conjunct of the WHERE clause. Between keeps
// the lower bound first.
type Predicate struct {
	Column   Column      `json:"column" yaml:"column"`
	Op       PredicateOp `json:"op" yaml:"op"`
	Operands []Operand   `json:"operands" yaml:"operands"`
	Type     ValueType   `json:"type,omitempty" yaml:"type"`
}
