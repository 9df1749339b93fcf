package coral

import (
	"encoding/json"
	"fmt"
)

// The query intermediate representation shared with the service.
// Expressions are immutable values built bottom-up. Every comparison has a
// column reference on the left and a literal on the right; there are no
// column-to-column comparisons.

type ExprKind string

const (
	ExprColumn             ExprKind = "col"
	ExprLiteral            ExprKind = "lit"
	ExprEqual              ExprKind = "eq"
	ExprNotEqual           ExprKind = "neq"
	ExprLessThan           ExprKind = "lt"
	ExprLessThanOrEqual    ExprKind = "lte"
	ExprGreaterThan        ExprKind = "gt"
	ExprGreaterThanOrEqual ExprKind = "gte"
	ExprAnd                ExprKind = "and"
	ExprOr                 ExprKind = "or"
	ExprNot                ExprKind = "not"
)

type LiteralType string

const (
	LiteralNull   LiteralType = "null"
	LiteralBool   LiteralType = "bool"
	LiteralInt    LiteralType = "int"
	LiteralDouble LiteralType = "double"
	LiteralString LiteralType = "string"
	LiteralBinary LiteralType = "binary"
	LiteralArray  LiteralType = "array"
)

type Literal struct {
	Type   LiteralType
	Bool   bool
	Int    int64
	Double float64
	String string
	Binary []byte
	Array  []*Literal
}

func Null() *Literal {
	return &Literal{Type: LiteralNull}
}

func Bool(value bool) *Literal {
	return &Literal{Type: LiteralBool, Bool: value}
}

func Int(value int64) *Literal {
	return &Literal{Type: LiteralInt, Int: value}
}

func Double(value float64) *Literal {
	return &Literal{Type: LiteralDouble, Double: value}
}

func String(value string) *Literal {
	return &Literal{Type: LiteralString, String: value}
}

func Binary(value []byte) *Literal {
	return &Literal{Type: LiteralBinary, Binary: value}
}

func Array(items ...*Literal) *Literal {
	return &Literal{Type: LiteralArray, Array: items}
}

// LiteralOf converts a plain Go value to a literal.
func LiteralOf(value any) (*Literal, error) {
	switch v := value.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case float32:
		return Double(float64(v)), nil
	case float64:
		return Double(v), nil
	case string:
		return String(v), nil
	case []byte:
		return Binary(v), nil
	case *Literal:
		return v, nil
	case []any:
		items := make([]*Literal, len(v))
		for i, item := range v {
			literal, err := LiteralOf(item)
			if err != nil {
				return nil, err
			}
			items[i] = literal
		}
		return Array(items...), nil
	default:
		return nil, fmt.Errorf("no literal representation for %T", value)
	}
}

func RequireLiteralOf(value any) *Literal {
	literal, err := LiteralOf(value)
	if err != nil {
		panic(err)
	}
	return literal
}

type Expr struct {
	Kind    ExprKind
	Column  string
	Literal *Literal
	Left    *Expr
	Right   *Expr
	Operand *Expr
}

func Col(name string) *Expr {
	return &Expr{Kind: ExprColumn, Column: name}
}

func Lit(literal *Literal) *Expr {
	return &Expr{Kind: ExprLiteral, Literal: literal}
}

func compare(kind ExprKind, column string, value *Literal) *Expr {
	return &Expr{
		Kind:  kind,
		Left:  Col(column),
		Right: Lit(value),
	}
}

func Equal(column string, value *Literal) *Expr {
	return compare(ExprEqual, column, value)
}

func NotEqual(column string, value *Literal) *Expr {
	return compare(ExprNotEqual, column, value)
}

func LessThan(column string, value *Literal) *Expr {
	return compare(ExprLessThan, column, value)
}

func LessThanOrEqual(column string, value *Literal) *Expr {
	return compare(ExprLessThanOrEqual, column, value)
}

func GreaterThan(column string, value *Literal) *Expr {
	return compare(ExprGreaterThan, column, value)
}

func GreaterThanOrEqual(column string, value *Literal) *Expr {
	return compare(ExprGreaterThanOrEqual, column, value)
}

func And(left *Expr, right *Expr) *Expr {
	return &Expr{Kind: ExprAnd, Left: left, Right: right}
}

func Or(left *Expr, right *Expr) *Expr {
	return &Expr{Kind: ExprOr, Left: left, Right: right}
}

func Not(operand *Expr) *Expr {
	return &Expr{Kind: ExprNot, Operand: operand}
}

type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// SortKey order in a request defines tie-break precedence,
// first entry highest.
type SortKey struct {
	Column    string        `json:"column"`
	Direction SortDirection `json:"direction"`
}

// wire form

type literalWire struct {
	Type  LiteralType     `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

func (self *Literal) MarshalJSON() ([]byte, error) {
	wire := literalWire{Type: self.Type}
	var err error
	switch self.Type {
	case LiteralNull:
		// no value
	case LiteralBool:
		wire.Value, err = json.Marshal(self.Bool)
	case LiteralInt:
		wire.Value, err = json.Marshal(self.Int)
	case LiteralDouble:
		wire.Value, err = json.Marshal(self.Double)
	case LiteralString:
		wire.Value, err = json.Marshal(self.String)
	case LiteralBinary:
		// []byte marshals as base64
		wire.Value, err = json.Marshal(self.Binary)
	case LiteralArray:
		wire.Value, err = json.Marshal(self.Array)
	default:
		err = fmt.Errorf("unknown literal type %s", self.Type)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(wire)
}

func (self *Literal) UnmarshalJSON(src []byte) error {
	wire := literalWire{}
	if err := json.Unmarshal(src, &wire); err != nil {
		return err
	}
	*self = Literal{Type: wire.Type}
	switch wire.Type {
	case LiteralNull:
		return nil
	case LiteralBool:
		return json.Unmarshal(wire.Value, &self.Bool)
	case LiteralInt:
		return json.Unmarshal(wire.Value, &self.Int)
	case LiteralDouble:
		return json.Unmarshal(wire.Value, &self.Double)
	case LiteralString:
		return json.Unmarshal(wire.Value, &self.String)
	case LiteralBinary:
		return json.Unmarshal(wire.Value, &self.Binary)
	case LiteralArray:
		return json.Unmarshal(wire.Value, &self.Array)
	default:
		return fmt.Errorf("unknown literal type %s", wire.Type)
	}
}

type exprWire struct {
	Kind    ExprKind        `json:"kind"`
	Name    string          `json:"name,omitempty"`
	Literal json.RawMessage `json:"literal,omitempty"`
	Left    *Expr           `json:"left,omitempty"`
	Right   *Expr           `json:"right,omitempty"`
	Operand *Expr           `json:"operand,omitempty"`
}

func (self *Expr) MarshalJSON() ([]byte, error) {
	wire := exprWire{Kind: self.Kind}
	switch self.Kind {
	case ExprColumn:
		wire.Name = self.Column
	case ExprLiteral:
		literalBytes, err := json.Marshal(self.Literal)
		if err != nil {
			return nil, err
		}
		wire.Literal = literalBytes
	case ExprNot:
		wire.Operand = self.Operand
	case ExprEqual, ExprNotEqual, ExprLessThan, ExprLessThanOrEqual,
		ExprGreaterThan, ExprGreaterThanOrEqual, ExprAnd, ExprOr:
		wire.Left = self.Left
		wire.Right = self.Right
	default:
		return nil, fmt.Errorf("unknown expr kind %s", self.Kind)
	}
	return json.Marshal(wire)
}

func (self *Expr) UnmarshalJSON(src []byte) error {
	wire := exprWire{}
	if err := json.Unmarshal(src, &wire); err != nil {
		return err
	}
	*self = Expr{Kind: wire.Kind}
	switch wire.Kind {
	case ExprColumn:
		self.Column = wire.Name
	case ExprLiteral:
		literal := &Literal{}
		if err := json.Unmarshal(wire.Literal, literal); err != nil {
			return err
		}
		self.Literal = literal
	case ExprNot:
		self.Operand = wire.Operand
	case ExprEqual, ExprNotEqual, ExprLessThan, ExprLessThanOrEqual,
		ExprGreaterThan, ExprGreaterThanOrEqual, ExprAnd, ExprOr:
		self.Left = wire.Left
		self.Right = wire.Right
	default:
		return fmt.Errorf("unknown expr kind %s", wire.Kind)
	}
	return nil
}

func (self *Expr) String() string {
	switch self.Kind {
	case ExprColumn:
		return self.Column
	case ExprLiteral:
		return fmt.Sprintf("%v", self.Literal)
	case ExprNot:
		return fmt.Sprintf("not(%s)", self.Operand)
	default:
		return fmt.Sprintf("%s(%s, %s)", self.Kind, self.Left, self.Right)
	}
}
