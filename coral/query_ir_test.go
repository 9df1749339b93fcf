package coral

import (
	"encoding/json"
	"flag"
	"testing"

	"github.com/go-playground/assert/v2"
)

func init() {
	initGlog()
}

func initGlog() {
	flag.Set("logtostderr", "true")
	flag.Set("stderrthreshold", "INFO")
	flag.Set("v", "0")
}

func roundTrip(t *testing.T, expr *Expr) {
	exprJson, err := json.Marshal(expr)
	assert.Equal(t, err, nil)

	decoded := &Expr{}
	err = json.Unmarshal(exprJson, decoded)
	assert.Equal(t, err, nil)

	assert.Equal(t, decoded, expr)
}

func TestExprRoundTrip(t *testing.T) {
	// every literal variant
	roundTrip(t, Equal("a", Null()))
	roundTrip(t, Equal("a", Bool(true)))
	roundTrip(t, Equal("a", Int(42)))
	roundTrip(t, Equal("a", Double(2.5)))
	roundTrip(t, Equal("a", String("hello")))
	roundTrip(t, Equal("a", Binary([]byte{0x01, 0x02, 0xff})))
	roundTrip(t, Equal("a", Array(Int(1), String("two"), Null())))

	// every comparison variant
	roundTrip(t, NotEqual("a", Int(1)))
	roundTrip(t, LessThan("a", Int(1)))
	roundTrip(t, LessThanOrEqual("a", Int(1)))
	roundTrip(t, GreaterThan("a", Int(1)))
	roundTrip(t, GreaterThanOrEqual("a", Int(1)))

	// nested composition
	roundTrip(t, And(
		Or(
			Equal("a", Int(1)),
			Not(Equal("b", String("x"))),
		),
		Not(And(
			GreaterThan("c", Double(0.5)),
			LessThanOrEqual("d", Int(100)),
		)),
	))
}

func TestExprIntDoubleDistinct(t *testing.T) {
	// int and double stay distinct through the wire form
	intJson, err := json.Marshal(Lit(Int(1)))
	assert.Equal(t, err, nil)

	decoded := &Expr{}
	err = json.Unmarshal(intJson, decoded)
	assert.Equal(t, err, nil)
	assert.Equal(t, decoded.Literal.Type, LiteralInt)
	assert.Equal(t, decoded.Literal.Int, int64(1))

	doubleJson, err := json.Marshal(Lit(Double(1)))
	assert.Equal(t, err, nil)

	decoded = &Expr{}
	err = json.Unmarshal(doubleJson, decoded)
	assert.Equal(t, err, nil)
	assert.Equal(t, decoded.Literal.Type, LiteralDouble)
	assert.Equal(t, decoded.Literal.Double, float64(1))
}

func TestComparisonShape(t *testing.T) {
	// left operand is always a column reference, right always a literal
	expr := GreaterThan("age", Int(20))
	assert.Equal(t, expr.Kind, ExprGreaterThan)
	assert.Equal(t, expr.Left.Kind, ExprColumn)
	assert.Equal(t, expr.Left.Column, "age")
	assert.Equal(t, expr.Right.Kind, ExprLiteral)
	assert.Equal(t, expr.Right.Literal, Int(20))
}

func TestLiteralOf(t *testing.T) {
	assert.Equal(t, RequireLiteralOf(nil), Null())
	assert.Equal(t, RequireLiteralOf(true), Bool(true))
	assert.Equal(t, RequireLiteralOf(7), Int(7))
	assert.Equal(t, RequireLiteralOf(int32(7)), Int(7))
	assert.Equal(t, RequireLiteralOf(int64(7)), Int(7))
	assert.Equal(t, RequireLiteralOf(float64(1.5)), Double(1.5))
	assert.Equal(t, RequireLiteralOf("x"), String("x"))
	assert.Equal(t, RequireLiteralOf([]byte{1}), Binary([]byte{1}))
	assert.Equal(t, RequireLiteralOf([]any{1, "x"}), Array(Int(1), String("x")))

	_, err := LiteralOf(struct{}{})
	assert.NotEqual(t, err, nil)
}

func TestFieldComparisons(t *testing.T) {
	age := NewOrderedField[testUser, int]("age")
	name := NewField[testUser, string]("name")

	assert.Equal(t, age.Gt(20), GreaterThan("age", Int(20)))
	assert.Equal(t, age.Gte(20), GreaterThanOrEqual("age", Int(20)))
	assert.Equal(t, age.Lt(20), LessThan("age", Int(20)))
	assert.Equal(t, age.Lte(20), LessThanOrEqual("age", Int(20)))
	assert.Equal(t, age.Eq(20), Equal("age", Int(20)))
	assert.Equal(t, age.Neq(20), NotEqual("age", Int(20)))

	assert.Equal(t, name.Eq("Alice"), Equal("name", String("Alice")))
	assert.Equal(t, name.IsNull(), Equal("name", Null()))

	assert.Equal(t, name.Asc(), SortKey{Column: "name", Direction: Ascending})
	assert.Equal(t, name.Desc(), SortKey{Column: "name", Direction: Descending})
}
