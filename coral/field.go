package coral

import (
	"golang.org/x/exp/constraints"
)

// Field is a typed accessor token: a compile-time handle tying an owning
// record type to a value type and a stable field name. Comparisons built
// through a field can only be given values of the field's type.
type Field[T Record, V any] struct {
	name string
}

func NewField[T Record, V any](name string) Field[T, V] {
	return Field[T, V]{
		name: name,
	}
}

func (self Field[T, V]) Name() string {
	return self.name
}

func (self Field[T, V]) Eq(value V) *Expr {
	return Equal(self.name, RequireLiteralOf(any(value)))
}

func (self Field[T, V]) Neq(value V) *Expr {
	return NotEqual(self.name, RequireLiteralOf(any(value)))
}

func (self Field[T, V]) IsNull() *Expr {
	return Equal(self.name, Null())
}

func (self Field[T, V]) Asc() SortKey {
	return SortKey{Column: self.name, Direction: Ascending}
}

func (self Field[T, V]) Desc() SortKey {
	return SortKey{Column: self.name, Direction: Descending}
}

// OrderedField additionally offers the ordering comparisons. Only value
// types with a total order can instantiate it, so `Lt` on a bool or binary
// field is a compile error rather than a runtime one.
type OrderedField[T Record, V constraints.Ordered] struct {
	Field[T, V]
}

func NewOrderedField[T Record, V constraints.Ordered](name string) OrderedField[T, V] {
	return OrderedField[T, V]{
		Field: NewField[T, V](name),
	}
}

func (self OrderedField[T, V]) Lt(value V) *Expr {
	return LessThan(self.name, RequireLiteralOf(any(value)))
}

func (self OrderedField[T, V]) Lte(value V) *Expr {
	return LessThanOrEqual(self.name, RequireLiteralOf(any(value)))
}

func (self OrderedField[T, V]) Gt(value V) *Expr {
	return GreaterThan(self.name, RequireLiteralOf(any(value)))
}

func (self OrderedField[T, V]) Gte(value V) *Expr {
	return GreaterThanOrEqual(self.name, RequireLiteralOf(any(value)))
}
