package coral

// operation payload shapes carried in the envelope payload

// PartitionValues selects a logical shard/tenant scope for a
// multi-tenant collection.
type PartitionValues = map[string]any

// FetchRequest is the body of a `fetch` operation. Immutable by convention:
// the query builder copies the whole value on every chain call, so
// concurrently held builders never interfere.
type FetchRequest struct {
	Collection      string          `json:"collection"`
	Predicate       *Expr           `json:"predicate,omitempty"`
	SortKeys        []SortKey       `json:"sort_keys,omitempty"`
	Limit           *int            `json:"limit,omitempty"`
	Continuation    string          `json:"continuation,omitempty"`
	PartitionValues PartitionValues `json:"partition_values,omitempty"`
}

type FetchResult struct {
	Records      []FieldMap `json:"records"`
	Continuation string     `json:"continuation,omitempty"`
}

type GetRequest struct {
	Collection      string          `json:"collection"`
	Id              string          `json:"id"`
	PartitionValues PartitionValues `json:"partition_values,omitempty"`
}

type GetResult struct {
	// absent record in a success response means not found
	Record FieldMap `json:"record,omitempty"`
}

type SaveRequest struct {
	Changes []*Change `json:"changes"`
}

// count is not meaningful with sort, limit, or continuation,
// so its request shape cannot carry them
type CountRequest struct {
	Collection      string          `json:"collection"`
	Predicate       *Expr           `json:"predicate,omitempty"`
	PartitionValues PartitionValues `json:"partition_values,omitempty"`
}

type CountResult struct {
	Count int64 `json:"count"`
}

type SchemaResult struct {
	Entities []*EntityDescriptor `json:"entities"`
}
