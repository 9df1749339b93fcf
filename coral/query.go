package coral

import (
	"context"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Result is one page of typed query results.
type Result[T Record] struct {
	Items []T
	// opaque cursor resuming after the last returned item
	Continuation string
}

func (self *Result[T]) HasMore() bool {
	return self.Continuation != ""
}

// Query is an immutable, chainable fetch request against one collection.
// Every chain method returns a new value with one field changed; nothing
// touches the network until a terminal method runs.
type Query[T Record] struct {
	session *Session
	request FetchRequest
}

// Find starts a query against the collection of the record type.
func Find[T Record](session *Session) Query[T] {
	var zero T
	return Query[T]{
		session: session,
		request: FetchRequest{
			Collection: zero.CollectionName(),
		},
	}
}

// Where composes with any existing predicate using logical AND,
// existing expression on the left.
func (self Query[T]) Where(predicate *Expr) Query[T] {
	if self.request.Predicate == nil {
		self.request.Predicate = predicate
	} else {
		self.request.Predicate = And(self.request.Predicate, predicate)
	}
	return self
}

func (self Query[T]) Sort(sortKey SortKey) Query[T] {
	sortKeys := slices.Clone(self.request.SortKeys)
	self.request.SortKeys = append(sortKeys, sortKey)
	return self
}

func (self Query[T]) Limit(limit int) Query[T] {
	self.request.Limit = &limit
	return self
}

func (self Query[T]) Continuation(continuation string) Query[T] {
	self.request.Continuation = continuation
	return self
}

func (self Query[T]) Partition(partitionValues PartitionValues) Query[T] {
	merged := maps.Clone(self.request.PartitionValues)
	if merged == nil {
		merged = PartitionValues{}
	}
	maps.Copy(merged, partitionValues)
	self.request.PartitionValues = merged
	return self
}

// Request exposes the assembled fetch request.
func (self Query[T]) Request() FetchRequest {
	return self.request
}

// Execute round-trips the fetch and decodes each record to the typed form.
func (self Query[T]) Execute(ctx context.Context) (*Result[T], error) {
	response, err := self.session.call(ctx, OpFetch, &self.request)
	if err != nil {
		return nil, err
	}
	fetchResult, err := DecodePayload[FetchResult](response)
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, len(fetchResult.Records))
	for _, fields := range fetchResult.Records {
		item, err := DecodeRecord[T](fields)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return &Result[T]{
		Items:        items,
		Continuation: fetchResult.Continuation,
	}, nil
}

// Count sends only the collection, predicate, and partition values.
func (self Query[T]) Count(ctx context.Context) (int64, error) {
	countRequest := &CountRequest{
		Collection:      self.request.Collection,
		Predicate:       self.request.Predicate,
		PartitionValues: self.request.PartitionValues,
	}
	response, err := self.session.call(ctx, OpCount, countRequest)
	if err != nil {
		return 0, err
	}
	countResult, err := DecodePayload[CountResult](response)
	if err != nil {
		return 0, err
	}
	return countResult.Count, nil
}

// First executes with limit 1 and surfaces the first item, if any.
// No other builder state changes.
func (self Query[T]) First(ctx context.Context) (T, bool, error) {
	var zero T
	result, err := self.Limit(1).Execute(ctx)
	if err != nil {
		return zero, false, err
	}
	if len(result.Items) == 0 {
		return zero, false, nil
	}
	return result.Items[0], true, nil
}
