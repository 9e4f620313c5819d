package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	schema "github.com/hanpama/envelop/internal/schema"
)

const catalogSDL = `
type Query {
  title: String
  author: String
  isbn: String
  shelf: Shelf
  item: Node
}

type Mutation {
  reserve: String
  renew: String
  release: String
}

type Shelf {
  book(lang: String): Book
}

type Book {
  title: String
  year: String
}

interface Node {
  id: ID
}

type Copy implements Node {
  id: ID
}
`

func newCatalogRuntime() *MockRuntime {
	return NewMockRuntime(map[string]MockResolver{
		"Query.title":  NewMockValueResolver("Dune"),
		"Query.author": NewMockValueResolver("Herbert"),
		"Query.isbn":   NewMockValueResolver("0441013597"),
	})
}

func calledFields(calls []Call) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.ObjectType + "." + c.Field
	}
	return out
}

func TestExecuteRequest_OperationSelection(t *testing.T) {
	notFound := &ExecutionResult{Errors: []GraphQLError{{Message: "operation not found"}}}
	tests := []struct {
		name      string
		query     string
		operation string
		want      *ExecutionResult
	}{
		{
			name:  "anonymous",
			query: "{ title }",
			want:  &ExecutionResult{Data: map[string]any{"title": "Dune"}, Errors: []GraphQLError{}},
		},
		{
			name:  "single named without name",
			query: "query Only { title }",
			want:  &ExecutionResult{Data: map[string]any{"title": "Dune"}, Errors: []GraphQLError{}},
		},
		{
			name:      "named among many",
			query:     "query A { title } query B { author }",
			operation: "B",
			want:      &ExecutionResult{Data: map[string]any{"author": "Herbert"}, Errors: []GraphQLError{}},
		},
		{name: "no operations", query: "fragment F on Query { title }", want: notFound},
		{name: "ambiguous", query: "query A { title } query B { author }", want: notFound},
		{name: "unknown name", query: "query A { title }", operation: "Z", want: notFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := NewExecutor(newCatalogRuntime(), mustBuildSchema(t, catalogSDL))
			got := exec.ExecuteRequest(context.Background(), mustParseQuery(t, tt.query), tt.operation, nil, nil)
			if diff := cmp.Diff(tt.want, got, ignoreOriginalError); diff != "" {
				t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExecuteRequest_FieldCollection(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantData  map[string]any
		wantCalls []string
	}{
		{
			name: "fragments merge into one resolve",
			query: `{ title ...F ...G }
fragment F on Query { title __typename }
fragment G on Query { __typename }`,
			wantData:  map[string]any{"title": "Dune", "__typename": "Query"},
			wantCalls: []string{"Query.title"},
		},
		{
			name:      "field directives",
			query:     "{ title author @skip(if: true) isbn @include(if: false) }",
			wantData:  map[string]any{"title": "Dune"},
			wantCalls: []string{"Query.title"},
		},
		{
			name: "spread directives",
			query: `{ title ...A @include(if: true) ...B @skip(if: true) }
fragment A on Query { author }
fragment B on Query { isbn }`,
			wantData:  map[string]any{"title": "Dune", "author": "Herbert"},
			wantCalls: []string{"Query.title", "Query.author"},
		},
		{
			name:      "typed inline fragments",
			query:     "{ title ... on Query @include(if: true) { author } ... on Query @skip(if: true) { isbn } }",
			wantData:  map[string]any{"title": "Dune", "author": "Herbert"},
			wantCalls: []string{"Query.title", "Query.author"},
		},
		{
			name:      "untyped inline fragments",
			query:     "{ isbn ... @include(if: true) { title } ... @skip(if: true) { author } }",
			wantData:  map[string]any{"isbn": "0441013597", "title": "Dune"},
			wantCalls: []string{"Query.isbn", "Query.title"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newCatalogRuntime()
			exec := NewExecutor(rt, mustBuildSchema(t, catalogSDL))
			got := exec.ExecuteRequest(context.Background(), mustParseQuery(t, tt.query), "", nil, nil)
			if len(got.Errors) != 0 {
				t.Fatalf("unexpected errors: %v", got.Errors)
			}
			if diff := cmp.Diff(tt.wantData, got.Data); diff != "" {
				t.Fatalf("data mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantCalls, calledFields(rt.GetCalls())); diff != "" {
				t.Fatalf("resolved fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExecuteRequest_SyncFieldsBeforeBatch(t *testing.T) {
	s := mustBuildSchema(t, catalogSDL)
	s.Field("Query", "author").SetAsync(true)
	s.Field("Query", "isbn").SetAsync(true)
	rt := newCatalogRuntime()

	got := NewExecutor(rt, s).ExecuteRequest(context.Background(), mustParseQuery(t, "{ author title isbn }"), "", nil, nil)

	want := &ExecutionResult{
		Data:   map[string]any{"author": "Herbert", "title": "Dune", "isbn": "0441013597"},
		Errors: []GraphQLError{},
	}
	if diff := cmp.Diff(want, got, ignoreOriginalError); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	wantCalls := []Call{
		{Kind: CallKindSync, ObjectType: "Query", Field: "title", Args: map[string]any{}},
		{Kind: CallKindAsync, ObjectType: "Query", Field: "author", Args: map[string]any{}, BatchID: 1},
		{Kind: CallKindAsync, ObjectType: "Query", Field: "isbn", Args: map[string]any{}, BatchID: 1},
	}
	if diff := cmp.Diff(wantCalls, rt.GetCalls()); diff != "" {
		t.Fatalf("Runtime calls mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteRequest_BatchFailureIsPartial(t *testing.T) {
	s := mustBuildSchema(t, catalogSDL)
	s.Field("Query", "title").SetAsync(true)
	s.Field("Query", "author").SetAsync(true)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.title":  NewMockErrorResolver(errors.New("catalog offline")),
		"Query.author": NewMockValueResolver("Herbert"),
	})

	got := NewExecutor(rt, s).ExecuteRequest(context.Background(), mustParseQuery(t, "{ title author }"), "", nil, nil)

	want := &ExecutionResult{
		Data:   map[string]any{"title": nil, "author": "Herbert"},
		Errors: []GraphQLError{{Message: "catalog offline", Path: Path{"title"}}},
	}
	if diff := cmp.Diff(want, got, ignoreOriginalError); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteRequest_NestedSourceAndArgs(t *testing.T) {
	shelf := map[string]any{"floor": 2}
	book := map[string]any{"id": "b1"}
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.shelf": NewMockValueResolver(shelf),
		"Shelf.book":  NewMockValueResolver(book),
		"Book.title":  NewMockValueResolver("Dune"),
		"Book.year":   NewMockValueResolver("1965"),
	})

	doc := mustParseQuery(t, `{ shelf { book(lang: "en") { title } book(lang: "en") { year } } }`)
	got := NewExecutor(rt, mustBuildSchema(t, catalogSDL)).ExecuteRequest(context.Background(), doc, "", nil, nil)

	want := &ExecutionResult{
		Data:   map[string]any{"shelf": map[string]any{"book": map[string]any{"title": "Dune", "year": "1965"}}},
		Errors: []GraphQLError{},
	}
	if diff := cmp.Diff(want, got, ignoreOriginalError); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	wantCalls := []Call{
		{Kind: CallKindSync, ObjectType: "Query", Field: "shelf", Args: map[string]any{}},
		{Kind: CallKindSync, ObjectType: "Shelf", Field: "book", Source: shelf, Args: map[string]any{"lang": "en"}},
		{Kind: CallKindSync, ObjectType: "Book", Field: "title", Source: book, Args: map[string]any{}},
		{Kind: CallKindSync, ObjectType: "Book", Field: "year", Source: book, Args: map[string]any{}},
	}
	if diff := cmp.Diff(wantCalls, rt.GetCalls()); diff != "" {
		t.Fatalf("Runtime calls mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteRequest_AbstractTypeAndLeafSerialization(t *testing.T) {
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.item": NewMockValueResolver(map[string]any{}),
		"Copy.id":    NewMockValueResolver("c1"),
	})
	var resolvedTypes, serialized int
	SetTypeResolver(rt, func(any) (string, error) { resolvedTypes++; return "Copy", nil })
	SetSerializer(rt, func(val any, _ schema.TypeRef) (any, error) { serialized++; return val.(string) + "!", nil })

	got := NewExecutor(rt, mustBuildSchema(t, catalogSDL)).ExecuteRequest(context.Background(), mustParseQuery(t, "{ item { id } }"), "", nil, nil)

	want := &ExecutionResult{Data: map[string]any{"item": map[string]any{"id": "c1!"}}, Errors: []GraphQLError{}}
	if diff := cmp.Diff(want, got, ignoreOriginalError); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	if resolvedTypes != 1 || serialized != 1 {
		t.Fatalf("expected one type resolution and one serialization, got %d and %d", resolvedTypes, serialized)
	}
}

func TestExecuteRequest_MutationRunsInOrder(t *testing.T) {
	var order []string
	step := func(name string, err error) MockResolver {
		return func(context.Context, any, map[string]any) (any, error) {
			order = append(order, name)
			if err != nil {
				return nil, err
			}
			return name, nil
		}
	}
	rt := NewMockRuntime(map[string]MockResolver{
		"Mutation.reserve": step("reserve", nil),
		"Mutation.renew":   step("renew", errors.New("limit reached")),
		"Mutation.release": step("release", nil),
	})

	doc := mustParseQuery(t, "mutation { reserve renew release }")
	got := NewExecutor(rt, mustBuildSchema(t, catalogSDL)).ExecuteRequest(context.Background(), doc, "", nil, nil)

	want := &ExecutionResult{
		Data:   map[string]any{"reserve": "reserve", "renew": nil, "release": "release"},
		Errors: []GraphQLError{{Message: "limit reached", Path: Path{"renew"}}},
	}
	if diff := cmp.Diff(want, got, ignoreOriginalError); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"reserve", "renew", "release"}, order); diff != "" {
		t.Fatalf("mutation order mismatch (-want +got):\n%s", diff)
	}
}
