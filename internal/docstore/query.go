package docstore

import (
	"fmt"
	"regexp"
	"strings"
)

// Op is a comparison operator supported by the structured query model.
type Op string

const (
	// OpEq matches documents whose value at Path equals Value.
	OpEq Op = "eq"
	// OpIn matches documents whose value at Path equals any of Values.
	// An empty value set matches nothing.
	OpIn Op = "in"
	// OpContains matches documents whose array at Path contains Value.
	// Map values match elements partially: an element matches when it
	// carries every field of Value with an equal value.
	OpContains Op = "contains"
)

// Condition is a single predicate over a document path.
//
// Path is a dot-separated document path ("name", "type.id",
// "type.providers"). Path segments are restricted to identifier characters
// and validated at compile time, because backends splice them into query
// text. Values never reach query text: every backend binds them as query
// parameters.
type Condition struct {
	Path   string
	Op     Op
	Value  any      // OpEq, OpContains
	Values []string // OpIn
}

// Eq builds an equality condition.
func Eq(path string, value any) Condition {
	return Condition{Path: path, Op: OpEq, Value: value}
}

// In builds a set-membership condition. An empty value set matches nothing.
func In(path string, values ...string) Condition {
	return Condition{Path: path, Op: OpIn, Values: values}
}

// Contains builds an array-containment condition. A map value matches
// elements partially: every field of the map must match.
func Contains(path string, value any) Condition {
	return Condition{Path: path, Op: OpContains, Value: value}
}

// Clause is a disjunction: it matches when any of its conditions matches.
type Clause struct {
	Any []Condition
}

// Query is a conjunction of clauses. An empty query matches every document
// in the queried partition.
type Query struct {
	Clauses []Clause
}

// Where builds a query requiring every given condition to match.
func Where(conditions ...Condition) Query {
	query := Query{Clauses: make([]Clause, 0, len(conditions))}
	for _, condition := range conditions {
		query.Clauses = append(query.Clauses, Clause{Any: []Condition{condition}})
	}
	return query
}

// WhereAny builds a query with a single clause matching any given condition.
func WhereAny(conditions ...Condition) Query {
	return Query{Clauses: []Clause{{Any: conditions}}}
}

var pathSegmentPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// splitPath validates a dot-separated document path and returns its
// segments. Rejecting anything outside identifier characters keeps caller
// input out of query text entirely.
func splitPath(path string) ([]string, error) {
	segments := strings.Split(path, ".")
	for _, segment := range segments {
		if !pathSegmentPattern.MatchString(segment) {
			return nil, fmt.Errorf("invalid document path %q", path)
		}
	}
	return segments, nil
}
