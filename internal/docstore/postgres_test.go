package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePostgresQuery(t *testing.T) {
	tests := []struct {
		name      string
		query     Query
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "empty query adds no terms",
			query:     Query{},
			wantWhere: "",
		},
		{
			name:      "eq compiles to containment",
			query:     Where(Eq("name", "Alpha")),
			wantWhere: " AND (doc @> $3::jsonb)",
			wantArgs:  []any{`{"name":"Alpha"}`},
		},
		{
			name:      "nested path nests the value",
			query:     Where(Eq("type.id", "web-app")),
			wantWhere: " AND (doc @> $3::jsonb)",
			wantArgs:  []any{`{"type":{"id":"web-app"}}`},
		},
		{
			name:      "membership expands to one containment per value",
			query:     Where(In("id", "p-1", "p-2")),
			wantWhere: " AND ((doc @> $3::jsonb OR doc @> $4::jsonb))",
			wantArgs:  []any{`{"id":"p-1"}`, `{"id":"p-2"}`},
		},
		{
			name:      "id or name clause",
			query:     WhereAny(In("id", "p-1"), In("name", "Alpha")),
			wantWhere: " AND ((doc @> $3::jsonb) OR (doc @> $4::jsonb))",
			wantArgs:  []any{`{"id":"p-1"}`, `{"name":"Alpha"}`},
		},
		{
			name:      "empty membership matches nothing",
			query:     Where(In("id")),
			wantWhere: " AND (FALSE)",
		},
		{
			name:      "contains wraps the value in an array",
			query:     Where(Contains("type.providers", map[string]any{"id": "azure.appservice"})),
			wantWhere: " AND (doc @> $3::jsonb)",
			wantArgs:  []any{`{"type":{"providers":[{"id":"azure.appservice"}]}}`},
		},
		{
			name:      "clauses join with AND",
			query:     Where(Eq("type.id", "web-app"), Eq("name", "Alpha")),
			wantWhere: " AND (doc @> $3::jsonb) AND (doc @> $4::jsonb)",
			wantArgs:  []any{`{"type":{"id":"web-app"}}`, `{"name":"Alpha"}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args, err := compilePostgresQuery(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestCompilePostgresQueryRejectsInvalidPath(t *testing.T) {
	_, _, err := compilePostgresQuery(Where(Eq("doc'; DROP TABLE documents; --", "x")))
	assert.ErrorContains(t, err, "invalid document path")

	// Hostile values stay inside bound parameters.
	where, args, err := compilePostgresQuery(Where(Eq("name", "'; DROP TABLE documents; --")))
	require.NoError(t, err)
	assert.Equal(t, " AND (doc @> $3::jsonb)", where)
	assert.Equal(t, []any{`{"name":"'; DROP TABLE documents; --"}`}, args)
}
