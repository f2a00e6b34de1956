package search

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery_Absent(t *testing.T) {
	for _, raw := range []string{"", "  ", "null"} {
		q, err := ParseQuery([]byte(raw))
		require.NoError(t, err)
		assert.Nil(t, q)
	}
}

func TestParseQuery_Clauses(t *testing.T) {
	q, err := ParseQuery([]byte(`[
		{"all": "foo", "weights": {"subject": 5, "body": 1.5}},
		{"thread_id": "abc", "target": "thread"}
	]`))
	require.NoError(t, err)
	require.Len(t, q.Clauses, 2)

	first := q.Clauses[0]
	assert.Equal(t, map[string]interface{}{"all": "foo"}, first.Fields)
	assert.Equal(t, map[string]float64{"subject": 5, "body": 1.5}, first.Weights)
	assert.Equal(t, EntityType(""), first.Target)

	second := q.Clauses[1]
	assert.Equal(t, []string{"thread_id"}, second.FieldNames())
	assert.Equal(t, EntityThread, second.Target)
}

func TestParseQuery_NumbersKeepLiteral(t *testing.T) {
	q, err := ParseQuery([]byte(`[{"version": 3, "files": [1, "a.pdf"]}]`))
	require.NoError(t, err)

	assert.Equal(t, json.Number("3"), q.Clauses[0].Fields["version"])

	compiled, err := NewCompiler(EntityMessage).Compile(q)
	require.NoError(t, err)
	must := compiled.(BoolQuery).Must
	assert.Equal(t, "1 a.pdf", must[0].(MatchQuery).Query)
	assert.Equal(t, json.Number("3"), must[1].(MatchQuery).Query)
}

func TestParseQuery_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `{`},
		{name: "object instead of list", raw: `{"subject": "x"}`},
		{name: "string", raw: `"subject"`},
		{name: "empty list", raw: `[]`},
		{name: "clause is not a mapping", raw: `["subject"]`},
		{name: "nested object value", raw: `[{"from": {"email": "a@b.c"}}]`},
		{name: "nested list value", raw: `[{"to": [["a"]]}]`},
		{name: "null value", raw: `[{"subject": null}]`},
		{name: "weights not a mapping", raw: `[{"all": "x", "weights": 3}]`},
		{name: "weights not numeric", raw: `[{"all": "x", "weights": {"subject": "high"}}]`},
		{name: "negative weight", raw: `[{"all": "x", "weights": {"subject": -1}}]`},
		{name: "unknown target", raw: `[{"subject": "x", "target": "contact"}]`},
		{name: "target not a string", raw: `[{"subject": "x", "target": 1}]`},
		{name: "only reserved keys", raw: `[{"weights": {"subject": 2}}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuery([]byte(tt.raw))
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestParseEntityType(t *testing.T) {
	e, err := ParseEntityType("thread")
	require.NoError(t, err)
	assert.Equal(t, EntityThread, e)
	assert.Equal(t, EntityMessage, e.Related())

	_, err = ParseEntityType("event")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestEntityFieldSets(t *testing.T) {
	assert.True(t, EntityMessage.HasField("thread_id"))
	assert.False(t, EntityMessage.HasField("participants"))
	assert.True(t, EntityThread.HasField("participants"))
	assert.False(t, EntityThread.HasField("body"))
	assert.Len(t, EntityMessage.Fields(), 15)
	assert.Len(t, EntityThread.Fields(), 7)
}
