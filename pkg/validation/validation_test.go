package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Title    string   `json:"title" validate:"required"`
	Priority string   `json:"priority,omitempty" validate:"omitempty,oneof=low high"`
	Assigned []string `json:"assignedTo" validate:"required,min=1"`
	Internal string   `json:"-" validate:"required"`
}

func TestFieldsUseJSONNames(t *testing.T) {
	err := New().Struct(payload{Priority: "bogus", Internal: "x"})
	require.Error(t, err)

	fields := Fields(err)
	assert.Equal(t, []FieldError{
		{Field: "title", Tag: "required"},
		{Field: "priority", Tag: "oneof"},
		{Field: "assignedTo", Tag: "required"},
	}, fields)
}

func TestFieldsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, Fields(assert.AnError))
}

func TestValidID(t *testing.T) {
	for _, id := range []string{"user1", "01JABCDEF", "alice@example.com", "a.b"} {
		assert.True(t, ValidID(id), id)
	}
	for _, id := range []string{"", ".", "..", "../users/user1", "./user1", `a\b`, "a\nb"} {
		assert.False(t, ValidID(id), id)
	}
}

func TestDocIDRule(t *testing.T) {
	type req struct {
		ID string `json:"id" validate:"omitempty,docid"`
	}
	v := New()
	assert.NoError(t, v.Struct(req{}))
	assert.NoError(t, v.Struct(req{ID: "user1"}))
	assert.Equal(t, []FieldError{{Field: "id", Tag: "docid"}}, Fields(v.Struct(req{ID: "../x"})))
}
