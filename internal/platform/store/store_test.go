package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIn_ConvertsValues(t *testing.T) {
	f := In("id", []string{"a", "b"})
	assert.Equal(t, OpIn, f.Op)
	assert.Equal(t, []any{"a", "b"}, f.Value)
}

func TestQueryBuilders_DoNotAlias(t *testing.T) {
	base := Where(Eq("user_id", "u1")).OrderBy(Desc("created_at"))
	a := base.With(HasMany("order_items", "order_items", "order_id"))
	b := base.With(BelongsTo("doctor", "doctors", "doctor_id"))

	assert.Len(t, base.Expand, 0)
	assert.Equal(t, "order_items", a.Expand[0].Name)
	assert.Equal(t, "doctor", b.Expand[0].Name)
	assert.True(t, a.Expand[0].Many)
	assert.False(t, b.Expand[0].Many)
}

func TestContains_EscapesWildcards(t *testing.T) {
	assert.Equal(t, "%cardio%", Contains("cardio"))
	assert.Equal(t, `%50\%\_off%`, Contains("50%_off"))
}
