package change

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectionIsMirroredIntoAssociatedAssets(t *testing.T) {
	f := NewForm(nil)

	f.Select(30)
	f.Select(20)
	f.Select(30)
	assert.Equal(t, []int64{30, 20}, f.Selected())
	assert.Equal(t, "[30,20]", f.Get(FieldAssociatedAssets))

	f.Deselect(30)
	assert.Equal(t, "[20]", f.Get(FieldAssociatedAssets))

	f.Deselect(20)
	assert.Equal(t, "[]", f.Get(FieldAssociatedAssets))
}

func TestResetClearsFieldsAndSelection(t *testing.T) {
	f := NewForm(map[string]string{FieldSubject: "x"})
	f.Select(1)

	f.Reset()

	assert.Empty(t, f.Values())
	assert.Empty(t, f.Selected())
}

func TestValuesIsACopy(t *testing.T) {
	f := NewForm(map[string]string{FieldSubject: "x"})

	values := f.Values()
	values[FieldSubject] = "changed"

	assert.Equal(t, "x", f.Get(FieldSubject))
}
