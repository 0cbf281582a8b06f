package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optiplus/clinic-api/internal/model"
)

func entry(id int64, name string) *model.ActiveExamination {
	return &model.ActiveExamination{
		ID:     id,
		Name:   name,
		Status: model.PatientStatusPendingExamination,
	}
}

func TestSnapshotKeepsInsertionOrder(t *testing.T) {
	c := NewActiveExaminations()
	c.Put(entry(3, "Carol"))
	c.Put(entry(1, "Alice"))
	c.Put(entry(2, "Bob"))

	snap := c.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, int64(3), snap[0].ID)
	assert.Equal(t, int64(1), snap[1].ID)
	assert.Equal(t, int64(2), snap[2].ID)
}

func TestPutReplaceKeepsPosition(t *testing.T) {
	c := NewActiveExaminations()
	c.Put(entry(1, "Alice"))
	c.Put(entry(2, "Bob"))
	c.Put(entry(1, "Alice Updated"))

	snap := c.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "Alice Updated", snap[0].Name)
	assert.Equal(t, int64(2), snap[1].ID)
}

func TestPatchMergesExaminationFields(t *testing.T) {
	c := NewActiveExaminations()
	c.Put(entry(1, "Alice"))

	ok := c.Patch(1, func(e *model.ActiveExamination) {
		e.ApplyExamination(&model.Examination{
			RightSph:        "+1.25",
			LeftSph:         "+1.00",
			OptometristName: "Dr. Otieno",
		})
	})
	require.True(t, ok)

	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, model.PatientStatusExaminationComplete, got.Status)
	assert.Equal(t, "+1.25", got.RightSph)
	assert.Equal(t, "Alice", got.Name)
}

func TestPatchMissingEntry(t *testing.T) {
	c := NewActiveExaminations()
	ok := c.Patch(42, func(e *model.ActiveExamination) {
		t.Fatal("patch fn must not run for a missing entry")
	})
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	c := NewActiveExaminations()
	c.Put(entry(1, "Alice"))
	c.Put(entry(2, "Bob"))

	c.Remove(1)
	c.Remove(99) // no-op

	assert.Equal(t, 1, c.Len())
	snap := c.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, int64(2), snap[0].ID)

	_, ok := c.Get(1)
	assert.False(t, ok)
}

func TestSnapshotReturnsCopies(t *testing.T) {
	c := NewActiveExaminations()
	c.Put(entry(1, "Alice"))

	snap := c.Snapshot()
	snap[0].Name = "mutated"

	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "Alice", got.Name)
}
