package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecosort_service/internal/domain/model"
)

func detection(class string, category model.Category, confidence float64) model.Detection {
	return model.Detection{
		ClassName:  class,
		Category:   category,
		Confidence: confidence,
		Box:        model.BoundingBox{X1: 1, Y1: 1, X2: 10, Y2: 10},
	}
}

func TestAddAndTotal(t *testing.T) {
	store := NewLogStore()

	entry := store.Add(detection("bottle", model.CategoryInorganic, 0.9))
	assert.Equal(t, 1, entry.ID)
	assert.Equal(t, "bottle", entry.ClassName)
	assert.Equal(t, store.SessionID(), entry.SessionID)
	assert.Equal(t, 1, store.Total())

	store.AddBatch([]model.Detection{
		detection("leaves", model.CategoryOrganic, 0.8),
		detection("can", model.CategoryInorganic, 0.7),
	})
	assert.Equal(t, 3, store.Total())
}

func TestEntriesNewestFirst(t *testing.T) {
	store := NewLogStore()
	store.Add(detection("bag", model.CategoryInorganic, 0.9))
	store.Add(detection("leaves", model.CategoryOrganic, 0.8))

	entries := store.Entries(LogFilter{})
	require.Len(t, entries, 2)
	assert.Equal(t, "leaves", entries[0].ClassName)
	assert.Equal(t, "bag", entries[1].ClassName)
}

func TestEntriesFiltering(t *testing.T) {
	store := NewLogStore()
	store.Add(detection("bag", model.CategoryInorganic, 0.9))
	store.Add(detection("leaves", model.CategoryOrganic, 0.8))
	store.Add(detection("bottle", model.CategoryInorganic, 0.7))

	byClass := store.Entries(LogFilter{Classes: []string{"bag", "bottle"}})
	assert.Len(t, byClass, 2)

	byCategory := store.Entries(LogFilter{Category: model.CategoryOrganic})
	require.Len(t, byCategory, 1)
	assert.Equal(t, "leaves", byCategory[0].ClassName)

	limited := store.Entries(LogFilter{Limit: 1})
	require.Len(t, limited, 1)
	assert.Equal(t, "bottle", limited[0].ClassName, "limit keeps the newest entries")
}

func TestEntriesTimeRange(t *testing.T) {
	store := NewLogStore()
	store.Add(detection("bag", model.CategoryInorganic, 0.9))

	future := time.Now().Add(time.Hour)
	assert.Empty(t, store.Entries(LogFilter{Start: future}))
	assert.Len(t, store.Entries(LogFilter{End: future}), 1)
}

func TestStatistics(t *testing.T) {
	store := NewLogStore()
	store.Add(detection("bag", model.CategoryInorganic, 0.9))
	store.Add(detection("bag", model.CategoryInorganic, 0.8))
	store.Add(detection("leaves", model.CategoryOrganic, 0.7))
	store.Add(detection("eggshell", model.CategoryOrganic, 0.6))

	stats := store.Statistics()
	assert.Equal(t, 4, stats.TotalDetections)
	assert.Equal(t, 2, stats.InorganicCount)
	assert.Equal(t, 2, stats.OrganicCount)
	assert.Equal(t, 2, stats.ClassCounts["bag"])
	assert.Equal(t, 1, stats.ClassCounts["leaves"])
	assert.InDelta(t, 50.0, stats.InorganicPercentage, 0.01)
	assert.InDelta(t, 50.0, stats.OrganicPercentage, 0.01)
	assert.Equal(t, store.SessionID(), stats.SessionID)
}

func TestStatisticsEmpty(t *testing.T) {
	stats := NewLogStore().Statistics()
	assert.Zero(t, stats.TotalDetections)
	assert.Zero(t, stats.InorganicPercentage)
	assert.Zero(t, stats.OrganicPercentage)
}

func TestClearStartsNewSession(t *testing.T) {
	store := NewLogStore()
	store.Add(detection("bag", model.CategoryInorganic, 0.9))
	old := store.SessionID()

	// Session ids are second-resolution timestamps.
	time.Sleep(1100 * time.Millisecond)
	newID := store.Clear()

	assert.Zero(t, store.Total())
	assert.NotEqual(t, old, newID)
	assert.Equal(t, newID, store.SessionID())
}

func TestAllInsertionOrder(t *testing.T) {
	store := NewLogStore()
	store.Add(detection("bag", model.CategoryInorganic, 0.9))
	store.Add(detection("leaves", model.CategoryOrganic, 0.8))

	all := store.All()
	require.Len(t, all, 2)
	assert.Equal(t, "bag", all[0].ClassName)
	assert.Equal(t, "leaves", all[1].ClassName)
}
