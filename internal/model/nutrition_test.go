package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRecord(t *testing.T) {
	rec := NewRecord("https://example.com/p/1", "Produto Vitao",
		Identity{ProductName: "Vitao Granola", ServingSize: 40},
		Nutrients{Calories: 130, Carbohydrates: 12.5, Sodium: 45},
	)

	assert.Equal(t, "Vitao Granola", rec.ProductName)
	assert.Equal(t, "https://example.com/p/1", rec.Locator)
	assert.Equal(t, "Produto Vitao", rec.Category)
	assert.Equal(t, 40, rec.ServingSize)
	assert.Equal(t, 130, rec.Calories)
	assert.InDelta(t, 12.5, rec.Carbohydrates, 0.0001)
	assert.Equal(t, 45, rec.Sodium)
	assert.Zero(t, rec.Fiber)
}

func TestRecordRowMatchesColumns(t *testing.T) {
	rec := NutritionRecord{ProductName: "a", Locator: "b", Category: "c", Sodium: 9}
	row := rec.Row()

	assert.Len(t, row, len(RecordColumns))
	assert.Equal(t, "a", row[0])
	assert.Equal(t, "b", row[1])
	assert.Equal(t, "c", row[2])
	assert.Equal(t, 9, row[len(row)-1])
}
