package extract

import (
	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	nutritionRegionSelector = "div.nutrition_facts"
	nutrientCellSelector    = "div.nutrient"
)

// Stream is the ordered text of the nutrition table cells. Order carries the
// label/value adjacency the extractor relies on.
type Stream []string

// NutrientStream flattens the nutrition table of doc into a Stream. A page
// without a nutrition table yields an empty stream.
func NutrientStream(doc *Document) Stream {
	if doc == nil {
		return Stream{}
	}
	region := doc.Find(nutritionRegionSelector).First()
	if region.Length() == 0 {
		zap.L().Debug("extract: nutrition table not found")
		return Stream{}
	}

	cells := region.Find(nutrientCellSelector)
	stream := make(Stream, 0, cells.Length())
	cells.Each(func(_ int, cell *goquery.Selection) {
		stream = append(stream, SelectionText(cell))
	})
	return stream
}
