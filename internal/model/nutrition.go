package model

// Locator identifies one product detail page (an absolute URL).
type Locator = string

// Nutrients is the nutrition-only subset of a record. The zero value is the
// default for every field.
type Nutrients struct {
	Calories      int     `json:"calories"`
	Carbohydrates float64 `json:"carbohydrates"`
	Protein       float64 `json:"protein"`
	TotalFat      float64 `json:"total_fat"`
	SaturatedFat  float64 `json:"saturated_fat"`
	Fiber         float64 `json:"fiber"`
	Sugar         float64 `json:"sugar"`
	Sodium        int     `json:"sodium"`
}

// Identity holds the product name and serving size read from a detail page.
type Identity struct {
	ProductName string `json:"product_name"`
	ServingSize int    `json:"serving_size"`
}

// NutritionRecord is the normalized output for one product page.
// Field order matches the exported column order.
type NutritionRecord struct {
	ProductName   string  `json:"name" csv:"name"`
	Locator       string  `json:"locator" csv:"locator"`
	Category      string  `json:"category" csv:"category"`
	ServingSize   int     `json:"serving_size" csv:"serving_size"`
	Calories      int     `json:"calories" csv:"calories"`
	Carbohydrates float64 `json:"carbohydrates" csv:"carbohydrates"`
	Protein       float64 `json:"protein" csv:"protein"`
	TotalFat      float64 `json:"total_fat" csv:"total_fat"`
	SaturatedFat  float64 `json:"saturated_fat" csv:"saturated_fat"`
	Fiber         float64 `json:"fiber" csv:"fiber"`
	Sugar         float64 `json:"sugar" csv:"sugar"`
	Sodium        int     `json:"sodium" csv:"sodium"`
}

// RecordColumns is the fixed column order of a persisted record.
var RecordColumns = []string{
	"name", "locator", "category", "serving_size",
	"calories", "carbohydrates", "protein", "total_fat",
	"saturated_fat", "fiber", "sugar", "sodium",
}

// NewRecord assembles a record from its parts.
func NewRecord(loc Locator, category string, id Identity, n Nutrients) NutritionRecord {
	return NutritionRecord{
		ProductName:   id.ProductName,
		Locator:       loc,
		Category:      category,
		ServingSize:   id.ServingSize,
		Calories:      n.Calories,
		Carbohydrates: n.Carbohydrates,
		Protein:       n.Protein,
		TotalFat:      n.TotalFat,
		SaturatedFat:  n.SaturatedFat,
		Fiber:         n.Fiber,
		Sugar:         n.Sugar,
		Sodium:        n.Sodium,
	}
}

// Row returns the record as a slice of values in RecordColumns order.
func (r NutritionRecord) Row() []any {
	return []any{
		r.ProductName, r.Locator, r.Category, r.ServingSize,
		r.Calories, r.Carbohydrates, r.Protein, r.TotalFat,
		r.SaturatedFat, r.Fiber, r.Sugar, r.Sodium,
	}
}

// FailedItem reports a locator that was skipped during scraping.
type FailedItem struct {
	Locator Locator `json:"locator"`
	Error   string  `json:"error"`
}
