package pipeline

import (
	"fmt"

	"github.com/sells-group/nutrition-scraper/internal/fetcher"
)

// productHTML renders a product detail page in the catalog's markup.
func productHTML(title string, calories int, carbs string) string {
	return fmt.Sprintf(`<html><body>
<h2 class="manufacturer"><a href="/marca/vitao">Vitao</a></h2>
<h1 style="text-transform:none">%s</h1>
<div class="serving_size black serving_size_value">1 porção (40 g)</div>
<div class="nutrition_facts international">
  <div class="nutrient black left">Energia</div>
  <div class="nutrient black right">%d kJ</div>
  <div class="nutrient right">%d kcal</div>
  <div class="nutrient black left">Carboidratos</div>
  <div class="nutrient black right">%sg</div>
  <div class="nutrient black left">Proteínas</div>
  <div class="nutrient black right">3,2g</div>
  <div class="nutrient black left">Sódio</div>
  <div class="nutrient black right">85mg</div>
</div>
</body></html>`, title, calories*4, calories, carbs)
}

func productPage(url, body string) *fetcher.Page {
	return &fetcher.Page{URL: url, FinalURL: url, StatusCode: 200, Body: []byte(body)}
}
