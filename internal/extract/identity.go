package extract

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"

	"github.com/sells-group/nutrition-scraper/internal/model"
)

var (
	brandExpr   = xpath.MustCompile(`//h2[contains(concat(' ', normalize-space(@class), ' '), ' manufacturer ')]`)
	brandLink   = xpath.MustCompile(`.//a`)
	titleExpr   = xpath.MustCompile(`//h1[@style='text-transform:none']`)
	servingExpr = xpath.MustCompile(`//div[contains(concat(' ', normalize-space(@class), ' '), ' serving_size_value ')]`)
)

// ExtractIdentity reads the product name and serving size from a detail page.
// The name is "<brand> <title>" with either part optional; it is empty when
// both are missing. The serving size is the last number of the serving text,
// so "1 porção (700 ml)" yields 700.
func ExtractIdentity(doc *Document) model.Identity {
	var id model.Identity
	if doc == nil {
		return id
	}
	root := doc.Root()
	if root == nil {
		return id
	}

	brand := ""
	if h2 := htmlquery.QuerySelector(root, brandExpr); h2 != nil {
		if a := htmlquery.QuerySelector(h2, brandLink); a != nil {
			brand = strings.TrimSpace(StripText(a))
		}
	}

	title := ""
	if h1 := htmlquery.QuerySelector(root, titleExpr); h1 != nil {
		title = strings.TrimSpace(StripText(h1))
	}

	id.ProductName = strings.TrimSpace(brand + " " + title)

	if div := htmlquery.QuerySelector(root, servingExpr); div != nil {
		if v, ok := LastInt(StripText(div)); ok {
			id.ServingSize = v
		}
	}

	return id
}
