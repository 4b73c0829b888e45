package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/nutrition-scraper/internal/model"
)

// Nutrition table labels. Matching is exact: case and accents matter.
const (
	LabelEnergy        = "Energia"
	LabelCarbohydrates = "Carboidratos"
	LabelSugar         = "Açúcar"
	LabelProtein       = "Proteínas"
	LabelTotalFat      = "Gorduras"
	LabelSaturatedFat  = "Gordura Saturada"
	LabelFiber         = "Fibras"
	LabelSodium        = "Sódio"
)

// EnergyWindow is how many fragments after the energy label are searched for
// the kilocalorie value.
const EnergyWindow = 3

const kcalMarker = "kcal"

var (
	digitsRe  = regexp.MustCompile(`[0-9]+`)
	decimalRe = regexp.MustCompile(`[0-9]+(?:[.,][0-9]+)?`)
)

// adjacentFields maps each single-value label to the setter for the fragment
// that immediately follows it. A setter reports false when the fragment holds
// no usable number, leaving the field untouched.
var adjacentFields = map[string]func(n *model.Nutrients, text string) bool{
	LabelCarbohydrates: floatSetter(func(n *model.Nutrients, v float64) { n.Carbohydrates = v }),
	LabelSugar:         floatSetter(func(n *model.Nutrients, v float64) { n.Sugar = v }),
	LabelProtein:       floatSetter(func(n *model.Nutrients, v float64) { n.Protein = v }),
	LabelTotalFat:      floatSetter(func(n *model.Nutrients, v float64) { n.TotalFat = v }),
	LabelSaturatedFat:  floatSetter(func(n *model.Nutrients, v float64) { n.SaturatedFat = v }),
	LabelFiber:         floatSetter(func(n *model.Nutrients, v float64) { n.Fiber = v }),
	LabelSodium: func(n *model.Nutrients, text string) bool {
		v, ok := FirstInt(text)
		if ok {
			n.Sodium = v
		}
		return ok
	},
}

func floatSetter(set func(*model.Nutrients, float64)) func(*model.Nutrients, string) bool {
	return func(n *model.Nutrients, text string) bool {
		v, ok := FirstDecimal(text)
		if ok {
			set(n, v)
		}
		return ok
	}
}

// ExtractNutrients scans s for known labels and reads the value that follows
// each one. It never fails: a missing label or value leaves the field at its
// zero default, and a repeated label overwrites the earlier value.
func ExtractNutrients(s Stream) model.Nutrients {
	var n model.Nutrients
	for i, fragment := range s {
		label := strings.TrimSpace(fragment)

		if label == LabelEnergy {
			if kcal, ok := energyAfter(s, i); ok {
				n.Calories = kcal
			}
			continue
		}

		set, ok := adjacentFields[label]
		if !ok || i+1 >= len(s) {
			continue
		}
		set(&n, s[i+1])
	}
	return n
}

// energyAfter looks at most EnergyWindow fragments past index i for one that
// carries a kilocalorie value.
func energyAfter(s Stream, i int) (int, bool) {
	for j := 1; j <= EnergyWindow && i+j < len(s); j++ {
		text := s[i+j]
		if !strings.Contains(text, kcalMarker) {
			continue
		}
		if v, ok := FirstInt(text); ok {
			return v, true
		}
	}
	return 0, false
}

// FirstInt parses the first run of digits in text.
func FirstInt(text string) (int, bool) {
	m := digitsRe.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return v, true
}

// LastInt parses the last run of digits in text.
func LastInt(text string) (int, bool) {
	all := digitsRe.FindAllString(text, -1)
	if len(all) == 0 {
		return 0, false
	}
	v, err := strconv.Atoi(all[len(all)-1])
	if err != nil {
		return 0, false
	}
	return v, true
}

// FirstDecimal parses the first number in text, accepting either a decimal
// comma or a decimal point.
func FirstDecimal(text string) (float64, bool) {
	m := decimalRe.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
