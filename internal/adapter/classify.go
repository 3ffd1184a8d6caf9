package adapter

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/hsebcm/calendar-sync/internal/model"
)

// DefaultCategory is assigned when no keyword matches.
const DefaultCategory = model.CategoryHealth

// keywordRule binds a category to its lowercase substring keywords.
type keywordRule struct {
	category model.Category
	keywords []string
}

// keywordRules are evaluated in order; the first category with a matching
// keyword wins. Keywords are substrings, so avoid fragments that occur inside
// unrelated words ("mental" in "environmental").
var keywordRules = []keywordRule{
	{model.CategoryHealth, []string{
		"health", "disease", "medic", "vaccin", "immuni", "cancer", "malaria",
		"tuberculosis", "hiv/aids", "hepatitis", "diabetes", "blood", "nutrition",
		"hygiene", "handwashing", "tobacco", "patient",
	}},
	{model.CategorySafety, []string{
		"safety", "accident", "injur", "hazard", "occupational", "fire",
		"workplace", "drowning", "chemical",
	}},
	{model.CategoryEnvironment, []string{
		"environment", "ocean", "climate", "biodiversity", "wildlife", "forest",
		"earth", "pollution", "recycl", "waste", "wetland", "desertification",
		"ozone", "nature", "conservation", "plastic", "water",
	}},
	{model.CategoryEnergy, []string{
		"energy", "renewable", "solar", "wind power", "hydrogen", "electric",
		"fuel", "efficiency", "nuclear",
	}},
	{model.CategoryBCM, []string{
		"continuity", "resilience", "disaster", "emergency", "crisis", "risk",
		"recovery", "preparedness", "cyber", "backup",
	}},
}

var lower = cases.Lower(language.Und)

// Classify maps free text to a category by keyword match. The second result
// is true when nothing matched and DefaultCategory was returned.
func Classify(text string) (model.Category, bool) {
	subject := lower.String(norm.NFC.String(text))
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(subject, kw) {
				return rule.category, false
			}
		}
	}
	return DefaultCategory, true
}
