package textutil

import (
	"regexp"
	"strings"
)

// Space matches ascii whitespace and the non-breaking spaces U+00A0 and U+202F.
const Space = `[\s\x{00a0}\x{202f}]`

var whitespaceRegex = regexp.MustCompile(Space + `+`)

// NormalizeName lowercases a name and removes all of its whitespace so that
// cosmetic differences do not affect comparisons.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

var (
	ratingLabelRegex = regexp.MustCompile(`(?i)^` + Space + `*Note` + Space + `*:?` + Space + `*`)
	ratingScaleRegex = regexp.MustCompile(`(?i)` + Space + `*(?:sur|/)` + Space + `*5(?:[.,]\d+)?` + Space + `*$`)
	reviewsUnitRegex = regexp.MustCompile(`(?i)` + Space + `*avis$`)
	currencyMarkers  = "€$£¥"
)

// NormalizeRating turns an annotated score like "Note : 4,5 sur 5" or
// "4.2/5" into the bare score.
func NormalizeRating(raw string) string {
	rating := ratingLabelRegex.ReplaceAllString(raw, "")
	rating = ratingScaleRegex.ReplaceAllString(rating, "")
	return strings.TrimSpace(rating)
}

// NormalizeReviewCount drops the trailing unit of a count like "128 avis",
// non-breaking spaces used as thousands separators are kept.
func NormalizeReviewCount(raw string) string {
	count := reviewsUnitRegex.ReplaceAllString(raw, "")
	return strings.TrimSpace(count)
}

func HasCurrency(s string) bool {
	return strings.ContainsAny(s, currencyMarkers)
}

// NormalizePrice keeps a price range only if it carries a currency marker.
func NormalizePrice(raw string) string {
	if !HasCurrency(raw) {
		return ""
	}
	return raw
}
