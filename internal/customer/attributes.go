package customer

import (
	"strconv"
	"strings"
)

// AttributeMarker separates the display street name from the encoded
// attribute segments, and the segments from each other.
const AttributeMarker = "||"

// attributeRule extracts one field from a segment value.
type attributeRule struct {
	prefixes []string
	apply    func(attrs *Attributes, value string)
}

// attributeRules is the fixed keyword table. Prefixes include the colon and
// are matched against the lower-cased segment.
var attributeRules = []attributeRule{
	{
		prefixes: []string{"age:"},
		apply: func(attrs *Attributes, value string) {
			n, err := strconv.Atoi(value)
			if err != nil {
				attrs.Age = nil
				return
			}
			attrs.Age = &n
		},
	},
	{
		prefixes: []string{"occupation:", "role:"},
		apply:    func(attrs *Attributes, value string) { attrs.Occupation = value },
	},
	{
		prefixes: []string{"citizenship:", "citizen:"},
		apply:    func(attrs *Attributes, value string) { attrs.Citizenship = value },
	},
	{
		prefixes: []string{"taxresidency:", "tax:"},
		apply:    func(attrs *Attributes, value string) { attrs.TaxResidency = value },
	},
	{
		prefixes: []string{"tenure:"},
		apply:    func(attrs *Attributes, value string) { attrs.Tenure = value },
	},
	{
		prefixes: []string{"products:"},
		apply:    func(attrs *Attributes, value string) { attrs.Products = splitProducts(value) },
	},
}

// SplitEncoded separates a street name into its display part and the raw
// attribute segments that follow the first marker. ok is false when the
// street name carries no marker.
func SplitEncoded(streetName string) (street string, segments []string, ok bool) {
	if !strings.Contains(streetName, AttributeMarker) {
		return streetName, nil, false
	}
	parts := strings.Split(streetName, AttributeMarker)
	return strings.TrimSpace(parts[0]), parts[1:], true
}

// DecodeAttributes applies every recognised segment to attrs in order.
// Unknown keys, segments without a colon, and unparsable values are
// skipped. A key that appears twice keeps its last value.
func DecodeAttributes(attrs *Attributes, segments []string) {
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		lower := strings.ToLower(seg)
		for _, rule := range attributeRules {
			if !hasAnyPrefix(lower, rule.prefixes) {
				continue
			}
			_, value, _ := strings.Cut(seg, ":")
			rule.apply(attrs, strings.TrimSpace(value))
			break
		}
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// splitProducts splits a comma-delimited product list, trimming each entry.
// Order and duplicates are kept; entries that trim to nothing are dropped.
func splitProducts(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
