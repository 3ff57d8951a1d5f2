// Package view turns normalized extraction results into rendering-ready structures.
package view

import (
	"strings"

	"github.com/sagar-developer08/idp/internal/domain/detail"
)

// IconCategory is the semantic bucket an entity is rendered with.
type IconCategory string

const (
	IconPerson       IconCategory = "person"
	IconLocation     IconCategory = "location"
	IconDate         IconCategory = "date"
	IconOrganization IconCategory = "organization"
	IconIdentifier   IconCategory = "identifier"
	IconDocumentType IconCategory = "document-type"
	IconSignature    IconCategory = "signature"
	IconDefault      IconCategory = "default"
)

// UnknownCategory labels entities that arrived without a category.
const UnknownCategory = "Unknown"

type iconRule struct {
	keywords []string
	icon     IconCategory
}

// iconRules are evaluated in order; the first rule with a matching keyword wins.
var iconRules = []iconRule{
	{[]string{"person", "name"}, IconPerson},
	{[]string{"location", "address", "place", "city", "country"}, IconLocation},
	{[]string{"date", "time"}, IconDate},
	{[]string{"organization", "organisation", "company"}, IconOrganization},
	{[]string{"identifier", "number"}, IconIdentifier},
	{[]string{"document", "type"}, IconDocumentType},
	{[]string{"signature"}, IconSignature},
}

// ClassifyEntity maps a free-form entity category to an icon category by
// case-insensitive substring match.
func ClassifyEntity(category string) IconCategory {
	c := strings.ToLower(category)
	if c == "" {
		return IconDefault
	}
	for _, r := range iconRules {
		for _, kw := range r.keywords {
			if strings.Contains(c, kw) {
				return r.icon
			}
		}
	}
	return IconDefault
}

// CategoryCount is the number of entities seen for a category.
type CategoryCount struct {
	Category string       `json:"category"`
	Count    int          `json:"count"`
	Icon     IconCategory `json:"icon"`
}

// CountByCategory groups entities by category in first-seen order.
// Entities without a category are counted under UnknownCategory.
func CountByCategory(entities []detail.Entity) []CategoryCount {
	out := []CategoryCount{}
	pos := make(map[string]int)
	for _, e := range entities {
		cat := e.Category
		if strings.TrimSpace(cat) == "" {
			cat = UnknownCategory
		}
		if i, ok := pos[cat]; ok {
			out[i].Count++
			continue
		}
		pos[cat] = len(out)
		out = append(out, CategoryCount{Category: cat, Count: 1, Icon: ClassifyEntity(cat)})
	}
	return out
}

// CountMap flattens counts into a lookup map.
func CountMap(counts []CategoryCount) map[string]int {
	m := make(map[string]int, len(counts))
	for _, c := range counts {
		m[c.Category] = c.Count
	}
	return m
}
