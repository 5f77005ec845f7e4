package intake

import "sort"

// FallbackDepartment receives every category without an explicit owner
const FallbackDepartment = "municipal-corporation"

var categoryDepartments = map[string]string{
	"garbage":              "sanitation",
	"sewage":               "sanitation",
	"drainage":             "sanitation",
	"open-defecation":      "sanitation",
	"water-supply":         "water-supply",
	"water-leakage":        "water-supply",
	"water-contamination":  "water-supply",
	"streetlight":          "electricity",
	"power-outage":         "electricity",
	"electric-hazard":      "electricity",
	"pothole":              "public-works",
	"road-damage":          "public-works",
	"footpath":             "public-works",
	"traffic-signal":       "traffic-police",
	"illegal-parking":      "traffic-police",
	"stray-animals":        "animal-control",
	"dead-animal":          "animal-control",
	"tree-fall":            "parks-and-gardens",
	"park-maintenance":     "parks-and-gardens",
	"illegal-construction": "town-planning",
	"encroachment":         "town-planning",
	"noise-pollution":      "pollution-control",
	"air-pollution":        "pollution-control",
	"mosquito-breeding":    "health",
	"public-health":        "health",
	"other":                FallbackDepartment,
}

// DepartmentByCategory returns the department responsible for a category.
// The category is not validated; anything unmapped goes to FallbackDepartment.
func DepartmentByCategory(category string) string {
	if d, ok := categoryDepartments[category]; ok {
		return d
	}
	return FallbackDepartment
}

// Categories returns every category a report may be filed under, sorted
func Categories() []string {
	out := make([]string, 0, len(categoryDepartments))
	for c := range categoryDepartments {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Departments returns every known department, sorted
func Departments() []string {
	seen := map[string]bool{FallbackDepartment: true}
	out := []string{FallbackDepartment}
	for _, d := range categoryDepartments {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

// IsCategory reports whether c is one of the known categories
func IsCategory(c string) bool {
	_, ok := categoryDepartments[c]
	return ok
}

// IsDepartment reports whether d is one of the known departments
func IsDepartment(d string) bool {
	if d == FallbackDepartment {
		return true
	}
	for _, known := range categoryDepartments {
		if known == d {
			return true
		}
	}
	return false
}
