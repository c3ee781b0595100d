// Package normalize maps vendor-specific workout vocabularies onto the canonical
// workout enumeration. Lookups are pure and total: unmapped input falls back to
// the vendor's default, never an error.
package normalize

import (
	"strconv"
	"strings"

	"github.com/the-momentum/open-wearables-sub000/internal/domain"
)

// matchRule maps a substring of the normalized input to a canonical type.
// Rules are evaluated in declaration order, first match wins.
type matchRule struct {
	substr  string
	workout domain.WorkoutType
}

// compositeKey addresses vendors that report a primary category plus an optional
// secondary descriptor. Secondary "" is the wildcard row.
type compositeKey struct {
	primary   string
	secondary string
}

// vendorTable is static configuration for one provider. Adding a vendor or a
// code is a data change in tables.go, not a logic change.
type vendorTable struct {
	exact     map[string]domain.WorkoutType
	numeric   map[int]domain.WorkoutType
	contains  []matchRule
	composite map[compositeKey]domain.WorkoutType
	fallback  domain.WorkoutType
}

// Normalize resolves a vendor workout code to the canonical enumeration.
func Normalize(provider domain.Provider, code string) domain.WorkoutType {
	table, ok := vendorTables[provider]
	if !ok {
		return domain.WorkoutOther
	}

	key := normalizeKey(code)
	if workout, ok := table.exact[key]; ok {
		return workout
	}
	if table.numeric != nil {
		if n, err := strconv.Atoi(key); err == nil {
			if workout, ok := table.numeric[n]; ok {
				return workout
			}
		}
	}
	for _, rule := range table.contains {
		if strings.Contains(key, rule.substr) {
			return rule.workout
		}
	}
	return table.fallback
}

// NormalizeCode resolves a numeric vendor code.
func NormalizeCode(provider domain.Provider, code int) domain.WorkoutType {
	table, ok := vendorTables[provider]
	if !ok {
		return domain.WorkoutOther
	}
	if workout, ok := table.numeric[code]; ok {
		return workout
	}
	return table.fallback
}

// NormalizeComposite resolves a (primary, secondary) pair for vendors that split
// a sport into a category and a detailed descriptor. It tries the exact pair,
// then the primary with a wildcard secondary, then falls back to the plain
// single-key lookup of the primary.
func NormalizeComposite(provider domain.Provider, primary, secondary string) domain.WorkoutType {
	table, ok := vendorTables[provider]
	if !ok {
		return domain.WorkoutOther
	}

	if table.composite != nil {
		key := compositeKey{primary: normalizeKey(primary), secondary: normalizeKey(secondary)}
		if workout, ok := table.composite[key]; ok {
			return workout
		}
		key.secondary = ""
		if workout, ok := table.composite[key]; ok {
			return workout
		}
	}
	return Normalize(provider, primary)
}

func normalizeKey(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
