/*
normalize.go - Discipline code and area normalization

PURPOSE:
  Cleans the free-form tag lists that arrive on timesheets, entries,
  overtime requests and project records. Every function here is pure: the
  same input always yields the same output, and applying a normalizer to
  its own output changes nothing.

RULES:
  Discipline codes  trimmed, UPPERCASED, empties dropped, de-duplicated
                    (first seen wins), at most MaxCodes
  Areas             trimmed, original case kept, empties dropped,
                    de-duplicated case-insensitively (first seen wins)
  Platforms         trimmed, empties dropped, exact de-duplication

NIL VS EMPTY:
  NormalizeAreas(nil) returns nil, meaning "no change requested".
  NormalizeAreas([]string{}) returns an empty non-nil slice, meaning
  "clear the list". Patch handlers rely on the distinction.

EXAMPLE:
  codes, err := discipline.NormalizeDisciplineCodes([]string{"eng", "ENG", " eng "}, true)
  // codes == []string{"ENG"}
*/
package discipline

import (
	"strings"

	"github.com/warp/timesheet-engine/core"
)

// MaxCodes bounds the discipline codes on one timesheet or entry.
const MaxCodes = 8

// NormalizeDisciplineCodes trims, uppercases and de-duplicates codes.
// When required is set an empty result is a validation error.
func NormalizeDisciplineCodes(input []string, required bool) ([]string, error) {
	seen := make(map[string]bool, len(input))
	codes := make([]string, 0, len(input))
	for _, raw := range input {
		code := strings.ToUpper(strings.TrimSpace(raw))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}

	if required && len(codes) == 0 {
		return nil, &core.ValidationError{Field: "disciplineCodes", Message: "Discipline code is required"}
	}
	if len(codes) > MaxCodes {
		return nil, core.Invalid("disciplineCodes", "too many codes: %d given, at most %d allowed", len(codes), MaxCodes)
	}
	return codes, nil
}

// NormalizeDisciplineCode normalizes a single optional code ("" stays "").
func NormalizeDisciplineCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeAreas trims areas and removes case-insensitive duplicates.
func NormalizeAreas(input []string) []string {
	if input == nil {
		return nil
	}
	seen := make(map[string]bool, len(input))
	areas := make([]string, 0, len(input))
	for _, raw := range input {
		area := strings.TrimSpace(raw)
		if area == "" {
			continue
		}
		key := strings.ToLower(area)
		if seen[key] {
			continue
		}
		seen[key] = true
		areas = append(areas, area)
	}
	return areas
}

// NormalizePlatforms trims platforms and removes exact duplicates.
func NormalizePlatforms(input []string) []string {
	if input == nil {
		return nil
	}
	seen := make(map[string]bool, len(input))
	platforms := make([]string, 0, len(input))
	for _, raw := range input {
		p := strings.TrimSpace(raw)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		platforms = append(platforms, p)
	}
	return platforms
}

// ContainsArea reports whether area is one of areas, ignoring case.
func ContainsArea(areas []string, area string) bool {
	area = strings.TrimSpace(area)
	for _, a := range areas {
		if strings.EqualFold(a, area) {
			return true
		}
	}
	return false
}
