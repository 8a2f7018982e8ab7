package util

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// NormalizeGenres collapses a genre list into the stored form: trimmed,
// de-duplicated by case-insensitive comparison (first spelling wins),
// sorted case-insensitively and comma-joined.
func NormalizeGenres(genres []string) string {
	seen := make(map[string]struct{}, len(genres))
	keep := make([]string, 0, len(genres))
	for _, g := range genres {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		key := strings.ToLower(g)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, g)
	}
	slices.SortFunc(keep, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return strings.Join(keep, ",")
}

// SplitGenres is the inverse of NormalizeGenres for presentation.
func SplitGenres(genres string) []string {
	if genres == "" {
		return nil
	}
	return strings.Split(genres, ",")
}

// ClampPercent clamps a progress value to [0,100].
func ClampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func UUID4() (string, error) {
	uuidObj, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return uuidObj.String(), nil
}
