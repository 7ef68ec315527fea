package match

import (
	"strings"

	"github.com/lovrop/najdeno/internal/model"
)

// Config holds the scoring weights and acceptance thresholds. The values are
// policy constants; deployments may tune them but DefaultConfig is the
// compatible baseline.
type Config struct {
	CategoryPoints    int
	SubcategoryPoints int
	LocationPoints    int

	// Date proximity: full points within one day, reduced within a week.
	DateClosePoints int
	DateNearPoints  int

	BrandPoints int
	ModelPoints int
	ColorPoints int

	// Description overlap: per shared token, capped.
	DescriptionTokenPoints int
	DescriptionMaxPoints   int

	// MatchThreshold is the minimum score for a candidate to count as a match.
	MatchThreshold int

	// AnswerThreshold is the minimum normalized edit-distance similarity for
	// a security answer to be accepted.
	AnswerThreshold float64
}

// DefaultConfig returns the baseline scoring policy.
func DefaultConfig() Config {
	return Config{
		CategoryPoints:         20,
		SubcategoryPoints:      10,
		LocationPoints:         20,
		DateClosePoints:        20,
		DateNearPoints:         10,
		BrandPoints:            10,
		ModelPoints:            10,
		ColorPoints:            10,
		DescriptionTokenPoints: 2,
		DescriptionMaxPoints:   20,
		MatchThreshold:         80,
		AnswerThreshold:        0.7,
	}
}

// Score computes the compatibility score between two item reports. It is
// deterministic, symmetric and has no side effects.
func Score(a, b *model.Item, cfg Config) int {
	score := 0

	if a.Category != "" && a.Category == b.Category {
		score += cfg.CategoryPoints
	}
	if a.Subcategory != "" && a.Subcategory == b.Subcategory {
		score += cfg.SubcategoryPoints
	}

	// Location is compared for exact equality, not geo-distance.
	if a.Location != "" && a.Location == b.Location {
		score += cfg.LocationPoints
	}

	days := a.EventDate.Sub(b.EventDate).Hours() / 24
	if days < 0 {
		days = -days
	}
	switch {
	case days <= 1:
		score += cfg.DateClosePoints
	case days <= 7:
		score += cfg.DateNearPoints
	}

	if equalFold(a.Brand, b.Brand) {
		score += cfg.BrandPoints
	}
	if equalFold(a.Model, b.Model) {
		score += cfg.ModelPoints
	}
	if equalFold(a.Color, b.Color) {
		score += cfg.ColorPoints
	}

	if a.Description != "" && b.Description != "" {
		shared := sharedTokens(a.Description, b.Description)
		points := shared * cfg.DescriptionTokenPoints
		if points > cfg.DescriptionMaxPoints {
			points = cfg.DescriptionMaxPoints
		}
		score += points
	}

	return score
}

// equalFold compares two attributes case-insensitively; an attribute absent
// on either side never counts as equal.
func equalFold(a, b string) bool {
	return a != "" && b != "" && strings.EqualFold(a, b)
}

// sharedTokens counts the distinct lowercase whitespace-separated tokens the
// two descriptions have in common. Counting distinct tokens keeps the result
// symmetric when one description repeats a word.
func sharedTokens(a, b string) int {
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(a)) {
		tokens[tok] = true
	}

	shared := 0
	seen := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(b)) {
		if tokens[tok] && !seen[tok] {
			seen[tok] = true
			shared++
		}
	}
	return shared
}
