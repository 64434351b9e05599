package secrets

import (
	"math"
	"slices"
)

// Entropy returns the Shannon entropy of s in bits per character.
// An empty string has entropy 0.
func Entropy(s string) float64 {
	if s == "" {
		return 0
	}

	freq := make(map[rune]int)
	n := 0
	for _, r := range s {
		freq[r]++
		n++
	}

	// Sum in a fixed order so the result does not depend on map iteration.
	counts := make([]int, 0, len(freq))
	for _, count := range freq {
		counts = append(counts, count)
	}
	slices.Sort(counts)

	var h float64
	for _, count := range counts {
		p := float64(count) / float64(n)
		h -= p * math.Log2(p)
	}
	return h
}

// distinctChars returns the number of distinct runes in s.
func distinctChars(s string) int {
	seen := make(map[rune]struct{})
	for _, r := range s {
		seen[r] = struct{}{}
	}
	return len(seen)
}
