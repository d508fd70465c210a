package words

import (
	"math"
	"strings"
	"unicode"
)

const (
	firstHintAfter = 10.0 // seconds into the drawing phase
	hintInterval   = 10.0
	maxReveals     = 3
)

// Masked renders the blind hint: one underscore per letter, spaces dropped.
func Masked(word string) string {
	n := 0
	for _, r := range word {
		if r != ' ' {
			n++
		}
	}
	return strings.Repeat("_", n)
}

// RevealCount is how many letters a hint shows after elapsed seconds of
// drawing: one at 10s, two at 20s, three at 30s, never more.
func RevealCount(elapsed float64) int {
	if elapsed < firstHintAfter {
		return 0
	}
	n := int(math.Floor((elapsed-firstHintAfter)/hintInterval)) + 1
	if n > maxReveals {
		n = maxReveals
	}
	return n
}

// RevealPositions picks which letter indices to show, in the fixed order
// first, last, middle. Spaces are never revealed positions.
func RevealPositions(word string, count int) []int {
	letters := letterPositions(word)
	if len(letters) == 0 || count <= 0 {
		return nil
	}

	positions := make([]int, 0, maxReveals)
	if count >= 1 {
		positions = append(positions, letters[0])
	}
	if count >= 2 && len(letters) >= 2 {
		positions = append(positions, letters[len(letters)-1])
	}
	if count >= 3 && len(letters) >= 3 {
		positions = append(positions, letters[len(letters)/2])
	}
	return positions
}

// RenderHint draws the word with the given positions revealed (uppercased)
// and everything else masked, characters joined by spaces.
func RenderHint(word string, revealed []int) string {
	if word == "" {
		return ""
	}

	show := make(map[int]bool, len(revealed))
	for _, i := range revealed {
		show[i] = true
	}

	parts := make([]string, 0, len(word))
	for i, r := range []rune(strings.ToLower(word)) {
		switch {
		case r == ' ':
			parts = append(parts, " ")
		case show[i]:
			parts = append(parts, string(unicode.ToUpper(r)))
		default:
			parts = append(parts, "_")
		}
	}
	return strings.Join(parts, " ")
}

// ProgressiveHint is the hint shown to guessers after elapsed seconds.
func ProgressiveHint(word string, elapsed float64) string {
	count := RevealCount(elapsed)
	if word == "" || count == 0 {
		return Masked(word)
	}
	return RenderHint(word, RevealPositions(word, count))
}

func letterPositions(word string) []int {
	positions := make([]int, 0, len(word))
	for i, r := range []rune(word) {
		if r != ' ' {
			positions = append(positions, i)
		}
	}
	return positions
}
