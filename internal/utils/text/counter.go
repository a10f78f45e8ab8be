// Package text holds small string helpers shared by the copy pipeline.
package text

import "unicode/utf8"

// CountRunes returns the number of characters in s, counting runes rather
// than bytes so that accented text and emoji in generated copy are measured
// the way a reader sees them.
//
//	CountRunes("café")  // 4
//	CountRunes("")      // 0
func CountRunes(s string) int {
	return utf8.RuneCountInString(s)
}
