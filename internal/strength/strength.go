// Package strength scores plaintext secrets on a 0 to 100 scale.
package strength

import "unicode"

// Score rates a secret by five independent 20-point checks: minimum
// length, uppercase, lowercase, digit, and non-alphanumeric presence.
// Deterministic; ties between secrets are expected.
func Score(secret string) int {
	var upper, lower, digit, symbol bool
	for _, r := range secret {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r) && !unicode.IsNumber(r):
			symbol = true
		}
	}

	score := 0
	if len([]rune(secret)) >= 8 {
		score += 20
	}
	for _, hit := range []bool{upper, lower, digit, symbol} {
		if hit {
			score += 20
		}
	}
	return score
}
