package textpipeline

import "unicode"

var soundexCodes = map[rune]byte{
	'B': '1', 'F': '1', 'P': '1', 'V': '1',
	'C': '2', 'G': '2', 'J': '2', 'K': '2', 'Q': '2', 'S': '2', 'X': '2', 'Z': '2',
	'D': '3', 'T': '3',
	'L': '4',
	'M': '5', 'N': '5',
	'R': '6',
}

// Soundex computes the classic 4-character Soundex code: first letter
// uppercased, followed by 3 digits derived from the B/F/P/V, C/G/J/K/Q/S/X/Z,
// D/T, L, M/N, R mapping, skipping repeated codes and vowel/H/W/Y "zeros",
// zero-padded on the right. Equal inputs yield equal codes; non-letter input
// maps to the empty string.
func Soundex(s string) string {
	letters := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters = append(letters, unicode.ToUpper(r))
		}
	}
	if len(letters) == 0 {
		return ""
	}

	first := letters[0]
	code := []byte{byte(first)}

	lastDigit := soundexCodes[first]

	for _, r := range letters[1:] {
		digit, isCoded := soundexCodes[r]
		if !isCoded {
			// Vowels (and H, W, Y) reset the "last digit" suppression per
			// classic Soundex, but are themselves skipped.
			lastDigit = 0
			continue
		}
		if digit != lastDigit {
			code = append(code, digit)
			if len(code) == 4 {
				break
			}
		}
		lastDigit = digit
	}

	for len(code) < 4 {
		code = append(code, '0')
	}

	return string(code)
}
