package extract

import (
	"unicode"

	"github.com/joseph-ayodele/ticket-wallet/constants"
)

// DetectLocale flags any text containing a Hebrew-block rune as he-IL.
func DetectLocale(text string) string {
	if HasHebrew(text) {
		return constants.LocaleHebrew
	}
	return constants.LocaleEnglish
}

// HasHebrew reports whether s contains a rune in U+0590..U+05FF.
func HasHebrew(s string) bool {
	for _, r := range s {
		if r >= 0x0590 && r <= 0x05FF {
			return true
		}
	}
	return false
}

func isASCIIDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
