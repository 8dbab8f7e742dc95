package constants

import (
	"strings"
)

// PassCategory is the wallet pass style a document is rendered as.
type PassCategory string

const (
	EventTicket  PassCategory = "eventTicket"
	BoardingPass PassCategory = "boardingPass"
	StoreCard    PassCategory = "storeCard"
	Coupon       PassCategory = "coupon"
	Generic      PassCategory = "generic"
)

var allCategories = []PassCategory{
	EventTicket,
	BoardingPass,
	StoreCard,
	Coupon,
	Generic,
}

func AllCategories() []PassCategory {
	out := make([]PassCategory, len(allCategories))
	copy(out, allCategories)
	return out
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps user or model supplied labels onto a PassCategory.
// Unknown labels return Generic and false.
func Canonicalize(input string) (PassCategory, bool) {
	if input == "" {
		return Generic, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]PassCategory{
		"event":         EventTicket,
		"event_ticket":  EventTicket,
		"event ticket":  EventTicket,
		"ticket":        EventTicket,
		"movie":         EventTicket,
		"concert":       EventTicket,
		"boarding":      BoardingPass,
		"boarding_pass": BoardingPass,
		"boarding pass": BoardingPass,
		"flight":        BoardingPass,
		"store":         StoreCard,
		"store_card":    StoreCard,
		"store card":    StoreCard,
		"loyalty":       StoreCard,
		"membership":    StoreCard,
		"voucher":       Coupon,
		"promo":         Coupon,
		"other":         Generic,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Generic, false
}

// DisplayName upper-cases the first letter and lower-cases the rest,
// so "eventTicket" reads "Eventticket".
func (c PassCategory) DisplayName() string {
	s := strings.ToLower(string(c))
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (c PassCategory) Valid() bool {
	for _, cat := range allCategories {
		if c == cat {
			return true
		}
	}
	return false
}
