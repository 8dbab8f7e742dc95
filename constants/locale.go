package constants

const (
	LocaleEnglish = "en-US"
	LocaleHebrew  = "he-IL"
)

// DefaultTimezoneOffset is used when no offset is configured.
const DefaultTimezoneOffset = "+00:00"
