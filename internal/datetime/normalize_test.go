package datetime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/ticket-wallet/internal/datetime"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		context   string
		offset    string
		want      string
		ok        bool
	}{
		{"combined dmy", "25/12/2024 19:30", "", "+03:00", "2024-12-25T19:30:00+03:00", true},
		{"combined ymd", "2024-12-25 08:05", "", "+00:00", "2024-12-25T08:05:00+00:00", true},
		{"combined two digit year", "25.12.24 21:00", "", "+02:00", "2024-12-25T21:00:00+02:00", true},
		{"time from context", "25/12/2024", "תאריך ושעה: 25/12/2024\n19:30", "+02:00", "2024-12-25T19:30:00+02:00", true},
		{"date from context", "19:30", "Show date 01/01/2025", "+02:00", "2025-01-01T19:30:00+02:00", true},
		{"date only midnight", "01/02/2025", "no time here", "+00:00", "2025-02-01T00:00:00+00:00", true},
		{"month name", "25 Dec 2024", "Doors 7:15 PM", "-05:00", "2024-12-25T19:15:00-05:00", true},
		{"hebrew month", "3 דצמבר 2024", "20:45", "+02:00", "2024-12-03T20:45:00+02:00", true},
		{"impossible date", "31/02/2024", "", "+00:00", "", false},
		{"time only no date anywhere", "19:30", "nothing", "+00:00", "", false},
		{"garbage", "soon", "", "+00:00", "", false},
		{"empty", "", "25/12/2024", "+00:00", "", false},
		{"offset passed through", "25/12/2024 19:30", "", "+05:45", "2024-12-25T19:30:00+05:45", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := datetime.Normalize(tt.candidate, tt.context, tt.offset)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_ImpossibleCombinedFallsThrough(t *testing.T) {
	// 30/02 is rejected as a date; the time alone has no date in context
	got, ok := datetime.Normalize("30/02/2024 19:30", "", "+00:00")
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestFromISO(t *testing.T) {
	tests := []struct {
		in, want string
		ok       bool
	}{
		{"2024-12-25T19:30:00", "2024-12-25T19:30:00+03:00", true},
		{"2024-12-25T19:30", "2024-12-25T19:30:00+03:00", true},
		{"2024-12-25 19:30", "2024-12-25T19:30:00+03:00", true},
		{"2024-12-25T19:30:00+01:00", "2024-12-25T19:30:00+01:00", true},
		{"Dec 25", "", false},
	}
	for _, tt := range tests {
		got, ok := datetime.FromISO(tt.in, "+03:00")
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
