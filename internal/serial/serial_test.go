package serial_test

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ticket-wallet/internal/serial"
)

func TestForTicket_Format(t *testing.T) {
	sum := md5.Sum([]byte("QR-1_0"))
	want := "TICKET_" + strings.ToUpper(hex.EncodeToString(sum[:])[:8])

	got := serial.ForTicket("QR-1", 0)
	assert.Equal(t, want, got)
	assert.Len(t, got, len("TICKET_")+8)
	assert.Regexp(t, `^TICKET_[0-9A-F]{8}$`, got)
}

func TestForTicket_StableAndIndexed(t *testing.T) {
	assert.Equal(t, serial.ForTicket("X", 1), serial.ForTicket("X", 1))
	assert.NotEqual(t, serial.ForTicket("X", 0), serial.ForTicket("X", 1))
	assert.NotEqual(t, serial.ForTicket("X", 0), serial.ForTicket("Y", 0))
}

func TestDerive_Precedence(t *testing.T) {
	barcode, s := serial.Derive([]string{"QR-A", "QR-B"}, "RES1", "text")
	assert.Equal(t, "QR-A", barcode)
	assert.Equal(t, serial.ForTicket("QR-A", 0), s)

	barcode, s = serial.Derive(nil, "RES1", "text")
	assert.Equal(t, "RES1", barcode)
	assert.Equal(t, serial.ForTicket("RES1", 0), s)

	barcode, s = serial.Derive(nil, "", "some raw text")
	assert.Equal(t, serial.ContentHash("some raw text"), barcode)
	assert.Equal(t, serial.ForTicket(barcode, 0), s)
}

func TestContentHash_UsesFirstHundredRunes(t *testing.T) {
	base := strings.Repeat("א", 100)
	require.Equal(t, serial.ContentHash(base), serial.ContentHash(base+"tail differs"))
	assert.NotEqual(t, serial.ContentHash(base), serial.ContentHash("ב"+base[2:]))
}
