package serial

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
)

const (
	prefix        = "TICKET_"
	fallbackRunes = 100
)

// ForTicket derives a stable serial from a barcode message and the ticket's
// position within its source document.
func ForTicket(barcode string, index int) string {
	sum := md5.Sum([]byte(barcode + "_" + strconv.Itoa(index)))
	return prefix + strings.ToUpper(hex.EncodeToString(sum[:])[:8])
}

// ContentHash stands in for a barcode when a document has neither QR codes
// nor a reservation code.
func ContentHash(text string) string {
	r := []rune(text)
	if len(r) > fallbackRunes {
		r = r[:fallbackRunes]
	}
	return ForTicket(string(r), 0)
}

// Derive picks the barcode message from the strongest signal available
// (first QR payload, then reservation, then content hash) and its serial.
func Derive(qrPayloads []string, reservation, fallbackText string) (barcode, serialNumber string) {
	switch {
	case len(qrPayloads) > 0 && qrPayloads[0] != "":
		barcode = qrPayloads[0]
	case reservation != "":
		barcode = reservation
	default:
		barcode = ContentHash(fallbackText)
	}
	return barcode, ForTicket(barcode, 0)
}
