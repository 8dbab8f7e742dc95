package passkit

import (
	"strings"

	"github.com/joseph-ayodele/ticket-wallet/constants"
	"github.com/joseph-ayodele/ticket-wallet/internal/entity"
)

// Identity is the issuer information stamped on every pass.
type Identity struct {
	Organization string
	PassTypeID   string
	TeamID       string
}

type Builder struct {
	id Identity
}

func NewBuilder(id Identity) *Builder {
	return &Builder{id: id}
}

// Build projects a finalized record onto the wallet pass schema.
func (b *Builder) Build(r entity.ExtractionRecord) Pass {
	category := r.Category
	if !category.Valid() {
		category = constants.Generic
	}

	desc := entity.Deref(r.Title)
	if desc == "" {
		desc = category.DisplayName() + " Pass"
	}
	bc := Barcode{Format: BarcodeFormatQR, Message: r.BarcodeMessage, MessageEncoding: barcodeEncoding}

	p := Pass{
		FormatVersion:      1,
		PassTypeIdentifier: b.id.PassTypeID,
		TeamIdentifier:     b.id.TeamID,
		OrganizationName:   b.id.Organization,
		Description:        desc,
		SerialNumber:       r.Serial,
		ForegroundColor:    foregroundColour,
		BackgroundColor:    backgroundColour,
		LabelColor:         labelColour,
		Barcode:            bc,
		Barcodes:           []Barcode{bc},
	}
	if r.Locale != "" && r.Locale != constants.LocaleEnglish {
		p.Locale = r.Locale
	}

	switch category {
	case constants.EventTicket:
		p.EventTicket = eventTicket(r)
	case constants.BoardingPass:
		p.BoardingPass = boardingPass(r)
	case constants.StoreCard:
		p.StoreCard = single(r.Title, "balance", "BALANCE")
	case constants.Coupon:
		p.Coupon = single(r.Title, "offer", "OFFER")
	default:
		p.Generic = generic(r)
	}
	return p
}

func field(key, label string, v *string) (Field, bool) {
	if v == nil || *v == "" {
		return Field{}, false
	}
	return Field{Key: key, Label: label, Value: *v}, true
}

// addField appends the field when v holds a value; dated fields carry the
// short date and time styles.
func addField(fs []Field, key, label string, v *string, dated bool) []Field {
	f, ok := field(key, label, v)
	if !ok {
		return fs
	}
	if dated {
		f.DateStyle, f.TimeStyle = DateStyleShort, DateStyleShort
	}
	return append(fs, f)
}

func eventTicket(r entity.ExtractionRecord) *Structure {
	s := &Structure{}
	if r.DateTime != nil && *r.DateTime != "" {
		title := entity.Deref(r.Title)
		if title == "" {
			title = "Event"
		}
		s.PrimaryFields = []Field{{Key: "event", Label: "EVENT", Value: title}}
	}
	s.SecondaryFields = addField(s.SecondaryFields, "venue", "VENUE", r.Venue, false)
	s.SecondaryFields = addField(s.SecondaryFields, "datetime", "DATE & TIME", r.DateTime, true)
	s.AuxiliaryFields = addField(s.AuxiliaryFields, "seat", "SEAT", r.Seat, false)
	s.AuxiliaryFields = addField(s.AuxiliaryFields, "auditorium", "AUDITORIUM", r.Auditorium, false)
	s.BackFields = backFields(r)
	return s
}

func boardingPass(r entity.ExtractionRecord) *Structure {
	s := &Structure{TransitType: TransitTypeAir}
	origin, okO := field("origin", "FROM", r.Origin)
	dest, okD := field("destination", "TO", r.Destination)
	if okO && okD {
		s.PrimaryFields = []Field{origin, dest}
	}
	s.SecondaryFields = addField(s.SecondaryFields, "flight", "FLIGHT", r.Flight, false)
	s.SecondaryFields = addField(s.SecondaryFields, "departure", "DEPARTURE", r.DateTime, true)
	s.AuxiliaryFields = addField(s.AuxiliaryFields, "seat", "SEAT", r.Seat, false)
	s.AuxiliaryFields = addField(s.AuxiliaryFields, "pnr", "PNR", r.PNR, false)
	s.BackFields = backFields(r)
	return s
}

func single(v *string, key, label string) *Structure {
	s := &Structure{}
	s.PrimaryFields = addField(s.PrimaryFields, key, label, v, false)
	return s
}

func generic(r entity.ExtractionRecord) *Structure {
	s := &Structure{}
	s.PrimaryFields = addField(s.PrimaryFields, "title", "TITLE", r.Title, false)
	for _, kv := range []struct {
		key string
		v   *string
	}{
		{"reservation", r.Reservation},
		{"name", r.Name},
	} {
		s.SecondaryFields = addField(s.SecondaryFields, kv.key, strings.ToUpper(kv.key), kv.v, false)
	}
	s.SecondaryFields = addField(s.SecondaryFields, "datetime", "DATETIME", r.DateTime, true)
	return s
}

// backFields keeps the holder name and booking reference on the back of
// event and boarding passes, where the front layout has no slot for them.
func backFields(r entity.ExtractionRecord) []Field {
	var out []Field
	out = addField(out, "name", "NAME", r.Name, false)
	out = addField(out, "reservation", "RESERVATION", r.Reservation, false)
	return out
}
