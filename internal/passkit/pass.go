package passkit

import (
	"github.com/joseph-ayodele/ticket-wallet/constants"
)

const (
	BarcodeFormatQR  = "PKBarcodeFormatQR"
	DateStyleShort   = "PKDateStyleShort"
	TransitTypeAir   = "PKTransitTypeAir"
	barcodeEncoding  = "iso-8859-1"
	foregroundColour = "rgb(255, 255, 255)"
	backgroundColour = "rgb(0, 0, 0)"
	labelColour      = "rgb(255, 255, 255)"
)

// Pass is the pass.json document of a wallet pass.
type Pass struct {
	FormatVersion      int        `json:"formatVersion"`
	PassTypeIdentifier string     `json:"passTypeIdentifier"`
	TeamIdentifier     string     `json:"teamIdentifier"`
	OrganizationName   string     `json:"organizationName"`
	Description        string     `json:"description"`
	SerialNumber       string     `json:"serialNumber"`
	ForegroundColor    string     `json:"foregroundColor"`
	BackgroundColor    string     `json:"backgroundColor"`
	LabelColor         string     `json:"labelColor"`
	Locale             string     `json:"locale,omitempty"`
	Barcode            Barcode    `json:"barcode"`
	Barcodes           []Barcode  `json:"barcodes"`
	EventTicket        *Structure `json:"eventTicket,omitempty"`
	BoardingPass       *Structure `json:"boardingPass,omitempty"`
	StoreCard          *Structure `json:"storeCard,omitempty"`
	Coupon             *Structure `json:"coupon,omitempty"`
	Generic            *Structure `json:"generic,omitempty"`
}

type Barcode struct {
	Format          string `json:"format"`
	Message         string `json:"message"`
	MessageEncoding string `json:"messageEncoding"`
}

// Structure holds the field groups of one pass style. Empty groups are omitted.
type Structure struct {
	TransitType     string  `json:"transitType,omitempty"`
	PrimaryFields   []Field `json:"primaryFields,omitempty"`
	SecondaryFields []Field `json:"secondaryFields,omitempty"`
	AuxiliaryFields []Field `json:"auxiliaryFields,omitempty"`
	BackFields      []Field `json:"backFields,omitempty"`
}

type Field struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Value     string `json:"value"`
	DateStyle string `json:"dateStyle,omitempty"`
	TimeStyle string `json:"timeStyle,omitempty"`
}

// Category reports which style the pass carries.
func (p Pass) Category() constants.PassCategory {
	switch {
	case p.EventTicket != nil:
		return constants.EventTicket
	case p.BoardingPass != nil:
		return constants.BoardingPass
	case p.StoreCard != nil:
		return constants.StoreCard
	case p.Coupon != nil:
		return constants.Coupon
	}
	return constants.Generic
}

// Style returns the populated style structure.
func (p Pass) Style() *Structure {
	for _, s := range []*Structure{p.EventTicket, p.BoardingPass, p.StoreCard, p.Coupon, p.Generic} {
		if s != nil {
			return s
		}
	}
	return nil
}
