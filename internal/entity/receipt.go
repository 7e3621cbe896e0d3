package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Receipt is a purchase receipt as the zpu API stores it. Field names follow
// the API's JSON exactly; dates stay ISO-8601 strings because the backend
// owns their precision.
type Receipt struct {
	ID                 ExternalID `json:"id,omitempty"`
	UID                string     `json:"uid"`
	Category           string     `json:"category"`
	Price              Amount     `json:"price"`
	Currency           string     `json:"currency"`
	ProductName        string     `json:"productName"`
	StoreName          string     `json:"storeName"`
	StoreLocation      string     `json:"storeLocation,omitempty"`
	Date               string     `json:"date"`
	ValidUptoDate      string     `json:"validUptoDate,omitempty"`
	RefundableUptoDate string     `json:"refundableUptoDate,omitempty"`
	ImageReceiptID     ExternalID `json:"imageReceiptId,omitempty"`
	AddedDate          string     `json:"addedDate,omitempty"`
	UpdatedDate        string     `json:"updatedDate,omitempty"`
}

// ReceiptInput is the create payload. Image carries the base64 encoded
// receipt picture when one was attached.
type ReceiptInput struct {
	UID                string `json:"uid"`
	Category           string `json:"category"`
	Price              Amount `json:"price"`
	Currency           string `json:"currency"`
	ProductName        string `json:"productName"`
	StoreName          string `json:"storeName"`
	StoreLocation      string `json:"storeLocation,omitempty"`
	Date               string `json:"date"`
	ValidUptoDate      string `json:"validUptoDate,omitempty"`
	RefundableUptoDate string `json:"refundableUptoDate,omitempty"`
	Image              string `json:"image,omitempty"`
}

// PurchaseTime parses Date. Missing or unparsable dates yield the zero time.
func (r Receipt) PurchaseTime() time.Time {
	t, _ := ParseTimestamp(r.Date)
	return t
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the ISO-8601 variants the backend has been seen to emit.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ExternalID is an identifier assigned by the backend. It decodes from a JSON
// string or number and stays empty until the record is persisted.
type ExternalID string

func (id *ExternalID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ExternalID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("external id: %w", err)
	}
	*id = ExternalID(n.String())
	return nil
}

func (id ExternalID) String() string { return string(id) }

// Amount is a non-negative price. It decodes from a JSON number or a numeric
// string, the latter with parseFloat semantics.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		f, err := ParseAmount(s)
		if err != nil {
			return err
		}
		*a = Amount(f)
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}
	*a = Amount(f)
	return nil
}

func (a Amount) Float64() float64 { return float64(a) }
