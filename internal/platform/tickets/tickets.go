// Package tickets renders booking tickets: a signed QR payload, served either as a PNG
// code or embedded in an A4 PDF.
package tickets

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	domain "github.com/menuslot/api/internal/domain"
)

const (
	qrSize      = 256
	fieldSep    = "|"
	unsignedLen = 4
)

var (
	// ErrMalformedPayload is returned when a scanned payload does not have the ticket shape.
	ErrMalformedPayload = errors.New("tickets: malformed payload")
	// ErrInvalidSignature is returned when the payload signature does not verify.
	ErrInvalidSignature = errors.New("tickets: invalid signature")
)

// Claims is the decoded content of a ticket payload.
type Claims struct {
	BookingID string
	ItemID    string
	Start     time.Time
	End       time.Time
}

// Issuer signs and renders tickets. Without a secret payloads are issued unsigned.
type Issuer struct {
	secret   []byte
	location *time.Location
}

// NewIssuer builds an issuer. Dates printed on the PDF use loc, defaulting to UTC.
func NewIssuer(secret string, loc *time.Location) *Issuer {
	if loc == nil {
		loc = time.UTC
	}
	issuer := &Issuer{location: loc}
	if secret = strings.TrimSpace(secret); secret != "" {
		issuer.secret = []byte(secret)
	}
	return issuer
}

// Signed reports whether payloads carry an HMAC signature.
func (i *Issuer) Signed() bool {
	return len(i.secret) > 0
}

// Payload encodes booking|item|start|end, followed by a signature when a secret is set.
func (i *Issuer) Payload(booking domain.Booking) string {
	data := strings.Join([]string{
		booking.ID,
		booking.ItemID,
		booking.StartTime.UTC().Format(time.RFC3339),
		booking.EndTime.UTC().Format(time.RFC3339),
	}, fieldSep)
	if !i.Signed() {
		return data
	}
	return data + fieldSep + i.sign(data)
}

// Verify decodes payload and checks its signature when the issuer signs tickets.
func (i *Issuer) Verify(payload string) (Claims, error) {
	parts := strings.Split(strings.TrimSpace(payload), fieldSep)
	want := unsignedLen
	if i.Signed() {
		want++
	}
	if len(parts) != want {
		return Claims{}, ErrMalformedPayload
	}
	if i.Signed() {
		data := strings.Join(parts[:unsignedLen], fieldSep)
		if !hmac.Equal([]byte(parts[unsignedLen]), []byte(i.sign(data))) {
			return Claims{}, ErrInvalidSignature
		}
	}
	start, err := time.Parse(time.RFC3339, parts[2])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: start: %v", ErrMalformedPayload, err)
	}
	end, err := time.Parse(time.RFC3339, parts[3])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: end: %v", ErrMalformedPayload, err)
	}
	return Claims{BookingID: parts[0], ItemID: parts[1], Start: start, End: end}, nil
}

func (i *Issuer) sign(data string) string {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// QRCode renders the payload as a PNG.
func (i *Issuer) QRCode(booking domain.Booking) ([]byte, error) {
	png, err := qrcode.Encode(i.Payload(booking), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("tickets: encode qr: %w", err)
	}
	return png, nil
}

// PDF renders an A4 ticket with the booking details and the QR code.
func (i *Issuer) PDF(booking domain.Booking) ([]byte, error) {
	qr, err := i.QRCode(booking)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Booking "+booking.ID, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 12, "Booking Ticket")
	pdf.Ln(16)

	start := booking.StartTime.In(i.location)
	end := booking.EndTime.In(i.location)
	itemName := booking.ItemID
	if booking.Item != nil && booking.Item.Name != "" {
		itemName = booking.Item.Name
	}
	rows := [][2]string{
		{"Booking", booking.ID},
		{"Item", itemName},
		{"Date", start.Format("Monday, 2 January 2006")},
		{"Time", fmt.Sprintf("%s - %s (%s)", start.Format("15:04"), end.Format("15:04"), i.location.String())},
		{"Status", string(booking.Status)},
	}
	if booking.Customer.Name != nil {
		rows = append(rows, [2]string{"Guest", *booking.Customer.Name})
	}
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(30, 8, row[0])
		pdf.SetFont("Arial", "", 12)
		pdf.Cell(0, 8, tr(row[1]))
		pdf.Ln(9)
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("ticket-qr", opts, bytes.NewReader(qr))
	pdf.ImageOptions("ticket-qr", 140, 30, 50, 50, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("tickets: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
