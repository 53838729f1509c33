// Package qr builds the verification QR payload every printed receipt must
// carry, per AFIP resolution 4892/2020.
package qr

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/resguar/go-afip-client/afip"
	"github.com/resguar/go-afip-client/afip/fe"
)

const (
	payloadVersion = 1
	verifyBaseURL  = "https://www.afip.gob.ar/fe/qr/"
	codAutCAE      = "E"
)

// Payload is the JSON document encoded into the receipt QR. Field names and
// types follow the published specification, so decimals travel as numbers.
type Payload struct {
	Ver        int     `json:"ver"`
	Fecha      string  `json:"fecha"` // ISO date
	Cuit       int64   `json:"cuit"`
	PtoVta     int     `json:"ptoVta"`
	TipoCmp    int     `json:"tipoCmp"`
	NroCmp     int64   `json:"nroCmp"`
	Importe    float64 `json:"importe"`
	Moneda     string  `json:"moneda"`
	Ctz        float64 `json:"ctz"`
	TipoDocRec int     `json:"tipoDocRec,omitempty"`
	NroDocRec  int64   `json:"nroDocRec,omitempty"`
	TipoCodAut string  `json:"tipoCodAut"`
	CodAut     int64   `json:"codAut"`
}

// BuildPayload assembles the QR payload for an authorized invoice.
func BuildPayload(result *fe.AuthorizationResult, inv *fe.Invoice, cuit afip.Cuit) (*Payload, error) {
	if result == nil || result.CAE == "" {
		return nil, fmt.Errorf("invoice has no authorization code")
	}
	issuer, err := strconv.ParseInt(string(cuit), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("issuer CUIT %q is not numeric", cuit)
	}
	cae, err := strconv.ParseInt(result.CAE, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("CAE %q is not numeric", result.CAE)
	}

	p := &Payload{
		Ver:        payloadVersion,
		Fecha:      inv.IssueDate.Format("2006-01-02"),
		Cuit:       issuer,
		PtoVta:     result.PointOfSale,
		TipoCmp:    result.InvoiceType,
		NroCmp:     result.Number,
		Importe:    inv.Totals.Total.InexactFloat64(),
		Moneda:     currency(inv),
		Ctz:        rate(inv),
		TipoCodAut: codAutCAE,
		CodAut:     cae,
	}
	if inv.ReceiverDocNumber != "" {
		doc, err := strconv.ParseInt(afip.CleanCuit(inv.ReceiverDocNumber), 10, 64)
		if err == nil && doc > 0 {
			p.TipoDocRec = inv.ReceiverDocType
			p.NroDocRec = doc
		}
	}
	return p, nil
}

// DataURL encodes the payload into the verification URL printed on receipts.
func DataURL(p *Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding QR payload: %w", err)
	}
	return verifyBaseURL + "?p=" + base64.StdEncoding.EncodeToString(raw), nil
}

func currency(inv *fe.Invoice) string {
	if inv.Currency == "" {
		return "PES"
	}
	return inv.Currency
}

func rate(inv *fe.Invoice) float64 {
	if inv.ExchangeRate.IsZero() {
		return 1
	}
	return inv.ExchangeRate.InexactFloat64()
}
