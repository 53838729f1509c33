package fe

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/resguar/go-afip-client/afip"
)

const wsfeDateLayout = "20060102"

var hundred = decimal.NewFromInt(100)

// alicIvaIDs maps an IVA percentage to the AlicIva table identifier.
var alicIvaIDs = map[string]int{
	"0":    3,
	"2.5":  9,
	"5":    8,
	"10.5": 4,
	"21":   5,
	"27":   6,
}

func alicIvaID(rate decimal.Decimal) int {
	if id, ok := alicIvaIDs[rate.String()]; ok {
		return id
	}
	return 5
}

// MapInvoice translates a validated invoice into the FeCAERequest wire shape
// using the given definitive number. Mapping is pure and deterministic: the
// same invoice and number always produce an identical request.
func MapInvoice(inv *Invoice, number int64) (*FeCAERequest, error) {
	docNro, err := parseDocNumber(inv.ReceiverDocNumber)
	if err != nil {
		return nil, err
	}

	det := FECAEDetRequest{
		Concepto:               int(inv.Concept),
		DocTipo:                inv.ReceiverDocType,
		DocNro:                 docNro,
		CbteDesde:              number,
		CbteHasta:              number,
		CbteFch:                inv.IssueDate.Format(wsfeDateLayout),
		ImpTotal:               inv.Totals.Total,
		ImpTotConc:             inv.Totals.UntaxedNet,
		ImpNeto:                inv.Totals.TaxedNet,
		ImpOpEx:                inv.Totals.ExemptNet,
		ImpTrib:                inv.Totals.Levies,
		ImpIVA:                 inv.Totals.Tax,
		MonId:                  currencyOrDefault(inv.Currency),
		MonCotiz:               rateOrDefault(inv.ExchangeRate),
		CondicionIVAReceptorId: ResolveReceiverCondition(inv),
	}

	// the service period is only meaningful when services are involved
	if inv.Concept != ConceptGoods {
		if !inv.ServiceFrom.IsZero() {
			det.FchServDesde = inv.ServiceFrom.Format(wsfeDateLayout)
		}
		if !inv.ServiceTo.IsZero() {
			det.FchServHasta = inv.ServiceTo.Format(wsfeDateLayout)
		}
		if !inv.PaymentDue.IsZero() {
			det.FchVtoPago = inv.PaymentDue.Format(wsfeDateLayout)
		}
	}

	det.Iva = aggregateIva(inv.Items)
	det.Tributos = mapTributos(inv.Tributos)

	return &FeCAERequest{
		FeCabReq: FeCabRequest{CantReg: 1, PtoVta: inv.PointOfSale, CbteTipo: inv.InvoiceType},
		FeDetReq: FeDetRequest{Detail: []FECAEDetRequest{det}},
	}, nil
}

// aggregateIva groups line taxes by rate. An explicit line TaxAmount wins
// over the computed one. Zero-amount rates are dropped entirely: the service
// rejects AlicIva entries whose Importe is 0.
func aggregateIva(items []LineItem) *IvaWire {
	type bucket struct {
		base, amount decimal.Decimal
	}
	buckets := map[string]*bucket{}
	for _, it := range items {
		if it.Exempt || it.TaxRate.IsZero() {
			continue
		}
		base := it.Quantity.Mul(it.UnitPrice)
		amount := it.TaxAmount
		if amount.IsZero() {
			amount = base.Mul(it.TaxRate).Div(hundred).Round(2)
		}
		key := it.TaxRate.String()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.base = b.base.Add(base)
		b.amount = b.amount.Add(amount)
	}

	rates := make([]string, 0, len(buckets))
	for rate, b := range buckets {
		if b.amount.IsZero() {
			continue
		}
		rates = append(rates, rate)
	}
	if len(rates) == 0 {
		return nil
	}
	sort.Slice(rates, func(i, j int) bool {
		ri, _ := decimal.NewFromString(rates[i])
		rj, _ := decimal.NewFromString(rates[j])
		return ri.LessThan(rj)
	})

	wire := &IvaWire{}
	for _, rate := range rates {
		b := buckets[rate]
		r, _ := decimal.NewFromString(rate)
		wire.AlicIva = append(wire.AlicIva, AlicIvaWire{
			Id:      alicIvaID(r),
			BaseImp: b.base.Round(2),
			Importe: b.amount.Round(2),
		})
	}
	return wire
}

func mapTributos(tributos []Tributo) *TributosWire {
	if len(tributos) == 0 {
		return nil
	}
	wire := &TributosWire{}
	for _, t := range tributos {
		wire.Tributo = append(wire.Tributo, TributoWire{
			Id:      t.ID,
			Desc:    t.Description,
			BaseImp: t.BaseAmount.Round(2),
			Alic:    t.Rate,
			Importe: t.Amount.Round(2),
		})
	}
	return wire
}

// CalculateTotals derives the invoice aggregates from its lines and levies.
// Callers that already carry totals from their own accounting may skip it.
func CalculateTotals(inv *Invoice) Totals {
	var t Totals
	for _, it := range inv.Items {
		base := it.Quantity.Mul(it.UnitPrice)
		switch {
		case it.Exempt:
			t.ExemptNet = t.ExemptNet.Add(base)
		case it.TaxRate.IsZero():
			t.UntaxedNet = t.UntaxedNet.Add(base)
		default:
			t.TaxedNet = t.TaxedNet.Add(base)
			amount := it.TaxAmount
			if amount.IsZero() {
				amount = base.Mul(it.TaxRate).Div(hundred).Round(2)
			}
			t.Tax = t.Tax.Add(amount)
		}
	}
	for _, tr := range inv.Tributos {
		t.Levies = t.Levies.Add(tr.Amount)
	}
	t.TaxedNet = t.TaxedNet.Round(2)
	t.UntaxedNet = t.UntaxedNet.Round(2)
	t.ExemptNet = t.ExemptNet.Round(2)
	t.Tax = t.Tax.Round(2)
	t.Levies = t.Levies.Round(2)
	t.Total = t.TaxedNet.Add(t.UntaxedNet).Add(t.ExemptNet).Add(t.Tax).Add(t.Levies)
	return t
}

func parseDocNumber(raw string) (int64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if cleaned == "" {
		return 0, nil // anonymous end consumer
	}
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, &afip.ValidationError{Message: fmt.Sprintf("receiver document number %q is not numeric", raw)}
	}
	return n, nil
}

func currencyOrDefault(cur string) string {
	if cur == "" {
		return "PES"
	}
	return cur
}

func rateOrDefault(rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.NewFromInt(1)
	}
	return rate
}
