package fe

import (
	"encoding/xml"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func sampleInvoice() *Invoice {
	inv := &Invoice{
		PointOfSale:       3,
		InvoiceType:       11,
		Number:            10,
		IssueDate:         time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		Concept:           ConceptGoods,
		ReceiverDocType:   DocTypeCUIT,
		ReceiverDocNumber: "20-11111111-2",
		ReceiverCondition: CondEndConsumer,
		Items: []LineItem{
			{Description: "Servicio mensual", Quantity: dec("2"), UnitPrice: dec("100"), TaxRate: dec("21")},
			{Description: "Insumo", Quantity: dec("1"), UnitPrice: dec("50"), TaxRate: dec("10.5")},
			{Description: "Bonificado", Quantity: dec("1"), UnitPrice: dec("10"), Exempt: true},
		},
	}
	inv.Totals = CalculateTotals(inv)
	return inv
}

func TestMapInvoice(t *testing.T) {
	req, err := MapInvoice(sampleInvoice(), 42)
	require.NoError(t, err)

	assert.Equal(t, 1, req.FeCabReq.CantReg)
	assert.Equal(t, 3, req.FeCabReq.PtoVta)
	assert.Equal(t, 11, req.FeCabReq.CbteTipo)

	require.Len(t, req.FeDetReq.Detail, 1)
	det := req.FeDetReq.Detail[0]

	assert.Equal(t, int64(42), det.CbteDesde)
	assert.Equal(t, int64(42), det.CbteHasta)
	assert.Equal(t, "20260815", det.CbteFch)
	assert.Equal(t, int64(20111111112), det.DocNro)
	assert.Equal(t, CondEndConsumer, det.CondicionIVAReceptorId)
	assert.Equal(t, "PES", det.MonId)
	assert.True(t, det.MonCotiz.Equal(dec("1")))

	// 2*100 @21% + 1*50 @10.5%, exempt line kept apart
	assert.True(t, det.ImpNeto.Equal(dec("250")), det.ImpNeto.String())
	assert.True(t, det.ImpIVA.Equal(dec("47.25")), det.ImpIVA.String())
	assert.True(t, det.ImpOpEx.Equal(dec("10")))
	assert.True(t, det.ImpTotal.Equal(dec("307.25")), det.ImpTotal.String())

	// rates aggregate ascending, one entry per rate
	require.NotNil(t, det.Iva)
	require.Len(t, det.Iva.AlicIva, 2)
	assert.Equal(t, 4, det.Iva.AlicIva[0].Id) // 10.5%
	assert.True(t, det.Iva.AlicIva[0].BaseImp.Equal(dec("50")))
	assert.True(t, det.Iva.AlicIva[0].Importe.Equal(dec("5.25")))
	assert.Equal(t, 5, det.Iva.AlicIva[1].Id) // 21%
	assert.True(t, det.Iva.AlicIva[1].BaseImp.Equal(dec("200")))
	assert.True(t, det.Iva.AlicIva[1].Importe.Equal(dec("42")))

	// goods concept carries no service period
	assert.Empty(t, det.FchServDesde)
	assert.Empty(t, det.FchServHasta)
	assert.Empty(t, det.FchVtoPago)
}

func TestMapInvoice_Deterministic(t *testing.T) {
	first, err := MapInvoice(sampleInvoice(), 42)
	require.NoError(t, err)
	second, err := MapInvoice(sampleInvoice(), 42)
	require.NoError(t, err)

	a, err := xml.Marshal(first)
	require.NoError(t, err)
	b, err := xml.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b, "identical input must map to identical bytes")
}

func TestMapInvoice_ServicePeriod(t *testing.T) {
	inv := sampleInvoice()
	inv.Concept = ConceptServices
	inv.ServiceFrom = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	inv.ServiceTo = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	inv.PaymentDue = time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	req, err := MapInvoice(inv, 1)
	require.NoError(t, err)

	det := req.FeDetReq.Detail[0]
	assert.Equal(t, "20260801", det.FchServDesde)
	assert.Equal(t, "20260831", det.FchServHasta)
	assert.Equal(t, "20260910", det.FchVtoPago)
}

func TestMapInvoice_ExplicitTaxAmountWins(t *testing.T) {
	inv := sampleInvoice()
	inv.Items = []LineItem{
		{Quantity: dec("1"), UnitPrice: dec("100"), TaxRate: dec("21"), TaxAmount: dec("20.99")},
	}
	inv.Totals = CalculateTotals(inv)

	req, err := MapInvoice(inv, 1)
	require.NoError(t, err)

	require.Len(t, req.FeDetReq.Detail[0].Iva.AlicIva, 1)
	assert.True(t, req.FeDetReq.Detail[0].Iva.AlicIva[0].Importe.Equal(dec("20.99")))
}

func TestMapInvoice_NoTaxedLines(t *testing.T) {
	inv := sampleInvoice()
	inv.Items = []LineItem{{Quantity: dec("1"), UnitPrice: dec("100"), Exempt: true}}
	inv.Totals = CalculateTotals(inv)

	req, err := MapInvoice(inv, 1)
	require.NoError(t, err)
	assert.Nil(t, req.FeDetReq.Detail[0].Iva, "empty Iva block must be omitted, not sent as null")
}

func TestMapInvoice_Tributos(t *testing.T) {
	inv := sampleInvoice()
	inv.Tributos = []Tributo{
		{ID: 2, Description: "IIBB CABA", BaseAmount: dec("250"), Rate: dec("3"), Amount: dec("7.50")},
	}
	inv.Totals = CalculateTotals(inv)

	req, err := MapInvoice(inv, 1)
	require.NoError(t, err)

	det := req.FeDetReq.Detail[0]
	require.NotNil(t, det.Tributos)
	require.Len(t, det.Tributos.Tributo, 1)
	assert.Equal(t, 2, det.Tributos.Tributo[0].Id)
	assert.True(t, det.ImpTrib.Equal(dec("7.5")))
}

func TestMapInvoice_AnonymousConsumer(t *testing.T) {
	inv := sampleInvoice()
	inv.ReceiverDocType = DocTypeOther
	inv.ReceiverDocNumber = ""

	req, err := MapInvoice(inv, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), req.FeDetReq.Detail[0].DocNro)
}

func TestCalculateTotals(t *testing.T) {
	inv := sampleInvoice()
	inv.Items = append(inv.Items, LineItem{Description: "No gravado", Quantity: dec("1"), UnitPrice: dec("30")})
	inv.Tributos = []Tributo{{ID: 2, Amount: dec("5")}}

	totals := CalculateTotals(inv)
	assert.True(t, totals.TaxedNet.Equal(dec("250")))
	assert.True(t, totals.UntaxedNet.Equal(dec("30")))
	assert.True(t, totals.ExemptNet.Equal(dec("10")))
	assert.True(t, totals.Tax.Equal(dec("47.25")))
	assert.True(t, totals.Levies.Equal(dec("5")))
	assert.True(t, totals.Total.Equal(dec("342.25")))
}
