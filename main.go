package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/resguar/go-afip-client/afip"
	"github.com/resguar/go-afip-client/afip/auth"
	"github.com/resguar/go-afip-client/afip/cache"
	"github.com/resguar/go-afip-client/afip/cert"
	"github.com/resguar/go-afip-client/afip/fe"
	"github.com/resguar/go-afip-client/afip/qr"
	"github.com/resguar/go-afip-client/afip/soap"
	"github.com/resguar/go-afip-client/afip/util"
	"github.com/resguar/go-afip-client/png"
)

// Issues a test invoice against the homologation environment. Needs a
// certificate enrolled for wsfe, see https://www.afip.gob.ar/ws/.
func main() {

	logrus.SetLevel(logrus.DebugLevel)

	cuit := util.GetEnvOrFailed("AFIP_CUIT")
	certPath := util.GetEnvOrFailed("AFIP_CERT")
	keyPath := util.GetEnvOrFailed("AFIP_KEY")

	cfg := afip.DefaultConfig(afip.Test, cuit)
	cfg.CertPath = certPath
	cfg.KeyPath = keyPath

	store := cache.Memory()
	transport := soap.New(cfg)
	tokens := auth.New(cfg, cert.NewStore(cfg), transport, cache.NewTokenCache(store, cfg))
	invoicing := fe.New(cfg, tokens, transport, cache.NewParamCache(store, cfg))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	last, err := invoicing.LastAuthorized(ctx, 1, 11)
	if err != nil {
		panic(err)
	}
	fmt.Println("last authorized:", last.Number)

	inv := &fe.Invoice{
		PointOfSale:       1,
		InvoiceType:       11,
		Number:            last.Number + 1,
		IssueDate:         time.Now(),
		Concept:           fe.ConceptGoods,
		ReceiverDocType:   fe.DocTypeOther,
		ReceiverCondition: fe.CondEndConsumer,
		Items: []fe.LineItem{
			{Description: "Producto de prueba", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
		},
	}
	inv.Totals = fe.CalculateTotals(inv)

	result, err := invoicing.Authorize(ctx, inv)
	if err != nil {
		panic(err)
	}

	fmt.Println("CAE:", result.CAE, "vence", result.CAEExpiration)

	payload, err := qr.BuildPayload(result, inv, afip.Cuit(cuit))
	if err != nil {
		panic(err)
	}
	url, err := qr.DataURL(payload)
	if err != nil {
		panic(err)
	}

	image, err := png.Qr(url)
	if err != nil {
		panic(err)
	}
	fmt.Printf("QR: %s (%d bytes PNG)\n", url, len(image))
}
