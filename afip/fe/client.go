package fe

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"
	log "github.com/sirupsen/logrus"

	"github.com/resguar/go-afip-client/afip"
	"github.com/resguar/go-afip-client/afip/cache"
	"github.com/resguar/go-afip-client/afip/soap"
)

const (
	wsfeNS      = "http://ar.gov.afip.dif.FEV1/"
	serviceName = "wsfe"

	cacheKindReceiptTypes = "param_tipos_cbte"
	cacheKindPointsOfSale = "param_ptos_venta"
)

// TokenProvider supplies WSAA credentials for the wsfe service.
type TokenProvider interface {
	GetToken(ctx context.Context, service, cuit string) (*afip.Token, error)
}

// Client talks to the WSFE electronic-invoicing service on behalf of one
// issuer CUIT.
type Client struct {
	cfg       afip.Config
	tokens    TokenProvider
	transport *soap.Client
	params    *cache.ParamCache
}

func New(cfg afip.Config, tokens TokenProvider, transport *soap.Client, params *cache.ParamCache) *Client {
	return &Client{cfg: cfg.Normalized(), tokens: tokens, transport: transport, params: params}
}

// Authorize submits one invoice for CAE authorization. The invoice number is
// resolved against the service's last-authorized counter first: a requested
// number at or below it is replaced with last+1. On success the returned
// result carries the definitive number actually authorized.
func (c *Client) Authorize(ctx context.Context, inv *Invoice) (*AuthorizationResult, error) {
	if err := Validate(inv); err != nil {
		return nil, err
	}

	auth, err := c.wireAuth(ctx)
	if err != nil {
		return nil, err
	}

	last, err := c.lastAuthorized(ctx, auth, inv.PointOfSale, inv.InvoiceType)
	if err != nil {
		return nil, err
	}
	number := inv.Number
	if number <= last.Number {
		number = last.Number + 1
		log.Debugf("invoice number %d already used, issuing as %d", inv.Number, number)
	}

	req, err := MapInvoice(inv, number)
	if err != nil {
		return nil, err
	}

	body, err := marshalMethod(feCAESolicitar{Xmlns: wsfeNS, Auth: *auth, FeCAEReq: *req})
	if err != nil {
		return nil, err
	}
	resp, err := c.transport.Call(ctx, c.cfg.ResolvedWsfeURL(), wsfeNS+"FECAESolicitar", body)
	if err != nil {
		return nil, err
	}
	return parseAuthorization(resp, inv.PointOfSale, inv.InvoiceType, number)
}

// LastAuthorized queries the highest invoice number the service has
// authorized for the point of sale and invoice type.
func (c *Client) LastAuthorized(ctx context.Context, pointOfSale, invoiceType int) (*LastAuthorized, error) {
	auth, err := c.wireAuth(ctx)
	if err != nil {
		return nil, err
	}
	return c.lastAuthorized(ctx, auth, pointOfSale, invoiceType)
}

func (c *Client) lastAuthorized(ctx context.Context, auth *WireAuth, pointOfSale, invoiceType int) (*LastAuthorized, error) {
	body, err := marshalMethod(feCompUltimoAutorizado{
		Xmlns:    wsfeNS,
		Auth:     *auth,
		PtoVta:   pointOfSale,
		CbteTipo: invoiceType,
	})
	if err != nil {
		return nil, err
	}
	resp, err := c.transport.Call(ctx, c.cfg.ResolvedWsfeURL(), wsfeNS+"FECompUltimoAutorizado", body)
	if err != nil {
		return nil, err
	}
	if err := serviceErrors(resp); err != nil {
		return nil, err
	}
	return &LastAuthorized{
		Number:      parseInt64(soap.Text(resp, "CbteNro")),
		Date:        soap.Text(resp, "CbteFch"),
		PointOfSale: pointOfSale,
		InvoiceType: invoiceType,
	}, nil
}

// ReceiptTypes returns the invoice-type codes currently valid for issuing,
// filtered by their validity window and cached per CUIT.
func (c *Client) ReceiptTypes(ctx context.Context) ([]ReceiptType, error) {
	var cached []ReceiptType
	if c.params != nil && c.params.Get(cacheKindReceiptTypes, c.cfg.Cuit, &cached) {
		return cached, nil
	}

	resp, err := c.paramGet(ctx, "FEParamGetTiposCbte")
	if err != nil {
		return nil, err
	}
	today := todayYmd()
	var out []ReceiptType
	for _, el := range soap.FindLocalAll(resp, "CbteTipo") {
		from, to := soap.Text(el, "FchDesde"), soap.Text(el, "FchHasta")
		if !withinWindow(today, from, to) {
			continue
		}
		out = append(out, ReceiptType{
			Code:        int(parseInt64(soap.Text(el, "Id"))),
			Description: soap.Text(el, "Desc"),
			From:        isoDate(from),
			To:          isoDate(to),
		})
	}
	if c.params != nil {
		c.params.Put(cacheKindReceiptTypes, c.cfg.Cuit, out)
	}
	return out, nil
}

// PointsOfSale returns the points of sale enabled for the issuer, filtered
// by their validity window and cached per CUIT.
func (c *Client) PointsOfSale(ctx context.Context) ([]PointOfSale, error) {
	var cached []PointOfSale
	if c.params != nil && c.params.Get(cacheKindPointsOfSale, c.cfg.Cuit, &cached) {
		return cached, nil
	}

	resp, err := c.paramGet(ctx, "FEParamGetPtosVenta")
	if err != nil {
		return nil, err
	}
	today := todayYmd()
	var out []PointOfSale
	for _, el := range soap.FindLocalAll(resp, "PtoVenta") {
		from, to := soap.Text(el, "FchDesde"), soap.Text(el, "FchHasta")
		if !withinWindow(today, from, to) {
			continue
		}
		out = append(out, PointOfSale{
			Number:  int(parseInt64(soap.Text(el, "Nro"))),
			Type:    soap.Text(el, "EmisionTipo"),
			Blocked: soap.Text(el, "Bloqueado") == "S",
			From:    isoDate(from),
			To:      isoDate(to),
		})
	}
	if c.params != nil {
		c.params.Put(cacheKindPointsOfSale, c.cfg.Cuit, out)
	}
	return out, nil
}

// ClearParamCache drops the cached parameter tables for the issuer CUIT.
func (c *Client) ClearParamCache() {
	if c.params != nil {
		c.params.Clear(c.cfg.Cuit, cacheKindReceiptTypes, cacheKindPointsOfSale)
	}
}

func (c *Client) paramGet(ctx context.Context, method string) (*etree.Element, error) {
	auth, err := c.wireAuth(ctx)
	if err != nil {
		return nil, err
	}
	body, err := marshalMethod(feParamGet{
		XMLName: xml.Name{Local: method},
		Xmlns:   wsfeNS,
		Auth:    *auth,
	})
	if err != nil {
		return nil, err
	}
	resp, err := c.transport.Call(ctx, c.cfg.ResolvedWsfeURL(), wsfeNS+method, body)
	if err != nil {
		return nil, err
	}
	if err := serviceErrors(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) wireAuth(ctx context.Context) (*WireAuth, error) {
	token, err := c.tokens.GetToken(ctx, serviceName, c.cfg.Cuit)
	if err != nil {
		return nil, err
	}
	cuit, err := strconv.ParseInt(c.cfg.Cuit, 10, 64)
	if err != nil {
		return nil, &afip.ValidationError{Message: fmt.Sprintf("issuer CUIT %q is not numeric", c.cfg.Cuit)}
	}
	return &WireAuth{Token: token.Token, Sign: token.Sign, Cuit: cuit}, nil
}

// parseAuthorization interprets a FECAESolicitarResult. Both the header and
// the detail verdict must be "A" for the invoice to count as authorized.
func parseAuthorization(resp *etree.Element, pointOfSale, invoiceType int, number int64) (*AuthorizationResult, error) {
	headerResult := ""
	if cab := soap.FindLocal(resp, "FeCabResp"); cab != nil {
		headerResult = soap.Text(cab, "Resultado")
	}
	det := soap.FindLocal(resp, "FECAEDetResponse")
	detResult := ""
	if det != nil {
		detResult = soap.Text(det, "Resultado")
	}

	observations := collectEntries(det, "Obs")
	if headerResult != "A" || detResult != "A" {
		errs := collectEntries(resp, "Err")
		msg := "invoice rejected by the service"
		code := 0
		if len(errs) > 0 {
			msg = errs[0].Message
			code = errs[0].Code
		} else if len(observations) > 0 {
			msg = observations[0].Message
			code = observations[0].Code
		}
		return nil, &afip.AuthorizationError{
			Code:         code,
			Message:      msg,
			Observations: append(errs, observations...),
		}
	}

	cae := soap.Text(det, "CAE")
	if cae == "" {
		return nil, &afip.AuthorizationError{Message: "accepted response carried no CAE"}
	}
	if n := parseInt64(soap.Text(det, "CbteDesde")); n != 0 {
		number = n
	}
	log.Infof("invoice %d-%d #%d authorized, CAE %s", pointOfSale, invoiceType, number, cae)
	return &AuthorizationResult{
		CAE:           cae,
		CAEExpiration: soap.Text(det, "CAEFchVto"),
		Number:        number,
		PointOfSale:   pointOfSale,
		InvoiceType:   invoiceType,
		Observations:  observations,
	}, nil
}

// serviceErrors maps a WSFE Errors block to an AuthorizationError.
func serviceErrors(resp *etree.Element) error {
	errors := soap.FindLocal(resp, "Errors")
	if errors == nil {
		return nil
	}
	entries := collectEntries(errors, "Err")
	if len(entries) == 0 {
		return nil
	}
	return &afip.AuthorizationError{
		Code:         entries[0].Code,
		Message:      entries[0].Message,
		Observations: entries,
	}
}

func collectEntries(el *etree.Element, wrapper string) []afip.Observation {
	var out []afip.Observation
	for _, entry := range soap.FindLocalAll(el, wrapper) {
		out = append(out, afip.Observation{
			Code:    int(parseInt64(soap.Text(entry, "Code"))),
			Message: soap.Text(entry, "Msg"),
		})
	}
	return out
}

func marshalMethod(method any) ([]byte, error) {
	body, err := xml.Marshal(method)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	return body, nil
}

func todayYmd() int {
	n, _ := strconv.Atoi(time.Now().Format(wsfeDateLayout))
	return n
}

// withinWindow checks a yyyymmdd validity window. Absent or non-numeric
// bounds (the service answers "NULL" for open windows) do not constrain.
func withinWindow(today int, from, to string) bool {
	if f, err := strconv.Atoi(from); err == nil && today < f {
		return false
	}
	if t, err := strconv.Atoi(to); err == nil && t > 0 && today > t {
		return false
	}
	return true
}

func isoDate(ymd string) string {
	t, err := time.Parse(wsfeDateLayout, ymd)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
