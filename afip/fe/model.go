// Package fe implements the WSFE invoice-authorization workflow: local
// validation, mapping to the FeCAERequest wire schema, correlativity against
// the remote last-authorized number, submission and response interpretation.
package fe

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/resguar/go-afip-client/afip"
)

// Concept of the invoiced operation.
type Concept int

const (
	ConceptGoods            Concept = 1
	ConceptServices         Concept = 2
	ConceptGoodsAndServices Concept = 3
)

// Receiver tax-condition codes (condición frente al IVA).
const (
	CondRegistered        = 1 // IVA Responsable Inscripto
	CondNotResponsible    = 3 // IVA No Responsable
	CondExempt            = 4 // IVA Sujeto Exento
	CondEndConsumer       = 5 // Consumidor Final
	CondMonotributo       = 6 // Responsable Monotributo
	CondUncategorized     = 7 // Sujeto No Categorizado
	CondForeignSupplier   = 8 // Proveedor del Exterior
	CondForeignCustomer   = 9 // Cliente del Exterior
	CondMonotributoSocial = 13
)

// Receiver document types.
const (
	DocTypeCUIT  = 80
	DocTypeCUIL  = 86
	DocTypeDNI   = 96
	DocTypeOther = 99
)

// LineItem is one invoice line. TaxAmount, when non-zero, overrides the
// computed quantity*unitPrice*rate value for the tax breakdown.
type LineItem struct {
	Code        string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	TaxAmount   decimal.Decimal
	Exempt      bool
}

// Tributo is one other-levy entry (provincial taxes, perceptions).
type Tributo struct {
	ID          int
	Description string
	BaseAmount  decimal.Decimal
	Rate        decimal.Decimal
	Amount      decimal.Decimal
}

// Totals are the caller-computed invoice aggregates. The mapper copies them
// to the wire as-is; arithmetic consistency is the caller's contract.
type Totals struct {
	TaxedNet   decimal.Decimal // neto gravado
	UntaxedNet decimal.Decimal // neto no gravado
	ExemptNet  decimal.Decimal // operaciones exentas
	Tax        decimal.Decimal // total IVA
	Levies     decimal.Decimal // total tributos
	Total      decimal.Decimal
}

// Invoice is the single typed invoice representation of this module.
// Adapters from other shapes belong to the caller.
type Invoice struct {
	PointOfSale int
	InvoiceType int
	Number      int64 // provisional; replaced when correlativity requires it
	IssueDate   time.Time
	Concept     Concept

	ReceiverDocType   int
	ReceiverDocNumber string

	// Explicit numeric tax-condition code wins; when zero, the free-text
	// description is matched against the keyword table, then a
	// type-appropriate default applies.
	ReceiverCondition     int
	ReceiverConditionText string

	Currency     string          // ISO-ish AFIP code, default PES
	ExchangeRate decimal.Decimal // default 1

	// service period, only mapped when the concept covers services
	ServiceFrom time.Time
	ServiceTo   time.Time
	PaymentDue  time.Time

	Items    []LineItem
	Tributos []Tributo
	Totals   Totals
}

// AuthorizationResult is produced only by an accepted remote exchange and
// is immutable afterwards.
type AuthorizationResult struct {
	CAE           string
	CAEExpiration string // yyyymmdd
	Number        int64
	PointOfSale   int
	InvoiceType   int
	Observations  []afip.Observation // informational, non-fatal
}

// CAEValid reports whether the authorization code is still usable today.
func (r *AuthorizationResult) CAEValid(now time.Time) bool {
	if r == nil || r.CAE == "" {
		return false
	}
	exp, err := time.ParseInLocation("20060102", r.CAEExpiration, now.Location())
	if err != nil {
		return false
	}
	return !now.After(exp.Add(24*time.Hour - time.Nanosecond))
}

// LastAuthorized is the remote answer to the correlativity query.
type LastAuthorized struct {
	Number      int64
	Date        string // yyyymmdd, empty when no invoice exists yet
	PointOfSale int
	InvoiceType int
}

// ReceiptType is a normalized FEParamGetTiposCbte entry.
type ReceiptType struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
	From        string `json:"from,omitempty"` // ISO date
	To          string `json:"to,omitempty"`
}

// PointOfSale is a normalized FEParamGetPtosVenta entry.
type PointOfSale struct {
	Number  int    `json:"number"`
	Type    string `json:"type"`
	Blocked bool   `json:"blocked"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
}
