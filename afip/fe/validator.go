package fe

import (
	"fmt"
	"strings"

	"github.com/resguar/go-afip-client/afip"
)

var (
	typesA = map[int]bool{1: true, 2: true, 3: true, 4: true, 51: true, 52: true, 53: true, 54: true, 201: true, 202: true, 203: true}
	typesB = map[int]bool{6: true, 7: true, 8: true, 9: true, 206: true, 207: true, 208: true}
	typesC = map[int]bool{11: true, 12: true, 13: true, 15: true, 211: true, 212: true, 213: true}

	allowedForA = map[int]bool{CondRegistered: true, CondMonotributo: true, CondMonotributoSocial: true}
	allowedForB = map[int]bool{CondExempt: true, CondEndConsumer: true}
)

// InvoiceTypeLetter returns the fiscal letter of an invoice-type code, or ""
// when the code belongs to no known family.
func InvoiceTypeLetter(code int) string {
	switch {
	case typesA[code]:
		return "A"
	case typesB[code]:
		return "B"
	case typesC[code]:
		return "C"
	}
	return ""
}

// conditionKeywords is matched in order against a lowercased description.
// "no responsable" must be tested before "inscripto"-style substrings would
// ever shadow it, so order is load-bearing.
var conditionKeywords = []struct {
	substr string
	code   int
}{
	{"no responsable", CondNotResponsible},
	{"inscripto", CondRegistered},
	{"monotribut", CondMonotributo},
	{"exento", CondExempt},
	{"consumidor", CondEndConsumer},
}

// ResolveReceiverCondition resolves the receiver tax condition: an explicit
// numeric code wins, then the keyword table over the free-text description,
// then a default appropriate to the invoice letter.
func ResolveReceiverCondition(inv *Invoice) int {
	if inv.ReceiverCondition != 0 {
		return inv.ReceiverCondition
	}
	text := strings.ToLower(inv.ReceiverConditionText)
	if text != "" {
		for _, kw := range conditionKeywords {
			if strings.Contains(text, kw.substr) {
				return kw.code
			}
		}
	}
	if InvoiceTypeLetter(inv.InvoiceType) == "A" {
		return CondRegistered
	}
	return CondEndConsumer
}

// Validate checks the invoice-type / receiver-condition compatibility matrix
// and the structural minimums. It performs no network activity.
func Validate(inv *Invoice) error {
	if inv.PointOfSale <= 0 {
		return &afip.ValidationError{Message: "point of sale must be positive"}
	}
	if inv.InvoiceType <= 0 {
		return &afip.ValidationError{Message: "invoice type must be positive"}
	}
	if inv.IssueDate.IsZero() {
		return &afip.ValidationError{Message: "issue date is required"}
	}
	if inv.Concept != ConceptGoods && inv.Concept != ConceptServices && inv.Concept != ConceptGoodsAndServices {
		return &afip.ValidationError{Message: fmt.Sprintf("unknown concept %d", inv.Concept)}
	}

	cond := ResolveReceiverCondition(inv)
	switch InvoiceTypeLetter(inv.InvoiceType) {
	case "A":
		if !allowedForA[cond] {
			return &afip.ValidationError{
				Message: fmt.Sprintf("receiver condition %d is not valid for a type-A receipt %d", cond, inv.InvoiceType),
			}
		}
	case "B":
		if !allowedForB[cond] {
			return &afip.ValidationError{
				Message: fmt.Sprintf("receiver condition %d is not valid for a type-B receipt %d", cond, inv.InvoiceType),
			}
		}
	}
	return nil
}
