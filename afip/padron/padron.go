// Package padron declares the taxpayer-registry collaborator. The lookup
// itself (ws_sr_padron_a13 and friends) lives outside this module; invoicing
// only needs the contract and the public tax-condition vocabulary.
package padron

import (
	"context"

	"github.com/resguar/go-afip-client/afip"
)

// Persona is the subset of a registry answer invoicing cares about.
type Persona struct {
	Cuit         afip.Cuit
	Name         string
	TaxCondition int
	Address      string
	Active       bool
}

// Registry looks up taxpayers by CUIT.
type Registry interface {
	Persona(ctx context.Context, cuit afip.Cuit) (*Persona, error)
}

// IVAConditions maps condition codes to their official descriptions.
var IVAConditions = map[int]string{
	1:  "IVA Responsable Inscripto",
	2:  "IVA Responsable no Inscripto",
	3:  "IVA no Responsable",
	4:  "IVA Sujeto Exento",
	5:  "Consumidor Final",
	6:  "Responsable Monotributo",
	7:  "Sujeto no Categorizado",
	8:  "Proveedor del Exterior",
	9:  "Cliente del Exterior",
	10: "IVA Liberado - Ley N 19.640",
	11: "IVA Responsable Inscripto - Agente de Percepcion",
	12: "Pequeno Contribuyente Eventual",
	13: "Monotributista Social",
	14: "Pequeno Contribuyente Eventual Social",
}

// ConditionDescription returns the official wording for a condition code.
func ConditionDescription(code int) string {
	if d, ok := IVAConditions[code]; ok {
		return d
	}
	return ""
}
