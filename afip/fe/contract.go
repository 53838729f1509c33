package fe

import "context"

// ConfigRepository yields the per-tenant invoicing settings kept by the
// host application. The client never persists anything through it.
type ConfigRepository interface {
	// InvoicingConfig returns the stored configuration for one issuer CUIT.
	InvoicingConfig(ctx context.Context, cuit string) (map[string]string, error)
}

// PointOfSaleRepository is the host-side registry of points of sale, for
// callers that reconcile the remote FEParamGetPtosVenta answer against
// their own records.
type PointOfSaleRepository interface {
	StoredPointsOfSale(ctx context.Context, cuit string) ([]PointOfSale, error)
	SavePointsOfSale(ctx context.Context, cuit string, entries []PointOfSale) error
}
