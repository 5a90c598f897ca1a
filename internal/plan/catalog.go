package plan

import "errors"

// ErrUnknownPlan indicates a lookup for a plan id outside the catalog.
var ErrUnknownPlan = errors.New("plan: unknown plan id")

// Plan describes a purchasable quota package.
type Plan struct {
	ID           string // Catalog key.
	Name         string // Display name shown to users.
	Price        int64  // Price in IDR.
	QuotaGranted int    // Analysis requests credited on payment.
}

// catalog is the static plan table. Prices are in IDR.
var catalog = map[string]Plan{
	"basic":  {ID: "basic", Name: "Paket Basic", Price: 50000, QuotaGranted: 30},
	"pro":    {ID: "pro", Name: "Paket Pro", Price: 100000, QuotaGranted: 100},
	"sultan": {ID: "sultan", Name: "Paket Sultan", Price: 500000, QuotaGranted: 1000},
}

// Lookup returns the plan for the given id.
func Lookup(planID string) (Plan, error) {
	p, ok := catalog[planID]
	if !ok {
		return Plan{}, ErrUnknownPlan
	}
	return p, nil
}

// All returns every catalog entry. The slice is a copy.
func All() []Plan {
	out := make([]Plan, 0, len(catalog))
	for _, id := range []string{"basic", "pro", "sultan"} {
		out = append(out, catalog[id])
	}
	return out
}
