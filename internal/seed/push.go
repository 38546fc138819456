// ABOUTME: Pushes generated demo data to the warehouse API.
// ABOUTME: Creates suppliers, customers and products through the same client the dashboard uses.

package seed

import (
	"context"

	"go.uber.org/zap"

	apperrors "github.com/2389/xylen/internal/errors"
	"github.com/2389/xylen/internal/resource"
)

// Writer creates records on the warehouse API.
type Writer interface {
	Create(ctx context.Context, res, token string, payload resource.Row) error
}

// Summary counts pushed records per collection.
type Summary struct {
	Created map[string]int
	Failed  int
}

type record struct {
	res string
	row resource.Row
}

// Push creates every record in data. Rejected records are logged and
// counted; an auth failure or a cancelled context stops the push.
func Push(ctx context.Context, w Writer, token string, data *Data, logger *zap.Logger) (Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sum := Summary{Created: map[string]int{}}

	for _, rec := range records(data) {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		err := w.Create(ctx, rec.res, token, rec.row)
		if err == nil {
			sum.Created[rec.res]++
			continue
		}
		if apperrors.IsAuth(err) {
			return sum, err
		}
		sum.Failed++
		logger.Warn("seed record rejected",
			zap.String("resource", rec.res),
			zap.String("kind", apperrors.Kind(err)),
			zap.Error(err))
	}
	return sum, nil
}

// records flattens data in dependency order, keyed the way the admin forms
// submit them.
func records(data *Data) []record {
	var out []record
	for _, s := range data.Suppliers {
		out = append(out, record{"suppliers", resource.NewRow(
			"supplier_name", s.Name,
			"contact_info", s.ContactInfo,
			"address", s.Address,
		)})
	}
	for _, c := range data.Customers {
		out = append(out, record{"customers", resource.NewRow(
			"customer_name", c.Name,
			"contact_info", c.ContactInfo,
		)})
	}
	for _, p := range data.Products {
		out = append(out, record{"products", resource.NewRow(
			"product_name", p.Name,
			"category", p.Category,
			"unit", p.Unit,
			"unit_price", p.UnitPrice,
			"reorder_level", float64(p.ReorderLevel),
		)})
	}
	return out
}
