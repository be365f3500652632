package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

// Repository reads catalog rows from PostgreSQL.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs Repository.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// FindProduct loads a product regardless of status.
func (r *Repository) FindProduct(ctx context.Context, productID int64) (Product, error) {
	const query = `SELECT id, code, name, status FROM products WHERE id = $1`
	var p Product
	err := r.db.QueryRow(ctx, query, productID).Scan(&p.ID, &p.Code, &p.Name, &p.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// FindPresentationForProduct loads the association row regardless of status.
func (r *Repository) FindPresentationForProduct(ctx context.Context, productID, presentationID int64) (ProductPresentation, error) {
	const query = `
		SELECT pp.product_id, pp.presentation_id, p.name, pp.status
		FROM product_presentations pp
		JOIN presentations p ON p.id = pp.presentation_id
		WHERE pp.product_id = $1 AND pp.presentation_id = $2`
	var pp ProductPresentation
	err := r.db.QueryRow(ctx, query, productID, presentationID).Scan(
		&pp.ProductID, &pp.PresentationID, &pp.PresentationName, &pp.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductPresentation{}, ErrPresentationNotFound
		}
		return ProductPresentation{}, err
	}
	return pp, nil
}

// ResolvePricing returns the active price entry for the pair.
func (r *Repository) ResolvePricing(ctx context.Context, productID, presentationID int64) (Pricing, error) {
	const query = `
		SELECT pp.product_id, pp.presentation_id, pr.name, p.name,
		       pp.unit_price, COALESCE(t.rate, 0), pp.quantity_per_unit
		FROM product_presentations pp
		JOIN products pr ON pr.id = pp.product_id
		JOIN presentations p ON p.id = pp.presentation_id
		LEFT JOIN taxes t ON t.id = pr.tax_id
		WHERE pp.product_id = $1 AND pp.presentation_id = $2 AND pp.status = 'ACTIVE'`
	var pr Pricing
	err := r.db.QueryRow(ctx, query, productID, presentationID).Scan(
		&pr.ProductID, &pr.PresentationID, &pr.ProductName, &pr.PresentationName,
		&pr.UnitPrice, &pr.TaxRate, &pr.QuantityPerUnit,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pricing{}, ErrPricingNotFound
		}
		return Pricing{}, err
	}
	return pr, nil
}
