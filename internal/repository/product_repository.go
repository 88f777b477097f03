package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"aurenix/internal/models"
)

type ProductRepository struct {
	db DB
}

func NewProductRepository(db DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) List(ctx context.Context, limit int) ([]models.Product, error) {
	const query = `
		SELECT id, seller_id, name, description, price, stock, image_keys, created_at
		FROM products
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return scanProducts(rows)
}

func (r *ProductRepository) ListBySeller(ctx context.Context, sellerID string) ([]models.Product, error) {
	const query = `
		SELECT id, seller_id, name, description, price, stock, image_keys, created_at
		FROM products
		WHERE seller_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list seller products: %w", err)
	}
	return scanProducts(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Search matches product names containing term, case-insensitively. The term
// is matched literally.
func (r *ProductRepository) Search(ctx context.Context, term string, limit int) ([]models.Product, error) {
	const query = `
		SELECT id, seller_id, name, description, price, stock, image_keys, created_at
		FROM products
		WHERE name ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, "%"+likeEscaper.Replace(term)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return scanProducts(rows)
}

func scanProducts(rows pgx.Rows) ([]models.Product, error) {
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(
			&p.ID,
			&p.SellerID,
			&p.Name,
			&p.Description,
			&p.Price,
			&p.Stock,
			&p.ImageKeys,
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}
