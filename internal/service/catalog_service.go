package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"aurenix/internal/models"
)

const catalogLimit = 100

type ProductView struct {
	models.Product
	ImageURLs []string
}

type CatalogService struct {
	products ProductStore
	images   ImageSigner
	log      zerolog.Logger
}

func NewCatalogService(products ProductStore, images ImageSigner, log zerolog.Logger) *CatalogService {
	return &CatalogService{products: products, images: images, log: log}
}

func (s *CatalogService) ForCustomer(ctx context.Context) ([]ProductView, error) {
	products, err := s.products.List(ctx, catalogLimit)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, products), nil
}

func (s *CatalogService) ForSeller(ctx context.Context, sellerID string) ([]ProductView, error) {
	products, err := s.products.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, products), nil
}

// Search lists products whose name contains term. A blank term matches nothing.
func (s *CatalogService) Search(ctx context.Context, term string) ([]ProductView, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	products, err := s.products.Search(ctx, term, catalogLimit)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, products), nil
}

// views signs image keys. A key that cannot be signed is dropped from the
// listing rather than failing it.
func (s *CatalogService) views(ctx context.Context, products []models.Product) []ProductView {
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		view := ProductView{Product: p}
		if s.images != nil {
			for _, key := range p.ImageKeys {
				u, err := s.images.URL(ctx, key)
				if err != nil {
					s.log.Warn().Err(err).Str("product_id", p.ID).Str("key", key).Msg("sign product image failed")
					continue
				}
				view.ImageURLs = append(view.ImageURLs, u)
			}
		}
		views = append(views, view)
	}
	return views
}
