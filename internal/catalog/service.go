package catalog

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/meridian-dms/meridian-dms/internal/shared"
)

// RepositoryPort abstracts the catalog repository.
type RepositoryPort interface {
	GetByID(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, p Product) (int64, error)
	SetActive(ctx context.Context, id int64, active bool) error
	List(ctx context.Context, search string, p shared.Pagination) ([]Product, error)
	ProductActive(ctx context.Context, id int64) (bool, error)
}

// Service manages the product catalog and doubles as the product
// directory for the vanstock module.
type Service struct {
	repo  RepositoryPort
	upper cases.Caser
}

func NewService(repo RepositoryPort) *Service {
	return &Service{
		repo:  repo,
		upper: cases.Upper(language.Und),
	}
}

// NormalizeSKU canonicalizes a SKU: trimmed, uppercased with full
// Unicode case mapping, inner whitespace collapsed to dashes.
func (s *Service) NormalizeSKU(sku string) string {
	sku = strings.TrimSpace(sku)
	sku = strings.Join(strings.Fields(sku), "-")
	return s.upper.String(sku)
}

func (s *Service) GetByID(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateProduct registers a product under its canonical SKU.
func (s *Service) CreateProduct(ctx context.Context, input CreateProductInput) (int64, error) {
	sku := s.NormalizeSKU(input.SKU)
	if sku == "" {
		return 0, ErrEmptySKU
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return 0, ErrEmptyName
	}
	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = "pcs"
	}
	return s.repo.Create(ctx, Product{SKU: sku, Name: name, Unit: unit, IsActive: true})
}

func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

func (s *Service) List(ctx context.Context, search string, p shared.Pagination) ([]Product, error) {
	return s.repo.List(ctx, strings.TrimSpace(search), p)
}

// ProductActive satisfies the vanstock product directory.
func (s *Service) ProductActive(ctx context.Context, id int64) (bool, error) {
	return s.repo.ProductActive(ctx, id)
}
