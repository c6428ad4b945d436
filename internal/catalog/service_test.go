package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-dms/meridian-dms/internal/shared"
)

type memoryRepo struct {
	products map[int64]Product
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]Product)}
}

func (m *memoryRepo) GetByID(ctx context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (m *memoryRepo) Create(ctx context.Context, p Product) (int64, error) {
	for _, existing := range m.products {
		if existing.SKU == p.SKU {
			return 0, ErrSKUTaken
		}
	}
	m.nextID++
	p.ID = m.nextID
	m.products[p.ID] = p
	return p.ID, nil
}

func (m *memoryRepo) SetActive(ctx context.Context, id int64, active bool) error {
	p, ok := m.products[id]
	if !ok {
		return ErrProductNotFound
	}
	p.IsActive = active
	m.products[id] = p
	return nil
}

func (m *memoryRepo) List(ctx context.Context, search string, p shared.Pagination) ([]Product, error) {
	var out []Product
	for _, prod := range m.products {
		out = append(out, prod)
	}
	return out, nil
}

func (m *memoryRepo) ProductActive(ctx context.Context, id int64) (bool, error) {
	p, ok := m.products[id]
	if !ok {
		return false, nil
	}
	return p.IsActive, nil
}

func TestNormalizeSKU(t *testing.T) {
	svc := NewService(newMemoryRepo())

	assert.Equal(t, "ABC-123", svc.NormalizeSKU("  abc 123 "))
	assert.Equal(t, "KAFFEE-1", svc.NormalizeSKU("kaffee-1"))
	assert.Equal(t, "", svc.NormalizeSKU("   "))
}

func TestCreateProductCanonicalizes(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	id, err := svc.CreateProduct(ctx, CreateProductInput{SKU: " wd 40 ", Name: " Lubricant "})
	require.NoError(t, err)

	product, err := svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "WD-40", product.SKU)
	assert.Equal(t, "Lubricant", product.Name)
	assert.Equal(t, "pcs", product.Unit)
	assert.True(t, product.IsActive)

	// Same SKU after normalization collides.
	_, err = svc.CreateProduct(ctx, CreateProductInput{SKU: "wd-40", Name: "Other"})
	assert.ErrorIs(t, err, ErrSKUTaken)

	_, err = svc.CreateProduct(ctx, CreateProductInput{SKU: "  ", Name: "No SKU"})
	assert.ErrorIs(t, err, ErrEmptySKU)
	_, err = svc.CreateProduct(ctx, CreateProductInput{SKU: "X-1", Name: " "})
	assert.ErrorIs(t, err, ErrEmptyName)
}
