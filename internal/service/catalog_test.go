package service

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-ecommerce-catalog/internal/models"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/storage"
)

func strPtr(s string) *string { return &s }

func TestCreateCategory_OK_And_Conflict(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, " Books ", "books", "Paper")
	require.NoError(t, err)
	require.Equal(t, "Books", c.Name)
	require.Equal(t, c.CreatedAt, c.CreatedAt.UTC())

	_, err = svc.CreateCategory(ctx, "Other", "books", "")
	require.ErrorIs(t, err, ErrConflict)
}

func TestCreateCategory_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newMockSvc(t)

	_, err := svc.CreateCategory(context.Background(), "", "not a slug", "")
	require.ErrorIs(t, err, ErrValidation)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Contains(t, ve.Fields, "name")
	require.Contains(t, ve.Fields, "slug")
}

func TestUpdateCategory_PatchKeepsOtherFields(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, "Books", "books", "Paper")
	require.NoError(t, err)

	got, err := svc.UpdateCategory(ctx, c.ID, models.CategoryPatch{Description: strPtr("Printed")})
	require.NoError(t, err)
	require.Equal(t, "Books", got.Name)
	require.Equal(t, "books", got.Slug)
	require.Equal(t, "Printed", got.Description)

	_, err = svc.UpdateCategory(ctx, c.ID, models.CategoryPatch{Name: strPtr("")})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateCategory(ctx, uuid.New(), models.CategoryPatch{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCategory_NotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	require.ErrorIs(t, svc.DeleteCategory(context.Background(), uuid.New()), ErrNotFound)
}

func TestCreateProduct_UnknownCategory_FieldError(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)

	_, err := svc.CreateProduct(context.Background(), models.Product{CategoryID: uuid.New(), Name: "X"})
	require.ErrorIs(t, err, ErrValidation)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Contains(t, ve.Fields, "category")
}

func TestCreateProduct_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newMockSvc(t)

	_, err := svc.CreateProduct(context.Background(), models.Product{Name: "", PriceCents: -1, Stock: -5})
	require.ErrorIs(t, err, ErrValidation)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	for _, f := range []string{"category", "name", "price_cents", "stock"} {
		require.Contains(t, ve.Fields, f)
	}
}

func TestProduct_CRUD(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, "Books", "books", "")
	require.NoError(t, err)

	p, err := svc.CreateProduct(ctx, models.Product{CategoryID: c.ID, Name: "Go", PriceCents: 1000, Stock: 2})
	require.NoError(t, err)

	var stock int32 = 0
	got, err := svc.UpdateProduct(ctx, p.ID, models.ProductPatch{Stock: &stock})
	require.NoError(t, err)
	require.Equal(t, int32(0), got.Stock)
	require.Equal(t, int64(1000), got.PriceCents)

	got, err = svc.ProductByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, int32(0), got.Stock)

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	_, err = svc.ProductByID(ctx, p.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListProducts_LimitNormalization(t *testing.T) {
	t.Parallel()

	svc, st := newMockSvc(t)
	ctx := context.Background()

	st.EXPECT().ListProducts(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, opts models.ListOptions) (*models.ProductPage, error) {
			require.Equal(t, int32(20), opts.Limit)
			require.Equal(t, "go", opts.Search)
			return &models.ProductPage{}, nil
		})
	_, err := svc.ListProducts(ctx, models.ListOptions{Limit: 0, Search: "  go "})
	require.NoError(t, err)

	st.EXPECT().ListProducts(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, opts models.ListOptions) (*models.ProductPage, error) {
			require.Equal(t, int32(100), opts.Limit)
			return &models.ProductPage{}, nil
		})
	_, err = svc.ListProducts(ctx, models.ListOptions{Limit: 1000})
	require.NoError(t, err)
}

func TestListCategories_ErrorMapping(t *testing.T) {
	t.Parallel()

	svc, st := newMockSvc(t)
	ctx := context.Background()

	st.EXPECT().ListCategories(gomock.Any(), gomock.Any()).Return(nil, storage.ErrInvalidCursor)
	_, err := svc.ListCategories(ctx, models.ListOptions{PageToken: "bad"})
	require.ErrorIs(t, err, ErrInvalidCursor)

	st.EXPECT().ListCategories(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))
	_, err = svc.ListCategories(ctx, models.ListOptions{})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidCursor)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestListCategories_Pages(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	ctx := context.Background()

	for _, slug := range []string{"a", "b", "c"} {
		_, err := svc.CreateCategory(ctx, slug, slug, "")
		require.NoError(t, err)
	}

	page, err := svc.ListCategories(ctx, models.ListOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextPageToken)

	page, err = svc.ListCategories(ctx, models.ListOptions{Limit: 2, PageToken: page.NextPageToken})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Empty(t, page.NextPageToken)
}
