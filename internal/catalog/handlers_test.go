package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/storefront-eng/checkout-api/internal/catalog"
)

type fakeStore struct {
	products  []catalog.Product
	listCalls int
	byIDCalls int
}

func (f *fakeStore) List(context.Context) ([]catalog.Product, error) {
	f.listCalls++
	return f.products, nil
}

func (f *fakeStore) ByID(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	f.byIDCalls++
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return catalog.Product{}, catalog.ErrNotFound
}

func newCache(t *testing.T) *catalog.Cache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return catalog.NewCache(client, time.Minute)
}

func newRouter(svc *catalog.Service) http.Handler {
	h := &catalog.Handler{Svc: svc}
	r := chi.NewRouter()
	r.Get("/products", h.Products)
	r.Get("/products/{productID}", h.Product)
	return r
}

func TestProductsListServedFromCache(t *testing.T) {
	store := &fakeStore{products: []catalog.Product{
		{ID: uuid.New(), Name: "keyboard", Price: decimal.NewFromInt(100), Weight: decimal.NewFromInt(1)},
	}}
	svc := &catalog.Service{Store: store, Cache: newCache(t)}
	router := newRouter(svc)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Equal(t, 1, store.listCalls)
}

func TestProductDetail(t *testing.T) {
	product := catalog.Product{
		ID:     uuid.New(),
		Name:   "monitor",
		Price:  decimal.NewFromFloat(299.9),
		Weight: decimal.NewFromInt(4),
	}
	store := &fakeStore{products: []catalog.Product{product}}
	svc := &catalog.Service{Store: store, Cache: newCache(t)}
	router := newRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/"+product.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data catalog.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, product.ID, body.Data.ID)
	require.True(t, body.Data.Price.Equal(product.Price))

	// Second hit comes from the cache.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/"+product.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, store.byIDCalls)
}

func TestProductDetailNotFound(t *testing.T) {
	svc := &catalog.Service{Store: &fakeStore{}}
	router := newRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductDetailInvalidID(t *testing.T) {
	svc := &catalog.Service{Store: &fakeStore{}}
	router := newRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/not-a-uuid", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
