package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	domproduct "example.com/storefront/app/internal/domain/product"
)

func TestListProducts_PublicAndActiveOnly(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(newRequest(http.MethodGet, "/api/v1/products", "", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeBody(t, rec)["data"].([]any)
	require.Len(t, data, 2, "inactive products are hidden")
	newest := data[0].(map[string]any)
	require.Equal(t, float64(2), newest["id"])
	require.Nil(t, newest["discount"])

	mug := data[1].(map[string]any)
	require.Equal(t, "Mug", mug["name"])
	require.Equal(t, float64(799), mug["price_cents"])
	require.Equal(t, float64(719), mug["unit_price_cents"])
	require.Equal(t, map[string]any{"type": "PERCENTAGE", "value": float64(10)}, mug["discount"])
}

func TestListProducts_Search(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(newRequest(http.MethodGet, "/api/v1/products?q=TEE", "", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeBody(t, rec)["data"].([]any)
	require.Len(t, data, 1)
	require.Equal(t, "Tee", data[0].(map[string]any)["name"])
}

func TestGetProduct(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(newRequest(http.MethodGet, "/api/v1/products/1", "", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, float64(719), decodeBody(t, rec)["unit_price_cents"])

	rec = s.do(newRequest(http.MethodGet, "/api/v1/products/3", "", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, domproduct.ErrProductNotFound.Error(), decodeBody(t, rec)["error"])

	rec = s.do(newRequest(http.MethodGet, "/api/v1/products/abc", "", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
