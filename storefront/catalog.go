package storefront

import (
	"net/http"

	"github.com/bluescreen10/shopx"
)

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.api.Products(r.Context())
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.api.Product(r.Context(), shopx.ProductID(r.PathValue("id")))
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.api.ActiveCategories(r.Context())
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}
