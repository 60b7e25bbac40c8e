package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bluescreen10/shopx"
	"github.com/bluescreen10/shopx/backend"
	"go.uber.org/zap"
)

func (s *Server) adminRoutes(admin *shopx.ServeMux) {
	admin.HandleFunc("GET /{$}", s.adminHome)

	admin.HandleFunc("GET /products", s.adminProducts)
	admin.HandleFunc("POST /products", s.adminCreateProduct)
	admin.HandleFunc("PUT /products/{id}", s.adminUpdateProduct)
	admin.HandleFunc("DELETE /products/{id}", s.adminDeleteProduct)

	admin.HandleFunc("GET /categories", s.adminCategories)
	admin.HandleFunc("POST /categories", s.adminCreateCategory)
	admin.HandleFunc("PUT /categories/{id}", s.adminUpdateCategory)
	admin.HandleFunc("DELETE /categories/{id}", s.adminDeleteCategory)
	admin.HandleFunc("PUT /categories/{id}/toggle-status", s.adminToggleCategory)

	admin.HandleFunc("GET /inventory", s.adminInventory)
	admin.HandleFunc("PUT /inventory/{id}", s.adminUpdateInventory)

	admin.HandleFunc("GET /orders", s.adminOrders)
	admin.HandleFunc("GET /orders/{id}", s.adminOrder)
	admin.HandleFunc("PUT /orders/{id}", s.adminUpdateOrder)
	admin.HandleFunc("DELETE /orders/{id}", s.adminDeleteOrder)

	admin.HandleFunc("GET /reports", s.adminReport(s.api.Reports))
	admin.HandleFunc("GET /sales-history", s.adminReport(s.api.SalesHistory))
	admin.HandleFunc("GET /profit-analytics", s.adminReport(s.api.ProfitAnalytics))
}

// adminContext forwards the admin's backend token.
func adminContext(r *http.Request) context.Context {
	if rec := shopx.SessionFrom(r); rec != nil && rec.Token != "" {
		return backend.WithToken(r.Context(), rec.Token)
	}
	return r.Context()
}

// adminError handles a failed admin call. A backend that no longer accepts
// the admin's token ends the session like a role mismatch would.
func (s *Server) adminError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
		storage := shopx.StorageFrom(r)
		s.logger.Info("backend rejected admin token, ending session", zap.String("client", storage.Client()))
		if err := shopx.ClearSession(storage); err != nil {
			s.logger.Warn("failed to clear session", zap.String("client", storage.Client()), zap.Error(err))
		}
		s.events.Notify(storage.Client(), shopx.SourceGuard)
		writeJSON(w, http.StatusUnauthorized, redirectResponse{Redirect: "/login"})
		return
	}
	s.writeBackendError(w, r, err)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	if v == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, status, v)
}

func (s *Server) adminHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chrome.State(shopx.StorageFrom(r)))
}

func (s *Server) adminProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.api.Products(adminContext(r))
	s.respond(w, r, http.StatusOK, products, err)
}

func (s *Server) adminCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p shopx.Product
	if err := shopx.ParseBody(r, &p); err != nil {
		writeBodyError(w, err, "")
		return
	}
	created, err := s.api.CreateProduct(adminContext(r), p)
	s.respond(w, r, http.StatusCreated, created, err)
}

func (s *Server) adminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p shopx.Product
	if err := shopx.ParseBody(r, &p); err != nil {
		writeBodyError(w, err, "")
		return
	}
	updated, err := s.api.UpdateProduct(adminContext(r), shopx.ProductID(r.PathValue("id")), p)
	s.respond(w, r, http.StatusOK, updated, err)
}

func (s *Server) adminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	err := s.api.DeleteProduct(adminContext(r), shopx.ProductID(r.PathValue("id")))
	s.respond(w, r, 0, nil, err)
}

func (s *Server) adminCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.api.Categories(adminContext(r))
	s.respond(w, r, http.StatusOK, categories, err)
}

func (s *Server) adminCreateCategory(w http.ResponseWriter, r *http.Request) {
	var c backend.Category
	if err := shopx.ParseBody(r, &c); err != nil {
		writeBodyError(w, err, "")
		return
	}
	created, err := s.api.CreateCategory(adminContext(r), c)
	s.respond(w, r, http.StatusCreated, created, err)
}

func (s *Server) adminUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var c backend.Category
	if err := shopx.ParseBody(r, &c); err != nil {
		writeBodyError(w, err, "")
		return
	}
	updated, err := s.api.UpdateCategory(adminContext(r), id, c)
	s.respond(w, r, http.StatusOK, updated, err)
}

func (s *Server) adminDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.respond(w, r, 0, nil, s.api.DeleteCategory(adminContext(r), id))
}

func (s *Server) adminToggleCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	updated, err := s.api.ToggleCategoryStatus(adminContext(r), id)
	s.respond(w, r, http.StatusOK, updated, err)
}

func (s *Server) adminInventory(w http.ResponseWriter, r *http.Request) {
	items, err := s.api.Inventory(adminContext(r))
	s.respond(w, r, http.StatusOK, items, err)
}

func (s *Server) adminUpdateInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var u backend.InventoryUpdate
	if err := shopx.ParseBody(r, &u); err != nil || u.Quantity < 0 {
		writeBodyError(w, err, "quantity must be a whole number of zero or more")
		return
	}
	updated, err := s.api.UpdateInventory(adminContext(r), id, u)
	s.respond(w, r, http.StatusOK, updated, err)
}

func (s *Server) adminOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.api.Orders(adminContext(r))
	s.respond(w, r, http.StatusOK, orders, err)
}

func (s *Server) adminOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	order, err := s.api.Order(adminContext(r), id)
	s.respond(w, r, http.StatusOK, order, err)
}

func (s *Server) adminUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var o backend.Order
	if err := shopx.ParseBody(r, &o); err != nil {
		writeBodyError(w, err, "")
		return
	}
	updated, err := s.api.UpdateOrder(adminContext(r), id, o)
	s.respond(w, r, http.StatusOK, updated, err)
}

func (s *Server) adminDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.respond(w, r, 0, nil, s.api.DeleteOrder(adminContext(r), id))
}

type reportFunc func(ctx context.Context, query url.Values) (json.RawMessage, error)

func (s *Server) adminReport(fetch reportFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := fetch(adminContext(r), r.URL.Query())
		s.respond(w, r, http.StatusOK, doc, err)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
