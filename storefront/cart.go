package storefront

import (
	"net/http"

	"github.com/bluescreen10/shopx"
	"github.com/bluescreen10/shopx/backend"
	"go.uber.org/zap"
)

type cartView struct {
	Items []shopx.LineItem `json:"items"`
	Total float64          `json:"total"`
	Count int              `json:"count"`
}

type addItemRequest struct {
	ProductID shopx.ProductID `form:"productId,required" json:"productId" xml:"productId"`
}

type quantityRequest struct {
	Quantity int `form:"quantity,required" json:"quantity" xml:"quantity"`
}

type checkoutRequest struct {
	Name    string `form:"name,required" json:"name" xml:"name"`
	Email   string `form:"email,required" json:"email" xml:"email"`
	Address string `form:"address" json:"address" xml:"address"`
}

func (s *Server) cart(r *http.Request) *shopx.Cart {
	return s.carts.Get(shopx.StorageFrom(r))
}

func (s *Server) writeCart(w http.ResponseWriter, status int, cart *shopx.Cart) {
	items, total, count := cart.Snapshot()
	writeJSON(w, status, cartView{Items: items, Total: total, Count: count})
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	s.writeCart(w, http.StatusOK, s.cart(r))
}

// addCartItem looks the product up in the catalog so the line item gets a
// fresh snapshot, then adds one unit of it.
func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := shopx.ParseBody(r, &req); err != nil || req.ProductID == "" {
		writeBodyError(w, err, "a product id is required")
		return
	}

	product, err := s.api.Product(r.Context(), req.ProductID)
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}

	cart := s.cart(r)
	cart.AddItem(*product)
	s.writeCart(w, http.StatusOK, cart)
}

func (s *Server) setCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := shopx.ParseBody(r, &req); err != nil {
		writeBodyError(w, err, "quantity must be a whole number")
		return
	}

	cart := s.cart(r)
	cart.SetQuantity(shopx.ProductID(r.PathValue("id")), req.Quantity)
	s.writeCart(w, http.StatusOK, cart)
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	cart := s.cart(r)
	cart.RemoveItem(shopx.ProductID(r.PathValue("id")))
	s.writeCart(w, http.StatusOK, cart)
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	cart := s.cart(r)
	cart.Clear()
	s.writeCart(w, http.StatusOK, cart)
}

// checkout places an order for the cart contents. Once the backend accepted
// the order the ordered units are settled; anything added meanwhile stays.
func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := shopx.ParseBody(r, &req); err != nil {
		writeBodyError(w, err, "")
		return
	}

	cart := s.cart(r)
	items := cart.Items()
	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, "the cart is empty")
		return
	}

	ctx := r.Context()
	if rec, ok := s.guard.Session(shopx.StorageFrom(r)); ok && rec.Token != "" {
		ctx = backend.WithToken(ctx, rec.Token)
	}

	order, err := s.api.CreateOrder(ctx, backend.NewOrder(req.Name, req.Email, req.Address, items))
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}

	cart.Settle(items)
	s.logger.Info("order placed",
		zap.String("client", shopx.StorageFrom(r).Client()),
		zap.Int64("order", order.ID),
		zap.Float64("total", order.Total))
	writeJSON(w, http.StatusCreated, order)
}
