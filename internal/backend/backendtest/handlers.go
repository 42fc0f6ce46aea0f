package backendtest

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/backend"
	"github.com/utafrali/storefront/internal/domain"
)

func (f *Fake) getProduct(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	p, ok := f.products[chi.URLParam(r, "id")]
	f.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (f *Fake) getCart(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := append([]domain.CartItem{}, f.cart...)
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (f *Fake) clearCart(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	f.cart = nil
	f.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (f *Fake) addCartItem(w http.ResponseWriter, r *http.Request) {
	var in backend.AddCartItemInput
	if err := decode(r, &in); err != nil || in.ProductID == "" || in.Quantity < 1 {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid cart item")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejected[in.ProductID] {
		writeDetail(w, http.StatusBadRequest, "Product is out of stock")
		return
	}
	for i := range f.cart {
		if f.cart[i].ProductID == in.ProductID && f.cart[i].VariantID == in.VariantID {
			f.cart[i].Quantity += in.Quantity
			writeJSON(w, http.StatusOK, f.cart[i])
			return
		}
	}
	product, ok := f.products[in.ProductID]
	if !ok {
		product = domain.ProductSnapshot{ID: in.ProductID, Name: in.ProductID, Price: 1000}
	}
	item := domain.CartItem{
		ID:        f.newID("line"),
		ProductID: in.ProductID,
		VariantID: in.VariantID,
		Quantity:  in.Quantity,
		Product:   product,
	}
	f.cart = append(f.cart, item)
	writeJSON(w, http.StatusCreated, item)
}

func (f *Fake) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Quantity int `json:"quantity"`
	}
	if err := decode(r, &in); err != nil || in.Quantity < 1 {
		writeDetail(w, http.StatusUnprocessableEntity, "quantity must be at least 1")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	id := chi.URLParam(r, "id")
	for i := range f.cart {
		if f.cart[i].ID == id {
			f.cart[i].Quantity = in.Quantity
			writeJSON(w, http.StatusOK, f.cart[i])
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Cart item not found")
}

func (f *Fake) removeCartItem(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := chi.URLParam(r, "id")
	for i := range f.cart {
		if f.cart[i].ID == id {
			f.cart = append(f.cart[:i], f.cart[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Cart item not found")
}

func (f *Fake) listAddresses(w http.ResponseWriter, r *http.Request) {
	filter := domain.AddressType(r.URL.Query().Get("address_type"))

	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Address{}
	for _, a := range f.addresses {
		if filter == "" || a.AddressType == filter {
			out = append(out, a)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func addressFromInput(id string, in domain.AddressInput) domain.Address {
	return domain.Address{
		ID:            id,
		StreetAddress: in.StreetAddress,
		Apartment:     in.Apartment,
		City:          in.City,
		State:         in.State,
		PostalCode:    in.PostalCode,
		Country:       in.Country,
		AddressType:   in.AddressType,
		IsDefault:     in.IsDefault,
	}
}

// clearDefaults unsets the default flag on every other address of the
// same type. Caller holds f.mu.
func (f *Fake) clearDefaults(keepID string, addressType domain.AddressType) {
	for i := range f.addresses {
		if f.addresses[i].ID != keepID && f.addresses[i].AddressType == addressType {
			f.addresses[i].IsDefault = false
		}
	}
}

func (f *Fake) createAddress(w http.ResponseWriter, r *http.Request) {
	var in domain.AddressInput
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid address")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	addr := addressFromInput(f.newID("addr"), in)
	f.addresses = append(f.addresses, addr)
	if addr.IsDefault {
		f.clearDefaults(addr.ID, addr.AddressType)
	}
	writeJSON(w, http.StatusCreated, addr)
}

func (f *Fake) updateAddress(w http.ResponseWriter, r *http.Request) {
	var in domain.AddressInput
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid address")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	id := chi.URLParam(r, "id")
	for i := range f.addresses {
		if f.addresses[i].ID == id {
			f.addresses[i] = addressFromInput(id, in)
			if in.IsDefault {
				f.clearDefaults(id, in.AddressType)
			}
			writeJSON(w, http.StatusOK, f.addresses[i])
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Address not found")
}

func (f *Fake) deleteAddress(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := chi.URLParam(r, "id")
	for i := range f.addresses {
		if f.addresses[i].ID == id {
			f.addresses = append(f.addresses[:i], f.addresses[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Address not found")
}

func (f *Fake) setDefaultAddress(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := chi.URLParam(r, "id")
	for i := range f.addresses {
		if f.addresses[i].ID == id {
			f.addresses[i].IsDefault = true
			f.clearDefaults(id, f.addresses[i].AddressType)
			writeJSON(w, http.StatusOK, f.addresses[i])
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Address not found")
}

func (f *Fake) createOrder(w http.ResponseWriter, r *http.Request) {
	var in backend.CreateOrderInput
	if err := decode(r, &in); err != nil || in.ShippingAddressID == "" || len(in.Items) == 0 {
		writeDetail(w, http.StatusBadRequest, "shipping address and items are required")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, item := range in.Items {
		total += item.Price * int64(item.Quantity)
	}
	id := f.newID("ord")
	order := &domain.Order{
		ID:                id,
		OrderNumber:       fmt.Sprintf("ORD-%05d", f.nextID),
		Status:            domain.OrderStatusPending,
		TotalAmount:       total,
		Currency:          "INR",
		ShippingAddressID: in.ShippingAddressID,
		Items:             in.Items,
		CreatedAt:         time.Now().UTC(),
	}
	f.orders[id] = order
	writeJSON(w, http.StatusCreated, order)
}

func (f *Fake) getOrder(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[chi.URLParam(r, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Order not found")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (f *Fake) cancelOrder(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[chi.URLParam(r, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Order not found")
		return
	}
	if order.Status == domain.OrderStatusPaid {
		writeDetail(w, http.StatusConflict, "Paid orders cannot be cancelled")
		return
	}
	order.Status = domain.OrderStatusCancelled
	writeJSON(w, http.StatusOK, order)
}

// mintPaymentOrder answers with a new provider order. Caller holds f.mu.
func (f *Fake) mintPaymentOrder(w http.ResponseWriter, orderID string) {
	order, ok := f.orders[orderID]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Order not found")
		return
	}
	if order.Status == domain.OrderStatusPaid {
		writeDetail(w, http.StatusConflict, "Order is already paid")
		return
	}
	providerOrderID := f.newID("order_rzp")
	f.paymentOrders[orderID] = append(f.paymentOrders[orderID], providerOrderID)
	writeJSON(w, http.StatusOK, map[string]any{
		"razorpay_order_id": providerOrderID,
		"amount":            order.TotalAmount,
		"currency":          order.Currency,
		"key_id":            "rzp_test_key",
		"order_id":          orderID,
	})
}

func (f *Fake) createPaymentOrder(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OrderID       string `json:"order_id"`
		PaymentMethod string `json:"payment_method"`
	}
	if err := decode(r, &in); err != nil || in.OrderID == "" {
		writeDetail(w, http.StatusBadRequest, "order_id is required")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mintPaymentOrder(w, in.OrderID)
}

func (f *Fake) retryPayment(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mintPaymentOrder(w, chi.URLParam(r, "orderId"))
}

func (f *Fake) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ProviderOrderID   string `json:"razorpay_order_id"`
		ProviderPaymentID string `json:"razorpay_payment_id"`
		Signature         string `json:"razorpay_signature"`
		OrderID           string `json:"order_id"`
	}
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid verification payload")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[in.OrderID]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Order not found")
		return
	}
	known := false
	for _, id := range f.paymentOrders[in.OrderID] {
		if id == in.ProviderOrderID {
			known = true
		}
	}
	if !known || in.Signature != Sign(in.ProviderOrderID, in.ProviderPaymentID) {
		writeDetail(w, http.StatusBadRequest, "Invalid payment signature")
		return
	}
	order.Status = domain.OrderStatusPaid
	writeJSON(w, http.StatusOK, map[string]string{"status": "paid", "order_id": order.ID})
}

func (f *Fake) recordFailure(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OrderID string `json:"order_id"`
		Reason  string `json:"reason"`
	}
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid failure payload")
		return
	}
	f.mu.Lock()
	f.failureLog = append(f.failureLog, in.OrderID+":"+in.Reason)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (f *Fake) serviceability(w http.ResponseWriter, r *http.Request) {
	var in backend.ServiceabilityInput
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid serviceability request")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuote = &in
	options := append([]domain.CourierOption{}, f.couriers[in.DeliveryPostcode]...)
	writeJSON(w, http.StatusOK, map[string]any{"available_couriers": options})
}

func (f *Fake) trackShipment(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.shipments[chi.URLParam(r, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Shipment not found")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (f *Fake) trackAWB(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	awb := chi.URLParam(r, "awb")
	for _, s := range f.shipments {
		if s.AWBCode == awb {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Shipment not found")
}
