package httpx

import "github.com/karigari/order-engine/internal/order"

type AddToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type UpdateCartItemRequest struct {
	// Pointer so an omitted quantity can be told apart from an explicit 0,
	// which removes the line.
	Quantity *int `json:"quantity"`
}

type OrderItemDTO struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderRequest struct {
	Items           []OrderItemDTO `json:"items"`
	ShippingAddress order.Address  `json:"shippingAddress"`
	PaymentMethod   string         `json:"paymentMethod"`
	PaymentID       string         `json:"paymentId,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	IsGift          bool           `json:"isGift,omitempty"`
	GiftMessage     string         `json:"giftMessage,omitempty"`
}

func (r CreateOrderRequest) toBuildRequest() order.BuildRequest {
	items := make([]order.BuildItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = order.BuildItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return order.BuildRequest{
		Items:           items,
		ShippingAddress: r.ShippingAddress,
		PaymentMethod:   order.PaymentMethod(r.PaymentMethod),
		PaymentID:       r.PaymentID,
		Notes:           r.Notes,
		IsGift:          r.IsGift,
		GiftMessage:     r.GiftMessage,
	}
}

type CancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

type UpdateStatusRequest struct {
	Status         string `json:"status"`
	Note           string `json:"note,omitempty"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	// Available carries the current stock on insufficient-stock errors.
	Available *int `json:"available,omitempty"`
}
