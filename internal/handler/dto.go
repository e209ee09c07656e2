package handler

import (
	"time"

	"github.com/iliyamo/jikgumate/internal/model"
)

// Response DTOs.  Money is rendered with exactly two fractional digits as a
// string so clients never parse it as a float.

type userResponse struct {
	ID              uint64    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	Phone           *string   `json:"phone"`
	PCCCNumber      *string   `json:"pcccNumber"`
	DefaultAddress  *string   `json:"defaultAddress"`
	ProfileImageURL *string   `json:"profileImageUrl"`
	IsAdmin         bool      `json:"isAdmin"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toUserResponse(u model.User) userResponse {
	return userResponse{
		ID: u.ID, Email: u.Email, Name: u.Name, Phone: u.Phone, PCCCNumber: u.PCCCNumber,
		DefaultAddress: u.DefaultAddress, ProfileImageURL: u.ProfileImageURL, IsAdmin: u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

type productResponse struct {
	ID          uint64    `json:"id"`
	NameKo      string    `json:"nameKo"`
	NameEn      *string   `json:"nameEn"`
	Category    *string   `json:"category"`
	PriceUSD    string    `json:"priceUsd"`
	ImageURL    *string   `json:"imageUrl"`
	OriginalURL *string   `json:"originalUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toProductResponse(p model.Product) productResponse {
	return productResponse{
		ID: p.ID, NameKo: p.NameKo, NameEn: p.NameEn, Category: p.Category,
		PriceUSD: p.PriceUSD.StringFixed(2), ImageURL: p.ImageURL, OriginalURL: p.OriginalURL,
		CreatedAt: p.CreatedAt,
	}
}

type cartItemResponse struct {
	ID        uint64           `json:"id"`
	ProductID uint64           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Product   *productResponse `json:"product,omitempty"`
}

type cartResponse struct {
	ID    uint64             `json:"id"`
	Items []cartItemResponse `json:"items"`
}

func toCartResponse(c model.Cart) cartResponse {
	out := cartResponse{ID: c.ID, Items: make([]cartItemResponse, 0, len(c.Items))}
	for _, it := range c.Items {
		ir := cartItemResponse{ID: it.ID, ProductID: it.ProductID, Quantity: it.Quantity}
		if it.Product != nil {
			pr := toProductResponse(*it.Product)
			ir.Product = &pr
		}
		out.Items = append(out.Items, ir)
	}
	return out
}

type lineItemResponse struct {
	ID           uint64           `json:"id"`
	ProductID    uint64           `json:"productId"`
	Quantity     int              `json:"quantity"`
	UnitPrice    string           `json:"unitPrice"`
	OptionDetail *string          `json:"optionDetail"`
	Product      *productResponse `json:"product,omitempty"`
}

type shippingResponse struct {
	RecipientName    string  `json:"recipientName"`
	RecipientPhone   string  `json:"recipientPhone"`
	RecipientAddress string  `json:"recipientAddress"`
	PCCCNumber       *string `json:"pcccNumber"`
	ShippingCompany  *string `json:"shippingCompany"`
	TrackingNumber   *string `json:"trackingNumber"`
}

type orderResponse struct {
	ID           uint64             `json:"id"`
	UserID       uint64             `json:"userId"`
	TotalAmount  string             `json:"totalAmount"`
	Status       string             `json:"status"`
	OrderDate    time.Time          `json:"orderDate"`
	Items        []lineItemResponse `json:"items"`
	ShippingInfo *shippingResponse  `json:"shippingInfo"`
}

func toOrderResponse(o model.Order) orderResponse {
	out := orderResponse{
		ID: o.ID, UserID: o.UserID, TotalAmount: o.TotalAmount.StringFixed(2),
		Status: string(o.Status), OrderDate: o.OrderDate,
		Items: make([]lineItemResponse, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		lr := lineItemResponse{
			ID: it.ID, ProductID: it.ProductID, Quantity: it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2), OptionDetail: it.OptionDetail,
		}
		if it.Product != nil {
			pr := toProductResponse(*it.Product)
			lr.Product = &pr
		}
		out.Items = append(out.Items, lr)
	}
	if s := o.Shipping; s != nil {
		out.ShippingInfo = &shippingResponse{
			RecipientName: s.RecipientName, RecipientPhone: s.RecipientPhone, RecipientAddress: s.RecipientAddress,
			PCCCNumber: s.PCCCNumber, ShippingCompany: s.ShippingCompany, TrackingNumber: s.TrackingNumber,
		}
	}
	return out
}
