package firestore

import (
	"fmt"
	"time"

	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
	"github.com/shopspring/decimal"
)

// Prices are stored as decimal strings; Firestore numbers are float64.

type productDoc struct {
	Title     string    `firestore:"title"`
	Thumbnail string    `firestore:"thumbnail"`
	Price     string    `firestore:"price"`
	Quantity  int       `firestore:"quantity"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func productDocFromDomain(p shop.Product) productDoc {
	return productDoc{
		Title:     p.Title,
		Thumbnail: p.Thumbnail,
		Price:     p.Price.String(),
		Quantity:  p.Quantity,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (d productDoc) toDomain(id string) (shop.Product, error) {
	price, err := decimal.NewFromString(d.Price)
	if err != nil {
		return shop.Product{}, fmt.Errorf("product %s price: %w", id, err)
	}
	return shop.Product{
		ID:        id,
		Title:     d.Title,
		Thumbnail: d.Thumbnail,
		Price:     price,
		Quantity:  d.Quantity,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

type cartItemDoc struct {
	ProductID string `firestore:"productId"`
	Quantity  int    `firestore:"quantity"`
}

// docId = owner
type cartDoc struct {
	Items     []cartItemDoc `firestore:"items"`
	CreatedAt time.Time     `firestore:"createdAt"`
	UpdatedAt time.Time     `firestore:"updatedAt"`
}

func cartDocFromDomain(c shop.Cart) cartDoc {
	d := cartDoc{Items: make([]cartItemDoc, 0, len(c.Items)), CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
	for _, it := range c.Items {
		d.Items = append(d.Items, cartItemDoc{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return d
}

func (d cartDoc) toDomain(userID string) shop.Cart {
	c := shop.Cart{UserID: userID, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
	for _, it := range d.Items {
		c.Items = append(c.Items, shop.CartItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return c
}

type orderItemDoc struct {
	ProductID string `firestore:"productId"`
	Quantity  int    `firestore:"quantity"`
	Price     string `firestore:"price"`
}

type addressDoc struct {
	FullAddress string `firestore:"fullAddress"`
	Street      string `firestore:"street"`
	City        string `firestore:"city"`
	PostalCode  string `firestore:"postalCode"`
	Phone       string `firestore:"phone"`
}

type orderDoc struct {
	UserID            string         `firestore:"userId"`
	Items             []orderItemDoc `firestore:"items"`
	ShippingAddress   addressDoc     `firestore:"shippingAddress"`
	PaymentMethod     string         `firestore:"paymentMethod"`
	PaymentStatus     string         `firestore:"paymentStatus"`
	OrderStatus       string         `firestore:"orderStatus"`
	TotalPrice        string         `firestore:"totalPrice"`
	CheckoutSessionID string         `firestore:"checkoutSessionId"`
	CreatedAt         time.Time      `firestore:"createdAt"`
	UpdatedAt         time.Time      `firestore:"updatedAt"`
}

func orderDocFromDomain(o shop.Order) orderDoc {
	d := orderDoc{
		UserID:            o.UserID,
		Items:             make([]orderItemDoc, 0, len(o.Items)),
		ShippingAddress:   addressDoc(o.ShippingAddress),
		PaymentMethod:     string(o.PaymentMethod),
		PaymentStatus:     string(o.PaymentStatus),
		OrderStatus:       string(o.OrderStatus),
		TotalPrice:        o.TotalPrice.String(),
		CheckoutSessionID: o.CheckoutSessionID,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
	for _, it := range o.Items {
		d.Items = append(d.Items, orderItemDoc{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price.String()})
	}
	return d
}

func (d orderDoc) toDomain(id string) (shop.Order, error) {
	total, err := decimal.NewFromString(d.TotalPrice)
	if err != nil {
		return shop.Order{}, fmt.Errorf("order %s total: %w", id, err)
	}
	o := shop.Order{
		ID:                id,
		UserID:            d.UserID,
		ShippingAddress:   shop.ShippingAddress(d.ShippingAddress),
		PaymentMethod:     shop.PaymentMethod(d.PaymentMethod),
		PaymentStatus:     shop.PaymentStatus(d.PaymentStatus),
		OrderStatus:       shop.OrderStatus(d.OrderStatus),
		TotalPrice:        total,
		CheckoutSessionID: d.CheckoutSessionID,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
	for _, it := range d.Items {
		price, err := decimal.NewFromString(it.Price)
		if err != nil {
			return shop.Order{}, fmt.Errorf("order %s item %s price: %w", id, it.ProductID, err)
		}
		o.Items = append(o.Items, shop.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, Price: price})
	}
	return o, nil
}
