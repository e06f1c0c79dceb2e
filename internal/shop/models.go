package shop

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        string
	Title     string
	Thumbnail string
	Price     decimal.Decimal
	Quantity  int // available stock
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Product) View() ProductView {
	return ProductView{
		ID:                p.ID,
		Title:             p.Title,
		Thumbnail:         p.Thumbnail,
		Price:             p.Price,
		AvailableQuantity: p.Quantity,
	}
}

type ProductView struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Thumbnail         string          `json:"thumbnail"`
	Price             decimal.Decimal `json:"price"`
	AvailableQuantity int             `json:"availableQuantity"`
}

type CartItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart is keyed by its owner; product ids are unique within Items.
type Cart struct {
	UserID    string
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Cart) Find(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// Merge adds qty to the line for productID, appending a new line if absent.
func (c *Cart) Merge(productID string, qty int) {
	if i := c.Find(productID); i >= 0 {
		c.Items[i].Quantity += qty
		return
	}
	c.Items = append(c.Items, CartItem{ProductID: productID, Quantity: qty})
}

func (c *Cart) Remove(productID string) {
	if i := c.Find(productID); i >= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	}
}

func (c Cart) Clone() Cart {
	c.Items = append([]CartItem(nil), c.Items...)
	return c
}

type PaymentMethod string

const PaymentCashOnDelivery PaymentMethod = "Cash on Delivery"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
)

type OrderStatus string

const (
	OrderProcessing OrderStatus = "Processing"
	OrderShipped    OrderStatus = "Shipped"
	OrderDelivered  OrderStatus = "Delivered"
	OrderCancelled  OrderStatus = "Cancelled"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return st, nil
	}
	return "", Errorf(KindValidation, "Invalid order status %q", s)
}

type OrderItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"` // snapshot at checkout
}

type ShippingAddress struct {
	FullAddress string `json:"fullAddress"`
	Street      string `json:"street,omitempty"`
	City        string `json:"city"`
	PostalCode  string `json:"postalCode,omitempty"`
	Phone       string `json:"phone"`
}

type Order struct {
	ID                string
	UserID            string
	Items             []OrderItem
	ShippingAddress   ShippingAddress
	PaymentMethod     PaymentMethod
	PaymentStatus     PaymentStatus
	OrderStatus       OrderStatus
	TotalPrice        decimal.Decimal
	CheckoutSessionID string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (o Order) Clone() Order {
	o.Items = append([]OrderItem(nil), o.Items...)
	return o
}

// CartLine and OrderLine carry a nil Product when the referenced product no
// longer exists.
type CartLine struct {
	Product   *ProductView `json:"product"`
	ProductID string       `json:"productId"`
	Quantity  int          `json:"quantity"`
}

type CartView struct {
	UserID     string          `json:"userId"`
	Items      []CartLine      `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

type OrderLine struct {
	Product   *ProductView    `json:"product"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderView struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	Items             []OrderLine     `json:"items"`
	ShippingAddress   ShippingAddress `json:"shippingAddress"`
	PaymentMethod     PaymentMethod   `json:"paymentMethod"`
	PaymentStatus     PaymentStatus   `json:"paymentStatus"`
	OrderStatus       OrderStatus     `json:"orderStatus"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	CheckoutSessionID string          `json:"checkoutSessionId,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}
