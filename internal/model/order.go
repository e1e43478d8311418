package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// PaymentType identifies the provider that captured the money.
type PaymentType string

const (
	PaymentStripe   PaymentType = "STRIPE"
	PaymentPayPal   PaymentType = "PAYPAL"
	PaymentApplePay PaymentType = "APPLE_PAY"
)

// Address is a shipping address owned by a user
type Address struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"index;not null"`
	FullName   string    `json:"full_name" gorm:"type:varchar(255);not null"`
	Phone      string    `json:"phone" gorm:"type:varchar(64)"`
	Line1      string    `json:"line1" gorm:"type:varchar(255);not null"`
	Line2      string    `json:"line2" gorm:"type:varchar(255)"`
	City       string    `json:"city" gorm:"type:varchar(128);not null"`
	PostalCode string    `json:"postal_code" gorm:"type:varchar(32)"`
	Country    string    `json:"country" gorm:"type:varchar(64);not null"`
	CreatedAt  time.Time `json:"created_at"`
}

// Order is created at checkout completion and mutated only by admin status updates
type Order struct {
	ID                uint                 `json:"id" gorm:"primaryKey"`
	Number            string               `json:"number" gorm:"type:varchar(32);uniqueIndex;not null"`
	UserID            uint                 `json:"user_id" gorm:"index;not null"`
	User              *User                `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Subtotal          decimal.Decimal      `json:"subtotal" gorm:"type:decimal(10,2);not null"`
	Discount          decimal.Decimal      `json:"discount" gorm:"type:decimal(10,2);not null"`
	Total             decimal.Decimal      `json:"total" gorm:"type:decimal(10,2);not null"`
	Status            OrderStatus          `json:"status" gorm:"type:varchar(16);index;not null"`
	PaymentType       PaymentType          `json:"payment_type" gorm:"type:varchar(16);not null"`
	PaymentID         string               `json:"payment_id" gorm:"type:varchar(128);uniqueIndex;not null"`
	DiscountCodeID    *uint                `json:"discount_code_id,omitempty"`
	DiscountCode      *DiscountCode        `json:"discount_code,omitempty" gorm:"foreignKey:DiscountCodeID;constraint:OnDelete:SET NULL"`
	ShippingAddressID *uint                `json:"shipping_address_id,omitempty"`
	ShippingAddress   *Address             `json:"shipping_address,omitempty" gorm:"foreignKey:ShippingAddressID"`
	TrackingNumber    string               `json:"tracking_number" gorm:"type:varchar(128)"`
	CourierService    string               `json:"courier_service" gorm:"type:varchar(128)"`
	EstimatedDelivery *time.Time           `json:"estimated_delivery,omitempty"`
	ActualDelivery    *time.Time           `json:"actual_delivery,omitempty"`
	CancelledAt       *time.Time           `json:"cancelled_at,omitempty"`
	CancelReason      string               `json:"cancel_reason" gorm:"type:text"`
	Items             []OrderItem          `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory     []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// OrderItem snapshots a purchased line; it never follows later catalog changes.
type OrderItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	OrderID     uint            `json:"order_id" gorm:"index;not null"`
	ProductID   uint            `json:"product_id" gorm:"index;not null"`
	ProductName string          `json:"product_name" gorm:"type:varchar(255);not null"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Color       string          `json:"color" gorm:"type:varchar(64)"`
	Size        string          `json:"size" gorm:"type:varchar(64)"`
}

// LineTotal is Price times Quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderStatusHistory is one append-only transition record
type OrderStatusHistory struct {
	ID        uint        `json:"id" gorm:"primaryKey"`
	OrderID   uint        `json:"order_id" gorm:"index;not null"`
	Status    OrderStatus `json:"status" gorm:"type:varchar(16);not null"`
	Notes     string      `json:"notes" gorm:"type:text"`
	ChangedBy uint        `json:"changed_by"`
	CreatedAt time.Time   `json:"created_at" gorm:"index"`
}
