package models

// Role is the capability level of a user. Anything that is not RoleAdmin
// is treated as a regular customer.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) IsAdmin() bool { return r == RoleAdmin }

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string `gorm:"not null"                 json:"name"`
	Email        string `gorm:"unique;not null"          json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         Role   `gorm:"not null;default:user"    json:"role"`

	// Pending password reset. Only the sha256 of the token is stored; both
	// fields are zero when no reset is in flight.
	ResetTokenHash string `gorm:"index" json:"-"`
	ResetExpiresAt int64  `json:"-"`
}

type Product struct {
	ID           uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint    `gorm:"index;not null"           json:"user_id"`
	Name         string  `gorm:"not null"                 json:"name"`
	Image        string  `json:"image"`
	Brand        string  `json:"brand"`
	Category     string  `json:"category"`
	Description  string  `json:"description"`
	Price        float64 `gorm:"not null"                 json:"price"`
	CountInStock uint    `json:"count_in_stock"`

	// Aggregate over Reviews, recomputed whenever a review is added.
	Rating     float64 `json:"rating"`
	NumReviews int     `json:"num_reviews"`

	Reviews []Review `gorm:"constraint:OnDelete:CASCADE" json:"reviews"`
}

// Review is embedded in a product's review list. The (product_id, user_id)
// unique index enforces one review per user per product at the storage
// layer, so two concurrent submissions cannot both slip past the check.
type Review struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"                      json:"id"`
	ProductID uint    `gorm:"not null;uniqueIndex:idx_reviews_product_user" json:"product_id"`
	UserID    uint    `gorm:"not null;uniqueIndex:idx_reviews_product_user" json:"user_id"`
	Name      string  `gorm:"not null"                                      json:"name"`
	Rating    float64 `gorm:"not null"                                      json:"rating"`
	Comment   string  `json:"comment"`
	CreatedAt int64   `gorm:"autoCreateTime"                                json:"created_at"`
}

type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// PaymentResult is the confirmation record returned by the external payment
// provider, captured verbatim when an order is marked paid.
type PaymentResult struct {
	PaymentID    string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

type OrderItem struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint    `gorm:"index;not null"           json:"order_id"`
	ProductID uint    `gorm:"not null"                 json:"product_id"`
	Name      string  `gorm:"not null"                 json:"name"`
	Image     string  `json:"image"`
	Qty       uint    `gorm:"not null;check:qty>0"     json:"qty"`
	Price     float64 `gorm:"not null"                 json:"price"`
}

// Order price fields are snapshots computed at creation and never
// recomputed from live product prices. Paid/Sent/Delivered are independent
// monotonic flags; their timestamps are overwritten on repeat transitions.
type Order struct {
	ID     uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint        `gorm:"index;not null"           json:"user_id"`
	Items  []OrderItem `json:"items"`

	Shipping      ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	PaymentMethod string          `json:"payment_method"`

	ItemsPrice    float64 `gorm:"not null" json:"items_price"`
	ShippingPrice float64 `gorm:"not null" json:"shipping_price"`
	TaxPrice      float64 `gorm:"not null" json:"tax_price"`
	TotalPrice    float64 `gorm:"not null" json:"total_price"`

	IsPaid  bool          `gorm:"default:false" json:"is_paid"`
	PaidAt  int64         `json:"paid_at"`
	Payment PaymentResult `gorm:"embedded;embeddedPrefix:payment_" json:"payment_result"`

	IsSent bool  `gorm:"default:false" json:"is_sent"`
	SentAt int64 `json:"sent_at"`

	IsDelivered bool  `gorm:"default:false" json:"is_delivered"`
	DeliveredAt int64 `json:"delivered_at"`

	CreatedAt int64 `gorm:"autoCreateTime" json:"created_at"`
}
