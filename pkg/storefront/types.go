package storefront

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Product is a catalog entry. Prices are in the store currency.
type Product struct {
	ID          int              `json:"id"`
	Name        string           `json:"nombre"`
	Description string           `json:"descripcion,omitempty"`
	Price       decimal.Decimal  `json:"precio"`                 // Base price before discount
	Discount    decimal.Decimal  `json:"descuento"`              // Percentage in [0,100]
	ServerFinal *decimal.Decimal `json:"precio_final,omitempty"` // Server-computed final price, authoritative when present
	Stock       int              `json:"stock"`
	CategoryID  int              `json:"categoria,omitempty"`
	Image       string           `json:"imagen,omitempty"`
}

// FinalPrice returns the unit price after discount, rounded to cents.
// The server's precio_final wins over the local derivation.
func (p Product) FinalPrice() decimal.Decimal {
	if p.ServerFinal != nil {
		return p.ServerFinal.Round(2)
	}
	if !p.HasDiscount() {
		return p.Price.Round(2)
	}
	factor := one.Sub(p.Discount.Div(hundred))
	return p.Price.Mul(factor).Round(2)
}

// HasDiscount reports whether a positive discount applies.
func (p Product) HasDiscount() bool {
	return p.Discount.IsPositive()
}

// UnitSavings returns base price minus final price (zero without discount).
func (p Product) UnitSavings() decimal.Decimal {
	if !p.HasDiscount() {
		return decimal.Zero
	}
	return p.Price.Round(2).Sub(p.FinalPrice())
}

// Validate checks the catalog invariants.
func (p Product) Validate() error {
	if p.Price.IsNegative() {
		return fmt.Errorf("product %d: price must be >= 0, got %s", p.ID, p.Price)
	}
	if p.Discount.IsNegative() || p.Discount.GreaterThan(hundred) {
		return fmt.Errorf("product %d: discount must be within [0,100], got %s", p.ID, p.Discount)
	}
	if p.Stock < 0 {
		return fmt.Errorf("product %d: stock must be >= 0, got %d", p.ID, p.Stock)
	}
	return nil
}

// Category groups products. Products is populated by /categorias/.
type Category struct {
	ID          int       `json:"id"`
	Name        string    `json:"nombre"`
	Description string    `json:"descripcion,omitempty"`
	Products    []Product `json:"productos,omitempty"`
}

// CartItem is one line of the server cart. ID is assigned by the server.
type CartItem struct {
	ID       int             `json:"id"`
	Product  Product         `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Recompute sets Subtotal from the product's final price and Quantity.
func (i *CartItem) Recompute() {
	i.Subtotal = i.Product.FinalPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Savings returns the discount delta for the whole line.
func (i CartItem) Savings() decimal.Decimal {
	return i.Product.UnitSavings().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the ordered collection of items for the current session or user.
type Cart struct {
	Items []CartItem `json:"items"`
}

// Total is the sum of item subtotals.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal)
	}
	return total
}

// Savings is the sum of per-item discount deltas; zero when nothing is discounted.
func (c Cart) Savings() decimal.Decimal {
	savings := decimal.Zero
	for _, item := range c.Items {
		if item.Product.HasDiscount() {
			savings = savings.Add(item.Savings())
		}
	}
	return savings
}

// Count is the total number of units in the cart.
func (c Cart) Count() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no items.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Find returns the index of the item with the given ID, or -1.
func (c Cart) Find(itemID int) int {
	for i, item := range c.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so snapshots never alias live state.
func (c Cart) Clone() Cart {
	if c.Items == nil {
		return Cart{}
	}
	items := make([]CartItem, len(c.Items))
	for i, item := range c.Items {
		if item.Product.ServerFinal != nil {
			final := *item.Product.ServerFinal
			item.Product.ServerFinal = &final
		}
		items[i] = item
	}
	return Cart{Items: items}
}

// PaymentStatus is the lifecycle state of an order's payment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Validate checks that the status is a known value.
func (s PaymentStatus) Validate() error {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return nil
	default:
		return fmt.Errorf("unknown payment status: %q", s)
	}
}

// Order is created by the server on payment confirmation and never changes afterwards.
type Order struct {
	ID                 int             `json:"id"`
	Number             string          `json:"numero_orden"`
	Items              []OrderItem     `json:"items"`
	ShippingAddress    string          `json:"direccion_envio"`
	ShippingCity       string          `json:"ciudad_envio"`
	ShippingPostalCode string          `json:"codigo_postal_envio"`
	ShippingPhone      string          `json:"telefono_envio,omitempty"`
	PaymentMethod      string          `json:"payment_method"`
	PaymentStatus      PaymentStatus   `json:"payment_status"`
	Total              decimal.Decimal `json:"total"`
	CreatedAt          time.Time       `json:"fecha_creacion"`
	PaidAt             *time.Time      `json:"fecha_pago,omitempty"`
}

// OrderItem is a snapshot of a purchased product at order time.
type OrderItem struct {
	ID          int             `json:"id"`
	ProductName string          `json:"nombre_producto"`
	UnitPrice   decimal.Decimal `json:"precio_unitario"`
	Quantity    int             `json:"cantidad"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"descuento_aplicado"`
}

// Profile is the authenticated user's account and shipping details.
type Profile struct {
	ID         int    `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Phone      string `json:"telefono,omitempty"`
	Address    string `json:"direccion,omitempty"`
	City       string `json:"ciudad,omitempty"`
	PostalCode string `json:"codigo_postal,omitempty"`
	Country    string `json:"pais,omitempty"`
}

// DisplayName prefers the full name and falls back to the username.
func (p Profile) DisplayName() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	default:
		return p.Username
	}
}

// AuthStatus is the response of /auth/check/.
type AuthStatus struct {
	Authenticated bool     `json:"authenticated"`
	User          *Profile `json:"user,omitempty"`
}

// AuthResult is returned by login and register. Token is an opaque UI hint.
type AuthResult struct {
	Message string  `json:"message,omitempty"`
	User    Profile `json:"user"`
	Token   string  `json:"token"`
}

// LoginRequest carries credentials for /auth/login/.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest carries the registration form.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Validate performs the client-side checks the form would do before submitting.
func (r RegisterRequest) Validate() error {
	fields := map[string][]string{}
	if r.Username == "" {
		fields["username"] = append(fields["username"], "username is required")
	}
	if r.Email == "" {
		fields["email"] = append(fields["email"], "email is required")
	}
	if r.Password == "" {
		fields["password"] = append(fields["password"], "password is required")
	}
	if r.Password != r.Password2 {
		fields["password2"] = append(fields["password2"], "passwords do not match")
	}
	if len(fields) > 0 {
		return &ValidationError{Message: "invalid registration", Fields: fields}
	}
	return nil
}

// ProfileUpdate is a partial update; empty fields are left untouched.
type ProfileUpdate struct {
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"telefono,omitempty"`
	Address    string `json:"direccion,omitempty"`
	City       string `json:"ciudad,omitempty"`
	PostalCode string `json:"codigo_postal,omitempty"`
	Country    string `json:"pais,omitempty"`
}

// CheckoutSession is the hosted payment session created by the backend.
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// Confirmation is the result of a successful payment confirmation.
type Confirmation struct {
	Message string `json:"message,omitempty"`
	Order   Order  `json:"order"`
}
