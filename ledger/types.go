package ledger

// Wire types for the ledger service. Field names are the compatibility
// surface and must not be corrected: the deployed service spells the palm
// fields "plam_code" and "vertify_plam", and renders balances as strings.

// User is the ledger-side profile.
type User struct {
	ID           string `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Phone        string `json:"phone"`
	PalmCode     string `json:"plam_code,omitempty"`
	Amount       string `json:"amount"`
	PalmVerified bool   `json:"vertify_plam"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// RegisterParams creates a profile; the palm code is optional at
// registration and can be bound later through VerifyPalm.
type RegisterParams struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	PalmCode  string `json:"plam_code,omitempty"`
}

// VerifyPalmResult confirms a palm code was bound to the profile.
type VerifyPalmResult struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

// Payment is an optional external payment hand-off attached to a top-up.
type Payment struct {
	PaymentURL string `json:"paymentUrl,omitempty"`
}

// TopupResult is returned by a successful top-up.
type TopupResult struct {
	Message string   `json:"message,omitempty"`
	User    User     `json:"user"`
	Payment *Payment `json:"payment,omitempty"`
}

// Order is one purchase record.
type Order struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	Amount        string         `json:"amount"`
	PaymentMethod string         `json:"payment_method"`
	PaymentStatus string         `json:"payment_status"`
	TransactionID string         `json:"transaction_id"`
	Items         map[string]int `json:"items,omitempty"`
	CreatedAt     string         `json:"created_at"`
	UpdatedAt     string         `json:"updated_at,omitempty"`
}

// OrderParams creates a purchase.
type OrderParams struct {
	Amount      int64          `json:"amount"`
	Description string         `json:"description,omitempty"`
	Items       map[string]int `json:"items,omitempty"`
}

// OrderResult is returned by a successful order creation.
type OrderResult struct {
	Message string `json:"message,omitempty"`
	Order   Order  `json:"order"`
}

// HistoryResult lists past transactions of one kind.
type HistoryResult struct {
	Message      string  `json:"message,omitempty"`
	Total        int     `json:"total"`
	Transactions []Order `json:"transactions"`
}

// Product is one catalog entry served by the store demo.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}
