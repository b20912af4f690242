package bankapi

import "time"

type Account struct {
	AccountNumber string  `json:"accountNumber"`
	AccountType   string  `json:"accountType"`
	Balance       float64 `json:"balance"`
	OwnerID       string  `json:"ownerId"`
	OwnerName     string  `json:"ownerName"`
	OwnerKind     string  `json:"ownerKind"`
	Active        bool    `json:"active"`
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	DPI       string    `json:"dpi"`
	CreatedAt time.Time `json:"createdAt"`
}

type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NIT       string    `json:"nit"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

type TransactionPayload struct {
	Type               string  `json:"type"`
	SourceAccount      string  `json:"sourceAccount"`
	DestinationAccount string  `json:"destinationAccount,omitempty"`
	Amount             float64 `json:"amount"`
	RequestedBy        string  `json:"requestedBy,omitempty"`
}

type Confirmation struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

type HistoryEntry struct {
	ID                 string    `json:"id"`
	Type               string    `json:"type"`
	SourceAccount      string    `json:"sourceAccount"`
	DestinationAccount string    `json:"destinationAccount,omitempty"`
	Amount             float64   `json:"amount"`
	CreatedAt          time.Time `json:"createdAt"`
}

type Favorite struct {
	Alias         string `json:"alias"`
	AccountNumber string `json:"accountNumber"`
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type LoginResult struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

type UserRegistration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	DPI      string `json:"dpi"`
	Password string `json:"password"`
}

type OrganizationRegistration struct {
	Name  string `json:"name"`
	NIT   string `json:"nit"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type AccountCreation struct {
	OwnerID        string  `json:"ownerId"`
	OwnerKind      string  `json:"ownerKind"`
	AccountType    string  `json:"accountType"`
	InitialDeposit float64 `json:"initialDeposit"`
}
