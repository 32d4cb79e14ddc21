package domain

import "strings"

// KYCStatus is the identity verification state of a customer.
type KYCStatus string

const (
	KYCVerified KYCStatus = "VERIFIED"
	KYCPending  KYCStatus = "PENDING"
)

// Customer is the bank's customer record. It doubles as the "user" object in
// login responses.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	KYCStatus KYCStatus `json:"kycStatus,omitempty"`
	CreatedAt Timestamp `json:"createdAt,omitempty"`
}

// FirstName is used for greetings.
func (c Customer) FirstName() string {
	if f := strings.Fields(c.Name); len(f) > 0 {
		return f[0]
	}
	return ""
}

// LoginResponse is the body of a successful POST /auth/login.
type LoginResponse struct {
	Token   string    `json:"token"`
	User    *Customer `json:"user"`
	Message string    `json:"message,omitempty"`
}

// RegisterRequest creates a customer together with login credentials.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    *int64 `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserAuth is the credential record returned by registration.
type UserAuth struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Customer *Customer `json:"customer,omitempty"`
}

// Session is the authenticated identity held by the client.
type Session struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	Token       string    `json:"token"`
	User        *Customer `json:"user,omitempty"`
}

// NewSession builds a Session from the login user and token.
func NewSession(user *Customer, token string) Session {
	s := Session{Token: token}
	if user != nil {
		u := *user
		s.UserID = u.ID
		s.DisplayName = u.Name
		s.Email = u.Email
		s.User = &u
	}
	return s
}
