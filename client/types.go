package client

import "time"

// Role is the closed set of user roles known to the platform.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleAgent    Role = "AGENT"
	RoleCustomer Role = "CUSTOMER"
)

// IsValid reports whether the role is one of the known values.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleCustomer:
		return true
	}
	return false
}

// User is the authenticated identity record returned by the remote service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// AuthResponse is the result of a successful login or registration.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Product is a reviewable product.
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// Response is an agent response attached to a review.
type Response struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Priority  string    `json:"priority"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Agent     struct {
		Name string `json:"name"`
	} `json:"agent"`
}

// Review is a customer review with its sentiment score and responses.
type Review struct {
	ID        string     `json:"id"`
	Rating    int        `json:"rating"`
	Content   string     `json:"content"`
	Sentiment float64    `json:"sentiment"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	Product   Product    `json:"product"`
	Responses []Response `json:"responses"`
}

// Suggestion is a generated response draft for a review.
type Suggestion struct {
	Suggestion string `json:"suggestion"`
}

// ReviewInput is the payload for submitting a new review.
type ReviewInput struct {
	ProductID string `json:"productId"`
	Rating    int    `json:"rating"`
	Content   string `json:"content"`
}

// ResponseInput is the payload for submitting an agent response.
type ResponseInput struct {
	ReviewID string `json:"reviewId"`
	Content  string `json:"content"`
	Priority string `json:"priority"`
}

// PriorityNormal is the default response priority.
const PriorityNormal = "NORMAL"
