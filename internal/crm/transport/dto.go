package transport

import (
	"time"

	"github.com/google/uuid"
)

// ContactResponse represents a canonical contact in API responses.
type ContactResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	Title     string    `json:"title,omitempty"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`
}

// TaskResponse represents a canonical task in API responses.
type TaskResponse struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Details   string     `json:"details,omitempty"`
	Status    string     `json:"status"`
	DueAt     *time.Time `json:"dueAt,omitempty"`
	CreatedAt string     `json:"createdAt"`
	UpdatedAt string     `json:"updatedAt"`
}

// DealResponse represents a canonical deal in API responses.
type DealResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Stage     string    `json:"stage"`
	Amount    *float64  `json:"amount,omitempty"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`
}

// ContactListResponse wraps a list of contacts.
type ContactListResponse struct {
	Items []ContactResponse `json:"items"`
	Total int               `json:"total"`
}

// TaskListResponse wraps a list of tasks.
type TaskListResponse struct {
	Items []TaskResponse `json:"items"`
	Total int            `json:"total"`
}

// DealListResponse wraps a list of deals.
type DealListResponse struct {
	Items []DealResponse `json:"items"`
	Total int            `json:"total"`
}
