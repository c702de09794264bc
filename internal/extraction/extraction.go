// Package extraction defines the contract with the structured extraction
// capability: one normalized communication in, a set of proposed CRM changes
// out, with injected read-only dedup-lookup callbacks. The pipeline treats
// the capability as an opaque, retryable external call with a bounded
// timeout; its internal prompting and branching are not modeled here.
package extraction

import (
	"context"
	"time"
)

// Communication is one normalized inbound communication handed to the extractor.
type Communication struct {
	Kind       string    // "email" or "meeting"
	Subject    string
	Body       string
	Sender     string
	ReceivedAt time.Time
	Direction  string // optional folder/direction hint, e.g. "inbound"
}

// ContactProposal proposes a new contact.
type ContactProposal struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
	Title   string `json:"title,omitempty"`
}

// FieldChange is one field-level diff in a contact update proposal.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"oldValue"`
	NewValue string `json:"newValue"`
}

// ContactUpdateProposal proposes field changes to an existing contact.
type ContactUpdateProposal struct {
	ContactID string        `json:"contactId"`
	Changes   []FieldChange `json:"changes"`
}

// TaskProposal proposes a new task.
type TaskProposal struct {
	Title   string     `json:"title"`
	Details string     `json:"details,omitempty"`
	DueAt   *time.Time `json:"dueAt,omitempty"`
}

// DealProposal proposes a new deal.
type DealProposal struct {
	Name   string   `json:"name"`
	Stage  string   `json:"stage,omitempty"`
	Amount *float64 `json:"amount,omitempty"`
}

// Result is the structured output of one extraction call.
type Result struct {
	NewContacts    []ContactProposal       `json:"newContacts"`
	ContactUpdates []ContactUpdateProposal `json:"contactUpdates,omitempty"`
	NewTasks       []TaskProposal          `json:"newTasks,omitempty"`
	NewDeals       []DealProposal          `json:"newDeals,omitempty"`
}

// IsEmpty reports whether the result proposes nothing.
func (r Result) IsEmpty() bool {
	return len(r.NewContacts) == 0 && len(r.ContactUpdates) == 0 && len(r.NewTasks) == 0 && len(r.NewDeals) == 0
}

// ContactSnapshot is the dedup-lookup view of an existing contact.
type ContactSnapshot struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
	Title   string `json:"title,omitempty"`
}

// TaskSnapshot is the dedup-lookup view of an existing open task.
type TaskSnapshot struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Lookups are the read-only callbacks the extractor may invoke zero or more
// times for its own duplicate reasoning before returning.
type Lookups struct {
	ListContacts func(ctx context.Context) ([]ContactSnapshot, error)
	ListTasks    func(ctx context.Context) ([]TaskSnapshot, error)
}

// Extractor turns one communication into proposed CRM changes.
type Extractor interface {
	Extract(ctx context.Context, comm Communication) (Result, error)
}
