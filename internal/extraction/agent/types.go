package agent

import "crmsync_backend/internal/extraction"

// ListContactsInput is intentionally empty; the tool takes no arguments.
type ListContactsInput struct{}

// ListContactsOutput returns the existing contacts for duplicate reasoning.
type ListContactsOutput struct {
	Contacts []extraction.ContactSnapshot `json:"contacts"`
}

// ListOpenTasksInput is intentionally empty; the tool takes no arguments.
type ListOpenTasksInput struct{}

// ListOpenTasksOutput returns the open tasks for duplicate reasoning.
type ListOpenTasksOutput struct {
	Tasks []extraction.TaskSnapshot `json:"tasks"`
}

// SubmitProposalsInput is the structured result the model must submit exactly once.
type SubmitProposalsInput struct {
	NewContacts    []extraction.ContactProposal       `json:"newContacts"`
	ContactUpdates []extraction.ContactUpdateProposal `json:"contactUpdates"`
	NewTasks       []extraction.TaskProposal          `json:"newTasks"`
	NewDeals       []extraction.DealProposal          `json:"newDeals"`
}

// SubmitProposalsOutput acknowledges the submission.
type SubmitProposalsOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
