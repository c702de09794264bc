package adapters

import (
	"context"
	"fmt"

	crmrepo "crmsync_backend/internal/crm/repository"
	"crmsync_backend/internal/extraction"
)

// NewCRMLookups builds the read-only dedup callbacks the extractor uses,
// backed by the canonical store. Snapshots carry only the fields the model
// needs for duplicate reasoning, never full records.
func NewCRMLookups(contacts crmrepo.ContactReader, tasks crmrepo.TaskStore) extraction.Lookups {
	return extraction.Lookups{
		ListContacts: func(ctx context.Context) ([]extraction.ContactSnapshot, error) {
			records, err := contacts.ListContacts(ctx)
			if err != nil {
				return nil, fmt.Errorf("list contacts for extraction: %w", err)
			}
			snapshots := make([]extraction.ContactSnapshot, len(records))
			for i, record := range records {
				snapshots[i] = extraction.ContactSnapshot{
					ID:      record.ID.String(),
					Name:    record.Name,
					Email:   record.Email,
					Company: record.Company,
					Title:   record.Title,
				}
			}
			return snapshots, nil
		},
		ListTasks: func(ctx context.Context) ([]extraction.TaskSnapshot, error) {
			records, err := tasks.ListOpenTasks(ctx)
			if err != nil {
				return nil, fmt.Errorf("list open tasks for extraction: %w", err)
			}
			snapshots := make([]extraction.TaskSnapshot, len(records))
			for i, record := range records {
				snapshots[i] = extraction.TaskSnapshot{
					ID:    record.ID.String(),
					Title: record.Title,
				}
			}
			return snapshots, nil
		},
	}
}
