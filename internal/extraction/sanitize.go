package extraction

import (
	"strings"

	"crmsync_backend/platform/phone"
)

// allowedContactFields are the contact fields an update diff may touch.
var allowedContactFields = map[string]bool{
	"name":    true,
	"email":   true,
	"phone":   true,
	"company": true,
	"title":   true,
}

// Sanitize filters malformed entries out of an extraction result before
// staging. Malformed entries are dropped, never treated as a pipeline error:
// a contact without an email, a task or deal without a title, an update
// without a target or with no valid changes. Phone numbers are normalized to
// E.164 when they parse.
func Sanitize(result Result, defaultPhoneRegion string) Result {
	clean := Result{}

	for _, contact := range result.NewContacts {
		contact.Email = strings.TrimSpace(contact.Email)
		if contact.Email == "" {
			continue
		}
		contact.Name = strings.TrimSpace(contact.Name)
		contact.Company = strings.TrimSpace(contact.Company)
		contact.Title = strings.TrimSpace(contact.Title)
		contact.Phone = phone.NormalizeE164(contact.Phone, defaultPhoneRegion)
		clean.NewContacts = append(clean.NewContacts, contact)
	}

	for _, update := range result.ContactUpdates {
		update.ContactID = strings.TrimSpace(update.ContactID)
		if update.ContactID == "" {
			continue
		}
		changes := make([]FieldChange, 0, len(update.Changes))
		for _, change := range update.Changes {
			field := strings.ToLower(strings.TrimSpace(change.Field))
			if !allowedContactFields[field] {
				continue
			}
			change.Field = field
			if field == "phone" {
				change.NewValue = phone.NormalizeE164(change.NewValue, defaultPhoneRegion)
			}
			changes = append(changes, change)
		}
		if len(changes) == 0 {
			continue
		}
		update.Changes = changes
		clean.ContactUpdates = append(clean.ContactUpdates, update)
	}

	for _, task := range result.NewTasks {
		task.Title = strings.TrimSpace(task.Title)
		if task.Title == "" {
			continue
		}
		clean.NewTasks = append(clean.NewTasks, task)
	}

	for _, deal := range result.NewDeals {
		deal.Name = strings.TrimSpace(deal.Name)
		if deal.Name == "" {
			continue
		}
		clean.NewDeals = append(clean.NewDeals, deal)
	}

	return clean
}
