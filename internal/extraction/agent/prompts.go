package agent

import (
	"fmt"
	"strings"
	"time"

	"crmsync_backend/internal/extraction"
)

// getSystemPrompt returns the system prompt for the extractor agent.
func getSystemPrompt() string {
	return `You are a CRM data extraction specialist. You receive one inbound communication (an email or a meeting transcript) and extract the CRM changes it implies.

## What to extract
- **New contacts**: people mentioned with an email address who are not in the CRM yet. Include name, email, phone, company, and title when the text provides them. Never invent an email address.
- **Contact updates**: when the text shows that a known contact's details changed (new title, new phone, new company), propose field-level changes against the existing contact's id. Allowed fields: name, email, phone, company, title. Include the old value you saw in the CRM and the new value from the text.
- **New tasks**: concrete follow-up actions the text asks for or commits to ("send the proposal by Friday", "schedule a demo"). Give each task a short imperative title; put the deadline in dueAt (RFC 3339) when one is stated.
- **New deals**: genuine sales opportunities the text opens (a budget, a purchase intent, a renewal). Include the amount only when a figure is stated.

## How to work
1. Call ListExistingContacts and, when follow-ups are involved, ListOpenTasks to see what the CRM already knows.
2. Compare what the communication says against those records. A person who is already a contact must never be proposed as a new contact; propose an update instead, and only for fields that actually changed.
3. Do not propose a task that duplicates an open task.
4. Call SubmitProposals exactly once with your final answer. If the communication contains nothing actionable, submit empty lists. Do not answer in prose.

Extract only what the text supports. No speculation, no placeholder values.`
}

// buildExtractionPrompt renders one communication as the user message.
func buildExtractionPrompt(comm extraction.Communication) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Communication type: %s\n", comm.Kind)
	if comm.Direction != "" {
		fmt.Fprintf(&b, "Direction: %s\n", comm.Direction)
	}
	if comm.Sender != "" {
		fmt.Fprintf(&b, "From: %s\n", comm.Sender)
	}
	if !comm.ReceivedAt.IsZero() {
		fmt.Fprintf(&b, "Received: %s\n", comm.ReceivedAt.Format(time.RFC3339))
	}
	if comm.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", comm.Subject)
	}

	b.WriteString("\n--- BEGIN CONTENT ---\n")
	b.WriteString(comm.Body)
	b.WriteString("\n--- END CONTENT ---\n")
	b.WriteString("\nExtract the CRM changes from this communication and submit them with SubmitProposals.")

	return b.String()
}
