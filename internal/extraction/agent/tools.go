package agent

import (
	"sync"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"crmsync_backend/internal/extraction"
)

// toolDependencies carries per-run state shared between the tool closures and
// the extractor. The runner invokes tools from its own goroutines, so all
// access goes through the mutex.
type toolDependencies struct {
	lookups extraction.Lookups

	mu        sync.Mutex
	submitted bool
	result    extraction.Result
}

func (d *toolDependencies) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitted = false
	d.result = extraction.Result{}
}

func (d *toolDependencies) capture(input SubmitProposalsInput) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitted = true
	d.result = extraction.Result{
		NewContacts:    input.NewContacts,
		ContactUpdates: input.ContactUpdates,
		NewTasks:       input.NewTasks,
		NewDeals:       input.NewDeals,
	}
}

func (d *toolDependencies) take() (extraction.Result, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result, d.submitted
}

// createListContactsTool creates the ListExistingContacts tool.
func createListContactsTool(deps *toolDependencies) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "ListExistingContacts",
		Description: "Lists the contacts already in the CRM (id, name, email, company, title). Use this to decide whether a person mentioned in the communication is new or already known. Propose an update instead of a new contact when a match exists.",
	}, func(ctx tool.Context, input ListContactsInput) (ListContactsOutput, error) {
		contacts, err := deps.lookups.ListContacts(ctx)
		if err != nil {
			return ListContactsOutput{}, err
		}
		return ListContactsOutput{Contacts: contacts}, nil
	})
}

// createListOpenTasksTool creates the ListOpenTasks tool.
func createListOpenTasksTool(deps *toolDependencies) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "ListOpenTasks",
		Description: "Lists the open tasks already in the CRM (id, title). Use this to avoid proposing a task that already exists.",
	}, func(ctx tool.Context, input ListOpenTasksInput) (ListOpenTasksOutput, error) {
		tasks, err := deps.lookups.ListTasks(ctx)
		if err != nil {
			return ListOpenTasksOutput{}, err
		}
		return ListOpenTasksOutput{Tasks: tasks}, nil
	})
}

// createSubmitProposalsTool creates the SubmitProposals tool.
func createSubmitProposalsTool(deps *toolDependencies) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "SubmitProposals",
		Description: "Submits the final set of proposed CRM changes extracted from the communication. Call this exactly once, after any lookups. Submit empty lists when the communication contains nothing actionable.",
	}, func(ctx tool.Context, input SubmitProposalsInput) (SubmitProposalsOutput, error) {
		deps.capture(input)
		return SubmitProposalsOutput{Success: true, Message: "Proposals recorded"}, nil
	})
}
