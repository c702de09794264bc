package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	adkagent "google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
	"google.golang.org/genai"

	"crmsync_backend/internal/extraction"
	"crmsync_backend/platform/ai/openaicompat"
	"crmsync_backend/platform/apperr"
	"crmsync_backend/platform/logger"
)

const appName = "extractor"

// Extractor turns communications into proposed CRM changes via an LLM agent
// with dedup-lookup tools.
type Extractor struct {
	agent          adkagent.Agent
	runner         *runner.Runner
	sessionService session.Service
	toolDeps       *toolDependencies
	log            *logger.Logger
	runMu          sync.Mutex
}

// Config holds configuration for creating an Extractor.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Lookups extraction.Lookups
	Logger  *logger.Logger
}

// New creates an Extractor agent.
func New(cfg Config) (*Extractor, error) {
	model := openaicompat.NewModel(openaicompat.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})

	deps := &toolDependencies{lookups: cfg.Lookups}

	listContactsTool, err := createListContactsTool(deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build ListExistingContacts tool: %w", err)
	}

	listTasksTool, err := createListOpenTasksTool(deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build ListOpenTasks tool: %w", err)
	}

	submitTool, err := createSubmitProposalsTool(deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build SubmitProposals tool: %w", err)
	}

	tools := []tool.Tool{listContactsTool, listTasksTool, submitTool}

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "Extractor",
		Model:       model,
		Description: "Extracts structured CRM changes from inbound communications.",
		Instruction: getSystemPrompt(),
		Tools:       tools,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor runner: %w", err)
	}

	return &Extractor{
		agent:          adkAgent,
		runner:         r,
		sessionService: sessionService,
		toolDeps:       deps,
		log:            cfg.Logger,
	}, nil
}

// Extract runs the agent over one communication and returns the proposals it
// submitted. Runs are serialized because toolDeps holds per-run state.
func (e *Extractor) Extract(ctx context.Context, comm extraction.Communication) (extraction.Result, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	e.toolDeps.reset()

	sessionID := uuid.New().String()
	userID := appName

	_, err := e.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return extraction.Result{}, fmt.Errorf("failed to create extractor session: %w", err)
	}
	defer func() {
		_ = e.sessionService.Delete(ctx, &session.DeleteRequest{
			AppName:   appName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	userMessage := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: buildExtractionPrompt(comm)}},
	}

	runConfig := adkagent.RunConfig{StreamingMode: adkagent.StreamingModeNone}
	for event := range e.runner.Run(ctx, userID, sessionID, userMessage, runConfig) {
		_ = event
	}
	if err := ctx.Err(); err != nil {
		return extraction.Result{}, fmt.Errorf("extraction run interrupted: %w", err)
	}

	result, submitted := e.toolDeps.take()
	if !submitted {
		return extraction.Result{}, apperr.Unavailable("extractor finished without submitting proposals")
	}
	return result, nil
}

var _ extraction.Extractor = (*Extractor)(nil)
