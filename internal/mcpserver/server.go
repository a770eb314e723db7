// Package mcpserver exposes the relay's query and notification surface to
// MCP clients over stdio. It is a thin consumer: tools only touch the
// public service API, never the storage or dispatch internals.
package mcpserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"pragent/internal/ports"
	"pragent/internal/usecase/relay"
)

// RelayService is the slice of the relay surface the MCP tools need.
type RelayService interface {
	ListRecentEvents(ctx context.Context, filter ports.EventFilter) ([]ports.WebhookEvent, error)
	WorkflowStatus(ctx context.Context, workflowName string) ([]relay.WorkflowStatusItem, error)
	SendNotification(ctx context.Context, text string, severity ports.Severity) (ports.DispatchResult, error)
}

type Server struct {
	service RelayService
	version string
}

func NewServer(service RelayService, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{service: service, version: version}
}

// Run serves MCP over stdio until the context is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if s.service == nil {
		return errors.New("relay service is required")
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "pragent",
		Version: s.version,
	}, nil)

	s.registerTools(server)
	s.registerPrompts(server)

	return server.Run(ctx, &mcp.StdioTransport{})
}

type recentEventsInput struct {
	EventType  string `json:"event_type,omitempty" jsonschema:"filter by event type (workflow_run, check_run, other)"`
	Repository string `json:"repository,omitempty" jsonschema:"filter by repository full name"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of events to return"`
}

type recentEventsOutput struct {
	Events []eventSummary `json:"events"`
	Count  int            `json:"count"`
}

type eventSummary struct {
	DeliveryID   string `json:"delivery_id"`
	EventType    string `json:"event_type"`
	Repository   string `json:"repository,omitempty"`
	Action       string `json:"action,omitempty"`
	Status       string `json:"status,omitempty"`
	Sender       string `json:"sender,omitempty"`
	WorkflowName string `json:"workflow_name,omitempty"`
	RunURL       string `json:"html_url,omitempty"`
	Branch       string `json:"branch,omitempty"`
	Verified     bool   `json:"verified"`
	ReceivedAt   string `json:"received_at"`
}

type workflowStatusInput struct {
	WorkflowName string `json:"workflow_name,omitempty" jsonschema:"optional workflow name to check; empty returns all workflows"`
}

type workflowStatusOutput struct {
	Workflows []relay.WorkflowStatusItem `json:"workflows"`
}

type sendNotificationInput struct {
	Message  string `json:"message" jsonschema:"message text, Slack mrkdwn allowed"`
	Severity string `json:"severity,omitempty" jsonschema:"one of info, warning, error, success"`
}

type sendNotificationOutput struct {
	Delivered bool `json:"delivered"`
	Attempts  int  `json:"attempts"`
}

func (s *Server) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_recent_actions_events",
		Description: "Get recent GitHub Actions webhook events, newest first.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in recentEventsInput) (*mcp.CallToolResult, recentEventsOutput, error) {
		events, err := s.service.ListRecentEvents(ctx, ports.EventFilter{
			EventType:  in.EventType,
			Repository: in.Repository,
			Limit:      in.Limit,
		})
		if err != nil {
			return nil, recentEventsOutput{}, err
		}

		out := recentEventsOutput{Events: make([]eventSummary, 0, len(events))}
		for _, event := range events {
			out.Events = append(out.Events, eventSummary{
				DeliveryID:   event.DeliveryID,
				EventType:    event.EventType,
				Repository:   event.Repository,
				Action:       event.Action,
				Status:       event.Status,
				Sender:       event.Sender,
				WorkflowName: event.WorkflowName,
				RunURL:       event.RunURL,
				Branch:       event.Branch,
				Verified:     event.Verified,
				ReceivedAt:   event.ReceivedAt,
			})
		}
		out.Count = len(out.Events)
		return nil, out, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_workflow_status",
		Description: "Get the latest status of GitHub Actions workflows.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in workflowStatusInput) (*mcp.CallToolResult, workflowStatusOutput, error) {
		items, err := s.service.WorkflowStatus(ctx, in.WorkflowName)
		if err != nil {
			return nil, workflowStatusOutput{}, err
		}
		return nil, workflowStatusOutput{Workflows: items}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "send_slack_notification",
		Description: "Send a message to the configured Slack channel via webhook.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in sendNotificationInput) (*mcp.CallToolResult, sendNotificationOutput, error) {
		result, err := s.service.SendNotification(ctx, in.Message, ports.Severity(in.Severity))
		if err != nil {
			return nil, sendNotificationOutput{Attempts: result.Attempts}, err
		}
		return nil, sendNotificationOutput{
			Delivered: result.Delivered,
			Attempts:  result.Attempts,
		}, nil
	})
}

func (s *Server) registerPrompts(server *mcp.Server) {
	for _, p := range promptCatalog {
		prompt := p
		server.AddPrompt(&mcp.Prompt{
			Name:        prompt.name,
			Description: prompt.description,
		}, func(_ context.Context, _ *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			return &mcp.GetPromptResult{
				Description: prompt.description,
				Messages: []*mcp.PromptMessage{
					{
						Role:    "user",
						Content: &mcp.TextContent{Text: prompt.text},
					},
				},
			}, nil
		})
	}
}
