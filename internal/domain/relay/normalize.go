package relay

import (
	"encoding/json"
	"strings"

	"github.com/google/go-github/v68/github"

	"pragent/internal/errs"
)

// Canonical event types. Deliveries outside the workflow/check family are
// still persisted, collapsed to EventTypeOther.
const (
	EventTypeWorkflowRun = "workflow_run"
	EventTypeCheckRun    = "check_run"
	EventTypeOther       = "other"
)

// Normalized holds the fields extracted from a raw webhook body. Absent
// payload fields stay empty; the formatter substitutes placeholders.
type Normalized struct {
	EventType    string
	Repository   string
	Action       string
	Status       string
	Sender       string
	WorkflowName string
	RunURL       string
	RunNumber    int64
	Branch       string
}

// Normalize parses a raw webhook body for the given X-GitHub-Event type.
// workflow_run and check_run deliveries get typed parsing; everything else
// is kept with best-effort repository/action/sender extraction.
func Normalize(eventType string, body []byte) (Normalized, error) {
	switch strings.TrimSpace(eventType) {
	case EventTypeWorkflowRun:
		return normalizeWorkflowRun(body)
	case EventTypeCheckRun:
		return normalizeCheckRun(body)
	default:
		return normalizeOther(body)
	}
}

func normalizeWorkflowRun(body []byte) (Normalized, error) {
	parsed, err := github.ParseWebHook(EventTypeWorkflowRun, body)
	if err != nil {
		return Normalized{}, errs.Wrap(ErrMalformedPayload, err.Error())
	}
	event, ok := parsed.(*github.WorkflowRunEvent)
	if !ok {
		return Normalized{}, errs.Wrap(ErrMalformedPayload, "unexpected workflow_run payload type")
	}

	run := event.GetWorkflowRun()
	return Normalized{
		EventType:    EventTypeWorkflowRun,
		Repository:   event.GetRepo().GetFullName(),
		Action:       event.GetAction(),
		Status:       runStatus(run.GetStatus(), run.GetConclusion()),
		Sender:       event.GetSender().GetLogin(),
		WorkflowName: run.GetName(),
		RunURL:       run.GetHTMLURL(),
		RunNumber:    int64(run.GetRunNumber()),
		Branch:       run.GetHeadBranch(),
	}, nil
}

func normalizeCheckRun(body []byte) (Normalized, error) {
	parsed, err := github.ParseWebHook(EventTypeCheckRun, body)
	if err != nil {
		return Normalized{}, errs.Wrap(ErrMalformedPayload, err.Error())
	}
	event, ok := parsed.(*github.CheckRunEvent)
	if !ok {
		return Normalized{}, errs.Wrap(ErrMalformedPayload, "unexpected check_run payload type")
	}

	check := event.GetCheckRun()
	return Normalized{
		EventType:  EventTypeCheckRun,
		Repository: event.GetRepo().GetFullName(),
		Action:     event.GetAction(),
		Status:     runStatus(check.GetStatus(), check.GetConclusion()),
		Sender:     event.GetSender().GetLogin(),
		// Check runs carry the job name where workflow runs carry the
		// workflow name; both feed the same formatter slot.
		WorkflowName: check.GetName(),
		RunURL:       check.GetHTMLURL(),
	}, nil
}

// otherPayload is the minimal shape shared by every GitHub event document.
type otherPayload struct {
	Action     string `json:"action"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
	Sender struct {
		Login string `json:"login"`
	} `json:"sender"`
}

func normalizeOther(body []byte) (Normalized, error) {
	var payload otherPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Normalized{}, errs.Wrap(ErrMalformedPayload, err.Error())
	}

	return Normalized{
		EventType:  EventTypeOther,
		Repository: payload.Repository.FullName,
		Action:     payload.Action,
		Sender:     payload.Sender.Login,
	}, nil
}

// runStatus collapses GitHub's status/conclusion pair into one field:
// the conclusion once the run completed, the transient status before.
func runStatus(status string, conclusion string) string {
	if conclusion != "" {
		return conclusion
	}
	return status
}
