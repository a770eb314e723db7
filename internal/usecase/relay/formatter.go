package relay

import (
	"fmt"
	"strings"

	domainrelay "pragent/internal/domain/relay"
	"pragent/internal/ports"
)

// SlackFormatter renders stored events as Slack mrkdwn. Pure: no I/O, no
// failure modes; absent payload fields degrade to placeholders.
type SlackFormatter struct {
	channel string
}

func NewSlackFormatter(channel string) *SlackFormatter {
	return &SlackFormatter{channel: channel}
}

func (f *SlackFormatter) Format(event ports.WebhookEvent) ports.NotificationMessage {
	severity := domainrelay.SeverityFor(event.Status, event.Action)

	message := ports.NotificationMessage{
		ChannelTarget: f.channel,
		Severity:      severity,
	}

	switch severity {
	case ports.SeverityError:
		message.Title = "CI Failure Alert"
		message.Body = formatFailureAlert(event)
	case ports.SeveritySuccess:
		message.Title = "Run Successful"
		message.Body = formatSuccessSummary(event)
	default:
		message.Title = "CI Update"
		message.Body = formatInfoSummary(event)
	}
	return message
}

func formatFailureAlert(event ports.WebhookEvent) string {
	var b strings.Builder
	b.WriteString(":rotating_light: *CI Failure Alert* :rotating_light:\n\n")
	fmt.Fprintf(&b, "*Repository*: %s\n", placeholder(event.Repository))
	fmt.Fprintf(&b, "*Workflow*: %s\n", placeholder(event.WorkflowName))
	fmt.Fprintf(&b, "*Branch*: %s\n", placeholder(event.Branch))
	b.WriteString("*Status*: Failed\n")
	fmt.Fprintf(&b, "*View Details*: %s\n", slackLink(event.RunURL, "View Logs"))
	b.WriteString("\nPlease check the logs and address any issues.")
	return b.String()
}

func formatSuccessSummary(event ports.WebhookEvent) string {
	var b strings.Builder
	b.WriteString(":white_check_mark: *Run Successful* :white_check_mark:\n\n")
	fmt.Fprintf(&b, "*Repository*: %s\n", placeholder(event.Repository))
	fmt.Fprintf(&b, "*Workflow*: %s\n", placeholder(event.WorkflowName))
	if event.RunNumber > 0 {
		fmt.Fprintf(&b, "*Run*: #%d\n", event.RunNumber)
	}
	fmt.Fprintf(&b, "*View Details*: %s\n", slackLink(event.RunURL, "View Run"))
	return b.String()
}

func formatInfoSummary(event ports.WebhookEvent) string {
	return fmt.Sprintf("*%s*: %s %s (%s)",
		placeholder(event.Repository),
		placeholder(event.EventType),
		placeholder(event.Action),
		placeholder(event.Status),
	)
}

// slackLink renders Slack's <url|text> link form, or the placeholder when
// the payload carried no URL.
func slackLink(url string, text string) string {
	if strings.TrimSpace(url) == "" {
		return placeholder("")
	}
	return fmt.Sprintf("<%s|%s>", url, text)
}

func placeholder(value string) string {
	if strings.TrimSpace(value) == "" {
		return "unknown"
	}
	return value
}
