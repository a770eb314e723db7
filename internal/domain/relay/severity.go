package relay

import "pragent/internal/ports"

// SeverityFor maps a normalized (status, action) pair to a notification
// severity. The mapping is deterministic: failures alert, completed
// successes celebrate, everything else is informational.
func SeverityFor(status string, action string) ports.Severity {
	switch {
	case status == "failure" || status == "timed_out":
		return ports.SeverityError
	case status == "cancelled" || status == "action_required":
		return ports.SeverityWarning
	case status == "success" && action == "completed":
		return ports.SeveritySuccess
	default:
		return ports.SeverityInfo
	}
}
