package alerts

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okutsev/fleetwatch/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// Renderer builds the subject and body for an outbound notification from
// the alert it belongs to.
type Renderer struct{}

// NewRenderer creates a renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render returns the subject line and plain-text body for a notification.
func (r *Renderer) Render(alert *domain.Alert, n *domain.Notification) (subject, body string) {
	subject = fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Severity)), titleCaser.String(humanize(alert.AlertType)))
	if alert.ServerID != nil {
		subject += fmt.Sprintf(" on server %s", *alert.ServerID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", alert.Message)
	fmt.Fprintf(&b, "Severity: %s\n", alert.Severity)
	fmt.Fprintf(&b, "Status: %s\n", alert.Status)
	fmt.Fprintf(&b, "Source: %s", alert.SourceType)
	if alert.SourceID != nil {
		fmt.Fprintf(&b, " (%s)", *alert.SourceID)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Raised: %s\n", alert.CreatedAt.Format(time.RFC3339))

	if len(n.Payload) > 0 {
		b.WriteString("\n")
		keys := make([]string, 0, len(n.Payload))
		for k := range n.Payload {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %v\n", k, n.Payload[k])
		}
	}

	return subject, strings.TrimSpace(b.String())
}

// humanize turns a machine alert type like "service_restart" into
// "service restart".
func humanize(alertType string) string {
	return strings.ReplaceAll(alertType, "_", " ")
}
