package notify

import (
	"fmt"
	"strings"

	"github.com/jscomlabs/contactd/internal/domain"
)

// renderText produces the markdown message body shared by the chat channels
// (Discord and Telegram both accept the same bold/newline subset). The
// rendering is driven entirely by the envelope's contact type; unknown types
// get the generic key/value dump so a new upstream producer never causes a
// delivery failure.
func renderText(env domain.Envelope) string {
	switch env.ContactType {
	case string(domain.KindConsulting):
		return renderConsulting(env)
	case "homelab-alert":
		return renderHomelabAlert(env)
	case string(domain.KindStandard):
		return renderStandard(env)
	default:
		return renderGeneric(env)
	}
}

func renderStandard(env domain.Envelope) string {
	var b strings.Builder
	b.WriteString("**New Contact Message!**")
	if env.ClassificationType != "" {
		fmt.Fprintf(&b, " (%s", env.ClassificationType)
		if env.ClassificationPriority != "" {
			fmt.Fprintf(&b, ", priority %s", env.ClassificationPriority)
		}
		b.WriteString(")")
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "**Name:** %s\n", domain.OrDefault(env.ContactName, "Unknown"))
	fmt.Fprintf(&b, "**Email:** %s\n", domain.OrDefault(env.ContactEmail, "Unknown"))
	fmt.Fprintf(&b, "**Message:**\n%s\n\n", env.ContactMessage)
	b.WriteString("---\n")
	fmt.Fprintf(&b, "**User Agent:** %s\n", domain.OrDefault(env.UserAgent, "Unknown"))
	fmt.Fprintf(&b, "**Source IP:** %s", domain.OrDefault(env.IPAddress, "Unknown"))
	return b.String()
}

func renderConsulting(env domain.Envelope) string {
	var b strings.Builder
	b.WriteString("**New Consulting Contact Message!**\n\n")
	fmt.Fprintf(&b, "**Name:** %s\n", domain.OrDefault(env.ContactName, "Unknown"))
	fmt.Fprintf(&b, "**Email:** %s\n", domain.OrDefault(env.ContactEmail, "Unknown"))
	fmt.Fprintf(&b, "**Company:** %s\n", domain.OrDefault(env.CompanyName, "N/A"))
	fmt.Fprintf(&b, "**Industry:** %s\n", domain.OrDefault(env.Industry, "N/A"))
	fmt.Fprintf(&b, "**Message:**\n%s\n\n", env.ContactMessage)
	b.WriteString("---\n")
	fmt.Fprintf(&b, "**User Agent:** %s\n", domain.OrDefault(env.UserAgent, "Unknown"))
	fmt.Fprintf(&b, "**Source IP:** %s", domain.OrDefault(env.IPAddress, "Unknown"))
	return b.String()
}

func renderHomelabAlert(env domain.Envelope) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏠 **Homelab Alert: %s**\n\n", titleCase(domain.OrDefault(env.AlertType, "unknown")))
	fmt.Fprintf(&b, "%s\n\n", env.ContactMessage)
	b.WriteString("---\n")

	var meta []string
	if env.IPAddress != "" {
		meta = append(meta, fmt.Sprintf("**IP Address:** %s", env.IPAddress))
	}
	if env.PreviousIP != "" {
		meta = append(meta, fmt.Sprintf("**Previous IP:** %s", env.PreviousIP))
	}
	if env.Domain != "" {
		meta = append(meta, fmt.Sprintf("**Domain:** %s", env.Domain))
	}
	meta = append(meta, fmt.Sprintf("**Source:** %s", domain.OrDefault(env.Source, "unknown")))
	meta = append(meta, fmt.Sprintf("**Timestamp:** %s", domain.OrDefault(env.Timestamp, "N/A")))
	b.WriteString(strings.Join(meta, "\n"))
	return b.String()
}

// renderGeneric handles contact types no renderer knows about. Every scalar
// field of the payload is dumped, so nothing is silently lost.
func renderGeneric(env domain.Envelope) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**New Notification: %s**\n\n", titleCase(domain.OrDefault(env.ContactType, "unknown")))
	fmt.Fprintf(&b, "%s\n\n", domain.OrDefault(env.ContactMessage, "No message provided"))
	b.WriteString("---\n")

	var meta []string
	for _, f := range env.Fields() {
		if f.Key == "contact_type" || f.Key == "contact_message" {
			continue
		}
		meta = append(meta, fmt.Sprintf("**%s:** %s", titleCase(f.Key), f.Value))
	}
	if len(meta) == 0 {
		b.WriteString("No additional metadata")
	} else {
		b.WriteString(strings.Join(meta, "\n"))
	}
	return b.String()
}

// titleCase turns snake/kebab identifiers into readable headings
// ("ip-change" -> "Ip Change").
func titleCase(s string) string {
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
