package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/jscomlabs/contactd/internal/domain"
)

//go:embed templates/*.html
var emailTemplates embed.FS

// sesAPI is the subset of the SES v2 client used by the email channel.
type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailChannel delivers notifications as HTML email through Amazon SES.
type EmailChannel struct {
	enabled   bool
	sender    string
	recipient string
	ses       sesAPI
	tmpl      *template.Template
}

var _ Channel = (*EmailChannel)(nil)

// NewEmailChannel creates an EmailChannel sending from sender to recipient.
func NewEmailChannel(enabled bool, sender, recipient string, client *sesv2.Client) *EmailChannel {
	return &EmailChannel{
		enabled:   enabled,
		sender:    sender,
		recipient: recipient,
		ses:       client,
		tmpl:      template.Must(template.ParseFS(emailTemplates, "templates/*.html")),
	}
}

// Enabled requires the feature flag plus both addresses.
func (e *EmailChannel) Enabled() bool {
	return e.enabled && e.sender != "" && e.recipient != ""
}

// Name returns the channel identifier.
func (e *EmailChannel) Name() string {
	return "email"
}

// Send renders the kind-specific HTML template and submits it via SES.
func (e *EmailChannel) Send(ctx context.Context, env domain.Envelope) Result {
	subject, body, err := e.render(env)
	if err != nil {
		return failed(e.Name(), "failed to render email", err)
	}

	out, err := e.ses.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(e.sender),
		Destination: &types.Destination{
			ToAddresses: []string{e.recipient},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return failed(e.Name(), "failed to send email", err)
	}

	msgID := ""
	if out != nil && out.MessageId != nil {
		msgID = *out.MessageId
	}
	return succeeded(e.Name(), fmt.Sprintf("email sent, message id %s", msgID))
}

// emailData is the template context shared by all email templates.
type emailData struct {
	Heading  string
	Footer   string
	Name     string
	Email    string
	Message  string
	Company  string
	Industry string

	UserAgent string
	SourceIP  string

	// Generic dump for unrecognized contact types.
	Fields []domain.Field
}

func (e *EmailChannel) render(env domain.Envelope) (subject, body string, err error) {
	var (
		name string
		data emailData
	)

	switch env.ContactType {
	case string(domain.KindConsulting):
		name = "consulting.html"
		subject = "New Consulting Contact Message!"
		data = emailData{
			Heading:   "New Consulting Contact Message!",
			Footer:    "New consulting inquiry received.",
			Name:      domain.OrDefault(env.ContactName, "Unknown"),
			Email:     domain.OrDefault(env.ContactEmail, "Unknown"),
			Company:   domain.OrDefault(env.CompanyName, "N/A"),
			Industry:  domain.OrDefault(env.Industry, "N/A"),
			Message:   env.ContactMessage,
			UserAgent: domain.OrDefault(env.UserAgent, "Unknown"),
			SourceIP:  domain.OrDefault(env.IPAddress, "Unknown"),
		}
	case string(domain.KindStandard):
		name = "standard.html"
		subject = "New Contact Message."
		if env.ClassificationType != "" {
			subject = fmt.Sprintf("New Contact Message. %s", env.ClassificationType)
		}
		data = emailData{
			Heading:   "New Contact Message!",
			Footer:    "New message received via the contact form.",
			Name:      domain.OrDefault(env.ContactName, "Unknown"),
			Email:     domain.OrDefault(env.ContactEmail, "Unknown"),
			Message:   env.ContactMessage,
			UserAgent: domain.OrDefault(env.UserAgent, "Unknown"),
			SourceIP:  domain.OrDefault(env.IPAddress, "Unknown"),
		}
	default:
		// Alert kinds and anything unrecognized get the generic key/value
		// layout rather than a rejection.
		name = "generic.html"
		title := titleCase(domain.OrDefault(env.ContactType, "unknown"))
		subject = fmt.Sprintf("New Notification: %s", title)
		data = emailData{
			Heading: fmt.Sprintf("New Notification: %s", title),
			Footer:  "Automated notification.",
			Message: domain.OrDefault(env.ContactMessage, "No message provided"),
		}
		for _, f := range env.Fields() {
			if f.Key == "contact_type" || f.Key == "contact_message" {
				continue
			}
			data.Fields = append(data.Fields, domain.Field{Key: titleCase(f.Key), Value: f.Value})
		}
	}

	var buf bytes.Buffer
	if err := e.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return subject, buf.String(), nil
}
