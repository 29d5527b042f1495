package notify

import (
	"context"
	"errors"
	"html/template"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	in  *sesv2.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-123")}, nil
}

func newTestEmailChannel(ses sesAPI) *EmailChannel {
	return &EmailChannel{
		enabled:   true,
		sender:    "mail@example.com",
		recipient: "ops@example.com",
		ses:       ses,
		tmpl:      template.Must(template.ParseFS(emailTemplates, "templates/*.html")),
	}
}

func TestEmailChannel_Enabled(t *testing.T) {
	ch := newTestEmailChannel(&fakeSES{})
	assert.True(t, ch.Enabled())

	ch.sender = ""
	assert.False(t, ch.Enabled())

	ch.sender = "mail@example.com"
	ch.enabled = false
	assert.False(t, ch.Enabled())
}

func TestEmailChannel_SendStandard(t *testing.T) {
	ses := &fakeSES{}
	ch := newTestEmailChannel(ses)

	env := mustEnvelope(t, `{
		"contact_type": "standard",
		"contact_name": "Jane",
		"contact_email": "jane@example.com",
		"contact_message": "Hello"
	}`)

	res := ch.Send(context.Background(), env)
	require.True(t, res.Success)
	assert.Contains(t, res.Message, "msg-123")

	require.NotNil(t, ses.in)
	assert.Equal(t, "mail@example.com", *ses.in.FromEmailAddress)
	assert.Equal(t, []string{"ops@example.com"}, ses.in.Destination.ToAddresses)
	assert.Equal(t, "New Contact Message.", *ses.in.Content.Simple.Subject.Data)

	body := *ses.in.Content.Simple.Body.Html.Data
	assert.Contains(t, body, "Jane")
	assert.Contains(t, body, "jane@example.com")
	assert.Contains(t, body, "Hello")
}

func TestEmailChannel_SendConsulting(t *testing.T) {
	ses := &fakeSES{}
	ch := newTestEmailChannel(ses)

	env := mustEnvelope(t, `{
		"contact_type": "consulting",
		"contact_message": "Need help",
		"company_name": "Acme",
		"industry": "Tech"
	}`)

	res := ch.Send(context.Background(), env)
	require.True(t, res.Success)

	assert.Equal(t, "New Consulting Contact Message!", *ses.in.Content.Simple.Subject.Data)
	body := *ses.in.Content.Simple.Body.Html.Data
	assert.Contains(t, body, "Acme")
	assert.Contains(t, body, "Tech")
}

func TestEmailChannel_ClassificationInSubject(t *testing.T) {
	ses := &fakeSES{}
	ch := newTestEmailChannel(ses)

	env := mustEnvelope(t, `{
		"contact_message": "hi",
		"llm_classification_type": "job_opportunity"
	}`)

	res := ch.Send(context.Background(), env)
	require.True(t, res.Success)
	assert.Equal(t, "New Contact Message. job_opportunity", *ses.in.Content.Simple.Subject.Data)
}

func TestEmailChannel_UnknownKindRendersGeneric(t *testing.T) {
	ses := &fakeSES{}
	ch := newTestEmailChannel(ses)

	env := mustEnvelope(t, `{
		"contact_type": "uptime-report",
		"contact_message": "weekly summary",
		"uptime_pct": "99.97"
	}`)

	res := ch.Send(context.Background(), env)
	require.True(t, res.Success)

	assert.Equal(t, "New Notification: Uptime Report", *ses.in.Content.Simple.Subject.Data)
	body := *ses.in.Content.Simple.Body.Html.Data
	assert.Contains(t, body, "weekly summary")
	assert.Contains(t, body, "99.97")
}

func TestEmailChannel_ProviderFailureIsFailedResult(t *testing.T) {
	ses := &fakeSES{err: errors.New("ses unavailable")}
	ch := newTestEmailChannel(ses)

	env := mustEnvelope(t, `{"contact_message":"hi"}`)

	res := ch.Send(context.Background(), env)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "ses unavailable")
}
