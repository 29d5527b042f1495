package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Envelope is the in-flight payload handed to every notification channel. It
// exists only for the duration of one notifier invocation and is never
// persisted. The known fields cover the contact kinds and the operational
// alert kinds; everything else from the source JSON is retained in the raw
// map so unknown kinds can still be rendered as a key/value dump.
type Envelope struct {
	ContactType    string
	ContactName    string
	ContactEmail   string
	ContactMessage string
	UserAgent      string
	IPAddress      string
	CompanyName    string
	Industry       string

	// Alert kinds (e.g. "homelab-alert").
	AlertType  string
	Source     string
	Timestamp  string
	PreviousIP string
	Domain     string

	// Classifier enrichment.
	ClassificationType     string
	ClassificationPriority string
	ConfidenceScore        string

	raw map[string]any
}

// envelopeJSON mirrors the queue message field names.
type envelopeJSON struct {
	ContactType            string `json:"contact_type"`
	ContactName            string `json:"contact_name"`
	ContactEmail           string `json:"contact_email"`
	ContactMessage         string `json:"contact_message"`
	UserAgent              string `json:"user_agent"`
	IPAddress              string `json:"ip_address"`
	CompanyName            string `json:"company_name"`
	Industry               string `json:"industry"`
	AlertType              string `json:"alert_type"`
	Source                 string `json:"source"`
	Timestamp              string `json:"timestamp"`
	PreviousIP             string `json:"previous_ip"`
	Domain                 string `json:"domain"`
	ClassificationType     string `json:"llm_classification_type"`
	ClassificationPriority string `json:"llm_classification_priority"`
	ConfidenceScore        string `json:"llm_confidence_score"`
}

// ParseEnvelope decodes a notify-queue payload. A decode failure is an error;
// a missing message body is not (callers check ContactMessage explicitly so
// the validation outcome is distinguishable from a malformed payload).
func ParseEnvelope(data []byte) (Envelope, error) {
	var fields envelopeJSON
	if err := json.Unmarshal(data, &fields); err != nil {
		return Envelope{}, fmt.Errorf("domain: parse envelope: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, fmt.Errorf("domain: parse envelope: %w", err)
	}

	env := Envelope{
		ContactType:            fields.ContactType,
		ContactName:            fields.ContactName,
		ContactEmail:           fields.ContactEmail,
		ContactMessage:         fields.ContactMessage,
		UserAgent:              fields.UserAgent,
		IPAddress:              fields.IPAddress,
		CompanyName:            fields.CompanyName,
		Industry:               fields.Industry,
		AlertType:              fields.AlertType,
		Source:                 fields.Source,
		Timestamp:              fields.Timestamp,
		PreviousIP:             fields.PreviousIP,
		Domain:                 fields.Domain,
		ClassificationType:     fields.ClassificationType,
		ClassificationPriority: fields.ClassificationPriority,
		ConfidenceScore:        fields.ConfidenceScore,
		raw:                    raw,
	}
	if env.ContactType == "" {
		env.ContactType = string(KindStandard)
	}
	return env, nil
}

// Fields returns every scalar field of the source payload as strings, sorted
// by key. Used for the generic rendering of unrecognized contact kinds.
func (e Envelope) Fields() []Field {
	out := make([]Field, 0, len(e.raw))
	for k, v := range e.raw {
		switch val := v.(type) {
		case string:
			out = append(out, Field{Key: k, Value: val})
		case float64, bool:
			out = append(out, Field{Key: k, Value: fmt.Sprintf("%v", val)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Field is one key/value pair of an envelope's raw payload.
type Field struct {
	Key   string
	Value string
}

// OrDefault returns s, or def when s is empty. Channel renderers use this to
// fill optional envelope fields the way the upstream forms leave them.
func OrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
