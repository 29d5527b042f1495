// Package domain defines the core data model and the store, queue, and blob
// interfaces implemented by the infrastructure packages.
package domain

// ContactKind distinguishes the two contact form variants. Other values may
// appear on in-flight envelopes (operational alerts); archived records only
// ever carry the two canonical kinds.
type ContactKind string

const (
	KindStandard   ContactKind = "standard"
	KindConsulting ContactKind = "consulting"
)

// ValidKind reports whether k is one of the archivable contact kinds.
func ValidKind(k ContactKind) bool {
	return k == KindStandard || k == KindConsulting
}

// ContactMessage is one archived form submission. Records are write-once:
// the blocked flag and kind are fixed at archive time and never mutated.
type ContactMessage struct {
	ID             string      `json:"id"`
	ContactName    string      `json:"contact_name,omitempty"`
	ContactEmail   string      `json:"contact_email,omitempty"`
	ContactMessage string      `json:"contact_message"`
	IPAddress      string      `json:"ip_address"`
	UserAgent      string      `json:"user_agent"`
	Timestamp      int64       `json:"timestamp"`
	IsBlocked      bool        `json:"is_blocked"`
	ContactType    ContactKind `json:"contact_type"`
	CompanyName    string      `json:"company_name,omitempty"`
	Industry       string      `json:"industry,omitempty"`
}

// IntakeMessage is the payload the listener publishes to the intake queue and
// the filter forwards (enriched) to the notify queue.
type IntakeMessage struct {
	ContactEmail   string      `json:"contact_email,omitempty"`
	ContactMessage string      `json:"contact_message"`
	ContactName    string      `json:"contact_name,omitempty"`
	CompanyName    string      `json:"company_name,omitempty"`
	Industry       string      `json:"industry,omitempty"`
	IPAddress      string      `json:"ip_address"`
	UserAgent      string      `json:"user_agent"`
	ContactType    ContactKind `json:"contact_type"`

	// Classifier enrichment, attached by the filter stage when enabled.
	ClassificationType     string `json:"llm_classification_type,omitempty"`
	ClassificationPriority string `json:"llm_classification_priority,omitempty"`
	ConfidenceScore        string `json:"llm_confidence_score,omitempty"`
}
