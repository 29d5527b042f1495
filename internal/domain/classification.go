package domain

import "fmt"

// ContactCategory is the classifier's category label for a message.
type ContactCategory string

const (
	CategoryGeneralInquiry       ContactCategory = "general_inquiry"
	CategoryTechInquiry          ContactCategory = "tech_inquiry"
	CategoryCorrectionRequest    ContactCategory = "correction_request"
	CategoryProjectCollaboration ContactCategory = "project_collaboration"
	CategoryConsultingRequest    ContactCategory = "consulting_request"
	CategorySpeakingInvitation   ContactCategory = "speaking_invitation"
	CategoryJobOpportunity       ContactCategory = "job_opportunity"
	CategoryPersonalConnection   ContactCategory = "personal_connection"
	CategoryFeedback             ContactCategory = "feedback"
	CategorySpam                 ContactCategory = "spam"
	CategoryOther                ContactCategory = "other"
)

var validCategories = map[ContactCategory]bool{
	CategoryGeneralInquiry:       true,
	CategoryTechInquiry:          true,
	CategoryCorrectionRequest:    true,
	CategoryProjectCollaboration: true,
	CategoryConsultingRequest:    true,
	CategorySpeakingInvitation:   true,
	CategoryJobOpportunity:       true,
	CategoryPersonalConnection:   true,
	CategoryFeedback:             true,
	CategorySpam:                 true,
	CategoryOther:                true,
}

// ContactPriority is the classifier's priority label for a message.
type ContactPriority string

const (
	PriorityLow    ContactPriority = "low"
	PriorityNormal ContactPriority = "normal"
	PriorityHigh   ContactPriority = "high"
	PriorityUrgent ContactPriority = "urgent"
)

var validPriorities = map[ContactPriority]bool{
	PriorityLow:    true,
	PriorityNormal: true,
	PriorityHigh:   true,
	PriorityUrgent: true,
}

// Classification is the structured label produced by the classifier for one
// message body.
type Classification struct {
	Category   ContactCategory `json:"contact_category"`
	Priority   ContactPriority `json:"contact_priority"`
	Confidence float64         `json:"confidence_score"`
}

// Validate checks the enum values and the confidence range.
func (c Classification) Validate() error {
	if !validCategories[c.Category] {
		return fmt.Errorf("domain: unknown contact category %q", c.Category)
	}
	if !validPriorities[c.Priority] {
		return fmt.Errorf("domain: unknown contact priority %q", c.Priority)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("domain: confidence score %v out of range [0,1]", c.Confidence)
	}
	return nil
}
