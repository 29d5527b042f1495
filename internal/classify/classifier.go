// Package classify labels contact messages with a category, priority, and
// confidence score using an OpenAI-compatible chat completions endpoint.
// Classification is a best-effort enrichment: callers treat failures as
// "no label", never as a reason to drop a message.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jscomlabs/contactd/internal/domain"
)

const systemPrompt = `# Role and Purpose
You are an expert contact classification AI designed to categorize and prioritize incoming contact messages based on
their content. You are working for a personal tech blog and consulting website.

# Classification Implications

Contacts classified as "spam" with high-confidence will result in both the message being discarded and the sender's IP
address being blocked.

# Evaluating Confidence

Confidence ratings are on a scale from 0 to 1, where 1 indicates absolute certainty in the classification.
A confidence score of 0.8 or higher is considered high-confidence.

A confidence rating below 0.3 indicates low confidence, suggesting that the classification may not be reliable.

# Priority Levels

Urgent priority levels are reserved for time-sensitive matters that require immediate attention, such as security issues
or critical business inquiries.

High priority levels are assigned to important matters that should be addressed promptly but are not emergencies or
time-sensitive.

# Output Format

Respond with a JSON object containing exactly these keys:
- "contact_category": one of general_inquiry, tech_inquiry, correction_request, project_collaboration,
  consulting_request, speaking_invitation, job_opportunity, personal_connection, feedback, spam, other
- "contact_priority": one of low, normal, high, urgent
- "confidence_score": a number between 0 and 1`

const userPromptFormat = `Classify the following contact message into one of the predefined categories and assign an appropriate priority level.

%s`

// Classifier calls an OpenAI-compatible chat completions API.
type Classifier struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// New creates a Classifier. baseURL is the API root (e.g.
// "https://api.openai.com/v1"); timeout bounds each completion call, zero
// meaning 20 seconds.
func New(baseURL, apiKey, model string, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Classifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *formatSpec   `json:"response_format,omitempty"`
	Temperature    float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type formatSpec struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Classify labels one message body.
func (c *Classifier) Classify(ctx context.Context, message string) (domain.Classification, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(userPromptFormat, message)},
		},
		ResponseFormat: &formatSpec{Type: "json_object"},
		Temperature:    0,
	})
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classify: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classify: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classify: completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Classification{}, fmt.Errorf("classify: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return domain.Classification{}, fmt.Errorf("classify: decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return domain.Classification{}, fmt.Errorf("classify: response contained no choices")
	}

	var result domain.Classification
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &result); err != nil {
		return domain.Classification{}, fmt.Errorf("classify: parse classification: %w", err)
	}
	if err := result.Validate(); err != nil {
		return domain.Classification{}, fmt.Errorf("classify: %w", err)
	}
	return result, nil
}
