// internal/workers/quote/send-estimate-email/models.go
package sendestimateemail

import "time"

type Input struct {
	EstimateUUID string `json:"estimateUuid"`
}

type Output struct {
	Sent      bool      `json:"sent"`
	MessageID string    `json:"messageId,omitempty"`
	SentAt    time.Time `json:"sentAt,omitempty"`
}
