// internal/workers/quote/process-estimate/models.go
package processestimate

type Input struct {
	EstimateUUID string `json:"estimateUuid"`
}

type Output struct {
	EstimateUUID string  `json:"estimateUuid"`
	Status       string  `json:"status"`
	TotalAmount  float64 `json:"totalAmount"`
}
