// internal/workers/quote/send-estimate-email/service.go
package sendestimateemail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"brightsigns-workers/internal/common/config"
	stderrors "brightsigns-workers/internal/common/errors"
	"brightsigns-workers/internal/common/logger"
	"brightsigns-workers/internal/common/metrics"
	"brightsigns-workers/internal/models"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailSender is the SES surface this worker uses.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// EstimateReader loads the estimate and its line items.
type EstimateReader interface {
	LoadByUUID(ctx context.Context, uuid string) (*models.QuoteEstimate, error)
	LineItems(ctx context.Context, estimateID int64) ([]models.QuoteEstimateLineItem, error)
}

// RequestReader loads the originating customer request for an estimate.
type RequestReader interface {
	RequestForEstimate(ctx context.Context, estimateID int64) (*models.QuoteRequest, error)
}

type Service struct {
	sender    EmailSender
	estimates EstimateReader
	requests  RequestReader
	email     config.NotificationConfig
	logger    logger.Logger
}

func NewService(sender EmailSender, estimates EstimateReader, requests RequestReader, email config.NotificationConfig, log logger.Logger) *Service {
	return &Service{
		sender:    sender,
		estimates: estimates,
		requests:  requests,
		email:     email,
		logger:    log,
	}
}

type emailLineItem struct {
	Name        string
	Description string
	Quantity    int
	UnitPrice   string
	TotalPrice  string
}

type emailData struct {
	CustomerName    string
	CustomerEmail   string
	RequestDate     string
	OriginalRequest string
	LineItems       []emailLineItem
	Notes           string
	Status          string
	CompletedAt     string
	EstimateUUID    string
}

var estimateEmailTemplate = template.Must(template.New("quote-estimate").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Quote Estimate</title>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; padding: 20px; background-color: #f4f4f4; }
.container { max-width: 800px; margin: 0 auto; background: white; padding: 30px; border-radius: 8px; }
.header { background-color: #2c3e50; color: white; padding: 20px; margin: -30px -30px 30px -30px; }
.customer-info { background-color: #ecf0f1; padding: 15px; border-radius: 5px; margin-bottom: 25px; }
.original-request { background-color: #f8f9fa; padding: 15px; border-left: 4px solid #3498db; margin: 20px 0; }
table { width: 100%; border-collapse: collapse; margin-top: 15px; }
th, td { padding: 12px; text-align: left; border-bottom: 1px solid #ddd; }
th { background-color: #34495e; color: white; }
.notes { background-color: #fff3cd; border: 1px solid #ffeaa7; padding: 15px; border-radius: 5px; margin: 20px 0; }
.quote-details { margin-top: 25px; padding-top: 20px; border-top: 2px solid #ecf0f1; color: #7f8c8d; }
</style>
</head>
<body>
<div class="container">
<div class="header"><h1>New Quote Estimate</h1></div>
<div class="customer-info">
<h3>Customer Information</h3>
<p><strong>Name:</strong> {{.CustomerName}}</p>
<p><strong>Email:</strong> {{.CustomerEmail}}</p>
<p><strong>Request Date:</strong> {{.RequestDate}}</p>
</div>
{{if .OriginalRequest}}<div class="original-request">
<h4>Original Request</h4>
<p>{{.OriginalRequest}}</p>
</div>{{end}}
<h3>Quote Details</h3>
{{if .LineItems}}<table>
<thead><tr><th>Item</th><th>Description</th><th>Quantity</th><th>Unit Price</th><th>Total</th></tr></thead>
<tbody>
{{range .LineItems}}<tr><td><strong>{{.Name}}</strong></td><td>{{.Description}}</td><td>{{.Quantity}}</td><td>${{.UnitPrice}}</td><td>${{.TotalPrice}}</td></tr>
{{end}}</tbody>
</table>{{else}}<p>No line items found for this quote estimate.</p>{{end}}
{{if .Notes}}<div class="notes">
<h4>Additional Notes</h4>
<p>{{.Notes}}</p>
</div>{{end}}
<div class="quote-details">
<p><strong>Quote Status:</strong> {{.Status}}</p>
{{if .CompletedAt}}<p><strong>Completed:</strong> {{.CompletedAt}}</p>{{end}}
<p><strong>Quote UUID:</strong> {{.EstimateUUID}}</p>
</div>
</div>
</body>
</html>
`))

// SendEstimateEmail renders the estimate summary and mails it to the support
// address. Misconfiguration and missing records complete without sending so
// the surrounding process is not failed over a notification.
func (s *Service) SendEstimateEmail(ctx context.Context, estimateUUID string) (*Output, error) {
	if !s.email.Email.Enabled || s.email.Email.SupportEmail == "" {
		s.logger.Error("estimate email not configured", map[string]interface{}{
			"uuid": estimateUUID,
		})
		return &Output{Sent: false}, nil
	}

	estimate, err := s.estimates.LoadByUUID(ctx, estimateUUID)
	if err != nil {
		if stderrors.IsErrorCode(err, stderrors.ErrCodeEstimateNotFound) {
			s.logger.Error("estimate not found for email", map[string]interface{}{
				"uuid": estimateUUID,
			})
			return &Output{Sent: false}, nil
		}
		return nil, err
	}

	request, err := s.requests.RequestForEstimate(ctx, estimate.ID)
	if err != nil {
		if stderrors.IsErrorCode(err, stderrors.ErrCodeRequestNotFound) {
			s.logger.Error("quote request not found for email", map[string]interface{}{
				"uuid": estimateUUID,
			})
			return &Output{Sent: false}, nil
		}
		return nil, err
	}

	items, err := s.estimates.LineItems(ctx, estimate.ID)
	if err != nil {
		return nil, err
	}

	body, err := s.renderBody(request, estimate, items)
	if err != nil {
		return nil, err
	}

	input := s.buildSendInput(estimateUUID, body)

	out, err := s.sender.SendEmail(ctx, input)
	if err != nil {
		return nil, stderrors.NewNotificationSendFailedError(err)
	}

	metrics.EstimateEmailsSent.Inc()

	messageID := ""
	if out != nil && out.MessageId != nil {
		messageID = *out.MessageId
	}

	s.logger.Info("estimate email sent", map[string]interface{}{
		"uuid":      estimateUUID,
		"to":        s.email.Email.SupportEmail,
		"messageId": messageID,
	})

	return &Output{
		Sent:      true,
		MessageID: messageID,
		SentAt:    time.Now().UTC(),
	}, nil
}

func (s *Service) renderBody(request *models.QuoteRequest, estimate *models.QuoteEstimate, items []models.QuoteEstimateLineItem) (string, error) {
	data := emailData{
		CustomerName:    request.Name,
		CustomerEmail:   request.Email,
		RequestDate:     request.CreatedAt.Format("January 2, 2006 at 3:04 PM"),
		OriginalRequest: request.OriginalRequest,
		Notes:           estimate.Notes,
		Status:          string(estimate.Status),
		EstimateUUID:    estimate.UUID,
	}
	if estimate.CompletedAt != nil {
		data.CompletedAt = estimate.CompletedAt.Format("January 2, 2006 at 3:04 PM")
	}

	for _, item := range items {
		description := item.Description
		if description == "" {
			description = "No description provided"
		}
		data.LineItems = append(data.LineItems, emailLineItem{
			Name:        item.Name,
			Description: description,
			Quantity:    item.Quantity,
			UnitPrice:   fmt.Sprintf("%.2f", item.UnitPrice),
			TotalPrice:  fmt.Sprintf("%.2f", item.TotalPrice),
		})
	}

	var buf bytes.Buffer
	if err := estimateEmailTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render estimate email: %w", err)
	}
	return buf.String(), nil
}

func (s *Service) buildSendInput(estimateUUID, body string) *ses.SendEmailInput {
	destination := &types.Destination{
		ToAddresses: []string{s.email.Email.SupportEmail},
	}
	if s.email.Email.CCEmail != "" {
		destination.CcAddresses = []string{s.email.Email.CCEmail}
	}

	source := s.email.Email.FromEmail
	if s.email.Email.FromName != "" {
		source = fmt.Sprintf("%s <%s>", s.email.Email.FromName, s.email.Email.FromEmail)
	}

	return &ses.SendEmailInput{
		Destination: destination,
		Source:      awssdk.String(source),
		Message: &types.Message{
			Subject: &types.Content{
				Data:    awssdk.String("Quote Estimate - " + estimateUUID),
				Charset: awssdk.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    awssdk.String(body),
					Charset: awssdk.String("UTF-8"),
				},
			},
		},
	}
}
