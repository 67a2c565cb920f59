// Package notify publishes operational alerts for estimate failures.
package notify

import (
	"context"
	"fmt"

	"brightsigns-workers/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSPublisher is the subset of the SNS client used by the alerter.
type SNSPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// FailureAlerter publishes a message to an SNS topic whenever an estimate
// ends in the failed state. Publish errors are logged, never returned; the
// alert path must not affect job outcomes.
type FailureAlerter struct {
	client   SNSPublisher
	topicARN string
	logger   logger.Logger
}

func NewFailureAlerter(client SNSPublisher, topicARN string, log logger.Logger) *FailureAlerter {
	return &FailureAlerter{client: client, topicARN: topicARN, logger: log}
}

func (a *FailureAlerter) AlertFailure(ctx context.Context, estimateUUID string, cause error) {
	if a.client == nil || a.topicARN == "" {
		return
	}

	message := fmt.Sprintf("Quote estimate %s failed: %v", estimateUUID, cause)
	_, err := a.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(a.topicARN),
		Subject:  aws.String("Quote estimate failed"),
		Message:  aws.String(message),
	})
	if err != nil {
		a.logger.Error("failed to publish failure alert", map[string]interface{}{
			"uuid":  estimateUUID,
			"error": err.Error(),
		})
		return
	}

	a.logger.Info("failure alert published", map[string]interface{}{"uuid": estimateUUID})
}
