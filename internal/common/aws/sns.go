// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// Publisher is the subset of the SNS API used here.
type Publisher interface {
	Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSClient struct {
	client Publisher
}

func NewSNSClient(ctx context.Context, region string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SNSClient{client: sns.NewFromConfig(cfg)}, nil
}

// NewSNSClientWith wraps any Publisher.
func NewSNSClientWith(p Publisher) *SNSClient {
	return &SNSClient{client: p}
}

func (s *SNSClient) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	return s.client.Publish(ctx, input)
}

// ReviewEvent announces a letter that could not be finalized.
type ReviewEvent struct {
	RunID         string   `json:"runId"`
	ApplicationID string   `json:"applicationId,omitempty"`
	Errors        []string `json:"errors"`
	WarningCount  int      `json:"warningCount"`
	LayoutIssues  int      `json:"layoutIssues"`
}

// ReviewNotifier publishes review events to one topic.
type ReviewNotifier struct {
	client   *SNSClient
	topicARN string
}

func NewReviewNotifier(client *SNSClient, topicARN string) *ReviewNotifier {
	return &ReviewNotifier{client: client, topicARN: topicARN}
}

// NotifyReview publishes the event as JSON and returns the message ID.
func (n *ReviewNotifier) NotifyReview(ctx context.Context, ev ReviewEvent) (string, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("encode review event: %w", err)
	}
	out, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(n.topicARN),
		Subject:  awssdk.String("Petition letter needs review"),
		Message:  awssdk.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event": {DataType: awssdk.String("String"), StringValue: awssdk.String("letter.review")},
		},
	})
	if err != nil {
		return "", fmt.Errorf("publish review event: %w", err)
	}
	return awssdk.ToString(out.MessageId), nil
}
