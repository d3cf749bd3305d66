package pub

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSPublisher is the subset of *sns.Client the alerter calls.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSAlerter implements ports.Alerter by publishing to a single topic.
type SNSAlerter struct {
	cli      SNSPublisher
	topicArn string
}

func NewSNSAlerter(c SNSPublisher, topicArn string) *SNSAlerter {
	return &SNSAlerter{cli: c, topicArn: topicArn}
}

func (s *SNSAlerter) Alert(ctx context.Context, subject string, payload []byte) error {
	if len(subject) > 100 {
		subject = subject[:100]
	}
	_, err := s.cli.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"content-type": {DataType: aws.String("String"), StringValue: aws.String("application/json")},
		},
	})
	return err
}
