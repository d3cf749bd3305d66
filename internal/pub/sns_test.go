package pub

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/suite"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

type SNSTestSuite struct {
	suite.Suite
}

func TestSNSTestSuite(t *testing.T) {
	suite.Run(t, new(SNSTestSuite))
}

func (s *SNSTestSuite) TestAlert() {
	f := &fakeSNS{}
	a := NewSNSAlerter(f, "arn:aws:sns:us-east-1:000000000000:menusync")
	s.NoError(a.Alert(context.Background(), "catalog sync failed", []byte(`{"kind":"catalog"}`)))
	s.Require().Len(f.inputs, 1)
	in := f.inputs[0]
	s.Equal("arn:aws:sns:us-east-1:000000000000:menusync", aws.ToString(in.TopicArn))
	s.Equal("catalog sync failed", aws.ToString(in.Subject))
	s.Equal(`{"kind":"catalog"}`, aws.ToString(in.Message))
	s.Equal("application/json", aws.ToString(in.MessageAttributes["content-type"].StringValue))
}

func (s *SNSTestSuite) TestSubjectTruncated() {
	f := &fakeSNS{}
	a := NewSNSAlerter(f, "arn")
	s.NoError(a.Alert(context.Background(), strings.Repeat("x", 150), nil))
	s.Len(aws.ToString(f.inputs[0].Subject), 100)
}

func (s *SNSTestSuite) TestPublishError() {
	f := &fakeSNS{err: errors.New("throttled")}
	a := NewSNSAlerter(f, "arn")
	s.Error(a.Alert(context.Background(), "x", nil))
}
