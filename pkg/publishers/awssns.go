package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// snsClient is the part of the SNS client the publisher uses.
type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type snsPublisher struct {
	id       string
	topicARN string
	fifo     bool
	client   snsClient
	log      Logger
}

func newSNSPublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.SNS == nil {
		return nil, fmt.Errorf("publisher %q missing sns configuration", cfg.ID)
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.SNS.AWS)
	if err != nil {
		return nil, err
	}
	return &snsPublisher{
		id:       cfg.ID,
		topicARN: cfg.SNS.TopicARN,
		fifo:     cfg.SNS.FIFO,
		client:   sns.NewFromConfig(awsCfg),
		log:      ensureLogger(log),
	}, nil
}

func (p *snsPublisher) ID() string   { return p.id }
func (p *snsPublisher) Type() string { return TypeSNS }

// Publish sends evt with its attributes, so subscriptions can filter on
// event_kind without reading the body.
func (p *snsPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn:          aws.String(p.topicARN),
		Message:           aws.String(string(payload)),
		Subject:           aws.String(snsSubject(evt)),
		MessageAttributes: snsAttributes(evt.Attributes()),
	}
	if p.fifo {
		input.MessageGroupId = aws.String(evt.GroupKey())
		input.MessageDeduplicationId = aws.String(evt.ID)
	}

	resp, err := p.client.Publish(ctx, input)
	if err != nil {
		p.log.ErrorObj("sns publisher send failed", "publisher_sns_error", map[string]any{
			"publisher_id": p.id,
			"event_id":     evt.ID,
			"error":        err.Error(),
		})
		return fmt.Errorf("publish to sns: %w", err)
	}
	p.log.DebugObj("sns publisher delivered event", "publisher_sns_delivery", map[string]any{
		"publisher_id": p.id,
		"event_id":     evt.ID,
		"message_id":   aws.ToString(resp.MessageId),
	})
	return nil
}

// snsSubject is the email subject line: printable ASCII, under 100 characters.
func snsSubject(evt Event) string {
	verb := "Favorited"
	if evt.Kind == EventFavoriteRemoved {
		verb = "Unfavorited"
	}
	title := evt.Item.Title
	if title == "" {
		title = "No title"
	}
	subject := []byte(verb + ": ")
	for i := 0; i < len(title) && len(subject) < 99; i++ {
		if c := title[i]; c >= ' ' && c <= '~' {
			subject = append(subject, c)
		}
	}
	return strings.TrimSpace(string(subject))
}

func snsAttributes(attrs map[string]string) map[string]types.MessageAttributeValue {
	out := make(map[string]types.MessageAttributeValue, len(attrs))
	for k, v := range attrs {
		out[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}
	return out
}
