package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/Adda-Baaj/khobor-reader/internal/domain"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

func TestSQSPublisherSendsAttributes(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{id: "q", queueURL: "https://example.com/queue", client: client, log: noopLogger{}}

	evt := NewEvent(EventFavoriteAdded, domain.FeedItem{GUID: "urn:x:1", Title: strPtr("Hello"), Link: strPtr("https://x/1")}, time.Time{})
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	in := client.input
	if got := aws.ToString(in.QueueUrl); got != "https://example.com/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	for key, want := range map[string]string{
		AttrEventKind: EventFavoriteAdded,
		AttrItemGUID:  "urn:x:1",
		AttrItemLink:  "https://x/1",
	} {
		attr, ok := in.MessageAttributes[key]
		if !ok || aws.ToString(attr.StringValue) != want || aws.ToString(attr.DataType) != "String" {
			t.Fatalf("attribute %s = %#v, want %q", key, attr, want)
		}
	}
	if in.MessageGroupId != nil || in.MessageDeduplicationId != nil {
		t.Fatalf("standard queue should not get FIFO fields")
	}
	body := aws.ToString(in.MessageBody)
	if !strings.Contains(body, `"kind":"favorite_added"`) || !strings.Contains(body, `"title":"Hello"`) {
		t.Fatalf("MessageBody missing fields: %s", body)
	}
}

func TestSQSPublisherGroupsFIFOByItem(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{id: "q", queueURL: "https://example.com/favs.fifo", fifo: true, client: client, log: noopLogger{}}

	evt := NewEvent(EventFavoriteRemoved, domain.FeedItem{GUID: "urn:x:1"}, time.Time{})
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := aws.ToString(client.input.MessageGroupId); got != "urn:x:1" {
		t.Fatalf("MessageGroupId = %q", got)
	}
	if got := aws.ToString(client.input.MessageDeduplicationId); got != evt.ID {
		t.Fatalf("MessageDeduplicationId = %q, want event id", got)
	}
}

func TestSQSPublisherSendError(t *testing.T) {
	client := &fakeSQSClient{err: errors.New("boom")}
	pub := &sqsPublisher{id: "q", queueURL: "https://example.com/queue", client: client, log: noopLogger{}}

	if err := pub.Publish(context.Background(), NewEvent(EventFavoriteAdded, domain.FeedItem{}, time.Time{})); err == nil {
		t.Fatalf("expected error from Publish")
	}
}
