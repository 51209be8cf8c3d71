// Package publishers forwards favorite changes to downstream sinks declared in
// a YAML or JSON file.
package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Publisher types accepted in the publishers file.
const (
	TypeWebhook = "webhook"
	TypeSQS     = "sqs"
	TypeSNS     = "sns"
	TypePubSub  = "pubsub"
)

const (
	webhookDefaultMethod         = "POST"
	webhookDefaultTimeoutSeconds = 5
	webhookMaxRetries            = 5
)

// PublisherConfig is one sink declared in the publishers file. Exactly one of
// the type sections is read, the one named by Type.
type PublisherConfig struct {
	ID      string `json:"id" yaml:"id"`
	Type    string `json:"type" yaml:"type"`
	Enabled *bool  `json:"enabled" yaml:"enabled"`
	// Events limits the sink to these event kinds. Empty means every kind.
	Events []string `json:"events" yaml:"events"`

	Webhook *WebhookConfig `json:"webhook" yaml:"webhook"`
	SQS     *SQSConfig     `json:"sqs" yaml:"sqs"`
	SNS     *SNSConfig     `json:"sns" yaml:"sns"`
	PubSub  *PubSubConfig  `json:"pubsub" yaml:"pubsub"`
}

// WebhookConfig posts each event as JSON to URL.
type WebhookConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
	Retries        int               `json:"retries" yaml:"retries"`
}

// AWSConfig is shared by the SQS and SNS sinks. Keys are optional and must be
// set together; without them the default credential chain applies. Endpoint
// points the client at a local stack.
type AWSConfig struct {
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
}

// SQSConfig sends events to a queue. FIFO queues group messages by item so
// an add and a remove of the same item stay in order.
type SQSConfig struct {
	QueueURL string    `json:"queue_url" yaml:"queue_url"`
	FIFO     bool      `json:"fifo" yaml:"fifo"`
	AWS      AWSConfig `json:"aws" yaml:"aws"`
}

// SNSConfig publishes events to a topic, grouped by item on FIFO topics.
type SNSConfig struct {
	TopicARN string    `json:"topic_arn" yaml:"topic_arn"`
	FIFO     bool      `json:"fifo" yaml:"fifo"`
	AWS      AWSConfig `json:"aws" yaml:"aws"`
}

// PubSubConfig publishes events to a topic. Ordered sets the item as the
// ordering key.
type PubSubConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
	Ordered         bool   `json:"ordered" yaml:"ordered"`
}

type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// LoadConfig reads every publisher declared in path, YAML or JSON by extension.
// ${VAR} references are expanded from the environment before decoding.
func LoadConfig(path string) ([]PublisherConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}
	return parseConfig([]byte(os.ExpandEnv(string(raw))), filepath.Ext(path))
}

func parseConfig(data []byte, ext string) ([]PublisherConfig, error) {
	var file configFile
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("decode yaml publishers: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("decode json publishers: %w", err)
		}
	default:
		return nil, fmt.Errorf("publishers file extension %q not supported (want .yaml, .yml or .json)", ext)
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	seen := make(map[string]struct{}, len(file.Publishers))
	out := make([]PublisherConfig, 0, len(file.Publishers))
	for i, cfg := range file.Publishers {
		cfg = cfg.normalized()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := seen[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}
		out = append(out, cfg)
	}
	return out, nil
}

// EnabledValue reports the enabled flag, which defaults to true.
func (cfg PublisherConfig) EnabledValue() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}

// Accepts reports whether events of kind go to this sink.
func (cfg PublisherConfig) Accepts(kind string) bool {
	return len(cfg.Events) == 0 || slices.Contains(cfg.Events, kind)
}

func (cfg PublisherConfig) normalized() PublisherConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))

	var events []string
	for _, e := range cfg.Events {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !slices.Contains(events, e) {
			events = append(events, e)
		}
	}
	cfg.Events = events

	if w := cfg.Webhook; w != nil {
		c := *w
		c.URL = strings.TrimSpace(c.URL)
		c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
		if c.Method == "" {
			c.Method = webhookDefaultMethod
		}
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = webhookDefaultTimeoutSeconds
		}
		c.Headers = cleanHeaders(c.Headers)
		cfg.Webhook = &c
	}
	if q := cfg.SQS; q != nil {
		c := *q
		c.QueueURL = strings.TrimSpace(c.QueueURL)
		c.AWS = c.AWS.trimmed()
		cfg.SQS = &c
	}
	if t := cfg.SNS; t != nil {
		c := *t
		c.TopicARN = strings.TrimSpace(c.TopicARN)
		c.AWS = c.AWS.trimmed()
		cfg.SNS = &c
	}
	if p := cfg.PubSub; p != nil {
		c := *p
		c.ProjectID = strings.TrimSpace(c.ProjectID)
		c.Topic = strings.TrimSpace(c.Topic)
		c.CredentialsFile = strings.TrimSpace(c.CredentialsFile)
		cfg.PubSub = &c
	}
	return cfg
}

func (a AWSConfig) trimmed() AWSConfig {
	a.Region = strings.TrimSpace(a.Region)
	a.AccessKeyID = strings.TrimSpace(a.AccessKeyID)
	a.SecretAccessKey = strings.TrimSpace(a.SecretAccessKey)
	a.Endpoint = strings.TrimSpace(a.Endpoint)
	return a
}

func cleanHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Validate checks the entry after normalization.
func (cfg PublisherConfig) Validate() error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	for _, e := range cfg.Events {
		if !knownKind(e) {
			return fmt.Errorf("publisher %q: unknown event kind %q", cfg.ID, e)
		}
	}

	switch cfg.Type {
	case TypeWebhook:
		return cfg.validateWebhook()
	case TypeSQS:
		if cfg.SQS == nil || cfg.SQS.QueueURL == "" {
			return fmt.Errorf("publisher %q: sqs.queue_url is required", cfg.ID)
		}
		if cfg.SQS.FIFO != strings.HasSuffix(cfg.SQS.QueueURL, ".fifo") {
			return fmt.Errorf("publisher %q: sqs.fifo must match a queue url ending in .fifo", cfg.ID)
		}
		return cfg.SQS.AWS.validate(cfg.ID)
	case TypeSNS:
		if cfg.SNS == nil || cfg.SNS.TopicARN == "" {
			return fmt.Errorf("publisher %q: sns.topic_arn is required", cfg.ID)
		}
		if cfg.SNS.FIFO != strings.HasSuffix(cfg.SNS.TopicARN, ".fifo") {
			return fmt.Errorf("publisher %q: sns.fifo must match a topic arn ending in .fifo", cfg.ID)
		}
		return cfg.SNS.AWS.validate(cfg.ID)
	case TypePubSub:
		if cfg.PubSub == nil || cfg.PubSub.ProjectID == "" || cfg.PubSub.Topic == "" {
			return fmt.Errorf("publisher %q: pubsub.project_id and pubsub.topic are required", cfg.ID)
		}
		return nil
	case "":
		return fmt.Errorf("publisher %q: type is required", cfg.ID)
	default:
		return fmt.Errorf("publisher %q: type %q not supported", cfg.ID, cfg.Type)
	}
}

func (cfg PublisherConfig) validateWebhook() error {
	w := cfg.Webhook
	if w == nil || w.URL == "" {
		return fmt.Errorf("publisher %q: webhook.url is required", cfg.ID)
	}
	u, err := url.Parse(w.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("publisher %q: webhook.url %q is not an http(s) url", cfg.ID, w.URL)
	}
	if w.Retries < 0 || w.Retries > webhookMaxRetries {
		return fmt.Errorf("publisher %q: webhook.retries must be between 0 and %d", cfg.ID, webhookMaxRetries)
	}
	return nil
}

func (a AWSConfig) validate(id string) error {
	if a.Region == "" {
		return fmt.Errorf("publisher %q: aws.region is required", id)
	}
	if (a.AccessKeyID == "") != (a.SecretAccessKey == "") {
		return fmt.Errorf("publisher %q: aws keys must be set together", id)
	}
	return nil
}
