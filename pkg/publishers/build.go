package publishers

import (
	"context"
	"fmt"
	"io"
)

type builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

var builders = map[string]builder{
	TypeWebhook: newWebhookPublisher,
	TypeSQS:     newSQSPublisher,
	TypeSNS:     newSNSPublisher,
	TypePubSub:  newPubSubPublisher,
}

// Build creates a publisher for every enabled entry. Entries with an events list
// only receive those kinds. If any entry fails, the publishers built so far are
// closed.
func Build(ctx context.Context, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log = ensureLogger(log)

	var pubs []Publisher
	fail := func(err error) ([]Publisher, error) {
		_ = NewFanout(pubs).Close()
		return nil, err
	}

	for _, cfg := range cfgs {
		cfg = cfg.normalized()
		if !cfg.EnabledValue() {
			log.DebugObj("publisher disabled", "publisher_meta", map[string]any{"publisher_id": cfg.ID})
			continue
		}
		if err := cfg.Validate(); err != nil {
			return fail(err)
		}
		build, ok := builders[cfg.Type]
		if !ok {
			return fail(fmt.Errorf("no builder for publisher type %q", cfg.Type))
		}
		pub, err := build(ctx, cfg, log)
		if err != nil {
			return fail(fmt.Errorf("build publisher %q: %w", cfg.ID, err))
		}
		if len(cfg.Events) > 0 {
			pub = &filtered{Publisher: pub, cfg: cfg}
		}
		log.InfoObj("publisher ready", "publisher_meta", map[string]any{
			"publisher_id": cfg.ID,
			"type":         cfg.Type,
			"events":       cfg.Events,
		})
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

// filtered narrows a publisher to the kinds its entry lists.
type filtered struct {
	Publisher
	cfg PublisherConfig
}

func (f *filtered) Accepts(kind string) bool { return f.cfg.Accepts(kind) }

func (f *filtered) Close() error {
	if c, ok := f.Publisher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
