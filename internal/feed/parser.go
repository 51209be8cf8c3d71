package feed

import (
	"bytes"
	"fmt"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"
)

// DocumentParser turns raw feed bytes into a Document.
type DocumentParser interface {
	Parse(data []byte) (Document, error)
}

// GofeedParser detects the dialect with gofeed and hands the bytes to the matching
// dialect parser. A fresh dialect parser is used per call since they keep state.
type GofeedParser struct{}

// NewGofeedParser returns the default DocumentParser.
func NewGofeedParser() *GofeedParser {
	return &GofeedParser{}
}

// Parse detects the feed type and decodes the document.
func (p *GofeedParser) Parse(data []byte) (Document, error) {
	switch gofeed.DetectFeedType(bytes.NewReader(data)) {
	case gofeed.FeedTypeRSS:
		parsed, err := (&rss.Parser{}).Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse rss: %w", err)
		}
		return RSSDocument{Feed: parsed}, nil
	case gofeed.FeedTypeAtom:
		parsed, err := (&atom.Parser{}).Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse atom: %w", err)
		}
		return AtomDocument{Feed: parsed}, nil
	case gofeed.FeedTypeJSON:
		return UnsupportedDocument{Detected: FormatJSON}, nil
	default:
		return nil, gofeed.ErrFeedTypeNotDetected
	}
}
