package feed

import (
	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"
)

// Format identifies the dialect of a parsed feed document.
type Format int

const (
	FormatUnknown Format = iota
	FormatRSS
	FormatAtom
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatRSS:
		return "rss"
	case FormatAtom:
		return "atom"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Document is the closed set of parser results: RSSDocument, AtomDocument or
// UnsupportedDocument. Consumers switch over the concrete types.
type Document interface {
	Format() Format
	document()
}

// RSSDocument wraps a parsed RSS 0.9x/1.0/2.0 channel.
type RSSDocument struct {
	Feed *rss.Feed
}

func (RSSDocument) Format() Format { return FormatRSS }
func (RSSDocument) document()      {}

// AtomDocument wraps a parsed Atom feed.
type AtomDocument struct {
	Feed *atom.Feed
}

func (AtomDocument) Format() Format { return FormatAtom }
func (AtomDocument) document()      {}

// UnsupportedDocument is a well-formed document in a dialect this reader does not enumerate.
type UnsupportedDocument struct {
	Detected Format
}

func (d UnsupportedDocument) Format() Format { return d.Detected }
func (UnsupportedDocument) document()        {}
