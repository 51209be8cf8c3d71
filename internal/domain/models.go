package domain

import "time"

// FeedItem is the canonical entry produced by normalization.
// Optional fields stay nil when the source omits them.
type FeedItem struct {
	ID              string     `json:"id"`
	GUID            string     `json:"guid"`
	Title           *string    `json:"title,omitempty"`
	Description     *string    `json:"description,omitempty"`
	Link            *string    `json:"link,omitempty"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
	ThumbnailURL    *string    `json:"thumbnail_url,omitempty"`
	IsFavorite      bool       `json:"is_favorite"`
}

// TitleOr returns the title or fallback when it is absent.
func (f FeedItem) TitleOr(fallback string) string {
	if f.Title == nil {
		return fallback
	}
	return *f.Title
}

// DescriptionOr returns the description or fallback when it is absent.
func (f FeedItem) DescriptionOr(fallback string) string {
	if f.Description == nil {
		return fallback
	}
	return *f.Description
}

// LinkOr returns the link or fallback when it is absent.
func (f FeedItem) LinkOr(fallback string) string {
	if f.Link == nil {
		return fallback
	}
	return *f.Link
}
