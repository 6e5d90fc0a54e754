package plex

import (
	"context"
	"strings"
)

// Item is a library entry returned by lookups.
type Item struct {
	RatingKey string
	Title     string
	Locations []string
}

// LocatedAt reports whether any of the item's known file locations contain
// the given path as a substring.
func (i Item) LocatedAt(path string) bool {
	for _, location := range i.Locations {
		if strings.Contains(location, path) {
			return true
		}
	}
	return false
}

// Library is the remote media-library surface the sync worker drives.
type Library interface {
	// ScanPath triggers a targeted rescan of path within the given section.
	ScanPath(ctx context.Context, sectionID, path string) error
	// FindByPath queries the section for items rooted at the exact path.
	FindByPath(ctx context.Context, sectionID, path string) ([]Item, error)
	// Search returns section items matching a title.
	Search(ctx context.Context, sectionID, title string) ([]Item, error)
	// Analyze triggers a metadata re-analysis of the item.
	Analyze(ctx context.Context, item Item) error
}
