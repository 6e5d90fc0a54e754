package syncer

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/JohnFawkes/plex-servarr-sync/internal/logging"
	"github.com/JohnFawkes/plex-servarr-sync/internal/services/plex"
)

// lookupRounds bounds the reconciliation loop; beyond this the scan is
// assumed to have landed without confirmation.
const lookupRounds = 6

// titleNoise strips release-year and edition annotations so a folder name
// like "Heat (1995) {edition-Director's Cut}" searches as "Heat".
var titleNoise = regexp.MustCompile(`\s*[\(\{\[].*$`)

// CleanTitle reduces a folder name to a searchable title.
func CleanTitle(name string) string {
	return strings.TrimSpace(titleNoise.ReplaceAllString(name, ""))
}

// reconcile polls the library until an item claiming the task's path shows
// up, first by exact path lookup and then by cleaned-title search. It
// returns false when the rounds are exhausted without a match. Timeout-class
// errors propagate so the caller can reconnect; anything else is logged and
// counts as a missed round.
func (w *Worker) reconcile(ctx context.Context, lib plex.Library, task *Task) (bool, error) {
	// Lookups use the folder path without the trailing separator: an item's
	// Location is the bare folder, which would never contain the slashed form.
	target := strings.TrimRight(task.LibraryPath, "/")
	title := CleanTitle(path.Base(target))
	interval := w.cfg.Sync.LookupInterval.Duration()

	for round := 1; round <= lookupRounds; round++ {
		if round > 1 {
			w.sleep(interval)
		}

		item, err := w.lookup(ctx, lib, task.SectionID, target, title)
		if err != nil {
			if plex.IsTimeout(err) {
				return false, err
			}
			w.logger.Warn("metadata lookup failed",
				logging.Int("round", round),
				logging.String(logging.FieldPath, task.LibraryPath),
				logging.Error(err),
			)
			continue
		}
		if item == nil {
			w.logger.Debug("item not yet visible",
				logging.Int("round", round),
				logging.String(logging.FieldPath, task.LibraryPath),
			)
			continue
		}

		w.logger.Info("item confirmed in library",
			logging.String("title", item.Title),
			logging.String("ratingKey", item.RatingKey),
			logging.Int("round", round),
		)
		if err := lib.Analyze(ctx, *item); err != nil {
			// Analysis is advisory; the item is already confirmed.
			w.logger.Warn("metadata analysis failed",
				logging.String("ratingKey", item.RatingKey),
				logging.Error(err),
			)
		}
		return true, nil
	}
	return false, nil
}

// lookup checks for the target's item by exact path, falling back to a title
// search filtered by location.
func (w *Worker) lookup(ctx context.Context, lib plex.Library, sectionID, target, title string) (*plex.Item, error) {
	items, err := lib.FindByPath(ctx, sectionID, target)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		return &items[0], nil
	}
	if title == "" {
		return nil, nil
	}

	items, err = lib.Search(ctx, sectionID, title)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].LocatedAt(target) {
			return &items[i], nil
		}
	}
	return nil, nil
}
