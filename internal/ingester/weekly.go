package ingester

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
)

// WeekID formats a time as an ISO-8601 week identifier, e.g. "2026-W08".
func WeekID(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// WeekWindow resolves a week id to its [Monday 00:00 UTC, next Monday) span.
func WeekWindow(weekID string) (start, end time.Time, err error) {
	var year, week int
	if _, err := fmt.Sscanf(weekID, "%d-W%d", &year, &week); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid week id %q: %w", weekID, err)
	}
	if week < 1 || week > 53 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid week id %q: week out of range", weekID)
	}
	// January 4 is always in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	monday := jan4.AddDate(0, 0, -(int(jan4.Weekday())+6)%7)
	start = monday.AddDate(0, 0, (week-1)*7)
	if y, w := start.ISOWeek(); y != year || w != week {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid week id %q: year has no such week", weekID)
	}
	return start, start.AddDate(0, 0, 7), nil
}

// WeeksInWindow lists the ISO week ids overlapping [start, end), oldest
// first.
func WeeksInWindow(start, end time.Time) []string {
	var ids []string
	seen := map[string]bool{}
	for t := start.UTC(); t.Before(end); t = t.AddDate(0, 0, 7) {
		id := WeekID(t)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if id := WeekID(end.Add(-time.Second)); !seen[id] {
		ids = append(ids, id)
	}
	return ids
}

// SyncWeek runs the comprehensive scope for a single ISO week, tracking the
// run through the week's progress record. A failure is recorded on the week
// and the week can be retried; a completed week is re-runnable but callers
// normally skip it.
func (s *Service) SyncWeek(ctx context.Context, weekID string) error {
	start, end, err := WeekWindow(weekID)
	if err != nil {
		return err
	}
	if err := s.store.EnsureWeek(ctx, weekID, start, end); err != nil {
		return err
	}
	if err := s.store.MarkWeekInProgress(ctx, weekID, time.Now().UTC()); err != nil {
		return err
	}
	log.Printf("[ingester] week %s sync %s -> %s", weekID, start.Format("2006-01-02"), end.Format("2006-01-02"))

	if _, err := s.syncComprehensiveWindow(ctx, start, end, true); err != nil {
		if mErr := s.store.MarkWeekError(ctx, weekID, err.Error()); mErr != nil {
			log.Printf("[ingester] week %s: failed to record error: %v", weekID, mErr)
		}
		return fmt.Errorf("week %s: %w", weekID, err)
	}

	allTx, err := s.store.CountInWindow(ctx, "all_transactions", start, end)
	if err != nil {
		return err
	}
	flows, err := s.store.CountInWindow(ctx, "xtz_flows", start, end)
	if err != nil {
		return err
	}
	if err := s.store.MarkWeekComplete(ctx, weekID, allTx, flows, time.Now().UTC()); err != nil {
		return err
	}
	log.Printf("[ingester] week %s complete: %d transactions, %d flows", weekID, allTx, flows)
	return nil
}

// SyncAllWeeks walks every ISO week in the window oldest first, skipping
// weeks already marked complete. The first failing week stops the run so
// weeks always finish in order.
func (s *Service) SyncAllWeeks(ctx context.Context, start, end time.Time) error {
	for _, weekID := range WeeksInWindow(start, end) {
		wk, err := s.store.Week(ctx, weekID)
		if err != nil {
			return err
		}
		if wk != nil && wk.Status == models.WeekComplete {
			log.Printf("[ingester] week %s already complete, skipping", weekID)
			continue
		}
		if err := s.SyncWeek(ctx, weekID); err != nil {
			return err
		}
	}
	return nil
}
