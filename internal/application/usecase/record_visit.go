package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/quadpane/quadpane/internal/domain/entity"
	"github.com/quadpane/quadpane/internal/domain/repository"
	"github.com/quadpane/quadpane/internal/logging"
)

// RecordVisitUseCase records pane navigations into visit history.
// The composed layout itself is never persisted; only where panes went.
type RecordVisitUseCase struct {
	history repository.HistoryRepository
}

// NewRecordVisitUseCase creates a new visit recording use case.
func NewRecordVisitUseCase(history repository.HistoryRepository) *RecordVisitUseCase {
	return &RecordVisitUseCase{history: history}
}

// RecordVisitInput describes one navigation report.
type RecordVisitInput struct {
	URL   string
	Title string
}

// Execute upserts the visit: a known URL gets its count bumped, a new one
// gets an entry. Non-web schemes (about:, data:) are skipped.
func (uc *RecordVisitUseCase) Execute(ctx context.Context, input RecordVisitInput) error {
	if uc.history == nil {
		return nil
	}
	if !recordableURL(input.URL) {
		return nil
	}

	entry, err := uc.history.FindByURL(ctx, input.URL)
	if err != nil {
		return fmt.Errorf("look up history entry: %w", err)
	}
	if entry == nil {
		entry = entity.NewHistoryEntry(input.URL, input.Title)
	} else {
		entry.IncrementVisit()
		if input.Title != "" {
			entry.Title = input.Title
		}
	}
	if err := uc.history.Save(ctx, entry); err != nil {
		return fmt.Errorf("save history entry: %w", err)
	}

	logging.FromContext(ctx).Debug().
		Str("url", input.URL).
		Int64("visits", entry.VisitCount).
		Msg("visit recorded")
	return nil
}

// UpdateTitle refreshes the stored title for a URL after a title report.
func (uc *RecordVisitUseCase) UpdateTitle(ctx context.Context, url, title string) error {
	if uc.history == nil || title == "" || !recordableURL(url) {
		return nil
	}
	if err := uc.history.UpdateTitle(ctx, url, title); err != nil {
		return fmt.Errorf("update history title: %w", err)
	}
	return nil
}

// recordableURL filters out schemes that carry no navigation signal.
func recordableURL(url string) bool {
	if url == "" {
		return false
	}
	for _, prefix := range []string{"about:", "data:", "blob:", "javascript:"} {
		if strings.HasPrefix(url, prefix) {
			return false
		}
	}
	return true
}
