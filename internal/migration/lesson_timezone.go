package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const defaultBatchSize = 500

// LessonTimezoneOptions selects the lessons to rewrite.
type LessonTimezoneOptions struct {
	SchoolID  string
	Location  *time.Location
	BatchSize int
	DryRun    bool
}

// LessonTimezoneSummary reports what a run did.
type LessonTimezoneSummary struct {
	Scanned int
	Updated int
	DryRun  bool
}

// LessonShift is one planned rewrite of scheduled_at.
type LessonShift struct {
	ID   string
	From time.Time
	To   time.Time
}

type lessonRow struct {
	ID          string    `db:"id"`
	ScheduledAt time.Time `db:"scheduled_at"`
}

// LessonTimezoneMigrator rewrites lessons whose scheduled_at holds the school's
// wall-clock time labelled as UTC into real UTC instants.
type LessonTimezoneMigrator struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewLessonTimezoneMigrator constructs a migrator.
func NewLessonTimezoneMigrator(db *sqlx.DB, logger *zap.Logger) *LessonTimezoneMigrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonTimezoneMigrator{db: db, logger: logger}
}

// Reinterpret reads the wall clock of stored as a time in loc and returns the UTC instant.
func Reinterpret(stored time.Time, loc *time.Location) time.Time {
	stored = stored.UTC()
	return time.Date(stored.Year(), stored.Month(), stored.Day(), stored.Hour(), stored.Minute(), stored.Second(), stored.Nanosecond(), loc).UTC()
}

// Run walks unmigrated lessons of the school in id order, one batch per
// transaction. Rows already flagged tz_migrated are never touched again. The
// cursor compares ids as text so uuid and text keys both work.
func (m *LessonTimezoneMigrator) Run(ctx context.Context, opts LessonTimezoneOptions) (LessonTimezoneSummary, error) {
	summary := LessonTimezoneSummary{DryRun: opts.DryRun}
	if opts.SchoolID == "" {
		return summary, fmt.Errorf("school id is required")
	}
	if opts.Location == nil {
		return summary, fmt.Errorf("timezone is required")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	after := ""
	for {
		rows, err := m.nextBatch(ctx, opts.SchoolID, after, opts.BatchSize)
		if err != nil {
			return summary, err
		}
		if len(rows) == 0 {
			break
		}
		after = rows[len(rows)-1].ID
		summary.Scanned += len(rows)

		shifts := plan(rows, opts.Location)
		if opts.DryRun {
			for _, s := range shifts {
				m.logger.Info("would shift lesson", zap.String("lesson_id", s.ID), zap.Time("from", s.From), zap.Time("to", s.To))
			}
			summary.Updated += len(shifts)
		} else {
			updated, err := m.apply(ctx, shifts)
			if err != nil {
				return summary, err
			}
			summary.Updated += updated
		}

		if len(rows) < opts.BatchSize {
			break
		}
	}

	m.logger.Info("lesson timezone migration finished",
		zap.String("school_id", opts.SchoolID),
		zap.String("timezone", opts.Location.String()),
		zap.Int("scanned", summary.Scanned),
		zap.Int("updated", summary.Updated),
		zap.Bool("dry_run", summary.DryRun),
	)
	return summary, nil
}

func (m *LessonTimezoneMigrator) nextBatch(ctx context.Context, schoolID, after string, limit int) ([]lessonRow, error) {
	const query = `SELECT id, scheduled_at FROM lessons
        WHERE school_id = $1 AND COALESCE(tz_migrated, false) = false AND scheduled_at IS NOT NULL
          AND ($2 = '' OR id::text > $2)
        ORDER BY id::text
        LIMIT $3`
	var rows []lessonRow
	if err := m.db.SelectContext(ctx, &rows, query, schoolID, after, limit); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return rows, nil
}

func (m *LessonTimezoneMigrator) apply(ctx context.Context, shifts []LessonShift) (int, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const update = `UPDATE lessons SET scheduled_at = $1, tz_migrated = true
        WHERE id = $2 AND COALESCE(tz_migrated, false) = false`
	updated := 0
	for _, s := range shifts {
		res, err := tx.ExecContext(ctx, update, s.To, s.ID)
		if err != nil {
			return 0, fmt.Errorf("update lesson %s: %w", s.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			updated += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

func plan(rows []lessonRow, loc *time.Location) []LessonShift {
	shifts := make([]LessonShift, 0, len(rows))
	for _, r := range rows {
		shifts = append(shifts, LessonShift{ID: r.ID, From: r.ScheduledAt.UTC(), To: Reinterpret(r.ScheduledAt, loc)})
	}
	return shifts
}
