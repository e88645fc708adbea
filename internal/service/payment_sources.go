package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
)

type studentDirectory interface {
	ListActiveBySchool(ctx context.Context, schoolID string) ([]models.Student, error)
}

type subscriptionSource interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Subscription, error)
}

type studentPaymentSource interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error)
}

type subscriptionTransactionSource interface {
	ListBySubscription(ctx context.Context, subscriptionID string) ([]models.Transaction, error)
}

type lessonSource interface {
	ListBySubscription(ctx context.Context, subscriptionID string) ([]models.Lesson, error)
}

const defaultConcurrency = 4

// subscriptionResolver reads subscriptions from the relational source first and
// falls back to the legacy document collection when it has nothing.
type subscriptionResolver struct {
	primary  subscriptionSource
	fallback subscriptionSource
	logger   *zap.Logger
}

func (r subscriptionResolver) list(ctx context.Context, studentID string) ([]models.Subscription, error) {
	var primaryErr error
	if r.primary != nil {
		subs, err := r.primary.ListByStudent(ctx, studentID)
		if err == nil && len(subs) > 0 {
			return subs, nil
		}
		if err != nil {
			r.logger.Warn("relational subscription lookup failed, trying document store",
				zap.String("student_id", studentID), zap.Error(err))
		}
		primaryErr = err
	}
	if r.fallback != nil {
		subs, err := r.fallback.ListByStudent(ctx, studentID)
		if err != nil {
			if primaryErr != nil {
				return nil, primaryErr
			}
			return nil, err
		}
		if len(subs) > 0 {
			return subs, nil
		}
	}
	return nil, primaryErr
}

// studentOutcome collects what one student contributed to a report.
type studentOutcome[T any] struct {
	items   []T
	skipped []models.SkippedRecord
}

// forEachStudent evaluates students with at most limit in flight and returns
// outcomes in the same order as students.
func forEachStudent[T any](ctx context.Context, students []models.Student, limit int, fn func(ctx context.Context, student models.Student) studentOutcome[T]) ([]T, []models.SkippedRecord, error) {
	if limit <= 0 {
		limit = defaultConcurrency
	}
	outcomes := make([]studentOutcome[T], len(students))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, student := range students {
		i, student := i, student
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = fn(gctx, student)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	// Fetches failing because the caller went away are not per-record failures.
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	items := make([]T, 0)
	skipped := make([]models.SkippedRecord, 0)
	for _, outcome := range outcomes {
		items = append(items, outcome.items...)
		skipped = append(skipped, outcome.skipped...)
	}
	return items, skipped, nil
}

// partialReportTTL bounds how long a report with skipped records stays cached.
const partialReportTTL = 30 * time.Second

func reportTTL(ttl time.Duration, skipped []models.SkippedRecord) time.Duration {
	if len(skipped) > 0 && ttl > partialReportTTL {
		return partialReportTTL
	}
	return ttl
}

func skipRecord(logger *zap.Logger, studentID, subscriptionID, stage string, err error) models.SkippedRecord {
	logger.Warn("record skipped",
		zap.String("student_id", studentID),
		zap.String("subscription_id", subscriptionID),
		zap.String("stage", stage),
		zap.Error(err),
	)
	return models.SkippedRecord{
		StudentID:      studentID,
		SubscriptionID: subscriptionID,
		Stage:          stage,
		Reason:         err.Error(),
	}
}

func contactOf(student models.Student) models.StudentContact {
	return models.StudentContact{
		StudentID:  student.ID,
		Name:       student.Name,
		Email:      student.Email,
		Phone:      student.Phone,
		CourseName: student.CourseName,
	}
}

func sumIncomePayments(payments []models.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Type == models.TransactionIncome && p.Amount.Valid {
			total = total.Add(p.Amount.Amount)
		}
	}
	return total
}

func sumIncomeTransactions(txs []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Type == models.TransactionIncome && tx.Amount.Valid {
			total = total.Add(tx.Amount.Amount)
		}
	}
	return total
}

func errNoEndDate(subscriptionID string) error {
	return fmt.Errorf("subscription %s has no scheduled lessons and no end date", subscriptionID)
}
