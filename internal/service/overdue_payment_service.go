package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-payments-api/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// OverduePaymentServiceConfig tunes overdue classification.
type OverduePaymentServiceConfig struct {
	CacheTTL         time.Duration
	Concurrency      int
	HighPriorityDays int
}

// OverduePaymentServiceParams groups constructor dependencies.
type OverduePaymentServiceParams struct {
	Students            studentDirectory
	Subscriptions       subscriptionSource
	LegacySubscriptions subscriptionSource
	Payments            studentPaymentSource
	Transactions        subscriptionTransactionSource
	Cache               *CacheService
	Metrics             *MetricsService
	Logger              *zap.Logger
	Config              OverduePaymentServiceConfig
}

// OverduePaymentService ranks subscriptions that still have money owed.
type OverduePaymentService struct {
	students      studentDirectory
	subscriptions subscriptionResolver
	payments      studentPaymentSource
	transactions  subscriptionTransactionSource
	cache         *CacheService
	metrics       *MetricsService
	logger        *zap.Logger
	now           func() time.Time
	cfg           OverduePaymentServiceConfig
}

// NewOverduePaymentService constructs an OverduePaymentService.
func NewOverduePaymentService(params OverduePaymentServiceParams) *OverduePaymentService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.HighPriorityDays <= 0 {
		cfg.HighPriorityDays = 30
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverduePaymentService{
		students: params.Students,
		subscriptions: subscriptionResolver{
			primary:  params.Subscriptions,
			fallback: params.LegacySubscriptions,
			logger:   logger,
		},
		payments:     params.Payments,
		transactions: params.Transactions,
		cache:        params.Cache,
		metrics:      params.Metrics,
		logger:       logger,
		now:          time.Now,
		cfg:          cfg,
	}
}

// Report returns the ranked overdue list for a school and whether it came from cache.
// An empty school id yields an empty report.
func (s *OverduePaymentService) Report(ctx context.Context, schoolID string) (*models.OverdueReport, bool, error) {
	now := s.now().UTC()
	if schoolID == "" {
		return &models.OverdueReport{GeneratedAt: now, Items: []models.OverduePayment{}, Skipped: []models.SkippedRecord{}}, false, nil
	}

	cacheKey := fmt.Sprintf("payments:overdue:%s", schoolID)
	var cached models.OverdueReport
	if s.cache.Get(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	start := time.Now()
	students, err := s.students.ListActiveBySchool(ctx, schoolID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to list students")
	}

	items, skipped, err := forEachStudent(ctx, students, s.cfg.Concurrency, func(ctx context.Context, student models.Student) studentOutcome[models.OverduePayment] {
		return s.evaluateStudent(ctx, student, now)
	})
	if err != nil {
		return nil, false, err
	}
	SortOverdue(items)

	report := &models.OverdueReport{SchoolID: schoolID, GeneratedAt: now, Items: items, Skipped: skipped}
	s.metrics.ObserveReport(models.ReportOverdue, time.Since(start))
	s.metrics.RecordSkipped(models.ReportOverdue, skipped)
	s.cache.Set(ctx, cacheKey, report, reportTTL(s.cfg.CacheTTL, skipped))
	return report, false, nil
}

func (s *OverduePaymentService) evaluateStudent(ctx context.Context, student models.Student, now time.Time) studentOutcome[models.OverduePayment] {
	var out studentOutcome[models.OverduePayment]
	subs, err := s.subscriptions.list(ctx, student.ID)
	if err != nil {
		out.skipped = append(out.skipped, skipRecord(s.logger, student.ID, "", models.SkipStageSubscriptions, err))
		return out
	}
	if len(subs) == 0 {
		return out
	}

	payments, paymentsErr := s.payments.ListByStudent(ctx, student.ID)
	studentPaid := sumIncomePayments(payments)

	for _, sub := range subs {
		if paymentsErr != nil {
			out.skipped = append(out.skipped, skipRecord(s.logger, student.ID, sub.ID, models.SkipStagePayments, paymentsErr))
			continue
		}
		txs, err := s.transactions.ListBySubscription(ctx, sub.ID)
		if err != nil {
			out.skipped = append(out.skipped, skipRecord(s.logger, student.ID, sub.ID, models.SkipStageTransactions, err))
			continue
		}
		if item, ok := EvaluateOverdue(student, sub, studentPaid, sumIncomeTransactions(txs), now, s.cfg.HighPriorityDays); ok {
			out.items = append(out.items, item)
		}
	}
	return out
}

// EvaluateOverdue builds the overdue record for one subscription. studentPaid is
// the income recorded against the student and subscriptionPaid the income
// recorded against the subscription; the larger of the two counts as paid.
// It returns false when nothing is owed.
func EvaluateOverdue(student models.Student, sub models.Subscription, studentPaid, subscriptionPaid decimal.Decimal, now time.Time, highPriorityDays int) (models.OverduePayment, bool) {
	totalPaid := decimal.Max(studentPaid, subscriptionPaid)
	totalPrice := sub.TotalPrice
	owed := totalPrice.Sub(totalPaid)
	if !owed.IsPositive() {
		return models.OverduePayment{}, false
	}

	percentage := decimal.Zero
	if totalPrice.IsPositive() {
		percentage = totalPaid.Div(totalPrice).Mul(hundred).Round(2)
	}

	days := 0
	if sub.StartDate != nil {
		days = wholeDaysBetween(*sub.StartDate, now)
	}

	return models.OverduePayment{
		StudentContact:     contactOf(student),
		SubscriptionID:     sub.ID,
		SubscriptionStatus: sub.Status,
		Currency:           sub.Currency,
		TotalPrice:         totalPrice.InexactFloat64(),
		TotalPaid:          totalPaid.InexactFloat64(),
		AmountOwed:         owed.InexactFloat64(),
		PaymentPercentage:  percentage.InexactFloat64(),
		SessionCount:       sub.SessionCount,
		SessionsCompleted:  sub.SessionsCompleted,
		StartDate:          sub.StartDate,
		DaysSinceStart:     days,
		Priority:           ClassifyPriority(sub.Status, totalPaid, days, highPriorityDays),
	}, true
}

// ClassifyPriority applies the first matching rule: unpaid active subscriptions
// are urgent, active ones older than highPriorityDays are high, the rest normal.
func ClassifyPriority(status models.SubscriptionStatus, totalPaid decimal.Decimal, daysSinceStart, highPriorityDays int) models.Priority {
	if status != models.SubscriptionActive {
		return models.PriorityNormal
	}
	if totalPaid.IsZero() {
		return models.PriorityUrgent
	}
	if daysSinceStart > highPriorityDays {
		return models.PriorityHigh
	}
	return models.PriorityNormal
}

// SortOverdue orders by priority rank, then amount owed descending, then ids.
func SortOverdue(items []models.OverduePayment) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if a.AmountOwed != b.AmountOwed {
			return a.AmountOwed > b.AmountOwed
		}
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		return a.SubscriptionID < b.SubscriptionID
	})
}

// FilterByPriority keeps items whose priority is listed. No priorities keeps everything.
func FilterByPriority(items []models.OverduePayment, priorities []models.Priority) []models.OverduePayment {
	if len(priorities) == 0 {
		return items
	}
	allowed := make(map[models.Priority]struct{}, len(priorities))
	for _, p := range priorities {
		allowed[p] = struct{}{}
	}
	filtered := make([]models.OverduePayment, 0, len(items))
	for _, item := range items {
		if _, ok := allowed[item.Priority]; ok {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func wholeDaysBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	return int(to.Sub(from) / (24 * time.Hour))
}
