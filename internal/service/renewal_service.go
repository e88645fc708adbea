package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-payments-api/pkg/errors"
)

// RenewalServiceConfig tunes renewal detection.
type RenewalServiceConfig struct {
	CacheTTL    time.Duration
	Concurrency int
	WindowDays  int
}

// RenewalServiceParams groups constructor dependencies.
type RenewalServiceParams struct {
	Students            studentDirectory
	Subscriptions       subscriptionSource
	LegacySubscriptions subscriptionSource
	Lessons             lessonSource
	Cache               *CacheService
	Metrics             *MetricsService
	Logger              *zap.Logger
	Config              RenewalServiceConfig
}

// RenewalService finds each student's latest subscription that has run out or will soon.
type RenewalService struct {
	students      studentDirectory
	subscriptions subscriptionResolver
	lessons       lessonSource
	cache         *CacheService
	metrics       *MetricsService
	logger        *zap.Logger
	now           func() time.Time
	cfg           RenewalServiceConfig
}

// NewRenewalService constructs a RenewalService.
func NewRenewalService(params RenewalServiceParams) *RenewalService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 7
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RenewalService{
		students: params.Students,
		subscriptions: subscriptionResolver{
			primary:  params.Subscriptions,
			fallback: params.LegacySubscriptions,
			logger:   logger,
		},
		lessons: params.Lessons,
		cache:   params.Cache,
		metrics: params.Metrics,
		logger:  logger,
		now:     time.Now,
		cfg:     cfg,
	}
}

// Report returns expired and expiring subscriptions for a school and whether it came from cache.
func (s *RenewalService) Report(ctx context.Context, schoolID string) (*models.RenewalReport, bool, error) {
	now := s.now().UTC()
	if schoolID == "" {
		return &models.RenewalReport{GeneratedAt: now, Items: []models.SubscriptionRenewal{}, Skipped: []models.SkippedRecord{}}, false, nil
	}

	cacheKey := fmt.Sprintf("payments:renewals:%s", schoolID)
	var cached models.RenewalReport
	if s.cache.Get(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	start := time.Now()
	students, err := s.students.ListActiveBySchool(ctx, schoolID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to list students")
	}

	items, skipped, err := forEachStudent(ctx, students, s.cfg.Concurrency, func(ctx context.Context, student models.Student) studentOutcome[models.SubscriptionRenewal] {
		return s.evaluateStudent(ctx, student, now)
	})
	if err != nil {
		return nil, false, err
	}
	SortRenewals(items)

	report := &models.RenewalReport{SchoolID: schoolID, GeneratedAt: now, Items: items, Skipped: skipped}
	s.metrics.ObserveReport(models.ReportRenewals, time.Since(start))
	s.metrics.RecordSkipped(models.ReportRenewals, skipped)
	s.cache.Set(ctx, cacheKey, report, reportTTL(s.cfg.CacheTTL, skipped))
	return report, false, nil
}

func (s *RenewalService) evaluateStudent(ctx context.Context, student models.Student, now time.Time) studentOutcome[models.SubscriptionRenewal] {
	var out studentOutcome[models.SubscriptionRenewal]
	subs, err := s.subscriptions.list(ctx, student.ID)
	if err != nil {
		out.skipped = append(out.skipped, skipRecord(s.logger, student.ID, "", models.SkipStageSubscriptions, err))
		return out
	}
	sub, ok := LatestSubscription(subs)
	if !ok {
		return out
	}

	lessons, err := s.lessons.ListBySubscription(ctx, sub.ID)
	if err != nil {
		out.skipped = append(out.skipped, skipRecord(s.logger, student.ID, sub.ID, models.SkipStageLessons, err))
		return out
	}

	end, source, ok := ActualEndDate(sub, lessons)
	if !ok {
		out.skipped = append(out.skipped, skipRecord(s.logger, student.ID, sub.ID, models.SkipStageEndDate, errNoEndDate(sub.ID)))
		return out
	}

	days := calendarDaysBetween(now, end)
	var status models.RenewalStatus
	switch {
	case days < 0:
		status = models.RenewalExpired
	case days <= s.cfg.WindowDays:
		status = models.RenewalExpiring
	default:
		return out
	}

	out.items = append(out.items, models.SubscriptionRenewal{
		StudentContact:     contactOf(student),
		SubscriptionID:     sub.ID,
		SubscriptionStatus: sub.Status,
		StartDate:          sub.StartDate,
		NominalEndDate:     sub.EndDate,
		ActualEndDate:      end,
		EndDateSource:      source,
		DaysUntilExpiry:    days,
		Status:             status,
		SessionCount:       sub.SessionCount,
		SessionsCompleted:  sub.SessionsCompleted,
	})
	return out
}

// LatestSubscription picks the subscription with the most recent start date.
// Subscriptions without a start date lose to dated ones; ties go to the smaller id.
func LatestSubscription(subs []models.Subscription) (models.Subscription, bool) {
	if len(subs) == 0 {
		return models.Subscription{}, false
	}
	best := subs[0]
	for _, sub := range subs[1:] {
		if startsAfter(sub, best) {
			best = sub
		}
	}
	return best, true
}

func startsAfter(a, b models.Subscription) bool {
	switch {
	case a.StartDate == nil && b.StartDate == nil:
		return a.ID < b.ID
	case a.StartDate == nil:
		return false
	case b.StartDate == nil:
		return true
	case a.StartDate.Equal(*b.StartDate):
		return a.ID < b.ID
	default:
		return a.StartDate.After(*b.StartDate)
	}
}

// ActualEndDate prefers the last scheduled, non-cancelled lesson over the
// subscription's nominal end date.
func ActualEndDate(sub models.Subscription, lessons []models.Lesson) (time.Time, string, bool) {
	var latest time.Time
	found := false
	for _, lesson := range lessons {
		if isCancelledLesson(lesson.Status) {
			continue
		}
		if !found || lesson.ScheduledAt.After(latest) {
			latest = lesson.ScheduledAt
			found = true
		}
	}
	if found {
		return latest, models.EndDateFromLesson, true
	}
	if sub.EndDate != nil {
		return *sub.EndDate, models.EndDateFromSubscription, true
	}
	return time.Time{}, "", false
}

func isCancelledLesson(status string) bool {
	switch strings.ToLower(status) {
	case "cancelled", "canceled":
		return true
	}
	return false
}

// SortRenewals puts expired subscriptions first, then orders by days until expiry.
func SortRenewals(items []models.SubscriptionRenewal) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		aExpired, bExpired := a.Status == models.RenewalExpired, b.Status == models.RenewalExpired
		if aExpired != bExpired {
			return aExpired
		}
		if a.DaysUntilExpiry != b.DaysUntilExpiry {
			return a.DaysUntilExpiry < b.DaysUntilExpiry
		}
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		return a.SubscriptionID < b.SubscriptionID
	})
}

// calendarDaysBetween counts UTC calendar days from today to end. Negative means end is in the past.
func calendarDaysBetween(today, end time.Time) int {
	from := startOfDay(today)
	to := startOfDay(end)
	return int(math.Round(to.Sub(from).Hours() / 24))
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
