package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
)

func daysFromNow(days int) time.Time {
	return fixedNow.AddDate(0, 0, days)
}

func lessonAt(subscriptionID string, at time.Time, status string) models.Lesson {
	return models.Lesson{SubscriptionID: subscriptionID, ScheduledAt: at, Status: status}
}

func newRenewalService(students *fakeStudents, subs *fakeSubscriptions, lessons *fakeLessons) *RenewalService {
	svc := NewRenewalService(RenewalServiceParams{
		Students:      students,
		Subscriptions: subs,
		Lessons:       lessons,
	})
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestRenewalReportClassifiesAndSorts(t *testing.T) {
	students := &fakeStudents{students: []models.Student{{ID: "S1"}, {ID: "S2"}, {ID: "S3"}, {ID: "S4"}, {ID: "S5"}}}
	subs := &fakeSubscriptions{byStudent: map[string][]models.Subscription{
		"S1": {{ID: "s1", Status: models.SubscriptionActive, StartDate: timePtr(daysFromNow(-60))}},
		"S2": {{ID: "s2", Status: models.SubscriptionActive, StartDate: timePtr(daysFromNow(-30)), EndDate: timePtr(daysFromNow(3))}},
		"S3": {{ID: "s3", Status: models.SubscriptionActive, StartDate: timePtr(daysFromNow(-10)), EndDate: timePtr(daysFromNow(30))}},
		"S4": {{ID: "s4", Status: models.SubscriptionActive, StartDate: timePtr(daysFromNow(-90)), EndDate: timePtr(daysFromNow(-20))}},
		"S5": {{ID: "s5", Status: models.SubscriptionActive, StartDate: timePtr(daysFromNow(-5)), EndDate: timePtr(daysFromNow(0))}},
	}}
	lessons := &fakeLessons{bySubscription: map[string][]models.Lesson{
		"s1": {lessonAt("s1", daysFromNow(-40), "completed"), lessonAt("s1", daysFromNow(-2), "completed")},
		"s3": {lessonAt("s3", daysFromNow(20), "scheduled")},
	}}

	report, hit, err := newRenewalService(students, subs, lessons).Report(context.Background(), "school-1")
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, report.Items, 4)

	got := make([]string, 0, len(report.Items))
	for _, item := range report.Items {
		got = append(got, item.SubscriptionID)
	}
	assert.Equal(t, []string{"s4", "s1", "s5", "s2"}, got)

	assert.Equal(t, models.RenewalExpired, report.Items[0].Status)
	assert.Equal(t, -20, report.Items[0].DaysUntilExpiry)
	assert.Equal(t, models.EndDateFromSubscription, report.Items[0].EndDateSource)
	assert.Equal(t, models.EndDateFromLesson, report.Items[1].EndDateSource)
	assert.Equal(t, -2, report.Items[1].DaysUntilExpiry)
	assert.Equal(t, models.RenewalExpiring, report.Items[2].Status)
	assert.Equal(t, 0, report.Items[2].DaysUntilExpiry)
	assert.Equal(t, 3, report.Items[3].DaysUntilExpiry)
}

func TestRenewalReportConsidersOnlyLatestSubscription(t *testing.T) {
	students := &fakeStudents{students: []models.Student{{ID: "S1"}}}
	subs := &fakeSubscriptions{byStudent: map[string][]models.Subscription{
		"S1": {
			{ID: "old", StartDate: timePtr(daysFromNow(-200)), EndDate: timePtr(daysFromNow(-100))},
			{ID: "new", StartDate: timePtr(daysFromNow(-10)), EndDate: timePtr(daysFromNow(60))},
		},
	}}

	report, _, err := newRenewalService(students, subs, &fakeLessons{}).Report(context.Background(), "school-1")
	require.NoError(t, err)
	assert.Empty(t, report.Items)
}

func TestRenewalReportSkipsUnresolvableRecords(t *testing.T) {
	students := &fakeStudents{students: []models.Student{{ID: "S1"}, {ID: "S2"}, {ID: "S3"}}}
	subs := &fakeSubscriptions{
		byStudent: map[string][]models.Subscription{
			"S2": {{ID: "s2", StartDate: timePtr(daysFromNow(-5))}},
			"S3": {{ID: "s3", StartDate: timePtr(daysFromNow(-5)), EndDate: timePtr(daysFromNow(1))}},
		},
		errs: map[string]error{"S1": errors.New("rpc down")},
	}
	lessons := &fakeLessons{errs: map[string]error{"s3": errors.New("lessons unavailable")}}

	report, _, err := newRenewalService(students, subs, lessons).Report(context.Background(), "school-1")
	require.NoError(t, err)
	assert.Empty(t, report.Items)
	require.Len(t, report.Skipped, 3)
	assert.Equal(t, models.SkipStageSubscriptions, report.Skipped[0].Stage)
	assert.Equal(t, models.SkipStageEndDate, report.Skipped[1].Stage)
	assert.Equal(t, models.SkipStageLessons, report.Skipped[2].Stage)
}

func TestActualEndDateIgnoresCancelledLessons(t *testing.T) {
	sub := models.Subscription{ID: "s1", EndDate: timePtr(daysFromNow(10))}
	lessons := []models.Lesson{
		lessonAt("s1", daysFromNow(2), "completed"),
		lessonAt("s1", daysFromNow(30), "Cancelled"),
	}
	end, source, ok := ActualEndDate(sub, lessons)
	require.True(t, ok)
	assert.Equal(t, models.EndDateFromLesson, source)
	assert.True(t, end.Equal(daysFromNow(2)))

	end, source, ok = ActualEndDate(sub, []models.Lesson{lessonAt("s1", daysFromNow(5), "canceled")})
	require.True(t, ok)
	assert.Equal(t, models.EndDateFromSubscription, source)
	assert.True(t, end.Equal(daysFromNow(10)))
}

func TestLatestSubscriptionPrefersDatedAndBreaksTiesById(t *testing.T) {
	start := daysFromNow(-3)
	sub, ok := LatestSubscription([]models.Subscription{
		{ID: "undated"},
		{ID: "b", StartDate: timePtr(start)},
		{ID: "a", StartDate: timePtr(start)},
	})
	require.True(t, ok)
	assert.Equal(t, "a", sub.ID)

	_, ok = LatestSubscription(nil)
	assert.False(t, ok)
}

func TestCalendarDaysBetweenUsesDayBoundaries(t *testing.T) {
	today := time.Date(2024, 6, 15, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, 1, calendarDaysBetween(today, time.Date(2024, 6, 16, 0, 15, 0, 0, time.UTC)))
	assert.Equal(t, 0, calendarDaysBetween(today, time.Date(2024, 6, 15, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, calendarDaysBetween(today, time.Date(2024, 6, 14, 23, 59, 0, 0, time.UTC)))
}

func TestRenewalReportIncludesWindowBoundary(t *testing.T) {
	students := &fakeStudents{students: []models.Student{{ID: "S1"}, {ID: "S2"}}}
	subs := &fakeSubscriptions{byStudent: map[string][]models.Subscription{
		"S1": {{ID: "edge", Status: models.SubscriptionActive, StartDate: timePtr(daysFromNow(-30)), EndDate: timePtr(daysFromNow(7))}},
		"S2": {{ID: "beyond", Status: models.SubscriptionActive, StartDate: timePtr(daysFromNow(-30)), EndDate: timePtr(daysFromNow(8))}},
	}}

	report, _, err := newRenewalService(students, subs, &fakeLessons{}).Report(context.Background(), "school-1")
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, "edge", report.Items[0].SubscriptionID)
	assert.Equal(t, 7, report.Items[0].DaysUntilExpiry)
	assert.Equal(t, models.RenewalExpiring, report.Items[0].Status)
}

func TestRenewalReportCancelledRequestIsNotCached(t *testing.T) {
	students := &fakeStudents{students: []models.Student{{ID: "S1"}}}
	cache := newMemoryCache()
	svc := NewRenewalService(RenewalServiceParams{
		Students: students,
		Lessons:  &fakeLessons{},
		Cache:    NewCacheService(cache, nil, 0, nil, true),
	})
	svc.now = func() time.Time { return fixedNow }

	ctx, cancel := context.WithCancel(context.Background())
	svc.subscriptions.primary = cancellingSubscriptions{cancel: cancel}
	_, _, err := svc.Report(ctx, "school-1")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, cache.items)
}
