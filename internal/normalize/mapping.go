package normalize

import (
	"strings"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
)

// Student maps a student document.
func Student(r Record) models.Student {
	name := r.String("name", "full_name", "fullName", "student_name", "studentName")
	if name == "" {
		name = strings.TrimSpace(r.String("first_name", "firstName") + " " + r.String("last_name", "lastName"))
	}
	return models.Student{
		ID:         r.String("id", "_id", "student_id", "studentId"),
		SchoolID:   r.String("school_id", "schoolId"),
		Name:       name,
		Email:      r.String("email", "email_address", "emailAddress"),
		Phone:      r.String("phone", "phone_number", "phoneNumber", "mobile"),
		CourseName: r.String("course_name", "courseName", "course"),
		Status:     strings.ToLower(r.String("status")),
	}
}

// Subscription maps a subscription row or document.
func Subscription(r Record) models.Subscription {
	price := r.Money("total_price", "totalPrice", "price", "amount")
	return models.Subscription{
		ID:                r.String("id", "_id", "subscription_id", "subscriptionId"),
		StudentID:         r.String("student_id", "studentId"),
		TotalPrice:        price.Amount,
		Currency:          currency(r),
		SessionCount:      r.Int("session_count", "sessionCount", "total_sessions", "totalSessions", "sessions"),
		SessionsCompleted: r.Int("sessions_completed", "sessionsCompleted", "completed_sessions", "completedSessions"),
		StartDate:         r.Time("start_date", "startDate"),
		EndDate:           r.Time("end_date", "endDate"),
		Status:            models.SubscriptionStatus(strings.ToLower(r.String("status"))),
	}
}

// Payment maps a payment document.
func Payment(r Record) models.Payment {
	return models.Payment{
		ID:             r.String("id", "_id", "payment_id", "paymentId"),
		StudentID:      r.String("student_id", "studentId"),
		SubscriptionID: r.String("subscription_id", "subscriptionId"),
		Amount:         r.Money("amount", "value"),
		Currency:       currency(r),
		Type:           transactionType(r),
		PaidAt:         r.Time("payment_date", "paymentDate", "date", "timestamp", "created_at", "createdAt"),
	}
}

// Transaction maps a ledger transaction row.
func Transaction(r Record) models.Transaction {
	return models.Transaction{
		ID:             r.String("id", "_id", "transaction_id", "transactionId"),
		SchoolID:       r.String("school_id", "schoolId"),
		StudentID:      r.String("student_id", "studentId"),
		SubscriptionID: r.String("subscription_id", "subscriptionId"),
		FromAccountID:  r.String("from_account_id", "fromAccountId", "source_account_id", "sourceAccountId"),
		ToAccountID:    r.String("to_account_id", "toAccountId", "destination_account_id", "destinationAccountId"),
		Amount:         r.Money("amount", "value"),
		Currency:       currency(r),
		Type:           transactionType(r),
		OccurredAt:     r.Time("transaction_date", "transactionDate", "date", "created_at", "createdAt"),
	}
}

// Account maps an account row.
func Account(r Record) models.Account {
	return models.Account{
		ID:             r.String("id", "_id", "account_id", "accountId"),
		SchoolID:       r.String("school_id", "schoolId"),
		Name:           r.String("name", "account_name", "accountName"),
		Currency:       currency(r),
		OpeningBalance: r.Money("initial_balance", "initialBalance", "opening_balance", "openingBalance"),
	}
}

// Lesson maps a lesson row.
func Lesson(r Record) (models.Lesson, bool) {
	at := r.Time("scheduled_at", "scheduledAt", "start_time", "startTime", "date")
	if at == nil {
		return models.Lesson{}, false
	}
	return models.Lesson{
		ID:             r.String("id", "_id", "lesson_id", "lessonId"),
		SubscriptionID: r.String("subscription_id", "subscriptionId"),
		StudentID:      r.String("student_id", "studentId"),
		ScheduledAt:    *at,
		Status:         strings.ToLower(r.String("status")),
	}, true
}

// NotificationTemplate maps a template row.
func NotificationTemplate(r Record) models.NotificationTemplate {
	return models.NotificationTemplate{
		SchoolID: r.String("school_id", "schoolId"),
		Key:      r.String("key", "template_key", "templateKey", "name"),
		Channel:  models.NotificationChannel(strings.ToLower(r.String("channel", "type"))),
		Subject:  r.String("subject", "title"),
		Body:     r.String("body", "content", "template"),
	}
}

func currency(r Record) string {
	return strings.ToUpper(r.String("currency", "currency_code", "currencyCode"))
}

func transactionType(r Record) models.TransactionType {
	return models.TransactionType(strings.ToLower(r.String("type", "transaction_type", "transactionType")))
}
