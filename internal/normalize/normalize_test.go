package normalize

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
)

func TestStudentCoalescesFieldVariants(t *testing.T) {
	oid := primitive.NewObjectID()
	student := Student(Record{
		"_id":         oid,
		"schoolId":    "school-1",
		"firstName":   "Ana",
		"last_name":   "Lopez",
		"phoneNumber": "+100",
		"courseName":  "IELTS",
		"status":      "ACTIVE",
	})

	assert.Equal(t, oid.Hex(), student.ID)
	assert.Equal(t, "school-1", student.SchoolID)
	assert.Equal(t, "Ana Lopez", student.Name)
	assert.Equal(t, "+100", student.Phone)
	assert.Equal(t, "IELTS", student.CourseName)
	assert.Equal(t, models.StudentStatusActive, student.Status)
}

func TestSubscriptionPrefersFirstPresentPriceField(t *testing.T) {
	sub := Subscription(Record{
		"id":          "sub-1",
		"student_id":  "stu-1",
		"total_price": "",
		"totalPrice":  json.Number("450.50"),
		"price":       999,
		"currency":    "usd",
		"start_date":  "2024-01-15",
		"endDate":     map[string]interface{}{"seconds": float64(1709251200)},
		"status":      "Active",
	})

	assert.Equal(t, "450.5", sub.TotalPrice.String())
	assert.Equal(t, "USD", sub.Currency)
	require.NotNil(t, sub.StartDate)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), *sub.StartDate)
	require.NotNil(t, sub.EndDate)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *sub.EndDate)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
}

func TestSubscriptionWithoutPriceDefaultsToZero(t *testing.T) {
	sub := Subscription(Record{"id": "sub-1"})
	assert.True(t, sub.TotalPrice.IsZero())
	assert.Nil(t, sub.StartDate)
}

func TestMoneyFlagsMalformedValues(t *testing.T) {
	cases := map[string]interface{}{
		"text":     "twelve",
		"nan":      math.NaN(),
		"inf":      math.Inf(1),
		"nan text": "NaN",
		"bool":     true,
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			money := Record{"amount": value}.Money("amount")
			assert.False(t, money.Valid)
			assert.True(t, money.Amount.IsZero())
		})
	}
}

func TestMoneyAcceptsNumericForms(t *testing.T) {
	assert.Equal(t, "12.5", Record{"a": 12.5}.Money("a").Amount.String())
	assert.Equal(t, "12", Record{"a": int64(12)}.Money("a").Amount.String())
	assert.Equal(t, "12.25", Record{"a": " 12.25 "}.Money("a").Amount.String())
	dec, err := primitive.ParseDecimal128("99.90")
	require.NoError(t, err)
	assert.True(t, Record{"a": dec}.Money("a").Valid)
}

func TestTransactionMapsAccountsAndType(t *testing.T) {
	tx := Transaction(Record{
		"id":              "tx-1",
		"fromAccountId":   "acc-1",
		"to_account_id":   "acc-2",
		"amount":          "100",
		"currency":        "eur",
		"transactionType": "Transfer",
		"created_at":      "2024-05-01T10:00:00Z",
	})
	assert.Equal(t, "acc-1", tx.FromAccountID)
	assert.Equal(t, "acc-2", tx.ToAccountID)
	assert.Equal(t, models.TransactionTransfer, tx.Type)
	assert.Equal(t, "EUR", tx.Currency)
	require.NotNil(t, tx.OccurredAt)
}

func TestLessonRequiresScheduleDate(t *testing.T) {
	_, ok := Lesson(Record{"id": "l-1"})
	assert.False(t, ok)

	when := primitive.NewDateTimeFromTime(time.Date(2024, 2, 2, 9, 0, 0, 0, time.UTC))
	lesson, ok := Lesson(Record{"id": "l-2", "scheduledAt": when, "status": "Scheduled"})
	require.True(t, ok)
	assert.Equal(t, 2024, lesson.ScheduledAt.Year())
	assert.Equal(t, "scheduled", lesson.Status)
}

func TestAccountKeepsMalformedOpeningBalance(t *testing.T) {
	account := Account(Record{"id": "acc-1", "name": "Cash", "currency": "usd", "initial_balance": "abc"})
	assert.False(t, account.OpeningBalance.Valid)
	assert.Equal(t, "abc", account.OpeningBalance.Raw)
}
