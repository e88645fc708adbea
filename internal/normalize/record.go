// Package normalize is the single boundary where loosely-typed rows from the
// RPC database and the document store become canonical models. Field names
// drift between camelCase and snake_case across writers, so every accessor
// takes the candidate keys in preference order.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
)

// Record is one decoded row or document.
type Record map[string]interface{}

type hexer interface{ Hex() string }

type timer interface{ Time() time.Time }

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (r Record) lookup(keys ...string) (interface{}, bool) {
	for _, key := range keys {
		if v, ok := r[key]; ok && v != nil {
			if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
				continue
			}
			return v, true
		}
	}
	return nil, false
}

// String returns the first present key rendered as a trimmed string.
func (r Record) String(keys ...string) string {
	v, ok := r.lookup(keys...)
	if !ok {
		return ""
	}
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case hexer:
		return typed.Hex()
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

// Int returns the first present key as an integer, 0 when absent or unparsable.
func (r Record) Int(keys ...string) int {
	money := r.Money(keys...)
	if !money.Valid {
		return 0
	}
	return int(money.Amount.IntPart())
}

// Money returns the first present key as a decimal amount. Absent keys yield
// a valid zero; present but malformed values are returned with Valid=false.
func (r Record) Money(keys ...string) models.Money {
	v, ok := r.lookup(keys...)
	if !ok {
		return models.Money{Amount: decimal.Zero, Valid: true}
	}
	amount, err := toDecimal(v)
	if err != nil {
		return models.Money{Amount: decimal.Zero, Valid: false, Raw: fmt.Sprint(v)}
	}
	return models.Money{Amount: amount, Valid: true}
}

// Has reports whether any of the keys is present with a non-empty value.
func (r Record) Has(keys ...string) bool {
	_, ok := r.lookup(keys...)
	return ok
}

// Time returns the first present key parsed as a timestamp, nil if absent or invalid.
func (r Record) Time(keys ...string) *time.Time {
	v, ok := r.lookup(keys...)
	if !ok {
		return nil
	}
	t, ok := toTime(v)
	if !ok {
		return nil
	}
	return &t
}

func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch typed := v.(type) {
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return decimal.Zero, fmt.Errorf("non-finite amount")
		}
		return decimal.NewFromFloat(typed), nil
	case float32:
		return toDecimal(float64(typed))
	case int:
		return decimal.NewFromInt(int64(typed)), nil
	case int32:
		return decimal.NewFromInt32(typed), nil
	case int64:
		return decimal.NewFromInt(typed), nil
	case json.Number:
		return decimal.NewFromString(typed.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(typed))
	case fmt.Stringer:
		return decimal.NewFromString(typed.String())
	default:
		return decimal.Zero, fmt.Errorf("unsupported amount type %T", v)
	}
}

func toTime(v interface{}) (time.Time, bool) {
	switch typed := v.(type) {
	case time.Time:
		return typed.UTC(), !typed.IsZero()
	case timer:
		t := typed.Time()
		return t.UTC(), !t.IsZero()
	case string:
		raw := strings.TrimSpace(typed)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	case primitive.Timestamp:
		return time.Unix(int64(typed.T), 0).UTC(), typed.T > 0
	case primitive.D:
		return secondsTime(Record(typed.Map()))
	case primitive.M:
		return secondsTime(Record(typed))
	case map[string]interface{}:
		return secondsTime(Record(typed))
	default:
		return time.Time{}, false
	}
}

// secondsTime reads exported document-store timestamps shaped as {seconds, nanoseconds}.
func secondsTime(rec Record) (time.Time, bool) {
	if !rec.Has("seconds", "_seconds") {
		return time.Time{}, false
	}
	secs := rec.Int("seconds", "_seconds")
	nanos := rec.Int("nanoseconds", "_nanoseconds")
	return time.Unix(int64(secs), int64(nanos)).UTC(), true
}
