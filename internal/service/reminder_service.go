package service

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-payments-api/internal/dto"
	"github.com/noah-isme/tutoring-payments-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-payments-api/pkg/errors"
	"github.com/noah-isme/tutoring-payments-api/pkg/jobs"
)

// DefaultReminderTemplateKey names the school template looked up when a request has none.
const DefaultReminderTemplateKey = "payment_overdue"

const (
	reminderJobType         = "payment_reminder"
	defaultReminderSubject  = "Payment reminder for {{.CourseName}}"
	defaultReminderBody     = "Hi {{.StudentName}}, {{.AmountOwed}} is still outstanding on your {{.CourseName}} subscription ({{.PaymentPercentage}}% paid). Please contact us to settle it."
	defaultTemplateSentinel = "default"
)

var (
	defaultSubjectTemplate = template.Must(template.New("subject").Parse(defaultReminderSubject))
	defaultBodyTemplate    = template.Must(template.New("body").Parse(defaultReminderBody))
)

type templateSource interface {
	Find(ctx context.Context, schoolID, key string, channel models.NotificationChannel) (*models.NotificationTemplate, error)
}

type notificationWriter interface {
	Create(ctx context.Context, n *models.Notification) error
}

// ReminderConfig configures the outbox workers.
type ReminderConfig struct {
	Enabled bool
	Workers int
	Retries int
}

// ReminderServiceParams groups constructor dependencies.
type ReminderServiceParams struct {
	Overdue   overdueReporter
	Templates templateSource
	Outbox    notificationWriter
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    ReminderConfig
}

// ReminderData is the value templates are executed against.
type ReminderData struct {
	SchoolID          string
	StudentName       string
	CourseName        string
	Currency          string
	TotalPrice        string
	TotalPaid         string
	AmountOwed        string
	PaymentPercentage string
	DaysSinceStart    int
	Priority          string
}

// ReminderService renders overdue reminders and writes them to the notification outbox.
type ReminderService struct {
	overdue   overdueReporter
	templates templateSource
	outbox    notificationWriter
	metrics   *MetricsService
	validate  *validator.Validate
	logger    *zap.Logger
	queue     *jobs.Queue
	enabled   bool
}

// NewReminderService constructs a ReminderService. Call Start before Send.
func NewReminderService(params ReminderServiceParams) *ReminderService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = NewValidator()
	}
	svc := &ReminderService{
		overdue:   params.Overdue,
		templates: params.Templates,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		validate:  validate,
		logger:    logger,
		enabled:   params.Config.Enabled,
	}
	svc.queue = jobs.NewQueue("reminders", svc.deliver, jobs.QueueConfig{
		Workers:    params.Config.Workers,
		MaxRetries: params.Config.Retries,
		Logger:     logger,
		DeadLetter: func(job jobs.Job, err error) {
			logger.Error("reminder dropped", zap.String("notification_id", job.ID), zap.Error(err))
		},
	})
	return svc
}

// Start launches the outbox workers.
func (s *ReminderService) Start(ctx context.Context) {
	if s.enabled {
		s.queue.Start(ctx)
	}
}

// Stop drains the workers.
func (s *ReminderService) Stop() {
	s.queue.Stop()
}

// Stats exposes the worker counters.
func (s *ReminderService) Stats() jobs.Stats {
	return s.queue.Stats()
}

// Send renders a reminder for every overdue record of schoolID matching the
// requested priorities and queues it for the outbox. Delivery can be partial:
// when the queue rejects a reminder, the reminders already queued stay queued
// and the response returned with the error counts them.
func (s *ReminderService) Send(ctx context.Context, session models.Session, schoolID string, req dto.ReminderRequest) (*dto.ReminderResponse, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "reminders are disabled")
	}
	if schoolID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schoolId is required")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	report, _, err := s.overdue.Report(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	items := FilterByPriority(report.Items, req.Priorities)

	key := req.TemplateKey
	if key == "" {
		key = DefaultReminderTemplateKey
	}
	subject, body, source := s.loadTemplate(ctx, schoolID, key, req.Channel)

	resp := &dto.ReminderResponse{RunID: uuid.NewString(), Template: source}
	for _, item := range items {
		recipient := recipientFor(req.Channel, item.StudentContact)
		if recipient == "" {
			resp.Skipped++
			continue
		}
		data := reminderDataFor(schoolID, item)
		n := &models.Notification{
			ID:             uuid.NewString(),
			SchoolID:       schoolID,
			StudentID:      item.StudentID,
			SubscriptionID: item.SubscriptionID,
			Channel:        req.Channel,
			Recipient:      recipient,
			Body:           renderOr(body, defaultBodyTemplate, data),
			Status:         models.NotificationStatusQueued,
			CreatedBy:      session.UserID,
		}
		if req.Channel == models.ChannelEmail {
			n.Subject = renderOr(subject, defaultSubjectTemplate, data)
		}
		if err := s.queue.Enqueue(ctx, jobs.Job{ID: n.ID, Type: reminderJobType, Payload: n}); err != nil {
			s.logger.Warn("reminder run interrupted",
				zap.String("run_id", resp.RunID),
				zap.Int("queued", resp.Queued),
				zap.Error(err),
			)
			return resp, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "reminder queue unavailable")
		}
		s.metrics.RecordReminderQueued(req.Channel)
		resp.Queued++
	}

	s.logger.Info("reminders queued",
		zap.String("run_id", resp.RunID),
		zap.String("school_id", schoolID),
		zap.String("channel", string(req.Channel)),
		zap.Int("queued", resp.Queued),
		zap.Int("skipped", resp.Skipped),
	)
	return resp, nil
}

func (s *ReminderService) deliver(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(*models.Notification)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	return s.outbox.Create(ctx, n)
}

// loadTemplate returns parsed subject and body templates plus the name of their source.
// Missing or unparsable school templates fall back to the built-in text.
func (s *ReminderService) loadTemplate(ctx context.Context, schoolID, key string, channel models.NotificationChannel) (*template.Template, *template.Template, string) {
	defaultSubject, defaultBody := defaultSubjectTemplate, defaultBodyTemplate
	if s.templates == nil {
		return defaultSubject, defaultBody, defaultTemplateSentinel
	}
	tmpl, err := s.templates.Find(ctx, schoolID, key, channel)
	if err != nil {
		s.logger.Warn("template lookup failed, using default", zap.String("school_id", schoolID), zap.String("key", key), zap.Error(err))
		return defaultSubject, defaultBody, defaultTemplateSentinel
	}
	if tmpl == nil {
		return defaultSubject, defaultBody, defaultTemplateSentinel
	}

	body, err := template.New("body").Option("missingkey=zero").Parse(tmpl.Body)
	if err != nil {
		s.logger.Warn("school template invalid, using default", zap.String("school_id", schoolID), zap.String("key", key), zap.Error(err))
		return defaultSubject, defaultBody, defaultTemplateSentinel
	}
	subject := defaultSubject
	if tmpl.Subject != "" {
		if parsed, err := template.New("subject").Option("missingkey=zero").Parse(tmpl.Subject); err == nil {
			subject = parsed
		}
	}
	return subject, body, key
}

// renderOr executes tmpl and falls back to def when execution fails or yields nothing.
func renderOr(tmpl, def *template.Template, data ReminderData) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err == nil {
		if out := strings.TrimSpace(buf.String()); out != "" {
			return out
		}
	}
	buf.Reset()
	_ = def.Execute(&buf, data)
	return strings.TrimSpace(buf.String())
}

func recipientFor(channel models.NotificationChannel, contact models.StudentContact) string {
	if channel == models.ChannelEmail {
		return contact.Email
	}
	return contact.Phone
}

func reminderDataFor(schoolID string, item models.OverduePayment) ReminderData {
	return ReminderData{
		SchoolID:          schoolID,
		StudentName:       item.Name,
		CourseName:        item.CourseName,
		Currency:          item.Currency,
		TotalPrice:        formatAmount(item.TotalPrice, item.Currency),
		TotalPaid:         formatAmount(item.TotalPaid, item.Currency),
		AmountOwed:        formatAmount(item.AmountOwed, item.Currency),
		PaymentPercentage: strconv.FormatFloat(item.PaymentPercentage, 'f', 2, 64),
		DaysSinceStart:    item.DaysSinceStart,
		Priority:          string(item.Priority),
	}
}
