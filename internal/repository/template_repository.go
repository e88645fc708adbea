package repository

import (
	"context"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
	"github.com/noah-isme/tutoring-payments-api/internal/normalize"
)

// TemplateRepository loads school notification templates.
type TemplateRepository struct {
	rpc *RPCClient
}

// NewTemplateRepository constructs a TemplateRepository.
func NewTemplateRepository(rpc *RPCClient) *TemplateRepository {
	return &TemplateRepository{rpc: rpc}
}

// Find returns the school's template for key and channel, or nil when none is defined.
func (r *TemplateRepository) Find(ctx context.Context, schoolID, key string, channel models.NotificationChannel) (*models.NotificationTemplate, error) {
	records, err := r.rpc.Call(ctx, "get_school_notification_template",
		Param("p_school_id", schoolID),
		Param("p_key", key),
		Param("p_channel", string(channel)),
	)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		tmpl := normalize.NotificationTemplate(record)
		if tmpl.Body != "" {
			return &tmpl, nil
		}
	}
	return nil, nil
}
