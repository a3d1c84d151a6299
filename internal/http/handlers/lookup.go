package handlers

import (
	"context"
	"log/slog"

	"github.com/jmylchreest/vincheck-api/internal/logging"
	"github.com/jmylchreest/vincheck-api/internal/models"
)

// RecordResolver resolves free-form input into a vehicle record.
type RecordResolver interface {
	Resolve(ctx context.Context, raw string) (*models.VehicleRecord, error)
}

// LookupHandler handles vehicle lookup endpoints.
type LookupHandler struct {
	resolver RecordResolver
	logger   *slog.Logger
}

// NewLookupHandler creates a new lookup handler.
func NewLookupHandler(resolver RecordResolver, logger *slog.Logger) *LookupHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LookupHandler{resolver: resolver, logger: logger}
}

// CheckVINInput represents a lookup request.
type CheckVINInput struct {
	AcceptLanguage string `header:"Accept-Language" doc:"ka (default) or en"`
	Body           struct {
		VIN string `json:"vin" required:"false" doc:"VIN, marketplace record ID, or a listing URL containing either"`
	}
}

// CheckVINBody is either a vehicle record or an error.
type CheckVINBody struct {
	*models.VehicleRecord
	Error string `json:"error,omitempty" doc:"Localized error message; present only on failure"`
}

// CheckVINOutput represents a lookup response.
type CheckVINOutput struct {
	Body CheckVINBody
}

// CheckVIN runs the source resolution chain for the submitted input.
func (h *LookupHandler) CheckVIN(ctx context.Context, input *CheckVINInput) (*CheckVINOutput, error) {
	logger := logging.FromContext(ctx, h.logger)

	record, err := h.resolver.Resolve(ctx, input.Body.VIN)
	if err != nil {
		msg := MessageFor(err)
		logger.Info("lookup failed", "input", input.Body.VIN, "message", msg, "error", err)
		return &CheckVINOutput{Body: CheckVINBody{Error: Localize(input.AcceptLanguage, msg)}}, nil
	}

	if record.Images == nil {
		record.Images = []string{}
	}
	if record.Info == nil {
		record.Info = map[string]string{}
	}
	return &CheckVINOutput{Body: CheckVINBody{VehicleRecord: record}}, nil
}
