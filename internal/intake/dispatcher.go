package intake

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/finware/notify/internal/models"
	"github.com/finware/notify/internal/services"
	apperrors "github.com/finware/notify/pkg/errors"
	"github.com/finware/notify/pkg/logger"
	"github.com/finware/notify/pkg/metrics"
	"github.com/finware/notify/pkg/validator"
)

// ErrUnknownKind rejects event kinds no handler is registered for.
var ErrUnknownKind = apperrors.New("UNKNOWN_EVENT", "Unknown inbound event kind", 400)

// Result summarises per-element outcomes of one dispatched event.
type Result struct {
	Accepted int
	Failed   int
	Err      error
}

type handlerFunc func(ctx context.Context, payload json.RawMessage) (Result, error)

// Dispatcher routes inbound domain events to their handler by kind string.
// Each element of a batch is handled independently: a failed element is
// logged and counted, never aborting its siblings.
type Dispatcher struct {
	notifications *services.NotificationService
	handlers      map[string]handlerFunc
	log           *zap.Logger
}

// NewDispatcher constructs a dispatcher with the built-in event table.
func NewDispatcher(notifications *services.NotificationService) (*Dispatcher, error) {
	if notifications == nil {
		return nil, errors.New("intake: notification service is required")
	}

	d := &Dispatcher{
		notifications: notifications,
		log:           logger.WithModule("intake"),
	}
	d.handlers = map[string]handlerFunc{
		KindInvoiceClosed:  d.handleClosedInvoices,
		KindInvoiceOverdue: d.handleOverdueInvoices,
		KindReportReady:    d.handleReportReady,
	}
	return d, nil
}

// Kinds lists the registered event kinds, sorted.
func (d *Dispatcher) Kinds() []string {
	kinds := make([]string, 0, len(d.handlers))
	for kind := range d.handlers {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Dispatch routes payload to the handler registered for kind. The returned
// error is fatal for the whole event (unknown kind, malformed envelope);
// per-element failures are reported through Result.
func (d *Dispatcher) Dispatch(ctx context.Context, kind string, payload json.RawMessage) (Result, error) {
	handler, ok := d.handlers[kind]
	if !ok {
		return Result{}, ErrUnknownKind
	}
	return handler(ctx, payload)
}

func (d *Dispatcher) handleClosedInvoices(ctx context.Context, payload json.RawMessage) (Result, error) {
	return d.handleInvoiceBatch(ctx, KindInvoiceClosed, payload, closedInvoiceMessage)
}

func (d *Dispatcher) handleOverdueInvoices(ctx context.Context, payload json.RawMessage) (Result, error) {
	return d.handleInvoiceBatch(ctx, KindInvoiceOverdue, payload, overdueInvoiceMessage)
}

func (d *Dispatcher) handleInvoiceBatch(
	ctx context.Context,
	kind string,
	payload json.RawMessage,
	message func(InvoiceEvent) (string, string, error),
) (Result, error) {
	var events []InvoiceEvent
	if err := json.Unmarshal(payload, &events); err != nil {
		return Result{}, apperrors.NewBadRequest("invalid invoice batch payload").WithInternal(err)
	}

	var result Result
	for i, event := range events {
		if err := d.processInvoice(ctx, kind, event, message); err != nil {
			result.Failed++
			result.Err = multierr.Append(result.Err, err)
			d.log.Warn("invoice event rejected",
				zap.String("kind", kind),
				zap.Int("index", i),
				zap.Int64("user_id", event.UserID),
				zap.Error(err),
			)
			continue
		}
		result.Accepted++
	}
	return result, nil
}

func (d *Dispatcher) processInvoice(
	ctx context.Context,
	kind string,
	event InvoiceEvent,
	message func(InvoiceEvent) (string, string, error),
) error {
	if err := validator.ValidateStruct(event); err != nil {
		metrics.IntakeFailures.WithLabelValues(kind, "validation").Inc()
		return apperrors.NewBadRequest(err.Error())
	}

	title, content, err := message(event)
	if err != nil {
		metrics.IntakeFailures.WithLabelValues(kind, "validation").Inc()
		return apperrors.NewBadRequest(err.Error())
	}

	_, err = d.notifications.CreateAndEmit(ctx, services.CreateNotificationInput{
		UserID:      event.UserID,
		Title:       title,
		Content:     content,
		ReferenceID: event.InvoiceID,
		Type:        models.TypeInvoices,
		Metadata: map[string]any{
			"month":      event.Month,
			"creditCard": event.CreditCard,
		},
	})
	if err != nil {
		metrics.IntakeFailures.WithLabelValues(kind, "store").Inc()
	}
	return err
}

func (d *Dispatcher) handleReportReady(ctx context.Context, payload json.RawMessage) (Result, error) {
	var event ReportEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return Result{}, apperrors.NewBadRequest("invalid report payload").WithInternal(err)
	}

	if err := validator.ValidateStruct(event); err != nil {
		metrics.IntakeFailures.WithLabelValues(KindReportReady, "validation").Inc()
		return Result{Failed: 1, Err: apperrors.NewBadRequest(err.Error())}, nil
	}

	title, content, err := reportReadyMessage(event)
	if err != nil {
		metrics.IntakeFailures.WithLabelValues(KindReportReady, "validation").Inc()
		return Result{Failed: 1, Err: apperrors.NewBadRequest(err.Error())}, nil
	}

	_, err = d.notifications.CreateAndEmit(ctx, services.CreateNotificationInput{
		UserID:      event.UserID,
		Title:       title,
		Content:     content,
		ReferenceID: event.ReportID,
		Type:        models.TypeReports,
		Metadata:    map[string]any{"month": event.Month},
	})
	if err != nil {
		metrics.IntakeFailures.WithLabelValues(KindReportReady, "store").Inc()
		return Result{Failed: 1, Err: err}, nil
	}
	return Result{Accepted: 1}, nil
}
