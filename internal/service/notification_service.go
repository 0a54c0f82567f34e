package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/gunaso/grievance-service/internal/domain"
	"github.com/gunaso/grievance-service/internal/events"
	"github.com/gunaso/grievance-service/internal/notify"
	"github.com/gunaso/grievance-service/internal/observability"
	"github.com/gunaso/grievance-service/internal/repository"
)

// NoRemarkPlaceholder stands in for the latest remark when a complaint has none.
const NoRemarkPlaceholder = "No remarks provided."

// DeliveryRunner executes notification deliveries off the caller's goroutine.
type DeliveryRunner interface {
	Submit(name string, fn func(ctx context.Context))
}

// NotificationService turns committed status changes and remarks into email/SMS messages for
// the complaint's creator. Every failure is logged and counted; none is returned to the writer.
type NotificationService struct {
	dispatcher events.Dispatcher
	complaints repository.ComplaintRepository
	updates    repository.ComplaintUpdateRepository
	users      repository.UserRepository
	email      notify.EmailSender
	sms        notify.SMSSender
	runner     DeliveryRunner
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NotificationDependencies bundles collaborators for the notifier.
type NotificationDependencies struct {
	Dispatcher    events.Dispatcher
	ComplaintRepo repository.ComplaintRepository
	UpdateRepo    repository.ComplaintUpdateRepository
	UserRepo      repository.UserRepository
	Email         notify.EmailSender
	SMS           notify.SMSSender
	Runner        DeliveryRunner
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		complaints: deps.ComplaintRepo,
		updates:    deps.UpdateRepo,
		users:      deps.UserRepo,
		email:      deps.Email,
		sms:        deps.SMS,
		runner:     deps.Runner,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventComplaintStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventComplaintRemarkAdded, n.handleRemarkAdded)
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	var payload events.StatusChangedPayload
	switch p := event.Payload.(type) {
	case events.StatusChangedPayload:
		payload = p
	case *events.StatusChangedPayload:
		payload = *p
	default:
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}

	complaint, creator, err := n.loadComplaintAndCreator(ctx, event.TrackingID)
	if err != nil {
		return err
	}

	remark := n.statusRemark(ctx, complaint, payload)

	email := strings.TrimSpace(creator.Email)
	phone := ""
	if creator.Profile != nil && creator.Profile.PhoneNumber != nil {
		phone = strings.TrimSpace(*creator.Profile.PhoneNumber)
	}
	if email == "" && phone == "" {
		n.logger.Debug("no notification channel on file", zap.String("tracking_id", complaint.TrackingID))
		return nil
	}

	subject := fmt.Sprintf("Update on your complaint %s", complaint.TrackingID)
	body := StatusMessage(complaint, payload.NewStatus, remark)

	n.deliver("status_changed", func(ctx context.Context) {
		if email != "" {
			n.sendEmail(ctx, complaint.TrackingID, subject, body, email)
		}
		if phone != "" {
			n.sendSMS(ctx, complaint.TrackingID, phone, body)
		}
	})
	return nil
}

// statusRemark prefers the text recorded with this transition, so a later write cannot
// pair its remark with this status.
func (n *NotificationService) statusRemark(ctx context.Context, complaint *domain.Complaint, payload events.StatusChangedPayload) string {
	for _, text := range []string{payload.Remark, payload.Text} {
		if text = strings.TrimSpace(text); text != "" {
			return text
		}
	}
	latest, err := n.updates.Latest(ctx, complaint.ID)
	switch {
	case err == nil && strings.TrimSpace(latest.Text) != "":
		return latest.Text
	case err != nil && !errors.Is(err, pgx.ErrNoRows):
		n.logger.Warn("latest remark lookup failed", zap.String("tracking_id", complaint.TrackingID), zap.Error(err))
	}
	return NoRemarkPlaceholder
}

func (n *NotificationService) handleRemarkAdded(ctx context.Context, event events.Event) error {
	var payload events.RemarkAddedPayload
	switch p := event.Payload.(type) {
	case events.RemarkAddedPayload:
		payload = p
	case *events.RemarkAddedPayload:
		payload = *p
	default:
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}

	complaint, err := n.complaints.GetByTrackingID(ctx, event.TrackingID)
	if err != nil {
		return err
	}
	if payload.AuthorID == complaint.CreatedBy {
		return nil
	}
	creator, err := n.users.GetByID(ctx, complaint.CreatedBy)
	if err != nil {
		return err
	}
	email := strings.TrimSpace(creator.Email)
	if email == "" {
		return nil
	}

	subject := fmt.Sprintf("New remark on your complaint %s", complaint.TrackingID)
	body := fmt.Sprintf("A new remark was added to your complaint %q (tracking id %s):\n\n%s",
		complaint.Title, complaint.TrackingID, payload.Text)

	n.deliver("remark_added", func(ctx context.Context) {
		n.sendEmail(ctx, complaint.TrackingID, subject, body, email)
	})
	return nil
}

// StatusMessage renders the status notification body.
func StatusMessage(complaint *domain.Complaint, status domain.ComplaintStatus, remark string) string {
	return fmt.Sprintf("Your complaint %q (tracking id %s) is now %s (%s).\nLatest remark: %s",
		complaint.Title, complaint.TrackingID, status.Label(), status, remark)
}

func (n *NotificationService) loadComplaintAndCreator(ctx context.Context, trackingID string) (*domain.Complaint, *domain.User, error) {
	complaint, err := n.complaints.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, nil, err
	}
	creator, err := n.users.GetByID(ctx, complaint.CreatedBy)
	if err != nil {
		return nil, nil, err
	}
	return complaint, creator, nil
}

func (n *NotificationService) deliver(name string, fn func(ctx context.Context)) {
	if n.runner == nil {
		fn(context.Background())
		return
	}
	n.runner.Submit(name, fn)
}

func (n *NotificationService) sendEmail(ctx context.Context, trackingID, subject, body, recipient string) {
	if n.email == nil {
		return
	}
	err := n.email.SendEmail(ctx, subject, body, []string{recipient})
	n.metrics.RecordNotification("email", err == nil)
	if err != nil {
		n.logger.Error("email notification failed",
			zap.String("tracking_id", trackingID),
			zap.String("recipient", recipient),
			zap.Error(err))
	}
}

func (n *NotificationService) sendSMS(ctx context.Context, trackingID, phone, message string) {
	if n.sms == nil {
		return
	}
	err := n.sms.SendSMS(ctx, phone, message)
	n.metrics.RecordNotification("sms", err == nil)
	if err != nil {
		n.logger.Error("sms notification failed",
			zap.String("tracking_id", trackingID),
			zap.String("phone", phone),
			zap.Error(err))
	}
}
