package service

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/faculty-timetable-api/internal/calendar"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	"github.com/noah-isme/faculty-timetable-api/pkg/jobs"
	"github.com/noah-isme/faculty-timetable-api/pkg/mailer"
)

// Notification job types.
const (
	JobSubstituteRequested = "substitute.requested"
	JobSubstituteResolved  = "substitute.resolved"
)

var (
	requestedTemplate = template.Must(template.New("requested").Parse(`Dear {{.Request.SubstituteName}},

{{.Request.RequesterName}} has asked you to take their class:

  Course: {{.Request.CourseCode}} {{.Request.CourseName}}
  Batch:  {{.Request.BatchName}}{{if .Request.Section}} {{.Request.Section}}{{end}}
  Date:   {{.Date}} ({{.Request.Day}})
  Period: {{.Request.Period}} ({{.Request.StartTime}}-{{.Request.EndTime}})
  Reason: {{.Request.Reason}}

Approve: {{.ApproveURL}}
Reject:  {{.RejectURL}}

These links can be used once and expire on {{.Expires}}.
`))

	resolvedTemplate = template.Must(template.New("resolved").Parse(`Dear {{.Request.RequesterName}},

Your substitute request for {{.Request.CourseCode}} ({{.Request.BatchName}}) on {{.Date}}, period {{.Request.Period}}, was {{.Status}} by {{.Request.SubstituteName}}.
{{if .Request.ResponseMessage}}
Message: {{.Request.ResponseMessage}}
{{end}}`))
)

// SubstituteNotification is the payload of a notification job.
type SubstituteNotification struct {
	Request models.SubstituteRequestDetail
	// Token is the raw email action token; only set for new requests.
	Token string
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// NotificationConfig holds the public link settings.
type NotificationConfig struct {
	PublicBaseURL string
	APIPrefix     string
}

// NotificationService renders substitute emails and hands them to the job queue.
type NotificationService struct {
	sender  mailer.Sender
	queue   jobEnqueuer
	cfg     NotificationConfig
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs a NotificationService. AttachQueue must be called before enqueueing.
func NewNotificationService(sender mailer.Sender, cfg NotificationConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &NotificationService{sender: sender, cfg: cfg, metrics: metrics, logger: logger}
}

// AttachQueue sets the queue whose handler is Handle.
func (s *NotificationService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// NotifyRequested enqueues the approve/reject email to the substitute.
func (s *NotificationService) NotifyRequested(_ context.Context, req models.SubstituteRequestDetail, token string) error {
	return s.enqueue(JobSubstituteRequested, SubstituteNotification{Request: req, Token: token})
}

// NotifyResolved enqueues the status email to the requester.
func (s *NotificationService) NotifyResolved(_ context.Context, req models.SubstituteRequestDetail) error {
	return s.enqueue(JobSubstituteResolved, SubstituteNotification{Request: req})
}

func (s *NotificationService) enqueue(kind string, payload SubstituteNotification) error {
	if s.queue == nil {
		s.metrics.RecordNotification(kind, "dropped")
		return fmt.Errorf("notification queue not configured")
	}
	job := jobs.Job{ID: uuid.NewString(), Type: kind, Payload: payload}
	if err := s.queue.Enqueue(job); err != nil {
		s.metrics.RecordNotification(kind, "dropped")
		return err
	}
	s.metrics.RecordNotification(kind, "queued")
	return nil
}

// Handle renders and sends one notification job. Returned errors are retried by the queue.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(SubstituteNotification)
	if !ok {
		return fmt.Errorf("unexpected notification payload %T", job.Payload)
	}
	msg, err := s.Render(job.Type, payload)
	if err != nil {
		return err
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Warn("notification attempt failed",
			zap.String("job_id", job.ID),
			zap.String("type", job.Type),
			zap.Int("attempt", job.Attempt),
			zap.Error(err),
		)
		return err
	}
	s.metrics.RecordNotification(job.Type, "sent")
	return nil
}

// OnFailure is the queue hook for jobs that exhausted their retries.
func (s *NotificationService) OnFailure(job jobs.Job, err error) {
	s.metrics.RecordNotification(job.Type, "failed")
	fields := []zap.Field{zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err)}
	if payload, ok := job.Payload.(SubstituteNotification); ok {
		fields = append(fields, zap.String("request_id", payload.Request.ID))
	}
	s.logger.Error("notification failed", fields...)
}

// Render builds the email for a notification job.
func (s *NotificationService) Render(kind string, payload SubstituteNotification) (mailer.Message, error) {
	req := payload.Request
	data := map[string]interface{}{
		"Request": req,
		"Date":    req.RequestDate.Format(calendar.DateLayout),
	}

	var (
		tmpl    *template.Template
		to      mail.Address
		subject string
	)
	switch kind {
	case JobSubstituteRequested:
		tmpl = requestedTemplate
		to = mail.Address{Name: req.SubstituteName, Address: req.SubstituteEmail}
		subject = fmt.Sprintf("Substitute request: %s on %s period %d", req.CourseCode, data["Date"], req.Period)
		data["ApproveURL"], data["RejectURL"] = s.ActionLinks(payload.Token)
		data["Expires"] = req.TokenExpiresAt.Format(time.RFC1123)
	case JobSubstituteResolved:
		tmpl = resolvedTemplate
		to = mail.Address{Name: req.RequesterName, Address: req.RequesterEmail}
		subject = fmt.Sprintf("Substitute request %s", strings.ToLower(string(req.Status)))
		data["Status"] = strings.ToLower(string(req.Status))
	default:
		return mailer.Message{}, fmt.Errorf("unknown notification type %q", kind)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return mailer.Message{}, fmt.Errorf("render %s: %w", kind, err)
	}
	return mailer.Message{To: []mail.Address{to}, Subject: subject, TextBody: body.String()}, nil
}

// ActionLinks returns the one-click approve and reject URLs for a token.
func (s *NotificationService) ActionLinks(token string) (string, string) {
	base := s.cfg.PublicBaseURL + s.cfg.APIPrefix + "/substitute/process-token?token=" + url.QueryEscape(token)
	return base + "&approved=true", base + "&approved=false"
}
