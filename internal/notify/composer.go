// Package notify composes admin push notifications and hands them to the
// delivery pipeline.
package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/baechuer/roadside-admin/internal/audit"
	"github.com/baechuer/roadside-admin/internal/logger"
	"github.com/baechuer/roadside-admin/middleware"
)

// ErrValidation carries the inline form message.
var ErrValidation = errors.New("Please fill in all required fields")

const (
	TargetAll    = "all"
	TargetCustom = "custom"

	StatusSent   = "Sent"
	StatusFailed = "Failed"

	historySize = 50
)

var validate = validator.New()

// Request is the composer form.
type Request struct {
	Title        string `json:"title" validate:"required,max=120"`
	Body         string `json:"body" validate:"required,max=1000"`
	Target       string `json:"target" validate:"omitempty,oneof=all custom"`
	CustomUserID string `json:"custom_user_id" validate:"required_if=Target custom,max=64"`
}

// Notification is a composed message as published and kept in history.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Target    string    `json:"target"`
	Sender    string    `json:"sender,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`
}

// Publisher delivers a notification to the push pipeline.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

type Composer struct {
	publisher Publisher
	audit     *audit.Logger
	now       func() time.Time

	mu      sync.Mutex
	history []Notification
}

func NewComposer(publisher Publisher, auditor *audit.Logger) *Composer {
	if publisher == nil {
		publisher = LogPublisher{}
	}
	if auditor == nil {
		auditor = audit.New(logger.Log)
	}
	return &Composer{
		publisher: publisher,
		audit:     auditor,
		now:       time.Now,
	}
}

// Normalize trims the form and applies the default target.
func (r Request) Normalize() Request {
	r.Title = strings.TrimSpace(r.Title)
	r.Body = strings.TrimSpace(r.Body)
	r.Target = strings.ToLower(strings.TrimSpace(r.Target))
	r.CustomUserID = strings.TrimSpace(r.CustomUserID)
	if r.Target == "" {
		r.Target = TargetAll
	}
	return r
}

// Validate reports ErrValidation for a blank title or body, an unknown
// target, or a custom target without a user id.
func (r Request) Validate() error {
	if err := validate.Struct(r.Normalize()); err != nil {
		return ErrValidation
	}
	return nil
}

// Send validates and publishes the notification. A publish failure is
// recorded in history as Failed and returned.
func (c *Composer) Send(ctx context.Context, req Request) (Notification, error) {
	req = req.Normalize()
	if err := validate.Struct(req); err != nil {
		return Notification{}, ErrValidation
	}

	target := req.Target
	if target == TargetCustom {
		target = "user:" + req.CustomUserID
	}

	n := Notification{
		ID:        uuid.New(),
		Title:     req.Title,
		Body:      req.Body,
		Target:    target,
		Sender:    middleware.GetAdmin(ctx),
		CreatedAt: c.now().UTC(),
		Status:    StatusSent,
	}

	err := c.publisher.Publish(ctx, n)
	if err != nil {
		n.Status = StatusFailed
	}
	c.remember(n)
	c.audit.NotificationSent(ctx, n.ID.String(), n.Target, n.Status)
	return n, err
}

func (c *Composer) remember(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, n)
	if len(c.history) > historySize {
		c.history = c.history[len(c.history)-historySize:]
	}
}

// History returns the most recent notifications, newest first.
func (c *Composer) History() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, 0, len(c.history))
	for i := len(c.history) - 1; i >= 0; i-- {
		out = append(out, c.history[i])
	}
	return out
}

// LogPublisher only logs; used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, n Notification) error {
	logger.Ctx(ctx).Info().
		Str("notification_id", n.ID.String()).
		Str("title", n.Title).
		Str("target", n.Target).
		Msg("notification_not_published_no_broker")
	return nil
}
