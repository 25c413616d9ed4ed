// Package review drives the license review of a single directory user.
package review

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/roadside-admin/internal/audit"
	"github.com/baechuer/roadside-admin/internal/domain"
	"github.com/baechuer/roadside-admin/internal/logger"
	"github.com/baechuer/roadside-admin/middleware"
)

var (
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrNoSelection       = errors.New("no_selection")
)

type State string

const (
	StateIdle           State = "idle"
	StateLoadingLicense State = "loading_license"
	StateViewing        State = "viewing"
	StateApproving      State = "approving"
	StateRejecting      State = "rejecting"
)

// Upstream is the part of the directory the workflow writes to.
type Upstream interface {
	GetLicenseImages(ctx context.Context, email string) domain.LicenseImages
	UpdateLicenseStatus(ctx context.Context, email string, decision domain.Decision) error
}

// Records is the reviewer's current record set.
type Records interface {
	Find(email string) (domain.User, bool)
	ApplyStatus(email string, status domain.LicenseStatus) int
}

// Snapshot is a read-only copy of the workflow.
type Snapshot struct {
	State  State                `json:"state"`
	User   *domain.User         `json:"user,omitempty"`
	Images domain.LicenseImages `json:"images"`
}

type Workflow struct {
	upstream Upstream
	records  Records
	log      DecisionLog
	audit    *audit.Logger
	now      func() time.Time

	mu     sync.Mutex
	state  State
	user   *domain.User
	images domain.LicenseImages
	// opened changes on every Open/Close so a late image load for a
	// previous selection is dropped.
	opened uint64
}

func NewWorkflow(upstream Upstream, records Records, log DecisionLog, auditor *audit.Logger) *Workflow {
	if log == nil {
		log = NopDecisionLog{}
	}
	if auditor == nil {
		auditor = audit.New(logger.Log)
	}
	return &Workflow{
		upstream: upstream,
		records:  records,
		log:      log,
		audit:    auditor,
		now:      time.Now,
		state:    StateIdle,
	}
}

func (w *Workflow) Current() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workflow) snapshotLocked() Snapshot {
	s := Snapshot{State: w.state, Images: w.images}
	if w.user != nil {
		u := *w.user
		s.User = &u
	}
	return s
}

func (w *Workflow) deciding() bool {
	return w.state == StateApproving || w.state == StateRejecting
}

// Open selects the user with the given email and loads the license scans.
// Image failures are soft: the workflow still reaches Viewing with both
// images absent.
func (w *Workflow) Open(ctx context.Context, email string) (Snapshot, error) {
	email = strings.TrimSpace(email)

	w.mu.Lock()
	if w.deciding() {
		w.mu.Unlock()
		return Snapshot{}, ErrInvalidTransition
	}
	u, ok := w.records.Find(email)
	if !ok {
		w.mu.Unlock()
		return Snapshot{}, ErrNoSelection
	}
	w.opened++
	ticket := w.opened
	w.state = StateLoadingLicense
	w.user = &u
	w.images = domain.LicenseImages{}
	w.mu.Unlock()

	images := w.upstream.GetLicenseImages(ctx, email)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.opened != ticket || w.state != StateLoadingLicense {
		// Closed or reopened meanwhile.
		return w.snapshotLocked(), ErrInvalidTransition
	}
	w.state = StateViewing
	w.images = images
	w.audit.LicenseOpened(ctx, email, images.Front != nil, images.Back != nil)
	return w.snapshotLocked(), nil
}

// Decide sends the reviewer's decision upstream. Only on success is the
// local record patched and the workflow returned to Idle; on failure the
// record set is untouched and the reviewer stays on the license.
func (w *Workflow) Decide(ctx context.Context, decision domain.Decision) (domain.User, error) {
	if _, err := domain.ParseDecision(string(decision)); err != nil {
		return domain.User{}, err
	}

	w.mu.Lock()
	if w.state != StateViewing || w.user == nil {
		w.mu.Unlock()
		return domain.User{}, ErrInvalidTransition
	}
	if decision == domain.DecisionApproved {
		w.state = StateApproving
	} else {
		w.state = StateRejecting
	}
	email := w.user.Email
	w.mu.Unlock()

	if err := w.upstream.UpdateLicenseStatus(ctx, email, decision); err != nil {
		w.mu.Lock()
		w.state = StateViewing
		w.mu.Unlock()
		w.audit.LicenseDecisionFailed(ctx, email, string(decision), err)
		return domain.User{}, err
	}

	status := decision.Status()
	patched := w.records.ApplyStatus(email, status)

	w.mu.Lock()
	updated := *w.user
	updated.LicenseStatus = status
	w.reset()
	w.mu.Unlock()

	w.audit.LicenseDecided(ctx, email, string(decision), patched)

	entry := Entry{
		ID:        uuid.New(),
		Email:     email,
		Decision:  decision,
		Status:    status,
		Reviewer:  middleware.GetAdmin(ctx),
		DecidedAt: w.now().UTC(),
	}
	if err := w.log.Record(ctx, entry); err != nil {
		// The upstream already holds the decision; the log is best effort.
		logger.Ctx(ctx).Error().Err(err).Str("email", email).Msg("decision_log_write_failed")
	}

	return updated, nil
}

// Close drops the selection. It is refused while a decision is in flight.
func (w *Workflow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.deciding() {
		return ErrInvalidTransition
	}
	w.reset()
	return nil
}

func (w *Workflow) reset() {
	w.opened++
	w.state = StateIdle
	w.user = nil
	w.images = domain.LicenseImages{}
}
