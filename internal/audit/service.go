package audit

import (
	"context"
	"log/slog"
	"time"

	"autodialer/internal/auth"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
// It is append-only; there are no update or delete methods.
type Repository interface {
	Append(ctx context.Context, e Event) error
	List(ctx context.Context) ([]Event, error)
}

var ErrInvalidEvent = errors.New("audit: invalid event")

type Service struct {
	repo  Repository
	log   *slog.Logger
	clock func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, log: log, clock: time.Now}
}

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Action == "" {
		return ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// Record appends an event for the operator found in ctx. Failures are logged,
// never returned.
func (s *Service) Record(ctx context.Context, action Action, ip, message string) {
	e := Event{Action: action, IPAddress: ip, Message: message}
	e.OperatorID, _ = auth.OperatorID(ctx)
	e.Role, _ = auth.Role(ctx)

	s.log.Info("operator action", "action", action, "operator_id", e.OperatorID, "message", message)
	if err := s.Append(ctx, e); err != nil {
		s.log.Warn("audit append failed", "action", action, "err", err)
	}
}

// Recent returns up to n events, newest first.
func (s *Service) Recent(ctx context.Context, n int) ([]Event, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if n <= 0 || n > len(all) {
		n = len(all)
	}
	out := make([]Event, 0, n)
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, all[i])
	}
	return out, nil
}
