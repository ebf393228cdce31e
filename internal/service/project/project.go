package project

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkravets/projectdesk/internal/apperrors"
	"github.com/mkravets/projectdesk/internal/logger"
	"github.com/mkravets/projectdesk/internal/models"
	"github.com/mkravets/projectdesk/internal/repository"
	"github.com/mkravets/projectdesk/internal/service/payment"
)

// feeCharger is the slice of the payment service the fee gate needs
type feeCharger interface {
	HasSufficientBalance(ctx context.Context, userID string, amount decimal.Decimal) (bool, error)
	Debit(ctx context.Context, userID string, amount decimal.Decimal, reference string, description string) (payment.BalanceUpdate, error)
}

type CreateParams struct {
	Title       string
	Description string
	Status      string
	Priority    string
	StartDate   time.Time
	EndDate     time.Time
	Tags        []string
}

type UpdateParams struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	Progress    *int
	StartDate   *time.Time
	EndDate     *time.Time
	Tags        []string
}

type Stats struct {
	Total      int
	Planning   int
	InProgress int
	Completed  int
	OnHold     int
	Cancelled  int
}

type ProjectService struct {
	storage  repository.Storage
	payments feeCharger
	fee      decimal.Decimal
	logger   logger.Logger
}

func NewService(storage repository.Storage, payments feeCharger, fee decimal.Decimal, l logger.Logger) *ProjectService {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &ProjectService{
		storage:  storage,
		payments: payments,
		fee:      fee,
		logger:   l,
	}
}

// Fee returns the fixed project creation fee
func (s *ProjectService) Fee() decimal.Decimal {
	return s.fee
}

// CanCreateProject reports whether the balance covers the creation fee
func (s *ProjectService) CanCreateProject(ctx context.Context, userID string) (bool, error) {
	return s.payments.HasSufficientBalance(ctx, userID, s.fee)
}

// CreateProject checks the balance, creates the project and debits the fixed
// fee with the new project id as the transaction reference.
// Fails with apperrors.ErrBalanceInsufficient before any state changes
func (s *ProjectService) CreateProject(ctx context.Context, userID string, params CreateParams) (models.Project, error) {
	p := models.Project{
		UserID:      userID,
		Title:       params.Title,
		Description: params.Description,
		Status:      params.Status,
		Priority:    params.Priority,
		StartDate:   params.StartDate,
		EndDate:     params.EndDate,
		Tags:        params.Tags,
	}
	if p.Status == "" {
		p.Status = models.ProjectStatusPlanning
	}
	if p.Priority == "" {
		p.Priority = models.ProjectPriorityMedium
	}
	now := time.Now()
	if p.StartDate.IsZero() {
		p.StartDate = now
	}
	if p.EndDate.IsZero() {
		p.EndDate = now
	}

	// Gate on the fee before touching any state. The debit below rejects on
	// its own if a concurrent operation drained the balance in between
	ok, err := s.CanCreateProject(ctx, userID)
	if err != nil {
		return p, fmt.Errorf("failed to check balance: %w", err)
	}
	if !ok {
		return p, apperrors.ErrBalanceInsufficient
	}

	created, err := s.storage.Project().CreateProject(ctx, p)
	if err != nil {
		return created, err
	}

	if _, err := s.payments.Debit(ctx, userID, s.fee, created.ID.String(), "Project creation fee"); err != nil {
		return created, fmt.Errorf("failed to charge project creation fee: %w", err)
	}

	s.logger.Info("Project created", "user_id", userID, "project_id", created.ID, "fee", s.fee.String())
	return created, nil
}

func (s *ProjectService) GetProject(ctx context.Context, id uuid.UUID, userID string) (models.Project, error) {
	return s.storage.Project().GetProject(ctx, id, userID)
}

func (s *ProjectService) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	return s.storage.Project().ListProjects(ctx, userID)
}

func (s *ProjectService) ListProjectsByStatus(ctx context.Context, userID string, status string) ([]models.Project, error) {
	return s.storage.Project().ListProjectsByStatus(ctx, userID, status)
}

// SearchProjects matches the query against title, description and tags,
// case insensitive
func (s *ProjectService) SearchProjects(ctx context.Context, userID string, query string) ([]models.Project, error) {
	return s.storage.Project().SearchProjects(ctx, userID, query)
}

func (s *ProjectService) UpdateProject(ctx context.Context, id uuid.UUID, userID string, params UpdateParams) (models.Project, error) {
	p, err := s.storage.Project().GetProject(ctx, id, userID)
	if err != nil {
		return p, err
	}

	if params.Title != nil {
		p.Title = *params.Title
	}
	if params.Description != nil {
		p.Description = *params.Description
	}
	if params.Status != nil {
		p.Status = *params.Status
	}
	if params.Priority != nil {
		p.Priority = *params.Priority
	}
	if params.Progress != nil {
		p.Progress = clampProgress(*params.Progress)
	}
	if params.StartDate != nil {
		p.StartDate = *params.StartDate
	}
	if params.EndDate != nil {
		p.EndDate = *params.EndDate
	}
	if params.Tags != nil {
		p.Tags = params.Tags
	}

	return s.storage.Project().UpdateProject(ctx, p)
}

// UpdateProgress sets the progress clamped into 0..100
func (s *ProjectService) UpdateProgress(ctx context.Context, id uuid.UUID, userID string, progress int) (models.Project, error) {
	clamped := clampProgress(progress)
	return s.UpdateProject(ctx, id, userID, UpdateParams{Progress: &clamped})
}

func (s *ProjectService) DeleteProject(ctx context.Context, id uuid.UUID, userID string) error {
	return s.storage.Project().DeleteProject(ctx, id, userID)
}

func (s *ProjectService) GetStats(ctx context.Context, userID string) (Stats, error) {
	counts, err := s.storage.Project().CountByStatus(ctx, userID)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count projects: %w", err)
	}

	stats := Stats{
		Planning:   counts[models.ProjectStatusPlanning],
		InProgress: counts[models.ProjectStatusInProgress],
		Completed:  counts[models.ProjectStatusCompleted],
		OnHold:     counts[models.ProjectStatusOnHold],
		Cancelled:  counts[models.ProjectStatusCancelled],
	}
	for _, n := range counts {
		stats.Total += n
	}

	return stats, nil
}

func clampProgress(progress int) int {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}
