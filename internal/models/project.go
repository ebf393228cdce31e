package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProjectStatusPlanning   = "planning"
	ProjectStatusInProgress = "in-progress"
	ProjectStatusCompleted  = "completed"
	ProjectStatusOnHold     = "on-hold"
	ProjectStatusCancelled  = "cancelled"
)

const (
	ProjectPriorityLow    = "low"
	ProjectPriorityMedium = "medium"
	ProjectPriorityHigh   = "high"
)

func ValidProjectStatus(status string) bool {
	switch status {
	case ProjectStatusPlanning, ProjectStatusInProgress, ProjectStatusCompleted,
		ProjectStatusOnHold, ProjectStatusCancelled:
		return true
	}
	return false
}

type Project struct {
	ID          uuid.UUID
	UserID      string
	Title       string
	Description string
	Status      string
	Priority    string
	Progress    int
	StartDate   time.Time
	EndDate     time.Time
	Tags        []string
	CreatedAt   time.Time
	ModifiedAt  time.Time
}
