package tasks

import (
	"database/sql"
	"time"

	"github.com/Jahansayem/agencydesk/internal/database"
	"github.com/Jahansayem/agencydesk/internal/errors"
)

var validStatuses = map[string]bool{
	database.TaskStatusOpen:       true,
	database.TaskStatusInProgress: true,
	database.TaskStatusDone:       true,
	database.TaskStatusCancelled:  true,
}

var validPriorities = map[string]bool{
	"low":    true,
	"normal": true,
	"high":   true,
}

// CreateRequest carries the fields accepted when creating a task.
type CreateRequest struct {
	Title      string     `json:"title" binding:"required"`
	Notes      string     `json:"notes"`
	CustomerID *string    `json:"customer_id"`
	AssigneeID *string    `json:"assignee_id"`
	Priority   string     `json:"priority"`
	DueDate    *time.Time `json:"due_date"`
}

// UpdateRequest carries a task update. UpdatedAt must echo the timestamp the
// client last read; a mismatch means someone else wrote first.
type UpdateRequest struct {
	Title      string     `json:"title" binding:"required"`
	Notes      string     `json:"notes"`
	CustomerID *string    `json:"customer_id"`
	AssigneeID *string    `json:"assignee_id"`
	Status     string     `json:"status" binding:"required"`
	Priority   string     `json:"priority" binding:"required"`
	DueDate    *time.Time `json:"due_date"`
	UpdatedAt  time.Time  `json:"updated_at" binding:"required"`
}

// Service provides tenant-scoped task management.
type Service struct {
	repo *database.Repository
}

// NewService creates a task service.
func NewService(repo *database.Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new task.
func (s *Service) Create(agencyID string, req CreateRequest) (*database.Task, error) {
	if req.Title == "" {
		return nil, errors.NewValidationError("title is required")
	}
	if req.Priority != "" && !validPriorities[req.Priority] {
		return nil, errors.NewValidationError("invalid priority", req.Priority)
	}

	task := database.NewTask(agencyID, req.Title)
	task.Notes = req.Notes
	task.CustomerID = req.CustomerID
	task.AssigneeID = req.AssigneeID
	task.DueDate = req.DueDate
	if req.Priority != "" {
		task.Priority = req.Priority
	}

	if task.CustomerID != nil {
		if _, err := s.repo.GetCustomer(agencyID, *task.CustomerID); err != nil {
			if err == sql.ErrNoRows {
				return nil, errors.NewNotFoundError("customer")
			}
			return nil, errors.NewInternalError("failed to verify customer", err)
		}
	}

	if err := s.repo.CreateTask(task); err != nil {
		return nil, errors.NewInternalError("failed to create task", err)
	}

	return task, nil
}

// Get returns one task within the agency.
func (s *Service) Get(agencyID, taskID string) (*database.Task, error) {
	task, err := s.repo.GetTask(agencyID, taskID)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("task")
	}
	if err != nil {
		return nil, errors.NewInternalError("failed to get task", err)
	}
	return task, nil
}

// List returns the agency's tasks, optionally filtered by status.
func (s *Service) List(agencyID, status string) ([]*database.Task, error) {
	if status != "" && !validStatuses[status] {
		return nil, errors.NewValidationError("invalid status filter", status)
	}

	list, err := s.repo.ListTasks(agencyID, status)
	if err != nil {
		return nil, errors.NewInternalError("failed to list tasks", err)
	}
	return list, nil
}

// Update applies a full task update guarded by the updated_at precondition.
// A stale timestamp returns a conflict instead of silently overwriting.
func (s *Service) Update(agencyID, taskID string, req UpdateRequest) (*database.Task, error) {
	if !validStatuses[req.Status] {
		return nil, errors.NewValidationError("invalid status", req.Status)
	}
	if !validPriorities[req.Priority] {
		return nil, errors.NewValidationError("invalid priority", req.Priority)
	}

	task, err := s.Get(agencyID, taskID)
	if err != nil {
		return nil, err
	}

	task.Title = req.Title
	task.Notes = req.Notes
	task.CustomerID = req.CustomerID
	task.AssigneeID = req.AssigneeID
	task.Status = req.Status
	task.Priority = req.Priority
	task.DueDate = req.DueDate

	ok, err := s.repo.UpdateTask(task, req.UpdatedAt)
	if err != nil {
		return nil, errors.NewInternalError("failed to update task", err)
	}
	if !ok {
		return nil, errors.NewConflictError("task was modified by another agent")
	}

	return task, nil
}

// Delete removes a task within the agency.
func (s *Service) Delete(agencyID, taskID string) error {
	ok, err := s.repo.DeleteTask(agencyID, taskID)
	if err != nil {
		return errors.NewInternalError("failed to delete task", err)
	}
	if !ok {
		return errors.NewNotFoundError("task")
	}
	return nil
}
