package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jahansayem/agencydesk/internal/database"
	"github.com/Jahansayem/agencydesk/internal/errors"
)

func setupService(t *testing.T) (*Service, *database.Agency, *database.Agency) {
	t.Helper()

	db, err := database.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := database.NewRepository(db)

	agency := database.NewAgency("Harbor Insurance Group")
	require.NoError(t, repo.CreateAgency(agency))

	other := database.NewAgency("Rival Brokerage")
	require.NoError(t, repo.CreateAgency(other))

	return NewService(repo), agency, other
}

func TestCreateAndGet(t *testing.T) {
	svc, agency, _ := setupService(t)

	task, err := svc.Create(agency.ID, CreateRequest{Title: "Call renewal list", Priority: "high"})
	require.NoError(t, err)
	assert.Equal(t, database.TaskStatusOpen, task.Status)
	assert.Equal(t, "high", task.Priority)

	got, err := svc.Get(agency.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, "Call renewal list", got.Title)
}

func TestCreateValidation(t *testing.T) {
	svc, agency, _ := setupService(t)

	_, err := svc.Create(agency.ID, CreateRequest{Title: ""})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryValidation, errors.ToAppError(err).Category)

	_, err = svc.Create(agency.ID, CreateRequest{Title: "x", Priority: "urgent-ish"})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryValidation, errors.ToAppError(err).Category)
}

func TestCreateRejectsUnknownCustomer(t *testing.T) {
	svc, agency, _ := setupService(t)

	missing := "no-such-customer"
	_, err := svc.Create(agency.ID, CreateRequest{Title: "Follow up", CustomerID: &missing})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryNotFound, errors.ToAppError(err).Category)
}

func TestListFiltersByStatus(t *testing.T) {
	svc, agency, _ := setupService(t)

	open, err := svc.Create(agency.ID, CreateRequest{Title: "Open one"})
	require.NoError(t, err)

	done, err := svc.Create(agency.ID, CreateRequest{Title: "Done one"})
	require.NoError(t, err)

	_, err = svc.Update(agency.ID, done.ID, UpdateRequest{
		Title:     done.Title,
		Status:    database.TaskStatusDone,
		Priority:  done.Priority,
		UpdatedAt: done.UpdatedAt,
	})
	require.NoError(t, err)

	list, err := svc.List(agency.ID, database.TaskStatusOpen)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, open.ID, list[0].ID)

	all, err := svc.List(agency.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.List(agency.ID, "bogus")
	require.Error(t, err)
}

func TestUpdateConflictOnStaleTimestamp(t *testing.T) {
	svc, agency, _ := setupService(t)

	task, err := svc.Create(agency.ID, CreateRequest{Title: "Quote follow-up"})
	require.NoError(t, err)

	updated, err := svc.Update(agency.ID, task.ID, UpdateRequest{
		Title:     "Quote follow-up (rev)",
		Status:    database.TaskStatusInProgress,
		Priority:  "normal",
		UpdatedAt: task.UpdatedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, database.TaskStatusInProgress, updated.Status)

	// Replaying the first timestamp must now conflict.
	_, err = svc.Update(agency.ID, task.ID, UpdateRequest{
		Title:     "Lost update",
		Status:    database.TaskStatusDone,
		Priority:  "normal",
		UpdatedAt: task.UpdatedAt,
	})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryConflict, errors.ToAppError(err).Category)
}

func TestTenantIsolation(t *testing.T) {
	svc, agency, other := setupService(t)

	task, err := svc.Create(agency.ID, CreateRequest{Title: "Private task"})
	require.NoError(t, err)

	_, err = svc.Get(other.ID, task.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryNotFound, errors.ToAppError(err).Category)

	err = svc.Delete(other.ID, task.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryNotFound, errors.ToAppError(err).Category)

	list, err := svc.List(other.ID, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDelete(t *testing.T) {
	svc, agency, _ := setupService(t)

	task, err := svc.Create(agency.ID, CreateRequest{Title: "Temp"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(agency.ID, task.ID))

	_, err = svc.Get(agency.ID, task.ID)
	require.Error(t, err)
}

func TestDueDateRoundTrip(t *testing.T) {
	svc, agency, _ := setupService(t)

	due := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	task, err := svc.Create(agency.ID, CreateRequest{Title: "Renewal call", DueDate: &due})
	require.NoError(t, err)

	got, err := svc.Get(agency.ID, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(due))
}
