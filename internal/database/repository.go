package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository handles tenant-scoped database operations.
type Repository struct {
	db *DB
}

// NewRepository creates a new repository.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateAgency inserts a new tenant.
func (r *Repository) CreateAgency(agency *Agency) error {
	_, err := r.db.Exec(`
		INSERT INTO agencies (id, name, plan, stripe_customer_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, agency.ID, agency.Name, agency.Plan, agency.StripeID, agency.CreatedAt, agency.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create agency: %w", err)
	}

	return nil
}

// GetAgency fetches a tenant by ID.
func (r *Repository) GetAgency(agencyID string) (*Agency, error) {
	var agency Agency
	var stripeID sql.NullString

	err := r.db.QueryRow(`
		SELECT id, name, plan, stripe_customer_id, created_at, updated_at
		FROM agencies WHERE id = ?
	`, agencyID).Scan(
		&agency.ID, &agency.Name, &agency.Plan, &stripeID,
		&agency.CreatedAt, &agency.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agency: %w", err)
	}

	agency.StripeID = stripeID.String
	return &agency, nil
}

// UpdateAgencyPlan changes a tenant's plan tier.
func (r *Repository) UpdateAgencyPlan(agencyID, plan, stripeCustomerID string) error {
	_, err := r.db.Exec(`
		UPDATE agencies SET plan = ?, stripe_customer_id = ?, updated_at = ? WHERE id = ?
	`, plan, stripeCustomerID, time.Now(), agencyID)

	if err != nil {
		return fmt.Errorf("failed to update agency plan: %w", err)
	}

	return nil
}

// CreateAgent inserts an agent login.
func (r *Repository) CreateAgent(a *Agent) error {
	_, err := r.db.Exec(`
		INSERT INTO agents (id, agency_id, name, email, pin_hash, pin_salt,
			failed_attempts, locked_until, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.AgencyID, a.Name, a.Email, a.PINHash, a.PINSalt,
		a.FailedAttempts, a.LockedUntil, a.CreatedAt, a.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	return nil
}

// GetAgentByEmail looks up an agent login within an agency.
func (r *Repository) GetAgentByEmail(agencyID, email string) (*Agent, error) {
	stmt, err := r.db.GetPreparedStatement("get_agent_by_email")
	if err != nil {
		return nil, err
	}

	var a Agent
	var lockedUntil sql.NullTime

	err = stmt.QueryRow(agencyID, email).Scan(
		&a.ID, &a.AgencyID, &a.Name, &a.Email, &a.PINHash, &a.PINSalt,
		&a.FailedAttempts, &lockedUntil, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	if lockedUntil.Valid {
		a.LockedUntil = &lockedUntil.Time
	}

	return &a, nil
}

// UpdateAgentLoginState persists the failed-attempt counter and lockout window.
func (r *Repository) UpdateAgentLoginState(agentID string, failedAttempts int, lockedUntil *time.Time) error {
	_, err := r.db.Exec(`
		UPDATE agents SET failed_attempts = ?, locked_until = ?, updated_at = ? WHERE id = ?
	`, failedAttempts, lockedUntil, time.Now(), agentID)

	if err != nil {
		return fmt.Errorf("failed to update agent login state: %w", err)
	}

	return nil
}

// CreateCustomer inserts a customer row.
func (r *Repository) CreateCustomer(c *Customer) error {
	_, err := r.db.Exec(`
		INSERT INTO customers (id, agency_id, name, email, tenure_months, product_count,
			retention_score, engagement, claims_satisfied, nps, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.AgencyID, c.Name, c.Email, c.TenureMonths, c.ProductCount,
		c.RetentionScore, c.Engagement, c.ClaimsSatisfied, c.NPS, c.CreatedAt, c.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

// BulkCreateCustomers inserts customers in a single transaction.
func (r *Repository) BulkCreateCustomers(customers []*Customer) error {
	if len(customers) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO customers (id, agency_id, name, email, tenure_months, product_count,
			retention_score, engagement, claims_satisfied, nps, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare bulk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range customers {
		if _, err := stmt.Exec(c.ID, c.AgencyID, c.Name, c.Email, c.TenureMonths,
			c.ProductCount, c.RetentionScore, c.Engagement, c.ClaimsSatisfied,
			c.NPS, c.CreatedAt, c.UpdatedAt); err != nil {
			return fmt.Errorf("failed to insert customer %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// GetCustomer fetches one customer, scoped to the agency.
func (r *Repository) GetCustomer(agencyID, customerID string) (*Customer, error) {
	row := r.db.QueryRow(`
		SELECT id, agency_id, name, email, tenure_months, product_count,
			retention_score, engagement, claims_satisfied, nps, created_at, updated_at
		FROM customers WHERE agency_id = ? AND id = ?
	`, agencyID, customerID)

	return scanCustomer(row)
}

// ListCustomers returns all customers for an agency.
func (r *Repository) ListCustomers(agencyID string) ([]*Customer, error) {
	rows, err := r.db.Query(`
		SELECT id, agency_id, name, email, tenure_months, product_count,
			retention_score, engagement, claims_satisfied, nps, created_at, updated_at
		FROM customers WHERE agency_id = ? ORDER BY created_at ASC
	`, agencyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []*Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}

	return customers, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCustomer(row rowScanner) (*Customer, error) {
	var c Customer
	var email sql.NullString
	var claims sql.NullBool
	var nps sql.NullInt64

	err := row.Scan(
		&c.ID, &c.AgencyID, &c.Name, &email, &c.TenureMonths, &c.ProductCount,
		&c.RetentionScore, &c.Engagement, &claims, &nps, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}

	c.Email = email.String
	if claims.Valid {
		v := claims.Bool
		c.ClaimsSatisfied = &v
	}
	if nps.Valid {
		v := int(nps.Int64)
		c.NPS = &v
	}

	return &c, nil
}

// CreateTask inserts a task row.
func (r *Repository) CreateTask(t *Task) error {
	_, err := r.db.Exec(`
		INSERT INTO tasks (id, agency_id, customer_id, assignee_id, title, notes,
			status, priority, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.AgencyID, t.CustomerID, t.AssigneeID, t.Title, t.Notes,
		t.Status, t.Priority, t.DueDate, t.CreatedAt, t.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetTask fetches one task, scoped to the agency.
func (r *Repository) GetTask(agencyID, taskID string) (*Task, error) {
	row := r.db.QueryRow(`
		SELECT id, agency_id, customer_id, assignee_id, title, notes,
			status, priority, due_date, created_at, updated_at
		FROM tasks WHERE agency_id = ? AND id = ?
	`, agencyID, taskID)

	return scanTask(row)
}

// ListTasks returns an agency's tasks, optionally filtered by status.
func (r *Repository) ListTasks(agencyID, status string) ([]*Task, error) {
	query := `
		SELECT id, agency_id, customer_id, assignee_id, title, notes,
			status, priority, due_date, created_at, updated_at
		FROM tasks WHERE agency_id = ?`
	args := []interface{}{agencyID}

	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var customerID, assigneeID, notes sql.NullString
	var dueDate sql.NullTime

	err := row.Scan(
		&t.ID, &t.AgencyID, &customerID, &assigneeID, &t.Title, &notes,
		&t.Status, &t.Priority, &dueDate, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	if customerID.Valid {
		t.CustomerID = &customerID.String
	}
	if assigneeID.Valid {
		t.AssigneeID = &assigneeID.String
	}
	t.Notes = notes.String
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}

	return &t, nil
}

// UpdateTask writes mutable task fields, guarded by the expected updated_at
// timestamp. Returns false when the row was modified since the caller read it.
func (r *Repository) UpdateTask(t *Task, expectedUpdatedAt time.Time) (bool, error) {
	now := time.Now()
	result, err := r.db.Exec(`
		UPDATE tasks SET customer_id = ?, assignee_id = ?, title = ?, notes = ?,
			status = ?, priority = ?, due_date = ?, updated_at = ?
		WHERE agency_id = ? AND id = ? AND updated_at = ?
	`, t.CustomerID, t.AssigneeID, t.Title, t.Notes, t.Status, t.Priority,
		t.DueDate, now, t.AgencyID, t.ID, expectedUpdatedAt)

	if err != nil {
		return false, fmt.Errorf("failed to update task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}

	if affected > 0 {
		t.UpdatedAt = now
	}
	return affected > 0, nil
}

// DeleteTask removes a task, scoped to the agency.
func (r *Repository) DeleteTask(agencyID, taskID string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM tasks WHERE agency_id = ? AND id = ?`, agencyID, taskID)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}

	return affected > 0, nil
}

// SaveSnapshot upserts a customer's latest propensity snapshot.
func (r *Repository) SaveSnapshot(s *PropensitySnapshot) error {
	stmt, err := r.db.GetPreparedStatement("insert_snapshot")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(s.ID, s.AgencyID, s.CustomerID, s.Score, s.Tier,
		s.EstimatedReferrals, s.Breakdown, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// GetTopProspects returns an agency's highest-scoring customers.
func (r *Repository) GetTopProspects(agencyID string, limit int) ([]*PropensitySnapshot, error) {
	stmt, err := r.db.GetPreparedStatement("get_top_prospects")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(agencyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top prospects: %w", err)
	}
	defer rows.Close()

	var snapshots []*PropensitySnapshot
	for rows.Next() {
		var s PropensitySnapshot
		var breakdown sql.NullString

		if err := rows.Scan(&s.ID, &s.AgencyID, &s.CustomerID, &s.CustomerName,
			&s.Score, &s.Tier, &s.EstimatedReferrals, &breakdown, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		s.Breakdown = breakdown.String
		snapshots = append(snapshots, &s)
	}

	return snapshots, rows.Err()
}

// RecordScoringRun logs a scoring pass for quota accounting.
func (r *Repository) RecordScoringRun(agencyID string, customersScored int) error {
	_, err := r.db.Exec(`
		INSERT INTO scoring_runs (id, agency_id, customers_scored, created_at)
		VALUES (?, ?, ?, ?)
	`, uuid.New().String(), agencyID, customersScored, time.Now())

	if err != nil {
		return fmt.Errorf("failed to record scoring run: %w", err)
	}

	return nil
}

// CountCustomersScoredSince returns quota usage since the cutoff.
func (r *Repository) CountCustomersScoredSince(agencyID string, since time.Time) (int, error) {
	stmt, err := r.db.GetPreparedStatement("count_scoring_runs_since")
	if err != nil {
		return 0, err
	}

	var count int
	if err := stmt.QueryRow(agencyID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count scoring runs: %w", err)
	}

	return count, nil
}

// CreatePayment records a Stripe charge.
func (r *Repository) CreatePayment(agencyID, stripePaymentID, currency, status, paymentType string, amount int64) (*Payment, error) {
	payment := &Payment{
		ID:              uuid.New().String(),
		AgencyID:        agencyID,
		StripePaymentID: stripePaymentID,
		Amount:          amount,
		Currency:        currency,
		Status:          status,
		Type:            paymentType,
		CreatedAt:       time.Now(),
	}

	_, err := r.db.Exec(`
		INSERT INTO payments (id, agency_id, stripe_payment_id, amount, currency, status, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, payment.ID, payment.AgencyID, payment.StripePaymentID, payment.Amount,
		payment.Currency, payment.Status, payment.Type, payment.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	return payment, nil
}
