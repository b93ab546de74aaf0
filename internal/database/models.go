package database

import (
	"time"

	"github.com/google/uuid"

	"github.com/Jahansayem/agencydesk/internal/crosssell"
)

// Agency plan tiers. Free agencies are subject to the daily scoring quota.
const (
	PlanFree    = "free"
	PlanPremium = "premium"
)

// Task lifecycle states.
const (
	TaskStatusOpen       = "open"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
	TaskStatusCancelled  = "cancelled"
)

// Agency is a tenant. Every domain row hangs off an agency ID.
type Agency struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Plan      string    `json:"plan" db:"plan"`
	StripeID  string    `json:"-" db:"stripe_customer_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Agent is a staff login within an agency. PINs are stored salted and hashed;
// FailedAttempts and LockedUntil back the login lockout.
type Agent struct {
	ID             string     `json:"id" db:"id"`
	AgencyID       string     `json:"agency_id" db:"agency_id"`
	Name           string     `json:"name" db:"name"`
	Email          string     `json:"email" db:"email"`
	PINHash        string     `json:"-" db:"pin_hash"`
	PINSalt        string     `json:"-" db:"pin_salt"`
	FailedAttempts int        `json:"-" db:"failed_attempts"`
	LockedUntil    *time.Time `json:"-" db:"locked_until"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Customer is an insured client of an agency, carrying the attributes the
// propensity scorer consumes.
type Customer struct {
	ID              string    `json:"id" db:"id"`
	AgencyID        string    `json:"agency_id" db:"agency_id"`
	Name            string    `json:"name" db:"name"`
	Email           string    `json:"email,omitempty" db:"email"`
	TenureMonths    int       `json:"tenure_months" db:"tenure_months"`
	ProductCount    int       `json:"product_count" db:"product_count"`
	RetentionScore  float64   `json:"retention_score" db:"retention_score"`
	Engagement      string    `json:"engagement" db:"engagement"`
	ClaimsSatisfied *bool     `json:"claims_satisfied,omitempty" db:"claims_satisfied"`
	NPS             *int      `json:"nps,omitempty" db:"nps"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// PropensityInput converts the stored row into scorer input.
func (c *Customer) PropensityInput() crosssell.PropensityInput {
	return crosssell.PropensityInput{
		CustomerID:      c.ID,
		TenureMonths:    c.TenureMonths,
		ProductCount:    c.ProductCount,
		RetentionScore:  c.RetentionScore,
		Engagement:      crosssell.Engagement(c.Engagement),
		ClaimsSatisfied: c.ClaimsSatisfied,
		NPS:             c.NPS,
	}
}

// Task is an agency work item, optionally tied to a customer and an assignee.
type Task struct {
	ID         string     `json:"id" db:"id"`
	AgencyID   string     `json:"agency_id" db:"agency_id"`
	CustomerID *string    `json:"customer_id,omitempty" db:"customer_id"`
	AssigneeID *string    `json:"assignee_id,omitempty" db:"assignee_id"`
	Title      string     `json:"title" db:"title"`
	Notes      string     `json:"notes,omitempty" db:"notes"`
	Status     string     `json:"status" db:"status"`
	Priority   string     `json:"priority" db:"priority"`
	DueDate    *time.Time `json:"due_date,omitempty" db:"due_date"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// PropensitySnapshot is a persisted scoring result for one customer.
type PropensitySnapshot struct {
	ID                 string    `json:"id" db:"id"`
	AgencyID           string    `json:"agency_id" db:"agency_id"`
	CustomerID         string    `json:"customer_id" db:"customer_id"`
	CustomerName       string    `json:"customer_name,omitempty"`
	Score              float64   `json:"score" db:"score"`
	Tier               string    `json:"tier" db:"tier"`
	EstimatedReferrals float64   `json:"estimated_referrals" db:"estimated_referrals"`
	Breakdown          string    `json:"breakdown" db:"breakdown"` // JSON string
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// Payment records a Stripe charge for an agency subscription.
type Payment struct {
	ID              string    `json:"id" db:"id"`
	AgencyID        string    `json:"agency_id" db:"agency_id"`
	StripePaymentID string    `json:"stripe_payment_id" db:"stripe_payment_id"`
	Amount          int64     `json:"amount" db:"amount"` // cents
	Currency        string    `json:"currency" db:"currency"`
	Status          string    `json:"status" db:"status"`
	Type            string    `json:"type" db:"type"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// NewAgency creates an agency on the free plan.
func NewAgency(name string) *Agency {
	now := time.Now()
	return &Agency{
		ID:        uuid.New().String(),
		Name:      name,
		Plan:      PlanFree,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTask creates an open task with a generated ID.
func NewTask(agencyID, title string) *Task {
	now := time.Now()
	return &Task{
		ID:        uuid.New().String(),
		AgencyID:  agencyID,
		Title:     title,
		Status:    TaskStatusOpen,
		Priority:  "normal",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewCustomer creates a customer row with a generated ID.
func NewCustomer(agencyID, name string) *Customer {
	now := time.Now()
	return &Customer{
		ID:         uuid.New().String(),
		AgencyID:   agencyID,
		Name:       name,
		Engagement: string(crosssell.EngagementMedium),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
