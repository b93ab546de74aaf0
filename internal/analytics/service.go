package analytics

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Jahansayem/agencydesk/internal/crosssell"
	"github.com/Jahansayem/agencydesk/internal/database"
	"github.com/Jahansayem/agencydesk/internal/errors"
	"github.com/Jahansayem/agencydesk/internal/monitoring"
)

// Prospect is a scored customer in top-prospect order.
type Prospect struct {
	CustomerID         string    `json:"customer_id"`
	CustomerName       string    `json:"customer_name"`
	Score              float64   `json:"score"`
	Tier               string    `json:"tier"`
	EstimatedReferrals float64   `json:"estimated_referrals"`
	ScoredAt           time.Time `json:"scored_at"`
}

// RunSummary reports the outcome of a full-agency scoring run.
type RunSummary struct {
	CustomersScored int            `json:"customers_scored"`
	TierCounts      map[string]int `json:"tier_counts"`
	AverageScore    float64        `json:"average_score"`
	DurationMs      int64          `json:"duration_ms"`
}

// Service scores customers and maintains the persisted snapshots.
type Service struct {
	repo    *database.Repository
	model   *crosssell.Model
	cache   *ProspectCache
	metrics *monitoring.Metrics
	logger  *monitoring.Logger

	freeDailyQuota int
}

// NewService creates an analytics service.
func NewService(repo *database.Repository, model *crosssell.Model, metrics *monitoring.Metrics, logger *monitoring.Logger, cacheTTL time.Duration, freeDailyQuota int) *Service {
	return &Service{
		repo:           repo,
		model:          model,
		cache:          NewProspectCache(cacheTTL),
		metrics:        metrics,
		logger:         logger,
		freeDailyQuota: freeDailyQuota,
	}
}

// ScoreCustomer scores one customer and persists the snapshot.
func (s *Service) ScoreCustomer(agencyID, customerID string) (*crosssell.PropensityResult, error) {
	customer, err := s.repo.GetCustomer(agencyID, customerID)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("customer")
	}
	if err != nil {
		return nil, errors.NewInternalError("failed to load customer", err)
	}

	result := s.model.Score(customer.PropensityInput())

	if err := s.saveSnapshot(agencyID, customer, result); err != nil {
		return nil, err
	}

	s.cache.InvalidateAgency(agencyID)
	return &result, nil
}

// ScoreAgency scores every customer of the agency and persists the snapshots.
// Free-plan agencies are held to a daily customers-scored quota; premium
// agencies are unlimited.
func (s *Service) ScoreAgency(agencyID string) (*RunSummary, error) {
	start := time.Now()

	agency, err := s.repo.GetAgency(agencyID)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("agency")
	}
	if err != nil {
		return nil, errors.NewInternalError("failed to load agency", err)
	}

	customers, err := s.repo.ListCustomers(agencyID)
	if err != nil {
		return nil, errors.NewInternalError("failed to list customers", err)
	}
	if len(customers) == 0 {
		return nil, errors.NewValidationError("agency has no customers to score")
	}

	if agency.Plan == database.PlanFree {
		if err := s.checkQuota(agencyID, len(customers)); err != nil {
			return nil, err
		}
	}

	summary := &RunSummary{TierCounts: make(map[string]int)}
	var totalScore float64

	for _, customer := range customers {
		result := s.model.Score(customer.PropensityInput())

		if err := s.saveSnapshot(agencyID, customer, result); err != nil {
			return nil, err
		}

		summary.TierCounts[string(result.Tier)]++
		totalScore += result.Score
	}

	summary.CustomersScored = len(customers)
	summary.AverageScore = totalScore / float64(len(customers))
	summary.DurationMs = time.Since(start).Milliseconds()

	if err := s.repo.RecordScoringRun(agencyID, len(customers)); err != nil {
		return nil, errors.NewInternalError("failed to record scoring run", err)
	}

	s.cache.InvalidateAgency(agencyID)
	s.metrics.RecordScoringRun(len(customers))
	s.logger.ScoringLogger(agencyID, len(customers), time.Since(start))

	return summary, nil
}

func (s *Service) checkQuota(agencyID string, pending int) error {
	dayStart := time.Now().Truncate(24 * time.Hour)
	used, err := s.repo.CountCustomersScoredSince(agencyID, dayStart)
	if err != nil {
		return errors.NewInternalError("failed to check scoring quota", err)
	}

	if used+pending > s.freeDailyQuota {
		s.metrics.IncrementRateLimitScoringBlock()
		return errors.NewRateLimitError("tomorrow")
	}

	return nil
}

func (s *Service) saveSnapshot(agencyID string, customer *database.Customer, result crosssell.PropensityResult) error {
	breakdown, err := json.Marshal(result.Breakdown)
	if err != nil {
		return errors.NewInternalError("failed to marshal breakdown", err)
	}

	snapshot := &database.PropensitySnapshot{
		ID:                 uuid.New().String(),
		AgencyID:           agencyID,
		CustomerID:         customer.ID,
		Score:              result.Score,
		Tier:               string(result.Tier),
		EstimatedReferrals: result.EstimatedAnnualReferrals,
		Breakdown:          string(breakdown),
		CreatedAt:          time.Now(),
	}

	if err := s.repo.SaveSnapshot(snapshot); err != nil {
		return errors.NewInternalError("failed to save snapshot", err)
	}

	return nil
}

// GetTopProspects returns the agency's highest-scoring customers, cached.
func (s *Service) GetTopProspects(agencyID string, limit int) ([]*Prospect, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	if cached, found := s.cache.Get(agencyID, limit); found {
		s.metrics.IncrementCacheHit()
		return cached, nil
	}
	s.metrics.IncrementCacheMiss()

	snapshots, err := s.repo.GetTopProspects(agencyID, limit)
	if err != nil {
		return nil, errors.NewInternalError("failed to query prospects", err)
	}

	prospects := make([]*Prospect, 0, len(snapshots))
	for _, snap := range snapshots {
		prospects = append(prospects, &Prospect{
			CustomerID:         snap.CustomerID,
			CustomerName:       snap.CustomerName,
			Score:              snap.Score,
			Tier:               snap.Tier,
			EstimatedReferrals: snap.EstimatedReferrals,
			ScoredAt:           snap.CreatedAt,
		})
	}

	s.cache.Set(agencyID, limit, prospects)
	return prospects, nil
}

// GetCacheStats returns prospect cache statistics.
func (s *Service) GetCacheStats() map[string]interface{} {
	return s.cache.GetStats()
}
