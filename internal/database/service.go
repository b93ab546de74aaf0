package database

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Login lockout policy: after maxFailedAttempts consecutive failures the
// agent is locked out for lockoutDuration.
const (
	maxFailedAttempts = 5
	lockoutDuration   = 15 * time.Minute
)

// AgentService provides business logic for agent authentication and sessions.
type AgentService struct {
	repo      *Repository
	jwtSecret []byte
}

// NewAgentService creates a new agent service.
func NewAgentService(repo *Repository, jwtSecret string) *AgentService {
	return &AgentService{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
	}
}

// LoginResult is the outcome of an authentication attempt.
type LoginResult struct {
	Agent       *Agent     `json:"agent,omitempty"`
	Token       string     `json:"token,omitempty"`
	Success     bool       `json:"success"`
	Locked      bool       `json:"locked"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
}

// CreateAgent registers an agent login with a salted, hashed PIN.
func (s *AgentService) CreateAgent(agencyID, name, email, pin string) (*Agent, error) {
	if len(pin) < 4 {
		return nil, fmt.Errorf("pin must be at least 4 digits")
	}

	salt, err := generateSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	now := time.Now()
	agent := &Agent{
		ID:        uuid.New().String(),
		AgencyID:  agencyID,
		Name:      name,
		Email:     email,
		PINHash:   hashPIN(pin, salt),
		PINSalt:   salt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateAgent(agent); err != nil {
		return nil, err
	}

	return agent, nil
}

// Authenticate verifies an agent's PIN and issues a session token. Failed
// attempts are counted per agent; the fifth consecutive failure locks the
// login for fifteen minutes. Lockout state lives in the database so it
// survives restarts.
func (s *AgentService) Authenticate(agencyID, email, pin string) (*LoginResult, error) {
	agent, err := s.repo.GetAgentByEmail(agencyID, email)
	if err == sql.ErrNoRows {
		return &LoginResult{Success: false}, nil
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if agent.LockedUntil != nil && agent.LockedUntil.After(now) {
		return &LoginResult{Success: false, Locked: true, LockedUntil: agent.LockedUntil}, nil
	}

	if !verifyPIN(pin, agent.PINSalt, agent.PINHash) {
		attempts := agent.FailedAttempts + 1
		var lockedUntil *time.Time
		if attempts >= maxFailedAttempts {
			until := now.Add(lockoutDuration)
			lockedUntil = &until
			attempts = 0
		}

		if err := s.repo.UpdateAgentLoginState(agent.ID, attempts, lockedUntil); err != nil {
			return nil, err
		}

		return &LoginResult{Success: false, Locked: lockedUntil != nil, LockedUntil: lockedUntil}, nil
	}

	// Successful login clears the failure counter.
	if agent.FailedAttempts > 0 || agent.LockedUntil != nil {
		if err := s.repo.UpdateAgentLoginState(agent.ID, 0, nil); err != nil {
			return nil, err
		}
	}

	token, err := s.GenerateSessionToken(agent.AgencyID, agent.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Agent: agent, Token: token, Success: true}, nil
}

// GenerateSessionToken generates a JWT token for the agent session.
func (s *AgentService) GenerateSessionToken(agencyID, agentID string) (string, error) {
	claims := jwt.MapClaims{
		"agency_id": agencyID,
		"agent_id":  agentID,
		"exp":       time.Now().Add(24 * time.Hour).Unix(), // 24 hour expiry
		"iat":       time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

// ValidateSessionToken validates a JWT token and returns the agency and agent IDs.
func (s *AgentService) ValidateSessionToken(tokenString string) (string, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		return "", "", err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		agencyID, ok := claims["agency_id"].(string)
		if !ok {
			return "", "", fmt.Errorf("agency_id not found in token")
		}
		agentID, ok := claims["agent_id"].(string)
		if !ok {
			return "", "", fmt.Errorf("agent_id not found in token")
		}
		return agencyID, agentID, nil
	}

	return "", "", fmt.Errorf("invalid token")
}

// UpgradeAgencyToPremium upgrades an agency to the premium plan.
func (s *AgentService) UpgradeAgencyToPremium(agencyID, stripeCustomerID string) error {
	return s.repo.UpdateAgencyPlan(agencyID, PlanPremium, stripeCustomerID)
}

// CreatePaymentRecord creates a payment record in the database.
func (s *AgentService) CreatePaymentRecord(agencyID, stripePaymentID, currency, status, paymentType string, amount int64) (*Payment, error) {
	return s.repo.CreatePayment(agencyID, stripePaymentID, currency, status, paymentType, amount)
}

func generateSalt() (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	return hex.EncodeToString(salt), nil
}

func hashPIN(pin, salt string) string {
	sum := sha256.Sum256([]byte(salt + pin))
	return hex.EncodeToString(sum[:])
}

func verifyPIN(pin, salt, expectedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(hashPIN(pin, salt)), []byte(expectedHash)) == 1
}
