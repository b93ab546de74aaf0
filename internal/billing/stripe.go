package billing

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/Jahansayem/agencydesk/internal/database"
	"github.com/Jahansayem/agencydesk/internal/errors"
	"github.com/Jahansayem/agencydesk/internal/security"
)

// Premium plan price. Created once in the Stripe dashboard.
const premiumPriceID = "price_agencydesk_premium_monthly"

// Service handles premium plan checkout and Stripe webhooks.
type Service struct {
	client        *client.API
	agentService  *database.AgentService
	webhookSecret string
	successURL    string
	cancelURL     string
}

// NewService creates a billing service. A nil client disables checkout
// endpoints gracefully when Stripe is not configured.
func NewService(secretKey, webhookSecret string, agentService *database.AgentService) *Service {
	var stripeClient *client.API
	if secretKey != "" {
		stripe.Key = secretKey
		stripeClient = &client.API{}
		stripeClient.Init(secretKey, nil)
	}

	return &Service{
		client:        stripeClient,
		agentService:  agentService,
		webhookSecret: webhookSecret,
		successURL:    "https://app.agencydesk.io/billing/success?session_id={CHECKOUT_SESSION_ID}",
		cancelURL:     "https://app.agencydesk.io/billing/cancelled",
	}
}

// Enabled reports whether Stripe is configured.
func (s *Service) Enabled() bool {
	return s.client != nil
}

// CreateCheckoutSession starts a premium subscription checkout for the
// authenticated agency.
func (s *Service) CreateCheckoutSession(c *gin.Context) {
	if !s.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment system not configured"})
		return
	}

	agencyID := security.AgencyID(c)
	if agencyID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "agency not identified"})
		return
	}

	sessionParams := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(premiumPriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
		ClientReferenceID: stripe.String(agencyID),
		Metadata: map[string]string{
			"agency_id": agencyID,
			"type":      "subscription",
		},
	}

	session, err := s.client.CheckoutSessions.New(sessionParams)
	if err != nil {
		appErr := errors.ToAppError(err)
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"url":        session.URL,
	})
}

// HandleWebhook processes Stripe webhook events. Completed subscription
// checkouts upgrade the agency to the premium plan.
func (s *Service) HandleWebhook(c *gin.Context) {
	if !s.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment system not configured"})
		return
	}

	const maxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	event, err := webhook.ConstructEvent(body, c.GetHeader("Stripe-Signature"), s.webhookSecret)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse webhook"})
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse session"})
			return
		}

		agencyID := session.ClientReferenceID
		if agencyID == "" {
			slog.Error("Agency ID is empty in webhook")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agency ID"})
			return
		}

		var stripeCustomerID string
		if session.Customer != nil {
			stripeCustomerID = session.Customer.ID
		}

		if err := s.agentService.UpgradeAgencyToPremium(agencyID, stripeCustomerID); err != nil {
			slog.Error("Failed to upgrade agency", "error", err, "agency_id", agencyID)
		} else {
			slog.Info("Agency upgraded to premium", "agency_id", agencyID)
		}

		if _, err := s.agentService.CreatePaymentRecord(agencyID, session.ID,
			string(session.Currency), "completed", "subscription", session.AmountTotal); err != nil {
			slog.Error("Failed to record payment", "error", err, "agency_id", agencyID)
		}

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse subscription"})
			return
		}
		slog.Info("Subscription cancelled", "stripe_subscription_id", sub.ID)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
