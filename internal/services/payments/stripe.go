package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/webhook"
	"gorm.io/gorm"

	"github.com/frontdesk-ai/frontdesk/internal/models"
	"github.com/frontdesk-ai/frontdesk/internal/services/billing"
)

type StripeService struct {
	db            *gorm.DB
	balances      *billing.BalanceService
	webhookSecret string
}

func NewStripeService(cfg models.StripeConfig, db *gorm.DB, balances *billing.BalanceService) *StripeService {
	stripe.Key = cfg.SecretKey

	return &StripeService{
		db:            db,
		balances:      balances,
		webhookSecret: cfg.WebhookSecret,
	}
}

// CreateCheckoutParams contains parameters for creating a checkout session
type CreateCheckoutParams struct {
	ClientID      string
	PackageID     uint
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
}

// ListPackages returns the minute packages available for purchase.
func (s *StripeService) ListPackages(ctx context.Context) ([]models.MinutePackage, error) {
	var packages []models.MinutePackage
	if err := s.db.WithContext(ctx).Order("minutes ASC").Find(&packages).Error; err != nil {
		return nil, fmt.Errorf("failed to list minute packages: %w", err)
	}
	return packages, nil
}

// CreateCheckoutSession creates a Stripe checkout session for purchasing a
// minute package
func (s *StripeService) CreateCheckoutSession(ctx context.Context, params CreateCheckoutParams) (*stripe.CheckoutSession, error) {
	var pkg models.MinutePackage
	if err := s.db.WithContext(ctx).First(&pkg, params.PackageID).Error; err != nil {
		return nil, fmt.Errorf("failed to load minute package: %w", err)
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(pkg.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		Metadata: map[string]string{
			"client_id": params.ClientID,
			"minutes":   strconv.FormatInt(pkg.Minutes, 10),
		},
	}

	if params.CustomerEmail != "" {
		sessionParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}

	sess, err := session.New(sessionParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return sess, nil
}

// HandleWebhook processes Stripe webhook events
func (s *StripeService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return fmt.Errorf("failed to verify webhook signature: %w", err)
	}

	switch event.Type {
	case "checkout.session.completed":
		return s.handleCheckoutSessionCompleted(ctx, event)
	case "payment_intent.payment_failed":
		fiberlog.Warnf("StripeService: payment intent failed: %s", event.ID)
		return nil
	default:
		// Ignore other event types
		return nil
	}
}

// handleCheckoutSessionCompleted credits the purchased minutes to the client
func (s *StripeService) handleCheckoutSessionCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("failed to parse checkout session: %w", err)
	}

	clientID := sess.Metadata["client_id"]
	minutes, err := strconv.ParseInt(sess.Metadata["minutes"], 10, 64)
	if err != nil {
		return fmt.Errorf("failed to parse purchased minutes: %w", err)
	}
	if clientID == "" || minutes <= 0 {
		return fmt.Errorf("invalid checkout session metadata")
	}

	amountPaid := float64(sess.AmountTotal) / 100.0 // cents

	err = s.balances.Adjust(ctx, models.AdjustBalanceParams{
		ClientID:     clientID,
		DeltaSeconds: minutes * 60,
		Reason:       fmt.Sprintf("Stripe purchase: %d minutes (session %s)", minutes, sess.ID),
		RevenueUSD:   amountPaid,
	})
	if err != nil {
		return fmt.Errorf("failed to credit purchased minutes: %w", err)
	}

	fiberlog.Infof("StripeService: credited %d minutes to client %s", minutes, clientID)
	return nil
}
