package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rk-sharma/detailbook/internal/storage"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// StripeWebhookHandler keeps the tenant access state in sync with the billing
// provider. Signature verification is the auth; there is no token on this
// route.
type StripeWebhookHandler struct {
	subs      *storage.SubscriptionRepository
	secret    string
	tolerance time.Duration
	logger    *slog.Logger
}

func NewStripeWebhookHandler(subs *storage.SubscriptionRepository, secret string, tolerance time.Duration, logger *slog.Logger) *StripeWebhookHandler {
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	return &StripeWebhookHandler{
		subs:      subs,
		secret:    secret,
		tolerance: tolerance,
		logger:    logger,
	}
}

func (h *StripeWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSpace(h.secret) == "" {
		http.Error(w, "stripe webhook not configured", http.StatusServiceUnavailable)
		return
	}
	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		http.Error(w, "missing Stripe-Signature header", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MiB hard cap
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	evt, err := webhook.ConstructEventWithTolerance(body, sigHeader, h.secret, h.tolerance)
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	evtType := string(evt.Type)
	h.logger.Info("billing provider event received",
		"provider", "stripe",
		"provider_event_id", evt.ID,
		"event_type", evtType,
	)

	tx, err := h.subs.Begin(r.Context())
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(r.Context()) }()

	// Idempotency: replayed Stripe events are acknowledged and ignored.
	if err := h.subs.InsertProviderEvent(r.Context(), tx, "stripe", evt.ID, evtType, body); err != nil {
		if errors.Is(err, storage.ErrDuplicateProviderEvent) {
			h.logger.Info("billing provider event duplicate ignored", "provider", "stripe", "provider_event_id", evt.ID)
			_ = tx.Commit(r.Context())
			writeJSON(w, http.StatusOK, map[string]any{"status": "duplicate"})
			return
		}
		http.Error(w, "failed to record provider event", http.StatusInternalServerError)
		return
	}

	switch evtType {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
			h.logger.Error("stripe: invalid checkout session payload", "err", err)
			break
		}
		tenantID := strings.TrimSpace(session.Metadata["tenant_id"])
		if tenantID == "" {
			h.logger.Warn("stripe: missing tenant_id metadata on checkout session")
			break
		}
		sub := storage.Subscription{TenantID: tenantID, Status: "active"}
		if session.Customer != nil {
			sub.StripeCustomerID = session.Customer.ID
		}
		if session.Subscription != nil {
			sub.StripeSubscriptionID = session.Subscription.ID
		}
		if err := h.subs.Upsert(r.Context(), tx, sub); err != nil {
			http.Error(w, "failed to apply activation", http.StatusInternalServerError)
			return
		}

	case "customer.subscription.created", "customer.subscription.updated":
		var ssub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &ssub); err != nil {
			h.logger.Error("stripe: invalid subscription payload", "err", err)
			break
		}
		tenantID := strings.TrimSpace(ssub.Metadata["tenant_id"])
		if tenantID == "" {
			h.logger.Warn("stripe: missing tenant_id metadata on subscription")
			break
		}
		sub := storage.Subscription{
			TenantID:             tenantID,
			Status:               accessStatus(ssub.Status),
			StripeSubscriptionID: ssub.ID,
		}
		if ssub.Customer != nil {
			sub.StripeCustomerID = ssub.Customer.ID
		}
		if ssub.TrialEnd > 0 {
			t := time.Unix(ssub.TrialEnd, 0).UTC()
			sub.TrialEndsAt = &t
		}
		if ssub.CurrentPeriodEnd > 0 {
			t := time.Unix(ssub.CurrentPeriodEnd, 0).UTC()
			sub.CurrentPeriodEnd = &t
		}
		if err := h.subs.Upsert(r.Context(), tx, sub); err != nil {
			http.Error(w, "failed to apply subscription state", http.StatusInternalServerError)
			return
		}

	case "customer.subscription.deleted":
		var ssub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &ssub); err != nil {
			h.logger.Error("stripe: invalid subscription payload", "err", err)
			break
		}
		tenantID := strings.TrimSpace(ssub.Metadata["tenant_id"])
		if tenantID == "" {
			h.logger.Warn("stripe: missing tenant_id metadata on subscription")
			break
		}
		sub := storage.Subscription{
			TenantID:             tenantID,
			Status:               "canceled",
			StripeSubscriptionID: ssub.ID,
		}
		if ssub.Customer != nil {
			sub.StripeCustomerID = ssub.Customer.ID
		}
		if err := h.subs.Upsert(r.Context(), tx, sub); err != nil {
			http.Error(w, "failed to apply cancellation", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit(r.Context()); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// accessStatus folds the provider's subscription statuses onto the gate's
// vocabulary. Anything not clearly entitled denies access.
func accessStatus(s stripe.SubscriptionStatus) string {
	switch s {
	case stripe.SubscriptionStatusTrialing:
		return "trialing"
	case stripe.SubscriptionStatusActive:
		return "active"
	default:
		return "canceled"
	}
}
