// Command stripe-webhook-sim posts a signed fake Stripe event at a running
// engine, for exercising the access gate end to end without a Stripe account.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"
)

func main() {
	var (
		baseURL = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "engine base url")
		evtType = flag.String("type", getenv("STRIPE_EVENT_TYPE", "customer.subscription.created"), "stripe event type")
		tenant  = flag.String("tenant-id", getenv("TENANT_ID", ""), "tenant_id metadata")
		status  = flag.String("status", getenv("SUB_STATUS", "active"), "subscription status (trialing|active|canceled)")
		days    = flag.Int("days", 30, "days until the trial or period ends")
		secret  = flag.String("secret", getenv("STRIPE_WEBHOOK_SECRET", ""), "stripe webhook signing secret (whsec_...)")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		fatal("STRIPE_WEBHOOK_SECRET is required")
	}
	if strings.TrimSpace(*tenant) == "" {
		fatal("TENANT_ID is required")
	}

	now := time.Now().UTC()
	eventID := fmt.Sprintf("evt_test_%d", now.UnixNano())

	payload, err := buildEventJSON(eventID, *evtType, now, *tenant, *status, *days)
	if err != nil {
		fatal(err.Error())
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    *secret,
		Timestamp: now,
		Scheme:    "v1",
	})

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(*baseURL, "/")+"/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()

	fmt.Printf("status=%d\n", resp.StatusCode)
}

func buildEventJSON(eventID, eventType string, t time.Time, tenantID, status string, days int) ([]byte, error) {
	created := t.Unix()
	endsAt := t.Add(time.Duration(days) * 24 * time.Hour).Unix()
	switch eventType {
	case "checkout.session.completed":
		return json.Marshal(map[string]any{
			"id":          eventID,
			"object":      "event",
			"created":     created,
			"type":        eventType,
			"api_version": "2020-08-27",
			"data": map[string]any{
				"object": map[string]any{
					"id":     "cs_test_123",
					"object": "checkout.session",
					"metadata": map[string]any{
						"tenant_id": tenantID,
					},
				},
			},
		})
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		obj := map[string]any{
			"id":     "sub_test_123",
			"object": "subscription",
			"status": status,
			"metadata": map[string]any{
				"tenant_id": tenantID,
			},
		}
		if status == "trialing" {
			obj["trial_end"] = endsAt
		} else {
			obj["current_period_end"] = endsAt
		}
		return json.Marshal(map[string]any{
			"id":          eventID,
			"object":      "event",
			"created":     created,
			"type":        eventType,
			"api_version": "2020-08-27",
			"data": map[string]any{
				"object": obj,
			},
		})
	default:
		return nil, fmt.Errorf("unsupported event type: %s", eventType)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
