package alertsmanager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/internal/core/ports"
)

const (
	serviceName = "estated"

	maxRetries = 5
)

type Alert struct {
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
	StartsAt    time.Time         `json:"startsAt"`
}

type service struct {
	baseUrl    string
	httpClient *http.Client
}

func NewService(alertManagerURL string) ports.Alerts {
	return &service{
		baseUrl: alertManagerURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *service) Publish(ctx context.Context, topic ports.Topic, message any) error {
	labels := map[string]string{
		"alertname": string(topic),
		"service":   serviceName,
		"severity":  "info",
	}

	desc := ""
	annotations := map[string]string{}
	switch topic {
	case ports.PropertyListed:
		m, ok := message.(ports.PropertyListedAlert)
		if !ok {
			return fmt.Errorf("invalid message type: %T", message)
		}
		annotations["firing_title"] = "🏠 Property Listed"
		desc = formatPropertyListedAlert(m)
		labels["property"] = m.Property
	case ports.SharesPurchased:
		m, ok := message.(ports.SharesPurchasedAlert)
		if !ok {
			return fmt.Errorf("invalid message type: %T", message)
		}
		annotations["firing_title"] = "🧾 Shares Purchased"
		desc = formatSharesPurchasedAlert(m)
		labels["property"] = m.Property
	case ports.InvariantViolation:
		m, ok := message.(ports.InvariantViolationAlert)
		if !ok {
			return fmt.Errorf("invalid message type: %T", message)
		}
		annotations["firing_title"] = "🚨 Invariant Violation"
		desc = formatInvariantViolationAlert(m)
		labels["severity"] = "critical"
		labels["property"] = m.Property
		labels["invariant"] = m.Invariant
	default:
		annotations["firing_title"] = fmt.Sprintf("🔔 %s", topic)
		desc = formatGenericAlert(map[string]any{"event": message})
	}

	annotations["description"] = desc
	alert := Alert{
		Labels:      labels,
		Annotations: annotations,
		StartsAt:    time.Now(),
	}

	if err := s.sendAlert(ctx, alert); err != nil {
		return fmt.Errorf("failed to send alert to AlertManager: %w", err)
	}

	return nil
}

func (s *service) sendAlert(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal([]Alert{alert})
	if err != nil {
		return fmt.Errorf("failed to marshal alerts: %w", err)
	}

	baseDelay := 100 * time.Millisecond
	backoff := func(attempt int) error {
		// 100ms, 200ms, 400ms, 800ms
		delay := baseDelay * time.Duration(1<<uint(attempt))
		select {
		case <-time.After(delay):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for attempt := range maxRetries {
		req, err := http.NewRequestWithContext(ctx, "POST", s.baseUrl, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			if attempt < maxRetries-1 {
				if err := backoff(attempt); err != nil {
					return err
				}
				continue
			}
			return fmt.Errorf("failed to send alert after %d attempts: %w", maxRetries, err)
		}
		_ = resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		// Only server errors are retried.
		if resp.StatusCode >= 500 && attempt < maxRetries-1 {
			if err := backoff(attempt); err != nil {
				return err
			}
			continue
		}

		return fmt.Errorf(
			"failed to send alert to AlertManager with status %d after %d attempts",
			resp.StatusCode, attempt+1,
		)
	}

	return fmt.Errorf("failed to send alert after %d attempts", maxRetries)
}

func formatPropertyListedAlert(data ports.PropertyListedAlert) string {
	lines := []string{
		fmt.Sprintf("*%s*", data.Name),
		fmt.Sprintf("\n*Property:* `%s`", data.Property),
		fmt.Sprintf("*Vault:* `%s`", data.Vault),
		fmt.Sprintf("*Issuer:* `%s`", data.Issuer),
		"\n*Terms:*",
		fmt.Sprintf("• Price per lot: %s", domain.FormatAmount(data.PricePerLot)),
		fmt.Sprintf("• Total shares: %d", data.TotalShares),
		fmt.Sprintf("• Settlement asset: `%s`", data.SettlementAsset),
	}
	return strings.Join(lines, "\n")
}

func formatSharesPurchasedAlert(data ports.SharesPurchasedAlert) string {
	lines := []string{
		fmt.Sprintf("*Property:* `%s`", data.Property),
		fmt.Sprintf("*Buyer:* `%s`", data.Buyer),
		fmt.Sprintf("• Shares: %d", data.Shares),
		fmt.Sprintf("• Cost: %s", domain.FormatAmount(data.Cost)),
		fmt.Sprintf("• Sold: %d / %d", data.SharesSold, data.TotalShares),
	}
	return strings.Join(lines, "\n")
}

func formatInvariantViolationAlert(data ports.InvariantViolationAlert) string {
	lines := []string{
		fmt.Sprintf("*Property:* `%s`", data.Property),
		fmt.Sprintf("*Invariant:* %s", data.Invariant),
		fmt.Sprintf("• Expected: %d", data.Expected),
		fmt.Sprintf("• Actual: %d", data.Actual),
	}
	return strings.Join(lines, "\n")
}

func formatGenericAlert(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("• %s: %v", key, data[key]))
	}
	return strings.Join(lines, "\n")
}
