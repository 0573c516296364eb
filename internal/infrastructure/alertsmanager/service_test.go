package alertsmanager_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/solestate/estated/internal/core/ports"
	"github.com/solestate/estated/internal/infrastructure/alertsmanager"
	"github.com/stretchr/testify/require"
)

func TestPublish(t *testing.T) {
	t.Run("invariant violation", func(t *testing.T) {
		var received []alertsmanager.Alert
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		svc := alertsmanager.NewService(server.URL)
		err := svc.Publish(context.Background(), ports.InvariantViolation, ports.InvariantViolationAlert{
			Property:  "prop",
			Invariant: "vault_balance",
			Expected:  3000,
			Actual:    2999,
		})
		require.NoError(t, err)
		require.Len(t, received, 1)
		require.Equal(t, "critical", received[0].Labels["severity"])
		require.Equal(t, "vault_balance", received[0].Labels["invariant"])
		require.Contains(t, received[0].Annotations["description"], "Expected: 3000")
	})

	t.Run("shares purchased", func(t *testing.T) {
		var received []alertsmanager.Alert
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		}))
		defer server.Close()

		svc := alertsmanager.NewService(server.URL)
		err := svc.Publish(context.Background(), ports.SharesPurchased, ports.SharesPurchasedAlert{
			Property: "prop", Buyer: "buyer", Shares: 3, Cost: 3_000_000, SharesSold: 3, TotalShares: 10,
		})
		require.NoError(t, err)
		require.Len(t, received, 1)
		require.Contains(t, received[0].Annotations["description"], "Cost: 3.000000")
	})

	t.Run("invalid message type", func(t *testing.T) {
		svc := alertsmanager.NewService("http://127.0.0.1:0")
		err := svc.Publish(context.Background(), ports.PropertyListed, "not an alert")
		require.Error(t, err)
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		svc := alertsmanager.NewService(server.URL)
		err := svc.Publish(context.Background(), ports.Topic("custom"), map[string]int{"a": 1})
		require.NoError(t, err)
		require.Equal(t, int32(3), calls.Load())
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		svc := alertsmanager.NewService(server.URL)
		err := svc.Publish(context.Background(), ports.Topic("custom"), nil)
		require.Error(t, err)
		require.Equal(t, int32(1), calls.Load())
	})
}
