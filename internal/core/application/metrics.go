package application

import (
	"context"

	"github.com/solestate/estated/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/solestate/estated/internal/core/application"

type metrics struct {
	listings   metric.Int64Counter
	purchases  metric.Int64Counter
	sharesSold metric.Int64Counter
	settled    metric.Int64Counter
	rejections metric.Int64Counter
	violations metric.Int64Counter
}

// newMetrics registers the service counters on the global meter provider,
// which is a no-op until the otel sdk is initialized.
func newMetrics() (*metrics, error) {
	meter := otel.Meter(meterName)

	listings, err := meter.Int64Counter(
		"estated.listings", metric.WithDescription("Properties listed"),
	)
	if err != nil {
		return nil, err
	}
	purchases, err := meter.Int64Counter(
		"estated.purchases", metric.WithDescription("Share purchases committed"),
	)
	if err != nil {
		return nil, err
	}
	sharesSold, err := meter.Int64Counter(
		"estated.shares_sold", metric.WithDescription("Shares sold across all properties"),
	)
	if err != nil {
		return nil, err
	}
	settled, err := meter.Int64Counter(
		"estated.settled_amount",
		metric.WithDescription("Settlement tokens moved into vaults, in smallest units"),
	)
	if err != nil {
		return nil, err
	}
	rejections, err := meter.Int64Counter(
		"estated.rejections", metric.WithDescription("Transitions rejected, by error code"),
	)
	if err != nil {
		return nil, err
	}
	violations, err := meter.Int64Counter(
		"estated.invariant_violations", metric.WithDescription("Audit violations, by invariant"),
	)
	if err != nil {
		return nil, err
	}

	return &metrics{
		listings:   listings,
		purchases:  purchases,
		sharesSold: sharesSold,
		settled:    settled,
		rejections: rejections,
		violations: violations,
	}, nil
}

func (m *metrics) listed(ctx context.Context) {
	m.listings.Add(ctx, 1)
}

func (m *metrics) purchased(ctx context.Context, shares, cost uint64) {
	m.purchases.Add(ctx, 1)
	m.sharesSold.Add(ctx, clampInt64(shares))
	m.settled.Add(ctx, clampInt64(cost))
}

func (m *metrics) rejected(ctx context.Context, operation string, err error) {
	code := "INTERNAL_ERROR"
	var typed errors.Error
	if errors.As(err, &typed) {
		code = typed.CodeName()
	}
	m.rejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("code", code),
	))
}

func (m *metrics) violation(ctx context.Context, invariant string) {
	m.violations.Add(ctx, 1, metric.WithAttributes(attribute.String("invariant", invariant)))
}

func clampInt64(v uint64) int64 {
	if v > 1<<63-1 {
		return 1<<63 - 1
	}
	return int64(v)
}
