package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/xenking/footwear-cart/internal/domain/checkout"

type metrics struct {
	validations metric.Int64Counter
	redemptions metric.Int64Counter
	voided      metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	validations, err := meter.Int64Counter("cart.coupon.validations",
		metric.WithDescription("Coupon validations by result"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "validations counter")
	}
	redemptions, err := meter.Int64Counter("cart.coupon.redemptions",
		metric.WithDescription("Ledger commits by result"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "redemptions counter")
	}
	voided, err := meter.Int64Counter("cart.checkout.discounts_voided",
		metric.WithDescription("Confirmed orders whose discount was voided"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "voided counter")
	}
	return &metrics{
		validations: validations,
		redemptions: redemptions,
		voided:      voided,
	}, nil
}

func (m *metrics) validation(ctx context.Context, result string) {
	m.validations.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *metrics) redemption(ctx context.Context, result string) {
	m.redemptions.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
