package application

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/internal/core/ports"
	"github.com/solestate/estated/pkg/errors"
)

const auditTimeout = time.Minute

// Audit recomputes, for every property, the share and vault totals implied by
// its positions and compares them with the stored ones.
func (s *service) Audit(ctx context.Context) (*AuditReport, errors.Error) {
	properties, err := s.repoManager.Properties().ListProperties(ctx)
	if err != nil {
		return nil, toError(err)
	}

	report := &AuditReport{
		CheckedAt:  time.Now().Unix(),
		Properties: len(properties),
		Violations: make([]Violation, 0),
	}
	for _, property := range properties {
		var violations []Violation
		if err := s.repoManager.RunInReadTx(ctx, func(ctx context.Context) error {
			v, err := s.auditProperty(ctx, property.Address)
			if err != nil {
				return err
			}
			violations = v
			return nil
		}); err != nil {
			return nil, toError(err)
		}
		report.Violations = append(report.Violations, violations...)
	}
	return report, nil
}

// auditProperty checks one property against its positions and vault. All the
// reads must come from the same snapshot or a purchase committing in between
// shows up as a violation.
func (s *service) auditProperty(ctx context.Context, address string) ([]Violation, error) {
	property, err := s.repoManager.Properties().GetProperty(ctx, address)
	if err != nil {
		return nil, err
	}
	violations := make([]Violation, 0)

	if property.SharesSold > property.TotalShares {
		violations = append(violations, Violation{
			Property:  property.Address,
			Invariant: InvariantSharesWithinSupply,
			Expected:  property.TotalShares,
			Actual:    property.SharesSold,
		})
	}

	positions, err := s.repoManager.Positions().ListPositionsByProperty(ctx, property.Address)
	if err != nil {
		return nil, err
	}
	var owned uint64
	for _, position := range positions {
		if owned, err = domain.CheckedAdd("audit_shares", owned, position.SharesOwned); err != nil {
			return nil, err
		}
	}
	if owned != property.SharesSold {
		violations = append(violations, Violation{
			Property:  property.Address,
			Invariant: InvariantSharesMatchPositions,
			Expected:  property.SharesSold,
			Actual:    owned,
		})
	}

	expected, err := property.ExpectedVaultBalance()
	if err != nil {
		return nil, err
	}
	var balance uint64
	vault, err := s.ledger.GetAccount(ctx, property.Vault)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
	} else {
		balance = vault.Amount
	}
	if vault == nil || balance != expected {
		violations = append(violations, Violation{
			Property:  property.Address,
			Invariant: InvariantVaultBalance,
			Expected:  expected,
			Actual:    balance,
		})
	}

	return violations, nil
}

func (s *service) runAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()

	report, err := s.Audit(ctx)
	if err != nil {
		err.Log().WithError(err).Error("invariant audit failed")
		return
	}

	if report.Healthy() {
		log.Debugf("invariant audit passed for %d properties", report.Properties)
		return
	}

	for _, v := range report.Violations {
		log.WithFields(log.Fields{
			"property":  v.Property,
			"invariant": v.Invariant,
			"expected":  v.Expected,
			"actual":    v.Actual,
		}).Error("invariant violation")
		s.metrics.violation(ctx, v.Invariant)
		s.publishAlert(ports.InvariantViolation, ports.InvariantViolationAlert{
			Property:  v.Property,
			Invariant: v.Invariant,
			Expected:  v.Expected,
			Actual:    v.Actual,
		})
	}
}
