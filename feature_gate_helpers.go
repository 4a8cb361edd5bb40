package enroll

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-featuregate/gate/guard"
)

// Feature keys guarding the two registration entry points.
const (
	FeatureSelfRegister = "enroll.self_register"
	FeatureInviteRedeem = "enroll.invite_redeem"
)

func normalizeFeatureGateError(err error) error {
	if err == nil {
		return nil
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return err
	}

	return errors.Wrap(err, errors.CategoryAuthz, "Feature gate check failed").
		WithCode(errors.CodeForbidden)
}

func requireSelfRegisterGate(ctx context.Context, featureGate gate.FeatureGate) error {
	if featureGate == nil {
		return nil
	}
	return guard.Require(ctx, featureGate, FeatureSelfRegister,
		guard.WithDisabledError(ErrSelfRegisterDisabled),
		guard.WithErrorMapper(normalizeFeatureGateError),
	)
}

func requireInviteRedeemGate(ctx context.Context, featureGate gate.FeatureGate) error {
	if featureGate == nil {
		return nil
	}
	return guard.Require(ctx, featureGate, FeatureInviteRedeem,
		guard.WithDisabledError(ErrInviteRedeemDisabled),
		guard.WithErrorMapper(normalizeFeatureGateError),
	)
}
