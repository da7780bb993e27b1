package service

import (
	"context"
	"errors"
	"strings"

	"github.com/CodeWithProBrian/Mpesa/internal/domain"
	"github.com/CodeWithProBrian/Mpesa/internal/logging"
	"github.com/CodeWithProBrian/Mpesa/pkg/payment"

	"github.com/rs/zerolog"
)

// SubmitInput is the raw checkout form.
type SubmitInput struct {
	PhoneNumber string
	Amount      string
}

// SubmitOutcome is either pending (CheckoutRequestID set) or an error to show
// on the form.
type SubmitOutcome struct {
	Pending           bool
	CheckoutRequestID string
	CustomerMessage   string
	ErrorMessage      string
}

// CheckoutService drives the payer-facing side: sending the STK prompt and
// checking on it.
type CheckoutService struct {
	gateway payment.Gateway
	logger  *zerolog.Logger
	dev     bool
}

func NewCheckoutService(gateway payment.Gateway, logger *zerolog.Logger, dev bool) *CheckoutService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CheckoutService{gateway: gateway, logger: logger, dev: dev}
}

// Submit validates the form and sends the STK push. Internal failures are
// logged and replaced with a generic message.
func (s *CheckoutService) Submit(ctx context.Context, in SubmitInput) SubmitOutcome {
	req, err := payment.NewPaymentRequest(in.PhoneNumber, strings.TrimSpace(in.Amount))
	if err != nil {
		return SubmitOutcome{ErrorMessage: s.userMessage(err)}
	}

	log := s.logger.With().
		Str("phone", logging.Redact(req.PhoneNumber, s.dev)).
		Str("amount", req.Amount.String()).
		Logger()

	switch res := s.gateway.InitiatePush(ctx, req.PhoneNumber, req.Amount).(type) {
	case payment.PushAccepted:
		if res.CheckoutRequestID == "" {
			log.Error().Interface("response", res.Raw).Msg("stk push accepted without CheckoutRequestID")
			return SubmitOutcome{ErrorMessage: domain.MsgGenericError}
		}
		log.Info().Str("checkout_request_id", res.CheckoutRequestID).Msg("stk push pending")
		return SubmitOutcome{
			Pending:           true,
			CheckoutRequestID: res.CheckoutRequestID,
			CustomerMessage:   res.CustomerMessage,
		}
	case payment.PushDeclined:
		if res.Cause != nil {
			log.Error().Err(res.Cause).Msg("stk push failed")
			return SubmitOutcome{ErrorMessage: domain.MsgPushFailed}
		}
		log.Warn().Str("code", res.ResponseCode()).Str("description", res.Description).Msg("stk push declined")
		msg := res.Description
		if msg == "" {
			msg = domain.MsgPushFailed
		}
		return SubmitOutcome{ErrorMessage: msg}
	default:
		log.Error().Msgf("unexpected push result %T", res)
		return SubmitOutcome{ErrorMessage: domain.MsgGenericError}
	}
}

// CheckStatus queries the provider for a pending checkout. The result map is
// returned even on error so it can be shown as is.
func (s *CheckoutService) CheckStatus(ctx context.Context, checkoutRequestID string) (map[string]any, error) {
	checkoutRequestID = strings.TrimSpace(checkoutRequestID)
	if checkoutRequestID == "" {
		return nil, payment.ErrMissingCheckoutID
	}
	status, err := s.gateway.QueryStatus(ctx, checkoutRequestID)
	if err != nil {
		s.logger.Error().Err(err).Str("checkout_request_id", checkoutRequestID).Msg("stk status query failed")
	}
	return status, err
}

func (s *CheckoutService) userMessage(err error) string {
	switch {
	case errors.Is(err, payment.ErrInvalidPhone):
		return domain.MsgInvalidPhone
	case errors.Is(err, payment.ErrInvalidAmount):
		return domain.MsgInvalidAmount
	default:
		s.logger.Error().Err(err).Msg("checkout submit failed")
		return domain.MsgGenericError
	}
}
