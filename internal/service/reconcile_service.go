package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/CodeWithProBrian/Mpesa/internal/domain"
	"github.com/CodeWithProBrian/Mpesa/internal/lock"
	"github.com/CodeWithProBrian/Mpesa/internal/metrics"
	"github.com/CodeWithProBrian/Mpesa/internal/models"
	"github.com/CodeWithProBrian/Mpesa/internal/repository"
	"github.com/CodeWithProBrian/Mpesa/pkg/payment"

	"github.com/rs/zerolog"
)

// TransactionStore is the record store for settled payments.
type TransactionStore interface {
	CreateOnce(ctx context.Context, t *models.Transaction) (bool, error)
	GetByCheckoutID(ctx context.Context, checkoutID string) (*models.Transaction, error)
}

// ReconcileService turns STK callbacks into Transaction records.
type ReconcileService struct {
	store    TransactionStore
	locker   lock.Locker
	notifier *NotificationService
	logger   *zerolog.Logger
}

func NewReconcileService(store TransactionStore, locker lock.Locker, notifier *NotificationService, logger *zerolog.Logger) *ReconcileService {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &ReconcileService{store: store, locker: locker, notifier: notifier, logger: logger}
}

// Reconcile handles one callback body. A *payment.ProtocolError means the
// body was rejected without side effects; any other error is a store or
// lock failure and the provider should retry.
func (s *ReconcileService) Reconcile(ctx context.Context, body []byte) (*payment.CallbackReply, error) {
	outcome, err := payment.ParseCallback(body)
	if err != nil {
		metrics.IncCallback("invalid")
		s.logger.Warn().Err(err).Msg("rejected stk callback")
		return nil, err
	}

	log := s.logger.With().
		Str("checkout_request_id", outcome.CheckoutRequestID).
		Int("result_code", outcome.ResultCode).
		Logger()

	if !outcome.Succeeded() {
		metrics.IncCallback("failed")
		log.Info().Str("result_desc", outcome.ResultDesc).Msg("stk payment failed")
		s.notifier.NotifyOutcome(outcome)
		return &payment.CallbackReply{ResultCode: outcome.ResultCode, ResultDesc: payment.ResultDescFailed}, nil
	}

	unlock, err := s.locker.Lock(ctx, "mpesa:callback:"+outcome.CheckoutRequestID)
	if err != nil {
		return nil, fmt.Errorf("lock checkout %s: %w", outcome.CheckoutRequestID, err)
	}
	defer unlock()

	existing, err := s.store.GetByCheckoutID(ctx, outcome.CheckoutRequestID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	if existing != nil {
		metrics.IncCallback("duplicate")
		log.Info().Str("mpesa_code", existing.MpesaCode).Msg("duplicate stk callback ignored")
		return &payment.CallbackReply{ResultCode: 0, ResultDesc: payment.ResultDescSuccess}, nil
	}

	tx := &models.Transaction{
		Amount:      outcome.Amount,
		CheckoutID:  outcome.CheckoutRequestID,
		MpesaCode:   outcome.MpesaReceiptNumber,
		PhoneNumber: outcome.PhoneNumber,
		Status:      domain.TransactionStatusSuccess,
	}
	created, err := s.store.CreateOnce(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("record transaction: %w", err)
	}
	if !created {
		// Another instance won the race despite the lock (e.g. lock expiry).
		metrics.IncCallback("duplicate")
		log.Info().Msg("duplicate stk callback ignored")
		return &payment.CallbackReply{ResultCode: 0, ResultDesc: payment.ResultDescSuccess}, nil
	}

	metrics.IncCallback("success")
	log.Info().
		Str("mpesa_code", tx.MpesaCode).
		Str("amount", tx.Amount.String()).
		Msg("stk payment recorded")
	s.notifier.NotifyOutcome(outcome)
	return &payment.CallbackReply{ResultCode: 0, ResultDesc: payment.ResultDescSuccess}, nil
}

// Transaction returns the recorded payment for a checkout.
func (s *ReconcileService) Transaction(ctx context.Context, checkoutID string) (*models.Transaction, error) {
	return s.store.GetByCheckoutID(ctx, checkoutID)
}
