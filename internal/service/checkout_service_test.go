package service

import (
	"context"
	"errors"
	"testing"

	"github.com/CodeWithProBrian/Mpesa/internal/domain"
	"github.com/CodeWithProBrian/Mpesa/pkg/payment"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	result payment.PushResult
	status map[string]any
	err    error

	calls     int
	lastPhone string
	lastAmt   decimal.Decimal
	lastQuery string
}

func (f *fakeGateway) InitiatePush(ctx context.Context, phone string, amount decimal.Decimal) payment.PushResult {
	f.calls++
	f.lastPhone, f.lastAmt = phone, amount
	return f.result
}

func (f *fakeGateway) QueryStatus(ctx context.Context, id string) (map[string]any, error) {
	f.lastQuery = id
	return f.status, f.err
}

func silentLogger() *zerolog.Logger {
	l := zerolog.New(nil)
	return &l
}

func TestSubmitAccepted(t *testing.T) {
	gw := &fakeGateway{result: payment.PushAccepted{
		CheckoutRequestID: "ws_CO_1",
		CustomerMessage:   "Success. Request accepted for processing",
	}}
	svc := NewCheckoutService(gw, silentLogger(), false)

	out := svc.Submit(context.Background(), SubmitInput{PhoneNumber: "0712345678", Amount: " 100 "})
	require.True(t, out.Pending)
	require.Equal(t, "ws_CO_1", out.CheckoutRequestID)
	require.Empty(t, out.ErrorMessage)
	require.Equal(t, "254712345678", gw.lastPhone)
	require.Equal(t, "100", gw.lastAmt.String())
}

func TestSubmitDeclinedShowsProviderDescription(t *testing.T) {
	gw := &fakeGateway{result: payment.PushDeclined{Code: "1", Description: "The balance is insufficient for the transaction"}}
	svc := NewCheckoutService(gw, silentLogger(), false)

	out := svc.Submit(context.Background(), SubmitInput{PhoneNumber: "254712345678", Amount: "100"})
	require.False(t, out.Pending)
	require.Equal(t, "The balance is insufficient for the transaction", out.ErrorMessage)
}

func TestSubmitDeclinedWithoutDescription(t *testing.T) {
	gw := &fakeGateway{result: payment.PushDeclined{Code: "1"}}
	svc := NewCheckoutService(gw, silentLogger(), false)

	out := svc.Submit(context.Background(), SubmitInput{PhoneNumber: "254712345678", Amount: "100"})
	require.Equal(t, domain.MsgPushFailed, out.ErrorMessage)
}

func TestSubmitHidesInternalFailure(t *testing.T) {
	cause := &payment.NetworkError{Op: "stkpush", Err: errors.New("dial tcp 10.0.0.1:443: connection refused")}
	gw := &fakeGateway{result: payment.PushDeclined{Code: "1", Description: "Connection error: " + cause.Error(), Cause: cause}}
	svc := NewCheckoutService(gw, silentLogger(), false)

	out := svc.Submit(context.Background(), SubmitInput{PhoneNumber: "254712345678", Amount: "100"})
	require.False(t, out.Pending)
	require.Equal(t, domain.MsgPushFailed, out.ErrorMessage)
	require.NotContains(t, out.ErrorMessage, "10.0.0.1")
}

func TestSubmitAcceptedWithoutCheckoutID(t *testing.T) {
	gw := &fakeGateway{result: payment.PushAccepted{}}
	svc := NewCheckoutService(gw, silentLogger(), false)

	out := svc.Submit(context.Background(), SubmitInput{PhoneNumber: "254712345678", Amount: "100"})
	require.False(t, out.Pending)
	require.Equal(t, domain.MsgGenericError, out.ErrorMessage)
}

func TestSubmitInvalidInput(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewCheckoutService(gw, silentLogger(), false)

	out := svc.Submit(context.Background(), SubmitInput{PhoneNumber: "12345", Amount: "100"})
	require.Equal(t, domain.MsgInvalidPhone, out.ErrorMessage)

	out = svc.Submit(context.Background(), SubmitInput{PhoneNumber: "0712345678", Amount: "0"})
	require.Equal(t, domain.MsgInvalidAmount, out.ErrorMessage)

	require.Zero(t, gw.calls)
}

func TestCheckStatus(t *testing.T) {
	gw := &fakeGateway{status: map[string]any{"ResultCode": "0"}}
	svc := NewCheckoutService(gw, silentLogger(), false)

	status, err := svc.CheckStatus(context.Background(), " ws_CO_1 ")
	require.NoError(t, err)
	require.Equal(t, "ws_CO_1", gw.lastQuery)
	require.Equal(t, "0", status["ResultCode"])

	_, err = svc.CheckStatus(context.Background(), "")
	require.ErrorIs(t, err, payment.ErrMissingCheckoutID)

	gw.status, gw.err = map[string]any{"error": "mpesa stkquery: timeout"}, &payment.NetworkError{Op: "stkquery", Err: errors.New("timeout")}
	status, err = svc.CheckStatus(context.Background(), "ws_CO_1")
	require.Error(t, err)
	require.Equal(t, "mpesa stkquery: timeout", status["error"])
}
