package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/CodeWithProBrian/Mpesa/internal/domain"
	"github.com/CodeWithProBrian/Mpesa/internal/lock"
	"github.com/CodeWithProBrian/Mpesa/internal/models"
	"github.com/CodeWithProBrian/Mpesa/internal/repository"
	"github.com/CodeWithProBrian/Mpesa/pkg/payment"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore mimics the unique checkout_id index.
type memStore struct {
	mu   sync.Mutex
	rows []*models.Transaction
	err  error
}

func (m *memStore) CreateOnce(ctx context.Context, t *models.Transaction) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.CheckoutID == t.CheckoutID {
			return false, nil
		}
	}
	t.ID = uint(len(m.rows) + 1)
	m.rows = append(m.rows, t)
	return true, nil
}

func (m *memStore) GetByCheckoutID(ctx context.Context, id string) (*models.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.CheckoutID == id {
			return r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]any
}

func (p *recordingPublisher) Publish(id string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = map[string][]any{}
	}
	p.events[id] = append(p.events[id], payload)
}

func successBody(checkoutID string) []byte {
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{
		"MerchantRequestID":"29115-34620561-1",
		"CheckoutRequestID":%q,
		"ResultCode":0,
		"ResultDesc":"The service request is processed successfully.",
		"CallbackMetadata":{"Item":[
			{"Name":"Amount","Value":100},
			{"Name":"MpesaReceiptNumber","Value":"ABC123"},
			{"Name":"PhoneNumber","Value":254712345678}]}}}}`, checkoutID))
}

func newReconciler(store TransactionStore, pub Publisher) *ReconcileService {
	return NewReconcileService(store, lock.NewLocalLocker(), NewNotificationService(pub), silentLogger())
}

func TestReconcileSuccessCreatesOneTransaction(t *testing.T) {
	store := &memStore{}
	pub := &recordingPublisher{}
	svc := newReconciler(store, pub)

	reply, err := svc.Reconcile(context.Background(), successBody("ws_CO_1"))
	require.NoError(t, err)
	require.Equal(t, &payment.CallbackReply{ResultCode: 0, ResultDesc: "Payment successful"}, reply)

	require.Equal(t, 1, store.count())
	tx := store.rows[0]
	require.Equal(t, "100", tx.Amount.String())
	require.Equal(t, "ws_CO_1", tx.CheckoutID)
	require.Equal(t, "ABC123", tx.MpesaCode)
	require.Equal(t, "254712345678", tx.PhoneNumber)
	require.Equal(t, domain.TransactionStatusSuccess, tx.Status)

	require.Len(t, pub.events["ws_CO_1"], 1)
	ev := pub.events["ws_CO_1"][0].(OutcomeEvent)
	require.Equal(t, EventOutcome, ev.Type)
	require.Equal(t, "ABC123", ev.MpesaCode)
}

func TestReconcileFailedResultWritesNothing(t *testing.T) {
	store := &memStore{}
	pub := &recordingPublisher{}
	svc := newReconciler(store, pub)

	body := []byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_2","ResultCode":1,"ResultDesc":"The balance is insufficient"}}}`)
	reply, err := svc.Reconcile(context.Background(), body)
	require.NoError(t, err)
	require.Equal(t, &payment.CallbackReply{ResultCode: 1, ResultDesc: "Payment failed"}, reply)
	require.Zero(t, store.count())
	require.Len(t, pub.events["ws_CO_2"], 1)
}

func TestReconcileMalformedBody(t *testing.T) {
	store := &memStore{}
	svc := newReconciler(store, nil)

	reply, err := svc.Reconcile(context.Background(), []byte(`not json`))
	require.Nil(t, reply)
	var perr *payment.ProtocolError
	require.True(t, errors.As(err, &perr))
	require.Zero(t, store.count())
}

func TestReconcileDuplicateCallback(t *testing.T) {
	store := &memStore{}
	pub := &recordingPublisher{}
	svc := newReconciler(store, pub)

	for i := 0; i < 2; i++ {
		reply, err := svc.Reconcile(context.Background(), successBody("ws_CO_3"))
		require.NoError(t, err)
		require.Equal(t, 0, reply.ResultCode)
		require.Equal(t, payment.ResultDescSuccess, reply.ResultDesc)
	}
	require.Equal(t, 1, store.count())
	require.Len(t, pub.events["ws_CO_3"], 1)
}

func TestReconcileConcurrentDuplicates(t *testing.T) {
	store := &memStore{}
	svc := newReconciler(store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reconcile(context.Background(), successBody("ws_CO_4"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, store.count())
}

func TestReconcileStoreFailure(t *testing.T) {
	store := &memStore{err: errors.New("connection reset")}
	svc := newReconciler(store, nil)

	reply, err := svc.Reconcile(context.Background(), successBody("ws_CO_5"))
	require.Nil(t, reply)
	require.Error(t, err)
	var perr *payment.ProtocolError
	require.False(t, errors.As(err, &perr))
}

func TestReconcileConcurrentDuplicatesWithRedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cli.Close()

	store := &memStore{}
	svc := NewReconcileService(store, lock.NewRedisLocker(cli, 5*time.Second), NewNotificationService(nil), silentLogger())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reply, err := svc.Reconcile(context.Background(), successBody("ws_CO_6"))
			if assert.NoError(t, err) {
				assert.Equal(t, payment.ResultDescSuccess, reply.ResultDesc)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, store.count())
	require.False(t, mr.Exists("mpesa:callback:ws_CO_6"))
}
