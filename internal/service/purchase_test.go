package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/service"
)

type purchaseFixture struct {
	b      repository.Backend
	svc    *service.PurchaseService
	member model.Member
	pack   model.CreditPack
}

func newPurchaseFixture(t *testing.T) purchaseFixture {
	t.Helper()
	ctx := context.Background()
	b := repository.NewMemoryBackend()
	m, err := b.Members.Create(ctx, model.Member{Email: "buyer@studiofit.test", Credits: 2})
	require.NoError(t, err)
	p, err := b.Packs.Create(ctx, model.CreditPack{Name: "Carnet 10", Credits: 10, PriceCents: 15000, IsActive: true})
	require.NoError(t, err)
	return purchaseFixture{
		b:      b,
		svc:    service.NewPurchaseService(b.Packs, b.Payments, b.Members, "EUR", zap.NewNop()),
		member: m,
		pack:   p,
	}
}

func TestCheckoutAndConfirm(t *testing.T) {
	f := newPurchaseFixture(t)
	ctx := context.Background()

	p, err := f.svc.Checkout(ctx, f.member.ID, f.pack.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, p.Status)
	assert.Equal(t, 10, p.Credits)
	assert.Equal(t, 15000, p.AmountCents)
	assert.Equal(t, "EUR", p.Currency)

	bal, err := f.b.Members.Balance(ctx, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, bal, "checkout alone does not credit")

	done, bal, err := f.svc.Confirm(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)
	assert.Equal(t, 12, bal)

	txs, err := f.b.Members.Transactions(ctx, f.member.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, model.CreditPurchase, txs[1].Kind)
	assert.Equal(t, 10, txs[1].Credits)
	assert.Equal(t, f.pack.ID, txs[1].PackID)
}

func TestConfirmIsIdempotent(t *testing.T) {
	f := newPurchaseFixture(t)
	ctx := context.Background()
	p, err := f.svc.Checkout(ctx, f.member.ID, f.pack.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.svc.Confirm(ctx, p.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	bal, err := f.b.Members.Balance(ctx, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, bal)
}

func TestCheckoutSnapshotsPackCredits(t *testing.T) {
	f := newPurchaseFixture(t)
	ctx := context.Background()
	p, err := f.svc.Checkout(ctx, f.member.ID, f.pack.ID)
	require.NoError(t, err)

	five := 5
	_, err = f.b.Packs.Update(ctx, f.pack.ID, model.PackUpdate{Credits: &five})
	require.NoError(t, err)

	_, bal, err := f.svc.Confirm(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, bal)
}

func TestCheckoutRejects(t *testing.T) {
	f := newPurchaseFixture(t)
	ctx := context.Background()

	_, err := f.svc.Checkout(ctx, "nobody", f.pack.ID)
	assert.Error(t, err)

	_, err = f.svc.Checkout(ctx, f.member.ID, "missing-pack")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	off := false
	_, err = f.b.Packs.Update(ctx, f.pack.ID, model.PackUpdate{IsActive: &off})
	require.NoError(t, err)
	_, err = f.svc.Checkout(ctx, f.member.ID, f.pack.ID)
	assert.ErrorIs(t, err, service.ErrPackInactive)
}

func TestConfirmUnknownPayment(t *testing.T) {
	f := newPurchaseFixture(t)
	_, _, err := f.svc.Confirm(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

type failingCredits struct {
	repository.MemberStore
}

func (failingCredits) Credit(context.Context, model.CreditEntry) error {
	return errors.New("db down")
}

func TestConfirmReopensWhenCreditFails(t *testing.T) {
	f := newPurchaseFixture(t)
	ctx := context.Background()
	p, err := f.svc.Checkout(ctx, f.member.ID, f.pack.ID)
	require.NoError(t, err)

	broken := service.NewPurchaseService(f.b.Packs, f.b.Payments, failingCredits{f.b.Members}, "EUR", zap.NewNop())
	_, _, err = broken.Confirm(ctx, p.ID)
	require.Error(t, err)

	got, err := f.b.Payments.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, got.Status)

	_, bal, err := f.svc.Confirm(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, bal)
}

func TestHandlePaymentEvent(t *testing.T) {
	f := newPurchaseFixture(t)
	ctx := context.Background()
	p, err := f.svc.Checkout(ctx, f.member.ID, f.pack.ID)
	require.NoError(t, err)

	body, err := json.Marshal(queue.PaymentConfirmedEvent{PaymentID: p.ID, Reference: "psp_123"})
	require.NoError(t, err)
	require.NoError(t, f.svc.HandlePaymentEvent(ctx, body))
	require.NoError(t, f.svc.HandlePaymentEvent(ctx, body))

	bal, err := f.b.Members.Balance(ctx, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, bal)

	assert.Error(t, f.svc.HandlePaymentEvent(ctx, []byte("{")))
	assert.Error(t, f.svc.HandlePaymentEvent(ctx, []byte(`{}`)))
}
