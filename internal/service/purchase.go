package service

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    "go.uber.org/zap"

    "github.com/iliyamo/studio-booking/internal/model"
    "github.com/iliyamo/studio-booking/internal/queue"
    "github.com/iliyamo/studio-booking/internal/repository"
)

// ErrPackInactive is returned when checking out a retired pack.
var ErrPackInactive = errors.New("pack is not available")

// PurchaseService runs the credit purchase flow.  Checkout records a
// pending payment; Confirm, driven by the payment processor, credits the
// member once.
type PurchaseService struct {
    packs    repository.PackStore
    payments repository.PaymentStore
    members  repository.MemberStore
    currency string
    log      *zap.Logger
    now      func() time.Time
}

func NewPurchaseService(packs repository.PackStore, payments repository.PaymentStore, members repository.MemberStore, currency string, log *zap.Logger) *PurchaseService {
    if log == nil {
        log = zap.NewNop()
    }
    return &PurchaseService{
        packs:    packs,
        payments: payments,
        members:  members,
        currency: currency,
        log:      log.Named("purchase"),
        now:      func() time.Time { return time.Now().UTC() },
    }
}

// Checkout starts a purchase of packID.
func (s *PurchaseService) Checkout(ctx context.Context, memberID, packID string) (model.Payment, error) {
    if _, err := s.members.GetByID(ctx, memberID); err != nil {
        return model.Payment{}, err
    }
    pack, err := s.packs.Get(ctx, packID)
    if err != nil {
        return model.Payment{}, err
    }
    if !pack.IsActive {
        return model.Payment{}, ErrPackInactive
    }
    p, err := s.payments.Create(ctx, model.Payment{
        MemberID:    memberID,
        PackID:      pack.ID,
        Credits:     pack.Credits,
        AmountCents: pack.PriceCents,
        Currency:    s.currency,
    })
    if err != nil {
        return model.Payment{}, fmt.Errorf("create payment: %w", err)
    }
    s.log.Info("checkout started",
        zap.String("payment_id", p.ID),
        zap.String("member_id", memberID),
        zap.String("pack_id", pack.ID))
    return p, nil
}

// Confirm marks the payment completed and credits the member, returning
// the new balance.  Confirming a completed payment again only returns
// the balance.
func (s *PurchaseService) Confirm(ctx context.Context, paymentID string) (model.Payment, int, error) {
    p, err := s.payments.Get(ctx, paymentID)
    if err != nil {
        return model.Payment{}, 0, err
    }
    first, err := s.payments.Complete(ctx, paymentID, s.now())
    if err != nil {
        return model.Payment{}, 0, fmt.Errorf("complete payment: %w", err)
    }
    if first {
        err := s.members.Credit(ctx, model.CreditEntry{
            MemberID: p.MemberID,
            Amount:   p.Credits,
            Kind:     model.CreditPurchase,
            PackID:   p.PackID,
        })
        if err != nil {
            if rerr := s.payments.Reopen(context.WithoutCancel(ctx), paymentID); rerr != nil {
                s.log.Error("reopen payment failed", zap.String("payment_id", paymentID), zap.Error(rerr))
            }
            return model.Payment{}, 0, fmt.Errorf("credit purchase: %w", err)
        }
        s.log.Info("payment confirmed",
            zap.String("payment_id", paymentID),
            zap.String("member_id", p.MemberID),
            zap.Int("credits", p.Credits))
    }
    if p, err = s.payments.Get(ctx, paymentID); err != nil {
        return model.Payment{}, 0, err
    }
    bal, err := s.members.Balance(ctx, p.MemberID)
    if err != nil {
        return model.Payment{}, 0, err
    }
    return p, bal, nil
}

// HandlePaymentEvent confirms the payment named by a payment.confirmed
// message.  It is a queue.Handler.
func (s *PurchaseService) HandlePaymentEvent(ctx context.Context, body []byte) error {
    var ev queue.PaymentConfirmedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.PaymentID == "" {
        return errors.New("event without payment_id")
    }
    _, _, err := s.Confirm(ctx, ev.PaymentID)
    return err
}
