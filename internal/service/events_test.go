package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/service"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs map[string][]any
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, q string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.msgs == nil {
		p.msgs = map[string][]any{}
	}
	p.msgs[q] = append(p.msgs[q], payload)
	return nil
}

func TestBookingEventsPublish(t *testing.T) {
	pub := &recordingPublisher{}
	ev := service.NewBookingEvents(pub, zap.NewNop())
	starts := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	s := model.ClassSession{ID: "s1", Title: "HIIT", Instructor: "Lucas Bernard", StartsAt: starts}
	r := model.Reservation{ID: "r1", MemberID: "m1", SessionID: "s1"}

	ev.Confirmed(context.Background(), r, s)
	ev.Cancelled(context.Background(), r, s, "session_cancelled")

	require.Len(t, pub.msgs[queue.QueueReservationConfirmed], 1)
	got := pub.msgs[queue.QueueReservationConfirmed][0].(queue.ReservationEvent)
	assert.Equal(t, "r1", got.ReservationID)
	assert.Equal(t, "HIIT", got.SessionTitle)
	assert.Equal(t, "2026-03-02T18:00:00Z", got.StartsAt)
	assert.Empty(t, got.Reason)

	require.Len(t, pub.msgs[queue.QueueReservationCancelled], 1)
	got = pub.msgs[queue.QueueReservationCancelled][0].(queue.ReservationEvent)
	assert.Equal(t, "session_cancelled", got.Reason)
	assert.Equal(t, queue.QueueReservationCancelled, got.Type)
}

func TestBookingEventsPublishFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ev := service.NewBookingEvents(&recordingPublisher{err: errors.New("broker down")}, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ev.Confirmed(ctx, model.Reservation{ID: "r1"}, model.ClassSession{})

	assert.Equal(t, 1, logs.FilterMessage("event not published").Len())
}
