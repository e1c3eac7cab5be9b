package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/config"
	"github.com/iliyamo/studio-booking/internal/handler"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/router"
	"github.com/iliyamo/studio-booking/internal/service"
	"github.com/iliyamo/studio-booking/internal/utils"
)

const (
	testSecret    = "handler-test-secret"
	webhookSecret = "whsec_test"
)

type recordingPublisher struct {
	mu   sync.Mutex
	sent map[string][]queue.ReservationEvent
}

func (p *recordingPublisher) Publish(_ context.Context, q string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sent == nil {
		p.sent = map[string][]queue.ReservationEvent{}
	}
	if ev, ok := payload.(queue.ReservationEvent); ok {
		p.sent[q] = append(p.sent[q], ev)
	}
	return nil
}

func (p *recordingPublisher) count(q string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent[q])
}

type api struct {
	t       *testing.T
	e       *echo.Echo
	backend repository.Backend
	pub     *recordingPublisher
	admin   string
}

func newAPI(t *testing.T) *api {
	t.Helper()
	cfg := config.Config{
		JWTSecret:      testSecret,
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     bcrypt.MinCost,
		WebhookSecret:  webhookSecret,
		Currency:       "EUR",
	}
	log := zap.NewNop()
	b := repository.NewMemoryBackend()
	coord := booking.NewCoordinator(b.BookingStores(), log)
	pub := &recordingPublisher{}
	events := service.NewBookingEvents(pub, log)
	purchase := service.NewPurchaseService(b.Packs, b.Payments, b.Members, cfg.Currency, log)

	e := echo.New()
	e.Validator = handler.NewValidator()
	router.Register(e, router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, b.Members, b.Tokens, log),
		Sessions:      handler.NewSessionHandler(coord, log),
		Reservations:  handler.NewReservationHandler(coord, b.Members, events, log),
		Credits:       handler.NewCreditHandler(b.Members, purchase, log),
		Packs:         handler.NewPackHandler(b.Packs, log),
		Payments:      handler.NewPaymentHandler(purchase, cfg.WebhookSecret, log),
		AdminSessions: handler.NewAdminSessionHandler(b.Sessions, b.Seats, coord, events, log),
		AdminMembers:  handler.NewAdminMemberHandler(b.Members, coord, b.Tokens, cfg.BcryptCost, log),
	}, router.Middleware{}, testSecret)

	a := &api{t: t, e: e, backend: b, pub: pub}
	admin, err := b.Members.Create(context.Background(), model.Member{Email: "boss@studiofit.test", Role: model.RoleAdmin})
	require.NoError(t, err)
	a.admin = a.token(admin.ID, model.RoleAdmin)
	return a
}

func (a *api) token(memberID, role string) string {
	tok, err := utils.NewAccessToken(testSecret, memberID, role, 15)
	require.NoError(a.t, err)
	return tok.Token
}

// member creates a MEMBER with credits and returns its id and token.
func (a *api) member(email string, credits int) (string, string) {
	m, err := a.backend.Members.Create(context.Background(), model.Member{Email: email, Credits: credits})
	require.NoError(a.t, err)
	return m.ID, a.token(m.ID, model.RoleMember)
}

func (a *api) do(method, path string, body any, token string, hdr ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case []byte:
			buf.Write(b)
		default:
			require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]any](t, rec)["code"].(string)
}

type sessionBody struct {
	ID             string `json:"id"`
	Capacity       int    `json:"capacity"`
	AvailableSpots int    `json:"available_spots"`
	Status         string `json:"status"`
}

type reservationBody struct {
	Reservation model.Reservation `json:"reservation"`
	Balance     int               `json:"balance"`
}

func (a *api) createSession(title string, capacity int) sessionBody {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/v1/admin/sessions", map[string]any{
		"title":            title,
		"instructor":       "Sophie Martin",
		"starts_at":        time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"duration_minutes": 45,
		"capacity":         capacity,
	}, a.admin)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[sessionBody](a.t, rec)
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/v1/auth/register", map[string]string{"email": "new@studiofit.test", "password": "longenough"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/v1/auth/register", map[string]string{"email": "NEW@studiofit.test", "password": "longenough"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/v1/auth/register", map[string]string{"email": "bad", "password": "x"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "new@studiofit.test", "password": "wrong-pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "new@studiofit.test", "password": "longenough"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	type tokens struct {
		Member struct {
			ID   string `json:"id"`
			Role string `json:"role"`
		} `json:"member"`
		Access  struct{ Token string } `json:"access"`
		Refresh struct{ Token string } `json:"refresh"`
	}
	login := decode[tokens](t, rec)
	assert.Equal(t, model.RoleMember, login.Member.Role)

	rec = a.do(http.MethodGet, "/v1/me", nil, login.Access.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	assert.Equal(t, login.Member.ID, me["id"])
	assert.EqualValues(t, 0, me["credits"])
	assert.NotContains(t, me, "password_hash")

	rec = a.do(http.MethodPost, "/v1/auth/refresh", map[string]string{"refresh_token": login.Refresh.Token}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	// the old refresh token was rotated out
	rec = a.do(http.MethodPost, "/v1/auth/refresh", map[string]string{"refresh_token": login.Refresh.Token}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/v1/me", nil, "").Code)
}

func TestReserveAndCancel(t *testing.T) {
	a := newAPI(t)
	s := a.createSession("HIIT", 2)
	assert.Equal(t, 2, s.AvailableSpots)
	_, tok := a.member("x@studiofit.test", 3)

	rec := a.do(http.MethodPost, "/v1/sessions/"+s.ID+"/reservations", nil, tok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[reservationBody](t, rec)
	assert.Equal(t, model.ReservationConfirmed, res.Reservation.Status)
	assert.Equal(t, 2, res.Balance)
	assert.Equal(t, 1, a.pub.count(queue.QueueReservationConfirmed))

	rec = a.do(http.MethodPost, "/v1/sessions/"+s.ID+"/reservations", nil, tok)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, handler.CodeAlreadyBooked, errCode(t, rec))

	rec = a.do(http.MethodGet, "/v1/sessions/"+s.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[sessionBody](t, rec).AvailableSpots)

	rec = a.do(http.MethodGet, "/v1/reservations", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[map[string][]model.Reservation](t, rec)["reservations"]
	require.Len(t, list, 1)

	rec = a.do(http.MethodDelete, "/v1/reservations/"+res.Reservation.ID, nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	cancelled := decode[reservationBody](t, rec)
	assert.Equal(t, model.ReservationCancelled, cancelled.Reservation.Status)
	assert.Equal(t, 3, cancelled.Balance)
	assert.Equal(t, 1, a.pub.count(queue.QueueReservationCancelled))

	rec = a.do(http.MethodDelete, "/v1/reservations/"+res.Reservation.ID, nil, tok)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, handler.CodeAlreadyCancelled, errCode(t, rec))

	rec = a.do(http.MethodGet, "/v1/reservations?status=confirmed", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[map[string][]model.Reservation](t, rec)["reservations"])
}

func TestReserveFailures(t *testing.T) {
	a := newAPI(t)
	s := a.createSession("Pilates", 1)
	_, broke := a.member("broke@studiofit.test", 0)
	_, first := a.member("first@studiofit.test", 1)
	_, late := a.member("late@studiofit.test", 1)

	rec := a.do(http.MethodPost, "/v1/sessions/"+s.ID+"/reservations", nil, broke)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, handler.CodeInsufficientCredits, errCode(t, rec))

	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/v1/sessions/"+s.ID+"/reservations", nil, first).Code)
	rec = a.do(http.MethodPost, "/v1/sessions/"+s.ID+"/reservations", nil, late)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, handler.CodeSessionFull, errCode(t, rec))

	rec = a.do(http.MethodPost, "/v1/sessions/nope/reservations", nil, late)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, handler.CodeNotFound, errCode(t, rec))

	// admins do not book
	rec = a.do(http.MethodPost, "/v1/sessions/"+s.ID+"/reservations", nil, a.admin)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReserveIdempotencyKey(t *testing.T) {
	a := newAPI(t)
	s1 := a.createSession("Yoga", 5)
	s2 := a.createSession("Barre", 5)
	_, tok := a.member("idem@studiofit.test", 5)

	rec := a.do(http.MethodPost, "/v1/sessions/"+s1.ID+"/reservations", nil, tok, handler.IdempotencyKeyHeader, "k-1")
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode[reservationBody](t, rec)

	rec = a.do(http.MethodPost, "/v1/sessions/"+s1.ID+"/reservations", nil, tok, handler.IdempotencyKeyHeader, "k-1")
	require.Equal(t, http.StatusOK, rec.Code)
	again := decode[reservationBody](t, rec)
	assert.Equal(t, first.Reservation.ID, again.Reservation.ID)
	assert.Equal(t, 4, again.Balance)
	assert.Equal(t, 1, a.pub.count(queue.QueueReservationConfirmed))

	rec = a.do(http.MethodPost, "/v1/sessions/"+s2.ID+"/reservations", nil, tok, handler.IdempotencyKeyHeader, "k-1")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, handler.CodeIdempotencyConflict, errCode(t, rec))
}

func TestReserveIdempotencyKey_ConcurrentRetries(t *testing.T) {
	a := newAPI(t)
	s := a.createSession("Yoga", 5)
	_, tok := a.member("double-tap@studiofit.test", 5)

	const n = 6
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = a.do(http.MethodPost, "/v1/sessions/"+s.ID+"/reservations", nil, tok, handler.IdempotencyKeyHeader, "k-burst").Code
		}(i)
	}
	wg.Wait()

	created, replayed := 0, 0
	for _, c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusOK:
			replayed++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, replayed)
	assert.Equal(t, 1, a.pub.count(queue.QueueReservationConfirmed))
}

func TestInvalidBodiesWriteNothing(t *testing.T) {
	a := newAPI(t)
	ctx := context.Background()

	rec := a.do(http.MethodPost, "/v1/admin/sessions", map[string]any{
		"title": "Zero", "instructor": "x", "starts_at": time.Now().Add(time.Hour).Format(time.RFC3339),
		"duration_minutes": 30, "capacity": 0,
	}, a.admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, handler.CodeBadRequest, errCode(t, rec))
	assert.NotContains(t, rec.Body.String(), `"id"`)
	rec = a.do(http.MethodGet, "/v1/admin/sessions", nil, a.admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[map[string][]sessionBody](t, rec)["sessions"])

	rec = a.do(http.MethodPost, "/v1/admin/sessions", []byte(`{"title":`), a.admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, handler.CodeBadRequest, errCode(t, rec))

	rec = a.do(http.MethodPost, "/v1/auth/register", map[string]string{"email": "bad", "password": "x"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "access")
	_, err := a.backend.Members.GetByEmail(ctx, "bad")
	assert.ErrorIs(t, err, booking.ErrMemberNotFound)

	rec = a.do(http.MethodPost, "/v1/admin/members", map[string]any{"email": "nope", "password": "short"}, a.admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	_, err = a.backend.Members.GetByEmail(ctx, "nope")
	assert.ErrorIs(t, err, booking.ErrMemberNotFound)

	rec = a.do(http.MethodPost, "/v1/admin/packs", map[string]any{"name": "Empty", "credits": 0, "price_cents": 100}, a.admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do(http.MethodGet, "/v1/admin/packs", nil, a.admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[map[string][]model.CreditPack](t, rec)["packs"])

	m, tok := a.member("granted@studiofit.test", 1)
	rec = a.do(http.MethodPost, "/v1/admin/members/"+m+"/credits", map[string]int{"credits": -5}, a.admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do(http.MethodGet, "/v1/credits/balance", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["balance"])
}

func TestCancelOtherMembersReservation(t *testing.T) {
	a := newAPI(t)
	s := a.createSession("Spin", 3)
	_, owner := a.member("owner@studiofit.test", 1)
	_, other := a.member("other@studiofit.test", 1)

	rec := a.do(http.MethodPost, "/v1/sessions/"+s.ID+"/reservations", nil, owner)
	require.Equal(t, http.StatusCreated, rec.Code)
	res := decode[reservationBody](t, rec)

	rec = a.do(http.MethodDelete, "/v1/reservations/"+res.Reservation.ID, nil, other)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, handler.CodeForbidden, errCode(t, rec))

	rec = a.do(http.MethodDelete, "/v1/reservations/missing", nil, other)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConcurrentReserveOverHTTP(t *testing.T) {
	a := newAPI(t)
	s := a.createSession("Crossfit", 3)
	const n = 12
	tokens := make([]string, n)
	for i := range tokens {
		_, tokens[i] = a.member("c"+string(rune('a'+i))+"@studiofit.test", 1)
	}

	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = a.do(http.MethodPost, "/v1/sessions/"+s.ID+"/reservations", nil, tokens[i]).Code
		}(i)
	}
	wg.Wait()

	created, full := 0, 0
	for _, c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			full++
		}
	}
	assert.Equal(t, 3, created)
	assert.Equal(t, n-3, full)
}

func TestAdminSessionLifecycle(t *testing.T) {
	a := newAPI(t)
	s := a.createSession("Pilates Débutant", 4)
	_, tok := a.member("p@studiofit.test", 2)
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/v1/sessions/"+s.ID+"/reservations", nil, tok).Code)

	rec := a.do(http.MethodPatch, "/v1/admin/sessions/"+s.ID, map[string]any{"capacity": 10}, a.admin)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = a.do(http.MethodPatch, "/v1/admin/sessions/"+s.ID, map[string]any{"title": "Pilates Doux"}, a.admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[sessionBody](t, rec).AvailableSpots)

	rec = a.do(http.MethodPost, "/v1/admin/sessions", map[string]any{"title": "Zero", "instructor": "x", "starts_at": time.Now().Format(time.RFC3339), "duration_minutes": 30, "capacity": 0}, a.admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodDelete, "/v1/admin/sessions/"+s.ID, nil, a.admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["refunded"])
	assert.Equal(t, 1, a.pub.count(queue.QueueReservationCancelled))

	rec = a.do(http.MethodGet, "/v1/credits/balance", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode[map[string]any](t, rec)["balance"])

	rec = a.do(http.MethodPost, "/v1/sessions/"+s.ID+"/reservations", nil, tok)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodDelete, "/v1/admin/sessions/"+s.ID, nil, a.admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodGet, "/v1/sessions", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[map[string][]sessionBody](t, rec)["sessions"])

	rec = a.do(http.MethodGet, "/v1/admin/sessions", nil, a.admin)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[map[string][]sessionBody](t, rec)["sessions"]
	require.Len(t, all, 1)
	assert.Equal(t, model.SessionCancelled, all[0].Status)

	rec = a.do(http.MethodGet, "/v1/admin/sessions", nil, tok)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPurchaseFlow(t *testing.T) {
	a := newAPI(t)
	memberID, tok := a.member("buyer@studiofit.test", 0)

	rec := a.do(http.MethodPost, "/v1/admin/packs", map[string]any{"name": "Carnet 10", "credits": 10, "price_cents": 15000}, a.admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	pack := decode[model.CreditPack](t, rec)
	assert.True(t, pack.IsActive)

	rec = a.do(http.MethodGet, "/v1/packs", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]model.CreditPack](t, rec)["packs"], 1)

	rec = a.do(http.MethodPost, "/v1/credits/checkout", map[string]string{"pack_id": pack.ID}, tok)
	require.Equal(t, http.StatusCreated, rec.Code)
	payment := decode[model.Payment](t, rec)
	assert.Equal(t, model.PaymentPending, payment.Status)
	assert.Equal(t, memberID, payment.MemberID)

	body, err := json.Marshal(queue.PaymentConfirmedEvent{PaymentID: payment.ID})
	require.NoError(t, err)

	rec = a.do(http.MethodPost, "/v1/payments/webhook", body, "", handler.SignatureHeader, "deadbeef")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	sig := utils.SignPayload(webhookSecret, body)
	for i := 0; i < 2; i++ {
		rec = a.do(http.MethodPost, "/v1/payments/webhook", body, "", handler.SignatureHeader, sig)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.EqualValues(t, 10, decode[map[string]any](t, rec)["balance"])
	}

	rec = a.do(http.MethodGet, "/v1/credits/transactions", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	txs := decode[map[string][]model.CreditTransaction](t, rec)["transactions"]
	require.Len(t, txs, 1)
	assert.Equal(t, model.CreditPurchase, txs[0].Kind)

	off := false
	rec = a.do(http.MethodPatch, "/v1/admin/packs/"+pack.ID, map[string]any{"is_active": off}, a.admin)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(http.MethodPost, "/v1/credits/checkout", map[string]string{"pack_id": pack.ID}, tok)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, handler.CodePackInactive, errCode(t, rec))
}

func TestAdminMembers(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodPost, "/v1/admin/members", map[string]any{
		"email": "camille@studiofit.test", "password": "password1", "first_name": "Camille", "credits": 2,
	}, a.admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	m := decode[model.Member](t, rec)
	assert.Equal(t, model.RoleMember, m.Role)
	assert.Equal(t, 2, m.Credits)

	rec = a.do(http.MethodPost, "/v1/admin/members/"+m.ID+"/credits", map[string]int{"credits": 3}, a.admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 5, decode[map[string]any](t, rec)["balance"])

	rec = a.do(http.MethodPost, "/v1/admin/members/"+m.ID+"/credits", map[string]int{"credits": 0}, a.admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPatch, "/v1/admin/members/"+m.ID, map[string]string{"phone": "+33600000000"}, a.admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "+33600000000", decode[model.Member](t, rec).Phone)

	s := a.createSession("Core", 5)
	tok := a.token(m.ID, model.RoleMember)
	rec = a.do(http.MethodPost, "/v1/sessions/"+s.ID+"/reservations", nil, tok)
	require.Equal(t, http.StatusCreated, rec.Code)
	res := decode[reservationBody](t, rec)

	rec = a.do(http.MethodDelete, "/v1/admin/members/"+m.ID, nil, a.admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.Equal(t, http.StatusOK, a.do(http.MethodDelete, "/v1/reservations/"+res.Reservation.ID, nil, tok).Code)
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/v1/admin/members/"+m.ID, nil, a.admin).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/v1/admin/members/"+m.ID, nil, a.admin).Code)

	rec = a.do(http.MethodGet, "/v1/admin/members", nil, a.admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]model.Member](t, rec)["members"], 1)
}

func TestAdminReconcile(t *testing.T) {
	a := newAPI(t)
	s := a.createSession("Drift", 4)
	cs, err := a.backend.Sessions.Get(context.Background(), s.ID)
	require.NoError(t, err)
	_, err = a.backend.Seats.Sync(context.Background(), cs, 3)
	require.NoError(t, err)

	rec := a.do(http.MethodPost, "/v1/admin/reconcile", nil, a.admin)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[booking.Report](t, rec)
	require.Len(t, report.Corrections, 1)
	assert.Equal(t, booking.CorrectionSeats, report.Corrections[0].Kind)

	rec = a.do(http.MethodGet, "/v1/sessions/"+s.ID, nil, "")
	assert.Equal(t, 4, decode[sessionBody](t, rec).AvailableSpots)
}
