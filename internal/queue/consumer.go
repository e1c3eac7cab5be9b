package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// Handler processes one message body.  A returned error rejects the
// message without requeueing it.
type Handler func(ctx context.Context, body []byte) error

// Consume connects to url, declares queueName (durable) and feeds every
// delivery to h.  It reconnects with exponential backoff and returns only
// when ctx is cancelled.
func Consume(ctx context.Context, url, queueName string, h Handler, log *zap.Logger) error {
    log = log.With(zap.String("queue", queueName))
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = consumeLoop(ctx, conn, queueName, h, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn("consume loop ended; reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

// Run is Consume for a background goroutine: it blocks until Consume
// returns and logs why.  Shutdown is logged at info, anything else at
// error.
func Run(ctx context.Context, url, queueName string, h Handler, log *zap.Logger) {
    err := Consume(ctx, url, queueName, h, log)
    if err != nil && !errors.Is(err, ctx.Err()) {
        log.Error("consumer stopped", zap.String("queue", queueName), zap.Error(err))
        return
    }
    log.Info("consumer stopped", zap.String("queue", queueName))
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queueName string, h Handler, log *zap.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warn("set QoS failed", zap.Error(err))
    }
    if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }
    log.Info("consumer started")

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := h(ctx, d.Body); err != nil {
                log.Error("handle message failed", zap.Error(err))
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

// AuditLog appends reservation events to a file, one line each.
type AuditLog struct {
    mu   sync.Mutex
    path string
}

// NewAuditLog writes to dir/booking.log, creating dir when needed.
func NewAuditLog(dir string) *AuditLog {
    return &AuditLog{path: filepath.Join(dir, "booking.log")}
}

// Path returns the file the log appends to.
func (a *AuditLog) Path() string { return a.path }

// Handle is a Handler for the reservation queues.
func (a *AuditLog) Handle(_ context.Context, body []byte) error {
    var ev ReservationEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.ReservationID == "" {
        return errors.New("event without reservation_id")
    }

    verb := "confirmed"
    if ev.Type == QueueReservationCancelled {
        verb = "cancelled"
    }
    line := fmt.Sprintf("[%s] Reservation %s | reservation_id=%s | member_id=%s | session_id=%s | session=%q | instructor=%q | starts_at=%s",
        ev.OccurredAt, verb, ev.ReservationID, ev.MemberID, ev.SessionID, ev.SessionTitle, ev.Instructor, ev.StartsAt)
    if ev.Reason != "" {
        line += " | reason=" + ev.Reason
    }

    a.mu.Lock()
    defer a.mu.Unlock()
    if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(line + "\n"); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}
