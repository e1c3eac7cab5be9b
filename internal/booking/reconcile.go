package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/model"
)

// Correction kinds reported by Reconcile.
const (
	CorrectionSeats   = "seats"
	CorrectionCredits = "credits"
)

// Correction records one counter that disagreed with the registry.
// Recorded is what the counter held, Expected what the registry implies.
type Correction struct {
	Kind      string `json:"kind"`
	SessionID string `json:"session_id,omitempty"`
	MemberID  string `json:"member_id,omitempty"`
	Recorded  int    `json:"recorded"`
	Expected  int    `json:"expected"`
	Applied   bool   `json:"applied"`
}

// Report summarises a reconciliation pass.
type Report struct {
	SessionsChecked int          `json:"sessions_checked"`
	MembersChecked  int          `json:"members_checked"`
	Corrections     []Correction `json:"corrections"`
}

// Reconcile recomputes the derived counters from the registry, which
// is the source of truth.  Each session's reserved count is set to its
// confirmed reservations, and each member's outstanding booking debits
// are brought back in line with their confirmed reservations through a
// correction journal entry.  Every mismatch is logged at error level.
// Bookings are paused while the pass runs.
func (c *Coordinator) Reconcile(ctx context.Context) (Report, error) {
	c.gate.Lock()
	defer c.gate.Unlock()

	report := Report{Corrections: []Correction{}}

	sessions, err := c.catalog.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list sessions: %w", err)
	}
	bySession, byMember, err := c.registry.ConfirmedCounts(ctx)
	if err != nil {
		return report, fmt.Errorf("count reservations: %w", err)
	}

	var errs []error
	for _, s := range sessions {
		want := bySession[s.ID]
		prev, err := c.seats.Sync(ctx, s, want)
		if err != nil {
			errs = append(errs, fmt.Errorf("sync seats for %s: %w", s.ID, err))
			continue
		}
		report.SessionsChecked++
		if prev == want {
			continue
		}
		c.log.Error("seat count mismatch",
			zap.String("session_id", s.ID),
			zap.Int("recorded", prev),
			zap.Int("expected", want))
		report.Corrections = append(report.Corrections, Correction{
			Kind: CorrectionSeats, SessionID: s.ID, Recorded: prev, Expected: want, Applied: true,
		})
	}

	outstanding, err := c.credits.OutstandingBookingDebits(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("read credit journal: %w", err))
		return report, errors.Join(errs...)
	}
	members := make([]string, 0, len(outstanding)+len(byMember))
	for m := range outstanding {
		members = append(members, m)
	}
	for m := range byMember {
		if _, ok := outstanding[m]; !ok {
			members = append(members, m)
		}
	}
	sort.Strings(members)

	for _, m := range members {
		report.MembersChecked++
		held, want := outstanding[m], byMember[m]
		if held == want {
			continue
		}
		corr := Correction{Kind: CorrectionCredits, MemberID: m, Recorded: held, Expected: want}
		entry := model.CreditEntry{MemberID: m, Kind: model.CreditCorrection}
		if held > want {
			// Debited without a live reservation: give the credits back.
			entry.Amount = held - want
			if err := c.credits.Credit(ctx, entry); err != nil {
				errs = append(errs, fmt.Errorf("correct credits for %s: %w", m, err))
			} else {
				corr.Applied = true
			}
		} else {
			entry.Amount = want - held
			ok, err := c.credits.TryDebit(ctx, entry)
			if err != nil {
				errs = append(errs, fmt.Errorf("correct credits for %s: %w", m, err))
			}
			corr.Applied = ok
		}
		c.log.Error("credit debit mismatch",
			zap.String("member_id", m),
			zap.Int("recorded", held),
			zap.Int("expected", want),
			zap.Bool("applied", corr.Applied))
		report.Corrections = append(report.Corrections, corr)
	}

	if len(errs) > 0 {
		return report, &InconsistencyError{Op: "reconcile", Err: errors.Join(errs...)}
	}
	return report, nil
}

// RunReconciler calls Reconcile every interval until ctx is done.
func (c *Coordinator) RunReconciler(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			report, err := c.Reconcile(ctx)
			if err != nil && ctx.Err() == nil {
				c.log.Error("reconciliation failed", zap.Error(err))
				continue
			}
			if n := len(report.Corrections); n > 0 {
				c.log.Warn("reconciliation applied corrections", zap.Int("corrections", n))
			}
		}
	}
}
