package service

import (
    "context"
    "errors"
    "fmt"
    "time"

    "go.uber.org/zap"

    "github.com/iliyamo/studio-booking/internal/booking"
    "github.com/iliyamo/studio-booking/internal/model"
    "github.com/iliyamo/studio-booking/internal/repository"
    "github.com/iliyamo/studio-booking/internal/utils"
)

// Demo accounts created by Seed.
const (
    DemoAdminEmail     = "admin@studiofit.test"
    DemoAdminPassword  = "AdminSecret1!"
    DemoMemberEmail    = "member@studiofit.test"
    DemoMemberPassword = "MemberSecret1!"
    DemoMemberCredits  = 12
)

type demoSession struct {
    title      string
    instructor string
    dayOffset  int
    hour       int
    minutes    int
    capacity   int
}

var demoSessions = []demoSession{
    {"Pilates Débutant", "Sophie Martin", 1, 9, 60, 12},
    {"Pilates Intermédiaire", "Lucas Bernard", 1, 18, 60, 10},
    {"Pilates Renforcement", "Emma Dubois", 2, 12, 45, 8},
    {"HIIT", "Lucas Bernard", 2, 19, 45, 10},
    {"Yoga Vinyasa", "Sophie Martin", 3, 8, 75, 15},
}

var demoPacks = []model.CreditPack{
    {Name: "Séance découverte", Credits: 1, PriceCents: 1800, Description: "Une séance à l'unité", IsActive: true},
    {Name: "Carnet 10 séances", Credits: 10, PriceCents: 15000, Description: "Valable 6 mois", IsActive: true},
    {Name: "Carnet 20 séances", Credits: 20, PriceCents: 26000, Description: "Valable 12 mois", IsActive: true},
}

// Seed inserts demo accounts, packs and a week of sessions unless the
// admin account already exists.  New sessions get their seat ledger
// entry opened.
func Seed(ctx context.Context, b repository.Backend, bcryptCost int, log *zap.Logger) error {
    if _, err := b.Members.GetByEmail(ctx, DemoAdminEmail); err == nil {
        log.Info("demo data already present")
        return nil
    } else if !errors.Is(err, booking.ErrMemberNotFound) {
        return err
    }

    accounts := []struct {
        email, password, role, first, last string
        credits                            int
    }{
        {DemoAdminEmail, DemoAdminPassword, model.RoleAdmin, "Studio", "Admin", 0},
        {DemoMemberEmail, DemoMemberPassword, model.RoleMember, "Camille", "Petit", DemoMemberCredits},
    }
    for _, a := range accounts {
        hash, err := utils.HashPassword(a.password, bcryptCost)
        if err != nil {
            return err
        }
        if _, err := b.Members.Create(ctx, model.Member{
            Email:          a.email,
            PasswordHash:   hash,
            Role:           a.role,
            FirstName:      a.first,
            LastName:       a.last,
            MembershipType: "standard",
            Credits:        a.credits,
        }); err != nil {
            return fmt.Errorf("seed member %s: %w", a.email, err)
        }
    }

    for _, p := range demoPacks {
        if _, err := b.Packs.Create(ctx, p); err != nil {
            return fmt.Errorf("seed pack %s: %w", p.Name, err)
        }
    }

    day := time.Now().UTC().Truncate(24 * time.Hour)
    for _, d := range demoSessions {
        s, err := b.Sessions.Create(ctx, model.ClassSession{
            Title:           d.title,
            Instructor:      d.instructor,
            StartsAt:        day.AddDate(0, 0, d.dayOffset).Add(time.Duration(d.hour) * time.Hour),
            DurationMinutes: d.minutes,
            Capacity:        d.capacity,
        })
        if err != nil {
            return fmt.Errorf("seed session %s: %w", d.title, err)
        }
        if _, err := b.Seats.Sync(ctx, s, 0); err != nil {
            return fmt.Errorf("open seat ledger for %s: %w", d.title, err)
        }
    }
    log.Info("demo data seeded",
        zap.Int("sessions", len(demoSessions)),
        zap.Int("packs", len(demoPacks)))
    return nil
}
