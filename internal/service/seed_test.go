package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/service"
	"github.com/iliyamo/studio-booking/internal/utils"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	b := repository.NewMemoryBackend()
	require.NoError(t, service.Seed(ctx, b, bcrypt.MinCost, zap.NewNop()))

	admin, err := b.Members.GetByEmail(ctx, service.DemoAdminEmail)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.True(t, utils.VerifyPassword(admin.PasswordHash, service.DemoAdminPassword))

	member, err := b.Members.GetByEmail(ctx, service.DemoMemberEmail)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, member.Role)
	assert.Equal(t, service.DemoMemberCredits, member.Credits)

	sessions, err := b.Sessions.ListUpcoming(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sessions)
	for _, s := range sessions {
		n, err := b.Seats.AvailableSpots(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.Capacity, n, s.Title)
	}

	packs, err := b.Packs.List(ctx, true)
	require.NoError(t, err)
	assert.NotEmpty(t, packs)

	// second run is a no-op
	require.NoError(t, service.Seed(ctx, b, bcrypt.MinCost, zap.NewNop()))
	again, err := b.Sessions.List(ctx)
	require.NoError(t, err)
	assert.Len(t, again, len(sessions))
}
