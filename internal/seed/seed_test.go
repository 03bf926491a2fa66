package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/events"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/repository"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/service"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/testutil"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/config"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/jwtutil"
)

func setup(t *testing.T) (repository.Repository, *service.Services) {
	repo := repository.New(testutil.NewDB(t))
	jwt := jwtutil.NewJWTUtil(&config.JWTConfig{SigningKey: "seed-test", ExpirationHours: 1})
	return repo, service.New(repo, &events.Recorder{}, jwt, zap.NewNop())
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo, svc := setup(t)
	cfg := config.SeedConfig{AdminEmail: "Admin@Example.com", AdminPassword: "s3cret-pass"}

	first, err := Run(ctx, repo, svc, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, first.AdminCreated)
	assert.Equal(t, 14, first.CategoriesCreated)

	second, err := Run(ctx, repo, svc, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, second.AdminCreated)
	assert.Zero(t, second.CategoriesCreated)

	admin, err := repo.GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleSuperAdmin, admin.Role)
	assert.Equal(t, model.StatusActive, admin.Status)

	login, err := svc.Auth.Login(ctx, "admin@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)

	roots, err := svc.Categories.List(ctx, repository.CategoryFilter{Kind: model.CategoryProduct, RootsOnly: true})
	require.NoError(t, err)
	assert.Len(t, roots, 4)
}

func TestRunRequiresPasswordForNewAdmin(t *testing.T) {
	repo, svc := setup(t)
	_, err := Run(context.Background(), repo, svc, config.SeedConfig{AdminEmail: "admin@example.com"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrNoAdminPassword)
}
