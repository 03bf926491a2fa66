// Package seed bootstraps a fresh database with the platform administrator
// and a starter category tree. Running it again changes nothing.
package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/repository"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/service"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/config"
)

// ErrNoAdminPassword is returned when no password was configured for a
// super admin that does not exist yet.
var ErrNoAdminPassword = errors.New("seed: SEED_ADMIN_PASSWORD is required to create the super admin")

type categorySeed struct {
	name     string
	children []string
}

var productCategories = []categorySeed{
	{name: "Cement & Concrete", children: []string{"Portland Cement", "Ready-Mix Concrete"}},
	{name: "Steel", children: []string{"Rebar", "Structural Sections"}},
	{name: "Timber"},
	{name: "Aggregates", children: []string{"Sand", "Gravel"}},
}

var serviceCategories = []categorySeed{
	{name: "Transport", children: []string{"Crane Hire", "Haulage"}},
	{name: "Installation"},
}

// Result reports what a run created.
type Result struct {
	AdminCreated      bool
	CategoriesCreated int
}

// Run creates the super admin from cfg when no account with that email
// exists, then the starter categories that are missing.
func Run(ctx context.Context, repo repository.Repository, svc *service.Services, cfg config.SeedConfig, log *zap.Logger) (*Result, error) {
	res := &Result{}

	admin, created, err := ensureAdmin(ctx, repo, cfg)
	if err != nil {
		return nil, err
	}
	res.AdminCreated = created
	if created {
		log.Info("Created super admin", zap.String("email", admin.Email))
	}

	actor := model.ActorFor(admin)
	for kind, roots := range map[model.CategoryKind][]categorySeed{
		model.CategoryProduct: productCategories,
		model.CategoryService: serviceCategories,
	} {
		for _, root := range roots {
			parent, ok, err := ensureCategory(ctx, svc, actor, kind, nil, root.name)
			if err != nil {
				return nil, err
			}
			if ok {
				res.CategoriesCreated++
			}
			for _, child := range root.children {
				_, ok, err := ensureCategory(ctx, svc, actor, kind, &parent.ID, child)
				if err != nil {
					return nil, err
				}
				if ok {
					res.CategoriesCreated++
				}
			}
		}
	}

	log.Info("Seed complete",
		zap.Bool("admin_created", res.AdminCreated),
		zap.Int("categories_created", res.CategoriesCreated))
	return res, nil
}

func ensureAdmin(ctx context.Context, repo repository.Repository, cfg config.SeedConfig) (*model.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	existing, err := repo.GetUserByEmail(ctx, email)
	if err == nil {
		if existing.Role != model.RoleSuperAdmin {
			return nil, false, apperr.Conflict("%s exists and is not a super admin", email)
		}
		return existing, false, nil
	} else if !apperr.Is(err, apperr.ENotFound) {
		return nil, false, err
	}

	if cfg.AdminPassword == "" {
		return nil, false, ErrNoAdminPassword
	}
	hash, err := service.HashPassword(cfg.AdminPassword)
	if err != nil {
		return nil, false, err
	}
	admin := &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Platform",
		LastName:     "Admin",
		Role:         model.RoleSuperAdmin,
		Status:       model.StatusActive,
		IsActive:     true,
	}
	if err := repo.CreateUser(ctx, admin); err != nil {
		return nil, false, err
	}
	return admin, true, nil
}

// ensureCategory returns the category named name under parentID, creating it
// when absent. The bool reports whether it was created.
func ensureCategory(ctx context.Context, svc *service.Services, actor model.Actor, kind model.CategoryKind, parentID *uuid.UUID, name string) (*model.Category, bool, error) {
	cat, err := svc.Categories.Create(ctx, actor, service.CategoryInput{
		Kind:     kind,
		ParentID: parentID,
		Name:     name,
	})
	if err == nil {
		return cat, true, nil
	}
	if !apperr.Is(err, apperr.EConflict) {
		return nil, false, err
	}

	f := repository.CategoryFilter{Kind: kind, ParentID: parentID, RootsOnly: parentID == nil}
	siblings, err := svc.Categories.List(ctx, f)
	if err != nil {
		return nil, false, err
	}
	for i := range siblings {
		if strings.EqualFold(siblings[i].Name, name) {
			return &siblings[i], false, nil
		}
	}
	return nil, false, apperr.Internal("seed category "+name, errors.New("conflicting category not found"))
}
