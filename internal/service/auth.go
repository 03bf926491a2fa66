package service

import (
	"context"
	"net/mail"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/events"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/repository"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/jwtutil"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/prometheus"
)

const minPasswordLength = 8

// AuthService registers accounts and issues tokens.
type AuthService struct {
	*deps
	jwt *jwtutil.JWTUtil
}

// RegisterInput registers either a tenant with its administrator (TenantType
// set) or a standalone customer (TenantType empty). Every registration
// starts pending.
type RegisterInput struct {
	Email         string           `json:"email" validate:"required,email"`
	Password      string           `json:"password" validate:"required,min=8"`
	FirstName     string           `json:"first_name"`
	LastName      string           `json:"last_name"`
	TenantType    model.TenantType `json:"tenant_type"`
	TenantName    string           `json:"tenant_name"`
	TenantEmail   string           `json:"tenant_email"`
	TenantPhone   string           `json:"tenant_phone"`
	TenantAddress string           `json:"tenant_address"`
}

type Registration struct {
	User   *model.User   `json:"user"`
	Tenant *model.Tenant `json:"tenant,omitempty"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	errs := validateCredentials(in.Email, in.Password)
	if in.TenantType != "" {
		if !in.TenantType.Valid() {
			errs = multierr.Append(errs, apperr.Invalid("unknown tenant type %q", in.TenantType))
		}
		if strings.TrimSpace(in.TenantName) == "" {
			errs = multierr.Append(errs, apperr.Invalid("tenant name is required"))
		}
	}
	if err := invalid(errs); err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	reg := &Registration{}
	err = s.mutate(ctx, func(tx repository.Repository, _ *events.Outbox) error {
		taken, err := tx.UserEmailExists(ctx, in.Email)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("email already registered")
		}

		user := &model.User{
			Email:        in.Email,
			PasswordHash: hash,
			FirstName:    strings.TrimSpace(in.FirstName),
			LastName:     strings.TrimSpace(in.LastName),
			Role:         model.RoleCustomer,
			Status:       model.StatusPending,
			Permissions:  model.DefaultStaffPermissions(),
		}

		if in.TenantType != "" {
			tenantEmail := in.TenantEmail
			if strings.TrimSpace(tenantEmail) == "" {
				tenantEmail = in.Email
			}
			taken, err := tx.TenantEmailExists(ctx, tenantEmail)
			if err != nil {
				return err
			}
			if taken {
				return apperr.Conflict("tenant email already registered")
			}
			tenant := &model.Tenant{
				Name:    strings.TrimSpace(in.TenantName),
				Type:    in.TenantType,
				Email:   tenantEmail,
				Phone:   strings.TrimSpace(in.TenantPhone),
				Address: strings.TrimSpace(in.TenantAddress),
				Status:  model.StatusPending,
			}
			if err := tx.CreateTenant(ctx, tenant); err != nil {
				return err
			}
			user.Role = model.AdminRoleFor(tenant.Type)
			user.TenantID = &tenant.ID
			user.Permissions = model.FullPermissions()
			reg.Tenant = tenant
		}

		var tenantType *model.TenantType
		if reg.Tenant != nil {
			tenantType = &reg.Tenant.Type
		}
		if err := model.RoleMatchesTenant(user.Role, tenantType); err != nil {
			return apperr.Invalid("%s", err.Error())
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		reg.User = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	kind := "customer"
	if reg.Tenant != nil {
		kind = string(reg.Tenant.Type)
	}
	prometheus.RecordRegistration(kind)
	s.logFor(ctx).Info("Registration received",
		zap.String("email", reg.User.Email),
		zap.String("kind", kind))
	return reg, nil
}

type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Login checks credentials and account state and issues a token. Pending,
// rejected and deactivated accounts cannot log in, and neither can users of
// a tenant in any of those states.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	log := s.logFor(ctx)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if apperr.Is(err, apperr.ENotFound) {
		prometheus.RecordLogin("failed")
		prometheus.RecordAuthError("user_not_found")
		return nil, apperr.Unauthorized("invalid credentials")
	} else if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn("Invalid password", zap.String("email", user.Email))
		prometheus.RecordLogin("failed")
		prometheus.RecordAuthError("invalid_password")
		return nil, apperr.Unauthorized("invalid credentials")
	}

	if err := loginAllowed(user); err != nil {
		log.Warn("Login refused",
			zap.String("email", user.Email),
			zap.String("reason", apperr.ErrorMessage(err)))
		prometheus.RecordLogin("refused")
		return nil, err
	}

	claims := jwtutil.UserClaims{
		Email:       user.Email,
		UserID:      user.ID,
		Role:        string(user.Role),
		TenantID:    user.TenantID,
		Permissions: model.PermissionFlags(user.Permissions),
	}
	if user.Tenant != nil {
		claims.TenantType = string(user.Tenant.Type)
		claims.TenantName = user.Tenant.Name
	}
	token, err := s.jwt.GenerateToken(claims)
	if err != nil {
		prometheus.RecordAuthError("token_generation_failed")
		return nil, apperr.Internal("generate token", err)
	}

	now := s.clock()
	user.LastLoginAt = &now
	tenant := user.Tenant
	user.Tenant = nil
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	user.Tenant = tenant

	prometheus.RecordLogin("success")
	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.String("role", string(user.Role)))
	return &LoginResult{Token: token, User: user}, nil
}

// Me returns the current user with its tenant.
func (s *AuthService) Me(ctx context.Context, actor model.Actor) (*model.User, error) {
	return s.repo.GetUser(ctx, actor.UserID)
}

func loginAllowed(u *model.User) error {
	switch u.Status {
	case model.StatusPending:
		return apperr.Forbidden("account is pending approval")
	case model.StatusRejected:
		return apperr.Forbidden("account has been rejected")
	}
	if !u.IsActive {
		return apperr.Forbidden("account is inactive")
	}
	if u.TenantID == nil {
		return nil
	}
	if u.Tenant == nil {
		return apperr.Forbidden("tenant not found")
	}
	switch u.Tenant.Status {
	case model.StatusPending:
		return apperr.Forbidden("tenant is pending approval")
	case model.StatusRejected:
		return apperr.Forbidden("tenant has been rejected")
	}
	if !u.Tenant.IsActive {
		return apperr.Forbidden("tenant is inactive")
	}
	return nil
}

func validateCredentials(email, password string) error {
	var errs error
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		errs = multierr.Append(errs, apperr.Invalid("a valid email is required"))
	}
	if len(password) < minPasswordLength {
		errs = multierr.Append(errs, apperr.Invalid("password must be at least %d characters", minPasswordLength))
	}
	return invalid(errs)
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperr.Internal("hash password", err)
	}
	return string(hash), nil
}

// HashPassword is used by seeding to create accounts outside a request.
func HashPassword(password string) (string, error) {
	return hashPassword(password)
}
