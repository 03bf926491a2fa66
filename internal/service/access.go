package service

import (
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
)

func requireSuperAdmin(a model.Actor) error {
	if !a.IsSuperAdmin() {
		return apperr.Forbidden("super admin access required")
	}
	return nil
}

func requireSeller(a model.Actor) error {
	if a.TenantID == nil || !a.TenantType.Sells() {
		return apperr.Forbidden("only suppliers and service providers may manage listings")
	}
	return nil
}

func requireCompany(a model.Actor) error {
	if a.CompanyID() == nil {
		return apperr.Forbidden("only company users may request quotes")
	}
	return nil
}

func requirePermission(a model.Actor, p model.Permission) error {
	if !a.Can(p) {
		return apperr.Forbidden("%s permission required", p)
	}
	return nil
}

// requireProductOwner checks that the actor's tenant listed product and
// holds permission p.
func requireProductOwner(a model.Actor, product *model.Product, p model.Permission) error {
	if !a.BelongsTo(product.SupplierID) {
		return apperr.Forbidden("product belongs to another supplier")
	}
	return requirePermission(a, p)
}
