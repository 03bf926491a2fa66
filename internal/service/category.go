package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/events"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/repository"
)

// CategoryService maintains the product and service category trees. Reads
// are open to every authenticated user, writes to super admins.
type CategoryService struct {
	*deps
}

type CategoryInput struct {
	Kind         model.CategoryKind `json:"kind" validate:"required,oneof=product service"`
	ParentID     *uuid.UUID         `json:"parent_id"`
	Name         string             `json:"name" validate:"required,max=100"`
	Description  string             `json:"description"`
	DisplayOrder int                `json:"display_order"`
	IsActive     *bool              `json:"is_active"`
	ImageURL     string             `json:"image_url" validate:"omitempty,url"`
}

type UpdateCategoryInput struct {
	ParentID     *uuid.UUID `json:"parent_id"`
	MoveToRoot   bool       `json:"move_to_root"`
	Name         *string    `json:"name"`
	Description  *string    `json:"description"`
	DisplayOrder *int       `json:"display_order"`
	IsActive     *bool      `json:"is_active"`
	ImageURL     *string    `json:"image_url"`
}

// CategoryNode is a category with its subtree.
type CategoryNode struct {
	model.Category
	Children []*CategoryNode `json:"children"`
}

func (s *CategoryService) Create(ctx context.Context, actor model.Actor, in CategoryInput) (*model.Category, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}

	cat := &model.Category{
		Kind:         in.Kind,
		ParentID:     in.ParentID,
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		DisplayOrder: in.DisplayOrder,
		IsActive:     in.IsActive == nil || *in.IsActive,
		ImageURL:     strings.TrimSpace(in.ImageURL),
	}
	if err := validateCategory(cat); err != nil {
		return nil, err
	}

	err := s.mutate(ctx, func(tx repository.Repository, _ *events.Outbox) error {
		if err := checkParent(ctx, tx, cat); err != nil {
			return err
		}
		if err := checkSiblingName(ctx, tx, cat, nil); err != nil {
			return err
		}
		return tx.CreateCategory(ctx, cat)
	})
	if err != nil {
		return nil, err
	}

	s.logFor(ctx).Info("Category created",
		zap.String("category_id", cat.ID.String()),
		zap.String("kind", string(cat.Kind)),
		zap.String("name", cat.Name))
	return cat, nil
}

func (s *CategoryService) Get(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	return s.repo.GetCategory(ctx, id)
}

func (s *CategoryService) List(ctx context.Context, f repository.CategoryFilter) ([]model.Category, error) {
	if f.Kind != "" && !f.Kind.Valid() {
		return nil, apperr.Invalid("unknown category kind %q", f.Kind)
	}
	return s.repo.ListCategories(ctx, f)
}

// Tree returns the categories of one kind arranged by parent.
func (s *CategoryService) Tree(ctx context.Context, kind model.CategoryKind, activeOnly bool) ([]*CategoryNode, error) {
	if !kind.Valid() {
		return nil, apperr.Invalid("unknown category kind %q", kind)
	}
	cats, err := s.repo.ListCategories(ctx, repository.CategoryFilter{Kind: kind, ActiveOnly: activeOnly})
	if err != nil {
		return nil, err
	}
	return buildTree(cats), nil
}

func buildTree(cats []model.Category) []*CategoryNode {
	nodes := make(map[uuid.UUID]*CategoryNode, len(cats))
	for _, c := range cats {
		nodes[c.ID] = &CategoryNode{Category: c, Children: []*CategoryNode{}}
	}
	roots := []*CategoryNode{}
	for _, c := range cats {
		n := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		// orphans of a filtered-out parent surface at the top
		roots = append(roots, n)
	}
	return roots
}

func (s *CategoryService) Update(ctx context.Context, actor model.Actor, id uuid.UUID, in UpdateCategoryInput) (*model.Category, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}

	var cat *model.Category
	err := s.mutate(ctx, func(tx repository.Repository, _ *events.Outbox) error {
		var err error
		cat, err = tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if in.MoveToRoot {
			cat.ParentID = nil
		}
		if in.ParentID != nil {
			cat.ParentID = in.ParentID
		}
		if in.Name != nil {
			cat.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			cat.Description = *in.Description
		}
		if in.DisplayOrder != nil {
			cat.DisplayOrder = *in.DisplayOrder
		}
		if in.IsActive != nil {
			cat.IsActive = *in.IsActive
		}
		if in.ImageURL != nil {
			cat.ImageURL = strings.TrimSpace(*in.ImageURL)
		}

		if err := validateCategory(cat); err != nil {
			return err
		}
		if err := checkParent(ctx, tx, cat); err != nil {
			return err
		}
		if err := checkNoCycle(ctx, tx, cat); err != nil {
			return err
		}
		if err := checkSiblingName(ctx, tx, cat, &cat.ID); err != nil {
			return err
		}
		return tx.UpdateCategory(ctx, cat)
	})
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// Delete removes a category that has no subcategories and no products.
func (s *CategoryService) Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	if err := requireSuperAdmin(actor); err != nil {
		return err
	}
	err := s.mutate(ctx, func(tx repository.Repository, _ *events.Outbox) error {
		if _, err := tx.GetCategory(ctx, id); err != nil {
			return err
		}
		children, err := tx.CountCategoryChildren(ctx, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return apperr.Conflict("category has %d subcategories", children)
		}
		products, err := tx.CountProductsInCategory(ctx, id)
		if err != nil {
			return err
		}
		if products > 0 {
			return apperr.Conflict("category is used by %d products", products)
		}
		return tx.DeleteCategory(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logFor(ctx).Info("Category deleted", zap.String("category_id", id.String()))
	return nil
}

func validateCategory(c *model.Category) error {
	var errs error
	if !c.Kind.Valid() {
		errs = multierr.Append(errs, apperr.Invalid("unknown category kind %q", c.Kind))
	}
	if c.Name == "" {
		errs = multierr.Append(errs, apperr.Invalid("name is required"))
	}
	if c.DisplayOrder < 0 {
		errs = multierr.Append(errs, apperr.Invalid("display order must not be negative"))
	}
	return invalid(errs)
}

func checkParent(ctx context.Context, tx repository.Repository, c *model.Category) error {
	if c.ParentID == nil {
		return nil
	}
	if *c.ParentID == c.ID {
		return apperr.Invalid("a category cannot be its own parent")
	}
	parent, err := tx.GetCategory(ctx, *c.ParentID)
	if apperr.Is(err, apperr.ENotFound) {
		return apperr.Invalid("parent category does not exist")
	} else if err != nil {
		return err
	}
	if parent.Kind != c.Kind {
		return apperr.Invalid("parent category is a %s category", parent.Kind)
	}
	return nil
}

// checkNoCycle walks up from the new parent and fails if it reaches c.
func checkNoCycle(ctx context.Context, tx repository.Repository, c *model.Category) error {
	seen := map[uuid.UUID]bool{c.ID: true}
	next := c.ParentID
	for next != nil {
		if seen[*next] {
			return apperr.Invalid("a category cannot be moved under its own subtree")
		}
		seen[*next] = true
		parent, err := tx.GetCategory(ctx, *next)
		if err != nil {
			return err
		}
		next = parent.ParentID
	}
	return nil
}

func checkSiblingName(ctx context.Context, tx repository.Repository, c *model.Category, exclude *uuid.UUID) error {
	taken, err := tx.CategoryNameExists(ctx, c.Kind, c.ParentID, c.Name, exclude)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("category %q already exists here", c.Name)
	}
	return nil
}
