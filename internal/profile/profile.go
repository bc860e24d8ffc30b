// Package profile stores the shop details of an owner and runs onboarding.
package profile

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/lekka-app/lekka/internal/inventory"
	"github.com/lekka-app/lekka/internal/platform/db"
	"github.com/lekka-app/lekka/internal/shared"
)

// Profile is one row per owner, keyed by the owner's user id.
type Profile struct {
	ID              string    `json:"id"`
	Email           string    `json:"email,omitempty"`
	ShopName        string    `json:"shop_name,omitempty"`
	ShopType        string    `json:"shop_type,omitempty"`
	ThemePreference string    `json:"theme_preference,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Input updates a profile. Empty fields keep their stored value.
type Input struct {
	Email           string `json:"email" validate:"omitempty,email,max=254"`
	ShopName        string `json:"shop_name" validate:"max=120"`
	ShopType        string `json:"shop_type" validate:"omitempty,oneof=Kirana Medical Restaurant Other"`
	ThemePreference string `json:"theme_preference" validate:"omitempty,oneof=classic agri sunset royal dark"`
}

// OnboardInput completes first-run setup.
type OnboardInput struct {
	ShopName     string `json:"shop_name" validate:"required,max=120"`
	ShopType     string `json:"shop_type" validate:"required,oneof=Kirana Medical Restaurant Other"`
	Email        string `json:"email" validate:"omitempty,email,max=254"`
	SkipProducts bool   `json:"skip_products"`
}

// Onboarded reports the outcome of onboarding.
type Onboarded struct {
	Profile Profile `json:"profile"`
	Seeded  int     `json:"seeded_products"`
}

// RepositoryPort abstracts profile storage.
type RepositoryPort interface {
	Get(ctx context.Context, id string) (Profile, error)
	Upsert(ctx context.Context, p Profile) (Profile, error)
}

// ProductCreator seeds starter inventory.
type ProductCreator interface {
	Create(ctx context.Context, in inventory.ProductInput) (inventory.Product, error)
}

// Service manages profiles.
type Service struct {
	repo     RepositoryPort
	products ProductCreator
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, products ProductCreator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, products: products, logger: logger}
}

// Get returns the acting user's profile. Owners without a row get an empty
// profile rather than an error.
func (s *Service) Get(ctx context.Context) (Profile, error) {
	userID, err := shared.ActingUser(ctx)
	if err != nil {
		return Profile{}, err
	}
	p, err := s.repo.Get(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return Profile{ID: userID}, nil
	}
	if err != nil {
		return Profile{}, persistence("get profile", err)
	}
	return p, nil
}

// Update merges the non-empty fields of in into the profile.
func (s *Service) Update(ctx context.Context, in Input) (Profile, error) {
	userID, err := shared.ActingUser(ctx)
	if err != nil {
		return Profile{}, err
	}
	in.Email = strings.TrimSpace(in.Email)
	in.ShopName = strings.TrimSpace(in.ShopName)
	if err := shared.ValidateStruct(in); err != nil {
		return Profile{}, err
	}
	p, err := s.repo.Upsert(ctx, Profile{
		ID:              userID,
		Email:           in.Email,
		ShopName:        in.ShopName,
		ShopType:        in.ShopType,
		ThemePreference: in.ThemePreference,
	})
	if err != nil {
		return Profile{}, persistence("save profile", err)
	}
	return p, nil
}

// Onboard saves the shop details with the shop type's theme and seeds its
// starter products. A product that fails to seed is logged and skipped.
func (s *Service) Onboard(ctx context.Context, in OnboardInput) (Onboarded, error) {
	userID, err := shared.ActingUser(ctx)
	if err != nil {
		return Onboarded{}, err
	}
	in.ShopName = strings.TrimSpace(in.ShopName)
	in.Email = strings.TrimSpace(in.Email)
	if err := shared.ValidateStruct(in); err != nil {
		return Onboarded{}, err
	}
	shopType, ok, err := findShopType(in.ShopType)
	if err != nil {
		return Onboarded{}, err
	}
	if !ok {
		return Onboarded{}, shared.NewValidationError("shop_type", "unknown shop type")
	}

	p, err := s.repo.Upsert(ctx, Profile{
		ID:              userID,
		Email:           in.Email,
		ShopName:        in.ShopName,
		ShopType:        shopType.ID,
		ThemePreference: shopType.Theme,
	})
	if err != nil {
		return Onboarded{}, persistence("save profile", err)
	}

	result := Onboarded{Profile: p}
	if in.SkipProducts || s.products == nil {
		return result, nil
	}
	for _, seed := range shopType.Products {
		stock, minLevel := seed.Stock, seed.MinStockLevel
		if _, err := s.products.Create(ctx, inventory.ProductInput{
			Name:          seed.Name,
			SKU:           seed.SKU,
			Stock:         &stock,
			MinStockLevel: &minLevel,
		}); err != nil {
			s.logger.Warn("seed product failed", slog.String("user_id", userID), slog.String("sku", seed.SKU), slog.Any("error", err))
			continue
		}
		result.Seeded++
	}
	return result, nil
}

func persistence(op string, err error) error {
	return &shared.PersistenceError{Op: op, Message: db.Message(err), Err: err}
}
