package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ecp-air/airquality-backend/internal/apperr"
	"github.com/ecp-air/airquality-backend/internal/models"
)

// Subscriptions is the relational store for notification subscriptions.
type Subscriptions struct {
	db *gorm.DB
}

// NewSubscriptions creates the subscription store.
func NewSubscriptions(db *gorm.DB) *Subscriptions {
	return &Subscriptions{db: db}
}

// ByEmail resolves a subscription by email address.
func (s *Subscriptions) ByEmail(ctx context.Context, email string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "subscription not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "subscription lookup failed", err)
	}
	return &sub, nil
}

// Create inserts a new subscription.
func (s *Subscriptions) Create(ctx context.Context, sub *models.Subscription) error {
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.New(apperr.Conflict, "email already subscribed")
		}
		return apperr.Wrap(apperr.Internal, "failed to create subscription", err)
	}
	return nil
}

// Save persists changes to an existing subscription.
func (s *Subscriptions) Save(ctx context.Context, sub *models.Subscription) error {
	if err := s.db.WithContext(ctx).Save(sub).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to update subscription", err)
	}
	return nil
}

// ActiveByLocation lists the active subscribers for one location.
func (s *Subscriptions) ActiveByLocation(ctx context.Context, location string) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.WithContext(ctx).
		Where("location = ? AND is_active = ?", location, true).
		Order("email").Find(&subs).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list subscribers", err)
	}
	return subs, nil
}

// ActiveLocations lists the distinct locations with at least one active
// subscriber.
func (s *Subscriptions) ActiveLocations(ctx context.Context) ([]string, error) {
	var locations []string
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("is_active = ?", true).
		Distinct("location").Order("location").Pluck("location", &locations).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list subscription locations", err)
	}
	return locations, nil
}
