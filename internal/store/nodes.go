package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ecp-air/airquality-backend/internal/apperr"
	"github.com/ecp-air/airquality-backend/internal/models"
)

// Nodes is the relational store for sensor nodes.
type Nodes struct {
	db *gorm.DB
}

// NewNodes creates the node store.
func NewNodes(db *gorm.DB) *Nodes {
	return &Nodes{db: db}
}

func (s *Nodes) one(ctx context.Context, query string, args ...interface{}) (*models.Node, error) {
	var node models.Node
	err := s.db.WithContext(ctx).Where(query, args...).First(&node).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "node not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "node lookup failed", err)
	}
	return &node, nil
}

// NodeByName resolves a node by its display name.
func (s *Nodes) NodeByName(ctx context.Context, name string) (*models.Node, error) {
	return s.one(ctx, "node_name = ?", name)
}

// NodeByID resolves a node by its id.
func (s *Nodes) NodeByID(ctx context.Context, id string) (*models.Node, error) {
	return s.one(ctx, "node_id = ?", id)
}

// NodeBySecret resolves a node by its unique secret token.
func (s *Nodes) NodeBySecret(ctx context.Context, secret string) (*models.Node, error) {
	return s.one(ctx, "node_token = ?", secret)
}

// NodeByOwner resolves a node by name scoped to its owning user.
func (s *Nodes) NodeByOwner(ctx context.Context, name string, ownerID uint) (*models.Node, error) {
	return s.one(ctx, "node_name = ? AND user_id = ?", name, ownerID)
}

// Create inserts a new node. A duplicate secret token is a conflict.
func (s *Nodes) Create(ctx context.Context, node *models.Node) error {
	if err := s.db.WithContext(ctx).Create(node).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.New(apperr.Conflict, "node token already exists")
		}
		return apperr.Wrap(apperr.Internal, "failed to create node", err)
	}
	return nil
}

// Save persists changes to an existing node.
func (s *Nodes) Save(ctx context.Context, node *models.Node) error {
	if err := s.db.WithContext(ctx).Save(node).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to update node", err)
	}
	return nil
}

// Delete removes a node by id.
func (s *Nodes) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Node{}, "node_id = ?", id)
	if res.Error != nil {
		return apperr.Wrap(apperr.Internal, "failed to delete node", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "node not found")
	}
	return nil
}

// All lists every node.
func (s *Nodes) All(ctx context.Context) ([]models.Node, error) {
	var nodes []models.Node
	if err := s.db.WithContext(ctx).Order("node_name").Find(&nodes).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list nodes", err)
	}
	return nodes, nil
}

// ByOwnerID lists every node owned by the given user.
func (s *Nodes) ByOwnerID(ctx context.Context, ownerID uint) ([]models.Node, error) {
	var nodes []models.Node
	if err := s.db.WithContext(ctx).Where("user_id = ?", ownerID).Order("node_name").Find(&nodes).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list nodes", err)
	}
	return nodes, nil
}

// ByLocation lists every node in a location.
func (s *Nodes) ByLocation(ctx context.Context, location string) ([]models.Node, error) {
	var nodes []models.Node
	if err := s.db.WithContext(ctx).Where("location = ?", location).Find(&nodes).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list nodes", err)
	}
	return nodes, nil
}

// Locations lists the distinct locations that have at least one node.
func (s *Nodes) Locations(ctx context.Context) ([]string, error) {
	var locations []string
	err := s.db.WithContext(ctx).Model(&models.Node{}).
		Distinct("location").Order("location").Pluck("location", &locations).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list locations", err)
	}
	return locations, nil
}

// CountByLocation returns total and online node counts for a location.
func (s *Nodes) CountByLocation(ctx context.Context, location string) (total int64, online int64, err error) {
	err = s.db.WithContext(ctx).Model(&models.Node{}).
		Where("location = ?", location).Count(&total).Error
	if err != nil {
		return 0, 0, apperr.Wrap(apperr.Internal, "failed to count nodes", err)
	}
	err = s.db.WithContext(ctx).Model(&models.Node{}).
		Where("location = ? AND status = ?", location, models.StatusOnline).Count(&online).Error
	if err != nil {
		return 0, 0, apperr.Wrap(apperr.Internal, "failed to count nodes", err)
	}
	return total, online, nil
}
