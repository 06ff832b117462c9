package nodesvc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecp-air/airquality-backend/internal/apperr"
	"github.com/ecp-air/airquality-backend/internal/aqi"
	"github.com/ecp-air/airquality-backend/internal/auth"
	"github.com/ecp-air/airquality-backend/internal/models"
	"github.com/ecp-air/airquality-backend/internal/store"
	"github.com/ecp-air/airquality-backend/internal/tsdb"
)

// offlineAfter is how long a node may stay silent before it is marked offline.
const offlineAfter = 10 * time.Minute

// Service manages node registration and status.
type Service struct {
	nodes  *store.Nodes
	ts     tsdb.Reader
	logger *zap.Logger
	now    func() time.Time
}

// New creates the node service.
func New(nodes *store.Nodes, ts tsdb.Reader, logger *zap.Logger) *Service {
	return &Service{nodes: nodes, ts: ts, logger: logger, now: time.Now}
}

// CreateRequest is the payload for registering a node.
type CreateRequest struct {
	Name        string `json:"node_name"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// UpdateRequest is the payload for updating a node. Nil fields are left
// unchanged.
type UpdateRequest struct {
	NodeID      string  `json:"node_id"`
	Name        *string `json:"node_name"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
	Status      *int    `json:"status"`
}

func newSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", apperr.Wrap(apperr.Internal, "failed to generate node token", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Create registers a new node owned by the principal and issues its secret
// token. The token is returned exactly once, here.
func (s *Service) Create(ctx context.Context, principal *auth.User, req CreateRequest) (*models.Node, string, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, "", apperr.New(apperr.Validation, "node_name is required")
	}
	if strings.TrimSpace(req.Location) == "" {
		return nil, "", apperr.New(apperr.Validation, "location is required")
	}
	if _, err := s.nodes.NodeByName(ctx, name); err == nil {
		return nil, "", apperr.New(apperr.Conflict, "node name already exists")
	} else if apperr.KindOf(err) != apperr.NotFound {
		return nil, "", err
	}

	secret, err := newSecret()
	if err != nil {
		return nil, "", err
	}
	node := &models.Node{
		ID:          uuid.NewString(),
		Name:        name,
		Location:    strings.TrimSpace(req.Location),
		Description: req.Description,
		Secret:      secret,
		UserID:      principal.ID,
		Status:      models.StatusOffline,
	}
	if err := s.nodes.Create(ctx, node); err != nil {
		return nil, "", err
	}

	s.logger.Info("node created",
		zap.String("node_id", node.ID),
		zap.String("node_name", node.Name),
		zap.Uint("user_id", principal.ID),
	)
	return node, secret, nil
}

// All lists every node; admin only.
func (s *Service) All(ctx context.Context, principal *auth.User) ([]models.Node, error) {
	if !principal.IsAdmin() {
		return nil, apperr.New(apperr.AccessDenied, "admin permission required")
	}
	return s.nodes.All(ctx)
}

// Mine lists the principal's own nodes.
func (s *Service) Mine(ctx context.Context, principal *auth.User) ([]models.Node, error) {
	return s.nodes.ByOwnerID(ctx, principal.ID)
}

func (s *Service) ownedNode(ctx context.Context, principal *auth.User, nodeID string) (*models.Node, error) {
	node, err := s.nodes.NodeByID(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if node.UserID != principal.ID && !principal.IsAdmin() {
		return nil, apperr.New(apperr.AccessDenied, "access denied to this node")
	}
	return node, nil
}

// Update applies the non-nil fields of the request to the node. Only the
// owner or an admin may update.
func (s *Service) Update(ctx context.Context, principal *auth.User, req UpdateRequest) (*models.Node, error) {
	if req.NodeID == "" {
		return nil, apperr.New(apperr.Validation, "node_id is required")
	}
	node, err := s.ownedNode(ctx, principal, req.NodeID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		node.Name = strings.TrimSpace(*req.Name)
	}
	if req.Location != nil {
		node.Location = strings.TrimSpace(*req.Location)
	}
	if req.Description != nil {
		node.Description = *req.Description
	}
	if req.Status != nil {
		if *req.Status != models.StatusOffline && *req.Status != models.StatusOnline {
			return nil, apperr.New(apperr.Validation, "status must be 0 (offline) or 1 (online)")
		}
		node.Status = *req.Status
	}

	if err := s.nodes.Save(ctx, node); err != nil {
		return nil, err
	}
	return node, nil
}

// Delete removes a node. Only the owner or an admin may delete.
func (s *Service) Delete(ctx context.Context, principal *auth.User, nodeID string) error {
	if nodeID == "" {
		return apperr.New(apperr.Validation, "node_id is required")
	}
	node, err := s.ownedNode(ctx, principal, nodeID)
	if err != nil {
		return err
	}
	if err := s.nodes.Delete(ctx, node.ID); err != nil {
		return err
	}
	s.logger.Info("node deleted",
		zap.String("node_id", node.ID),
		zap.Uint("user_id", principal.ID),
	)
	return nil
}

// NodeStatus reports a node's liveness derived from its last stored point.
type NodeStatus struct {
	NodeID       string  `json:"node_id"`
	NodeName     string  `json:"node_name"`
	Status       int     `json:"status"`
	StatusText   string  `json:"status_text"`
	LastDataTime *string `json:"last_data_time"`
}

// CheckStatus refreshes every node's status from the time-series store:
// a node with a point in the last 10 minutes is online. Store status rows
// are updated to match.
func (s *Service) CheckStatus(ctx context.Context) ([]NodeStatus, error) {
	nodes, err := s.nodes.All(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]NodeStatus, 0, len(nodes))
	for i := range nodes {
		node := &nodes[i]
		lastSeen, err := s.lastDataTime(ctx, node.Name)
		if err != nil {
			return nil, err
		}

		status := models.StatusOffline
		var lastStr *string
		if lastSeen != nil {
			formatted := lastSeen.UTC().Format(time.RFC3339)
			lastStr = &formatted
			if s.now().Sub(*lastSeen) <= offlineAfter {
				status = models.StatusOnline
			}
		}

		if node.Status != status {
			node.Status = status
			if err := s.nodes.Save(ctx, node); err != nil {
				return nil, err
			}
		}

		statuses = append(statuses, NodeStatus{
			NodeID:       node.ID,
			NodeName:     node.Name,
			Status:       node.Status,
			StatusText:   node.StatusText(),
			LastDataTime: lastStr,
		})
	}
	return statuses, nil
}

func (s *Service) lastDataTime(ctx context.Context, nodeName string) (*time.Time, error) {
	records, err := s.ts.Query(ctx, tsdb.QuerySpec{
		Measurement:  aqi.MeasurementRaw,
		Fields:       []string{aqi.FieldPM25},
		Tags:         map[string][]string{aqi.TagNode: {nodeName}},
		Start:        s.now().UTC().Add(-24 * time.Hour),
		LastPerField: true,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	last := records[0].Time
	for _, rec := range records[1:] {
		if rec.Time.After(last) {
			last = rec.Time
		}
	}
	return &last, nil
}

// StatusSummary aggregates node counts by status.
type StatusSummary struct {
	Total   int `json:"total"`
	Online  int `json:"online"`
	Offline int `json:"offline"`
}

// Summary returns node counts by current stored status.
func (s *Service) Summary(ctx context.Context) (*StatusSummary, error) {
	nodes, err := s.nodes.All(ctx)
	if err != nil {
		return nil, err
	}
	summary := &StatusSummary{Total: len(nodes)}
	for _, n := range nodes {
		if n.Status == models.StatusOnline {
			summary.Online++
		} else {
			summary.Offline++
		}
	}
	return summary, nil
}
