package aqi

import (
	"context"

	"github.com/ecp-air/airquality-backend/internal/apperr"
	"github.com/ecp-air/airquality-backend/internal/models"
)

// NodeResolver looks up node records. Implemented by the relational store.
type NodeResolver interface {
	NodeByName(ctx context.Context, name string) (*models.Node, error)
	NodeByID(ctx context.Context, id string) (*models.Node, error)
	NodeBySecret(ctx context.Context, secret string) (*models.Node, error)
	NodeByOwner(ctx context.Context, name string, ownerID uint) (*models.Node, error)
}

// Guard authorizes queries against a claimed node identity.
type Guard struct {
	nodes NodeResolver
}

// NewGuard creates an access guard over the given resolver.
func NewGuard(nodes NodeResolver) *Guard {
	return &Guard{nodes: nodes}
}

// resolveIdentity finds a node by name, falling back to id lookup for
// callers still keyed by node id.
func (g *Guard) resolveIdentity(ctx context.Context, identity string) (*models.Node, error) {
	node, err := g.nodes.NodeByName(ctx, identity)
	if err == nil {
		return node, nil
	}
	if apperr.KindOf(err) != apperr.NotFound {
		return nil, err
	}
	return g.nodes.NodeByID(ctx, identity)
}

// AuthorizeToken authenticates a node by its secret token. When an identity
// is given the secret is cross-checked against that node; when omitted the
// node is resolved by the secret alone. The three failure modes stay
// distinct: missing token (401), unknown node (404), token mismatch (403).
func (g *Guard) AuthorizeToken(ctx context.Context, identity, secret string) (*models.Node, error) {
	if secret == "" {
		return nil, apperr.New(apperr.Auth, "node token is required")
	}

	if identity == "" {
		node, err := g.nodes.NodeBySecret(ctx, secret)
		if err != nil {
			if apperr.KindOf(err) == apperr.NotFound {
				return nil, apperr.New(apperr.NotFound, "node not found or invalid token")
			}
			return nil, err
		}
		return node, nil
	}

	node, err := g.resolveIdentity(ctx, identity)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return nil, apperr.New(apperr.NotFound, "node not found or invalid token")
		}
		return nil, err
	}
	if node.Secret != secret {
		return nil, apperr.New(apperr.AccessDenied, "invalid node token")
	}
	return node, nil
}

// AuthorizeOwner resolves a node by (identity, owning user). A miss is
// reported as access denied without distinguishing "does not exist", so
// non-owners cannot probe for node existence.
func (g *Guard) AuthorizeOwner(ctx context.Context, identity string, ownerID uint) (*models.Node, error) {
	node, err := g.nodes.NodeByOwner(ctx, identity, ownerID)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return nil, apperr.New(apperr.AccessDenied, "access denied to this node")
		}
		return nil, err
	}
	return node, nil
}
