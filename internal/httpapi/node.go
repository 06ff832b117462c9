package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ecp-air/airquality-backend/internal/apperr"
	"github.com/ecp-air/airquality-backend/internal/auth"
	"github.com/ecp-air/airquality-backend/internal/models"
	"github.com/ecp-air/airquality-backend/internal/nodesvc"
)

// NodeHandler exposes node registration and management.
type NodeHandler struct {
	svc    *nodesvc.Service
	logger *zap.Logger
}

// NewNodeHandler creates the handler.
func NewNodeHandler(svc *nodesvc.Service, logger *zap.Logger) *NodeHandler {
	return &NodeHandler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the node routes. All of them require a logged-in
// principal; route-level auth is applied by the caller.
func (h *NodeHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/nodes/", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/nodes/", h.List).Methods(http.MethodGet)
	router.HandleFunc("/nodes/mine", h.Mine).Methods(http.MethodGet)
	router.HandleFunc("/nodes/status", h.Status).Methods(http.MethodGet)
	router.HandleFunc("/nodes/summary", h.Summary).Methods(http.MethodGet)
	router.HandleFunc("/nodes/{node_id}", h.Update).Methods(http.MethodPut)
	router.HandleFunc("/nodes/{node_id}", h.Delete).Methods(http.MethodDelete)
}

func requireUser(r *http.Request) (*auth.User, error) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		return nil, apperr.New(apperr.Auth, "authentication required")
	}
	return user, nil
}

// nodeView hides the secret token on every response except creation.
type nodeView struct {
	NodeID      string `json:"node_id"`
	NodeName    string `json:"node_name"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Status      int    `json:"status"`
	StatusText  string `json:"status_text"`
	UserID      uint   `json:"user_id"`
}

func toNodeView(n *models.Node) nodeView {
	return nodeView{
		NodeID:      n.ID,
		NodeName:    n.Name,
		Location:    n.Location,
		Description: n.Description,
		Status:      n.Status,
		StatusText:  n.StatusText(),
		UserID:      n.UserID,
	}
}

func toNodeViews(nodes []models.Node) []nodeView {
	views := make([]nodeView, len(nodes))
	for i := range nodes {
		views[i] = toNodeView(&nodes[i])
	}
	return views
}

// Create handles POST /nodes/.
func (h *NodeHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	var req nodesvc.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	node, secret, err := h.svc.Create(r.Context(), user, req)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondCreated(w, "node registered", map[string]interface{}{
		"node":       toNodeView(node),
		"node_token": secret,
	})
}

// List handles GET /nodes/ (admin only).
func (h *NodeHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	nodes, err := h.svc.All(r.Context(), user)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "nodes retrieved", toNodeViews(nodes), map[string]interface{}{"count": len(nodes)})
}

// Mine handles GET /nodes/mine.
func (h *NodeHandler) Mine(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	nodes, err := h.svc.Mine(r.Context(), user)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "nodes retrieved", toNodeViews(nodes), map[string]interface{}{"count": len(nodes)})
}

// Status handles GET /nodes/status.
func (h *NodeHandler) Status(w http.ResponseWriter, r *http.Request) {
	if _, err := requireUser(r); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	statuses, err := h.svc.CheckStatus(r.Context())
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "node statuses refreshed", statuses, map[string]interface{}{"count": len(statuses)})
}

// Summary handles GET /nodes/summary.
func (h *NodeHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if _, err := requireUser(r); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	summary, err := h.svc.Summary(r.Context())
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "node summary retrieved", summary, nil)
}

// Update handles PUT /nodes/{node_id}.
func (h *NodeHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	var req nodesvc.UpdateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	req.NodeID = mux.Vars(r)["node_id"]
	node, err := h.svc.Update(r.Context(), user, req)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "node updated", toNodeView(node), nil)
}

// Delete handles DELETE /nodes/{node_id}.
func (h *NodeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	if err := h.svc.Delete(r.Context(), user, mux.Vars(r)["node_id"]); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "node deleted", nil, nil)
}
