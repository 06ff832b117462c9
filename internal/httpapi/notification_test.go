package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ecp-air/airquality-backend/internal/config"
	"github.com/ecp-air/airquality-backend/internal/mailer"
	"github.com/ecp-air/airquality-backend/internal/models"
	"github.com/ecp-air/airquality-backend/internal/notifysvc"
	"github.com/ecp-air/airquality-backend/internal/store"
)

type stubAverager struct{}

func (stubAverager) LocationAverages(ctx context.Context, nodes []*models.Node, at time.Time) (map[string]float64, error) {
	return nil, nil
}

func newNotificationRouter(t *testing.T) (*mux.Router, *store.Subscriptions) {
	t.Helper()
	logger := zap.NewNop()

	db, err := store.Connect(config.DatabaseConfig{
		Driver:          "sqlite",
		Path:            "file:" + t.Name() + "?mode=memory&cache=shared",
		MaxIdleConns:    1,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(db) })

	subs := store.NewSubscriptions(db)
	nodes := store.NewNodes(db)
	mail := mailer.New(config.SMTPConfig{Host: "localhost", Port: 2525}, logger)
	queue := mailer.NewWorker(4, logger)
	svc := notifysvc.New(subs, nodes, stubAverager{}, mail, queue, time.UTC, logger)

	router := mux.NewRouter()
	handler := NewNotificationHandler(svc, logger)
	handler.RegisterRoutes(router)
	handler.RegisterAdminRoutes(router)
	return router, subs
}

func TestSubscribersByLocation(t *testing.T) {
	router, subs := newNotificationRouter(t)
	ctx := context.Background()

	require.NoError(t, subs.Create(ctx, &models.Subscription{
		Email: "b@example.com", Location: "building-a", IsActive: true,
	}))
	require.NoError(t, subs.Create(ctx, &models.Subscription{
		Email: "a@example.com", Location: "building-a", IsActive: true,
	}))
	// deactivate through Save; a zero-valued bool on insert would take the
	// column default instead
	inactive := &models.Subscription{Email: "gone@example.com", Location: "building-a", IsActive: true}
	require.NoError(t, subs.Create(ctx, inactive))
	inactive.IsActive = false
	require.NoError(t, subs.Save(ctx, inactive))
	require.NoError(t, subs.Create(ctx, &models.Subscription{
		Email: "other@example.com", Location: "building-b", IsActive: true,
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/notifications/subscribers/building-a", nil)
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var env Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, 1, env.Status)
	assert.Equal(t, []interface{}{"a@example.com", "b@example.com"}, env.Data)

	metadata, ok := env.Metadata.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "building-a", metadata["location"])
	assert.Equal(t, float64(2), metadata["count"])
}

func TestSubscribersEmptyLocation(t *testing.T) {
	router, _ := newNotificationRouter(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/notifications/subscribers/nowhere", nil)
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var env Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, 1, env.Status)
	assert.Equal(t, []interface{}{}, env.Data)
}
