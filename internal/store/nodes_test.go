package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecp-air/airquality-backend/internal/apperr"
	"github.com/ecp-air/airquality-backend/internal/config"
	"github.com/ecp-air/airquality-backend/internal/models"
)

func testDB(t *testing.T) *Nodes {
	t.Helper()
	db, err := Connect(config.DatabaseConfig{
		Driver:          "sqlite",
		Path:            "file:" + t.Name() + "?mode=memory&cache=shared",
		MaxIdleConns:    1,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })
	return NewNodes(db)
}

func sampleNode(id, name, secret string, owner uint) *models.Node {
	return &models.Node{
		ID:       id,
		Name:     name,
		Location: "building-a",
		Secret:   secret,
		UserID:   owner,
		Status:   models.StatusOffline,
	}
}

func TestNodeLookups(t *testing.T) {
	nodes := testDB(t)
	ctx := context.Background()

	node := sampleNode("id-1", "node-01", "tok-1", 5)
	require.NoError(t, nodes.Create(ctx, node))

	byName, err := nodes.NodeByName(ctx, "node-01")
	require.NoError(t, err)
	assert.Equal(t, "id-1", byName.ID)

	byID, err := nodes.NodeByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "node-01", byID.Name)

	bySecret, err := nodes.NodeBySecret(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "id-1", bySecret.ID)

	byOwner, err := nodes.NodeByOwner(ctx, "node-01", 5)
	require.NoError(t, err)
	assert.Equal(t, "id-1", byOwner.ID)
}

func TestNodeLookupMisses(t *testing.T) {
	nodes := testDB(t)
	ctx := context.Background()

	require.NoError(t, nodes.Create(ctx, sampleNode("id-1", "node-01", "tok-1", 5)))

	_, err := nodes.NodeByName(ctx, "ghost")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	_, err = nodes.NodeBySecret(ctx, "wrong")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	// right name, wrong owner
	_, err = nodes.NodeByOwner(ctx, "node-01", 99)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestNodeCreateDuplicateSecret(t *testing.T) {
	nodes := testDB(t)
	ctx := context.Background()

	require.NoError(t, nodes.Create(ctx, sampleNode("id-1", "node-01", "tok-1", 5)))

	err := nodes.Create(ctx, sampleNode("id-2", "node-02", "tok-1", 5))
	require.Error(t, err)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
}

func TestNodeDelete(t *testing.T) {
	nodes := testDB(t)
	ctx := context.Background()

	require.NoError(t, nodes.Create(ctx, sampleNode("id-1", "node-01", "tok-1", 5)))
	require.NoError(t, nodes.Delete(ctx, "id-1"))

	err := nodes.Delete(ctx, "id-1")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestNodeCountByLocation(t *testing.T) {
	nodes := testDB(t)
	ctx := context.Background()

	online := sampleNode("id-1", "node-01", "tok-1", 5)
	online.Status = models.StatusOnline
	require.NoError(t, nodes.Create(ctx, online))
	require.NoError(t, nodes.Create(ctx, sampleNode("id-2", "node-02", "tok-2", 5)))

	total, onlineCount, err := nodes.CountByLocation(ctx, "building-a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(1), onlineCount)
}

func TestNodeLocations(t *testing.T) {
	nodes := testDB(t)
	ctx := context.Background()

	a := sampleNode("id-1", "node-01", "tok-1", 5)
	b := sampleNode("id-2", "node-02", "tok-2", 5)
	b.Location = "building-b"
	c := sampleNode("id-3", "node-03", "tok-3", 5)
	require.NoError(t, nodes.Create(ctx, a))
	require.NoError(t, nodes.Create(ctx, b))
	require.NoError(t, nodes.Create(ctx, c))

	locations, err := nodes.Locations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"building-a", "building-b"}, locations)
}
