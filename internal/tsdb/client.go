package tsdb

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"go.uber.org/zap"

	"github.com/ecp-air/airquality-backend/internal/apperr"
	"github.com/ecp-air/airquality-backend/internal/config"
)

// Record is one timestamped field/value pair decoded from a query result.
// Iteration order across tables is not guaranteed; callers group by
// timestamp-derived keys and sort at the end.
type Record struct {
	Field string
	Value interface{}
	Time  time.Time
}

// Reader executes range queries against the time-series store.
type Reader interface {
	Query(ctx context.Context, spec QuerySpec) ([]Record, error)
}

// Writer persists readings into the time-series store.
type Writer interface {
	WritePoint(ctx context.Context, measurement string, tags map[string]string, fields map[string]float64, at time.Time) error
}

// Client wraps the InfluxDB v2 client. It is constructed once at startup,
// injected where needed, and closed at shutdown.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	bucket   string
	logger   *zap.Logger
}

// NewClient connects to InfluxDB and verifies its health.
func NewClient(ctx context.Context, cfg config.InfluxConfig, logger *zap.Logger) (*Client, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, apperr.Wrap(apperr.Upstream, "failed to connect to InfluxDB", err)
	}
	if health.Status != "pass" {
		client.Close()
		return nil, apperr.Newf(apperr.Upstream, "InfluxDB is not healthy: %s", health.Status)
	}

	return &Client{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		queryAPI: client.QueryAPI(cfg.Org),
		bucket:   cfg.Bucket,
		logger:   logger,
	}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.client.Close()
}

// WritePoint writes a single multi-field point synchronously. Ingestion is
// one reading per request, so the blocking write API keeps failure handling
// in the request path.
func (c *Client) WritePoint(ctx context.Context, measurement string, tags map[string]string, fields map[string]float64, at time.Time) error {
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	p := influxdb2.NewPoint(measurement, tags, values, at)
	if err := c.writeAPI.WritePoint(ctx, p); err != nil {
		c.logger.Error("influx write failed",
			zap.String("measurement", measurement),
			zap.Error(err),
		)
		return apperr.Wrap(apperr.Upstream, "failed to write data", err)
	}
	return nil
}

// Query renders the spec to Flux, executes it, and decodes every record.
func (c *Client) Query(ctx context.Context, spec QuerySpec) ([]Record, error) {
	flux, err := spec.Flux(c.bucket)
	if err != nil {
		return nil, err
	}

	result, err := c.queryAPI.Query(ctx, flux)
	if err != nil {
		c.logger.Error("influx query failed",
			zap.String("measurement", spec.Measurement),
			zap.Error(err),
		)
		return nil, apperr.Wrap(apperr.Upstream, "time-series store query failed", err)
	}

	var records []Record
	for result.Next() {
		rec := result.Record()
		records = append(records, Record{
			Field: rec.Field(),
			Value: rec.Value(),
			Time:  rec.Time(),
		})
	}
	if result.Err() != nil {
		return nil, apperr.Wrap(apperr.Upstream, "error reading query results", result.Err())
	}

	return records, nil
}
