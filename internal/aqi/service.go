package aqi

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ecp-air/airquality-backend/internal/apperr"
	"github.com/ecp-air/airquality-backend/internal/models"
	"github.com/ecp-air/airquality-backend/internal/tsdb"
)

// monthsLookback bounds the months-with-data scan.
const monthsLookback = 5 * 365 * 24 * time.Hour

// Store combines the time-series read and write contracts the facade needs.
type Store interface {
	tsdb.Reader
	tsdb.Writer
}

// Principal identifies an authenticated user on read endpoints. Nil means
// anonymous, which skips the ownership check: public reads back the
// aggregate dashboards.
type Principal struct {
	UserID uint
	Role   int
}

// Service wires the sanitizer, window resolver, query builder, normalizer
// and access guard into the public query operations.
type Service struct {
	store  Store
	guard  *Guard
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates the aggregation facade.
func NewService(store Store, guard *Guard, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		guard:  guard,
		logger: logger,
		now:    time.Now,
	}
}

// Reading is one multi-field ingestion payload. Every field must be present;
// a partial payload is rejected before any write.
type Reading struct {
	PM1         float64
	PM25        float64
	PM4         float64
	PM10        float64
	CO2         float64
	Temperature float64
	Humidity    float64
}

// SubmitResult reports a successful ingestion.
type SubmitResult struct {
	NodeName  string `json:"node_name"`
	Timestamp string `json:"timestamp"`
}

// SubmitReading authenticates the node by secret token alone and writes a
// single multi-field point tagged with the node identity.
func (s *Service) SubmitReading(ctx context.Context, secret string, reading Reading) (*SubmitResult, error) {
	node, err := s.guard.AuthorizeToken(ctx, "", secret)
	if err != nil {
		return nil, err
	}

	now := s.now()
	fields := map[string]float64{
		FieldPM1:         reading.PM1,
		FieldPM25:        reading.PM25,
		FieldPM4:         reading.PM4,
		FieldPM10:        reading.PM10,
		FieldCO2:         reading.CO2,
		FieldTemperature: reading.Temperature,
		FieldHumidity:    reading.Humidity,
	}
	tags := map[string]string{TagNode: node.Name}
	if err := s.store.WritePoint(ctx, MeasurementRaw, tags, fields, now); err != nil {
		return nil, err
	}

	s.logger.Info("reading recorded", zap.String("node_name", node.Name))
	return &SubmitResult{
		NodeName:  node.Name,
		Timestamp: now.In(displayZone).Format(time.RFC3339),
	}, nil
}

// SeriesResult is a flat-list response with its metadata.
type SeriesResult struct {
	Points   []MetricPoint
	Metadata map[string]interface{}
}

// checkOwner enforces owner-only access when a principal is present.
func (s *Service) checkOwner(ctx context.Context, nodeName string, principal *Principal) error {
	if principal == nil {
		return nil
	}
	_, err := s.guard.AuthorizeOwner(ctx, nodeName, principal.UserID)
	return err
}

// queryFlatSeries runs a spec and shapes it as a flat list, surfacing an
// empty result as not-found for the given period.
func (s *Service) queryFlatSeries(ctx context.Context, spec tsdb.QuerySpec, nodeName, period string) (*SeriesResult, error) {
	records, err := s.store.Query(ctx, spec)
	if err != nil {
		return nil, err
	}
	points := FlatList(records)
	if len(points) == 0 {
		return nil, apperr.Newf(apperr.NotFound, "no data found for period %s", period)
	}
	return &SeriesResult{
		Points: points,
		Metadata: map[string]interface{}{
			"node_name": nodeName,
			"period":    period,
			"count":     len(points),
			"timezone":  displayZone.String(),
		},
	}, nil
}

// Window returns the mean of every raw field over the trailing n hours.
func (s *Service) Window(ctx context.Context, nodeName string, hours int, principal *Principal) (*SeriesResult, error) {
	if err := s.checkOwner(ctx, nodeName, principal); err != nil {
		return nil, err
	}
	win, err := HoursWindow(s.now(), hours)
	if err != nil {
		return nil, err
	}
	spec := tsdb.QuerySpec{
		Measurement: MeasurementRaw,
		Fields:      ReadingFields,
		Tags:        map[string][]string{TagNode: {nodeName}},
		Start:       win.Start,
		Stop:        win.Stop,
		Every:       win.Every,
	}
	return s.queryFlatSeries(ctx, spec, nodeName, fmt.Sprintf("%dh", hours))
}

// Latest returns the most recent stored value of every raw field.
func (s *Service) Latest(ctx context.Context, nodeName string, principal *Principal) (*SeriesResult, error) {
	if err := s.checkOwner(ctx, nodeName, principal); err != nil {
		return nil, err
	}
	spec := tsdb.QuerySpec{
		Measurement:  MeasurementRaw,
		Fields:       ReadingFields,
		Tags:         map[string][]string{TagNode: {nodeName}},
		Start:        s.now().UTC().Add(-30 * 24 * time.Hour),
		LastPerField: true,
	}
	return s.queryFlatSeries(ctx, spec, nodeName, "latest")
}

// AQISeries returns the precomputed AQI series for a convenience period.
func (s *Service) AQISeries(ctx context.Context, nodeName, period string, principal *Principal) (*SeriesResult, error) {
	if err := s.checkOwner(ctx, nodeName, principal); err != nil {
		return nil, err
	}
	win, measurement, err := resolvePeriod(aqiPeriods, s.now(), period)
	if err != nil {
		return nil, err
	}
	spec := tsdb.QuerySpec{
		Measurement: measurement,
		Fields:      []string{FieldAQI},
		Tags:        map[string][]string{TagNode: {nodeName}},
		Start:       win.Start,
		Stop:        win.Stop,
		SortByTime:  true,
	}
	return s.queryFlatSeries(ctx, spec, nodeName, period)
}

// SummarySeries returns the precomputed summary series for a period.
func (s *Service) SummarySeries(ctx context.Context, nodeName, period string, principal *Principal) (*SeriesResult, error) {
	if err := s.checkOwner(ctx, nodeName, principal); err != nil {
		return nil, err
	}
	win, measurement, err := resolvePeriod(summaryPeriods, s.now(), period)
	if err != nil {
		return nil, err
	}
	spec := tsdb.QuerySpec{
		Measurement: measurement,
		Fields:      SummaryFields,
		Tags:        map[string][]string{TagNode: {nodeName}},
		Start:       win.Start,
		Stop:        win.Stop,
		SortByTime:  true,
	}
	return s.queryFlatSeries(ctx, spec, nodeName, period)
}

// Aggregated returns the mean-aggregated raw series for a named timeframe.
func (s *Service) Aggregated(ctx context.Context, nodeName, timeframe string, principal *Principal) (*SeriesResult, error) {
	if err := s.checkOwner(ctx, nodeName, principal); err != nil {
		return nil, err
	}
	win, err := TimeframeWindow(s.now(), timeframe)
	if err != nil {
		return nil, err
	}
	spec := tsdb.QuerySpec{
		Measurement: MeasurementRaw,
		Fields:      ReadingFields,
		Tags:        map[string][]string{TagNode: {nodeName}},
		Start:       win.Start,
		Stop:        win.Stop,
		Every:       win.Every,
		SortByTime:  true,
	}
	return s.queryFlatSeries(ctx, spec, nodeName, timeframe)
}

// MonthsResult lists the months that have data for a node.
type MonthsResult struct {
	Months []string
}

// Months lists every "YYYY-MM" month with air-quality data for the node.
func (s *Service) Months(ctx context.Context, nodeName string) (*MonthsResult, error) {
	spec := tsdb.QuerySpec{
		Measurement: MeasurementRaw,
		Tags:        map[string][]string{TagNode: {nodeName}},
		Start:       s.now().UTC().Add(-monthsLookback),
		TimeOnly:    true,
	}
	records, err := s.store.Query(ctx, spec)
	if err != nil {
		return nil, err
	}
	return &MonthsResult{Months: MonthsWithData(records)}, nil
}

// SummaryResult carries daily or hourly summary rows with metadata.
type SummaryResult struct {
	Rows     []SummaryRow
	Metadata map[string]interface{}
}

// DailySummary returns the per-day summary rows for a month ("YYYY-MM").
func (s *Service) DailySummary(ctx context.Context, nodeName, month string) (*SummaryResult, error) {
	win, err := MonthWindow(month)
	if err != nil {
		return nil, err
	}
	spec := tsdb.QuerySpec{
		Measurement: MeasurementDaily,
		Tags:        map[string][]string{TagNode: {nodeName}},
		Start:       win.Start,
		Stop:        win.Stop,
	}
	records, err := s.store.Query(ctx, spec)
	if err != nil {
		return nil, err
	}
	rows := DailyRows(records)
	return &SummaryResult{
		Rows: rows,
		Metadata: map[string]interface{}{
			"node_name":  nodeName,
			"month":      month,
			"total_days": len(rows),
		},
	}, nil
}

// HourlySummary returns the per-hour summary rows for a date ("YYYY-MM-DD").
func (s *Service) HourlySummary(ctx context.Context, nodeName, date string) (*SummaryResult, error) {
	win, err := DateWindow(date)
	if err != nil {
		return nil, err
	}
	spec := tsdb.QuerySpec{
		Measurement: MeasurementHourly,
		Tags:        map[string][]string{TagNode: {nodeName}},
		Start:       win.Start,
		Stop:        win.Stop,
	}
	records, err := s.store.Query(ctx, spec)
	if err != nil {
		return nil, err
	}
	rows := HourlyRows(records)
	return &SummaryResult{
		Rows: rows,
		Metadata: map[string]interface{}{
			"node_name":   nodeName,
			"date":        date,
			"total_hours": len(rows),
		},
	}, nil
}

// GraphResult is a single-field graph with its statistics.
type GraphResult struct {
	Points   []GraphPoint
	Metadata map[string]interface{}
}

// Graph returns a single-field series shaped for plotting, with statistics
// over its strictly positive values.
func (s *Service) Graph(ctx context.Context, nodeName, rangeToken, field string) (*GraphResult, error) {
	gr, err := ResolveGraphRange(rangeToken)
	if err != nil {
		return nil, err
	}
	if !ValidGraphField(field) {
		return nil, apperr.Newf(apperr.Validation, "data_type must be one of %v; got %q", GraphFields, field)
	}

	win := gr.Window(s.now())
	spec := tsdb.QuerySpec{
		Measurement: gr.Measurement,
		Fields:      []string{field},
		Tags:        map[string][]string{TagNode: {nodeName}},
		Start:       win.Start,
		Stop:        win.Stop,
		Every:       win.Every,
		SortByTime:  true,
	}
	records, err := s.store.Query(ctx, spec)
	if err != nil {
		return nil, err
	}
	points, stats := GraphSeries(records, gr)
	return &GraphResult{
		Points: points,
		Metadata: map[string]interface{}{
			"node_name":    nodeName,
			"time_range":   rangeToken,
			"data_type":    field,
			"window":       gr.Every.String(),
			"measurement":  gr.Measurement,
			"total_points": len(points),
			"statistics":   stats,
		},
	}, nil
}

// LocationAverages computes the per-field morning averages across a set of
// nodes, for the daily digest. Fields with no clean value are omitted.
func (s *Service) LocationAverages(ctx context.Context, nodes []*models.Node, at time.Time) (map[string]float64, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		names = append(names, n.Name)
	}

	spec := tsdb.QuerySpec{
		Measurement: MeasurementHourly,
		Fields:      SummaryFields,
		Tags:        map[string][]string{TagNode: names},
		Start:       at.UTC(),
		Stop:        at.UTC().Add(time.Hour),
	}
	records, err := s.store.Query(ctx, spec)
	if err != nil {
		return nil, err
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, rec := range records {
		v := Sanitize(rec.Value)
		if v <= 0 {
			continue
		}
		sums[rec.Field] += v
		counts[rec.Field]++
	}

	averages := make(map[string]float64, len(sums))
	for field, sum := range sums {
		averages[field] = Sanitize(sum / float64(counts[field]))
	}
	if len(averages) == 0 {
		return nil, nil
	}
	return averages, nil
}
