package notifysvc

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ecp-air/airquality-backend/internal/apperr"
	"github.com/ecp-air/airquality-backend/internal/mailer"
	"github.com/ecp-air/airquality-backend/internal/models"
	"github.com/ecp-air/airquality-backend/internal/store"
)

// digestHour is the local hour of day the digest reports on.
const digestHour = 7

// Averager computes per-field averages across a set of nodes.
type Averager interface {
	LocationAverages(ctx context.Context, nodes []*models.Node, at time.Time) (map[string]float64, error)
}

// Service manages notification subscriptions and the daily digest fan-out.
type Service struct {
	subs     *store.Subscriptions
	nodes    *store.Nodes
	averager Averager
	mail     *mailer.Mailer
	queue    *mailer.Worker
	logger   *zap.Logger
	zone     *time.Location
	now      func() time.Time
}

// New creates the notification service.
func New(subs *store.Subscriptions, nodes *store.Nodes, averager Averager, mail *mailer.Mailer, queue *mailer.Worker, zone *time.Location, logger *zap.Logger) *Service {
	return &Service{
		subs:     subs,
		nodes:    nodes,
		averager: averager,
		mail:     mail,
		queue:    queue,
		logger:   logger,
		zone:     zone,
		now:      time.Now,
	}
}

// SubscribeResult reports the outcome of a subscribe call.
type SubscribeResult struct {
	Subscription *models.Subscription
	Message      string
	IsNew        bool
}

// Subscribe creates, reactivates or moves a subscription. One row per email
// address; new and reactivated subscriptions get a welcome email.
func (s *Service) Subscribe(ctx context.Context, email, location string) (*SubscribeResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	location = strings.TrimSpace(location)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.New(apperr.Validation, "a valid email address is required")
	}
	if location == "" {
		return nil, apperr.New(apperr.Validation, "location is required")
	}

	nodes, err := s.nodes.ByLocation(ctx, location)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		available, err := s.nodes.Locations(ctx)
		if err != nil {
			return nil, err
		}
		return nil, apperr.Newf(apperr.Validation,
			"no nodes in location %q; available locations: %s", location, strings.Join(available, ", "))
	}

	existing, err := s.subs.ByEmail(ctx, email)
	if err != nil && apperr.KindOf(err) != apperr.NotFound {
		return nil, err
	}

	if existing == nil {
		sub := &models.Subscription{Email: email, Location: location, IsActive: true}
		if err := s.subs.Create(ctx, sub); err != nil {
			return nil, err
		}
		s.enqueueWelcome(email, location)
		return &SubscribeResult{Subscription: sub, Message: "subscribed to email notifications", IsNew: true}, nil
	}

	switch {
	case existing.IsActive && existing.Location == location:
		return &SubscribeResult{Subscription: existing, Message: "email is already subscribed"}, nil
	case existing.IsActive:
		existing.Location = location
		if err := s.subs.Save(ctx, existing); err != nil {
			return nil, err
		}
		return &SubscribeResult{Subscription: existing, Message: fmt.Sprintf("location updated to %s", location)}, nil
	default:
		existing.IsActive = true
		existing.Location = location
		if err := s.subs.Save(ctx, existing); err != nil {
			return nil, err
		}
		s.enqueueWelcome(email, location)
		return &SubscribeResult{Subscription: existing, Message: "email notifications re-enabled", IsNew: true}, nil
	}
}

func (s *Service) enqueueWelcome(email, location string) {
	s.queue.Enqueue(mailer.Task{
		Name: "welcome",
		To:   email,
		Send: func() error { return s.mail.SendWelcome(email, location) },
	})
}

// Unsubscribe deactivates a subscription.
func (s *Service) Unsubscribe(ctx context.Context, email string) error {
	sub, err := s.subs.ByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	sub.IsActive = false
	return s.subs.Save(ctx, sub)
}

// LocationInfo describes one subscribable location.
type LocationInfo struct {
	Location    string `json:"location"`
	DisplayName string `json:"display_name"`
	TotalNodes  int64  `json:"total_nodes"`
	OnlineNodes int64  `json:"online_nodes"`
	Available   bool   `json:"available"`
}

// Locations lists every location that has nodes, with availability counts,
// sorted by location name.
func (s *Service) Locations(ctx context.Context) ([]LocationInfo, error) {
	locations, err := s.nodes.Locations(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]LocationInfo, 0, len(locations))
	for _, loc := range locations {
		if loc == "" {
			continue
		}
		total, online, err := s.nodes.CountByLocation(ctx, loc)
		if err != nil {
			return nil, err
		}
		infos = append(infos, LocationInfo{
			Location:    loc,
			DisplayName: fmt.Sprintf("%s (%d/%d nodes online)", loc, online, total),
			TotalNodes:  total,
			OnlineNodes: online,
			Available:   online > 0,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Location < infos[j].Location })
	return infos, nil
}

// Subscribers lists the active subscribers for a location.
func (s *Service) Subscribers(ctx context.Context, location string) ([]models.Subscription, error) {
	return s.subs.ActiveByLocation(ctx, location)
}

// RunDailyDigest fans the morning report out to every active subscriber.
// Individual failures are logged and skipped; the batch always finishes.
// Returns the number of digests queued.
func (s *Service) RunDailyDigest(ctx context.Context) (int, error) {
	locations, err := s.subs.ActiveLocations(ctx)
	if err != nil {
		return 0, err
	}

	reportAt := s.reportInstant()
	queued := 0
	for _, location := range locations {
		nodes, err := s.nodes.ByLocation(ctx, location)
		if err != nil {
			s.logger.Error("digest: node lookup failed", zap.String("location", location), zap.Error(err))
			continue
		}
		nodePtrs := make([]*models.Node, len(nodes))
		for i := range nodes {
			nodePtrs[i] = &nodes[i]
		}

		averages, err := s.averager.LocationAverages(ctx, nodePtrs, reportAt)
		if err != nil {
			s.logger.Error("digest: averages failed", zap.String("location", location), zap.Error(err))
			continue
		}
		if len(averages) == 0 {
			s.logger.Info("digest: no data for location", zap.String("location", location))
			continue
		}

		subscribers, err := s.subs.ActiveByLocation(ctx, location)
		if err != nil {
			s.logger.Error("digest: subscriber lookup failed", zap.String("location", location), zap.Error(err))
			continue
		}
		for _, sub := range subscribers {
			email := sub.Email
			loc := location
			s.queue.Enqueue(mailer.Task{
				Name: "daily-digest",
				To:   email,
				Send: func() error { return s.mail.SendDailyDigest(email, loc, averages) },
			})
			queued++
		}
	}

	s.logger.Info("daily digest queued", zap.Int("count", queued))
	return queued, nil
}

// reportInstant returns today's report hour in the display zone, as the UTC
// instant the summary query keys on.
func (s *Service) reportInstant() time.Time {
	local := s.now().In(s.zone)
	report := time.Date(local.Year(), local.Month(), local.Day(), digestHour, 0, 0, 0, s.zone)
	return report.UTC()
}
