package service

import (
	"context"
	"errors"
	"io"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"signaltracker/backend/services/dashboard-gateway/internal/kpi"
	"signaltracker/backend/services/dashboard-gateway/internal/render"
)

// ErrInvalidRange is returned for an unusable ranking window.
var ErrInvalidRange = errors.New("dashboard: invalid range")

// Ranking kinds.
const (
	RankingCoverage = "coverage"
	RankingQuality  = "quality"
)

const dashboardCacheKey = "kpi"

// DashboardAPI is the backend surface behind the dashboard page.
type DashboardAPI interface {
	ReactDashboardData(ctx context.Context) ([]byte, error)
	DashboardGraphData(ctx context.Context) ([]byte, error)
	OperatorCoverageRanking(ctx context.Context, min, max float64) ([]byte, error)
	OperatorQualityRanking(ctx context.Context, min, max float64) ([]byte, error)
}

// DashboardService assembles dashboard KPIs.
type DashboardService struct {
	api    DashboardAPI
	cache  Cache
	logger *zap.Logger
}

// NewDashboardService builds DashboardService; cache may be nil.
func NewDashboardService(api DashboardAPI, cache Cache, logger *zap.Logger) *DashboardService {
	return &DashboardService{api: api, cache: cacheOrNoop(cache), logger: logger}
}

// Dashboard fetches both KPI payloads concurrently and normalises them.
func (s *DashboardService) Dashboard(ctx context.Context) (*kpi.Dashboard, error) {
	var cached kpi.Dashboard
	if ok, err := s.cache.Get(ctx, dashboardCacheKey, &cached); err != nil {
		s.logger.Warn("dashboard cache read failed", zap.Error(err))
	} else if ok {
		return &cached, nil
	}

	var stats, graphs []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.api.ReactDashboardData(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		graphs, err = s.api.DashboardGraphData(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d, err := kpi.Normalize(stats, graphs)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, dashboardCacheKey, d); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.Error(err))
	}
	return d, nil
}

// Ranking returns the operator ranking of the given kind for an RSRP window.
func (s *DashboardService) Ranking(ctx context.Context, kind string, min, max float64) ([]kpi.RankingEntry, error) {
	if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) || min > max {
		return nil, ErrInvalidRange
	}
	var (
		body []byte
		err  error
	)
	switch kind {
	case RankingCoverage:
		body, err = s.api.OperatorCoverageRanking(ctx, min, max)
	case RankingQuality:
		body, err = s.api.OperatorQualityRanking(ctx, min, max)
	default:
		return nil, ErrInvalidRange
	}
	if err != nil {
		return nil, err
	}
	return kpi.Ranking(body)
}

// Charts renders the dashboard chart page.
func (s *DashboardService) Charts(ctx context.Context, w io.Writer) error {
	d, err := s.Dashboard(ctx)
	if err != nil {
		return err
	}
	return render.DashboardCharts(w, d, time.Now().Format("02 Jan 2006 15:04"))
}
