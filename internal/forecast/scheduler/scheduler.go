package scheduler

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ridloal/inventory-pos/internal/forecast/service"
	"github.com/ridloal/inventory-pos/internal/platform/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler recomputes reorder suggestions on a cron schedule and exports
// the number of flagged products.
type Scheduler struct {
	advisor service.Advisor
	cron    *cron.Cron
	timeout time.Duration
	flagged prometheus.Gauge
	runs    *prometheus.CounterVec
}

// New registers the job. flagged and runs may be nil.
func New(advisor service.Advisor, spec string, timeout time.Duration, flagged prometheus.Gauge, runs *prometheus.CounterVec) (*Scheduler, error) {
	s := &Scheduler{
		advisor: advisor,
		cron:    cron.New(),
		timeout: timeout,
		flagged: flagged,
		runs:    runs,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, err
	}
	logger.Info("Forecast scheduler initialized", zap.String("spec", spec))
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) RunOnce(ctx context.Context) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	suggestions, err := s.advisor.ReorderSuggestions(ctx)
	if err != nil {
		logger.Error("Forecast job failed", err)
		s.count("error")
		return
	}
	s.count("success")
	if s.flagged != nil {
		s.flagged.Set(float64(len(suggestions)))
	}
	for _, sg := range suggestions {
		logger.Warn("Product flagged for reorder",
			zap.Int64("product_id", sg.ProductID),
			zap.String("name", sg.Name),
			zap.Int("current_stock", sg.CurrentStock),
			zap.Int("predicted_sales", sg.PredictedSales),
		)
	}
}

func (s *Scheduler) count(result string) {
	if s.runs != nil {
		s.runs.WithLabelValues(result).Inc()
	}
}
