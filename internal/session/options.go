package session

import (
	"context"
	"time"

	"leadgate/internal/common/logger"
	"leadgate/internal/common/metrics"
	"leadgate/internal/narrator"
	"leadgate/internal/services/analysis"
	"leadgate/internal/services/delivery"
)

// Analyzer runs one remote analysis.
type Analyzer interface {
	Analyze(ctx context.Context, req *analysis.Request) (*analysis.Result, error)
}

// Deliverer sends the unlocked report.
type Deliverer interface {
	Deliver(ctx context.Context, req *delivery.Request) (*delivery.Receipt, error)
}

type Options struct {
	Analyzer  Analyzer
	Deliverer Deliverer
	Logger    logger.Logger
	Metrics   *metrics.Funnel

	Narrator  narrator.Config
	Scheduler narrator.Scheduler
	// FinishDelay is how long the completed progress bar stays visible
	// before results are shown.
	FinishDelay time.Duration
}
