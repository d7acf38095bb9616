package relay

import "time"

// PlannerConfig holds the retry schedule for failed publishes.
type PlannerConfig struct {
	Backoff1 time.Duration // default: 5 seconds
	Backoff2 time.Duration // default: 30 seconds
	Backoff3 time.Duration // default: 2 minutes
	Backoff4 time.Duration // default: 10 minutes
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		Backoff1: 5 * time.Second,
		Backoff2: 30 * time.Second,
		Backoff3: 2 * time.Minute,
		Backoff4: 10 * time.Minute,
	}
}

type Planner struct {
	cfg PlannerConfig
}

// NewPlanner fills unset steps with defaults.
func NewPlanner(cfg PlannerConfig) *Planner {
	def := DefaultPlannerConfig()
	if cfg.Backoff1 <= 0 {
		cfg.Backoff1 = def.Backoff1
	}
	if cfg.Backoff2 <= 0 {
		cfg.Backoff2 = def.Backoff2
	}
	if cfg.Backoff3 <= 0 {
		cfg.Backoff3 = def.Backoff3
	}
	if cfg.Backoff4 <= 0 {
		cfg.Backoff4 = def.Backoff4
	}
	return &Planner{cfg: cfg}
}

// BackoffDelay returns the delay before the next attempt after nextFailCount failures.
func (p *Planner) BackoffDelay(nextFailCount int32) time.Duration {
	switch {
	case nextFailCount <= 1:
		return p.cfg.Backoff1
	case nextFailCount == 2:
		return p.cfg.Backoff2
	case nextFailCount == 3:
		return p.cfg.Backoff3
	default:
		return p.cfg.Backoff4
	}
}
