package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/jcastellr/ballotbox-be/internal/services"
	ws "github.com/jcastellr/ballotbox-be/internal/websocket"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Auditor periodically verifies the stored invariants: one vote per voter and
// tallies that match the vote records. Violations are logged and broadcast to
// dashboards; nothing is auto-corrected.
type Auditor struct {
	statsSvc services.StatsServiceProvider
	hub      *ws.Hub
	schedule cron.Schedule
	ticker   *time.Ticker
	nextRun  time.Time
	done     chan bool
}

// NewAuditor creates an auditor running on the given cron expression.
func NewAuditor(statsSvc services.StatsServiceProvider, hub *ws.Hub, cronExpr string) (*Auditor, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid audit schedule %q: %w", cronExpr, err)
	}
	return &Auditor{
		statsSvc: statsSvc,
		hub:      hub,
		schedule: schedule,
		done:     make(chan bool),
	}, nil
}

// Run starts the auditor's ticking loop.
func (a *Auditor) Run() {
	log.Info().Msg("Starting integrity auditor...")
	a.ticker = time.NewTicker(1 * time.Minute)
	defer a.ticker.Stop()

	// Audit once immediately on start
	a.audit()
	a.nextRun = a.schedule.Next(time.Now())

	for {
		select {
		case <-a.done:
			log.Info().Msg("Stopping integrity auditor.")
			return
		case now := <-a.ticker.C:
			if now.After(a.nextRun) {
				a.audit()
				a.nextRun = a.schedule.Next(now)
			}
		}
	}
}

// Stop halts the auditor.
func (a *Auditor) Stop() {
	a.done <- true
}

func (a *Auditor) audit() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	violations, err := a.statsSvc.CheckIntegrity(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Auditor: Integrity scan failed")
		return
	}
	if len(violations) == 0 {
		log.Debug().Msg("Auditor: All invariants hold")
		return
	}

	for _, v := range violations {
		log.Error().
			Str("invariant", v.Invariant).
			Str("account_id", v.AccountID).
			Str("detail", v.Detail).
			Msg("Auditor: Invariant violated")
	}
	if a.hub != nil {
		a.hub.Broadcast <- ws.NewIntegrityAlertMessage(violations)
	}
}
