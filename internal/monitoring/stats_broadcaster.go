package monitoring

import (
	"context"
	"time"

	"github.com/jcastellr/ballotbox-be/internal/services"
	ws "github.com/jcastellr/ballotbox-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// StatsBroadcaster periodically pushes the current election statistics to all
// connected dashboard clients, and immediately after every cast or reversal.
type StatsBroadcaster struct {
	statsSvc services.StatsServiceProvider
	hub      *ws.Hub
	interval time.Duration
	ticker   *time.Ticker
	notify   chan struct{}
	done     chan bool
}

// NewStatsBroadcaster creates a new StatsBroadcaster.
func NewStatsBroadcaster(statsSvc services.StatsServiceProvider, hub *ws.Hub, interval time.Duration) *StatsBroadcaster {
	return &StatsBroadcaster{
		statsSvc: statsSvc,
		hub:      hub,
		interval: interval,
		notify:   make(chan struct{}, 1),
		done:     make(chan bool),
	}
}

// Run starts the periodic broadcasts.
func (b *StatsBroadcaster) Run() {
	log.Info().Dur("interval", b.interval).Msg("Starting statistics broadcaster...")
	b.ticker = time.NewTicker(b.interval)
	defer b.ticker.Stop()

	// Push once immediately on start
	b.broadcast()

	for {
		select {
		case <-b.done:
			log.Info().Msg("Stopping statistics broadcaster.")
			return
		case <-b.ticker.C:
			b.broadcast()
		case <-b.notify:
			b.broadcast()
		}
	}
}

// Stop halts the periodic broadcasts.
func (b *StatsBroadcaster) Stop() {
	b.done <- true
}

// Notify requests an immediate broadcast, coalescing bursts into one push.
func (b *StatsBroadcaster) Notify() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *StatsBroadcaster) broadcast() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := b.statsSvc.ComputeStatistics(ctx)
	if err != nil {
		log.Error().Err(err).Msg("StatsBroadcaster: Failed to compute statistics")
		return
	}
	b.hub.Broadcast <- ws.NewStatisticsMessage(stats)
}
