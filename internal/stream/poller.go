// Package stream forwards subscribed node values to websocket clients.
package stream

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/KevinKickass/OpenInstrumentCore/internal/api/websocket"
	"github.com/KevinKickass/OpenInstrumentCore/internal/parameter"
	"go.uber.org/zap"
)

// Source is polled for node values that changed since the last poll.
type Source interface {
	Poll(ctx context.Context, recording time.Duration) (map[string]any, error)
}

type Broadcaster interface {
	Broadcast(msg websocket.Message)
}

type Poller struct {
	source    Source
	sink      Broadcaster
	interval  time.Duration
	recording time.Duration
	logger    *zap.Logger
	stopChan  chan struct{}
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

func NewPoller(source Source, sink Broadcaster, interval, recording time.Duration, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		source:    source,
		sink:      sink,
		interval:  interval,
		recording: recording,
		logger:    logger,
	}
}

// Start begins polling. Starting a running poller is a no-op.
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	p.running = true
	p.stopChan = make(chan struct{})
	p.wg.Add(1)

	go p.pollLoop(p.stopChan)

	p.logger.Info("Stream poller started",
		zap.Duration("interval", p.interval),
		zap.Duration("recording", p.recording))

	return nil
}

func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()

	p.logger.Info("Stream poller stopped")
}

func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) pollLoop(stop <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.pollOnce(stop)
		}
	}
}

// pollOnce publishes one node update per changed node, ordered by path.
func (p *Poller) pollOnce(stop <-chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), p.recording+p.interval)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	values, err := p.source.Poll(ctx, p.recording)
	if err != nil {
		p.logger.Error("Poll failed", zap.Error(err))
		p.sink.Broadcast(websocket.NewMessage(websocket.MessageTypeStreamError, err.Error()))
		return
	}

	paths := make([]string, 0, len(values))
	for path := range values {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		p.sink.Broadcast(websocket.NewNodeUpdateMessage(path, parameter.JSONValue(values[path])))
	}
}
