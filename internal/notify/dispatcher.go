package notify

import (
	"context"
	"sync"
	"time"

	"FarmMonitorAPI/internal/logger"
	"FarmMonitorAPI/internal/metrics"
	"FarmMonitorAPI/internal/models"
)

type DispatcherConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// Dispatcher hands alerts to channel senders on background workers. Handoff
// never blocks the caller and delivery errors never reach it.
type Dispatcher struct {
	cfg      DispatcherConfig
	settings *Settings
	senders  map[models.Channel]Sender
	sinks    []Sink
	queue    chan Notification
	log      *logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(cfg DispatcherConfig, settings *Settings, log *logger.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Dispatcher{
		cfg:      cfg,
		settings: settings,
		senders:  make(map[models.Channel]Sender),
		queue:    make(chan Notification, cfg.QueueSize),
		log:      log.WithComponent("notify"),
	}
}

// Register installs the sender for its channel. Call before Start.
func (d *Dispatcher) Register(s Sender) {
	d.senders[s.Channel()] = s
}

// AddSink installs a sink that sees every handoff. Call before Start.
func (d *Dispatcher) AddSink(s Sink) {
	d.sinks = append(d.sinks, s)
}

func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
	d.log.Info("Notification dispatcher started (%d workers, queue %d)", d.cfg.Workers, d.cfg.QueueSize)
}

// Handoff queues the alert with its channel set. It reports false when the
// queue is full or the dispatcher is closed.
func (d *Dispatcher) Handoff(alert models.AlertEvent) bool {
	n := Notification{Alert: alert, Channels: ChannelsFor(alert)}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	select {
	case d.queue <- n:
		metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
		return true
	default:
		d.log.Warn("notification queue full, dropping alert %s (%s)", alert.ID, alert.RuleID)
		for _, ch := range n.Channels {
			metrics.NotificationsTotal.WithLabelValues(string(ch), "dropped").Inc()
		}
		return false
	}
}

// Close stops accepting handoffs, drains the queue and closes sinks.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()

	for _, s := range d.sinks {
		if err := s.Close(); err != nil {
			d.log.Warn("closing notification sink: %v", err)
		}
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for n := range d.queue {
		metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
		d.deliver(ctx, n)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) {
	// Shutdown cancels ctx; queued alerts still get delivered during drain.
	ctx = context.WithoutCancel(ctx)
	settings := d.settings.Get()

	for _, ch := range n.Channels {
		if !settings.Allows(ch) {
			d.log.Debug("channel %s disabled, skipping alert %s", ch, n.Alert.ID)
			metrics.NotificationsTotal.WithLabelValues(string(ch), "skipped").Inc()
			continue
		}
		sender, ok := d.senders[ch]
		if !ok {
			d.log.Warn("no sender configured for channel %s, skipping alert %s", ch, n.Alert.ID)
			metrics.NotificationsTotal.WithLabelValues(string(ch), "skipped").Inc()
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
		start := time.Now()
		err := sender.Send(sendCtx, n, settings)
		cancel()
		metrics.NotificationDuration.WithLabelValues(string(ch)).Observe(time.Since(start).Seconds())

		if err != nil {
			d.log.Error("delivering alert %s via %s failed: %v", n.Alert.ID, ch, err)
			metrics.NotificationsTotal.WithLabelValues(string(ch), "failed").Inc()
			continue
		}
		metrics.NotificationsTotal.WithLabelValues(string(ch), "sent").Inc()
	}

	for _, s := range d.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
		if err := s.Publish(sinkCtx, n); err != nil {
			d.log.Error("publishing alert %s to sink failed: %v", n.Alert.ID, err)
		}
		cancel()
	}
}
