package service

import (
	"context"
	"sync"
	"time"

	"FarmMonitorAPI/internal/logger"
	"FarmMonitorAPI/internal/metrics"
	"FarmMonitorAPI/internal/repository"
)

// JournalWriter appends lifecycle entries to an AlertJournal on a background
// goroutine. Journal failures are logged and never reach the lifecycle.
type JournalWriter struct {
	journal repository.AlertJournal
	queue   chan repository.JournalEntry
	log     *logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewJournalWriter(journal repository.AlertJournal, queueSize int, log *logger.Logger) *JournalWriter {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &JournalWriter{
		journal: journal,
		queue:   make(chan repository.JournalEntry, queueSize),
		log:     log.WithComponent("journal"),
	}
}

func (w *JournalWriter) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for entry := range w.queue {
			writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			err := w.journal.Append(writeCtx, entry)
			cancel()
			if err != nil {
				w.log.Error("journal %s for alert %s failed: %v", entry.Action, entry.Alert.ID, err)
				metrics.JournalWrites.WithLabelValues("failed").Inc()
				continue
			}
			metrics.JournalWrites.WithLabelValues("success").Inc()
		}
	}()
}

// Record queues entry without blocking.
func (w *JournalWriter) Record(entry repository.JournalEntry) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}

	select {
	case w.queue <- entry:
	default:
		w.log.Warn("journal queue full, dropping %s entry for alert %s", entry.Action, entry.Alert.ID)
		metrics.JournalWrites.WithLabelValues("dropped").Inc()
	}
}

// Close flushes queued entries and stops the writer.
func (w *JournalWriter) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	w.wg.Wait()
}
