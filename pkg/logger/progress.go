package logger

import (
	"sync"
	"time"
)

// ProgressTracker tracks percentage progress of a single long-running
// operation, such as extracting one document. Updates are clamped to the
// [0,100] range and never move backwards, matching the monotonic callbacks
// of the external OCR engine.
type ProgressTracker struct {
	logger      Logger
	operation   string
	percent     int
	startTime   time.Time
	lastLogTime time.Time
	logInterval time.Duration
	observers   []func(percent int)
	mutex       sync.Mutex
}

// NewProgressTracker creates a tracker for the named operation.
func NewProgressTracker(operation string, log Logger) *ProgressTracker {
	if log == nil {
		log = GetGlobalLogger()
	}

	return &ProgressTracker{
		logger:      log.WithComponent("progress"),
		operation:   operation,
		startTime:   time.Now(),
		lastLogTime: time.Now(),
		logInterval: 2 * time.Second,
	}
}

// Observe registers a callback invoked on every forward progress change.
func (p *ProgressTracker) Observe(fn func(percent int)) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.observers = append(p.observers, fn)
}

// Reset restarts progress at zero for a new unit of work (the next file in
// a batch). Observers are notified of the reset.
func (p *ProgressTracker) Reset(operation string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.operation = operation
	p.percent = 0
	p.startTime = time.Now()
	p.lastLogTime = time.Now()
	p.notifyLocked()
}

// Set moves progress to the given percentage. Values below the current
// position or outside [0,100] are clamped.
func (p *ProgressTracker) Set(percent int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if percent > 100 {
		percent = 100
	}
	if percent <= p.percent {
		return
	}
	p.percent = percent
	p.notifyLocked()

	now := time.Now()
	if now.Sub(p.lastLogTime) >= p.logInterval || percent == 100 {
		p.logger.WithFields(Fields{
			"operation": p.operation,
			"percent":   p.percent,
			"elapsed":   now.Sub(p.startTime).String(),
		}).Debug("Progress update")
		p.lastLogTime = now
	}
}

// Percent returns the current progress percentage.
func (p *ProgressTracker) Percent() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.percent
}

func (p *ProgressTracker) notifyLocked() {
	for _, fn := range p.observers {
		fn(p.percent)
	}
}

// OperationLogger provides structured logging for operations with timing.
type OperationLogger struct {
	logger    Logger
	operation string
	fields    Fields
	startTime time.Time
}

// NewOperationLogger creates a new operation logger.
func NewOperationLogger(operation string, log Logger) *OperationLogger {
	if log == nil {
		log = GetGlobalLogger()
	}

	ol := &OperationLogger{
		logger:    log.WithComponent("operation"),
		operation: operation,
		fields:    make(Fields),
		startTime: time.Now(),
	}

	ol.logger.WithField("operation", operation).Info("Starting operation")
	return ol
}

// WithField adds a field to the operation context.
func (ol *OperationLogger) WithField(key string, value interface{}) *OperationLogger {
	ol.fields[key] = value
	return ol
}

// Step logs a step within the operation.
func (ol *OperationLogger) Step(step string) {
	fields := Fields{
		"operation": ol.operation,
		"step":      step,
	}
	for k, v := range ol.fields {
		fields[k] = v
	}

	ol.logger.WithFields(fields).Info("Operation step")
}

// Success completes the operation successfully.
func (ol *OperationLogger) Success(message string) {
	fields := Fields{
		"operation": ol.operation,
		"duration":  time.Since(ol.startTime).String(),
		"status":    "success",
	}
	for k, v := range ol.fields {
		fields[k] = v
	}

	ol.logger.WithFields(fields).Info(message)
}

// Error completes the operation with an error.
func (ol *OperationLogger) Error(err error, message string) {
	fields := Fields{
		"operation": ol.operation,
		"duration":  time.Since(ol.startTime).String(),
		"status":    "error",
	}
	for k, v := range ol.fields {
		fields[k] = v
	}

	ol.logger.WithError(err).WithFields(fields).Error(message)
}
