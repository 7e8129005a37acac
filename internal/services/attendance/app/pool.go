package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/punchd/punchd/internal/platform/timeouts"
	"github.com/punchd/punchd/internal/services/attendance/domain"
)

// ErrQueueFull indicates the job queue is at capacity and the command was
// not scheduled.
var ErrQueueFull = errors.New("command queue is full")

// failureMessage is delivered to the caller when processing hits a storage
// fault; the concrete error goes to the operator log only.
const failureMessage = "something went wrong, your command was not recorded"

// CommandProcessor runs one command through the attendance state machine.
type CommandProcessor interface {
	Process(ctx context.Context, input domain.ProcessInput) (domain.Outcome, error)
}

// OutcomeDeliverer sends an outcome message to a one-shot callback URL.
type OutcomeDeliverer interface {
	Deliver(ctx context.Context, callbackURL string, message string) error
}

// Job carries one validated webhook command into the pool.
type Job struct {
	ID          string
	Command     string
	UserID      string
	UserName    string
	CallbackURL string
}

// PoolConfig sizes the worker pool.
type PoolConfig struct {
	Workers         int
	QueueSize       int
	CallbackTimeout time.Duration
}

func (c PoolConfig) normalized() PoolConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.CallbackTimeout <= 0 {
		c.CallbackTimeout = timeouts.Callback
	}
	return c
}

// Pool processes webhook commands on a bounded set of workers. Commands for
// the same user are serialized through a per-user mutex so resolve-then-append
// is atomic with respect to that user's other in-flight commands.
type Pool struct {
	processor CommandProcessor
	deliverer OutcomeDeliverer
	config    PoolConfig
	logf      func(format string, args ...any)

	jobs chan Job
	wg   sync.WaitGroup

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewPool constructs a worker pool; Start must be called before Enqueue.
func NewPool(processor CommandProcessor, deliverer OutcomeDeliverer, config PoolConfig, logf func(format string, args ...any)) *Pool {
	if logf == nil {
		logf = log.Printf
	}
	config = config.normalized()
	return &Pool{
		processor: processor,
		deliverer: deliverer,
		config:    config,
		logf:      logf,
		jobs:      make(chan Job, config.QueueSize),
		userLocks: make(map[string]*sync.Mutex),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	for range p.config.Workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.run(job)
			}
		}()
	}
}

// Enqueue schedules one job without blocking. A full queue returns
// ErrQueueFull so the webhook can push back on the caller.
func (p *Pool) Enqueue(job Job) error {
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops intake and waits for queued jobs to drain. Jobs already
// started run to completion; there is no cancellation path.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}

func (p *Pool) run(job Job) {
	// Jobs outlive the triggering request on purpose; they carry their own
	// lifetime rather than the request context.
	ctx := context.Background()

	lock := p.lockForUser(job.UserID)
	lock.Lock()
	outcome, err := p.processor.Process(ctx, domain.ProcessInput{
		Command:  job.Command,
		UserID:   job.UserID,
		UserName: job.UserName,
	})
	lock.Unlock()

	message := outcome.Message
	if err != nil {
		p.logf("process job %s (%s for %s): %v", job.ID, job.Command, job.UserID, err)
		message = failureMessage
	}

	deliverCtx, cancel := context.WithTimeout(ctx, p.config.CallbackTimeout)
	defer cancel()
	if err := p.deliverer.Deliver(deliverCtx, job.CallbackURL, message); err != nil {
		// The event, if any, is already appended; the log stays the source
		// of truth even when the notification is lost.
		p.logf("deliver job %s outcome: %v", job.ID, err)
	}
}

func (p *Pool) lockForUser(userID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		p.userLocks[userID] = lock
	}
	return lock
}
