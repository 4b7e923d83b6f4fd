package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/tradefin/internal/ledger"
)

// Transport failure causes, wrapped in SESSION_FAILED errors.
var (
	ErrUnknownParty = errors.New("party not registered")
	ErrUnreachable  = errors.New("party unreachable")
	ErrClosed       = errors.New("mailbox closed")
)

// Handler processes one message addressed to a party.
type Handler interface {
	Handle(ctx context.Context, from ledger.Party, msg Message) (Message, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, from ledger.Party, msg Message) (Message, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, from ledger.Party, msg Message) (Message, error) {
	return f(ctx, from, msg)
}

// Mailbox is a party's inbound queue and its single consumer.
type Mailbox struct {
	party   ledger.Party
	handler Handler
	queue   *queue
	logger  *slog.Logger
	done    chan struct{}
}

// Run drains the mailbox until ctx ends or the mailbox is closed. Must be
// called from exactly one goroutine; Register starts it.
func (m *Mailbox) Run(ctx context.Context) {
	defer close(m.done)
	for {
		if e, ok := m.queue.TryDequeue(); ok {
			m.deliver(e)
			continue
		}

		select {
		case <-ctx.Done():
			m.queue.Close()
			m.drain()
			return
		case _, ok := <-m.queue.Wait():
			if !ok && m.queue.Len() == 0 {
				// Closed and empty.
				return
			}
		}
	}
}

func (m *Mailbox) deliver(e envelope) {
	if err := e.ctx.Err(); err != nil {
		// Sender gave up while the message was queued.
		e.reply <- reply{err: err}
		return
	}
	m.logger.Debug("deliver", "party", m.party.Name, "from", e.from.Name, "msg", fmt.Sprintf("%T", e.msg))
	msg, err := m.handler.Handle(e.ctx, e.from, e.msg)
	e.reply <- reply{msg: msg, err: err}
}

// Done is closed once the consumer has exited.
func (m *Mailbox) Done() <-chan struct{} {
	return m.done
}

// drain fails every envelope left after shutdown.
func (m *Mailbox) drain() {
	for {
		e, ok := m.queue.TryDequeue()
		if !ok {
			return
		}
		e.reply <- reply{err: ledger.SessionFailed(m.party.Name, ErrClosed)}
	}
}

type fault struct {
	unreachable bool
	delay       time.Duration
}

// Network routes requests between registered parties.
//
// Thread-safety: all methods are safe for concurrent use.
type Network struct {
	mu     sync.RWMutex
	boxes  map[string]*Mailbox
	faults map[string]fault
	cancel context.CancelFunc
	ctx    context.Context
	wg     sync.WaitGroup
	logger *slog.Logger
}

// Option configures a Network.
type Option func(*Network)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(n *Network) {
		n.logger = l
	}
}

// New creates an empty network.
func New(opts ...Option) *Network {
	ctx, cancel := context.WithCancel(context.Background())
	n := &Network{
		boxes:  make(map[string]*Mailbox),
		faults: make(map[string]fault),
		ctx:    ctx,
		cancel: cancel,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Register creates party's mailbox and starts its consumer.
func (n *Network) Register(party ledger.Party, h Handler) (*Mailbox, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.boxes[party.Name]; exists {
		return nil, fmt.Errorf("register %s: already registered", party)
	}
	m := &Mailbox{
		party:   party,
		handler: h,
		queue:   newQueue(),
		logger:  n.logger,
		done:    make(chan struct{}),
	}
	n.boxes[party.Name] = m

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		m.Run(n.ctx)
	}()
	return m, nil
}

// SetUnreachable makes requests to party fail immediately.
func (n *Network) SetUnreachable(party string, unreachable bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	f := n.faults[party]
	f.unreachable = unreachable
	n.faults[party] = f
}

// SetDelay holds every request to party for d before delivery.
func (n *Network) SetDelay(party string, d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	f := n.faults[party]
	f.delay = d
	n.faults[party] = f
}

// Request sends msg from one party to another and waits for the reply.
func (n *Network) Request(ctx context.Context, from, to ledger.Party, msg Message) (Message, error) {
	n.mu.RLock()
	box, ok := n.boxes[to.Name]
	f := n.faults[to.Name]
	n.mu.RUnlock()

	if !ok {
		return nil, ledger.SessionFailed(to.Name, ErrUnknownParty)
	}
	if f.unreachable {
		return nil, ledger.SessionFailed(to.Name, ErrUnreachable)
	}
	if f.delay > 0 {
		timer := time.NewTimer(f.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ledger.SessionFailed(to.Name, ctx.Err())
		}
	}

	e := envelope{ctx: ctx, from: from, msg: msg, reply: make(chan reply, 1)}
	if !box.queue.Enqueue(e) {
		return nil, ledger.SessionFailed(to.Name, ErrClosed)
	}

	select {
	case r := <-e.reply:
		if r.err != nil {
			return nil, attribute(r.err, to.Name)
		}
		return r.msg, nil
	case <-ctx.Done():
		n.logger.Debug("session timed out", "from", from.Name, "to", to.Name, "msg", fmt.Sprintf("%T", msg))
		return nil, ledger.SessionFailed(to.Name, ctx.Err())
	}
}

// attribute tags a remote error with the party that raised it. Context
// errors from an abandoned delivery become SESSION_FAILED.
func attribute(err error, party string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		var lerr *ledger.Error
		if !errors.As(err, &lerr) {
			return ledger.SessionFailed(party, err)
		}
	}
	var lerr *ledger.Error
	if errors.As(err, &lerr) && lerr.Party == "" {
		return lerr.WithParty(party)
	}
	return err
}

// Close stops every mailbox and waits for their consumers to exit.
func (n *Network) Close() {
	n.cancel()
	n.wg.Wait()
}
