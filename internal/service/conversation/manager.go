package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sandevgo/tuskthread/internal/core"
	"github.com/sandevgo/tuskthread/internal/service/archive"
	"github.com/sandevgo/tuskthread/internal/service/document"
	"github.com/sandevgo/tuskthread/internal/service/reference"
	"github.com/sandevgo/tuskthread/internal/service/tree"
	"github.com/sandevgo/tuskthread/internal/service/window"
	"github.com/sandevgo/tuskthread/pkg/log"
)

const defaultGenerationTimeout = 2 * time.Minute

// slot is the state of one conversation. Mutating requests pass the ticket
// line and the queue one at a time; mu guards tree and segments and is never
// held while the generator runs.
type slot struct {
	key core.SlotKey

	lineMu sync.Mutex
	tail   chan struct{}
	queue  *semaphore.Weighted

	mu       sync.RWMutex
	tree     *tree.Tree
	segments *archive.Registry
	epoch    uint64
	restored bool
}

// Manager owns every conversation slot and runs their requests.
type Manager struct {
	gen        core.Generator
	writer     *document.Writer
	resolver   *reference.Resolver
	assembler  *window.Assembler
	compressor *archive.Compressor
	timeout    time.Duration
	now        func() time.Time

	mu    sync.Mutex
	slots map[string]*slot

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup
}

func NewManager(
	ctx context.Context,
	cfg core.GenerationConfig,
	gen core.Generator,
	writer *document.Writer,
	resolver *reference.Resolver,
	assembler *window.Assembler,
	compressor *archive.Compressor,
) *Manager {
	timeout := cfg.GetGenerationTimeout()
	if timeout <= 0 {
		timeout = defaultGenerationTimeout
	}

	bgCtx, cancel := context.WithCancel(context.WithoutCancel(log.WithComponent(ctx, "conversation")))
	return &Manager{
		gen:        gen,
		writer:     writer,
		resolver:   resolver,
		assembler:  assembler,
		compressor: compressor,
		timeout:    timeout,
		now:        func() time.Time { return time.Now().UTC() },
		slots:      make(map[string]*slot),
		bgCtx:      bgCtx,
		bgCancel:   cancel,
	}
}

// WithClock replaces the clock used for version timestamps and segment
// finalization.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	m.compressor.WithClock(now)
	return m
}

func (m *Manager) Start(ctx context.Context) error {
	return nil
}

// Shutdown stops background refinements and waits for them to return.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.bgCancel()

	done := make(chan struct{})
	go func() {
		m.bg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
		return errors.New("background refinements did not stop in time")
	}
}

// Idle blocks until no background refinement is running.
func (m *Manager) Idle() {
	m.bg.Wait()
}

// slot returns the slot for key, restoring it from its documents on first use.
func (m *Manager) slot(ctx context.Context, key core.SlotKey) (*slot, error) {
	m.mu.Lock()
	s, ok := m.slots[key.ID()]
	if !ok {
		s = &slot{
			key:      key,
			queue:    semaphore.NewWeighted(1),
			tree:     tree.New(),
			segments: archive.NewRegistry(),
		}
		m.slots[key.ID()] = s
	}
	m.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restored {
		return s, nil
	}
	if err := m.restore(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Restore loads a slot from its document chain. Slots are restored lazily on
// first access; calling Restore only makes that explicit.
func (m *Manager) Restore(ctx context.Context, key core.SlotKey) error {
	_, err := m.slot(ctx, key)
	return err
}

func (m *Manager) restore(ctx context.Context, s *slot) error {
	entries, err := m.writer.Load(ctx, s.key)
	if err != nil {
		return fmt.Errorf("%w: failed to load documents of %s: %v", core.ErrStorageFault, s.key, err)
	}

	t, err := tree.Replay(entries)
	if err != nil {
		log.Invariant(ctx, err)
		return err
	}
	segments, err := archive.Replay(entries)
	if err != nil {
		log.Invariant(ctx, err)
		return err
	}

	s.tree = t
	s.segments = segments
	s.restored = true

	if t.Len() > 0 {
		log.FromCtx(ctx).Info().
			Str("slot", s.key.String()).
			Int("turns", t.Len()).
			Int("segments", segments.Len()).
			Msg("Restored conversation")
	}
	return nil
}

// place is a position in the request line of a slot: the ticket of the
// request ahead (nil at the front) and our own ticket.
type place struct {
	prev   chan struct{}
	ticket chan struct{}
}

func (s *slot) line() place {
	s.lineMu.Lock()
	defer s.lineMu.Unlock()

	p := place{prev: s.tail, ticket: make(chan struct{})}
	s.tail = p.ticket
	return p
}

// acquire waits for the request ahead to get the queue, then takes the queue
// itself. The returned func releases it.
func (s *slot) acquire(ctx context.Context, p place) (func(), error) {
	if p.prev != nil {
		select {
		case <-p.prev:
		case <-ctx.Done():
			// keep the line moving for whoever is behind us
			go func() {
				<-p.prev
				close(p.ticket)
			}()
			return nil, ctx.Err()
		}
	}

	err := s.queue.Acquire(ctx, 1)
	close(p.ticket)
	if err != nil {
		return nil, err
	}
	return func() { s.queue.Release(1) }, nil
}

// GetHistory returns the versions on the path selected by versionPath (the
// default active path when empty) and the branch metadata of every turn.
func (m *Manager) GetHistory(ctx context.Context, key core.SlotKey, versionPath string) (*core.History, error) {
	p, err := core.ParseVersionPath(versionPath)
	if err != nil {
		return nil, err
	}

	s, err := m.slot(ctx, key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	path, err := s.tree.ResolvePath(p)
	if err != nil {
		return nil, err
	}
	branches, err := s.tree.ListVersions(0)
	if err != nil {
		return nil, err
	}
	return &core.History{Versions: path, Branches: branches}, nil
}

// GetVersions returns the branch metadata of one turn, or of all turns when
// turnID is 0.
func (m *Manager) GetVersions(ctx context.Context, key core.SlotKey, turnID int) ([]core.TurnInfo, error) {
	if turnID < 0 {
		return nil, core.TurnNotFound(turnID)
	}

	s, err := m.slot(ctx, key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.ListVersions(turnID)
}

// Clear forgets the conversation of a slot and returns how many turns it had.
// The session document is closed and kept.
func (m *Manager) Clear(ctx context.Context, key core.SlotKey) (int, error) {
	s, err := m.slot(ctx, key)
	if err != nil {
		return 0, err
	}

	leave, err := s.acquire(ctx, s.line())
	if err != nil {
		return 0, err
	}
	defer leave()

	s.mu.Lock()
	n := s.tree.Len()
	s.tree = tree.New()
	s.segments = archive.NewRegistry()
	s.epoch++

	if err := m.writer.Close(context.WithoutCancel(ctx), key); err != nil {
		storageFault(ctx, key, err)
	}
	s.mu.Unlock()

	log.FromCtx(ctx).Info().Str("slot", key.String()).Int("turns", n).Msg("Conversation cleared")
	return n, nil
}

func storageFault(ctx context.Context, key core.SlotKey, err error) {
	log.FromCtx(ctx).Error().Err(err).
		Str("slot", key.String()).
		Str("error_kind", core.ErrorKind(core.ErrStorageFault)).
		Msg("Session document write failed")
}
