package document

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sandevgo/tuskthread/internal/core"
	"github.com/sandevgo/tuskthread/pkg/log"
)

const defaultCooldown = 5 * time.Minute

// Store is the local, authoritative copy of session documents.
type Store interface {
	core.DocumentBackend
	core.DocumentHeads
}

// Repairer is implemented by stores that can set a damaged document aside
// and keep its readable entries.
type Repairer interface {
	Repair(ctx context.Context, key string) ([]core.DocumentEntry, error)
}

type document struct {
	mu         sync.Mutex
	info       core.DocumentInfo
	seq        int64
	lastTurnAt time.Time
	closed     bool
	loaded     bool
	// damaged is set when the head document lost entries; the next write
	// continues in a fresh document linked to it.
	damaged    bool
}

// Writer mirrors every turn, version and compaction event of a slot into an
// append-only session document. A document covers one timeframe: a gap longer
// than the cooldown between two turns starts a new document that links back
// to its predecessor.
type Writer struct {
	local    Store
	remote   core.DocumentBackend
	queue    *Queue
	cooldown time.Duration
	now      func() time.Time

	mu   sync.Mutex
	docs map[string]*document

	// keys of documents found damaged since start
	damaged sync.Map
}

// NewWriter writes to local and flushes to remote on a best-effort basis.
// remote may be nil. Failed remote writes are pushed to queue.
func NewWriter(cfg core.DocumentConfig, local Store, remote core.DocumentBackend, queue *Queue) *Writer {
	cooldown := cfg.GetCooldown()
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	if queue == nil {
		queue = NewQueue()
	}
	return &Writer{
		local:    local,
		remote:   remote,
		queue:    queue,
		cooldown: cooldown,
		now:      func() time.Time { return time.Now().UTC() },
		docs:     make(map[string]*document),
	}
}

// WithClock replaces the clock used for entries without their own timestamp.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

func (w *Writer) Queue() *Queue {
	return w.queue
}

func (w *Writer) slot(slotID string) *document {
	w.mu.Lock()
	defer w.mu.Unlock()

	d, ok := w.docs[slotID]
	if !ok {
		d = &document{info: core.DocumentInfo{SlotID: slotID}}
		w.docs[slotID] = d
	}
	return d
}

// Current returns the open document of a slot.
func (w *Writer) Current(ctx context.Context, slot core.SlotKey) (core.DocumentInfo, bool, error) {
	d := w.slot(slot.ID())
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := w.load(ctx, d); err != nil {
		return core.DocumentInfo{}, false, err
	}
	if d.info.ID == "" || d.closed {
		return core.DocumentInfo{}, false, nil
	}
	return d.info, true, nil
}

// AppendTurn records a committed version.
func (w *Writer) AppendTurn(ctx context.Context, slot core.SlotKey, v core.Version) error {
	d := w.slot(slot.ID())
	d.mu.Lock()
	defer d.mu.Unlock()

	at := v.CreatedAt
	if at.IsZero() {
		at = w.now()
	}

	if err := w.load(ctx, d); err != nil {
		return err
	}

	switch {
	case d.info.ID == "" || d.closed:
		if err := w.open(ctx, d, "", at); err != nil {
			return err
		}
	case d.damaged, !d.lastTurnAt.IsZero() && at.Sub(d.lastTurnAt) > w.cooldown:
		if err := w.open(ctx, d, d.info.ID, at); err != nil {
			return err
		}
	}

	parent := v.Parent
	entry := core.DocumentEntry{
		Kind:             core.EntryTurn,
		TurnID:           v.TurnID,
		VersionID:        v.ID,
		Origin:           v.Origin,
		Timestamp:        at,
		Parent:           &parent,
		UserMessage:      v.UserMessage,
		AssistantMessage: v.AssistantMessage,
		Topics:           v.Topics,
	}
	if err := w.write(ctx, d, entry); err != nil {
		return err
	}
	d.lastTurnAt = at
	return nil
}

// AppendSegment records a compaction or refinement marker.
func (w *Writer) AppendSegment(ctx context.Context, slot core.SlotKey, kind core.EntryKind, marker *core.SegmentMarker) error {
	if kind != core.EntryCompaction && kind != core.EntryRefinement {
		return fmt.Errorf("%w: %s is not a segment entry", core.ErrInvalidRequest, kind)
	}

	d := w.slot(slot.ID())
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := w.load(ctx, d); err != nil {
		return err
	}
	switch {
	case d.info.ID == "" || d.closed:
		if err := w.open(ctx, d, "", w.now()); err != nil {
			return err
		}
	case d.damaged:
		if err := w.open(ctx, d, d.info.ID, w.now()); err != nil {
			return err
		}
	}

	entry := core.DocumentEntry{
		Kind:      kind,
		TurnID:    marker.EndTurn,
		Timestamp: w.now(),
		Segment:   marker,
	}
	if n := len(marker.Covered); n > 0 {
		entry.VersionID = marker.Covered[n-1].VersionID
	}
	return w.write(ctx, d, entry)
}

// Close ends the open document of a slot. The document is retained and the
// next turn of the slot starts a fresh chain.
func (w *Writer) Close(ctx context.Context, slot core.SlotKey) error {
	d := w.slot(slot.ID())
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := w.load(ctx, d); err != nil {
		return err
	}
	if d.info.ID == "" || d.closed {
		return nil
	}

	if err := w.write(ctx, d, core.DocumentEntry{Kind: core.EntryClose, Timestamp: w.now()}); err != nil {
		return err
	}
	d.closed = true
	d.lastTurnAt = time.Time{}
	return nil
}

func (w *Writer) open(ctx context.Context, d *document, predecessor string, at time.Time) error {
	d.info = core.DocumentInfo{
		ID:          uuid.NewString(),
		SlotID:      d.info.SlotID,
		Predecessor: predecessor,
		OpenedAt:    at,
	}
	d.seq = 0
	d.closed = false
	d.damaged = false
	d.lastTurnAt = time.Time{}

	if err := w.write(ctx, d, core.DocumentEntry{Kind: core.EntryOpen, Timestamp: at, Predecessor: predecessor}); err != nil {
		return err
	}

	if err := w.local.SetHead(ctx, d.info.SlotID, d.info.ID); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStorageFault, err)
	}
	if heads, ok := w.remote.(core.DocumentHeads); ok {
		if err := heads.SetHead(ctx, d.info.SlotID, d.info.ID); err != nil {
			log.FromCtx(ctx).Warn().Err(err).
				Str("slot", d.info.SlotID).
				Str("error_kind", core.ErrorKind(core.ErrStorageFault)).
				Msg("Failed to move remote head")
		}
	}

	log.FromCtx(ctx).Debug().
		Str("slot", d.info.SlotID).
		Str("document", d.info.ID).
		Str("predecessor", predecessor).
		Msg("Opened session document")
	return nil
}

// write appends entry locally, then flushes it to the remote backend. A local
// failure is a StorageFault for the caller; a remote failure only queues.
func (w *Writer) write(ctx context.Context, d *document, entry core.DocumentEntry) error {
	d.seq++
	entry.Seq = d.seq
	entry.DocumentID = d.info.ID
	key := d.info.Key()

	var localErr error
	if err := w.local.Append(ctx, key, entry); err != nil {
		localErr = fmt.Errorf("%w: %v", core.ErrStorageFault, err)
	}

	if w.remote != nil {
		if err := w.remote.Append(ctx, key, entry); err != nil {
			log.FromCtx(ctx).Warn().Err(err).
				Str("document", key).
				Int64("seq", entry.Seq).
				Str("error_kind", core.ErrorKind(core.ErrStorageFault)).
				Msg("Remote append failed, queued for sync")
			w.queue.Push(key, entry)
		}
	}

	return localErr
}

// load restores the document state of a slot from the local HEAD pointer.
func (w *Writer) load(ctx context.Context, d *document) error {
	if d.loaded {
		return nil
	}

	head, err := w.local.Head(ctx, d.info.SlotID)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStorageFault, err)
	}
	d.loaded = true
	if head == "" {
		return nil
	}

	info := core.DocumentInfo{ID: head, SlotID: d.info.SlotID}
	entries, err := w.read(ctx, info.Key())
	if err != nil {
		d.loaded = false
		return fmt.Errorf("%w: %v", core.ErrStorageFault, err)
	}

	d.info = info
	_, d.damaged = w.damaged.Load(info.Key())
	for _, e := range entries {
		d.seq = max(d.seq, e.Seq)
		switch e.Kind {
		case core.EntryOpen:
			d.info.Predecessor = e.Predecessor
			d.info.OpenedAt = e.Timestamp
		case core.EntryTurn:
			d.lastTurnAt = e.Timestamp
		case core.EntryClose:
			d.closed = true
		}
	}
	return nil
}

// read returns the entries of a local document. A damaged document is
// repaired when the store supports it, its readable entries are used either
// way and its key is remembered so the slot moves on to a fresh document.
func (w *Writer) read(ctx context.Context, key string) ([]core.DocumentEntry, error) {
	entries, err := w.local.Read(ctx, key)
	if !errors.Is(err, core.ErrDocumentCorrupt) {
		return entries, err
	}
	w.damaged.Store(key, struct{}{})

	logger := log.FromCtx(ctx).With().Str("document", key).Logger()
	if r, ok := w.local.(Repairer); ok {
		kept, rerr := r.Repair(ctx, key)
		if rerr != nil {
			logger.Warn().Err(rerr).Msg("Failed to set damaged document aside")
		} else {
			entries = kept
		}
	}

	logger.Error().Err(err).
		Str("error_kind", core.ErrorKind(err)).
		Int("kept", len(entries)).
		Msg("Session document damaged, continuing with readable entries")
	return entries, nil
}

// chain returns the documents of the live conversation of a slot, newest
// first. A closed head means the slot was cleared and yields nothing.
func (w *Writer) chain(ctx context.Context, slotID string) ([][]core.DocumentEntry, error) {
	head, err := w.local.Head(ctx, slotID)
	if err != nil {
		return nil, err
	}

	var docs [][]core.DocumentEntry
	seen := make(map[string]bool)
	for id := head; id != "" && !seen[id]; {
		seen[id] = true

		entries, err := w.read(ctx, core.DocumentInfo{ID: id, SlotID: slotID}.Key())
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 && len(entries) > 0 && entries[len(entries)-1].Kind == core.EntryClose {
			return nil, nil
		}
		docs = append(docs, entries)

		id = ""
		if len(entries) > 0 && entries[0].Kind == core.EntryOpen {
			id = entries[0].Predecessor
		}
	}
	return docs, nil
}

// Load returns every entry of the live conversation of a slot, oldest
// document first.
func (w *Writer) Load(ctx context.Context, slot core.SlotKey) ([]core.DocumentEntry, error) {
	docs, err := w.chain(ctx, slot.ID())
	if err != nil {
		return nil, err
	}

	var entries []core.DocumentEntry
	for i := len(docs) - 1; i >= 0; i-- {
		entries = append(entries, docs[i]...)
	}
	return entries, nil
}

// Lookup finds the verbatim copy of a version, walking the document chain
// backwards from the newest document.
func (w *Writer) Lookup(ctx context.Context, slot core.SlotKey, ref core.VersionRef) (core.Version, bool, error) {
	docs, err := w.chain(ctx, slot.ID())
	if err != nil {
		if errors.Is(err, core.ErrDocumentNotFound) {
			return core.Version{}, false, nil
		}
		return core.Version{}, false, err
	}

	for _, entries := range docs {
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			if e.Kind == core.EntryTurn && e.Ref() == ref {
				return VersionOf(e), true, nil
			}
		}
	}
	return core.Version{}, false, nil
}

// VersionOf converts a turn entry back into the version it recorded.
func VersionOf(e core.DocumentEntry) core.Version {
	v := core.Version{
		ID:               e.VersionID,
		TurnID:           e.TurnID,
		UserMessage:      e.UserMessage,
		AssistantMessage: e.AssistantMessage,
		CreatedAt:        e.Timestamp,
		Origin:           e.Origin,
		Topics:           append([]string(nil), e.Topics...),
	}
	if e.Parent != nil {
		v.Parent = *e.Parent
	}
	return v
}
