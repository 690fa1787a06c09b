package conversation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/sandevgo/tuskthread/internal/core"
	"github.com/sandevgo/tuskthread/internal/service/archive"
	"github.com/sandevgo/tuskthread/internal/service/reference"
	"github.com/sandevgo/tuskthread/internal/service/tree"
	"github.com/sandevgo/tuskthread/internal/service/window"
	"github.com/sandevgo/tuskthread/pkg/log"
)

type SubmitRequest struct {
	Slot    core.SlotKey
	Action  core.Action
	Message string
	// TurnID is the turn to edit or regenerate.
	TurnID int
	// VersionPath optionally pins the branch the request works on.
	VersionPath string
}

// PendingTurn is the handle of a submitted request.
type PendingTurn struct {
	ID string

	done   chan struct{}
	result *core.SubmitResult
	err    error
}

// Wait blocks until the request is committed or has failed. Giving up the
// wait does not cancel the request.
func (p *PendingTurn) Wait(ctx context.Context) (*core.SubmitResult, error) {
	select {
	case <-p.done:
		return p.result, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *PendingTurn) Done() <-chan struct{} {
	return p.done
}

// plan is everything computed under the slot lock before generation.
type plan struct {
	req    SubmitRequest
	user   string
	parent core.VersionRef
	nextID core.VersionRef
	window core.ContextWindow
	ref    core.Reference
	epoch  uint64
}

// Submit validates req and queues it on its slot. Invalid requests fail here;
// everything else is reported through the returned handle. ctx bounds the
// whole request, generation included.
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (*PendingTurn, error) {
	p, err := validate(req)
	if err != nil {
		return nil, err
	}

	s, err := m.slot(ctx, req.Slot)
	if err != nil {
		return nil, err
	}

	pending := &PendingTurn{ID: uuid.NewString(), done: make(chan struct{})}

	// take the place in line synchronously so requests keep submission order
	spot := s.line()
	go func() {
		defer close(pending.done)
		pending.result, pending.err = m.run(ctx, s, req, p, spot)
	}()
	return pending, nil
}

func validate(req SubmitRequest) (*core.VersionPath, error) {
	if !req.Action.Valid() {
		return nil, fmt.Errorf("%w: unknown action %q", core.ErrInvalidRequest, req.Action)
	}
	if req.Slot.User == "" {
		return nil, fmt.Errorf("%w: slot without user", core.ErrInvalidRequest)
	}

	switch req.Action {
	case core.ActionSend:
		if strings.TrimSpace(req.Message) == "" {
			return nil, fmt.Errorf("%w: empty message", core.ErrInvalidRequest)
		}
	case core.ActionEdit:
		if strings.TrimSpace(req.Message) == "" {
			return nil, fmt.Errorf("%w: empty message", core.ErrInvalidRequest)
		}
		if req.TurnID < 1 {
			return nil, core.TurnNotFound(req.TurnID)
		}
	case core.ActionRegenerate:
		if req.TurnID < 1 {
			return nil, core.TurnNotFound(req.TurnID)
		}
	}

	return core.ParseVersionPath(req.VersionPath)
}

func (m *Manager) run(ctx context.Context, s *slot, req SubmitRequest, p *core.VersionPath, spot place) (*core.SubmitResult, error) {
	logger := log.FromCtx(ctx).With().
		Str("slot", req.Slot.String()).
		Str("action", string(req.Action)).
		Logger()

	leave, err := s.acquire(ctx, spot)
	if err != nil {
		return nil, err
	}
	defer leave()

	pl, err := m.plan(ctx, s, req, p)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("reference", string(pl.ref.Class)).
		Ints("retrieved", pl.ref.Positions).
		Int("hot", len(pl.window.Hot)).
		Int("summaries", len(pl.window.ArchiveSummaries)).
		Msg("Context window assembled")

	genCtx, cancel := context.WithTimeout(ctx, m.timeout)
	reply, err := m.gen.Generate(genCtx, core.Payload{
		Kind:    core.PayloadReply,
		Slot:    req.Slot,
		Message: pl.user,
		Window:  pl.window,
	})
	cancel()
	if err != nil {
		err = core.GenerationError(err)
		logger.Warn().Err(err).Str("error_kind", core.ErrorKind(err)).Msg("Generation failed, nothing committed")
		return nil, err
	}

	result, created, err := m.commit(ctx, s, pl, reply)
	if err != nil {
		if errors.Is(err, core.ErrInvariant) {
			log.Invariant(ctx, err)
		}
		return nil, err
	}

	persistCtx := context.WithoutCancel(ctx)
	if err := m.writer.AppendTurn(persistCtx, req.Slot, result.Version); err != nil {
		storageFault(ctx, req.Slot, err)
	}
	for _, c := range created {
		if err := m.writer.AppendSegment(persistCtx, req.Slot, core.EntryCompaction, archive.Marker(c.segment)); err != nil {
			storageFault(ctx, req.Slot, err)
		}
		m.scheduleRefine(s, pl.epoch, c)
	}

	logger.Info().
		Int("turn_id", result.Version.TurnID).
		Int("version_id", result.Version.ID).
		Int("path_len", len(result.Path)).
		Int("segments", len(created)).
		Msg("Turn committed")

	return result, nil
}

// plan resolves the request against the current tree without changing it.
func (m *Manager) plan(ctx context.Context, s *slot, req SubmitRequest, p *core.VersionPath) (*plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, err := s.tree.ResolvePath(p)
	if err != nil {
		return nil, err
	}

	pl := &plan{req: req, user: req.Message, epoch: s.epoch}
	prior := path

	switch req.Action {
	case core.ActionSend:
		if n := len(path); n > 0 {
			pl.parent = path[n-1].Ref()
		}
		pl.nextID = core.VersionRef{TurnID: s.tree.NextTurnID(), VersionID: 1}

	case core.ActionEdit, core.ActionRegenerate:
		pos, ok := tree.Contains(path, req.TurnID)
		if !ok {
			return nil, core.TurnNotFound(req.TurnID)
		}
		target := path[pos-1]
		prior = path[:pos-1]
		pl.parent = target.Parent

		if req.Action == core.ActionEdit {
			turn, _ := s.tree.Turn(req.TurnID)
			pl.nextID = core.VersionRef{TurnID: req.TurnID, VersionID: len(turn.Versions) + 1}
		} else {
			pl.user = target.UserMessage
			pl.nextID = core.VersionRef{TurnID: s.tree.NextTurnID(), VersionID: 1}
		}
	}

	placements := s.segments.Applicable(prior)
	hotFrom := m.assembler.HotFrom(len(prior), placements)

	summaries := make(map[int]string)
	for _, pc := range placements {
		for pos := pc.Start; pos <= pc.End; pos++ {
			summaries[pos] = pc.Segment.Summary
		}
	}

	pl.ref, err = m.resolver.Resolve(reference.Input{
		Message:   pl.user,
		Path:      prior,
		HotFrom:   hotFrom,
		Summaries: summaries,
	})
	if err != nil {
		return nil, err
	}

	pl.window = m.assembler.Assemble(ctx, window.Input{
		Path:       prior,
		Placements: placements,
		Retrieved:  pl.ref.Positions,
		Source:     m.verbatim(req.Slot),
	})
	return pl, nil
}

func (m *Manager) verbatim(key core.SlotKey) window.Source {
	return window.SourceFunc(func(ctx context.Context, ref core.VersionRef) (core.Version, bool) {
		v, ok, err := m.writer.Lookup(ctx, key, ref)
		if err != nil {
			log.FromCtx(ctx).Warn().Err(err).
				Str("slot", key.String()).
				Str("ref", ref.String()).
				Msg("Verbatim lookup failed, using in-memory copy")
			return core.Version{}, false
		}
		return v, ok
	})
}

type finalized struct {
	segment core.ArchiveSegment
	turns   []core.Version
}

// commit applies a generated reply to the tree and compacts the new path.
// Compaction is planned before the tree changes, so an invariant violation
// aborts the request with nothing committed.
func (m *Manager) commit(ctx context.Context, s *slot, pl *plan, reply string) (*core.SubmitResult, []finalized, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != pl.epoch {
		return nil, nil, fmt.Errorf("%w: slot cleared during generation", core.ErrInvariant)
	}

	next := append(s.tree.PathTo(pl.parent), core.Version{TurnID: pl.nextID.TurnID, ID: pl.nextID.VersionID, Parent: pl.parent})
	segments, err := m.compressor.Plan(s.segments, next, m.assembler.HotFrom(len(next), s.segments.Applicable(next)))
	if err != nil {
		return nil, nil, err
	}

	d := tree.Draft{
		UserMessage:      pl.user,
		AssistantMessage: reply,
		CreatedAt:        m.now(),
		Topics:           reference.Topics(pl.user, reply),
	}

	var committed core.VersionRef
	switch pl.req.Action {
	case core.ActionSend:
		turn, err := s.tree.AppendTurn(pl.parent, d)
		if err != nil {
			return nil, nil, err
		}
		committed = turn.Versions[0].Ref()
	case core.ActionEdit:
		v, err := s.tree.EditTurn(pl.req.TurnID, d)
		if err != nil {
			return nil, nil, err
		}
		committed = v.Ref()
	case core.ActionRegenerate:
		turn, err := s.tree.RegenerateTurn(pl.req.TurnID, d)
		if err != nil {
			return nil, nil, err
		}
		committed = turn.Versions[0].Ref()
	}

	if committed != pl.nextID {
		return nil, nil, fmt.Errorf("%w: committed %s, planned %s", core.ErrInvariant, committed, pl.nextID)
	}

	version, _ := s.tree.Lookup(committed)
	path := s.tree.ActivePath()
	if !samePath(path, next) {
		return nil, nil, fmt.Errorf("%w: active path after %s differs from the planned one", core.ErrInvariant, committed)
	}

	if err := s.segments.AddAll(segments); err != nil {
		return nil, nil, err
	}

	created := make([]finalized, 0, len(segments))
	for _, seg := range segments {
		f := finalized{segment: seg, turns: make([]core.Version, 0, len(seg.Covered))}
		for _, v := range path {
			if slices.Contains(seg.Covered, v.Ref()) {
				f.turns = append(f.turns, v)
			}
		}
		created = append(created, f)
	}

	return &core.SubmitResult{
		Action:  pl.req.Action,
		Turn:    committed.TurnID,
		Version: *version,
		Path:    path,
	}, created, nil
}

func samePath(a, b []core.Version) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Ref() != b[i].Ref() {
			return false
		}
	}
	return true
}

// scheduleRefine upgrades a fast segment in the background. A failed or
// timed out refinement leaves the fast summary in place for good.
func (m *Manager) scheduleRefine(s *slot, epoch uint64, f finalized) {
	m.bg.Add(1)
	go func() {
		defer m.bg.Done()
		ctx := m.bgCtx
		logger := log.FromCtx(ctx).With().
			Str("slot", s.key.String()).
			Str("segment", f.segment.ID).
			Logger()

		summary, err := m.compressor.Refine(ctx, m.gen, s.key, f.segment, f.turns)
		if err != nil {
			logger.Warn().Err(err).Str("error_kind", core.ErrorKind(err)).Msg("Refinement failed, keeping fast digest")
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.epoch != epoch {
			logger.Debug().Msg("Slot cleared, refinement discarded")
			return
		}

		refined, err := s.segments.Refine(f.segment.ID, summary)
		if err != nil {
			logger.Warn().Err(err).Msg("Refinement not applied")
			return
		}

		if err := m.writer.AppendSegment(ctx, s.key, core.EntryRefinement, archive.Marker(refined)); err != nil {
			storageFault(ctx, s.key, err)
		}
		logger.Debug().Int("start_turn", refined.StartTurn).Int("end_turn", refined.EndTurn).Msg("Segment refined")
	}()
}
