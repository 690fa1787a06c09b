package conversation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sandevgo/tuskthread/internal/core"
	"github.com/sandevgo/tuskthread/internal/service/archive"
	"github.com/sandevgo/tuskthread/internal/service/document"
	"github.com/sandevgo/tuskthread/internal/service/reference"
	"github.com/sandevgo/tuskthread/internal/service/window"
	"github.com/sandevgo/tuskthread/internal/storage/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	hot        int
	batch      int
	genTimeout time.Duration
}

func (c testConfig) GetHotWindowSize() int               { return c.hot }
func (c testConfig) GetArchiveBatchSize() int            { return c.batch }
func (c testConfig) GetDigestMaxTokens() int             { return 20 }
func (c testConfig) GetCompactionTimeout() time.Duration { return time.Second }
func (c testConfig) GetCompactionConcurrency() int       { return 2 }
func (c testConfig) GetTemporalTurns() int               { return 3 }
func (c testConfig) GetKeywordTurns() int                { return 3 }
func (c testConfig) GetCooldown() time.Duration          { return 5 * time.Minute }
func (c testConfig) GetSyncInterval() time.Duration      { return time.Second }
func (c testConfig) GetGenerationTimeout() time.Duration { return c.genTimeout }

var (
	base   = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	slotS  = core.SlotKey{User: "alice", Question: "q-1", Answer: "a-1"}
	defCfg = testConfig{hot: 8, batch: 10, genTimeout: 2 * time.Second}
)

// recorder is a generator that answers every message and remembers payloads.
type recorder struct {
	mu       sync.Mutex
	payloads []core.Payload
	reply    func(ctx context.Context, p core.Payload) (string, error)
}

func (r *recorder) Generate(ctx context.Context, p core.Payload) (string, error) {
	r.mu.Lock()
	r.payloads = append(r.payloads, p)
	r.mu.Unlock()

	if r.reply != nil {
		return r.reply(ctx, p)
	}
	if p.Kind == core.PayloadDigest {
		return "rich digest", nil
	}
	return "answer to " + p.Message, nil
}

func (r *recorder) lastReply() core.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.payloads) - 1; i >= 0; i-- {
		if r.payloads[i].Kind == core.PayloadReply {
			return r.payloads[i]
		}
	}
	return core.Payload{}
}

type harness struct {
	m      *Manager
	writer *document.Writer
	local  document.Store
}

func newHarness(t *testing.T, cfg testConfig, gen core.Generator, local document.Store) *harness {
	t.Helper()
	if local == nil {
		store, err := file.NewDocumentStore(t.TempDir())
		require.NoError(t, err)
		local = store
	}

	var tick atomic.Int64
	clock := func() time.Time { return base.Add(time.Duration(tick.Add(1)) * time.Second) }

	writer := document.NewWriter(cfg, local, nil, nil).WithClock(clock)
	compressor := archive.NewCompressor(cfg, nil)
	m := NewManager(context.Background(), cfg, gen, writer,
		reference.NewResolver(cfg),
		window.NewAssembler(cfg, compressor),
		compressor,
	).WithClock(clock)

	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return &harness{m: m, writer: writer, local: local}
}

func (h *harness) submit(t *testing.T, req SubmitRequest) (*core.SubmitResult, error) {
	t.Helper()
	if req.Slot.User == "" {
		req.Slot = slotS
	}
	pending, err := h.m.Submit(context.Background(), req)
	if err != nil {
		return nil, err
	}
	return pending.Wait(context.Background())
}

func (h *harness) send(t *testing.T, msg string) *core.SubmitResult {
	t.Helper()
	res, err := h.submit(t, SubmitRequest{Action: core.ActionSend, Message: msg})
	require.NoError(t, err)
	return res
}

func refs(path []core.Version) []string {
	out := make([]string, len(path))
	for i, v := range path {
		out[i] = v.Ref().String()
	}
	return out
}

func TestScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defCfg, &recorder{}, nil)

	first := h.send(t, "What is X?")
	assert.Equal(t, "1:1", first.Version.Ref().String())
	assert.Equal(t, "answer to What is X?", first.Version.AssistantMessage)

	second := h.send(t, "Tell me more")
	assert.Equal(t, "2:1", second.Version.Ref().String())

	edited, err := h.submit(t, SubmitRequest{Action: core.ActionEdit, TurnID: 1, Message: "What is X in short?"})
	require.NoError(t, err)
	assert.Equal(t, "1:2", edited.Version.Ref().String())
	assert.Equal(t, core.OriginEdit, edited.Version.Origin)
	assert.Equal(t, []string{"1:2"}, refs(edited.Path))

	versions, err := h.m.GetVersions(ctx, slotS, 1)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	require.Len(t, versions[0].Versions, 2)
	assert.Equal(t, []int{2}, versions[0].Versions[0].Children)
	assert.True(t, versions[0].Versions[0].IsOriginal)
	assert.True(t, versions[0].Versions[1].OnActivePath)

	regen, err := h.submit(t, SubmitRequest{Action: core.ActionRegenerate, TurnID: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, regen.Turn)
	assert.Equal(t, "What is X in short?", regen.Version.UserMessage)
	assert.Equal(t, core.OriginRegenerate, regen.Version.Origin)

	history, err := h.m.GetHistory(ctx, slotS, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"3:1"}, refs(history.Versions))
	assert.Len(t, history.Branches, 3)

	pinned, err := h.m.GetHistory(ctx, slotS, "1:2")
	require.NoError(t, err)
	assert.Equal(t, []string{"1:2", "2:1"}, refs(pinned.Versions))
}

func TestEdit_TurnOffActivePath(t *testing.T) {
	h := newHarness(t, defCfg, &recorder{}, nil)
	h.send(t, "one")
	h.send(t, "two")
	h.send(t, "three")

	_, err := h.submit(t, SubmitRequest{Action: core.ActionEdit, TurnID: 2, Message: "two, again"})
	require.NoError(t, err)

	_, err = h.submit(t, SubmitRequest{Action: core.ActionEdit, TurnID: 3, Message: "three, again"})
	assert.ErrorIs(t, err, core.ErrTurnNotFound)

	res, err := h.submit(t, SubmitRequest{Action: core.ActionEdit, TurnID: 3, Message: "three, again", VersionPath: "2:1"})
	require.NoError(t, err)
	assert.Equal(t, "3:2", res.Version.Ref().String())
	assert.Equal(t, []string{"1:1", "2:1", "3:2"}, refs(res.Path))
}

func TestSend_ContinuesPinnedBranch(t *testing.T) {
	h := newHarness(t, defCfg, &recorder{}, nil)
	h.send(t, "one")
	h.send(t, "two")
	_, err := h.submit(t, SubmitRequest{Action: core.ActionEdit, TurnID: 2, Message: "two b"})
	require.NoError(t, err)

	res, err := h.submit(t, SubmitRequest{Action: core.ActionSend, Message: "three", VersionPath: "2:1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1:1", "2:1", "3:1"}, refs(res.Path))
	assert.Equal(t, core.VersionRef{TurnID: 2, VersionID: 1}, res.Version.Parent)
}

func TestSubmit_Validation(t *testing.T) {
	h := newHarness(t, defCfg, &recorder{}, nil)
	h.send(t, "hello")

	tests := []struct {
		name string
		req  SubmitRequest
		want error
	}{
		{name: "unknown action", req: SubmitRequest{Action: "delete", Message: "x"}, want: core.ErrInvalidRequest},
		{name: "empty message", req: SubmitRequest{Action: core.ActionSend, Message: "  "}, want: core.ErrInvalidRequest},
		{name: "edit without turn", req: SubmitRequest{Action: core.ActionEdit, Message: "x"}, want: core.ErrTurnNotFound},
		{name: "malformed path", req: SubmitRequest{Action: core.ActionSend, Message: "x", VersionPath: "1-1"}, want: core.ErrInvalidVersionPath},
		{name: "path out of range", req: SubmitRequest{Action: core.ActionSend, Message: "x", VersionPath: "4:1"}, want: core.ErrInvalidVersionPath},
		{name: "missing turn", req: SubmitRequest{Action: core.ActionRegenerate, TurnID: 5}, want: core.ErrTurnNotFound},
		{name: "index beyond path", req: SubmitRequest{Action: core.ActionSend, Message: "what was turn #7 about?"}, want: core.ErrTurnNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.submit(t, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	history, err := h.m.GetHistory(context.Background(), slotS, "")
	require.NoError(t, err)
	assert.Len(t, history.Versions, 1)
}

func TestSubmit_NumbersInOrdinaryMessagesCommit(t *testing.T) {
	gen := &recorder{}
	h := newHarness(t, defCfg, gen, nil)

	messages := []string{
		"Here is the first question I have for you",
		"Can you turn 2 cups of flour into grams?",
		"I keep getting error message 500 from the server",
		"My son will turn 30 next week, gift ideas?",
	}
	for i, msg := range messages {
		res := h.send(t, msg)
		assert.Equal(t, i+1, res.Turn)
		assert.Empty(t, gen.lastReply().Window.Retrieved, msg)
	}

	history, err := h.m.GetHistory(context.Background(), slotS, "")
	require.NoError(t, err)
	assert.Len(t, history.Versions, len(messages))
}

func TestSubmit_ConcurrentOnOneSlot(t *testing.T) {
	h := newHarness(t, defCfg, &recorder{}, nil)

	const n = 12
	var wg sync.WaitGroup
	ids := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := h.submit(t, SubmitRequest{Action: core.ActionSend, Message: fmt.Sprintf("message %d", i)})
			if assert.NoError(t, err) {
				ids <- res.Turn
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[int]bool)
	for id := range ids {
		assert.False(t, seen[id], "turn id %d committed twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)

	history, err := h.m.GetHistory(context.Background(), slotS, "")
	require.NoError(t, err)
	require.Len(t, history.Versions, n)
	for i, v := range history.Versions {
		assert.Equal(t, i+1, v.TurnID)
		if i > 0 {
			assert.Equal(t, history.Versions[i-1].Ref(), v.Parent)
		}
	}
}

func TestSubmit_KeepsSubmissionOrder(t *testing.T) {
	h := newHarness(t, defCfg, &recorder{}, nil)

	var pending []*PendingTurn
	for i := 1; i <= 5; i++ {
		p, err := h.m.Submit(context.Background(), SubmitRequest{Slot: slotS, Action: core.ActionSend, Message: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
		pending = append(pending, p)
	}

	for i, p := range pending {
		res, err := p.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i+1, res.Turn)
		assert.Equal(t, fmt.Sprintf("m%d", i+1), res.Version.UserMessage)
	}
}

func TestSubmit_GenerationTimeoutCommitsNothing(t *testing.T) {
	ctx := context.Background()

	var attempts atomic.Int32
	gen := &recorder{reply: func(ctx context.Context, p core.Payload) (string, error) {
		if p.Message == "slow" && attempts.Add(1) == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "ok", nil
	}}
	h := newHarness(t, testConfig{hot: 8, batch: 10, genTimeout: 30 * time.Millisecond}, gen, nil)

	h.send(t, "one")
	h.send(t, "two")

	before, err := h.m.GetHistory(ctx, slotS, "")
	require.NoError(t, err)
	docsBefore, err := h.writer.Load(ctx, slotS)
	require.NoError(t, err)

	_, err = h.submit(t, SubmitRequest{Action: core.ActionSend, Message: "slow"})
	require.ErrorIs(t, err, core.ErrGenerationTimeout)
	assert.Equal(t, "GenerationTimeout", core.ErrorKind(err))

	after, err := h.m.GetHistory(ctx, slotS, "")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	docsAfter, err := h.writer.Load(ctx, slotS)
	require.NoError(t, err)
	assert.Equal(t, docsBefore, docsAfter)

	res := h.send(t, "slow")
	assert.Equal(t, 3, res.Turn)
	assert.Len(t, res.Path, 3)

	branches, err := h.m.GetVersions(ctx, slotS, 0)
	require.NoError(t, err)
	assert.Len(t, branches, 3)
}

func TestSubmit_GenerationFailure(t *testing.T) {
	gen := &recorder{reply: func(ctx context.Context, p core.Payload) (string, error) {
		return "", errors.New("model overloaded")
	}}
	h := newHarness(t, defCfg, gen, nil)

	_, err := h.submit(t, SubmitRequest{Action: core.ActionSend, Message: "hello"})
	assert.ErrorIs(t, err, core.ErrGenerationFailure)

	history, err := h.m.GetHistory(context.Background(), slotS, "")
	require.NoError(t, err)
	assert.Empty(t, history.Versions)
}

func TestSubmit_CallerCancellation(t *testing.T) {
	started := make(chan struct{})
	gen := &recorder{reply: func(ctx context.Context, p core.Payload) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	}}
	h := newHarness(t, defCfg, gen, nil)

	ctx, cancel := context.WithCancel(context.Background())
	pending, err := h.m.Submit(ctx, SubmitRequest{Slot: slotS, Action: core.ActionSend, Message: "hello"})
	require.NoError(t, err)

	<-started
	cancel()

	_, err = pending.Wait(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "Cancelled", core.ErrorKind(err))
}

func TestReadsDoNotWaitForGeneration(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gen := &recorder{reply: func(ctx context.Context, p core.Payload) (string, error) {
		if p.Message == "block" {
			close(started)
			<-release
		}
		return "ok", nil
	}}
	h := newHarness(t, defCfg, gen, nil)
	h.send(t, "first")

	pending, err := h.m.Submit(context.Background(), SubmitRequest{Slot: slotS, Action: core.ActionSend, Message: "block"})
	require.NoError(t, err)
	<-started

	read := make(chan *core.History, 1)
	go func() {
		history, err := h.m.GetHistory(context.Background(), slotS, "")
		assert.NoError(t, err)
		read <- history
	}()

	select {
	case history := <-read:
		assert.Len(t, history.Versions, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("history read blocked behind generation")
	}

	close(release)
	_, err = pending.Wait(context.Background())
	require.NoError(t, err)
}

func TestRetrieval_EarlyTopicComesBackVerbatim(t *testing.T) {
	gen := &recorder{}
	h := newHarness(t, defCfg, gen, nil)

	h.send(t, "How does photosynthesis work?")
	for i := 1; i <= 20; i++ {
		h.send(t, fmt.Sprintf("Tell me about harbour number %d", i))
	}
	h.m.Idle()

	h.send(t, "what did you say about photosynthesis at the beginning")

	payload := gen.lastReply()
	require.NotEmpty(t, payload.Window.ArchiveSummaries)
	assert.NotEmpty(t, payload.Window.ArchiveSummaries[0].SegmentID)

	require.NotEmpty(t, payload.Window.Retrieved)
	first := payload.Window.Retrieved[0]
	assert.Equal(t, 1, first.Position)
	assert.Equal(t, "How does photosynthesis work?", first.Version.UserMessage)
	assert.Equal(t, "answer to How does photosynthesis work?", first.Version.AssistantMessage)

	assert.LessOrEqual(t, len(payload.Window.Hot), defCfg.hot)
	for _, v := range payload.Window.Hot {
		assert.NotEqual(t, 1, v.TurnID)
	}
}

func TestCompaction_RefinesInBackground(t *testing.T) {
	ctx := context.Background()
	gen := &recorder{}
	h := newHarness(t, testConfig{hot: 2, batch: 3, genTimeout: time.Second}, gen, nil)

	for i := 1; i <= 6; i++ {
		h.send(t, fmt.Sprintf("harbour %d", i))
	}
	h.m.Idle()

	entries, err := h.writer.Load(ctx, slotS)
	require.NoError(t, err)

	var compactions, refinements []core.DocumentEntry
	for _, e := range entries {
		switch e.Kind {
		case core.EntryCompaction:
			compactions = append(compactions, e)
		case core.EntryRefinement:
			refinements = append(refinements, e)
		}
	}
	require.Len(t, compactions, 1)
	require.Len(t, refinements, 1)
	assert.Equal(t, core.TierFast, compactions[0].Segment.Tier)
	assert.Equal(t, core.TierRich, refinements[0].Segment.Tier)
	assert.Equal(t, compactions[0].Segment.ID, refinements[0].Segment.ID)
	assert.Equal(t, compactions[0].Segment.Covered, refinements[0].Segment.Covered)
	assert.True(t, strings.HasPrefix(compactions[0].Segment.Summary, "[turn 1]"))

	s := h.m.slots[slotS.ID()]
	s.mu.RLock()
	segs := s.segments.Segments()
	s.mu.RUnlock()
	require.Len(t, segs, 1)
	// finalized on the manager clock
	assert.True(t, segs[0].FinalizedAt.After(base))
	assert.True(t, segs[0].FinalizedAt.Before(base.Add(time.Hour)))

	h.send(t, "harbour 7")
	payload := gen.lastReply()
	require.NotEmpty(t, payload.Window.ArchiveSummaries)
	assert.Equal(t, "rich digest", payload.Window.ArchiveSummaries[0].Summary)
	assert.Equal(t, 1, payload.Window.ArchiveSummaries[0].StartTurn)
	assert.Equal(t, 3, payload.Window.ArchiveSummaries[0].EndTurn)
}

func TestCompaction_FailedRefinementKeepsFastDigest(t *testing.T) {
	ctx := context.Background()
	gen := &recorder{reply: func(ctx context.Context, p core.Payload) (string, error) {
		if p.Kind == core.PayloadDigest {
			return "", errors.New("digest skill unavailable")
		}
		return "ok", nil
	}}
	h := newHarness(t, testConfig{hot: 2, batch: 3, genTimeout: time.Second}, gen, nil)

	for i := 1; i <= 6; i++ {
		h.send(t, fmt.Sprintf("harbour %d", i))
	}
	h.m.Idle()

	entries, err := h.writer.Load(ctx, slotS)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, core.EntryRefinement, e.Kind)
	}

	h.send(t, "harbour 7")
	payload := gen.lastReply()
	require.NotEmpty(t, payload.Window.ArchiveSummaries)
	assert.True(t, strings.HasPrefix(payload.Window.ArchiveSummaries[0].Summary, "[turn 1]"))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defCfg, &recorder{}, nil)
	h.send(t, "one")
	h.send(t, "two")

	n, err := h.m.Clear(ctx, slotS)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	history, err := h.m.GetHistory(ctx, slotS, "")
	require.NoError(t, err)
	assert.Empty(t, history.Versions)

	res := h.send(t, "fresh start")
	assert.Equal(t, 1, res.Turn)

	// another process over the same documents only sees the new conversation
	other := newHarness(t, defCfg, &recorder{}, h.local)
	restored, err := other.m.GetHistory(ctx, slotS, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1:1"}, refs(restored.Versions))
	assert.Equal(t, "fresh start", restored.Versions[0].UserMessage)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testConfig{hot: 2, batch: 3, genTimeout: time.Second}, &recorder{}, nil)
	for i := 1; i <= 6; i++ {
		h.send(t, fmt.Sprintf("harbour %d", i))
	}
	_, err := h.submit(t, SubmitRequest{Action: core.ActionEdit, TurnID: 6, Message: "harbour 6, reworded"})
	require.NoError(t, err)
	h.m.Idle()

	want, err := h.m.GetHistory(ctx, slotS, "")
	require.NoError(t, err)

	other := newHarness(t, testConfig{hot: 2, batch: 3, genTimeout: time.Second}, &recorder{}, h.local)
	require.NoError(t, other.m.Restore(ctx, slotS))

	got, err := other.m.GetHistory(ctx, slotS, "")
	require.NoError(t, err)
	assert.Equal(t, refs(want.Versions), refs(got.Versions))
	require.Len(t, got.Branches, len(want.Branches))
	for i := range want.Branches {
		assert.Equal(t, want.Branches[i].ActiveVersion, got.Branches[i].ActiveVersion)
		assert.Len(t, got.Branches[i].Versions, len(want.Branches[i].Versions))
	}

	s, err := other.m.slot(ctx, slotS)
	require.NoError(t, err)
	require.Equal(t, 1, s.segments.Len())
	assert.True(t, s.segments.Segments()[0].Refined)

	res := other.send(t, "harbour 7")
	assert.Equal(t, 7, res.Turn)
}

// brokenStore fails every write, as a full disk would.
type brokenStore struct{}

func (brokenStore) Append(ctx context.Context, key string, entry core.DocumentEntry) error {
	return errors.New("no space left on device")
}

func (brokenStore) Read(ctx context.Context, key string) ([]core.DocumentEntry, error) {
	return nil, core.ErrDocumentNotFound
}

func (brokenStore) Head(ctx context.Context, slotID string) (string, error) {
	return "", nil
}

func (brokenStore) SetHead(ctx context.Context, slotID, documentID string) error {
	return errors.New("no space left on device")
}

func TestRestore_DamagedDocument(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	local, err := file.NewDocumentStore(root)
	require.NoError(t, err)

	h := newHarness(t, defCfg, &recorder{}, local)
	h.send(t, "one")
	h.send(t, "two")
	doc, ok, err := h.writer.Current(ctx, slotS)
	require.NoError(t, err)
	require.True(t, ok)

	f, err := os.OpenFile(filepath.Join(root, doc.Key()+".yaml"), os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("---\nseq: 9\nkind: turn\nassistant_message: \"trunc")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	restarted := newHarness(t, defCfg, &recorder{}, local)
	history, err := restarted.m.GetHistory(ctx, slotS, "")
	require.NoError(t, err)
	assert.Len(t, history.Versions, 2)

	res := restarted.send(t, "three")
	assert.Equal(t, 3, res.Turn)
	assert.Len(t, res.Path, 3)
}

func TestStorageFaultIsInvisible(t *testing.T) {
	h := newHarness(t, defCfg, &recorder{}, brokenStore{})

	first := h.send(t, "one")
	second := h.send(t, "two")
	assert.Equal(t, 1, first.Turn)
	assert.Equal(t, 2, second.Turn)

	history, err := h.m.GetHistory(context.Background(), slotS, "")
	require.NoError(t, err)
	assert.Len(t, history.Versions, 2)
}

func TestSlotsAreIndependent(t *testing.T) {
	h := newHarness(t, defCfg, &recorder{}, nil)
	bob := core.SlotKey{User: "bob", Question: "q-1", Answer: "a-1"}

	h.send(t, "alice one")
	res, err := h.submit(t, SubmitRequest{Slot: bob, Action: core.ActionSend, Message: "bob one"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Turn)

	history, err := h.m.GetHistory(context.Background(), slotS, "")
	require.NoError(t, err)
	assert.Len(t, history.Versions, 1)
}
