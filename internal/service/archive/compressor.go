package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/sandevgo/tuskthread/internal/core"
	"github.com/sandevgo/tuskthread/pkg/conv"
	"github.com/sandevgo/tuskthread/pkg/tokens"
)

const (
	defaultBatchSize   = 10
	defaultDigestLimit = 40
	defaultTimeout     = time.Minute
	defaultConcurrency = 2
)

// Compressor finalizes cold turns into fast segments and upgrades them to
// rich digests in the background.
type Compressor struct {
	batch       int
	digestLimit int
	timeout     time.Duration
	counter     tokens.Counter
	sem         *semaphore.Weighted
	now         func() time.Time
}

func NewCompressor(cfg core.ArchiveConfig, counter tokens.Counter) *Compressor {
	c := &Compressor{
		batch:       cfg.GetArchiveBatchSize(),
		digestLimit: cfg.GetDigestMaxTokens(),
		timeout:     cfg.GetCompactionTimeout(),
		counter:     counter,
	}
	if c.batch <= 0 {
		c.batch = defaultBatchSize
	}
	if c.digestLimit <= 0 {
		c.digestLimit = defaultDigestLimit
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.counter == nil {
		c.counter = tokens.Words{}
	}

	concurrency := cfg.GetCompactionConcurrency()
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	c.sem = semaphore.NewWeighted(int64(concurrency))
	return c
}

// WithClock replaces the clock used for finalization timestamps.
func (c *Compressor) WithClock(now func() time.Time) *Compressor {
	c.now = now
	return c
}

// Line renders the fast digest of one turn:
//
//	[turn N] topics: a, b | Q: ... | A: ... (kind)
func (c *Compressor) Line(position int, v core.Version) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[turn %d]", position)
	if len(v.Topics) > 0 {
		sb.WriteString(" topics: ")
		sb.WriteString(strings.Join(v.Topics, ", "))
		sb.WriteString(" |")
	}
	sb.WriteString(" Q: ")
	sb.WriteString(c.counter.Truncate(conv.PlainText(v.UserMessage), c.digestLimit))
	sb.WriteString(" | A: ")
	sb.WriteString(c.counter.Truncate(conv.PlainText(v.AssistantMessage), c.digestLimit))
	fmt.Fprintf(&sb, " (%s)", conv.ContentKind(v.AssistantMessage))
	return sb.String()
}

// Compact finalizes the oldest unarchived cold turns of path in batches
// while the unarchived run is longer than one batch. Cold turns are those
// before hotFrom. New segments are added to reg and returned in order; on
// error reg is left as it was.
func (c *Compressor) Compact(reg *Registry, path []core.Version, hotFrom int) ([]core.ArchiveSegment, error) {
	planned, err := c.Plan(reg, path, hotFrom)
	if err != nil {
		return nil, err
	}
	if err := reg.AddAll(planned); err != nil {
		return nil, err
	}
	return planned, nil
}

// Plan returns the segments Compact would finalize without touching reg.
func (c *Compressor) Plan(reg *Registry, path []core.Version, hotFrom int) ([]core.ArchiveSegment, error) {
	if hotFrom > len(path)+1 {
		hotFrom = len(path) + 1
	}

	var planned []core.ArchiveSegment
	for start := ArchivedEnd(reg.Applicable(path)) + 1; hotFrom-start > c.batch; start += c.batch {
		seg := c.fastSegment(path, start, start+c.batch-1)
		if err := reg.check(seg); err != nil {
			return nil, err
		}
		planned = append(planned, seg)
	}
	return planned, nil
}

func (c *Compressor) fastSegment(path []core.Version, start, end int) core.ArchiveSegment {
	covered := make([]core.VersionRef, 0, end-start+1)
	lines := make([]string, 0, end-start+1)
	for pos := start; pos <= end; pos++ {
		v := path[pos-1]
		covered = append(covered, v.Ref())
		lines = append(lines, c.Line(pos, v))
	}

	summary := strings.Join(lines, "\n")
	return core.ArchiveSegment{
		ID:          uuid.NewString(),
		Covered:     covered,
		StartTurn:   path[start-1].TurnID,
		EndTurn:     path[end-1].TurnID,
		Summary:     summary,
		Tier:        core.TierFast,
		Hash:        Hash(covered, summary),
		FinalizedAt: finalizedAt(c.now),
	}
}

// Refine asks the generator for a rich digest of turns. It waits for a free
// compaction slot and gives up after the compaction timeout. Any failure is
// reported as ErrCompactionFailure; the fast summary stays in place.
func (c *Compressor) Refine(ctx context.Context, gen core.Generator, slot core.SlotKey, seg core.ArchiveSegment, turns []core.Version) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%w: segment %s: %v", core.ErrCompactionFailure, seg.ID, err)
	}
	defer c.sem.Release(1)

	summary, err := gen.Generate(ctx, core.Payload{
		Kind:  core.PayloadDigest,
		Slot:  slot,
		Turns: turns,
		Window: core.ContextWindow{
			ArchiveSummaries: []core.ArchiveSummary{{
				SegmentID: seg.ID,
				StartTurn: seg.StartTurn,
				EndTurn:   seg.EndTurn,
				Summary:   seg.Summary,
			}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: segment %s: %v", core.ErrCompactionFailure, seg.ID, err)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", fmt.Errorf("%w: segment %s: %v", core.ErrCompactionFailure, seg.ID, errors.New("empty digest"))
	}
	return summary, nil
}
