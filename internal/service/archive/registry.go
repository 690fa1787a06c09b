package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sandevgo/tuskthread/internal/core"
)

// Placement is an archive segment laid over a concrete path. Start and End
// are 1-based path positions, both inclusive.
type Placement struct {
	Segment core.ArchiveSegment
	Start   int
	End     int
}

// Registry holds the finalized segments of one slot. Segments are never
// edited in place: a refinement replaces the whole segment exactly once.
// Registry is not safe for concurrent use; the owning slot locks it.
type Registry struct {
	segments []*core.ArchiveSegment
	byID     map[string]int
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]int)}
}

func (r *Registry) Len() int {
	return len(r.segments)
}

// Add registers a finalized segment.
func (r *Registry) Add(seg core.ArchiveSegment) error {
	return r.AddAll([]core.ArchiveSegment{seg})
}

// AddAll registers segs in order, or none of them.
func (r *Registry) AddAll(segs []core.ArchiveSegment) error {
	ids := make(map[string]struct{}, len(segs))
	for _, seg := range segs {
		if err := r.check(seg); err != nil {
			return err
		}
		if _, dup := ids[seg.ID]; dup {
			return fmt.Errorf("%w: segment %s finalized twice", core.ErrInvariant, seg.ID)
		}
		ids[seg.ID] = struct{}{}
	}

	for _, seg := range segs {
		seg.Covered = append([]core.VersionRef(nil), seg.Covered...)
		r.byID[seg.ID] = len(r.segments)
		r.segments = append(r.segments, &seg)
	}
	return nil
}

func (r *Registry) check(seg core.ArchiveSegment) error {
	if seg.ID == "" || len(seg.Covered) == 0 {
		return fmt.Errorf("%w: segment without id or coverage", core.ErrInvariant)
	}
	if _, exists := r.byID[seg.ID]; exists {
		return fmt.Errorf("%w: segment %s finalized twice", core.ErrInvariant, seg.ID)
	}
	for _, ref := range seg.Covered {
		if ref.TurnID < 1 || ref.VersionID < 1 {
			return fmt.Errorf("%w: segment %s covers unset version %s", core.ErrInvariant, seg.ID, ref)
		}
	}
	return nil
}

func (r *Registry) Get(id string) (core.ArchiveSegment, bool) {
	i, ok := r.byID[id]
	if !ok {
		return core.ArchiveSegment{}, false
	}
	return *r.segments[i], true
}

// Segments returns all segments in finalization order.
func (r *Registry) Segments() []core.ArchiveSegment {
	out := make([]core.ArchiveSegment, len(r.segments))
	for i, s := range r.segments {
		out[i] = *s
	}
	return out
}

// Refine swaps the summary of a fast segment for a rich one.
func (r *Registry) Refine(id, summary string) (core.ArchiveSegment, error) {
	i, ok := r.byID[id]
	if !ok {
		return core.ArchiveSegment{}, fmt.Errorf("%w: %s", core.ErrSegmentNotFound, id)
	}

	old := r.segments[i]
	if old.Refined {
		return core.ArchiveSegment{}, fmt.Errorf("%w: %s", core.ErrSegmentRefined, id)
	}

	next := *old
	next.Covered = append([]core.VersionRef(nil), old.Covered...)
	next.Summary = summary
	next.Tier = core.TierRich
	next.Refined = true
	next.Hash = Hash(next.Covered, summary)

	r.segments[i] = &next
	return next, nil
}

// Applicable lays the segments whose covered versions appear, in order and
// without gaps, on path. Overlapping candidates are resolved in favour of the
// earlier start, then the earlier finalization.
func (r *Registry) Applicable(path []core.Version) []Placement {
	positions := make(map[core.VersionRef]int, len(path))
	for i, v := range path {
		positions[v.Ref()] = i + 1
	}

	var candidates []Placement
	for _, seg := range r.segments {
		start, ok := positions[seg.Covered[0]]
		if !ok {
			continue
		}
		contiguous := true
		for j, ref := range seg.Covered[1:] {
			if positions[ref] != start+j+1 {
				contiguous = false
				break
			}
		}
		if contiguous {
			candidates = append(candidates, Placement{
				Segment: *seg,
				Start:   start,
				End:     start + len(seg.Covered) - 1,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Start < candidates[j].Start
	})

	placed := candidates[:0]
	end := 0
	for _, c := range candidates {
		if c.Start <= end {
			continue
		}
		placed = append(placed, c)
		end = c.End
	}
	return placed
}

// ArchivedEnd returns the last path position covered by placements, 0 if none.
func ArchivedEnd(placements []Placement) int {
	end := 0
	for _, p := range placements {
		end = max(end, p.End)
	}
	return end
}

// Replay rebuilds a registry from compaction and refinement markers.
func Replay(entries []core.DocumentEntry) (*Registry, error) {
	r := NewRegistry()
	for _, e := range entries {
		if e.Segment == nil {
			continue
		}
		m := e.Segment

		switch e.Kind {
		case core.EntryCompaction:
			if _, exists := r.byID[m.ID]; exists {
				continue
			}
			seg := core.ArchiveSegment{
				ID:          m.ID,
				Covered:     m.Covered,
				StartTurn:   m.StartTurn,
				EndTurn:     m.EndTurn,
				Summary:     m.Summary,
				Tier:        m.Tier,
				Hash:        m.Hash,
				FinalizedAt: e.Timestamp,
			}
			if err := r.Add(seg); err != nil {
				return nil, fmt.Errorf("failed to replay segment %s: %w", m.ID, err)
			}
		case core.EntryRefinement:
			seg, ok := r.Get(m.ID)
			if !ok {
				return nil, fmt.Errorf("%w: refinement of unknown segment %s", core.ErrInvariant, m.ID)
			}
			if seg.Refined {
				continue
			}
			if _, err := r.Refine(m.ID, m.Summary); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// Marker converts a segment into its document entry payload.
func Marker(seg core.ArchiveSegment) *core.SegmentMarker {
	return &core.SegmentMarker{
		ID:        seg.ID,
		StartTurn: seg.StartTurn,
		EndTurn:   seg.EndTurn,
		Covered:   append([]core.VersionRef(nil), seg.Covered...),
		Summary:   seg.Summary,
		Tier:      seg.Tier,
		Hash:      seg.Hash,
	}
}

// Hash fingerprints a segment by its coverage and summary.
func Hash(covered []core.VersionRef, summary string) string {
	h := sha256.New()
	for _, ref := range covered {
		h.Write([]byte(strconv.Itoa(ref.TurnID)))
		h.Write([]byte{':'})
		h.Write([]byte(strconv.Itoa(ref.VersionID)))
		h.Write([]byte{';'})
	}
	h.Write([]byte(summary))
	return hex.EncodeToString(h.Sum(nil))
}

func finalizedAt(now func() time.Time) time.Time {
	if now == nil {
		return time.Now().UTC()
	}
	return now()
}
