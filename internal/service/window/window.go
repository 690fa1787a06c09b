package window

import (
	"context"
	"sort"
	"strings"

	"github.com/sandevgo/tuskthread/internal/core"
	"github.com/sandevgo/tuskthread/internal/service/archive"
)

const defaultHotSize = 8

// Digester renders the fast digest line of a cold turn that no segment
// covers yet.
type Digester interface {
	Line(position int, v core.Version) string
}

// Source supplies the verbatim copy of a retrieved turn.
type Source interface {
	Verbatim(ctx context.Context, ref core.VersionRef) (core.Version, bool)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, ref core.VersionRef) (core.Version, bool)

func (f SourceFunc) Verbatim(ctx context.Context, ref core.VersionRef) (core.Version, bool) {
	return f(ctx, ref)
}

// Input is a resolved path with its archive coverage.
type Input struct {
	Path       []core.Version
	Placements []archive.Placement
	Retrieved  []int
	Source     Source
}

type Assembler struct {
	hotSize int
	digest  Digester
}

func NewAssembler(cfg core.WindowConfig, digest Digester) *Assembler {
	size := cfg.GetHotWindowSize()
	if size <= 0 {
		size = defaultHotSize
	}
	return &Assembler{hotSize: size, digest: digest}
}

// HotFrom returns the 1-based position where the hot window of a path of
// pathLen turns starts. The hot window never reaches back into archived turns.
func (a *Assembler) HotFrom(pathLen int, placements []archive.Placement) int {
	return max(pathLen-a.hotSize+1, archive.ArchivedEnd(placements)+1, 1)
}

// Assemble builds the context window for in. The result only depends on the
// path, its placements and the retrieved positions.
func (a *Assembler) Assemble(ctx context.Context, in Input) core.ContextWindow {
	hotFrom := a.HotFrom(len(in.Path), in.Placements)

	w := core.ContextWindow{
		ArchiveSummaries: a.summaries(in.Path, in.Placements, hotFrom),
		Retrieved:        a.retrieved(ctx, in, hotFrom),
		Hot:              make([]core.Version, 0, len(in.Path)-hotFrom+1),
	}
	w.Hot = append(w.Hot, in.Path[hotFrom-1:]...)
	return w
}

// summaries walks the cold part of the path and emits segment summaries
// where a segment is placed and digest lines for uncovered runs.
func (a *Assembler) summaries(path []core.Version, placements []archive.Placement, hotFrom int) []core.ArchiveSummary {
	var out []core.ArchiveSummary

	var lines []string
	runStart := 0
	flush := func(end int) {
		if len(lines) == 0 {
			return
		}
		out = append(out, core.ArchiveSummary{
			StartTurn: path[runStart-1].TurnID,
			EndTurn:   path[end-1].TurnID,
			Summary:   strings.Join(lines, "\n"),
		})
		lines = nil
	}

	next := 0
	for pos := 1; pos < hotFrom; pos++ {
		if next < len(placements) && placements[next].Start == pos {
			flush(pos - 1)
			p := placements[next]
			out = append(out, core.ArchiveSummary{
				SegmentID: p.Segment.ID,
				StartTurn: p.Segment.StartTurn,
				EndTurn:   p.Segment.EndTurn,
				Summary:   p.Segment.Summary,
			})
			pos = p.End
			next++
			continue
		}

		if len(lines) == 0 {
			runStart = pos
		}
		lines = append(lines, a.digest.Line(pos, path[pos-1]))
	}
	flush(hotFrom - 1)

	return out
}

func (a *Assembler) retrieved(ctx context.Context, in Input, hotFrom int) []core.RetrievedTurn {
	positions := append([]int(nil), in.Retrieved...)
	sort.Ints(positions)

	var out []core.RetrievedTurn
	last := 0
	for _, pos := range positions {
		if pos == last || pos < 1 || pos >= hotFrom || pos > len(in.Path) {
			continue
		}
		last = pos

		v := in.Path[pos-1]
		if in.Source != nil {
			if verbatim, ok := in.Source.Verbatim(ctx, v.Ref()); ok {
				v = verbatim
			}
		}
		out = append(out, core.RetrievedTurn{Position: pos, Version: v})
	}
	return out
}
