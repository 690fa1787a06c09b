package tree

import (
	"fmt"

	"github.com/sandevgo/tuskthread/internal/core"
)

// pathTo walks lineage links from ref up to the root and returns the
// versions root first.
func (t *Tree) pathTo(ref core.VersionRef) []*core.Version {
	var path []*core.Version
	for steps := 0; !ref.IsRoot() && steps <= len(t.turns); steps++ {
		v, ok := t.Lookup(ref)
		if !ok {
			break
		}
		path = append(path, v)
		ref = v.Parent
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// PathTo returns the versions from the root down to ref, ref included.
func (t *Tree) PathTo(ref core.VersionRef) []core.Version {
	return copyVersions(t.pathTo(ref))
}

// ActivePath returns the default active path, root to head.
func (t *Tree) ActivePath() []core.Version {
	return copyVersions(t.pathTo(t.head))
}

// ResolvePath returns the versions of the path pinned by p, or the default
// active path when p is nil. A pinned path runs from the root to the pinned
// version and then follows the most recent continuation downwards. If the
// pinned version itself was never continued, the walk picks up the most
// recent continuation of any version of the same turn.
func (t *Tree) ResolvePath(p *core.VersionPath) ([]core.Version, error) {
	if p == nil {
		return t.ActivePath(), nil
	}

	if err := t.CheckPath(p); err != nil {
		return nil, err
	}

	path := t.pathTo(p.Ref())
	cur, _ := t.Lookup(p.Ref())

	next := t.latestChild(cur)
	if next == 0 {
		turn, _ := t.Turn(cur.TurnID)
		for _, v := range turn.Versions {
			if c := t.latestChild(v); c > next {
				next = c
			}
		}
	}

	active := t.activeVersions()
	for steps := 0; next != 0 && steps <= len(t.turns); steps++ {
		turn, _ := t.Turn(next)
		v := turn.Latest()
		if vid, ok := active[turn.ID]; ok {
			v, _ = turn.Version(vid)
		}
		path = append(path, v)
		next = t.latestChild(v)
	}

	return copyVersions(path), nil
}

// CheckPath validates that p addresses an existing version.
func (t *Tree) CheckPath(p *core.VersionPath) error {
	if p == nil {
		return nil
	}
	turn, ok := t.Turn(p.TurnID)
	if !ok {
		return core.InvalidVersionPath(p.String(), fmt.Sprintf("turn %d does not exist", p.TurnID))
	}
	if _, ok := turn.Version(p.VersionID); !ok {
		return core.InvalidVersionPath(p.String(), fmt.Sprintf("turn %d has %d versions", p.TurnID, len(turn.Versions)))
	}
	return nil
}

// ListVersions returns branch metadata for one turn, or for every turn when
// turnID is 0.
func (t *Tree) ListVersions(turnID int) ([]core.TurnInfo, error) {
	active := t.activeVersions()

	if turnID != 0 {
		turn, ok := t.Turn(turnID)
		if !ok {
			return nil, core.TurnNotFound(turnID)
		}
		return []core.TurnInfo{turnInfo(turn, active)}, nil
	}

	infos := make([]core.TurnInfo, 0, len(t.turns))
	for _, turn := range t.turns {
		infos = append(infos, turnInfo(turn, active))
	}
	return infos, nil
}

func turnInfo(turn *core.Turn, active map[int]int) core.TurnInfo {
	info := core.TurnInfo{
		TurnID:        turn.ID,
		Parent:        turn.Parent,
		ActiveVersion: active[turn.ID],
		Versions:      make([]core.VersionInfo, 0, len(turn.Versions)),
	}
	for _, v := range turn.Versions {
		info.Versions = append(info.Versions, core.VersionInfo{
			VersionID:    v.ID,
			Origin:       v.Origin,
			IsOriginal:   v.Origin == core.OriginOriginal,
			Children:     append([]int{}, v.Children...),
			OnActivePath: active[turn.ID] == v.ID,
			CreatedAt:    v.CreatedAt,
		})
	}
	return info
}

// activeVersions maps turn id to the version on the default active path.
func (t *Tree) activeVersions() map[int]int {
	active := make(map[int]int)
	for _, v := range t.pathTo(t.head) {
		active[v.TurnID] = v.ID
	}
	return active
}

func (t *Tree) latestChild(v *core.Version) int {
	if len(v.Children) == 0 {
		return 0
	}
	return v.Children[len(v.Children)-1]
}

// Contains reports whether turnID appears on path and at which 1-based position.
func Contains(path []core.Version, turnID int) (int, bool) {
	for i, v := range path {
		if v.TurnID == turnID {
			return i + 1, true
		}
	}
	return 0, false
}

func copyVersions(src []*core.Version) []core.Version {
	out := make([]core.Version, len(src))
	for i, v := range src {
		out[i] = *v
		out[i].Children = append([]int(nil), v.Children...)
		out[i].Topics = append([]string(nil), v.Topics...)
	}
	return out
}
