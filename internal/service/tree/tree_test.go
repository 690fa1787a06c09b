package tree

import (
	"errors"
	"testing"
	"time"

	"github.com/sandevgo/tuskthread/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func draft(user, assistant string) Draft {
	return Draft{UserMessage: user, AssistantMessage: assistant, CreatedAt: base}
}

func turnIDs(path []core.Version) []int {
	ids := make([]int, len(path))
	for i, v := range path {
		ids[i] = v.TurnID
	}
	return ids
}

func refs(path []core.Version) []string {
	out := make([]string, len(path))
	for i, v := range path {
		out[i] = v.Ref().String()
	}
	return out
}

// chain appends n turns to the head of t.
func chain(t *testing.T, tr *Tree, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := tr.AppendTurn(tr.Head(), draft("q", "a"))
		require.NoError(t, err)
	}
}

func TestAppendTurn_MonotonicIDs(t *testing.T) {
	tr := New()
	chain(t, tr, 5)

	path := tr.ActivePath()
	assert.Equal(t, []int{1, 2, 3, 4, 5}, turnIDs(path))
	for _, v := range path {
		assert.Equal(t, 1, v.ID)
		assert.Equal(t, core.OriginOriginal, v.Origin)
	}
	assert.Equal(t, core.VersionRef{TurnID: 5, VersionID: 1}, tr.Head())
}

func TestAppendTurn_UnknownParent(t *testing.T) {
	tr := New()
	_, err := tr.AppendTurn(core.VersionRef{TurnID: 3, VersionID: 1}, draft("q", "a"))
	assert.ErrorIs(t, err, core.ErrTurnNotFound)
	assert.Equal(t, 0, tr.Len())
}

func TestVersionIDs_StrictlyIncrease(t *testing.T) {
	tr := New()
	chain(t, tr, 2)

	for i := 0; i < 4; i++ {
		_, err := tr.EditTurn(2, draft("edit", "a"))
		require.NoError(t, err)
	}

	turn, ok := tr.Turn(2)
	require.True(t, ok)
	seen := map[int]bool{}
	prev := 0
	for _, v := range turn.Versions {
		assert.False(t, seen[v.ID], "duplicate version id %d", v.ID)
		assert.Greater(t, v.ID, prev)
		seen[v.ID] = true
		prev = v.ID
	}
	assert.Len(t, turn.Versions, 5)
}

func TestEditTurn_HidesLaterTurnsFromDefaultPath(t *testing.T) {
	tr := New()
	chain(t, tr, 3)

	v, err := tr.EditTurn(2, draft("new", "a2"))
	require.NoError(t, err)
	assert.Equal(t, 2, v.ID)
	assert.Equal(t, core.OriginEdit, v.Origin)

	assert.Equal(t, []string{"1:1", "2:2"}, refs(tr.ActivePath()))

	infos, err := tr.ListVersions(2)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Len(t, infos[0].Versions, 2)
	assert.True(t, infos[0].Versions[0].IsOriginal)
	assert.Equal(t, []int{3}, infos[0].Versions[0].Children)
	assert.False(t, infos[0].Versions[0].OnActivePath)
	assert.True(t, infos[0].Versions[1].OnActivePath)
	assert.Equal(t, 2, infos[0].ActiveVersion)

	pinned, err := tr.ResolvePath(&core.VersionPath{TurnID: 2, VersionID: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"1:1", "2:1", "3:1"}, refs(pinned))
}

func TestEditTurn_Missing(t *testing.T) {
	tr := New()
	chain(t, tr, 1)

	_, err := tr.EditTurn(7, draft("x", "y"))
	assert.True(t, errors.Is(err, core.ErrTurnNotFound))
	assert.Equal(t, core.VersionRef{TurnID: 1, VersionID: 1}, tr.Head())
}

func TestRegenerateTurn_CreatesSiblingTurn(t *testing.T) {
	tr := New()
	_, err := tr.AppendTurn(tr.Head(), draft("first", "a1"))
	require.NoError(t, err)
	_, err = tr.AppendTurn(tr.Head(), draft("second", "a2"))
	require.NoError(t, err)
	_, err = tr.AppendTurn(tr.Head(), draft("third", "a3"))
	require.NoError(t, err)

	turn, err := tr.RegenerateTurn(2, Draft{AssistantMessage: "a2 again", CreatedAt: base})
	require.NoError(t, err)
	assert.Equal(t, 4, turn.ID)
	assert.Equal(t, core.VersionRef{TurnID: 1, VersionID: 1}, turn.Parent)
	assert.Equal(t, "second", turn.Versions[0].UserMessage)
	assert.Equal(t, core.OriginRegenerate, turn.Versions[0].Origin)

	assert.Equal(t, []int{1, 4}, turnIDs(tr.ActivePath()))

	original, err := tr.ResolvePath(&core.VersionPath{TurnID: 2, VersionID: 1})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, turnIDs(original))

	first, ok := tr.Turn(1)
	require.True(t, ok)
	assert.Equal(t, []int{2, 4}, first.Versions[0].Children)
}

func TestRegenerateTurn_Missing(t *testing.T) {
	tr := New()
	_, err := tr.RegenerateTurn(1, draft("", "a"))
	assert.ErrorIs(t, err, core.ErrTurnNotFound)
}

func TestResolvePath_InvalidRange(t *testing.T) {
	tr := New()
	chain(t, tr, 2)

	tests := []struct {
		name string
		path core.VersionPath
	}{
		{name: "missing turn", path: core.VersionPath{TurnID: 3, VersionID: 1}},
		{name: "missing version", path: core.VersionPath{TurnID: 1, VersionID: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.ResolvePath(&tt.path)
			assert.ErrorIs(t, err, core.ErrInvalidVersionPath)
		})
	}
}

func TestScenario_EditThenRegenerate(t *testing.T) {
	tr := New()

	_, err := tr.AppendTurn(tr.Head(), draft("What is X?", "X is ..."))
	require.NoError(t, err)
	_, err = tr.AppendTurn(tr.Head(), draft("Tell me more", "More ..."))
	require.NoError(t, err)

	_, err = tr.EditTurn(1, draft("What is X in short?", "Short X"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1:2"}, refs(tr.ActivePath()))

	infos, err := tr.ListVersions(1)
	require.NoError(t, err)
	require.Len(t, infos[0].Versions, 2)
	assert.Equal(t, []int{2}, infos[0].Versions[0].Children)

	turn, err := tr.RegenerateTurn(1, Draft{AssistantMessage: "Short X, again", CreatedAt: base})
	require.NoError(t, err)
	assert.Equal(t, 3, turn.ID)
	assert.Equal(t, "What is X in short?", turn.Versions[0].UserMessage)

	assert.Equal(t, []string{"3:1"}, refs(tr.ActivePath()))

	pinned, err := tr.ResolvePath(&core.VersionPath{TurnID: 1, VersionID: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"1:2", "2:1"}, refs(pinned))
}

func TestListVersions_All(t *testing.T) {
	tr := New()
	chain(t, tr, 3)

	infos, err := tr.ListVersions(0)
	require.NoError(t, err)
	assert.Len(t, infos, 3)

	_, err = tr.ListVersions(9)
	assert.ErrorIs(t, err, core.ErrTurnNotFound)
}

func TestResolvePath_ReturnsCopies(t *testing.T) {
	tr := New()
	chain(t, tr, 2)

	path := tr.ActivePath()
	path[0].UserMessage = "mutated"
	path[0].Children = append(path[0].Children, 99)

	fresh := tr.ActivePath()
	assert.Equal(t, "q", fresh[0].UserMessage)
	assert.Equal(t, []int{2}, fresh[0].Children)
}

func TestReplay(t *testing.T) {
	root := core.VersionRef{}
	one := core.VersionRef{TurnID: 1, VersionID: 1}
	entries := []core.DocumentEntry{
		{Kind: core.EntryOpen},
		{Kind: core.EntryTurn, TurnID: 1, VersionID: 1, Origin: core.OriginOriginal, Parent: &root, UserMessage: "a"},
		{Kind: core.EntryTurn, TurnID: 2, VersionID: 1, Origin: core.OriginOriginal, Parent: &one, UserMessage: "b"},
		{Kind: core.EntryTurn, TurnID: 2, VersionID: 1, Origin: core.OriginOriginal, Parent: &one, UserMessage: "b"},
		{Kind: core.EntryTurn, TurnID: 2, VersionID: 2, Origin: core.OriginEdit, Parent: &one, UserMessage: "b2"},
		{Kind: core.EntryCompaction},
		{Kind: core.EntryTurn, TurnID: 3, VersionID: 1, Origin: core.OriginRegenerate, Parent: &one, UserMessage: "b2"},
	}

	tr, err := Replay(entries)
	require.NoError(t, err)
	assert.Equal(t, 3, tr.Len())
	assert.Equal(t, []string{"1:1", "3:1"}, refs(tr.ActivePath()))

	infos, err := tr.ListVersions(2)
	require.NoError(t, err)
	assert.Len(t, infos[0].Versions, 2)
}

func TestReplay_Gap(t *testing.T) {
	entries := []core.DocumentEntry{
		{Kind: core.EntryTurn, TurnID: 2, VersionID: 1},
	}
	_, err := Replay(entries)
	assert.ErrorIs(t, err, core.ErrInvariant)
}

func TestPathTo(t *testing.T) {
	tr := New()
	chain(t, tr, 3)
	_, err := tr.EditTurn(2, draft("new", "a2"))
	require.NoError(t, err)

	assert.Equal(t, []string{"1:1", "2:1", "3:1"}, refs(tr.PathTo(core.VersionRef{TurnID: 3, VersionID: 1})))
	assert.Equal(t, []string{"1:1", "2:2"}, refs(tr.PathTo(tr.Head())))
	assert.Empty(t, tr.PathTo(core.VersionRef{}))
}
