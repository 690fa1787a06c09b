package tree

import (
	"fmt"
	"time"

	"github.com/sandevgo/tuskthread/internal/core"
)

// Draft carries the content of a version about to be committed.
type Draft struct {
	UserMessage      string
	AssistantMessage string
	CreatedAt        time.Time
	Topics           []string
}

// Tree is the branching history of one slot: an append-only arena of turns
// keyed by turn id, each holding its versions keyed by version id. Lineage is
// kept as explicit (turn, version) references; the head marks the default
// active path. Tree is not safe for concurrent use; the owning slot locks it.
type Tree struct {
	turns []*core.Turn
	head  core.VersionRef
}

func New() *Tree {
	return &Tree{}
}

// Len returns the number of turns ever created in the slot.
func (t *Tree) Len() int {
	return len(t.turns)
}

func (t *Tree) Head() core.VersionRef {
	return t.head
}

func (t *Tree) NextTurnID() int {
	return len(t.turns) + 1
}

func (t *Tree) Turn(id int) (*core.Turn, bool) {
	if id < 1 || id > len(t.turns) {
		return nil, false
	}
	return t.turns[id-1], true
}

func (t *Tree) Lookup(ref core.VersionRef) (*core.Version, bool) {
	turn, ok := t.Turn(ref.TurnID)
	if !ok {
		return nil, false
	}
	return turn.Version(ref.VersionID)
}

// AppendTurn creates a new turn continuing from parent with version 1.
func (t *Tree) AppendTurn(parent core.VersionRef, d Draft) (*core.Turn, error) {
	return t.insertTurn(parent, core.OriginOriginal, d)
}

// EditTurn adds a version with a new user message under an existing turn.
// The new version shares the turn's parent and becomes the head; turns that
// continued from older versions stay reachable through version paths.
func (t *Tree) EditTurn(turnID int, d Draft) (*core.Version, error) {
	return t.insertVersion(turnID, core.OriginEdit, d)
}

// RegenerateSource returns the version whose user message a regeneration of
// turnID re-answers: the one on the active path, else the latest.
func (t *Tree) RegenerateSource(turnID int) (*core.Version, error) {
	turn, ok := t.Turn(turnID)
	if !ok {
		return nil, core.TurnNotFound(turnID)
	}

	for _, v := range t.pathTo(t.head) {
		if v.TurnID == turnID {
			return v, nil
		}
	}
	return turn.Latest(), nil
}

// RegenerateTurn answers the same user message again as a new sibling turn
// branching from the predecessor of turnID.
func (t *Tree) RegenerateTurn(turnID int, d Draft) (*core.Turn, error) {
	src, err := t.RegenerateSource(turnID)
	if err != nil {
		return nil, err
	}
	turn, _ := t.Turn(turnID)

	if d.UserMessage == "" {
		d.UserMessage = src.UserMessage
	}
	return t.insertTurn(turn.Parent, core.OriginRegenerate, d)
}

func (t *Tree) insertTurn(parent core.VersionRef, origin core.Origin, d Draft) (*core.Turn, error) {
	var parentVersion *core.Version
	if !parent.IsRoot() {
		v, ok := t.Lookup(parent)
		if !ok {
			return nil, core.TurnNotFound(parent.TurnID)
		}
		parentVersion = v
	}

	id := t.NextTurnID()
	if n := len(t.turns); n > 0 && t.turns[n-1].ID >= id {
		return nil, fmt.Errorf("%w: turn id %d after %d", core.ErrInvariant, id, t.turns[n-1].ID)
	}

	turn := &core.Turn{ID: id, Parent: parent}
	turn.Versions = append(turn.Versions, newVersion(id, 1, parent, origin, d))
	t.turns = append(t.turns, turn)

	if parentVersion != nil {
		parentVersion.Children = append(parentVersion.Children, id)
	}

	t.head = core.VersionRef{TurnID: id, VersionID: 1}
	return turn, nil
}

func (t *Tree) insertVersion(turnID int, origin core.Origin, d Draft) (*core.Version, error) {
	turn, ok := t.Turn(turnID)
	if !ok {
		return nil, core.TurnNotFound(turnID)
	}

	id := len(turn.Versions) + 1
	if latest := turn.Latest(); latest != nil && latest.ID >= id {
		return nil, fmt.Errorf("%w: version id %d after %d in turn %d", core.ErrInvariant, id, latest.ID, turnID)
	}

	v := newVersion(turnID, id, turn.Parent, origin, d)
	turn.Versions = append(turn.Versions, v)

	t.head = v.Ref()
	return v, nil
}

func newVersion(turnID, versionID int, parent core.VersionRef, origin core.Origin, d Draft) *core.Version {
	return &core.Version{
		ID:               versionID,
		TurnID:           turnID,
		UserMessage:      d.UserMessage,
		AssistantMessage: d.AssistantMessage,
		CreatedAt:        d.CreatedAt,
		Origin:           origin,
		Parent:           parent,
		Topics:           append([]string(nil), d.Topics...),
	}
}

// Replay rebuilds a tree from persisted turn entries in document order.
// Entries delivered twice are skipped.
func Replay(entries []core.DocumentEntry) (*Tree, error) {
	t := New()
	for _, e := range entries {
		if e.Kind != core.EntryTurn {
			continue
		}

		d := Draft{
			UserMessage:      e.UserMessage,
			AssistantMessage: e.AssistantMessage,
			CreatedAt:        e.Timestamp,
			Topics:           e.Topics,
		}

		if _, exists := t.Lookup(e.Ref()); exists {
			continue
		}

		switch {
		case e.TurnID == t.NextTurnID() && e.VersionID == 1:
			var parent core.VersionRef
			if e.Parent != nil {
				parent = *e.Parent
			}
			if _, err := t.insertTurn(parent, e.Origin, d); err != nil {
				return nil, fmt.Errorf("failed to replay turn %s: %w", e.Ref(), err)
			}
		case e.TurnID < t.NextTurnID():
			turn, _ := t.Turn(e.TurnID)
			if e.VersionID != len(turn.Versions)+1 {
				return nil, fmt.Errorf("%w: replay of %s out of order", core.ErrInvariant, e.Ref())
			}
			if _, err := t.insertVersion(e.TurnID, e.Origin, d); err != nil {
				return nil, fmt.Errorf("failed to replay version %s: %w", e.Ref(), err)
			}
		default:
			return nil, fmt.Errorf("%w: replay of %s skips turn %d", core.ErrInvariant, e.Ref(), t.NextTurnID())
		}
	}
	return t, nil
}
