package core

import (
	"context"
	"time"
)

type EntryKind string

const (
	EntryOpen       EntryKind = "open"
	EntryTurn       EntryKind = "turn"
	EntryCompaction EntryKind = "compaction"
	EntryRefinement EntryKind = "refinement"
	EntryClose      EntryKind = "close"
)

func (k EntryKind) Valid() bool {
	switch k {
	case EntryOpen, EntryTurn, EntryCompaction, EntryRefinement, EntryClose:
		return true
	}
	return false
}

// SegmentMarker is the compaction payload of a document entry.
type SegmentMarker struct {
	ID        string       `json:"id" yaml:"id"`
	StartTurn int          `json:"start_turn" yaml:"start_turn"`
	EndTurn   int          `json:"end_turn" yaml:"end_turn"`
	Covered   []VersionRef `json:"covered" yaml:"covered"`
	Summary   string       `json:"summary" yaml:"summary"`
	Tier      SegmentTier  `json:"tier" yaml:"tier"`
	Hash      string       `json:"hash" yaml:"hash"`
}

// DocumentEntry is one append-only record of a session document.
type DocumentEntry struct {
	Seq              int64          `json:"seq" yaml:"seq"`
	Kind             EntryKind      `json:"kind" yaml:"kind"`
	DocumentID       string         `json:"document_id" yaml:"document_id"`
	TurnID           int            `json:"turn_id" yaml:"turn_id"`
	VersionID        int            `json:"version_id" yaml:"version_id"`
	Origin           Origin         `json:"origin,omitempty" yaml:"origin,omitempty"`
	Timestamp        time.Time      `json:"timestamp" yaml:"timestamp"`
	Parent           *VersionRef    `json:"parent,omitempty" yaml:"parent,omitempty"`
	UserMessage      string         `json:"user_message,omitempty" yaml:"user_message,omitempty"`
	AssistantMessage string         `json:"assistant_message,omitempty" yaml:"assistant_message,omitempty"`
	Topics           []string       `json:"topics,omitempty" yaml:"topics,omitempty"`
	Predecessor      string         `json:"predecessor,omitempty" yaml:"predecessor,omitempty"`
	Segment          *SegmentMarker `json:"segment,omitempty" yaml:"segment,omitempty"`
}

func (e DocumentEntry) Ref() VersionRef {
	return VersionRef{TurnID: e.TurnID, VersionID: e.VersionID}
}

// DocumentInfo describes one slot-timeframe document.
type DocumentInfo struct {
	ID          string    `json:"id" yaml:"id"`
	SlotID      string    `json:"slot_id" yaml:"slot_id"`
	Predecessor string    `json:"predecessor,omitempty" yaml:"predecessor,omitempty"`
	OpenedAt    time.Time `json:"opened_at" yaml:"opened_at"`
}

// Key is the storage key of the document.
func (d DocumentInfo) Key() string {
	return d.SlotID + "/" + d.ID
}

// DocumentBackend is the durable storage collaborator. Appends to distinct
// keys may run concurrently.
type DocumentBackend interface {
	Append(ctx context.Context, key string, entry DocumentEntry) error
	Read(ctx context.Context, key string) ([]DocumentEntry, error)
}

// DocumentHeads tracks the newest document of every slot so a chain can be
// walked back through predecessors.
type DocumentHeads interface {
	Head(ctx context.Context, slotID string) (string, error)
	SetHead(ctx context.Context, slotID, documentID string) error
}
