package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	TuskName          = "TuskThread"
	TuskUserAgent     = "TuskThread/0.1"
	TuskRepositoryURL = "https://github.com/sandevgo/tuskthread"
	TaskVersion       = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Origin string

const (
	OriginOriginal   Origin = "original"
	OriginEdit       Origin = "edit"
	OriginRegenerate Origin = "regenerate"
)

type Action string

const (
	ActionSend       Action = "send"
	ActionEdit       Action = "edit"
	ActionRegenerate Action = "regenerate"
)

func (a Action) Valid() bool {
	switch a {
	case ActionSend, ActionEdit, ActionRegenerate:
		return true
	}
	return false
}

// SlotKey identifies one conversation: a user bound to a question/answer context.
type SlotKey struct {
	User     string `json:"user" yaml:"user"`
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// ID is a stable, filesystem-safe identifier for the slot.
func (k SlotKey) ID() string {
	sum := sha256.Sum256([]byte(k.User + "\x00" + k.Question + "\x00" + k.Answer))
	return hex.EncodeToString(sum[:])[:24]
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%s", k.User, k.ID())
}

// VersionRef addresses one version inside a slot. The zero value is the root.
type VersionRef struct {
	TurnID    int `json:"turn_id" yaml:"turn_id"`
	VersionID int `json:"version_id" yaml:"version_id"`
}

func (r VersionRef) IsRoot() bool {
	return r.TurnID == 0
}

func (r VersionRef) String() string {
	return fmt.Sprintf("%d:%d", r.TurnID, r.VersionID)
}

type Version struct {
	ID               int        `json:"version_id"`
	TurnID           int        `json:"turn_id"`
	UserMessage      string     `json:"user_message"`
	AssistantMessage string     `json:"assistant_message"`
	CreatedAt        time.Time  `json:"created_at"`
	Origin           Origin     `json:"origin"`
	Parent           VersionRef `json:"parent"`
	Children         []int      `json:"children,omitempty"`
	Topics           []string   `json:"topics,omitempty"`
}

func (v Version) Ref() VersionRef {
	return VersionRef{TurnID: v.TurnID, VersionID: v.ID}
}

type Turn struct {
	ID       int        `json:"turn_id"`
	Parent   VersionRef `json:"parent"`
	Versions []*Version `json:"versions"`
}

func (t *Turn) Latest() *Version {
	if len(t.Versions) == 0 {
		return nil
	}
	return t.Versions[len(t.Versions)-1]
}

func (t *Turn) Version(id int) (*Version, bool) {
	// version ids are dense and start at 1
	if id < 1 || id > len(t.Versions) {
		return nil, false
	}
	return t.Versions[id-1], true
}

// VersionInfo is the branch metadata a version switcher needs.
type VersionInfo struct {
	VersionID    int       `json:"version_id"`
	Origin       Origin    `json:"origin"`
	IsOriginal   bool      `json:"is_original"`
	Children     []int     `json:"children_turns"`
	OnActivePath bool      `json:"on_active_path"`
	CreatedAt    time.Time `json:"created_at"`
}

type TurnInfo struct {
	TurnID        int           `json:"turn_id"`
	Parent        VersionRef    `json:"parent"`
	ActiveVersion int           `json:"active_version"`
	Versions      []VersionInfo `json:"versions"`
}

type History struct {
	Versions []Version  `json:"versions"`
	Branches []TurnInfo `json:"branches"`
}

type SegmentTier string

const (
	TierFast SegmentTier = "fast"
	TierRich SegmentTier = "rich"
)

// ArchiveSegment is the compacted summary of a contiguous run of cold turns.
type ArchiveSegment struct {
	ID          string       `json:"id"`
	Covered     []VersionRef `json:"covered"`
	StartTurn   int          `json:"start_turn"`
	EndTurn     int          `json:"end_turn"`
	Summary     string       `json:"summary"`
	Tier        SegmentTier  `json:"tier"`
	Hash        string       `json:"hash"`
	Refined     bool         `json:"refined"`
	FinalizedAt time.Time    `json:"finalized_at"`
}

type RetrievedTurn struct {
	Position int     `json:"position"`
	Version  Version `json:"version"`
}

type ArchiveSummary struct {
	SegmentID string `json:"segment_id,omitempty"`
	StartTurn int    `json:"start_turn"`
	EndTurn   int    `json:"end_turn"`
	Summary   string `json:"summary"`
}

// ContextWindow is the bounded payload assembled for one generation request.
type ContextWindow struct {
	ArchiveSummaries []ArchiveSummary `json:"archive_summaries,omitempty"`
	Retrieved        []RetrievedTurn  `json:"retrieved_turns,omitempty"`
	Hot              []Version        `json:"hot_window"`
}

type ReferenceClass string

const (
	ReferenceNone     ReferenceClass = "none"
	ReferenceIndex    ReferenceClass = "index"
	ReferenceTemporal ReferenceClass = "temporal"
	ReferenceRecent   ReferenceClass = "recent"
	ReferenceKeyword  ReferenceClass = "keyword"
)

// Reference is the outcome of classifying an incoming message.
type Reference struct {
	Class     ReferenceClass `json:"class"`
	Positions []int          `json:"positions,omitempty"`
	Terms     []string       `json:"terms,omitempty"`
}

type PayloadKind string

const (
	PayloadReply  PayloadKind = "reply"
	PayloadDigest PayloadKind = "digest"
)

// Payload is what the core hands to the generation collaborator.
type Payload struct {
	Kind    PayloadKind   `json:"kind"`
	Slot    SlotKey       `json:"slot"`
	Message string        `json:"message,omitempty"`
	Window  ContextWindow `json:"window"`
	Turns   []Version     `json:"turns,omitempty"`
}

type SubmitResult struct {
	Action  Action    `json:"action"`
	Turn    int       `json:"turn_id"`
	Version Version   `json:"version"`
	Path    []Version `json:"path"`
}
