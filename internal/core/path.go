package core

import (
	"strconv"
	"strings"
)

// VersionPath pins a historical branch point, written "<turn_id>:<version_id>".
type VersionPath struct {
	TurnID    int
	VersionID int
}

func (p VersionPath) Ref() VersionRef {
	return VersionRef{TurnID: p.TurnID, VersionID: p.VersionID}
}

func (p VersionPath) String() string {
	return p.Ref().String()
}

// ParseVersionPath validates the textual form only; range checks need the tree.
// An empty string means "no path".
func ParseVersionPath(s string) (*VersionPath, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	turnStr, versionStr, ok := strings.Cut(s, ":")
	if !ok {
		return nil, InvalidVersionPath(s, "expected <turn_id>:<version_id>")
	}

	turnID, err := strconv.Atoi(turnStr)
	if err != nil {
		return nil, InvalidVersionPath(s, "turn id is not a number")
	}
	versionID, err := strconv.Atoi(versionStr)
	if err != nil {
		return nil, InvalidVersionPath(s, "version id is not a number")
	}
	if turnID < 1 || versionID < 1 {
		return nil, InvalidVersionPath(s, "ids start at 1")
	}

	return &VersionPath{TurnID: turnID, VersionID: versionID}, nil
}
