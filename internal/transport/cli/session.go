package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/sandevgo/tuskthread/internal/core"
	"github.com/sandevgo/tuskthread/internal/service/conversation"
	"github.com/sandevgo/tuskthread/internal/service/ui"
)

// Conversation is the part of the conversation manager the REPL drives.
type Conversation interface {
	Submit(ctx context.Context, req conversation.SubmitRequest) (*conversation.PendingTurn, error)
	GetHistory(ctx context.Context, key core.SlotKey, versionPath string) (*core.History, error)
	GetVersions(ctx context.Context, key core.SlotKey, turnID int) ([]core.TurnInfo, error)
	Clear(ctx context.Context, key core.SlotKey) (int, error)
}

// Session runs REPL commands against one slot.
type Session struct {
	conv   Conversation
	slot   core.SlotKey
	out    io.Writer
	pinned string
}

func NewSession(conv Conversation, slot core.SlotKey, out io.Writer) *Session {
	return &Session{conv: conv, slot: slot, out: out}
}

// Handle runs one line. It reports whether the user asked to leave; errors
// of a single command are printed, not returned.
func (s *Session) Handle(ctx context.Context, line string) bool {
	cmd, err := Parse(line)
	if err != nil {
		fmt.Fprint(s.out, RenderError(err))
		return false
	}

	switch cmd.Kind {
	case KindExit:
		return true
	case KindHelp:
		fmt.Fprintln(s.out, ui.DescStyle.Render(usage))
	case KindSend:
		s.submit(ctx, conversation.SubmitRequest{Action: core.ActionSend, Message: cmd.Message, VersionPath: s.pinned})
	case KindEdit:
		s.submit(ctx, conversation.SubmitRequest{Action: core.ActionEdit, TurnID: cmd.TurnID, Message: cmd.Message, VersionPath: s.pinned})
	case KindRegenerate:
		s.submit(ctx, conversation.SubmitRequest{Action: core.ActionRegenerate, TurnID: cmd.TurnID, VersionPath: s.pinned})
	case KindHistory:
		h, err := s.conv.GetHistory(ctx, s.slot, cmd.Path)
		if err != nil {
			fmt.Fprint(s.out, RenderError(err))
			return false
		}
		fmt.Fprint(s.out, RenderHistory(h))
	case KindVersions:
		infos, err := s.conv.GetVersions(ctx, s.slot, cmd.TurnID)
		if err != nil {
			fmt.Fprint(s.out, RenderError(err))
			return false
		}
		fmt.Fprint(s.out, RenderVersions(infos))
	case KindSwitch:
		s.switchTo(ctx, cmd.Path)
	case KindClear:
		n, err := s.conv.Clear(ctx, s.slot)
		if err != nil {
			fmt.Fprint(s.out, RenderError(err))
			return false
		}
		s.pinned = ""
		fmt.Fprintln(s.out, ui.MetaStyle.Render(fmt.Sprintf("cleared %d turns", n)))
	}
	return false
}

func (s *Session) submit(ctx context.Context, req conversation.SubmitRequest) {
	req.Slot = s.slot
	pending, err := s.conv.Submit(ctx, req)
	if err != nil {
		fmt.Fprint(s.out, RenderError(err))
		return
	}

	res, err := pending.Wait(ctx)
	if err != nil {
		fmt.Fprint(s.out, RenderError(err))
		return
	}

	// the new version is the head of the active path now
	s.pinned = ""
	fmt.Fprint(s.out, RenderResult(res))
}

func (s *Session) switchTo(ctx context.Context, path string) {
	if path == "" {
		s.pinned = ""
		fmt.Fprintln(s.out, ui.MetaStyle.Render("following the latest branch"))
		return
	}

	h, err := s.conv.GetHistory(ctx, s.slot, path)
	if err != nil {
		fmt.Fprint(s.out, RenderError(err))
		return
	}
	s.pinned = path
	fmt.Fprint(s.out, RenderHistory(h))
	fmt.Fprintln(s.out, ui.MetaStyle.Render("next message continues from "+path))
}
