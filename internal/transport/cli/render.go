package cli

import (
	"fmt"
	"strings"

	"github.com/sandevgo/tuskthread/internal/core"
	"github.com/sandevgo/tuskthread/internal/service/ui"
)

func RenderResult(res *core.SubmitResult) string {
	v := res.Version
	meta := fmt.Sprintf("turn %d, version %d", v.TurnID, v.ID)
	if v.Origin != core.OriginOriginal {
		meta += fmt.Sprintf(" (%s)", v.Origin)
	}
	return fmt.Sprintf("%s %s\n%s\n", ui.AssistantStyle.Render("tusk:"), v.AssistantMessage, ui.MetaStyle.Render(meta))
}

// RenderHistory prints the versions of a path and marks turns that have
// other versions to switch to.
func RenderHistory(h *core.History) string {
	if len(h.Versions) == 0 {
		return ui.MetaStyle.Render("no messages yet") + "\n"
	}

	counts := make(map[int]int, len(h.Branches))
	for _, b := range h.Branches {
		counts[b.TurnID] = len(b.Versions)
	}

	var b strings.Builder
	for _, v := range h.Versions {
		meta := fmt.Sprintf("[%s]", v.Ref())
		if n := counts[v.TurnID]; n > 1 {
			meta += fmt.Sprintf(" %d versions", n)
		}
		fmt.Fprintf(&b, "%s\n%s %s\n%s %s\n\n",
			ui.MetaStyle.Render(meta),
			ui.UserStyle.Render("you:"), v.UserMessage,
			ui.AssistantStyle.Render("tusk:"), v.AssistantMessage,
		)
	}
	return b.String()
}

func RenderVersions(infos []core.TurnInfo) string {
	if len(infos) == 0 {
		return ui.MetaStyle.Render("no turns yet") + "\n"
	}

	var b strings.Builder
	for _, info := range infos {
		parent := "start"
		if !info.Parent.IsRoot() {
			parent = info.Parent.String()
		}
		fmt.Fprintf(&b, "%s %s\n", ui.TitleStyle.UnsetMarginBottom().Render(fmt.Sprintf("turn %d", info.TurnID)), ui.MetaStyle.Render("after "+parent))

		for _, v := range info.Versions {
			line := fmt.Sprintf("  v%d %s", v.VersionID, v.Origin)
			if len(v.Children) > 0 {
				line += fmt.Sprintf(", continued by turn %s", joinInts(v.Children))
			}
			if v.OnActivePath {
				line = ui.ActiveStyle.Render(line + " *")
			}
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

func RenderError(err error) string {
	return ui.ErrorStyle.Render(fmt.Sprintf("%s: %v", core.ErrorKind(err), err)) + "\n"
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
