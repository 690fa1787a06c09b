package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sandevgo/tuskthread/internal/core"
)

type Kind int

const (
	KindSend Kind = iota
	KindEdit
	KindRegenerate
	KindHistory
	KindVersions
	KindSwitch
	KindClear
	KindHelp
	KindExit
)

// Command is one parsed REPL line.
type Command struct {
	Kind    Kind
	Message string
	TurnID  int
	// Path is a version path for /history and /switch.
	Path string
}

const usage = `/edit N text    replace the message of turn N and answer it again
/regen N        answer the message of turn N again as a new turn
/history [T:V]  show the active path, or the path through version T:V
/versions [N]   list the versions of turn N, or of every turn
/switch [T:V]   continue from version T:V with the next message; no argument resets
/clear          forget this conversation
/help           show this help
exit            leave`

// Parse reads a REPL line. Anything that is not a command is a message.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "exit" || line == "/exit" {
		return Command{Kind: KindExit}, nil
	}
	if !strings.HasPrefix(line, "/") {
		return Command{Kind: KindSend, Message: line}, nil
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "/edit":
		turn, text, _ := strings.Cut(rest, " ")
		id, err := turnID(turn)
		if err != nil {
			return Command{}, err
		}
		if strings.TrimSpace(text) == "" {
			return Command{}, fmt.Errorf("%w: /edit needs a turn and the new message", core.ErrInvalidRequest)
		}
		return Command{Kind: KindEdit, TurnID: id, Message: strings.TrimSpace(text)}, nil

	case "/regen":
		id, err := turnID(rest)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindRegenerate, TurnID: id}, nil

	case "/history":
		return Command{Kind: KindHistory, Path: rest}, nil

	case "/versions":
		if rest == "" {
			return Command{Kind: KindVersions}, nil
		}
		id, err := turnID(rest)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindVersions, TurnID: id}, nil

	case "/switch":
		return Command{Kind: KindSwitch, Path: rest}, nil

	case "/clear":
		return Command{Kind: KindClear}, nil

	case "/help":
		return Command{Kind: KindHelp}, nil
	}

	return Command{}, fmt.Errorf("%w: unknown command %s, try /help", core.ErrInvalidRequest, name)
}

func turnID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %q is not a turn number", core.ErrInvalidRequest, s)
	}
	return id, nil
}
