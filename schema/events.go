package schema

import (
	"fmt"
	"slices"
	"strings"
)

// FrameType discriminates command channel frames.
type FrameType string

const (
	// FrameCommand carries an outbound command.
	FrameCommand FrameType = "command"
	// FrameResult answers a command that asked for a reply.
	FrameResult FrameType = "result"
	// FrameStateUpdated carries a snapshot payload.
	FrameStateUpdated FrameType = "stateUpdated"
)

// Frame is the envelope exchanged with the authority.
type Frame struct {
	Type    FrameType       `json:"type"`
	Command *CommandRequest `json:"command,omitempty"`
	Result  *CommandResult  `json:"result,omitempty"`
	// Payload is the snapshot JSON text of a stateUpdated frame.
	Payload string `json:"payload,omitempty"`
}

// CommandName names a remote command exposed by the authority.
type CommandName string

const (
	CommandCreateMatch         CommandName = "createMatch"
	CommandSetDisplayTheme     CommandName = "setDisplayTheme"
	CommandSetOperatorTheme    CommandName = "setOperatorTheme"
	CommandStartPause          CommandName = "startPause"
	CommandResetTime           CommandName = "resetTime"
	CommandNextPeriod          CommandName = "nextPeriod"
	CommandStartPregame        CommandName = "startPregame"
	CommandSetPregameCountdown CommandName = "setPregameCountdown"
	CommandScoreLocal          CommandName = "scoreLocal"
	CommandScoreVisit          CommandName = "scoreVisit"
	CommandFoulLocal           CommandName = "foulLocal"
	CommandFoulVisit           CommandName = "foulVisit"
	CommandSetOperatorTemplate CommandName = "setOperatorTemplate"
	CommandSetDisplayTemplate  CommandName = "setDisplayTemplate"
	CommandRequestInitialState CommandName = "requestInitialState"
)

type commandShape struct {
	ints  int
	text  bool
	reply bool
}

var commandShapes = map[CommandName]commandShape{
	CommandCreateMatch:         {ints: 3},
	CommandSetDisplayTheme:     {text: true},
	CommandSetOperatorTheme:    {text: true},
	CommandStartPause:          {},
	CommandResetTime:           {},
	CommandNextPeriod:          {},
	CommandStartPregame:        {},
	CommandSetPregameCountdown: {text: true, reply: true},
	CommandScoreLocal:          {ints: 1},
	CommandScoreVisit:          {ints: 1},
	CommandFoulLocal:           {ints: 1},
	CommandFoulVisit:           {ints: 1},
	CommandSetOperatorTemplate: {text: true},
	CommandSetDisplayTemplate:  {text: true},
	CommandRequestInitialState: {},
}

// CommandRequest is one invocation of a remote command.
type CommandRequest struct {
	ID    string      `json:"id,omitempty"`
	Name  CommandName `json:"name"`
	Ints  []int       `json:"ints,omitempty"`
	Text  string      `json:"text,omitempty"`
	Reply bool        `json:"reply,omitempty"`
}

// CommandResult is the authority's answer to a command sent with Reply set.
type CommandResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Validate checks the command name and argument arity.
func (r CommandRequest) Validate() error {
	shape, ok := commandShapes[r.Name]
	if !ok {
		return fmt.Errorf("unknown command %q", r.Name)
	}
	if len(r.Ints) != shape.ints {
		return fmt.Errorf("%s expects %d integer argument(s), got %d", r.Name, shape.ints, len(r.Ints))
	}
	if !shape.text && strings.TrimSpace(r.Text) != "" {
		return fmt.Errorf("%s takes no text argument", r.Name)
	}
	if shape.reply && r.ID == "" {
		return fmt.Errorf("%s requires an id for its reply", r.Name)
	}
	return nil
}

// ExpectsReply reports whether the command is answered with a result frame.
func (n CommandName) ExpectsReply() bool {
	return commandShapes[n].reply
}

// CommandNames returns every known command name.
func CommandNames() []CommandName {
	out := make([]CommandName, 0, len(commandShapes))
	for name := range commandShapes {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
