package intercept

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sunbk201/appbundle/internal/route"
)

// Wire names of the supported actions.
const (
	ActionAddAlias        = "addAlias"
	ActionClearAllAliases = "clearAllAliases"
)

// Command is one of AddRule or ClearRules.
type Command interface {
	command()
}

// AddRule registers a caller alias.
type AddRule struct {
	Match       string
	Replace     string
	Replacement string
	Redirect    bool
}

// ClearRules drops every caller alias.
type ClearRules struct{}

func (AddRule) command()    {}
func (ClearRules) command() {}

func (c AddRule) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("action", ActionAddAlias),
		slog.String("match", c.Match),
		slog.String("replace", c.Replace),
		slog.String("replacement", c.Replacement),
		slog.Bool("redirect", c.Redirect),
	)
}

func (c ClearRules) LogValue() slog.Value {
	return slog.GroupValue(slog.String("action", ActionClearAllAliases))
}

// Execute applies cmd to table.
func Execute(table *route.Table, cmd Command) error {
	switch c := cmd.(type) {
	case AddRule:
		return table.AddRule(c.Match, c.Replace, c.Replacement, c.Redirect)
	case ClearRules:
		table.Reset()
		return nil
	default:
		return fmt.Errorf("%w: unsupported command %T", route.ErrOperationFailed, cmd)
	}
}

// Request is the wire form of a command.
type Request struct {
	Action string            `json:"action"`
	Args   []json.RawMessage `json:"args"`
}

// Decode turns a wire request into a Command. Unknown actions and malformed
// arguments are refused with route.ErrOperationFailed.
func (r Request) Decode() (Command, error) {
	switch r.Action {
	case ActionAddAlias:
		if len(r.Args) != 4 {
			return nil, fmt.Errorf("%w: %s expects 4 arguments, got %d", route.ErrOperationFailed, r.Action, len(r.Args))
		}
		var c AddRule
		for i, dst := range []any{&c.Match, &c.Replace, &c.Replacement, &c.Redirect} {
			if err := decodeArg(r.Args[i], dst); err != nil {
				return nil, fmt.Errorf("%w: %s argument %d: %v", route.ErrOperationFailed, r.Action, i, err)
			}
		}
		return c, nil
	case ActionClearAllAliases:
		if len(r.Args) != 0 {
			return nil, fmt.Errorf("%w: %s expects no arguments, got %d", route.ErrOperationFailed, r.Action, len(r.Args))
		}
		return ClearRules{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action %q", route.ErrOperationFailed, r.Action)
	}
}

func decodeArg(raw json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return errors.New("missing value")
	}
	return json.Unmarshal(raw, dst)
}
