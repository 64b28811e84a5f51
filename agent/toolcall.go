package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// ToolCall is a model-proposed invocation after strict parsing. A call that
// could not be parsed keeps its slot and carries ParseErr, so it still gets
// a (failed) result.
type ToolCall struct {
	ID       string
	Name     string
	Args     map[string]any
	RawArgs  string
	ParseErr error
}

// ParseToolCalls converts the raw tool calls of an assistant message, in order.
func ParseToolCalls(msg *schema.Message) []ToolCall {
	if msg == nil || len(msg.ToolCalls) == 0 {
		return nil
	}

	// ids the model supplied; generated ids must not take one of them
	supplied := make(map[string]struct{}, len(msg.ToolCalls))
	for _, raw := range msg.ToolCalls {
		if id := strings.TrimSpace(raw.ID); id != "" {
			supplied[id] = struct{}{}
		}
	}
	used := make(map[string]struct{}, len(msg.ToolCalls))

	calls := make([]ToolCall, 0, len(msg.ToolCalls))
	for i, raw := range msg.ToolCalls {
		call := ToolCall{
			ID:      strings.TrimSpace(raw.ID),
			Name:    strings.TrimSpace(raw.Function.Name),
			RawArgs: strings.TrimSpace(raw.Function.Arguments),
		}
		call.ID = uniqueCallID(call.ID, i, supplied, used)
		if call.RawArgs == "" {
			call.RawArgs = "{}"
		}

		switch {
		case raw.Type != "" && raw.Type != "function":
			call.ParseErr = fmt.Errorf("unsupported tool call type %q", raw.Type)
		case call.Name == "":
			call.ParseErr = errors.New("tool call is missing a name")
		default:
			args, err := decodeArgs(call.RawArgs)
			if err != nil {
				call.ParseErr = err
			}
			call.Args = args
		}
		calls = append(calls, call)
	}
	return calls
}

// uniqueCallID keeps a model-supplied id the first time it appears and
// re-suffixes empty or repeated ids until no other call in the turn has them.
func uniqueCallID(id string, index int, supplied, used map[string]struct{}) string {
	base := id
	if base == "" {
		base = fmt.Sprintf("call_%d", index)
	} else if _, taken := used[base]; !taken {
		used[base] = struct{}{}
		return base
	}

	candidate := base
	for n := 1; ; n++ {
		_, isSupplied := supplied[candidate]
		_, isUsed := used[candidate]
		if !isSupplied && !isUsed {
			break
		}
		candidate = fmt.Sprintf("%s_%d", base, n)
	}
	used[candidate] = struct{}{}
	return candidate
}

func decodeArgs(raw string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, errors.New("tool arguments are not valid JSON")
	}
	switch args := v.(type) {
	case map[string]any:
		return args, nil
	case nil:
		return map[string]any{}, nil
	default:
		return nil, errors.New("tool arguments must be a JSON object")
	}
}

// ToolResult is the outcome of one ToolCall.
type ToolResult struct {
	CallID string
	Name   string
	OK     bool
	Data   any
	Error  string
}

type envelope struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func failure(call ToolCall, msg string) ToolResult {
	return ToolResult{CallID: call.ID, Name: call.Name, OK: false, Error: msg}
}

// Message renders the result as a tool-role message with a JSON envelope.
func (r ToolResult) Message() *schema.Message {
	env := envelope{OK: r.OK, Data: r.Data, Error: r.Error}
	if !r.OK && env.Error == "" {
		env.Error = "tool failed"
	}

	content, err := json.Marshal(env)
	if err != nil {
		content, _ = json.Marshal(envelope{OK: false, Error: "tool result could not be encoded"})
	}

	return &schema.Message{
		Role:       schema.Tool,
		Content:    string(content),
		Name:       r.Name,
		ToolCallID: r.CallID,
	}
}
