package request

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed agent_request.schema.json
var agentRequestSchema []byte

// AgentMessage 对话中的一条消息
type AgentMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AgentRequest 定义 agent 接口的请求体
type AgentRequest struct {
	Messages []AgentMessage `json:"messages"`
}

var compiledSchema *gojsonschema.Schema

func init() {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(agentRequestSchema))
	if err != nil {
		panic(fmt.Sprintf("agent request schema: %v", err))
	}
	compiledSchema = s
}

// Validate 校验请求体结构
func Validate(body []byte) error {
	if !json.Valid(body) {
		return errors.New("body is not valid JSON")
	}
	result, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("schema validation errors: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// ParseAgentMessages 解析请求体中的对话。结构不合法时返回空对话而不是报错，
// 只保留 user 和 assistant 两种角色。
func ParseAgentMessages(body []byte) []*schema.Message {
	out := []*schema.Message{}
	if err := Validate(body); err != nil {
		return out
	}

	var req AgentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return out
	}

	for _, m := range req.Messages {
		switch strings.ToLower(strings.TrimSpace(m.Role)) {
		case string(schema.User):
			out = append(out, schema.UserMessage(m.Content))
		case string(schema.Assistant):
			out = append(out, schema.AssistantMessage(m.Content, nil))
		}
	}
	return out
}
