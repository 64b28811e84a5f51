package service

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"

	"kennel-portal/agent"
	"kennel-portal/request"
)

// AgentRunner 是 agent.Agent 的最小接口
type AgentRunner interface {
	Handle(ctx context.Context, conversation []*schema.Message, caller *agent.Caller) (string, error)
}

type AgentService struct {
	runner  AgentRunner
	timeout time.Duration
}

func NewAgentService(runner AgentRunner, timeout time.Duration) *AgentService {
	return &AgentService{runner: runner, timeout: timeout}
}

// Reply 解析请求体并运行一次完整的工具调用流程。
// 客户端断开不会中止已经开始的工具执行，整个流程只受 timeout 限制。
func (s *AgentService) Reply(ctx context.Context, body []byte, caller *agent.Caller) (string, error) {
	if caller == nil {
		return "", agent.ErrUnauthorized
	}

	ctx = context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	conversation := request.ParseAgentMessages(body)
	return s.runner.Handle(ctx, conversation, caller)
}
