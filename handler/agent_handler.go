package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"kennel-portal/agent"
	"kennel-portal/auth"
	"kennel-portal/models"
	"kennel-portal/observability"
	"kennel-portal/service"
)

// maxAgentBody 限制请求体大小
const maxAgentBody = 1 << 20

type AgentHandler struct {
	svc *service.AgentService
}

func NewAgentHandler(svc *service.AgentService) *AgentHandler {
	return &AgentHandler{svc: svc}
}

// Chat 处理 POST /api/agent
func (h *AgentHandler) Chat(c *gin.Context) {
	caller := auth.CallerFrom(c)
	if caller == nil {
		c.JSON(http.StatusUnauthorized, models.AgentError{Error: "Unauthorized"})
		return
	}

	// 读取失败按空对话处理，超长直接拒绝
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxAgentBody+1))
	if err != nil {
		body = nil
	}
	if len(body) > maxAgentBody {
		logger := observability.FromContext(c.Request.Context())
		logger.Warn().Int("limit", maxAgentBody).Msg("agent request body too large")
		c.JSON(http.StatusRequestEntityTooLarge, models.AgentError{Error: "Request body too large"})
		return
	}

	reply, err := h.svc.Reply(c.Request.Context(), body, caller)
	if err != nil {
		logger := observability.FromContext(c.Request.Context())
		switch {
		case errors.Is(err, agent.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, models.AgentError{Error: "Unauthorized"})
		case errors.Is(err, context.DeadlineExceeded):
			logger.Error().Err(err).Msg("agent request timed out")
			c.JSON(http.StatusGatewayTimeout, models.AgentError{Error: "The assistant took too long to answer"})
		default:
			logger.Error().Err(err).Msg("agent request failed")
			c.JSON(http.StatusBadGateway, models.AgentError{Error: "The assistant is unavailable right now"})
		}
		return
	}

	c.JSON(http.StatusOK, models.AgentReply{Reply: reply})
}
