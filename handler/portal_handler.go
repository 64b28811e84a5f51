package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kennel-portal/auth"
	"kennel-portal/models"
	"kennel-portal/service"
)

type PortalHandler struct {
	svc *service.PortalService
}

func NewPortalHandler(svc *service.PortalService) *PortalHandler {
	return &PortalHandler{svc: svc}
}

// ListPuppies 处理 GET /api/puppies?status=&limit=
func (h *PortalHandler) ListPuppies(c *gin.Context) {
	q := service.PuppyQuery{Status: c.Query("status"), Limit: c.Query("limit")}
	respond(c, h.svc.ListPuppies(c.Request.Context(), q))
}

func (h *PortalHandler) ListLitters(c *gin.Context) {
	respond(c, h.svc.ListLitters(c.Request.Context()))
}

func (h *PortalHandler) ListApplications(c *gin.Context) {
	respond(c, h.svc.ListApplications(c.Request.Context(), auth.CallerFrom(c)))
}

func (h *PortalHandler) ListMessages(c *gin.Context) {
	respond(c, h.svc.ListMessages(c.Request.Context(), auth.CallerFrom(c)))
}

// respond 根据响应中的error字段判断HTTP状态码
func respond(c *gin.Context, response models.StandardResponse) {
	statusCode := http.StatusOK
	switch response.Error {
	case models.CodeNoError:
	case models.CodeInvalidRequest:
		statusCode = http.StatusBadRequest
	case models.CodeUnauthorized:
		statusCode = http.StatusUnauthorized
	default:
		statusCode = http.StatusInternalServerError
	}
	c.JSON(statusCode, response)
}
