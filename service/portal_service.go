package service

import (
	"context"
	"errors"
	"strings"

	"kennel-portal/agent"
	"kennel-portal/helper"
	"kennel-portal/models"
	"kennel-portal/observability"
)

const (
	applicationPageSize = 20
	messagePageSize     = 50
)

// PortalStore 门户只读接口需要的数据访问
type PortalStore interface {
	ListPuppies(ctx context.Context, filter models.PuppyFilter) ([]models.Puppy, error)
	ListApplications(ctx context.Context, userID string, limit int) ([]models.Application, error)
	ListMessages(ctx context.Context, userID string, limit int) ([]models.BreederMessage, error)
}

type PortalService struct {
	store PortalStore
}

func NewPortalService(store PortalStore) *PortalService {
	return &PortalService{store: store}
}

// PuppyQuery 是 /api/puppies 的查询参数，空字符串表示未传
type PuppyQuery struct {
	Status string
	Limit  string
}

// ListPuppies 与 list_available_puppies 工具使用同样的默认值和范围。status=ALL 返回所有状态。
func (s *PortalService) ListPuppies(ctx context.Context, q PuppyQuery) models.StandardResponse {
	args := map[string]any{}
	all := strings.EqualFold(strings.TrimSpace(q.Status), "all")
	if q.Status != "" && !all {
		args["status"] = q.Status
	}
	if q.Limit != "" {
		args["limit"] = q.Limit
	}

	in, err := agent.ValidateListPuppies(args)
	if err != nil {
		return models.Fail(models.CodeInvalidRequest, err)
	}
	filter := models.PuppyFilter{Status: in.Status, Limit: in.Limit}
	if all {
		filter.Status = ""
	}

	puppies, err := s.store.ListPuppies(ctx, filter)
	if err != nil {
		return operationFailed(ctx, "list puppies", err)
	}
	return models.OK(puppies)
}

// ListLitters 返回按窝分组的全部幼犬
func (s *PortalService) ListLitters(ctx context.Context) models.StandardResponse {
	puppies, err := s.store.ListPuppies(ctx, models.PuppyFilter{})
	if err != nil {
		return operationFailed(ctx, "list litters", err)
	}
	return models.OK(helper.GroupLitters(puppies))
}

func (s *PortalService) ListApplications(ctx context.Context, caller *agent.Caller) models.StandardResponse {
	if caller == nil {
		return models.Fail(models.CodeUnauthorized, agent.ErrUnauthorized)
	}
	apps, err := s.store.ListApplications(ctx, caller.UserID, applicationPageSize)
	if err != nil {
		return operationFailed(ctx, "list applications", err)
	}
	return models.OK(apps)
}

func (s *PortalService) ListMessages(ctx context.Context, caller *agent.Caller) models.StandardResponse {
	if caller == nil {
		return models.Fail(models.CodeUnauthorized, agent.ErrUnauthorized)
	}
	msgs, err := s.store.ListMessages(ctx, caller.UserID, messagePageSize)
	if err != nil {
		return operationFailed(ctx, "list messages", err)
	}
	return models.OK(msgs)
}

// operationFailed 记录完整错误，只向客户端返回概要
func operationFailed(ctx context.Context, op string, err error) models.StandardResponse {
	logger := observability.FromContext(ctx)
	logger.Error().Err(err).Str("op", op).Msg("portal query failed")
	return models.Fail(models.CodeOperationFailed, errors.New(op+" failed"))
}
