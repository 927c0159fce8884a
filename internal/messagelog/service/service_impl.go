package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hisaab/internal/accountcontext"
	"github.com/smallbiznis/hisaab/internal/clock"
	"github.com/smallbiznis/hisaab/internal/messagelog/domain"
	obscontext "github.com/smallbiznis/hisaab/internal/observability/context"
	"github.com/smallbiznis/hisaab/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("messagelog.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Append(ctx context.Context, entry domain.Entry) error {
	accountID := entry.AccountID
	if accountID == 0 {
		resolved, ok := accountcontext.AccountIDFromContext(ctx)
		if !ok {
			return domain.ErrInvalidAccount
		}
		accountID = resolved
	}
	relatedType := strings.TrimSpace(entry.RelatedType)
	if relatedType == "" || entry.RelatedID == 0 || strings.TrimSpace(entry.TemplateUsed) == "" {
		return domain.ErrInvalidEntry
	}

	payload := map[string]any{}
	for key, value := range entry.Metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	now := s.clock.Now().UTC()
	row := domain.MessageLog{
		ID:           s.genID.Generate(),
		AccountID:    accountID,
		RelatedType:  relatedType,
		RelatedID:    entry.RelatedID,
		Channel:      strings.TrimSpace(entry.Channel),
		TemplateUsed: strings.TrimSpace(entry.TemplateUsed),
		Outcome:      strings.TrimSpace(entry.Outcome),
		Metadata:     datatypes.JSONMap(payload),
		SentAt:       now,
		CreatedAt:    now,
	}
	if row.Channel == "" {
		row.Channel = "none"
	}
	if row.Outcome == "" {
		row.Outcome = domain.OutcomeRecorded
	}

	if err := s.repo.Insert(ctx, s.db, &row); err != nil {
		s.log.Warn("failed to write message log",
			zap.String("related_type", relatedType),
			zap.String("related_id", entry.RelatedID.String()),
			zap.String("template", row.TemplateUsed),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req domain.ListMessageLogRequest) (domain.ListMessageLogResponse, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.ListMessageLogResponse{}, domain.ErrInvalidAccount
	}

	var cursor *domain.Cursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListMessageLogResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListMessageLogResponse{}, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return domain.ListMessageLogResponse{}, domain.ErrInvalidPageToken
		}
		cursor = &domain.Cursor{ID: id, CreatedAt: createdAt}
	}

	var relatedID snowflake.ID
	if raw := strings.TrimSpace(req.RelatedID); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ListMessageLogResponse{}, domain.ErrInvalidID
		}
		relatedID = parsed
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		AccountID:   accountID,
		RelatedType: req.RelatedType,
		RelatedID:   relatedID,
		Channel:     req.Channel,
		Cursor:      cursor,
		Limit:       pageSize,
	})
	if err != nil {
		return domain.ListMessageLogResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *domain.MessageLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	logs := make([]domain.MessageLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}

	resp := domain.ListMessageLogResponse{MessageLogs: logs}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}
