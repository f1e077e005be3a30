package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-escalation-api/internal/dto"
	"github.com/noah-isme/sma-escalation-api/internal/models"
	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
)

const (
	defaultLogPageSize = 50
	maxLogPageSize     = 200
)

type monitoringLogRepository interface {
	Create(ctx context.Context, log *models.MonitoringLog) error
	List(ctx context.Context, filter models.MonitoringLogFilter) ([]models.MonitoringLogView, int, error)
}

// MonitoringService stores classroom engagement observations.
type MonitoringService struct {
	repo      monitoringLogRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

func NewMonitoringService(repo monitoringLogRepository, validate *validator.Validate, logger *zap.Logger) *MonitoringService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitoringService{repo: repo, validator: validate, logger: logger, now: time.Now}
}

// Record stores one observation.
func (s *MonitoringService) Record(ctx context.Context, req dto.CreateMonitoringLogRequest) (*models.MonitoringLog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid monitoring log")
	}
	log := &models.MonitoringLog{
		StudentID: req.StudentID,
		Status:    req.Status,
		Timestamp: s.now().UTC(),
	}
	if req.SubjectID != "" {
		subjectID := req.SubjectID
		log.SubjectID = &subjectID
	}
	if err := s.repo.Create(ctx, log); err != nil {
		return nil, appErrors.Persistence(err, "failed to store monitoring log")
	}
	return log, nil
}

// List returns a page of observations, newest first.
func (s *MonitoringService) List(ctx context.Context, filter models.MonitoringLogFilter) ([]models.MonitoringLogView, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = defaultLogPageSize
	}
	if filter.PageSize > maxLogPageSize {
		filter.PageSize = maxLogPageSize
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Persistence(err, "failed to list monitoring logs")
	}
	return rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}
