package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/formaplan/trainer-booking/internal/models"
	appErrors "github.com/formaplan/trainer-booking/pkg/errors"
)

const competencyCachePrefix = "competency:software:"

type trainerRepository interface {
	ListBySoftware(ctx context.Context, softwareID string) ([]models.Trainer, error)
}

// CompetencyService resolves which trainers may deliver a software product.
type CompetencyService struct {
	repo   trainerRepository
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewCompetencyService constructs the resolver. cache may be nil.
func NewCompetencyService(repo trainerRepository, cache *CacheService, ttl time.Duration, logger *zap.Logger) *CompetencyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompetencyService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// TrainersFor returns the active trainers with any competency for softwareID.
// An empty id or no match yields an empty slice.
func (s *CompetencyService) TrainersFor(ctx context.Context, softwareID string) ([]models.Trainer, error) {
	softwareID = strings.TrimSpace(softwareID)
	if softwareID == "" {
		return []models.Trainer{}, nil
	}

	key := competencyCachePrefix + softwareID
	var cached []models.Trainer
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	trainers, err := s.repo.ListBySoftware(ctx, softwareID)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to resolve trainers for software")
	}
	if trainers == nil {
		trainers = []models.Trainer{}
	}
	_ = s.cache.Set(ctx, key, trainers, s.ttl)
	return trainers, nil
}

// Invalidate drops the cached trainer list of one software, or of all when softwareID is empty.
func (s *CompetencyService) Invalidate(ctx context.Context, softwareID string) error {
	pattern := competencyCachePrefix + "*"
	if id := strings.TrimSpace(softwareID); id != "" {
		pattern = competencyCachePrefix + id
	}
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to invalidate competency cache")
	}
	return nil
}
