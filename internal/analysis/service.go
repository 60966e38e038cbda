package analysis

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/truthguard/service-core/internal/analysis/entity"
	"github.com/truthguard/service-core/internal/analysis/repo"
	"github.com/truthguard/service-core/internal/kvstore"
)

// ErrInvalidRecord rejects payloads outside the closed type/status enums or
// with an out-of-range credibility score.
var ErrInvalidRecord = errors.New("invalid analysis record")

// SaveInput is an analysis result as submitted by a caller: everything except
// the generated id, the owner and the timestamp, which the service stamps.
type SaveInput struct {
	Type             entity.Kind   `json:"type"`
	Title            string        `json:"title"`
	Content          string        `json:"content"`
	CredibilityScore float64       `json:"credibilityScore"`
	Status           entity.Status `json:"status"`
}

// Service stores and lists per-user analysis history.
type Service struct {
	repo *repo.AnalysisRepo
}

func NewService(store kvstore.Store) *Service {
	return &Service{repo: repo.NewAnalysisRepo(store)}
}

// Save validates the payload, assigns a fresh id and createdAt, and writes the
// record under the owner's key space. userID must be the verified principal id.
func (s *Service) Save(ctx context.Context, userID string, in SaveInput) (string, error) {
	if !in.Type.Valid() || !in.Status.Valid() {
		return "", ErrInvalidRecord
	}
	if in.CredibilityScore < 0 || in.CredibilityScore > 100 {
		return "", ErrInvalidRecord
	}

	rec := &entity.AnalysisRecord{
		ID:               uuid.NewString(),
		UserID:           userID,
		Type:             in.Type,
		Title:            in.Title,
		Content:          in.Content,
		CredibilityScore: in.CredibilityScore,
		Status:           in.Status,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.repo.Put(ctx, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// List returns the caller's history, most recent first. An empty history is an
// empty slice, never an error.
func (s *Service) List(ctx context.Context, userID string) ([]*entity.AnalysisRecord, error) {
	recs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs, nil
}
