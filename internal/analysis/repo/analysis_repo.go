package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/truthguard/service-core/internal/analysis/entity"
	"github.com/truthguard/service-core/internal/kvstore"
)

// AnalysisRepo provides AnalysisRecord access over the record store using the
// analysis_{userId}_{analysisId} key scheme. Embedding the owner in the key is
// what makes the per-user history scan a plain prefix query.
type AnalysisRepo struct {
	store kvstore.Store
}

func NewAnalysisRepo(store kvstore.Store) *AnalysisRepo { return &AnalysisRepo{store: store} }

func analysisKey(userID, analysisID string) string {
	return "analysis_" + userID + "_" + analysisID
}

func userScanPrefix(userID string) string {
	return "analysis_" + userID + "_"
}

// Put upserts a record under its owner-scoped key.
func (r *AnalysisRepo) Put(ctx context.Context, rec *entity.AnalysisRecord) error {
	return r.store.Put(ctx, analysisKey(rec.UserID, rec.ID), rec)
}

// ListByUser returns all records owned by userID, in store order.
func (r *AnalysisRepo) ListByUser(ctx context.Context, userID string) ([]*entity.AnalysisRecord, error) {
	raws, err := r.store.ScanPrefix(ctx, userScanPrefix(userID))
	if err != nil {
		return nil, err
	}
	out := make([]*entity.AnalysisRecord, 0, len(raws))
	for _, raw := range raws {
		var rec entity.AnalysisRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode analysis record: %w", err)
		}
		out = append(out, &rec)
	}
	return out, nil
}
