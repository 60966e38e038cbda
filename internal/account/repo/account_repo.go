package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/truthguard/service-core/internal/account/entity"
	"github.com/truthguard/service-core/internal/kvstore"
)

const userKeyPrefix = "user_"

// AccountRepo provides UserRecord access over the record store using the
// user_{principalId} key scheme.
type AccountRepo struct {
	store kvstore.Store
}

func NewAccountRepo(store kvstore.Store) *AccountRepo { return &AccountRepo{store: store} }

func userKey(principalID string) string { return userKeyPrefix + principalID }

// Get returns the record for a principal or kvstore.ErrKeyNotFound.
func (r *AccountRepo) Get(ctx context.Context, principalID string) (*entity.UserRecord, error) {
	raw, err := r.store.Get(ctx, userKey(principalID))
	if err != nil {
		return nil, err
	}
	var rec entity.UserRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode user record %s: %w", principalID, err)
	}
	return &rec, nil
}

// Put upserts the record for a principal (last write wins).
func (r *AccountRepo) Put(ctx context.Context, principalID string, rec *entity.UserRecord) error {
	return r.store.Put(ctx, userKey(principalID), rec)
}

// All returns every stored user record. This is a full user_ prefix scan,
// O(total users); acceptable because its only caller is the rare
// setup-time admin-existence check.
func (r *AccountRepo) All(ctx context.Context) ([]*entity.UserRecord, error) {
	raws, err := r.store.ScanPrefix(ctx, userKeyPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.UserRecord, 0, len(raws))
	for _, raw := range raws {
		var rec entity.UserRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode user record: %w", err)
		}
		out = append(out, &rec)
	}
	return out, nil
}
