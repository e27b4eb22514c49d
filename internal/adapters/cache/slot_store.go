package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
	"github.com/phoenixclinic/bookingcore/internal/domain/providers"
	redisclient "github.com/phoenixclinic/bookingcore/internal/infrastructure/clients/redis"
	apperrors "github.com/phoenixclinic/bookingcore/pkg/errors"
)

const slotKeyPrefix = "slots:"

func slotKey(clinicID, month string) string {
	return slotKeyPrefix + clinicID + ":" + month
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// RedisSlotStore implements the SlotStore interface using Redis. Each
// clinic month bucket is one JSON value replaced atomically on refresh.
type RedisSlotStore struct {
	client *redisclient.Client
}

// NewRedisSlotStore creates a new Redis-backed slot store
func NewRedisSlotStore(client *redisclient.Client) providers.SlotStore {
	return &RedisSlotStore{client: client}
}

// Snapshot returns the cached slots for a clinic month
func (s *RedisSlotStore) Snapshot(ctx context.Context, clinicID, month string) ([]entities.Slot, error) {
	raw, err := s.client.Client().Get(ctx, slotKey(clinicID, month)).Bytes()
	if err == redis.Nil {
		return []entities.Slot{}, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError("reading slot bucket", err)
	}

	var slots []entities.Slot
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, apperrors.NewInternalError("decoding slot bucket", err)
	}
	return slots, nil
}

// ReplaceSnapshot merges fresh slots with the current bucket and writes
// the result in one SET. An unchanged bucket is not rewritten.
func (s *RedisSlotStore) ReplaceSnapshot(ctx context.Context, clinicID, month string, slots []entities.Slot) ([]entities.Slot, bool, error) {
	current, err := s.Snapshot(ctx, clinicID, month)
	if err != nil {
		return nil, false, err
	}

	merged := MergeSlots(current, slots)
	SortSlots(merged)

	currentRaw, err := json.Marshal(current)
	if err != nil {
		return nil, false, apperrors.NewInternalError("encoding slot bucket", err)
	}
	mergedRaw, err := json.Marshal(merged)
	if err != nil {
		return nil, false, apperrors.NewInternalError("encoding slot bucket", err)
	}
	if bytes.Equal(currentRaw, mergedRaw) {
		return merged, false, nil
	}

	if err := s.client.Client().Set(ctx, slotKey(clinicID, month), mergedRaw, 0).Err(); err != nil {
		return nil, false, apperrors.NewStoreUnavailableError("writing slot bucket", err)
	}
	return merged, true, nil
}

// FindSlot looks a slot up by id, first in the requested month, then
// across the clinic's other cached months.
func (s *RedisSlotStore) FindSlot(ctx context.Context, clinicID, month, slotID string) (*entities.Slot, error) {
	slots, err := s.Snapshot(ctx, clinicID, month)
	if err != nil {
		return nil, err
	}
	for i := range slots {
		if slots[i].ID == slotID {
			return &slots[i], nil
		}
	}

	pattern := slotKey(clinicID, "*")
	iter := s.client.Client().Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if key == slotKey(clinicID, month) {
			continue
		}
		others, err := s.Snapshot(ctx, clinicID, strings.TrimPrefix(key, slotKeyPrefix+clinicID+":"))
		if err != nil {
			continue
		}
		for i := range others {
			if others[i].ID == slotID {
				return &others[i], nil
			}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, apperrors.NewStoreUnavailableError("scanning slot buckets", err)
	}
	return nil, apperrors.NewNotFoundError("slot not found: " + slotID)
}

// MarkUnavailable flips a slot to unavailable and records who took it
func (s *RedisSlotStore) MarkUnavailable(ctx context.Context, clinicID, month, slotID, reservedBy string) ([]entities.Slot, error) {
	slots, err := s.Snapshot(ctx, clinicID, month)
	if err != nil {
		return nil, err
	}

	found := false
	now := nowUTC()
	for i := range slots {
		if slots[i].ID == slotID {
			slots[i].Available = false
			slots[i].ReservedBy = reservedBy
			slots[i].ReservedAt = &now
			found = true
			break
		}
	}
	if !found {
		return nil, apperrors.NewNotFoundError("slot not found: " + slotID)
	}

	if err := s.write(ctx, clinicID, month, slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (s *RedisSlotStore) write(ctx context.Context, clinicID, month string, slots []entities.Slot) error {
	raw, err := json.Marshal(slots)
	if err != nil {
		return apperrors.NewInternalError("encoding slot bucket", err)
	}
	if err := s.client.Client().Set(ctx, slotKey(clinicID, month), raw, 0).Err(); err != nil {
		return apperrors.NewStoreUnavailableError("writing slot bucket", err)
	}
	return nil
}

// MergeSlots combines a fresh fetch with the current bucket. Fresh data
// wins except for slots the system itself has reserved: an unavailable
// slot with a recorded holder stays unavailable even when the portal
// still lists the opening, because the booking may not have landed on
// the portal yet. Slots absent from the fresh fetch are gone.
func MergeSlots(current, fresh []entities.Slot) []entities.Slot {
	reserved := make(map[string]entities.Slot, len(current))
	for _, s := range current {
		if !s.Available && s.ReservedBy != "" {
			reserved[s.ID] = s
		}
	}

	out := make([]entities.Slot, 0, len(fresh))
	seen := make(map[string]struct{}, len(fresh))
	for _, s := range fresh {
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		if held, ok := reserved[s.ID]; ok {
			out = append(out, held)
			continue
		}
		out = append(out, s)
	}
	return out
}

// SortSlots orders slots by date then time then provider, in place.
func SortSlots(slots []entities.Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Date != slots[j].Date {
			return slots[i].Date < slots[j].Date
		}
		if slots[i].Time != slots[j].Time {
			return slots[i].Time < slots[j].Time
		}
		return slots[i].ProviderID < slots[j].ProviderID
	})
}
