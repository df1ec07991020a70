package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/latestcomment/ai-battle-arena/internal/models"
)

// Snapshot is everything a viewer's page restores on load.
type Snapshot struct {
	Battle *models.Battle
	Votes  *models.VoteTally
	Handle string
}

// LoadSnapshot reads all slots of viewer. Missing slots stay zero.
func LoadSnapshot(ctx context.Context, store Store, viewer string) (Snapshot, error) {
	var snap Snapshot
	if err := loadSlot(ctx, store, viewer, KeyBattle, &snap.Battle); err != nil {
		return Snapshot{}, err
	}
	if err := loadSlot(ctx, store, viewer, KeyVotes, &snap.Votes); err != nil {
		return Snapshot{}, err
	}
	if err := loadSlot(ctx, store, viewer, KeyHandle, &snap.Handle); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func SaveBattle(ctx context.Context, store Store, viewer string, b *models.Battle) error {
	return saveSlot(ctx, store, viewer, KeyBattle, b)
}

func SaveVotes(ctx context.Context, store Store, viewer string, t *models.VoteTally) error {
	return saveSlot(ctx, store, viewer, KeyVotes, t)
}

func SaveHandle(ctx context.Context, store Store, viewer string, handle string) error {
	return saveSlot(ctx, store, viewer, KeyHandle, handle)
}

// ClearBattle drops the battle and vote slots; the voter handle is kept.
func ClearBattle(ctx context.Context, store Store, viewer string) error {
	return store.Delete(ctx, viewer, KeyBattle, KeyVotes)
}

func loadSlot(ctx context.Context, store Store, viewer string, key Key, dest any) error {
	raw, err := store.Get(ctx, viewer, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func saveSlot(ctx context.Context, store Store, viewer string, key Key, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Set(ctx, viewer, key, raw)
}
