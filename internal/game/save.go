package game

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/user/elemelon/internal/types"
)

// SaveVersion is written into every save record
const SaveVersion = "1.0"

// ErrNoSave is returned when a slot is empty or its content is not a valid save
var ErrNoSave = errors.New("no save")

var requiredSaveFields = []string{"version", "timestamp", "player", "progress"}

// NewSaveRecord snapshots the player and progress
func NewSaveRecord(kind types.SaveKind, player *types.PlayerState, progress *types.Progress, seed int64, now time.Time) *types.SaveRecord {
	rec := &types.SaveRecord{
		ID:        uuid.New().String(),
		Version:   SaveVersion,
		Kind:      kind,
		Timestamp: now.UTC(),
		WorldSeed: seed,
		Player: types.SavePlayer{
			Position:     []float64{player.Position.X, player.Position.Y, player.Position.Z},
			Health:       player.Health,
			Stamina:      player.Stamina,
			Tokens:       player.Tokens,
			ActiveWeapon: player.ActiveWeapon,
		},
		Progress: types.Progress{CollectedElements: make(map[types.Element]bool)},
	}
	for i, w := range player.Weapons {
		if w != nil {
			cp := *w
			rec.Player.Weapons[i] = &cp
		}
	}
	for i, c := range player.Consumables {
		if c != nil {
			cp := *c
			rec.Player.Consumables[i] = &cp
		}
	}
	if progress != nil {
		for e, ok := range progress.CollectedElements {
			if ok {
				rec.Progress.CollectedElements[e] = true
			}
		}
		rec.Progress.CompletedTemples = progress.CompletedTemples
		rec.Progress.GameProgress = progress.GameProgress
	}
	return rec
}

// ParseSaveRecord decodes and validates a stored save. Every failure wraps
// ErrNoSave so callers can fall back to a fresh game.
func ParseSaveRecord(data []byte) (*types.SaveRecord, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSave, err)
	}
	for _, field := range requiredSaveFields {
		v, ok := raw[field]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return nil, fmt.Errorf("%w: missing %s", ErrNoSave, field)
		}
	}

	var player map[string]json.RawMessage
	if err := json.Unmarshal(raw["player"], &player); err != nil {
		return nil, fmt.Errorf("%w: player: %v", ErrNoSave, err)
	}
	var pos []float64
	if err := json.Unmarshal(player["position"], &pos); err != nil || len(pos) != 3 {
		return nil, fmt.Errorf("%w: player.position must hold three numbers", ErrNoSave)
	}

	// optional fields keep these defaults when absent
	rec := &types.SaveRecord{
		Kind: types.SaveManual,
		Player: types.SavePlayer{
			Health:  types.MaxHealth,
			Stamina: types.MaxStamina,
		},
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSave, err)
	}
	if rec.Progress.CollectedElements == nil {
		rec.Progress.CollectedElements = make(map[types.Element]bool)
	}
	return rec, nil
}

// EncodeSaveRecord returns the JSON form written by the save stores
func EncodeSaveRecord(rec *types.SaveRecord) ([]byte, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal save record: %w", err)
	}
	return data, nil
}

// ApplySave restores player and progress from rec, clamping every value
// into its valid range.
func ApplySave(rec *types.SaveRecord, player *types.PlayerState, progress *types.Progress) {
	sp := rec.Player
	if len(sp.Position) == 3 {
		player.Position = types.Vec3{X: sp.Position[0], Y: sp.Position[1], Z: sp.Position[2]}
	}
	player.Velocity = types.Vec3{}
	player.Health = clampInt(sp.Health, 0, types.MaxHealth)
	player.Stamina = clampFloat(sp.Stamina, 0, types.MaxStamina)
	player.Tokens = max(sp.Tokens, 0)

	player.Weapons = [types.WeaponSlots]*types.Weapon{}
	for i, w := range sp.Weapons {
		if w != nil {
			cp := *w
			player.Weapons[i] = &cp
		}
	}
	player.Consumables = [types.ConsumableSlots]*types.ConsumableStack{}
	for i, c := range sp.Consumables {
		if c != nil && c.Count > 0 {
			player.Consumables[i] = &types.ConsumableStack{Type: c.Type, Count: min(c.Count, maxStack)}
		}
	}
	player.ActiveWeapon = 0
	if sp.ActiveWeapon >= 0 && sp.ActiveWeapon < types.WeaponSlots {
		player.ActiveWeapon = sp.ActiveWeapon
	}

	progress.CollectedElements = make(map[types.Element]bool)
	for e, ok := range rec.Progress.CollectedElements {
		if ok && e.IsValid() {
			progress.CollectedElements[e] = true
		}
	}
	// the element flags are authoritative; the stored count may disagree
	progress.CompletedTemples = len(progress.CollectedElements)
	progress.Recompute()
}

// SlotFor returns the slot name rec is stored under. Manual slots carry the
// record id so two manual saves never share a slot.
func SlotFor(rec *types.SaveRecord) string {
	switch rec.Kind {
	case types.SaveAuto:
		return "auto"
	case types.SaveQuick:
		return "quick"
	default:
		id := strings.ReplaceAll(strings.ToLower(rec.ID), "-", "")
		if len(id) > 12 {
			id = id[:12]
		}
		return fmt.Sprintf("manual-%d-%s", rec.Timestamp.Unix(), id)
	}
}
