package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/elemelon/internal/observe"
	"github.com/user/elemelon/internal/types"
	"go.uber.org/zap"
)

var (
	ErrUnknownItem  = errors.New("unknown item")
	ErrPrerequisite = errors.New("item prerequisite not met")
	ErrOutOfStock   = errors.New("item out of stock")
)

// Shop sells consumables and weapons for tokens
type Shop struct {
	items       []*types.ShopItem
	index       map[string]*types.ShopItem
	interval    time.Duration
	lastRestock time.Time

	logger  *zap.Logger
	metrics *observe.Metrics
}

// NewShop creates a shop from a catalog. now is the reference time for the
// first restock; interval <= 0 disables restocking.
func NewShop(catalog []types.ShopItem, interval time.Duration, now time.Time) *Shop {
	s := &Shop{
		index:       make(map[string]*types.ShopItem, len(catalog)),
		interval:    interval,
		lastRestock: now,
		logger:      zap.NewNop(),
	}
	for _, item := range catalog {
		it := item
		if it.Weapon != nil {
			w := *it.Weapon
			it.Weapon = &w
		}
		if it.MaxStock < it.Stock {
			it.MaxStock = it.Stock
		}
		s.items = append(s.items, &it)
		s.index[it.ID] = &it
	}
	return s
}

// SetLogger sets the logger
func (s *Shop) SetLogger(logger *zap.Logger) {
	s.logger = logger
}

// SetMetrics sets the metrics recorder
func (s *Shop) SetMetrics(m *observe.Metrics) {
	s.metrics = m
}

// Items returns a copy of the catalog in display order
func (s *Shop) Items() []types.ShopItem {
	out := make([]types.ShopItem, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, *it)
	}
	return out
}

// Item looks up a single catalog entry
func (s *Shop) Item(id string) (types.ShopItem, bool) {
	it, ok := s.index[id]
	if !ok {
		return types.ShopItem{}, false
	}
	return *it, true
}

// unknownItemLabel is the metric item label of ids missing from the catalog
const unknownItemLabel = "unknown"

// Purchase sells one unit of itemID to player. On error neither the
// player's tokens nor the shop stock change.
func (s *Shop) Purchase(player *Player, progress *types.Progress, itemID string) error {
	err := s.purchase(player, progress, itemID)
	status := "ok"
	if err != nil {
		status = purchaseStatus(err)
		s.logger.Debug("Purchase rejected",
			zap.String("item", itemID),
			zap.Int("tokens", player.State.Tokens),
			zap.Error(err))
	} else {
		s.logger.Info("Item purchased",
			zap.String("item", itemID),
			zap.Int("tokens_left", player.State.Tokens))
	}
	label := itemID
	if _, ok := s.index[itemID]; !ok {
		// ids outside the catalog come from clients and would grow the series set
		label = unknownItemLabel
	}
	s.metrics.RecordPurchase(context.Background(), label, status)
	return err
}

func (s *Shop) purchase(player *Player, progress *types.Progress, itemID string) error {
	item, ok := s.index[itemID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}
	completed := 0
	if progress != nil {
		completed = progress.CompletedTemples
	}
	if completed < item.MinTemplesCompleted {
		return fmt.Errorf("%w: %s needs %d completed temples", ErrPrerequisite, itemID, item.MinTemplesCompleted)
	}
	if item.Stock <= 0 {
		return ErrOutOfStock
	}
	if player.State.Tokens < item.Price {
		return ErrInsufficientTokens
	}
	switch {
	case item.Weapon != nil:
		if !player.hasWeaponRoom() {
			return ErrInventoryFull
		}
	case item.Consumable != "":
		if player.consumableRoom(item.Consumable) < 1 {
			return ErrInventoryFull
		}
	}

	if err := player.SpendTokens(item.Price); err != nil {
		return err
	}
	item.Stock--
	if item.Weapon != nil {
		return player.EquipWeapon(item.Weapon)
	}
	if item.Consumable != "" {
		return player.AddConsumable(item.Consumable, 1)
	}
	return nil
}

// Restock replenishes every item by its restock amount when the restock
// interval has elapsed since the last restock. It reports whether it ran.
func (s *Shop) Restock(now time.Time) bool {
	if s.interval <= 0 || now.Sub(s.lastRestock) < s.interval {
		return false
	}
	for _, it := range s.items {
		it.Stock = min(it.Stock+it.RestockAmount, it.MaxStock)
	}
	s.lastRestock = now
	s.logger.Debug("Shop restocked", zap.Time("at", now))
	return true
}

func purchaseStatus(err error) string {
	switch {
	case errors.Is(err, ErrUnknownItem):
		return "unknown_item"
	case errors.Is(err, ErrPrerequisite):
		return "prerequisite"
	case errors.Is(err, ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, ErrInsufficientTokens):
		return "insufficient_tokens"
	case errors.Is(err, ErrInventoryFull):
		return "inventory_full"
	default:
		return "error"
	}
}
