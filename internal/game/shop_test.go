package game

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/elemelon/config"
	"github.com/user/elemelon/internal/observe"
	"github.com/user/elemelon/internal/types"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

var shopEpoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testCatalog() []types.ShopItem {
	return []types.ShopItem{
		{ID: "melon", Name: "Melon Slice", Price: 3, Stock: 2, MaxStock: 4, RestockAmount: 1, Consumable: types.ConsumableMelon},
		{ID: "great_axe", Name: "Great Axe", Price: 100, Stock: 1, MaxStock: 1, RestockAmount: 1,
			Weapon: &types.Weapon{ID: "great_axe", Name: "Great Axe", Damage: 4, Range: 3, Cooldown: 1}},
		{ID: "relic", Name: "Relic", Price: 5, Stock: 1, MaxStock: 1, MinTemplesCompleted: 2, Consumable: types.ConsumableHealthPotion},
	}
}

func stockOf(s *Shop, id string) int {
	it, _ := s.Item(id)
	return it.Stock
}

func TestPurchaseInsufficientTokens(t *testing.T) {
	shop := NewShop(testCatalog(), time.Minute, shopEpoch)
	p := newTestPlayer()
	require.Equal(t, 20, p.State.Tokens)

	err := shop.Purchase(p, types.NewProgress(), "great_axe")

	assert.ErrorIs(t, err, ErrInsufficientTokens)
	assert.Equal(t, 20, p.State.Tokens)
	assert.Equal(t, 1, stockOf(shop, "great_axe"))
	assert.Nil(t, p.State.Weapons[1])
}

func TestPurchase(t *testing.T) {
	shop := NewShop(testCatalog(), time.Minute, shopEpoch)
	p := newTestPlayer()
	p.AddTokens(100)

	require.NoError(t, shop.Purchase(p, types.NewProgress(), "great_axe"))
	assert.Equal(t, 20, p.State.Tokens)
	assert.Zero(t, stockOf(shop, "great_axe"))
	require.NotNil(t, p.State.Weapons[1])
	assert.Equal(t, "great_axe", p.State.Weapons[1].ID)

	require.NoError(t, shop.Purchase(p, types.NewProgress(), "melon"))
	assert.Equal(t, 17, p.State.Tokens)
	assert.Equal(t, types.ConsumableStack{Type: types.ConsumableMelon, Count: 1}, *p.State.Consumables[0])
}

func TestPurchaseRejections(t *testing.T) {
	full := newTestPlayer()
	full.AddTokens(500)
	require.NoError(t, full.AddConsumable(types.ConsumableHealthPotion, types.ConsumableSlots*10))

	tests := []struct {
		name     string
		player   *Player
		progress *types.Progress
		item     string
		want     error
	}{
		{"unknown item", newTestPlayer(), types.NewProgress(), "dragon_egg", ErrUnknownItem},
		{"prerequisite", newTestPlayer(), types.NewProgress(), "relic", ErrPrerequisite},
		{"inventory full", full, types.NewProgress(), "melon", ErrInventoryFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shop := NewShop(testCatalog(), time.Minute, shopEpoch)
			tokens := tt.player.State.Tokens

			err := shop.Purchase(tt.player, tt.progress, tt.item)

			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tokens, tt.player.State.Tokens)
			assert.Equal(t, testCatalog(), shop.Items())
		})
	}
}

func TestPurchasePrerequisiteMet(t *testing.T) {
	shop := NewShop(testCatalog(), time.Minute, shopEpoch)
	progress := types.NewProgress()
	progress.CompletedTemples = 2

	assert.NoError(t, shop.Purchase(newTestPlayer(), progress, "relic"))
}

func TestPurchaseOutOfStockAndRestock(t *testing.T) {
	shop := NewShop(testCatalog(), time.Minute, shopEpoch)
	p := newTestPlayer()

	require.NoError(t, shop.Purchase(p, nil, "melon"))
	require.NoError(t, shop.Purchase(p, nil, "melon"))
	assert.ErrorIs(t, shop.Purchase(p, nil, "melon"), ErrOutOfStock)
	assert.Equal(t, 14, p.State.Tokens)

	assert.False(t, shop.Restock(shopEpoch.Add(30*time.Second)), "interval not elapsed")
	assert.Zero(t, stockOf(shop, "melon"))

	assert.True(t, shop.Restock(shopEpoch.Add(time.Minute)))
	assert.Equal(t, 1, stockOf(shop, "melon"))

	for i := 2; i <= 10; i++ {
		shop.Restock(shopEpoch.Add(time.Duration(i) * time.Minute))
	}
	assert.Equal(t, 4, stockOf(shop, "melon"), "restock stops at max stock")
}

func TestRestockDisabled(t *testing.T) {
	shop := NewShop(testCatalog(), 0, shopEpoch)
	assert.False(t, shop.Restock(shopEpoch.Add(24*time.Hour)))
}

func TestDefaultCatalogIsSellable(t *testing.T) {
	shop := NewShop(config.DefaultShopItems(), time.Minute, shopEpoch)
	p := newTestPlayer()

	require.NoError(t, shop.Purchase(p, types.NewProgress(), "health_potion"))
	assert.Equal(t, 5, p.State.Tokens)
	assert.ErrorIs(t, shop.Purchase(p, types.NewProgress(), "elemental_blade"), ErrPrerequisite)
}

func TestPurchaseMetricsBoundUnknownItems(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	require.NoError(t, err)

	shop := NewShop(testCatalog(), time.Minute, shopEpoch)
	shop.SetMetrics(m)
	p := newTestPlayer()
	for i := 0; i < 50; i++ {
		assert.ErrorIs(t, shop.Purchase(p, types.NewProgress(), fmt.Sprintf("bogus-%d", i)), ErrUnknownItem)
	}
	require.NoError(t, shop.Purchase(p, types.NewProgress(), "melon"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	items := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != "elemelon.shop.purchases" {
				continue
			}
			sum, ok := met.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value("item")
				items[v.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"unknown": 50, "melon": 1}, items)
}
