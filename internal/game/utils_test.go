package game

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/elemelon/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadShopCatalog(t *testing.T) {
	path := writeFile(t, "shop.json", `[
		{"id": "melon", "name": "Melon", "price": 2, "stock": 9, "max_stock": 9, "consumable": "melon"},
		{"id": "spear", "name": "Spear", "price": 80, "stock": 1, "weapon": {"id": "spear", "damage": 3, "range": 4}}
	]`)

	items, err := NewDataLoader().LoadShopCatalog(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "melon", items[0].ID)
	require.NotNil(t, items[1].Weapon)
	assert.Equal(t, 4.0, items[1].Weapon.Range)
}

func TestLoadShopCatalogErrors(t *testing.T) {
	loader := NewDataLoader()

	_, err := loader.LoadShopCatalog(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = loader.LoadShopCatalog(writeFile(t, "bad.json", `{"id": "melon"}`))
	assert.Error(t, err)

	_, err = loader.LoadShopCatalog(writeFile(t, "dup.json", `[{"id": "a", "price": 1}, {"id": "a", "price": 2}]`))
	assert.ErrorContains(t, err, "duplicate")

	_, err = loader.LoadShopCatalog(writeFile(t, "neg.json", `[{"id": "a", "price": -1}]`))
	assert.Error(t, err)
}

func TestDiceRollerDeterministic(t *testing.T) {
	a, b := NewDiceRoller(99), NewDiceRoller(99)
	for i := 0; i < 50; i++ {
		ra := a.Roll(6)
		assert.Equal(t, ra, b.Roll(6))
		assert.GreaterOrEqual(t, ra, 1)
		assert.LessOrEqual(t, ra, 6)
	}
	assert.Equal(t, 1, a.Roll(0))
}

func TestTickLoopRunsUntilCancelled(t *testing.T) {
	gm := NewGameManager(config.DefaultConfig())
	require.NoError(t, gm.Start(42))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewTickLoop(gm, 100).Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("tick loop did not stop")
	}
	assert.True(t, gm.IsReady())
}
