package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/elemelon/internal/types"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// World generation configuration
	World WorldConfig `json:"world" yaml:"world"`

	// Player configuration
	Player PlayerConfig `json:"player" yaml:"player"`

	// Temple configuration
	Temple TempleConfig `json:"temple" yaml:"temple"`

	// Shop configuration
	Shop ShopConfig `json:"shop" yaml:"shop"`

	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`
}

// PlacementConfig tunes one placement stage of world generation
type PlacementConfig struct {
	// Number of objects requested
	Count int `json:"count" yaml:"count"`

	// Inner radius of the placement annulus (0 for a disc)
	InnerRadius float64 `json:"inner_radius" yaml:"inner_radius"`

	// Outer radius of the placement annulus
	OuterRadius float64 `json:"outer_radius" yaml:"outer_radius"`

	// Minimum distance between objects of this category
	MinDistance float64 `json:"min_distance" yaml:"min_distance"`

	// Minimum distance from objects placed by earlier stages
	Clearance float64 `json:"clearance" yaml:"clearance"`
}

// WorldConfig holds world generation configuration
type WorldConfig struct {
	// Seed for world generation; 0 picks a time-derived seed
	Seed int64 `json:"seed" yaml:"seed"`

	// Playable radius around spawn
	Radius float64 `json:"radius" yaml:"radius"`

	// No static object is placed closer than this to spawn
	SpawnClearance float64 `json:"spawn_clearance" yaml:"spawn_clearance"`

	// Street spacing and extent
	StreetSpacing float64 `json:"street_spacing" yaml:"street_spacing"`
	StreetExtent  float64 `json:"street_extent" yaml:"street_extent"`

	// Sampler attempts per object
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	Buildings    PlacementConfig `json:"buildings" yaml:"buildings"`
	Temples      PlacementConfig `json:"temples" yaml:"temples"`
	Shops        PlacementConfig `json:"shops" yaml:"shops"`
	NPCs         PlacementConfig `json:"npcs" yaml:"npcs"`
	Collectibles PlacementConfig `json:"collectibles" yaml:"collectibles"`
}

// PlayerConfig holds starting values for a new player
type PlayerConfig struct {
	StartingHealth int `json:"starting_health" yaml:"starting_health"`

	StartingTokens int `json:"starting_tokens" yaml:"starting_tokens"`

	// Movement speeds in units per second
	WalkSpeed float64 `json:"walk_speed" yaml:"walk_speed"`
	RunSpeed  float64 `json:"run_speed" yaml:"run_speed"`

	// Body radius used for collision
	Radius float64 `json:"radius" yaml:"radius"`

	// Radius within which collectibles are picked up
	PickupRadius float64 `json:"pickup_radius" yaml:"pickup_radius"`
}

// TempleConfig holds temple progression configuration
type TempleConfig struct {
	// Puzzles per temple
	PuzzleCount int `json:"puzzle_count" yaml:"puzzle_count"`

	// Distance from the temple center that arms the entrance trigger
	TriggerRadius float64 `json:"trigger_radius" yaml:"trigger_radius"`

	// Tokens granted when a temple completes
	TokenReward int `json:"token_reward" yaml:"token_reward"`
}

// ShopConfig holds shop economy configuration
type ShopConfig struct {
	// Seconds between restocks
	RestockInterval int `json:"restock_interval" yaml:"restock_interval"`

	// Optional path to a JSON catalog overriding Items
	CatalogPath string `json:"catalog_path" yaml:"catalog_path"`

	Items []types.ShopItem `json:"items" yaml:"items"`
}

// DatabaseConfig holds save storage configuration
type DatabaseConfig struct {
	// Save store driver (file, sqlite3)
	Driver string `json:"driver" yaml:"driver"`

	// Directory for the file driver, connection string for sqlite3
	DSN string `json:"dsn" yaml:"dsn"`

	// Seconds between autosaves; 0 disables autosave
	AutosaveInterval int `json:"autosave_interval" yaml:"autosave_interval"`
}

// ServerConfig holds server specific configuration
type ServerConfig struct {
	// Server port
	Port string `json:"port" yaml:"port"`

	// Log level (debug, info, warn, error)
	LogLevel string `json:"log_level" yaml:"log_level"`

	// Simulation ticks per second
	TickRate int `json:"tick_rate" yaml:"tick_rate"`

	// Base URL encoded into world share QR codes
	ShareURL string `json:"share_url" yaml:"share_url"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		World: WorldConfig{
			Seed:           0,
			Radius:         400,
			SpawnClearance: 30,
			StreetSpacing:  60,
			StreetExtent:   240,
			MaxAttempts:    40,
			Buildings: PlacementConfig{
				Count:       80,
				OuterRadius: 250,
				MinDistance: 20,
			},
			Temples: PlacementConfig{
				Count:       types.TempleCount,
				InnerRadius: 150,
				OuterRadius: 350,
				MinDistance: 120,
				Clearance:   40,
			},
			Shops: PlacementConfig{
				Count:       3,
				InnerRadius: 40,
				OuterRadius: 140,
				MinDistance: 25,
				Clearance:   12,
			},
			NPCs: PlacementConfig{
				Count:       12,
				OuterRadius: 220,
				MinDistance: 8,
				Clearance:   8,
			},
			Collectibles: PlacementConfig{
				Count:       40,
				OuterRadius: 320,
				MinDistance: 5,
				Clearance:   5,
			},
		},
		Player: PlayerConfig{
			StartingHealth: types.MaxHealth,
			StartingTokens: 20,
			WalkSpeed:      10,
			RunSpeed:       18,
			Radius:         1,
			PickupRadius:   2.5,
		},
		Temple: TempleConfig{
			PuzzleCount:   3,
			TriggerRadius: 12,
			TokenReward:   100,
		},
		Shop: ShopConfig{
			RestockInterval: 300,
			Items:           DefaultShopItems(),
		},
		Database: DatabaseConfig{
			Driver:           "file",
			DSN:              "./data/saves",
			AutosaveInterval: 120,
		},
		Server: ServerConfig{
			Port:     "8080",
			LogLevel: "info",
			TickRate: 30,
			ShareURL: "elemelon://world",
		},
	}
}

// DefaultShopItems returns the built-in shop catalog
func DefaultShopItems() []types.ShopItem {
	return []types.ShopItem{
		{ID: "health_potion", Name: "Health Potion", Price: 15, Stock: 5, MaxStock: 5, RestockAmount: 2, Consumable: types.ConsumableHealthPotion},
		{ID: "stamina_potion", Name: "Stamina Potion", Price: 10, Stock: 5, MaxStock: 5, RestockAmount: 2, Consumable: types.ConsumableStaminaPotion},
		{ID: "melon", Name: "Melon Slice", Price: 3, Stock: 20, MaxStock: 20, RestockAmount: 10, Consumable: types.ConsumableMelon},
		{ID: "bronze_sword", Name: "Bronze Sword", Price: 60, Stock: 1, MaxStock: 1, RestockAmount: 1,
			Weapon: &types.Weapon{ID: "bronze_sword", Name: "Bronze Sword", Damage: 2, Range: 3, Cooldown: 0.5}},
		{ID: "elemental_blade", Name: "Elemental Blade", Price: 250, Stock: 1, MaxStock: 1, RestockAmount: 1, MinTemplesCompleted: 1,
			Weapon: &types.Weapon{ID: "elemental_blade", Name: "Elemental Blade", Damage: 5, Range: 4, Cooldown: 0.6}},
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg Config) error {
	var errs []error

	switch cfg.Server.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	switch cfg.Database.Driver {
	case "file", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is invalid; valid values: file, sqlite3", cfg.Database.Driver))
	}
	if cfg.World.Radius <= 0 {
		errs = append(errs, errors.New("world.radius must be positive"))
	}
	if cfg.World.MaxAttempts <= 0 {
		errs = append(errs, errors.New("world.max_attempts must be positive"))
	}
	if cfg.World.Temples.Count != types.TempleCount {
		errs = append(errs, fmt.Errorf("world.temples.count must be %d", types.TempleCount))
	}
	for name, p := range map[string]PlacementConfig{
		"buildings":    cfg.World.Buildings,
		"temples":      cfg.World.Temples,
		"shops":        cfg.World.Shops,
		"npcs":         cfg.World.NPCs,
		"collectibles": cfg.World.Collectibles,
	} {
		if p.Count < 0 {
			errs = append(errs, fmt.Errorf("world.%s.count must not be negative", name))
		}
		if p.OuterRadius <= p.InnerRadius {
			errs = append(errs, fmt.Errorf("world.%s.outer_radius must exceed inner_radius", name))
		}
	}
	if cfg.Player.StartingHealth < 0 || cfg.Player.StartingHealth > types.MaxHealth {
		errs = append(errs, fmt.Errorf("player.starting_health must be within [0,%d]", types.MaxHealth))
	}
	if cfg.Player.StartingTokens < 0 {
		errs = append(errs, errors.New("player.starting_tokens must not be negative"))
	}
	if cfg.Temple.PuzzleCount < 1 {
		errs = append(errs, errors.New("temple.puzzle_count must be at least 1"))
	}
	if cfg.Server.TickRate <= 0 {
		errs = append(errs, errors.New("server.tick_rate must be positive"))
	}

	return errors.Join(errs...)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// LoadConfig loads configuration from a file. JSON is the default format;
// .yaml and .yml files are decoded as YAML.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return config, err
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Create default config file
		if err := SaveConfig(config, path); err != nil {
			return config, err
		}
		return config, nil
	}

	// Read config file
	file, err := os.Open(path)
	if err != nil {
		return config, err
	}
	defer file.Close()

	if isYAML(path) {
		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)
		if err := decoder.Decode(&config); err != nil {
			return config, fmt.Errorf("config: decode yaml: %w", err)
		}
	} else {
		decoder := json.NewDecoder(file)
		if err := decoder.Decode(&config); err != nil {
			return config, fmt.Errorf("config: decode json: %w", err)
		}
	}

	if err := Validate(config); err != nil {
		return config, err
	}

	return config, nil
}

// SaveConfig saves configuration to a file
func SaveConfig(config Config, path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Create or truncate file
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if isYAML(path) {
		encoder := yaml.NewEncoder(file)
		defer encoder.Close()
		return encoder.Encode(config)
	}

	// Write config to file
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return err
	}

	return nil
}
