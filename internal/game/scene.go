package game

import (
	"github.com/user/elemelon/internal/interfaces"
	"github.com/user/elemelon/internal/types"
	"go.uber.org/zap"
)

// NopScene discards scene updates
type NopScene struct{}

func (NopScene) AddObject(*types.WorldObject) {}
func (NopScene) RemoveObject(string)          {}

// LogScene reports scene updates to a logger at debug level
type LogScene struct {
	logger *zap.Logger
}

var (
	_ interfaces.SceneSink = NopScene{}
	_ interfaces.SceneSink = (*LogScene)(nil)
)

// NewLogScene creates a scene sink writing to logger
func NewLogScene(logger *zap.Logger) *LogScene {
	return &LogScene{logger: logger}
}

func (s *LogScene) AddObject(obj *types.WorldObject) {
	s.logger.Debug("Scene object added",
		zap.String("id", obj.ID),
		zap.String("kind", string(obj.Kind)),
		zap.Float64("x", obj.Position.X),
		zap.Float64("z", obj.Position.Z))
}

func (s *LogScene) RemoveObject(id string) {
	s.logger.Debug("Scene object removed", zap.String("id", id))
}
