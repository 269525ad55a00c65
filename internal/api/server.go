package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/elemelon/config"
	"github.com/user/elemelon/internal/game"
	"github.com/user/elemelon/internal/interfaces"
	"github.com/user/elemelon/internal/observe"
	"github.com/user/elemelon/internal/types"
	"go.uber.org/zap"
)

// defaultNearbyRadius is used by /nearby when no radius is given
const defaultNearbyRadius = 50.0

// Server exposes a game session over HTTP
type Server struct {
	gameManager interfaces.GameManager
	config      config.Config
	logger      *zap.Logger
	metrics     *observe.Metrics
	commands    *CommandProcessor
}

// NewServer creates a new HTTP front end for gameManager
func NewServer(gameManager interfaces.GameManager, cfg config.Config, logger *zap.Logger, metrics *observe.Metrics) *Server {
	return &Server{
		gameManager: gameManager,
		config:      cfg,
		logger:      logger,
		metrics:     metrics,
		commands:    NewCommandProcessor(gameManager),
	}
}

// HTTPServer wraps the router in an http.Server listening on the configured port
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              ":" + s.config.Server.Port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Router builds the chi router with every route
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(observe.Middleware(s.metrics, s.logger))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(s.requireReady)

		r.Get("/status", s.handleStatus)
		r.Get("/temples", s.handleTemples)
		r.Get("/nearby", s.handleNearby)
		r.Get("/world/objects", s.handleObjects)
		r.Get("/world/seed.png", s.handleSeedQR)
		r.Get("/shop", s.handleShop)
		r.Get("/saves", s.handleListSaves)

		r.Post("/input", s.handleInput)
		r.Post("/shop/buy", s.handleBuy)
		r.Post("/temples/{element}/puzzles/{puzzle}", s.handleSolvePuzzle)
		r.Post("/bosses/{target}/attack", s.handleAttack)
		r.Post("/consumables/{slot}", s.handleUseConsumable)
		r.Post("/weapons/{index}", s.handleSelectWeapon)
		r.Post("/save", s.handleSave)
		r.Post("/load/{slot}", s.handleLoad)
		r.Post("/command", s.handleCommand)
	})

	// regenerating also works before the first world exists
	router.Post("/world/regenerate", s.handleRegenerate)

	return router
}

func (s *Server) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.gameManager.IsReady() {
			writeError(w, http.StatusServiceUnavailable, game.ErrNotReady)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps game errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrNotReady), errors.Is(err, game.ErrNoStore):
		return http.StatusServiceUnavailable
	case errors.Is(err, game.ErrUnknownItem),
		errors.Is(err, game.ErrUnknownTemple),
		errors.Is(err, game.ErrUnknownPuzzle),
		errors.Is(err, game.ErrNoSave):
		return http.StatusNotFound
	case errors.Is(err, game.ErrInvalidSlot):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrInsufficientTokens),
		errors.Is(err, game.ErrOutOfStock),
		errors.Is(err, game.ErrPrerequisite),
		errors.Is(err, game.ErrInventoryFull),
		errors.Is(err, game.ErrEmptySlot),
		errors.Is(err, game.ErrTempleLocked),
		errors.Is(err, game.ErrBossNotActive),
		errors.Is(err, game.ErrOutOfRange),
		errors.Is(err, game.ErrWeaponCooldown):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeError(w, status, err)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.gameManager.Status()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleTemples(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.gameManager.Temples())
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	radius := defaultNearbyRadius
	if v := r.URL.Query().Get("radius"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("radius must be a positive number"))
			return
		}
		radius = parsed
	}
	writeJSON(w, http.StatusOK, s.gameManager.Nearby(radius))
}

func (s *Server) handleObjects(w http.ResponseWriter, r *http.Request) {
	kind := types.ObjectKind(r.URL.Query().Get("kind"))
	writeJSON(w, http.StatusOK, s.gameManager.Objects(kind))
}

func (s *Server) handleSeedQR(w http.ResponseWriter, r *http.Request) {
	png, err := SeedQRCode(s.config.Server.ShareURL, s.gameManager.WorldSeed())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (s *Server) handleShop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.gameManager.ShopItems())
}

func (s *Server) handleListSaves(w http.ResponseWriter, r *http.Request) {
	saves, err := s.gameManager.ListSaves()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saves)
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var input types.InputState
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid input"))
		return
	}
	s.gameManager.SetInput(input)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID string `json:"item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" {
		writeError(w, http.StatusBadRequest, errors.New("item_id is required"))
		return
	}
	if err := s.gameManager.Buy(req.ItemID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.handleStatus(w, r)
}

func (s *Server) handleSolvePuzzle(w http.ResponseWriter, r *http.Request) {
	element := types.Element(chi.URLParam(r, "element"))
	puzzleID := chi.URLParam(r, "puzzle")
	if err := s.gameManager.SolvePuzzle(element, puzzleID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.handleTemples(w, r)
}

func (s *Server) handleAttack(w http.ResponseWriter, r *http.Request) {
	if err := s.gameManager.AttackBoss(chi.URLParam(r, "target")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.handleTemples(w, r)
}

func (s *Server) handleUseConsumable(w http.ResponseWriter, r *http.Request) {
	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil {
		writeError(w, http.StatusBadRequest, game.ErrInvalidSlot)
		return
	}
	if err := s.gameManager.UseConsumable(slot); err != nil {
		s.fail(w, r, err)
		return
	}
	s.handleStatus(w, r)
}

func (s *Server) handleSelectWeapon(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, game.ErrInvalidSlot)
		return
	}
	if err := s.gameManager.SelectWeapon(index); err != nil {
		s.fail(w, r, err)
		return
	}
	s.handleStatus(w, r)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	kind := types.SaveManual
	switch k := types.SaveKind(r.URL.Query().Get("kind")); k {
	case "":
	case types.SaveManual, types.SaveQuick:
		kind = k
	default:
		writeError(w, http.StatusBadRequest, errors.New("kind must be manual or quick"))
		return
	}
	summary, err := s.gameManager.SaveGame(kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")
	loaded, err := s.gameManager.LoadGame(slot)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slot": slot, "loaded": loaded})
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seed int64 `json:"seed"`
	}
	// an empty body, chunked or not, asks for a time-derived seed
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, errors.New("invalid seed"))
		return
	}
	if err := s.gameManager.Regenerate(req.Seed); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("World regenerated", zap.Int64("seed", s.gameManager.WorldSeed()))
	writeJSON(w, http.StatusOK, map[string]int64{"seed": s.gameManager.WorldSeed()})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid command"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": s.commands.Process(req.Command)})
}
