// Package handler exposes the engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"conscience-engine/internal/engine"
	"conscience-engine/internal/model"
	"conscience-engine/internal/scenario"
	"conscience-engine/internal/service"
)

// Engine is the service surface the handlers call.
type Engine interface {
	StartSession(ctx context.Context, userID string) (*engine.DayOutcome, error)
	GetProfile(ctx context.Context, userID string) (*service.ProfileView, error)
	Scenarios() []scenario.Summary
	Scenario(ctx context.Context, scenarioID string) (*scenario.Definition, error)
	StartScenario(ctx context.Context, userID, scenarioID string) (*model.Playthrough, error)
	MakeChoice(ctx context.Context, userID, scenarioID, chapterID, choiceID string) (*engine.ChoiceOutcome, error)
	WriteJournal(ctx context.Context, userID string, entry model.JournalEntry) (*engine.JournalOutcome, error)
	JournalEntries(ctx context.Context, userID string, limit int) ([]model.JournalEntry, error)
	ListBadges(ctx context.Context, userID string) ([]service.BadgeStatus, error)
	ListQuests(ctx context.Context, userID string) ([]model.DailyQuest, error)
}

// DefaultJournalLimit caps GET /journal when no limit is given.
const DefaultJournalLimit = 20

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

var errBadBody = errors.New("invalid request body")

// Handler serves the engine API.
type Handler struct {
	svc    Engine
	health func(ctx context.Context) error
}

// New creates a Handler. health may be nil.
func New(svc Engine, health func(ctx context.Context) error) *Handler {
	return &Handler{svc: svc, health: health}
}

// Router builds the chi router with the request middleware stack.
func (h *Handler) Router(requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	if requestTimeout > 0 {
		r.Use(middleware.Timeout(requestTimeout))
	}

	r.Get("/health", h.handleHealth)

	r.Route("/scenarios", func(r chi.Router) {
		r.Get("/", h.handleListScenarios)
		r.Get("/{scenarioID}", h.handleGetScenario)
	})

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/", h.handleGetProfile)
		r.Post("/sessions", h.handleStartSession)
		r.Post("/scenarios/{scenarioID}/start", h.handleStartScenario)
		r.Post("/scenarios/{scenarioID}/choices", h.handleMakeChoice)
		r.Post("/journal", h.handleWriteJournal)
		r.Get("/journal", h.handleListJournal)
		r.Get("/badges", h.handleListBadges)
		r.Get("/quests", h.handleListQuests)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Scenarios())
}

func (h *Handler) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	def, err := h.svc.Scenario(r.Context(), chi.URLParam(r, "scenarioID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetProfile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.StartSession(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleStartScenario(w http.ResponseWriter, r *http.Request) {
	pt, err := h.svc.StartScenario(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "scenarioID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pt)
}

type choiceRequest struct {
	ChapterID string `json:"chapterId"`
	ChoiceID  string `json:"choiceId"`
}

func (h *Handler) handleMakeChoice(w http.ResponseWriter, r *http.Request) {
	var req choiceRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if req.ChapterID == "" || req.ChoiceID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "chapterId and choiceId are required"})
		return
	}

	out, err := h.svc.MakeChoice(r.Context(),
		chi.URLParam(r, "userID"), chi.URLParam(r, "scenarioID"), req.ChapterID, req.ChoiceID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type journalRequest struct {
	ScenarioID  string               `json:"scenarioId"`
	ChoicesMade []string             `json:"choicesMade"`
	Reflection  string               `json:"reflection"`
	Emotion     model.JournalEmotion `json:"emotion"`
	RegretLevel int                  `json:"regretLevel"`
	IsPrivate   *bool                `json:"isPrivate"`
}

func (h *Handler) handleWriteJournal(w http.ResponseWriter, r *http.Request) {
	var req journalRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	entry := model.JournalEntry{
		ScenarioID:  req.ScenarioID,
		ChoicesMade: req.ChoicesMade,
		Reflection:  req.Reflection,
		Emotion:     req.Emotion,
		RegretLevel: req.RegretLevel,
		IsPrivate:   true,
	}
	if req.IsPrivate != nil {
		entry.IsPrivate = *req.IsPrivate
	}

	out, err := h.svc.WriteJournal(r.Context(), chi.URLParam(r, "userID"), entry)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) handleListJournal(w http.ResponseWriter, r *http.Request) {
	limit := DefaultJournalLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries, err := h.svc.JournalEntries(r.Context(), chi.URLParam(r, "userID"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleListBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := h.svc.ListBadges(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, badges)
}

func (h *Handler) handleListQuests(w http.ResponseWriter, r *http.Request) {
	quests, err := h.svc.ListQuests(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if quests == nil {
		quests = []model.DailyQuest{}
	}
	writeJSON(w, http.StatusOK, quests)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}
