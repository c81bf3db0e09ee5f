package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"progression-engine/internal/app"
	"progression-engine/internal/domain"
	"progression-engine/internal/logger"
)

// Identity is established by the upstream auth gateway.
const (
	headerUserID = "X-User-ID"
	headerRole   = "X-User-Role"
)

var privilegedRoles = map[string]bool{"admin": true, "owner": true, "instructor": true}

// Handler exposes the engine over JSON/HTTP.
type Handler struct {
	engine *app.Engine
	log    *logger.Logger
}

func NewHandler(engine *app.Engine, log *logger.Logger) *Handler {
	return &Handler{engine: engine, log: log.With("component", "HTTPHandler")}
}

// Router builds the HTTP routes, including the notification socket.
func (h *Handler) Router(ws *WSHandler) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/quizzes", h.createQuiz).Methods(http.MethodPost)
	r.HandleFunc("/quizzes/{quizID}", h.getQuiz).Methods(http.MethodGet)
	r.HandleFunc("/quizzes/{quizID}/submissions", h.submitQuiz).Methods(http.MethodPost)
	r.HandleFunc("/quizzes/{quizID}/attempts", h.listAttempts).Methods(http.MethodGet)

	r.HandleFunc("/users/{userID}", h.registerUser).Methods(http.MethodPut)
	r.HandleFunc("/users/{userID}", h.getUser).Methods(http.MethodGet)
	r.HandleFunc("/users/{userID}/badges/check", h.checkBadges).Methods(http.MethodPost)
	r.HandleFunc("/users/{userID}/achievements/check", h.checkAchievements).Methods(http.MethodPost)
	r.HandleFunc("/users/{userID}/courses/{courseID}/progress", h.recordProgress).Methods(http.MethodPut)

	r.HandleFunc("/awards", h.createAward).Methods(http.MethodPost)
	r.HandleFunc("/awards/{kind}/{awardID}", h.getAward).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard", h.leaderboard).Methods(http.MethodGet)

	if ws != nil {
		r.HandleFunc("/ws", ws.ServeWS)
	}
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(r)
}

type caller struct {
	userID     string
	privileged bool
}

func callerOf(r *http.Request) caller {
	return caller{
		userID:     r.Header.Get(headerUserID),
		privileged: privilegedRoles[r.Header.Get(headerRole)],
	}
}

// actsFor reports whether the caller may act on behalf of userID.
func (c caller) actsFor(userID string) bool {
	return c.privileged || (c.userID != "" && c.userID == userID)
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	c := callerOf(r)
	view, err := h.engine.Catalog.GetQuiz(r.Context(), mux.Vars(r)["quizID"], app.Viewer{UserID: c.userID, Privileged: c.privileged})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	if !callerOf(r).privileged {
		writeStatus(w, http.StatusForbidden, "forbidden", "quiz authoring requires an owner or admin role")
		return
	}
	var quiz domain.Quiz
	if !decode(w, r, &quiz) {
		return
	}
	saved, err := h.engine.Catalog.CreateQuiz(r.Context(), quiz)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

type submitRequest struct {
	Answers   []domain.AnswerSubmission `json:"answers"`
	TimeTaken int                       `json:"timeTaken"`
}

func (h *Handler) submitQuiz(w http.ResponseWriter, r *http.Request) {
	c := callerOf(r)
	if c.userID == "" {
		writeStatus(w, http.StatusUnauthorized, "unauthorized", "missing user identity")
		return
	}
	var req submitRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.engine.SubmitQuiz(r.Context(), mux.Vars(r)["quizID"], c.userID, req.Answers, req.TimeTaken)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) listAttempts(w http.ResponseWriter, r *http.Request) {
	c := callerOf(r)
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = c.userID
	}
	if !c.actsFor(userID) {
		writeStatus(w, http.StatusForbidden, "forbidden", "cannot read another user's attempts")
		return
	}
	attempts, err := h.engine.Attempts.History(r.Context(), userID, mux.Vars(r)["quizID"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	if attempts == nil {
		attempts = []domain.Attempt{}
	}
	writeJSON(w, http.StatusOK, attempts)
}

type registerRequest struct {
	DisplayName string `json:"displayName"`
}

func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	if !callerOf(r).actsFor(userID) {
		writeStatus(w, http.StatusForbidden, "forbidden", "cannot register another user")
		return
	}
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.engine.RegisterUser(r.Context(), userID, req.DisplayName)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	if !callerOf(r).actsFor(userID) {
		writeStatus(w, http.StatusForbidden, "forbidden", "cannot read another user's progress")
		return
	}
	user, err := h.engine.Progress(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) checkBadges(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	if !callerOf(r).actsFor(userID) {
		writeStatus(w, http.StatusForbidden, "forbidden", "cannot check awards for another user")
		return
	}
	res, err := h.engine.Awards.CheckBadges(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"newBadges": nonNil(res.Badges)})
}

func (h *Handler) checkAchievements(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	if !callerOf(r).actsFor(userID) {
		writeStatus(w, http.StatusForbidden, "forbidden", "cannot check awards for another user")
		return
	}
	res, err := h.engine.Awards.CheckAchievements(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"newAchievements": nonNil(res.Achievements),
		"bundledBadges":   nonNil(res.Badges),
	})
}

type progressRequest struct {
	Percent float64 `json:"percent"`
}

func (h *Handler) recordProgress(w http.ResponseWriter, r *http.Request) {
	// Course progress is reported by the enrollment service, never by learners.
	if !callerOf(r).privileged {
		writeStatus(w, http.StatusForbidden, "forbidden", "progress updates require a service or admin role")
		return
	}
	var req progressRequest
	if !decode(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	user, err := h.engine.RecordCourseProgress(r.Context(), vars["userID"], vars["courseID"], req.Percent)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) createAward(w http.ResponseWriter, r *http.Request) {
	if !callerOf(r).privileged {
		writeStatus(w, http.StatusForbidden, "forbidden", "award authoring requires an admin role")
		return
	}
	var award domain.Awardable
	if !decode(w, r, &award) {
		return
	}
	saved, err := h.engine.Awards.CreateAwardable(r.Context(), award)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) getAward(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind := domain.AwardableKind(vars["kind"])
	if kind != domain.KindBadge && kind != domain.KindAchievement {
		writeStatus(w, http.StatusBadRequest, "validation_error", "kind must be badge or achievement")
		return
	}
	award, err := h.engine.Awards.Awardable(r.Context(), kind, vars["awardID"], callerOf(r).privileged)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, award)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeStatus(w, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	lb, err := h.engine.Leaderboard.Get(r.Context(), domain.LeaderboardScope(q.Get("scope")), q.Get("courseId"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps engine errors onto distinct status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsNotFound(err):
		writeStatus(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrLimitExceeded):
		writeStatus(w, http.StatusConflict, "limit_exceeded", err.Error())
	case errors.Is(err, domain.ErrTimeExceeded):
		writeStatus(w, http.StatusUnprocessableEntity, "time_exceeded", err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeStatus(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		h.log.Error("request failed", "error", err)
		writeStatus(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func writeStatus(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorPayload{Code: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeStatus(w, http.StatusBadRequest, "validation_error", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func nonNil(grants []domain.Grant) []domain.Grant {
	if grants == nil {
		return []domain.Grant{}
	}
	return grants
}
