package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/genomewalker/reviewflow-sub001/internal/application"
	"github.com/genomewalker/reviewflow-sub001/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	newPapersCounter prometheus.Counter
	importsCounter   prometheus.Counter
)

func init() {
	newPapersCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "new_papers_added_total",
			Help: "Total number of new papers added to the database.",
		},
	)
	importsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "review_imports_total",
			Help: "Total number of review documents imported.",
		},
	)
	prometheus.MustRegister(newPapersCounter, importsCounter)
}

type Handler struct {
	service *application.ReviewService
	log     *zap.Logger
}

func NewRouter(service *application.ReviewService, log *zap.Logger) http.Handler {
	h := &Handler{service: service, log: log}
	r := chi.NewRouter()

	r.Get("/health", h.handleHealth)
	r.Get("/db/status", h.handleDBStatus)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Get("/papers", h.handleAPIListPapers)
		api.Post("/papers", h.handleAPICreatePaper)
		api.Get("/papers/{paperID}", h.handleAPIGetPaper)
		api.Post("/papers/{paperID}/archive", h.handleAPIArchivePaper)
		api.Delete("/papers/{paperID}", h.handleAPIDeletePaper)

		api.Get("/papers/{paperID}/review-data", h.handleAPIExportReviewData)
		api.Put("/papers/{paperID}/review-data", h.handleAPIImportReviewData)
		api.Patch("/papers/{paperID}/comments/{commentID}", h.handleAPIUpdateComment)

		api.Get("/papers/{paperID}/state/{key}", h.handleAPIGetState)
		api.Put("/papers/{paperID}/state/{key}", h.handleAPISetState)
		api.Get("/papers/{paperID}/chat", h.handleAPIListChat)
		api.Post("/papers/{paperID}/chat", h.handleAPIAppendChat)
		api.Get("/papers/{paperID}/comments/{commentID}/discussions", h.handleAPIListDiscussions)
		api.Post("/papers/{paperID}/comments/{commentID}/discussions", h.handleAPIAddDiscussion)

		api.Get("/settings", h.handleAPIListSettings)
		api.Get("/settings/{key}", h.handleAPIGetSetting)
		api.Put("/settings/{key}", h.handleAPISetSetting)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) handleDBStatus(w http.ResponseWriter, r *http.Request) {
	papers, comments, err := h.service.DatabaseStatus(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"papers":   papers,
		"comments": comments,
		"database": h.service.DatabasePath(),
	})
}

func (h *Handler) handleAPIListPapers(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListPapers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type apiCreatePaperRequest struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Authors        string          `json:"authors"`
	Journal        string          `json:"journal"`
	Field          string          `json:"field"`
	Description    string          `json:"description"`
	SubmissionDate string          `json:"submission_date"`
	ReviewDate     string          `json:"review_date"`
	Config         json.RawMessage `json:"config"`
}

func (h *Handler) handleAPICreatePaper(w http.ResponseWriter, r *http.Request) {
	var req apiCreatePaperRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "title is required"})
		return
	}
	v, err := h.service.AddPaper(r.Context(), domain.PaperInfo{
		ID:             req.ID,
		Title:          req.Title,
		Authors:        req.Authors,
		Journal:        req.Journal,
		Field:          req.Field,
		Description:    req.Description,
		SubmissionDate: req.SubmissionDate,
		ReviewDate:     req.ReviewDate,
		Config:         req.Config,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	newPapersCounter.Inc()
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleAPIGetPaper(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.GetPaper(r.Context(), chi.URLParam(r, "paperID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleAPIArchivePaper(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ArchivePaper(r.Context(), chi.URLParam(r, "paperID")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleAPIDeletePaper(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePaper(r.Context(), chi.URLParam(r, "paperID")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleAPIExportReviewData(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.ExportReviewData(r.Context(), chi.URLParam(r, "paperID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) handleAPIImportReviewData(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unreadable body"})
		return
	}
	doc, err := domain.ParseReviewDocument(body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.service.ImportReviewData(r.Context(), chi.URLParam(r, "paperID"), doc); err != nil {
		h.writeError(w, err)
		return
	}
	importsCounter.Inc()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type apiUpdateCommentRequest struct {
	DraftResponse *string `json:"draft_response"`
	FinalResponse *string `json:"final_response"`
	Status        *string `json:"status"`
}

func (h *Handler) handleAPIUpdateComment(w http.ResponseWriter, r *http.Request) {
	var req apiUpdateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	v, err := h.service.UpdateComment(r.Context(), chi.URLParam(r, "paperID"), chi.URLParam(r, "commentID"), domain.CommentUpdate{
		DraftResponse: req.DraftResponse,
		FinalResponse: req.FinalResponse,
		Status:        req.Status,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleAPIGetState(w http.ResponseWriter, r *http.Request) {
	value, err := h.service.GetAppState(r.Context(), chi.URLParam(r, "paperID"), chi.URLParam(r, "key"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, value)
}

func (h *Handler) handleAPISetState(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil || !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "value must be valid JSON"})
		return
	}
	if err := h.service.SetAppState(r.Context(), chi.URLParam(r, "paperID"), chi.URLParam(r, "key"), body); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleAPIListChat(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid limit"})
			return
		}
		limit = parsed
	}
	items, err := h.service.ListChat(r.Context(), chi.URLParam(r, "paperID"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type apiAppendChatRequest struct {
	CommentID string `json:"comment_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
}

func (h *Handler) handleAPIAppendChat(w http.ResponseWriter, r *http.Request) {
	var req apiAppendChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	if req.Role == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "role is required"})
		return
	}
	v, err := h.service.AppendChat(r.Context(), domain.ChatEntry{
		PaperID:   chi.URLParam(r, "paperID"),
		CommentID: req.CommentID,
		Role:      req.Role,
		Content:   req.Content,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleAPIListDiscussions(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListDiscussions(r.Context(), chi.URLParam(r, "paperID"), chi.URLParam(r, "commentID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type apiAddDiscussionRequest struct {
	ExpertName     string          `json:"expert_name"`
	ExpertIcon     string          `json:"expert_icon"`
	ExpertColor    string          `json:"expert_color"`
	Verdict        string          `json:"verdict"`
	Assessment     string          `json:"assessment"`
	DataAnalysis   json.RawMessage `json:"data_analysis"`
	Recommendation string          `json:"recommendation"`
	KeyDataPoints  []string        `json:"key_data_points"`
}

func (h *Handler) handleAPIAddDiscussion(w http.ResponseWriter, r *http.Request) {
	var req apiAddDiscussionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	v, err := h.service.AddDiscussion(r.Context(), domain.ExpertDiscussion{
		PaperID:        chi.URLParam(r, "paperID"),
		CommentID:      chi.URLParam(r, "commentID"),
		ExpertName:     req.ExpertName,
		ExpertIcon:     req.ExpertIcon,
		ExpertColor:    req.ExpertColor,
		Verdict:        req.Verdict,
		Assessment:     req.Assessment,
		DataAnalysis:   req.DataAnalysis,
		Recommendation: req.Recommendation,
		KeyDataPoints:  req.KeyDataPoints,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleAPIListSettings(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListSettings(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleAPIGetSetting(w http.ResponseWriter, r *http.Request) {
	value, err := h.service.GetSetting(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, value)
}

func (h *Handler) handleAPISetSetting(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil || !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "value must be valid JSON"})
		return
	}
	if err := h.service.SetSetting(r.Context(), chi.URLParam(r, "key"), body); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrDuplicateID):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrMalformedDocument):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	default:
		h.log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
