package handler

import (
	"net/http"

	"app/internal/service"

	"github.com/rs/zerolog"
)

// CatalogHandler serves the CMS-backed catalog with live pricing merged in.
type CatalogHandler struct {
	catalogSvc service.CatalogService
	logger     zerolog.Logger
}

func NewCatalogHandler(catalogSvc service.CatalogService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc, logger: logger}
}

// RegisterRoutes mounts the catalog endpoints.
func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux, mw func(http.Handler) http.Handler) {
	mux.Handle("GET /catalog/plans", mw(http.HandlerFunc(h.ListPlans)))
	mux.Handle("GET /catalog/plans/{slug}", mw(http.HandlerFunc(h.GetPlan)))
	mux.Handle("GET /catalog/plans/by-code/{code}", mw(http.HandlerFunc(h.GetPlanByCode)))
	mux.Handle("GET /catalog/articles", mw(http.HandlerFunc(h.ListArticles)))
	mux.Handle("GET /catalog/articles/{slug}", mw(http.HandlerFunc(h.GetArticle)))
	mux.Handle("GET /catalog/test", mw(http.HandlerFunc(h.Test)))
}

// ListPlans godoc
// @Summary List catalog entries with live plan pricing
// @Tags catalog
// @Produce json
// @Success 200 {object} map[string]any
// @Router /catalog/plans [get]
func (h *CatalogHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.catalogSvc.ListPlans(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

// GetPlan godoc
// @Summary Get one catalog entry by slug
// @Tags catalog
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /catalog/plans/{slug} [get]
func (h *CatalogHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.catalogSvc.GetPlanBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if plan == nil {
		writeError(w, http.StatusNotFound, "Plan not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plan": plan})
}

// GetPlanByCode godoc
// @Summary Get the catalog entry carrying a billing plan code
// @Tags catalog
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /catalog/plans/by-code/{code} [get]
func (h *CatalogHandler) GetPlanByCode(w http.ResponseWriter, r *http.Request) {
	plan, err := h.catalogSvc.GetPlanByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if plan == nil {
		writeError(w, http.StatusNotFound, "Plan not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plan": plan})
}

// Test godoc
// @Summary CMS connectivity diagnostic
// @Description Lists the document types present in the dataset.
// @Tags catalog
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 500 {object} map[string]any
// @Router /catalog/test [get]
func (h *CatalogHandler) Test(w http.ResponseWriter, r *http.Request) {
	types, err := h.catalogSvc.DocumentTypes(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":      false,
			"error":        "Failed to query Sanity",
			"errorMessage": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"documentTypes": types,
	})
}

// ListArticles godoc
// @Summary List published articles
// @Tags catalog
// @Produce json
// @Success 200 {object} map[string]any
// @Router /catalog/articles [get]
func (h *CatalogHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := h.catalogSvc.ListArticles(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": articles})
}

// GetArticle godoc
// @Summary Get one article by slug, body rendered as plain text
// @Tags catalog
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /catalog/articles/{slug} [get]
func (h *CatalogHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	article, err := h.catalogSvc.GetArticleBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if article == nil {
		writeError(w, http.StatusNotFound, "Article not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"article": article})
}
