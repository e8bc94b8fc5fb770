package controllers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/blogapi/middleware"
	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/services"
	"github.com/cppla/blogapi/utils"
)

const (
	tagsCachePrefix  = "cache:tags:"
	tagsCacheKey     = tagsCachePrefix + "list"
	statusesCacheKey = "cache:statuses:list"
)

// TaxonomyController serves tags and statuses. Both lists are small, change
// rarely and are the same for every caller, so they go through the cache.
type TaxonomyController struct {
	svc   *services.Service
	cache *utils.Cache
	log   *zap.Logger
}

func NewTaxonomyController(svc *services.Service, cache *utils.Cache, log *zap.Logger) *TaxonomyController {
	return &TaxonomyController{svc: svc, cache: cache, log: log}
}

func (t *TaxonomyController) ListTags(ctx *gin.Context) {
	var tags []models.Tag
	if t.cache.GetJSON(ctx.Request.Context(), tagsCacheKey, &tags) {
		utils.Success(ctx, tags)
		return
	}
	tags, err := t.svc.ListTags(ctx.Request.Context())
	if err != nil {
		fail(ctx, t.log, err)
		return
	}
	t.cache.SetJSON(ctx.Request.Context(), tagsCacheKey, tags)
	utils.Success(ctx, tags)
}

func (t *TaxonomyController) CreateTag(ctx *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx)
		return
	}
	tag, err := t.svc.CreateTag(ctx.Request.Context(), middleware.Principal(ctx), req.Name)
	if err != nil {
		fail(ctx, t.log, err)
		return
	}
	t.cache.InvalidateByPrefix(ctx.Request.Context(), tagsCachePrefix)
	utils.Created(ctx, tag)
}

// PostsByTag lists posts of a tag; ?status is honoured for admins and authors only.
func (t *TaxonomyController) PostsByTag(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	page, limit, err := parsePagination(ctx)
	if err != nil {
		fail(ctx, t.log, err)
		return
	}
	out, err := t.svc.ListPostsByTag(ctx.Request.Context(), middleware.Principal(ctx), id, ctx.Query("status"), page, limit)
	if err != nil {
		fail(ctx, t.log, err)
		return
	}
	utils.Success(ctx, out)
}

func (t *TaxonomyController) ListStatuses(ctx *gin.Context) {
	var statuses []models.Status
	if t.cache.GetJSON(ctx.Request.Context(), statusesCacheKey, &statuses) {
		utils.Success(ctx, statuses)
		return
	}
	statuses, err := t.svc.ListStatuses(ctx.Request.Context())
	if err != nil {
		fail(ctx, t.log, err)
		return
	}
	t.cache.SetJSON(ctx.Request.Context(), statusesCacheKey, statuses)
	utils.Success(ctx, statuses)
}

func (t *TaxonomyController) CreateStatus(ctx *gin.Context) {
	var req services.CreateStatusInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx)
		return
	}
	status, err := t.svc.CreateStatus(ctx.Request.Context(), middleware.Principal(ctx), req)
	if err != nil {
		fail(ctx, t.log, err)
		return
	}
	t.cache.Invalidate(ctx.Request.Context(), statusesCacheKey)
	utils.Created(ctx, status)
}
