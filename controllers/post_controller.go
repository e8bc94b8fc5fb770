package controllers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/blogapi/middleware"
	"github.com/cppla/blogapi/services"
	"github.com/cppla/blogapi/utils"
)

// PostController manages posts and their likes.
type PostController struct {
	svc   *services.Service
	cache *utils.Cache
	log   *zap.Logger
}

// NewPostController creates a new PostController instance. cache is the one
// holding the tag list, which post writes may extend.
func NewPostController(svc *services.Service, cache *utils.Cache, log *zap.Logger) *PostController {
	return &PostController{svc: svc, cache: cache, log: log}
}

// ListPosts returns visible posts, optionally narrowed by ?search.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, limit, err := parsePagination(ctx)
	if err != nil {
		fail(ctx, p.log, err)
		return
	}
	out, err := p.svc.ListPosts(ctx.Request.Context(), middleware.Principal(ctx), services.ListPostsInput{
		Page:   page,
		Limit:  limit,
		Search: ctx.Query("search"),
	})
	if err != nil {
		fail(ctx, p.log, err)
		return
	}
	utils.Success(ctx, out)
}

func (p *PostController) CreatePost(ctx *gin.Context) {
	var req services.CreatePostInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx)
		return
	}
	post, err := p.svc.CreatePost(ctx.Request.Context(), middleware.Principal(ctx), req)
	if err != nil {
		fail(ctx, p.log, err)
		return
	}
	if len(req.Tags) > 0 {
		p.cache.InvalidateByPrefix(ctx.Request.Context(), tagsCachePrefix)
	}
	utils.Created(ctx, post)
}

// GetPost answers 404 for posts the caller may not see.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	post, err := p.svc.GetPost(ctx.Request.Context(), middleware.Principal(ctx), id)
	if err != nil {
		fail(ctx, p.log, err)
		return
	}
	utils.Success(ctx, post)
}

func (p *PostController) GetPostWithLike(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	post, err := p.svc.GetPostWithLikeStatus(ctx.Request.Context(), middleware.Principal(ctx), id)
	if err != nil {
		fail(ctx, p.log, err)
		return
	}
	utils.Success(ctx, post)
}

func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req services.UpdatePostInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx)
		return
	}
	post, err := p.svc.UpdatePost(ctx.Request.Context(), middleware.Principal(ctx), id, req)
	if err != nil {
		fail(ctx, p.log, err)
		return
	}
	// get-or-create may have inserted tags
	if req.Tags != nil && len(*req.Tags) > 0 {
		p.cache.InvalidateByPrefix(ctx.Request.Context(), tagsCachePrefix)
	}
	utils.Success(ctx, post)
}

func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := p.svc.DeletePost(ctx.Request.Context(), middleware.Principal(ctx), id); err != nil {
		fail(ctx, p.log, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

func (p *PostController) LikesCount(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	n, err := p.svc.PostLikesCount(ctx.Request.Context(), middleware.Principal(ctx), id)
	if err != nil {
		fail(ctx, p.log, err)
		return
	}
	utils.Success(ctx, gin.H{"post_id": id, "likes_count": n})
}

func (p *PostController) Like(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	like, err := p.svc.LikePost(ctx.Request.Context(), middleware.Principal(ctx), id)
	if err != nil {
		fail(ctx, p.log, err)
		return
	}
	utils.Created(ctx, like)
}

func (p *PostController) Unlike(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := p.svc.UnlikePost(ctx.Request.Context(), middleware.Principal(ctx), id); err != nil {
		fail(ctx, p.log, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "like removed"})
}

// Stats returns like and comment counts of a visible post.
func (p *PostController) Stats(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	st, err := p.svc.PostStats(ctx.Request.Context(), middleware.Principal(ctx), id)
	if err != nil {
		fail(ctx, p.log, err)
		return
	}
	utils.Success(ctx, st)
}
