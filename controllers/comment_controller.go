package controllers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/blogapi/middleware"
	"github.com/cppla/blogapi/services"
	"github.com/cppla/blogapi/utils"
)

// CommentController manages comments nested under a post.
type CommentController struct {
	svc *services.Service
	log *zap.Logger
}

func NewCommentController(svc *services.Service, log *zap.Logger) *CommentController {
	return &CommentController{svc: svc, log: log}
}

// List returns the comments of a published post, oldest first.
func (c *CommentController) List(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	comments, err := c.svc.ListPostComments(ctx.Request.Context(), postID)
	if err != nil {
		fail(ctx, c.log, err)
		return
	}
	utils.Success(ctx, comments)
}

func (c *CommentController) Create(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req services.CommentInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx)
		return
	}
	comment, err := c.svc.CreateComment(ctx.Request.Context(), middleware.Principal(ctx), postID, req)
	if err != nil {
		fail(ctx, c.log, err)
		return
	}
	utils.Created(ctx, comment)
}

func (c *CommentController) Update(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	commentID, ok := parseID(ctx, "commentId")
	if !ok {
		return
	}
	var req services.CommentInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx)
		return
	}
	comment, err := c.svc.UpdateComment(ctx.Request.Context(), middleware.Principal(ctx), postID, commentID, req)
	if err != nil {
		fail(ctx, c.log, err)
		return
	}
	utils.Success(ctx, comment)
}

func (c *CommentController) Delete(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	commentID, ok := parseID(ctx, "commentId")
	if !ok {
		return
	}
	if err := c.svc.DeleteComment(ctx.Request.Context(), middleware.Principal(ctx), postID, commentID); err != nil {
		fail(ctx, c.log, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}
