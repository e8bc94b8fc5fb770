package controllers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/blogapi/middleware"
	"github.com/cppla/blogapi/services"
	"github.com/cppla/blogapi/utils"
)

// UserController serves the current account and public profiles.
type UserController struct {
	svc *services.Service
	log *zap.Logger
}

func NewUserController(svc *services.Service, log *zap.Logger) *UserController {
	return &UserController{svc: svc, log: log}
}

func (u *UserController) Me(ctx *gin.Context) {
	user, err := u.svc.GetProfile(ctx.Request.Context(), middleware.Principal(ctx))
	if err != nil {
		fail(ctx, u.log, err)
		return
	}
	utils.Success(ctx, user)
}

func (u *UserController) UpdateMe(ctx *gin.Context) {
	var req services.UpdateProfileInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx)
		return
	}
	user, err := u.svc.UpdateProfile(ctx.Request.Context(), middleware.Principal(ctx), req)
	if err != nil {
		fail(ctx, u.log, err)
		return
	}
	utils.Success(ctx, user)
}

// DeleteMe removes the account and everything it authored.
func (u *UserController) DeleteMe(ctx *gin.Context) {
	p := middleware.Principal(ctx)
	if p == nil {
		fail(ctx, u.log, services.Unauthenticated("authentication required"))
		return
	}
	if err := u.svc.DeleteUser(ctx.Request.Context(), p, p.ID); err != nil {
		fail(ctx, u.log, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "user deleted"})
}

func (u *UserController) MyPosts(ctx *gin.Context) {
	page, limit, err := parsePagination(ctx)
	if err != nil {
		fail(ctx, u.log, err)
		return
	}
	out, err := u.svc.ListMyPosts(ctx.Request.Context(), middleware.Principal(ctx), page, limit)
	if err != nil {
		fail(ctx, u.log, err)
		return
	}
	utils.Success(ctx, out)
}

func (u *UserController) MyComments(ctx *gin.Context) {
	page, limit, err := parsePagination(ctx)
	if err != nil {
		fail(ctx, u.log, err)
		return
	}
	out, err := u.svc.ListMyComments(ctx.Request.Context(), middleware.Principal(ctx), page, limit)
	if err != nil {
		fail(ctx, u.log, err)
		return
	}
	utils.Success(ctx, out)
}

func (u *UserController) MyLikes(ctx *gin.Context) {
	page, limit, err := parsePagination(ctx)
	if err != nil {
		fail(ctx, u.log, err)
		return
	}
	out, err := u.svc.ListMyLikedPosts(ctx.Request.Context(), middleware.Principal(ctx), page, limit)
	if err != nil {
		fail(ctx, u.log, err)
		return
	}
	utils.Success(ctx, out)
}

// GetUser returns the public profile of a user.
func (u *UserController) GetUser(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	user, err := u.svc.GetUser(ctx.Request.Context(), id)
	if err != nil {
		fail(ctx, u.log, err)
		return
	}
	utils.Success(ctx, user)
}

// DeleteUser is allowed to admins and to the account owner.
func (u *UserController) DeleteUser(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := u.svc.DeleteUser(ctx.Request.Context(), middleware.Principal(ctx), id); err != nil {
		fail(ctx, u.log, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "user deleted"})
}
