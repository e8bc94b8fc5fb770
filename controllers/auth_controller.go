package controllers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/blogapi/middleware"
	"github.com/cppla/blogapi/services"
	"github.com/cppla/blogapi/utils"
)

// AuthController handles registration, login and logout.
type AuthController struct {
	svc *services.Service
	log *zap.Logger
}

func NewAuthController(svc *services.Service, log *zap.Logger) *AuthController {
	return &AuthController{svc: svc, log: log}
}

// Register creates a reader or author account.
func (a *AuthController) Register(ctx *gin.Context) {
	var req services.RegisterInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx)
		return
	}
	user, err := a.svc.Register(ctx.Request.Context(), req)
	if err != nil {
		fail(ctx, a.log, err)
		return
	}
	utils.Created(ctx, user)
}

// Login accepts a JSON body or a urlencoded form with username and password.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" form:"username"`
		Password string `json:"password" form:"password"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		badPayload(ctx)
		return
	}
	res, err := a.svc.Login(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(ctx, a.log, err)
		return
	}
	utils.Success(ctx, res)
}

// Logout revokes the bearer token of the current request.
func (a *AuthController) Logout(ctx *gin.Context) {
	if err := a.svc.Logout(ctx.Request.Context(), middleware.Token(ctx)); err != nil {
		fail(ctx, a.log, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}
