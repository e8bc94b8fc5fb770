package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/blogapi/services"
	"github.com/cppla/blogapi/utils"
)

// fail renders a service error in the common envelope.
func fail(ctx *gin.Context, log *zap.Logger, err error) {
	var se *services.Error
	if !errors.As(err, &se) {
		se = services.Unexpected(err)
	}
	switch se.Kind {
	case services.KindNotFound:
		utils.Error(ctx, http.StatusNotFound, 40401, se.Message)
	case services.KindConflict:
		utils.Error(ctx, http.StatusConflict, 40901, se.Message)
	case services.KindForbidden:
		utils.Error(ctx, http.StatusForbidden, 40301, se.Message)
	case services.KindUnauthenticated:
		ctx.Header("WWW-Authenticate", "Bearer")
		utils.Error(ctx, http.StatusUnauthorized, 40101, se.Message)
	case services.KindValidation:
		var data interface{}
		if len(se.Fields) > 0 {
			data = gin.H{"fields": se.Fields}
		}
		utils.Fail(ctx, http.StatusUnprocessableEntity, 42201, se.Message, data)
	default:
		log.Error("request failed",
			zap.String("request_id", ctx.GetString(utils.RequestIDKey)),
			zap.String("path", ctx.FullPath()),
			zap.Error(err),
		)
		utils.Error(ctx, http.StatusInternalServerError, 50001, "internal server error")
	}
}

func badPayload(ctx *gin.Context) {
	utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
}

// parseID reads a positive numeric path parameter.
func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// parsePagination reads ?page and ?limit. Absent values are returned as 0 and
// get the configured defaults in the service; explicit values must be positive
// and the upper bound on limit is checked there.
func parsePagination(ctx *gin.Context) (int, int, error) {
	fields := map[string]string{}
	page, msg := queryPositive(ctx, "page")
	if msg != "" {
		fields["page"] = msg
	}
	limit, msg := queryPositive(ctx, "limit")
	if msg != "" {
		fields["limit"] = msg
	}
	if len(fields) > 0 {
		return 0, 0, services.Validation("invalid pagination", fields)
	}
	return page, limit, nil
}

// queryPositive returns 0 for an absent key and a message for a present value
// that is not a positive integer.
func queryPositive(ctx *gin.Context, key string) (int, string) {
	raw, ok := ctx.GetQuery(key)
	if !ok {
		return 0, ""
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, "must be an integer"
	}
	if n < 1 {
		return 0, "must be at least 1"
	}
	return n, ""
}
