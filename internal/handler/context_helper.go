package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-api/internal/middleware"
	"github.com/noah-isme/admission-api/internal/service"
	appErrors "github.com/noah-isme/admission-api/pkg/errors"
)

func sessionFromContext(c *gin.Context) (*service.ApplicationManager, error) {
	manager := middleware.SessionFrom(c)
	if manager == nil {
		return nil, appErrors.ErrNotAuthenticated
	}
	return manager, nil
}

func queryBool(c *gin.Context, key string) bool {
	value, err := strconv.ParseBool(c.Query(key))
	return err == nil && value
}
