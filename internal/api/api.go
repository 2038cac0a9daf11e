// Package api serves the hospital REST surface used by the staff dashboard.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"hospital-chat/internal/store"

	"github.com/gin-gonic/gin"
)

// storeError maps a store failure onto a response. what names the entity in
// 404 and 409 bodies, action the operation in 500 bodies.
func storeError(c *gin.Context, err error, what, action string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
	case errors.Is(err, store.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": what + " already exists"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action, "details": err.Error()})
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func page(c *gin.Context) store.Page {
	return store.Page{Limit: queryInt(c, "limit", 50), StartAfter: c.Query("startAfter")}
}

// nonNil keeps empty lists as [] in responses.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
