package errors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Err writes an error response, mapping *Error codes onto HTTP status.
func Err(c *gin.Context, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = wrap(http.StatusInternalServerError, "internal error", err)
	}
	c.AbortWithStatusJSON(e.Code, gin.H{
		"error": e.Message,
	})
}

// RecoveryMiddleware turns handler panics into 500 responses.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("http handler panic")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal error",
				})
			}
		}()
		c.Next()
	}
}

// ErrorHandlerMiddleware reports errors attached to the gin context.
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		log.Err(err).Str("path", c.Request.URL.Path).Msg("http handler error")
		if !c.Writer.Written() {
			Err(c, err)
		}
	}
}
