package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/invoice_audit/utils"
)

const CorrelationHeader = "X-Correlation-Id"

func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Request.Header.Get(CorrelationHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), id))
		c.Writer.Header().Set(CorrelationHeader, id)
		c.Next()
	}
}
