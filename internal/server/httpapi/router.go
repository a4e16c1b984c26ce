package httpapi

import (
	"net/http"
	"strings"

	"github.com/documo/documo/internal/server/auth"
	"github.com/gin-gonic/gin"
)

// operatorAuth verifies the bearer token on back-office routes and stashes
// the operator ID on the context.
func operatorAuth(secretKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		operatorID, err := auth.GetOperatorIDFromToken(token, secretKey)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set("operatorID", operatorID)
		c.Next()
	}
}

// NewRouter wires all routes. Uploader-facing routes are public by design;
// possession of a live share token is their access control.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/token", h.IssueToken)
		v1.GET("/share/:token", h.ResolveShare)
		v1.GET("/document-types", h.ListDocumentTypes)
		v1.GET("/document-types/:id", h.GetDocumentType)

		v1.POST("/documents", h.CreateDocument)
		v1.POST("/documents/:id/validation-result", h.ReportValidationResult)
		v1.POST("/documents/:id/error", h.MarkError)

		operator := v1.Group("", operatorAuth(h.secretKey))
		{
			operator.POST("/requests", h.CreateRequest)
			operator.GET("/requests/:id", h.GetRequest)
			operator.POST("/documents/:id/validate", h.ValidateDocument)
			operator.POST("/documents/:id/invalidate", h.InvalidateDocument)
			operator.GET("/documents/:id/download", h.DownloadDocument)
		}
	}

	return router
}
