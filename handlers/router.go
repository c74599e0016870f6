package handlers

import (
	"net/http"

	"opd-claims/repository"
	"opd-claims/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Version is reported by the root endpoint
const Version = "1.0.0"

// RouterConfig holds what the sandbox router is built from
type RouterConfig struct {
	Stores         repository.Stores
	Storage        storage.Storage
	AllowedOrigins []string
	// UploadBaseURL prefixes the file_url of stored documents
	UploadBaseURL string
	Logger        *zap.SugaredLogger
}

// NewRouter builds the sandbox API
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	uploadBase := cfg.UploadBaseURL
	if uploadBase == "" {
		uploadBase = "/uploads"
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(log))
	router.Use(MetricsMiddleware())
	router.Use(CORSMiddleware(cfg.AllowedOrigins))

	memberHandler := NewMemberHandler(cfg.Stores.Members, log)
	claimHandler := NewClaimHandler(cfg.Stores, cfg.Storage, uploadBase, log)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "OPD Claims Sandbox API",
			"version": Version,
			"status":  "running",
		})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/uploads/*path", claimHandler.ServeUpload)

	api := router.Group("/api/v1")
	{
		members := api.Group("/members")
		{
			members.GET("", memberHandler.ListMembers)
			members.POST("", memberHandler.CreateMember)
			members.GET("/:id", memberHandler.GetMember)
		}

		claims := api.Group("/claims")
		{
			claims.POST("", claimHandler.SubmitClaim)
			claims.GET("", claimHandler.ListClaims)
			claims.GET("/:id", claimHandler.GetClaim)
			claims.GET("/:id/documents", claimHandler.GetClaimDocuments)
			claims.GET("/:id/audit", claimHandler.GetAuditTrail)
		}

		decisions := api.Group("/decisions")
		{
			decisions.GET("/:id", claimHandler.GetDecision)
			decisions.PUT("/:id", claimHandler.RecordDecision)
		}
	}

	return router
}
