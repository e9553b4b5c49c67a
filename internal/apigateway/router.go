package apigateway

import (
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amauricunha/smartnlp/internal/evaluation"
	"github.com/amauricunha/smartnlp/internal/llm"
	"github.com/amauricunha/smartnlp/internal/metrics"
)

// SetupRouter initializes the Gin router with the evaluation routes.
// CORS is wide open on purpose: the service sits behind the lab's
// frontend during classes and is not exposed publicly.
func SetupRouter(handlers *evaluation.Handlers, m *metrics.Metrics) *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())
	router.Use(requestMetrics(m))

	router.GET("/health", handlers.HealthHandler)

	router.POST("/avaliacao/", handlers.UploadHandler)
	router.POST("/transcribe/", handlers.TranscribeHandler)
	router.POST("/llm-groq/", handlers.TextEvaluationHandler(llm.GroqName))
	router.POST("/llm-mistral/", handlers.TextEvaluationHandler(llm.MistralName))
	router.GET("/avaliacoes", handlers.ListHandler)
	router.GET("/avaliacao/:id", handlers.GetHandler)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// requestMetrics counts served requests by method, route and status.
func requestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()))
	}
}
