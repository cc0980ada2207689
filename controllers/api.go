package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"decoyd/internal/models"
	"decoyd/services"
)

/**
 * APIController serves the read-only status API of a running fleet
 * @description The status API is a management plane concern: it runs
 * outside the supervision set and is only started when the runtime
 * configuration sets a listen address.
 */
type APIController struct {
	sup  *services.Supervisor
	meta models.TemplateMeta
}

func NewAPIController(sup *services.Supervisor, meta models.TemplateMeta) *APIController {
	return &APIController{
		sup:  sup,
		meta: meta,
	}
}

/**
 * Register all API routes to Gin engine
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - /healthz for liveness probes
 * - /decoyd/api/v1/fleet for the supervision set snapshot
 * - /decoyd/api/v1/template for the resolved template metadata
 * - /metrics for prometheus scraping
 */
func (a *APIController) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", a.Healthz)
	r.GET("/decoyd/api/v1/fleet", a.Fleet)
	r.GET("/decoyd/api/v1/template", a.Template)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (a *APIController) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Fleet returns the supervision set with per-entry state.
func (a *APIController) Fleet(c *gin.Context) {
	c.JSON(http.StatusOK, a.sup.Snapshot())
}

// Template returns the resolved root template's metadata.
func (a *APIController) Template(c *gin.Context) {
	c.JSON(http.StatusOK, a.meta)
}
