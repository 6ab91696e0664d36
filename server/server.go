// Package server exposes the pipeline over HTTP for "datrans serve".
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/minios-linux/datrans/pipeline"
	"github.com/minios-linux/datrans/record"
	"github.com/minios-linux/datrans/translate"
)

// keptReports is the number of run reports served by GET /runs/:run_id.
const keptReports = 100

// API provides the HTTP handlers.
type API struct {
	provider translate.Provider
	name     string
	opts     pipeline.Options

	mu      sync.Mutex
	reports map[string]*pipeline.Report
	order   []string
}

// NewAPI returns handlers translating with p. name identifies the provider in
// health responses; opts holds the defaults of every run.
func NewAPI(p translate.Provider, name string, opts pipeline.Options) *API {
	return &API{
		provider: p,
		name:     name,
		opts:     opts,
		reports:  make(map[string]*pipeline.Report),
	}
}

// RegisterRoutes registers the API routes with the given Gin router.
func (a *API) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", a.healthHandler)
		v1.POST("/translate", a.translateHandler)
		v1.GET("/runs/:run_id", a.getRunHandler)
	}
}

// NewRouter returns a Gin engine with recovery, the given middleware and the
// API routes.
func NewRouter(a *API, middleware ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware...)
	a.RegisterRoutes(router)
	return router
}

// healthHandler pings the provider when it supports pinging.
func (a *API) healthHandler(c *gin.Context) {
	if p, ok := a.provider.(translate.Pinger); ok {
		if err := p.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "provider": a.name, "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "provider": a.name})
}

// translateRequest is the body of POST /translate.
type translateRequest struct {
	// Records is a JSON array of record objects.
	Records      json.RawMessage `json:"records" binding:"required"`
	IDKey        string          `json:"id_key"`
	Fields       []string        `json:"fields"`
	TargetFields []string        `json:"target_fields" binding:"required"`
	SourceLang   string          `json:"source_lang"`
	TargetLang   string          `json:"target_lang" binding:"required"`
	KeepCode     bool            `json:"keep_code"`
}

type translateResponse struct {
	RunID   string            `json:"run_id"`
	Records []json.RawMessage `json:"records"`
	Report  *pipeline.Report  `json:"report"`
}

// translateHandler runs the pipeline on the posted records.
func (a *API) translateHandler(c *gin.Context) {
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	ds, err := record.Read(bytes.NewReader(req.Records), record.FormatJSON, req.IDKey)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid records: " + err.Error()})
		return
	}
	all := req.Fields
	if len(all) == 0 {
		all = ds.Fields
	}
	fields, err := record.NewFieldSet(all, req.TargetFields)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := a.opts
	opts.KeepCode = opts.KeepCode || req.KeepCode
	opts.Engine.TargetLang = req.TargetLang
	if req.SourceLang != "" {
		opts.Engine.SourceLang = req.SourceLang
	}

	out, rep, err := pipeline.Convert(c.Request.Context(), a.provider, ds.Records, fields, opts)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	resp := translateResponse{RunID: rep.RunID, Report: rep, Records: make([]json.RawMessage, 0, len(out))}
	for _, rec := range out {
		b, err := record.Encode(rec, fields.All, ds.IDKey)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		resp.Records = append(resp.Records, b)
	}
	a.keep(rep)
	c.JSON(http.StatusOK, resp)
}

// getRunHandler returns the report of a recent run.
func (a *API) getRunHandler(c *gin.Context) {
	a.mu.Lock()
	rep, ok := a.reports[c.Param("run_id")]
	a.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}
	c.JSON(http.StatusOK, rep)
}

// keep remembers rep, forgetting the oldest report beyond keptReports.
func (a *API) keep(rep *pipeline.Report) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reports[rep.RunID] = rep
	a.order = append(a.order, rep.RunID)
	if len(a.order) > keptReports {
		delete(a.reports, a.order[0])
		a.order = a.order[1:]
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, translate.ErrInvalidOptions):
		return http.StatusBadRequest
	case errors.Is(err, translate.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
