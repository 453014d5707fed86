package ui

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gasx/app"
	"gasx/domain/core"
	"gasx/domain/family"
	"gasx/estimate"
	"gasx/forecast"
	"gasx/internal/dataset"
	"gasx/internal/errors"
)

// tableJSON is the wire form of a numeric table, column oriented.
type tableJSON struct {
	Names   []string    `json:"names" binding:"required"`
	Columns [][]float64 `json:"columns" binding:"required"`
}

func (t *tableJSON) toTable() (*dataset.Table, error) {
	return dataset.FromColumns(t.Names, t.Columns...)
}

type optionsJSON struct {
	Iterations int    `json:"iterations"`
	MiniBatch  int    `json:"mini_batch"`
	RecordELBO bool   `json:"record_elbo"`
	MapStart   *bool  `json:"map_start"`
	NSims      int    `json:"nsims"`
	Seed       uint64 `json:"seed"`
}

func (o *optionsJSON) toOptions() *estimate.Options {
	opts := estimate.DefaultOptions()
	if o == nil {
		return &opts
	}
	if o.Iterations > 0 {
		opts.Iterations = o.Iterations
	}
	if o.MiniBatch > 0 {
		opts.MiniBatch = o.MiniBatch
	}
	opts.RecordELBO = o.RecordELBO
	if o.MapStart != nil {
		opts.MapStart = *o.MapStart
	}
	if o.NSims > 0 {
		opts.NSims = o.NSims
	}
	if o.Seed > 0 {
		opts.Seed = o.Seed
	}
	return &opts
}

type fitRequest struct {
	Formula string       `json:"formula" binding:"required"`
	Family  string       `json:"family" binding:"required"`
	AR      int          `json:"ar"`
	SC      int          `json:"sc"`
	Method  string       `json:"method" binding:"required"`
	Data    tableJSON    `json:"data" binding:"required"`
	Options *optionsJSON `json:"options"`
}

type predictRequest struct {
	Horizon   int        `json:"h" binding:"required"`
	Intervals bool       `json:"intervals"`
	OOS       *tableJSON `json:"oos"`
}

type ppcRequest struct {
	NSims int `json:"nsims"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleFit(c *gin.Context) {
	var req fitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fam, err := family.New(req.Family)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	table, err := req.Data.toTable()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	model, err := app.NewGASX(req.Formula, table, req.AR, req.SC, fam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Options != nil && req.Options.Seed > 0 {
		model.Seed = req.Options.Seed
	} else {
		model.Seed = s.cfg.Model.Seed
	}
	model.Sims = s.cfg.Model.Sims

	opts := req.Options.toOptions()
	if req.Options == nil || req.Options.Iterations <= 0 {
		opts.Iterations = s.cfg.Model.Iterations
	}
	opts.Seed = model.Seed

	manifest, err := s.svc.RunFit(c.Request.Context(), model, req.Method, opts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.GetCode(err) == errors.CodeEstimationError && core.IsStructural(err) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	s.register(manifest.RunID, model)
	c.JSON(http.StatusOK, gin.H{
		"manifest": manifest,
		"latents": gin.H{
			"names":  model.LatentVariables().Names(),
			"values": model.LatentVariables().Values(),
		},
	})
}

func (s *Server) handleGetRun(c *gin.Context) {
	manifest, err := s.svc.Lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, manifest)
}

func (s *Server) handleListRuns(c *gin.Context) {
	manifests, err := s.svc.Recent(c.Request.Context(), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": manifests})
}

func (s *Server) handlePredict(c *gin.Context) {
	model, ok := s.model(core.RunID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not held in memory"})
		return
	}
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.OOS == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "oos table is required for out-of-sample forecasts"})
		return
	}
	oos, err := req.OOS.toTable()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	table, err := model.Predict(req.Horizon, oos, req.Intervals)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	writeForecast(c, table)
}

func (s *Server) handlePredictIS(c *gin.Context) {
	model, ok := s.model(core.RunID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not held in memory"})
		return
	}
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	table, err := model.PredictIS(req.Horizon, req.Intervals)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	writeForecast(c, table)
}

func (s *Server) handlePPC(c *gin.Context) {
	model, ok := s.model(core.RunID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not held in memory"})
		return
	}
	var req ppcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	nsims := req.NSims
	if nsims <= 0 {
		nsims = 1000
	}
	p, err := model.PPC(nsims)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"p_value": p, "nsims": nsims})
}

func writeForecast(c *gin.Context, t *forecast.Table) {
	c.JSON(http.StatusOK, gin.H{
		"columns": t.Columns,
		"values":  t.Values,
	})
}
