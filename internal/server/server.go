// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the HTTP surface: job submission (single and
// batch), progress polling, curation marking, and CSV export. The search
// core stays behind it; handlers translate requests into store and
// runner calls.
package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Liang-Chaoyue/PaperFinder/internal/batch"
	"github.com/Liang-Chaoyue/PaperFinder/internal/export"
	"github.com/Liang-Chaoyue/PaperFinder/internal/job"
	"github.com/Liang-Chaoyue/PaperFinder/internal/queue"
	"github.com/Liang-Chaoyue/PaperFinder/internal/store"
	"github.com/Liang-Chaoyue/PaperFinder/pkg/types"
)

// Server wires the HTTP handlers to the store, runner, and queue.
type Server struct {
	store  *store.Store
	runner *job.Runner
	queue  *queue.Queue
	cfg    types.AppConfig
	http   *http.Server
}

// New builds the server. The queue must already be started by the
// caller; Stop order is the caller's responsibility too.
func New(st *store.Store, runner *job.Runner, q *queue.Queue, cfg types.AppConfig) *Server {
	s := &Server{store: st, runner: runner, queue: q, cfg: cfg}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := router.Group("/api")
	api.POST("/jobs", s.submitJob)
	api.POST("/jobs/batch", s.submitBatch)
	api.GET("/jobs", s.listJobs)
	api.GET("/jobs/:id", s.getJob)
	api.GET("/jobs/:id/progress", s.jobProgress)
	api.GET("/papers", s.listPapers)
	api.POST("/papers/:id/state", s.markPaper)
	api.GET("/export.csv", s.exportCSV)

	s.http = &http.Server{Addr: cfg.Server.Addr, Handler: router}
	return s
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// NewJobID returns a fresh 16-hex-character job identifier.
func NewJobID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}

type submitRequest struct {
	Name        string   `json:"name"`
	Pinyin      string   `json:"pinyin"`
	Affiliation string   `json:"affiliation"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Providers   []string `json:"providers"`
	Sync        bool     `json:"sync"`
}

func (s *Server) submitJob(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if req.StartDate != "" && req.EndDate != "" && req.StartDate > req.EndDate {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date is after end_date"})
		return
	}

	identity := types.PersonalIdentity{
		Name:        req.Name,
		Pinyin:      strings.TrimSpace(req.Pinyin),
		Affiliation: strings.TrimSpace(req.Affiliation),
		DateRange:   types.DateRange{Start: req.StartDate, End: req.EndDate},
	}

	jobID, err := s.launch(c.Request.Context(), identity, req.Providers, req.Sync)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	j, err := s.store.GetJob(c.Request.Context(), jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, j)
}

func (s *Server) submitBatch(c *gin.Context) {
	var entries []batch.Entry

	if text := c.PostForm("names_text"); text != "" {
		entries = append(entries, batch.ParseText(text)...)
	}
	if fh, err := c.FormFile("names_file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("opening upload: %v", err)})
			return
		}
		defer f.Close()
		parsed, err := batch.ParseFile(fh.Filename, f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		entries = append(entries, parsed...)
	}

	if len(entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no roster rows: provide names_text or names_file"})
		return
	}

	entries = batch.Dedupe(batch.ApplyDefaults(entries, batch.Defaults{
		Affiliation: c.PostForm("default_affiliation"),
		StartDate:   c.PostForm("default_start_date"),
		EndDate:     c.PostForm("default_end_date"),
	}))

	var providers []string
	if raw := c.PostForm("providers"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				providers = append(providers, p)
			}
		}
	}
	sync := c.PostForm("sync") == "true"

	var jobIDs []string
	for _, e := range entries {
		identity := types.PersonalIdentity{
			Name:        e.Name,
			Pinyin:      e.Pinyin,
			Affiliation: e.Affiliation,
			DateRange:   types.DateRange{Start: e.StartDate, End: e.EndDate},
		}
		jobID, err := s.launch(c.Request.Context(), identity, providers, sync)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "job_ids": jobIDs})
			return
		}
		jobIDs = append(jobIDs, jobID)
	}

	c.JSON(http.StatusAccepted, gin.H{"job_ids": jobIDs})
}

// launch freezes the hints, creates the job record, and runs it inline
// or hands it to the queue.
func (s *Server) launch(ctx context.Context, identity types.PersonalIdentity, providers []string, sync bool) (string, error) {
	if len(providers) == 0 {
		providers = s.cfg.Search.Providers
	}
	hints := types.Hints{
		Providers:          providers,
		QueryName:          identity.Name,
		Pinyin:             identity.Pinyin,
		AffiliationKeyword: identity.Affiliation,
		DateRange:          identity.DateRange,
		MaxResults:         s.cfg.Search.MaxResults,
	}

	jobID := NewJobID()
	if err := s.store.CreateJob(ctx, jobID, hints); err != nil {
		return "", err
	}

	if sync {
		if err := s.runner.Run(ctx, jobID, identity, hints); err != nil {
			s.store.SetStatus(context.Background(), jobID, types.JobFailed)
		}
		return jobID, nil
	}

	s.queue.Submit(queue.Params{JobID: jobID, Identity: identity, Hints: hints})
	return jobID, nil
}

func (s *Server) listJobs(c *gin.Context) {
	jobs, err := s.store.ListJobs(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (s *Server) getJob(c *gin.Context) {
	j, err := s.store.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	papers, err := s.store.ListPapers(c.Request.Context(), store.PaperFilter{JobID: j.JobID, Limit: 50})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": j, "papers": papers})
}

func (s *Server) jobProgress(c *gin.Context) {
	j, err := s.store.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"job_id":   j.JobID,
		"status":   j.Status,
		"progress": j.Progress,
		"percent":  int(math.Round(j.Progress * 100)),
	})
}

func (s *Server) listPapers(c *gin.Context) {
	f := store.PaperFilter{
		JobID:    c.Query("job_id"),
		State:    types.CurationState(c.Query("state")),
		Provider: c.Query("provider"),
		TitleQ:   c.Query("q"),
		Limit:    200,
	}
	if y := c.Query("year_from"); y != "" {
		f.YearFrom, _ = strconv.Atoi(y)
	}
	if y := c.Query("year_to"); y != "" {
		f.YearTo, _ = strconv.Atoi(y)
	}
	papers, err := s.store.ListPapers(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"papers": papers})
}

func (s *Server) markPaper(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paper id"})
		return
	}
	var req struct {
		State string `json:"state"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	state := types.CurationState(strings.ToLower(strings.TrimSpace(req.State)))
	if err := s.store.SetState(c.Request.Context(), id, state); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "state": state})
}

func (s *Server) exportCSV(c *gin.Context) {
	jobID := c.Query("job_id")
	papers, err := s.store.ListPapers(c.Request.Context(), store.PaperFilter{
		JobID: jobID,
		State: types.CurationState(c.Query("state")),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	filename := "papers.csv"
	if jobID != "" {
		filename = jobID + ".csv"
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.WriteCSV(c.Writer, papers); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}
