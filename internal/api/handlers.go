package api

import (
	"fmt"
	"net/http"
	"strconv"

	"gocohort/domain/actor"
	"gocohort/domain/clustering"
	"gocohort/domain/core"
	"gocohort/internal"
	"gocohort/internal/errors"
	"gocohort/internal/report"

	"github.com/gin-gonic/gin"
)

// createRunRequest starts a pipeline run on posted actors. Zero fields keep
// the server defaults.
type createRunRequest struct {
	Actors    []actor.Record `json:"actors" binding:"required"`
	Algorithm string         `json:"algorithm"`
	K         int            `json:"k"`
	Persist   *bool          `json:"persist"`
}

type assignRequest struct {
	Actors []actor.Record `json:"actors" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, errors.InvalidInput(fmt.Sprintf("invalid limit %q", raw)))
			return
		}
		limit = n
	}
	runs, err := s.service.ListRuns(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (s *Server) handleCreateRun(c *gin.Context) {
	var req createRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}

	opts := s.options
	if req.Algorithm != "" {
		opts.Algorithm = req.Algorithm
		if alg, err := clustering.ParseAlgorithm(req.Algorithm); err == nil && alg != clustering.Algorithm(s.options.Algorithm) {
			opts.Params = clustering.DefaultParams(alg)
			opts.Params.Seed = s.options.RunAll.Seed
		}
	}
	if req.K > 0 {
		opts.Params.K = req.K
		opts.RunAll.K = req.K
	}
	if req.Persist != nil {
		opts.Persist = *req.Persist
	}

	outcome, err := s.service.Run(c.Request.Context(), req.Actors, opts)
	if err != nil && outcome == nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	body := gin.H{"outcome": outcome}
	if err != nil {
		// computed but not stored
		status = http.StatusOK
		body["warning"] = err.Error()
	}
	c.JSON(status, body)
}

func (s *Server) handleLatestRun(c *gin.Context) {
	r, cohorts, err := s.service.RunDetails(c.Request.Context(), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": r, "cohorts": cohorts})
}

func (s *Server) handleGetRun(c *gin.Context) {
	r, cohorts, err := s.service.RunDetails(c.Request.Context(), core.RunID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": r, "cohort_count": len(cohorts)})
}

func (s *Server) handleDeleteRun(c *gin.Context) {
	if err := s.service.DeleteRun(c.Request.Context(), core.RunID(c.Param("id"))); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListCohorts(c *gin.Context) {
	_, cohorts, err := s.service.RunDetails(c.Request.Context(), core.RunID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cohorts": cohorts, "count": len(cohorts)})
}

func (s *Server) handleAssign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	outcome, err := s.service.AssignNew(c.Request.Context(), core.RunID(c.Param("id")), req.Actors)
	if err != nil && outcome == nil {
		respondError(c, err)
		return
	}
	body := gin.H{"run_id": outcome.RunID, "assignments": outcome.Assignments, "quality": outcome.Quality}
	if err != nil {
		body["warning"] = err.Error()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleReport(c *gin.Context) {
	r, cohorts, err := s.service.RunDetails(c.Request.Context(), core.RunID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	_, q, err := s.service.RunAssignments(c.Request.Context(), r.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	md := report.RunMarkdown(*r, cohorts, q)
	if c.Query("format") == "markdown" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", report.HTML("Segmentation run "+string(r.ID), md))
}

func (s *Server) handleActorCohort(c *gin.Context) {
	a, err := s.service.ActorCohort(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func respondError(c *gin.Context, err error) {
	appErr := errors.FromDomain(err)
	status := errors.HTTPStatus(appErr)
	if status >= http.StatusInternalServerError {
		internal.DefaultLogger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": errors.GetCode(appErr)})
}
