// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/icite/internal/embedding"
	"github.com/pdiddy/icite/internal/pipeline"
	"github.com/pdiddy/icite/internal/rank"
	"github.com/pdiddy/icite/pkg/types"
)

// CandidatesRequest is the body of POST /v1/candidates.
type CandidatesRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// RelatedRequest is the body of POST /v1/related.
type RelatedRequest struct {
	Query     string   `json:"query"`
	Seeds     []string `json:"seeds"`
	MaxPapers int      `json:"max_papers"`
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// PapersResponse wraps a list of papers.
type PapersResponse struct {
	Papers []types.Paper `json:"papers"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCandidates(c *gin.Context) {
	var req CandidatesRequest
	if !bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		badRequest(c, "query is required")
		return
	}

	papers, err := pipeline.Race(c.Request.Context(), s.timeout, func(ctx context.Context) ([]types.Paper, error) {
		return s.svc.FindInitialCandidates(ctx, req.Query, req.TopK)
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, PapersResponse{Papers: papers})
}

func (s *Server) handleRelated(c *gin.Context) {
	var req RelatedRequest
	if !bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		badRequest(c, "query is required")
		return
	}
	if len(req.Seeds) == 0 {
		badRequest(c, "at least one seed is required")
		return
	}

	related, err := pipeline.Race(c.Request.Context(), s.timeout, func(ctx context.Context) (types.Related, error) {
		return s.svc.FindRelatedPapers(ctx, req.Query, req.Seeds, pipeline.WithMaxPapers(req.MaxPapers))
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, related)
}

func (s *Server) handleAsk(c *gin.Context) {
	var req AskRequest
	if !bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		badRequest(c, "question is required")
		return
	}

	answer, err := pipeline.Race(c.Request.Context(), s.timeout, func(ctx context.Context) (types.Answer, error) {
		return s.svc.Ask(ctx, req.Question)
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

func (s *Server) handlePapers(c *gin.Context) {
	match := c.Query("match")
	if strings.TrimSpace(match) == "" {
		badRequest(c, "match is required")
		return
	}

	papers, err := pipeline.Race(c.Request.Context(), s.timeout, func(ctx context.Context) ([]types.Paper, error) {
		return s.svc.MatchTitles(ctx, match)
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	if papers == nil {
		papers = []types.Paper{}
	}
	c.JSON(http.StatusOK, PapersResponse{Papers: papers})
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// fail writes err with the status it maps to.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrNoResults):
		return http.StatusNotFound
	case errors.Is(err, embedding.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, pipeline.ErrNoChat):
		return http.StatusServiceUnavailable
	case pipeline.IsCollaboratorError(err), errors.Is(err, rank.ErrInvalidVector):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
