package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	candidatedomain "github.com/smallbiznis/pricewatch/internal/candidate/domain"
)

func (s *Server) SubmitCandidate(c *gin.Context) {
	var req candidatedomain.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.candidateSvc.Submit(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": resp})
}

func (s *Server) ListCandidates(c *gin.Context) {
	var query struct {
		Status    string `form:"status"`
		Source    string `form:"source"`
		PageToken string `form:"page_token"`
		PageSize  string `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	pageSize, err := parseOptionalInt(query.PageSize)
	if err != nil || (pageSize != nil && *pageSize < 0) {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "invalid page size"))
		return
	}
	req := candidatedomain.ListRequest{
		Status:    strings.TrimSpace(query.Status),
		Source:    strings.TrimSpace(query.Source),
		PageToken: strings.TrimSpace(query.PageToken),
	}
	if pageSize != nil {
		req.PageSize = *pageSize
	}

	resp, err := s.candidateSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Items,
		"page_info": gin.H{"next_page_token": resp.NextPageToken, "has_more": resp.HasMore},
	})
}

func (s *Server) AdoptCandidate(c *gin.Context) {
	id, ok := pathID(c, "id", "candidate_id")
	if !ok {
		return
	}

	resp, err := s.candidateSvc.Adopt(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AdoptCandidates(c *gin.Context) {
	resp, err := s.candidateSvc.AdoptAllMatchable(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAnomalies(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	resp, err := s.candidateSvc.ListAnomalies(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
