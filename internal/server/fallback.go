package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type setFallbackRequest struct {
	SourceStoreID string `json:"source_store_id"`
}

func (s *Server) SetFallback(c *gin.Context) {
	storeID, ok := pathID(c, "id", "store_id")
	if !ok {
		return
	}

	var req setFallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	sourceStoreID, err := parseSnowflakeID(req.SourceStoreID)
	if err != nil {
		AbortWithError(c, newValidationError("source_store_id", "invalid_source_store", "invalid source store id"))
		return
	}

	resp, err := s.fallbackSvc.SetMapping(c.Request.Context(), storeID, sourceStoreID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetFallback(c *gin.Context) {
	storeID, ok := pathID(c, "id", "store_id")
	if !ok {
		return
	}

	resp, err := s.fallbackSvc.GetMapping(c.Request.Context(), storeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteFallback(c *gin.Context) {
	storeID, ok := pathID(c, "id", "store_id")
	if !ok {
		return
	}

	if err := s.fallbackSvc.DeleteMapping(c.Request.Context(), storeID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListFallbacks(c *gin.Context) {
	resp, err := s.fallbackSvc.ListMappings(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetEffectivePrice(c *gin.Context) {
	productID, ok := pathID(c, "id", "product_id")
	if !ok {
		return
	}
	storeID, ok := pathID(c, "store_id", "store_id")
	if !ok {
		return
	}

	resp, found, err := s.fallbackSvc.EffectivePrice(c.Request.Context(), productID, storeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !found {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
