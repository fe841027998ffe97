package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	pricehistorydomain "github.com/smallbiznis/pricewatch/internal/pricehistory/domain"
)

func (s *Server) SubmitObservation(c *gin.Context) {
	var req pricehistorydomain.AppendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Set("observation_outcome", string(pricehistorydomain.OutcomeRejected))
		AbortWithError(c, invalidRequestError())
		return
	}

	res, err := s.historySvc.Append(c.Request.Context(), req)
	if err != nil {
		if isValidationError(err) || asValidationErrors(err) != nil {
			c.Set("observation_outcome", string(pricehistorydomain.OutcomeRejected))
		}
		AbortWithError(c, err)
		return
	}

	c.Set("observation_outcome", string(res.Outcome))
	c.JSON(http.StatusOK, gin.H{"status": res.Outcome, "data": res.Observation})
}

func (s *Server) ListHistory(c *gin.Context) {
	productID, ok := pathID(c, "id", "product_id")
	if !ok {
		return
	}
	storeID, ok := pathID(c, "store_id", "store_id")
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	resp, err := s.historySvc.List(c.Request.Context(), pricehistorydomain.ListRequest{
		ProductID: productID,
		StoreID:   storeID,
		Limit:     limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSnapshot(c *gin.Context) {
	productID, ok := pathID(c, "id", "product_id")
	if !ok {
		return
	}
	storeID, ok := pathID(c, "store_id", "store_id")
	if !ok {
		return
	}

	resp, err := s.snapshotSvc.Get(c.Request.Context(), productID, storeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSnapshots(c *gin.Context) {
	productID, ok := pathID(c, "id", "product_id")
	if !ok {
		return
	}

	resp, err := s.snapshotSvc.ListByProduct(c.Request.Context(), productID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
