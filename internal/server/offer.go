package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetCheapestOffer(c *gin.Context) {
	productID, ok := pathID(c, "id", "product_id")
	if !ok {
		return
	}

	resp, found, err := s.offerSvc.CheapestOffer(c.Request.Context(), productID, strings.TrimSpace(c.Query("currency")))
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

func (s *Server) ListOffers(c *gin.Context) {
	productID, ok := pathID(c, "id", "product_id")
	if !ok {
		return
	}

	resp, err := s.offerSvc.RankOffers(c.Request.Context(), productID, strings.TrimSpace(c.Query("currency")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
