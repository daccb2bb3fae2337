package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gradescout/gradescout/internal/candidates"
)

type CardHandler struct {
	fileCache *candidates.FileCache
}

func NewCardHandler(fileCache *candidates.FileCache) *CardHandler {
	return &CardHandler{fileCache: fileCache}
}

// GetCards returns the full materialized candidate list.
func (h *CardHandler) GetCards(c *gin.Context) {
	cards, err := h.fileCache.Get()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cards)
}

// FilterCards returns the candidate list narrowed by the query
// parameters. Unspecified parameters fall back to the defaults.
func (h *CardHandler) FilterCards(c *gin.Context) {
	params := candidates.DefaultFilterParams()

	var parseErr error
	parseFloat := func(name string, into *float64) {
		if v := c.Query(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				parseErr = err
				return
			}
			*into = f
		}
	}
	parseFloat("gem_rate", &params.MinGemRate)
	parseFloat("net_gain", &params.MinNetGain)
	parseFloat("total_cost", &params.MaxTotalCost)
	parseFloat("lucrative_factor", &params.MinLucrativeFactor)

	if v := c.Query("psa10_volume"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			parseErr = err
		} else {
			params.MinPsa10Volume = n
		}
	}
	if v := c.Query("target_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			parseErr = err
		} else {
			params.StartDate = t
		}
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			parseErr = err
		} else {
			params.EndDate = &t
		}
	}
	if parseErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter parameter: " + parseErr.Error()})
		return
	}
	params.Search = c.Query("search")

	cards, err := h.fileCache.Get()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, candidates.Filter(cards, params))
}
