package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aluiziolira/pricescout/models"
	"github.com/aluiziolira/pricescout/pipeline"
	"github.com/aluiziolira/pricescout/pricing"
)

const defaultTopSearches = 5

// SearchResponse is the body of GET /search. Prices holds the entries of
// Pricing that pass the request filters.
type SearchResponse struct {
	Query   string                 `json:"query"`
	Source  string                 `json:"source"`
	Pricing *models.ProductPricing `json:"pricing"`
	Prices  []models.PriceData     `json:"prices"`
}

func (h *handler) search(c *gin.Context) {
	var filters models.Filters
	if err := c.ShouldBindQuery(&filters); err != nil {
		badRequest(c, "invalid filters: "+err.Error())
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	res, err := h.Resolver.ResolveWithFilters(c.Request.Context(), query, filters)
	if err != nil {
		var noProducts *pricing.NoProductsError
		switch {
		case errors.Is(err, pricing.ErrEmptyQuery):
			badRequest(c, err.Error())
		case errors.As(err, &noProducts):
			notFound(c, err.Error())
		default:
			internalError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, SearchResponse{
		Query:   query,
		Source:  res.Source,
		Pricing: res.Pricing,
		Prices:  pricing.ApplyFilters(res.Pricing.Prices, filters),
	})
}

func (h *handler) importText(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		badRequest(c, "could not read body")
		return
	}
	result, err := h.Ingester.ImportText(string(raw))
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) importJSON(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		badRequest(c, "could not read body")
		return
	}
	result, err := h.Ingester.ImportJSON(raw)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidJSON) {
			badRequest(c, err.Error())
			return
		}
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) importCSV(c *gin.Context) {
	result, err := h.Ingester.ImportCSV(c.Request.Body)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidCSV) {
			badRequest(c, err.Error())
			return
		}
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) loadSample(c *gin.Context) {
	result, err := h.Ingester.LoadSample()
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) listProducts(c *gin.Context) {
	var products []models.PlatformProduct
	switch {
	case c.Query("category") != "":
		products = h.Store.ByCategory(c.Query("category"))
	case c.Query("platform") != "":
		products = h.Store.ByPlatform(c.Query("platform"))
	case c.Query("q") != "":
		products = h.Store.Search(c.Query("q"))
	default:
		products = h.Store.All()
	}
	if products == nil {
		products = []models.PlatformProduct{}
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

func (h *handler) clearProducts(c *gin.Context) {
	if err := h.Store.Clear(); err != nil {
		internalError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) export(c *gin.Context) {
	switch format := c.DefaultQuery("format", "json"); format {
	case "json":
		c.Header("Content-Disposition", `attachment; filename="pricescout-products.json"`)
		c.Header("Content-Type", "application/json; charset=utf-8")
		c.Status(http.StatusOK)
		if err := pipeline.WriteDatabase(c.Writer, h.Store.Database()); err != nil {
			_ = c.Error(err)
		}
	case "csv":
		c.Header("Content-Disposition", `attachment; filename="pricescout-products.csv"`)
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Status(http.StatusOK)
		w, err := pipeline.NewCSVStreamWriter(c.Writer)
		if err == nil {
			err = w.Write(h.Store.All())
		}
		if err != nil {
			_ = c.Error(err)
		}
	default:
		badRequest(c, "format must be json or csv, got "+strconv.Quote(format))
	}
}

func (h *handler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Store.Stats())
}

func (h *handler) history(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"history": h.History.List()})
}

// clearCache drops every cached comparison and the search history.
func (h *handler) clearCache(c *gin.Context) {
	if err := h.Cache.Clear(); err != nil {
		internalError(c, err)
		return
	}
	if err := h.History.Clear(); err != nil {
		internalError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) purgeCache(c *gin.Context) {
	removed, err := h.Cache.ClearExpired()
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *handler) analytics(c *gin.Context) {
	limit := defaultTopSearches
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, h.Tracker.Summary(limit))
}

func (h *handler) exportAnalytics(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(h.Tracker.Export()))
}

func (h *handler) clearAnalytics(c *gin.Context) {
	if err := h.Tracker.Clear(); err != nil {
		internalError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
