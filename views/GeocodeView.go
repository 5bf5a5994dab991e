package views

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/GrainArc/IndoorMap/services"
	"github.com/gin-gonic/gin"
)

// GeocodeSearch 正向地理编码
func (uc *UserController) GeocodeSearch(c *gin.Context) {
	if uc.Geocoder == nil {
		respondError(c, http.StatusServiceUnavailable, "Geocoding is disabled.", "GEOCODER_DISABLED")
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondBadRequest(c, "Query parameter 'q' is required.")
		return
	}
	limit := 5
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondValidationError(c, "Query parameter 'limit' must be an integer.")
			return
		}
		limit = parsed
	}
	language := c.DefaultQuery("language", "en")

	matches, err := uc.Geocoder.Search(c.Request.Context(), query, language, limit)
	if err != nil {
		if respondGeocodingError(c, err) {
			return
		}
		respondInternalError(c)
		return
	}
	if matches == nil {
		matches = []services.GeocodeMatch{}
	}
	c.JSON(http.StatusOK, gin.H{"query": query, "results": matches})
}

// GeocodeReverse 反向地理编码
func (uc *UserController) GeocodeReverse(c *gin.Context) {
	if uc.Geocoder == nil {
		respondError(c, http.StatusServiceUnavailable, "Geocoding is disabled.", "GEOCODER_DISABLED")
		return
	}

	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		respondValidationError(c, "Query parameters 'lat' and 'lon' must be numbers.")
		return
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		respondValidationError(c, "Query parameters 'lat' and 'lon' must be numbers.")
		return
	}
	language := c.DefaultQuery("language", "en")

	match, err := uc.Geocoder.ReverseGeocode(c.Request.Context(), lon, lat, language)
	if err != nil {
		if respondGeocodingError(c, err) {
			return
		}
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": match})
}
