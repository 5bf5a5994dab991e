package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGeocodeServer(t *testing.T, body string, hits *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestBuildGeocoder(t *testing.T) {
	for _, provider := range []string{"", "none", "disabled", "off", " None "} {
		geocoder, err := BuildGeocoder(provider, "", "", 5, 60)
		require.NoError(t, err)
		assert.Nil(t, geocoder, "provider %q must disable geocoding", provider)
	}

	geocoder, err := BuildGeocoder("Nominatim", "", "", 5, 60)
	require.NoError(t, err)
	nominatim, ok := geocoder.(*NominatimGeocoder)
	require.True(t, ok)
	assert.Equal(t, DefaultNominatimURL, nominatim.BaseURL)
	assert.Equal(t, DefaultGeocoderAgent, nominatim.UserAgent)

	_, err = BuildGeocoder("google", "", "", 5, 60)
	require.Error(t, err)
	assert.Equal(t, "Unsupported geocoder provider: google", err.Error())
}

func TestNominatimSearch(t *testing.T) {
	hits := 0
	var gotQuery url.Values
	var gotLanguage, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		gotQuery = r.URL.Query()
		gotLanguage = r.Header.Get("Accept-Language")
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(`[
			{
				"display_name": "1, Main Street, Springfield",
				"lat": "50.0005",
				"lon": "10.001",
				"address": {
					"house_number": "1",
					"road": "Main Street",
					"city": "Springfield",
					"state": "IL",
					"country": "United States",
					"country_code": "us",
					"postcode": "62701"
				}
			},
			{"display_name": "bad", "lat": "x", "lon": "y"}
		]`))
	}))
	defer server.Close()

	geocoder := NewNominatimGeocoder(server.URL, "TestAgent/1.0", 5, 0)
	matches, err := geocoder.Search(context.Background(), "1 Main Street", "de", 50)
	require.NoError(t, err)

	assert.Equal(t, "1 Main Street", gotQuery.Get("q"))
	assert.Equal(t, "jsonv2", gotQuery.Get("format"))
	assert.Equal(t, "1", gotQuery.Get("addressdetails"))
	// limit夹取到上限10
	assert.Equal(t, "10", gotQuery.Get("limit"))
	assert.Equal(t, "de", gotLanguage)
	assert.Equal(t, "TestAgent/1.0", gotAgent)

	// 坐标解析失败的条目被丢弃
	require.Len(t, matches, 1)
	match := matches[0]
	assert.Equal(t, "1, Main Street, Springfield", match.DisplayName)
	assert.Equal(t, 50.0005, match.Latitude)
	assert.Equal(t, 10.001, match.Longitude)
	assert.Equal(t, "nominatim", match.Source)
	require.NotNil(t, match.Address)
	assert.Equal(t, "1 Main Street", *match.Address.Address)
	assert.Equal(t, "Springfield", *match.Address.Locality)
	assert.Equal(t, "IL", *match.Address.Province)
	// country_code优先于country并转大写
	assert.Equal(t, "US", *match.Address.Country)
	assert.Equal(t, "62701", *match.Address.PostalCode)

	// 空查询不发请求
	empty, err := geocoder.Search(context.Background(), "   ", "de", 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, 1, hits)
}

func TestNominatimSearchCache(t *testing.T) {
	hits := 0
	server := newGeocodeServer(t, `[]`, &hits)
	defer server.Close()

	geocoder := NewNominatimGeocoder(server.URL, "", 5, 60)
	for i := 0; i < 3; i++ {
		_, err := geocoder.Search(context.Background(), "mall", "en", 5)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, hits)

	// 语言参与缓存键
	_, err := geocoder.Search(context.Background(), "mall", "fr", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
}

func TestNominatimSearchErrors(t *testing.T) {
	t.Run("rate limited", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()
		geocoder := NewNominatimGeocoder(server.URL, "", 5, 0)
		_, err := geocoder.Search(context.Background(), "mall", "en", 5)
		var geoErr *GeocodingError
		require.ErrorAs(t, err, &geoErr)
		assert.Equal(t, "GEOCODER_RATE_LIMIT", geoErr.Code)
		assert.Equal(t, 503, geoErr.StatusCode)
		assert.Equal(t, "Geocoding provider rate limit exceeded.", geoErr.Detail)
	})

	t.Run("upstream failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()
		geocoder := NewNominatimGeocoder(server.URL, "", 5, 0)
		_, err := geocoder.Search(context.Background(), "mall", "en", 5)
		var geoErr *GeocodingError
		require.ErrorAs(t, err, &geoErr)
		assert.Equal(t, "GEOCODER_ERROR", geoErr.Code)
		assert.Equal(t, 502, geoErr.StatusCode)
		assert.Equal(t, "Geocoding provider returned status 500.", geoErr.Detail)
	})

	t.Run("timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()
		geocoder := NewNominatimGeocoder(server.URL, "", 5, 0)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := geocoder.Search(ctx, "mall", "en", 5)
		var geoErr *GeocodingError
		require.ErrorAs(t, err, &geoErr)
		assert.Equal(t, "GEOCODER_TIMEOUT", geoErr.Code)
		assert.Equal(t, 504, geoErr.StatusCode)
	})

	t.Run("malformed payload", func(t *testing.T) {
		hits := 0
		server := newGeocodeServer(t, `{"not": "an array"}`, &hits)
		defer server.Close()
		geocoder := NewNominatimGeocoder(server.URL, "", 5, 0)
		_, err := geocoder.Search(context.Background(), "mall", "en", 5)
		var geoErr *GeocodingError
		require.ErrorAs(t, err, &geoErr)
		assert.Equal(t, "GEOCODER_ERROR", geoErr.Code)
		assert.Equal(t, "Geocoding response could not be parsed.", geoErr.Detail)
	})

	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		baseURL := server.URL
		server.Close()
		geocoder := NewNominatimGeocoder(baseURL, "", 5, 0)
		_, err := geocoder.Search(context.Background(), "mall", "en", 5)
		var geoErr *GeocodingError
		require.ErrorAs(t, err, &geoErr)
		assert.Equal(t, "GEOCODER_ERROR", geoErr.Code)
		assert.Equal(t, "Geocoding request failed.", geoErr.Detail)
	})
}

func TestReverseGeocode(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{
			"display_name": "Central Mall, Springfield",
			"lat": "50.0005",
			"lon": "10.001",
			"address": {"building": "Central Mall", "town": "Springfield", "country": "United States"}
		}`))
	}))
	defer server.Close()

	geocoder := NewNominatimGeocoder(server.URL, "", 5, 0)
	match, err := geocoder.ReverseGeocode(context.Background(), 10.001, 50.0005, "en")
	require.NoError(t, err)
	require.NotNil(t, match)

	assert.Equal(t, "50.0005", gotQuery.Get("lat"))
	assert.Equal(t, "10.001", gotQuery.Get("lon"))
	assert.Equal(t, "Central Mall, Springfield", match.DisplayName)
	require.NotNil(t, match.Address)
	// 没有路名时回退到building
	assert.Equal(t, "Central Mall", *match.Address.Address)
	assert.Equal(t, "Springfield", *match.Address.Locality)
	assert.Equal(t, "United States", *match.Address.Country)
	assert.Nil(t, match.Address.Province)
}

func TestReverseGeocodeNoResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "Unable to geocode"}`))
	}))
	defer server.Close()

	geocoder := NewNominatimGeocoder(server.URL, "", 5, 0)
	match, err := geocoder.ReverseGeocode(context.Background(), 0, 0, "en")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestPlaceToMatchFallbackDisplayName(t *testing.T) {
	match, err := placeToMatch(nominatimPlace{Lat: "50.0005", Lon: "10.001"})
	require.NoError(t, err)
	assert.Equal(t, "50.000500, 10.001000", match.DisplayName)
	assert.Nil(t, match.Address)

	_, err = placeToMatch(nominatimPlace{Lat: "", Lon: "10"})
	require.Error(t, err)
}
