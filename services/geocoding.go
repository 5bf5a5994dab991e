// services/geocoding.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"
const DefaultGeocoderAgent = "IndoorMap/1.0"

// GeocodeAddressParts 规范化后的地址组成部分, 缺失字段为nil
type GeocodeAddressParts struct {
	Address          *string `json:"address"`
	Unit             *string `json:"unit"`
	Locality         *string `json:"locality"`
	Province         *string `json:"province"`
	Country          *string `json:"country"`
	PostalCode       *string `json:"postal_code"`
	PostalCodeExt    *string `json:"postal_code_ext"`
	PostalCodeVanity *string `json:"postal_code_vanity"`
}

// GeocodeMatch 一条地理编码结果
type GeocodeMatch struct {
	DisplayName string               `json:"display_name"`
	Latitude    float64              `json:"latitude"`
	Longitude   float64              `json:"longitude"`
	Source      string               `json:"source"`
	Address     *GeocodeAddressParts `json:"address"`
}

// GeocodingError 上游服务失败, 带回给前端的状态码与错误码
type GeocodingError struct {
	Detail     string
	Code       string
	StatusCode int
}

func (e *GeocodingError) Error() string {
	return e.Detail
}

// Geocoder 正向检索与逆向解析
type Geocoder interface {
	Search(ctx context.Context, query string, language string, limit int) ([]GeocodeMatch, error)
	ReverseGeocode(ctx context.Context, lon float64, lat float64, language string) (*GeocodeMatch, error)
}

type geocodeCacheEntry struct {
	expires time.Time
	body    []byte
}

// NominatimGeocoder 基于Nominatim的实现, 响应按请求参数做TTL缓存
type NominatimGeocoder struct {
	BaseURL   string
	UserAgent string
	CacheTTL  time.Duration
	client    *http.Client
	mutex     sync.Mutex
	cache     map[string]geocodeCacheEntry
}

func NewNominatimGeocoder(baseURL string, userAgent string, timeoutSeconds float64, cacheTTLSeconds int) *NominatimGeocoder {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		userAgent = DefaultGeocoderAgent
	}
	if timeoutSeconds < 1 {
		timeoutSeconds = 1
	}
	return &NominatimGeocoder{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		CacheTTL:  time.Duration(cacheTTLSeconds) * time.Second,
		client:    &http.Client{Timeout: time.Duration(timeoutSeconds * float64(time.Second))},
		cache:     make(map[string]geocodeCacheEntry),
	}
}

// BuildGeocoder 按配置组装地理编码器, provider为空或禁用词时返回nil
func BuildGeocoder(provider string, baseURL string, userAgent string, timeoutSeconds float64, cacheTTLSeconds int) (Geocoder, error) {
	normalized := strings.ToLower(strings.TrimSpace(provider))
	switch normalized {
	case "", "none", "disabled", "off":
		return nil, nil
	case "nominatim":
		return NewNominatimGeocoder(baseURL, userAgent, timeoutSeconds, cacheTTLSeconds), nil
	default:
		return nil, fmt.Errorf("Unsupported geocoder provider: %s", provider)
	}
}

func acceptLanguage(language string) string {
	language = strings.TrimSpace(language)
	if language == "" {
		return "en"
	}
	return language
}

func (g *NominatimGeocoder) cacheKey(path string, params url.Values, language string) string {
	flat := make(map[string]string, len(params))
	for key := range params {
		flat[key] = params.Get(key)
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"path":     path,
		"params":   flat,
		"language": language,
	})
	return string(payload)
}

func (g *NominatimGeocoder) cachedBody(key string) []byte {
	if g.CacheTTL <= 0 {
		return nil
	}
	g.mutex.Lock()
	defer g.mutex.Unlock()
	entry, ok := g.cache[key]
	if !ok {
		return nil
	}
	if time.Now().After(entry.expires) {
		delete(g.cache, key)
		return nil
	}
	return entry.body
}

func (g *NominatimGeocoder) storeBody(key string, body []byte) {
	if g.CacheTTL <= 0 {
		return
	}
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.cache[key] = geocodeCacheEntry{expires: time.Now().Add(g.CacheTTL), body: body}
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// fetch 发起请求并处理缓存与错误归类
func (g *NominatimGeocoder) fetch(ctx context.Context, path string, params url.Values, language string) ([]byte, error) {
	key := g.cacheKey(path, params, language)
	if body := g.cachedBody(key); body != nil {
		return body, nil
	}

	requestURL := g.BaseURL + path + "?" + params.Encode()
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &GeocodingError{Detail: "Geocoding request could not be built.", Code: "GEOCODER_ERROR", StatusCode: 502}
	}
	request.Header.Set("User-Agent", g.UserAgent)
	request.Header.Set("Accept-Language", acceptLanguage(language))

	response, err := g.client.Do(request)
	if err != nil {
		if isTimeoutError(err) {
			return nil, &GeocodingError{Detail: "Geocoding request timed out.", Code: "GEOCODER_TIMEOUT", StatusCode: 504}
		}
		return nil, &GeocodingError{Detail: "Geocoding request failed.", Code: "GEOCODER_ERROR", StatusCode: 502}
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusTooManyRequests {
		return nil, &GeocodingError{Detail: "Geocoding provider rate limit exceeded.", Code: "GEOCODER_RATE_LIMIT", StatusCode: 503}
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, &GeocodingError{Detail: fmt.Sprintf("Geocoding provider returned status %d.", response.StatusCode), Code: "GEOCODER_ERROR", StatusCode: 502}
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, &GeocodingError{Detail: "Geocoding response could not be read.", Code: "GEOCODER_ERROR", StatusCode: 502}
	}
	g.storeBody(key, body)
	return body, nil
}

type nominatimPlace struct {
	DisplayName string            `json:"display_name"`
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	Address     map[string]string `json:"address"`
	Error       string            `json:"error"`
}

func firstAddressValue(address map[string]string, keys []string) *string {
	for _, key := range keys {
		if value, ok := address[key]; ok {
			value = strings.TrimSpace(value)
			if value != "" {
				out := value
				return &out
			}
		}
	}
	return nil
}

// normalizeAddressParts 把Nominatim的address明细压平为录入表单字段
func normalizeAddressParts(address map[string]string) *GeocodeAddressParts {
	if address == nil {
		return nil
	}
	parts := &GeocodeAddressParts{}

	road := firstAddressValue(address, []string{"road", "pedestrian", "footway", "street", "residential"})
	houseNumber := firstAddressValue(address, []string{"house_number"})
	switch {
	case houseNumber != nil && road != nil:
		line := *houseNumber + " " + *road
		parts.Address = &line
	case road != nil:
		parts.Address = road
	default:
		parts.Address = firstAddressValue(address, []string{"house", "building", "attraction"})
	}

	parts.Locality = firstAddressValue(address, []string{"city", "town", "village", "municipality", "borough", "city_district", "suburb", "hamlet", "county"})
	parts.Province = firstAddressValue(address, []string{"state", "province", "region", "state_district"})

	if code := firstAddressValue(address, []string{"country_code"}); code != nil {
		upper := strings.ToUpper(*code)
		parts.Country = &upper
	} else {
		parts.Country = firstAddressValue(address, []string{"country"})
	}
	parts.PostalCode = firstAddressValue(address, []string{"postcode"})
	return parts
}

func placeToMatch(place nominatimPlace) (*GeocodeMatch, error) {
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(place.Lat), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(place.Lon), 64)
	if latErr != nil || lonErr != nil {
		return nil, fmt.Errorf("geocoder payload has no usable coordinates")
	}
	displayName := strings.TrimSpace(place.DisplayName)
	if displayName == "" {
		displayName = fmt.Sprintf("%.6f, %.6f", lat, lon)
	}
	return &GeocodeMatch{
		DisplayName: displayName,
		Latitude:    lat,
		Longitude:   lon,
		Source:      "nominatim",
		Address:     normalizeAddressParts(place.Address),
	}, nil
}

// Search 自由文本检索, 空查询直接返回空结果
func (g *NominatimGeocoder) Search(ctx context.Context, query string, language string, limit int) ([]GeocodeMatch, error) {
	if strings.TrimSpace(query) == "" {
		return []GeocodeMatch{}, nil
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 10 {
		limit = 10
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	params.Set("limit", strconv.Itoa(limit))

	body, err := g.fetch(ctx, "/search", params, language)
	if err != nil {
		return nil, err
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, &GeocodingError{Detail: "Geocoding response could not be parsed.", Code: "GEOCODER_ERROR", StatusCode: 502}
	}

	matches := []GeocodeMatch{}
	for _, place := range places {
		match, err := placeToMatch(place)
		if err != nil {
			continue
		}
		matches = append(matches, *match)
	}
	return matches, nil
}

// ReverseGeocode 坐标反查地址, 提供商报error时返回nil
func (g *NominatimGeocoder) ReverseGeocode(ctx context.Context, lon float64, lat float64, language string) (*GeocodeMatch, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")

	body, err := g.fetch(ctx, "/reverse", params, language)
	if err != nil {
		return nil, err
	}

	var place nominatimPlace
	if err := json.Unmarshal(body, &place); err != nil {
		return nil, &GeocodingError{Detail: "Geocoding response could not be parsed.", Code: "GEOCODER_ERROR", StatusCode: 502}
	}
	if place.Error != "" {
		return nil, nil
	}
	match, err := placeToMatch(place)
	if err != nil {
		return nil, nil
	}
	return match, nil
}
