package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/types"
)

// Paginator reads page and limit query parameters.
type Paginator struct {
	DefaultLimit int
	MaxLimit     int
}

// Request parses the page query. A non-numeric or non-positive page is
// answered with 404.
func (p Paginator) Request(c *gin.Context) (types.PageRequest, bool) {
	req := types.PageRequest{Page: 1, Limit: p.DefaultLimit}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			invalidPage(c)
			return req, false
		}
		req.Page = page
	}

	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			req.Limit = limit
		}
	}
	if p.MaxLimit > 0 && req.Limit > p.MaxLimit {
		req.Limit = p.MaxLimit
	}
	return req, true
}

// respondPage writes a page of results, or 404 when the page is past the end.
func respondPage[T any](c *gin.Context, req types.PageRequest, total int64, results []T) {
	if req.Page > 1 && int64(req.Offset()) >= total {
		invalidPage(c)
		return
	}
	if results == nil {
		results = []T{}
	}

	page := types.Page[T]{Count: total, Results: results}
	if int64(req.Page*req.Limit) < total {
		next := pageURL(c, req.Page+1)
		page.Next = &next
	}
	if req.Page > 1 {
		prev := pageURL(c, req.Page-1)
		page.Previous = &prev
	}
	c.JSON(http.StatusOK, page)
}

func invalidPage(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"detail": "invalid page"})
}

// pageURL rebuilds the request URL pointing at page.
func pageURL(c *gin.Context, page int) string {
	query := url.Values{}
	for k, v := range c.Request.URL.Query() {
		query[k] = v
	}
	if page <= 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(page))
	}

	u := url.URL{
		Scheme:   requestScheme(c),
		Host:     c.Request.Host,
		Path:     c.Request.URL.Path,
		RawQuery: query.Encode(),
	}
	return u.String()
}

func requestScheme(c *gin.Context) string {
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if c.Request.TLS != nil {
		return "https"
	}
	return "http"
}

// baseURL is the public origin used in absolute links.
func baseURL(c *gin.Context, configured string) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}
	return requestScheme(c) + "://" + c.Request.Host
}
