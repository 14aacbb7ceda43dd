package api

import (
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/AntonKrinichnyi/trainstation/internal/apperr"
	"github.com/gin-gonic/gin"
)

// page is the response envelope of paginated lists.
type page struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

// pager reads page and page_size from the query string.
type pager struct {
	size    int
	maxSize int
}

type pageRequest struct {
	number int
	size   int
}

func (r pageRequest) offset() int { return (r.number - 1) * r.size }

var errInvalidPage = &apperr.Error{Kind: apperr.ErrNotFound, Detail: "Invalid page."}

// parse returns the requested page. A page_size above the maximum is
// clamped; an unparseable one falls back to the default.
func (p pager) parse(c *gin.Context) (pageRequest, error) {
	req := pageRequest{number: 1, size: p.size}
	if raw := c.Query("page_size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			req.size = n
		}
	}
	if req.size > p.maxSize {
		req.size = p.maxSize
	}
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n-1 > math.MaxInt/req.size {
			return req, errInvalidPage
		}
		req.number = n
	}
	return req, nil
}

// envelope wraps one page of results. Pages past the end are rejected,
// except the first page of an empty list.
func (p pager) envelope(c *gin.Context, req pageRequest, total int64, results interface{}) (page, error) {
	if req.number > 1 && int64(req.offset()) >= total {
		return page{}, errInvalidPage
	}
	out := page{Count: total, Results: results}
	if int64(req.offset()+req.size) < total {
		next := pageURL(c, req.number+1)
		out.Next = &next
	}
	if req.number > 1 {
		prev := pageURL(c, req.number-1)
		out.Previous = &prev
	}
	return out, nil
}

// pageURL rebuilds the absolute request URL pointing at page n. The first
// page is addressed without a page parameter.
func pageURL(c *gin.Context, n int) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if fwd := c.GetHeader("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	q := c.Request.URL.Query()
	if n <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(n))
	}
	u := url.URL{Scheme: scheme, Host: c.Request.Host, Path: c.Request.URL.Path, RawQuery: q.Encode()}
	return u.String()
}

func writePage(c *gin.Context, pg page) {
	c.JSON(http.StatusOK, pg)
}
