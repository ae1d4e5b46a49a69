package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"autodialer/internal/audit"
	"autodialer/internal/blog"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
)

type generateRequest struct {
	// Titles is either newline separated text or a JSON array.
	Titles json.RawMessage `json:"titles"`
}

func (h Handlers) ListArticles(c *gin.Context) {
	articles, err := h.Articles.List(c.Request.Context())
	if err != nil {
		abortErr(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

func (h Handlers) GetArticle(c *gin.Context) {
	a, err := h.Articles.Find(c.Request.Context(), c.Param("slug"))
	if errors.Is(err, blog.ErrArticleNotFound) {
		abort(c, http.StatusNotFound, "Article not found")
		return
	}
	if err != nil {
		abortErr(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": a})
}

func (h Handlers) GenerateArticles(c *gin.Context) {
	var req generateRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		abort(c, http.StatusBadRequest, "invalid json")
		return
	}
	titles := parseTitlesField(req.Titles)
	if len(titles) == 0 {
		abort(c, http.StatusBadRequest, "No titles provided")
		return
	}

	articles, err := h.Generator.Generate(c.Request.Context(), titles)
	if err != nil {
		abortErr(c, err, "Failed to generate articles: ")
		return
	}
	refs := make([]blog.Ref, 0, len(articles))
	for _, a := range articles {
		refs = append(refs, a.Ref())
	}
	h.record(c, audit.ActionArticlesGenerated, fmt.Sprintf("%d articles", len(refs)))
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  fmt.Sprintf("Generated %d articles", len(refs)),
		"articles": refs,
	})
}

func (h Handlers) DeleteArticles(c *gin.Context) {
	if err := h.Articles.Clear(c.Request.Context()); err != nil {
		abortErr(c, err, "")
		return
	}
	h.record(c, audit.ActionArticlesCleared, "")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "All articles deleted"})
}

func parseTitlesField(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		var out []string
		for _, t := range list {
			out = append(out, blog.ParseTitles(t)...)
		}
		return out
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return blog.ParseTitles(s)
	}
	return nil
}
