package blog

import (
	"regexp"
	"strings"
	"time"
)

type Article struct {
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ref is the short form returned after generation.
type Ref struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

func (a Article) Ref() Ref { return Ref{Title: a.Title, Slug: a.Slug} }

// CleanTitle keeps the text before the first "-", "–" or ":", so
// "Goroutines - a primer for beginners" becomes "Goroutines".
func CleanTitle(detail string) string {
	detail = strings.TrimSpace(detail)
	if i := strings.IndexAny(detail, "-–:"); i >= 0 {
		if head := strings.TrimSpace(detail[:i]); head != "" {
			return head
		}
	}
	return detail
}

var (
	slugStrip  = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpace  = regexp.MustCompile(`\s+`)
	slugDashes = regexp.MustCompile(`-+`)
)

func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpace.ReplaceAllString(strings.TrimSpace(s), "-")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "article"
	}
	return s
}

// ParseTitles splits pasted text into one title per non-blank line.
func ParseTitles(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
