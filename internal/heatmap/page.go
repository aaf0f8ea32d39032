package heatmap

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	heatmapSelector  = "path.ytp-heat-map-path"
	durationSelector = "span.ytp-time-duration"
)

// ErrNoEpisode reports a page title without an episode number.
var ErrNoEpisode = errors.New("heatmap: no episode number in title")

var digitsPattern = regexp.MustCompile(`\d+`)

// Page holds the raw strings a rendered video page exposes.
type Page struct {
	Link        string
	Title       string
	HeatmapPath string
	Duration    string
}

// ParsePage reads a rendered watch page. A missing heatmap path is not an
// error because many videos have no engagement signal; a missing duration is.
func ParsePage(r io.Reader) (Page, error) {
	var page Page
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return page, fmt.Errorf("parse page: %w", err)
	}
	if d, ok := doc.Find(heatmapSelector).First().Attr("d"); ok {
		page.HeatmapPath = strings.TrimSpace(d)
	}
	page.Duration = strings.TrimSpace(doc.Find(durationSelector).First().Text())
	page.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if page.Duration == "" {
		return page, errors.New("parse page: duration not found")
	}
	return page, nil
}

// EpisodeNumber returns the first run of digits in a video title.
func EpisodeNumber(title string) (string, error) {
	match := digitsPattern.FindString(title)
	if match == "" {
		return "", fmt.Errorf("%w: %q", ErrNoEpisode, title)
	}
	return match, nil
}
