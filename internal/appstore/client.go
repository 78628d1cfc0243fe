// Package appstore pulls public customer reviews and app metadata from the
// iTunes RSS and lookup endpoints.
package appstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"review-insights-go/internal/logger"
	"review-insights-go/internal/types"
)

var ErrAppNotFound = errors.New("app not found")

type Options struct {
	BaseURL      string
	Country      string
	HTTPTimeout  time.Duration
	MaxRetryTime time.Duration
	MaxPages     int
}

type Client struct {
	opts Options
	http *http.Client
	log  *logger.Logger
	now  func() time.Time
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://itunes.apple.com"
	}
	if opts.Country == "" {
		opts.Country = "us"
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 12 * time.Second
	}
	if opts.MaxRetryTime <= 0 {
		opts.MaxRetryTime = 12 * time.Second
	}
	if opts.MaxPages <= 0 {
		// the RSS feed stops serving after page 10
		opts.MaxPages = 10
	}
	return &Client{
		opts: opts,
		http: &http.Client{Timeout: opts.HTTPTimeout},
		log:  logger.New().Component("appstore"),
		now:  time.Now,
	}
}

type label struct {
	Label string `json:"label"`
}

type feedEntry struct {
	Content label `json:"content"`
	Title   label `json:"title"`
	Updated label `json:"updated"`
	Author  struct {
		Name label `json:"name"`
	} `json:"author"`
	Version *label `json:"im:version"`
	Rating  *label `json:"im:rating"`
}

// entryList accepts both an array and the single object the feed returns when
// a page has one entry.
type entryList []feedEntry

func (l *entryList) UnmarshalJSON(data []byte) error {
	var many []feedEntry
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one feedEntry
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = entryList{one}
	return nil
}

type feedResponse struct {
	Feed struct {
		Entry entryList `json:"entry"`
	} `json:"feed"`
}

// FetchReviews pages through the most recent reviews and stops at the first
// page that contributes nothing inside the window. days <= 0 disables the
// window.
func (c *Client) FetchReviews(ctx context.Context, appID string, days int) ([]types.Review, error) {
	log := c.log.WithField("app_id", appID)
	var cutoff time.Time
	if days > 0 {
		cutoff = c.now().AddDate(0, 0, -days)
	}

	var out []types.Review
	for page := 1; page <= c.opts.MaxPages; page++ {
		u := fmt.Sprintf("%s/%s/rss/customerreviews/page=%d/id=%s/sortBy=mostRecent/json",
			strings.TrimRight(c.opts.BaseURL, "/"), c.opts.Country, page, appID)
		var feed feedResponse
		if err := c.doJSON(ctx, u, &feed); err != nil {
			return nil, fmt.Errorf("fetch reviews page %d: %w", page, err)
		}

		var batch []types.Review
		for _, e := range feed.Feed.Entry {
			// the first entry on page 1 is the app itself and has no rating
			if e.Rating == nil {
				continue
			}
			r := normalizeEntry(e)
			if r.Date == "" || !within(r.Date, cutoff) {
				continue
			}
			batch = append(batch, r)
		}
		log.WithField("page", page).WithField("reviews", len(batch)).Debug("fetched page")
		if len(batch) == 0 {
			break
		}
		out = append(out, batch...)
	}
	log.WithField("total", len(out)).Info("fetched reviews")
	return out, nil
}

func normalizeEntry(e feedEntry) types.Review {
	r := types.Review{
		Text:    e.Content.Label,
		Title:   e.Title.Label,
		Date:    e.Updated.Label,
		User:    e.Author.Name.Label,
		Version: "unknown",
	}
	if r.Title == "" {
		r.Title = "User Review"
	}
	if r.User == "" {
		r.User = "unknown"
	}
	if e.Version != nil && e.Version.Label != "" {
		r.Version = e.Version.Label
	}
	if e.Rating != nil {
		r.Rating, _ = strconv.Atoi(e.Rating.Label)
	}
	return r
}

func within(date string, cutoff time.Time) bool {
	if cutoff.IsZero() {
		return true
	}
	t, err := time.Parse(time.RFC3339, date)
	if err != nil {
		d, ok := types.ParseDate(date)
		if !ok {
			return false
		}
		t = d
	}
	return !t.Before(cutoff)
}

type AppMetadata struct {
	AppID         string  `json:"appId"`
	Name          string  `json:"name"`
	Developer     string  `json:"developer"`
	Icon          string  `json:"icon"`
	Category      string  `json:"category"`
	Version       string  `json:"version"`
	Rating        float64 `json:"rating"`
	RatingCount   int     `json:"ratingCount"`
	URL           string  `json:"url"`
	LastUpdated   string  `json:"lastUpdated"`
	Description   string  `json:"description,omitempty"`
	ReleaseNotes  string  `json:"releaseNotes,omitempty"`
	MinimumOS     string  `json:"minimumOsVersion,omitempty"`
	FormattedSize string  `json:"fileSize,omitempty"`
}

type lookupResponse struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		TrackName                 string  `json:"trackName"`
		ArtistName                string  `json:"artistName"`
		ArtworkURL512             string  `json:"artworkUrl512"`
		ArtworkURL100             string  `json:"artworkUrl100"`
		PrimaryGenreName          string  `json:"primaryGenreName"`
		Version                   string  `json:"version"`
		AverageUserRating         float64 `json:"averageUserRating"`
		UserRatingCount           int     `json:"userRatingCount"`
		TrackViewURL              string  `json:"trackViewUrl"`
		CurrentVersionReleaseDate string  `json:"currentVersionReleaseDate"`
		Description               string  `json:"description"`
		ReleaseNotes              string  `json:"releaseNotes"`
		MinimumOsVersion          string  `json:"minimumOsVersion"`
		FileSizeBytes             string  `json:"fileSizeBytes"`
	} `json:"results"`
}

// Lookup fetches store metadata for one app.
func (c *Client) Lookup(ctx context.Context, appID string) (AppMetadata, error) {
	u := fmt.Sprintf("%s/lookup?id=%s&country=%s", strings.TrimRight(c.opts.BaseURL, "/"), appID, c.opts.Country)
	var resp lookupResponse
	if err := c.doJSON(ctx, u, &resp); err != nil {
		return AppMetadata{}, fmt.Errorf("lookup app %s: %w", appID, err)
	}
	if len(resp.Results) == 0 {
		return AppMetadata{}, fmt.Errorf("lookup app %s: %w", appID, ErrAppNotFound)
	}
	r := resp.Results[0]
	icon := r.ArtworkURL512
	if icon == "" {
		icon = r.ArtworkURL100
	}
	md := AppMetadata{
		AppID:        appID,
		Name:         r.TrackName,
		Developer:    r.ArtistName,
		Icon:         icon,
		Category:     r.PrimaryGenreName,
		Version:      r.Version,
		Rating:       r.AverageUserRating,
		RatingCount:  r.UserRatingCount,
		URL:          r.TrackViewURL,
		LastUpdated:  r.CurrentVersionReleaseDate,
		Description:  r.Description,
		ReleaseNotes: r.ReleaseNotes,
		MinimumOS:    r.MinimumOsVersion,
	}
	if n, err := strconv.ParseInt(r.FileSizeBytes, 10, 64); err == nil && n > 0 {
		md.FormattedSize = fmt.Sprintf("%.1f MB", float64(n)/1024/1024)
	}
	return md, nil
}

func (c *Client) doJSON(ctx context.Context, url string, target any) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.opts.MaxRetryTime
	var lastErr error
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
			return backoff.Permanent(lastErr)
		}
		if len(body) == 0 {
			lastErr = fmt.Errorf("empty body")
			return lastErr
		}
		if err := json.Unmarshal(body, target); err != nil {
			lastErr = fmt.Errorf("json decode error: %v", err)
			return backoff.Permanent(lastErr)
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr != nil {
			return lastErr
		}
		return err
	}
	return nil
}
