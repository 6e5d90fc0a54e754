package plex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strings"
)

const (
	productName    = "servarrsync"
	productVersion = "0.1.0"
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPLibrary implements Library against the Plex Media Server HTTP API.
type HTTPLibrary struct {
	baseURL          string
	token            string
	clientIdentifier string
	client           HTTPDoer
}

// NewHTTPLibrary constructs a Plex API client using the provided HTTP backend.
func NewHTTPLibrary(baseURL, token, clientIdentifier string, client HTTPDoer) *HTTPLibrary {
	return &HTTPLibrary{
		baseURL:          strings.TrimRight(baseURL, "/"),
		token:            token,
		clientIdentifier: clientIdentifier,
		client:           client,
	}
}

// Identity fetches the server's friendly name, verifying the connection and
// credentials in one round trip.
func (l *HTTPLibrary) Identity(ctx context.Context) (string, error) {
	var resp struct {
		MediaContainer struct {
			FriendlyName string `json:"friendlyName"`
		} `json:"MediaContainer"`
	}
	if err := l.doJSONRequest(ctx, http.MethodGet, "/", nil, &resp); err != nil {
		return "", err
	}
	return resp.MediaContainer.FriendlyName, nil
}

func (l *HTTPLibrary) ScanPath(ctx context.Context, sectionID, path string) error {
	query := url.Values{"path": []string{path}}
	endpoint := fmt.Sprintf("/library/sections/%s/refresh", url.PathEscape(sectionID))
	return l.doJSONRequest(ctx, http.MethodGet, endpoint, query, nil)
}

func (l *HTTPLibrary) FindByPath(ctx context.Context, sectionID, path string) ([]Item, error) {
	query := url.Values{"path": []string{path}}
	return l.fetchItems(ctx, sectionID, query)
}

func (l *HTTPLibrary) Search(ctx context.Context, sectionID, title string) ([]Item, error) {
	query := url.Values{"title": []string{title}}
	return l.fetchItems(ctx, sectionID, query)
}

func (l *HTTPLibrary) Analyze(ctx context.Context, item Item) error {
	if strings.TrimSpace(item.RatingKey) == "" {
		return fmt.Errorf("analyze: item has no rating key")
	}
	endpoint := fmt.Sprintf("/library/metadata/%s/analyze", url.PathEscape(item.RatingKey))
	return l.doJSONRequest(ctx, http.MethodPut, endpoint, nil, nil)
}

type metadataEntry struct {
	RatingKey string `json:"ratingKey"`
	Title     string `json:"title"`
	Location  []struct {
		Path string `json:"path"`
	} `json:"Location"`
	Media []struct {
		Part []struct {
			File string `json:"file"`
		} `json:"Part"`
	} `json:"Media"`
}

func (l *HTTPLibrary) fetchItems(ctx context.Context, sectionID string, query url.Values) ([]Item, error) {
	var resp struct {
		MediaContainer struct {
			Metadata []metadataEntry `json:"Metadata"`
		} `json:"MediaContainer"`
	}
	endpoint := fmt.Sprintf("/library/sections/%s/all", url.PathEscape(sectionID))
	if err := l.doJSONRequest(ctx, http.MethodGet, endpoint, query, &resp); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(resp.MediaContainer.Metadata))
	for _, entry := range resp.MediaContainer.Metadata {
		item := Item{RatingKey: entry.RatingKey, Title: entry.Title}
		for _, location := range entry.Location {
			if location.Path != "" {
				item.Locations = append(item.Locations, location.Path)
			}
		}
		// Leaf items carry their files on media parts instead of locations.
		if len(item.Locations) == 0 {
			for _, media := range entry.Media {
				for _, part := range media.Part {
					if part.File != "" {
						item.Locations = append(item.Locations, part.File)
					}
				}
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (l *HTTPLibrary) doJSONRequest(ctx context.Context, method, path string, query url.Values, out any) error {
	endpoint := l.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", l.token)
	req.Header.Set("X-Plex-Client-Identifier", l.clientIdentifier)
	req.Header.Set("X-Plex-Product", productName)
	req.Header.Set("X-Plex-Version", productVersion)
	req.Header.Set("X-Plex-Device-Name", productName)
	req.Header.Set("X-Plex-Platform", runtime.GOOS)

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("plex request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("plex %s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
