package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/example/geolearn/pkg/models"
)

// maxDocumentSize caps how much of a document is read
const maxDocumentSize = 4 << 20

// Fetcher downloads the markdown of catalog resources
type Fetcher struct {
	baseURL string
	client  *http.Client
}

// NewFetcher creates a fetcher reading documents below baseURL
func NewFetcher(baseURL string) *Fetcher {
	return &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// URL returns where the document of r is served from
func (f *Fetcher) URL(r models.Resource) string {
	return f.baseURL + "/data/" + r.Category + "/" + r.File
}

// Fetch returns the markdown source of r
func (f *Fetcher) Fetch(ctx context.Context, r models.Resource) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(r), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Accept", "text/markdown, text/plain")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to load document %s: status %d", r.ID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return "", fmt.Errorf("failed to read document: %v", err)
	}
	return string(body), nil
}
