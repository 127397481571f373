package parser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/documentloaders"

	"document-oracle/internal/models"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0",
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

// LoadSite fetches a web page and returns its text. Failed attempts are
// retried with a pause, rotating the user agent.
func (p *Parser) LoadSite(ctx context.Context, url string) (*models.Document, error) {
	attempts := max(p.loader.SiteAttempts, 1)
	delay := time.Duration(p.loader.SiteRetryDelay) * time.Second

	var lastErr error
	for i := 0; i < attempts; i++ {
		text, err := fetchSite(ctx, url, userAgents[i%len(userAgents)])
		if err == nil && strings.TrimSpace(text) != "" {
			return loaded(url, text)
		}
		if err == nil {
			err = errors.New("empty page")
		}
		lastErr = err
		log.Warn().Err(err).Str("url", url).Msgf("Error loading site, attempt %d/%d", i+1, attempts)

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, &ExtractionError{Source: url, Kind: KindProcessing, Err: fmt.Errorf("load site after %d attempts: %w", attempts, lastErr)}
}

func fetchSite(ctx context.Context, url, userAgent string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("request failed: %d", resp.StatusCode)
	}

	docs, err := documentloaders.NewHTML(resp.Body).Load(ctx)
	if err != nil {
		return "", err
	}
	return joinDocuments(docs), nil
}
