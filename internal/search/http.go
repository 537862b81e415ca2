package search

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

func clientOrDefault(hc *http.Client) *http.Client {
	if hc == nil {
		return &http.Client{Timeout: defaultTimeout}
	}
	return hc
}

// doJSON sends req and decodes a 2xx JSON body into v.
func doJSON(hc *http.Client, req *http.Request, provider, userAgent string, v any) error {
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := clientOrDefault(hc).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s status: %d", provider, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%s decode: %w", provider, err)
	}
	return nil
}

// collect trims r and appends it unless it lacks a URL or title. The boolean
// reports whether more results are wanted.
func collect(out []Result, r Result, limit int) ([]Result, bool) {
	r.Title = strings.TrimSpace(r.Title)
	r.URL = strings.TrimSpace(r.URL)
	r.Description = strings.TrimSpace(r.Description)
	if r.URL == "" || r.Title == "" {
		return out, limit <= 0 || len(out) < limit
	}
	out = append(out, r)
	return out, limit <= 0 || len(out) < limit
}
