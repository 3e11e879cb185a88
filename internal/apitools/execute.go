package apitools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"mcphub/internal/api"
	"mcphub/internal/config"
	"mcphub/pkg/logging"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// execute runs the call pipeline: render → cache probe → HTTP → parse →
// transform → wrap → cache store.
func (b *Bridge) execute(ctx context.Context, cfg config.APIToolConfig, args map[string]interface{}) (*api.ToolResult, error) {
	rendered, err := renderRequest(cfg.Request, args)
	if err != nil {
		return api.ErrorResult("Error: invalid request template for tool '%s': %v", cfg.ID, err), nil
	}

	cacheKey := ""
	if cfg.Cache.Enabled {
		cacheKey = cfg.ID + "|" + rendered.canonical()
		if result, hit := b.cache.get(cacheKey); hit {
			logging.Debug("APIToolBridge", "Cache hit for tool %s", cfg.ID)
			return result, nil
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Request.TimeoutSeconds)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, rendered.method, rendered.url, strings.NewReader(rendered.body))
	if err != nil {
		return api.ErrorResult("Error: building request for tool '%s': %v", cfg.ID, err), nil
	}
	for k, v := range rendered.headers {
		req.Header.Set(k, v)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		// Transport errors surface as errors rather than error results.
		// The dispatcher runs API tools once and does not retry them.
		return nil, fmt.Errorf("network error calling %s: %w", cfg.ID, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("network error reading response for %s: %w", cfg.ID, err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("server unavailable: %s returned status %d", cfg.ID, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return api.ErrorResult("Error: %s returned status %d: %s", cfg.ID, resp.StatusCode, truncate(string(bodyBytes), 512)), nil
	}

	payload := transformResponse(cfg, resp.Header.Get("Content-Type"), bodyBytes)
	result := api.TextResult(payload)

	if cfg.Cache.Enabled {
		b.cache.put(cacheKey, result, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	}
	return result, nil
}

// renderedRequest is a fully substituted HTTP request.
type renderedRequest struct {
	method  string
	url     string
	headers map[string]string
	body    string
}

// canonical builds a deterministic string for cache keying: sorted query
// already baked into the URL, plus sorted headers and the body.
func (r renderedRequest) canonical() string {
	var sb strings.Builder
	sb.WriteString(r.method)
	sb.WriteByte(' ')
	sb.WriteString(r.url)
	keys := make([]string, 0, len(r.headers))
	for k := range r.headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteByte('\n')
		sb.WriteString(k)
		sb.WriteByte(':')
		sb.WriteString(r.headers[k])
	}
	sb.WriteByte('\n')
	sb.WriteString(r.body)
	return sb.String()
}

func renderRequest(spec config.RequestSpec, args map[string]interface{}) (renderedRequest, error) {
	rawURL := substitute(spec.URL, args)
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return renderedRequest{}, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	if len(spec.Query) > 0 {
		q := parsed.Query()
		keys := make([]string, 0, len(spec.Query))
		for k := range spec.Query {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			q.Set(k, substitute(spec.Query[k], args))
		}
		parsed.RawQuery = q.Encode()
	}

	return renderedRequest{
		method:  spec.Method,
		url:     parsed.String(),
		headers: substituteMap(spec.Headers, args),
		body:    substitute(spec.Body, args),
	}, nil
}

// transformResponse parses the body (JSON for application/json or for a
// body that is a valid JSON object or array, text otherwise) and applies
// the configured transform. Transform failures
// downgrade to the raw parsed body with a warning rather than an error.
func transformResponse(cfg config.APIToolConfig, contentType string, body []byte) string {
	isJSON := strings.Contains(contentType, "application/json") || (looksLikeJSON(body) && gjson.ValidBytes(body))
	if !isJSON {
		return string(body)
	}

	doc := string(body)

	// Prune configured paths first so the transform sees the slimmed body.
	for _, path := range cfg.Response.Drop {
		pruned, err := sjson.Delete(doc, path)
		if err != nil {
			logging.Warn("APIToolBridge", "Tool %s: dropping path %q failed: %v", cfg.ID, path, err)
			continue
		}
		doc = pruned
	}

	if cfg.Response.Transform == "" {
		return doc
	}

	selected := gjson.Get(doc, cfg.Response.Transform)
	if !selected.Exists() {
		logging.Warn("APIToolBridge", "Tool %s: transform %q matched nothing, returning raw body", cfg.ID, cfg.Response.Transform)
		return doc
	}
	return selected.Raw
}

func looksLikeJSON(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
