// Package export implements the export resolution & content pipeline:
// cache probe, remote session creation, parameter and export discovery,
// computation submission, payload extraction, normalization, and
// fire-and-forget cache population.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Wzesk/sd-export-server/pkg/cache"
	"github.com/Wzesk/sd-export-server/pkg/shapediver"
)

// DefaultExportKind is assumed when a request does not name one.
const DefaultExportKind = "download"

// SessionService is the narrow slice of the remote computation client the
// resolver consumes.
type SessionService interface {
	CreateSession(ctx context.Context, endpoint, ticket string) (*shapediver.Session, error)
	ComputeExport(ctx context.Context, session *shapediver.Session, params map[string]any, exportID string) (map[string]any, error)
}

var _ SessionService = (*shapediver.Client)(nil)

// Request carries the selection criteria for one export resolution.
// Immutable once built.
type Request struct {
	DesignID             string
	Endpoint             string // empty: use the configured default
	ExportKind           string // empty: DefaultExportKind
	NameContains         string
	PreferredContentType string
	BypassCache          bool
}

// Result is a resolved artifact plus whether it came from the cache.
type Result struct {
	cache.Artifact
	CacheHit bool
}

// Config holds the server-side resolver settings. The ticket never comes
// from the caller.
type Config struct {
	Ticket          string
	DefaultEndpoint string
	JSONParamName   string
	PublicBaseURL   string
}

// Resolver orchestrates the export pipeline. Each Resolve call is
// independent; there is no dedup of concurrent identical requests — two
// simultaneous misses both compute.
type Resolver struct {
	sessions   SessionService
	cache      cache.Cache
	cfg        Config
	logger     *slog.Logger
	httpClient *http.Client
}

// New creates a resolver. A nil httpClient gets a default used only for
// secondary artifact URL downloads.
func New(sessions SessionService, artifactCache cache.Cache, cfg Config, logger *slog.Logger, httpClient *http.Client) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Resolver{
		sessions:   sessions,
		cache:      artifactCache,
		cfg:        cfg,
		logger:     logger,
		httpClient: httpClient,
	}
}

// Resolve runs the pipeline for one request. Steps execute strictly
// sequentially except the final cache write, which is detached so it can
// never delay or fail the response.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	if req.DesignID == "" {
		return nil, validationErr("designId is required")
	}

	kind := req.ExportKind
	if kind == "" {
		kind = DefaultExportKind
	}
	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = r.cfg.DefaultEndpoint
	}

	criteria := cache.Criteria{
		DesignID:     req.DesignID,
		ExportKind:   kind,
		NameContains: req.NameContains,
		ContentType:  req.PreferredContentType,
	}

	if !req.BypassCache {
		artifact, hit, err := r.cache.Get(ctx, criteria)
		if err != nil {
			r.logger.Warn("cache probe failed", "design_id", req.DesignID, "error", err)
		} else if hit {
			return &Result{Artifact: artifact, CacheHit: true}, nil
		}
	}

	session, err := r.sessions.CreateSession(ctx, endpoint, r.cfg.Ticket)
	if err != nil {
		return nil, upstreamErr(err, "failed to create session")
	}

	paramID, err := r.findJSONParameter(session)
	if err != nil {
		return nil, err
	}

	exportID, exportName, err := findExport(session, kind, req.NameContains)
	if err != nil {
		return nil, err
	}

	params := map[string]any{
		paramID: fmt.Sprintf("%s/api/data/%s", strings.TrimSuffix(r.cfg.PublicBaseURL, "/"), req.DesignID),
	}
	result, err := r.sessions.ComputeExport(ctx, session, params, exportID)
	if err != nil {
		return nil, upstreamErr(err, "export computation failed")
	}

	artifact, err := r.assembleArtifact(ctx, result, req, kind, exportName)
	if err != nil {
		return nil, err
	}

	// Populate the cache under the normalized content type without
	// blocking the response. Failures are logged and swallowed.
	writeCriteria := criteria
	writeCriteria.ContentType = artifact.ContentType
	go r.populateCache(writeCriteria, *artifact)

	return &Result{Artifact: *artifact, CacheHit: false}, nil
}

// findJSONParameter locates the model's JSON-input parameter by its
// configured sentinel name. A model without it is misconfigured for this
// server, not a user error.
func (r *Resolver) findJSONParameter(session *shapediver.Session) (string, error) {
	for _, id := range sortedKeys(session.Parameters) {
		if session.Parameters[id].Name == r.cfg.JSONParamName {
			return id, nil
		}
	}
	return "", configurationErr("missing required input parameter %q", r.cfg.JSONParamName)
}

// findExport selects the first export whose type matches the requested kind
// (case-insensitive) and, when a filter is given, whose name contains it
// (case-insensitive). Iteration over sorted ids keeps selection
// deterministic for an unchanged session descriptor.
func findExport(session *shapediver.Session, kind, nameContains string) (id, name string, err error) {
	filter := strings.ToLower(nameContains)
	for _, exportID := range sortedKeys(session.Exports) {
		info := session.Exports[exportID]
		if !strings.EqualFold(info.Type, kind) {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(info.Name), filter) {
			continue
		}
		return exportID, info.Name, nil
	}
	return "", "", notFoundErr("Export not found",
		"no export matching type=%q name contains=%q", kind, nameContains)
}

// assembleArtifact extracts the payload bytes from the polymorphic compute
// result and normalizes content type and filename.
func (r *Resolver) assembleArtifact(ctx context.Context, result map[string]any, req Request, kind, exportName string) (*cache.Artifact, error) {
	target, ok := pickEntry(result, req.PreferredContentType)
	if !ok {
		target = result
	}

	variant := resolveVariant(target)
	var data []byte
	switch variant.kind {
	case payloadNone:
		return nil, contentErr("no export content for design %q", req.DesignID)
	case payloadRemoteURL:
		fetched, err := r.fetchArtifact(ctx, variant.url)
		if err != nil {
			return nil, err
		}
		data = fetched
	default:
		data = variant.bytes
	}
	if len(data) == 0 {
		return nil, contentErr("no export content for design %q", req.DesignID)
	}

	format, _ := target["format"].(string)
	if format == "" {
		format, _ = result["format"].(string)
	}

	contentType := normalizeContentType(format, entryContentType(target), req.PreferredContentType)
	ext := fileExtension(format, contentType)
	filename := artifactFilename(req.DesignID, exportName, kind, ext)

	return &cache.Artifact{Bytes: data, ContentType: contentType, Filename: filename}, nil
}

// fetchArtifact performs the single GET of a result that only referenced
// its payload by URL.
func (r *Resolver) fetchArtifact(ctx context.Context, url string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, downloadErr("download failed: %v", err)
	}
	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, downloadErr("download failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, downloadErr("download failed: status %d from artifact URL", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, downloadErr("download failed: %v", err)
	}
	return data, nil
}

// populateCache runs detached from the request; it gets its own context so
// a finished request cannot cancel the write mid-flight.
func (r *Resolver) populateCache(criteria cache.Criteria, artifact cache.Artifact) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := r.cache.Put(ctx, criteria, artifact); err != nil {
		r.logger.Warn("cache write failed",
			"design_id", criteria.DesignID, "export_kind", criteria.ExportKind, "error", err)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
