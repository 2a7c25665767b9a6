package secrets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultFallbackPath = ".secrets.local"
	defaultCacheTTL     = 10 * time.Minute
	meterName           = "github.com/menuslot/api/internal/platform/secrets"
)

var secretManagerClientFactory = func(ctx context.Context, opts ...option.ClientOption) (secretManagerClient, error) {
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type secretManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Resolver turns secret://name[?version=N&project=P] references into values. Remote values are
// read from Secret Manager and cached; a local dotenv-style file serves as fallback when the
// remote is unreachable or no project is configured.
type Resolver struct {
	client     secretManagerClient
	ownsClient bool
	logger     *zap.Logger
	project    string
	ttl        time.Duration
	now        func() time.Time

	fallbackPath string
	fallbackOnce sync.Once
	fallback     map[string]string
	fallbackErr  error

	mu    sync.Mutex
	cache map[string]cacheEntry

	lookups metric.Int64Counter
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

type resolverConfig struct {
	logger       *zap.Logger
	project      string
	ttl          time.Duration
	fallbackPath string
	client       secretManagerClient
	clientOpts   []option.ClientOption
	meter        metric.Meter
	now          func() time.Time
}

// Option customises Resolver construction.
type Option func(*resolverConfig)

// WithLogger sets the logger used for diagnostic output.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *resolverConfig) { cfg.logger = logger }
}

// WithProject sets the Secret Manager project used when a reference does not name one.
func WithProject(projectID string) Option {
	return func(cfg *resolverConfig) { cfg.project = strings.TrimSpace(projectID) }
}

// WithCacheTTL overrides how long resolved values are reused.
func WithCacheTTL(ttl time.Duration) Option {
	return func(cfg *resolverConfig) {
		if ttl > 0 {
			cfg.ttl = ttl
		}
	}
}

// WithFallbackFile overrides the local fallback file. An empty path disables the fallback.
func WithFallbackFile(path string) Option {
	return func(cfg *resolverConfig) { cfg.fallbackPath = strings.TrimSpace(path) }
}

// WithSecretManagerClient injects a Secret Manager client, mainly for tests.
func WithSecretManagerClient(client secretManagerClient) Option {
	return func(cfg *resolverConfig) { cfg.client = client }
}

// WithClientOptions forwards options to the Secret Manager client constructor.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(cfg *resolverConfig) { cfg.clientOpts = append(cfg.clientOpts, opts...) }
}

// WithMeter injects an OpenTelemetry meter.
func WithMeter(m metric.Meter) Option {
	return func(cfg *resolverConfig) { cfg.meter = m }
}

// WithClock overrides the clock used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(cfg *resolverConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

// NewResolver builds a Resolver. When no project is configured the Secret Manager client is
// not created and only the fallback file is consulted.
func NewResolver(ctx context.Context, opts ...Option) (*Resolver, error) {
	cfg := resolverConfig{
		logger:       zap.NewNop(),
		ttl:          defaultCacheTTL,
		fallbackPath: defaultFallbackPath,
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	meter := cfg.meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(meterName)
	}
	lookups, err := meter.Int64Counter(
		"secrets.lookups",
		metric.WithDescription("Secret resolutions by source"),
	)
	if err != nil {
		return nil, fmt.Errorf("secrets: register lookup metric: %w", err)
	}

	r := &Resolver{
		logger:       cfg.logger,
		project:      cfg.project,
		ttl:          cfg.ttl,
		now:          cfg.now,
		fallbackPath: cfg.fallbackPath,
		cache:        make(map[string]cacheEntry),
		lookups:      lookups,
	}

	switch {
	case cfg.client != nil:
		r.client = cfg.client
	case cfg.project != "":
		client, err := secretManagerClientFactory(ctx, cfg.clientOpts...)
		if err != nil {
			cfg.logger.Warn("secrets: secret manager unavailable, using fallback file only", zap.Error(err))
		} else {
			r.client = client
			r.ownsClient = true
		}
	}
	return r, nil
}

// Close releases the Secret Manager client when the resolver created it.
func (r *Resolver) Close() error {
	if r == nil || !r.ownsClient || r.client == nil {
		return nil
	}
	return r.client.Close()
}

// ResolveSecret implements config.SecretResolver.
func (r *Resolver) ResolveSecret(ctx context.Context, ref string) (string, error) {
	parsed, err := parseReference(ref)
	if err != nil {
		return "", err
	}

	if value, ok := r.cached(parsed.key()); ok {
		r.record(ctx, "cache", parsed)
		return value, nil
	}

	project := parsed.Project
	if project == "" {
		project = r.project
	}
	if project != "" && r.client != nil {
		value, err := r.fetch(ctx, project, parsed)
		if err == nil {
			r.store(parsed.key(), value)
			r.record(ctx, "remote", parsed)
			return value, nil
		}
		if !isFallbackError(err) {
			r.record(ctx, "error", parsed)
			return "", fmt.Errorf("secrets: fetch %s: %w", parsed.Name, err)
		}
		r.logger.Debug("secrets: remote unavailable, trying fallback", zap.String("secret", mask(parsed.Name)), zap.Error(err))
	}

	value, ok := r.lookupFallback(parsed)
	if !ok {
		r.record(ctx, "error", parsed)
		return "", fmt.Errorf("secrets: no value for %s", parsed.Name)
	}
	r.store(parsed.key(), value)
	r.record(ctx, "fallback", parsed)
	return value, nil
}

// Invalidate drops a cached value so the next lookup refetches it.
func (r *Resolver) Invalidate(ref string) {
	parsed, err := parseReference(ref)
	if err != nil {
		return
	}
	r.mu.Lock()
	delete(r.cache, parsed.key())
	r.mu.Unlock()
}

func (r *Resolver) fetch(ctx context.Context, project string, ref reference) (string, error) {
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, ref.Name, ref.Version)
	resp, err := r.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", err
	}
	if resp == nil || resp.GetPayload() == nil {
		return "", fmt.Errorf("empty payload for %s", name)
	}
	return string(resp.GetPayload().GetData()), nil
}

func (r *Resolver) cached(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.cache[key]
	if !ok {
		return "", false
	}
	if !r.now().Before(entry.expiresAt) {
		delete(r.cache, key)
		return "", false
	}
	return entry.value, true
}

func (r *Resolver) store(key, value string) {
	r.mu.Lock()
	r.cache[key] = cacheEntry{value: value, expiresAt: r.now().Add(r.ttl)}
	r.mu.Unlock()
}

// lookupFallback reads NAME=value lines from the fallback file. Versions are ignored.
func (r *Resolver) lookupFallback(ref reference) (string, bool) {
	r.fallbackOnce.Do(func() {
		r.fallback = map[string]string{}
		if r.fallbackPath == "" {
			return
		}
		if _, err := os.Stat(r.fallbackPath); errors.Is(err, os.ErrNotExist) {
			return
		}
		values, err := godotenv.Read(r.fallbackPath)
		if err != nil {
			r.fallbackErr = err
			return
		}
		r.fallback = values
	})
	if r.fallbackErr != nil {
		r.logger.Debug("secrets: fallback file unreadable", zap.Error(r.fallbackErr))
		return "", false
	}
	value, ok := r.fallback[ref.Name]
	return value, ok
}

func (r *Resolver) record(ctx context.Context, source string, ref reference) {
	r.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("secret", mask(ref.Name)),
	))
}

type reference struct {
	Name    string
	Version string
	Project string
}

func (r reference) key() string {
	return r.Project + "/" + r.Name + "#" + r.Version
}

func parseReference(ref string) (reference, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return reference{}, errors.New("secrets: empty reference")
	}
	if strings.HasPrefix(trimmed, "sm://") {
		trimmed = "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return reference{}, fmt.Errorf("secrets: invalid reference %q: %w", ref, err)
	}
	if u.Scheme != "secret" {
		return reference{}, fmt.Errorf("secrets: unsupported scheme %q", u.Scheme)
	}
	name := strings.Trim(u.Host+u.Path, "/")
	if name == "" {
		return reference{}, fmt.Errorf("secrets: missing secret name in %q", ref)
	}
	query := u.Query()
	version := strings.TrimSpace(query.Get("version"))
	if version == "" {
		version = "latest"
	}
	return reference{
		Name:    name,
		Version: version,
		Project: strings.TrimSpace(query.Get("project")),
	}, nil
}

func mask(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:6])
}

func isFallbackError(err error) bool {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated, codes.Unavailable, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}
