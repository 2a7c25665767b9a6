package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"API_FIRESTORE_PROJECT_ID": "menuslot-dev",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Store.Driver != StoreFirestore {
		t.Errorf("expected firestore driver by default, got %s", cfg.Store.Driver)
	}
	if cfg.PubSub.ProjectID != "menuslot-dev" {
		t.Errorf("expected pubsub project to default to firestore project, got %s", cfg.PubSub.ProjectID)
	}
	if cfg.Redis.Enabled() {
		t.Errorf("redis must be disabled without an address")
	}
	if cfg.RateLimits.PerMinute != defaultRateLimitPerMinute || cfg.RateLimits.Burst != defaultRateLimitBurst {
		t.Errorf("unexpected rate limits: %#v", cfg.RateLimits)
	}
	if cfg.Idempotency.Header != defaultIdempotencyHeader || cfg.Idempotency.TTL != defaultIdempotencyTTL {
		t.Errorf("unexpected idempotency defaults: %#v", cfg.Idempotency)
	}
	if cfg.Booking.Location != time.UTC {
		t.Errorf("expected UTC booking location, got %v", cfg.Booking.Location)
	}
	if len(cfg.CORS.AllowedOrigins) != 0 {
		t.Errorf("expected no CORS origins, got %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected info log level, got %s", cfg.LogLevel)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"API_SERVER_PORT":           "9090",
		"API_SERVER_READ_TIMEOUT":   "20s",
		"API_STORE_DRIVER":          "Mongo",
		"API_MONGO_URI":             "sm://mongo/uri",
		"API_MONGO_DATABASE":        "menus",
		"API_REDIS_ADDR":            "localhost:6379",
		"API_REDIS_PASSWORD":        "secret://redis/password",
		"API_REDIS_DB":              "2",
		"API_CACHE_ITEM_TTL":        "90s",
		"API_PUBSUB_PROJECT_ID":     "events-prj",
		"API_PUBSUB_BOOKING_TOPIC":  "bookings",
		"API_CORS_ALLOWED_ORIGINS":  "https://a.example.com, https://b.example.com",
		"API_RATELIMIT_PER_MIN":     "60",
		"API_RATELIMIT_BURST":       "10",
		"API_IDEMPOTENCY_HEADER":    "X-Idem-Key",
		"API_IDEMPOTENCY_TTL":       "48h",
		"API_BOOKING_TIMEZONE":      "Asia/Tokyo",
		"API_TICKET_SIGNING_SECRET": "secret://tickets/hmac",
		"API_BUILD_VERSION":         "1.4.0",
	}

	secrets := map[string]string{
		"secret://mongo/uri":      "mongodb://db:27017/?replicaSet=rs0",
		"secret://redis/password": "redis-pass",
		"secret://tickets/hmac":   "ticket-key",
	}
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if v, ok := secrets[ref]; ok {
			return v, nil
		}
		return "", errors.New("unknown secret")
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver),
		WithRequiredSecrets("Booking.TicketSigningSecret"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" || cfg.Server.ReadTimeout != 20*time.Second {
		t.Errorf("unexpected server config: %#v", cfg.Server)
	}
	if cfg.Store.Driver != StoreMongo || cfg.Mongo.URI != "mongodb://db:27017/?replicaSet=rs0" || cfg.Mongo.Database != "menus" {
		t.Errorf("unexpected store config: %#v %#v", cfg.Store, cfg.Mongo)
	}
	if cfg.Redis.Password != "redis-pass" || cfg.Redis.DB != 2 || cfg.Redis.ItemCacheTTL != 90*time.Second {
		t.Errorf("unexpected redis config: %#v", cfg.Redis)
	}
	if cfg.PubSub.ProjectID != "events-prj" || cfg.PubSub.BookingTopic != "bookings" {
		t.Errorf("unexpected pubsub config: %#v", cfg.PubSub)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("unexpected CORS origins: %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.Booking.Location == nil || cfg.Booking.Location.String() != "Asia/Tokyo" {
		t.Errorf("unexpected booking location: %v", cfg.Booking.Location)
	}
	if cfg.Booking.TicketSigningSecret != "ticket-key" {
		t.Errorf("expected resolved ticket secret, got %q", cfg.Booking.TicketSigningSecret)
	}
	if cfg.Idempotency.Header != "X-Idem-Key" || cfg.Idempotency.TTL != 48*time.Hour {
		t.Errorf("unexpected idempotency config: %#v", cfg.Idempotency)
	}
	if cfg.Build.Version != "1.4.0" {
		t.Errorf("unexpected build version %s", cfg.Build.Version)
	}
}

func TestLoadValidationErrorListsFields(t *testing.T) {
	env := map[string]string{
		"API_STORE_DRIVER":      "mongo",
		"API_BOOKING_TIMEZONE":  "Mars/Olympus",
		"API_RATELIMIT_PER_MIN": "0",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := map[string]bool{}
	for _, field := range validationErr.Fields() {
		fields[field] = true
	}
	for _, want := range []string{"Booking.Timezone", "Mongo.URI", "RateLimits.PerMinute"} {
		if !fields[want] {
			t.Errorf("expected %s in %v", want, validationErr.Fields())
		}
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	env := map[string]string{"API_STORE_DRIVER": "sqlite"}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) || validationErr.Fields()[0] != "Store.Driver" {
		t.Fatalf("expected Store.Driver validation error, got %v", err)
	}
}

func TestLoadSecretWithoutResolver(t *testing.T) {
	env := map[string]string{
		"API_FIRESTORE_PROJECT_ID":  "menuslot-dev",
		"API_TICKET_SIGNING_SECRET": "sm://tickets/hmac",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %v", err)
	}
	if secretErr.Ref != "secret://tickets/hmac" {
		t.Fatalf("expected normalised reference, got %s", secretErr.Ref)
	}
	if !errors.Is(err, errSecretResolverNotConfigured) {
		t.Fatalf("expected resolver-not-configured cause, got %v", err)
	}
}

func TestLoadMissingRequiredSecret(t *testing.T) {
	env := map[string]string{"API_FIRESTORE_PROJECT_ID": "menuslot-dev"}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""),
		WithRequiredSecrets("Booking.TicketSigningSecret", "Booking.TicketSigningSecret"))
	var missing *MissingSecretsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSecretsError, got %v", err)
	}
	if names := missing.Names(); len(names) != 1 || names[0] != "Booking.TicketSigningSecret" {
		t.Fatalf("unexpected missing names %v", names)
	}
	if redacted := missing.RedactedNames(); len(redacted) != 1 || redacted[0] == "Booking.TicketSigningSecret" {
		t.Fatalf("expected redacted names, got %v", redacted)
	}
}

func TestLoadReadsDotEnvWithPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\nAPI_FIRESTORE_PROJECT_ID=from-file\nexport API_SERVER_PORT=7070\nAPI_REDIS_ADDR=\"cache:6379\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(path), WithoutSystemEnv(), WithEnvMap(map[string]string{"API_SERVER_PORT": "9999"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Firestore.ProjectID != "from-file" {
		t.Errorf("expected project from .env, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.Server.Port != "9999" {
		t.Errorf("expected explicit map to win over .env, got %s", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "cache:6379" {
		t.Errorf("expected quoted value to be unwrapped, got %s", cfg.Redis.Addr)
	}
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.env")
	if _, err := Load(context.Background(), WithEnvFile(missing), WithoutSystemEnv(), WithEnvMap(map[string]string{"API_FIRESTORE_PROJECT_ID": "p"})); err != nil {
		t.Fatalf("expected missing .env to be ignored, got %v", err)
	}
}
