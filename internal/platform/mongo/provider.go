package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/menuslot/api/internal/platform/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultDatabase       = "menuslot"
)

var ErrProviderClosed = errors.New("mongo: provider is closed")

// Provider owns the MongoDB client shared by the Mongo repositories.
type Provider struct {
	cfg            config.MongoConfig
	connectTimeout time.Duration

	mu     sync.Mutex
	client *mongo.Client
	closed bool
}

// ProviderOption customises the Provider.
type ProviderOption func(*Provider)

// WithConnectTimeout bounds the initial connection handshake.
func WithConnectTimeout(timeout time.Duration) ProviderOption {
	return func(p *Provider) {
		if timeout > 0 {
			p.connectTimeout = timeout
		}
	}
}

// NewProvider constructs a Provider. The connection is opened lazily by Client.
func NewProvider(cfg config.MongoConfig, opts ...ProviderOption) *Provider {
	p := &Provider{cfg: cfg, connectTimeout: defaultConnectTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Client returns the connected client, connecting on first use.
func (p *Provider) Client(ctx context.Context) (*mongo.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrProviderClosed
	}
	if p.client != nil {
		return p.client, nil
	}
	uri := strings.TrimSpace(p.cfg.URI)
	if uri == "" {
		return nil, errors.New("mongo: connection uri is required")
	}

	connectCtx, cancel := context.WithTimeout(ctx, p.connectTimeout)
	defer cancel()
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(p.connectTimeout).
		SetWriteConcern(writeconcern.Majority())
	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	p.client = client
	return client, nil
}

// Database returns the configured database handle.
func (p *Provider) Database(ctx context.Context) (*mongo.Database, error) {
	client, err := p.Client(ctx)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(p.cfg.Database)
	if name == "" {
		name = defaultDatabase
	}
	return client.Database(name), nil
}

// Collection returns a handle for the named collection.
func (p *Provider) Collection(ctx context.Context, name string) (*mongo.Collection, error) {
	db, err := p.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

// RunTransaction executes fn inside a session transaction. The driver retries fn on
// transient transaction errors such as write conflicts.
func (p *Provider) RunTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	client, err := p.Client(ctx)
	if err != nil {
		return err
	}
	session, err := client.StartSession()
	if err != nil {
		return WrapError("transaction", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, options.Transaction().SetWriteConcern(writeconcern.Majority()))
	return WrapError("transaction", err)
}

// Ping verifies the primary answers. It is used by readiness checks.
func (p *Provider) Ping(ctx context.Context) error {
	client, err := p.Client(ctx)
	if err != nil {
		return err
	}
	return WrapError("mongo.ping", client.Ping(ctx, readpref.Primary()))
}

// Close disconnects the client. The Provider cannot be reused afterwards.
func (p *Provider) Close(ctx context.Context) error {
	p.mu.Lock()
	client := p.client
	p.client = nil
	p.closed = true
	p.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}
