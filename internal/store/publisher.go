package store

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dotcommander/blgate/internal/errs"
	"github.com/dotcommander/blgate/internal/logging"
	"github.com/dotcommander/blgate/internal/manifest"
	"github.com/dotcommander/blgate/internal/metrics"
)

// FallbackPolicy decides what happens when the update target does not exist.
type FallbackPolicy int

const (
	// FallbackCreate registers the resource name once and takes that
	// response as final. The update is not retried.
	FallbackCreate FallbackPolicy = iota
	// FallbackNone treats the not-found update as final.
	FallbackNone
)

func (p FallbackPolicy) String() string {
	switch p {
	case FallbackNone:
		return "none"
	default:
		return "create"
	}
}

// PublishError is a publish that ended on a non-success status.
type PublishError struct {
	Type   string
	Name   string
	Status int
	Body   string
}

func (e *PublishError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		body = http.StatusText(e.Status)
	}
	return fmt.Sprintf("failed to publish %s %s to store: status %d: %s", e.Type, e.Name, e.Status, body)
}

// Is makes every PublishError match errs.ErrPublish.
func (e *PublishError) Is(target error) bool {
	return target == errs.ErrPublish
}

// API is the subset of the store the publisher needs.
type API interface {
	Update(ctx context.Context, kind, name string, body []byte) (*Response, error)
	Create(ctx context.Context, kind, name string) (*Response, error)
}

// Publisher loads manifests and pushes them to the store.
type Publisher struct {
	api      API
	dir      string
	image    string
	fallback FallbackPolicy
	logger   *zap.SugaredLogger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithFallback sets the not-found policy.
func WithFallback(p FallbackPolicy) Option {
	return func(pub *Publisher) { pub.fallback = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(pub *Publisher) { pub.logger = logging.OrNop(l) }
}

// NewPublisher returns a publisher reading manifests under dir and stamping
// them with image.
func NewPublisher(api API, dir, image string, opts ...Option) *Publisher {
	p := &Publisher{
		api:    api,
		dir:    dir,
		image:  image,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish loads the manifest for (kind, key), stamps the image and sends it
// to the store under the manifest's declared name. key only locates the file
// and names a collection created on 404. Failures are returned as is; the
// caller owns retries.
func (p *Publisher) Publish(ctx context.Context, kind, key string) (err error) {
	start := time.Now()
	defer func() { metrics.ObservePublish(kind, err, time.Since(start)) }()

	m, err := manifest.Load(p.dir, kind, key)
	if err != nil {
		return err
	}
	m.SetImage(p.image)

	body, err := m.MarshalJSON()
	if err != nil {
		return errs.Wrapf(err, "Could not encode manifest %s.", m.File())
	}

	name := m.Name()
	if name == "" {
		name = key
	}
	resp, err := p.api.Update(ctx, kind, name, body)
	if err != nil {
		return errs.New(errs.ErrPublish, err, fmt.Sprintf("Could not reach the store to publish %s %s.", kind, name))
	}
	p.logger.Debugw("update sent", "type", kind, "name", name, "status", resp.Status)

	if resp.Status == http.StatusNotFound && p.fallback == FallbackCreate {
		p.logger.Infow("resource missing, creating", "type", kind, "name", name, "key", key)
		resp, err = p.api.Create(ctx, kind, key)
		if err != nil {
			return errs.New(errs.ErrPublish, err, fmt.Sprintf("Could not reach the store to create %s %s.", kind, key))
		}
	}

	if !resp.OK() {
		return &PublishError{Type: kind, Name: name, Status: resp.Status, Body: string(resp.Body)}
	}
	p.logger.Infow("published", "type", kind, "name", name, "image", p.image)
	return nil
}
