// Package publish relays scoreboard snapshots to a remote results site.
//
// Snapshots are coalesced per platform: when the site is slow only the latest
// state of each platform is sent.
package publish

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/fop-engine/internal/config"
	"github.com/yourusername/fop-engine/internal/display"
	"github.com/yourusername/fop-engine/internal/logger"
	"github.com/yourusername/fop-engine/internal/metrics"
	"github.com/yourusername/fop-engine/internal/uievent"
)

// SignatureHeader carries the hex HMAC-SHA256 of the body keyed by the shared secret.
const SignatureHeader = "X-Fop-Signature"

// Publisher posts scoreboard snapshots to the configured URL.
type Publisher struct {
	url    string
	secret string
	client *Client
	log    *logrus.Entry

	mu      sync.Mutex
	pending map[string][]byte
	order   []string
	wake    chan struct{}
}

// New creates a publisher from configuration.
func New(cfg config.PublishConfig, timeout time.Duration, log *logrus.Logger) *Publisher {
	entry := logger.OrDiscard(log).WithField("component", "publish")
	cc := DefaultClientConfig()
	cc.Timeout = timeout
	cc.MaxRetries = cfg.RetryMax
	cc.RateLimit = cfg.RateLimit
	cc.Burst = cfg.Burst
	return NewWithClient(cfg.URL, cfg.Secret, NewClient(cc, entry), log)
}

// NewWithClient creates a publisher with an explicit client.
func NewWithClient(url, secret string, client *Client, log *logrus.Logger) *Publisher {
	return &Publisher{
		url:     url,
		secret:  secret,
		client:  client,
		log:     logger.OrDiscard(log).WithField("component", "publish"),
		pending: make(map[string][]byte),
		wake:    make(chan struct{}, 1),
	}
}

// Attach publishes the platform's state after every event a scoreboard shows.
// The returned function detaches it.
func (p *Publisher) Attach(platform display.Platform) func() {
	return platform.UIBus().SubscribeAll(func(e uievent.UIEvent) error {
		if !publishes(e) {
			return nil
		}
		body, err := display.EncodeSnapshot(platform.Snapshot(), platform.Settings().UseRegistrationCategory)
		if err != nil {
			return err
		}
		p.Enqueue(platform.Name(), body)
		return nil
	})
}

func publishes(e uievent.UIEvent) bool {
	switch e.(type) {
	case uievent.LiftingOrderUpdated, uievent.Decision, uievent.SwitchGroup, uievent.GroupDone,
		uievent.BreakStarted, uievent.BreakDone, uievent.GlobalRankingUpdated:
		return true
	}
	return false
}

// Enqueue replaces the pending snapshot of a platform. It never blocks.
func (p *Publisher) Enqueue(platform string, body []byte) {
	p.mu.Lock()
	if _, ok := p.pending[platform]; !ok {
		p.order = append(p.order, platform)
	}
	p.pending[platform] = body
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of platforms waiting to be published.
func (p *Publisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *Publisher) take() (string, []byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.order) == 0 {
		return "", nil, false
	}
	platform := p.order[0]
	p.order = p.order[1:]
	body := p.pending[platform]
	delete(p.pending, platform)
	return platform, body, true
}

// Run sends pending snapshots until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	p.log.WithField("url", p.url).Info("Scoreboard publisher started")
	defer p.client.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.wake:
		}
		for {
			platform, body, ok := p.take()
			if !ok {
				break
			}
			if err := p.Publish(ctx, platform, body); err != nil {
				p.log.WithError(err).WithField("platform", platform).Warn("Failed to publish scoreboard")
			}
		}
	}
}

// Publish sends one snapshot.
func (p *Publisher) Publish(ctx context.Context, platform string, body []byte) error {
	header := http.Header{}
	header.Set("X-Fop-Platform", platform)
	if p.secret != "" {
		header.Set(SignatureHeader, Sign(p.secret, body))
	}

	resp, err := p.client.Post(ctx, p.url, "application/json", body, header)
	if err != nil {
		metrics.RecordScoreboardPublish("error")
		return fmt.Errorf("failed to publish scoreboard: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode >= 300 {
		metrics.RecordScoreboardPublish("rejected")
		return fmt.Errorf("scoreboard rejected with status %s", resp.Status)
	}
	metrics.RecordScoreboardPublish("ok")
	return nil
}

// Sign computes the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
