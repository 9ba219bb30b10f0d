package publish

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fop-engine/internal/eventbus"
	"github.com/yourusername/fop-engine/internal/fieldofplay"
	"github.com/yourusername/fop-engine/internal/fopevent"
	"github.com/yourusername/fop-engine/internal/models"
	"github.com/yourusername/fop-engine/internal/uievent"
)

func testClient(retries, breakerMax int) *Client {
	return NewClient(ClientConfig{
		Timeout:           time.Second,
		MaxRetries:        retries,
		RetryWaitMin:      time.Millisecond,
		RetryWaitMax:      5 * time.Millisecond,
		CircuitBreakerMax: breakerMax,
	}, logrus.NewEntry(logrus.New()))
}

type capture struct {
	mu       sync.Mutex
	bodies   []string
	headers  []http.Header
	statuses []int
	calls    atomic.Int32
}

// handler answers with statuses in turn, then 200.
func (c *capture) handler(w http.ResponseWriter, r *http.Request) {
	n := int(c.calls.Add(1))
	body, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	c.bodies = append(c.bodies, string(body))
	c.headers = append(c.headers, r.Header.Clone())
	status := http.StatusOK
	if n <= len(c.statuses) {
		status = c.statuses[n-1]
	}
	c.mu.Unlock()
	w.WriteHeader(status)
}

func (c *capture) snapshot() ([]string, []http.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.bodies...), append([]http.Header(nil), c.headers...)
}

func newSite(t *testing.T, statuses ...int) (*capture, *httptest.Server) {
	t.Helper()
	c := &capture{statuses: statuses}
	ts := httptest.NewServer(http.HandlerFunc(c.handler))
	t.Cleanup(ts.Close)
	return c, ts
}

func TestPublishSignsBody(t *testing.T) {
	site, ts := newSite(t)
	p := NewWithClient(ts.URL, "s3cret", testClient(0, 5), nil)

	body := []byte(`{"type":"snapshot"}`)
	require.NoError(t, p.Publish(context.Background(), "A", body))

	bodies, headers := site.snapshot()
	require.Len(t, bodies, 1)
	assert.Equal(t, string(body), bodies[0])
	assert.Equal(t, Sign("s3cret", body), headers[0].Get(SignatureHeader))
	assert.Equal(t, "A", headers[0].Get("X-Fop-Platform"))
	assert.Equal(t, "application/json", headers[0].Get("Content-Type"))
}

func TestSignIsKeyed(t *testing.T) {
	body := []byte("payload")
	assert.Equal(t, Sign("a", body), Sign("a", body))
	assert.NotEqual(t, Sign("a", body), Sign("b", body))
	assert.Len(t, Sign("a", body), 64)
}

func TestPublishOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		retries   int
		wantErr   bool
		wantCalls int32
	}{
		{"accepted", nil, 3, false, 1},
		{"retried until accepted", []int{503, 502}, 3, false, 3},
		{"client error is not retried", []int{400}, 3, true, 1},
		{"retries exhausted", []int{500, 500, 500}, 2, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site, ts := newSite(t, tt.statuses...)
			p := NewWithClient(ts.URL, "", testClient(tt.retries, 10), nil)

			err := p.Publish(context.Background(), "A", []byte(`{}`))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, site.calls.Load())
		})
	}
}

func TestCircuitBreakerOpens(t *testing.T) {
	site, ts := newSite(t, 500, 500, 500, 500)
	p := NewWithClient(ts.URL, "", testClient(0, 2), nil)
	ctx := context.Background()

	assert.Error(t, p.Publish(ctx, "A", []byte(`{}`)))
	assert.Error(t, p.Publish(ctx, "A", []byte(`{}`)))

	err := p.Publish(ctx, "A", []byte(`{}`))
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), site.calls.Load(), "open circuit does not reach the site")
}

func TestCircuitBreakerHalfOpensAfterCooldown(t *testing.T) {
	site, ts := newSite(t, 500)
	c := NewClient(ClientConfig{
		Timeout:           time.Second,
		CircuitBreakerMax: 1,
		CircuitCooldown:   20 * time.Millisecond,
	}, logrus.NewEntry(logrus.New()))
	p := NewWithClient(ts.URL, "", c, nil)
	ctx := context.Background()

	assert.Error(t, p.Publish(ctx, "A", []byte(`{}`)))
	assert.ErrorIs(t, p.Publish(ctx, "A", []byte(`{}`)), ErrCircuitOpen)

	time.Sleep(30 * time.Millisecond)
	assert.NoError(t, p.Publish(ctx, "A", []byte(`{}`)))
	assert.Equal(t, int32(2), site.calls.Load())
}

func TestRunCoalescesPerPlatform(t *testing.T) {
	site, ts := newSite(t)
	p := NewWithClient(ts.URL, "", testClient(0, 5), nil)

	p.Enqueue("A", []byte(`{"v":1}`))
	p.Enqueue("B", []byte(`{"v":2}`))
	p.Enqueue("A", []byte(`{"v":3}`))
	assert.Equal(t, 2, p.Pending())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return site.calls.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	bodies, headers := site.snapshot()
	assert.Equal(t, []string{`{"v":3}`, `{"v":2}`}, bodies)
	assert.Equal(t, "A", headers[0].Get("X-Fop-Platform"))
	assert.Equal(t, 0, p.Pending())
}

type fakePlatform struct {
	bus *eventbus.Bus[uievent.UIEvent]
}

func (f *fakePlatform) Name() string { return "A" }
func (f *fakePlatform) UIBus() *eventbus.Bus[uievent.UIEvent] { return f.bus }
func (f *fakePlatform) Snapshot() *fieldofplay.Snapshot { return &fieldofplay.Snapshot{Platform: "A"} }
func (f *fakePlatform) Settings() models.RankingSettings { return models.RankingSettings{} }
func (f *fakePlatform) Submit(context.Context, fopevent.FOPEvent) error { return nil }

func TestAttachPublishesScoreboardEvents(t *testing.T) {
	platform := &fakePlatform{bus: eventbus.New[uievent.UIEvent]("ui-A", nil)}
	p := NewWithClient("http://unused.invalid", "", testClient(0, 5), nil)
	detach := p.Attach(platform)

	platform.bus.Post(uievent.StartTime{TimeRemaining: time.Minute})
	assert.Equal(t, 0, p.Pending(), "clock events are not published")

	platform.bus.Post(uievent.LiftingOrderUpdated{})
	assert.Equal(t, 1, p.Pending())

	detach()
	assert.Equal(t, 0, platform.bus.Len())
}
