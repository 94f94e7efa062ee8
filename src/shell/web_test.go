package shell

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agent "github.com/Protocol-Lattice/research-agent"
	"github.com/Protocol-Lattice/research-agent/src/metrics"
)

type webClient struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newWebServer(t *testing.T, rt Runtime, sink *memorySink, opts ...WebOption) *webClient {
	t.Helper()
	sh, _ := newTestShell(t, rt, sink)
	srv := httptest.NewServer(NewWeb(sh, opts...))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &webClient{t: t, base: srv.URL, client: &http.Client{Jar: jar}}
}

func (c *webClient) chat(message string) (int, chatResponse) {
	c.t.Helper()
	body, _ := json.Marshal(chatRequest{Message: message})
	resp, err := c.client.Post(c.base+"/api/chat", "application/json", strings.NewReader(string(body)))
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var out chatResponse
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (c *webClient) history() []agent.Message {
	c.t.Helper()
	resp, err := c.client.Get(c.base + "/api/history")
	require.NoError(c.t, err)
	defer resp.Body.Close()
	require.Equal(c.t, http.StatusOK, resp.StatusCode)

	var out struct {
		Session  string          `json:"session"`
		Messages []agent.Message `json:"messages"`
	}
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Messages
}

func TestWebChatRoundTrip(t *testing.T) {
	sink := &memorySink{}
	c := newWebServer(t, &fakeRuntime{}, sink)

	status, resp := c.chat("Tell me about France")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, franceRendered, resp.Reply)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "France", resp.Result.Topic)
	assert.Empty(t, resp.Error)
	assert.Len(t, sink.records(), 1)

	history := c.history()
	require.Len(t, history, 2)
	assert.Equal(t, agent.RoleUser, history[0].Role)
	assert.Equal(t, franceRendered, history[1].Content)
}

func TestWebSessionsAreSeparatedByCookie(t *testing.T) {
	rt := &fakeRuntime{}
	c := newWebServer(t, rt, &memorySink{})

	c.chat("first")
	c.chat("second")
	require.Len(t, rt.inputs, 2)
	assert.Equal(t, rt.inputs[0].SessionID, rt.inputs[1].SessionID)
	assert.Len(t, rt.inputs[1].ChatHistory, 3)

	other := &webClient{t: t, base: c.base, client: &http.Client{}}
	other.chat("third")
	require.Len(t, rt.inputs, 3)
	assert.NotEqual(t, rt.inputs[0].SessionID, rt.inputs[2].SessionID)
	assert.Len(t, rt.inputs[2].ChatHistory, 1)
}

func TestWebExitClearsHistory(t *testing.T) {
	c := newWebServer(t, &fakeRuntime{}, &memorySink{})

	c.chat("Tell me about France")
	require.Len(t, c.history(), 2)

	status, resp := c.chat("/bye")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Exit)
	assert.Equal(t, goodbye, resp.Reply)
	assert.Empty(t, c.history())
}

func TestWebExitStartsFreshSession(t *testing.T) {
	rt := &fakeRuntime{}
	c := newWebServer(t, rt, &memorySink{})

	c.chat("first")
	c.chat("exit")
	c.chat("second")
	require.Len(t, rt.inputs, 2)
	assert.NotEqual(t, rt.inputs[0].SessionID, rt.inputs[1].SessionID)
	assert.Len(t, rt.inputs[1].ChatHistory, 1)
}

func TestWebParseFailureReturnsRaw(t *testing.T) {
	sink := &memorySink{}
	c := newWebServer(t, &fakeRuntime{outputs: []string{"plain prose"}}, sink)

	status, resp := c.chat("Tell me about France")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "plain prose", resp.Raw)
	assert.NotEmpty(t, resp.Error)
	assert.Nil(t, resp.Result)
	assert.Empty(t, sink.records())
}

func TestWebRuntimeErrorIsBadGateway(t *testing.T) {
	c := newWebServer(t, &fakeRuntime{err: errors.New("upstream timeout")}, &memorySink{})

	status, resp := c.chat("Tell me about France")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, resp.Error, "upstream timeout")
}

func TestWebRejectsBadRequests(t *testing.T) {
	c := newWebServer(t, &fakeRuntime{}, &memorySink{})

	for _, body := range []string{"not json", `{"message":"   "}`} {
		resp, err := c.client.Post(c.base+"/api/chat", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}

	resp, err := c.client.Get(c.base + "/api/chat")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWebServesIndexAndHealth(t *testing.T) {
	c := newWebServer(t, &fakeRuntime{}, &memorySink{})

	resp, err := c.client.Get(c.base + "/")
	require.NoError(t, err)
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(page), "ResearchBot")

	resp, err = c.client.Get(c.base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = c.client.Get(c.base + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	c := newWebServer(t, &fakeRuntime{}, &memorySink{},
		WithWebMetrics(rec),
		WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	)
	c.chat("Tell me about France")

	resp, err := c.client.Get(c.base + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "researchbot_web_sessions_active 1")
}

func TestWebReleasesSessionLocks(t *testing.T) {
	sh, _ := newTestShell(t, &fakeRuntime{}, &memorySink{})
	web := NewWeb(sh)
	srv := httptest.NewServer(web)
	t.Cleanup(srv.Close)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := &webClient{t: t, base: srv.URL, client: &http.Client{}}
			status, _ := c.chat("Tell me about France")
			assert.Equal(t, http.StatusOK, status)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, web.pendingSessions())
}

// overlapRuntime records whether two turns of one session ever ran at once.
type overlapRuntime struct {
	mu      sync.Mutex
	active  map[string]bool
	overlap atomic.Bool
}

func (o *overlapRuntime) Invoke(_ context.Context, in agent.Input) (agent.Output, error) {
	o.mu.Lock()
	if o.active[in.SessionID] {
		o.overlap.Store(true)
	}
	o.active[in.SessionID] = true
	o.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	o.mu.Lock()
	o.active[in.SessionID] = false
	o.mu.Unlock()
	return agent.Output{Output: franceJSON}, nil
}

func TestWebSerializesTurnsWithinSession(t *testing.T) {
	rt := &overlapRuntime{active: make(map[string]bool)}
	sh, store := newTestShell(t, rt, &memorySink{})
	web := NewWeb(sh)
	srv := httptest.NewServer(web)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	c := &webClient{t: t, base: srv.URL, client: &http.Client{Jar: jar}}
	c.chat("first")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.chat("again")
		}()
	}
	wg.Wait()

	assert.False(t, rt.overlap.Load())
	assert.Equal(t, 0, web.pendingSessions())

	u, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	cookies := jar.Cookies(u.URL)
	require.Len(t, cookies, 1)
	history, err := store.History(context.Background(), cookies[0].Value)
	require.NoError(t, err)
	assert.Len(t, history, 18)
}

func TestWebHistoryDoesNotStartSession(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	c := newWebServer(t, &fakeRuntime{}, &memorySink{}, WithWebMetrics(rec))

	resp, err := c.client.Get(c.base + "/api/history")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Cookies())

	const want = `
# HELP researchbot_web_sessions_active Web chat sessions issued a cookie and not yet ended.
# TYPE researchbot_web_sessions_active gauge
researchbot_web_sessions_active 0
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want), "researchbot_web_sessions_active"))
	assert.Empty(t, c.history())
}
