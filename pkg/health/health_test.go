package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type report struct {
	Status string            `json:"status"`
	Reason string            `json:"reason"`
	Checks map[string]string `json:"checks"`
}

func get(t *testing.T, endpoint http.HandlerFunc) (int, report) {
	t.Helper()
	w := httptest.NewRecorder()
	endpoint(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var r report
	require.NoError(t, json.NewDecoder(w.Body).Decode(&r))
	return w.Code, r
}

type pinger struct {
	err error
}

func (p *pinger) Ping(context.Context) error { return p.err }

func TestReadyEndpoint(t *testing.T) {
	redis := &pinger{}
	tests := []struct {
		name       string
		ready      bool
		redisErr   error
		runs       int
		wantStatus int
		wantRedis  string
	}{
		{name: "ready and passing", ready: true, runs: 1, wantStatus: http.StatusOK, wantRedis: "ok"},
		{name: "gate closed", ready: false, runs: 1, wantStatus: http.StatusServiceUnavailable, wantRedis: "ok"},
		{name: "failure below threshold", ready: true, redisErr: errors.New("connection refused"), runs: failAfter - 1, wantStatus: http.StatusOK, wantRedis: "ok"},
		{name: "failure at threshold", ready: true, redisErr: errors.New("connection refused"), runs: failAfter, wantStatus: http.StatusServiceUnavailable, wantRedis: "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			h.AddReadinessCheck("postgres", time.Second, PingCheck(&pinger{}))
			redis.err = tt.redisErr
			h.AddReadinessCheck("redis", time.Second, PingCheck(redis))
			h.SetReady(tt.ready)

			for range tt.runs {
				for _, p := range h.readiness {
					p.run(context.Background())
				}
			}

			status, body := get(t, h.ReadyEndpoint)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, "ok", body.Checks["postgres"])
			assert.Equal(t, tt.wantRedis, body.Checks["redis"])
			assert.Equal(t, tt.wantStatus == http.StatusOK, h.IsReady())
			if !tt.ready {
				assert.Equal(t, "service is not ready", body.Reason)
			}
		})
	}
}

func TestProbeRecovers(t *testing.T) {
	h := New()
	p := &pinger{err: errors.New("timeout")}
	h.AddLivenessCheck("db", time.Second, PingCheck(p))

	for range failAfter {
		h.liveness[0].run(context.Background())
	}
	status, body := get(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "timeout", body.Checks["db"])

	p.err = nil
	h.liveness[0].run(context.Background())
	status, body = get(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body.Status)
}

func TestLiveEndpoint_NoChecks(t *testing.T) {
	status, body := get(t, New().LiveEndpoint)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body.Status)
	assert.Empty(t, body.Checks)
}

func TestStartRunsProbes(t *testing.T) {
	h := New()
	ran := make(chan struct{}, 1)
	h.AddLivenessCheck("tick", time.Second, func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	h.Start(context.Background(), time.Hour)
	defer h.Stop()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("probe did not run on start")
	}
	h.Stop()
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
