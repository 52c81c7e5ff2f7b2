package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adamant-im/currencyinfo/pkg/config"
	"github.com/Adamant-im/currencyinfo/pkg/logging"
	"github.com/Adamant-im/currencyinfo/pkg/notify"
	"github.com/Adamant-im/currencyinfo/pkg/rates/history"
	"github.com/Adamant-im/currencyinfo/pkg/rates/merger"
	"github.com/Adamant-im/currencyinfo/pkg/rates/sources"
	"github.com/Adamant-im/currencyinfo/pkg/rates/updater"
)

// fakeStore is an in-memory history.Store.
type fakeStore struct {
	snapshots []history.Snapshot
}

func (s *fakeStore) Append(_ context.Context, date int64, tickers sources.Tickers) error {
	s.snapshots = append(s.snapshots, history.Snapshot{Date: date, Tickers: tickers})
	return nil
}

func (s *fakeStore) History(_ context.Context, q history.Query) ([]history.Snapshot, error) {
	if q.From != 0 && q.To != 0 && q.To < q.From {
		return nil, history.ErrInvalidRange
	}
	return s.snapshots, nil
}

func (s *fakeStore) NearestBefore(_ context.Context, timestamp int64) (*history.Snapshot, error) {
	var best *history.Snapshot
	for i := range s.snapshots {
		if s.snapshots[i].Date <= timestamp {
			best = &s.snapshots[i]
		}
	}
	return best, nil
}

// fixedSource serves one ticker map.
type fixedSource struct {
	name    string
	coins   []string
	tickers sources.Tickers
}

func (s *fixedSource) Enabled() bool          { return true }
func (s *fixedSource) ResourceName() string   { return s.name }
func (s *fixedSource) Weight() int            { return config.DefaultWeight }
func (s *fixedSource) EnabledCoins() []string { return s.coins }

func (s *fixedSource) Fetch(context.Context, string) (sources.Tickers, error) {
	return s.tickers, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Decimals:                       8,
		Strategy:                       "avg",
		RateDifferencePercentThreshold: 25,
		GroupPercentage:                20,
		MinSources:                     1,
		RateLifetime:                   30,
		RefreshInterval:                10,
		BaseCoins:                      []string{"USD"},
	}

	srcs := []sources.Source{&fixedSource{
		name:  "alpha",
		coins: []string{"BTC", "ETH"},
		tickers: sources.Tickers{
			"BTC/USD": decimal.NewFromInt(100000),
			"ETH/USD": decimal.NewFromInt(4000),
		},
	}}

	manager := sources.NewManager(srcs, cfg, logging.Nop(), notify.Nop{})
	require.NoError(t, manager.Initialize(context.Background()))

	m, err := merger.New(cfg, manager.SourceWeights(), notify.Nop{}, logging.Nop())
	require.NoError(t, err)
	m.SetCoverage(manager.AllCoins(), manager.PairSources())

	u := updater.New(manager, m, &fakeStore{}, cfg, notify.Nop{}, logging.Nop())
	u.UpdateTickers(context.Background())

	return NewServer(":0", u, logging.Nop())
}

func doRequest(t *testing.T, server *Server, path string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))

	body := make(map[string]json.RawMessage)
	if recorder.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	}

	return recorder, body
}

func TestHandleGet_AllPairs(t *testing.T) {
	server := newTestServer(t)

	recorder, body := doRequest(t, server, "/get")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, "true", string(body["success"]))

	var result map[string]string
	require.NoError(t, json.Unmarshal(body["result"], &result))
	assert.Equal(t, "100000", result["BTC/USD"])
	assert.Equal(t, "4000", result["ETH/USD"])
}

func TestHandleGet_CoinFilter(t *testing.T) {
	server := newTestServer(t)

	recorder, body := doRequest(t, server, "/get?coin=eth")
	assert.Equal(t, http.StatusOK, recorder.Code)

	var result map[string]string
	require.NoError(t, json.Unmarshal(body["result"], &result))
	assert.Contains(t, result, "ETH/USD")
	assert.NotContains(t, result, "BTC/USD")
}

func TestHandleGet_InvalidRateLifetime(t *testing.T) {
	server := newTestServer(t)

	recorder, body := doRequest(t, server, "/get?rateLifetime=abc")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.JSONEq(t, "false", string(body["success"]))
	assert.Contains(t, string(body["error"]), "rateLifetime")
}

func TestHandleGetHistory_InvalidRange(t *testing.T) {
	server := newTestServer(t)

	recorder, body := doRequest(t, server, "/getHistory?from=2000&to=1000")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, string(body["error"]), "Wrong time interval")
}

func TestHandleGetHistory_InvalidNumber(t *testing.T) {
	server := newTestServer(t)

	recorder, _ := doRequest(t, server, "/getHistory?from=yesterday")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHandleGetHistory_ReturnsSnapshots(t *testing.T) {
	server := newTestServer(t)

	recorder, body := doRequest(t, server, "/getHistory")
	assert.Equal(t, http.StatusOK, recorder.Code)

	var result []history.Snapshot
	require.NoError(t, json.Unmarshal(body["result"], &result))
	require.Len(t, result, 1)
	assert.Contains(t, result[0].Tickers, "BTC/USD")
}

func TestHandleStatus(t *testing.T) {
	server := newTestServer(t)

	recorder, body := doRequest(t, server, "/status")
	assert.Equal(t, http.StatusOK, recorder.Code)

	var status updater.Status
	require.NoError(t, json.Unmarshal(body["result"], &status))
	assert.True(t, status.Ready)
	assert.NotZero(t, status.NextUpdate)
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer(t)

	recorder, _ := doRequest(t, server, "/health")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "OK", recorder.Body.String())
}
