package mesh_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/breaker"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/delivery"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/health"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/routing"
	meshtransport "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/transport/mesh"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/testutil"
)

type env struct {
	router   *gin.Engine
	caller   *testutil.FakeCaller
	circuits *breaker.Breaker
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	nodes, edges := testutil.Topology()
	table, err := routing.NewTable(nodes, edges)
	require.NoError(t, err)

	monitor := health.New(nodes, testutil.NewFakeProber(), nil, health.Config{})
	circuits := breaker.New([]string{"fire", "police"}, nil, breaker.Config{})
	engine := routing.NewEngine(table, monitor, circuits, nil)
	caller := testutil.NewFakeCaller()
	svc := delivery.NewService(engine, caller, circuits, monitor, nil, nil, nil, nil, delivery.Config{CallTimeout: time.Second})

	handler := meshtransport.NewHandler("dispatch", table, monitor, circuits, svc)
	r := gin.New()
	handler.Register(r.Group("/api/mesh"))
	return &env{router: r, caller: caller, circuits: circuits}
}

func TestStatus_ReportsTopologyAndState(t *testing.T) {
	e := newEnv(t)
	e.circuits.RecordFailure("police")
	e.circuits.RecordFailure("police")
	e.circuits.RecordFailure("police")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/mesh/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Self  string `json:"self"`
		Nodes []struct {
			ID        string `json:"id"`
			Class     string `json:"class"`
			Available bool   `json:"available"`
			Circuit   string `json:"circuit"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "dispatch", body.Self)
	require.Len(t, body.Nodes, 5)

	for _, n := range body.Nodes {
		if n.ID == "police" {
			assert.Equal(t, "open", n.Circuit)
		}
	}
}

func TestSend_RoutesByIntent(t *testing.T) {
	e := newEnv(t)
	e.caller.SetReply("fire", "engines rolling")

	body := bytes.NewBufferString(`{"intent":"fire","text":"mill is burning"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/mesh/send", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp delivery.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "fire", resp.TargetID)
	assert.Equal(t, "engines rolling", resp.Text)
}

func TestSend_UnroutableIntentIs404(t *testing.T) {
	e := newEnv(t)

	body := bytes.NewBufferString(`{"intent":"plumbing","text":"leak"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/mesh/send", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSend_ExhaustedCandidatesIs502WithAttempts(t *testing.T) {
	e := newEnv(t)
	e.caller.SetError("fire", errors.New("refused"))
	e.caller.SetError("police", errors.New("refused"))

	body := bytes.NewBufferString(`{"intent":"fire","text":"mill is burning"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/mesh/send", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadGateway, w.Code)

	var resp struct {
		Attempts []struct {
			NodeID string `json:"node_id"`
		} `json:"attempts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Attempts, 2)
}

func TestSend_MissingFieldsRejected(t *testing.T) {
	e := newEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/mesh/send", bytes.NewBufferString(`{"text":"no intent"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBroadcast(t *testing.T) {
	e := newEnv(t)
	e.caller.SetReply("fire", "ack")
	e.caller.SetReply("police", "ack")

	body := bytes.NewBufferString(`{"intents":["fire","police"],"text":"citywide drill"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/mesh/broadcast", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results map[string]delivery.Response `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 2)
	assert.Equal(t, "fire", resp.Results["fire"].TargetID)
}
