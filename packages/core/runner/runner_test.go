package runner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitcase/packages/capture"
	"github.com/abdul-hamid-achik/hitcase/packages/core/cases"
	"github.com/abdul-hamid-achik/hitcase/packages/core/vars"
	apihttp "github.com/abdul-hamid-achik/hitcase/packages/http"
	"github.com/abdul-hamid-achik/hitcase/packages/value"
)

// recorder is a test server that remembers the order of requests it saw.
type recorder struct {
	mu    sync.Mutex
	calls []string
	auth  []string
}

func (rec *recorder) record(r *http.Request) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.calls = append(rec.calls, r.Method+" "+r.URL.Path)
	rec.auth = append(rec.auth, r.Header.Get("Authorization"))
}

func (rec *recorder) paths() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]string(nil), rec.calls...)
}

func newCase(id, scenario string, step int, method, api string) *cases.Case {
	return &cases.Case{
		CaseID:      id,
		Scenario:    scenario,
		Step:        step,
		Description: id,
		Method:      method,
		API:         api,
	}
}

func testRunner(baseURL string) *Runner {
	return NewRunner(&Config{
		BaseURLs: map[string]string{DefaultPlatform: baseURL},
		Timeout:  2 * time.Second,
		Backoff:  time.Millisecond,
		RetryOn:  []int{502, 503, 504},
	}, nil)
}

func TestNewRunner(t *testing.T) {
	t.Run("with nil config", func(t *testing.T) {
		r := NewRunner(nil, nil)
		assert.NotNil(t, r)
		assert.NotNil(t, r.exec)
		assert.NotNil(t, r.logger)
	})

	t.Run("with custom executor", func(t *testing.T) {
		exec := apihttp.NewClient()
		r := NewRunner(&Config{Concurrency: 10}, exec)
		assert.Same(t, exec, r.exec)
		assert.Equal(t, 10, r.config.Concurrency)
	})
}

func TestRun_LoginThenUserInfo(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/login":
			_, _ = w.Write([]byte(`{"code":200,"data":{"token":"tok-1"}}`))
		case "/api/user/info":
			if r.Header.Get("Authorization") != "tok-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"code":200,"data":{"username":"test_user","email":"test@example.com"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	login := newCase("login_001", "user_flow", 1, "POST", "/api/login")
	login.Data = value.MustFrom(map[string]any{"username": "test_user", "password": "secret"})
	login.Expected = value.MustFrom(map[string]any{"code": 200})
	login.Extract = map[string]string{"token": "data.token"}

	info := newCase("get_user_info_001", "user_flow", 2, "GET", "/api/user/info")
	info.Headers = map[string]string{"Authorization": "${token}"}
	info.Expected = value.MustFrom(map[string]any{"code": 200, "data": map[string]any{"username": "test_user"}})
	info.Depends = "login_001"

	suite := testRunner(server.URL).Run(context.Background(), &cases.Set{Cases: []*cases.Case{info, login}})

	require.Len(t, suite.Scenarios, 1)
	sc := suite.Scenarios[0]
	assert.Equal(t, StatusPassed, sc.Status)
	require.Len(t, sc.Steps, 2)
	assert.Equal(t, StatusPassed, sc.Steps[0].Status, sc.Steps[0].ErrorMessage())
	assert.Equal(t, StatusPassed, sc.Steps[1].Status, sc.Steps[1].ErrorMessage())

	assert.Equal(t, "tok-1", sc.Steps[0].Extracted["token"].Str())
	assert.Equal(t, "tok-1", sc.Steps[1].Request.Headers["Authorization"])
	assert.Equal(t, []string{"POST /api/login", "GET /api/user/info"}, rec.paths())
	assert.Equal(t, "tok-1", rec.auth[1])

	assert.Equal(t, 2, suite.Passed)
	assert.True(t, suite.Success())
	assert.NotEmpty(t, suite.RunID)
	assert.False(t, suite.FinishedAt.Before(suite.StartedAt))
}

func TestRun_LargeIntegerIDRoundTrip(t *testing.T) {
	var gotID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/orders":
			_, _ = w.Write([]byte(`{"data":{"id":1234567890123456789}}`))
		case "/orders/lookup":
			gotID = r.Header.Get("X-Id")
			_, _ = w.Write([]byte(`{"data":{"id":1234567890123456789}}`))
		}
	}))
	defer server.Close()

	create := newCase("create", "orders", 1, "POST", "/orders")
	create.Extract = map[string]string{"id": "data.id"}

	lookup := newCase("lookup", "orders", 2, "GET", "/orders/lookup")
	lookup.Headers = map[string]string{"X-Id": "${id}"}
	lookup.Expected = value.MustFrom(map[string]any{"data": map[string]any{"id": "${id}"}})

	wrong := newCase("wrong", "orders", 3, "GET", "/orders/lookup")
	wrong.Expected, _ = value.Parse([]byte(`{"data":{"id":1234567890123456788}}`))

	suite := testRunner(server.URL).Run(context.Background(), &cases.Set{Cases: []*cases.Case{create, lookup, wrong}})

	steps := suite.Scenarios[0].Steps
	require.Len(t, steps, 3)
	assert.Equal(t, StatusPassed, steps[0].Status, steps[0].ErrorMessage())
	assert.Equal(t, "1234567890123456789", steps[0].Extracted["id"].Text())
	assert.Equal(t, StatusPassed, steps[1].Status, steps[1].ErrorMessage())
	assert.Equal(t, "1234567890123456789", gotID)
	assert.Equal(t, "1234567890123456789", steps[1].Request.Headers["X-Id"])
	assert.Equal(t, StatusFailed, steps[2].Status, "ids one apart must not compare equal")
	require.Len(t, steps[2].Diffs, 1)
	assert.Equal(t, "data.id", steps[2].Diffs[0].Path)
}

func TestRun_ExpectedPlaceholderKeepsExtractedNumber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":42,"label":"user-42"}}`))
	}))
	defer server.Close()

	first := newCase("first", "users", 1, "GET", "/users/me")
	first.Extract = map[string]string{"uid": "data.id"}

	second := newCase("second", "users", 2, "GET", "/users/me")
	second.Expected = value.MustFrom(map[string]any{"data": map[string]any{"id": "${uid}", "label": "user-${uid}"}})

	suite := testRunner(server.URL).Run(context.Background(), &cases.Set{Cases: []*cases.Case{first, second}})

	steps := suite.Scenarios[0].Steps
	require.Len(t, steps, 2)
	assert.Equal(t, StatusPassed, steps[0].Status, steps[0].ErrorMessage())
	assert.Equal(t, StatusPassed, steps[1].Status, steps[1].ErrorMessage())
	assert.Empty(t, steps[1].Diffs)
}

func TestRun_StepsRunInAscendingOrder(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	list := []*cases.Case{
		newCase("c", "s", 30, "GET", "/3"),
		newCase("a", "s", 1, "GET", "/1"),
		newCase("b", "s", 2, "GET", "/2"),
	}
	suite := testRunner(server.URL).Run(context.Background(), &cases.Set{Cases: list})

	assert.Equal(t, []string{"GET /1", "GET /2", "GET /3"}, rec.paths())
	assert.Equal(t, 3, suite.Passed)
}

func TestRun_DependencySkipPropagates(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		_, _ = w.Write([]byte(`{"code":500}`))
	}))
	defer server.Close()

	first := newCase("create", "s", 1, "POST", "/create")
	first.Expected = value.MustFrom(map[string]any{"code": 200})
	second := newCase("read", "s", 2, "GET", "/read")
	second.Depends = "create"
	third := newCase("delete", "s", 3, "DELETE", "/delete")
	third.Depends = "2"
	independent := newCase("health", "s", 4, "GET", "/health")

	suite := testRunner(server.URL).Run(context.Background(), &cases.Set{Cases: []*cases.Case{first, second, third, independent}})
	steps := suite.Scenarios[0].Steps

	assert.Equal(t, StatusFailed, steps[0].Status)
	assert.Equal(t, StatusSkipped, steps[1].Status)
	assert.True(t, errors.Is(steps[1].Err, ErrDependencyNotPassed))
	assert.Contains(t, steps[1].SkipReason, `"create" is failed`)
	assert.Equal(t, StatusSkipped, steps[2].Status)
	assert.Contains(t, steps[2].SkipReason, `"2" is skipped`)
	assert.Equal(t, StatusPassed, steps[3].Status)

	assert.Equal(t, []string{"POST /create", "GET /health"}, rec.paths())
	assert.Equal(t, StatusFailed, suite.Scenarios[0].Status)
	assert.Equal(t, 1, suite.Failed)
	assert.Equal(t, 2, suite.Skipped)
}

func TestRun_DependencyOnLaterStepSkips(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	early := newCase("early", "s", 1, "GET", "/a")
	early.Depends = "late"
	late := newCase("late", "s", 2, "GET", "/b")

	suite := testRunner(server.URL).Run(context.Background(), &cases.Set{Cases: []*cases.Case{early, late}})
	steps := suite.Scenarios[0].Steps
	assert.Equal(t, StatusSkipped, steps[0].Status)
	assert.Contains(t, steps[0].SkipReason, "has not run")
	assert.Equal(t, StatusPassed, steps[1].Status)
}

func TestRun_UnresolvedVariableSendsNothing(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	c := newCase("info", "s", 1, "GET", "/users/${user_id}")

	suite := testRunner(server.URL).Run(context.Background(), &cases.Set{Cases: []*cases.Case{c}})
	step := suite.Scenarios[0].Steps[0]

	assert.Equal(t, StatusError, step.Status)
	var unresolved *vars.UnresolvedVariableError
	require.ErrorAs(t, step.Err, &unresolved)
	assert.Equal(t, "user_id", unresolved.Name)
	assert.Nil(t, step.Request)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
	assert.Equal(t, StatusError, suite.Scenarios[0].Status)
}

func TestRun_ExtractionPathMissingIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"data":{}}`))
	}))
	defer server.Close()

	c := newCase("login", "s", 1, "POST", "/login")
	c.Extract = map[string]string{"token": "data.token"}

	suite := testRunner(server.URL).Run(context.Background(), &cases.Set{Cases: []*cases.Case{c}})
	step := suite.Scenarios[0].Steps[0]

	assert.Equal(t, StatusError, step.Status)
	var pathErr *capture.ExtractionPathError
	assert.ErrorAs(t, step.Err, &pathErr)
}

func TestRun_ValidationFailureRecordsDiffs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"data":{"username":"other"}}`))
	}))
	defer server.Close()

	c := newCase("info", "s", 1, "GET", "/info")
	c.Expected = value.MustFrom(map[string]any{"code": 200, "data": map[string]any{"username": "test_user", "email": "$any"}})

	suite := testRunner(server.URL).Run(context.Background(), &cases.Set{Cases: []*cases.Case{c}})
	step := suite.Scenarios[0].Steps[0]

	assert.Equal(t, StatusFailed, step.Status)
	require.Len(t, step.Diffs, 2)
	assert.Equal(t, "data.email", step.Diffs[0].Path)
	assert.Equal(t, "data.username", step.Diffs[1].Path)
	assert.NoError(t, step.Err)
	assert.False(t, suite.Success())
}

func TestRun_TransportErrorIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	r := testRunner(url)
	r.config.MaxRetries = 2

	suite := r.Run(context.Background(), &cases.Set{Cases: []*cases.Case{newCase("a", "s", 1, "GET", "/")}})
	step := suite.Scenarios[0].Steps[0]

	assert.Equal(t, StatusError, step.Status)
	assert.Equal(t, 3, step.Attempts)
	assert.Equal(t, 2, step.Retries)
	var te *apihttp.TransientError
	assert.ErrorAs(t, step.Err, &te)
}

func TestRun_ExpectedStatusAllowsNegativeTests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":404,"message":"not found"}`))
	}))
	defer server.Close()

	negative := newCase("missing", "s", 1, "GET", "/users/0")
	negative.Status = 404
	negative.Expected = value.MustFrom(map[string]any{"code": 404})
	plain := newCase("plain", "s", 2, "GET", "/users/0")
	wrong := newCase("wrong", "s", 3, "GET", "/users/0")
	wrong.Status = 200

	suite := testRunner(server.URL).Run(context.Background(), &cases.Set{Cases: []*cases.Case{negative, plain, wrong}})
	steps := suite.Scenarios[0].Steps

	assert.Equal(t, StatusPassed, steps[0].Status)
	assert.Equal(t, StatusError, steps[1].Status)
	var nte *apihttp.NonTransientError
	assert.ErrorAs(t, steps[1].Err, &nte)
	require.NotNil(t, steps[1].Response)
	assert.Equal(t, 404, steps[1].Response.StatusCode)
	assert.Equal(t, StatusError, steps[2].Status)
}

func TestRun_StatusMismatchIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newCase("create", "s", 1, "POST", "/items")
	c.Status = 201

	suite := testRunner(server.URL).Run(context.Background(), &cases.Set{Cases: []*cases.Case{c}})
	step := suite.Scenarios[0].Steps[0]
	assert.Equal(t, StatusFailed, step.Status)
	require.Len(t, step.Diffs, 1)
	assert.Equal(t, "$status", step.Diffs[0].Path)
}

func TestRun_ScenariosDoNotShareVariables(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"token":"tok-a"}}`))
	}))
	defer server.Close()

	login := newCase("a_login", "a", 1, "POST", "/login")
	login.Extract = map[string]string{"token": "data.token"}
	other := newCase("b_use", "b", 1, "GET", "/me")
	other.Headers = map[string]string{"Authorization": "${token}"}

	r := testRunner(server.URL)
	r.config.Concurrency = 1
	r.config.Variables = map[string]value.Value{"region": value.StringValue("eu")}

	suite := r.Run(context.Background(), &cases.Set{Cases: []*cases.Case{login, other}})
	require.Len(t, suite.Scenarios, 2)
	assert.Equal(t, StatusPassed, suite.Scenarios[0].Status)
	assert.Equal(t, StatusError, suite.Scenarios[1].Status)

	var unresolved *vars.UnresolvedVariableError
	assert.ErrorAs(t, suite.Scenarios[1].Steps[0].Err, &unresolved)
	_, leaked := r.config.Variables["token"]
	assert.False(t, leaked)
}

func TestRun_SeedVariables(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
	}))
	defer server.Close()

	c := newCase("a", "s", 1, "GET", "/${region}/status")
	r := testRunner(server.URL)
	r.config.Variables = map[string]value.Value{"region": value.StringValue("eu")}

	suite := r.Run(context.Background(), &cases.Set{Cases: []*cases.Case{c}})
	assert.Equal(t, StatusPassed, suite.Scenarios[0].Status)
	assert.Equal(t, []string{"GET /eu/status"}, rec.paths())
}

func TestRun_ConcurrencyIsBounded(t *testing.T) {
	var inFlight, peak int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
	}))
	defer server.Close()

	var list []*cases.Case
	for i := 0; i < 6; i++ {
		list = append(list, newCase(fmt.Sprintf("c%d", i), fmt.Sprintf("s%d", i), 1, "GET", "/"))
	}

	r := testRunner(server.URL)
	r.config.Concurrency = 2
	suite := r.Run(context.Background(), &cases.Set{Cases: list})

	assert.Equal(t, 6, suite.Passed)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	for i, sc := range suite.Scenarios {
		assert.Equal(t, fmt.Sprintf("s%d", i), sc.Name)
	}
}

// blockingExecutor cancels the run on its first call.
type blockingExecutor struct {
	cancel context.CancelFunc
	calls  int32
}

func (b *blockingExecutor) Execute(ctx context.Context, req *apihttp.Request, _ apihttp.RetryPolicy) *apihttp.Result {
	atomic.AddInt32(&b.calls, 1)
	b.cancel()
	return &apihttp.Result{
		Attempts: 1,
		Response: &apihttp.Response{StatusCode: 200, Body: []byte(`{}`)},
	}
}

func TestRun_CancellationSkipsPendingSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := &blockingExecutor{cancel: cancel}

	r := NewRunner(&Config{
		BaseURLs:    map[string]string{DefaultPlatform: "http://example.test"},
		Concurrency: 1,
	}, exec)

	list := []*cases.Case{
		newCase("a1", "a", 1, "GET", "/1"),
		newCase("a2", "a", 2, "GET", "/2"),
		newCase("b1", "b", 1, "GET", "/1"),
	}
	suite := r.Run(ctx, &cases.Set{Cases: list})

	assert.Equal(t, int32(1), atomic.LoadInt32(&exec.calls))
	assert.True(t, suite.Cancelled)
	assert.Equal(t, StatusPassed, suite.Scenarios[0].Steps[0].Status)
	assert.Equal(t, StatusSkipped, suite.Scenarios[0].Steps[1].Status)
	assert.ErrorIs(t, suite.Scenarios[0].Steps[1].Err, ErrRunCancelled)
	assert.Equal(t, StatusSkipped, suite.Scenarios[1].Status)
	assert.Equal(t, 1, suite.Passed)
	assert.Equal(t, 2, suite.Skipped)
	assert.False(t, suite.Success(), "a cancelled run is not a success")
}

func TestRun_Bail(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"code":1}`))
	}))
	defer server.Close()

	failing := newCase("a", "first", 1, "GET", "/")
	failing.Expected = value.MustFrom(map[string]any{"code": 0})

	r := testRunner(server.URL)
	r.config.Concurrency = 1
	r.config.Bail = true

	suite := r.Run(context.Background(), &cases.Set{Cases: []*cases.Case{failing, newCase("b", "second", 1, "GET", "/")}})

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, StatusFailed, suite.Scenarios[0].Status)
	assert.Equal(t, StatusSkipped, suite.Scenarios[1].Status)
	assert.ErrorIs(t, suite.Scenarios[1].Steps[0].Err, ErrBailed)
}

func TestRun_ScenarioFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	r := testRunner(server.URL)
	r.config.ScenarioFilter = "user_*"

	suite := r.Run(context.Background(), &cases.Set{Cases: []*cases.Case{
		newCase("a", "user_login", 1, "GET", "/"),
		newCase("b", "order_flow", 1, "GET", "/"),
	}})
	require.Len(t, suite.Scenarios, 1)
	assert.Equal(t, "user_login", suite.Scenarios[0].Name)
}

func TestRun_ConfigErrorsDoNotBlockOthers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	set := &cases.Set{
		Cases: []*cases.Case{
			newCase("a", "s", 1, "GET", "/"),
			newCase("a", "s", 2, "GET", "/dup"),
		},
		Invalid: []*cases.CaseError{{Source: "cases.yaml", Index: 3, Reason: `missing required field "api"`}},
	}

	suite := testRunner(server.URL).Run(context.Background(), set)
	assert.Len(t, suite.ConfigErrors, 2)
	assert.Equal(t, 1, suite.Passed)
	assert.False(t, suite.Success())
}

func TestRun_Platforms(t *testing.T) {
	rec := &recorder{}
	admin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
	}))
	defer admin.Close()

	onAdmin := newCase("a", "s", 1, "GET", "/admin/stats")
	onAdmin.Platform = "admin"
	unknown := newCase("b", "s", 2, "GET", "/x")
	unknown.Platform = "mobile"
	absolute := newCase("c", "s", 3, "GET", admin.URL+"/abs")

	r := NewRunner(&Config{BaseURLs: map[string]string{"admin": admin.URL + "/"}}, nil)
	suite := r.Run(context.Background(), &cases.Set{Cases: []*cases.Case{onAdmin, unknown, absolute}})
	steps := suite.Scenarios[0].Steps

	assert.Equal(t, StatusPassed, steps[0].Status)
	assert.Equal(t, admin.URL+"/admin/stats", steps[0].Request.URL)
	assert.Equal(t, StatusError, steps[1].Status)
	assert.Contains(t, steps[1].ErrorMessage(), `platform "mobile"`)
	assert.Equal(t, StatusPassed, steps[2].Status)
	assert.Equal(t, []string{"GET /admin/stats", "GET /abs"}, rec.paths())
}

func TestRun_QueryParamsAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := newCase("list", "s", 1, "POST", "/items")
	c.Params = map[string]string{"page": "${page}"}
	c.Data = value.MustFrom(map[string]any{"name": "n-${page}"})

	r := testRunner(server.URL)
	r.config.Variables = map[string]value.Value{"page": value.NumberValue(7)}

	suite := r.Run(context.Background(), &cases.Set{Cases: []*cases.Case{c}})
	step := suite.Scenarios[0].Steps[0]
	require.Equal(t, StatusPassed, step.Status, step.ErrorMessage())
	assert.Equal(t, server.URL+"/items?page=7", step.Request.URL)
	name, _ := step.Request.Body.Get("name")
	assert.Equal(t, "n-7", name.Str())
}

func TestRun_VerifySSLPerCase(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	insecure := newCase("insecure", "s", 1, "GET", "/")
	off := false
	insecure.VerifySSL = &off
	strict := newCase("strict", "s", 2, "GET", "/")

	suite := testRunner(server.URL).Run(context.Background(), &cases.Set{Cases: []*cases.Case{insecure, strict}})
	steps := suite.Scenarios[0].Steps
	assert.Equal(t, StatusPassed, steps[0].Status, steps[0].ErrorMessage())
	assert.Equal(t, StatusError, steps[1].Status)
}

func TestRun_Schema(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"not-a-number"}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "item.json"),
		[]byte(`{"type":"object","properties":{"id":{"type":"integer"}}}`), 0644))

	c := newCase("get", "s", 1, "GET", "/item")
	c.Schema = "item.json"
	c.Source = filepath.Join(dir, "cases.yaml")

	suite := testRunner(server.URL).Run(context.Background(), &cases.Set{Cases: []*cases.Case{c}})
	step := suite.Scenarios[0].Steps[0]
	assert.Equal(t, StatusFailed, step.Status)
	require.Len(t, step.Diffs, 1)
	assert.Equal(t, "id", step.Diffs[0].Path)
}

func TestScenarioStatus(t *testing.T) {
	mk := func(statuses ...Status) []*StepResult {
		var steps []*StepResult
		for _, s := range statuses {
			steps = append(steps, &StepResult{Status: s})
		}
		return steps
	}

	assert.Equal(t, StatusPassed, scenarioStatus(mk(StatusPassed, StatusSkipped)))
	assert.Equal(t, StatusFailed, scenarioStatus(mk(StatusPassed, StatusFailed, StatusPassed)))
	assert.Equal(t, StatusError, scenarioStatus(mk(StatusFailed, StatusError)))
	assert.Equal(t, StatusSkipped, scenarioStatus(mk(StatusSkipped)))
	assert.Equal(t, StatusSkipped, scenarioStatus(nil))
}

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		expected bool
	}{
		{"exact match", "testName", true},
		{"prefix match", "test*", true},
		{"suffix match", "*Name", true},
		{"contains match", "*stNa*", true},
		{"no match", "other*", false},
		{"empty pattern", "", true},
		{"star", "*", true},
	}

	for _, tt := range tests {
		t.Run(tt.name+" - "+tt.pattern, func(t *testing.T) {
			result := MatchesPattern("testName", tt.pattern)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusSkipped.Terminal())
	assert.True(t, StatusError.Terminal())
}
