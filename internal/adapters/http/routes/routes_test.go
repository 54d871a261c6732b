package routes

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"setoran-pa/internal/adapters/backend"
	"setoran-pa/internal/adapters/backend/backendtest"
	"setoran-pa/internal/adapters/http/middleware"
	"setoran-pa/internal/adapters/persistence/repositories"
	"setoran-pa/internal/core/domain"
	"setoran-pa/internal/core/services"
	"setoran-pa/internal/pkg/jwt"
	"setoran-pa/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

const testNIM = "20102030405"

func init() {
	logger.SetOutput(io.Discard)
}

// stubAuth accepts the password "secret" for any username
type stubAuth struct {
	t *testing.T
}

func (a stubAuth) mint(tag string) domain.Credentials {
	a.t.Helper()
	access, err := jwt.GenerateToken("access-"+tag, "Dosen PA", "dosen.pa", "test-secret", time.Hour)
	if err != nil {
		a.t.Fatalf("mint access token: %v", err)
	}
	id, err := jwt.GenerateToken("id-"+tag, "Dosen PA", "dosen.pa", "test-secret", time.Hour)
	if err != nil {
		a.t.Fatalf("mint id token: %v", err)
	}
	return domain.Credentials{AccessToken: access, RefreshToken: "refresh-" + tag, IDToken: id}
}

func (a stubAuth) PasswordGrant(ctx context.Context, username, password string) (domain.Credentials, error) {
	if password != "secret" {
		return domain.Credentials{}, domain.NewError(domain.KindServerRejected, http.StatusUnauthorized, "invalid username or password", nil)
	}
	return a.mint(username), nil
}

func (a stubAuth) RefreshGrant(ctx context.Context, refreshToken string) (domain.Credentials, error) {
	return a.mint("refreshed"), nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Kind    domain.Kind     `json:"kind"`
}

type gateway struct {
	app    *fiber.App
	server *backendtest.Server
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	srv := backendtest.New(
		backendtest.Student{
			NIM:  testNIM,
			Name: "Ahmad",
			Components: []backendtest.Component{
				{ID: "c-1", ComponentID: "komp-1", Name: "Al-Fatihah", ArabicName: "الفاتحة", Label: "KP"},
				{ID: "c-2", ComponentID: "komp-2", Name: "An-Nas", ArabicName: "الناس", Label: "KP"},
			},
		},
		backendtest.Student{
			NIM:  "20102030406",
			Name: "Budi",
			Components: []backendtest.Component{
				{ID: "c-3", ComponentID: "komp-1", Name: "Al-Fatihah", ArabicName: "الفاتحة", Label: "KP"},
			},
		},
	)
	t.Cleanup(srv.Close)

	client, err := backend.New(srv.BaseURL(), 5*time.Second, nil)
	if err != nil {
		t.Fatalf("backend client: %v", err)
	}
	store := repositories.NewMemoryTokenStore()
	session := services.NewSessionService(store, stubAuth{t: t})

	app := fiber.New(fiber.Config{ErrorHandler: middleware.CustomErrorHandler})
	app.Use(middleware.RequestID())
	Setup(app, Dependencies{
		AppMode:  "dev",
		Store:    store,
		Session:  session,
		Deposits: services.NewDepositService(session, client),
	})
	return &gateway{app: app, server: srv}
}

func (g *gateway) call(t *testing.T, method, path string, body interface{}, headers ...string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := g.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	return resp, env
}

func (g *gateway) login(t *testing.T) {
	t.Helper()
	resp, env := g.call(t, http.MethodPost, "/api/v1/auth/login", loginBody("dosen.pa", "secret"))
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("login failed: %d %+v", resp.StatusCode, env)
	}
}

func loginBody(username, password string) map[string]string {
	return map[string]string{"username": username, "password": password}
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode data: %v (%s)", err, raw)
	}
	return v
}

func TestLoginMeLogout(t *testing.T) {
	g := newGateway(t)

	resp, env := g.call(t, http.MethodGet, "/api/v1/auth/me", nil)
	if resp.StatusCode != http.StatusUnauthorized || env.Kind != domain.KindNoCredentials {
		t.Fatalf("expected no credentials before login, got %d %+v", resp.StatusCode, env)
	}

	resp, env = g.call(t, http.MethodPost, "/api/v1/auth/login", loginBody("dosen.pa", "wrong"))
	if resp.StatusCode != http.StatusBadGateway || env.Error != "invalid username or password" {
		t.Fatalf("expected rejected login, got %d %+v", resp.StatusCode, env)
	}
	state := decode[domain.OperationState[domain.Profile]](t, env.Data)
	if state.Status != domain.StatusError || state.Kind != domain.KindServerRejected {
		t.Fatalf("expected error state in body, got %+v", state)
	}

	resp, env = g.call(t, http.MethodPost, "/api/v1/auth/refresh", nil)
	if resp.StatusCode != http.StatusUnauthorized || env.Kind != domain.KindRefreshFailed {
		t.Fatalf("expected refresh to fail before login, got %d %+v", resp.StatusCode, env)
	}

	g.login(t)

	resp, _ = g.call(t, http.MethodPost, "/api/v1/auth/refresh", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected refresh after login to succeed, got %d", resp.StatusCode)
	}

	_, env = g.call(t, http.MethodGet, "/api/v1/auth/me", nil)
	profile := decode[domain.Profile](t, env.Data)
	if profile.DisplayName != "Dosen PA" || profile.Username != "dosen.pa" {
		t.Fatalf("unexpected profile %+v", profile)
	}

	_, env = g.call(t, http.MethodGet, "/api/v1/auth/state", nil)
	if st := decode[domain.OperationState[domain.Profile]](t, env.Data); st.Status != domain.StatusSuccess {
		t.Fatalf("expected login state success, got %+v", st)
	}

	g.call(t, http.MethodGet, "/api/v1/roster", nil)
	resp, _ = g.call(t, http.MethodPost, "/api/v1/auth/logout", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout failed: %d", resp.StatusCode)
	}

	resp, _ = g.call(t, http.MethodGet, "/api/v1/auth/me", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected me to fail after logout, got %d", resp.StatusCode)
	}
	_, env = g.call(t, http.MethodGet, "/api/v1/state/roster", nil)
	if st := decode[domain.OperationState[domain.Roster]](t, env.Data); st.Status != domain.StatusIdle {
		t.Fatalf("expected roster dropped on logout, got %+v", st)
	}
	_, env = g.call(t, http.MethodGet, "/api/v1/auth/state", nil)
	if st := decode[domain.OperationState[domain.Profile]](t, env.Data); st.Status != domain.StatusIdle {
		t.Fatalf("expected login state idle after logout, got %+v", st)
	}
}

func TestLoginValidation(t *testing.T) {
	g := newGateway(t)
	resp, env := g.call(t, http.MethodPost, "/api/v1/auth/login", loginBody("  ", "secret"))
	if resp.StatusCode != http.StatusBadRequest || env.Kind != domain.KindValidation {
		t.Fatalf("expected local validation, got %d %+v", resp.StatusCode, env)
	}
}

func TestRosterPagination(t *testing.T) {
	g := newGateway(t)
	g.login(t)

	resp, env := g.call(t, http.MethodGet, "/api/v1/roster?page=2&limit=1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("roster failed: %d %+v", resp.StatusCode, env)
	}
	page := decode[struct {
		Advisor  domain.Lecturer        `json:"advisor"`
		Students []domain.StudentRecord `json:"students"`
		Meta     struct {
			Total      int64 `json:"total"`
			TotalPages int   `json:"total_pages"`
			HasPrev    bool  `json:"has_prev"`
		} `json:"meta"`
	}](t, env.Data)

	if len(page.Students) != 1 || page.Students[0].NIM != "20102030406" {
		t.Fatalf("expected second student on page 2, got %+v", page.Students)
	}
	if page.Meta.Total != 2 || page.Meta.TotalPages != 2 || !page.Meta.HasPrev {
		t.Fatalf("unexpected meta %+v", page.Meta)
	}
	if page.Advisor.Name != "Dosen PA" {
		t.Fatalf("unexpected advisor %+v", page.Advisor)
	}
}

func TestErrorMapping(t *testing.T) {
	g := newGateway(t)

	resp, env := g.call(t, http.MethodGet, "/api/v1/roster", nil)
	if resp.StatusCode != http.StatusUnauthorized || env.Kind != domain.KindNoCredentials {
		t.Fatalf("expected 401 no_credentials, got %d %+v", resp.StatusCode, env)
	}
	_, env = g.call(t, http.MethodGet, "/api/v1/state/roster", nil)
	if st := decode[domain.OperationState[domain.Roster]](t, env.Data); st.Status != domain.StatusError || st.Kind != domain.KindNoCredentials {
		t.Fatalf("expected roster stream to hold the no_credentials error, got %+v", st)
	}
	resp, env = g.call(t, http.MethodGet, "/api/v1/students/"+testNIM+"/selection", nil)
	if resp.StatusCode != http.StatusUnauthorized || env.Kind != domain.KindNoCredentials {
		t.Fatalf("expected selection to require a session, got %d %+v", resp.StatusCode, env)
	}
	if n := len(g.server.Requests()); n != 0 {
		t.Fatalf("expected no backend calls without credentials, got %d", n)
	}

	g.login(t)

	cases := []struct {
		method, path string
		status       int
		kind         domain.Kind
	}{
		{http.MethodGet, "/api/v1/students/123", http.StatusBadRequest, domain.KindValidation},
		{http.MethodGet, "/api/v1/students/20102030499", http.StatusNotFound, domain.KindNotFound},
		{http.MethodPost, "/api/v1/students/" + testNIM + "/selection/submit", http.StatusBadRequest, domain.KindValidation},
	}
	for _, tc := range cases {
		resp, env := g.call(t, tc.method, tc.path, nil)
		if resp.StatusCode != tc.status || env.Kind != tc.kind {
			t.Fatalf("%s %s: expected %d %s, got %d %+v", tc.method, tc.path, tc.status, tc.kind, resp.StatusCode, env)
		}
	}

	g.server.FailNext(http.StatusInternalServerError)
	resp, env = g.call(t, http.MethodGet, "/api/v1/students/"+testNIM, nil)
	if resp.StatusCode != http.StatusBadGateway || env.Kind != domain.KindServerRejected {
		t.Fatalf("expected 502 server_rejected, got %d %+v", resp.StatusCode, env)
	}

	resp, _ = g.call(t, http.MethodGet, "/api/v1/state/bogus", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected unknown stream 404, got %d", resp.StatusCode)
	}
}

func TestSubmitAndCancelThroughGateway(t *testing.T) {
	g := newGateway(t)
	g.login(t)

	body := map[string]interface{}{
		"components": []map[string]string{{"component_id": "komp-1", "name": "Al-Fatihah"}},
	}
	resp, env := g.call(t, http.MethodPost, "/api/v1/students/"+testNIM+"/deposits", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit failed: %d %+v", resp.StatusCode, env)
	}

	_, env = g.call(t, http.MethodGet, "/api/v1/state/detail", nil)
	detail := decode[domain.OperationState[domain.StudentDetail]](t, env.Data)
	if detail.Status != domain.StatusSuccess {
		t.Fatalf("expected reconciled detail, got %+v", detail)
	}
	c, _ := detail.Data.Component("komp-1")
	if !c.Validated || c.ParentDepositID == nil {
		t.Fatalf("expected komp-1 validated, got %+v", c)
	}

	resp, env = g.call(t, http.MethodDelete, "/api/v1/students/"+testNIM+"/deposits/"+*c.ParentDepositID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel failed: %d %+v", resp.StatusCode, env)
	}
	st, _ := g.server.Student(testNIM)
	if st.Components[0].Validated() {
		t.Fatalf("expected backend deposit removed")
	}

	_, env = g.call(t, http.MethodPost, "/api/v1/state/mutation/reset", nil)
	reset := decode[struct {
		Reset bool                              `json:"reset"`
		State domain.OperationState[domain.Ack] `json:"state"`
	}](t, env.Data)
	if !reset.Reset || reset.State.Status != domain.StatusIdle {
		t.Fatalf("expected mutation reset to idle, got %+v", reset)
	}
}

// watchEvents reads a state watch response to its end
func (g *gateway) watchEvents(t *testing.T, stream string) []string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/state/"+stream+"/watch", nil)
	resp, err := g.app.Test(req, -1)
	if err != nil {
		t.Errorf("watch %s: %v", stream, err)
		return nil
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("watch %s: unexpected content type %q", stream, ct)
	}

	var statuses []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var st domain.OperationState[json.RawMessage]
		if err := json.Unmarshal([]byte(data), &st); err != nil {
			t.Errorf("watch %s: decode event %q: %v", stream, data, err)
			return nil
		}
		statuses = append(statuses, string(st.Status))
	}
	return statuses
}

func TestWatchStreamsTransitions(t *testing.T) {
	g := newGateway(t)
	g.login(t)
	g.call(t, http.MethodGet, "/api/v1/students/"+testNIM, nil)

	if got := g.watchEvents(t, "detail"); len(got) != 1 || got[0] != "success" {
		t.Fatalf("expected a settled stream to send one event, got %v", got)
	}

	events := make(chan []string, 1)
	go func() { events <- g.watchEvents(t, "mutation") }()
	time.Sleep(100 * time.Millisecond)

	body := map[string]interface{}{
		"components": []map[string]string{{"component_id": "komp-1", "name": "Al-Fatihah"}},
	}
	if resp, env := g.call(t, http.MethodPost, "/api/v1/students/"+testNIM+"/deposits", body); resp.StatusCode != http.StatusOK {
		t.Fatalf("submit failed: %d %+v", resp.StatusCode, env)
	}

	select {
	case got := <-events:
		want := []string{"idle", "loading", "success"}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Fatalf("expected %v, got %v", want, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("watch did not end after the mutation settled")
	}

	resp, _ := g.call(t, http.MethodGet, "/api/v1/state/unknown/watch", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown stream, got %d", resp.StatusCode)
	}
}

func TestSelectionRoutes(t *testing.T) {
	g := newGateway(t)
	g.login(t)
	base := "/api/v1/students/" + testNIM

	g.call(t, http.MethodGet, base, nil)

	resp, env := g.call(t, http.MethodPost, base+"/selection", map[string]string{"component_id": "komp-2"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("select failed: %d %+v", resp.StatusCode, env)
	}
	items := decode[[]domain.SubmitItem](t, env.Data)
	if len(items) != 1 || items[0].Name != "An-Nas" {
		t.Fatalf("expected name filled from detail, got %+v", items)
	}

	resp, env = g.call(t, http.MethodPost, base+"/selection", map[string]string{"component_id": "komp-9"})
	if resp.StatusCode != http.StatusBadRequest || env.Kind != domain.KindValidation {
		t.Fatalf("expected unknown component rejected, got %d %+v", resp.StatusCode, env)
	}

	resp, _ = g.call(t, http.MethodDelete, base+"/selection/komp-9", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unselected component, got %d", resp.StatusCode)
	}

	resp, env = g.call(t, http.MethodPost, base+"/selection/submit", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit selection failed: %d %+v", resp.StatusCode, env)
	}
	if st, _ := g.server.Student(testNIM); !st.Components[1].Validated() {
		t.Fatalf("expected An-Nas deposited")
	}

	_, env = g.call(t, http.MethodGet, base+"/selection", nil)
	if items := decode[[]domain.SubmitItem](t, env.Data); len(items) != 0 {
		t.Fatalf("expected selection cleared after submit, got %+v", items)
	}
}

func TestRequestIDReachesBackend(t *testing.T) {
	g := newGateway(t)
	g.login(t)

	resp, _ := g.call(t, http.MethodGet, "/api/v1/roster", nil, "X-Request-ID", "req-123")
	if got := resp.Header.Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
	reqs := g.server.Requests()
	if len(reqs) != 1 || reqs[0].RequestID != "req-123" {
		t.Fatalf("expected backend call tagged with req-123, got %+v", reqs)
	}

	resp, _ = g.call(t, http.MethodGet, "/api/v1/roster", nil)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected a generated request id")
	}
}

func TestHealth(t *testing.T) {
	g := newGateway(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := g.app.Test(req, -1)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || body.Status != "ok" || body.Checks["token_store"] != "healthy" {
		t.Fatalf("unexpected health %d %+v", resp.StatusCode, body)
	}
}
