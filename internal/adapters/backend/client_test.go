package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"setoran-pa/internal/adapters/backend/backendtest"
	"setoran-pa/internal/core/domain"
	"setoran-pa/internal/pkg/requestid"
)

const testNIM = "20102030405"

func newFake() *backendtest.Server {
	return backendtest.New(backendtest.Student{
		NIM:  testNIM,
		Name: "Ahmad",
		Components: []backendtest.Component{
			{ID: "c-1", ComponentID: "komp-1", Name: "Al-Fatihah", ArabicName: "الفاتحة", Label: "KP"},
			{ID: "c-2", ComponentID: "komp-2", Name: "An-Naba", ArabicName: "النبأ", Label: "SEMKP", DepositID: "setoran-99"},
		},
	})
}

func newClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(baseURL, 5*time.Second, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := New("setoran-dev/v1", time.Second, nil); err == nil {
		t.Fatalf("expected error for relative base url")
	}
}

func TestRoster(t *testing.T) {
	srv := newFake()
	defer srv.Close()

	ctx := requestid.With(context.Background(), "req-1")
	roster, err := newClient(t, srv.BaseURL()).Roster(ctx, "token-1")
	if err != nil {
		t.Fatalf("roster error: %v", err)
	}
	if roster.Advisor.NIP != "198001012005011001" || len(roster.Students) != 1 {
		t.Fatalf("unexpected roster %+v", roster)
	}
	st := roster.Students[0]
	if st.NIM != testNIM || st.SupervisorRef != roster.Advisor.NIP || st.Progress.Required != 2 || st.Progress.Done != 1 {
		t.Fatalf("unexpected student %+v", st)
	}

	reqs := srv.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected one request, got %d", len(reqs))
	}
	if reqs[0].Path != "/setoran-dev/v1/dosen/pa-saya" {
		t.Fatalf("unexpected path %s", reqs[0].Path)
	}
	if reqs[0].Authorization != "Bearer token-1" || reqs[0].RequestID != "req-1" {
		t.Fatalf("unexpected headers %+v", reqs[0])
	}
}

func TestDetail(t *testing.T) {
	srv := newFake()
	defer srv.Close()

	detail, err := newClient(t, srv.BaseURL()).Detail(context.Background(), "token-1", testNIM)
	if err != nil {
		t.Fatalf("detail error: %v", err)
	}
	if detail.Info.NIM != testNIM || len(detail.Components) != 2 {
		t.Fatalf("unexpected detail %+v", detail)
	}

	open, _ := detail.Component("komp-1")
	if open.Validated || open.Validation != nil || open.ParentDepositID != nil {
		t.Fatalf("expected unvalidated component without validation info, got %+v", open)
	}
	done, _ := detail.Component("komp-2")
	if !done.Validated || done.Validation == nil || done.ParentDepositID == nil || *done.ParentDepositID != "setoran-99" {
		t.Fatalf("expected validated component with deposit id, got %+v", done)
	}
	if done.Validation.Validator.Name != "Dosen PA" {
		t.Fatalf("unexpected validator %+v", done.Validation.Validator)
	}
}

func TestSubmitAndCancelBodies(t *testing.T) {
	srv := newFake()
	defer srv.Close()
	client := newClient(t, srv.BaseURL())
	ctx := context.Background()

	ack, err := client.Submit(ctx, "token-1", testNIM, []domain.SubmitItem{{ComponentID: "komp-1", Name: "Al-Fatihah"}})
	if err != nil {
		t.Fatalf("submit error: %v", err)
	}
	if ack.Message != "Setoran berhasil disimpan" {
		t.Fatalf("unexpected ack %+v", ack)
	}
	st, _ := srv.Student(testNIM)
	if !st.Components[0].Validated() {
		t.Fatalf("expected component to be validated on the server")
	}

	reqs := srv.Requests()
	body := reqs[len(reqs)-1].Body
	items, _ := body["data_setoran"].([]any)
	if len(items) != 1 {
		t.Fatalf("unexpected submit body %v", body)
	}
	item := items[0].(map[string]any)
	if item["id_komponen_setoran"] != "komp-1" || item["nama_komponen_setoran"] != "Al-Fatihah" {
		t.Fatalf("unexpected submit item %v", item)
	}
	if _, ok := item["id"]; ok {
		t.Fatalf("submit item must not carry an id, got %v", item)
	}

	if _, err := client.Cancel(ctx, "token-1", testNIM, domain.CancelItem{
		DepositID: "setoran-99", ComponentID: "komp-2", Name: "An-Naba",
	}); err != nil {
		t.Fatalf("cancel error: %v", err)
	}
	reqs = srv.Requests()
	last := reqs[len(reqs)-1]
	if last.Method != http.MethodDelete || last.Query != "id=setoran-99" {
		t.Fatalf("unexpected cancel request %+v", last)
	}
	cancelItem := last.Body["data_setoran"].([]any)[0].(map[string]any)
	if cancelItem["id"] != "setoran-99" || cancelItem["id_setoran"] != "setoran-99" || cancelItem["id_komponen_setoran"] != "komp-2" {
		t.Fatalf("unexpected cancel item %v", cancelItem)
	}
}

func TestLocalValidationNeverReachesNetwork(t *testing.T) {
	srv := newFake()
	defer srv.Close()
	client := newClient(t, srv.BaseURL())
	ctx := context.Background()

	if _, err := client.Detail(ctx, "token-1", "12345"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for short nim, got %v", err)
	}
	if _, err := client.Submit(ctx, "token-1", testNIM, nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for empty submit, got %v", err)
	}
	if _, err := client.Cancel(ctx, "token-1", testNIM, domain.CancelItem{ComponentID: "komp-2"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for missing deposit id, got %v", err)
	}
	if n := len(srv.Requests()); n != 0 {
		t.Fatalf("expected no network calls, got %d", n)
	}
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		kind   domain.Kind
	}{
		{http.StatusUnauthorized, domain.KindUnauthorized},
		{http.StatusForbidden, domain.KindForbidden},
		{http.StatusNotFound, domain.KindNotFound},
		{http.StatusInternalServerError, domain.KindServerRejected},
		{http.StatusBadRequest, domain.KindServerRejected},
	}
	srv := newFake()
	defer srv.Close()
	client := newClient(t, srv.BaseURL())

	for _, tc := range cases {
		srv.FailNext(tc.status)
		_, err := client.Roster(context.Background(), "token-1")
		if domain.KindOf(err) != tc.kind {
			t.Fatalf("status %d: expected %s, got %v", tc.status, tc.kind, err)
		}
		var de *domain.Error
		if !errors.As(err, &de) || de.Status != tc.status {
			t.Fatalf("status %d: expected status on error, got %v", tc.status, err)
		}
	}
}

func TestServerRejectedUsesMessage(t *testing.T) {
	srv := newFake()
	defer srv.Close()
	srv.SetReject("Setoran ditolak")

	_, err := newClient(t, srv.BaseURL()).Submit(context.Background(), "token-1", testNIM,
		[]domain.SubmitItem{{ComponentID: "komp-1", Name: "Al-Fatihah"}})
	if domain.KindOf(err) != domain.KindServerRejected || domain.Message(err) != "Setoran ditolak" {
		t.Fatalf("expected server message, got %v", err)
	}
}

func TestMalformedResponses(t *testing.T) {
	bodies := map[string]string{
		"not json":   `<html>oops</html>`,
		"no flag":    `{"message":"OK","data":{}}`,
		"no data":    `{"response":true,"message":"OK"}`,
		"no setoran": `{"response":true,"message":"OK","data":{"info":{"nim":"20102030405"}}}`,
		"validated no info": `{"response":true,"message":"OK","data":{"info":{},"setoran":{"info_dasar":{},"detail":[` +
			`{"id":"c","id_komponen_setoran":"k","nama":"x","sudah_setor":true}]}}}`,
		"info not validated": `{"response":true,"message":"OK","data":{"info":{},"setoran":{"info_dasar":{},"detail":[` +
			`{"id":"c","id_komponen_setoran":"k","nama":"x","sudah_setor":false,"info_setoran":{"id":"s"}}]}}}`,
		"empty component id": `{"response":true,"message":"OK","data":{"info":{},"setoran":{"info_dasar":{},"detail":[` +
			`{"id":"c","id_komponen_setoran":"","nama":"x","sudah_setor":false}]}}}`,
	}
	for name, body := range bodies {
		body := body
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := newClient(t, srv.URL).Detail(context.Background(), "token-1", testNIM)
			if domain.KindOf(err) != domain.KindTransport {
				t.Fatalf("expected transport classification, got %v", err)
			}
			if domain.Message(err) != "invalid response from server" {
				t.Fatalf("unexpected message %q", domain.Message(err))
			}
		})
	}
}

func TestUnreachableBackend(t *testing.T) {
	srv := newFake()
	client := newClient(t, srv.BaseURL())
	srv.Close()

	_, err := client.Roster(context.Background(), "token-1")
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}
