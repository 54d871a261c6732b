// Package backendtest provides an in-memory deposit backend for tests.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Component is one memorizable unit held by the fake backend.
type Component struct {
	ID          string
	ComponentID string
	Name        string
	ArabicName  string
	Label       string
	DepositID   string
}

// Validated reports whether the component carries a deposit.
func (c Component) Validated() bool {
	return c.DepositID != ""
}

// Student is one supervised student and their components.
type Student struct {
	NIM        string
	Name       string
	Components []Component
}

// Request is a call observed by the server.
type Request struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	RequestID     string
	Body          map[string]any
}

// Server is a scripted fake of the deposit backend. It is safe for
// concurrent use.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	students map[string]*Student
	order    []string
	forced   []int
	requests []Request
	nextID   int

	authorize func(token string) bool
	reject    string
}

// New starts a fake backend holding the given students.
func New(students ...Student) *Server {
	s := &Server{students: make(map[string]*Student)}
	for i := range students {
		st := students[i]
		st.Components = append([]Component(nil), st.Components...)
		s.students[st.NIM] = &st
		s.order = append(s.order, st.NIM)
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// BaseURL returns the API root clients should use.
func (s *Server) BaseURL() string {
	return s.Server.URL + "/setoran-dev/v1/"
}

// SetAuthorize decides which bearer tokens are accepted. Nil accepts any.
func (s *Server) SetAuthorize(fn func(token string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authorize = fn
}

// SetReject makes mutations reply response:false with message.
func (s *Server) SetReject(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject = message
}

// FailNext makes the next calls reply with the given statuses, in order,
// before any normal handling.
func (s *Server) FailNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced = append(s.forced, statuses...)
}

// Requests returns every call received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many calls matched method and a path suffix.
func (s *Server) Count(method, pathSuffix string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasSuffix(r.Path, pathSuffix) {
			n++
		}
	}
	return n
}

// Student returns a copy of the stored student.
func (s *Server) Student(nim string) (Student, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[nim]
	if !ok {
		return Student{}, false
	}
	out := *st
	out.Components = append([]Component(nil), st.Components...)
	return out, true
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	req := Request{
		Method:        r.Method,
		Path:          r.URL.Path,
		Query:         r.URL.RawQuery,
		Authorization: r.Header.Get("Authorization"),
		RequestID:     r.Header.Get("X-Request-ID"),
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req.Body)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)

	if len(s.forced) > 0 {
		status := s.forced[0]
		s.forced = s.forced[1:]
		writeJSON(w, status, map[string]any{"response": false, "message": http.StatusText(status)})
		return
	}

	token := strings.TrimPrefix(req.Authorization, "Bearer ")
	if token == "" || (s.authorize != nil && !s.authorize(token)) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"response": false, "message": "Unauthorized"})
		return
	}

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/dosen/pa-saya"):
		s.roster(w)
	case strings.Contains(path, "/mahasiswa/setoran/"):
		nim := path[strings.LastIndex(path, "/")+1:]
		st, ok := s.students[nim]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"response": false, "message": "Mahasiswa tidak ditemukan"})
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{"response": true, "message": "OK", "data": detailData(st)})
		case http.MethodPost:
			s.submit(w, st, req.Body)
		case http.MethodDelete:
			s.cancel(w, st, r.URL.Query().Get("id"), req.Body)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"response": false, "message": "Not found"})
	}
}

func (s *Server) roster(w http.ResponseWriter) {
	students := make([]map[string]any, 0, len(s.order))
	for _, nim := range s.order {
		st := s.students[nim]
		students = append(students, map[string]any{
			"email":        nim + "@students.example.ac.id",
			"nim":          nim,
			"nama":         st.Name,
			"angkatan":     "20" + nim[1:3],
			"semester":     6,
			"info_setoran": progress(st),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"response": true,
		"message":  "OK",
		"data": map[string]any{
			"nip":   "198001012005011001",
			"nama":  "Dosen PA",
			"email": "dosen@example.ac.id",
			"info_mahasiswa_pa": map[string]any{
				"ringkasan":        []map[string]any{{"tahun": "2021", "total": len(students)}},
				"daftar_mahasiswa": students,
			},
		},
	})
}

func (s *Server) submit(w http.ResponseWriter, st *Student, body map[string]any) {
	if s.reject != "" {
		writeJSON(w, http.StatusOK, map[string]any{"response": false, "message": s.reject})
		return
	}
	items, _ := body["data_setoran"].([]any)
	if len(items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"response": false, "message": "data_setoran kosong"})
		return
	}
	for _, raw := range items {
		item, _ := raw.(map[string]any)
		id, _ := item["id_komponen_setoran"].(string)
		c := findComponent(st, id)
		if c == nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"response": false, "message": "komponen tidak dikenal: " + id})
			return
		}
		if c.Validated() {
			writeJSON(w, http.StatusOK, map[string]any{"response": false, "message": "komponen sudah disetor: " + id})
			return
		}
	}
	for _, raw := range items {
		item := raw.(map[string]any)
		c := findComponent(st, item["id_komponen_setoran"].(string))
		s.nextID++
		c.DepositID = fmt.Sprintf("setoran-%d", s.nextID)
	}
	writeJSON(w, http.StatusOK, map[string]any{"response": true, "message": "Setoran berhasil disimpan"})
}

func (s *Server) cancel(w http.ResponseWriter, st *Student, depositID string, body map[string]any) {
	if s.reject != "" {
		writeJSON(w, http.StatusOK, map[string]any{"response": false, "message": s.reject})
		return
	}
	items, _ := body["data_setoran"].([]any)
	if depositID == "" || len(items) != 1 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"response": false, "message": "permintaan tidak valid"})
		return
	}
	for i := range st.Components {
		if st.Components[i].DepositID == depositID {
			st.Components[i].DepositID = ""
			writeJSON(w, http.StatusOK, map[string]any{"response": true, "message": "Setoran berhasil dihapus"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"response": false, "message": "setoran tidak ditemukan"})
}

func findComponent(st *Student, componentID string) *Component {
	for i := range st.Components {
		if st.Components[i].ComponentID == componentID {
			return &st.Components[i]
		}
	}
	return nil
}

func progress(st *Student) map[string]any {
	done := 0
	for _, c := range st.Components {
		if c.Validated() {
			done++
		}
	}
	total := len(st.Components)
	percent := 0.0
	if total > 0 {
		percent = float64(done) * 100 / float64(total)
	}
	return map[string]any{
		"total_wajib_setor":        total,
		"total_sudah_setor":        done,
		"total_belum_setor":        total - done,
		"persentase_progres_setor": percent,
		"tgl_terakhir_setor":       nil,
		"terakhir_setor":           "-",
	}
}

func detailData(st *Student) map[string]any {
	components := make([]map[string]any, 0, len(st.Components))
	for _, c := range st.Components {
		item := map[string]any{
			"id":                  c.ID,
			"id_komponen_setoran": c.ComponentID,
			"nama":                c.Name,
			"nama_arab":           c.ArabicName,
			"label":               c.Label,
			"sudah_setor":         c.Validated(),
		}
		if c.Validated() {
			item["info_setoran"] = map[string]any{
				"id":           c.DepositID,
				"tgl_setoran":  "2024-05-01T08:00:00Z",
				"tgl_validasi": "2024-05-01T08:00:00Z",
				"dosen_yang_mengesahkan": map[string]any{
					"nip":   "198001012005011001",
					"nama":  "Dosen PA",
					"email": "dosen@example.ac.id",
				},
			}
		}
		components = append(components, item)
	}
	return map[string]any{
		"info": map[string]any{
			"nama":     st.Name,
			"nim":      st.NIM,
			"email":    st.NIM + "@students.example.ac.id",
			"angkatan": "20" + st.NIM[1:3],
			"semester": 6,
			"dosen_pa": map[string]any{
				"nip":   "198001012005011001",
				"nama":  "Dosen PA",
				"email": "dosen@example.ac.id",
			},
		},
		"setoran": map[string]any{
			"log":        []any{},
			"info_dasar": progress(st),
			"ringkasan":  []map[string]any{},
			"detail":     components,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
