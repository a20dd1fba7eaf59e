// Package testutil provides a mock of the upstream document service for tests.
package testutil

import (
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ListPath is the path of the listing form on the mock server.
const ListPath = "/parldok/formalkriterien"

// Row is one document in a rendered result table. Empty fields are left
// out of the markup entirely.
type Row struct {
	Title     string
	Link      string
	Reference string
	Type      string
	Date      string
}

// MockResponse overrides the response of one list page.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockParldok is a configurable mock of the listing endpoint.
//
//	GET  /parldok/formalkriterien      form with AFHTOKEN + Set-Cookie
//	POST /parldok/formalkriterien      page 1
//	POST /parldok/formalkriterien/{n}  page n
type MockParldok struct {
	server *httptest.Server

	mu        sync.RWMutex
	token      string
	cookie     string
	formStatus int
	pages     map[int]MockResponse
	delay     time.Duration
	inFlight  int
	peak      int
	requests  []RecordedRequest
	getCount  int
	postCount int
}

// RecordedRequest captures what the mock received.
type RecordedRequest struct {
	Method string
	Path   string
	Page   int
	Header http.Header
	Body   string
}

// NewMockParldok creates a new mock server issuing token "test-token" and
// cookie "SESSION=abc123".
func NewMockParldok() *MockParldok {
	m := &MockParldok{
		token:      "test-token",
		cookie:     "SESSION=abc123; Path=/; HttpOnly",
		formStatus: http.StatusOK,
		pages:      make(map[int]MockResponse),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the mock server base URL.
func (m *MockParldok) URL() string {
	return m.server.URL
}

// Endpoint returns the absolute URL of the listing form.
func (m *MockParldok) Endpoint() string {
	return m.server.URL + ListPath
}

// Close shuts down the mock server.
func (m *MockParldok) Close() {
	m.server.Close()
}

// SetSession sets the token and Set-Cookie value of the initial page.
// Empty values are left out of the response.
func (m *MockParldok) SetSession(token, setCookie string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.cookie = setCookie
}

// SetFormStatus sets the status of the initial page. The token and cookie
// are sent regardless.
func (m *MockParldok) SetFormStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.formStatus = status
}

// SetDelay delays every POST response.
func (m *MockParldok) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetPage serves an HTML page for page number n.
func (m *MockParldok) SetPage(n int, body string) {
	m.SetResponse(n, MockResponse{StatusCode: http.StatusOK, Body: body})
}

// SetResponse configures the full response for page number n.
func (m *MockParldok) SetResponse(n int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[n] = resp
}

// SetResults renders total rows across pages of pageSize and serves them.
// It returns the rows per page.
func (m *MockParldok) SetResults(total, pageSize int) map[int][]Row {
	byPage := make(map[int][]Row)
	for i := 0; i < total; i++ {
		page := i/pageSize + 1
		byPage[page] = append(byPage[page], Row{
			Title:     fmt.Sprintf("Dokument %d", i+1),
			Link:      fmt.Sprintf("/parldok/dokument/%d", i+1),
			Reference: fmt.Sprintf("22/%d", 10000+i),
			Type:      "Drucksache",
			Date:      fmt.Sprintf("%02d.12.2023", i%28+1),
		})
	}
	for page, rows := range byPage {
		from := (page-1)*pageSize + 1
		m.SetPage(page, RenderPage(Banner(from, from+len(rows)-1, total), rows))
	}
	return byPage
}

// Requests returns a copy of all recorded requests.
func (m *MockParldok) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// PostCount returns the number of POST requests received.
func (m *MockParldok) PostCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.postCount
}

// GetCount returns the number of GET requests received.
func (m *MockParldok) GetCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getCount
}

// PeakInFlight returns the highest number of concurrently served POSTs.
func (m *MockParldok) PeakInFlight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.peak
}

func (m *MockParldok) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	page, ok := pageNumber(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Page:   page,
		Header: r.Header.Clone(),
		Body:   string(body),
	})
	if r.Method == http.MethodGet {
		m.getCount++
	} else {
		m.postCount++
	}
	m.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		m.serveForm(w)
	case http.MethodPost:
		m.servePage(w, page)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (m *MockParldok) serveForm(w http.ResponseWriter) {
	m.mu.RLock()
	token, cookie, status := m.token, m.cookie, m.formStatus
	m.mu.RUnlock()

	if cookie != "" {
		w.Header().Add("Set-Cookie", cookie)
		w.Header().Add("Set-Cookie", "tracking=1; Path=/")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	field := ""
	if token != "" {
		field = fmt.Sprintf(`<input type="hidden" name="AFHTOKEN" value="%s">`, html.EscapeString(token))
	}
	fmt.Fprintf(w, `<html><body><form method="post" action="%s">%s<input name="DatumVon"></form></body></html>`, ListPath, field)
}

func (m *MockParldok) servePage(w http.ResponseWriter, page int) {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.peak {
		m.peak = m.inFlight
	}
	resp, exists := m.pages[page]
	delay := m.delay
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if delay > 0 {
		time.Sleep(delay)
	}
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	if !exists {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `<html><body><p>Keine Dokumente gefunden</p></body></html>`)
		return
	}

	if resp.Headers["Content-Type"] == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	io.WriteString(w, resp.Body)
}

// pageNumber maps /parldok/formalkriterien to 1 and .../{n} to n.
func pageNumber(path string) (int, bool) {
	if path == ListPath || path == ListPath+"/" {
		return 1, true
	}
	rest, ok := strings.CutPrefix(path, ListPath+"/")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Banner renders a result-count banner.
func Banner(from, to, overall int) string {
	return fmt.Sprintf("Dokumente %d - %d von %d", from, to, overall)
}

// RenderPage renders a list page with the given banner and rows.
func RenderPage(banner string, rows []Row) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"></head><body>\n")
	if banner != "" {
		fmt.Fprintf(&b, "<div class=\"pd_resultcount\">\n  %s\n</div>\n", html.EscapeString(banner))
	}
	b.WriteString("<table id=\"parldokresult\"><tbody>\n")
	for _, row := range rows {
		b.WriteString("<tr><td class=\"title\" colspan=\"3\">")
		if row.Link != "" {
			fmt.Fprintf(&b, "<a href=\"%s\">%s</a>", html.EscapeString(row.Link), html.EscapeString(row.Title))
		} else {
			b.WriteString(html.EscapeString(row.Title))
		}
		b.WriteString("</td></tr>\n<tr>")
		if row.Reference != "" {
			fmt.Fprintf(&b, "<td headers=\"result-nummer\">%s</td>", html.EscapeString(row.Reference))
		}
		if row.Type != "" {
			fmt.Fprintf(&b, "<td headers=\"result-typ\">%s</td>", html.EscapeString(row.Type))
		}
		if row.Date != "" {
			fmt.Fprintf(&b, "<td headers=\"result-datum\">%s</td>", html.EscapeString(row.Date))
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody></table>\n</body></html>")
	return b.String()
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       "<html><body>Interner Fehler</body></html>",
	}
}

// NewRetryAfterResponse creates a 429 response asking clients to wait.
func NewRetryAfterResponse(seconds int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       "<html><body>Zu viele Anfragen</body></html>",
		Headers:    map[string]string{"Retry-After": strconv.Itoa(seconds)},
	}
}
