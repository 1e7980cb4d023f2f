package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"slot-booking-api/internal/handler"
	"slot-booking-api/internal/middleware"
	"slot-booking-api/internal/scheduler"
	"slot-booking-api/internal/store/memory"
)

var slotStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	st := memory.New()
	engine := scheduler.New(st, log)
	h := handler.New(engine, st, "test-secret", log)

	// high limits so the limiter never interferes with tests
	rl := middleware.NewRateLimiter(1000, 1000)
	return h.Router(rl, []string{"http://localhost:3000"})
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

// registerAndLogin creates an account via the API and returns the access
// token and user id.
func registerAndLogin(t *testing.T, r *gin.Engine, email string) (token, userID string) {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"email": email, "password": "secretpass", "displayName": "Tester",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status %d body %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email": email, "password": "secretpass",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	return body["token"].(string), body["userId"].(string)
}

func createSlotHTTP(t *testing.T, r *gin.Engine, token string, start, end time.Time) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/slots", token, gin.H{
		"startTime": start.Format(time.RFC3339),
		"endTime":   end.Format(time.RFC3339),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create slot: status %d body %s", w.Code, w.Body.String())
	}
	return decode(t, w)["id"].(string)
}

func TestBookingLifecycle(t *testing.T) {
	r := newRouter(t)
	token, _ := registerAndLogin(t, r, "alice@example.com")

	slotID := createSlotHTTP(t, r, token, slotStart, slotStart.Add(time.Hour))

	// fresh slot is FREE
	w := doJSON(t, r, http.MethodGet, "/api/slots/"+slotID, token, nil)
	if w.Code != http.StatusOK || decode(t, w)["status"] != "FREE" {
		t.Fatalf("fresh slot: status %d body %s", w.Code, w.Body.String())
	}

	// booking flips it to BUSY
	w = doJSON(t, r, http.MethodPost, "/api/meetings", token, gin.H{
		"slotId": slotID, "title": "Planning",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("schedule: status %d body %s", w.Code, w.Body.String())
	}
	meetingID := decode(t, w)["id"].(string)

	w = doJSON(t, r, http.MethodGet, "/api/slots/"+slotID, token, nil)
	if decode(t, w)["status"] != "BUSY" {
		t.Fatalf("slot after booking: body %s", w.Body.String())
	}

	// second booking on the same slot conflicts
	w = doJSON(t, r, http.MethodPost, "/api/meetings", token, gin.H{
		"slotId": slotID, "title": "Sneaky",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("double booking: status %d body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "busy") {
		t.Errorf("conflict body %q does not mention busy", w.Body.String())
	}

	// cancelling frees the slot
	w = doJSON(t, r, http.MethodDelete, "/api/meetings/"+meetingID, token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("cancel: status %d body %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodGet, "/api/slots/"+slotID, token, nil)
	if decode(t, w)["status"] != "FREE" {
		t.Fatalf("slot after cancel: body %s", w.Body.String())
	}

	// and it can be booked again
	w = doJSON(t, r, http.MethodPost, "/api/meetings", token, gin.H{
		"slotId": slotID, "title": "Take two",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("rebook: status %d body %s", w.Code, w.Body.String())
	}
}

func TestSlotValidationHTTP(t *testing.T) {
	r := newRouter(t)
	token, _ := registerAndLogin(t, r, "alice@example.com")

	// too short
	w := doJSON(t, r, http.MethodPost, "/api/slots", token, gin.H{
		"startTime": slotStart.Format(time.RFC3339),
		"endTime":   slotStart.Add(10 * time.Minute).Format(time.RFC3339),
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("short slot: status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "15 minutes") {
		t.Errorf("body %q does not mention the minimum duration", w.Body.String())
	}

	// overlap
	createSlotHTTP(t, r, token, slotStart, slotStart.Add(time.Hour))
	w = doJSON(t, r, http.MethodPost, "/api/slots", token, gin.H{
		"startTime": slotStart.Add(30 * time.Minute).Format(time.RFC3339),
		"endTime":   slotStart.Add(90 * time.Minute).Format(time.RFC3339),
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("overlapping slot: status %d body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "overlaps") {
		t.Errorf("body %q does not mention overlap", w.Body.String())
	}

	// missing field rejected by binding
	w = doJSON(t, r, http.MethodPost, "/api/slots", token, gin.H{
		"startTime": slotStart.Format(time.RFC3339),
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing endTime: status %d", w.Code)
	}
}

func TestVisibilityHTTP(t *testing.T) {
	r := newRouter(t)
	aliceTok, _ := registerAndLogin(t, r, "alice@example.com")
	bobTok, _ := registerAndLogin(t, r, "bob@example.com")

	slotID := createSlotHTTP(t, r, aliceTok, slotStart, slotStart.Add(time.Hour))
	w := doJSON(t, r, http.MethodPost, "/api/meetings", aliceTok, gin.H{
		"slotId": slotID, "title": "Private",
	})
	meetingID := decode(t, w)["id"].(string)

	// foreign slot reads are forbidden, booking attempts hide existence
	if w := doJSON(t, r, http.MethodGet, "/api/slots/"+slotID, bobTok, nil); w.Code != http.StatusForbidden {
		t.Errorf("foreign slot read: status %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPost, "/api/meetings", bobTok, gin.H{"slotId": slotID, "title": "Steal"})
	if w.Code != http.StatusNotFound {
		t.Errorf("foreign slot booking: status %d, want 404", w.Code)
	}

	// meetings: read hides as 404, mutation is an explicit 403
	if w := doJSON(t, r, http.MethodGet, "/api/meetings/"+meetingID, bobTok, nil); w.Code != http.StatusNotFound {
		t.Errorf("foreign meeting read: status %d, want 404", w.Code)
	}
	w = doJSON(t, r, http.MethodPatch, "/api/meetings/"+meetingID, bobTok, gin.H{"title": "Hijack"})
	if w.Code != http.StatusForbidden {
		t.Errorf("foreign meeting update: status %d, want 403", w.Code)
	}
	if w := doJSON(t, r, http.MethodDelete, "/api/meetings/"+meetingID, bobTok, nil); w.Code != http.StatusForbidden {
		t.Errorf("foreign meeting cancel: status %d, want 403", w.Code)
	}
}

func TestDebugVars(t *testing.T) {
	r := newRouter(t)
	token, _ := registerAndLogin(t, r, "alice@example.com")
	createSlotHTTP(t, r, token, slotStart, slotStart.Add(time.Hour))

	w := doJSON(t, r, http.MethodGet, "/debug/vars", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("debug vars: status %d", w.Code)
	}
	for _, name := range []string{"slots_created", "meetings_scheduled", "meetings_cancelled"} {
		if !strings.Contains(w.Body.String(), name) {
			t.Errorf("counter %s not published", name)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	r := newRouter(t)

	if w := doJSON(t, r, http.MethodGet, "/api/slots/some-id", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/api/slots/some-id", "not-a-jwt", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status %d", w.Code)
	}
}

func TestLoginFailures(t *testing.T) {
	r := newRouter(t)
	registerAndLogin(t, r, "alice@example.com")

	w := doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email": "alice@example.com", "password": "wrongpass",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: status %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email": "nobody@example.com", "password": "secretpass",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unknown email: status %d", w.Code)
	}

	// duplicate registration
	w = doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"email": "alice@example.com", "password": "secretpass", "displayName": "Clone",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate register: status %d body %s", w.Code, w.Body.String())
	}
}

func TestRefreshRotation(t *testing.T) {
	r := newRouter(t)

	w := doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"email": "alice@example.com", "password": "secretpass", "displayName": "Alice",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email": "alice@example.com", "password": "secretpass",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d", w.Code)
	}
	first := refreshCookie(t, w)

	// rotating yields a new cookie and a fresh access token
	w = refreshWith(t, r, first)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: status %d body %s", w.Code, w.Body.String())
	}
	second := refreshCookie(t, w)
	if second.Value == first.Value {
		t.Error("refresh token was not rotated")
	}
	if decode(t, w)["token"] == "" {
		t.Error("no access token in refresh response")
	}

	// the replaced token is dead
	if w := refreshWith(t, r, first); w.Code != http.StatusUnauthorized {
		t.Errorf("replayed refresh token: status %d, want 401", w.Code)
	}
	// the new one still works
	if w := refreshWith(t, r, second); w.Code != http.StatusOK {
		t.Errorf("rotated token refresh: status %d", w.Code)
	}
}

func TestLogoutRevokesRefresh(t *testing.T) {
	r := newRouter(t)

	doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"email": "alice@example.com", "password": "secretpass", "displayName": "Alice",
	})
	w := doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email": "alice@example.com", "password": "secretpass",
	})
	token := decode(t, w)["token"].(string)
	cookie := refreshCookie(t, w)

	if w := doJSON(t, r, http.MethodPost, "/auth/logout", token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("logout: status %d", w.Code)
	}
	if w := refreshWith(t, r, cookie); w.Code != http.StatusUnauthorized {
		t.Errorf("refresh after logout: status %d, want 401", w.Code)
	}
}

func TestAvailabilityHTTP(t *testing.T) {
	r := newRouter(t)
	aliceTok, aliceID := registerAndLogin(t, r, "alice@example.com")
	bobTok, _ := registerAndLogin(t, r, "bob@example.com")

	slotID := createSlotHTTP(t, r, aliceTok, slotStart, slotStart.Add(time.Hour))
	createSlotHTTP(t, r, aliceTok, slotStart.Add(2*time.Hour), slotStart.Add(3*time.Hour))
	doJSON(t, r, http.MethodPost, "/api/meetings", aliceTok, gin.H{"slotId": slotID, "title": "Busy"})

	// bob can project alice's calendar
	path := fmt.Sprintf("/api/availability?userId=%s&from=%s&to=%s",
		aliceID,
		slotStart.Add(-time.Hour).Format(time.RFC3339),
		slotStart.Add(6*time.Hour).Format(time.RFC3339))
	w := doJSON(t, r, http.MethodGet, path, bobTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("availability: status %d body %s", w.Code, w.Body.String())
	}
	windows := decode(t, w)["windows"].([]any)
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	if windows[0].(map[string]any)["status"] != "BUSY" {
		t.Errorf("first window should be BUSY: %v", windows[0])
	}
	if windows[1].(map[string]any)["status"] != "FREE" {
		t.Errorf("second window should be FREE: %v", windows[1])
	}

	// missing params are a 400
	if w := doJSON(t, r, http.MethodGet, "/api/availability?userId="+aliceID, bobTok, nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing range: status %d", w.Code)
	}
}

func TestListSlotsHTTP(t *testing.T) {
	r := newRouter(t)
	token, _ := registerAndLogin(t, r, "alice@example.com")

	for i := 0; i < 3; i++ {
		createSlotHTTP(t, r, token,
			slotStart.Add(time.Duration(i)*2*time.Hour),
			slotStart.Add(time.Duration(i)*2*time.Hour+time.Hour))
	}

	path := fmt.Sprintf("/api/slots?from=%s&to=%s&page=0&size=2",
		slotStart.Add(-time.Hour).Format(time.RFC3339),
		slotStart.Add(12*time.Hour).Format(time.RFC3339))
	w := doJSON(t, r, http.MethodGet, path, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status %d body %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["total"].(float64) != 3 {
		t.Errorf("total: got %v, want 3", body["total"])
	}
	if len(body["items"].([]any)) != 2 {
		t.Errorf("page size: got %d items, want 2", len(body["items"].([]any)))
	}
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" && c.Value != "" {
			return c
		}
	}
	t.Fatal("no refresh_token cookie in response")
	return nil
}

func refreshWith(t *testing.T, r *gin.Engine, c *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(c)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
