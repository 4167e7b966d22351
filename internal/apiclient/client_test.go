package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/lube-storefront/internal/cache"
	"github.com/iliyamo/lube-storefront/internal/model"
	"github.com/iliyamo/lube-storefront/internal/session"
)

type staticTokens struct {
	mu      sync.Mutex
	token   string
	expired int
}

func (s *staticTokens) Token(context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *staticTokens) Expire(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired++
	s.token = ""
	return nil
}

func newTestClient(t *testing.T, baseURL string, tokens TokenSource) *Client {
	t.Helper()
	c := New(Config{BaseURL: baseURL, Retries: 2, RetryDelay: 500 * time.Millisecond}, tokens, cache.NewMemory(), nil)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestBearerTokenAndCacheBuster(t *testing.T) {
	var (
		mu     sync.Mutex
		stamps []int64
		auths  []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.ParseInt(r.URL.Query().Get("_t"), 10, 64)
		if err != nil {
			t.Errorf("missing _t: %q", r.URL.RawQuery)
		}
		mu.Lock()
		stamps = append(stamps, n)
		auths = append(auths, r.Header.Get("Authorization"))
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []any{}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, &staticTokens{token: "tok-1"})
	ctx := context.Background()
	if _, err := c.UserAppointments(ctx); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := c.UserAppointments(ctx); err != nil {
		t.Fatalf("second: %v", err)
	}
	if len(stamps) != 2 || stamps[1] <= stamps[0] {
		t.Fatalf("stamps not increasing: %v", stamps)
	}
	for _, a := range auths {
		if a != "Bearer tok-1" {
			t.Fatalf("Authorization = %q", a)
		}
	}
}

func TestAnonymousRequestHasNoAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("unexpected Authorization %q", got)
		}
		if r.URL.Query().Get("date") != "2026-03-03" {
			t.Errorf("date query = %q", r.URL.Query().Get("date"))
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "times": []string{"10:00", "14:00"}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, &staticTokens{})
	day, _ := model.ParseDate("2026-03-03")
	times, err := c.BookedTimes(context.Background(), day)
	if err != nil {
		t.Fatalf("booked times: %v", err)
	}
	if len(times) != 2 || times[0] != "10:00" {
		t.Fatalf("times = %v", times)
	}
}

func TestUnauthorizedClearsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "jwt expired"})
	}))
	defer srv.Close()

	store := session.NewMemoryStore()
	provider := session.NewProvider(store, nil)
	ctx := context.Background()
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}).
		SignedString([]byte("k"))
	sess := session.Session{Token: tok, Role: model.RoleUser, Profile: model.Profile{Name: "Ada", Role: model.RoleUser}}
	if err := provider.Write(ctx, "sid1", sess); err != nil {
		t.Fatalf("write: %v", err)
	}
	v := &session.Visitor{ID: "sid1", Session: sess, Valid: true}
	ctx = session.NewContext(ctx, v)

	c := newTestClient(t, srv.URL, provider)
	_, err := c.UserAppointments(ctx)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if !IsAuthFailure(err) {
		t.Fatal("IsAuthFailure = false")
	}
	f, _ := store.Load(context.Background(), "sid1")
	for _, k := range []string{session.KeyToken, session.KeyUserRole, session.KeyUserData} {
		if _, ok := f[k]; ok {
			t.Fatalf("%s survived the 401", k)
		}
	}
	if v.Valid {
		t.Fatal("visitor still marked signed in")
	}
}

func TestUnauthorizedWithoutTokenIsRequestFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid email or password"})
	}))
	defer srv.Close()

	tokens := &staticTokens{}
	c := newTestClient(t, srv.URL, tokens)
	_, err := c.Login(context.Background(), "a@b.c", "wrong")
	var rf *RequestFailure
	if !errors.As(err, &rf) || rf.Status != http.StatusUnauthorized {
		t.Fatalf("err = %v", err)
	}
	if got := Message(err, "offline", "fallback"); got != "Invalid email or password" {
		t.Fatalf("Message = %q", got)
	}
	if tokens.expired != 0 {
		t.Fatal("anonymous 401 must not expire a session")
	}
}

func TestServerMessagePassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]any{"success": false, "message": "slot already taken"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, &staticTokens{})
	_, err := c.CreateGuestAppointment(context.Background(), AppointmentRequest{Time: "10:00"})
	if got := Message(err, "offline", "fallback"); got != "slot already taken" {
		t.Fatalf("Message = %q (err %v)", got, err)
	}
}

func TestSuccessFalseIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "nope"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, &staticTokens{})
	if err := c.Register(context.Background(), Registration{Email: "x"}); Message(err, "", "") != "nope" {
		t.Fatalf("err = %v", err)
	}
}

func TestMessageFallbacks(t *testing.T) {
	if got := Message(&ConnectivityFailure{Op: "x", Err: io.EOF}, "offline", "fallback"); got != "offline" {
		t.Fatalf("connectivity message = %q", got)
	}
	if got := Message(&RequestFailure{Status: 500}, "offline", "fallback"); got != "fallback" {
		t.Fatalf("empty server message = %q", got)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestConnectivityRetries(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		err      error
		attempts int
	}{
		{"get retried", http.MethodGet, errors.New("connection reset"), 3},
		{"post not retried after send", http.MethodPost, errors.New("connection reset"), 1},
		{"post retried when dial failed", http.MethodPost, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			var delays []time.Duration
			c := newTestClient(t, "http://api.invalid", &staticTokens{token: "t"})
			c.sleep = func(_ context.Context, d time.Duration) error { delays = append(delays, d); return nil }
			c.hc = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
				attempts++
				return nil, tt.err
			})}

			var err error
			if tt.method == http.MethodGet {
				_, err = c.Appointments(context.Background())
			} else {
				_, err = c.CreateAppointment(context.Background(), AppointmentRequest{Time: "09:00"})
			}
			var cf *ConnectivityFailure
			if !errors.As(err, &cf) {
				t.Fatalf("err = %v, want ConnectivityFailure", err)
			}
			if attempts != tt.attempts {
				t.Fatalf("attempts = %d, want %d", attempts, tt.attempts)
			}
			for _, d := range delays {
				if d != 500*time.Millisecond {
					t.Fatalf("delay = %v, want fixed 500ms", d)
				}
			}
			if len(delays) != tt.attempts-1 {
				t.Fatalf("delays = %v", delays)
			}
		})
	}
}

func TestProductsAreMemoizedUntilInvalidated(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []map[string]any{
			{"_id": "p1", "name": "Castrol", "category": "5W-30", "price": 100, "stock": 5},
		}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, &staticTokens{})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ps, err := c.Products(ctx)
		if err != nil {
			t.Fatalf("products: %v", err)
		}
		if len(ps) != 1 || !ps[0].Price.Equal(decimal.NewFromInt(100)) {
			t.Fatalf("products = %+v", ps)
		}
	}
	if hits != 1 {
		t.Fatalf("hits = %d, want 1", hits)
	}
	_ = c.InvalidateProducts(ctx)
	if _, err := c.Products(ctx); err != nil {
		t.Fatalf("products: %v", err)
	}
	if hits != 2 {
		t.Fatalf("hits after invalidate = %d, want 2", hits)
	}
}

func TestAdminCallsNeedToken(t *testing.T) {
	c := newTestClient(t, "http://api.invalid", &staticTokens{})
	c.hc = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		t.Fatal("request sent without token")
		return nil, nil
	})}
	if _, err := c.AdminProducts(context.Background()); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("err = %v", err)
	}
	if err := c.DeleteProduct(context.Background(), "p1"); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateProductSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary=") {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse: %v", err)
		}
		want := map[string]string{"name": "Castrol", "category": "5W-30", "price": "100", "stock": "5", "description": "full synthetic"}
		for k, v := range want {
			if got := r.FormValue(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}
		f, hdr, err := r.FormFile("image")
		if err != nil {
			t.Errorf("image: %v", err)
		} else {
			data, _ := io.ReadAll(f)
			if string(data) != "PNGDATA" || hdr.Filename != "oil.png" {
				t.Errorf("image = %q %q", hdr.Filename, data)
			}
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]any{
			"_id": "p9", "name": "Castrol", "category": "5W-30", "price": 100, "stock": 5,
		}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, &staticTokens{token: "admin"})
	ctx := context.Background()
	_ = c.cache.Set(ctx, KeyProducts, []model.Product{}, time.Minute)

	p, err := c.CreateProduct(ctx, NewProduct{
		Brand: "Castrol", Grade: "5W-30", Price: decimal.NewFromInt(100), Stock: 5,
		Description: "full synthetic",
		Image:       &Upload{Filename: "oil.png", ContentType: "image/png", Data: []byte("PNGDATA")},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID != "p9" {
		t.Fatalf("created = %+v", p)
	}
	var cached []model.Product
	if ok, _ := c.cache.Get(ctx, KeyProducts, &cached); ok {
		t.Fatal("product cache not evicted after create")
	}
}

func TestUpdateProductSendsNumbers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/products/p1" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["price"] != float64(120) || body["stock"] != float64(5) {
			t.Errorf("body = %v", body)
		}
		if _, ok := body["name"]; ok {
			t.Errorf("partial update sent name")
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, &staticTokens{token: "admin"})
	price, stock := decimal.NewFromInt(120), 5
	if err := c.UpdateProduct(context.Background(), "p1", ProductPatch{Price: &price, Stock: &stock}); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestBookedDatesAcceptsTimestamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"dates": []string{"2026-03-04T00:00:00.000Z", "2026-03-05", "junk"}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, &staticTokens{})
	dates, err := c.BookedDates(context.Background())
	if err != nil {
		t.Fatalf("booked dates: %v", err)
	}
	if len(dates) != 2 || dates[0].String() != "2026-03-04" || dates[1].String() != "2026-03-05" {
		t.Fatalf("dates = %v", dates)
	}
}
