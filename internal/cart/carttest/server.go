// Package carttest provides an in-memory storefront cart API for tests and the demo binary.
package carttest

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wtf-storefront/cart-core/internal/cart/model"
)

// Variant is a purchasable catalog entry.
type Variant struct {
	ID           int64
	ProductTitle string
	VariantTitle string
	Price        int64
	Stock        int // 0 means unlimited
}

// Catalog is the default variant list served by NewServer.
var Catalog = []Variant{
	{ID: 111, ProductTitle: "Kava Mango Shot", VariantTitle: "Single", Price: 800},
	{ID: 112, ProductTitle: "Kava Mango Shot", VariantTitle: "Six Pack", Price: 4200},
	{ID: 221, ProductTitle: "Build Your Own Drink", VariantTitle: "Regular", Price: 900},
	{ID: 222, ProductTitle: "Build Your Own Drink", VariantTitle: "Large", Price: 1100},
	{ID: 223, ProductTitle: "Build Your Own Drink", VariantTitle: "Gallon", Price: 4500},
	{ID: 331, ProductTitle: "Kratom Tea", VariantTitle: "16 oz", Price: 1000, Stock: 3},
	{ID: 441, ProductTitle: "THC Seltzer", VariantTitle: "5mg", Price: 650},
}

type failure struct {
	status int
	body   string
}

// Server is a fake storefront exposing the /cart*.js endpoints.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	variants   map[int64]Variant
	lines      []model.LineItem
	note       string
	attributes map[string]string
	token      string
	calls      map[string]int
	failures   map[string][]failure
	delay      time.Duration
}

// NewServer starts a fake storefront seeded with Catalog.
func NewServer() *Server {
	s := &Server{
		variants:   make(map[int64]Variant, len(Catalog)),
		attributes: map[string]string{},
		token:      uuid.NewString(),
		calls:      map[string]int{},
		failures:   map[string][]failure{},
	}
	for _, v := range Catalog {
		s.variants[v.ID] = v
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart.js", s.handleCart)
	mux.HandleFunc("POST /cart/add.js", s.handleAdd)
	mux.HandleFunc("POST /cart/change.js", s.handleChange)
	mux.HandleFunc("POST /cart/update.js", s.handleUpdate)
	mux.HandleFunc("POST /cart/clear.js", s.handleClear)

	s.Server = httptest.NewServer(s.intercept(mux))
	return s
}

// BaseURL returns the storefront root with a trailing slash.
func (s *Server) BaseURL() string {
	return s.URL + "/"
}

// Calls reports how many requests reached path (e.g. "/cart.js").
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// TotalCalls reports every request received.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// FailNext makes the next request to path answer with status and a raw body.
func (s *Server) FailNext(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = append(s.failures[path], failure{status: status, body: body})
}

// SetDelay holds every response for d, used to exercise client timeouts.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// AddVariant registers or replaces a catalog entry.
func (s *Server) AddVariant(v Variant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variants[v.ID] = v
}

// Seed replaces the cart lines.
func (s *Server) Seed(lines ...model.LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	for _, l := range lines {
		s.lines = append(s.lines, l.Clone())
	}
}

// Snapshot returns the current server-side cart.
func (s *Server) Snapshot() model.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		delay := s.delay
		var f *failure
		if queue := s.failures[r.URL.Path]; len(queue) > 0 {
			f = &queue[0]
			s.failures[r.URL.Path] = queue[1:]
		}
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		http.SetCookie(w, &http.Cookie{Name: "cart", Value: s.token, Path: "/"})
		if f != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeCartError(w, http.StatusBadRequest, "Invalid form body")
		return
	}
	id, err := strconv.ParseInt(r.PostForm.Get("id"), 10, 64)
	if err != nil {
		writeCartError(w, http.StatusBadRequest, "Parameter Missing or Invalid: Required parameter missing or invalid: items")
		return
	}
	qty := 1
	if raw := r.PostForm.Get("quantity"); raw != "" {
		if qty, err = strconv.Atoi(raw); err != nil || qty <= 0 {
			writeCartError(w, http.StatusBadRequest, "Invalid quantity")
			return
		}
	}
	props := map[string]string{}
	for key, vals := range r.PostForm {
		if name, ok := strings.CutPrefix(key, "properties["); ok && strings.HasSuffix(name, "]") && len(vals) > 0 {
			props[strings.TrimSuffix(name, "]")] = vals[0]
		}
	}
	if len(props) == 0 {
		props = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.variants[id]
	if !ok {
		writeCartError(w, http.StatusNotFound, "Cannot find variant")
		return
	}
	idx := s.findLineLocked(id, props)
	inCart := 0
	if idx >= 0 {
		inCart = s.lines[idx].Quantity
	}
	if v.Stock > 0 && inCart+qty > v.Stock {
		writeCartError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("You can only add %d %s to the cart.", v.Stock, v.ProductTitle))
		return
	}
	if idx >= 0 {
		s.lines[idx].Quantity += qty
		s.lines[idx].LinePrice = s.lines[idx].Price * int64(s.lines[idx].Quantity)
	} else {
		s.lines = append(s.lines, model.LineItem{
			Key:          fmt.Sprintf("%d:%s", v.ID, uuid.NewString()[:8]),
			VariantID:    v.ID,
			ProductTitle: v.ProductTitle,
			VariantTitle: v.VariantTitle,
			Price:        v.Price,
			LinePrice:    v.Price * int64(qty),
			Quantity:     qty,
			Properties:   props,
		})
		idx = len(s.lines) - 1
	}
	item := s.lines[idx].Clone()
	item.Quantity = qty
	item.LinePrice = item.Price * int64(qty)
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleChange(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Line     int    `json:"line"`
		ID       string `json:"id"`
		Quantity *int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Quantity == nil || *body.Quantity < 0 {
		writeCartError(w, http.StatusBadRequest, "Parameter Missing or Invalid")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := body.Line - 1
	if body.ID != "" {
		idx = -1
		for i, l := range s.lines {
			if l.Key == body.ID || strconv.FormatInt(l.VariantID, 10) == body.ID {
				idx = i
				break
			}
		}
	}
	if idx < 0 || idx >= len(s.lines) {
		writeCartError(w, http.StatusBadRequest, "no valid id or line parameter")
		return
	}
	if *body.Quantity == 0 {
		s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	} else {
		s.lines[idx].Quantity = *body.Quantity
		s.lines[idx].LinePrice = s.lines[idx].Price * int64(*body.Quantity)
	}
	writeJSON(w, http.StatusOK, s.snapshotLocked())
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Note       *string           `json:"note"`
		Attributes map[string]string `json:"attributes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeCartError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if body.Note != nil {
		s.note = *body.Note
	}
	for k, v := range body.Attributes {
		if v == "" {
			delete(s.attributes, k)
			continue
		}
		s.attributes[k] = v
	}
	writeJSON(w, http.StatusOK, s.snapshotLocked())
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	writeJSON(w, http.StatusOK, s.snapshotLocked())
}

func (s *Server) findLineLocked(id int64, props map[string]string) int {
	for i, l := range s.lines {
		if l.VariantID == id && maps.Equal(l.Properties, props) {
			return i
		}
	}
	return -1
}

func (s *Server) snapshotLocked() model.CartSnapshot {
	snap := model.CartSnapshot{
		Token:      s.token,
		Note:       s.note,
		Currency:   "USD",
		Items:      make([]model.LineItem, 0, len(s.lines)),
		Attributes: maps.Clone(s.attributes),
	}
	for _, l := range s.lines {
		snap.ItemCount += l.Quantity
		snap.TotalPrice += l.Price * int64(l.Quantity)
		snap.Items = append(snap.Items, l.Clone())
	}
	return snap
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeCartError(w http.ResponseWriter, status int, description string) {
	writeJSON(w, status, map[string]any{
		"status":      status,
		"message":     "Cart Error",
		"description": description,
	})
}
