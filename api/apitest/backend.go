// Package apitest provides an in-memory food-ordering backend for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"food-order-bot/models"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type account struct {
	user     models.User
	password string
}

// Backend mimics the REST contract: same paths, status codes and error bodies.
type Backend struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]*account // by email
	tokens   map[string]int64    // token -> user id
	menu     []models.MenuItem
	orders   map[int64][]models.Order
	nextUser int64
	nextOrd  int64
	hits     map[string]int

	failOrders string
}

// DefaultMenu mirrors the backend's seed data.
func DefaultMenu() []models.MenuItem {
	item := func(id int64, name, desc string, price int64, cat string) models.MenuItem {
		return models.MenuItem{ID: id, Name: name, Description: desc, Price: decimal.NewFromInt(price), Category: cat}
	}
	return []models.MenuItem{
		item(1, "Пицца Маргарита", "Классическая пицца с помидорами и моцареллой", 499, "Пиццы"),
		item(2, "Бургер Классический", "Сочный бургер с говядиной и свежими овощами", 349, "Бургеры"),
		item(3, "Цезарь с курицей", "Салат с курицей и сухариками", 299, "Салаты"),
		item(4, "Суши сет", "Ассортимент суши из свежей рыбы", 799, "Суши"),
		item(5, "Паста Болоньезе", "Паста с мясным соусом", 399, "Пасты"),
		item(6, "Фраппучино", "Холодный кофейный напиток", 199, "Напитки"),
	}
}

func NewBackend() *Backend {
	b := &Backend{
		accounts: make(map[string]*account),
		tokens:   make(map[string]int64),
		menu:     DefaultMenu(),
		orders:   make(map[int64][]models.Order),
		hits:     make(map[string]int),
	}
	r := chi.NewRouter()
	r.Use(b.count)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", b.register)
		r.Post("/auth/login", b.login)
		r.Get("/auth/profile", b.authed(b.profile))
		r.Put("/auth/profile", b.authed(b.updateProfile))
		r.Get("/menu", b.listMenu)
		r.Get("/menu/{id}", b.getMenuItem)
		r.Post("/orders", b.authed(b.createOrder))
		r.Get("/orders", b.authed(b.listOrders))
	})
	b.Server = httptest.NewServer(r)
	return b
}

// BaseURL is the value a client should use as API base.
func (b *Backend) BaseURL() string {
	return b.URL + "/api"
}

// Hits returns how many requests reached "METHOD /path" (path without /api prefix).
func (b *Backend) Hits(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[route]
}

// TotalHits returns the number of requests served.
func (b *Backend) TotalHits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, v := range b.hits {
		n += v
	}
	return n
}

// SetMenu replaces the menu.
func (b *Backend) SetMenu(items []models.MenuItem) {
	b.mu.Lock()
	b.menu = items
	b.mu.Unlock()
}

// SetOrderStatus changes the status of an existing order.
func (b *Backend) SetOrderStatus(orderID int64, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for uid, list := range b.orders {
		for i := range list {
			if list[i].ID == orderID {
				b.orders[uid][i].Status = status
			}
		}
	}
}

// FailOrders makes POST /orders answer 500 with msg; an empty msg restores normal behaviour.
func (b *Backend) FailOrders(msg string) {
	b.mu.Lock()
	b.failOrders = msg
	b.mu.Unlock()
}

// RevokeTokens invalidates every issued token.
func (b *Backend) RevokeTokens() {
	b.mu.Lock()
	b.tokens = make(map[string]int64)
	b.mu.Unlock()
}

func (b *Backend) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		path := strings.TrimPrefix(r.URL.Path, "/api")
		if strings.HasPrefix(path, "/menu/") {
			path = "/menu/{id}"
		}
		b.hits[r.Method+" "+path]++
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type ctxHandler func(w http.ResponseWriter, r *http.Request, userID int64)

func (b *Backend) authed(h ctxHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Missing Authorization Header"})
			return
		}
		b.mu.Lock()
		uid, ok := b.tokens[strings.TrimPrefix(auth, "Bearer ")]
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Token has expired"})
			return
		}
		h(w, r, uid)
	}
}

func (b *Backend) issueToken(uid int64) string {
	tok := fmt.Sprintf("token-%d-%d", uid, len(b.tokens)+1)
	b.tokens[tok] = uid
	return tok
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Password == "" || in.Name == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if len(in.Password) < 6 {
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.accounts[in.Email]; ok {
		writeError(w, http.StatusConflict, "Email already exists")
		return
	}
	b.nextUser++
	acc := &account{
		user:     models.User{ID: b.nextUser, Name: in.Name, Email: in.Email, Phone: in.Phone, Address: in.Address},
		password: in.Password,
	}
	b.accounts[in.Email] = acc
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":      "User registered successfully",
		"access_token": b.issueToken(acc.user.ID),
		"user":         map[string]any{"id": acc.user.ID, "email": acc.user.Email, "name": acc.user.Name},
	})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "Missing email or password")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[in.Email]
	if !ok || acc.password != in.Password {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Login successful",
		"access_token": b.issueToken(acc.user.ID),
		"user":         map[string]any{"id": acc.user.ID, "email": acc.user.Email, "name": acc.user.Name},
	})
}

func (b *Backend) accountByID(uid int64) *account {
	for _, acc := range b.accounts {
		if acc.user.ID == uid {
			return acc
		}
	}
	return nil
}

func (b *Backend) profile(w http.ResponseWriter, r *http.Request, uid int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc := b.accountByID(uid)
	if acc == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": acc.user})
}

func (b *Backend) updateProfile(w http.ResponseWriter, r *http.Request, uid int64) {
	var in models.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Bad request")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	acc := b.accountByID(uid)
	if acc == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	acc.user.Name, acc.user.Phone, acc.user.Address = in.Name, in.Phone, in.Address
	writeJSON(w, http.StatusOK, map[string]string{"message": "Profile updated successfully"})
}

func (b *Backend) listMenu(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	items := append([]models.MenuItem(nil), b.menu...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (b *Backend) findMenuItem(id int64) (models.MenuItem, bool) {
	for _, it := range b.menu {
		if it.ID == id {
			return it, true
		}
	}
	return models.MenuItem{}, false
}

func (b *Backend) getMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	b.mu.Lock()
	it, ok := b.findMenuItem(id)
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": it})
}

func (b *Backend) createOrder(w http.ResponseWriter, r *http.Request, uid int64) {
	var in struct {
		Items []models.OrderLine `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || len(in.Items) == 0 {
		writeError(w, http.StatusBadRequest, "Missing items")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failOrders != "" {
		writeError(w, http.StatusInternalServerError, b.failOrders)
		return
	}
	total := decimal.Zero
	var items []models.OrderItem
	for _, line := range in.Items {
		it, ok := b.findMenuItem(line.ID)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Item %d not found", line.ID))
			return
		}
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		items = append(items, models.OrderItem{MenuItemID: it.ID, Name: it.Name, Quantity: line.Quantity, Price: it.Price})
	}
	b.nextOrd++
	order := models.Order{
		ID:         b.nextOrd,
		Items:      items,
		TotalPrice: total,
		Status:     models.OrderStatusPending,
		CreatedAt:  time.Date(2024, 3, 8, 12, 30, 0, 0, time.UTC).Format("2006-01-02 15:04:05"),
	}
	// newest first, like ORDER BY created_at DESC
	b.orders[uid] = append([]models.Order{order}, b.orders[uid]...)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Order created successfully",
		"order_id":    order.ID,
		"total_price": total,
	})
}

func (b *Backend) listOrders(w http.ResponseWriter, r *http.Request, uid int64) {
	b.mu.Lock()
	orders := append([]models.Order{}, b.orders[uid]...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}
