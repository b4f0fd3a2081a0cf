package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dyluth/shop/pkg/storefront"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	sessionCookie = "sessionid"
	csrfCookie    = "csrftoken"
)

// Backend is an in-memory stand-in for the storefront REST API.
// It keeps guest carts per session cookie, user carts per username, and
// migrates the guest cart on login the way the real server does.
type Backend struct {
	T      *testing.T
	Server *httptest.Server

	// RequireCSRF rejects mutating requests whose X-CSRFToken does not match.
	RequireCSRF bool
	// OmitCheckoutURL makes create-session answer without a hosted URL.
	OmitCheckoutURL bool

	mu         sync.Mutex
	products   map[int]storefront.Product
	categories []storefront.Category
	users      map[string]*user
	sessions   map[string]string // session id -> username ("" for guests)
	guestCarts map[string][]*cartLine
	userCarts  map[string][]*cartLine
	orders     map[string][]storefront.Order
	checkouts  map[string]*checkout
	csrfToken  string
	nextItemID int
	nextOrder  int
	faults     []*fault
	calls      map[string]int
}

type user struct {
	password string
	profile  storefront.Profile
}

type cartLine struct {
	id        int
	productID int
	quantity  int
}

type checkout struct {
	owner     string
	confirmed bool
}

type fault struct {
	method    string
	prefix    string
	status    int
	remaining int
	hold      chan struct{}
	entered   chan struct{}
}

// NewBackend starts a fake backend with a small default catalog.
// The server is closed when the test ends.
func NewBackend(t *testing.T) *Backend {
	b := &Backend{
		T:          t,
		products:   map[int]storefront.Product{},
		users:      map[string]*user{},
		sessions:   map[string]string{},
		guestCarts: map[string][]*cartLine{},
		userCarts:  map[string][]*cartLine{},
		orders:     map[string][]storefront.Order{},
		checkouts:  map[string]*checkout{},
		csrfToken:  uuid.NewString(),
		nextItemID: 100,
		nextOrder:  1,
		calls:      map[string]int{},
	}

	b.AddProduct(storefront.Product{ID: 1, Name: "Anillo de plata", Description: "Anillo clásico de plata 925", Price: decimal.RequireFromString("20.00"), Discount: decimal.RequireFromString("10"), Stock: 5, CategoryID: 1})
	b.AddProduct(storefront.Product{ID: 2, Name: "Collar de perlas", Description: "Perlas cultivadas", Price: decimal.RequireFromString("45.50"), Discount: decimal.Zero, Stock: 2, CategoryID: 2})
	b.AddProduct(storefront.Product{ID: 3, Name: "Pulsera trenzada", Description: "Cuero y PLATA", Price: decimal.RequireFromString("12.00"), Discount: decimal.Zero, Stock: 10, CategoryID: 1})
	b.categories = []storefront.Category{
		{ID: 1, Name: "Anillos y pulseras"},
		{ID: 2, Name: "Collares"},
	}

	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the API root (no trailing slash).
func (b *Backend) URL() string {
	return b.Server.URL + "/api"
}

// NewClient returns a storefront client with its own cookie jar.
func (b *Backend) NewClient(opts ...storefront.Option) *storefront.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(b.T, err)
	opts = append([]storefront.Option{storefront.WithCookieJar(jar)}, opts...)
	client, err := storefront.NewClient(b.URL(), opts...)
	require.NoError(b.T, err)
	return client
}

// AddProduct adds or replaces a catalog product.
func (b *Backend) AddProduct(p storefront.Product) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.products[p.ID] = p
}

// AddUser registers an account directly.
func (b *Backend) AddUser(username, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[username] = &user{password: password, profile: storefront.Profile{ID: len(b.users) + 1, Username: username, Email: username + "@example.com"}}
}

// FailNext makes the next request matching method and path prefix answer status.
func (b *Backend) FailNext(method, prefix string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults = append(b.faults, &fault{method: method, prefix: prefix, status: status, remaining: 1})
}

// Hold blocks the next request matching method and path prefix until release
// is called. entered is closed once the request has reached the server.
func (b *Backend) Hold(method, prefix string) (entered <-chan struct{}, release func()) {
	f := &fault{method: method, prefix: prefix, remaining: 1, hold: make(chan struct{}), entered: make(chan struct{})}
	b.mu.Lock()
	b.faults = append(b.faults, f)
	b.mu.Unlock()
	var once sync.Once
	return f.entered, func() { once.Do(func() { close(f.hold) }) }
}

// Calls returns how many requests hit method+path (path without query).
func (b *Backend) Calls(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method+" "+path]
}

// CartQuantity returns the server-side quantity of a product in a user's cart.
func (b *Backend) CartQuantity(username string, productID int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, line := range b.userCarts[username] {
		if line.productID == productID {
			return line.quantity
		}
	}
	return 0
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.track)
	r.Use(b.injectFaults)
	r.Use(b.session)

	r.Route("/api", func(r chi.Router) {
		r.Get("/productos/", b.listProducts)
		r.Get("/productos/{id}/", b.getProduct)
		r.Get("/categorias/", b.listCategories)

		r.Group(func(r chi.Router) {
			r.Use(b.csrf)
			r.Get("/cart/", b.getCart)
			r.Post("/cart/", b.addToCart)
			r.Patch("/cart/{id}/", b.updateCartItem)
			r.Delete("/cart/{id}/", b.removeCartItem)

			r.Get("/auth/csrf/", b.getCSRF)
			r.Post("/auth/register/", b.register)
			r.Post("/auth/login/", b.login)
			r.Post("/auth/logout/", b.logout)
			r.Get("/auth/check/", b.checkAuth)
			r.Get("/auth/profile/", b.getProfile)
			r.Patch("/auth/profile/", b.updateProfile)

			r.Get("/orders/history/", b.orderHistory)
			r.Post("/payments/checkout/create-session/", b.createSession)
			r.Post("/payments/checkout/confirm/", b.confirm)
		})
	})
	return r
}

func (b *Backend) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[r.Method+" "+r.URL.Path]++
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		var matched *fault
		for _, f := range b.faults {
			if f.remaining > 0 && f.method == r.Method && strings.HasPrefix(r.URL.Path, "/api"+f.prefix) {
				f.remaining--
				matched = f
				break
			}
		}
		b.mu.Unlock()

		if matched != nil && matched.hold != nil {
			close(matched.entered)
			<-matched.hold
		} else if matched != nil {
			writeJSON(w, matched.status, map[string]string{"error": "injected failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// session makes sure every caller has a session cookie, like Django's middleware.
func (b *Backend) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		b.mu.Lock()
		_, known := b.sessions[cookieValue(cookie, err)]
		b.mu.Unlock()
		if err != nil || !known {
			id := uuid.NewString()
			b.mu.Lock()
			b.sessions[id] = ""
			b.mu.Unlock()
			http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: id, Path: "/"})
			r.AddCookie(&http.Cookie{Name: sessionCookie, Value: id})
			r.Header.Set("X-Test-Session", id)
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) csrf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			if b.RequireCSRF && r.Header.Get("X-CSRFToken") != b.csrfToken {
				writeJSON(w, http.StatusForbidden, map[string]string{"detail": "CSRF Failed: CSRF token missing or incorrect."})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func cookieValue(c *http.Cookie, err error) string {
	if err != nil || c == nil {
		return ""
	}
	return c.Value
}

func (b *Backend) sessionID(r *http.Request) string {
	if id := r.Header.Get("X-Test-Session"); id != "" {
		return id
	}
	c, err := r.Cookie(sessionCookie)
	return cookieValue(c, err)
}

// currentUser returns the username bound to the request session, or "".
// Callers must hold b.mu.
func (b *Backend) currentUser(r *http.Request) string {
	return b.sessions[b.sessionID(r)]
}

func (b *Backend) listProducts(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var categoryID int
	if raw := r.URL.Query().Get("categoria"); raw != "" {
		categoryID, _ = strconv.Atoi(raw)
	}

	products := make([]storefront.Product, 0, len(b.products))
	for _, p := range b.products {
		if categoryID != 0 && p.CategoryID != categoryID {
			continue
		}
		products = append(products, withFinal(p))
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	writeJSON(w, http.StatusOK, products)
}

func (b *Backend) getProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	b.mu.Lock()
	p, ok := b.products[id]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No encontrado."})
		return
	}
	writeJSON(w, http.StatusOK, withFinal(p))
}

func (b *Backend) listCategories(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	categories := make([]storefront.Category, len(b.categories))
	for i, c := range b.categories {
		c.Products = nil
		for _, p := range b.products {
			if p.CategoryID == c.ID {
				c.Products = append(c.Products, withFinal(p))
			}
		}
		sort.Slice(c.Products, func(i, j int) bool { return c.Products[i].ID < c.Products[j].ID })
		categories[i] = c
	}
	writeJSON(w, http.StatusOK, categories)
}

func (b *Backend) getCart(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.renderCart(b.lines(r)))
}

func (b *Backend) addToCart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductID int `json:"product_id"`
		Quantity  int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ProductID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "product_id es requerido"})
		return
	}
	if body.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Cantidad debe ser un entero positivo"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[body.ProductID]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Producto no encontrado"})
		return
	}
	lines := b.lines(r)
	for _, line := range lines {
		if line.productID == p.ID {
			if line.quantity+body.Quantity > p.Stock {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Stock insuficiente. Máximo adicional: %d", p.Stock-line.quantity)})
				return
			}
			line.quantity += body.Quantity
			writeJSON(w, http.StatusCreated, map[string]string{"message": "Producto añadido al carrito"})
			return
		}
	}
	if body.Quantity > p.Stock {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Solo hay %d unidades disponibles", p.Stock)})
		return
	}
	b.nextItemID++
	b.setLines(r, append(lines, &cartLine{id: b.nextItemID, productID: p.ID, quantity: body.Quantity}))
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Producto añadido al carrito"})
}

func (b *Backend) updateCartItem(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	var body struct {
		Quantity *int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Quantity == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": `Campo "quantity" requerido`})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	lines := b.lines(r)
	for i, line := range lines {
		if line.id != id {
			continue
		}
		if *body.Quantity <= 0 {
			b.setLines(r, append(lines[:i:i], lines[i+1:]...))
			w.WriteHeader(http.StatusNoContent)
			return
		}
		p := b.products[line.productID]
		if *body.Quantity > p.Stock {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Stock insuficiente. Disponible: %d", p.Stock)})
			return
		}
		line.quantity = *body.Quantity
		writeJSON(w, http.StatusOK, map[string]any{
			"id":       line.id,
			"quantity": line.quantity,
			"subtotal": p.FinalPrice().Mul(decimal.NewFromInt(int64(line.quantity))),
		})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Ítem no encontrado en tu carrito"})
}

func (b *Backend) removeCartItem(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := b.lines(r)
	kept := make([]*cartLine, 0, len(lines))
	for _, line := range lines {
		if line.id != id {
			kept = append(kept, line)
		}
	}
	b.setLines(r, kept)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) getCSRF(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: csrfCookie, Value: b.csrfToken, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]string{"detail": "CSRF cookie set", "csrfToken": b.csrfToken})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req storefront.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[req.Username]; exists {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"username": {"A user with that username already exists."}})
		return
	}
	u := &user{password: req.Password, profile: storefront.Profile{ID: len(b.users) + 1, Username: req.Username, Email: req.Email, FirstName: req.FirstName, LastName: req.LastName}}
	b.users[req.Username] = u
	b.signIn(r, req.Username)
	writeJSON(w, http.StatusCreated, storefront.AuthResult{Message: "Usuario registrado exitosamente", User: u.profile, Token: "tok-" + req.Username})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req storefront.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[req.Username]
	if !ok || u.password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Credenciales inválidas"})
		return
	}
	b.signIn(r, req.Username)
	writeJSON(w, http.StatusOK, storefront.AuthResult{Message: "Login exitoso", User: u.profile, Token: "tok-" + req.Username})
}

// signIn binds the session to username and migrates the guest cart.
// Callers must hold b.mu.
func (b *Backend) signIn(r *http.Request, username string) {
	sid := b.sessionID(r)
	guest := b.guestCarts[sid]
	delete(b.guestCarts, sid)
	for _, g := range guest {
		merged := false
		for _, line := range b.userCarts[username] {
			if line.productID == g.productID {
				line.quantity += g.quantity
				merged = true
				break
			}
		}
		if !merged {
			b.userCarts[username] = append(b.userCarts[username], g)
		}
	}
	b.sessions[sid] = username
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.currentUser(r) == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Las credenciales de autenticación no se proveyeron."})
		return
	}
	b.sessions[b.sessionID(r)] = ""
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout exitoso"})
}

func (b *Backend) checkAuth(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	username := b.currentUser(r)
	if username == "" {
		writeJSON(w, http.StatusOK, storefront.AuthStatus{Authenticated: false})
		return
	}
	profile := b.users[username].profile
	writeJSON(w, http.StatusOK, storefront.AuthStatus{Authenticated: true, User: &profile})
}

func (b *Backend) getProfile(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	username := b.currentUser(r)
	if username == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Las credenciales de autenticación no se proveyeron."})
		return
	}
	writeJSON(w, http.StatusOK, b.users[username].profile)
}

func (b *Backend) updateProfile(w http.ResponseWriter, r *http.Request) {
	var update storefront.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	username := b.currentUser(r)
	if username == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Las credenciales de autenticación no se proveyeron."})
		return
	}
	p := &b.users[username].profile
	setIf(&p.FirstName, update.FirstName)
	setIf(&p.LastName, update.LastName)
	setIf(&p.Email, update.Email)
	setIf(&p.Phone, update.Phone)
	setIf(&p.Address, update.Address)
	setIf(&p.City, update.City)
	setIf(&p.PostalCode, update.PostalCode)
	setIf(&p.Country, update.Country)
	writeJSON(w, http.StatusOK, *p)
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (b *Backend) orderHistory(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	username := b.currentUser(r)
	if username == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Las credenciales de autenticación no se proveyeron."})
		return
	}
	orders := append([]storefront.Order{}, b.orders[username]...)
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	writeJSON(w, http.StatusOK, orders)
}

func (b *Backend) createSession(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	username := b.currentUser(r)
	if username == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Las credenciales de autenticación no se proveyeron."})
		return
	}
	if len(b.userCarts[username]) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "El carrito está vacío"})
		return
	}
	id := "cs_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	b.checkouts[id] = &checkout{owner: username}
	resp := storefront.CheckoutSession{SessionID: id}
	if !b.OmitCheckoutURL {
		resp.URL = b.Server.URL + "/hosted/" + id
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) confirm(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session_id es requerido"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	username := b.currentUser(r)
	if username == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Las credenciales de autenticación no se proveyeron."})
		return
	}
	co, ok := b.checkouts[body.SessionID]
	if !ok || co.owner != username {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Sesión de pago inválida"})
		return
	}
	if co.confirmed {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Este pago ya fue procesado"})
		return
	}

	profile := b.users[username].profile
	now := time.Now().UTC()
	order := storefront.Order{
		ID:                 b.nextOrder,
		Number:             fmt.Sprintf("ORD-%08X", b.nextOrder),
		ShippingAddress:    profile.Address,
		ShippingCity:       profile.City,
		ShippingPostalCode: profile.PostalCode,
		ShippingPhone:      profile.Phone,
		PaymentMethod:      "stripe",
		PaymentStatus:      storefront.PaymentPaid,
		Total:              decimal.Zero,
		CreatedAt:          now,
		PaidAt:             &now,
	}
	for _, line := range b.userCarts[username] {
		p := b.products[line.productID]
		subtotal := p.FinalPrice().Mul(decimal.NewFromInt(int64(line.quantity)))
		order.Items = append(order.Items, storefront.OrderItem{
			ID:          line.id,
			ProductName: p.Name,
			UnitPrice:   p.FinalPrice(),
			Quantity:    line.quantity,
			Subtotal:    subtotal,
			Discount:    p.Discount,
		})
		order.Total = order.Total.Add(subtotal)
	}
	b.nextOrder++
	co.confirmed = true
	b.userCarts[username] = nil
	b.orders[username] = append(b.orders[username], order)
	writeJSON(w, http.StatusOK, storefront.Confirmation{Message: "Pago confirmado", Order: order})
}

// lines returns the caller's cart lines. Callers must hold b.mu.
func (b *Backend) lines(r *http.Request) []*cartLine {
	if username := b.currentUser(r); username != "" {
		return b.userCarts[username]
	}
	return b.guestCarts[b.sessionID(r)]
}

// setLines replaces the caller's cart lines. Callers must hold b.mu.
func (b *Backend) setLines(r *http.Request, lines []*cartLine) {
	if username := b.currentUser(r); username != "" {
		b.userCarts[username] = lines
		return
	}
	b.guestCarts[b.sessionID(r)] = lines
}

func (b *Backend) renderCart(lines []*cartLine) []storefront.CartItem {
	items := make([]storefront.CartItem, 0, len(lines))
	for _, line := range lines {
		p := withFinal(b.products[line.productID])
		item := storefront.CartItem{ID: line.id, Product: p, Quantity: line.quantity}
		item.Recompute()
		items = append(items, item)
	}
	return items
}

func withFinal(p storefront.Product) storefront.Product {
	final := p.FinalPrice()
	p.ServerFinal = &final
	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
