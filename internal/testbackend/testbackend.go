package testbackend

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/tamasbrandstadter/teller/internal/bankapi"
	"github.com/tamasbrandstadter/teller/internal/web"
)

const (
	Username = "admin"
	Password = "secret"

	InsufficientFunds = "Fondos insuficientes"
	AccountNotFound   = "Cuenta no encontrada"
)

var (
	SigningKey = []byte("testbackend")
	TestTime   = time.Now().UTC().Truncate(time.Millisecond)
	Operator   = bankapi.Profile{ID: "adm-1", Name: "Admin Teller", Email: "admin@banco.gt", Role: "ADMIN"}
)

type forced struct {
	code    int
	message string
}

type Backend struct {
	mu          sync.Mutex
	accounts    []bankapi.Account
	users       []bankapi.User
	orgs        []bankapi.Organization
	favorites   map[string][]bankapi.Favorite
	history     []bankapi.HistoryEntry
	hits        map[string]int
	failures    map[string][]forced
	delay       time.Duration
	submissions map[string]bankapi.Confirmation
	lastPayload bankapi.TransactionPayload
	lastIdemKey string
	TokenTTL    time.Duration
	handler     http.Handler
}

func New(accounts ...bankapi.Account) *Backend {
	b := &Backend{
		accounts:    accounts,
		favorites:   make(map[string][]bankapi.Favorite),
		hits:        make(map[string]int),
		failures:    make(map[string][]forced),
		submissions: make(map[string]bankapi.Confirmation),
		TokenTTL:    time.Hour,
	}

	router := httprouter.New()
	b.route(router, http.MethodPost, "/auth/login", b.login)
	b.route(router, http.MethodGet, "/accounts", b.listAccounts)
	b.route(router, http.MethodPost, "/accounts", b.createAccount)
	b.route(router, http.MethodGet, "/accounts/:number/transactions", b.listHistory)
	b.route(router, http.MethodGet, "/users", b.listUsers)
	b.route(router, http.MethodPost, "/users", b.createUser)
	b.route(router, http.MethodGet, "/organizations", b.listOrganizations)
	b.route(router, http.MethodPost, "/organizations", b.createOrganization)
	b.route(router, http.MethodPost, "/transactions", b.submit)
	b.route(router, http.MethodGet, "/users/:id/favorites", b.listFavorites)
	b.route(router, http.MethodPost, "/users/:id/favorites", b.addFavorite)
	b.route(router, http.MethodDelete, "/users/:id/favorites/:alias", b.deleteFavorite)

	b.handler = router
	return b
}

func DefaultAccounts() []bankapi.Account {
	return []bankapi.Account{
		{AccountNumber: "1001", AccountType: "SAVINGS", Balance: 500, OwnerID: "usr-1", OwnerName: "Ana López", OwnerKind: "USER", Active: true},
		{AccountNumber: "1002", AccountType: "MONETARIA", Balance: 100, OwnerID: "org-1", OwnerName: "Tienda El Sol", OwnerKind: "ORGANIZATION", Active: true},
		{AccountNumber: "1003", AccountType: "INVESTMENT", Balance: 1000, OwnerID: "usr-1", OwnerName: "Ana López", OwnerKind: "USER", Active: true},
	}
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.handler.ServeHTTP(w, r)
}

func (b *Backend) route(router *httprouter.Router, method, path string, h http.HandlerFunc) {
	key := method + " " + path
	router.HandlerFunc(method, path, func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hits[key]++
		delay := b.delay
		var f *forced
		if q := b.failures[key]; len(q) > 0 {
			f = &q[0]
			b.failures[key] = q[1:]
		}
		b.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if f != nil {
			if f.message == "" {
				w.WriteHeader(f.code)
				return
			}
			web.RespondError(w, r, f.code, errors.New(f.message))
			return
		}

		h(w, r)
	})
}

func (b *Backend) Hits(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[route]
}

func (b *Backend) FailNext(route string, code int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = append(b.failures[route], forced{code: code, message: message})
}

func (b *Backend) LastSubmission() (bankapi.TransactionPayload, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastPayload, b.lastIdemKey
}

func (b *Backend) SetDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = d
}

func (b *Backend) Account(number string) (bankapi.Account, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.find(number); i >= 0 {
		return b.accounts[i], true
	}
	return bankapi.Account{}, false
}

func (b *Backend) AddUsers(us ...bankapi.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users = append(b.users, us...)
}

func (b *Backend) AddOrganizations(orgs ...bankapi.Organization) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orgs = append(b.orgs, orgs...)
}

func (b *Backend) find(number string) int {
	for i := range b.accounts {
		if b.accounts[i].AccountNumber == number {
			return i
		}
	}
	return -1
}

func Token(ttl time.Duration) string {
	claims := jwt.RegisteredClaims{
		Subject:   Operator.ID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(SigningKey)
	if err != nil {
		panic(err)
	}
	return s
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var creds bankapi.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		web.RespondError(w, r, http.StatusBadRequest, errors.New("invalid request payload, unable to parse"))
		return
	}

	if creds.Username != Username || creds.Password != Password {
		web.RespondError(w, r, http.StatusUnauthorized, errors.New("Credenciales inválidas"))
		return
	}

	web.Respond(w, r, http.StatusOK, bankapi.LoginResult{Token: Token(b.TokenTTL), User: Operator})
}

func (b *Backend) listAccounts(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	accs := append(make([]bankapi.Account, 0, len(b.accounts)), b.accounts...)
	b.mu.Unlock()

	web.Respond(w, r, http.StatusOK, accs)
}

func (b *Backend) createAccount(w http.ResponseWriter, r *http.Request) {
	var req bankapi.AccountCreation
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.RespondError(w, r, http.StatusBadRequest, errors.New("invalid request payload, unable to parse"))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	acc := bankapi.Account{
		AccountNumber: fmt.Sprintf("%d", 1001+len(b.accounts)),
		AccountType:   req.AccountType,
		Balance:       req.InitialDeposit,
		OwnerID:       req.OwnerID,
		OwnerKind:     req.OwnerKind,
		Active:        true,
	}
	b.accounts = append(b.accounts, acc)

	web.Respond(w, r, http.StatusCreated, acc)
}

func (b *Backend) listHistory(w http.ResponseWriter, r *http.Request) {
	number := httprouter.ParamsFromContext(r.Context()).ByName("number")

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.find(number) < 0 {
		web.RespondError(w, r, http.StatusNotFound, errors.New(AccountNotFound))
		return
	}

	entries := make([]bankapi.HistoryEntry, 0)
	for _, h := range b.history {
		if h.SourceAccount == number || h.DestinationAccount == number {
			entries = append(entries, h)
		}
	}

	web.Respond(w, r, http.StatusOK, entries)
}

func (b *Backend) listUsers(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	us := append(make([]bankapi.User, 0, len(b.users)), b.users...)
	b.mu.Unlock()

	web.Respond(w, r, http.StatusOK, us)
}

func (b *Backend) createUser(w http.ResponseWriter, r *http.Request) {
	var req bankapi.UserRegistration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.RespondError(w, r, http.StatusBadRequest, errors.New("invalid request payload, unable to parse"))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, u := range b.users {
		if u.DPI == req.DPI {
			web.RespondError(w, r, http.StatusConflict, fmt.Errorf("El DPI %s ya está registrado", req.DPI))
			return
		}
	}

	u := bankapi.User{
		ID:        fmt.Sprintf("usr-%d", len(b.users)+1),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		DPI:       req.DPI,
		CreatedAt: TestTime,
	}
	b.users = append(b.users, u)

	web.Respond(w, r, http.StatusCreated, u)
}

func (b *Backend) listOrganizations(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	orgs := append(make([]bankapi.Organization, 0, len(b.orgs)), b.orgs...)
	b.mu.Unlock()

	web.Respond(w, r, http.StatusOK, orgs)
}

func (b *Backend) createOrganization(w http.ResponseWriter, r *http.Request) {
	var req bankapi.OrganizationRegistration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.RespondError(w, r, http.StatusBadRequest, errors.New("invalid request payload, unable to parse"))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	o := bankapi.Organization{
		ID:        fmt.Sprintf("org-%d", len(b.orgs)+1),
		Name:      req.Name,
		NIT:       req.NIT,
		Email:     req.Email,
		Phone:     req.Phone,
		CreatedAt: TestTime,
	}
	b.orgs = append(b.orgs, o)

	web.Respond(w, r, http.StatusCreated, o)
}

func (b *Backend) submit(w http.ResponseWriter, r *http.Request) {
	var p bankapi.TransactionPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		web.RespondError(w, r, http.StatusBadRequest, errors.New("invalid request payload, unable to parse"))
		return
	}

	key := r.Header.Get("Idempotency-Key")

	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastPayload = p
	b.lastIdemKey = key

	if conf, ok := b.submissions[key]; ok && key != "" {
		web.Respond(w, r, http.StatusOK, conf)
		return
	}

	src := b.find(p.SourceAccount)
	if src < 0 {
		web.RespondError(w, r, http.StatusNotFound, errors.New(AccountNotFound))
		return
	}

	amount := math.Round(p.Amount*100) / 100

	switch p.Type {
	case "DEPOSIT":
		b.accounts[src].Balance += amount
	case "WITHDRAWAL":
		if b.accounts[src].Balance < amount {
			web.RespondError(w, r, http.StatusUnprocessableEntity, errors.New(InsufficientFunds))
			return
		}
		b.accounts[src].Balance -= amount
	case "TRANSFER":
		dst := b.find(p.DestinationAccount)
		if dst < 0 {
			web.RespondError(w, r, http.StatusNotFound, errors.New(AccountNotFound))
			return
		}
		if b.accounts[src].Balance < amount {
			web.RespondError(w, r, http.StatusUnprocessableEntity, errors.New(InsufficientFunds))
			return
		}
		b.accounts[src].Balance -= amount
		b.accounts[dst].Balance += amount
	default:
		web.RespondError(w, r, http.StatusBadRequest, fmt.Errorf("unknown transaction type %q", p.Type))
		return
	}

	conf := bankapi.Confirmation{
		ID:        uuid.New().String(),
		Type:      p.Type,
		Amount:    amount,
		CreatedAt: TestTime,
	}
	b.history = append(b.history, bankapi.HistoryEntry{
		ID:                 conf.ID,
		Type:               p.Type,
		SourceAccount:      p.SourceAccount,
		DestinationAccount: p.DestinationAccount,
		Amount:             amount,
		CreatedAt:          conf.CreatedAt,
	})
	if key != "" {
		b.submissions[key] = conf
	}

	web.Respond(w, r, http.StatusCreated, conf)
}

func (b *Backend) listFavorites(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")

	b.mu.Lock()
	favs := append(make([]bankapi.Favorite, 0), b.favorites[id]...)
	b.mu.Unlock()

	web.Respond(w, r, http.StatusOK, favs)
}

func (b *Backend) addFavorite(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")

	var f bankapi.Favorite
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		web.RespondError(w, r, http.StatusBadRequest, errors.New("invalid request payload, unable to parse"))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.favorites[id] {
		if existing.Alias == f.Alias {
			web.RespondError(w, r, http.StatusConflict, fmt.Errorf("El alias %s ya existe", f.Alias))
			return
		}
	}
	b.favorites[id] = append(b.favorites[id], f)

	web.Respond(w, r, http.StatusCreated, f)
}

func (b *Backend) deleteFavorite(w http.ResponseWriter, r *http.Request) {
	params := httprouter.ParamsFromContext(r.Context())
	id, alias := params.ByName("id"), params.ByName("alias")

	b.mu.Lock()
	defer b.mu.Unlock()

	favs := b.favorites[id]
	for i := range favs {
		if favs[i].Alias == alias {
			b.favorites[id] = append(favs[:i], favs[i+1:]...)
			web.Respond(w, r, http.StatusNoContent, nil)
			return
		}
	}

	web.RespondError(w, r, http.StatusNotFound, fmt.Errorf("El alias %s no existe", alias))
}
