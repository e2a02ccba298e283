// Package ledgerd is a reference implementation of the ledger service the
// palm terminal talks to. It mirrors the deployed wire surface — including
// the misspelled palm fields and the exact rejection strings — so the client
// can be exercised end-to-end without the production backend. It is a local
// development collaborator, not a hardened deployment.
package ledgerd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"palmpay/ledger"
)

const maxRequestBody = 1 << 20

// Exact rejection strings the deployed service emits; the client classifies
// on them verbatim.
const (
	msgInsufficientBalance = "Insufficient balance"
	msgInvalidPalmCode     = "Invalid palm code"
	msgPalmNotVerified     = "Palm not verified"
)

// Server exposes the ledger HTTP endpoints.
type Server struct {
	store     *Store
	jwtSecret []byte
	tokenTTL  time.Duration
	topupMin  int64
	topupMax  int64
	logger    *slog.Logger
	nowFn     func() time.Time
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithTopupBounds overrides the inclusive top-up range.
func WithTopupBounds(min, max int64) ServerOption {
	return func(s *Server) { s.topupMin, s.topupMax = min, max }
}

// WithTokenTTL overrides the bearer token lifetime.
func WithTokenTTL(ttl time.Duration) ServerOption {
	return func(s *Server) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithNow substitutes the clock; tests pin it.
func WithNow(nowFn func() time.Time) ServerOption {
	return func(s *Server) { s.nowFn = nowFn }
}

func NewServer(store *Store, jwtSecret string, opts ...ServerOption) *Server {
	if store == nil {
		panic("ledgerd: store required")
	}
	secret := []byte(strings.TrimSpace(jwtSecret))
	if len(secret) == 0 {
		panic("ledgerd: jwt secret required")
	}
	s := &Server{
		store:     store,
		jwtSecret: secret,
		tokenTTL:  24 * time.Hour,
		topupMin:  1,
		topupMax:  1000,
		logger:    slog.Default(),
		nowFn:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.Get("/products", s.handleProducts)

	r.Group(func(pr chi.Router) {
		pr.Use(s.authenticate)
		pr.Get("/users/profile", s.handleProfile)
		pr.Post("/users/verify-palm", s.handleVerifyPalm)
		pr.Post("/users/topup", s.handleTopup)
		pr.Post("/orders", s.handleCreateOrder)
		pr.Get("/orders", s.handleListOrders)
		pr.Get("/transactions/order-history", s.handleHistory(txKindOrder))
		pr.Get("/transactions/topup-history", s.handleHistory(txKindTopup))
	})

	return r
}

// --- auth ---

type ctxKey string

const ctxKeyUser ctxKey = "ledgerd.user"

// authenticate resolves the acting user from the bearer token, or — for the
// palm-credential endpoints — from the x-palm-code header when no token is
// present. Header and body palm codes are honored identically further down.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			rec, err := s.userFromToken(token)
			if err != nil {
				s.writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), rec)))
			return
		}
		if code := strings.TrimSpace(r.Header.Get(ledger.HeaderPalmCode)); code != "" {
			rec, err := s.store.UserByPalmCode(code)
			if err != nil {
				s.writeError(w, http.StatusUnauthorized, msgInvalidPalmCode)
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), rec)))
			return
		}
		s.writeError(w, http.StatusUnauthorized, "Missing credentials")
	})
}

func (s *Server) userFromToken(tokenString string) (userRecord, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.nowFn))
	if err != nil || !token.Valid {
		return userRecord{}, fmt.Errorf("parse token: %w", err)
	}
	return s.store.UserByID(claims.Subject)
}

func (s *Server) issueToken(userID string) (string, error) {
	now := s.nowFn()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func withUser(ctx context.Context, rec userRecord) context.Context {
	return context.WithValue(ctx, ctxKeyUser, rec)
}

func requestUser(r *http.Request) userRecord {
	rec, _ := r.Context().Value(ctxKeyUser).(userRecord)
	return rec
}

// --- handlers ---

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req ledger.RegisterParams
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Phone) == "" || strings.TrimSpace(req.Password) == "" {
		s.writeError(w, http.StatusBadRequest, "Phone and password are required")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.internalError(w, err)
		return
	}
	now := s.nowFn().UTC()
	rec := userRecord{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		PalmCode:     strings.TrimSpace(req.PalmCode),
		PalmVerified: strings.TrimSpace(req.PalmCode) != "",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(rec); err != nil {
		if errors.Is(err, ErrPhoneTaken) {
			s.writeError(w, http.StatusConflict, "Phone already registered")
			return
		}
		s.internalError(w, err)
		return
	}
	s.respondAuth(w, rec)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	rec, err := s.store.UserByPhone(strings.TrimSpace(req.Phone))
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "Invalid phone or password")
		return
	}
	if bcrypt.CompareHashAndPassword(rec.PasswordHash, []byte(req.Password)) != nil {
		s.writeError(w, http.StatusUnauthorized, "Invalid phone or password")
		return
	}
	s.respondAuth(w, rec)
}

func (s *Server) respondAuth(w http.ResponseWriter, rec userRecord) {
	token, err := s.issueToken(rec.ID)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ledger.AuthResponse{User: toWire(rec), Token: token})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, toWire(requestUser(r)))
}

func (s *Server) handleVerifyPalm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PalmCode string `json:"plam_code"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	code := strings.TrimSpace(req.PalmCode)
	if code == "" {
		s.writeError(w, http.StatusBadRequest, msgInvalidPalmCode)
		return
	}
	if other, err := s.store.UserByPalmCode(code); err == nil && other.ID != requestUser(r).ID {
		s.writeError(w, http.StatusConflict, "Palm code already in use")
		return
	}
	rec := requestUser(r)
	previous := rec.PalmCode
	rec.PalmCode = code
	rec.PalmVerified = true
	rec.UpdatedAt = s.nowFn().UTC()
	if err := s.store.UpdateUser(rec, previous); err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ledger.VerifyPalmResult{
		Message: "Palm verified successfully",
		User:    toWire(rec),
	})
}

// palmCredential checks the palm code presented with a payment against the
// acting user. Body and header transport are equivalent.
func (s *Server) palmCredential(w http.ResponseWriter, r *http.Request, bodyCode string) (userRecord, bool) {
	rec := requestUser(r)
	code := strings.TrimSpace(r.Header.Get(ledger.HeaderPalmCode))
	if code == "" {
		code = strings.TrimSpace(bodyCode)
	}
	if code == "" {
		s.writeError(w, http.StatusBadRequest, msgInvalidPalmCode)
		return userRecord{}, false
	}
	if !rec.PalmVerified {
		s.writeError(w, http.StatusForbidden, msgPalmNotVerified)
		return userRecord{}, false
	}
	if rec.PalmCode != code {
		s.writeError(w, http.StatusUnauthorized, msgInvalidPalmCode)
		return userRecord{}, false
	}
	return rec, true
}

func (s *Server) handleTopup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount   int64  `json:"amount"`
		PalmCode string `json:"plam_code"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if req.Amount < s.topupMin || req.Amount > s.topupMax {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Amount must be between %d and %d", s.topupMin, s.topupMax))
		return
	}
	rec, ok := s.palmCredential(w, r, req.PalmCode)
	if !ok {
		return
	}
	rec.Balance += req.Amount
	rec.UpdatedAt = s.nowFn().UTC()
	if err := s.store.UpdateUser(rec, rec.PalmCode); err != nil {
		s.internalError(w, err)
		return
	}
	tx := txRecord{
		ID:            uuid.NewString(),
		UserID:        rec.ID,
		Kind:          txKindTopup,
		Amount:        req.Amount,
		PaymentMethod: "palm",
		PaymentStatus: "completed",
		TransactionID: uuid.NewString(),
		CreatedAt:     s.nowFn().UTC(),
	}
	if err := s.store.AppendTransaction(tx); err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ledger.TopupResult{
		Message: "Top-up successful",
		User:    toWire(rec),
	})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ledger.OrderParams
		PalmCode string `json:"plam_code"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if req.Amount <= 0 {
		s.writeError(w, http.StatusBadRequest, "Order amount must be positive")
		return
	}
	rec, ok := s.palmCredential(w, r, req.PalmCode)
	if !ok {
		return
	}
	if rec.Balance < req.Amount {
		s.writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":          msgInsufficientBalance,
			"currentBalance": rec.Balance,
			"requiredAmount": req.Amount,
		})
		return
	}
	rec.Balance -= req.Amount
	rec.UpdatedAt = s.nowFn().UTC()
	if err := s.store.UpdateUser(rec, rec.PalmCode); err != nil {
		s.internalError(w, err)
		return
	}
	tx := txRecord{
		ID:            uuid.NewString(),
		UserID:        rec.ID,
		Kind:          txKindOrder,
		Amount:        req.Amount,
		PaymentMethod: "palm",
		PaymentStatus: "paid",
		TransactionID: uuid.NewString(),
		Items:         req.Items,
		CreatedAt:     s.nowFn().UTC(),
	}
	if err := s.store.AppendTransaction(tx); err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ledger.OrderResult{
		Message: "Order created",
		Order:   txToWire(tx),
	})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	txs, err := s.store.TransactionsByKind(requestUser(r).ID, txKindOrder)
	if err != nil {
		s.internalError(w, err)
		return
	}
	orders := make([]ledger.Order, 0, len(txs))
	for _, tx := range txs {
		orders = append(orders, txToWire(tx))
	}
	s.writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleHistory(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txs, err := s.store.TransactionsByKind(requestUser(r).ID, kind)
		if err != nil {
			s.internalError(w, err)
			return
		}
		wire := make([]ledger.Order, 0, len(txs))
		for _, tx := range txs {
			wire = append(wire, txToWire(tx))
		}
		s.writeJSON(w, http.StatusOK, ledger.HistoryResult{
			Message:      "OK",
			Total:        len(wire),
			Transactions: wire,
		})
	}
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, catalog)
}

// --- wire mapping ---

func toWire(rec userRecord) ledger.User {
	u := ledger.User{
		ID:           rec.ID,
		FirstName:    rec.FirstName,
		LastName:     rec.LastName,
		Phone:        rec.Phone,
		PalmCode:     rec.PalmCode,
		Amount:       strconv.FormatInt(rec.Balance, 10),
		PalmVerified: rec.PalmVerified,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
	}
	if !rec.UpdatedAt.IsZero() {
		u.UpdatedAt = rec.UpdatedAt.Format(time.RFC3339)
	}
	return u
}

func txToWire(tx txRecord) ledger.Order {
	return ledger.Order{
		ID:            tx.ID,
		UserID:        tx.UserID,
		Amount:        strconv.FormatInt(tx.Amount, 10),
		PaymentMethod: tx.PaymentMethod,
		PaymentStatus: tx.PaymentStatus,
		TransactionID: tx.TransactionID,
		Items:         tx.Items,
		CreatedAt:     tx.CreatedAt.Format(time.RFC3339),
	}
}

// --- plumbing ---

func (s *Server) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(out); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write response", slog.Any("error", err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error("internal error", slog.Any("error", err))
	s.writeError(w, http.StatusInternalServerError, "Internal server error")
}
