// Package mockserver is an in-process implementation of the remote review
// service, used by serve-mock for local development and by tests as a real
// HTTP endpoint.
package mockserver

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/hrygo/reviewflow/client"
)

// tokenTTL bounds how long an issued session token is accepted.
const tokenTTL = 24 * time.Hour

type account struct {
	user         client.User
	passwordHash []byte
}

// Server holds the in-memory state behind the review API.
type Server struct {
	e         *echo.Echo
	logger    *slog.Logger
	suggester Suggester
	limiter   *RateLimiter
	secret    []byte // HMAC key for session tokens, fresh per process

	mu       sync.Mutex
	accounts map[string]*account // keyed by email
	products map[string]client.Product
	reviews  map[string]*client.Review
}

// New creates a server with seeded products and the given suggester.
func New(suggester Suggester, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if suggester == nil {
		suggester = NewTemplateSuggester()
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic(fmt.Sprintf("mockserver: generate token secret: %v", err))
	}
	s := &Server{
		logger:    logger,
		suggester: suggester,
		limiter:   NewRateLimiter(DefaultRatePolicy()),
		secret:    secret,
		accounts:  make(map[string]*account),
		products:  make(map[string]client.Product),
		reviews:   make(map[string]*client.Review),
	}
	s.seedProducts()
	s.e = s.buildEcho()
	return s
}

func (s *Server) seedProducts() {
	for _, p := range []client.Product{
		{ID: "p-headphones", Name: "Aura Headphones", Category: "Audio"},
		{ID: "p-keyboard", Name: "Tactile Pro Keyboard", Category: "Peripherals"},
		{ID: "p-lamp", Name: "Lumen Desk Lamp", Category: "Home Office"},
	} {
		s.products[p.ID] = p
	}
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(s.rateLimitMiddleware)

	api := e.Group("/api/v1")
	api.POST("/auth/login", s.handleLogin)
	api.POST("/auth/register", s.handleRegister)

	authed := api.Group("", s.authMiddleware)
	authed.GET("/products", s.handleListProducts)
	authed.GET("/reviews", s.handleListReviews)
	authed.POST("/reviews", s.handleCreateReview)
	authed.GET("/reviews/:id", s.handleGetReview)
	authed.POST("/reviews/:id/responses", s.handleCreateResponse)
	authed.GET("/reviews/:id/suggestion", s.handleSuggestion)

	return e
}

// Handler exposes the server as an http.Handler for httptest.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("mock review service listening", "addr", addr)
	return s.e.Start(addr)
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// SeedAgent registers an agent account directly, for development and tests.
func (s *Server) SeedAgent(email, password, name string) client.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	user := client.User{ID: "u-" + shortuuid.New(), Email: email, Name: name, Role: client.RoleAgent}
	s.mu.Lock()
	s.accounts[email] = &account{user: user, passwordHash: hash}
	s.mu.Unlock()
	return user
}

func (s *Server) rateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.limiter.Allow(c.RealIP()) {
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		}
		return next(c)
	}
}

const userContextKey = "mockserver.user"

// sessionClaims is the signed token payload; the user record is carried in
// the claims so validation needs no server-side token state.
type sessionClaims struct {
	jwt.RegisteredClaims
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  client.Role `json:"role"`
}

func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}

		claims := &sessionClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.secret, nil
		})
		if err != nil || !parsed.Valid || claims.Subject == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set(userContextKey, client.User{
			ID:    claims.Subject,
			Email: claims.Email,
			Name:  claims.Name,
			Role:  claims.Role,
		})
		return next(c)
	}
}

func currentUser(c echo.Context) client.User {
	user, _ := c.Get(userContextKey).(client.User)
	return user
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	s.mu.Lock()
	acct, ok := s.accounts[req.Email]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	token, err := s.issueToken(acct.user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}
	s.logger.Debug("login", "user_id", acct.user.ID)
	return c.JSON(http.StatusOK, client.AuthResponse{Token: token, User: &acct.user})
}

func (s *Server) handleRegister(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and name are required")
	}
	if len(req.Password) < 6 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to hash password")
	}

	user := client.User{ID: "u-" + shortuuid.New(), Email: req.Email, Name: req.Name, Role: client.RoleCustomer}

	s.mu.Lock()
	if _, exists := s.accounts[req.Email]; exists {
		s.mu.Unlock()
		return echo.NewHTTPError(http.StatusConflict, "email already exists")
	}
	s.accounts[req.Email] = &account{user: user, passwordHash: hash}
	s.mu.Unlock()

	token, err := s.issueToken(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}
	s.logger.Debug("registered", "user_id", user.ID)
	return c.JSON(http.StatusOK, client.AuthResponse{Token: token, User: &user})
}

func (s *Server) issueToken(user client.User) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        shortuuid.New(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) handleListProducts(c echo.Context) error {
	s.mu.Lock()
	out := make([]client.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	s.mu.Unlock()
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleListReviews(c echo.Context) error {
	s.mu.Lock()
	out := make([]client.Review, 0, len(s.reviews))
	for _, r := range s.reviews {
		out = append(out, *r)
	}
	s.mu.Unlock()
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetReview(c echo.Context) error {
	s.mu.Lock()
	review, ok := s.reviews[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "review not found")
	}
	return c.JSON(http.StatusOK, review)
}

func (s *Server) handleCreateReview(c echo.Context) error {
	var input client.ReviewInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(input.Content) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "review content is required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return echo.NewHTTPError(http.StatusBadRequest, "rating must be between 1 and 5")
	}

	s.mu.Lock()
	product, ok := s.products[input.ProductID]
	s.mu.Unlock()
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown product %q", input.ProductID))
	}

	review := &client.Review{
		ID:        "r-" + shortuuid.New(),
		Rating:    input.Rating,
		Content:   strings.TrimSpace(input.Content),
		Sentiment: scoreSentiment(input.Content, input.Rating),
		Status:    "PUBLISHED",
		CreatedAt: time.Now().UTC(),
		Product:   product,
		Responses: []client.Response{},
	}

	s.mu.Lock()
	s.reviews[review.ID] = review
	s.mu.Unlock()

	s.logger.Info("review created", "review_id", review.ID, "user_id", currentUser(c).ID, "sentiment", review.Sentiment)
	return c.JSON(http.StatusOK, review)
}

func (s *Server) handleCreateResponse(c echo.Context) error {
	user := currentUser(c)
	if user.Role != client.RoleAgent && user.Role != client.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "only agents can respond to reviews")
	}

	var input client.ResponseInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(input.Content) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "response content is required")
	}
	if input.Priority == "" {
		input.Priority = client.PriorityNormal
	}

	s.mu.Lock()
	review, ok := s.reviews[c.Param("id")]
	if !ok {
		s.mu.Unlock()
		return echo.NewHTTPError(http.StatusNotFound, "review not found")
	}
	response := client.Response{
		ID:        "resp-" + shortuuid.New(),
		Content:   strings.TrimSpace(input.Content),
		Priority:  input.Priority,
		Status:    "PUBLISHED",
		CreatedAt: time.Now().UTC(),
	}
	response.Agent.Name = user.Name
	review.Responses = append(review.Responses, response)
	s.mu.Unlock()

	s.logger.Info("response created", "review_id", review.ID, "agent", user.Name)
	return c.JSON(http.StatusOK, response)
}

func (s *Server) handleSuggestion(c echo.Context) error {
	s.mu.Lock()
	review, ok := s.reviews[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "review not found")
	}

	suggestion, err := s.suggester.Suggest(c.Request().Context(), review)
	if err != nil {
		s.logger.Error("suggestion generation failed", "review_id", review.ID, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "failed to generate suggestion")
	}
	return c.JSON(http.StatusOK, client.Suggestion{Suggestion: suggestion})
}

// scoreSentiment is a crude keyword score in [-1, 1]; the real platform
// treats sentiment as an opaque remote capability.
func scoreSentiment(content string, rating int) float64 {
	lowered := strings.ToLower(content)
	score := float64(rating-3) / 2

	for _, w := range []string{"love", "great", "excellent", "perfect", "amazing"} {
		if strings.Contains(lowered, w) {
			score += 0.2
		}
	}
	for _, w := range []string{"hate", "terrible", "awful", "broken", "refund"} {
		if strings.Contains(lowered, w) {
			score -= 0.2
		}
	}

	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}
