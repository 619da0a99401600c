package devserver

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/five82/lector/internal/biblio"
)

const (
	ctxUserID = "userId"
	ctxAdmin  = "admin"
	ctxToken  = "token"
)

// Server is an in-memory library backend.
type Server struct {
	store   *store
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
	logging bool

	mu      sync.Mutex
	revoked map[string]bool
}

// Option configures a Server.
type Option func(*Server)

// WithSecret sets the HS256 signing key. A random key is used otherwise.
func WithSecret(secret string) Option {
	return func(s *Server) {
		if secret != "" {
			s.secret = []byte(secret)
		}
	}
}

// WithTokenTTL sets how long issued tokens stay valid.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Server) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the clock used for token expiry and loan dates.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBcryptCost sets the password hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Server) { s.store.cost = cost }
}

// WithRequestLog enables gin's request logger.
func WithRequestLog() Option {
	return func(s *Server) { s.logging = true }
}

// New builds an empty server. Call Seed to add the admin account and samples.
func New(opts ...Option) *Server {
	s := &Server{
		ttl:     12 * time.Hour,
		now:     time.Now,
		revoked: map[string]bool{},
	}
	s.store = newStore(bcrypt.DefaultCost, func() time.Time { return s.now() })
	for _, opt := range opts {
		opt(s)
	}
	if len(s.secret) == 0 {
		s.secret = make([]byte, 32)
		if _, err := rand.Read(s.secret); err != nil {
			panic(fmt.Sprintf("devserver: generate secret: %v", err))
		}
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	if s.logging {
		r.Use(gin.Logger())
	}

	r.POST("/auth/login", s.login)

	api := r.Group("/", s.requireAuth())
	api.POST("/auth/logout", s.logout)

	api.GET("/usuaris", s.requireAdmin(), s.listUsers)
	api.GET("/usuaris/nif/:nif", s.requireAdmin(), s.getUserByNif)
	api.GET("/usuaris/:id", s.getUser)
	api.POST("/usuaris", s.requireAdmin(), s.createUser)
	api.PUT("/usuaris/:id", s.updateUser)
	api.DELETE("/usuaris/:id", s.requireAdmin(), s.deleteUser)

	api.GET("/autors", s.listAuthors)
	api.POST("/autors", s.requireAdmin(), s.saveAuthor)
	api.PUT("/autors/:id", s.requireAdmin(), s.saveAuthor)
	api.DELETE("/autors/:id", s.requireAdmin(), s.deleteAuthor)

	api.GET("/llibres", s.listBooks)
	api.POST("/llibres", s.requireAdmin(), s.saveBook)
	api.PUT("/llibres/:id", s.requireAdmin(), s.saveBook)
	api.DELETE("/llibres/:id", s.requireAdmin(), s.deleteBook)

	api.GET("/exemplars", s.listExemplars)
	api.GET("/exemplars/lliures", s.searchFree)
	api.GET("/exemplars/:id", s.getExemplar)
	api.POST("/exemplars", s.requireAdmin(), s.saveExemplar)
	api.PUT("/exemplars/:id", s.requireAdmin(), s.saveExemplar)
	api.DELETE("/exemplars/:id", s.requireAdmin(), s.deleteExemplar)

	api.GET("/prestecs", s.listLoans(false))
	api.GET("/prestecs/actius", s.listLoans(true))
	api.POST("/prestecs", s.requireAdmin(), s.createLoan)
	api.POST("/prestecs/:id/retornar", s.returnLoan)

	api.GET("/grups", s.listGroups)
	api.POST("/grups", s.requireAdmin(), s.createGroup)
	api.DELETE("/grups/:id", s.requireAdmin(), s.deleteGroup)
	api.GET("/grups/:id/membres", s.listMembers)
	api.POST("/grups/:id/membres/:userId", s.setMember(true))
	api.DELETE("/grups/:id/membres/:userId", s.setMember(false))

	api.GET("/horaris", s.listSchedules)
	api.POST("/horaris", s.requireAdmin(), s.createSchedule)

	return r
}

// ---- auth ----

func (s *Server) issueToken(u biblio.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"id":    u.ID,
		"nick":  u.Nick,
		"admin": u.Admin,
		"iat":   now.Unix(),
		"exp":   now.Add(s.ttl).Unix(),
		"jti":   uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := strings.TrimSpace(ctx.GetHeader("Authorization"))
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Cal iniciar sessió"})
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
		if err != nil || !token.Valid {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Sessió invàlida o caducada"})
			return
		}
		s.mu.Lock()
		revoked := s.revoked[raw]
		s.mu.Unlock()
		if revoked {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Sessió tancada"})
			return
		}

		id, _ := claims["id"].(float64)
		user, err := s.store.user(int64(id))
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "L'usuari ja no existeix"})
			return
		}
		ctx.Set(ctxUserID, user.ID)
		ctx.Set(ctxAdmin, user.Admin)
		ctx.Set(ctxToken, raw)
		ctx.Next()
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !ctx.GetBool(ctxAdmin) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Cal ser administrador"})
			return
		}
		ctx.Next()
	}
}

func (s *Server) login(ctx *gin.Context) {
	var req biblio.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := s.store.authenticate(req.Nick, req.Password)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Usuari o contrasenya incorrectes"})
		return
	}
	token, err := s.issueToken(user)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, biblio.LoginResponse{Token: token, User: user})
}

func (s *Server) logout(ctx *gin.Context) {
	s.mu.Lock()
	s.revoked[ctx.GetString(ctxToken)] = true
	s.mu.Unlock()
	ctx.JSON(http.StatusOK, biblio.MessageResponse{Message: "Sessió tancada correctament"})
}

// ---- helpers ----

func paramID(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Identificador invàlid"})
		return 0, false
	}
	return id, true
}

func queryUserID(ctx *gin.Context) (int64, bool) {
	raw := ctx.Query("usuariId")
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "usuariId invàlid"})
		return 0, false
	}
	return id, true
}

// writeError maps store errors to status codes.
func writeError(ctx *gin.Context, err error, notFound string) {
	var conflict conflictError
	switch {
	case errors.Is(err, errNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.Is(err, errAlreadyLent):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, errNotOwner):
		ctx.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, errLoanReturned):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &conflict):
		ctx.JSON(http.StatusConflict, gin.H{"error": conflict.msg})
	default:
		log.Printf("devserver: %s %s: %v", ctx.Request.Method, ctx.Request.URL.Path, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func deleted(ctx *gin.Context, what string) {
	ctx.JSON(http.StatusOK, biblio.MessageResponse{Message: what + " eliminat correctament"})
}
