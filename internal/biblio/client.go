package biblio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// API is the full surface of the library backend used by the view-models.
// It is implemented by *Client; tests may substitute their own.
type API interface {
	Login(ctx context.Context, nick, password string) (*LoginResponse, error)
	Logout(ctx context.Context) (string, error)

	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByNif(ctx context.Context, nif string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)
	UpdateUser(ctx context.Context, id int64, req UpdateUserRequest) (*User, error)
	DeleteUser(ctx context.Context, id int64) error

	ListBooks(ctx context.Context) ([]Book, error)
	CreateBook(ctx context.Context, req BookRequest) (*Book, error)
	UpdateBook(ctx context.Context, id int64, req BookRequest) (*Book, error)
	DeleteBook(ctx context.Context, id int64) error

	ListAuthors(ctx context.Context) ([]Author, error)
	CreateAuthor(ctx context.Context, req AuthorRequest) (*Author, error)
	UpdateAuthor(ctx context.Context, id int64, req AuthorRequest) (*Author, error)
	DeleteAuthor(ctx context.Context, id int64) error

	ListExemplars(ctx context.Context) ([]Exemplar, error)
	GetExemplar(ctx context.Context, id int64) (*Exemplar, error)
	SearchFreeExemplars(ctx context.Context, title, author string) ([]Exemplar, error)
	CreateExemplar(ctx context.Context, req ExemplarRequest) (*Exemplar, error)
	UpdateExemplar(ctx context.Context, id int64, req ExemplarRequest) (*Exemplar, error)
	DeleteExemplar(ctx context.Context, id int64) error

	ListActiveLoans(ctx context.Context, userID int64) ([]Loan, error)
	ListAllLoans(ctx context.Context, userID int64) ([]Loan, error)
	CreateLoan(ctx context.Context, req CreateLoanRequest) (*Loan, error)
	ReturnLoan(ctx context.Context, loanID int64) (string, error)

	ListGroups(ctx context.Context) ([]Group, error)
	CreateGroup(ctx context.Context, req GroupRequest) (*Group, error)
	DeleteGroup(ctx context.Context, id int64) error
	AddMember(ctx context.Context, groupID, userID int64) error
	ListMembers(ctx context.Context, groupID int64) ([]User, error)
	RemoveMember(ctx context.Context, groupID, userID int64) error

	ListSchedules(ctx context.Context) ([]Schedule, error)
	CreateSchedule(ctx context.Context, req ScheduleRequest) (*Schedule, error)
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// TokenSource yields the bearer token for outgoing calls. An empty string
// means no Authorization header is sent.
type TokenSource interface {
	Get() string
}

// TokenExpirer is implemented by token sources that want to drop a token the
// backend answered 401 for. Login failures are not reported.
type TokenExpirer interface {
	Expire(token string)
}

// Client talks to the library REST backend.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	tokens    TokenSource
	requestID func() string
}

const (
	loginPath        = "/auth/login"
	defaultBaseURL   = "http://127.0.0.1:8080"
	defaultUserAgent = "lector/0.1"
	requestTimeout   = 10 * time.Second
)

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout of the underlying http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTokenSource attaches the session whose token is sent as a bearer.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient builds a Client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
		requestID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized backend address.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// ---- auth ----

// Login exchanges credentials for a bearer token and the user's profile.
func (c *Client) Login(ctx context.Context, nick, password string) (*LoginResponse, error) {
	var payload LoginResponse
	if err := c.do(ctx, http.MethodPost, loginPath, nil, LoginRequest{Nick: nick, Password: password}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Logout invalidates the current token server-side.
func (c *Client) Logout(ctx context.Context) (string, error) {
	var payload MessageResponse
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, &payload); err != nil {
		return "", err
	}
	return payload.Message, nil
}

// ---- users ----

func (c *Client) GetUser(ctx context.Context, id int64) (*User, error) {
	var payload User
	if err := c.do(ctx, http.MethodGet, "/usuaris/"+idPath(id), nil, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) GetUserByNif(ctx context.Context, nif string) (*User, error) {
	nif = strings.TrimSpace(nif)
	if nif == "" {
		return nil, fmt.Errorf("nif required")
	}
	var payload User
	if err := c.do(ctx, http.MethodGet, "/usuaris/nif/"+url.PathEscape(nif), nil, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var payload []User
	if err := c.do(ctx, http.MethodGet, "/usuaris", nil, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	var payload User
	if err := c.do(ctx, http.MethodPost, "/usuaris", nil, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) UpdateUser(ctx context.Context, id int64, req UpdateUserRequest) (*User, error) {
	var payload User
	if err := c.do(ctx, http.MethodPut, "/usuaris/"+idPath(id), nil, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/usuaris/"+idPath(id), nil, nil, nil)
}

// ---- catalog ----

func (c *Client) ListBooks(ctx context.Context) ([]Book, error) {
	var payload []Book
	if err := c.do(ctx, http.MethodGet, "/llibres", nil, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) CreateBook(ctx context.Context, req BookRequest) (*Book, error) {
	var payload Book
	if err := c.do(ctx, http.MethodPost, "/llibres", nil, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) UpdateBook(ctx context.Context, id int64, req BookRequest) (*Book, error) {
	var payload Book
	if err := c.do(ctx, http.MethodPut, "/llibres/"+idPath(id), nil, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) DeleteBook(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/llibres/"+idPath(id), nil, nil, nil)
}

func (c *Client) ListAuthors(ctx context.Context) ([]Author, error) {
	var payload []Author
	if err := c.do(ctx, http.MethodGet, "/autors", nil, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) CreateAuthor(ctx context.Context, req AuthorRequest) (*Author, error) {
	var payload Author
	if err := c.do(ctx, http.MethodPost, "/autors", nil, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) UpdateAuthor(ctx context.Context, id int64, req AuthorRequest) (*Author, error) {
	var payload Author
	if err := c.do(ctx, http.MethodPut, "/autors/"+idPath(id), nil, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) DeleteAuthor(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/autors/"+idPath(id), nil, nil, nil)
}

func (c *Client) ListExemplars(ctx context.Context) ([]Exemplar, error) {
	var payload []Exemplar
	if err := c.do(ctx, http.MethodGet, "/exemplars", nil, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) GetExemplar(ctx context.Context, id int64) (*Exemplar, error) {
	var payload Exemplar
	if err := c.do(ctx, http.MethodGet, "/exemplars/"+idPath(id), nil, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SearchFreeExemplars lists free copies, optionally filtered by title and author.
func (c *Client) SearchFreeExemplars(ctx context.Context, title, author string) ([]Exemplar, error) {
	values := url.Values{}
	if t := strings.TrimSpace(title); t != "" {
		values.Set("titol", t)
	}
	if a := strings.TrimSpace(author); a != "" {
		values.Set("autor", a)
	}
	var payload []Exemplar
	if err := c.do(ctx, http.MethodGet, "/exemplars/lliures", values, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) CreateExemplar(ctx context.Context, req ExemplarRequest) (*Exemplar, error) {
	var payload Exemplar
	if err := c.do(ctx, http.MethodPost, "/exemplars", nil, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) UpdateExemplar(ctx context.Context, id int64, req ExemplarRequest) (*Exemplar, error) {
	var payload Exemplar
	if err := c.do(ctx, http.MethodPut, "/exemplars/"+idPath(id), nil, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) DeleteExemplar(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/exemplars/"+idPath(id), nil, nil, nil)
}

// ---- loans ----

// ListActiveLoans returns loans without a return date. userID <= 0 lists all users.
func (c *Client) ListActiveLoans(ctx context.Context, userID int64) ([]Loan, error) {
	var payload []Loan
	if err := c.do(ctx, http.MethodGet, "/prestecs/actius", userQuery(userID), nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// ListAllLoans returns the loan history. userID <= 0 lists all users.
func (c *Client) ListAllLoans(ctx context.Context, userID int64) ([]Loan, error) {
	var payload []Loan
	if err := c.do(ctx, http.MethodGet, "/prestecs", userQuery(userID), nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) CreateLoan(ctx context.Context, req CreateLoanRequest) (*Loan, error) {
	var payload Loan
	if err := c.do(ctx, http.MethodPost, "/prestecs", nil, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ReturnLoan closes the loan and returns the server's confirmation message.
func (c *Client) ReturnLoan(ctx context.Context, loanID int64) (string, error) {
	var payload MessageResponse
	if err := c.do(ctx, http.MethodPost, "/prestecs/"+idPath(loanID)+"/retornar", nil, nil, &payload); err != nil {
		return "", err
	}
	return payload.Message, nil
}

// ---- groups ----

func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	var payload []Group
	if err := c.do(ctx, http.MethodGet, "/grups", nil, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) CreateGroup(ctx context.Context, req GroupRequest) (*Group, error) {
	var payload Group
	if err := c.do(ctx, http.MethodPost, "/grups", nil, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) DeleteGroup(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/grups/"+idPath(id), nil, nil, nil)
}

func (c *Client) AddMember(ctx context.Context, groupID, userID int64) error {
	return c.do(ctx, http.MethodPost, "/grups/"+idPath(groupID)+"/membres/"+idPath(userID), nil, nil, nil)
}

func (c *Client) ListMembers(ctx context.Context, groupID int64) ([]User, error) {
	var payload []User
	if err := c.do(ctx, http.MethodGet, "/grups/"+idPath(groupID)+"/membres", nil, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) RemoveMember(ctx context.Context, groupID, userID int64) error {
	return c.do(ctx, http.MethodDelete, "/grups/"+idPath(groupID)+"/membres/"+idPath(userID), nil, nil, nil)
}

func (c *Client) ListSchedules(ctx context.Context) ([]Schedule, error) {
	var payload []Schedule
	if err := c.do(ctx, http.MethodGet, "/horaris", nil, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) CreateSchedule(ctx context.Context, req ScheduleRequest) (*Schedule, error) {
	var payload Schedule
	if err := c.do(ctx, http.MethodPost, "/horaris", nil, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ---- transport ----

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	rel := &url.URL{Path: c.baseURL.Path + path}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.requestID != nil {
		req.Header.Set("X-Request-ID", c.requestID())
	}
	var token string
	if c.tokens != nil {
		if token = c.tokens.Get(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized && token != "" && path != loginPath {
		if exp, ok := c.tokens.(TokenExpirer); ok {
			exp.Expire(token)
		}
	}
	if resp.StatusCode >= 400 {
		return newAPIError(method, path, resp)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if msg, ok := dest.(*MessageResponse); ok {
		return decodeMessage(raw, msg)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse base url %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func idPath(id int64) string {
	return strconv.FormatInt(id, 10)
}

func userQuery(userID int64) url.Values {
	if userID <= 0 {
		return nil
	}
	values := url.Values{}
	values.Set("usuariId", strconv.FormatInt(userID, 10))
	return values
}

// decodeMessage accepts {"message": ...}, a JSON string, or bare text.
func decodeMessage(raw []byte, msg *MessageResponse) error {
	trimmed := bytes.TrimSpace(raw)
	switch trimmed[0] {
	case '{':
		if err := json.Unmarshal(trimmed, msg); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	case '"':
		if err := json.Unmarshal(trimmed, &msg.Message); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	default:
		msg.Message = string(trimmed)
	}
	return nil
}
