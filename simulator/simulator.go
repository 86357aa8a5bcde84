package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"mime/multipart"
	"net/http"
	"sync"
	"time"
)

// Password shared by every simulated account
const simPassword = "testpass123"

// Smallest valid PNG header; enough for the server's content sniffing
var avatarPNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type SimConfig struct {
	NumUsers           int
	SimulationTime     time.Duration
	SubscribeFrequency float64 // toggles per user per hour
	ProfileFrequency   float64 // channel views per user per hour
	RefreshFrequency   float64 // token refreshes per user per hour
	LogoutRate         float64
	LoginRate          float64
	ZipfS              float64
	BatchSize          int
	TickInterval       time.Duration
	BaseURL            string
}

type SimulationStats struct {
	mu               sync.RWMutex
	StartTime        time.Time
	TotalRequests    int64
	SuccessRequests  int64
	FailedRequests   int64
	AverageLatency   time.Duration
	ActiveUsers      int
	Subscriptions    int
	Unsubscriptions  int
	ProfileViews     int
	Refreshes        int
	RequestLatencies []time.Duration
}

// SimulatedUser tracks one account and its current session
type SimulatedUser struct {
	ID           string
	Username     string
	Email        string
	AccessToken  string
	RefreshToken string
	LoggedIn     bool
	LastActive   time.Time
	Subscribed   map[string]bool // channel id -> subscribed
}

// envelope mirrors the API's response wrapper
type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

// StatusError is returned for any response with a 4xx or 5xx status
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
}

type Simulator struct {
	config SimConfig
	stats  *SimulationStats
	users  []*SimulatedUser
	client *http.Client
	log    *slog.Logger
	mu     sync.RWMutex

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewSimulator(config SimConfig, log *slog.Logger) *Simulator {
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.TickInterval <= 0 {
		config.TickInterval = 500 * time.Millisecond
	}
	if config.ZipfS <= 1 {
		config.ZipfS = 1.07
	}
	return &Simulator{
		config: config,
		stats: &SimulationStats{
			StartTime:        time.Now(),
			RequestLatencies: make([]time.Duration, 0),
		},
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.With("component", "simulator"),
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run registers the user base and then drives traffic until ctx is done.
func (s *Simulator) Run(ctx context.Context) error {
	s.log.Info("starting simulation", "base_url", s.config.BaseURL, "users", s.config.NumUsers)

	if err := s.initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.SimulateActivities(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.simulateSessions(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.collectMetrics(ctx)
	}()

	wg.Wait()
	return nil
}

func (s *Simulator) initialize(ctx context.Context) error {
	s.log.Info("creating users", "count", s.config.NumUsers)
	if err := s.createInitialUsers(ctx); err != nil {
		return fmt.Errorf("failed to create initial users: %w", err)
	}

	s.mu.RLock()
	registered := len(s.users)
	s.mu.RUnlock()
	if registered < 2 {
		return fmt.Errorf("only %d users registered, need at least 2", registered)
	}
	return nil
}

// createInitialUsers registers and logs in users in batches.
func (s *Simulator) createInitialUsers(ctx context.Context) error {
	runID := time.Now().UnixNano() % 1_000_000

	for start := 0; start < s.config.NumUsers; start += s.config.BatchSize {
		end := start + s.config.BatchSize
		if end > s.config.NumUsers {
			end = s.config.NumUsers
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				user := &SimulatedUser{
					Username:   fmt.Sprintf("sim_%d_%d", runID, i),
					Email:      fmt.Sprintf("sim_%d_%d@example.com", runID, i),
					Subscribed: make(map[string]bool),
				}
				if err := s.registerUser(ctx, user); err != nil {
					s.log.Warn("register failed", "username", user.Username, "error", err)
					return
				}
				if err := s.login(ctx, user); err != nil {
					s.log.Warn("login failed", "username", user.Username, "error", err)
				}

				s.mu.Lock()
				s.users = append(s.users, user)
				s.mu.Unlock()
			}(i)
		}
		wg.Wait()

		if err := ctx.Err(); err != nil {
			return err
		}
		s.log.Info("batch registered", "done", end, "total", s.config.NumUsers)
	}
	return nil
}

func (s *Simulator) registerUser(ctx context.Context, user *SimulatedUser) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := map[string]string{
		"fullname": "Sim " + user.Username,
		"username": user.Username,
		"email":    user.Email,
		"password": simPassword,
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("avatar", user.Username+".png")
	if err != nil {
		return err
	}
	if _, err := part.Write(avatarPNG); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/api/v1/users/register", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	env, err := s.do(req)
	if err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}

	var created struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil {
		return fmt.Errorf("failed to parse registration response: %w", err)
	}
	if created.ID == "" {
		return fmt.Errorf("registration response has no user id")
	}
	user.ID = created.ID
	return nil
}

func (s *Simulator) login(ctx context.Context, user *SimulatedUser) error {
	env, err := s.makeRequest(ctx, http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"username": user.Username,
		"password": simPassword,
	})
	if err != nil {
		return err
	}

	var result struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return fmt.Errorf("failed to parse login response: %w", err)
	}

	s.mu.Lock()
	user.AccessToken = result.AccessToken
	user.RefreshToken = result.RefreshToken
	user.LoggedIn = true
	user.LastActive = time.Now()
	s.mu.Unlock()
	return nil
}

func (s *Simulator) logout(ctx context.Context, user *SimulatedUser) error {
	s.mu.RLock()
	token := user.AccessToken
	s.mu.RUnlock()

	if _, err := s.makeRequest(ctx, http.MethodPost, "/api/v1/users/logout", token, nil); err != nil {
		return err
	}

	s.mu.Lock()
	user.AccessToken = ""
	user.RefreshToken = ""
	user.LoggedIn = false
	s.mu.Unlock()
	return nil
}

// makeRequest sends a JSON request, optionally authenticated with a bearer token.
func (s *Simulator) makeRequest(ctx context.Context, method, endpoint, token string, data interface{}) (*envelope, error) {
	var body io.Reader
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.BaseURL+endpoint, body)
	if err != nil {
		return nil, err
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.do(req)
}

func (s *Simulator) do(req *http.Request) (*envelope, error) {
	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.recordRequestMetrics(start, err)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		s.recordRequestMetrics(start, err)
		return nil, err
	}

	var env envelope
	if len(raw) > 0 {
		if jsonErr := json.Unmarshal(raw, &env); jsonErr != nil && resp.StatusCode < 400 {
			s.recordRequestMetrics(start, jsonErr)
			return nil, fmt.Errorf("decode response: %w", jsonErr)
		}
	}

	if resp.StatusCode >= 400 {
		err := &StatusError{Status: resp.StatusCode, Message: env.Message}
		s.recordRequestMetrics(start, err)
		return nil, err
	}

	s.recordRequestMetrics(start, nil)
	return &env, nil
}

func (s *Simulator) recordRequestMetrics(start time.Time, err error) {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()

	latency := time.Since(start)
	s.stats.TotalRequests++
	s.stats.RequestLatencies = append(s.stats.RequestLatencies, latency)

	if err != nil {
		s.stats.FailedRequests++
	} else {
		s.stats.SuccessRequests++
	}

	totalLatency := s.stats.AverageLatency * time.Duration(s.stats.TotalRequests-1)
	s.stats.AverageLatency = (totalLatency + latency) / time.Duration(s.stats.TotalRequests)
}

// getZipfNumber returns a rank in [1, max]; low ranks are the popular ones.
func (s *Simulator) getZipfNumber(max int) int {
	if max <= 1 {
		return 1
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	zipf := rand.NewZipf(s.rng, s.config.ZipfS, 1, uint64(max-1))
	return int(zipf.Uint64()) + 1
}

func (s *Simulator) chance(p float64) bool {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64() < p
}

func (s *Simulator) collectMetrics(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := s.GetMetrics()
			s.log.Info("simulation metrics",
				"elapsed", time.Since(s.stats.StartTime).Round(time.Second),
				"req_per_sec", fmt.Sprintf("%.2f", m.RequestsPerSecond),
				"success_rate", fmt.Sprintf("%.1f%%", m.SuccessRate),
				"avg_latency", m.AverageLatency,
				"active_users", fmt.Sprintf("%d/%d", m.ActiveUsers, m.TotalUsers),
				"subscriptions", m.Subscriptions,
				"unsubscriptions", m.Unsubscriptions,
				"profile_views", m.ProfileViews,
				"refreshes", m.Refreshes,
				"failed", m.ErrorCount,
			)
		}
	}
}

// SimulationMetrics holds the metrics of the simulation
type SimulationMetrics struct {
	TotalUsers        int
	ActiveUsers       int
	Subscriptions     int
	Unsubscriptions   int
	ProfileViews      int
	Refreshes         int
	AverageLatency    time.Duration
	ErrorCount        int
	SuccessRate       float64
	RequestsPerSecond float64
}

// GetMetrics returns the current simulation metrics
func (s *Simulator) GetMetrics() SimulationMetrics {
	s.mu.RLock()
	totalUsers := len(s.users)
	active := 0
	for _, u := range s.users {
		if u.LoggedIn {
			active++
		}
	}
	s.mu.RUnlock()

	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()
	s.stats.ActiveUsers = active

	elapsed := time.Since(s.stats.StartTime).Seconds()
	var rate, success float64
	if elapsed > 0 {
		rate = float64(s.stats.TotalRequests) / elapsed
	}
	if s.stats.TotalRequests > 0 {
		success = float64(s.stats.SuccessRequests) / float64(s.stats.TotalRequests) * 100
	}

	return SimulationMetrics{
		TotalUsers:        totalUsers,
		ActiveUsers:       active,
		Subscriptions:     s.stats.Subscriptions,
		Unsubscriptions:   s.stats.Unsubscriptions,
		ProfileViews:      s.stats.ProfileViews,
		Refreshes:         s.stats.Refreshes,
		AverageLatency:    s.stats.AverageLatency,
		ErrorCount:        int(s.stats.FailedRequests),
		SuccessRate:       success,
		RequestsPerSecond: rate,
	}
}
