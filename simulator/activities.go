package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const numWorkers = 5

// SimulateActivities fans logged-in users out to a worker pool once per tick.
// Each user rolls independently for a subscription toggle, a channel view
// and a token refresh.
func (s *Simulator) SimulateActivities(ctx context.Context) {
	s.log.Info("starting activity simulation")

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	jobs := make(chan *SimulatedUser, s.config.NumUsers)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for user := range jobs {
				s.runUserTick(ctx, user)
			}
		}()
	}
	defer wg.Wait()
	defer close(jobs)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, user := range s.snapshotUsers() {
				select {
				case jobs <- user:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// perTick converts an hourly rate into a probability for one tick.
func (s *Simulator) perTick(perHour float64) float64 {
	return perHour / 3600.0 * s.config.TickInterval.Seconds()
}

func (s *Simulator) runUserTick(ctx context.Context, user *SimulatedUser) {
	s.mu.RLock()
	loggedIn := user.LoggedIn
	s.mu.RUnlock()
	if !loggedIn {
		return
	}

	if s.chance(s.perTick(s.config.SubscribeFrequency)) {
		if err := s.toggleSubscription(ctx, user); err != nil && ctx.Err() == nil {
			s.log.Debug("toggle subscription failed", "username", user.Username, "error", err)
		}
	}
	if s.chance(s.perTick(s.config.ProfileFrequency)) {
		if err := s.viewChannel(ctx, user); err != nil && ctx.Err() == nil {
			s.log.Debug("channel view failed", "username", user.Username, "error", err)
		}
	}
	if s.chance(s.perTick(s.config.RefreshFrequency)) {
		if err := s.refresh(ctx, user); err != nil && ctx.Err() == nil {
			s.log.Debug("refresh failed", "username", user.Username, "error", err)
		}
	}
}

func (s *Simulator) snapshotUsers() []*SimulatedUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*SimulatedUser, len(s.users))
	copy(out, s.users)
	return out
}

// pickChannel chooses a channel other than user by Zipf rank, so the first
// registered users end up with most of the subscribers.
func (s *Simulator) pickChannel(user *SimulatedUser) *SimulatedUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.users) < 2 {
		return nil
	}
	for attempt := 0; attempt < 3; attempt++ {
		candidate := s.users[s.getZipfNumber(len(s.users))-1]
		if candidate.ID != user.ID {
			return candidate
		}
	}
	for _, candidate := range s.users {
		if candidate.ID != user.ID {
			return candidate
		}
	}
	return nil
}

func (s *Simulator) toggleSubscription(ctx context.Context, user *SimulatedUser) error {
	channel := s.pickChannel(user)
	if channel == nil {
		return nil
	}

	env, err := s.makeRequest(ctx, http.MethodPost, "/api/v1/subscriptions/c/"+url.PathEscape(channel.ID), s.accessToken(user), nil)
	if err != nil {
		return s.handleAuthError(ctx, user, err)
	}

	var result struct {
		Subscribed bool `json:"subscribed"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return err
	}

	s.mu.Lock()
	user.Subscribed[channel.ID] = result.Subscribed
	user.LastActive = time.Now()
	s.mu.Unlock()

	s.stats.mu.Lock()
	if result.Subscribed {
		s.stats.Subscriptions++
	} else {
		s.stats.Unsubscriptions++
	}
	s.stats.mu.Unlock()
	return nil
}

func (s *Simulator) viewChannel(ctx context.Context, user *SimulatedUser) error {
	channel := s.pickChannel(user)
	if channel == nil {
		return nil
	}

	env, err := s.makeRequest(ctx, http.MethodGet, "/api/v1/users/c/"+url.PathEscape(channel.Username), s.accessToken(user), nil)
	if err != nil {
		return s.handleAuthError(ctx, user, err)
	}

	var profile struct {
		SubscribersCount int  `json:"subscribersCount"`
		IsSubscribed     bool `json:"isSubscribed"`
	}
	if err := json.Unmarshal(env.Data, &profile); err != nil {
		return err
	}

	s.mu.RLock()
	expected := user.Subscribed[channel.ID]
	s.mu.RUnlock()
	if expected != profile.IsSubscribed {
		s.log.Warn("subscription state mismatch",
			"viewer", user.Username, "channel", channel.Username,
			"expected", expected, "got", profile.IsSubscribed)
	}

	s.stats.mu.Lock()
	s.stats.ProfileViews++
	s.stats.mu.Unlock()
	return nil
}

// refresh rotates the user's token pair using the body form of the endpoint.
func (s *Simulator) refresh(ctx context.Context, user *SimulatedUser) error {
	s.mu.RLock()
	presented := user.RefreshToken
	s.mu.RUnlock()
	if presented == "" {
		return nil
	}

	env, err := s.makeRequest(ctx, http.MethodPost, "/api/v1/users/refresh-token", "", map[string]string{
		"refreshToken": presented,
	})
	if err != nil {
		return err
	}

	var pair struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.Unmarshal(env.Data, &pair); err != nil {
		return err
	}

	s.mu.Lock()
	user.AccessToken = pair.AccessToken
	user.RefreshToken = pair.RefreshToken
	s.mu.Unlock()

	s.stats.mu.Lock()
	s.stats.Refreshes++
	s.stats.mu.Unlock()
	return nil
}

// handleAuthError refreshes once when the access token has lapsed.
func (s *Simulator) handleAuthError(ctx context.Context, user *SimulatedUser, err error) error {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusUnauthorized {
		return err
	}
	if refreshErr := s.refresh(ctx, user); refreshErr != nil {
		s.mu.Lock()
		user.LoggedIn = false
		s.mu.Unlock()
		return refreshErr
	}
	return err
}

func (s *Simulator) accessToken(user *SimulatedUser) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return user.AccessToken
}

// simulateSessions logs users out and back in at the configured rates.
func (s *Simulator) simulateSessions(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, user := range s.snapshotUsers() {
				s.mu.RLock()
				loggedIn := user.LoggedIn
				s.mu.RUnlock()

				if loggedIn && s.chance(s.config.LogoutRate) {
					if err := s.logout(ctx, user); err != nil && ctx.Err() == nil {
						s.log.Debug("logout failed", "username", user.Username, "error", err)
					}
				} else if !loggedIn && s.chance(s.config.LoginRate) {
					if err := s.login(ctx, user); err != nil && ctx.Err() == nil {
						s.log.Debug("login failed", "username", user.Username, "error", err)
					}
				}
			}
		}
	}
}
