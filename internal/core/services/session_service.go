package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"setoran-pa/internal/adapters/persistence/repositories"
	"setoran-pa/internal/core/domain"
	"setoran-pa/internal/pkg/jwt"
	"setoran-pa/internal/pkg/logger"
	"setoran-pa/internal/pkg/sealer"
)

const refreshKey = "refresh"

// errSessionChanged drops a refresh result whose session was replaced by a
// login or logout while the grant was in flight.
var errSessionChanged = errors.New("session changed during refresh")

// SessionService owns the lecturer's credentials. It is the only writer of
// the token store and is shared by every consumer.
type SessionService struct {
	store repositories.TokenStore
	auth  AuthClient

	clockMu sync.RWMutex
	now     func() time.Time

	// sessionMu orders credential writes. generation counts logins and
	// logouts; a refresh saves only if it has not moved.
	sessionMu  sync.Mutex
	generation uint64

	refreshGroup singleflight.Group
	login        *domain.Stream[domain.Profile]
}

// NewSessionService creates a new session service
func NewSessionService(store repositories.TokenStore, auth AuthClient) *SessionService {
	return &SessionService{
		store: store,
		auth:  auth,
		now:   time.Now,
		login: domain.NewStream[domain.Profile]("login", true),
	}
}

// SetClock replaces the time source used for expiry checks
func (s *SessionService) SetClock(now func() time.Time) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.now = now
}

func (s *SessionService) clock() time.Time {
	s.clockMu.RLock()
	defer s.clockMu.RUnlock()
	return s.now()
}

// IsValid reports whether token decodes and expires strictly after now.
// The signature is not checked.
func (s *SessionService) IsValid(token string) bool {
	return jwt.IsValid(token, s.clock())
}

// LoginState exposes the login stream
func (s *SessionService) LoginState() *domain.Stream[domain.Profile] {
	return s.login
}

// Login runs the password grant and persists the returned credentials
func (s *SessionService) Login(ctx context.Context, username, password string) domain.OperationState[domain.Profile] {
	username = strings.TrimSpace(username)
	ticket := s.login.Begin(username)
	log := logger.For(ctx, "login").WithField("username", username)

	profile, err := s.doLogin(ctx, username, password)
	state := domain.Result(profile, err)
	if err != nil {
		log.WithField("kind", domain.KindOf(err)).Warn("❌ Login failed")
	} else {
		log.Info("✅ Logged in")
	}
	s.login.Finish(ticket, state)
	return state
}

func (s *SessionService) doLogin(ctx context.Context, username, password string) (domain.Profile, error) {
	if username == "" || password == "" {
		return domain.Profile{}, domain.Validationf("username and password are required")
	}
	creds, err := s.auth.PasswordGrant(ctx, username, password)
	if err != nil {
		return domain.Profile{}, err
	}

	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	s.nextGeneration()
	if err := s.store.Save(ctx, creds); err != nil {
		return domain.Profile{}, storeError(err)
	}
	return profileOf(creds), nil
}

// nextGeneration invalidates every refresh started before it. Callers hold
// sessionMu.
func (s *SessionService) nextGeneration() {
	s.generation++
	s.refreshGroup.Forget(refreshKey)
}

// Logout forgets the stored credentials. No network call is made.
func (s *SessionService) Logout(ctx context.Context) error {
	s.sessionMu.Lock()
	s.nextGeneration()
	err := s.store.Clear(ctx)
	s.sessionMu.Unlock()
	if err != nil {
		logger.For(ctx, "logout").WithError(err).Error("❌ Failed to clear credentials")
		return storeError(err)
	}
	s.login.Clear()
	logger.For(ctx, "logout").Info("👋 Logged out")
	return nil
}

// HasCredentials reports whether a token triple is stored
func (s *SessionService) HasCredentials(ctx context.Context) bool {
	_, err := s.store.Get(ctx)
	return err == nil
}

// Profile describes the logged-in lecturer from the stored tokens
func (s *SessionService) Profile(ctx context.Context) (domain.Profile, error) {
	creds, err := s.store.Get(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoCredentials) {
			return domain.Profile{}, domain.ErrNoCredentials
		}
		return domain.Profile{}, storeError(err)
	}
	return profileOf(creds), nil
}

func profileOf(creds domain.Credentials) domain.Profile {
	profile := domain.Profile{DisplayName: jwt.UnknownUser}
	if claims, err := jwt.Decode(creds.IDToken); err == nil {
		profile.DisplayName = claims.DisplayName()
		profile.Username = claims.PreferredUsername
		profile.Email = claims.Email
	}
	if claims, err := jwt.Decode(creds.AccessToken); err == nil && claims.ExpiresAt != nil {
		profile.ExpiresAt = claims.ExpiresAt.Time
	}
	return profile
}

// Refresh runs one refresh grant and reports whether it succeeded.
// Stored credentials are only replaced on success.
func (s *SessionService) Refresh(ctx context.Context) bool {
	_, err := s.refresh(ctx, "")
	return err == nil
}

// refresh exchanges the stored refresh token. Concurrent callers share one
// grant. When stale is set and the store already holds a different valid
// access token, another caller has refreshed and that token is reused.
// A login or logout during the grant discards its result.
func (s *SessionService) refresh(ctx context.Context, stale string) (string, error) {
	v, err, shared := s.refreshGroup.Do(refreshKey, func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		log := logger.For(ctx, "refresh")

		s.sessionMu.Lock()
		generation := s.generation
		creds, err := s.store.Get(ctx)
		s.sessionMu.Unlock()
		if err != nil {
			return "", err
		}
		if stale != "" && creds.AccessToken != stale && s.IsValid(creds.AccessToken) {
			log.Debug("🔁 Credentials already refreshed")
			return creds.AccessToken, nil
		}

		log = log.WithField("refresh_token", sealer.Fingerprint(creds.RefreshToken))
		next, err := s.auth.RefreshGrant(ctx, creds.RefreshToken)
		if err != nil {
			log.WithField("kind", domain.KindOf(err)).Warn("❌ Refresh grant failed")
			return "", err
		}

		s.sessionMu.Lock()
		defer s.sessionMu.Unlock()
		if s.generation != generation {
			log.Warn("🚫 Session changed during refresh, discarding credentials")
			return "", errSessionChanged
		}
		if err := s.store.Save(ctx, next); err != nil {
			log.WithError(err).Error("❌ Failed to store refreshed credentials")
			return "", err
		}
		log.Info("🔄 Credentials refreshed")
		return next.AccessToken, nil
	})
	if shared {
		logger.For(ctx, "refresh").Debug("🔁 Joined in-flight refresh")
	}
	if err != nil {
		return "", domain.NewError(domain.KindRefreshFailed, 0, "", err)
	}
	return v.(string), nil
}

// Authorized runs call with the stored access token. A token that is
// expired locally, or rejected by the server, triggers one refresh and one
// retry; whatever the retry returns is final. Other failures return as is.
func Authorized[T any](ctx context.Context, s *SessionService, op string, call func(ctx context.Context, accessToken string) (T, error)) (T, error) {
	var zero T
	log := logger.For(ctx, op)

	creds, err := s.store.Get(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoCredentials) {
			log.Debug("🔒 No credentials stored")
			return zero, domain.ErrNoCredentials
		}
		log.WithError(err).Error("❌ Token store unavailable")
		return zero, storeError(err)
	}

	token := creds.AccessToken
	if s.IsValid(token) {
		result, err := call(ctx, token)
		if domain.KindOf(err) != domain.KindUnauthorized {
			return result, err
		}
		log.Info("🔑 Access token rejected, refreshing")
	} else {
		log.Info("🔑 Access token expired, refreshing")
	}

	fresh, err := s.refresh(ctx, token)
	if err != nil {
		return zero, err
	}
	return call(ctx, fresh)
}

func storeError(err error) error {
	return domain.NewError(domain.KindTransport, 0, "credential storage unavailable", err)
}
