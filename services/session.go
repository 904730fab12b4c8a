package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"food-order-bot/api"
	"food-order-bot/models"

	"github.com/golang-jwt/jwt/v5"
)

// Storage keys, the same names the web client used in localStorage.
const (
	KeyAuthToken   = "authToken"
	KeyCurrentUser = "currentUser"
)

// Session is either Anonymous (user == nil) or Authenticated(user, token).
type Session struct {
	ownerID int64
	store   Storage
	auth    AuthBackend
	now     func() time.Time

	user  *models.User
	token string

	// expiredUserID is the user whose session the backend last rejected;
	// onUserChange runs when someone else logs in after that.
	expiredUserID int64
	onUserChange  func()
}

func NewSession(ownerID int64, store Storage, auth AuthBackend) *Session {
	return &Session{ownerID: ownerID, store: store, auth: auth, now: time.Now}
}

func (s *Session) Authenticated() bool {
	return s.user != nil && s.token != ""
}

// User returns a copy of the current user, or nil when anonymous.
func (s *Session) User() *models.User {
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) Token() string {
	return s.token
}

// Restore loads persisted credentials. Both keys must be present. The token is
// not checked with the backend, but a JWT whose exp has passed is discarded.
func (s *Session) Restore(ctx context.Context) error {
	token, okToken, err := s.store.Get(ctx, s.ownerID, KeyAuthToken)
	if err != nil {
		return fmt.Errorf("read %s: %w", KeyAuthToken, err)
	}
	raw, okUser, err := s.store.Get(ctx, s.ownerID, KeyCurrentUser)
	if err != nil {
		return fmt.Errorf("read %s: %w", KeyCurrentUser, err)
	}
	s.user, s.token = nil, ""
	if !okToken || !okUser || token == "" {
		return nil
	}

	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		log.Printf("session owner=%d: corrupt stored user, clearing: %v", s.ownerID, err)
		return s.clear(ctx)
	}
	if tokenExpired(token, s.now()) {
		return s.clear(ctx)
	}
	s.user, s.token = &u, token
	return nil
}

// tokenExpired reports whether token is a JWT with an exp claim in the past.
// Opaque tokens are never considered expired here.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}

// Login authenticates with email and password. After repeated rejected
// attempts further logins are refused locally until the cooldown ends.
func (s *Session) Login(ctx context.Context, email, password string) error {
	in := models.LoginInput{Email: email, Password: password}
	if err := ValidateLogin(in); err != nil {
		return err
	}
	if wait := s.loginWaitSeconds(ctx); wait > 0 {
		return &ThrottledError{WaitSeconds: wait}
	}
	res, err := s.auth.Login(ctx, in)
	if err != nil {
		var be *api.BackendError
		if errors.As(err, &be) && be.Unauthorized() {
			s.recordLoginFailed(ctx)
		}
		return err
	}
	s.recordLoginSuccess(ctx)
	return s.authenticate(ctx, res)
}

func (s *Session) Register(ctx context.Context, in models.RegisterInput) error {
	if err := ValidateRegister(in); err != nil {
		return err
	}
	res, err := s.auth.Register(ctx, in)
	if err != nil {
		return err
	}
	if res.User.Phone == "" {
		res.User.Phone = in.Phone
	}
	if res.User.Address == "" {
		res.User.Address = in.Address
	}
	return s.authenticate(ctx, res)
}

func (s *Session) authenticate(ctx context.Context, res *models.AuthResult) error {
	if res.AccessToken == "" {
		return fmt.Errorf("backend returned no access token")
	}
	u := res.User
	if s.expiredUserID != 0 && s.expiredUserID != u.ID && s.onUserChange != nil {
		s.onUserChange()
	}
	s.expiredUserID = 0
	s.user, s.token = &u, res.AccessToken
	if err := s.store.Set(ctx, s.ownerID, KeyAuthToken, s.token); err != nil {
		log.Printf("session owner=%d: persist token: %v", s.ownerID, err)
	}
	s.persistUser(ctx)
	return nil
}

func (s *Session) persistUser(ctx context.Context) {
	buf, err := json.Marshal(s.user)
	if err != nil {
		log.Printf("session owner=%d: encode user: %v", s.ownerID, err)
		return
	}
	if err := s.store.Set(ctx, s.ownerID, KeyCurrentUser, string(buf)); err != nil {
		log.Printf("session owner=%d: persist user: %v", s.ownerID, err)
	}
}

// Profile fetches the full profile and refreshes the cached user.
func (s *Session) Profile(ctx context.Context) (*models.User, error) {
	if !s.Authenticated() {
		return nil, ErrUnauthenticated
	}
	u, err := s.auth.Profile(ctx, s.token)
	if err != nil {
		s.observe(ctx, err)
		return nil, err
	}
	s.user = u
	s.persistUser(ctx)
	return s.User(), nil
}

// UpdateProfile replaces name, phone and address in place. The token is unchanged.
func (s *Session) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) error {
	if !s.Authenticated() {
		return ErrUnauthenticated
	}
	if err := ValidateProfile(upd); err != nil {
		return err
	}
	echoed, err := s.auth.UpdateProfile(ctx, s.token, upd)
	if err != nil {
		s.observe(ctx, err)
		return err
	}
	if echoed != nil {
		s.user = echoed
	} else {
		s.user.Name, s.user.Phone, s.user.Address = upd.Name, upd.Phone, upd.Address
	}
	s.persistUser(ctx)
	return nil
}

func (s *Session) Logout(ctx context.Context) error {
	return s.clear(ctx)
}

// observe drops the session when the backend rejected its token.
func (s *Session) observe(ctx context.Context, err error) {
	var be *api.BackendError
	if errors.As(err, &be) && be.Unauthorized() && s.Authenticated() {
		s.Expire(ctx)
	}
}

// Expire drops a session whose token the backend no longer accepts.
func (s *Session) Expire(ctx context.Context) {
	if s.user != nil {
		s.expiredUserID = s.user.ID
	}
	if err := s.clear(ctx); err != nil {
		log.Printf("session owner=%d: clear expired session: %v", s.ownerID, err)
	}
}

func (s *Session) clear(ctx context.Context) error {
	s.user, s.token = nil, ""
	return s.store.Remove(ctx, s.ownerID, KeyAuthToken, KeyCurrentUser)
}
