package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/config"
	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/limiter"
	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/model"
	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/orvane-auth/shared/auth"
	"github.com/vasapolrittideah/orvane-auth/shared/security"
	"github.com/vasapolrittideah/orvane-auth/shared/validation"
)

// memStore is an in-memory identity store. A failed transaction restores the
// snapshot taken when it started.
type memStore struct {
	mu            sync.Mutex
	users         map[bson.ObjectID]model.User
	verifications map[string]model.EmailVerification
	resets        map[string]model.PasswordResetRequest
	sessions      map[string]model.Session

	createUserErr error
	getUserErr    error
}

func newMemStore() *memStore {
	return &memStore{
		users:         map[bson.ObjectID]model.User{},
		verifications: map[string]model.EmailVerification{},
		resets:        map[string]model.PasswordResetRequest{},
		sessions:      map[string]model.Session{},
	}
}

func (s *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	users := cloneMap(s.users)
	verifications := cloneMap(s.verifications)
	resets := cloneMap(s.resets)
	sessions := cloneMap(s.sessions)
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.users, s.verifications, s.resets, s.sessions = users, verifications, resets, sessions
		s.mu.Unlock()
		return err
	}

	return nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createUserErr != nil {
		return nil, s.createUserErr
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return nil, repository.ErrConflict
		}
	}

	now := time.Now()
	user.ID = bson.NewObjectID()
	user.EmailVerified = false
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = *user

	out := *user
	return &out, nil
}

func (s *memStore) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	user, ok := s.users[oid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getUserErr != nil {
		return nil, s.getUserErr
	}
	for _, user := range s.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) CheckIfExists(ctx context.Context, email string) (bool, error) {
	_, err := s.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *memStore) VerifyUser(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	user, ok := s.users[oid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if user.EmailVerified {
		return nil, repository.ErrConflict
	}

	user.EmailVerified = true
	user.UpdatedAt = time.Now()
	s.users[oid] = user
	return &user, nil
}

func (s *memStore) UpdateUser(_ context.Context, id string, params repository.UpdateUserParams) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	user, ok := s.users[oid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if params.PasswordHash != nil {
		user.PasswordHash = *params.PasswordHash
	}
	user.UpdatedAt = time.Now()
	s.users[oid] = user
	return &user, nil
}

func (s *memStore) CreateEmailVerification(
	_ context.Context,
	verification *model.EmailVerification,
) (*model.EmailVerification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.verifications {
		if existing.UserID == verification.UserID || existing.Email == verification.Email {
			delete(s.verifications, id)
		}
	}

	id, err := security.GenerateToken()
	if err != nil {
		return nil, err
	}
	verification.ID = id
	verification.CreatedAt = time.Now()
	s.verifications[id] = *verification

	out := *verification
	return &out, nil
}

func (s *memStore) GetEmailVerification(_ context.Context, userID bson.ObjectID) (*model.EmailVerification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, verification := range s.verifications {
		if verification.UserID == userID {
			return &verification, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) RemoveEmailVerification(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.verifications[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.verifications, id)
	return nil
}

func (s *memStore) CreatePasswordResetRequest(
	_ context.Context,
	request *model.PasswordResetRequest,
) (*model.PasswordResetRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.resets {
		if existing.UserID == request.UserID {
			delete(s.resets, id)
		}
	}
	request.CreatedAt = time.Now()
	s.resets[request.ID] = *request

	out := *request
	return &out, nil
}

func (s *memStore) GetPasswordResetRequest(_ context.Context, id string) (*model.PasswordResetRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.resets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &request, nil
}

func (s *memStore) RemovePasswordResetRequest(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.resets, id)
	return nil
}

func (s *memStore) CreateSession(
	_ context.Context,
	userID bson.ObjectID,
	authorized bool,
	expiresIn time.Duration,
) (*model.Session, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := security.GenerateToken()
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	session := model.Session{
		ID:             security.HashToken(token),
		UserID:         userID,
		Authorized:     authorized,
		CreatedAt:      now,
		ExpiresAt:      now.Add(expiresIn),
		LastAccessedAt: now,
	}
	s.sessions[session.ID] = session
	return &session, token, nil
}

func (s *memStore) GetSessionByToken(_ context.Context, token string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[security.HashToken(token)]
	if !ok || session.Expired(time.Now()) {
		return nil, repository.ErrNotFound
	}
	session.LastAccessedAt = time.Now()
	s.sessions[session.ID] = session
	return &session, nil
}

func (s *memStore) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := security.HashToken(token)
	if _, ok := s.sessions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *memStore) InvalidateAllSessions(_ context.Context, userID bson.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for id, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, id)
			count++
		}
	}
	return count, nil
}

func (s *memStore) userByEmail(t *testing.T, email string) model.User {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			return user
		}
	}
	t.Fatalf("no user with email %s", email)
	return model.User{}
}

func (s *memStore) sessionsOf(userID bson.ObjectID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, session := range s.sessions {
		if session.UserID == userID {
			n++
		}
	}
	return n
}

func (s *memStore) setVerified(userID bson.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.users[userID]
	user.EmailVerified = true
	s.users[userID] = user
}

// fakeNotifier records what would have been emailed.
type fakeNotifier struct {
	mu            sync.Mutex
	codes         map[string]string
	confirmations []string
	references    map[string]string

	codeErr         error
	confirmationErr error
	resetErr        error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{codes: map[string]string{}, references: map[string]string{}}
}

func (n *fakeNotifier) SendVerificationCode(_ context.Context, to, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.codeErr != nil {
		return n.codeErr
	}
	n.codes[to] = code
	return nil
}

func (n *fakeNotifier) SendVerificationConfirmation(_ context.Context, to string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.confirmationErr != nil {
		return n.confirmationErr
	}
	n.confirmations = append(n.confirmations, to)
	return nil
}

func (n *fakeNotifier) SendPasswordReset(_ context.Context, to, reference string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.resetErr != nil {
		return n.resetErr
	}
	n.references[to] = reference
	return nil
}

// fakeHasher stands in for Argon2id, which is too slow to run in every test.
type fakeHasher struct {
	err error
}

func (h *fakeHasher) HashPassword(_ context.Context, password string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + password, nil
}

func (h *fakeHasher) VerifyPassword(_ context.Context, password, encodedHash string) (bool, error) {
	if h.err != nil {
		return false, h.err
	}
	if !strings.HasPrefix(encodedHash, "hashed:") {
		return false, security.ErrHashing
	}
	return encodedHash == "hashed:"+password, nil
}

// fakeLimiter allows limit checks per key.
type fakeLimiter struct {
	mu     sync.Mutex
	limit  int
	counts map[string]int
}

func newFakeLimiter(limit int) *fakeLimiter {
	return &fakeLimiter{limit: limit, counts: map[string]int{}}
}

func (l *fakeLimiter) Check(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counts[key]++
	if l.counts[key] > l.limit {
		return limiter.ErrRateLimited
	}
	return nil
}

func (l *fakeLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.counts, key)
	return nil
}

func testConfig() *config.AuthServiceConfig {
	return &config.AuthServiceConfig{
		Token: config.TokenConfig{
			Issuer:                       "orvane",
			PasswordResetTokenSecret:     "reset-secret",
			PasswordResetTokenExpiresIn:  time.Hour,
			VerificationCodeSecret:       "code-secret",
			EmailVerificationExpiresIn:   5 * time.Minute,
			AuthorizedSessionExpiresIn:   720 * time.Hour,
			UnauthorizedSessionExpiresIn: 12 * time.Hour,
		},
		Mail: config.MailConfig{Timeout: time.Second},
	}
}

type harness struct {
	store    *memStore
	notifier *fakeNotifier
	hasher   *fakeHasher
	limiter  *fakeLimiter
	cfg      *config.AuthServiceConfig
	jwtAuth  *auth.JWTAuthenticator

	auth   *authUsecase
	verify *emailVerificationUsecase
	reset  *passwordResetUsecase
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store:    newMemStore(),
		notifier: newFakeNotifier(),
		hasher:   &fakeHasher{},
		limiter:  newFakeLimiter(100),
		cfg:      testConfig(),
	}
	h.jwtAuth = auth.NewJWTAuthenticator(h.cfg.Token.Issuer, h.cfg.Token.PasswordResetTokenSecret)

	logger := zerolog.Nop()
	v := validation.New()

	h.auth = NewAuthUsecase(h.store, h.store, h.store, h.hasher, h.notifier, v, h.cfg).(*authUsecase)
	h.verify = NewEmailVerificationUsecase(
		h.store, h.store, h.store, h.store, h.notifier, h.limiter, h.limiter, v, &logger, h.cfg,
	).(*emailVerificationUsecase)
	h.reset = NewPasswordResetUsecase(
		h.store, h.store, h.store, h.store, h.jwtAuth, h.hasher, h.notifier, h.limiter, v, h.cfg,
	).(*passwordResetUsecase)

	return h
}

// signup registers email and returns the pending session token.
func (h *harness) signup(t *testing.T, email, password string) string {
	t.Helper()

	result, err := h.auth.Signup(context.Background(), SignupParams{Email: email, Password: password})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	return result.Token
}
