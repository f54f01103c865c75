package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sso-gateway/internal/auth"
	"sso-gateway/internal/directory"
	"sso-gateway/internal/user"
)

func testIdentity(email string) *auth.Identity {
	return &auth.Identity{
		Provider:       "google",
		ProviderUserID: "sub-123",
		Email:          email,
		EmailVerified:  true,
		DisplayName:    "Test User",
		PhotoURL:       "https://example.com/photo.jpg",
		AccessToken:    "access-token",
		RefreshToken:   "refresh-token",
	}
}

func TestEngine_Resolve_MissingEmail(t *testing.T) {
	t.Parallel()

	dir := &MockDirectory{}
	store := &MockUserStore{}
	engine := NewEngine(dir, store)

	u, err := engine.Resolve(context.Background(), testIdentity(""))

	require.ErrorIs(t, err, auth.ErrMissingEmail)
	assert.Nil(t, u)
	assert.Equal(t, auth.CodeAuthFailed, auth.ErrorCode(err))

	store.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	dir.AssertNotCalled(t, "LookupByEmail", mock.Anything, mock.Anything)
}

func TestEngine_Resolve_ExistingUserReturnedUnchanged(t *testing.T) {
	t.Parallel()

	existing := &user.User{
		ID:       uuid.New(),
		Username: "alice",
		Email:    "alice@example.com",
		SSOType:  "legacy",
	}

	dir := &MockDirectory{}
	dir.On("LookupByEmail", mock.Anything, "alice@example.com").
		Return(&directory.Record{ID: "dir-1", Email: "alice@example.com", Username: "alice"}, nil)

	store := &MockUserStore{}
	store.On("GetByEmail", mock.Anything, "alice@example.com").Return(existing, nil)

	engine := NewEngine(dir, store)

	// New login arrives via google; the stored legacy record wins.
	u, err := engine.Resolve(context.Background(), testIdentity("alice@example.com"))

	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, existing.ID, u.ID)
	assert.Equal(t, "legacy", u.SSOType)

	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestEngine_Resolve_CreatesWithDirectoryEnrichment(t *testing.T) {
	t.Parallel()

	dir := &MockDirectory{}
	dir.On("LookupByEmail", mock.Anything, "bob@example.com").
		Return(&directory.Record{ID: "dir-42", Email: "bob@example.com", Username: "bobby"}, nil)

	created := &user.User{ID: uuid.New(), Username: "bobby", Email: "bob@example.com", SSOType: "google"}

	store := &MockUserStore{}
	store.On("GetByEmail", mock.Anything, "bob@example.com").Return(nil, nil)
	store.On("Create", mock.Anything, mock.MatchedBy(func(n user.NewUser) bool {
		return n.Username == "bobby" &&
			n.Email == "bob@example.com" &&
			n.SSOType == "google" &&
			n.SSOCredentials.DirectoryUserID == "dir-42" &&
			n.SSOCredentials.AccessToken == "access-token"
	})).Return(created, nil)

	engine := NewEngine(dir, store)

	u, err := engine.Resolve(context.Background(), testIdentity("bob@example.com"))

	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	store.AssertExpectations(t)
	// Directory had the record already, no remote registration needed.
	dir.AssertNotCalled(t, "CreateIfAbsent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_Resolve_DirectoryOutageStillCreatesLocally(t *testing.T) {
	t.Parallel()

	outage := errors.New("directory: request failed: timeout")

	dir := &MockDirectory{}
	dir.On("LookupByEmail", mock.Anything, "a@x.com").Return(nil, outage)
	dir.On("CreateIfAbsent", mock.Anything, "a@x.com", "a@x.com", "google", mock.Anything).
		Return(nil, outage)

	store := &MockUserStore{}
	store.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, nil)
	store.On("Create", mock.Anything, mock.MatchedBy(func(n user.NewUser) bool {
		return n.Username == "a@x.com" &&
			n.Email == "a@x.com" &&
			n.SSOType == "google" &&
			n.SSOCredentials.DirectoryUserID == ""
	})).Return(&user.User{ID: uuid.New(), Username: "a@x.com", Email: "a@x.com", SSOType: "google"}, nil)

	engine := NewEngine(dir, store)

	u, err := engine.Resolve(context.Background(), testIdentity("a@x.com"))

	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "a@x.com", u.Username)

	store.AssertExpectations(t)
	dir.AssertExpectations(t)
}

func TestEngine_Resolve_CreateFailureIsFatal(t *testing.T) {
	t.Parallel()

	dir := &MockDirectory{}
	dir.On("LookupByEmail", mock.Anything, mock.Anything).Return(nil, nil)
	dir.On("CreateIfAbsent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, nil)

	store := &MockUserStore{}
	store.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, nil)
	store.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("storage full"))

	engine := NewEngine(dir, store)

	u, err := engine.Resolve(context.Background(), testIdentity("c@x.com"))

	require.ErrorIs(t, err, auth.ErrUserCreation)
	assert.Nil(t, u)
	assert.Equal(t, auth.CodeAuthFailed, auth.ErrorCode(err))
}

func TestEngine_Resolve_Idempotent(t *testing.T) {
	t.Parallel()

	dir := &MockDirectory{}
	dir.On("LookupByEmail", mock.Anything, "d@x.com").Return(nil, nil)
	dir.On("CreateIfAbsent", mock.Anything, "d@x.com", "d@x.com", "google", mock.Anything).
		Return(&directory.Record{ID: "dir-7", Email: "d@x.com", Username: "d@x.com"}, nil)

	store := newFakeUserStore()
	engine := NewEngine(dir, store)

	first, err := engine.Resolve(context.Background(), testIdentity("d@x.com"))
	require.NoError(t, err)

	second, err := engine.Resolve(context.Background(), testIdentity("d@x.com"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, store.createCalls())
}

func TestEngine_Resolve_ConcurrentSameEmailCreatesOnce(t *testing.T) {
	t.Parallel()

	dir := &slowDirectory{delay: 20 * time.Millisecond}
	store := newFakeUserStore()
	engine := NewEngine(dir, store)

	const n = 16
	ids := make([]uuid.UUID, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := engine.Resolve(context.Background(), testIdentity("race@x.com"))
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = u.ID
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, 1, store.createCalls())
}

func TestEngine_Resolve_RequireDirectoryAccount(t *testing.T) {
	t.Parallel()

	t.Run("no directory record rejects login", func(t *testing.T) {
		t.Parallel()

		dir := &MockDirectory{}
		dir.On("LookupByEmail", mock.Anything, "e@x.com").Return(nil, nil)

		store := &MockUserStore{}
		store.On("GetByEmail", mock.Anything, "e@x.com").Return(nil, nil)

		engine := NewEngine(dir, store, WithRequireDirectoryAccount())

		_, err := engine.Resolve(context.Background(), testIdentity("e@x.com"))

		require.ErrorIs(t, err, auth.ErrNoAccount)
		assert.Equal(t, auth.CodeNoAccount, auth.ErrorCode(err))
		dir.AssertNotCalled(t, "CreateIfAbsent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unreachable directory is distinguishable", func(t *testing.T) {
		t.Parallel()

		dir := &MockDirectory{}
		dir.On("LookupByEmail", mock.Anything, "f@x.com").Return(nil, errors.New("timeout"))

		store := &MockUserStore{}
		store.On("GetByEmail", mock.Anything, "f@x.com").Return(nil, nil)

		engine := NewEngine(dir, store, WithRequireDirectoryAccount())

		_, err := engine.Resolve(context.Background(), testIdentity("f@x.com"))

		require.ErrorIs(t, err, auth.ErrDirectoryUnavailable)
		assert.Equal(t, auth.CodeAPIUnavailable, auth.ErrorCode(err))
	})

	t.Run("existing local user still logs in", func(t *testing.T) {
		t.Parallel()

		existing := &user.User{ID: uuid.New(), Email: "g@x.com", SSOType: "google"}

		dir := &MockDirectory{}
		dir.On("LookupByEmail", mock.Anything, "g@x.com").Return(nil, errors.New("timeout"))

		store := &MockUserStore{}
		store.On("GetByEmail", mock.Anything, "g@x.com").Return(existing, nil)

		engine := NewEngine(dir, store, WithRequireDirectoryAccount())

		u, err := engine.Resolve(context.Background(), testIdentity("g@x.com"))

		require.NoError(t, err)
		assert.Equal(t, existing.ID, u.ID)
	})
}

// fakeUserStore enforces email uniqueness like the real store, so the
// concurrency tests exercise the actual check-then-act path.
type fakeUserStore struct {
	mu      sync.Mutex
	byEmail map[string]*user.User
	creates int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byEmail: make(map[string]*user.User)}
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byEmail[email], nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) Create(_ context.Context, n user.NewUser) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byEmail[n.Email]; ok {
		return existing, nil
	}
	u := &user.User{
		ID:             uuid.New(),
		Username:       n.Username,
		Email:          n.Email,
		SSOType:        n.SSOType,
		SSOCredentials: n.SSOCredentials,
	}
	s.byEmail[n.Email] = u
	s.creates++
	return u, nil
}

func (s *fakeUserStore) createCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates
}

// slowDirectory fails slowly, holding concurrent resolutions in flight
// long enough to overlap.
type slowDirectory struct {
	delay time.Duration
}

func (d *slowDirectory) LookupByEmail(context.Context, string) (*directory.Record, error) {
	time.Sleep(d.delay)
	return nil, errors.New("directory unavailable")
}

func (d *slowDirectory) CreateIfAbsent(context.Context, string, string, string, map[string]any) (*directory.Record, error) {
	time.Sleep(d.delay)
	return nil, errors.New("directory unavailable")
}
