package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/ignitecall/internal/auth"
	"github.com/hitoshi/ignitecall/internal/model"
	"github.com/hitoshi/ignitecall/internal/scheduling"
	"github.com/hitoshi/ignitecall/internal/user"
)

var testLocation = time.FixedZone("BRT", -3*60*60)

// --- 認証サービス ---

type mockAuthService struct {
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, adapter auth.PersistenceAdapter, code string) (*auth.AdapterSession, error)
	logoutFn         func(ctx context.Context, adapter auth.PersistenceAdapter, token string) error
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (m *mockAuthService) HandleCallback(ctx context.Context, adapter auth.PersistenceAdapter, code string) (*auth.AdapterSession, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, adapter, code)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, adapter auth.PersistenceAdapter, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, adapter, token)
	}
	return nil
}

// --- ユーザーサービス ---

type mockUserService struct {
	registerFn         func(ctx context.Context, name, username string) (*model.User, error)
	findByUsernameFn   func(ctx context.Context, username string) (*model.User, error)
	updateProfileFn    func(ctx context.Context, userID, bio string) (string, error)
	setTimeIntervalsFn func(ctx context.Context, userID string, inputs []user.IntervalInput) ([]model.TimeInterval, error)
	timeIntervalsFn    func(ctx context.Context, userID string) ([]model.TimeInterval, error)
	withdrawFn         func(ctx context.Context, userID string) error
}

func (m *mockUserService) Register(ctx context.Context, name, username string) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, name, username)
	}
	return &model.User{ID: "user-1", Name: name, Username: username}, nil
}

func (m *mockUserService) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID, bio string) (string, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, bio)
	}
	return bio, nil
}

func (m *mockUserService) SetTimeIntervals(ctx context.Context, userID string, inputs []user.IntervalInput) ([]model.TimeInterval, error) {
	if m.setTimeIntervalsFn != nil {
		return m.setTimeIntervalsFn(ctx, userID, inputs)
	}
	return nil, nil
}

func (m *mockUserService) TimeIntervals(ctx context.Context, userID string) ([]model.TimeInterval, error) {
	if m.timeIntervalsFn != nil {
		return m.timeIntervalsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

// hostFinder は指定したユーザー名だけを返すFindByUsername。
func hostFinder(host *model.User) func(ctx context.Context, username string) (*model.User, error) {
	return func(ctx context.Context, username string) (*model.User, error) {
		if username == host.Username {
			return host, nil
		}
		return nil, nil
	}
}

// --- 空き時間サービス ---

type mockAvailabilityService struct {
	availabilityFn func(ctx context.Context, username string, date time.Time) (*model.Availability, error)
	blockedDatesFn func(ctx context.Context, username string, year int, month time.Month) (*model.BlockedDates, error)
}

func (m *mockAvailabilityService) Location() *time.Location {
	return testLocation
}

func (m *mockAvailabilityService) ParseDate(value string) (time.Time, error) {
	date, err := time.ParseInLocation("2006-01-02", value, testLocation)
	if err != nil {
		return time.Time{}, model.NewInvalidDateError(value)
	}
	return date, nil
}

func (m *mockAvailabilityService) Availability(ctx context.Context, username string, date time.Time) (*model.Availability, error) {
	if m.availabilityFn != nil {
		return m.availabilityFn(ctx, username, date)
	}
	return &model.Availability{PossibleTimes: []int{}, AvailableTimes: []int{}}, nil
}

func (m *mockAvailabilityService) BlockedDates(ctx context.Context, username string, year int, month time.Month) (*model.BlockedDates, error) {
	if m.blockedDatesFn != nil {
		return m.blockedDatesFn(ctx, username, year, month)
	}
	return &model.BlockedDates{BlockedWeekDays: []int{}, BlockedDates: []int{}}, nil
}

// --- 予約サービス ---

type mockSchedulingService struct {
	scheduleFn func(ctx context.Context, username string, req scheduling.Request) (*model.Scheduling, error)
}

func (m *mockSchedulingService) Schedule(ctx context.Context, username string, req scheduling.Request) (*model.Scheduling, error) {
	if m.scheduleFn != nil {
		return m.scheduleFn(ctx, username, req)
	}
	return &model.Scheduling{ID: "scheduling-1", Date: req.Date, Name: req.Name, Email: req.Email}, nil
}

// --- セッション ---

type mockCurrentUserFinder struct {
	sessions map[string]*auth.SessionAndUser
}

func (m *mockCurrentUserFinder) CurrentUser(ctx context.Context, adapter auth.PersistenceAdapter, token string) (*auth.SessionAndUser, error) {
	if current, ok := m.sessions[token]; ok {
		return current, nil
	}
	return nil, auth.ErrSessionNotFound
}

func testSession(token, userID string) *auth.SessionAndUser {
	return &auth.SessionAndUser{
		Session: auth.AdapterSession{
			SessionToken: token,
			UserID:       userID,
			Expires:      time.Now().Add(24 * time.Hour),
		},
		User: auth.AdapterUser{
			ID:       userID,
			Name:     "Diego Fernandes",
			Username: "diego",
			Email:    "diego@example.com",
		},
	}
}

// --- メトリクス ---

type recordingMetrics struct {
	mu            sync.Mutex
	authCallbacks []string
	bookings      []string
	lookups       int
}

func (m *recordingMetrics) RecordHTTPRequest(string, string, int, time.Duration) {}
func (m *recordingMetrics) RecordCalendarEvent(bool)                             {}
func (m *recordingMetrics) RecordRateLimited(string)                             {}
func (m *recordingMetrics) RecordCleanup(int64, int64)                           {}

func (m *recordingMetrics) RecordAuthCallback(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authCallbacks = append(m.authCallbacks, result)
}

func (m *recordingMetrics) RecordBooking(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings = append(m.bookings, result)
}

func (m *recordingMetrics) RecordAvailabilityLookup(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
}

// --- リクエストヘルパー ---

// withURLParams はchiのURLパラメータをリクエストに設定する。
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
