package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/ignitecall/internal/model"
)

// --- モック定義 ---

type mockOAuthProvider struct {
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*OAuthUserInfo, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, nil
}

var _ OAuthProvider = (*mockOAuthProvider)(nil)

func googleUser(scope string) *mockOAuthProvider {
	return &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderUserID: "google-user-123",
				Email:          "test@example.com",
				Name:           "Google Name",
				AvatarURL:      "https://example.com/a.png",
				Provider:       ProviderGoogle,
				Token: TokenInfo{
					AccessToken:  "access",
					RefreshToken: "refresh",
					Scope:        scope,
					Expiry:       time.Now().Add(time.Hour),
				},
			}, nil
		},
	}
}

// --- テスト ---

func TestGetLoginURL_ReturnsOAuthURL(t *testing.T) {
	provider := &mockOAuthProvider{
		getLoginURLFn: func(state string) string {
			return "https://accounts.google.com/o/oauth2/auth?state=" + state
		},
	}
	svc := NewService(provider, ServiceConfig{SessionMaxAge: 86400})

	expected := "https://accounts.google.com/o/oauth2/auth?state=test-state"
	if url := svc.GetLoginURL("test-state"); url != expected {
		t.Errorf("GetLoginURL() = %q, want %q", url, expected)
	}
}

func TestHandleCallback_PendingUser_CompletesRegistrationAndLinks(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(&model.User{ID: "pending-1", Username: "diego", Name: "Diego"})
	adapter := NewAdapter(store, httptest.NewRecorder(), requestWithPendingCookie("pending-1"))
	svc := NewService(googleUser("openid email "+CalendarScope), ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.HandleCallback(ctx, adapter, "code")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if session.UserID != "pending-1" {
		t.Errorf("session userID = %q, want pending-1", session.UserID)
	}
	if len(session.SessionToken) != 64 {
		t.Errorf("session token length = %d, want 64", len(session.SessionToken))
	}
	if !session.Expires.After(time.Now().Add(23 * time.Hour)) {
		t.Errorf("session expires = %v, want about 24h ahead", session.Expires)
	}

	linked, _ := adapter.GetUserByAccount(ctx, ProviderGoogle, "google-user-123")
	if linked == nil || linked.ID != "pending-1" || linked.Email != "test@example.com" {
		t.Errorf("linked user = %+v", linked)
	}
}

func TestHandleCallback_WithoutPendingCookie_Fails(t *testing.T) {
	adapter := NewAdapter(newMemoryStore(), httptest.NewRecorder(), requestWithPendingCookie(""))
	svc := NewService(googleUser(CalendarScope), ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.HandleCallback(context.Background(), adapter, "code")
	if !errors.Is(err, ErrPendingUserNotFound) {
		t.Errorf("HandleCallback() error = %v, want ErrPendingUserNotFound", err)
	}
}

func TestHandleCallback_MissingCalendarScope_Denied(t *testing.T) {
	store := newMemoryStore(&model.User{ID: "pending-1", Username: "diego", Name: "Diego"})
	adapter := NewAdapter(store, httptest.NewRecorder(), requestWithPendingCookie("pending-1"))
	svc := NewService(googleUser("openid email profile"), ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.HandleCallback(context.Background(), adapter, "code")
	if !errors.Is(err, ErrCalendarPermissionDenied) {
		t.Errorf("HandleCallback() error = %v, want ErrCalendarPermissionDenied", err)
	}
	if u, _ := adapter.GetUserByEmail(context.Background(), "test@example.com"); u != nil {
		t.Error("user should not be completed when permission is denied")
	}
}

func TestHandleCallback_ExistingAccount_KeepsNameAndRefreshesTokens(t *testing.T) {
	ctx := context.Background()
	email := "old@example.com"
	store := newMemoryStore(&model.User{ID: "user-1", Username: "diego", Name: "Registered Name", Email: &email})
	adapter := NewAdapter(store, httptest.NewRecorder(), requestWithPendingCookie(""))
	if err := adapter.LinkAccount(ctx, AdapterAccount{
		UserID: "user-1", Type: "oauth", Provider: ProviderGoogle, ProviderAccountID: "google-user-123",
		AccessToken: "old-access", RefreshToken: "old-refresh",
	}); err != nil {
		t.Fatalf("LinkAccount() error = %v", err)
	}

	svc := NewService(googleUser(CalendarScope), ServiceConfig{SessionMaxAge: 86400})
	session, err := svc.HandleCallback(ctx, adapter, "code")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if session.UserID != "user-1" {
		t.Errorf("session userID = %q, want user-1", session.UserID)
	}

	user, _ := adapter.GetUser(ctx, "user-1")
	if user.Name != "Registered Name" {
		t.Errorf("name = %q, want registered name kept", user.Name)
	}
	if user.Email != "test@example.com" {
		t.Errorf("email = %q, want refreshed", user.Email)
	}
	account, _ := store.Accounts.FindByUserAndProvider(ctx, "user-1", ProviderGoogle)
	if *account.RefreshToken != "refresh" {
		t.Errorf("refresh token = %q, want refresh", *account.RefreshToken)
	}
}

func TestHandleCallback_SameEmail_LinksToExistingUser(t *testing.T) {
	ctx := context.Background()
	email := "test@example.com"
	store := newMemoryStore(&model.User{ID: "user-by-email", Username: "mail", Name: "Mail", Email: &email})
	adapter := NewAdapter(store, httptest.NewRecorder(), requestWithPendingCookie(""))
	svc := NewService(googleUser(CalendarScope), ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.HandleCallback(ctx, adapter, "code")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if session.UserID != "user-by-email" {
		t.Errorf("session userID = %q, want user-by-email", session.UserID)
	}
}

func TestHandleCallback_ExchangeError(t *testing.T) {
	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return nil, errors.New("invalid code")
		},
	}
	svc := NewService(provider, ServiceConfig{SessionMaxAge: 86400})
	adapter := NewAdapter(newMemoryStore(), httptest.NewRecorder(), requestWithPendingCookie(""))

	if _, err := svc.HandleCallback(context.Background(), adapter, "bad"); err == nil {
		t.Fatal("expected error")
	}
}

func TestCurrentUser_RollingSession(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		expires     time.Time
		wantErr     error
		wantExtends bool
	}{
		{"十分な残り期間", now.Add(20 * time.Hour), nil, false},
		{"残り半分未満で延長", now.Add(2 * time.Hour), nil, true},
		{"期限切れ", now.Add(-time.Minute), ErrSessionNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore(&model.User{ID: "user-1", Username: "roll", Name: "Roll"})
			adapter := NewAdapter(store, httptest.NewRecorder(), requestWithPendingCookie(""))
			adapter.CreateSession(ctx, AdapterSession{SessionToken: "tok", UserID: "user-1", Expires: tt.expires})

			svc := NewService(&mockOAuthProvider{}, ServiceConfig{SessionMaxAge: 86400})
			svc.now = func() time.Time { return now }

			got, err := svc.CurrentUser(ctx, adapter, "tok")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CurrentUser() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if got.User.ID != "user-1" {
				t.Errorf("user id = %q", got.User.ID)
			}
			extended := got.Session.Expires.Equal(now.Add(24 * time.Hour))
			if extended != tt.wantExtends {
				t.Errorf("expires = %v, extended = %v, want %v", got.Session.Expires, extended, tt.wantExtends)
			}
		})
	}
}

func TestCurrentUser_UnknownOrEmptyToken(t *testing.T) {
	svc := NewService(&mockOAuthProvider{}, ServiceConfig{SessionMaxAge: 86400})
	adapter := NewAdapter(newMemoryStore(), httptest.NewRecorder(), requestWithPendingCookie(""))

	for _, token := range []string{"", "unknown"} {
		if _, err := svc.CurrentUser(context.Background(), adapter, token); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("CurrentUser(%q) error = %v, want ErrSessionNotFound", token, err)
		}
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(&model.User{ID: "user-1", Username: "bye", Name: "Bye"})
	adapter := NewAdapter(store, httptest.NewRecorder(), requestWithPendingCookie(""))
	adapter.CreateSession(ctx, AdapterSession{SessionToken: "tok", UserID: "user-1", Expires: time.Now().Add(time.Hour)})

	svc := NewService(&mockOAuthProvider{}, ServiceConfig{SessionMaxAge: 86400})
	if err := svc.Logout(ctx, adapter, "tok"); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if s, _ := adapter.GetSessionAndUser(ctx, "tok"); s != nil {
		t.Error("session should be deleted")
	}
	if err := svc.Logout(ctx, adapter, ""); err == nil {
		t.Error("Logout with empty token should fail")
	}
}
