// Package calendar はホストのGoogleカレンダーに予約イベントを作成する。
package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/ignitecall/internal/model"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	providerGoogle  = "google"
	primaryCalendar = "primary"
)

// ErrNoLinkedAccount はホストにGoogleアカウントが連携されていない場合のエラー。
var ErrNoLinkedAccount = errors.New("host has no linked google account")

// AccountStore はホストのOAuthトークンの読み書きインターフェース。
type AccountStore interface {
	FindByUserAndProvider(ctx context.Context, userID, provider string) (*model.Account, error)
	UpdateTokens(ctx context.Context, id string, accessToken, refreshToken *string, expiresAt *int64) error
}

// TokenSourceFactory は保存済みトークンから自動更新付きのTokenSourceを生成する。
type TokenSourceFactory interface {
	TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource
}

// Event は作成するイベントの内容。
type Event struct {
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	AttendeeName  string
	AttendeeEmail string
}

// Client はGoogle Calendar APIのクライアント。
type Client struct {
	accounts    AccountStore
	tokens      TokenSourceFactory
	opts        []option.ClientOption
	logger      *slog.Logger
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewClient はClientを生成する。optsはテストでエンドポイントを差し替えるために使う。
func NewClient(accounts AccountStore, tokens TokenSourceFactory, logger *slog.Logger, opts ...option.ClientOption) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		accounts:    accounts,
		tokens:      tokens,
		opts:        opts,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		sleep:       sleepContext,
	}
}

// CreateEvent はホストのprimaryカレンダーにGoogle Meet付きのイベントを作成し、イベントIDを返す。
// トークンが更新された場合は作成の成否にかかわらず更新後のトークンをアカウントに保存する。
func (c *Client) CreateEvent(ctx context.Context, hostUserID string, ev Event) (string, error) {
	account, err := c.accounts.FindByUserAndProvider(ctx, hostUserID, providerGoogle)
	if err != nil {
		return "", fmt.Errorf("failed to find google account: %w", err)
	}
	if account == nil || account.AccessToken == nil {
		return "", ErrNoLinkedAccount
	}

	stored := storedToken(account)
	source := oauth2.ReuseTokenSource(stored, c.tokens.TokenSource(ctx, stored))

	opts := append([]option.ClientOption{option.WithTokenSource(source)}, c.opts...)
	service, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create calendar service: %w", err)
	}

	created, err := c.insert(ctx, service, buildEvent(ev))
	c.persistRefreshedToken(ctx, account, source)
	if err != nil {
		return "", err
	}

	return created.Id, nil
}

// insert はイベントを作成する。429/5xxとネットワークエラーは指数バックオフで再試行する。
// 再試行でも同じイベント（同じMeet作成リクエストID）を送る。
func (c *Client) insert(ctx context.Context, service *gcal.Service, event *gcal.Event) (*gcal.Event, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt - 1)
			c.logger.Warn("カレンダーイベントの作成を再試行します",
				slog.Int("attempt", attempt+1),
				slog.Duration("delay", delay),
				slog.String("error", lastErr.Error()),
			)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("failed to insert calendar event: %w", errors.Join(lastErr, err))
			}
		}

		created, err := service.Events.Insert(primaryCalendar, event).
			ConferenceDataVersion(1).
			SendUpdates("all").
			Context(ctx).
			Do()
		if err == nil {
			return created, nil
		}
		lastErr = err
		if classifyError(err) == classStop {
			break
		}
	}
	return nil, fmt.Errorf("failed to insert calendar event: %w", lastErr)
}

func buildEvent(ev Event) *gcal.Event {
	return &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: ev.End.Format(time.RFC3339)},
		Attendees: []*gcal.EventAttendee{
			{Email: ev.AttendeeEmail, DisplayName: ev.AttendeeName},
		},
		ConferenceData: &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId:             uuid.New().String(),
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}
}

func storedToken(account *model.Account) *oauth2.Token {
	token := &oauth2.Token{AccessToken: *account.AccessToken}
	if account.RefreshToken != nil {
		token.RefreshToken = *account.RefreshToken
	}
	if account.TokenType != nil {
		token.TokenType = *account.TokenType
	}
	if account.ExpiresAt != nil {
		token.Expiry = time.Unix(*account.ExpiresAt, 0)
	}
	return token
}

// persistRefreshedToken はアクセストークンが変わっていればアカウントに書き戻す。
// 保存の失敗はログに残すだけでイベント作成の結果には影響しない。
func (c *Client) persistRefreshedToken(ctx context.Context, account *model.Account, source oauth2.TokenSource) {
	current, err := source.Token()
	if err != nil || current.AccessToken == *account.AccessToken {
		return
	}

	var refresh *string
	if current.RefreshToken != "" {
		refresh = &current.RefreshToken
	}
	var expiresAt *int64
	if !current.Expiry.IsZero() {
		v := current.Expiry.Unix()
		expiresAt = &v
	}

	if err := c.accounts.UpdateTokens(ctx, account.ID, &current.AccessToken, refresh, expiresAt); err != nil {
		c.logger.Warn("更新されたトークンの保存に失敗しました",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	c.logger.Info("更新されたトークンを保存しました", slog.String("account_id", account.ID))
}
