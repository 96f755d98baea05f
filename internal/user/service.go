// Package user はユーザー登録、プロフィール、予約受付時間帯、退会のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hitoshi/ignitecall/internal/model"
	"github.com/hitoshi/ignitecall/internal/repository"
	"github.com/hitoshi/ignitecall/internal/security"
)

const (
	minUsernameLength = 3
	minNameLength     = 3
	// MaxBioRunes は自己紹介文の最大文字数。
	MaxBioRunes = 500
	// minIntervalMinutes は受付時間帯の最小幅（分）。
	minIntervalMinutes = 60
	minutesPerDay      = 24 * 60
)

var usernamePattern = regexp.MustCompile(`^[a-z\-]+$`)

// SchedulingDeleter は予約の一括削除インターフェース。
type SchedulingDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo     repository.UserRepository
	sessionRepo  repository.SessionRepository
	intervalRepo repository.TimeIntervalRepository
	schedDeleter SchedulingDeleter
	sanitizer    security.TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	intervalRepo repository.TimeIntervalRepository,
	schedDeleter SchedulingDeleter,
	sanitizer security.TextSanitizer,
) *Service {
	return &Service{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		intervalRepo: intervalRepo,
		schedDeleter: schedDeleter,
		sanitizer:    sanitizer,
	}
}

// NormalizeUsername はユーザー名を小文字化し前後の空白を除く。
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidateUsername はユーザー名の形式を検証する。
func ValidateUsername(username string) error {
	if utf8.RuneCountInString(username) < minUsernameLength || !usernamePattern.MatchString(username) {
		return model.NewInvalidUsernameError()
	}
	return nil
}

// Register はユーザー名を確保して仮登録ユーザーを作成する。
// カレンダー接続の完了まではメールアドレスを持たない。
func (s *Service) Register(ctx context.Context, name, username string) (*model.User, error) {
	username = NormalizeUsername(username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < minNameLength {
		return nil, model.NewInvalidNameError()
	}

	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewUsernameTakenError()
	}

	user := &model.User{
		ID:       uuid.New().String(),
		Username: username,
		Name:     name,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// 存在確認と作成の間に同名ユーザーが作られた場合
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, model.NewUsernameTakenError()
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("ユーザー名を確保しました",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// FindByUsername は公開ページ用にユーザーを取得する。
// 見つからない場合はUSER_NOT_FOUNDを返す。
func (s *Service) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, NormalizeUsername(username))
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateProfile は自己紹介文を更新する。HTMLタグは除去して保存する。
func (s *Service) UpdateProfile(ctx context.Context, userID, bio string) (string, error) {
	clean := s.sanitizer.Sanitize(bio)
	if utf8.RuneCountInString(clean) > MaxBioRunes {
		return "", model.NewInvalidBioError(MaxBioRunes)
	}

	if err := s.userRepo.UpdateBio(ctx, userID, clean); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", model.NewUserNotFoundError()
		}
		return "", fmt.Errorf("自己紹介の更新に失敗しました: %w", err)
	}
	return clean, nil
}

// IntervalInput は受付時間帯の入力値。
type IntervalInput struct {
	WeekDay      int `json:"weekDay"`
	StartMinutes int `json:"startTimeInMinutes"`
	EndMinutes   int `json:"endTimeInMinutes"`
}

// validateIntervals は受付時間帯の入力を検証する。
func validateIntervals(inputs []IntervalInput) error {
	if len(inputs) == 0 {
		return model.NewInvalidTimeIntervalError("selecione pelo menos um dia da semana")
	}

	seen := make(map[int]bool, len(inputs))
	for _, in := range inputs {
		if in.WeekDay < 0 || in.WeekDay > 6 {
			return model.NewInvalidTimeIntervalError(fmt.Sprintf("dia da semana %d inexistente", in.WeekDay))
		}
		if seen[in.WeekDay] {
			return model.NewInvalidTimeIntervalError(fmt.Sprintf("dia da semana %d repetido", in.WeekDay))
		}
		seen[in.WeekDay] = true

		if in.StartMinutes < 0 || in.EndMinutes > minutesPerDay {
			return model.NewInvalidTimeIntervalError("horário fora do dia")
		}
		if in.EndMinutes-in.StartMinutes < minIntervalMinutes {
			return model.NewInvalidTimeIntervalError("o horário de término deve ser pelo menos 1h distante do início")
		}
	}
	return nil
}

// SetTimeIntervals はユーザーの受付時間帯を全置換する。
func (s *Service) SetTimeIntervals(ctx context.Context, userID string, inputs []IntervalInput) ([]model.TimeInterval, error) {
	if err := validateIntervals(inputs); err != nil {
		return nil, err
	}

	intervals := make([]model.TimeInterval, 0, len(inputs))
	for _, in := range inputs {
		intervals = append(intervals, model.TimeInterval{
			UserID:             userID,
			WeekDay:            in.WeekDay,
			TimeStartInMinutes: in.StartMinutes,
			TimeEndInMinutes:   in.EndMinutes,
		})
	}

	if err := s.intervalRepo.ReplaceForUser(ctx, userID, intervals); err != nil {
		return nil, fmt.Errorf("受付時間帯の保存に失敗しました: %w", err)
	}

	slog.Info("受付時間帯を更新しました",
		slog.String("user_id", userID),
		slog.Int("count", len(intervals)),
	)

	return intervals, nil
}

// TimeIntervals はユーザーの受付時間帯を返す。
func (s *Service) TimeIntervals(ctx context.Context, userID string) ([]model.TimeInterval, error) {
	intervals, err := s.intervalRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("受付時間帯の取得に失敗しました: %w", err)
	}
	return intervals, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: sessions → schedulings → user_time_intervals → user（+ CASCADE: accounts）
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 2. 予約を削除
	if s.schedDeleter != nil {
		if err := s.schedDeleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("予約の削除に失敗しました: %w", err)
		}
	}

	// 3. 受付時間帯を削除
	if s.intervalRepo != nil {
		if err := s.intervalRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("受付時間帯の削除に失敗しました: %w", err)
		}
	}

	// 4. ユーザーを削除（accountsはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
