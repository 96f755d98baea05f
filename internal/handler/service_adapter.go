package handler

import (
	"time"

	"github.com/hitoshi/ignitecall/internal/auth"
	"github.com/hitoshi/ignitecall/internal/model"
)

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Bio       string    `json:"bio"`
	Email     string    `json:"email,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// timeIntervalResponse は受付時間帯のAPIレスポンス。
type timeIntervalResponse struct {
	ID                 string `json:"id"`
	WeekDay            int    `json:"weekDay"`
	TimeStartInMinutes int    `json:"startTimeInMinutes"`
	TimeEndInMinutes   int    `json:"endTimeInMinutes"`
}

// schedulingResponse は予約のAPIレスポンス。
type schedulingResponse struct {
	ID           string    `json:"id"`
	Date         time.Time `json:"date"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Observations string    `json:"observations"`
}

// toUserResponse はドメインのUserをhandlerのレスポンス型に変換する。
func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Username:  u.Username,
		Bio:       u.Bio,
		Email:     u.EmailOrEmpty(),
		AvatarURL: u.AvatarURLOrEmpty(),
		CreatedAt: u.CreatedAt,
	}
}

// toTimeIntervalResponses は受付時間帯の一覧を変換する。空でも空配列を返す。
func toTimeIntervalResponses(intervals []model.TimeInterval) []timeIntervalResponse {
	results := make([]timeIntervalResponse, len(intervals))
	for i, in := range intervals {
		results[i] = timeIntervalResponse{
			ID:                 in.ID,
			WeekDay:            in.WeekDay,
			TimeStartInMinutes: in.TimeStartInMinutes,
			TimeEndInMinutes:   in.TimeEndInMinutes,
		}
	}
	return results
}

// toSchedulingResponse はドメインのSchedulingを変換する。
func toSchedulingResponse(s *model.Scheduling, loc *time.Location) schedulingResponse {
	return schedulingResponse{
		ID:           s.ID,
		Date:         s.Date.In(loc),
		Name:         s.Name,
		Email:        s.Email,
		Observations: s.Observations,
	}
}

// toSessionResponse は認証済みセッションを変換する。
func toSessionResponse(current *auth.SessionAndUser) sessionResponse {
	return sessionResponse{
		User: sessionUserResponse{
			ID:        current.User.ID,
			Name:      current.User.Name,
			Username:  current.User.Username,
			Email:     current.User.Email,
			AvatarURL: current.User.AvatarURL,
		},
		Expires: current.Session.Expires,
	}
}
