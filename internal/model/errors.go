// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, schedule, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeUsernameTaken       = "USERNAME_TAKEN"
	ErrCodeInvalidUsername     = "INVALID_USERNAME"
	ErrCodeInvalidName         = "INVALID_NAME"
	ErrCodeInvalidBio          = "INVALID_BIO"
	ErrCodeInvalidTimeInterval = "INVALID_TIME_INTERVAL"
	ErrCodeInvalidDate         = "INVALID_DATE"
	ErrCodeDateInPast          = "DATE_IN_PAST"
	ErrCodeTimeConflict        = "TIME_CONFLICT"
	ErrCodeInvalidSchedule     = "INVALID_SCHEDULE"
)

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "Usuário não encontrado.",
		Category: "auth",
		Action:   "Verifique o nome de usuário informado.",
	}
}

// NewUsernameTakenError はユーザー名が既に使われている場合のエラーを生成する。
func NewUsernameTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  "Nome de usuário já está em uso.",
		Category: "validation",
		Action:   "Escolha outro nome de usuário.",
	}
}

// NewInvalidUsernameError はユーザー名の形式が不正な場合のエラーを生成する。
func NewInvalidUsernameError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUsername,
		Message:  "O usuário precisa ter pelo menos 3 letras e conter apenas letras e hifens.",
		Category: "validation",
		Action:   "Digite um nome de usuário válido.",
	}
}

// NewInvalidNameError は名前が短すぎる場合のエラーを生成する。
func NewInvalidNameError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidName,
		Message:  "O nome precisa ter pelo menos 3 letras.",
		Category: "validation",
		Action:   "Digite seu nome completo.",
	}
}

// NewInvalidBioError は自己紹介が長すぎる場合のエラーを生成する。
func NewInvalidBioError(maxRunes int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidBio,
		Message:  fmt.Sprintf("A descrição pode ter no máximo %d caracteres.", maxRunes),
		Category: "validation",
		Action:   "Reduza o texto da descrição.",
	}
}

// NewInvalidTimeIntervalError は受付時間帯の指定が不正な場合のエラーを生成する。
func NewInvalidTimeIntervalError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTimeInterval,
		Message:  fmt.Sprintf("Intervalo de tempo inválido: %s", reason),
		Category: "validation",
		Action:   "Selecione ao menos um dia da semana com pelo menos 1 hora de intervalo.",
	}
}

// NewInvalidDateError は日付の形式が不正な場合のエラーを生成する。
func NewInvalidDateError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDate,
		Message:  fmt.Sprintf("Data inválida: %s", value),
		Category: "validation",
		Action:   "Informe a data no formato AAAA-MM-DD.",
	}
}

// NewDateInPastError は過去日時を予約しようとした場合のエラーを生成する。
func NewDateInPastError() *APIError {
	return &APIError{
		Code:     ErrCodeDateInPast,
		Message:  "A data selecionada já passou.",
		Category: "schedule",
		Action:   "Escolha uma data futura.",
	}
}

// NewTimeConflictError は既に予約済みの時刻を予約しようとした場合のエラーを生成する。
func NewTimeConflictError() *APIError {
	return &APIError{
		Code:     ErrCodeTimeConflict,
		Message:  "Já existe um agendamento neste horário.",
		Category: "schedule",
		Action:   "Escolha outro horário disponível.",
	}
}

// NewInvalidScheduleError は予約リクエストの入力値が不正な場合のエラーを生成する。
func NewInvalidScheduleError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSchedule,
		Message:  fmt.Sprintf("Dados do agendamento inválidos: %s", reason),
		Category: "validation",
		Action:   "Revise os dados informados.",
	}
}
