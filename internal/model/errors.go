package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, not_found, conflict, auth, precondition, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラーカテゴリ
const (
	CategoryValidation   = "validation"
	CategoryNotFound     = "not_found"
	CategoryConflict     = "conflict"
	CategoryAuth         = "auth"
	CategoryPrecondition = "precondition"
	CategorySystem       = "system"
)

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeInvalidStatus        = "INVALID_STATUS"
	ErrCodeUsernameImmutable    = "USERNAME_IMMUTABLE"
	ErrCodeAssigneeNotInTeam    = "ASSIGNEE_NOT_IN_TEAM"
	ErrCodeNotAMember           = "NOT_A_MEMBER"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeAdminNotFound        = "ADMIN_NOT_FOUND"
	ErrCodeTeamNotFound         = "TEAM_NOT_FOUND"
	ErrCodeTeamNotFoundForBoard = "TEAM_NOT_FOUND_FOR_BOARD"
	ErrCodeBoardNotFound        = "BOARD_NOT_FOUND"
	ErrCodeTaskNotFound         = "TASK_NOT_FOUND"
	ErrCodeUsernameExists       = "USERNAME_EXISTS"
	ErrCodeAdminExists          = "ADMIN_EXISTS"
	ErrCodeTeamNameExists       = "TEAM_NAME_EXISTS"
	ErrCodeBoardNameExists      = "BOARD_NAME_EXISTS"
	ErrCodeTaskTitleExists      = "TASK_TITLE_EXISTS"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeDenied               = "DENIED"
	ErrCodeBoardAlreadyClosed   = "BOARD_ALREADY_CLOSED"
	ErrCodeBoardNotClosable     = "BOARD_NOT_CLOSABLE"
	ErrCodeTaskCannotBeAdded    = "TASK_CANNOT_BE_ADDED"
)

// CodeOf はエラーがAPIErrorであればそのコードを返す。それ以外は空文字列を返す。
func CodeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// CategoryOf はエラーがAPIErrorであればそのカテゴリを返す。それ以外は空文字列を返す。
func CategoryOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Category
	}
	return ""
}

// NewValidationError はリクエスト内容の検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  message,
		Category: CategoryValidation,
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidStatusError は許可されていないタスク状態が指定された場合のエラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効なタスク状態です: %s", status),
		Category: CategoryValidation,
		Action:   "状態には OPEN、IN_PROGRESS、COMPLETE のいずれかを指定してください。",
	}
}

// NewUsernameImmutableError はユーザー名の変更を試みた場合のエラーを生成する。
func NewUsernameImmutableError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameImmutable,
		Message:  "ユーザー名は変更できません。",
		Category: CategoryValidation,
		Action:   "表示名のみ変更できます。",
	}
}

// NewAssigneeNotInTeamError は担当者がボードのチームに所属していない場合のエラーを生成する。
func NewAssigneeNotInTeamError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeAssigneeNotInTeam,
		Message:  fmt.Sprintf("担当者がボードのチームに所属していません: %s", userID),
		Category: CategoryValidation,
		Action:   "チームメンバーを担当者に指定してください。",
	}
}

// NewNotAMemberError は除外対象のユーザーがチームメンバーでない場合のエラーを生成する。
func NewNotAMemberError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotAMember,
		Message:  fmt.Sprintf("ユーザーはチームのメンバーではありません: %s", userID),
		Category: CategoryValidation,
		Action:   "チームメンバー一覧を確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("ユーザーが見つかりません: %s", userID),
		Category: CategoryNotFound,
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewAdminNotFoundError はチーム管理者に指定されたユーザーが存在しない場合のエラーを生成する。
func NewAdminNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeAdminNotFound,
		Message:  fmt.Sprintf("管理者に指定されたユーザーが存在しません: %s", userID),
		Category: CategoryNotFound,
		Action:   "既存のユーザーIDを管理者に指定してください。",
	}
}

// NewTeamNotFoundError はチームが見つからない場合のエラーを生成する。
func NewTeamNotFoundError(teamID string) *APIError {
	return &APIError{
		Code:     ErrCodeTeamNotFound,
		Message:  fmt.Sprintf("チームが見つかりません: %s", teamID),
		Category: CategoryNotFound,
		Action:   "チームIDを確認してください。",
	}
}

// NewTeamNotFoundForBoardError はボードの所有チームが存在しない場合のエラーを生成する。
func NewTeamNotFoundForBoardError(boardID string) *APIError {
	return &APIError{
		Code:     ErrCodeTeamNotFoundForBoard,
		Message:  fmt.Sprintf("ボードの所有チームが見つかりません: %s", boardID),
		Category: CategoryNotFound,
		Action:   "管理者に問い合わせてください。",
	}
}

// NewBoardNotFoundError はボードが見つからない場合のエラーを生成する。
func NewBoardNotFoundError(boardID string) *APIError {
	return &APIError{
		Code:     ErrCodeBoardNotFound,
		Message:  fmt.Sprintf("ボードが見つかりません: %s", boardID),
		Category: CategoryNotFound,
		Action:   "ボードIDを確認してください。",
	}
}

// NewTaskNotFoundError はタスクが見つからない場合のエラーを生成する。
func NewTaskNotFoundError(taskID string) *APIError {
	return &APIError{
		Code:     ErrCodeTaskNotFound,
		Message:  fmt.Sprintf("タスクが見つかりません: %s", taskID),
		Category: CategoryNotFound,
		Action:   "タスクIDを確認してください。",
	}
}

// NewUsernameExistsError はユーザー名が重複する場合のエラーを生成する。
func NewUsernameExistsError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeUsernameExists,
		Message:  fmt.Sprintf("ユーザー名は既に使用されています: %s", name),
		Category: CategoryConflict,
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewAdminExistsError は管理者ユーザーが既に存在する場合のエラーを生成する。
func NewAdminExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeAdminExists,
		Message:  "管理者ユーザーは既に存在します。",
		Category: CategoryConflict,
		Action:   "管理者は1名のみ登録できます。",
	}
}

// NewTeamNameExistsError はチーム名が重複する場合のエラーを生成する。
func NewTeamNameExistsError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeTeamNameExists,
		Message:  fmt.Sprintf("チーム名は既に使用されています: %s", name),
		Category: CategoryConflict,
		Action:   "別のチーム名を指定してください。",
	}
}

// NewBoardNameExistsError はチーム内でボード名が重複する場合のエラーを生成する。
func NewBoardNameExistsError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeBoardNameExists,
		Message:  fmt.Sprintf("このチームには同名のボードが既に存在します: %s", name),
		Category: CategoryConflict,
		Action:   "別のボード名を指定してください。",
	}
}

// NewTaskTitleExistsError はボード内でタスク名が重複する場合のエラーを生成する。
func NewTaskTitleExistsError(title string) *APIError {
	return &APIError{
		Code:     ErrCodeTaskTitleExists,
		Message:  fmt.Sprintf("このボードには同名のタスクが既に存在します: %s", title),
		Category: CategoryConflict,
		Action:   "別のタイトルを指定してください。",
	}
}

// NewUnauthorizedError は認証されていないリクエストのエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: CategoryAuth,
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialsError はログイン失敗のエラーを生成する。
// どのフィールドが誤っていたかは明かさない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: CategoryAuth,
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewDeniedError は権限不足のエラーを生成する。
// 拒否理由に関わらず同一の内容を返す。
func NewDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodeDenied,
		Message:  "この操作を行う権限がありません。",
		Category: CategoryAuth,
		Action:   "管理者に問い合わせてください。",
	}
}

// NewBoardAlreadyClosedError はクローズ済みボードを再度クローズしようとした場合のエラーを生成する。
func NewBoardAlreadyClosedError(boardID string) *APIError {
	return &APIError{
		Code:     ErrCodeBoardAlreadyClosed,
		Message:  fmt.Sprintf("ボードは既にクローズされています: %s", boardID),
		Category: CategoryPrecondition,
		Action:   "クローズ済みのボードは再オープンできません。",
	}
}

// NewBoardNotClosableError は未完了タスクが残っているボードをクローズしようとした場合のエラーを生成する。
func NewBoardNotClosableError(incomplete int) *APIError {
	return &APIError{
		Code:     ErrCodeBoardNotClosable,
		Message:  fmt.Sprintf("未完了のタスクが%d件残っているためボードをクローズできません。", incomplete),
		Category: CategoryPrecondition,
		Action:   "すべてのタスクを COMPLETE にしてから再度お試しください。",
	}
}

// NewTaskCannotBeAddedError はOPEN以外のボードにタスクを追加しようとした場合のエラーを生成する。
func NewTaskCannotBeAddedError(boardID string) *APIError {
	return &APIError{
		Code:     ErrCodeTaskCannotBeAdded,
		Message:  fmt.Sprintf("オープン中でないボードにはタスクを追加できません: %s", boardID),
		Category: CategoryPrecondition,
		Action:   "オープン中のボードを指定してください。",
	}
}
