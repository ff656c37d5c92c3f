package handler

import (
	"fmt"
	"unicode/utf8"

	"github.com/hitoshi/planner/internal/model"
	"github.com/hitoshi/planner/internal/security"
)

// フィールド長の上限と下限。
const (
	maxNameLen        = 64
	maxDescriptionLen = 128
	minPasswordLen    = 6
	minBoardTextLen   = 4
	maxMemberIDs      = 50
)

func checkRequired(field, v string) *model.APIError {
	if v == "" {
		return model.NewValidationError(fmt.Sprintf("%sは必須です。", field))
	}
	return nil
}

func checkMaxLen(field, v string, max int) *model.APIError {
	if utf8.RuneCountInString(v) > max {
		return model.NewValidationError(fmt.Sprintf("%sは%d文字以内で入力してください。", field, max))
	}
	return nil
}

func checkMinLen(field, v string, min int) *model.APIError {
	if utf8.RuneCountInString(v) < min {
		return model.NewValidationError(fmt.Sprintf("%sは%d文字以上で入力してください。", field, min))
	}
	return nil
}

func checkMemberIDs(ids []string) *model.APIError {
	if len(ids) == 0 {
		return model.NewValidationError("usersは1件以上指定してください。")
	}
	if len(ids) > maxMemberIDs {
		return model.NewValidationError(fmt.Sprintf("usersは%d件以内で指定してください。", maxMemberIDs))
	}
	for _, id := range ids {
		if id == "" {
			return model.NewValidationError("usersに空のIDが含まれています。")
		}
	}
	return nil
}

// firstError は最初に見つかったエラーを返す。
func firstError(errs ...*model.APIError) *model.APIError {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// loginRequest はログインのリクエストボディ。
type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// 登録時と同じ規則で名前を正規化する。パスワードはそのまま使う。
func (r *loginRequest) sanitize(s security.TextSanitizer) {
	r.Name = s.Sanitize(r.Name)
}

func (r *loginRequest) Validate() *model.APIError {
	return firstError(
		checkRequired("name", r.Name),
		checkMaxLen("name", r.Name, maxNameLen),
		checkMinLen("password", r.Password, minPasswordLen),
	)
}

// createUserRequest はユーザー登録のリクエストボディ。
type createUserRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Description string `json:"description"`
	IsAdmin     bool   `json:"is_admin"`
}

func (r *createUserRequest) sanitize(s security.TextSanitizer) {
	r.Name = s.Sanitize(r.Name)
	r.DisplayName = s.Sanitize(r.DisplayName)
	r.Description = s.Sanitize(r.Description)
}

func (r *createUserRequest) Validate() *model.APIError {
	return firstError(
		checkRequired("name", r.Name),
		checkMaxLen("name", r.Name, maxNameLen),
		checkRequired("display_name", r.DisplayName),
		checkMaxLen("display_name", r.DisplayName, maxNameLen),
		checkMinLen("password", r.Password, minPasswordLen),
		checkMaxLen("description", r.Description, maxDescriptionLen),
	)
}

// updateUserRequest はユーザー更新のリクエストボディ。
// display_nameを省略した場合は変更しない。
type updateUserRequest struct {
	Name        string  `json:"name"`
	DisplayName *string `json:"display_name"`
}

func (r *updateUserRequest) sanitize(s security.TextSanitizer) {
	r.Name = s.Sanitize(r.Name)
	if r.DisplayName != nil {
		v := s.Sanitize(*r.DisplayName)
		r.DisplayName = &v
	}
}

func (r *updateUserRequest) Validate() *model.APIError {
	if err := checkMaxLen("name", r.Name, maxNameLen); err != nil {
		return err
	}
	if r.DisplayName != nil {
		return firstError(
			checkRequired("display_name", *r.DisplayName),
			checkMaxLen("display_name", *r.DisplayName, maxNameLen),
		)
	}
	return nil
}

// teamRequest はチーム作成・更新のリクエストボディ。
type teamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Admin       string `json:"admin"`
}

func (r *teamRequest) sanitize(s security.TextSanitizer) {
	r.Name = s.Sanitize(r.Name)
	r.Description = s.Sanitize(r.Description)
}

func (r *teamRequest) Validate() *model.APIError {
	return firstError(
		checkRequired("name", r.Name),
		checkMaxLen("name", r.Name, maxNameLen),
		checkRequired("description", r.Description),
		checkMaxLen("description", r.Description, maxDescriptionLen),
		checkRequired("admin", r.Admin),
	)
}

// membersRequest はメンバー追加・削除のリクエストボディ。
type membersRequest struct {
	Users []string `json:"users"`
}

func (r *membersRequest) Validate() *model.APIError {
	return checkMemberIDs(r.Users)
}

// createBoardRequest はボード作成のリクエストボディ。
type createBoardRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	TeamID       string `json:"team_id"`
	CreationTime string `json:"creation_time"`
}

func (r *createBoardRequest) sanitize(s security.TextSanitizer) {
	r.Name = s.Sanitize(r.Name)
	r.Description = s.Sanitize(r.Description)
}

func (r *createBoardRequest) Validate() *model.APIError {
	return firstError(
		checkMinLen("name", r.Name, minBoardTextLen),
		checkMaxLen("name", r.Name, maxNameLen),
		checkMinLen("description", r.Description, minBoardTextLen),
		checkMaxLen("description", r.Description, maxDescriptionLen),
		checkRequired("team_id", r.TeamID),
	)
}

// addTaskRequest はタスク追加のリクエストボディ。
type addTaskRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	UserID       string `json:"user_id"`
	CreationTime string `json:"creation_time"`
}

func (r *addTaskRequest) sanitize(s security.TextSanitizer) {
	r.Title = s.Sanitize(r.Title)
	r.Description = s.Sanitize(r.Description)
}

func (r *addTaskRequest) Validate() *model.APIError {
	return firstError(
		checkRequired("title", r.Title),
		checkMaxLen("title", r.Title, maxNameLen),
		checkRequired("description", r.Description),
		checkMaxLen("description", r.Description, maxDescriptionLen),
		checkRequired("user_id", r.UserID),
	)
}

// updateTaskStatusRequest はタスク状態更新のリクエストボディ。
type updateTaskStatusRequest struct {
	Status model.TaskStatus `json:"status"`
}

func (r *updateTaskStatusRequest) Validate() *model.APIError {
	if !r.Status.Valid() {
		return model.NewInvalidStatusError(string(r.Status))
	}
	return nil
}
