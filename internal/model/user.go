// Package model はドメインモデルを定義する。
package model

// User はプランナーを利用するユーザーを表す。
// JSONタグは永続化される文書のフィールド名と一致させる。
type User struct {
	ID           string `json:"user_id"`
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
	Description  string `json:"description"`
	IsAdmin      bool   `json:"is_admin"`
	Password     string `json:"password"` // ハッシュ済みパスワード
	CreationTime string `json:"creation_time"`
}

// Public はパスワードハッシュを除いたユーザー情報を返す。
func (u User) Public() UserView {
	return UserView{
		ID:           u.ID,
		Name:         u.Name,
		DisplayName:  u.DisplayName,
		Description:  u.Description,
		IsAdmin:      u.IsAdmin,
		CreationTime: u.CreationTime,
	}
}

// UserView はAPIレスポンスに載せるユーザー情報。
type UserView struct {
	ID           string `json:"user_id"`
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
	Description  string `json:"description"`
	IsAdmin      bool   `json:"is_admin"`
	CreationTime string `json:"creation_time"`
}

// Token はユーザーのログインセッションを表す。
// ユーザーごとに有効なトークンは常に1件のみ。
type Token struct {
	UserID    string `json:"user_id"`
	Token     string `json:"token"`
	CreatedAt string `json:"created_at"`
}
