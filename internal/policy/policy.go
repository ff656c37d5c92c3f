// Package policy は操作ごとの認可規則を提供する。
//
// 判定はすべて純粋関数で、拒否理由に関わらず同一のDENIEDエラーを返す。
package policy

import "github.com/hitoshi/planner/internal/model"

// Actor は操作を行うユーザーを表す。
// 境界層でトークンから解決され、各サービスの操作に渡される。
type Actor struct {
	UserID  string
	IsAdmin bool
}

// ActorOf はユーザーレコードからActorを生成する。
func ActorOf(u *model.User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{UserID: u.ID, IsAdmin: u.IsAdmin}
}

// Authenticated はActorが認証済みユーザーかどうかを返す。
func (a Actor) Authenticated() bool {
	return a.UserID != ""
}

// RequireAuthenticated は未認証のActorに対してUNAUTHORIZEDを返す。
func RequireAuthenticated(a Actor) error {
	if !a.Authenticated() {
		return model.NewUnauthorizedError()
	}
	return nil
}

// RequireAdmin は管理者以外に対してDENIEDを返す。
func RequireAdmin(a Actor) error {
	if err := RequireAuthenticated(a); err != nil {
		return err
	}
	if !a.IsAdmin {
		return model.NewDeniedError()
	}
	return nil
}

// CanViewUser は管理者または本人であればtrueを返す。
func CanViewUser(a Actor, userID string) bool {
	return a.Authenticated() && (a.IsAdmin || a.UserID == userID)
}

// RequireSelfOrAdmin は管理者でも本人でもない場合にDENIEDを返す。
func RequireSelfOrAdmin(a Actor, userID string) error {
	if err := RequireAuthenticated(a); err != nil {
		return err
	}
	if !CanViewUser(a, userID) {
		return model.NewDeniedError()
	}
	return nil
}

// CanViewTeam は管理者またはチームメンバーであればtrueを返す。
func CanViewTeam(a Actor, members []string) bool {
	return a.Authenticated() && (a.IsAdmin || IsMember(a.UserID, members))
}

// RequireTeamViewer は管理者でもメンバーでもない場合にDENIEDを返す。
func RequireTeamViewer(a Actor, members []string) error {
	if err := RequireAuthenticated(a); err != nil {
		return err
	}
	if !CanViewTeam(a, members) {
		return model.NewDeniedError()
	}
	return nil
}

// IsMember はuserIDがmembersに含まれるかを返す。
func IsMember(userID string, members []string) bool {
	for _, m := range members {
		if m == userID {
			return true
		}
	}
	return false
}
