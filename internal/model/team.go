package model

// Team はユーザーの集合とボードの所有単位を表す。
type Team struct {
	ID           string   `json:"team_id"`
	Name         string   `json:"team_name"`
	Description  string   `json:"description"`
	CreationTime string   `json:"creation_time"`
	Admin        string   `json:"admin"`
	CreatedBy    string   `json:"created_by"`
	Members      []string `json:"members"`
}

// HasMember は指定ユーザーがチームのメンバーかどうかを返す。
func (t Team) HasMember(userID string) bool {
	for _, m := range t.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// TeamMember はチームメンバー一覧の1要素。
type TeamMember struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// TeamSummary はユーザーの所属チーム一覧の1要素。
type TeamSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
