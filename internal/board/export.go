package board

import (
	"fmt"
	"strings"

	"github.com/hitoshi/planner/internal/model"
)

const unknownAssignee = "Unknown"

// RenderSummary はボードとそのタスクのテキスト概要を生成する。
// 担当者は表示名で表し、解決できない場合は "Unknown" とする。
func RenderSummary(b model.Board, tasks []model.Task, users []model.User) []byte {
	displayNames := make(map[string]string, len(users))
	for _, u := range users {
		displayNames[u.ID] = u.DisplayName
	}

	lines := []string{
		"Board: " + b.Name,
		"Description: " + b.Description,
		"Created on: " + b.CreationTime,
		"Status: " + string(b.Status),
		strings.Repeat("-", 40),
		"Tasks:",
	}
	for _, t := range tasks {
		if t.BoardID != b.ID {
			continue
		}
		assignee, ok := displayNames[t.UserID]
		if !ok {
			assignee = unknownAssignee
		}
		lines = append(lines,
			fmt.Sprintf("  • Title: %s", t.Title),
			fmt.Sprintf("    Assigned to: %s", assignee),
			fmt.Sprintf("    Status: %s", t.Status),
			fmt.Sprintf("    Created: %s", t.CreationTime),
			"",
		)
	}

	return []byte(strings.Join(lines, "\n"))
}
