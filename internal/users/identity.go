package users

import (
	"strings"
	"time"
)

// User is a local account that remote tracker identities can map onto.
type User struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	Email     string    `gorm:"column:email;size:320;not null;uniqueIndex"`
	Name      string    `gorm:"column:name;size:320"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (User) TableName() string {
	return "users"
}

// DisplayName is the name shown for a mapped author: the user's name when
// present, else the account email.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Email
}

// IdentityMap links one local user to that user's per-provider tracker
// accounts. A single row carries all three identity fields; the provider tag
// selects which one a lookup matches against.
type IdentityMap struct {
	ID             uint      `gorm:"column:id;primaryKey"`
	UserID         uint      `gorm:"column:user_id;not null;uniqueIndex"`
	GitHubUsername string    `gorm:"column:github_username;size:190;index"`
	GitLabUsername string    `gorm:"column:gitlab_username;size:190;index"`
	JiraAccountID  string    `gorm:"column:jira_account_id;size:190;index"`
	User           *User     `gorm:"foreignKey:UserID"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (IdentityMap) TableName() string {
	return "user_identity_maps"
}

// RemoteAuthor is the resolved identity of a remote comment author. When no
// mapping exists the display name falls back to the remote name and the
// local fields stay null.
type RemoteAuthor struct {
	RemoteName    string  `json:"remote_name"`
	DisplayName   string  `json:"display_name"`
	LocalUserID   *uint   `json:"local_user_id"`
	LocalUserName *string `json:"local_user_name"`
}

// UnmappedAuthor builds the remote-name-only author used whenever no local
// identity can be resolved.
func UnmappedAuthor(remoteName string) RemoteAuthor {
	return RemoteAuthor{RemoteName: remoteName, DisplayName: remoteName}
}
