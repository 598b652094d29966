package model

// TimeEntry is a single logged span of work.
// Date is a local "YYYY-MM-DD" key; Start and End are optional "HH:MM" or
// "HH:MM:SS" clock strings; Duration is a human string such as "2h 15m".
type TimeEntry struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id,omitempty"`
	Date        string `json:"date"`
	Start       string `json:"start_time,omitempty"`
	End         string `json:"end_time,omitempty"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
	ProjectID   string `json:"project_id,omitempty"`
	Project     string `json:"project,omitempty"`
}

// HasClockRange reports whether both start and end times are set.
func (e TimeEntry) HasClockRange() bool {
	return e.Start != "" && e.End != ""
}

// Project groups entries inside a workspace.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WorkspaceID string `json:"workspace_id,omitempty"`
}

// Role values for User.Role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the user has the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// EntryFilter narrows FetchEntries. From and To are inclusive date keys;
// empty fields do not filter.
type EntryFilter struct {
	UserID    string
	From      string
	To        string
	ProjectID string
	Limit     int
	Offset    int
}

// EntryPatch holds the fields to change on an entry; nil fields are left alone.
type EntryPatch struct {
	Date        *string `json:"date,omitempty"`
	Start       *string `json:"start_time,omitempty"`
	End         *string `json:"end_time,omitempty"`
	Duration    *string `json:"duration,omitempty"`
	Description *string `json:"description,omitempty"`
	ProjectID   *string `json:"project_id,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p EntryPatch) Empty() bool {
	return p.Date == nil && p.Start == nil && p.End == nil &&
		p.Duration == nil && p.Description == nil && p.ProjectID == nil
}

// Apply returns e with the patch fields applied.
func (p EntryPatch) Apply(e TimeEntry) TimeEntry {
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Start != nil {
		e.Start = *p.Start
	}
	if p.End != nil {
		e.End = *p.End
	}
	if p.Duration != nil {
		e.Duration = *p.Duration
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.ProjectID != nil {
		e.ProjectID = *p.ProjectID
	}
	return e
}
