// File: api/schemas/community.go
package schemas

// CommunityAccessInfo describes what one navigation attempt learned about a
// community. It is produced fresh on every attempt and not persisted; the
// optional fields stay zero when the page did not expose them.
type CommunityAccessInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"member_count,omitempty"`
	Description string `json:"description,omitempty"`
	IsPrivate   bool   `json:"is_private"`
	CanAccess   bool   `json:"can_access"`
}
