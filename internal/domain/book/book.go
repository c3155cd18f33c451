package book

import "errors"

// Book is the persisted record: the user-supplied key plus enrichment
// metadata fetched at creation time and the owner's personal info.
type Book struct {
	ID       string    `json:"id"`
	Key      string    `json:"key"`
	BookInfo *BookInfo `json:"bookInfo,omitempty"`
	UserInfo UserInfo  `json:"userInfo"`
	// weak reference to the owning user; relation only
	User string `json:"user,omitempty"`
}

type BookInfo struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CoverKey    string     `json:"coverKey,omitempty"`
	Author      AuthorInfo `json:"author"`
}

type AuthorInfo struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

type UserInfo struct {
	Notes  string `json:"notes"`
	Status string `json:"status"`
}

// DefaultStatus is applied when a create payload omits userInfo.status.
const DefaultStatus = "reading"

var (
	ErrNotFound        = errors.New("book not found")
	ErrMalformedID     = errors.New("malformed book id")
	ErrKeyMismatch     = errors.New("key does not match existing book")
	ErrMissingUserInfo = errors.New("userInfo is required")
)

type CreateBookRequest struct {
	Key      string           `json:"key" binding:"required"`
	CoverKey string           `json:"coverKey" binding:"omitempty,max=200"`
	UserInfo *UserInfoPayload `json:"userInfo" binding:"omitempty"`
}

// UserInfoPayload keeps absent fields distinguishable from empty ones,
// since create and update fill them differently.
type UserInfoPayload struct {
	Notes  *string `json:"notes"`
	Status *string `json:"status"`
}

type UpdateBookRequest struct {
	Key      string           `json:"key" binding:"omitempty"`
	UserInfo *UserInfoPayload `json:"userInfo"`
}

// NewUserInfo resolves a create payload against the creation defaults.
func NewUserInfo(p *UserInfoPayload) UserInfo {
	info := UserInfo{Notes: "", Status: DefaultStatus}

	if p == nil {
		return info
	}

	if p.Notes != nil {
		info.Notes = *p.Notes
	}

	if p.Status != nil {
		info.Status = *p.Status
	}

	return info
}

// MergeUserInfo resolves an update payload against the existing record:
// fields absent from the payload keep their stored values.
func MergeUserInfo(existing UserInfo, p *UserInfoPayload) UserInfo {
	info := existing

	if p == nil {
		return info
	}

	if p.Notes != nil {
		info.Notes = *p.Notes
	}

	if p.Status != nil {
		info.Status = *p.Status
	}

	return info
}
