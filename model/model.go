// Package model manages voice models: listing, fetching, creating,
// updating and deleting them.
package model

import (
	"time"

	"github.com/lukasbauer/fishaudio/transport"
)

// Visibility controls who can see a model.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityUnlist  Visibility = "unlist"
	VisibilityPrivate Visibility = "private"
)

// TrainMode selects how a new model is trained.
type TrainMode string

const TrainModeFast TrainMode = "fast"

// Author is the owner of a model.
type Author struct {
	ID       string `json:"_id"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// Sample is a pre-rendered example attached to a model.
type Sample struct {
	Title  string `json:"title"`
	Text   string `json:"text"`
	TaskID string `json:"task_id"`
	Audio  string `json:"audio"`
}

// Model is a voice model as returned by the service.
type Model struct {
	ID             string     `json:"_id"`
	Type           string     `json:"type"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	CoverImage     string     `json:"cover_image"`
	TrainMode      TrainMode  `json:"train_mode"`
	State          string     `json:"state"`
	Tags           []string   `json:"tags"`
	Samples        []Sample   `json:"samples"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Languages      []string   `json:"languages"`
	Visibility     Visibility `json:"visibility"`
	LockVisibility bool       `json:"lock_visibility"`
	LikeCount      int        `json:"like_count"`
	MarkCount      int        `json:"mark_count"`
	SharedCount    int        `json:"shared_count"`
	TaskCount      int        `json:"task_count"`
	Liked          bool       `json:"liked"`
	Marked         bool       `json:"marked"`
	Author         Author     `json:"author"`
}

// Page is one page of List results.
type Page = transport.Page[Model]

// ListParams filters List. Zero values are not sent.
type ListParams struct {
	PageSize      int
	PageNumber    int
	Title         string
	Tags          []string
	Self          bool
	AuthorID      string
	Languages     []string
	TitleLanguage string
	SortBy        string // "score", "task_count" or "created_at"
}

// Query returns the set parameters under their Go-side names.
func (p ListParams) Query() transport.Query {
	q := transport.Query{}
	if p.PageSize > 0 {
		q["pageSize"] = p.PageSize
	}
	if p.PageNumber > 0 {
		q["pageNumber"] = p.PageNumber
	}
	if p.Title != "" {
		q["title"] = p.Title
	}
	if len(p.Tags) > 0 {
		q["tag"] = p.Tags
	}
	if p.Self {
		q["self"] = true
	}
	if p.AuthorID != "" {
		q["authorID"] = p.AuthorID
	}
	if len(p.Languages) > 0 {
		q["language"] = p.Languages
	}
	if p.TitleLanguage != "" {
		q["titleLanguage"] = p.TitleLanguage
	}
	if p.SortBy != "" {
		q["sortBy"] = p.SortBy
	}
	return q
}
