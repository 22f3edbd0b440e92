package model

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lukasbauer/fishaudio/internal/form"
	"github.com/lukasbauer/fishaudio/transport"
	"go.uber.org/zap"
)

// Path is the model collection endpoint.
const Path = "/model"

var (
	ErrEmptyID    = errors.New("model: id is empty")
	ErrNoVoices   = errors.New("model: at least one voice sample is required")
	ErrEmptyTitle = errors.New("model: title is empty")
)

// File is a binary upload sent as its own multipart part.
type File struct {
	Name        string
	ContentType string // sniffed when empty
	Reader      io.Reader
}

// CreateParams describes a new model.
type CreateParams struct {
	Title               string
	Description         string
	Visibility          Visibility // defaults to private
	Type                string     // defaults to "tts"
	TrainMode           TrainMode  // defaults to fast
	Voices              []File
	Texts               []string
	Tags                []string
	CoverImage          *File
	EnhanceAudioQuality bool
}

// UpdateParams changes a model. Nil fields are left unchanged.
type UpdateParams struct {
	Title       *string
	Description *string
	Visibility  *Visibility
	Tags        []string
	CoverImage  *File
}

// Service calls the model endpoints.
type Service struct {
	transport *transport.Client
	logger    *zap.Logger
}

// NewService creates a model service on top of t.
func NewService(t *transport.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{transport: t, logger: logger}
}

// List returns one page of models.
func (s *Service) List(ctx context.Context, params ListParams) (*Page, error) {
	var page Page
	err := s.transport.Do(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   Path,
		Query:  params.Query(),
	}, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// Get fetches one model.
func (s *Service) Get(ctx context.Context, id string) (*Model, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	var m Model
	err := s.transport.Do(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   Path + "/" + url.PathEscape(id),
	}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create uploads voice samples and creates a model from them.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Model, error) {
	if params.Title == "" {
		return nil, ErrEmptyTitle
	}
	if len(params.Voices) == 0 {
		return nil, ErrNoVoices
	}

	f := form.New()
	f.Field("visibility", string(orDefault(params.Visibility, VisibilityPrivate)))
	f.Field("type", orDefault(params.Type, "tts"))
	f.Field("title", params.Title)
	f.Field("train_mode", string(orDefault(params.TrainMode, TrainModeFast)))
	f.Field("enhance_audio_quality", strconv.FormatBool(params.EnhanceAudioQuality))
	if params.Description != "" {
		f.Field("description", params.Description)
	}
	f.Fields("texts", params.Texts)
	f.Fields("tags", params.Tags)
	for _, v := range params.Voices {
		f.File("voices", v.Name, v.ContentType, v.Reader)
	}
	if params.CoverImage != nil {
		f.File("cover_image", params.CoverImage.Name, params.CoverImage.ContentType, params.CoverImage.Reader)
	}

	body, err := f.Body()
	if err != nil {
		return nil, err
	}

	s.logger.Debug("create model", zap.String("title", params.Title), zap.Int("voices", len(params.Voices)))

	var m Model
	err = s.transport.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   Path,
		Body:   body,
	}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Update patches a model.
func (s *Service) Update(ctx context.Context, id string, params UpdateParams) error {
	if id == "" {
		return ErrEmptyID
	}

	f := form.New()
	if params.Title != nil {
		f.Field("title", *params.Title)
	}
	if params.Description != nil {
		f.Field("description", *params.Description)
	}
	if params.Visibility != nil {
		f.Field("visibility", string(*params.Visibility))
	}
	f.Fields("tags", params.Tags)
	if params.CoverImage != nil {
		f.File("cover_image", params.CoverImage.Name, params.CoverImage.ContentType, params.CoverImage.Reader)
	}

	body, err := f.Body()
	if err != nil {
		return err
	}

	return s.transport.Do(ctx, &transport.Request{
		Method: http.MethodPatch,
		Path:   Path + "/" + url.PathEscape(id),
		Body:   body,
	}, nil)
}

// Delete removes a model.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}

	return s.transport.Do(ctx, &transport.Request{
		Method: http.MethodDelete,
		Path:   Path + "/" + url.PathEscape(id),
	}, nil)
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
