package domain

import (
	"context"
	"errors"
	"io"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id int64) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id int64) error
}

// Upload carries a pending image upload. ContentType and Size are the
// client-declared values; validation against them is advisory.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

type CreateRequest struct {
	Name        string
	Description string
	Price       float64
	Image       *Upload
}

type UpdateRequest struct {
	ID          int64
	Name        string
	Description string
	Price       float64
	Image       *Upload
}

type ListRequest struct {
	Offset int
	Limit  int
}

type Response struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Image       *string `json:"image"`
}

var (
	ErrNotFound         = errors.New("not_found")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidImageType = errors.New("invalid_image_type")
	ErrImageTooLarge    = errors.New("image_too_large")
)
