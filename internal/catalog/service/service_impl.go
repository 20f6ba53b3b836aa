package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/catalog/internal/catalog/domain"
	"github.com/smallbiznis/catalog/internal/config"
	"github.com/smallbiznis/catalog/internal/imagestore"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   domain.Repository
	Images imagestore.Store
	Policy *config.UploadPolicyHolder
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	repo   domain.Repository
	genID  *snowflake.Node
	images imagestore.Store
	policy *config.UploadPolicyHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("catalog.service"),
		repo:   p.Repo,
		genID:  p.GenID,
		images: p.Images,
		policy: p.Policy,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if err := s.validateUpload(req.Image); err != nil {
		return nil, err
	}

	var image *string
	if req.Image != nil {
		path, err := s.images.Save(ctx, req.Image.Filename, req.Image.Content)
		if err != nil {
			return nil, err
		}
		image = &path
	}

	p := &domain.Product{
		ID:          s.genID.Generate().Int64(),
		Name:        name,
		Description: req.Description,
		Price:       req.Price,
		Image:       image,
	}
	if err := s.repo.Create(ctx, s.db, p); err != nil {
		if image != nil {
			s.removeFile(ctx, *image)
		}
		return nil, err
	}

	resp := toResponse(p)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Response, error) {
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}
	limit := req.Limit
	if limit < 0 {
		limit = 0
	}

	items, err := s.repo.List(ctx, s.db, offset, limit)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(&item))
	}
	return resp, nil
}

// Update fully overwrites name, description, and price. The stored image
// is replaced only when a new upload is supplied; the old file is removed
// only after both the new file and the row update have succeeded, so the
// record never points at a deleted file. Concurrent updates to the same
// id are last-write-wins and may orphan the losing request's file.
func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if err := s.validateUpload(req.Image); err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, req.ID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	oldImage := item.Image
	if req.Image != nil {
		path, err := s.images.Save(ctx, req.Image.Filename, req.Image.Content)
		if err != nil {
			return nil, err
		}
		item.Image = &path
	}

	item.Name = name
	item.Description = req.Description
	item.Price = req.Price

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		if req.Image != nil {
			s.removeFile(ctx, *item.Image)
		}
		return nil, err
	}

	if req.Image != nil && oldImage != nil {
		s.removeFile(ctx, *oldImage)
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrNotFound
	}

	existed, err := s.repo.Delete(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !existed {
		return domain.ErrNotFound
	}

	if item.Image != nil {
		s.removeFile(ctx, *item.Image)
	}
	return nil
}

// validateUpload checks the client-declared metadata against the current
// upload policy before anything is persisted.
func (s *Service) validateUpload(upload *domain.Upload) error {
	if upload == nil {
		return nil
	}
	policy := s.policy.Get()

	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(upload.ContentType)), policy.AcceptContentType) {
		return domain.ErrInvalidImageType
	}
	if upload.Size > policy.MaxBytes {
		return domain.ErrImageTooLarge
	}
	return nil
}

// removeFile is best effort: record operations never fail on a file
// delete, but failures are logged so orphaned files stay visible.
func (s *Service) removeFile(ctx context.Context, imageURL string) {
	if err := s.images.Remove(ctx, imageURL); err != nil {
		s.log.Warn("image file not removed",
			zap.String("image", imageURL),
			zap.Error(err),
		)
	}
}

func toResponse(p *domain.Product) domain.Response {
	return domain.Response{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
	}
}
