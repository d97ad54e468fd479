package services

import (
	"context"

	"live-docs/domain"
	"live-docs/repositories"
)

type IDocumentService interface {
	Create(ctx context.Context, ownerID, title, content string) (domain.Document, error)
	Get(ctx context.Context, documentID string) (domain.Document, error)
	Update(ctx context.Context, documentID, content string) error
	Rename(ctx context.Context, documentID, title string) error
	List(ctx context.Context) ([]domain.Document, error)
	Delete(ctx context.Context, documentID string) error
	Search(ctx context.Context, terms string) ([]domain.Document, error)
}

const searchLimit = 25

// DocumentService is request/response glue around the repository. The
// realtime layer only shares the Update path with it, through the save
// coordinator.
type DocumentService struct {
	repository repositories.IDocumentRepository
}

func NewDocumentService(repository repositories.IDocumentRepository) *DocumentService {
	return &DocumentService{repository: repository}
}

func (s *DocumentService) Create(ctx context.Context, ownerID, title, content string) (domain.Document, error) {
	if title == "" {
		title = "Untitled document"
	}
	return s.repository.Create(ctx, ownerID, title, content)
}

func (s *DocumentService) Get(ctx context.Context, documentID string) (domain.Document, error) {
	return s.repository.Get(ctx, documentID)
}

func (s *DocumentService) Update(ctx context.Context, documentID, content string) error {
	return s.repository.Update(ctx, documentID, content)
}

func (s *DocumentService) Rename(ctx context.Context, documentID, title string) error {
	return s.repository.Rename(ctx, documentID, title)
}

func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return s.repository.List(ctx)
}

func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	return s.repository.Delete(ctx, documentID)
}

func (s *DocumentService) Search(ctx context.Context, terms string) ([]domain.Document, error) {
	return s.repository.Search(ctx, terms, searchLimit)
}
