package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"crudapp/app/forms"
	"crudapp/app/models"
	"crudapp/app/repositories"
)

// PersonService handles business logic for persons
type PersonService struct {
	repo repositories.PersonRepository
	log  *zap.Logger
}

// NewPersonService creates a new PersonService
func NewPersonService(repo repositories.PersonRepository, log *zap.Logger) *PersonService {
	return &PersonService{
		repo: repo,
		log:  log.With(zap.String("component", "person.service")),
	}
}

func (s *PersonService) List(ctx context.Context) ([]*models.Person, error) {
	persons, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}
	return persons, nil
}

func (s *PersonService) Get(ctx context.Context, id int) (*models.Person, error) {
	return s.repo.GetByID(ctx, id)
}

// Create stores a person built from validated input
func (s *PersonService) Create(ctx context.Context, in forms.PersonInput) (*models.Person, error) {
	person := &models.Person{}
	in.Apply(person)
	if err := s.repo.Create(ctx, person); err != nil {
		return nil, fmt.Errorf("failed to create person: %w", err)
	}
	s.log.Info("person created", zap.Int("id", person.ID))
	return person, nil
}

// Update overwrites the fields of person id
func (s *PersonService) Update(ctx context.Context, id int, in forms.PersonInput) (*models.Person, error) {
	person := &models.Person{ID: id}
	in.Apply(person)
	if err := s.repo.Update(ctx, person); err != nil {
		return nil, fmt.Errorf("failed to update person %d: %w", id, err)
	}
	s.log.Info("person updated", zap.Int("id", id))
	return person, nil
}

func (s *PersonService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete person %d: %w", id, err)
	}
	s.log.Info("person deleted", zap.Int("id", id))
	return nil
}
