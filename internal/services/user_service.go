package services

import (
	"context"
	"time"

	"storeapp/internal/domain/models"
	"storeapp/internal/listquery"
	"storeapp/internal/repositories"
)

// userTags are invalidated together on every user mutation. Banning does not
// change verification counts, but narrowing the set buys little and risks a
// stale facet; the wide invalidation is deliberate.
var userTags = []string{
	repositories.TagUsers,
	repositories.TagUserBanned,
	repositories.TagUserVerified,
}

type UserService struct {
	Engine *listquery.Engine
	Repo   repositories.UserRepository
}

// List returns one cached page of the users console.
func (s UserService) List(ctx context.Context, st listquery.State) listquery.ListResult[models.User] {
	return listquery.List(ctx, s.Engine, s.Repo.ListSpec(), st)
}

// BannedCounts annotates the banned filter options.
func (s UserService) BannedCounts(ctx context.Context) map[string]int {
	return listquery.FacetCounts(ctx, s.Engine, repositories.UsersTable, "banned",
		[]string{repositories.TagUserBanned})
}

// VerifiedCounts annotates the email-verified filter options.
func (s UserService) VerifiedCounts(ctx context.Context) map[string]int {
	return listquery.FacetCounts(ctx, s.Engine, repositories.UsersTable, "emailVerified",
		[]string{repositories.TagUserVerified})
}

func (s UserService) Ban(ctx context.Context, id, reason string, duration time.Duration) error {
	if err := s.Repo.Ban(ctx, id, reason, time.Now().Add(duration)); err != nil {
		return err
	}
	s.Engine.Invalidate(userTags...)
	return nil
}

func (s UserService) Unban(ctx context.Context, id string) error {
	if err := s.Repo.Unban(ctx, id); err != nil {
		return err
	}
	s.Engine.Invalidate(userTags...)
	return nil
}

func (s UserService) Delete(ctx context.Context, id string) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	s.Engine.Invalidate(userTags...)
	return nil
}
