package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/eldersbot/core/logger"
	"github.com/m3rciful/eldersbot/council/domain"
	"github.com/m3rciful/eldersbot/council/store"
)

// Register records an actor on first contact and refreshes the names on
// later contacts. The role is never changed here.
func (c *Council) Register(ctx context.Context, a domain.Actor) (domain.Actor, error) {
	a.DisplayName = strings.TrimSpace(a.DisplayName)
	a.Username = strings.TrimSpace(a.Username)
	a.Role = ""
	var out domain.Actor
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.UpsertActor(ctx, a)
		return err
	})
	if err != nil {
		return domain.Actor{}, fail(ctx, componentActors, "actor.register", err, slog.Int64("actor_id", a.ID))
	}
	logger.Debug(ctx, componentActors, "actor.register",
		slog.String("status", "ok"),
		slog.Int64("actor_id", out.ID),
		slog.String("role", string(out.Role)),
	)
	return out, nil
}

// Grant sets the actor's role, creating the actor when it has not been seen yet.
func (c *Council) Grant(ctx context.Context, actorID int64, role domain.Role) error {
	attrs := []slog.Attr{slog.Int64("actor_id", actorID), slog.String("role", string(role))}
	parsed, ok := domain.ParseRole(string(role))
	if !ok {
		return fail(ctx, componentActors, "actor.grant", domain.ErrInvalidRole, attrs...)
	}
	role = parsed
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		return tx.SetActorRole(ctx, actorID, role)
	})
	if err != nil {
		return fail(ctx, componentActors, "actor.grant", err, attrs...)
	}
	logger.Info(ctx, componentActors, "actor.grant", append(attrs, slog.String("status", "ok"))...)
	return nil
}

// RoleOf resolves the actor's role; unknown actors are askers.
func (c *Council) RoleOf(ctx context.Context, actorID int64) (domain.Role, error) {
	role := domain.RoleAsker
	err := c.store.View(ctx, func(tx store.Tx) error {
		a, ok, err := tx.GetActor(ctx, actorID)
		if err != nil {
			return err
		}
		if ok && a.Role != "" {
			role = a.Role
		}
		return nil
	})
	if err != nil {
		return "", fail(ctx, componentActors, "actor.role", err, slog.Int64("actor_id", actorID))
	}
	return role, nil
}

// Moderators returns the ids of every moderator.
func (c *Council) Moderators(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := c.store.View(ctx, func(tx store.Tx) error {
		var err error
		ids, err = tx.ListActorIDsByRole(ctx, domain.RoleModerator)
		return err
	})
	if err != nil {
		return nil, fail(ctx, componentActors, "actor.moderators", err)
	}
	return ids, nil
}
