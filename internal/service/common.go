package service

import (
	"strings"

	"github.com/google/uuid"

	"github.com/TronoSfera/Law-sub001/internal/domain"
	apperrors "github.com/TronoSfera/Law-sub001/pkg/util/errorutil"
)

func strPtr(s string) *string {
	return &s
}

func actorIDPtr(actor domain.Actor) *string {
	if actor.ID == "" {
		return nil
	}
	id := actor.ID
	return &id
}

// notFound converts a missing row into a NOT_FOUND error for resource.
func notFound(err error, resource string) error {
	if apperrors.IsNotFound(err) {
		return apperrors.NewNotFound(resource, nil)
	}
	return err
}

// authorizeRequest checks that actor may act on req: admins and background
// jobs on any request, lawyers on their own, clients on their track only.
func authorizeRequest(actor domain.Actor, req *domain.Request) error {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleSystem:
		return nil
	case domain.RoleLawyer:
		if req.IsAssignedTo(actor.ID) {
			return nil
		}
		return apperrors.NewForbidden("request is not assigned to you")
	case domain.RoleClient:
		if actor.TrackNumber != "" && actor.TrackNumber == req.TrackNumber {
			return nil
		}
		return apperrors.NewForbidden("request belongs to another client")
	default:
		return apperrors.NewForbidden("unknown role")
	}
}

// randomSuffix returns n upper-case hex characters.
func randomSuffix(n int) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	for len(raw) < n {
		raw += strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return strings.ToUpper(raw[:n])
}
