package httpapi

import (
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/umbral-esperanza/choir-console-api/internal/domain"
)

type loginRequest struct {
	Token string `json:"token"`
}

type createMemberRequest struct {
	FirstName string               `json:"firstName"`
	LastName  string               `json:"lastName"`
	Email     *openapi_types.Email `json:"email,omitempty"`
	ChoirID   string               `json:"choirId"`
	VoicePart string               `json:"voicePart"`
	Gender    string               `json:"gender"`
}

type eventRequest struct {
	Name        string             `json:"name"`
	Date        openapi_types.Date `json:"date"`
	Time        string             `json:"time"`
	Location    string             `json:"location"`
	PosterURL   string             `json:"posterUrl,omitempty"`
	Description string             `json:"description,omitempty"`
}

func (req eventRequest) toDomain(id domain.EventID) domain.Event {
	return domain.Event{
		ID:          id,
		Name:        req.Name,
		Date:        req.Date.Format(domain.DateLayout),
		Time:        req.Time,
		Location:    req.Location,
		PosterURL:   req.PosterURL,
		Description: req.Description,
	}
}

type updatePhotoRequest struct {
	PhotoURL string `json:"photoUrl"`
}

type submitRosterRequest struct {
	ChoirID    string   `json:"choirId"`
	EventID    string   `json:"eventId"`
	PresentIDs []string `json:"presentIds"`
}

type userRequest struct {
	Name      string               `json:"name"`
	Email     *openapi_types.Email `json:"email,omitempty"`
	Role      string               `json:"role"`
	ChoirID   string               `json:"choirId,omitempty"`
	AvatarURL string               `json:"avatar,omitempty"`
}

func (req userRequest) toDomain(id domain.UserID) domain.User {
	u := domain.User{
		ID:        id,
		Name:      req.Name,
		Role:      domain.Role(req.Role),
		ChoirID:   domain.ChoirID(req.ChoirID),
		AvatarURL: req.AvatarURL,
	}
	if req.Email != nil {
		u.Email = string(*req.Email)
	}
	return u
}
