package dto

import (
	"time"

	domainuser "paperhub/internal/domain/user"
)

// UserSummary is the public view of an account, used by the chat user
// list and search.
type UserSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage,omitempty"`
}

func MapUserSummary(u *domainuser.User) UserSummary {
	return UserSummary{
		ID:           string(u.ID),
		Name:         u.Name,
		Email:        u.Email,
		ProfileImage: u.Avatar,
	}
}

func MapUserSummaries(users []domainuser.User) []UserSummary {
	out := make([]UserSummary, 0, len(users))
	for i := range users {
		out = append(out, MapUserSummary(&users[i]))
	}
	return out
}

// UserProfile is the authenticated user's own view, returned by the
// auth endpoints.
type UserProfile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	ProfileImage string    `json:"profileImage,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	Location     string    `json:"location,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func MapUserProfile(user *domainuser.User) UserProfile {
	if user == nil {
		return UserProfile{}
	}
	return UserProfile{
		ID:           string(user.ID),
		Email:        user.Email,
		Name:         user.Name,
		Role:         string(user.Role),
		ProfileImage: user.Avatar,
		Bio:          user.Bio,
		Location:     user.Location,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

type AuthResponse struct {
	Success bool        `json:"success"`
	User    UserProfile `json:"user"`
	Token   string      `json:"token"`
}

func NewAuthResponse(user *domainuser.User, token string) AuthResponse {
	return AuthResponse{Success: true, User: MapUserProfile(user), Token: token}
}
