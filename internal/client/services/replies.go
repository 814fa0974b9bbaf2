package services

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/client"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

type userResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"createdAt"`
}

type authResponse struct {
	Success bool          `json:"success"`
	Token   *string       `json:"token"`
	User    *userResponse `json:"user"`
	Message string        `json:"message"`
}

type profileResponse struct {
	userResponse
	User *userResponse `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

var errEmptyBody = errors.New("empty body")

// serverMessage extracts a human readable message from an error body, or
// returns "" so the kind's default message is used.
func serverMessage(body []byte) string {
	var m messageResponse
	if err := json.Unmarshal(body, &m); err != nil {
		return ""
	}
	if m.Message != "" {
		return m.Message
	}
	return m.Error
}

func parseAuthReply(reply *client.Reply) (*models.AuthPayload, *common.AuthFailure) {
	var r authResponse
	if err := json.Unmarshal(reply.Body, &r); err != nil {
		return nil, common.NewFailure(common.KindUnknownError, "malformed server response").
			WithStatus(reply.StatusCode).WithCause(err)
	}
	if !r.Success {
		return nil, common.NewFailure(common.KindUnknownError, r.Message).WithStatus(reply.StatusCode)
	}
	if r.Token == nil || *r.Token == "" {
		return nil, common.NewFailure(common.KindUnknownError, "server did not return a token").
			WithStatus(reply.StatusCode)
	}

	payload := &models.AuthPayload{Token: *r.Token}
	if r.User != nil {
		payload.Identity = models.Identity{Username: r.User.Username, UserID: r.User.ID}
	}
	if payload.Identity.Username == "" || payload.Identity.UserID == 0 {
		hint := identityFromClaims(payload.Token)
		if payload.Identity.Username == "" {
			payload.Identity.Username = hint.Username
		}
		if payload.Identity.UserID == 0 {
			payload.Identity.UserID = hint.UserID
		}
	}
	return payload, nil
}

func parseProfile(body []byte) (*models.ProfileInfo, error) {
	if len(body) == 0 {
		return nil, errEmptyBody
	}
	var r profileResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	u := r.userResponse
	if r.User != nil {
		u = *r.User
	}

	p := &models.ProfileInfo{ID: u.ID, Username: u.Username}
	if u.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, u.CreatedAt); err == nil {
			p.CreatedAt = ts
		}
	}
	return p, nil
}

// identityFromClaims reads, without verifying, the identity claims of a JWT
// bearer token. Opaque tokens yield an empty identity.
func identityFromClaims(token string) models.Identity {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return models.Identity{}
	}

	var id models.Identity
	for _, k := range []string{"username", "preferred_username", "sub"} {
		if s, ok := claims[k].(string); ok && s != "" {
			id.Username = s
			break
		}
	}
	for _, k := range []string{"uid", "user_id", "userId", "UserID"} {
		switch v := claims[k].(type) {
		case float64:
			id.UserID = int64(v)
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				id.UserID = n
			}
		}
		if id.UserID != 0 {
			break
		}
	}
	return id
}
