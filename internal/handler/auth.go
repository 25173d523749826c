package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/skilllink/skilllink/internal/model"
)

const bearerPrefix = "Bearer "

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"usuario"`
}

// signToken issues an HS256 token whose jti is the auth session id.
func (h *Handler) signToken(sess model.AuthSession) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   strconv.FormatInt(sess.UserID, 10),
		IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.config.JWTSecret)
}

// parseToken verifies a token's signature and expiry and returns its jti.
func (h *Handler) parseToken(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return h.config.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %w", errUnauthorized, err)
	}
	if claims.ID == "" {
		return "", fmt.Errorf("%w: token has no session id", errUnauthorized)
	}
	return claims.ID, nil
}

// requireAuth is middleware that checks for a valid bearer token backed by a live session.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			h.fail(w, r, errUnauthorized)
			return
		}

		sessionID, err := h.parseToken(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			slog.Debug("rejected token", "error", err)
			h.fail(w, r, errUnauthorized)
			return
		}

		authSess, err := h.store.GetAuthSession(sessionID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if authSess == nil {
			h.fail(w, r, errUnauthorized)
			return
		}

		user, err := h.store.GetUserByID(authSess.UserID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if user == nil || !user.Active {
			h.fail(w, r, errUnauthorized)
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		ctx = model.ContextWithSessionID(ctx, authSess.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.RoleID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				writeError(w, r, http.StatusUnauthorized, "ErrUnauthorized")
				return
			}
			for _, role := range allowed {
				if user.RoleID == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, r, http.StatusForbidden, "ErrForbidden")
		})
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		slog.Warn("failed login attempt", "username", req.Username)
		writeError(w, r, http.StatusUnauthorized, "ErrInvalidCredentials")
		return
	}
	if !user.Active {
		writeError(w, r, http.StatusForbidden, "ErrUserInactive")
		return
	}

	ttl := h.config.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	sess, err := h.store.CreateAuthSession(user.ID, ttl)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	token, err := h.signToken(sess)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	slog.Info("user logged in", "username", user.Username, "role", user.RoleID.String())
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteAuthSession(model.SessionIDFromContext(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, r, "LoggedOut")
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.UserFromContext(r.Context()))
}
