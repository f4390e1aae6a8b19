package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type ctxKey string

// userIDKey carries the authenticated member id set by authenticate.
const userIDKey ctxKey = "userID"

var (
	jwtSecret []byte
	denylist  tokenDenylist = noopDenylist{}
	tokenTTL                = 24 * time.Hour
)

var errInvalidToken = errors.New("invalid token")

type tokenInfo struct {
	UserID    int
	ID        string
	ExpiresAt time.Time
}

func issueToken(userID int) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"jti":     uuid.NewString(),
		"exp":     time.Now().Add(tokenTTL).Unix(),
	})
	return token.SignedString(jwtSecret)
}

// parseBearer validates the Authorization header and returns the token claims.
func parseBearer(r *http.Request) (tokenInfo, error) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return tokenInfo{}, errInvalidToken
	}
	tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return tokenInfo{}, errInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return tokenInfo{}, errInvalidToken
	}
	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return tokenInfo{}, errInvalidToken
	}
	info := tokenInfo{UserID: int(userID)}
	info.ID, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}

// POST /register
func registerHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type RegisterRequest struct {
			Email       string `json:"email" validate:"required,email"`
			Password    string `json:"password" validate:"required,min=8,max=72"`
			DisplayName string `json:"display_name" validate:"required,max=80"`
			Gender      string `json:"gender" validate:"required,oneof=male female"`
			DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02,adult"`
		}

		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		req.DisplayName = strings.TrimSpace(req.DisplayName)
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, validationCode(err))
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("hashing password", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "hash_error")
			return
		}

		ctx := r.Context()
		var newID int
		err = withTx(ctx, db, func(tx *sql.Tx) error {
			if err := tx.QueryRowContext(ctx,
				`INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id`,
				req.Email, string(hashedPassword),
			).Scan(&newID); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO profiles (user_id, display_name, gender, date_of_birth)
				VALUES ($1, $2, $3, $4)
			`, newID, req.DisplayName, req.Gender, req.DateOfBirth)
			return err
		})
		if err != nil {
			if isUniqueViolation(err) {
				writeError(w, http.StatusConflict, "email_exists")
				return
			}
			logDBError("register", err)
			writeError(w, http.StatusInternalServerError, "register_error")
			return
		}

		tokenString, err := issueToken(newID)
		if err != nil {
			logger.Error("generating token for new user", zap.Int("user_id", newID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "token_generation_error")
			return
		}

		logger.Info("user registered", zap.Int("user_id", newID))
		writeJSON(w, http.StatusCreated, map[string]interface{}{"token": tokenString, "id": newID})
	}
}

// POST /login
func loginHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type LoginRequest struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}

		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "missing_fields")
			return
		}

		ctx := r.Context()
		var userID int
		var passwordHash string
		err := db.QueryRowContext(ctx,
			"SELECT id, password_hash FROM users WHERE email = $1", req.Email,
		).Scan(&userID, &passwordHash)
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		} else if err != nil {
			logDBError("login", err)
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}

		// Compare the provided password with the stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}

		if _, err := db.ExecContext(ctx, "UPDATE users SET last_login_at = NOW() WHERE id = $1", userID); err != nil {
			// Don't fail login, just log the error
			logger.Warn("failed to update last_login_at", zap.Int("user_id", userID), zap.Error(err))
		}

		tokenString, err := issueToken(userID)
		if err != nil {
			logger.Error("generating token", zap.Int("user_id", userID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "token_generation_error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"token": tokenString, "id": userID})
	}
}

// POST /logout
// Revokes the presented token for the rest of its lifetime.
func logoutHandler() http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		info, err := parseBearer(r)
		if err == nil && info.ID != "" {
			if err := denylist.Revoke(r.Context(), info.ID, time.Until(info.ExpiresAt)); err != nil {
				logger.Warn("token revocation failed", zap.Int("user_id", info.UserID), zap.Error(err))
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
	})
}

func authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := parseBearer(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if info.ID != "" {
			revoked, err := denylist.IsRevoked(r.Context(), info.ID)
			if err != nil {
				// fail open: the token signature is still valid
				logger.Warn("denylist lookup failed", zap.Error(err))
			}
			if revoked {
				writeError(w, http.StatusUnauthorized, "token_revoked")
				return
			}
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, info.UserID)))
	}
}
