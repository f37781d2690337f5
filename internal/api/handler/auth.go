package handler

import (
	"errors"
	"net/http"
	"strings"

	"complaintdesk/backend/internal/apperrors"
	"complaintdesk/backend/internal/models"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const identityKey = "identity"

var (
	studentOnly   = []models.Role{models.RoleStudent}
	staffOnly     = []models.Role{models.RoleAdmin, models.RoleSuperAdmin}
	oversightOnly = []models.Role{models.RoleSuperAdmin}
)

// Claims is the identity token issued by the external login service.
type Claims struct {
	UserID     uint        `json:"user_id"`
	Email      string      `json:"email"`
	Role       models.Role `json:"role"`
	Department string      `json:"department"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 identity tokens.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Parse validates a token and returns the identity it carries.
func (a *Authenticator) Parse(tokenString string) (*models.Identity, error) {
	if len(a.secret) == 0 {
		return nil, apperrors.Unauthorized("authentication is not configured")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == 0 || !claims.Role.Valid() {
		return nil, apperrors.Unauthorized("invalid token claims")
	}
	dept, ok := models.ParseDepartment(claims.Department)
	if !ok {
		return nil, apperrors.Unauthorized("unknown department " + claims.Department)
	}
	if claims.Role == models.RoleSuperAdmin {
		dept = models.DepartmentAll
	}
	return &models.Identity{
		UserID:     claims.UserID,
		Email:      strings.ToLower(claims.Email),
		Role:       claims.Role,
		Department: dept,
	}, nil
}

func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", nil
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return "", errors.New("invalid authorization header format")
	}
	return tokenString, nil
}

// AuthMiddleware requires a valid bearer token and stores the identity.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c)
		if err != nil {
			respondError(c, apperrors.Unauthorized(err.Error()))
			c.Abort()
			return
		}
		if tokenString == "" {
			respondError(c, apperrors.Unauthorized("authorization header is required"))
			c.Abort()
			return
		}

		identity, err := h.Auth.Parse(tokenString)
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not listed.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := currentIdentity(c)
		if !ok {
			respondError(c, apperrors.Unauthorized("identity missing"))
			c.Abort()
			return
		}
		for _, r := range roles {
			if identity.Role == r {
				c.Next()
				return
			}
		}
		respondError(c, apperrors.Forbidden(apperrors.CodeRoleNotAllowed, "insufficient permissions"))
		c.Abort()
	}
}

func currentIdentity(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	id, ok := v.(*models.Identity)
	if !ok || id == nil {
		return models.Identity{}, false
	}
	return *id, true
}

// RequestID tags every request with an X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// respondUnauthorized is used by routes outside the auth group.
func respondUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(apperrors.Unauthorized(msg)))
}
