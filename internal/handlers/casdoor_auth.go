package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/maktabhub/assessment-service/internal/config"
	"github.com/maktabhub/assessment-service/internal/models"
	"github.com/maktabhub/assessment-service/internal/repositories"
	"github.com/maktabhub/assessment-service/internal/services"
)

const requesterContextKey = "requester"

// CasdoorAuthMiddleware provides authentication using Casdoor SDK
type CasdoorAuthMiddleware struct {
	client   *casdoorsdk.Client
	userRepo repositories.UserRepository
	config   config.CasdoorConfig
}

// NewCasdoorAuthMiddleware creates a new Casdoor authentication middleware
func NewCasdoorAuthMiddleware(cfg config.CasdoorConfig, userRepo repositories.UserRepository) *CasdoorAuthMiddleware {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Application,
		cfg.Organization,
	)

	return &CasdoorAuthMiddleware{
		client:   client,
		userRepo: userRepo,
		config:   cfg,
	}
}

// AuthMiddleware returns a Gin middleware function for Casdoor authentication
func (cam *CasdoorAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "authorization header missing",
			})
			c.Abort()
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "invalid authorization header format",
			})
			c.Abort()
			return
		}

		claims, err := cam.client.ParseJwtToken(tokenParts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": fmt.Sprintf("invalid token: %v", err),
			})
			c.Abort()
			return
		}

		requester, err := cam.requesterFromClaims(c.Request.Context(), claims)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": fmt.Sprintf("failed to resolve user: %v", err),
			})
			c.Abort()
			return
		}

		c.Set(requesterContextKey, requester)
		c.Set("user_id", requester.UserID)
		c.Set("user_role", requester.Role)

		c.Next()
	}
}

// RequireRoleMiddleware checks if user has required role. Admins pass every
// role check.
func (cam *CasdoorAuthMiddleware) RequireRoleMiddleware(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		requester, ok := GetRequesterFromContext(c)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "requester not found in context",
			})
			c.Abort()
			return
		}

		hasRequiredRole := requester.IsAdmin()
		for _, requiredRole := range requiredRoles {
			if requester.Role == requiredRole {
				hasRequiredRole = true
				break
			}
		}

		if !hasRequiredRole {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": fmt.Sprintf("insufficient permissions, required role: %v", requiredRoles),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// requesterFromClaims resolves the full requester identity. The user
// repository carries the institution binding that raw claims may lack.
func (cam *CasdoorAuthMiddleware) requesterFromClaims(ctx context.Context, claims *casdoorsdk.Claims) (services.Requester, error) {
	userID := claims.Id
	if userID == "" {
		return services.Requester{}, fmt.Errorf("invalid user ID in token")
	}

	user, err := cam.userRepo.GetByID(ctx, userID)
	if err != nil {
		// Fall back to the claims when the user repository is unreachable.
		user = cam.userFromClaims(claims)
		if user == nil {
			return services.Requester{}, fmt.Errorf("failed to resolve user from claims")
		}
	}

	return services.Requester{
		UserID:        user.ID,
		InstitutionID: user.InstitutionID,
		Email:         user.Email,
		Name:          user.FullName,
		Role:          user.Role,
	}, nil
}

// userFromClaims builds a user model from JWT claims only.
func (cam *CasdoorAuthMiddleware) userFromClaims(claims *casdoorsdk.Claims) *models.User {
	if claims.Id == "" {
		return nil
	}

	return &models.User{
		ID:       claims.Id,
		FullName: claims.User.DisplayName,
		Email:    claims.User.Email,
		Role:     mapCasdoorRole(claims.User.Type),
	}
}

// mapCasdoorRole maps a Casdoor user type to the internal role.
func mapCasdoorRole(casdoorType string) models.UserRole {
	switch strings.ToLower(casdoorType) {
	case "admin", "administrator":
		return models.RoleAdmin
	case "teacher", "instructor", "educator":
		return models.RoleTeacher
	default:
		return models.RoleStudent
	}
}

// GetRequesterFromContext extracts the authenticated requester from the Gin
// context.
func GetRequesterFromContext(c *gin.Context) (services.Requester, bool) {
	value, exists := c.Get(requesterContextKey)
	if !exists {
		return services.Requester{}, false
	}

	requester, ok := value.(services.Requester)
	return requester, ok
}
