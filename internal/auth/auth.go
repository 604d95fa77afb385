package auth

import (
	"net/http"
	"strings"

	customerrors "chronic_go_backend/internal/errors"
	"chronic_go_backend/internal/models"
	"chronic_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	userKey = "user"
	orgKey  = "org"
)

type CookieOptions struct {
	Name   string
	Secure bool
}

// Authenticator owns the auth routes and the middleware that guards the rest
// of the API.
type Authenticator struct {
	users  *services.UserService
	tokens *TokenManager
	cookie CookieOptions
}

func NewAuthenticator(users *services.UserService, tokens *TokenManager, cookie CookieOptions) *Authenticator {
	if cookie.Name == "" {
		cookie.Name = "access_token"
	}
	return &Authenticator{users: users, tokens: tokens, cookie: cookie}
}

func SetupRoutes(r *gin.Engine, a *Authenticator) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/signup", a.signup)
		auth.POST("/login", a.login)
		auth.POST("/logout", a.logout)
		auth.GET("/me", a.AuthMiddleware(), a.me)
		auth.PATCH("/me", a.AuthMiddleware(), a.updateMe)
	}
}

// AuthMiddleware resolves the access token to a user and their organization.
// The token is read from the cookie, then the Authorization header, and for
// WebSocket upgrades from the token query parameter.
func (a *Authenticator) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := zerolog.Ctx(c.Request.Context())

		token := a.extractToken(c)
		if token == "" {
			customerrors.HandleError(c, customerrors.New401Error("Not authenticated"))
			return
		}

		claims, err := a.tokens.Verify(token)
		if err != nil {
			log.Debug().Err(err).Msg("Rejected access token")
			customerrors.HandleError(c, customerrors.New401Error("Invalid or expired token"))
			return
		}

		ctx := c.Request.Context()
		user, err := a.users.GetUser(ctx, claims.Subject)
		if err != nil {
			customerrors.HandleError(c, customerrors.New401Error("User no longer exists"))
			return
		}
		org, err := a.users.PrimaryOrg(ctx, user.ID)
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}

		logger := log.With().Str("user_id", user.ID).Str("org_id", org.ID).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(ctx))
		c.Set(userKey, user)
		c.Set(orgKey, org)
		c.Next()
	}
}

func (a *Authenticator) extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(a.cookie.Name); err == nil && cookie != "" {
		return cookie
	}
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if websocket.IsWebSocketUpgrade(c.Request) {
		return c.Query("token")
	}
	return ""
}

// CurrentUser returns the user set by AuthMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	user, _ := c.Get(userKey)
	u, _ := user.(*models.User)
	return u
}

// CurrentOrg returns the organization set by AuthMiddleware.
func CurrentOrg(c *gin.Context) *models.Organization {
	org, _ := c.Get(orgKey)
	o, _ := org.(*models.Organization)
	return o
}

func (a *Authenticator) signup(c *gin.Context) {
	var request struct {
		Email     string `json:"email" binding:"required"`
		Password  string `json:"password" binding:"required"`
		FirstName string `json:"first_name" binding:"required"`
		LastName  string `json:"last_name"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		customerrors.HandleError(c, customerrors.New400Error(err.Error()))
		return
	}

	user, org, err := a.users.Signup(c.Request.Context(), services.SignupInput{
		Email:     request.Email,
		Password:  request.Password,
		FirstName: request.FirstName,
		LastName:  request.LastName,
	})
	if err != nil {
		customerrors.HandleError(c, err)
		return
	}
	if err := a.setSession(c, user, org); err != nil {
		customerrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user, "organization": org})
}

func (a *Authenticator) login(c *gin.Context) {
	var request struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		customerrors.HandleError(c, customerrors.New400Error(err.Error()))
		return
	}

	user, org, err := a.users.Login(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		customerrors.HandleError(c, err)
		return
	}
	if err := a.setSession(c, user, org); err != nil {
		customerrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "organization": org})
}

func (a *Authenticator) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(a.cookie.Name, "", -1, "/", "", a.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *Authenticator) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": CurrentUser(c), "organization": CurrentOrg(c)})
}

func (a *Authenticator) updateMe(c *gin.Context) {
	var request struct {
		FirstName   *string `json:"first_name"`
		LastName    *string `json:"last_name"`
		DisplayName *string `json:"display_name"`
		Theme       *string `json:"theme"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		customerrors.HandleError(c, customerrors.New400Error(err.Error()))
		return
	}

	user, err := a.users.UpdateProfile(c.Request.Context(), CurrentUser(c).ID, services.ProfileUpdate{
		FirstName:   request.FirstName,
		LastName:    request.LastName,
		DisplayName: request.DisplayName,
		Theme:       request.Theme,
	})
	if err != nil {
		customerrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (a *Authenticator) setSession(c *gin.Context, user *models.User, org *models.Organization) error {
	token, err := a.tokens.Issue(user.ID, org.ID)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(a.cookie.Name, token, int(a.tokens.TTL().Seconds()), "/", "", a.cookie.Secure, true)
	return nil
}
