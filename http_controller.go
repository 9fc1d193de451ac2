package auth

import (
	"net/http"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

type AuthControllerRoutes struct {
	Signup   string
	Signin   string
	Retoken  string
	Profile  string
	Password string
	Health   string
}

type AuthController struct {
	Debug           bool
	Logger          Logger
	Repo            RepositoryManager
	Routes          *AuthControllerRoutes
	Auther          Authenticator
	Guard           *RouteAuthenticator
	Profiles        *UpdateProfileHandler
	Passwords       *ChangePasswordHandler
	RefreshHeader   string
	ErrorHandler    router.ErrorHandler
	contextKeyCache string
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerGuard(guard *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Guard = guard
		return c
	}
}

func WithControllerProfileHandler(h *UpdateProfileHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Profiles = h
		return c
	}
}

func WithControllerPasswordHandler(h *ChangePasswordHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Passwords = h
		return c
	}
}

func WithControllerRefreshHeader(header string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if header != "" {
			c.RefreshHeader = header
		}
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:        defLogger{},
		RefreshHeader: "refreshToken",
		Routes: &AuthControllerRoutes{
			Signup:   "/user/signup",
			Signin:   "/user/signin",
			Retoken:  "/retoken",
			Profile:  "/my/profile",
			Password: "/my/password",
			Health:   "/healthz",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Guard == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	if c.Profiles == nil {
		c.Profiles = NewUpdateProfileHandler(c.Repo).WithLogger(c.Logger)
	}

	if c.Passwords == nil {
		c.Passwords = NewChangePasswordHandler(c.Repo, nil).WithLogger(c.Logger)
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = NewErrorHandler(c.Logger)
	}

	c.contextKeyCache = c.Guard.ContextKey()

	return c
}

// RegisterRoutes mounts the account and token endpoints on app
func RegisterRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	protected := controller.Guard.ProtectedRoute()

	app.Get(controller.Routes.Health, controller.Health).
		SetName("health.get")

	app.Post(controller.Routes.Signup, controller.Signup).
		SetName("signup.post")
	app.Post(controller.Routes.Signin, controller.Signin).
		SetName("signin.post")
	app.Get(controller.Routes.Retoken, controller.Retoken).
		SetName("retoken.get")

	app.Get(controller.Routes.Profile, controller.ProfileShow, protected).
		SetName("profile.get")
	app.Put(controller.Routes.Profile, controller.ProfileUpdate, protected).
		SetName("profile.put")
	app.Put(controller.Routes.Password, controller.PasswordUpdate, protected).
		SetName("password.put")

	return controller
}

// StatusResponse is the body of endpoints that only acknowledge
type StatusResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// SigninRequest payload
type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SigninData struct {
	JWT          string `json:"jwt"`
	RefreshToken string `json:"refreshToken"`
	Name         string `json:"name"`
}

type SigninResponse struct {
	Status  int        `json:"status"`
	Message string     `json:"message"`
	Data    SigninData `json:"data"`
}

type RetokenResponse struct {
	Status      int         `json:"status"`
	AccessToken AccessToken `json:"accessToken"`
	Message     string      `json:"message"`
}

type ProfileResponse struct {
	Status int     `json:"status"`
	Msg    string  `json:"msg"`
	Data   Profile `json:"data"`
}

type PasswordResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
}

func (a *AuthController) Health(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]any{"status": router.StatusOK})
}

func (a *AuthController) Signup(ctx router.Context) error {
	payload := new(RegisterUserMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	if a.Debug {
		a.Logger.Debug("signup request", "email", payload.Email)
	}

	if _, err := a.Auther.Signup(ctx.Context(), *payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, StatusResponse{
		Status:  router.StatusOK,
		Message: "signup success",
	})
}

func (a *AuthController) Signin(ctx router.Context) error {
	payload := new(SigninRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	result, err := a.Auther.Signin(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if a.Debug {
		a.Logger.Debug("signin success", "user", print.MaybePrettyJSON(result.User))
	}

	return ctx.JSON(router.StatusOK, SigninResponse{
		Status:  router.StatusOK,
		Message: "signin success",
		Data: SigninData{
			JWT:          result.Tokens.AccessToken,
			RefreshToken: result.Tokens.RefreshToken,
			Name:         result.User.Name,
		},
	})
}

func (a *AuthController) Retoken(ctx router.Context) error {
	token, err := a.Auther.Refresh(ctx.Context(), ctx.GetString(a.RefreshHeader, ""))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, RetokenResponse{
		Status:      router.StatusOK,
		AccessToken: *token,
		Message:     "new access token issued",
	})
}

func (a *AuthController) ProfileShow(ctx router.Context) error {
	id, err := a.currentUserID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user, err := a.Repo.Users().FindByID(ctx.Context(), id)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, ProfileResponse{
		Status: router.StatusOK,
		Msg:    "profile found",
		Data:   user.ToProfile(),
	})
}

func (a *AuthController) ProfileUpdate(ctx router.Context) error {
	id, err := a.currentUserID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(UpdateProfileMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}
	payload.UserID = id

	if err := a.Profiles.Execute(ctx.Context(), *payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, StatusResponse{
		Status:  router.StatusOK,
		Message: "profile updated",
	})
}

func (a *AuthController) PasswordUpdate(ctx router.Context) error {
	id, err := a.currentUserID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(ChangePasswordMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}
	payload.UserID = id

	if err := a.Passwords.Execute(ctx.Context(), *payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, PasswordResponse{
		Status: http.StatusCreated,
		Msg:    "password changed",
	})
}

func (a *AuthController) currentUserID(ctx router.Context) (uuid.UUID, error) {
	claims, ok := GetRouterClaims(ctx, a.contextKeyCache)
	if !ok {
		return uuid.Nil, ErrTokenMissing
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CategoryAuth, "token carries an invalid user id").
			WithCode(errors.CodeUnauthorized)
	}

	return id, nil
}
