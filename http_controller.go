package punchcard

import (
	"errors"
	"fmt"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/nyaruka/phonenumbers"
)

// RouteRegistrar captures the router methods used by the controllers.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Patch(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// AuthController serves the JSON API: session endpoints for everyone,
// provisioning endpoints for admins.
type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Auther       *RouteAuthenticator
	Auth         Authenticator
	Invitations  *InvitationManager
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: RenderJSONError,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	if c.Auth == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Invitations == nil {
		c.Invitations = NewInvitationManager(c.Repo)
	}

	return c
}

func (a *AuthController) WithLogger(logger Logger) *AuthController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// RegisterAuthRoutes mounts the session and invitation endpoints.
func RegisterAuthRoutes(app RouteRegistrar, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	authErr := controller.Auther.MakeClientRouteAuthErrorHandler(false)
	protected := controller.Auther.ProtectedRoute(authErr)

	app.Post("/api/login", controller.LoginPost).
		SetName("api.login")

	app.Post("/api/logout", controller.LogoutPost).
		SetName("api.logout")

	app.Get("/api/user", controller.CurrentUser, protected).
		SetName("api.user")

	app.Post("/api/change-password", controller.ChangePassword, protected).
		SetName("api.change-password")

	app.Get("/api/invitation/:token", controller.InvitationShow).
		SetName("api.invitation.get")

	app.Post("/api/invitation/:token", controller.InvitationAccept).
		SetName("api.invitation.post")

	return controller
}

// RegisterAdminRoutes mounts the provisioning endpoints behind the admin gate.
func RegisterAdminRoutes(app RouteRegistrar, controller *AuthController) {
	authErr := controller.Auther.MakeClientRouteAuthErrorHandler(false)
	admin := controller.Auther.AdminRoute(authErr)

	app.Post("/api/admin/users", controller.AdminCreateUser, admin).
		SetName("api.admin.users.create")

	app.Post("/api/admin/users/:id/invite", controller.AdminInviteUser, admin).
		SetName("api.admin.users.invite")

	app.Patch("/api/admin/users/:id/role", controller.AdminUpdateRole, admin).
		SetName("api.admin.users.role")

	app.Post("/api/admin/users/:id/reset-password", controller.AdminResetPassword, admin).
		SetName("api.admin.users.reset-password")
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"secret" json:"secret"`
}

// GetIdentifier returns the identifier, a username or an email
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetSecret returns the submitted secret
func (r LoginRequest) GetSecret() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "Invalid login payload",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println("identifier: " + payload.Identifier)
		fmt.Println("=========================")
	}

	result, err := a.Auther.Login(ctx, payload)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user":                result.User.Public(),
		"needsPasswordChange": result.NeedsPasswordChange,
	})
}

func (a *AuthController) LogoutPost(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
	})
}

func (a *AuthController) CurrentUser(ctx router.Context) error {
	user, err := a.sessionUser(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, user)
}

// ChangePasswordRequest payload
type ChangePasswordRequest struct {
	CurrentPassword string `form:"currentPassword" json:"currentPassword"`
	NewPassword     string `form:"newPassword" json:"newPassword"`
}

// Validate will run validation rules
func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.CurrentPassword,
			validation.Required,
		),
		validation.Field(
			&r.NewPassword,
			validation.Required,
			validation.Length(8, 100),
		),
	)
}

func (a *AuthController) ChangePassword(ctx router.Context) error {
	payload := new(ChangePasswordRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "Invalid password payload",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	user, err := a.sessionUser(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	updated, err := a.Auth.ChangePassword(ctx.Context(), user.ID, payload.CurrentPassword, payload.NewPassword)
	if err != nil {
		// Wrong current password is a client error here, not a missing
		// session: the caller is already authenticated.
		if goerrors.Is(err, ErrInvalidCredentials) {
			return ctx.JSON(router.StatusBadRequest, map[string]any{
				"error": "Current password is incorrect",
			})
		}
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user":                updated.Public(),
		"needsPasswordChange": updated.NeedsPassword,
	})
}

func (a *AuthController) InvitationShow(ctx router.Context) error {
	token := ctx.Param("token")

	user, err := a.Invitations.Validate(ctx.Context(), token)
	if err != nil {
		if goerrors.Is(err, ErrInvalidOrExpiredInvitation) {
			return ctx.JSON(router.StatusBadRequest, map[string]any{
				"valid": false,
				"error": "Invalid or expired invitation",
			})
		}
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"valid": true,
		"user":  user.Public(),
	})
}

// AcceptInvitationRequest payload
type AcceptInvitationRequest struct {
	Password string `form:"newPassword" json:"newPassword"`
}

// Validate will run validation rules
func (r AcceptInvitationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(8, 100),
		),
	)
}

func (a *AuthController) InvitationAccept(ctx router.Context) error {
	token := ctx.Param("token")
	payload := new(AcceptInvitationRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "Invalid invitation payload",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	user, err := a.Invitations.Redeem(ctx.Context(), token, payload.Password)
	if err != nil {
		if goerrors.Is(err, ErrInvalidOrExpiredInvitation) {
			return ctx.JSON(router.StatusBadRequest, map[string]any{
				"valid": false,
				"error": "Invalid or expired invitation",
			})
		}
		return a.ErrorHandler(ctx, err)
	}

	// Redemption proved control of the token; start the session right away.
	if err := a.Auther.EstablishSession(ctx, user); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user":                user.Public(),
		"needsPasswordChange": user.NeedsPassword,
	})
}

// CreateUserRequest payload
type CreateUserRequest struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	FullName string `form:"fullName" json:"fullName"`
	Phone    string `form:"phone" json:"phone"`
	Role     string `form:"role" json:"role"`
}

// Validate will run validation rules
func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.FullName, validation.Length(0, 200)),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber)),
		validation.Field(&r.Role, validation.In(RoleEmployee, RoleAdmin)),
	)
}

func (a *AuthController) AdminCreateUser(ctx router.Context) error {
	payload := new(CreateUserRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "Invalid user payload",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if _, err := a.Repo.Users().GetByEmail(ctx.Context(), payload.Email); err == nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "Email already in use",
		})
	}

	if _, err := a.Repo.Users().GetByUsername(ctx.Context(), payload.Username); err == nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "Username already in use",
		})
	}

	role := payload.Role
	if role == "" {
		role = RoleEmployee
	}

	tempPassword := GenerateTemporaryPassword()
	passwordHash, err := HashPassword(tempPassword)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user := &User{
		Username:      payload.Username,
		Email:         payload.Email,
		FullName:      payload.FullName,
		Phone:         payload.Phone,
		Role:          role,
		PasswordHash:  passwordHash,
		NeedsPassword: true,
	}

	created, err := a.Repo.Users().Create(ctx.Context(), user)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= USER CREATED ======")
		fmt.Println(print.MaybePrettyJSON(created.Public()))
		fmt.Println("===========================")
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"user":              created,
		"temporaryPassword": tempPassword,
	})
}

func (a *AuthController) AdminInviteUser(ctx router.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	inv, err := a.Invitations.Issue(ctx.Context(), id)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	// Delivery failure still discloses the credentials: the invitation is
	// committed and the admin needs a way to relay it.
	if inv.DeliveryErr != nil {
		return ctx.JSON(router.StatusInternalServerError, map[string]any{
			"error":             "Invitation email delivery failed",
			"temporaryPassword": inv.TemporaryPassword,
			"invitationToken":   inv.Token,
			"invitationExpires": inv.ExpiresAt,
		})
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"temporaryPassword": inv.TemporaryPassword,
		"invitationToken":   inv.Token,
		"invitationExpires": inv.ExpiresAt,
	})
}

// UpdateRoleRequest payload
type UpdateRoleRequest struct {
	Role string `form:"role" json:"role"`
}

// Validate will run validation rules
func (r UpdateRoleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Role,
			validation.Required,
			validation.In(RoleEmployee, RoleAdmin),
		),
	)
}

func (a *AuthController) AdminUpdateRole(ctx router.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(UpdateRoleRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "Invalid role payload",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	updated, err := a.Repo.Users().Update(ctx.Context(), id, &UserUpdate{
		Role: &payload.Role,
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, updated)
}

func (a *AuthController) AdminResetPassword(ctx router.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	tempPassword, err := a.Auth.ResetPassword(ctx.Context(), id)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"temporaryPassword": tempPassword,
	})
}

// sessionUser resolves the request's claims into a full user record.
func (a *AuthController) sessionUser(ctx router.Context) (*User, error) {
	claims, ok := GetClaims(ctx.Context())
	if !ok {
		return nil, ErrUnableToFindSession
	}

	id, err := strconv.ParseInt(claims.UserID(), 10, 64)
	if err != nil {
		return nil, ErrUnableToMapClaims
	}

	return a.Repo.Users().GetByID(ctx.Context(), id)
}

// paramID parses the numeric :id route parameter. An unparseable id cannot
// name any user, so it fails like a missing record.
func paramID(ctx router.Context) (int64, error) {
	raw := ctx.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, goerrors.New("user not found", goerrors.CategoryNotFound).
			WithTextCode(TextCodeUserNotFound).
			WithMetadata(map[string]any{"id": raw})
	}
	return id, nil
}

// ValidatePhoneNumber checks an optional phone field against international
// formatting rules.
func ValidatePhoneNumber(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	num, err := phonenumbers.Parse(s, "US")
	if err != nil {
		return errors.New("must be a valid phone number")
	}
	if !phonenumbers.IsValidNumber(num) {
		return errors.New("must be a valid phone number")
	}
	return nil
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field -> message map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, fieldErr := range verrs {
			out[field] = fieldErr.Error()
		}
		return out
	}

	out["validation"] = err.Error()
	return out
}
