package auth

import (
	stderrors "errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

type AuthControllerRoutes struct {
	Signup         string
	Login          string
	Logout         string
	Me             string
	ChangePassword string
	CheckEmail     string
}

// AuthController serves the JSON auth API
type AuthController struct {
	Debug       bool
	Logger      Logger
	Routes      *AuthControllerRoutes
	Auther      *Auther
	Routing     *RouteAuthenticator
	PhoneRegion string
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger sets the controller logger
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

// WithPhoneRegion sets the default region used to parse phone numbers
func WithPhoneRegion(region string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if region != "" {
			c.PhoneRegion = region
		}
		return c
	}
}

// WithDebug logs request payloads, passwords excluded
func WithDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(auther *Auther, routing *RouteAuthenticator, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:      defLogger{},
		Auther:      auther,
		Routing:     routing,
		PhoneRegion: DefaultPhoneRegion,
		Routes: &AuthControllerRoutes{
			Signup:         "/signup",
			Login:          "/login",
			Logout:         "/logout",
			Me:             "/me",
			ChangePassword: "/change-password",
			CheckEmail:     "/check-email",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Auther in auth controller...")
	}

	if c.Routing == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the controller under app, usually the
// /api/auth group.
func RegisterAuthRoutes[T any](app router.Router[T], controller *AuthController) {
	protected := controller.Routing.ProtectedRoute()

	app.Post(controller.Routes.Signup, controller.Signup).
		SetName("auth.signup")
	app.Post(controller.Routes.Login, controller.Login).
		SetName("auth.login")
	app.Post(controller.Routes.Logout, controller.Logout).
		SetName("auth.logout")
	app.Get(controller.Routes.CheckEmail, controller.CheckEmail).
		SetName("auth.check-email")

	app.Get(controller.Routes.Me, controller.CurrentUser, protected).
		SetName("auth.me.get")
	app.Put(controller.Routes.Me, controller.UpdateCurrentUser, protected).
		SetName("auth.me.update")
	app.Put(controller.Routes.ChangePassword, controller.ChangePassword, protected).
		SetName("auth.change-password")
}

// AccountResponse is the public view of an Account
type AccountResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func NewAccountResponse(account *Account) AccountResponse {
	return AccountResponse{
		ID:        account.ID.String(),
		Email:     account.Email,
		Name:      account.Name,
		Phone:     account.Phone,
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
	}
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	AccessToken string          `json:"accessToken"`
	TokenType   string          `json:"tokenType"`
	ExpiresIn   int64           `json:"expiresIn"`
	IssuedAt    time.Time       `json:"issuedAt"`
	User        AccountResponse `json:"user"`
}

// CheckEmailResponse reports whether an email can be used for signup
type CheckEmailResponse struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// SignupRequest payload
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

// Validate will run validation rules
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(1, 255), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 50), validation.By(lettersAndDigits)),
		validation.Field(&r.Name, validation.Required, validation.Length(2, 50)),
	)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			validation.Length(1, 255),
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// UpdateProfileRequest payload
type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Validate will run validation rules
func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 50)),
	)
}

// ChangePasswordRequest payload
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Validate will run validation rules
func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 50), validation.By(lettersAndDigits)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.NewPassword)),
		),
	)
}

func (a *AuthController) Signup(ctx router.Context) error {
	payload := new(SignupRequest)
	if err := a.bind(ctx, payload); err != nil {
		return err
	}

	phone, err := a.phone(payload.Phone)
	if err != nil {
		return err
	}

	account, err := a.Auther.Signup(ctx.Context(), SignupInput{
		Email:    payload.Email,
		Password: payload.Password,
		Name:     strings.TrimSpace(payload.Name),
		Phone:    phone,
	})
	if err != nil {
		return err
	}

	return SendOK(ctx, http.StatusCreated, NewAccountResponse(account))
}

func (a *AuthController) Login(ctx router.Context) error {
	payload := new(LoginRequest)
	if err := a.bind(ctx, payload); err != nil {
		return err
	}

	result, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	return SendOK(ctx, http.StatusOK, LoginResponse{
		AccessToken: result.Token,
		TokenType:   "Bearer",
		ExpiresIn:   result.ExpiresIn(),
		IssuedAt:    result.IssuedAt,
		User:        NewAccountResponse(result.Account),
	})
}

func (a *AuthController) Logout(ctx router.Context) error {
	if err := a.Auther.Logout(ctx.Context(), ctx.Header(router.HeaderAuthorization)); err != nil {
		return err
	}
	return SendOK(ctx, http.StatusOK, nil)
}

func (a *AuthController) CheckEmail(ctx router.Context) error {
	email := strings.TrimSpace(ctx.Query("email", ""))
	if err := validation.Validate(email, validation.Required, validation.Length(1, 255), is.Email); err != nil {
		return invalidInput(validation.Errors{"email": err})
	}

	available, err := a.Auther.IsIdentityAvailable(ctx.Context(), email)
	if err != nil {
		return err
	}

	message := "Email is available"
	if !available {
		message = "Email is already registered"
	}

	return SendOK(ctx, http.StatusOK, CheckEmailResponse{Available: available, Message: message})
}

func (a *AuthController) CurrentUser(ctx router.Context) error {
	principal, err := a.principal(ctx)
	if err != nil {
		return err
	}

	account, err := a.Auther.Account(ctx.Context(), principal.Subject)
	if err != nil {
		return err
	}

	return SendOK(ctx, http.StatusOK, NewAccountResponse(account))
}

func (a *AuthController) UpdateCurrentUser(ctx router.Context) error {
	principal, err := a.principal(ctx)
	if err != nil {
		return err
	}

	payload := new(UpdateProfileRequest)
	if err := a.bind(ctx, payload); err != nil {
		return err
	}

	phone, err := a.phone(payload.Phone)
	if err != nil {
		return err
	}

	account, err := a.Auther.UpdateProfile(ctx.Context(), principal.Subject, ProfileInput{
		Name:  strings.TrimSpace(payload.Name),
		Phone: phone,
	})
	if err != nil {
		return err
	}

	return SendOK(ctx, http.StatusOK, NewAccountResponse(account))
}

func (a *AuthController) ChangePassword(ctx router.Context) error {
	principal, err := a.principal(ctx)
	if err != nil {
		return err
	}

	payload := new(ChangePasswordRequest)
	if err := a.bind(ctx, payload); err != nil {
		return err
	}

	if err := a.Auther.ChangePassword(ctx.Context(), principal.Subject, payload.CurrentPassword, payload.NewPassword); err != nil {
		return err
	}

	return SendOK(ctx, http.StatusOK, nil)
}

type validatable interface {
	Validate() error
}

func (a *AuthController) bind(ctx router.Context, payload validatable) error {
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Debug("failed to parse request body", "path", ctx.Path(), "error", err)
		return withSource(ErrInvalidInput, err, map[string]any{
			detailsKey: map[string]string{"body": "request body must be valid JSON"},
		})
	}

	if a.Debug {
		a.Logger.Debug("request payload", "path", ctx.Path(), "payload", print.MaybePrettyJSON(redact(payload)))
	}

	if err := payload.Validate(); err != nil {
		return invalidInput(err)
	}

	return nil
}

func (a *AuthController) phone(raw string) (string, error) {
	phone, err := NormalizePhone(raw, a.PhoneRegion)
	if err != nil {
		return "", invalidInput(validation.Errors{"phone": err})
	}
	return phone, nil
}

func (a *AuthController) principal(ctx router.Context) (*Principal, error) {
	principal, ok := PrincipalFromRouter(ctx, a.Routing.ContextKey())
	if !ok {
		return nil, ErrAuthenticationRequired
	}
	return principal, nil
}

// invalidInput converts ozzo validation errors into ErrInvalidInput with
// per field messages.
func invalidInput(err error) error {
	fields := map[string]string{}

	var verrs validation.Errors
	if stderrors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				fields[field] = ferr.Error()
			}
		}
	} else if err != nil {
		fields["payload"] = err.Error()
	}

	return withSource(ErrInvalidInput, err, map[string]any{detailsKey: fields})
}

func redact(payload any) any {
	switch p := payload.(type) {
	case *SignupRequest:
		out := *p
		out.Password = "***"
		return out
	case *LoginRequest:
		out := *p
		out.Password = "***"
		return out
	case *ChangePasswordRequest:
		return map[string]string{"currentPassword": "***", "newPassword": "***", "confirmPassword": "***"}
	default:
		return payload
	}
}

// ValidateStringEquals checks that the value matches str
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return stderrors.New("values must match")
		}
		return nil
	}
}

func lettersAndDigits(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	var letter, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return stderrors.New("must contain letters and digits")
	}
	return nil
}
