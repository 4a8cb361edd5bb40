package enroll

import (
	"fmt"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// RegisterEnrollRoutes mounts the registration, approval and auth-action
// pages on the given router.
func RegisterEnrollRoutes[T any](app router.Router[T], opts ...EnrollControllerOption) {

	controller := NewEnrollController(opts...)

	app.Get(controller.Routes.Login, controller.LoginShow).
		SetName("sign-in.get")

	app.Get(controller.Routes.Register, controller.RegisterShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegisterCreate).
		SetName("register.post")

	app.Get(controller.Routes.MuseumRegister, controller.MuseumRegisterShow).
		SetName("museum-register.get")
	app.Post(controller.Routes.MuseumRegister, controller.MuseumRegisterCreate).
		SetName("museum-register.post")

	app.Get(controller.Routes.PendingApproval, controller.PendingApproval).
		SetName("pending-approval.get")

	app.Get(controller.Routes.AuthAction, controller.AuthAction).
		SetName("auth-action.get")
}

type EnrollControllerRoutes struct {
	Login           string
	Register        string
	MuseumRegister  string
	PendingApproval string
	AuthAction      string
}

type EnrollControllerViews struct {
	Login           string
	Register        string
	MuseumRegister  string
	PendingApproval string
	AuthAction      string
	Restricted      string
}

type EnrollController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Provider     AccountProvider
	FeatureGate  gate.FeatureGate
	Sink         ActivitySink
	Routes       *EnrollControllerRoutes
	Views        *EnrollControllerViews
	ErrorHandler router.ErrorHandler
	redirector   *Redirector
}

type EnrollControllerOption func(*EnrollController) *EnrollController

func NewEnrollController(opts ...EnrollControllerOption) *EnrollController {
	c := &EnrollController{
		Logger: defLogger{},
		Sink:   noopActivitySink{},
		Routes: &EnrollControllerRoutes{
			Login:           "/login",
			Register:        "/register",
			MuseumRegister:  "/museum-register",
			PendingApproval: "/pending-approval",
			AuthAction:      "/auth/action",
		},
		Views: &EnrollControllerViews{
			Login:           "login",
			Register:        "register",
			MuseumRegister:  "museum_register",
			PendingApproval: "pending_approval",
			AuthAction:      "auth_action",
			Restricted:      "restricted",
		},
		ErrorHandler: defaultErrHandler,
	}

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	if c.redirector == nil && c.Provider != nil {
		c.redirector = NewRedirector(c.Provider,
			WithRedirectorActivitySink(c.Sink),
			WithRedirectorLogger(c.Logger),
		)
	}

	return c
}

// WithController lets callers fully customize the controller.
func WithController(fn func(*EnrollController) *EnrollController) EnrollControllerOption {
	return fn
}

// WithRepository sets the document-store repositories.
func WithRepository(repo RepositoryManager) EnrollControllerOption {
	return func(c *EnrollController) *EnrollController {
		c.Repo = repo
		return c
	}
}

// WithAccountProvider sets the external auth provider.
func WithAccountProvider(provider AccountProvider) EnrollControllerOption {
	return func(c *EnrollController) *EnrollController {
		c.Provider = provider
		return c
	}
}

// WithFeatureGate guards the registration entry points.
func WithFeatureGate(fg gate.FeatureGate) EnrollControllerOption {
	return func(c *EnrollController) *EnrollController {
		c.FeatureGate = fg
		return c
	}
}

// WithActivitySink sets the audit sink shared by the page handlers.
func WithActivitySink(sink ActivitySink) EnrollControllerOption {
	return func(c *EnrollController) *EnrollController {
		c.Sink = normalizeActivitySink(sink)
		return c
	}
}

// WithControllerLogger overrides the controller logger.
func WithControllerLogger(l Logger) EnrollControllerOption {
	return func(c *EnrollController) *EnrollController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func (c *EnrollController) LoginShow(ctx router.Context) error {
	return ctx.Render(c.Views.Login, router.ViewContext{
		"errors": map[string]string{},
	})
}

// RegisterShow resolves the invitation named in the link and renders the
// registration form with the invited email and parish read-only. A missing,
// used or expired invitation is a terminal state for this page load.
func (c *EnrollController) RegisterShow(ctx router.Context) error {
	inviteID := ctx.Query("invite")

	var resolved *ResolveInviteResponse
	resolver := NewResolveInviteHandler(c.Repo)

	err := resolver.Execute(ctx.Context(), ResolveInviteMessage{
		InviteID: inviteID,
		OnResponse: func(resp *ResolveInviteResponse) {
			resolved = resp
		},
	})

	if err != nil {
		c.Logger.Error("invite resolution failed", "invite", inviteID, "error", err)
		return ctx.Render(c.Views.Register, router.ViewContext{
			"invite_error": userMessage(err),
			"errors":       map[string]string{},
		})
	}

	return ctx.Render(c.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"invite": map[string]string{
			"id":      inviteID,
			"email":   resolved.Email,
			"parish":  resolved.ParishName,
			"diocese": resolved.Diocese,
			"token":   resolved.Token,
		},
	})
}

// AcceptInvitePayload is the invite-completion form payload.
type AcceptInvitePayload struct {
	InviteID        string `form:"invite_id" json:"invite_id"`
	Token           string `form:"token" json:"token"`
	Name            string `form:"name" json:"name"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r AcceptInvitePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.InviteID, validation.Required, is.UUID),
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Password, validation.Required),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password, "Passwords do not match")),
		),
	)
}

func (c *EnrollController) RegisterCreate(ctx router.Context) error {
	if err := requireInviteRedeemGate(ctx.Context(), c.FeatureGate); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	payload := new(AcceptInvitePayload)

	if err := ctx.Bind(payload); err != nil {
		c.Logger.Error("accept invite parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(c.Views.Register, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		c.Logger.Error("accept invite validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(c.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if c.Debug {
		fmt.Println("======= ENROLL INVITE ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	var outcome *RegistrationOutcome
	accept := NewAcceptInviteHandler(c.Repo, c.Provider,
		WithAcceptActivitySink(c.Sink),
		WithAcceptLogger(c.Logger),
	)

	err := accept.Execute(ctx.Context(), AcceptInviteMessage{
		InviteID:        payload.InviteID,
		Token:           payload.Token,
		Name:            payload.Name,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
		OnResponse: func(o *RegistrationOutcome) {
			outcome = o
		},
	})

	if err != nil {
		c.Logger.Error("accept invite error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  userMessage(err),
			"system_message": "Registration failed",
		}).Render(c.Views.Register, router.ViewContext{
			"record": payload,
			"errors": []string{userMessage(err)},
		})
	}

	if c.Debug && outcome != nil {
		fmt.Println(print.MaybePrettyJSON(outcome))
	}

	// invite-completed accounts are approved already; straight to login
	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Registration complete. You can sign in now.",
	}).Redirect(c.Routes.Login, fiber.StatusSeeOther)
}

func (c *EnrollController) MuseumRegisterShow(ctx router.Context) error {
	return ctx.Render(c.Views.MuseumRegister, router.ViewContext{
		"errors": map[string]string{},
		"record": RegisterUserMessage{},
	})
}

// MuseumRegisterPayload is the self-registration form payload.
type MuseumRegisterPayload struct {
	Name            string `form:"name" json:"name"`
	Email           string `form:"email" json:"email"`
	Diocese         string `form:"diocese" json:"diocese"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r MuseumRegisterPayload) Validate() error {
	return Credentials{
		Name:            r.Name,
		Email:           r.Email,
		Password:        r.Password,
		ConfirmPassword: r.ConfirmPassword,
	}.Validate()
}

func (c *EnrollController) MuseumRegisterCreate(ctx router.Context) error {
	if err := requireSelfRegisterGate(ctx.Context(), c.FeatureGate); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	payload := new(MuseumRegisterPayload)

	if err := ctx.Bind(payload); err != nil {
		c.Logger.Error("museum register parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(c.Views.MuseumRegister, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		c.Logger.Error("museum register validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(c.Views.MuseumRegister, router.ViewContext{
			"record":     payload,
			"validation": err.Error(),
		})
	}

	register := NewRegisterUserHandler(c.Repo, c.Provider,
		WithRegisterActivitySink(c.Sink),
		WithRegisterLogger(c.Logger),
	)

	err := register.Execute(ctx.Context(), RegisterUserMessage{
		Name:            payload.Name,
		Email:           payload.Email,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
		Role:            string(RoleMuseum),
		Diocese:         payload.Diocese,
	})

	if err != nil {
		c.Logger.Error("museum register error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  userMessage(err),
			"system_message": "Registration failed",
		}).Render(c.Views.MuseumRegister, router.ViewContext{
			"record": payload,
			"errors": []string{userMessage(err)},
		})
	}

	// success message stays on screen before the page moves on
	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Registration received. Your account awaits approval.",
	}).Render(c.Views.MuseumRegister, router.ViewContext{
		"registered":     true,
		"redirect_to":    c.pendingApprovalURL(RoleMuseum, payload.Diocese, payload.Name, payload.Email),
		"redirect_after": DefaultRegisterRedirectDelay.Seconds(),
	})
}

// PendingApproval renders the awaiting-approval card with role-specific
// contact info carried over as navigation state.
func (c *EnrollController) PendingApproval(ctx router.Context) error {
	role := Role(ctx.Query("role"))
	return ctx.Render(c.Views.PendingApproval, router.ViewContext{
		"role":    role,
		"diocese": ctx.Query("diocese"),
		"name":    ctx.Query("name"),
		"email":   ctx.Query("email"),
		"contact": ApprovalContact(role),
	})
}

// AuthAction handles the provider's email-link callbacks: email verification
// and password-reset forwarding.
func (c *EnrollController) AuthAction(ctx router.Context) error {
	req := ActionRequest{
		Mode:        ctx.Query("mode"),
		Code:        ctx.Query("oobCode"),
		ContinueURL: ctx.Query("continueUrl"),
	}

	if c.redirector == nil {
		c.redirector = NewRedirector(c.Provider,
			WithRedirectorActivitySink(c.Sink),
			WithRedirectorLogger(c.Logger),
		)
	}

	result := c.redirector.Handle(ctx.Context(), req)

	if result.Status == ActionStatusError {
		return ctx.Render(c.Views.AuthAction, router.ViewContext{
			"status":  string(result.Status),
			"reason":  string(result.Reason),
			"message": result.Message,
		})
	}

	if req.Mode == ActionModeResetPassword {
		return ctx.Redirect(result.Redirect, fiber.StatusSeeOther)
	}

	return ctx.Render(c.Views.AuthAction, router.ViewContext{
		"status":         string(result.Status),
		"message":        result.Message,
		"email":          result.Email,
		"redirect_to":    result.Redirect,
		"redirect_after": result.Delay.Seconds(),
	})
}

// RenderGate turns a gate decision into the corresponding page response.
// Protected pages call it before rendering their content.
func (c *EnrollController) RenderGate(ctx router.Context, sc SessionContext, category PageCategory) (bool, error) {
	decision := EvaluatePage(sc, category)
	switch decision {
	case DecisionGranted:
		return true, nil
	case DecisionUnauthenticated:
		return false, ctx.Redirect(c.Routes.Login, fiber.StatusSeeOther)
	case DecisionPendingApproval:
		view := ViewFor(sc, decision, c.Routes.Login)
		return false, ctx.Render(c.Views.PendingApproval, router.ViewContext{
			"contact": view.Contact,
		})
	default:
		return false, ctx.Render(c.Views.Restricted, router.ViewContext{
			"message": "Access Restricted",
		})
	}
}

func (c *EnrollController) pendingApprovalURL(role Role, diocese, name, email string) string {
	query := url.Values{}
	query.Set("role", string(role))
	query.Set("diocese", diocese)
	query.Set("name", name)
	query.Set("email", email)
	return c.Routes.PendingApproval + "?" + query.Encode()
}

// userMessage returns the human-facing message for an error, unwrapping rich
// errors so internals stay out of the page.
func userMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field -> message map for the form views.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["form"] = err.Error()
	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
