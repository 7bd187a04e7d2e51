package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/eitsa/identity"
	"github.com/eitsa/identity/geo"
	"github.com/eitsa/identity/leads"
	"github.com/eitsa/identity/middleware"
)

type deps struct {
	users     *identity.UsersRepository
	auth      *identity.Authenticator
	verifier  *identity.Verifier
	registrar *identity.Registrar
	leads     *leads.Repository
	geo       *geo.Client
	logger    identity.Logger
}

func registerRoutes(app *fiber.App, d *deps) {
	requireAuth := middleware.RequireAuth(middleware.Config{
		Auth:   d.auth,
		Logger: d.logger,
	})
	adminOnly := middleware.RequireRole(identity.RoleAdmin)
	managersUp := middleware.RequireRole(identity.RoleAdmin, identity.RoleManager)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", d.handleRegister)
	auth.Post("/login", d.handleLogin)
	auth.Post("/forgot-password", d.handleForgotPassword)
	auth.Post("/reset-password", d.handleResetPassword)
	auth.Get("/verify-email", d.handleVerifyEmail)

	auth.Get("/me", requireAuth, d.handleMe)
	auth.Put("/profile", requireAuth, d.handleUpdateProfile)
	auth.Post("/logout", requireAuth, d.handleLogout)
	auth.Put("/change-password", requireAuth, d.handleChangePassword)
	auth.Get("/sessions", requireAuth, d.handleSessions)

	auth.Get("/users", requireAuth, adminOnly, d.handleListUsers)
	auth.Put("/users/:id/role", requireAuth, adminOnly, d.handleUpdateRole)
	auth.Put("/users/:id/status", requireAuth, adminOnly, d.handleToggleStatus)

	lead := api.Group("/leads", requireAuth)
	lead.Post("/", d.handleCreateLead)
	lead.Get("/", d.handleListLeads)
	lead.Get("/:id", d.handleGetLead)
	lead.Put("/:id/status", managersUp, d.handleLeadStatus)
	lead.Put("/:id/assign", managersUp, d.handleLeadAssign)
	lead.Delete("/:id", adminOnly, d.handleDeleteLead)

	geoAPI := api.Group("/geo", requireAuth)
	geoAPI.Get("/geocode", d.handleGeocode)
	geoAPI.Get("/distance", d.handleDistance)
	geoAPI.Get("/service-area", d.handleServiceArea)
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Device   string `json:"device"`
}

func (d *deps) handleRegister(c *fiber.Ctx) error {
	var payload identity.RegisterUser
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	user, err := d.registrar.Register(c.UserContext(), payload)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

func (d *deps) handleLogin(c *fiber.Ctx) error {
	var payload loginPayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	device := payload.Device
	if device == "" {
		device = c.Get(fiber.HeaderUserAgent)
	}

	result, err := d.auth.Login(c.UserContext(), payload.Email, payload.Password, device, c.IP())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"token":         result.BearerToken,
		"session_token": result.SessionToken,
		"user":          result.User,
	})
}

func (d *deps) handleMe(c *fiber.Ctx) error {
	return c.JSON(middleware.UserFromCtx(c))
}

func (d *deps) handleLogout(c *fiber.Ctx) error {
	user := middleware.UserFromCtx(c)
	session := c.Get(middleware.DefaultSessionHeader)

	if err := d.auth.Logout(c.UserContext(), user, session); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "logged out"})
}

func (d *deps) handleSessions(c *fiber.Ctx) error {
	user := middleware.UserFromCtx(c)
	return c.JSON(user.ActiveSessionSummaries())
}

func (d *deps) handleUpdateProfile(c *fiber.Ctx) error {
	var payload identity.ProfileUpdate
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	user := middleware.UserFromCtx(c)

	updated, err := d.registrar.UpdateProfile(c.UserContext(), user, payload)
	if err != nil {
		return err
	}

	return c.JSON(updated)
}

type changePasswordPayload struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (d *deps) handleChangePassword(c *fiber.Ctx) error {
	var payload changePasswordPayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(payload.NewPassword) < 6 {
		return badRequest(c, "new password must be at least 6 characters long")
	}

	user := middleware.UserFromCtx(c)

	if err := identity.ComparePasswordAndHash(payload.CurrentPassword, user.PasswordHash); err != nil {
		return err
	}

	hash, err := identity.HashPassword(payload.NewPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	if _, err := d.users.Save(c.UserContext(), user); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "password updated"})
}

type emailPayload struct {
	Email string `json:"email"`
}

func (d *deps) handleForgotPassword(c *fiber.Ctx) error {
	var payload emailPayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := d.verifier.IssuePasswordReset(c.UserContext(), payload.Email); err != nil {
		return err
	}

	// same response whether or not the account exists
	return c.JSON(fiber.Map{"message": "if the account exists, a reset link has been sent"})
}

type resetPayload struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (d *deps) handleResetPassword(c *fiber.Ctx) error {
	var payload resetPayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := d.verifier.RedeemPasswordReset(c.UserContext(), payload.Token, payload.Password); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "password has been reset, please log in again"})
}

func (d *deps) handleVerifyEmail(c *fiber.Ctx) error {
	if _, err := d.verifier.RedeemEmailVerification(c.UserContext(), c.Query("token")); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "email verified"})
}

func (d *deps) handleListUsers(c *fiber.Ctx) error {
	users, err := d.users.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(users)
}

type rolePayload struct {
	Role string `json:"role"`
}

func (d *deps) handleUpdateRole(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	var payload rolePayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	role, ok := identity.ParseRole(payload.Role)
	if !ok {
		return badRequest(c, "invalid role")
	}

	user, err := d.users.FindByID(c.UserContext(), id)
	if err != nil {
		return err
	}

	user.Role = role
	if _, err := d.users.Save(c.UserContext(), user); err != nil {
		return err
	}

	return c.JSON(user)
}

func (d *deps) handleToggleStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	user, err := d.users.FindByID(c.UserContext(), id)
	if err != nil {
		return err
	}

	user.IsActive = !user.IsActive
	if _, err := d.users.Save(c.UserContext(), user); err != nil {
		return err
	}

	return c.JSON(user)
}

func (d *deps) handleCreateLead(c *fiber.Ctx) error {
	var lead leads.Lead
	if err := c.BodyParser(&lead); err != nil {
		return badRequest(c, "invalid request body")
	}

	created, err := d.leads.Create(c.UserContext(), &lead)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (d *deps) handleListLeads(c *fiber.Ctx) error {
	filter := leads.Filter{
		Status: leads.Status(c.Query("status")),
		Source: leads.Source(c.Query("source")),
	}

	if assigned := c.Query("assigned_to"); assigned != "" {
		id, err := uuid.Parse(assigned)
		if err != nil {
			return badRequest(c, "invalid assigned_to id")
		}
		filter.AssignedTo = id
	}

	// sales reps only see their own leads
	user := middleware.UserFromCtx(c)
	if user.Role == identity.RoleSalesRep {
		filter.AssignedTo = user.ID
	}

	records, err := d.leads.List(c.UserContext(), filter)
	if err != nil {
		return err
	}

	return c.JSON(records)
}

func (d *deps) handleGetLead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid lead id")
	}

	lead, err := d.leads.Get(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(lead)
}

type leadStatusPayload struct {
	Status string `json:"status"`
}

func (d *deps) handleLeadStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid lead id")
	}

	var payload leadStatusPayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	lead, err := d.leads.UpdateStatus(c.UserContext(), id, leads.Status(payload.Status))
	if err != nil {
		return err
	}

	return c.JSON(lead)
}

type leadAssignPayload struct {
	UserID string `json:"user_id"`
}

func (d *deps) handleLeadAssign(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid lead id")
	}

	var payload leadAssignPayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	if _, err := d.users.FindByID(c.UserContext(), userID); err != nil {
		return err
	}

	lead, err := d.leads.Assign(c.UserContext(), id, userID)
	if err != nil {
		return err
	}

	return c.JSON(lead)
}

func (d *deps) handleDeleteLead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid lead id")
	}

	if err := d.leads.Delete(c.UserContext(), id); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "lead deleted"})
}

func (d *deps) handleGeocode(c *fiber.Ctx) error {
	result, err := d.geo.FromAddress(
		c.UserContext(),
		c.Query("address"),
		c.Query("city"),
		c.Query("state"),
		c.Query("zip_code"),
	)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

func (d *deps) handleDistance(c *fiber.Ctx) error {
	lat1 := c.QueryFloat("lat1")
	lon1 := c.QueryFloat("lon1")
	lat2 := c.QueryFloat("lat2")
	lon2 := c.QueryFloat("lon2")

	if !geo.ValidCoordinates(lat1, lon1) || !geo.ValidCoordinates(lat2, lon2) {
		return badRequest(c, "invalid coordinates")
	}

	meters := geo.Distance(
		geo.Point{Latitude: lat1, Longitude: lon1},
		geo.Point{Latitude: lat2, Longitude: lon2},
	)

	return c.JSON(fiber.Map{"distance": meters})
}

func (d *deps) handleServiceArea(c *fiber.Ctx) error {
	lat := c.QueryFloat("lat")
	lng := c.QueryFloat("lng")
	if !geo.ValidCoordinates(lat, lng) {
		return badRequest(c, "invalid coordinates")
	}

	user := middleware.UserFromCtx(c)

	radius := c.QueryFloat("radius")
	if radius <= 0 && user.ServiceArea != nil {
		radius = user.ServiceArea.Radius
	}
	if radius <= 0 {
		radius = identity.DefaultServiceRadius
	}

	point := geo.Point{Latitude: lat, Longitude: lng}

	area, err := d.geo.ServiceArea(c.UserContext(), point, radius)
	if err != nil {
		return err
	}

	resp := fiber.Map{
		"center": area.Center,
		"radius": area.Radius,
		"city":   area.City,
		"state":  area.State,
		"bounds": area.Bounds,
	}

	// flag whether the queried point falls inside the rep's own territory
	if own := user.ServiceArea; own != nil {
		resp["in_service_area"] = geo.WithinRadius(
			geo.Point{Latitude: own.Latitude, Longitude: own.Longitude},
			own.Radius,
			point,
		)
	}

	return c.JSON(resp)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": msg})
}

// errorHandler maps the identity error taxonomy to transport status codes.
// Storage failures stay generic; authentication failures keep their
// enumeration-safe message.
func errorHandler(logger identity.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			status := richErr.Code
			if status < fiber.StatusBadRequest {
				status = statusFromCategory(richErr.Category)
			}

			if status >= fiber.StatusInternalServerError {
				logger.Error("request failed", "error", richErr.Message, "category", richErr.Category)
				return c.Status(status).JSON(fiber.Map{"message": "internal server error"})
			}

			return c.Status(status).JSON(fiber.Map{
				"message": richErr.Message,
				"code":    richErr.TextCode,
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{"message": fiberErr.Message})
		}

		logger.Error("unhandled error", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal server error"})
	}
}

func statusFromCategory(category errors.Category) int {
	switch category {
	case errors.CategoryAuth:
		return fiber.StatusUnauthorized
	case errors.CategoryAuthz:
		return fiber.StatusForbidden
	case errors.CategoryNotFound:
		return fiber.StatusNotFound
	case errors.CategoryConflict:
		return fiber.StatusConflict
	case errors.CategoryValidation, errors.CategoryBadInput:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
