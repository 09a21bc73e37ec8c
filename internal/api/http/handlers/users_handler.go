package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/api/dto"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/service"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// UsersHandler manages user CRUD endpoints.
type UsersHandler struct {
	service   *service.UserService
	validator *RequestValidator
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService, validator *RequestValidator) *UsersHandler {
	return &UsersHandler{service: userService, validator: validator}
}

// List GET /users/.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	input, err := parseListQuery(c)
	if err != nil {
		return err
	}
	users, err := h.service.List(c.UserContext(), principal, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserListResponse(users)})
}

// Get GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	includeDeleted, err := parseBool(c, "include_deleted")
	if err != nil {
		return err
	}
	user, err := h.service.Get(c.UserContext(), principal, c.Params("id"), includeDeleted)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Create POST /users/.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	var req dto.CreateUserRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	user, err := h.service.Create(c.UserContext(), principal, service.NewAccount{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Update PUT /users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	var req dto.UpdateUserRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	user, err := h.service.Update(c.UserContext(), principal, c.Params("id"), req.Patch())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Delete DELETE /users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	user, err := h.service.Delete(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

func parseListQuery(c *fiber.Ctx) (service.ListUsersInput, error) {
	input := service.ListUsersInput{Limit: defaultPageLimit}
	if raw := c.Query("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			return input, apperrors.NewValidationError("skip must be a non-negative integer", nil)
		}
		input.Offset = skip
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxPageLimit {
			return input, apperrors.NewValidationError("limit must be between 1 and 1000", nil)
		}
		input.Limit = limit
	}
	includeDeleted, err := parseBool(c, "include_deleted")
	if err != nil {
		return input, err
	}
	input.IncludeDeleted = includeDeleted
	return input, nil
}

func parseBool(c *fiber.Ctx, key string) (bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.NewValidationError(key+" must be a boolean", nil)
	}
	return v, nil
}
