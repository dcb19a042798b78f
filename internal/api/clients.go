package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/frontdesk-ai/frontdesk/internal/models"
	"github.com/frontdesk-ai/frontdesk/internal/services/clients"
	"github.com/frontdesk-ai/frontdesk/internal/services/conversations"
)

type ClientsHandler struct {
	clients       *clients.Service
	conversations *conversations.Service
}

func NewClientsHandler(clientsService *clients.Service, conversationsService *conversations.Service) *ClientsHandler {
	return &ClientsHandler{
		clients:       clientsService,
		conversations: conversationsService,
	}
}

// GetClient returns one client's configuration
func (h *ClientsHandler) GetClient(c *fiber.Ctx) error {
	clientID := c.Params("client_id")
	client, err := h.clients.Get(c.Context(), clientID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Client not found",
		})
	}
	return c.JSON(client)
}

// ListClients returns all clients
func (h *ClientsHandler) ListClients(c *fiber.Ctx) error {
	list, err := h.clients.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list clients",
		})
	}
	return c.JSON(fiber.Map{
		"clients": list,
	})
}

// CreateClient registers a new tenant
func (h *ClientsHandler) CreateClient(c *fiber.Ctx) error {
	var client models.Client
	if err := c.BodyParser(&client); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.clients.Create(c.Context(), &client); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(client)
}

// UpdateClient updates a tenant's configuration. Balance changes go
// through the balance adjustment endpoint, not here.
func (h *ClientsHandler) UpdateClient(c *fiber.Ctx) error {
	var client models.Client
	if err := c.BodyParser(&client); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	client.ID = c.Params("client_id")

	if err := h.clients.Update(c.Context(), &client); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"status": "updated",
	})
}

// ListConversations returns a page of a client's finished conversations
func (h *ClientsHandler) ListConversations(c *fiber.Ctx) error {
	clientID := c.Params("client_id")
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	convs, err := h.conversations.ListByClient(c.Context(), clientID, limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list conversations",
		})
	}
	return c.JSON(fiber.Map{
		"conversations": convs,
		"limit":         limit,
		"offset":        offset,
	})
}
