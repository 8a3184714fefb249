package app

import (
	"errors"
	"fmt"
	"strconv"

	"web_chat_service/internal/roomapi/domain"
	"web_chat_service/pkg/logger"
	"web_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const defaultPageSize = 20

// RoomHandler handles room management HTTP requests
type RoomHandler struct {
	Rooms  RoomUseCase
	Images ImageUseCase
}

// NewRoomHandler create a new RoomHandler
func NewRoomHandler(rooms RoomUseCase, images ImageUseCase) *RoomHandler {
	return &RoomHandler{
		Rooms:  rooms,
		Images: images,
	}
}

func callerID(c *fiber.Ctx) (string, error) {
	userID, ok := c.Locals(middlewares.TokenUserID).(string)
	if !ok {
		return "", fmt.Errorf("c.Locals(%s) is nil", middlewares.TokenUserID)
	}
	return userID, nil
}

func pageParams(c *fiber.Ctx) (limit, offset int) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 || limit > 100 {
		limit = defaultPageSize
	}
	offset, err = strconv.Atoi(c.Query("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// CreateRoom create a chat room
// @Summary Create a chat room
// @Description Creates a room owned by the caller, up to the per-user room limit
// @Tags Rooms
// @Accept json
// @Produce json
// @Param request body domain.CreateRoomReq true "room name and type"
// @Success 200 {object} domain.Room "created room"
// @Failure 400 {object} string "invalid request or room limit reached"
// @Router /room [post]
func (h *RoomHandler) CreateRoom(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	var req domain.CreateRoomReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	logger.Log.Debug("CreateRoom", zap.String("user_id", userID), zap.String("name", req.Name))

	room, err := h.Rooms.CreateRoom(c.Context(), userID, req.Name, req.Type)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(room)
}

// ListRooms list the caller's rooms
// @Summary List own rooms
// @Description Lists rooms owned by the caller, newest first
// @Tags Rooms
// @Produce json
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {array} domain.Room "rooms"
// @Router /room [get]
func (h *RoomHandler) ListRooms(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	limit, offset := pageParams(c)
	rooms, err := h.Rooms.ListRooms(c.Context(), userID, limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(rooms)
}

// RoomInfo fetch a single room
// @Summary Room info
// @Description Returns a room's public metadata by id
// @Tags Rooms
// @Produce json
// @Param id path string true "room id"
// @Success 200 {object} domain.Room "room"
// @Failure 404 {object} string "room not found"
// @Router /room/info/{id} [get]
func (h *RoomHandler) RoomInfo(c *fiber.Ctx) error {
	room, err := h.Rooms.RoomInfo(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(room)
}

// DeleteRoom delete an owned room
// @Summary Delete a room
// @Description Deletes an owned room and wipes its message history
// @Tags Rooms
// @Produce json
// @Param id path string true "room id"
// @Success 200 {object} string "deleted"
// @Failure 404 {object} string "room not found"
// @Router /room/{id} [delete]
func (h *RoomHandler) DeleteRoom(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.Rooms.DeleteRoom(c.Context(), userID, c.Params("id")); err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "room deleted"})
}

// AddFavorite mark a room as favorite
// @Summary Add favorite
// @Description Adds a room to the caller's favorites
// @Tags Favorites
// @Produce json
// @Param id path string true "room id"
// @Success 200 {object} domain.FavoriteRoom "favorite"
// @Failure 404 {object} string "room not found"
// @Router /room/{id}/favorite [post]
func (h *RoomHandler) AddFavorite(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	favorite, err := h.Rooms.AddFavorite(c.Context(), userID, c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(favorite)
}

// DeleteFavorite remove a favorite
// @Summary Delete favorite
// @Description Removes one of the caller's favorites
// @Tags Favorites
// @Produce json
// @Param id path string true "favorite id"
// @Success 200 {object} string "deleted"
// @Router /room/favorite/{id} [delete]
func (h *RoomHandler) DeleteFavorite(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.Rooms.DeleteFavorite(c.Context(), userID, c.Params("id")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "favorite deleted"})
}

// ListFavorites list the caller's favorites
// @Summary List favorites
// @Description Lists the caller's favorite rooms, newest first
// @Tags Favorites
// @Produce json
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {array} domain.FavoriteWithRoom "favorites"
// @Router /room/favorite [get]
func (h *RoomHandler) ListFavorites(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	limit, offset := pageParams(c)
	favorites, err := h.Rooms.ListFavorites(c.Context(), userID, limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(favorites)
}

// UploadURLs mint presigned image upload URLs
// @Summary Presigned upload URLs
// @Description Mints up to 4 presigned PUT URLs for chat image uploads
// @Tags Images
// @Produce json
// @Param id path string true "room id"
// @Param count query int false "number of keys, default 1"
// @Success 200 {array} domain.UploadTarget "upload targets"
// @Failure 400 {object} string "invalid count"
// @Router /room/{id}/image [post]
func (h *RoomHandler) UploadURLs(c *fiber.Ctx) error {
	count, err := strconv.Atoi(c.Query("count"))
	if err != nil {
		count = 1
	}

	targets, err := h.Images.UploadURLs(c.Context(), c.Params("id"), count)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(targets)
}

// DownloadURL mint a presigned image download URL
// @Summary Presigned download URL
// @Description Mints a presigned GET URL for a stored image key
// @Tags Images
// @Produce json
// @Param key query string true "object key"
// @Success 200 {object} string "download url"
// @Failure 400 {object} string "missing key"
// @Router /room/image [get]
func (h *RoomHandler) DownloadURL(c *fiber.Ctx) error {
	url, err := h.Images.DownloadURL(c.Context(), c.Query("key"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"url": url})
}
