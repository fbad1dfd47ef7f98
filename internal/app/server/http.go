package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/trisbattle/arena/internal/domains/dtos"
	"github.com/trisbattle/arena/internal/domains/entities"
	"github.com/trisbattle/arena/pkg/logging"
	"github.com/trisbattle/arena/pkg/utils"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.POST("/rooms", s.handleCreateRoom)
	r.GET("/rooms", s.handleListRooms)
	r.GET("/rooms/:roomId", s.handleGetRoom)
	r.POST("/rooms/:roomId/keys", s.handleCreateRoomKey)
	r.GET("/rooms/:roomId/key", s.handleGetMasterKey)
	r.GET("/status", s.handleStatus)
	r.GET("/ws", func(c *gin.Context) {
		s.handleWebSocket(c.Writer, c.Request)
	})
	return r
}

// requestLogger logs every request with its status and latency.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		logging.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func abortWithError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
}

// authenticate resolves the caller of an HTTP request.
func (s *server) authenticate(c *gin.Context) (entities.PlayerInfo, bool) {
	token, err := bearerToken(c.GetHeader("Authorization"))
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err)
		return entities.PlayerInfo{}, false
	}
	info, err := s.identity.Resolve(c.Request.Context(), token)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, ErrInvalidToken)
		return entities.PlayerInfo{}, false
	}
	return info, true
}

func (s *server) handleCreateRoom(c *gin.Context) {
	host, ok := s.authenticate(c)
	if !ok {
		return
	}
	var req dtos.RoomCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	room, key, err := s.openRoom(c.Request.Context(), host, req.Private, settingsFromRequest(req))
	if err != nil {
		switch {
		case errors.Is(err, ErrRoomLimit):
			abortWithError(c, http.StatusServiceUnavailable, err)
		default:
			logging.Error("failed to create room", zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, err)
		}
		return
	}
	c.JSON(http.StatusCreated, dtos.RoomCreateResponse{RoomId: room.id, Key: key.Key})
}

func (s *server) handleListRooms(c *gin.Context) {
	var rooms []dtos.PublicRoomData
	if err := s.call(func() {
		rooms = s.publicRooms()
	}); err != nil {
		abortWithError(c, http.StatusServiceUnavailable, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (s *server) handleGetRoom(c *gin.Context) {
	var (
		data dtos.PublicRoomData
		ok   bool
	)
	if err := s.call(func() {
		var room *Room
		if room, ok = s.getRoom(c.Param("roomId")); ok {
			data = room.public(s.engine)
		}
	}); err != nil {
		abortWithError(c, http.StatusServiceUnavailable, err)
		return
	}
	if !ok {
		abortWithError(c, http.StatusNotFound, ErrRoomNotFound)
		return
	}
	c.JSON(http.StatusOK, data)
}

// hostOf checks that the caller hosts the room in the path.
func (s *server) hostOf(c *gin.Context) (string, bool) {
	caller, ok := s.authenticate(c)
	if !ok {
		return "", false
	}
	roomId := c.Param("roomId")
	var exists, isHost bool
	if err := s.call(func() {
		var room *Room
		if room, exists = s.getRoom(roomId); exists {
			isHost = room.host.UserId == caller.UserId
		}
	}); err != nil {
		abortWithError(c, http.StatusServiceUnavailable, err)
		return "", false
	}
	switch {
	case !exists:
		abortWithError(c, http.StatusNotFound, ErrRoomNotFound)
		return "", false
	case !isHost:
		abortWithError(c, http.StatusForbidden, ErrNotHost)
		return "", false
	}
	return roomId, true
}

// handleCreateRoomKey mints a single-use join key that expires after KeyTTL.
func (s *server) handleCreateRoomKey(c *gin.Context) {
	roomId, ok := s.hostOf(c)
	if !ok {
		return
	}
	now := s.now()
	expiresAt := now.Add(s.config.KeyTTL)
	key := entities.RoomKey{
		Key:       utils.NewKey(),
		RoomId:    roomId,
		SingleUse: true,
		CreatedAt: now,
		ExpiresAt: &expiresAt,
	}
	if err := s.store.PutRoomKey(c.Request.Context(), key); err != nil {
		logging.Error("failed to put room key", zap.String("room_id", roomId), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, dtos.RoomKeyResponse{Key: key.Key, SingleUse: true})
}

func (s *server) handleGetMasterKey(c *gin.Context) {
	roomId, ok := s.hostOf(c)
	if !ok {
		return
	}
	key, err := s.store.GetMasterRoomKey(c.Request.Context(), roomId)
	if err != nil {
		logging.Error("failed to get master key", zap.String("room_id", roomId), zap.Error(err))
		abortWithError(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, dtos.RoomKeyResponse{Key: key.Key, SingleUse: false})
}

func (s *server) handleStatus(c *gin.Context) {
	var status dtos.ServerStatusResponse
	if err := s.call(func() {
		status = dtos.ServerStatusResponse{
			ActiveRooms: len(s.rooms),
			Connections: len(s.connections),
			CanAccept:   len(s.rooms) < s.config.MaxRooms,
			MaxRooms:    s.config.MaxRooms,
		}
	}); err != nil {
		abortWithError(c, http.StatusServiceUnavailable, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// publicRooms lists non-private rooms, oldest first. It must run on the loop.
func (s *server) publicRooms() []dtos.PublicRoomData {
	rooms := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		if !room.private {
			rooms = append(rooms, room)
		}
	}
	sortRooms(rooms)
	out := make([]dtos.PublicRoomData, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.public(s.engine))
	}
	return out
}
