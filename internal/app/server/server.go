package server

import (
	"context"
	"crypto/rsa"
	"errors"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"
	"github.com/trisbattle/arena/internal/aws/auth"
	"github.com/trisbattle/arena/internal/aws/compute"
	"github.com/trisbattle/arena/internal/aws/storage"
	"github.com/trisbattle/arena/internal/game"
	"github.com/trisbattle/arena/internal/game/tetris"
	"github.com/trisbattle/arena/pkg/logging"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	eventQueueSize = 1024
	storeTimeout   = 5 * time.Second
)

type server struct {
	address  string
	upgrader websocket.Upgrader

	config     Config
	engine     game.Engine
	store      Store
	identity   IdentityResolver
	scheduler  Scheduler
	validate   *validator.Validate
	protection *protection
	sweeper    *cron.Cron
	httpServer *http.Server

	events chan func()
	ctx    context.Context
	cancel context.CancelFunc

	// Owned by the dispatch loop.
	rooms       map[string]*Room
	connections map[string]*Session

	now          func() time.Time
	newRoomId    func() (string, error)
	newSessionId func() string
}

func NewServer() *server {
	cfg := NewConfig()
	ctx := context.Background()

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.AwsRegion))
	if err != nil {
		panic(err)
	}
	storageClient := storage.NewClient(
		dynamodb.NewFromConfig(awsCfg),
		storage.NewConfig(cfg.ProfilesTableName, cfg.ApiTokensTableName, cfg.RoomKeysTableName),
	)

	var cognitoKeys map[string]*rsa.PublicKey
	if cfg.CognitoUserPoolId != "" {
		cognitoKeys, err = auth.LoadCognitoPublicKeys(auth.CognitoKeysUrl(cfg.AwsRegion, cfg.CognitoUserPoolId))
		if err != nil {
			panic(err)
		}
		logging.Info("cognito public keys loaded", zap.Int("keys", len(cognitoKeys)))
	}
	identity := newIdentityResolver(
		storageClient,
		cognitoKeys,
		auth.CognitoIssuer(cfg.AwsRegion, cfg.CognitoUserPoolId),
	)

	var protector Protector
	taskCfg, err := compute.LoadTaskMetadata(ctx)
	if err != nil {
		logging.Warn("failed to load task metadata", zap.Error(err))
	} else if taskCfg.TaskArn != nil {
		protector = compute.NewClient(ecs.NewFromConfig(awsCfg), taskCfg)
	}

	return newServer(cfg, tetris.New(time.Now().UnixNano()), storageClient, identity, protector)
}

func newServer(
	cfg Config,
	engine game.Engine,
	store Store,
	identity IdentityResolver,
	protector Protector,
) *server {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &server{
		address: "0.0.0.0:" + cfg.Port,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		config:       cfg,
		engine:       engine,
		store:        store,
		identity:     identity,
		validate:     validator.New(),
		protection:   newProtection(protector, cfg.ProtectionGrace),
		events:       make(chan func(), eventQueueSize),
		ctx:          ctx,
		cancel:       cancel,
		rooms:        make(map[string]*Room),
		connections:  make(map[string]*Session),
		now:          time.Now,
		newRoomId:    newRoomId,
		newSessionId: uuid.NewString,
	}
	srv.scheduler = loopScheduler{post: srv.post}
	return srv
}

// Start method    runs the dispatch loop and serves until the server stops
func (s *server) Start() error {
	go s.run()
	go s.protection.run(s.ctx)

	sweeper, err := s.startSweeper()
	if err != nil {
		return err
	}
	s.sweeper = sweeper

	s.httpServer = &http.Server{
		Addr:    s.address,
		Handler: s.router(),
	}
	logging.Info("game server started", zap.String("port", s.config.Port))
	err = s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close closes every session and stops the loop.
func (s *server) Close() error {
	if s.sweeper != nil {
		<-s.sweeper.Stop().Done()
	}
	s.call(func() {
		for _, sess := range s.connections {
			sess.close(CloseServerShutdown)
		}
		for _, room := range s.rooms {
			room.cancelTimers()
		}
	})
	s.cancel()
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// handleWebSocket upgrades the request, runs the join protocol and then
// reads frames until the connection drops.
func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	req := parseJoinRequest(r)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	sess := newSession(
		s.newSessionId(),
		s.config.SendBufferSize,
		rate.NewLimiter(rate.Limit(s.config.RateLimit), s.config.RateBurst),
	)
	go sess.writePump(conn, s.config.WriteWait, s.config.PingPeriod)

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	joined := s.join(ctx, sess, req)
	cancel()
	if !joined {
		return
	}
	s.readPump(conn, sess)
}

func (s *server) readPump(conn *websocket.Conn, sess *Session) {
	defer func() {
		sess.close(websocket.CloseNormalClosure)
		s.post(func() {
			s.handleDisconnect(sess)
		})
	}()

	conn.SetReadLimit(s.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.config.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.config.PongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Info("connection closed",
					zap.String("remote_address", conn.RemoteAddr().String()),
					zap.Error(err),
				)
			}
			return
		}
		if !s.post(func() {
			s.handleMessage(sess, data)
		}) {
			return
		}
	}
}
