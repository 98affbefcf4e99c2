package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/guildchat/server/internal/config"
	"github.com/guildchat/server/internal/guild"
	"github.com/guildchat/server/internal/handler"
	"github.com/guildchat/server/internal/identity"
	"github.com/guildchat/server/internal/logging"
	"github.com/guildchat/server/internal/protocol"
	"github.com/guildchat/server/internal/session"
	"github.com/guildchat/server/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().WithError(err).Fatal("load config")
	}

	log := logrus.NewEntry(logging.Default())

	ctx, cancelConnect := context.WithTimeout(context.Background(), cfg.MongoConnectTimeout)
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		cancelConnect()
		log.WithError(err).Fatal("connect to document store")
	}
	if err := client.Ping(ctx, nil); err != nil {
		cancelConnect()
		log.WithError(err).Fatal("ping document store")
	}
	cancelConnect()

	users := identity.NewMongoStore(client)
	if err := users.EnsureIndexes(context.Background()); err != nil {
		log.WithError(err).Fatal("ensure user indexes")
	}
	sessions := session.NewMongoStore(client, cfg.SessionTTL)

	locks := guild.NewChannelLockRegistry()
	go locks.Run()
	defer locks.Stop()
	guilds := guild.NewMongoStore(client, locks)

	h := handler.New(sessions, users, guilds, log)

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		log.WithError(err).Fatal("listen")
	}
	log.WithField("addr", cfg.ListenAddr).Info("guildchat server listening")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		log.Info("shutting down")
		_ = listener.Close()
	}()

	serve(listener, h, log)

	if err := client.Disconnect(context.Background()); err != nil {
		log.WithError(err).Warn("disconnect document store")
	}
}

// serve implements spec.md §4.3's listener/dispatcher loop: accept, spawn
// one independent goroutine per connection, each handling exactly one
// request before closing.
func serve(listener net.Listener, h *handler.Handler, log *logrus.Entry) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.WithError(err).Warn("accept")
			continue
		}
		go handleConnection(conn, h, log)
	}
}

// handleConnection mints a connection id that outlives any single request,
// so log lines from a read failure, a write failure, and the handler's
// internal errors can all be correlated back to one TCP connection across a restart
// (spec.md §7: every surfaced InternalServerError is logged with it).
func handleConnection(conn net.Conn, h *handler.Handler, log *logrus.Entry) {
	defer conn.Close()

	connLog := log.WithField("connection_id", uuid.NewString())
	c := transport.New(conn)

	var req protocol.Request
	if err := c.Read(&req); err != nil {
		connLog.WithError(err).Debug("read request")
		_ = c.Write(protocol.Err(protocol.ErrBadRequest))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx = logging.WithContext(ctx, connLog)

	resp := h.Handle(ctx, req)
	if err := c.Write(resp); err != nil {
		connLog.WithError(err).Debug("write response")
	}
}
