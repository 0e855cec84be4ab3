package server

import (
	"context"
	"fmt"
	"net/http"

	"roomchat/internal/chat"
	"roomchat/internal/config"
	"roomchat/internal/room"
	"roomchat/internal/session"
	"roomchat/internal/upload"
	"roomchat/internal/web"
)

// App owns the long-lived components behind the router.
type App struct {
	Rooms   *room.Registry
	Hub     *chat.Hub
	Handler http.Handler

	cfg *config.Config
}

func NewApp(cfg *config.Config) (*App, error) {
	rooms := room.NewRegistry(room.NewGenerator(cfg.Rooms.CodeLength))

	codec, err := session.NewCodec(session.CodecOptions{
		Secret: cfg.Session.Secret,
		TTL:    cfg.Session.TTL,
		Secure: cfg.Session.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("session codec: %w", err)
	}

	store, err := upload.NewStore(upload.Options{
		Root:       cfg.Upload.Folder,
		Extensions: cfg.Upload.AllowedExtensions,
		MaxBytes:   cfg.Upload.MaxBytes,
		PublicURL:  cfg.Upload.PublicURL,
	})
	if err != nil {
		return nil, fmt.Errorf("upload store: %w", err)
	}

	hub := chat.NewHub(rooms)
	handler := NewRouter(Deps{
		Web:             web.NewHandler(session.NewBinder(rooms), codec, rooms),
		Chat:            chat.NewHandler(hub, cfg.HTTP.AllowedOrigins),
		Upload:          upload.NewHandler(store),
		Sessions:        codec,
		AllowedOrigins:  cfg.HTTP.AllowedOrigins,
		UploadMaxBytes:  store.MaxBytes(),
		UploadPublicURL: cfg.Upload.PublicURL,
	})

	return &App{Rooms: rooms, Hub: hub, Handler: handler, cfg: cfg}, nil
}

// Start runs the hub and the room janitor until ctx is done.
func (a *App) Start(ctx context.Context) {
	go a.Hub.Run(ctx)
	if a.cfg.Rooms.SweepInterval > 0 {
		go a.Rooms.RunJanitor(ctx, a.cfg.Rooms.SweepInterval, a.cfg.Rooms.IdleGrace)
	}
}
