package server

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"roomchat/internal/chat"
	"roomchat/internal/middleware"
	"roomchat/internal/upload"
	"roomchat/internal/web"
)

type Deps struct {
	Web      *web.Handler
	Chat     *chat.Handler
	Upload   *upload.Handler
	Sessions middleware.BindingReader

	AllowedOrigins  []string
	UploadMaxBytes  int64
	UploadPublicURL string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           300,
	}))

	r.Get("/healthz", d.Web.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(d.Sessions).Handle)
		r.Get("/", d.Web.Entry)
		r.Post("/", d.Web.Enter)
		r.Get("/room", d.Web.Room)
		r.Get("/ws", d.Chat.ServeWs)
	})

	r.With(chimw.RequestSize(d.UploadMaxBytes)).Post("/upload", d.Upload.Upload)

	// Links may point at another host; files are always served locally under
	// the link's path.
	route := upload.RoutePath(d.UploadPublicURL)
	r.Handle(route+"/*", http.StripPrefix(route, d.Upload.Files()))

	return r
}
