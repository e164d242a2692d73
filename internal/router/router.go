// Package router sets up all HTTP routes and middleware chains for the
// UCH blog. It organizes routes into public and admin groups with
// appropriate middleware stacks.
package router

import (
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"uch/internal/cache"
	"uch/internal/handlers"
	"uch/internal/metrics"
	"uch/internal/middleware"
	"uch/internal/session"
	"uch/web"
)

// Rate limits for unauthenticated write endpoints.
const (
	loginLimit    = 10
	commentLimit  = 5
	limiterWindow = time.Minute
)

// Options carries the optional pieces of the router.
type Options struct {
	// PageCache caches anonymous blog pages; nil disables caching.
	PageCache *cache.PageCache
	// Media serves uploaded files at /media/ when stored locally.
	Media http.Handler
	// Secure enables HSTS and Secure cookies.
	Secure bool
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(sessionStore *session.Store, admin *handlers.Admin, auth *handlers.Auth, public *handlers.Public, opts Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.Logger)
	r.Use(middleware.NewSecureHeaders(opts.Secure))
	r.Use(middleware.LoadSession(sessionStore))

	// Health and metrics: no session checks, no CSRF.
	getBoth(r, "/health", handlers.Health)
	getBoth(r, "/blog/health", handlers.Health)
	r.Handle("/metrics", metrics.Handler())

	staticFS, err := fs.Sub(web.StaticFS, "static")
	if err == nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	}
	if opts.Media != nil {
		r.Handle("/media/*", http.StripPrefix("/media/", opts.Media))
	}

	loginLimiter := middleware.NewRateLimiter(loginLimit, limiterWindow)
	commentLimiter := middleware.NewRateLimiter(commentLimit, limiterWindow)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRF(opts.Secure))

		// Admin routes.
		r.Route("/admin", func(r chi.Router) {
			// Auth pages, accessible without a session.
			r.Get("/login", auth.LoginPage)
			r.With(loginLimiter.Middleware).Post("/login", auth.LoginSubmit)
			r.Post("/logout", auth.Logout)

			// 2FA requires a session but not completed 2FA.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get("/2fa/setup", auth.TwoFASetupPage)
				r.Get("/2fa/verify", auth.TwoFAVerifyPage)
				r.With(loginLimiter.Middleware).Post("/2fa/verify", auth.TwoFAVerifySubmit)
			})

			// Authenticated, 2FA-verified staff area.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Use(middleware.Require2FA)
				r.Use(middleware.RequireStaff)

				r.Get("/", admin.Dashboard)
				r.Get("/dashboard", admin.Dashboard)

				r.Route("/articles", func(r chi.Router) {
					r.Get("/", admin.ArticlesList)
					r.Get("/new", admin.ArticleNew)
					r.Post("/", admin.ArticleCreate)
					r.Get("/{id}/edit", admin.ArticleEdit)
					r.Post("/{id}", admin.ArticleUpdate)
					r.Post("/{id}/delete", admin.ArticleDelete)
				})

				r.Route("/categories", func(r chi.Router) {
					r.Get("/", admin.CategoriesList)
					r.Get("/new", admin.CategoryNew)
					r.Post("/", admin.CategoryCreate)
					r.Get("/{id}/edit", admin.CategoryEdit)
					r.Post("/{id}", admin.CategoryUpdate)
					r.Post("/{id}/delete", admin.CategoryDelete)
				})

				r.Route("/comments", func(r chi.Router) {
					r.Get("/", admin.CommentsList)
					r.Post("/actions", admin.CommentsAction)
					r.Post("/{id}/delete", admin.CommentDelete)
				})

				r.Route("/media", func(r chi.Router) {
					r.Get("/", admin.MediaLibrary)
					r.Get("/new", admin.MediaNew)
					r.Post("/", admin.MediaUpload)
					r.Get("/{id}/edit", admin.MediaEdit)
					r.Post("/{id}", admin.MediaUpdate)
					r.Post("/{id}/delete", admin.MediaDelete)
					r.Delete("/{id}", admin.MediaDelete)
				})

				// User management, admin only.
				r.Route("/users", func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Get("/", admin.UsersList)
					r.Get("/new", admin.UserNew)
					r.Post("/", admin.UserCreate)
					r.Post("/{id}/reset-2fa", admin.UserResetTwoFA)
					r.Post("/{id}/delete", admin.UserDelete)
				})
			})
		})

		// The blog is served at the root and again under /blog.
		blog := func(r chi.Router) {
			r.With(commentLimiter.Middleware).Post("/articles/{slug}/comments", public.CommentCreate)
			r.With(commentLimiter.Middleware).Post("/articles/{slug}/comments/", public.CommentCreate)

			r.Group(func(r chi.Router) {
				r.Use(middleware.CachePage(opts.PageCache))
				r.Get("/", public.Home)
				getBoth(r, "/articles", public.ArticleList)
				getBoth(r, "/articles/{slug}", public.ArticleDetail)
				getBoth(r, "/category/{slug}", public.CategoryArticles)
				getBoth(r, "/categories", public.CategoryList)
			})
		}
		blog(r)
		r.Route("/blog", blog)
	})

	r.NotFound(public.NotFound)
	return r
}

// getBoth registers a GET handler for a path with and without the
// trailing slash.
func getBoth(r chi.Router, path string, h http.HandlerFunc) {
	path = strings.TrimSuffix(path, "/")
	r.Get(path, h)
	r.Get(path+"/", h)
}
