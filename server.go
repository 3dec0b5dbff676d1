package penmark

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"

	"github.com/veslund/penmark/search"
	"github.com/veslund/penmark/views"
)

// Server serves the site live from the content directory: pages render
// from the post cache, drafts sit behind a password, and search queries
// hit the full-text index. A file watcher keeps everything current
// while posts are being written.
type Server struct {
	Engine *Engine
	Echo   *echo.Echo
	Cache  *PostCache

	cfg              SiteConfig
	log              *slog.Logger
	limiter          *LoginLimiter
	metrics          *Metrics
	searchStore      *search.Store
	searchHandler    *search.Handler
	watcher          *Watcher
	sched            gocron.Scheduler
	sessionSecret    string
	lastPublishCheck time.Time
}

// NewServer creates a preview server for the engine's site.
func NewServer(e *Engine) (*Server, error) {
	cfg := e.Config

	secret := cfg.SessionSecret
	if secret == "" {
		// Random per process: sessions reset on restart, which is fine
		// for a local preview. Set PENMARK_SESSION_SECRET to persist.
		secret = uuid.NewString()
	}

	searchStore, err := search.NewStore(filepath.Join(filepath.Dir(cfg.CachePath), "search.db"))
	if err != nil {
		return nil, err
	}

	s := &Server{
		Engine:           e,
		Echo:             echo.New(),
		cfg:              cfg,
		log:              e.log,
		limiter:          NewLoginLimiter(5, time.Minute),
		metrics:          NewMetrics(),
		searchStore:      searchStore,
		searchHandler:    search.NewHandler(searchStore),
		sessionSecret:    secret,
		lastPublishCheck: e.now(),
	}
	s.Cache = NewPostCache(s.load, cfg.PostCacheTTL)

	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// Start begins serving on the configured address. It blocks until the
// server stops; a clean shutdown surfaces as http.ErrServerClosed.
func (s *Server) Start() error {
	s.refresh()

	w, err := NewWatcher(s.cfg.ContentDir, s.log, func() {
		s.Cache.Invalidate()
		s.refresh()
	})
	if err != nil {
		s.log.Warn("file watching disabled", "error", err)
	} else {
		s.watcher = w
	}

	if err := s.startScheduler(); err != nil {
		return err
	}

	s.log.Info("serving", "addr", s.cfg.Addr, "url", s.cfg.URL)
	return s.Echo.Start(s.cfg.Addr)
}

// Serve runs a preview server for the engine's site until ctx is
// canceled.
func (e *Engine) Serve(ctx context.Context) error {
	srv, err := NewServer(e)
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Shutdown stops the server and its background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			s.log.Warn("watcher close", "error", err)
		}
	}
	if s.sched != nil {
		if err := s.sched.Shutdown(); err != nil {
			s.log.Warn("scheduler shutdown", "error", err)
		}
	}
	s.limiter.Close()
	s.searchHandler.Close()

	err := s.Echo.Shutdown(ctx)
	if cerr := s.searchStore.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *Server) setupRoutes() {
	e := s.Echo

	e.GET("/", s.handleHome)
	e.GET("/tags/:tag/", s.handleTag)
	e.GET("/search/", s.handleSearch)
	e.GET("/drafts/", s.handleDrafts)
	e.POST("/drafts/login/", s.handleDraftsLogin)
	e.POST("/drafts/logout/", s.handleDraftsLogout)
	e.GET("/feed.xml", s.handleFeed)
	e.GET("/sitemap.xml", s.handleSitemap)
	e.GET("/robots.txt", s.handleRobots)
	e.GET("/search-index.json", s.handleSearchIndex)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: s.metrics.Registry,
	}))
	e.GET("/assets/*", s.handleAsset)
	e.GET("/*", s.handlePage)

	s.searchHandler.RegisterRoutes(e)
}

// load feeds the post cache: read from disk, pick up git timestamps,
// render bodies through the render cache.
func (s *Server) load() ([]Post, []LoadError, error) {
	posts, errs, err := s.Engine.Loader.Load()
	if err != nil {
		return nil, nil, err
	}
	s.Engine.fillUpdatedFromGit(posts)

	rep := &BuildReport{}
	if err := s.Engine.renderAll(context.Background(), posts, rep); err != nil {
		return nil, nil, err
	}

	now := s.Engine.now()
	visible := 0
	for _, p := range posts {
		if p.Published() && !p.Scheduled(now) {
			visible++
		}
	}
	s.metrics.CacheReloads.Inc()
	s.metrics.LoadProblems.Set(float64(len(errs)))
	s.metrics.PostsVisible.Set(float64(visible))
	s.metrics.PostsHidden.Set(float64(len(posts) - visible))

	return posts, errs, nil
}

// refresh warms the cache and rebuilds the search index from the
// posts the public site shows. Drafts stay out of the index.
func (s *Server) refresh() {
	posts, err := s.Cache.ListPosts("")
	if err != nil {
		s.log.Warn("content reload failed", "error", err)
		return
	}

	docs := make([]search.Document, len(posts))
	for i, p := range posts {
		docs[i] = search.Document{
			Slug:    p.Slug,
			Title:   p.Title,
			Link:    p.Link,
			Date:    p.Date,
			Tags:    p.Tags,
			Summary: p.Summary,
			Body:    p.Body,
		}
	}
	if err := s.searchStore.Reindex(docs); err != nil {
		s.log.Warn("search reindex failed", "error", err)
		return
	}
	s.metrics.IndexedDocs.Set(float64(len(docs)))
	s.log.Info("content refreshed", "posts", len(posts))
}

func (s *Server) handleHome(c echo.Context) error {
	tag := c.QueryParam("tag")
	posts, err := s.Cache.ListPosts(tag)
	if err != nil {
		return err
	}
	tags, err := s.Cache.ListTags()
	if err != nil {
		return err
	}
	site := ViewSite(s.cfg)
	return Render(c, s.Engine.Theme.Home(site, ViewPosts(posts, s.cfg), tag, tags))
}

func (s *Server) handleTag(c echo.Context) error {
	tag, err := url.PathUnescape(c.Param("tag"))
	if err != nil {
		tag = c.Param("tag")
	}
	posts, err := s.Cache.ListPosts(tag)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		return echo.ErrNotFound
	}
	return Render(c, s.Engine.Theme.Tag(ViewSite(s.cfg), tag, ViewPosts(posts, s.cfg)))
}

func (s *Server) handleSearch(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))

	var results []views.Post
	if q != "" {
		s.metrics.SearchQueries.Inc()
		found, err := s.searchStore.Query(q, 20)
		if err != nil {
			return err
		}
		results = make([]views.Post, len(found))
		for i, r := range found {
			results[i] = views.Post{
				Title:   r.Title,
				Date:    r.Date.Format(humanDate),
				ISODate: r.Date.Format("2006-01-02"),
				Tags:    r.Tags,
				Summary: r.Summary,
				Link:    r.Link,
				Slug:    r.Slug,
			}
		}
	}
	return Render(c, s.Engine.Theme.Search(ViewSite(s.cfg), q, results))
}

// handlePage resolves any remaining path against post permalinks, so
// whatever Permalink format the site uses keeps working on the preview.
// Hidden posts render only for an authenticated drafts session.
func (s *Server) handlePage(c echo.Context) error {
	post, err := s.Cache.PostByLink(c.Request().URL.Path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.ErrNotFound
		}
		return err
	}

	now := s.Engine.now()
	if (!post.Published() || post.Scheduled(now)) && !IsAuthenticated(c) {
		return echo.ErrNotFound
	}

	visible, err := s.Cache.ListPosts("")
	if err != nil {
		return err
	}
	related := FilterRelatedPosts(post, visible)
	if len(related) > 4 {
		related = related[:4]
	}
	return Render(c, s.Engine.postComponent(ViewSite(s.cfg), post, ViewPost(post, s.cfg), ViewPosts(related, s.cfg)))
}

func (s *Server) handleDrafts(c echo.Context) error {
	if s.cfg.DraftsPassword == "" {
		return echo.ErrNotFound
	}
	site := ViewSite(s.cfg)
	if !IsAuthenticated(c) {
		return Render(c, s.Engine.Theme.Login(site, false, CsrfToken(c)))
	}

	drafts, err := s.Cache.ListDrafts()
	if err != nil {
		return err
	}
	problems, err := s.Cache.Errors()
	if err != nil {
		return err
	}
	return Render(c, s.Engine.Theme.Drafts(site, ViewPosts(drafts, s.cfg), ViewProblems(problems), CsrfToken(c)))
}

func (s *Server) handleDraftsLogin(c echo.Context) error {
	if s.cfg.DraftsPassword == "" {
		return echo.ErrNotFound
	}
	ip := c.RealIP()
	if !s.limiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}

	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(s.cfg.DraftsPassword)) == 1 {
		if err := setDraftsSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/drafts/")
	}

	s.limiter.Record(ip)
	s.metrics.LoginFailures.Inc()
	return Render(c, s.Engine.Theme.Login(ViewSite(s.cfg), true, CsrfToken(c)))
}

func (s *Server) handleDraftsLogout(c echo.Context) error {
	if err := clearDraftsSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleFeed(c echo.Context) error {
	posts, err := s.Cache.ListPosts("")
	if err != nil {
		return err
	}
	data, err := FeedXML(s.cfg, posts, s.Engine.now())
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/rss+xml; charset=utf-8", data)
}

func (s *Server) handleSitemap(c echo.Context) error {
	posts, err := s.Cache.ListPosts("")
	if err != nil {
		return err
	}
	tags, err := s.Cache.ListTags()
	if err != nil {
		return err
	}
	data, err := SitemapXML(s.cfg, posts, tags)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/xml; charset=utf-8", data)
}

func (s *Server) handleRobots(c echo.Context) error {
	return c.Blob(http.StatusOK, "text/plain; charset=utf-8", robotsTxt(s.cfg))
}

func (s *Server) handleSearchIndex(c echo.Context) error {
	posts, err := s.Cache.ListPosts("")
	if err != nil {
		return err
	}
	data, err := searchIndexJSON(posts)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/json; charset=utf-8", data)
}

// handleAsset serves site assets from the assets directory, falling
// back to the embedded theme files. The highlight stylesheet is
// generated from the configured chroma style.
func (s *Server) handleAsset(c echo.Context) error {
	rel := path.Clean(strings.TrimPrefix(c.Request().URL.Path, "/assets/"))
	if rel == "." || strings.HasPrefix(rel, "..") || strings.HasPrefix(rel, "/") {
		return echo.ErrNotFound
	}

	if rel == "highlight.css" {
		var buf bytes.Buffer
		if err := s.Engine.Renderer.WriteCSS(&buf); err != nil {
			return err
		}
		return c.Blob(http.StatusOK, "text/css; charset=utf-8", buf.Bytes())
	}

	file := filepath.Join(s.cfg.AssetsDir, filepath.FromSlash(rel))
	if info, err := os.Stat(file); err == nil && !info.IsDir() {
		return c.File(file)
	}

	data, err := EmbeddedAssets.ReadFile("embedded/" + rel)
	if err != nil {
		return echo.ErrNotFound
	}
	ctype := mime.TypeByExtension(path.Ext(rel))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	return c.Blob(http.StatusOK, ctype, data)
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	site := ViewSite(s.cfg)
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, s.Engine.Theme.NotFound(site))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		s.log.Error("server error", "uri", c.Request().RequestURI, "error", err)
		_ = RenderStatus(c, code, s.Engine.Theme.ServerError(site))
		return
	}
	s.Echo.DefaultHTTPErrorHandler(err, c)
}
