package media

import (
	"context"
	"errors"
	"io"
	"mime"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ServerConfig configures the media server
type ServerConfig struct {
	Addr         string
	MaxChunk     int64
	AllowOrigins string
}

// Server serves local files under /media/* for the preview surface
type Server struct {
	logger  zerolog.Logger
	app     *fiber.App
	cfg     ServerConfig
	windows bool
}

// NewServer creates a media server
func NewServer(logger zerolog.Logger, cfg ServerConfig) *Server {
	if cfg.MaxChunk <= 0 {
		cfg.MaxChunk = MaxChunk
	}
	if cfg.AllowOrigins == "" {
		cfg.AllowOrigins = "*"
	}

	s := &Server{
		logger:  logger.With().Str("component", "media").Logger(),
		cfg:     cfg,
		windows: runtime.GOOS == "windows",
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.AllowOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Range",
		ExposeHeaders: "Content-Range, Accept-Ranges, Content-Length",
	}))
	app.Use(s.requestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "media server is healthy",
		})
	})
	app.Get("/media/*", s.serveMedia)

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until ctx is cancelled
func (s *Server) Listen(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("media server listening")
		errCh <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.app.ShutdownWithContext(shutdownCtx)
	}
}

// requestLogger logs every request with an id
func (s *Server) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := uuid.NewString()

		c.Locals("requestid", requestID)
		c.Set("X-Request-ID", requestID)

		err := c.Next()

		status := c.Response().StatusCode()
		event := s.logger.Info()
		switch {
		case err != nil || status >= 500:
			event = s.logger.Error().Err(err)
		case status >= 400:
			event = s.logger.Warn()
		}
		event.
			Str("request_id", requestID).
			Str("method", c.Method()).
			Str("uri", c.OriginalURL()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")

		return err
	}
}

type fileSection struct {
	io.Reader
	io.Closer
}

func (s *Server) serveMedia(c *fiber.Ctx) error {
	p := ResolvePath(c.Params("*"), s.windows)

	st, err := os.Stat(p)
	if err != nil || st.IsDir() {
		s.logger.Debug().Str("path", p).Msg("file not found")
		return c.Status(fiber.StatusNotFound).SendString("File not found")
	}
	size := st.Size()
	if size == 0 {
		return c.Status(fiber.StatusNotFound).SendString("File is empty")
	}

	header := c.Get(fiber.HeaderRange)
	r, err := ParseRange(header, size, s.cfg.MaxChunk)
	if errors.Is(err, ErrRangeNotSatisfiable) {
		c.Set(fiber.HeaderContentRange, "bytes */"+strconv.FormatInt(size, 10))
		return c.Status(fiber.StatusRequestedRangeNotSatisfiable).SendString("Range Not Satisfiable")
	}

	f, err := os.Open(p)
	if err != nil {
		s.logger.Error().Err(err).Str("path", p).Msg("failed to open media")
		return c.Status(fiber.StatusInternalServerError).SendString("Error serving file")
	}

	c.Set(fiber.HeaderAcceptRanges, "bytes")
	c.Set(fiber.HeaderContentType, contentType(p))
	if header != "" && !r.Full() {
		c.Status(fiber.StatusPartialContent)
		c.Set(fiber.HeaderContentRange, r.ContentRange())
	} else {
		c.Status(fiber.StatusOK)
	}

	body := fileSection{Reader: io.NewSectionReader(f, r.Start, r.Length()), Closer: f}
	return c.SendStream(body, int(r.Length()))
}

func contentType(p string) string {
	if t := mime.TypeByExtension(filepath.Ext(p)); t != "" {
		return t
	}
	return "video/mp4"
}
