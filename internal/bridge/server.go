package bridge

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/frostctl/internal/config"
	"github.com/danmuck/frostctl/internal/dkg"
	"github.com/danmuck/frostctl/internal/logging"
	"github.com/danmuck/frostctl/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Device is the subset of the session driver the bridge exposes.
type Device interface {
	Version(ctx context.Context) (dkg.Version, error)
	Keys(ctx context.Context, path string, keyType dkg.KeyType, show bool) (dkg.Keys, error)
	Identity(ctx context.Context, index uint8, show bool) (dkg.Identity, error)
	Identities(ctx context.Context) ([]dkg.Identity, error)
	Round1(ctx context.Context, index uint8, identities []dkg.Identity, minSigners uint8) (dkg.RoundPackage, error)
	Round2(ctx context.Context, index uint8, publicPackages [][]byte, secretPackage []byte) (dkg.RoundPackage, error)
	Round3(ctx context.Context, in dkg.Round3Input) (dkg.Round3Request, error)
	Commitments(ctx context.Context, signers []dkg.Identity, txHash []byte) ([]byte, error)
	Nonces(ctx context.Context, signers []dkg.Identity, txHash []byte) ([]byte, error)
	DkgSign(ctx context.Context, pkRandomness, signingPackage, nonces []byte) ([]byte, error)
	DkgKeys(ctx context.Context, keyType dkg.KeyType) (dkg.Keys, error)
	PublicPackage(ctx context.Context) ([]byte, error)
	BackupKeys(ctx context.Context) ([]byte, error)
	RestoreKeys(ctx context.Context, encryptedKeys []byte) error
	ReviewTx(ctx context.Context, tx []byte) ([]byte, error)
}

// Server owns one device handle and serializes every request onto it.
type Server struct {
	Name    string
	Addr    string
	Started time.Time

	write  bool
	token  string
	dev    Device
	mu     sync.Mutex
	router *gin.Engine
	log    zerolog.Logger
}

func New(cfg config.BridgeConfig, dev Device) *Server {
	observability.RegisterMetrics()
	logger := logging.For("bridge")
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.Name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", observability.RequestIDHeader},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		Name:    cfg.Name,
		Addr:    cfg.Addr,
		Started: time.Now(),
		write:   cfg.Write,
		token:   cfg.Token,
		dev:     dev,
		router:  r,
		log:     logger,
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Serve listens on Addr until ctx is done, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.Addr).Bool("write", s.write).Msg("bridge listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// exclusive runs fn while holding the device.
func (s *Server) exclusive(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if v := strings.TrimSpace(o); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
