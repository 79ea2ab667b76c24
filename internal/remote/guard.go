package remote

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Noquela/sands-of-duat/internal/logging"
	"github.com/Noquela/sands-of-duat/internal/services"
)

// AuthState is the session-level login state.
type AuthState string

const (
	LoggedOut      AuthState = "logged_out"
	Authenticating AuthState = "authenticating"
	Authenticated  AuthState = "authenticated"
)

// Guard wraps a Session so login happens at most once per run. A failed
// login leaves the guard LoggedOut and the failure is returned to every later
// caller without contacting the remote again.
type Guard struct {
	session Session
	logger  *slog.Logger

	mu       sync.Mutex
	state    AuthState
	loginErr error
}

// NewGuard wraps session.
func NewGuard(session Session, logger *slog.Logger) *Guard {
	return &Guard{
		session: session,
		logger:  logging.NewComponentLogger(logger, "remote"),
		state:   LoggedOut,
	}
}

// State reports the current login state.
func (g *Guard) State() AuthState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Login authenticates on first use and is a no-op afterwards.
func (g *Guard) Login(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case g.state == Authenticated:
		return nil
	case g.loginErr != nil:
		return g.loginErr
	}

	g.state = Authenticating
	g.logger.Debug("session state", logging.String("state", string(g.state)))
	if err := g.session.Login(ctx); err != nil {
		g.state = LoggedOut
		g.loginErr = services.Wrap(services.ErrRemoteInteraction, "acquisition", "login", "remote login failed", err)
		logging.ErrorWithContext(g.logger, "remote login failed", "remote_login_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check remote credentials and selectors"),
		)
		return g.loginErr
	}
	g.state = Authenticated
	g.logger.Info("remote session authenticated")
	return nil
}

// Search requires an authenticated session.
func (g *Guard) Search(ctx context.Context, name string) (Handle, error) {
	if err := g.requireAuth("search"); err != nil {
		return Handle{}, err
	}
	return g.session.Search(ctx, name)
}

// ConfigureExport requires an authenticated session.
func (g *Guard) ConfigureExport(ctx context.Context, h Handle, opts ExportOptions) error {
	if err := g.requireAuth("configure export"); err != nil {
		return err
	}
	return g.session.ConfigureExport(ctx, h, opts)
}

// TriggerDownload requires an authenticated session.
func (g *Guard) TriggerDownload(ctx context.Context, h Handle, destDir string) (Download, error) {
	if err := g.requireAuth("trigger download"); err != nil {
		return nil, err
	}
	return g.session.TriggerDownload(ctx, h, destDir)
}

// Close closes the underlying session and resets the state.
func (g *Guard) Close() error {
	g.mu.Lock()
	g.state = LoggedOut
	g.mu.Unlock()
	return g.session.Close()
}

func (g *Guard) requireAuth(op string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == Authenticated {
		return nil
	}
	if g.loginErr != nil {
		return g.loginErr
	}
	return services.Wrap(services.ErrRemoteInteraction, "acquisition", op, fmt.Sprintf("session is %s", g.state), nil)
}
