package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/Noquela/sands-of-duat/internal/config"
	"github.com/Noquela/sands-of-duat/internal/logging"
	"github.com/Noquela/sands-of-duat/internal/remote"
	"github.com/Noquela/sands-of-duat/internal/services"
	"github.com/Noquela/sands-of-duat/internal/textutil"
)

// minResultScore is the lowest label similarity accepted as a search hit.
const minResultScore = 0.3

// Options configures a browser session.
type Options struct {
	BaseURL        string
	Username       string
	Password       string
	Headless       bool
	BrowserBin     string
	DebuggerURL    string
	ElementTimeout time.Duration
	LoginTimeout   time.Duration
	Selectors      config.Selectors
}

// OptionsFromConfig extracts the browser options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL:        cfg.Remote.BaseURL,
		Username:       cfg.Remote.Username,
		Password:       cfg.Remote.Password,
		Headless:       cfg.Remote.Headless,
		BrowserBin:     cfg.Remote.BrowserBin,
		DebuggerURL:    cfg.Remote.DebuggerURL,
		ElementTimeout: cfg.ElementWait(),
		LoginTimeout:   cfg.LoginWait(),
		Selectors:      cfg.Remote.Selectors,
	}
}

// Session is a remote.Session backed by a single browser tab.
type Session struct {
	opts     Options
	logger   *slog.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	mu       sync.Mutex
}

var _ remote.Session = (*Session)(nil)

// Open attaches to DebuggerURL when set, otherwise launches a local browser.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*Session, error) {
	logger = logging.NewComponentLogger(logger, "browser")
	s := &Session{opts: opts, logger: logger}

	controlURL := strings.TrimSpace(opts.DebuggerURL)
	if controlURL == "" {
		l := launcher.New().Headless(opts.Headless)
		if bin := strings.TrimSpace(opts.BrowserBin); bin != "" {
			l = l.Bin(bin)
		}
		url, err := l.Launch()
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "acquisition", "launch browser", "chromium did not start", err)
		}
		s.launcher = l
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		s.cleanupLauncher()
		return nil, services.Wrap(services.ErrExternalTool, "acquisition", "connect browser", controlURL, err)
	}
	s.browser = browser
	logger.Debug("browser connected", logging.String("control_url", controlURL), logging.Bool("launched", s.launcher != nil))
	return s, nil
}

// Login opens the catalog site and signs in unless the page already shows
// the logged-in marker.
func (s *Session) Login(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, err := s.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: s.opts.BaseURL})
	if err != nil {
		return services.Wrap(services.ErrRemoteInteraction, "acquisition", "open page", s.opts.BaseURL, err)
	}
	s.page = page
	if err := page.Timeout(s.opts.LoginTimeout).WaitLoad(); err != nil {
		return services.Wrap(services.ErrRemoteInteraction, "acquisition", "login", "page did not load", err)
	}

	sel := s.opts.Selectors
	if has, _, err := page.Has(sel.LoggedIn); err == nil && has {
		s.logger.Info("remote session already authenticated")
		return nil
	}
	if strings.TrimSpace(s.opts.Username) == "" || s.opts.Password == "" {
		return services.Wrap(services.ErrConfiguration, "acquisition", "login",
			"remote credentials missing; set DUATANIM_REMOTE_USERNAME and DUATANIM_REMOTE_PASSWORD", nil)
	}

	wait := page.Context(ctx).Timeout(s.opts.LoginTimeout)
	if err := s.fill(wait, sel.LoginEmail, s.opts.Username); err != nil {
		return err
	}
	if err := s.fill(wait, sel.LoginPassword, s.opts.Password); err != nil {
		return err
	}
	if err := s.click(wait, sel.LoginSubmit); err != nil {
		return err
	}
	if _, err := wait.Element(sel.LoggedIn); err != nil {
		return services.Wrap(services.ErrRemoteInteraction, "acquisition", "login", "logged-in marker never appeared", err)
	}
	s.logger.Info("remote login complete")
	return nil
}

// Search types name into the search box and selects the result whose label
// is closest to name.
func (s *Session) Search(ctx context.Context, name string) (remote.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == nil {
		return remote.Handle{}, services.Wrap(services.ErrRemoteInteraction, "acquisition", "search", "no page open", nil)
	}

	sel := s.opts.Selectors
	wait := s.page.Context(ctx).Timeout(s.opts.ElementTimeout)
	box, err := wait.Element(sel.SearchInput)
	if err != nil {
		return remote.Handle{}, services.Wrap(services.ErrRemoteInteraction, "acquisition", "search", "search box unavailable", err)
	}
	if err := box.SelectAllText(); err != nil {
		return remote.Handle{}, services.Wrap(services.ErrRemoteInteraction, "acquisition", "search", "clear search box", err)
	}
	if err := box.Input(name); err != nil {
		return remote.Handle{}, services.Wrap(services.ErrRemoteInteraction, "acquisition", "search", "type query", err)
	}
	if err := box.Type(input.Enter); err != nil {
		return remote.Handle{}, services.Wrap(services.ErrRemoteInteraction, "acquisition", "search", "submit query", err)
	}

	if _, err := wait.Element(sel.SearchResult); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return remote.Handle{}, services.Wrap(services.ErrNotFound, "acquisition", "search",
				fmt.Sprintf("no result for %q", name), err)
		}
		return remote.Handle{}, services.Wrap(services.ErrRemoteInteraction, "acquisition", "search", "result list", err)
	}
	results, err := s.page.Context(ctx).Elements(sel.SearchResult)
	if err != nil {
		return remote.Handle{}, services.Wrap(services.ErrRemoteInteraction, "acquisition", "search", "result list", err)
	}
	labels := make([]string, len(results))
	for i, el := range results {
		text, _ := el.Text()
		labels[i] = strings.TrimSpace(text)
	}
	idx, score := textutil.BestMatch(name, labels)
	if idx < 0 || score < minResultScore {
		return remote.Handle{}, services.Wrap(services.ErrNotFound, "acquisition", "search",
			fmt.Sprintf("none of %d results resembles %q", len(labels), name), nil)
	}
	if idx > 0 {
		s.logger.Debug("closest search result is not the first",
			logging.String("label", labels[idx]),
			logging.Int("position", idx),
			logging.Float64("score", score),
		)
	}
	if err := results[idx].Click(proto.InputMouseButtonLeft, 1); err != nil {
		return remote.Handle{}, services.Wrap(services.ErrRemoteInteraction, "acquisition", "search", "select result", err)
	}
	return remote.Handle{Name: name, ID: labels[idx]}, nil
}

// ConfigureExport opens the download dialog and applies the export options.
func (s *Session) ConfigureExport(ctx context.Context, h remote.Handle, opts remote.ExportOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == nil {
		return services.Wrap(services.ErrConfiguration, "acquisition", "configure export", "no page open", nil)
	}

	sel := s.opts.Selectors
	wait := s.page.Context(ctx).Timeout(s.opts.ElementTimeout)
	if err := s.clickMarked(wait, sel.DownloadButton, services.ErrConfiguration); err != nil {
		return err
	}
	choices := []struct {
		selector string
		label    string
	}{
		{sel.FormatSelect, FormatLabel(opts.Format)},
		{sel.SkinSelect, SkinLabel(opts.WithSkin)},
		{sel.FPSSelect, strconv.Itoa(opts.FPS)},
	}
	for _, choice := range choices {
		if strings.TrimSpace(choice.selector) == "" {
			continue
		}
		el, err := wait.Element(choice.selector)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "acquisition", "configure export",
				fmt.Sprintf("control %s unavailable for %q", choice.selector, h.Name), err)
		}
		if err := el.Select([]string{choice.label}, true, rod.SelectorTypeText); err != nil {
			return services.Wrap(services.ErrConfiguration, "acquisition", "configure export",
				fmt.Sprintf("select %q in %s", choice.label, choice.selector), err)
		}
	}
	return nil
}

// TriggerDownload confirms the export dialog. The returned token resolves to
// the file Chromium writes into destDir under the download GUID.
func (s *Session) TriggerDownload(ctx context.Context, h remote.Handle, destDir string) (remote.Download, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == nil {
		return nil, services.Wrap(services.ErrRemoteInteraction, "acquisition", "download", "no page open", nil)
	}

	downloadCtx, cancel := context.WithCancel(context.Background())
	wait := s.browser.Context(downloadCtx).WaitDownload(destDir)

	page := s.page.Context(ctx).Timeout(s.opts.ElementTimeout)
	if err := s.click(page, s.opts.Selectors.ConfirmDownload); err != nil {
		cancel()
		return nil, err
	}
	s.logger.Debug("download requested", logging.String(logging.FieldItem, h.Name), logging.String("dir", destDir))
	return &pendingDownload{dir: destDir, wait: wait, cancel: cancel}, nil
}

// Close shuts down the browser and any process this session launched.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
		s.page = nil
	}
	s.cleanupLauncher()
	return err
}

func (s *Session) cleanupLauncher() {
	if s.launcher == nil {
		return
	}
	s.launcher.Kill()
	s.launcher.Cleanup()
	s.launcher = nil
}

func (s *Session) fill(page *rod.Page, selector, value string) error {
	el, err := page.Element(selector)
	if err != nil {
		return services.Wrap(services.ErrRemoteInteraction, "acquisition", "login", "field "+selector+" unavailable", err)
	}
	if err := el.Input(value); err != nil {
		return services.Wrap(services.ErrRemoteInteraction, "acquisition", "login", "fill "+selector, err)
	}
	return nil
}

func (s *Session) click(page *rod.Page, selector string) error {
	return s.clickMarked(page, selector, services.ErrRemoteInteraction)
}

func (s *Session) clickMarked(page *rod.Page, selector string, marker error) error {
	el, err := page.Element(selector)
	if err != nil {
		return services.Wrap(marker, "acquisition", "click", "control "+selector+" unavailable", err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return services.Wrap(marker, "acquisition", "click", selector, err)
	}
	return nil
}

type pendingDownload struct {
	dir    string
	wait   func() *proto.PageDownloadWillBegin
	cancel context.CancelFunc
}

func (d *pendingDownload) Wait(ctx context.Context) (remote.Completed, error) {
	defer d.cancel()
	done := make(chan *proto.PageDownloadWillBegin, 1)
	go func() {
		done <- d.wait()
	}()

	select {
	case info := <-done:
		if info == nil || info.GUID == "" {
			return remote.Completed{}, services.Wrap(services.ErrRemoteInteraction, "acquisition", "await download", "browser reported no download", nil)
		}
		return remote.Completed{
			Path:          filepath.Join(d.dir, info.GUID),
			SuggestedName: info.SuggestedFilename,
		}, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return remote.Completed{}, services.Wrap(services.ErrTimeout, "acquisition", "await download", "download did not complete", ctx.Err())
		}
		return remote.Completed{}, ctx.Err()
	}
}

// FormatLabel maps an export format to the option text shown in the dialog.
func FormatLabel(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "fbx":
		return "FBX Binary(.fbx)"
	case "fbx7":
		return "FBX for Unity(.fbx)"
	case "dae":
		return "Collada(.dae)"
	default:
		return format
	}
}

// SkinLabel maps the skin flag to the option text shown in the dialog.
func SkinLabel(withSkin bool) string {
	if withSkin {
		return "With Skin"
	}
	return "Without Skin"
}
