// Package browser owns the chromedp session against the single active
// document. The observer and actuator both run their CDP actions through it.
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/zentab/tabagent/internal/config"
)

// ActionRunner executes chromedp actions against the live page. It is the
// seam that lets the observer and actuator be tested without a browser.
type ActionRunner interface {
	Run(ctx context.Context, actions ...chromedp.Action) error
}

// Session is a live chromedp browser session. One session, one tab.
type Session struct {
	browserCtx context.Context
	cancels    []context.CancelFunc
	logger     *zap.Logger
}

var _ ActionRunner = (*Session)(nil)

// NewSession launches a browser (or attaches to a remote one when
// cfg.RemoteURL is set) and opens its tab.
func NewSession(parentCtx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	log := logger.Named("browser")

	var cancels []context.CancelFunc
	allocCtx := parentCtx
	if cfg.RemoteURL != "" {
		var cancel context.CancelFunc
		allocCtx, cancel = chromedp.NewRemoteAllocator(parentCtx, cfg.RemoteURL)
		cancels = append(cancels, cancel)
		log.Info("attaching to remote browser", zap.String("url", cfg.RemoteURL))
	} else {
		opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
		if !cfg.Headless {
			opts = append(opts, chromedp.Flag("headless", false))
		}
		for _, arg := range cfg.Args {
			opts = append(opts, chromedp.Flag(arg, true))
		}
		var cancel context.CancelFunc
		allocCtx, cancel = chromedp.NewExecAllocator(parentCtx, opts...)
		cancels = append(cancels, cancel)
	}

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	cancels = append(cancels, cancel)

	// A modal dialog stalls every subsequent CDP action, so dismiss them as
	// they appear. Page exceptions are logged for debugging only.
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *page.EventJavascriptDialogOpening:
			log.Warn("dismissing page dialog",
				zap.String("type", string(e.Type)),
				zap.String("message", e.Message))
			go func() {
				if err := chromedp.Run(browserCtx, page.HandleJavaScriptDialog(false)); err != nil {
					log.Debug("could not dismiss dialog", zap.Error(err))
				}
			}()
		case *runtime.EventExceptionThrown:
			log.Debug("page exception", zap.String("detail", e.ExceptionDetails.Error()))
		}
	})

	// Force the browser to actually start so failures surface here rather
	// than on the first observation.
	if err := chromedp.Run(browserCtx); err != nil {
		for i := len(cancels) - 1; i >= 0; i-- {
			cancels[i]()
		}
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	return &Session{
		browserCtx: browserCtx,
		cancels:    cancels,
		logger:     log,
	}, nil
}

// Run executes actions on the session tab, honoring the caller's deadline.
func (s *Session) Run(ctx context.Context, actions ...chromedp.Action) error {
	// chromedp actions must run on the session context to reach the CDP
	// connection; the operational context only contributes cancellation.
	runCtx, cancel := context.WithCancel(s.browserCtx)
	defer cancel()

	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(runCtx, deadline)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()

	select {
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Close tears the session down.
func (s *Session) Close() {
	for i := len(s.cancels) - 1; i >= 0; i-- {
		s.cancels[i]()
	}
}
