package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/storefront/internal/client/client"
	"github.com/dmitrijs2005/storefront/internal/client/config"
	"github.com/dmitrijs2005/storefront/internal/client/database"
	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/client/repositories/kv"
	"github.com/dmitrijs2005/storefront/internal/client/services"
	"github.com/dmitrijs2005/storefront/internal/logging"
)

// sessionService is the part of services.SessionManager the CLI drives.
type sessionService interface {
	Login(ctx context.Context, username, password string) bool
	Logout(ctx context.Context)
	InitializeAuth(ctx context.Context)
	ClearError()
	State() services.SessionState
	Subscribe(fn func(services.SessionState)) (unsubscribe func())
	RefreshSession(ctx context.Context) error
	FetchCurrentUser(ctx context.Context) (*models.User, error)
}

// catalogService is the part of services.CatalogService the CLI drives.
type catalogService interface {
	FetchProducts(ctx context.Context, limit, skip int) error
	FetchProductsByCategory(ctx context.Context, category string, limit int) error
	State() services.CatalogState
	ClearError()
	Categories(ctx context.Context) []string
	Product(ctx context.Context, id int) (*models.Product, error)
	LoadHome(ctx context.Context, limit int) ([]string, error)
	PageSize() int
}

type App struct {
	config   *config.Config
	session  sessionService
	catalog  catalogService
	log      logging.Logger
	reader   *bufio.Reader
	out      io.Writer
	category string
	closers  []io.Closer

	loggingOut atomic.Bool
}

// NewApp opens the local database, builds the API client and the services,
// and subscribes the session manager to the client's unauthorized signal.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := database.Open(ctx, c.DBPath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", c.DBPath, "error", err)
		return nil, err
	}

	apiClient, err := client.NewHTTPClient(c.APIBaseURL,
		client.StoredToken(kv.NewSQLiteRepository(db)),
		client.WithTimeout(c.RequestTimeout),
		client.WithLogger(log.With("component", "http")),
		client.WithTokenLifetime(c.TokenLifetimeMins),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	sm := services.NewSessionManager(apiClient, db,
		services.WithInteractive(IsInteractive),
		services.WithSessionLogger(log.With("component", "session")),
	)
	apiClient.OnUnauthorized(sm.HandleUnauthorized)

	cs := services.NewCatalogService(apiClient,
		services.WithPageSize(c.PageSize),
		services.WithCatalogLogger(log.With("component", "catalog")),
	)

	return &App{
		config:   c,
		session:  sm,
		catalog:  cs,
		log:      log,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		category: services.AllCategories,
		closers:  []io.Closer{apiClient, dbCloser{db}},
	}, nil
}

type dbCloser struct{ db *sql.DB }

func (d dbCloser) Close() error { return d.db.Close() }

// Close releases the API client and the database.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Run restores the previous session and serves the REPL until the user
// exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer func() {
		if err := a.Close(); err != nil {
			a.log.Warn(ctx, "closing app", "error", err)
		}
	}()

	fmt.Fprintln(a.out, "Storefront CLI (type 'help' for commands)")

	a.session.InitializeAuth(ctx)
	if st := a.session.State(); st.IsAuthenticated {
		fmt.Fprintf(a.out, "Welcome back, %s!\n", st.User.FullName())
	}

	unsubscribe := a.session.Subscribe(a.watchSession())
	defer unsubscribe()

	runREPL(ctx, a, a.getStatus, a.reader)
}

// watchSession reports sessions that end without an explicit logout, i.e.
// after the server rejected the stored token.
func (a *App) watchSession() func(services.SessionState) {
	// Delivery runs on whichever goroutine changed the session, so concurrent
	// 401s can call this at the same time.
	var mu sync.Mutex
	wasAuthenticated := a.isLoggedIn()
	return func(st services.SessionState) {
		if st.IsLoading {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if wasAuthenticated && !st.IsAuthenticated && st.Error == nil && !a.loggingOut.Load() {
			fmt.Fprintln(a.out, "Session expired, please log in again.")
		}
		wasAuthenticated = st.IsAuthenticated
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.State().IsAuthenticated
}

func (a *App) getStatus() string {
	st := a.session.State()
	if st.IsAuthenticated && st.User != nil {
		return fmt.Sprintf(" (%s)", st.User.Username)
	}
	return ""
}
