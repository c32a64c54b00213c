package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"recruitai/internal/cache"
	"recruitai/internal/config"
	"recruitai/internal/cv"
	"recruitai/internal/notify"
	"recruitai/internal/objectstore"
	"recruitai/internal/poller"
	"recruitai/internal/relay"
	"recruitai/internal/storage"
)

// Store is everything the handlers need from the datastore. *storage.DB
// implements it.
type Store interface {
	relay.Store

	Ping(ctx context.Context) error

	CountCandidates(ctx context.Context, jobID string) (int, error)
	ListCandidates(ctx context.Context, jobID string) ([]*storage.Candidate, error)
	GetCandidate(ctx context.Context, candidateID string) (*storage.Candidate, error)
	SetCandidateStatus(ctx context.Context, candidateID string, status storage.Status) error
	SetCandidateTags(ctx context.Context, candidateID string, tags []string) error
	SetShortlistOrder(ctx context.Context, candidateIDs []string) error

	CreateRole(ctx context.Context, r *storage.Role) error
	ListRoles(ctx context.Context) ([]*storage.Role, error)
	GetRole(ctx context.Context, id int64) (*storage.Role, error)
	RoleIDByJobID(ctx context.Context, jobID string) (int64, error)

	CreateUser(ctx context.Context, u *storage.User) error
	GetUserByEmail(ctx context.Context, email string) (*storage.User, error)
	UpdateUser(ctx context.Context, u *storage.User) error
	CreateSession(ctx context.Context, s *storage.Session) error
	GetSessionUser(ctx context.Context, token string, now time.Time) (*storage.User, error)
	DeleteSession(ctx context.Context, token string) error

	ListSlots(ctx context.Context, from, to string) ([]*storage.Slot, error)
	CreateSlot(ctx context.Context, s *storage.Slot) error
	GetSlot(ctx context.Context, id int64) (*storage.Slot, error)
	ConfirmSlot(ctx context.Context, id int64) error
	ConfirmSlotAt(ctx context.Context, date, day, slotTime string) error
	DeleteSlot(ctx context.Context, id int64) error
}

const notifyTimeout = 30 * time.Second

// Options wires the API's collaborators. Cache and Uploads are optional.
type Options struct {
	Config  *config.Config
	Store   Store
	Cache   cache.Cache
	Uploads *objectstore.Client
	Logger  *zap.Logger
}

type API struct {
	cfg      *config.Config
	store    Store
	cache    cache.Cache
	uploads  *objectstore.Client
	parser   *cv.Parser
	relay    *relay.Relay
	notifier *notify.Forwarder
	pollers  *poller.Registry
	logger   *zap.Logger
	now      func() time.Time

	forwardQueue chan ForwardJob // background scoring forwards
	workers      sync.WaitGroup

	mu          sync.Mutex
	closed      bool
	submissions map[string]*submission
}

func NewAPI(opts Options) *API {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cfg := opts.Config
	tun := cfg.Tunables

	c := opts.Cache
	if c == nil {
		c = cache.NewMemory()
	}
	uploads := opts.Uploads
	if uploads == nil {
		uploads = objectstore.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, notifyTimeout)
	}

	queueSize := tun.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}

	a := &API{
		cfg:     cfg,
		store:   opts.Store,
		cache:   c,
		uploads: uploads,
		parser:  cv.NewParser(""),
		relay:   relay.New(cfg.ScoringWebhookURL, tun.RelayTimeout, opts.Store, log),
		notifier: notify.NewForwarder(map[notify.Kind]string{
			notify.KindReject: cfg.RejectWebhookURL,
			notify.KindInvite: cfg.InviteWebhookURL,
			notify.KindEmail:  cfg.EmailWebhookURL,
		}, tun.NotifyRatePerMin, notifyTimeout, log),
		pollers: poller.NewRegistry(poller.Config{
			Interval:    tun.PollInterval,
			MaxAttempts: tun.PollMaxAttempts,
		}, log),
		logger:       log.Named("api"),
		now:          time.Now,
		forwardQueue: make(chan ForwardJob, queueSize),
		submissions:  make(map[string]*submission),
	}

	a.StartBackgroundWorkers()

	return a
}

// Close stops accepting background work and cancels every pending forward.
// Queued submissions are marked cancelled without reaching the workflow, and
// forwards already in flight are aborted. It then stops every poller. Close
// is safe to call more than once.
func (a *API) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.forwardQueue)
	now := a.now()
	for _, s := range a.submissions {
		if !s.State.settled() {
			s.State = SubmissionCancelled
			s.Message = "server shutting down"
			s.UpdatedAt = now
		}
		if s.cancel != nil {
			s.cancel()
		}
	}
	a.mu.Unlock()

	a.workers.Wait()
	a.pollers.Close()
}

// HealthHandler reports whether the datastore answers.
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Ping(r.Context()); err != nil {
		a.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
