package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spellbook-app/session-gateway/internal/adapters/transport/http/dto"
	"github.com/spellbook-app/session-gateway/internal/domain/session/backend"
	customErrors "github.com/spellbook-app/session-gateway/internal/domain/session/errors"
	"github.com/spellbook-app/session-gateway/internal/domain/session/model"
	"github.com/spellbook-app/session-gateway/internal/domain/session/repo"
	"github.com/spellbook-app/session-gateway/internal/infra/metrics"
	"go.uber.org/zap"
)

var refreshCallTimeout = 15 * time.Second

const clearCallTimeout = 5 * time.Second

type Service interface {
	Login(ctx context.Context, sid string, in dto.LoginDTO) (model.User, error)
	Logout(ctx context.Context, sid string) error
	IsAuthenticated(ctx context.Context, sid string) bool
	CurrentUser(ctx context.Context, sid string) (model.User, error)
	AccessToken(ctx context.Context, sid string) (string, error)
	Close()
}

// manager owns every live session: the token pair, the cached user and
// the single renewal timer per session. Each successful login or
// refresh re-arms the timer for expiry minus the buffer; a firing timer
// that finds its generation stale does nothing, which is what makes
// logout win every race against an in-flight refresh.
type manager struct {
	store   repo.TokenStore
	backend backend.Client
	buffer  time.Duration
	v       *validator.Validate
	rec     metrics.Recorder
	log     *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
	// sids with a logout in flight: restore must not resurrect them
	// while the durable clear is still pending
	loggingOut map[string]struct{}
	nextGen    uint64
	closed     bool
}

type entry struct {
	sess  model.Session
	user  *model.User
	timer *time.Timer
	gen   uint64
}

func New(
	store repo.TokenStore,
	cli backend.Client,
	buffer time.Duration,
	v *validator.Validate,
	rec metrics.Recorder,
	logger *zap.Logger,
) Service {
	if rec == nil {
		rec = metrics.NopRecorder{}
	}
	return &manager{
		store:      store,
		backend:    cli,
		buffer:     buffer,
		v:          v,
		rec:        rec,
		log:        logger,
		entries:    make(map[string]*entry),
		loggingOut: make(map[string]struct{}),
	}
}

func (m *manager) Login(ctx context.Context, sid string, in dto.LoginDTO) (model.User, error) {
	if err := m.v.Struct(in); err != nil {
		return model.User{}, customErrors.NewInvalidArgument(err.Error())
	}

	grant, err := m.backend.Login(ctx, in.Username, in.Password)
	if err != nil {
		m.rec.RecordLogin("rejected")
		return model.User{}, err
	}

	expiresAt, err := grantExpiry(grant)
	if err != nil {
		return model.User{}, err
	}

	user, err := m.backend.CurrentUser(ctx, grant.AccessToken)
	if err != nil {
		return model.User{}, err
	}

	sess := model.Session{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    expiresAt,
		UserID:       user.ID,
	}
	if err := m.store.Set(ctx, sid, sess); err != nil {
		return model.User{}, customErrors.WrapInternal(err, "persist session")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return model.User{}, customErrors.ErrInternal
	}

	if old, ok := m.entries[sid]; ok && old.timer != nil {
		old.timer.Stop()
	}
	e := &entry{sess: sess, user: &user, gen: m.newGenLocked()}
	m.entries[sid] = e
	m.armLocked(sid, e)

	m.rec.RecordLogin("success")
	m.log.Info("login",
		zap.String("sid", sidPrefix(sid)),
		zap.String("user_id", user.ID.String()),
	)
	return user, nil
}

func (m *manager) Logout(ctx context.Context, sid string) error {
	m.mu.Lock()
	if e, ok := m.entries[sid]; ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(m.entries, sid)
	}
	m.loggingOut[sid] = struct{}{}
	m.mu.Unlock()

	err := m.store.Clear(ctx, sid)

	m.mu.Lock()
	delete(m.loggingOut, sid)
	m.mu.Unlock()

	if err != nil {
		return customErrors.WrapInternal(err, "clear session")
	}
	m.log.Info("logout", zap.String("sid", sidPrefix(sid)))
	return nil
}

func (m *manager) IsAuthenticated(ctx context.Context, sid string) bool {
	e, err := m.restore(ctx, sid)
	if err != nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return !e.sess.Expired(time.Now())
}

func (m *manager) CurrentUser(ctx context.Context, sid string) (model.User, error) {
	e, err := m.restore(ctx, sid)
	if err != nil {
		return model.User{}, err
	}

	m.mu.Lock()
	if e.user != nil {
		u := *e.user
		m.mu.Unlock()
		return u, nil
	}
	access := e.sess.AccessToken
	gen := e.gen
	m.mu.Unlock()

	user, err := m.backend.CurrentUser(ctx, access)
	if err != nil {
		return model.User{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.entries[sid]; ok && cur.gen == gen {
		cur.user = &user
		cur.sess.UserID = user.ID
	}
	return user, nil
}

func (m *manager) AccessToken(ctx context.Context, sid string) (string, error) {
	e, err := m.restore(ctx, sid)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return e.sess.AccessToken, nil
}

// Close cancels every pending renewal timer. Sessions stay in the
// durable store and are restored lazily after the next start.
func (m *manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for _, e := range m.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	m.entries = make(map[string]*entry)
}

// restore brings a session back from the durable store after a process
// restart. The expiry is re-derived from the access token claim; an
// already expired token simply arms an immediate refresh.
func (m *manager) restore(ctx context.Context, sid string) (*entry, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, customErrors.ErrNoSession
	}
	if _, ok := m.loggingOut[sid]; ok {
		m.mu.Unlock()
		return nil, customErrors.ErrNoSession
	}
	if e, ok := m.entries[sid]; ok {
		m.mu.Unlock()
		return e, nil
	}
	m.mu.Unlock()

	sess, ok, err := m.store.Get(ctx, sid)
	if err != nil {
		return nil, customErrors.WrapInternal(err, "restore session")
	}
	if !ok {
		return nil, customErrors.ErrNoSession
	}

	expiresAt, err := accessTokenExpiry(sess.AccessToken)
	if err != nil {
		// stored token is unusable, drop the leftovers
		_ = m.store.Clear(ctx, sid)
		return nil, customErrors.ErrNoSession
	}
	sess.ExpiresAt = expiresAt

	m.mu.Lock()
	if _, ok := m.loggingOut[sid]; ok {
		// a logout started after the read above, its clear wins
		m.mu.Unlock()
		return nil, customErrors.ErrNoSession
	}
	if e, ok := m.entries[sid]; ok {
		// lost the restore race to a concurrent request
		m.mu.Unlock()
		return e, nil
	}
	e := &entry{sess: sess, gen: m.newGenLocked()}
	m.entries[sid] = e
	m.armLocked(sid, e)
	m.mu.Unlock()

	// the tokens were read before the entry went live, so a logout may
	// have cleared the store in between; read back before trusting it
	if _, live, err := m.store.Get(ctx, sid); err != nil || !live {
		m.mu.Lock()
		if cur, ok := m.entries[sid]; ok && cur.gen == e.gen {
			if cur.timer != nil {
				cur.timer.Stop()
			}
			delete(m.entries, sid)
		}
		m.mu.Unlock()
		return nil, customErrors.ErrNoSession
	}

	m.log.Debug("session restored", zap.String("sid", sidPrefix(sid)))
	return e, nil
}

// armLocked schedules the single renewal timer for a session. Re-arming
// always cancels the previous timer; a deadline already in the past
// fires right away.
func (m *manager) armLocked(sid string, e *entry) {
	if e.timer != nil {
		e.timer.Stop()
	}

	deadline := time.Until(e.sess.ExpiresAt) - m.buffer
	if deadline < 0 {
		deadline = 0
	}

	gen := e.gen
	e.timer = time.AfterFunc(deadline, func() {
		m.refresh(sid, gen)
	})
}

func (m *manager) refresh(sid string, gen uint64) {
	m.mu.Lock()
	e, ok := m.entries[sid]
	if !ok || e.gen != gen || m.closed {
		m.mu.Unlock()
		return
	}
	refreshToken := e.sess.RefreshToken
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), refreshCallTimeout)
	defer cancel()

	grant, err := m.backend.Refresh(ctx, refreshToken)

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok = m.entries[sid]
	if !ok || e.gen != gen {
		// logged out while the call was in flight, drop the result
		return
	}

	if err != nil {
		// terminal: no retry loop, the viewer goes back to login
		m.rec.RecordRefresh("failure")
		m.log.Warn("refresh failed, forcing logout",
			zap.String("sid", sidPrefix(sid)),
			zap.Error(err),
		)
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(m.entries, sid)
		m.clearStore(sid)
		return
	}

	expiresAt, err := grantExpiry(grant)
	if err != nil {
		m.rec.RecordRefresh("failure")
		m.log.Warn("refresh returned unusable token, forcing logout",
			zap.String("sid", sidPrefix(sid)),
			zap.Error(err),
		)
		delete(m.entries, sid)
		m.clearStore(sid)
		return
	}

	e.sess.AccessToken = grant.AccessToken
	e.sess.ExpiresAt = expiresAt
	if grant.RefreshToken != "" {
		e.sess.RefreshToken = grant.RefreshToken
	}
	if err := m.store.Set(ctx, sid, e.sess); err != nil {
		m.log.Error("persist refreshed session", zap.Error(err))
	}
	m.armLocked(sid, e)

	m.rec.RecordRefresh("success")
	m.log.Debug("session refreshed",
		zap.String("sid", sidPrefix(sid)),
		zap.Time("expires_at", expiresAt),
	)
}

// clearStore drops the durable tokens on its own context. The refresh
// call context may already be past its deadline when a failed refresh
// lands here, and the clear must still go through.
func (m *manager) clearStore(sid string) {
	ctx, cancel := context.WithTimeout(context.Background(), clearCallTimeout)
	defer cancel()
	if err := m.store.Clear(ctx, sid); err != nil {
		m.log.Error("clear session after failed refresh",
			zap.String("sid", sidPrefix(sid)),
			zap.Error(err),
		)
	}
}

func (m *manager) newGenLocked() uint64 {
	m.nextGen++
	return m.nextGen
}

// grantExpiry trusts the token's own exp claim and falls back to
// expires_in when the claim is missing.
func grantExpiry(grant model.TokenGrant) (time.Time, error) {
	if exp, err := accessTokenExpiry(grant.AccessToken); err == nil {
		return exp, nil
	}
	if grant.ExpiresIn > 0 {
		return time.Now().Add(time.Duration(grant.ExpiresIn) * time.Second), nil
	}
	return time.Time{}, customErrors.NewInvalidArgument("token grant carries no expiry")
}

func sidPrefix(sid string) string {
	if len(sid) > 8 {
		return sid[:8]
	}
	return sid
}
