package upload

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// preview is what a token grants access to.
type preview struct {
	tempID      string
	contentType string
}

// Previews issues one-shot tokens for inline image previews of staged
// files. It is safe for concurrent use.
type Previews struct {
	store  Store
	tokens *expirable.LRU[string, preview]
	logger *slog.Logger
}

// NewPreviews returns a registry holding at most size live tokens, each
// valid for ttl.
func NewPreviews(store Store, size int, ttl time.Duration) *Previews {
	if size <= 0 {
		size = 4096
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	logger := slog.Default().With("component", "previews")
	return &Previews{
		store: store,
		tokens: expirable.NewLRU[string, preview](size, func(token string, p preview) {
			logger.Debug("preview token released", "temp_id", p.tempID)
		}, ttl),
		logger: logger,
	}
}

// Acquire issues a token for the staged file tempID.
func (p *Previews) Acquire(tempID, contentType string) string {
	token := uuid.NewString()
	p.tokens.Add(token, preview{tempID: tempID, contentType: contentType})
	return token
}

// Release drops token. Releasing an unknown token is a no-op.
func (p *Previews) Release(token string) {
	p.tokens.Remove(token)
}

// Len returns the number of live tokens.
func (p *Previews) Len() int {
	return p.tokens.Len()
}

// URL returns the path a token is served under.
func URL(prefix, token string) string {
	return prefix + "/" + token
}

// Serve writes the file behind token and drops the token.
func (p *Previews) Serve(w http.ResponseWriter, r *http.Request, token string) {
	pv, ok := p.tokens.Get(token)
	if !ok {
		http.NotFound(w, r)
		return
	}
	p.tokens.Remove(token)

	rc, err := p.store.Open(r.Context(), pv.tempID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		p.logger.Error("preview open failed", "code", "U061", "temp_id", pv.tempID, "error", err)
		http.Error(w, "Preview unavailable", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	if f, err := p.store.Stat(r.Context(), pv.tempID); err == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
	}
	w.Header().Set("Content-Type", pv.contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")
	if _, err := io.Copy(w, rc); err != nil {
		p.logger.Debug("preview write aborted", "temp_id", pv.tempID, "error", err)
	}
}
