// Package probe issues the per-platform existence checks and classifies
// their responses into availability verdicts.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mlftt/namecheck/internal/httpx"
	"github.com/mlftt/namecheck/internal/platform"
)

// ErrInvalidUsername marks usernames rejected before any network activity.
var ErrInvalidUsername = errors.New("invalid username")

// ValidateUsername rejects usernames that cannot form a URL path segment.
func ValidateUsername(username string) error {
	if username == "" {
		return errors.Wrap(ErrInvalidUsername, "empty username")
	}
	if url.PathEscape(username) != username {
		return errors.Wrapf(ErrInvalidUsername, "%q is not a clean URL path segment", username)
	}
	return nil
}

type Prober struct {
	client httpx.Doer
	cfg    Config
	log    logrus.FieldLogger
}

func NewProber(client httpx.Doer, cfg Config, log logrus.FieldLogger) *Prober {
	if cfg.UserAgent == "" {
		cfg.UserAgent = httpx.DefaultUserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 2 << 20
	}
	if log == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		log = logger
	}

	return &Prober{
		client: client,
		cfg:    cfg,
		log:    log,
	}
}

// Probe performs one existence check and classifies the outcome:
//
//	404 or a not-found body marker  -> Available
//	200 or a redirect               -> Taken
//	anything else, or no response   -> Unknown
//
// Transport failures are recorded on the result, never propagated.
func (p *Prober) Probe(ctx context.Context, username string, spec platform.Spec) Result {
	res := Result{
		Username: username,
		Platform: spec.Name,
		Verdict:  VerdictUnknown,
	}

	if spec.NoCheck {
		res.Reason = ReasonNoPublicCheck
		return res
	}

	if err := ValidateUsername(username); err != nil {
		res.Err = err
		res.Reason = "invalid-username"
		return res
	}

	// A handle the platform would never issue cannot be claimed there.
	ok, err := spec.AllowsHandle(username)
	if err != nil {
		res.Err = err
		res.Reason = ReasonRequestFailed
		return res
	}
	if !ok {
		res.Verdict = VerdictAvailable
		res.Reason = ReasonInvalidHandle
		return res
	}

	probeURL := spec.ProfileURL(username)

	req, err := httpx.NewRequest(ctx, http.MethodGet, probeURL, nil, p.cfg.UserAgent)
	if err != nil {
		res.Err = err
		res.Reason = ReasonRequestFailed
		return res
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.WithFields(logrus.Fields{
			"platform": spec.Name,
			"username": username,
		}).WithError(err).Debug("probe request failed")
		res.Err = err
		res.Reason = ReasonRequestFailed
		return res
	}
	defer resp.Body.Close()

	sc := resp.StatusCode
	res.StatusCode = &sc

	switch {
	case sc == http.StatusNotFound:
		res.Verdict = VerdictAvailable
		res.Reason = fmt.Sprintf("status:%d", sc)

	case sc == http.StatusOK:
		if len(spec.NotFoundMarkers) > 0 {
			body, err := p.readBody(resp.Body)
			if err != nil {
				res.Err = err
				res.Reason = ReasonRequestFailed
				return res
			}
			if marker, found := spec.MatchNotFound(body); found {
				res.Verdict = VerdictAvailable
				res.Reason = "marker:" + marker
				break
			}
		}
		res.Verdict = VerdictTaken
		res.Reason = fmt.Sprintf("status:%d", sc)

	case sc >= 300 && sc < 400:
		// Redirects are not followed; a profile URL that redirects is
		// serving something for that handle.
		res.Verdict = VerdictTaken
		res.Reason = fmt.Sprintf("redirect:%d", sc)

	default:
		res.Reason = fmt.Sprintf("status:%d", sc)
	}

	p.log.WithFields(logrus.Fields{
		"platform": spec.Name,
		"username": username,
		"status":   sc,
		"verdict":  res.Verdict,
	}).Debug("probe complete")

	return res
}

func (p *Prober) readBody(r io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, p.cfg.MaxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
