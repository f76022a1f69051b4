// Package update checks whether a newer release has been published.
package update

import (
	"context"
	"io"
	"net/http"

	version "github.com/mcuadros/go-version"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/mlftt/namecheck/internal/httpx"
)

const DefaultReleaseURL = "https://api.github.com/repos/mlftt/namecheck/releases/latest"

const maxReleaseBody = 1 << 20

type Status struct {
	Current string
	Latest  string
	Newer   bool
}

// Check fetches the latest release tag from releaseURL and compares it
// against the running version.
func Check(ctx context.Context, client httpx.Doer, releaseURL, current string) (Status, error) {
	status := Status{Current: current}

	req, err := httpx.NewRequest(ctx, http.MethodGet, releaseURL, nil, httpx.DefaultUserAgent)
	if err != nil {
		return status, errors.Wrap(err, "build release request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return status, errors.Wrap(err, "query latest release")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return status, errors.Errorf("release query failed: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReleaseBody))
	if err != nil {
		return status, errors.Wrap(err, "read release response")
	}

	tag := gjson.GetBytes(body, "tag_name").String()
	if tag == "" {
		return status, errors.New("release response has no tag_name")
	}

	status.Latest = tag
	status.Newer = version.CompareSimple(version.Normalize(tag), version.Normalize(current)) > 0
	return status, nil
}
