package scorerender

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alnah/go-scorerender/internal/fileutil"
	"github.com/alnah/go-scorerender/internal/notation"
)

// maxRemoteImage bounds the body accepted from a remote renderer.
const maxRemoteImage = 16 << 20

func (r *Renderer) endpoint(n *notation.Notation) string {
	if u, ok := r.cfg.endpoints[n.ID]; ok && u != "" {
		return u
	}
	return n.Remote.Endpoint
}

// remoteURL adds the fragment and width to the endpoint query.
func remoteURL(endpoint string, n *notation.Notation, source string, width int) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint: %w", err)
	}
	q := u.Query()
	q.Set(n.Remote.SourceParam, source)
	if n.Remote.WidthParam != "" {
		q.Set(n.Remote.WidthParam, n.Width(width))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// fetchRemote downloads the rendered image into work and returns its path.
// The request runs under the per-program timeout like a local renderer.
func (r *Renderer) fetchRemote(ctx context.Context, j *job, work string) (string, error) {
	n := j.n
	width := j.req.MaxWidth
	if width == 0 {
		width = r.cfg.width
	}

	target, err := remoteURL(r.endpoint(n), n, j.norm.Canonical, width)
	if err != nil {
		return "", failure(KindConverterUnusable, n.ID, "remote renderer", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", failure(KindConverterUnusable, n.ID, "remote renderer", err)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return "", failure(KindRenderingError, n.ID, "remote renderer unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		e := failure(KindRenderingError, n.ID, "remote renderer returned "+strconv.Itoa(resp.StatusCode), nil)
		e.Output = body
		return "", e
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return "", failure(KindRenderingError, n.ID, "remote renderer returned "+ct+", want an image", nil)
	}

	out := filepath.Join(work, notation.InputName+n.Remote.Extension)
	f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600) // #nosec G304 -- fixed name inside the work directory
	if err != nil {
		return "", failure(KindTempFileNotWritable, n.ID, "writing remote image", err)
	}
	written, copyErr := io.Copy(f, io.LimitReader(resp.Body, maxRemoteImage+1))
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		return "", failure(KindRenderingError, n.ID, "reading remote image", copyErr)
	case closeErr != nil:
		return "", failure(KindTempFileNotWritable, n.ID, "writing remote image", closeErr)
	case written > maxRemoteImage:
		return "", failure(KindRenderingError, n.ID, fmt.Sprintf("remote image exceeds %d bytes", maxRemoteImage), nil)
	case !fileutil.NonEmptyFile(out):
		return "", failure(KindRenderingError, n.ID, "remote renderer returned an empty image", nil)
	}
	return out, nil
}
