package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Source opens the remote stream for a run. total is -1 when the size is unknown.
type Source interface {
	Open(ctx context.Context, u *url.URL) (body io.ReadCloser, total int64, err error)
}

// HTTPSource streams resources with a plain GET. The client must not carry a
// timeout: a run blocks as long as the server keeps the connection open.
type HTTPSource struct {
	Client *http.Client
}

func NewHTTPSource(client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{}
	}

	return &HTTPSource{Client: client}
}

func (s *HTTPSource) Open(ctx context.Context, u *url.URL) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, &TransferError{Operation: "connect", Err: fmt.Errorf("failed to build request: %w", err)}
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, 0, &TransferError{Operation: "connect", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()

		return nil, 0, &TransferError{Operation: "connect", StatusCode: resp.StatusCode}
	}

	return resp.Body, resp.ContentLength, nil
}
