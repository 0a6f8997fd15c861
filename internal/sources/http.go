package sources

import (
	"errors"
	"io"
	"net"
	"net/http"
)

// call executes the request, enforces 2xx, and returns the raw body. Network
// timeouts and 429/5xx responses come back wrapped as TransientError.
func call(provider, op string, hc *http.Client, req *http.Request) ([]byte, error) {
	resp, err := hc.Do(req)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, &TransientError{Err: err}
		}
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, newProviderError(provider, op, resp, b)
	}
	return b, nil
}
