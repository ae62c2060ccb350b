// Command healthcheck calls the local covlens health endpoint and exits 0
// when the service reports ok. It is the container HEALTHCHECK.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/ericfisherdev/covlens/internal/config"
)

const timeout = 2 * time.Second

func main() {
	os.Exit(check(context.Background(), os.Getenv("COVLENS_LISTEN_ADDR")))
}

func check(ctx context.Context, listenAddr string) int {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := fmt.Sprintf("http://%s/api/v1/health", dialAddr(listenAddr))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 1
	}

	resp, err := (&http.Client{Timeout: timeout}).Do(req)
	if err != nil {
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 1
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err != nil || body.Status != "ok" {
		return 1
	}
	return 0
}

// dialAddr turns the server's listen address into one the check can dial.
// A bind-all host is reached over loopback from inside the container.
func dialAddr(listenAddr string) string {
	if listenAddr == "" {
		listenAddr = config.DefaultListenAddr
	}

	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return config.DefaultListenAddr
	}

	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
