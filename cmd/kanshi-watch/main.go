// kanshi-watch streams one adjudication from a running kanshi server and
// prints the model's reasoning, the tools it calls, and how the run ended.
//
// Usage:
//
//	kanshi-watch [--server URL] [--api-key KEY | --token JWT] [--plain] <customer-id>
//
// Exits 1 when the run ends with an error event or the stream breaks before
// a terminal event.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ashita-ai/kanshi/internal/adjudication"
	"github.com/ashita-ai/kanshi/internal/sse"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	server string
	apiKey string
	token  string
	plain  bool
}

func run(args []string, stdout io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("kanshi-watch", pflag.ContinueOnError)
	flagSet.StringVar(&opts.server, "server", envOr("KANSHI_URL", "http://localhost:8080"), "kanshi server base URL")
	flagSet.StringVar(&opts.apiKey, "api-key", os.Getenv("KANSHI_API_KEY"), "API key (sent as \"ApiKey <key>\")")
	flagSet.StringVar(&opts.token, "token", "", "JWT bearer token")
	flagSet.BoolVar(&opts.plain, "plain", false, "disable colors")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("expected exactly one customer id, got %d arguments", flagSet.NArg())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return watch(ctx, http.DefaultClient, opts, flagSet.Arg(0), newRenderer(stdout, opts.plain))
}

func watch(ctx context.Context, client *http.Client, opts options, customerID string, r *renderer) error {
	endpoint := strings.TrimRight(opts.server, "/") + "/adjudicate/" + url.PathEscape(customerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	switch {
	case opts.token != "":
		req.Header.Set("Authorization", "Bearer "+opts.token)
	case opts.apiKey != "":
		req.Header.Set("Authorization", "ApiKey "+opts.apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("server returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	scanner := sse.NewScanner(resp.Body)
	for scanner.Next() {
		ev, err := adjudication.DecodeEvent(scanner.Event())
		if err != nil {
			// Newer servers may add event types.
			continue
		}
		r.render(ev)
		if ev.Terminal() {
			break
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read stream: %w", err)
	}

	switch {
	case r.failed != "":
		return fmt.Errorf("adjudication failed: %s", r.failed)
	case !r.finished:
		return errors.New("stream ended before the run finished")
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
