// Package main is the entry point for logexplorer: a minimal
// newline-delimited-JSON dispatcher over stdio standing in for the full
// tool-invocation transport, which is out of scope for this repo.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fidde/logexplorer/internal/config"
	"github.com/fidde/logexplorer/internal/session"
	"github.com/fidde/logexplorer/internal/tools"
)

// request is one line of stdin: an operation name and its JSON-encoded
// arguments, with an optional caller-supplied id echoed back unexamined.
type request struct {
	ID   json.RawMessage `json:"id,omitempty"`
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args"`
}

// response is one line of stdout. Result is one of the tools.*Result
// types, whose own Error field carries an engine-level failure; Error
// here is reserved for requests that could not even be dispatched (bad
// JSON, unknown op, bad argument shape).
type response struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Result interface{}     `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func main() {
	log.Println("starting logexplorer...")

	cfgPath := getEnv("LOGEXPLORER_CONFIG", "")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if cfgPath != "" {
		log.Printf("loaded config from %s", cfgPath)
	}

	cache, err := session.New(cfg.SessionCacheCapacity)
	if err != nil {
		log.Fatalf("creating session cache: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("received signal: %v, shutting down...", sig)
		cancel()
	}()

	log.Println("reading tool invocations from stdin, one JSON object per line")
	run(ctx, cache, cfg, os.Stdin, os.Stdout)
	log.Println("shutdown complete")
}

func run(ctx context.Context, cache *session.Cache, cfg config.Config, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			encodeResponse(enc, response{Error: fmt.Sprintf("invalid request: %v", err)})
			continue
		}

		encodeResponse(enc, dispatch(ctx, cache, cfg, req))
	}
	if err := scanner.Err(); err != nil {
		log.Printf("reading stdin: %v", err)
	}
}

func encodeResponse(enc *json.Encoder, resp response) {
	if err := enc.Encode(resp); err != nil {
		log.Printf("writing response: %v", err)
	}
}

// dispatch decodes req.Args into the argument type for req.Op and invokes
// the matching tool operation. An unknown op or malformed argument
// payload fails at the transport layer (response.Error); everything past
// that point is the tool operation's own {error} result.
func dispatch(ctx context.Context, cache *session.Cache, cfg config.Config, req request) response {
	switch req.Op {
	case "overview":
		var args tools.OverviewArgs
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return response{ID: req.ID, Error: err.Error()}
		}
		return response{ID: req.ID, Result: tools.Overview(ctx, cache, cfg, args)}

	case "cluster":
		var args tools.ClusterArgs
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return response{ID: req.ID, Error: err.Error()}
		}
		return response{ID: req.ID, Result: tools.Cluster(ctx, cache, cfg, args)}

	case "cluster_drill":
		var args tools.ClusterDrillArgs
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return response{ID: req.ID, Error: err.Error()}
		}
		return response{ID: req.ID, Result: tools.ClusterDrill(ctx, cache, cfg, args)}

	case "timeline":
		var args tools.TimelineArgs
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return response{ID: req.ID, Error: err.Error()}
		}
		return response{ID: req.ID, Result: tools.Timeline(ctx, cache, cfg, args)}

	case "grep":
		var args tools.GrepArgs
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return response{ID: req.ID, Error: err.Error()}
		}
		return response{ID: req.ID, Result: tools.Grep(ctx, cfg, args)}

	case "fetch":
		var args tools.FetchArgs
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return response{ID: req.ID, Error: err.Error()}
		}
		return response{ID: req.ID, Result: tools.Fetch(ctx, cfg, args)}

	default:
		return response{ID: req.ID, Error: fmt.Sprintf("unknown operation: %q", req.Op)}
	}
}

// getEnv gets an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
