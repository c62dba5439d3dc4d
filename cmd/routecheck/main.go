package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zatekoja/hostportal/backend/internal/application/services"
	"github.com/zatekoja/hostportal/backend/internal/domain/entities"
	"github.com/zatekoja/hostportal/backend/pkg/config"
)

// result is one line of output
type result struct {
	entities.RouteDecision
	Location string `json:"location,omitempty"`
	Status   int    `json:"status,omitempty"`
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "routecheck:", err)
		os.Exit(1)
	}
}

// run resolves one host/path pair from flags, or with -stdin one
// "host path" pair per line, and writes a JSON decision per pair.
func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("routecheck", flag.ContinueOnError)
	var (
		host      string
		path      string
		fromStdin bool
	)
	fs.StringVar(&host, "host", "", "Request host, e.g. staging.admin.example.com")
	fs.StringVar(&path, "path", "/", "Request path")
	fs.BoolVar(&fromStdin, "stdin", false, "Read \"host path\" pairs from stdin, one per line")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	router := services.NewPortalRouter(cfg.Portal)

	enc := json.NewEncoder(stdout)
	resolve := func(host, path string) error {
		decision := router.Resolve(host, path)
		out := result{RouteDecision: decision}
		if decision.IsRedirect() {
			out.Location = decision.RedirectURL(cfg.Portal.DefaultScheme, "")
			out.Status = cfg.Portal.RedirectStatus
		}
		return enc.Encode(out)
	}

	if !fromStdin {
		if host == "" {
			fs.Usage()
			return fmt.Errorf("-host is required")
		}
		return resolve(host, path)
	}

	scanner := bufio.NewScanner(stdin)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		p := "/"
		if len(fields) > 1 {
			p = fields[1]
		}
		if err := resolve(fields[0], p); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return scanner.Err()
}
