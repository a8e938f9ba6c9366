// Package main provides a CLI command that generates one content plan.
// Usage: content-plan [--niche NAME] [--keywords a,b] [--posts N] [--output json] ["prompt"]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"content-agent/internal/app"
	"content-agent/internal/config"
	"content-agent/internal/domain/entity"
	"content-agent/internal/observability/logging"
	pkgconfig "content-agent/internal/pkg/config"
	"content-agent/internal/usecase/content"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitExhausted = 3
)

func main() {
	// Optional .env in the working directory; real environment variables win.
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, logging.NewTextLogger()))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, logger *slog.Logger) int {
	fs := flag.NewFlagSet("content-plan", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		nicheName    string
		keywords     string
		brandVoice   string
		audience     string
		posts        int
		outputFormat string
		timeout      time.Duration
	)
	fs.StringVar(&nicheName, "niche", "", "Niche to plan for (default: first configured niche)")
	fs.StringVar(&keywords, "keywords", "", "Comma separated keywords")
	fs.StringVar(&brandVoice, "voice", "", "Brand voice")
	fs.StringVar(&audience, "audience", "", "Target audience")
	fs.IntVar(&posts, "posts", 0, "Number of posts to request")
	fs.StringVar(&outputFormat, "output", "text", "Output format: text or json")
	fs.DurationVar(&timeout, "timeout", 5*time.Minute, "Overall timeout")
	fs.Usage = func() {
		_, _ = fmt.Fprintln(stderr, "Usage: content-plan [flags] [\"prompt\"]")
		_, _ = fmt.Fprintln(stderr, "")
		_, _ = fmt.Fprintln(stderr, "Examples:")
		_, _ = fmt.Fprintln(stderr, "  content-plan --niche \"coffee shop\" --keywords espresso,latte")
		_, _ = fmt.Fprintln(stderr, "  content-plan --output json \"Plan 3 posts about our spring menu\"")
		_, _ = fmt.Fprintln(stderr, "")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if outputFormat != "text" && outputFormat != "json" {
		_, _ = fmt.Fprintf(stderr, "Error: unknown output format %q\n", outputFormat)
		return exitUsage
	}
	if fs.NArg() > 1 {
		_, _ = fmt.Fprintln(stderr, "Error: at most one prompt argument is allowed")
		return exitUsage
	}
	prompt := fs.Arg(0)

	agentConfig, err := config.LoadAgentConfig(logger, nil)
	if err != nil {
		logger.Error("failed to load agent configuration", logging.Err(err))
		_, _ = fmt.Fprintf(stderr, "Error: %s\n", logging.RedactError(err))
		return exitFailure
	}
	agent, err := app.Build(agentConfig, logger)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %s\n", logging.RedactError(err))
		return exitFailure
	}

	niche := pickNiche(agent.Niches, nicheName)
	if keywords != "" {
		niche.Keywords = pkgconfig.SplitList(keywords)
	}
	if brandVoice != "" {
		niche.BrandVoice = brandVoice
	}
	if audience != "" {
		niche.TargetAudience = audience
	}
	if posts > 0 {
		niche.Posts = posts
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := agent.Service.GenerateContentPlan(ctx, prompt, niche)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %s\n", logging.RedactError(err))
		if errors.Is(err, content.ErrAllProvidersExhausted) {
			return exitExhausted
		}
		return exitFailure
	}

	if outputFormat == "json" {
		err = outputJSON(stdout, niche, res)
	} else {
		err = outputText(stdout, niche, res)
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: failed to write output: %v\n", err)
		return exitFailure
	}
	return exitOK
}

// pickNiche returns the configured niche called name, the first configured
// niche when name is empty, or a fresh niche called name.
func pickNiche(niches []entity.Niche, name string) entity.Niche {
	for _, n := range niches {
		if name == "" || strings.EqualFold(n.Name, name) {
			n.Keywords = append([]string(nil), n.Keywords...)
			return n
		}
	}
	return entity.Niche{Name: name}
}

// PlanOutput represents the JSON output format of a content plan.
type PlanOutput struct {
	Niche string `json:"niche"`
	*content.Result
}

func outputJSON(w io.Writer, niche entity.Niche, res *content.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(PlanOutput{Niche: niche.WithDefaults().Name, Result: res})
}

func outputText(w io.Writer, niche entity.Niche, res *content.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Niche: %s\n", niche.WithDefaults().Name)
	fmt.Fprintf(&b, "Provider: %s (stage: %s", res.Provider, res.Stage)
	if res.Degraded {
		b.WriteString(", degraded")
	}
	b.WriteString(")\n\n")

	for i, item := range res.Items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item.Caption)
		if len(item.Hashtags) > 0 {
			fmt.Fprintf(&b, "   %s\n", strings.Join(item.Hashtags, " "))
		}
		if item.ImagePrompt != "" {
			fmt.Fprintf(&b, "   Image: %s\n", item.ImagePrompt)
		}
		if item.BestTime != "" {
			fmt.Fprintf(&b, "   Best time: %s\n", item.BestTime)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
